// Package prayer computes the five daily prayer times for a fixed location.
//
// Solar positions come from go-prayer. This package layers the authority
// conventions on top: minute adjustments, isha intervals, a maghrib angle,
// Moonsighting Committee seasonal twilight and the high-latitude bounds that
// keep fajr and isha defined when the sun never gets deep enough below the horizon.
package prayer

import (
	"errors"
	"math"
	"time"

	goprayer "github.com/hablullah/go-prayer"
)

var (
	ErrInvalidCoordinates = errors.New("prayer: invalid coordinates")
	ErrUnknownMethod      = errors.New("prayer: unknown calculation method")
	ErrUnknownMadhab      = errors.New("prayer: unknown madhab")
	ErrUndefinedTime      = errors.New("prayer: sun does not rise or set on this day")
)

// Prayer names, also used as event titles.
const (
	Fajr    = "Fajr"
	Dhuhr   = "Dhuhr"
	Asr     = "Asr"
	Maghrib = "Maghrib"
	Isha    = "Isha"
)

// Names lists the five prayers in daily order.
var Names = []string{Fajr, Dhuhr, Asr, Maghrib, Isha}

// shallowAngle is a twilight depth the sun reaches wherever it sets at all.
const shallowAngle = 1

// Coordinates is a point on Earth in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (c Coordinates) validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Times holds one day's prayer times, rounded to the minute, in the day's location.
type Times struct {
	Fajr    time.Time
	Sunrise time.Time
	Dhuhr   time.Time
	Asr     time.Time
	Maghrib time.Time
	Isha    time.Time
}

// Named is a prayer name with its time.
type Named struct {
	Name string
	At   time.Time
}

// Prayers returns the five prayers (sunrise excluded) in daily order.
func (t Times) Prayers() []Named {
	return []Named{
		{Name: Fajr, At: t.Fajr},
		{Name: Dhuhr, At: t.Dhuhr},
		{Name: Asr, At: t.Asr},
		{Name: Maghrib, At: t.Maghrib},
		{Name: Isha, At: t.Isha},
	}
}

// Calculator computes prayer times for a fixed location.
type Calculator struct {
	Coordinates Coordinates
}

func NewCalculator(c Coordinates) *Calculator {
	return &Calculator{Coordinates: c}
}

// TimesFor computes the prayer times of the calendar day containing day.
func (c *Calculator) TimesFor(day time.Time, method Method, madhab Madhab) (Times, error) {
	return Compute(day, c.Coordinates, method, madhab)
}

// Compute returns the prayer times of the calendar day of day, in day.Location().
func Compute(day time.Time, c Coordinates, method Method, madhab Madhab) (Times, error) {
	if err := c.validate(); err != nil {
		return Times{}, err
	}
	params, ok := methods[method]
	if !ok {
		return Times{}, ErrUnknownMethod
	}
	if madhab != Shafi && madhab != Hanafi {
		return Times{}, ErrUnknownMadhab
	}

	year, month, date := day.Date()
	midnight := time.Date(year, month, date, 0, 0, 0, 0, day.Location())
	sun := solarDay{coords: c, date: midnight, asr: madhab.convention()}

	base, err := sun.calculate(shallowAngle, shallowAngle)
	if err != nil || !sun.daylight(base) {
		return Times{}, ErrUndefinedTime
	}
	sunrise, sunset := base.Sunrise, base.Maghrib
	night := sunrise.Add(24 * time.Hour).Sub(sunset)

	twilight, err := sun.calculate(params.fajrAngle, params.ishaAngle)
	if err != nil {
		twilight = goprayer.Times{}
	}

	fajr, isha := twilight.Fajr, twilight.Isha
	switch {
	case method == MoonsightingCommittee && math.Abs(c.Latitude) >= 55:
		fajr = sunrise.Add(-night / 7)
		isha = sunset.Add(night / 7)
	case method == MoonsightingCommittee:
		days := daysSinceSolstice(midnight, c.Latitude)
		fajr = later(fajr, sunrise, sunrise.Add(-seasonalMorning(c.Latitude, days)))
		isha = earlier(isha, sunset, sunset.Add(seasonalEvening(c.Latitude, days)))
	default:
		fajr = later(fajr, sunrise, sunrise.Add(-nightPortion(c.Latitude, night)))
		isha = earlier(isha, sunset, sunset.Add(nightPortion(c.Latitude, night)))
	}

	maghrib := sunset
	if params.maghribAngle > 0 {
		if dusk, err := sun.calculate(params.fajrAngle, params.maghribAngle); err == nil && dusk.Isha.After(sunset) {
			maghrib = dusk.Isha
		}
	}
	if params.ishaInterval > 0 {
		isha = maghrib.Add(time.Duration(params.ishaInterval * float64(time.Minute)))
	}

	at := func(t time.Time, adjustMinutes float64) time.Time {
		return t.Add(time.Duration(adjustMinutes * float64(time.Minute))).Round(time.Minute).In(day.Location())
	}
	return Times{
		Fajr:    at(fajr, params.adjust.fajr),
		Sunrise: at(sunrise, params.adjust.sunrise),
		Dhuhr:   at(base.Zuhr, params.adjust.dhuhr),
		Asr:     at(base.Asr, params.adjust.asr),
		Maghrib: at(maghrib, params.adjust.maghrib),
		Isha:    at(isha, params.adjust.isha),
	}, nil
}

// solarDay runs go-prayer for one location and calendar day.
type solarDay struct {
	coords Coordinates
	date   time.Time
	asr    goprayer.AsrConvention
}

func (s solarDay) calculate(fajrAngle, ishaAngle float64) (goprayer.Times, error) {
	return goprayer.Calculate(goprayer.Config{
		Latitude:         s.coords.Latitude,
		Longitude:        s.coords.Longitude,
		FajrAngle:        fajrAngle,
		IshaAngle:        ishaAngle,
		AsrConvention:    s.asr,
		PreciseToSeconds: true,
	}, s.date)
}

// daylight reports whether the sun rises and sets in order on the day.
func (s solarDay) daylight(t goprayer.Times) bool {
	sameDay := func(x time.Time) bool {
		if x.IsZero() {
			return false
		}
		y, m, d := x.In(s.date.Location()).Date()
		return y == s.date.Year() && m == s.date.Month() && d == s.date.Day()
	}
	for _, x := range []time.Time{t.Sunrise, t.Zuhr, t.Asr, t.Maghrib} {
		if !sameDay(x) {
			return false
		}
	}
	return t.Sunrise.Before(t.Zuhr) && t.Zuhr.Before(t.Asr) && t.Asr.Before(t.Maghrib)
}

// nightPortion bounds how far fajr and isha may sit from sunrise and sunset:
// a seventh of the night above 48 degrees, half of it elsewhere.
func nightPortion(latitude float64, night time.Duration) time.Duration {
	if math.Abs(latitude) > 48 {
		return night / 7
	}
	return night / 2
}

// later returns the later of t and bound, using bound when t is missing or not
// before limit.
func later(t, limit, bound time.Time) time.Time {
	if t.IsZero() || !t.Before(limit) || bound.After(t) {
		return bound
	}
	return t
}

// earlier returns the earlier of t and bound, using bound when t is missing or
// not after limit.
func earlier(t, limit, bound time.Time) time.Time {
	if t.IsZero() || !t.After(limit) || bound.Before(t) {
		return bound
	}
	return t
}
