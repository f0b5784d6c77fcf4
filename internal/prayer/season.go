package prayer

import (
	"math"
	"time"
)

// Moonsighting Committee twilight: minutes before sunrise or after sunset,
// interpolated between four latitude-scaled anchors over the year.

func daysSinceSolstice(day time.Time, latitude float64) int {
	const northernOffset = 10
	year := day.Year()
	daysInYear, southernOffset := 365, 172
	if isLeap(year) {
		daysInYear, southernOffset = 366, 173
	}
	doy := day.YearDay()
	if latitude >= 0 {
		d := doy + northernOffset
		if d >= daysInYear {
			d -= daysInYear
		}
		return d
	}
	d := doy - southernOffset
	if d < 0 {
		d += daysInYear
	}
	return d
}

func seasonalMorning(latitude float64, days int) time.Duration {
	lat := math.Abs(latitude)
	return seasonal(days,
		75+28.65/55*lat,
		75+19.44/55*lat,
		75+32.74/55*lat,
		75+48.10/55*lat,
	)
}

func seasonalEvening(latitude float64, days int) time.Duration {
	lat := math.Abs(latitude)
	return seasonal(days,
		75+25.60/55*lat,
		75+2.050/55*lat,
		75-9.210/55*lat,
		75+6.140/55*lat,
	)
}

func seasonal(days int, a, b, c, d float64) time.Duration {
	x := float64(days)
	var minutes float64
	switch {
	case days < 91:
		minutes = a + (b-a)/91*x
	case days < 137:
		minutes = b + (c-b)/46*(x-91)
	case days < 183:
		minutes = c + (d-c)/46*(x-137)
	case days < 229:
		minutes = d + (c-d)/46*(x-183)
	case days < 275:
		minutes = c + (b-c)/46*(x-229)
	default:
		minutes = b + (a-b)/91*(x-275)
	}
	return time.Duration(math.Round(minutes*60)) * time.Second
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
