package prayer

import (
	"fmt"
	"strings"

	goprayer "github.com/hablullah/go-prayer"
)

// Method names a calculation convention published by an Islamic authority.
type Method string

const (
	NorthAmerica          Method = "NorthAmerica"
	MuslimWorldLeague     Method = "MuslimWorldLeague"
	UmmAlQura             Method = "UmmAlQura"
	Egyptian              Method = "Egyptian"
	Karachi               Method = "Karachi"
	Dubai                 Method = "Dubai"
	Qatar                 Method = "Qatar"
	MoonsightingCommittee Method = "MoonsightingCommittee"
	Kuwait                Method = "Kuwait"
	Singapore             Method = "Singapore"
	Turkey                Method = "Turkey"
	Tehran                Method = "Tehran"
)

// Madhab selects the asr shadow convention.
type Madhab string

const (
	Shafi  Madhab = "Shafi"
	Hanafi Madhab = "Hanafi"
)

func (m Madhab) convention() goprayer.AsrConvention {
	if m == Hanafi {
		return goprayer.Hanafi
	}
	return goprayer.Shafii
}

// adjustments are minute offsets applied after the astronomical computation.
type adjustments struct {
	fajr, sunrise, dhuhr, asr, maghrib, isha float64
}

type parameters struct {
	fajrAngle    float64
	ishaAngle    float64
	ishaInterval float64 // minutes after maghrib; replaces ishaAngle when non-zero
	maghribAngle float64 // zero means maghrib at sunset
	adjust       adjustments
}

var methods = map[Method]parameters{
	NorthAmerica:          {fajrAngle: 15, ishaAngle: 15, adjust: adjustments{dhuhr: 1}},
	MuslimWorldLeague:     {fajrAngle: 18, ishaAngle: 17, adjust: adjustments{dhuhr: 1}},
	UmmAlQura:             {fajrAngle: 18.5, ishaInterval: 90},
	Egyptian:              {fajrAngle: 19.5, ishaAngle: 17.5, adjust: adjustments{dhuhr: 1}},
	Karachi:               {fajrAngle: 18, ishaAngle: 18, adjust: adjustments{dhuhr: 1}},
	Dubai:                 {fajrAngle: 18.2, ishaAngle: 18.2, adjust: adjustments{sunrise: -3, dhuhr: 3, asr: 3, maghrib: 3}},
	Qatar:                 {fajrAngle: 18, ishaInterval: 90},
	MoonsightingCommittee: {fajrAngle: 18, ishaAngle: 18, adjust: adjustments{dhuhr: 5, maghrib: 3}},
	Kuwait:                {fajrAngle: 18, ishaAngle: 17.5},
	Singapore:             {fajrAngle: 20, ishaAngle: 18, adjust: adjustments{dhuhr: 1}},
	Turkey:                {fajrAngle: 18, ishaAngle: 17, adjust: adjustments{sunrise: -7, dhuhr: 5, asr: 4, maghrib: 7}},
	Tehran:                {fajrAngle: 17.7, ishaAngle: 14, maghribAngle: 4.5},
}

// Methods lists every supported method in a stable order.
func Methods() []Method {
	return []Method{
		NorthAmerica, MuslimWorldLeague, UmmAlQura, Egyptian, Karachi, Dubai,
		Qatar, MoonsightingCommittee, Kuwait, Singapore, Turkey, Tehran,
	}
}

// ParseMethod matches a method name case-insensitively.
func ParseMethod(raw string) (Method, error) {
	for _, m := range Methods() {
		if strings.EqualFold(string(m), strings.TrimSpace(raw)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
}

// ParseMadhab matches a madhab name case-insensitively.
func ParseMadhab(raw string) (Madhab, error) {
	for _, m := range []Madhab{Shafi, Hanafi} {
		if strings.EqualFold(string(m), strings.TrimSpace(raw)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMadhab, raw)
}
