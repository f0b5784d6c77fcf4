package model

// DefaultPresets are the habits materialized every day on a fresh install.
var DefaultPresets = []string{"Pray", "Gym", "Eat"}

const (
	DefaultPrayerMethod = "NorthAmerica"
	DefaultPrayerMadhab = "Shafi"
)

// Preferences is the singleton settings row.
type Preferences struct {
	ID           uint     `gorm:"primaryKey" json:"-"`
	Presets      []string `gorm:"serializer:json" json:"presets"`
	PrayerMethod string   `json:"prayer_method"`
	PrayerMadhab string   `json:"prayer_madhab"`
}

// DefaultPreferences returns a fresh copy of the install-time settings.
func DefaultPreferences() Preferences {
	return Preferences{
		ID:           1,
		Presets:      append([]string(nil), DefaultPresets...),
		PrayerMethod: DefaultPrayerMethod,
		PrayerMadhab: DefaultPrayerMadhab,
	}
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	p.Presets = append([]string(nil), p.Presets...)
	return p
}
