package model

import (
	"strings"
	"time"
)

// CompletionMarker is appended to an event title while its linked task is done.
const CompletionMarker = "✅"

// Event is a calendar entry. A nil End means a point in time or an all-day entry.
type Event struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"not null" json:"title"`
	Start     time.Time  `gorm:"column:starts_at;index:by_start" json:"start"`
	End       *time.Time `gorm:"column:ends_at" json:"end,omitempty"`
	AllDay    bool       `json:"all_day"`
	CreatedAt time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// Duration returns End-Start, or zero for open-ended events.
func (e *Event) Duration() time.Duration {
	if e == nil || e.End == nil {
		return 0
	}
	return e.End.Sub(e.Start)
}

// BaseTitle strips a single trailing completion marker and the blanks before it.
func BaseTitle(title string) string {
	trimmed := strings.TrimRight(title, " \t")
	if !strings.HasSuffix(trimmed, CompletionMarker) {
		return title
	}
	return strings.TrimRight(strings.TrimSuffix(trimmed, CompletionMarker), " \t")
}

// MarkedTitle returns the base title with or without the completion marker.
func MarkedTitle(title string, done bool) string {
	base := BaseTitle(title)
	if done {
		return base + " " + CompletionMarker
	}
	return base
}
