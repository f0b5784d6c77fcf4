package model

import "time"

// Priority is an optional task urgency label.
type Priority string

const (
	PriorityNone Priority = ""
	PriorityLow  Priority = "low"
	PriorityMed  Priority = "med"
	PriorityHigh Priority = "high"
)

// Valid reports whether p is one of the known priorities (or empty).
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMed, PriorityHigh:
		return true
	}
	return false
}

// Task represents a single checklist item.
//
// EventID points at the calendar event created alongside the task. Rows written
// before the link existed have it empty and are matched by title and day instead.
type Task struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Notes       string     `json:"notes,omitempty"`
	DueAt       *time.Time `gorm:"index:by_due_at" json:"due_at,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Tags        []string   `gorm:"serializer:json" json:"tags,omitempty"`
	CompletedAt *time.Time `gorm:"index:by_completed_at" json:"completed_at,omitempty"`
	EventID     string     `json:"event_id,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// IsCompleted reports whether the task carries a completion timestamp.
func (t *Task) IsCompleted() bool {
	return t != nil && t.CompletedAt != nil
}

// DueWithin reports whether the due timestamp falls in [start, end].
func (t *Task) DueWithin(start, end time.Time) bool {
	if t == nil || t.DueAt == nil {
		return false
	}
	return !t.DueAt.Before(start) && !t.DueAt.After(end)
}
