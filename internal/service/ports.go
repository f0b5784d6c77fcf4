package service

import (
	"context"
	"time"

	"daybook/internal/model"
	"daybook/internal/outbox"
	"daybook/internal/prayer"
)

// TaskCollection is the persistent tasks collection.
type TaskCollection interface {
	All(ctx context.Context) ([]model.Task, error)
	Put(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
}

// EventCollection is the persistent calendar events collection.
type EventCollection interface {
	All(ctx context.Context) ([]model.Event, error)
	Put(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id string) error
}

// NoteCollection is the persistent diary collection, indexed by day.
type NoteCollection interface {
	All(ctx context.Context) ([]model.DailyNote, error)
	ByDate(ctx context.Context, dayStart time.Time) (*model.DailyNote, error)
	Put(ctx context.Context, note *model.DailyNote) error
	Delete(ctx context.Context, id string) error
}

// PreferencesStore persists the settings row.
type PreferencesStore interface {
	Load(ctx context.Context) (*model.Preferences, error)
	Save(ctx context.Context, prefs *model.Preferences) error
}

// Repositories groups the persistent collections behind the store.
type Repositories struct {
	Tasks       TaskCollection
	Events      EventCollection
	Notes       NoteCollection
	Preferences PreferencesStore
}

// PrayerSource computes the prayer times of a day.
type PrayerSource interface {
	TimesFor(day time.Time, method prayer.Method, madhab prayer.Madhab) (prayer.Times, error)
}

// Outbox queues writes the repositories rejected.
type Outbox interface {
	Enqueue(item outbox.Item) error
	Batch(limit int) ([]outbox.Item, error)
	Remove(item outbox.Item) error
	Retry(item outbox.Item) error
	Size() (int, error)
}
