package service

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"daybook/internal/model"
)

// PrayPreset is the preset that expands into the five daily prayers.
const PrayPreset = "Pray"

// PrayerDuration is the calendar window given to every generated prayer event.
const PrayerDuration = 20 * time.Minute

// MinTimedDuration is the shortest window a timed event may have.
const MinTimedDuration = 15 * time.Minute

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// On returns the clock time on the calendar day of day, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// Slot is a preset materialized as a timed event at a fixed time every day.
type Slot struct {
	Title string
	Start ClockTime
	End   ClockTime
}

// DefaultSchedule holds the fixed-time presets.
var DefaultSchedule = []Slot{
	{Title: "Gym", Start: ClockTime{Hour: 7}, End: ClockTime{Hour: 8}},
	{Title: "Eat", Start: ClockTime{Hour: 12}, End: ClockTime{Hour: 13}},
}

// Status is the persistence health shown to the user.
type Status struct {
	Degraded    bool
	Pending     int
	LastError   string
	LastErrorAt time.Time
}

// Option configures a Store.
type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithPrayerSource(src PrayerSource) Option {
	return func(s *Store) { s.prayers = src }
}

func WithOutbox(box Outbox) Option {
	return func(s *Store) { s.outbox = box }
}

func WithSchedule(slots []Slot) Option {
	return func(s *Store) { s.schedule = append([]Slot(nil), slots...) }
}

// WithRetryDelay sets the pause before the single retry of a failed write.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Store) { s.retryDelay = d }
}

// Store is the in-memory source of truth for tasks, events, notes and
// preferences. Every mutation is written through to the repositories and
// serialized by a single mutex; subscribers are notified after the mutex is
// released.
type Store struct {
	repos      Repositories
	prayers    PrayerSource
	outbox     Outbox
	logger     *zap.Logger
	now        func() time.Time
	loc        *time.Location
	schedule   []Slot
	retryDelay time.Duration

	group singleflight.Group

	mu         sync.Mutex
	loaded     bool
	tasks      map[string]model.Task
	events     map[string]model.Event
	notes      map[string]model.DailyNote
	current    *model.DailyNote
	prefs      model.Preferences
	taskIndex  dayIndex
	eventIndex dayIndex
	status     Status
	pending    []Change

	// notesLoaded is set once notes holds every stored note.
	notesLoaded bool

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

func NewStore(repos Repositories, opts ...Option) *Store {
	s := &Store{
		repos:      repos,
		logger:     zap.NewNop(),
		now:        time.Now,
		loc:        time.Local,
		schedule:   append([]Slot(nil), DefaultSchedule...),
		retryDelay: 200 * time.Millisecond,
		tasks:      make(map[string]model.Task),
		events:     make(map[string]model.Event),
		notes:      make(map[string]model.DailyNote),
		prefs:      model.DefaultPreferences(),
		taskIndex:  make(dayIndex),
		eventIndex: make(dayIndex),
		subs:       make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lock() {
	s.mu.Lock()
}

// unlock releases the mutex and then delivers the changes collected under it.
func (s *Store) unlock() {
	changes := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.dispatch(changes)
}

func (s *Store) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *Store) dayStart(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// dayEnd returns the last millisecond of t's day.
func (s *Store) dayEnd(t time.Time) time.Time {
	return s.dayStart(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// Location returns the zone days are computed in.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Now returns the store's current time in its location.
func (s *Store) Now() time.Time {
	return s.clock()
}

// Today returns the start of the current day.
func (s *Store) Today() time.Time {
	return s.dayStart(s.clock())
}

func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Tasks returns all tasks ordered by creation.
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, cloneTask(t))
	}
	sortTasks(out)
	return out
}

// Task returns a single task by ID.
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return cloneTask(t), ok
}

// Events returns all events ordered by start.
func (s *Store) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, cloneEvent(e))
	}
	sortEvents(out)
	return out
}

// Event returns a single event by ID.
func (s *Store) Event(id string) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return cloneEvent(e), ok
}

// EventsOn returns the events starting on the day of t.
func (s *Store) EventsOn(t time.Time) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, end := s.dayStart(t), s.dayEnd(t)
	var out []model.Event
	for _, e := range s.events {
		if !e.Start.Before(start) && !e.Start.After(end) {
			out = append(out, cloneEvent(e))
		}
	}
	sortEvents(out)
	return out
}

// Notes returns the notes held in memory, oldest day first.
func (s *Store) Notes() []model.DailyNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DailyNote, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	sortNotes(out)
	return out
}

// CurrentNote returns the note of the day last requested through LoadNoteByDate
// or SaveNoteForDate, or nil.
func (s *Store) CurrentNote() *model.DailyNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	n := *s.current
	return &n
}

func (s *Store) Preferences() model.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Clone()
}

func (s *Store) Presets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prefs.Presets...)
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// DismissError clears the last reported persistence error. Queued writes stay queued.
func (s *Store) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastError = ""
	s.status.LastErrorAt = time.Time{}
}

func cloneTask(t model.Task) model.Task {
	if t.DueAt != nil {
		due := *t.DueAt
		t.DueAt = &due
	}
	if t.CompletedAt != nil {
		done := *t.CompletedAt
		t.CompletedAt = &done
	}
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	return t
}

func cloneEvent(e model.Event) model.Event {
	if e.End != nil {
		end := *e.End
		e.End = &end
	}
	return e
}

func sortTasks(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func sortEvents(events []model.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
}

func sortNotes(notes []model.DailyNote) {
	sort.Slice(notes, func(i, j int) bool { return notes[i].Date.Before(notes[j].Date) })
}
