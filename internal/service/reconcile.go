package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"daybook/internal/model"
	"daybook/internal/outbox"
	"daybook/internal/prayer"
)

var prayerTitles = prayer.Names

var errNoPrayerSource = errors.New("no prayer source configured")

// Load reads the stored tasks, events, notes and preferences into memory and then
// reconciles today. Concurrent callers share a single run.
func (s *Store) Load(ctx context.Context) error {
	_, err, _ := s.group.Do("load", func() (any, error) {
		return nil, s.load(ctx)
	})
	return err
}

func (s *Store) load(ctx context.Context) error {
	s.lock()
	defer s.unlock()

	var (
		tasks  []model.Task
		events []model.Event
		notes  []model.DailyNote
		prefs  *model.Preferences
	)
	err := s.try(ctx, func(ctx context.Context) error {
		var err error
		if tasks, err = s.repos.Tasks.All(ctx); err != nil {
			return err
		}
		if events, err = s.repos.Events.All(ctx); err != nil {
			return err
		}
		if notes, err = s.repos.Notes.All(ctx); err != nil {
			return err
		}
		prefs, err = s.repos.Preferences.Load(ctx)
		return err
	})
	if err != nil {
		err = WrapError(ErrCodeStorage, "load store", err)
		s.noteErrorLocked(err)
		return err
	}

	s.resetLocked()
	sortTasks(tasks)
	for _, t := range tasks {
		s.setTaskLocked(t)
	}
	for _, e := range events {
		s.setEventLocked(e)
	}
	s.notes = make(map[string]model.DailyNote, len(notes))
	for _, n := range notes {
		s.notes[n.ID] = n
	}
	s.notesLoaded = true
	s.prefs = model.DefaultPreferences()
	if prefs != nil {
		s.prefs = prefs.Clone()
		s.prefs.ID = 1
		if s.prefs.PrayerMethod == "" {
			s.prefs.PrayerMethod = model.DefaultPrayerMethod
		}
		if s.prefs.PrayerMadhab == "" {
			s.prefs.PrayerMadhab = model.DefaultPrayerMadhab
		}
	}
	s.overlayOutboxLocked()

	s.loaded = true
	s.emit(ChangeLoaded, "")
	s.logger.Info("store loaded",
		zap.Int("tasks", len(s.tasks)),
		zap.Int("events", len(s.events)),
		zap.Int("notes", len(s.notes)),
		zap.Int("pending", s.status.Pending))

	return s.reconcileLocked(ctx)
}

// overlayOutboxLocked applies queued writes on top of what the database
// returned, since they are newer.
func (s *Store) overlayOutboxLocked() {
	if s.outbox == nil {
		return
	}
	size, err := s.outbox.Size()
	if err != nil {
		s.logger.Warn("outbox size failed", zap.Error(err))
		return
	}
	s.status.Pending = size
	s.status.Degraded = size > 0
	for _, item := range s.queuedLocked() {
		if err := s.overlayItemLocked(item); err != nil {
			s.logger.Warn("skipping queued write", zap.String("item_id", item.ID), zap.Error(err))
		}
	}
}

// queuedLocked returns every write still waiting in the outbox, oldest first.
func (s *Store) queuedLocked() []outbox.Item {
	if s.outbox == nil || s.status.Pending == 0 {
		return nil
	}
	items, err := s.outbox.Batch(s.status.Pending)
	if err != nil {
		s.logger.Warn("outbox read failed", zap.Error(err))
		return nil
	}
	return items
}

func (s *Store) overlayItemLocked(item outbox.Item) error {
	del := item.Operation == outbox.OperationDelete
	switch item.Entity {
	case outbox.EntityTask:
		if del {
			s.dropTaskLocked(item.EntityID)
			return nil
		}
		var t model.Task
		if err := json.Unmarshal(item.Data, &t); err != nil {
			return err
		}
		s.setTaskLocked(t)
	case outbox.EntityEvent:
		if del {
			s.dropEventLocked(item.EntityID)
			return nil
		}
		var e model.Event
		if err := json.Unmarshal(item.Data, &e); err != nil {
			return err
		}
		s.setEventLocked(e)
	case outbox.EntityNote:
		if del {
			delete(s.notes, item.EntityID)
			return nil
		}
		var n model.DailyNote
		if err := json.Unmarshal(item.Data, &n); err != nil {
			return err
		}
		s.notes[n.ID] = n
	case outbox.EntityPreferences:
		var p model.Preferences
		if err := json.Unmarshal(item.Data, &p); err != nil {
			return err
		}
		p.ID = 1
		s.prefs = p
	}
	return nil
}

// Reconcile makes sure today's preset tasks and timed events exist.
// Concurrent callers share a single run.
func (s *Store) Reconcile(ctx context.Context) error {
	_, err, _ := s.group.Do("reconcile", func() (any, error) {
		s.lock()
		defer s.unlock()
		if !s.loaded {
			return nil, NewError(ErrCodeUnavailable, "store not loaded")
		}
		return nil, s.reconcileLocked(ctx)
	})
	return err
}

func (s *Store) reconcileLocked(ctx context.Context) error {
	today := s.dayStart(s.clock())

	slots := make(map[string]Slot, len(s.schedule))
	for _, slot := range s.schedule {
		slots[slot.Title] = slot
	}

	presets := append([]string(nil), s.prefs.Presets...)
	for _, title := range presets {
		if title == PrayPreset {
			continue
		}
		if slot, ok := slots[title]; ok {
			w := Window{Start: slot.Start.On(today), End: slot.End.On(today)}
			if err := s.ensureTimedLocked(ctx, title, w); err != nil {
				return err
			}
			continue
		}
		if err := s.ensureTaskLocked(ctx, title, today); err != nil {
			return err
		}
	}

	if s.hasPresetLocked(PrayPreset) {
		if err := s.ensurePrayersLocked(ctx, today); err != nil {
			var sErr *Error
			if errors.As(err, &sErr) && sErr.Code == ErrCodeStorage {
				return err
			}
			s.logger.Warn("skipping prayer events", zap.Time("day", today), zap.Error(err))
		}
	}

	s.emit(ChangeReconciled, "")
	return nil
}

// RecomputeTodayPrayers moves today's prayer events to the times given by the
// current preferences, creating any that are missing.
func (s *Store) RecomputeTodayPrayers(ctx context.Context) error {
	s.lock()
	defer s.unlock()
	return s.recomputePrayersLocked(ctx)
}

func (s *Store) recomputePrayersLocked(ctx context.Context) error {
	if !s.hasPresetLocked(PrayPreset) {
		return nil
	}
	return s.ensurePrayersLocked(ctx, s.dayStart(s.clock()))
}

func (s *Store) ensurePrayersLocked(ctx context.Context, day time.Time) error {
	if s.prayers == nil {
		return errNoPrayerSource
	}
	method, err := prayer.ParseMethod(s.prefs.PrayerMethod)
	if err != nil {
		return err
	}
	madhab, err := prayer.ParseMadhab(s.prefs.PrayerMadhab)
	if err != nil {
		return err
	}
	times, err := s.prayers.TimesFor(day, method, madhab)
	if err != nil {
		return err
	}
	for _, p := range times.Prayers() {
		at := p.At.In(s.loc)
		if err := s.ensureTimedLocked(ctx, p.Name, Window{Start: at, End: at.Add(PrayerDuration)}); err != nil {
			return err
		}
	}
	return nil
}

// ensureTaskLocked adds a task titled title due at day unless one exists.
func (s *Store) ensureTaskLocked(ctx context.Context, title string, day time.Time) error {
	if len(s.tasksOnLocked(title, day)) > 0 {
		return nil
	}
	_, err := s.addTaskLocked(ctx, TaskInput{Title: title, DueAt: &day})
	return err
}

// ensureTimedLocked makes sure title has a task and a timed event over w on
// w's day. An existing timed event is moved in place, all-day variants are
// replaced, and the task is relinked to the timed event.
func (s *Store) ensureTimedLocked(ctx context.Context, title string, w Window) error {
	day := s.dayStart(w.Start)

	var task model.Task
	if existing := s.tasksOnLocked(title, day); len(existing) > 0 {
		task = cloneTask(existing[0])
	} else {
		created, err := s.addTaskLocked(ctx, TaskInput{Title: title, DueAt: &w.Start})
		if err != nil {
			return err
		}
		task = created
	}

	var timed *model.Event
	var allDay []model.Event
	for _, e := range s.eventsOnLocked(title, day) {
		if e.AllDay {
			allDay = append(allDay, e)
			continue
		}
		if timed == nil || e.ID == task.EventID {
			found := cloneEvent(e)
			timed = &found
		}
	}

	for _, e := range allDay {
		if err := s.removeEventLocked(ctx, e.ID); err != nil {
			return err
		}
	}

	now := s.clock()
	if timed == nil {
		end := w.End
		event := model.Event{
			ID:        uuid.NewString(),
			Title:     model.MarkedTitle(title, task.IsCompleted()),
			Start:     w.Start,
			End:       &end,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.putEventLocked(ctx, event); err != nil {
			return err
		}
		s.setEventLocked(event)
		s.emit(ChangeEventAdded, event.ID)
		timed = &event
	} else if !timed.Start.Equal(w.Start) || timed.End == nil || !timed.End.Equal(w.End) {
		start, end := w.Start, w.End
		if _, err := s.updateEventLocked(ctx, timed.ID, EventPatch{Start: &start, End: &end}); err != nil {
			return err
		}
	}

	if task.EventID == timed.ID && task.DueAt != nil && task.DueAt.Equal(w.Start) {
		return nil
	}
	due := w.Start
	task.EventID = timed.ID
	task.DueAt = &due
	task.UpdatedAt = now
	if err := s.putTaskLocked(ctx, task); err != nil {
		return err
	}
	s.setTaskLocked(task)
	s.emit(ChangeTaskUpdated, task.ID)
	return nil
}
