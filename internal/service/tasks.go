package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"daybook/internal/model"
)

// MaxStreak bounds how far back a streak is counted.
const MaxStreak = 365

// TaskInput holds the user-editable fields of a new task.
type TaskInput struct {
	Title    string
	Notes    string
	DueAt    *time.Time
	Priority model.Priority
	Tags     []string
}

// Window is a timed slot on the calendar.
type Window struct {
	Start time.Time
	End   time.Time
}

// clamped returns the window with End moved to at least Start+MinTimedDuration.
func (w Window) clamped() Window {
	if floor := w.Start.Add(MinTimedDuration); w.End.Before(floor) {
		w.End = floor
	}
	return w
}

// AddTask creates a task and the all-day event linked to it on the due day,
// or on today when the task has no due date.
func (s *Store) AddTask(ctx context.Context, in TaskInput) (model.Task, error) {
	s.lock()
	defer s.unlock()
	return s.addTaskLocked(ctx, in)
}

func (s *Store) addTaskLocked(ctx context.Context, in TaskInput) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	if !in.Priority.Valid() {
		return model.Task{}, ErrInvalidPriority
	}

	now := s.clock()
	anchor := now
	var due *time.Time
	if in.DueAt != nil {
		d := in.DueAt.In(s.loc)
		due = &d
		anchor = d
	}

	event := model.Event{
		ID:        uuid.NewString(),
		Title:     title,
		Start:     s.dayStart(anchor),
		AllDay:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.putEventLocked(ctx, event); err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Notes:     strings.TrimSpace(in.Notes),
		DueAt:     due,
		Priority:  in.Priority,
		Tags:      normalizeTags(in.Tags),
		EventID:   event.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.putTaskLocked(ctx, task); err != nil {
		s.discardEventLocked(ctx, event.ID)
		return model.Task{}, err
	}
	s.setEventLocked(event)
	s.emit(ChangeEventAdded, event.ID)
	s.setTaskLocked(task)
	s.emit(ChangeTaskAdded, task.ID)
	return cloneTask(task), nil
}

// discardEventLocked deletes a stored event whose task could not be written.
func (s *Store) discardEventLocked(ctx context.Context, id string) {
	if err := s.deleteEventLocked(ctx, id); err != nil {
		s.logger.Warn("event left without its task", zap.String("event_id", id), zap.Error(err))
	}
}

// PlanTask adds a task and, when window is set, swaps its all-day event for a
// timed one covering the window. With repeatWeeks > 0 the same task is planned
// again on each of the following weeks.
func (s *Store) PlanTask(ctx context.Context, in TaskInput, window *Window, repeatWeeks int) ([]model.Task, error) {
	s.lock()
	defer s.unlock()

	if window != nil {
		start := window.Start
		in.DueAt = &start
	}
	if repeatWeeks > 0 && in.DueAt == nil {
		today := s.dayStart(s.clock())
		in.DueAt = &today
	}

	var planned []model.Task
	for week := 0; week <= repeatWeeks; week++ {
		next := in
		if in.DueAt != nil {
			due := in.DueAt.In(s.loc).AddDate(0, 0, 7*week)
			next.DueAt = &due
		}
		task, err := s.addTaskLocked(ctx, next)
		if err != nil {
			return planned, err
		}
		if window != nil {
			w := Window{
				Start: window.Start.In(s.loc).AddDate(0, 0, 7*week),
				End:   window.End.In(s.loc).AddDate(0, 0, 7*week),
			}
			task, err = s.timeTaskLocked(ctx, task, w.clamped())
			if err != nil {
				return append(planned, task), err
			}
		}
		planned = append(planned, task)
	}
	return planned, nil
}

// timeTaskLocked replaces the task's linked event with a timed event over w.
// Memory follows each write only after it is stored or queued.
func (s *Store) timeTaskLocked(ctx context.Context, task model.Task, w Window) (model.Task, error) {
	now := s.clock()
	end := w.End
	event := model.Event{
		ID:        uuid.NewString(),
		Title:     model.MarkedTitle(task.Title, task.IsCompleted()),
		Start:     w.Start,
		End:       &end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.putEventLocked(ctx, event); err != nil {
		return task, err
	}

	timed := task
	timed.EventID = event.ID
	timed.UpdatedAt = now
	if err := s.putTaskLocked(ctx, timed); err != nil {
		s.discardEventLocked(ctx, event.ID)
		return task, err
	}
	s.setEventLocked(event)
	s.emit(ChangeEventAdded, event.ID)
	s.setTaskLocked(timed)
	s.emit(ChangeTaskUpdated, timed.ID)

	if old, ok := s.events[task.EventID]; ok {
		if err := s.deleteEventLocked(ctx, old.ID); err != nil {
			return cloneTask(timed), err
		}
		s.dropEventLocked(old.ID)
		s.emit(ChangeEventRemoved, old.ID)
	}
	return cloneTask(timed), nil
}

// ToggleTask flips the completion of a task and mirrors it onto the linked
// event title. An unknown id is a no-op and returns the zero Task.
func (s *Store) ToggleTask(ctx context.Context, id string) (model.Task, error) {
	s.lock()
	defer s.unlock()

	task, ok := s.tasks[id]
	if !ok {
		return model.Task{}, nil
	}
	task = cloneTask(task)

	now := s.clock()
	if task.IsCompleted() {
		task.CompletedAt = nil
	} else {
		done := now
		if done.Before(task.CreatedAt) {
			done = task.CreatedAt
		}
		task.CompletedAt = &done
	}
	task.UpdatedAt = now
	if err := s.putTaskLocked(ctx, task); err != nil {
		return model.Task{}, err
	}
	s.setTaskLocked(task)
	s.emit(ChangeTaskUpdated, task.ID)

	if event, ok := s.linkedEventLocked(task); ok {
		title := model.MarkedTitle(event.Title, task.IsCompleted())
		if title != event.Title {
			event.Title = title
			event.UpdatedAt = now
			if err := s.putEventLocked(ctx, event); err != nil {
				return cloneTask(task), err
			}
			s.setEventLocked(event)
			s.emit(ChangeEventUpdated, event.ID)
		}
	}
	return cloneTask(task), nil
}

// linkedEventLocked resolves the event a task is reflected on. Linked tasks
// use their EventID only; unlinked rows fall back to the first event with the
// same base title on the task's day.
func (s *Store) linkedEventLocked(task model.Task) (model.Event, bool) {
	if task.EventID != "" {
		event, ok := s.events[task.EventID]
		return cloneEvent(event), ok
	}
	day := task.CreatedAt
	if task.DueAt != nil {
		day = *task.DueAt
	}
	candidates := s.eventsOnLocked(task.Title, day)
	if len(candidates) == 0 {
		return model.Event{}, false
	}
	if len(candidates) > 1 {
		s.logger.Debug("ambiguous event match, using the oldest",
			zap.String("task_id", task.ID),
			zap.String("title", task.Title),
			zap.Int("candidates", len(candidates)))
	}
	return cloneEvent(candidates[0]), true
}

// RemoveTask deletes a task. Its event stays on the calendar.
func (s *Store) RemoveTask(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.tasks[id]; !ok {
		return nil
	}
	if err := s.deleteTaskLocked(ctx, id); err != nil {
		return err
	}
	s.dropTaskLocked(id)
	s.emit(ChangeTaskRemoved, id)
	return nil
}

// TodayTasks returns the tasks due today, oldest first.
func (s *Store) TodayTasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.dayStart(s.clock())
	end := s.dayEnd(start)
	var out []model.Task
	for _, t := range s.tasks {
		if t.DueWithin(start, end) {
			out = append(out, cloneTask(t))
		}
	}
	sortTasks(out)
	return out
}

// TodayPresetTasks returns today's tasks generated from presets, including
// the prayers when the prayer preset is configured.
func (s *Store) TodayPresetTasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := s.presetTitlesLocked()
	start := s.dayStart(s.clock())
	end := s.dayEnd(start)
	var out []model.Task
	for _, t := range s.tasks {
		if titles[t.Title] && t.DueWithin(start, end) {
			out = append(out, cloneTask(t))
		}
	}
	sortTasks(out)
	return out
}

// OtherTasks returns every task not listed by TodayPresetTasks.
func (s *Store) OtherTasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := s.presetTitlesLocked()
	start := s.dayStart(s.clock())
	end := s.dayEnd(start)
	var out []model.Task
	for _, t := range s.tasks {
		if !(titles[t.Title] && t.DueWithin(start, end)) {
			out = append(out, cloneTask(t))
		}
	}
	sortTasks(out)
	return out
}

func (s *Store) presetTitlesLocked() map[string]bool {
	titles := make(map[string]bool, len(s.prefs.Presets)+5)
	for _, p := range s.prefs.Presets {
		if p == PrayPreset {
			for _, name := range prayerTitles {
				titles[name] = true
			}
			continue
		}
		titles[p] = true
	}
	return titles
}

// Streak counts consecutive days, ending today, with a completed task titled title.
func (s *Store) Streak(title string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streakLocked(title)
}

// Streaks returns the streak of every configured preset.
func (s *Store) Streaks() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.prefs.Presets))
	for _, p := range s.prefs.Presets {
		out[p] = s.streakLocked(p)
	}
	return out
}

func (s *Store) streakLocked(title string) int {
	day := s.dayStart(s.clock())
	streak := 0
	for streak < MaxStreak {
		done := false
		for _, t := range s.tasksOnLocked(title, day) {
			if t.IsCompleted() {
				done = true
				break
			}
		}
		if !done {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
