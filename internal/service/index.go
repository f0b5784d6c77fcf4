package service

import (
	"sort"
	"time"

	"daybook/internal/model"
)

type dayKey struct {
	title string
	day   int64
}

// dayIndex maps a title on a given day to the IDs carrying it.
type dayIndex map[dayKey][]string

func (ix dayIndex) add(key dayKey, id string) {
	for _, existing := range ix[key] {
		if existing == id {
			return
		}
	}
	ix[key] = append(ix[key], id)
}

func (ix dayIndex) remove(key dayKey, id string) {
	ids := ix[key]
	for i, existing := range ids {
		if existing == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(ix, key)
		return
	}
	ix[key] = ids
}

func (ix dayIndex) get(key dayKey) []string {
	return ix[key]
}

func (s *Store) keyFor(title string, t time.Time) dayKey {
	return dayKey{title: title, day: s.dayStart(t).UnixMilli()}
}

// Tasks without a due date are not indexed; reconciliation only looks for dated ones.
func (s *Store) taskKey(t model.Task) (dayKey, bool) {
	if t.DueAt == nil {
		return dayKey{}, false
	}
	return s.keyFor(t.Title, *t.DueAt), true
}

func (s *Store) eventKey(e model.Event) dayKey {
	return s.keyFor(model.BaseTitle(e.Title), e.Start)
}

func (s *Store) setTaskLocked(t model.Task) {
	if old, ok := s.tasks[t.ID]; ok {
		if key, ok := s.taskKey(old); ok {
			s.taskIndex.remove(key, old.ID)
		}
	}
	s.tasks[t.ID] = t
	if key, ok := s.taskKey(t); ok {
		s.taskIndex.add(key, t.ID)
	}
}

func (s *Store) dropTaskLocked(id string) {
	old, ok := s.tasks[id]
	if !ok {
		return
	}
	if key, ok := s.taskKey(old); ok {
		s.taskIndex.remove(key, id)
	}
	delete(s.tasks, id)
}

func (s *Store) setEventLocked(e model.Event) {
	if old, ok := s.events[e.ID]; ok {
		s.eventIndex.remove(s.eventKey(old), old.ID)
	}
	s.events[e.ID] = e
	s.eventIndex.add(s.eventKey(e), e.ID)
}

func (s *Store) dropEventLocked(id string) {
	old, ok := s.events[id]
	if !ok {
		return
	}
	s.eventIndex.remove(s.eventKey(old), id)
	delete(s.events, id)
}

// tasksOnLocked returns the tasks titled title due on day, oldest first.
func (s *Store) tasksOnLocked(title string, day time.Time) []model.Task {
	ids := s.taskIndex.get(s.keyFor(title, day))
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tasks[id])
	}
	sortTasks(out)
	return out
}

// eventsOnLocked returns the events whose base title is title starting on day,
// oldest first.
func (s *Store) eventsOnLocked(title string, day time.Time) []model.Event {
	ids := s.eventIndex.get(s.keyFor(title, day))
	out := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.events[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) resetLocked() {
	s.tasks = make(map[string]model.Task)
	s.events = make(map[string]model.Event)
	s.taskIndex = make(dayIndex)
	s.eventIndex = make(dayIndex)
}
