package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"daybook/internal/model"
)

// EventInput holds the fields of a new calendar event.
type EventInput struct {
	Title  string
	Start  time.Time
	End    *time.Time
	AllDay bool
}

// EventPatch lists the fields UpdateEvent changes. Nil fields are left as they are.
type EventPatch struct {
	Title    *string
	Start    *time.Time
	End      *time.Time
	ClearEnd bool
	AllDay   *bool
}

func (s *Store) AddEvent(ctx context.Context, in EventInput) (model.Event, error) {
	s.lock()
	defer s.unlock()
	return s.addEventLocked(ctx, in)
}

func (s *Store) addEventLocked(ctx context.Context, in EventInput) (model.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Event{}, ErrEmptyTitle
	}
	now := s.clock()
	event := model.Event{
		ID:        uuid.NewString(),
		Title:     title,
		Start:     in.Start.In(s.loc),
		AllDay:    in.AllDay,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.End != nil {
		end := in.End.In(s.loc)
		event.End = &end
	}
	clampEvent(&event)

	if err := s.putEventLocked(ctx, event); err != nil {
		return model.Event{}, err
	}
	s.setEventLocked(event)
	s.emit(ChangeEventAdded, event.ID)
	return cloneEvent(event), nil
}

// MaxTaggedDays bounds a single TagDays range.
const MaxTaggedDays = 366

// TagDays adds an all-day "#tag" event for every tag on every day from the
// day of from through the day of to. Days that already carry a tag keep it.
func (s *Store) TagDays(ctx context.Context, from, to time.Time, tags []string) ([]model.Event, error) {
	var titles []string
	for _, tag := range normalizeTags(tags) {
		if tag = strings.TrimSpace(strings.TrimLeft(tag, "#")); tag != "" {
			titles = append(titles, "#"+tag)
		}
	}
	if len(titles) == 0 {
		return nil, ErrNoTags
	}

	s.lock()
	defer s.unlock()

	first, last := s.dayStart(from), s.dayStart(to)
	if last.Before(first) {
		first, last = last, first
	}
	if last.After(first.AddDate(0, 0, MaxTaggedDays-1)) {
		return nil, NewError(ErrCodeInvalid, fmt.Sprintf("a tag range covers at most %d days", MaxTaggedDays))
	}

	var created []model.Event
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		for _, title := range titles {
			if s.hasAllDayLocked(title, day) {
				continue
			}
			event, err := s.addEventLocked(ctx, EventInput{Title: title, Start: day, AllDay: true})
			if err != nil {
				return created, err
			}
			created = append(created, event)
		}
	}
	return created, nil
}

func (s *Store) hasAllDayLocked(title string, day time.Time) bool {
	for _, e := range s.eventsOnLocked(title, day) {
		if e.AllDay {
			return true
		}
	}
	return false
}

// RemoveEvent deletes an event. Tasks linked to it keep their EventID and
// simply stop mirroring their completion.
func (s *Store) RemoveEvent(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()
	return s.removeEventLocked(ctx, id)
}

func (s *Store) removeEventLocked(ctx context.Context, id string) error {
	if _, ok := s.events[id]; !ok {
		return nil
	}
	if err := s.deleteEventLocked(ctx, id); err != nil {
		return err
	}
	s.dropEventLocked(id)
	s.emit(ChangeEventRemoved, id)
	return nil
}

// UpdateEvent merges patch into the event and bumps UpdatedAt. An unknown id
// is a no-op and returns the zero Event.
func (s *Store) UpdateEvent(ctx context.Context, id string, patch EventPatch) (model.Event, error) {
	s.lock()
	defer s.unlock()
	return s.updateEventLocked(ctx, id, patch)
}

func (s *Store) updateEventLocked(ctx context.Context, id string, patch EventPatch) (model.Event, error) {
	current, ok := s.events[id]
	if !ok {
		return model.Event{}, nil
	}
	event := cloneEvent(current)

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Event{}, ErrEmptyTitle
		}
		event.Title = title
	}
	if patch.Start != nil {
		event.Start = patch.Start.In(s.loc)
	}
	switch {
	case patch.ClearEnd:
		event.End = nil
	case patch.End != nil:
		end := patch.End.In(s.loc)
		event.End = &end
	}
	if patch.AllDay != nil {
		event.AllDay = *patch.AllDay
	}
	clampEvent(&event)
	event.UpdatedAt = s.clock()

	if err := s.putEventLocked(ctx, event); err != nil {
		return model.Event{}, err
	}
	s.setEventLocked(event)
	s.emit(ChangeEventUpdated, event.ID)
	return cloneEvent(event), nil
}

// clampEvent keeps timed events at least MinTimedDuration long.
func clampEvent(e *model.Event) {
	if e.AllDay || e.End == nil {
		return
	}
	if floor := e.Start.Add(MinTimedDuration); e.End.Before(floor) {
		e.End = &floor
	}
}
