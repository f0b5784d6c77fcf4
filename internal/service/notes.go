package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"daybook/internal/model"
	"daybook/internal/outbox"
)

// LoadNotes replaces the in-memory notes with the stored ones, keeping the
// note writes still waiting in the outbox.
func (s *Store) LoadNotes(ctx context.Context) ([]model.DailyNote, error) {
	s.lock()
	defer s.unlock()

	var notes []model.DailyNote
	err := s.try(ctx, func(ctx context.Context) error {
		var err error
		notes, err = s.repos.Notes.All(ctx)
		return err
	})
	if err != nil {
		err = WrapError(ErrCodeStorage, "load notes", err)
		s.noteErrorLocked(err)
		return nil, err
	}

	s.notes = make(map[string]model.DailyNote, len(notes))
	for _, n := range notes {
		s.notes[n.ID] = n
	}
	for _, item := range s.queuedLocked() {
		if item.Entity != outbox.EntityNote {
			continue
		}
		if err := s.overlayItemLocked(item); err != nil {
			s.logger.Warn("skipping queued note", zap.String("item_id", item.ID), zap.Error(err))
		}
	}
	s.notesLoaded = true

	out := make([]model.DailyNote, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	sortNotes(out)
	return out, nil
}

// LoadNoteByDate fetches the note of date's day and makes it the current note.
// It returns nil when the day has no note.
func (s *Store) LoadNoteByDate(ctx context.Context, date time.Time) (*model.DailyNote, error) {
	s.lock()
	defer s.unlock()

	note, err := s.noteByDateLocked(ctx, s.dayStart(date))
	if err != nil {
		return nil, err
	}
	s.current = note
	if note == nil {
		return nil, nil
	}
	s.notes[note.ID] = *note
	n := *note
	return &n, nil
}

// SaveNoteForDate writes content as the note of date's day, updating the
// existing note of that day when there is one.
func (s *Store) SaveNoteForDate(ctx context.Context, date time.Time, content string) (model.DailyNote, error) {
	s.lock()
	defer s.unlock()

	day := s.dayStart(date)
	existing, err := s.noteByDateLocked(ctx, day)
	if err != nil {
		// Memory can stand in for the lookup only when it holds every note.
		if !s.notesLoaded {
			s.noteErrorLocked(err)
			return model.DailyNote{}, err
		}
		s.logger.Warn("note lookup failed, using memory", zap.Time("date", day), zap.Error(err))
		existing = s.memoryNoteLocked(day)
	}

	now := s.clock()
	var note model.DailyNote
	if existing != nil {
		note = *existing
		note.Content = content
		note.UpdatedAt = now
	} else {
		note = model.DailyNote{
			ID:        uuid.NewString(),
			Date:      day,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	note.DateMs = day.UnixMilli()

	if err := s.putNoteLocked(ctx, note); err != nil {
		return model.DailyNote{}, err
	}
	s.notes[note.ID] = note
	current := note
	s.current = &current
	s.emit(ChangeNoteSaved, note.ID)
	return note, nil
}

// DeleteNoteByID removes a note. Deleting a missing note is not an error.
func (s *Store) DeleteNoteByID(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	if err := s.deleteNoteLocked(ctx, id); err != nil {
		return err
	}
	delete(s.notes, id)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.emit(ChangeNoteRemoved, id)
	return nil
}

func (s *Store) noteByDateLocked(ctx context.Context, day time.Time) (*model.DailyNote, error) {
	if s.outbox != nil && s.status.Pending > 0 {
		// Queued writes are newer than the database.
		if n := s.memoryNoteLocked(day); n != nil {
			return n, nil
		}
	}
	var note *model.DailyNote
	err := s.try(ctx, func(ctx context.Context) error {
		var err error
		note, err = s.repos.Notes.ByDate(ctx, day)
		return err
	})
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "load note", err)
	}
	return note, nil
}

func (s *Store) memoryNoteLocked(day time.Time) *model.DailyNote {
	for _, n := range s.notes {
		if n.Date.Equal(day) {
			found := n
			return &found
		}
	}
	return nil
}
