package service

import (
	"context"
	"testing"
	"time"
)

func TestSaveNoteForDateUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.store.SaveNoteForDate(ctx, at(8, 30), "slept well")
	if err != nil {
		t.Fatalf("SaveNoteForDate failed: %v", err)
	}
	if !first.Date.Equal(at(0, 0)) {
		t.Errorf("Date = %v, want start of day", first.Date)
	}

	f.clock.Advance(time.Hour)
	second, err := f.store.SaveNoteForDate(ctx, at(22, 0), "slept well, ran 5k")
	if err != nil {
		t.Fatalf("second SaveNoteForDate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed from %q to %q", first.ID, second.ID)
	}
	if second.Content != "slept well, ran 5k" || !second.UpdatedAt.After(first.UpdatedAt) || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("second = %+v", second)
	}

	stored, err := f.repos.Notes.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || stored[0].Content != second.Content {
		t.Errorf("stored notes = %+v", stored)
	}
	if cur := f.store.CurrentNote(); cur == nil || cur.ID != first.ID {
		t.Errorf("CurrentNote = %+v", cur)
	}
}

func TestLoadNoteByDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note, err := f.store.LoadNoteByDate(ctx, at(12, 0))
	if err != nil || note != nil {
		t.Fatalf("LoadNoteByDate on empty store = %+v, %v", note, err)
	}
	if f.store.CurrentNote() != nil {
		t.Error("CurrentNote should be nil")
	}

	saved, err := f.store.SaveNoteForDate(ctx, at(0, 0), "hello")
	if err != nil {
		t.Fatal(err)
	}

	// A new session sees the note through the indexed lookup.
	restarted := newFixtureWith(t, f.dir, f.repos)
	note, err = restarted.store.LoadNoteByDate(ctx, at(23, 59).UTC())
	if err != nil {
		t.Fatal(err)
	}
	if note == nil || note.ID != saved.ID || note.Content != "hello" {
		t.Fatalf("LoadNoteByDate = %+v", note)
	}
	if cur := restarted.store.CurrentNote(); cur == nil || cur.ID != saved.ID {
		t.Errorf("CurrentNote = %+v", cur)
	}

	next, err := restarted.store.LoadNoteByDate(ctx, at(0, 0).AddDate(0, 0, 1))
	if err != nil || next != nil {
		t.Errorf("next day = %+v, %v", next, err)
	}
	if restarted.store.CurrentNote() != nil {
		t.Error("CurrentNote should follow the last requested day")
	}
}

func TestLoadNotesAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.store.SaveNoteForDate(ctx, at(9, 0).AddDate(0, 0, -i), "day"); err != nil {
			t.Fatal(err)
		}
	}

	restarted := newFixtureWith(t, f.dir, f.repos)
	notes, err := restarted.store.LoadNotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 3 || len(restarted.store.Notes()) != 3 {
		t.Fatalf("LoadNotes = %d notes", len(notes))
	}
	ordered := restarted.store.Notes()
	if !ordered[0].Date.Before(ordered[2].Date) {
		t.Error("Notes should be oldest first")
	}

	if err := restarted.store.DeleteNoteByID(ctx, ordered[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := restarted.store.DeleteNoteByID(ctx, "missing"); err != nil {
		t.Errorf("deleting a missing note = %v", err)
	}
	stored, _ := f.repos.Notes.All(ctx)
	if len(stored) != 2 || len(restarted.store.Notes()) != 2 {
		t.Errorf("after delete: stored %d, memory %d", len(stored), len(restarted.store.Notes()))
	}
}

func TestQueuedNoteSurvivesLoadNotes(t *testing.T) {
	f := newFixture(t, WithOutbox(openOutbox(t, t.TempDir())))
	ctx := context.Background()
	f.load(t)

	f.notes.set(true, false)
	first, err := f.store.SaveNoteForDate(ctx, at(8, 0), "first")
	if err != nil {
		t.Fatalf("SaveNoteForDate should queue, got %v", err)
	}
	if _, err := f.store.LoadNotes(ctx); err != nil {
		t.Fatal(err)
	}
	if notes := f.store.Notes(); len(notes) != 1 || notes[0].ID != first.ID {
		t.Fatalf("queued note lost by LoadNotes: %+v", notes)
	}

	second, err := f.store.SaveNoteForDate(ctx, at(20, 0), "second")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("same day got a new note: %q then %q", first.ID, second.ID)
	}

	f.notes.set(false, false)
	if err := NewOutboxProcessor(f.store, nil, ProcessorConfig{}).Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	stored, _ := f.repos.Notes.All(ctx)
	if len(stored) != 1 || stored[0].Content != "second" {
		t.Errorf("stored notes = %+v, want one note with the last content", stored)
	}
}

func TestNoteLookupFailureUsesLoadedNotes(t *testing.T) {
	f := newFixture(t, WithOutbox(openOutbox(t, t.TempDir())))
	ctx := context.Background()
	morning, err := f.store.SaveNoteForDate(ctx, at(8, 0), "morning")
	if err != nil {
		t.Fatal(err)
	}

	restarted := newFixtureWith(t, f.dir, f.repos, WithOutbox(openOutbox(t, t.TempDir())))
	restarted.load(t)
	restarted.notes.set(true, true)
	evening, err := restarted.store.SaveNoteForDate(ctx, at(20, 0), "evening")
	if err != nil {
		t.Fatalf("SaveNoteForDate should queue, got %v", err)
	}
	if evening.ID != morning.ID {
		t.Errorf("lookup failure created a second note: %q vs %q", evening.ID, morning.ID)
	}

	restarted.notes.set(false, false)
	if err := NewOutboxProcessor(restarted.store, nil, ProcessorConfig{}).Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	stored, _ := f.repos.Notes.All(ctx)
	if len(stored) != 1 || stored[0].Content != "evening" {
		t.Errorf("stored notes = %+v", stored)
	}
}

func TestNoteLookupFailureBeforeLoadIsAnError(t *testing.T) {
	f := newFixture(t, WithOutbox(openOutbox(t, t.TempDir())))
	f.notes.set(false, true)

	_, err := f.store.SaveNoteForDate(context.Background(), at(8, 0), "blind write")
	if !IsError(err, ErrCodeStorage) {
		t.Fatalf("err = %v, want STORAGE", err)
	}
	if n := len(f.store.Notes()); n != 0 {
		t.Errorf("notes in memory = %d, want 0", n)
	}
	if size, _ := f.store.outbox.Size(); size != 0 {
		t.Errorf("outbox size = %d, want nothing queued", size)
	}
}
