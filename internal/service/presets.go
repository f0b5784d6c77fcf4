package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"daybook/internal/model"
	"daybook/internal/prayer"
)

// AddPreset appends a preset. An exact duplicate is a no-op.
func (s *Store) AddPreset(ctx context.Context, title string) error {
	s.lock()
	defer s.unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	for _, p := range s.prefs.Presets {
		if p == title {
			return nil
		}
	}
	next := s.prefs.Clone()
	next.Presets = append(next.Presets, title)
	return s.commitPreferencesLocked(ctx, next)
}

// RemovePreset drops a preset. Tasks already generated from it stay.
func (s *Store) RemovePreset(ctx context.Context, title string) error {
	s.lock()
	defer s.unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	next := s.prefs.Clone()
	kept := next.Presets[:0]
	for _, p := range next.Presets {
		if p != title {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(s.prefs.Presets) {
		return nil
	}
	next.Presets = kept
	return s.commitPreferencesLocked(ctx, next)
}

// ReorderPresets moves the preset at index from to index to. Out of range
// indexes are a no-op.
func (s *Store) ReorderPresets(ctx context.Context, from, to int) error {
	s.lock()
	defer s.unlock()

	n := len(s.prefs.Presets)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return nil
	}
	next := s.prefs.Clone()
	moved := next.Presets[from]
	next.Presets = append(next.Presets[:from], next.Presets[from+1:]...)
	next.Presets = append(next.Presets[:to], append([]string{moved}, next.Presets[to:]...)...)
	return s.commitPreferencesLocked(ctx, next)
}

// SetPrayerMethod stores the calculation method and moves today's prayers.
func (s *Store) SetPrayerMethod(ctx context.Context, method string) error {
	m, err := prayer.ParseMethod(method)
	if err != nil {
		return WrapError(ErrCodeInvalid, "prayer method", err)
	}

	s.lock()
	defer s.unlock()
	next := s.prefs.Clone()
	next.PrayerMethod = string(m)
	if err := s.commitPreferencesLocked(ctx, next); err != nil {
		return err
	}
	s.refreshPrayersLocked(ctx)
	return nil
}

// SetPrayerMadhab stores the asr convention and moves today's prayers.
func (s *Store) SetPrayerMadhab(ctx context.Context, madhab string) error {
	h, err := prayer.ParseMadhab(madhab)
	if err != nil {
		return WrapError(ErrCodeInvalid, "prayer madhab", err)
	}

	s.lock()
	defer s.unlock()
	next := s.prefs.Clone()
	next.PrayerMadhab = string(h)
	if err := s.commitPreferencesLocked(ctx, next); err != nil {
		return err
	}
	s.refreshPrayersLocked(ctx)
	return nil
}

func (s *Store) refreshPrayersLocked(ctx context.Context) {
	if !s.loaded {
		return
	}
	if err := s.recomputePrayersLocked(ctx); err != nil {
		s.logger.Warn("prayer recompute failed", zap.Error(err))
	}
}

func (s *Store) commitPreferencesLocked(ctx context.Context, next model.Preferences) error {
	next.ID = 1
	if err := s.savePreferencesLocked(ctx, next); err != nil {
		return err
	}
	s.prefs = next
	s.emit(ChangePreferences, "")
	return nil
}

func (s *Store) hasPresetLocked(title string) bool {
	for _, p := range s.prefs.Presets {
		if p == title {
			return true
		}
	}
	return false
}
