package service

import (
	"sort"

	"go.uber.org/zap"
)

// ChangeKind names what a committed mutation touched.
type ChangeKind string

const (
	ChangeLoaded               ChangeKind = "loaded"
	ChangeReconciled           ChangeKind = "reconciled"
	ChangeTaskAdded            ChangeKind = "task_added"
	ChangeTaskUpdated          ChangeKind = "task_updated"
	ChangeTaskRemoved          ChangeKind = "task_removed"
	ChangeEventAdded           ChangeKind = "event_added"
	ChangeEventUpdated         ChangeKind = "event_updated"
	ChangeEventRemoved         ChangeKind = "event_removed"
	ChangeNoteSaved            ChangeKind = "note_saved"
	ChangeNoteRemoved          ChangeKind = "note_removed"
	ChangePreferences          ChangeKind = "preferences"
	ChangePersistenceDegraded  ChangeKind = "persistence_degraded"
	ChangePersistenceRecovered ChangeKind = "persistence_recovered"
)

// Change is delivered to subscribers after the mutation that produced it is committed.
type Change struct {
	Kind ChangeKind
	ID   string
	Err  error
}

// Subscribe registers fn for every future change and returns a function that
// removes the registration. fn runs on the goroutine that made the mutation,
// after the store lock is released, so it may read from the store.
func (s *Store) Subscribe(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(kind ChangeKind, id string) {
	s.pending = append(s.pending, Change{Kind: kind, ID: id})
}

func (s *Store) emitErr(kind ChangeKind, err error) {
	s.pending = append(s.pending, Change{Kind: kind, Err: err})
}

func (s *Store) dispatch(changes []Change) {
	if len(changes) == 0 {
		return
	}
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	subs := make([]func(Change), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subMu.Unlock()

	for _, c := range changes {
		for _, fn := range subs {
			s.notify(fn, c)
		}
	}
}

func (s *Store) notify(fn func(Change), c Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked", zap.String("change", string(c.Kind)), zap.Any("panic", r))
		}
	}()
	fn(c)
}
