package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"daybook/internal/model"
	"daybook/internal/outbox"
)

// write is one pending change to a persistent collection.
type write struct {
	entity    string
	operation string
	id        string
	value     any
	apply     func(ctx context.Context) error
}

// persistLocked pushes w to the repositories. A failed write is retried once
// after the retry delay and then queued in the outbox. While the outbox holds
// anything, new writes queue behind it so replay keeps their order. The error
// is returned only when the write could be neither stored nor queued; callers
// must leave memory untouched in that case.
func (s *Store) persistLocked(ctx context.Context, w write) error {
	if s.outbox != nil && s.status.Pending > 0 {
		return s.enqueueLocked(w, nil)
	}

	err := s.try(ctx, w.apply)
	if err == nil {
		return nil
	}
	s.logger.Warn("write failed, queueing",
		zap.String("entity", w.entity),
		zap.String("operation", w.operation),
		zap.String("id", w.id),
		zap.Error(err))
	return s.enqueueLocked(w, err)
}

// try runs fn and, when it fails, runs it again after the retry delay.
func (s *Store) try(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if s.retryDelay > 0 {
		timer := time.NewTimer(s.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return fn(ctx)
}

func (s *Store) enqueueLocked(w write, cause error) error {
	if s.outbox == nil {
		return s.failLocked(w, cause)
	}

	item := outbox.Item{
		Entity:    w.entity,
		Operation: w.operation,
		EntityID:  w.id,
		Timestamp: s.clock(),
	}
	if w.operation == outbox.OperationPut {
		data, err := json.Marshal(w.value)
		if err != nil {
			return s.failLocked(w, err)
		}
		item.Data = data
	}
	if err := s.outbox.Enqueue(item); err != nil {
		s.logger.Error("outbox enqueue failed", zap.String("entity", w.entity), zap.String("id", w.id), zap.Error(err))
		if cause == nil {
			cause = err
		}
		return s.failLocked(w, cause)
	}

	s.status.Pending++
	if !s.status.Degraded {
		s.status.Degraded = true
		s.noteErrorLocked(cause)
		s.emitErr(ChangePersistenceDegraded, cause)
	}
	return nil
}

func (s *Store) failLocked(w write, cause error) error {
	err := WrapError(ErrCodeStorage, fmt.Sprintf("%s %s %s", w.operation, w.entity, w.id), cause)
	s.noteErrorLocked(err)
	s.emitErr(ChangePersistenceDegraded, err)
	return err
}

func (s *Store) noteErrorLocked(err error) {
	if err == nil {
		return
	}
	s.status.LastError = err.Error()
	s.status.LastErrorAt = s.clock()
}

func (s *Store) putTaskLocked(ctx context.Context, t model.Task) error {
	return s.persistLocked(ctx, write{
		entity:    outbox.EntityTask,
		operation: outbox.OperationPut,
		id:        t.ID,
		value:     t,
		apply:     func(ctx context.Context) error { return s.repos.Tasks.Put(ctx, &t) },
	})
}

func (s *Store) deleteTaskLocked(ctx context.Context, id string) error {
	return s.persistLocked(ctx, write{
		entity:    outbox.EntityTask,
		operation: outbox.OperationDelete,
		id:        id,
		apply:     func(ctx context.Context) error { return s.repos.Tasks.Delete(ctx, id) },
	})
}

func (s *Store) putEventLocked(ctx context.Context, e model.Event) error {
	return s.persistLocked(ctx, write{
		entity:    outbox.EntityEvent,
		operation: outbox.OperationPut,
		id:        e.ID,
		value:     e,
		apply:     func(ctx context.Context) error { return s.repos.Events.Put(ctx, &e) },
	})
}

func (s *Store) deleteEventLocked(ctx context.Context, id string) error {
	return s.persistLocked(ctx, write{
		entity:    outbox.EntityEvent,
		operation: outbox.OperationDelete,
		id:        id,
		apply:     func(ctx context.Context) error { return s.repos.Events.Delete(ctx, id) },
	})
}

func (s *Store) putNoteLocked(ctx context.Context, n model.DailyNote) error {
	return s.persistLocked(ctx, write{
		entity:    outbox.EntityNote,
		operation: outbox.OperationPut,
		id:        n.ID,
		value:     n,
		apply:     func(ctx context.Context) error { return s.repos.Notes.Put(ctx, &n) },
	})
}

func (s *Store) deleteNoteLocked(ctx context.Context, id string) error {
	return s.persistLocked(ctx, write{
		entity:    outbox.EntityNote,
		operation: outbox.OperationDelete,
		id:        id,
		apply:     func(ctx context.Context) error { return s.repos.Notes.Delete(ctx, id) },
	})
}

func (s *Store) savePreferencesLocked(ctx context.Context, p model.Preferences) error {
	return s.persistLocked(ctx, write{
		entity:    outbox.EntityPreferences,
		operation: outbox.OperationPut,
		id:        "preferences",
		value:     p,
		apply:     func(ctx context.Context) error { return s.repos.Preferences.Save(ctx, &p) },
	})
}

// applyItem replays a queued write against the repositories.
func (s *Store) applyItem(ctx context.Context, item outbox.Item) error {
	switch item.Entity {
	case outbox.EntityTask:
		if item.Operation == outbox.OperationDelete {
			return s.repos.Tasks.Delete(ctx, item.EntityID)
		}
		var task model.Task
		if err := json.Unmarshal(item.Data, &task); err != nil {
			return fmt.Errorf("decode task: %w", err)
		}
		return s.repos.Tasks.Put(ctx, &task)

	case outbox.EntityEvent:
		if item.Operation == outbox.OperationDelete {
			return s.repos.Events.Delete(ctx, item.EntityID)
		}
		var event model.Event
		if err := json.Unmarshal(item.Data, &event); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return s.repos.Events.Put(ctx, &event)

	case outbox.EntityNote:
		if item.Operation == outbox.OperationDelete {
			return s.repos.Notes.Delete(ctx, item.EntityID)
		}
		var note model.DailyNote
		if err := json.Unmarshal(item.Data, &note); err != nil {
			return fmt.Errorf("decode note: %w", err)
		}
		return s.repos.Notes.Put(ctx, &note)

	case outbox.EntityPreferences:
		var prefs model.Preferences
		if err := json.Unmarshal(item.Data, &prefs); err != nil {
			return fmt.Errorf("decode preferences: %w", err)
		}
		return s.repos.Preferences.Save(ctx, &prefs)

	default:
		return fmt.Errorf("unsupported entity %s", item.Entity)
	}
}
