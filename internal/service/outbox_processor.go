package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ProcessorConfig controls how the outbox is drained.
type ProcessorConfig struct {
	BatchSize  int
	MaxRetries int
}

// OutboxProcessor replays queued writes into the repositories.
type OutboxProcessor struct {
	store  *Store
	logger *zap.Logger
	cfg    ProcessorConfig
}

func NewOutboxProcessor(store *Store, logger *zap.Logger, cfg ProcessorConfig) *OutboxProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{store: store, logger: logger, cfg: cfg}
}

// Drain replays queued writes oldest first under the store lock. It stops at
// the first write that still fails so later writes never overtake it; a write
// that has failed MaxRetries times is dropped.
func (p *OutboxProcessor) Drain(ctx context.Context) error {
	if p == nil || p.store == nil || p.store.outbox == nil {
		return nil
	}
	s := p.store
	s.lock()
	defer s.unlock()

	box := s.outbox
	wasPending := s.status.Pending > 0
	var drainErr error

	for drainErr == nil {
		items, err := box.Batch(p.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				drainErr = err
				break
			}
			if err := s.applyItem(ctx, item); err != nil {
				if item.Retries+1 >= p.cfg.MaxRetries {
					p.logger.Warn("dropping queued write (max retries reached)",
						zap.String("item_id", item.ID),
						zap.String("entity", item.Entity),
						zap.String("entity_id", item.EntityID),
						zap.Error(err))
					if rmErr := box.Remove(item); rmErr != nil {
						return rmErr
					}
					s.noteErrorLocked(err)
					continue
				}
				if rtErr := box.Retry(item); rtErr != nil {
					p.logger.Error("failed to record retry", zap.String("item_id", item.ID), zap.Error(rtErr))
				}
				p.logger.Debug("queued write still failing",
					zap.String("item_id", item.ID),
					zap.Int("retries", item.Retries+1),
					zap.Error(err))
				drainErr = err
				break
			}
			if err := box.Remove(item); err != nil {
				return err
			}
		}
	}

	size, err := box.Size()
	if err != nil {
		return errors.Join(drainErr, err)
	}
	s.status.Pending = size
	if size == 0 && wasPending {
		s.status.Degraded = false
		s.emit(ChangePersistenceRecovered, "")
		p.logger.Info("outbox drained")
	}
	if drainErr != nil && !errors.Is(drainErr, context.Canceled) && !errors.Is(drainErr, context.DeadlineExceeded) {
		return WrapError(ErrCodeStorage, "outbox replay", drainErr)
	}
	return drainErr
}

// Pending returns the number of queued writes.
func (p *OutboxProcessor) Pending() int {
	if p == nil || p.store == nil {
		return 0
	}
	return p.store.Status().Pending
}
