package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daybook/internal/model"
)

// EventRepository handles the calendar events collection.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) All(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := r.db.WithContext(ctx).Order("starts_at ASC, created_at ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) Put(ctx context.Context, event *model.Event) error {
	if err := r.db.WithContext(ctx).Clauses(upsertByID).Create(event).Error; err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Event{}).Error; err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
