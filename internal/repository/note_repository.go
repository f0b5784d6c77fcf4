package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"daybook/internal/model"
)

// NoteRepository handles the diary notes collection.
type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) All(ctx context.Context) ([]model.DailyNote, error) {
	var notes []model.DailyNote
	if err := r.db.WithContext(ctx).Order("date_ms ASC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// ByDate returns the note stored for the day starting at dayStart, or nil when there is none.
func (r *NoteRepository) ByDate(ctx context.Context, dayStart time.Time) (*model.DailyNote, error) {
	var note model.DailyNote
	err := r.db.WithContext(ctx).Where("date_ms = ?", dayStart.UnixMilli()).Order("created_at ASC").First(&note).Error
	switch {
	case err == nil:
		return &note, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find note: %w", err)
	}
}

func (r *NoteRepository) Put(ctx context.Context, note *model.DailyNote) error {
	if err := r.db.WithContext(ctx).Clauses(upsertByID).Create(note).Error; err != nil {
		return fmt.Errorf("put note: %w", err)
	}
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.DailyNote{}).Error; err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
