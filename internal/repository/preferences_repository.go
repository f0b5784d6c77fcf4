package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"daybook/internal/model"
)

const preferencesRowID = 1

// PreferencesRepository stores the singleton settings row.
type PreferencesRepository struct {
	db *gorm.DB
}

func NewPreferencesRepository(db *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Load returns the saved preferences, or nil when nothing was saved yet.
func (r *PreferencesRepository) Load(ctx context.Context) (*model.Preferences, error) {
	var prefs model.Preferences
	err := r.db.WithContext(ctx).First(&prefs, preferencesRowID).Error
	switch {
	case err == nil:
		return &prefs, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("load preferences: %w", err)
	}
}

func (r *PreferencesRepository) Save(ctx context.Context, prefs *model.Preferences) error {
	prefs.ID = preferencesRowID
	if err := r.db.WithContext(ctx).Clauses(upsertByID).Create(prefs).Error; err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
