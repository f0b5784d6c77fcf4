package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daybook/internal/model"
)

// upsertByID turns an insert into an overwrite when the primary key already exists.
var upsertByID = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	UpdateAll: true,
}

// TaskRepository handles the tasks collection.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) All(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Put inserts the task or overwrites the stored row with the same ID.
func (r *TaskRepository) Put(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Clauses(upsertByID).Create(task).Error; err != nil {
		return fmt.Errorf("put task: %w", err)
	}
	return nil
}

// Delete removes a task; deleting a missing ID is not an error.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
