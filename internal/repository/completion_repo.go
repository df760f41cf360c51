package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/models"
)

// CompletionRepository tracks per-student homework done flags.
type CompletionRepository interface {
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Completion, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Completion, error)
	SetDone(ctx context.Context, assignmentID, studentID uint, done bool) (models.Completion, error)
}

type completionRepository struct {
	db *gorm.DB
}

// NewCompletionRepository instantiates the repository.
func NewCompletionRepository(db *gorm.DB) CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Completion, error) {
	var completions []models.Completion
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Find(&completions).Error; err != nil {
		return nil, err
	}
	return completions, nil
}

func (r *completionRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Completion, error) {
	var completions []models.Completion
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Find(&completions).Error; err != nil {
		return nil, err
	}
	return completions, nil
}

// SetDone upserts the (assignment, student) row with the new flag.
func (r *completionRepository) SetDone(ctx context.Context, assignmentID, studentID uint, done bool) (models.Completion, error) {
	var completion models.Completion
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&completion).Error

	switch {
	case err == nil:
		completion.Done = done
		if err := r.db.WithContext(ctx).Save(&completion).Error; err != nil {
			return models.Completion{}, err
		}
		return completion, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		completion = models.Completion{AssignmentID: assignmentID, StudentID: studentID, Done: done}
		if err := r.db.WithContext(ctx).Create(&completion).Error; err != nil {
			return models.Completion{}, err
		}
		return completion, nil
	default:
		return models.Completion{}, err
	}
}
