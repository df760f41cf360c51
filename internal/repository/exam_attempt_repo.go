package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/models"
)

// ExamAttemptRepository persists exam start records. Attempts are write-once
// per (assignment, student), same discipline as submissions.
type ExamAttemptRepository interface {
	Get(ctx context.Context, assignmentID, studentID uint) (models.ExamAttempt, error)
	CreateOnce(ctx context.Context, attempt *models.ExamAttempt) error
}

type examAttemptRepository struct {
	db *gorm.DB
}

// NewExamAttemptRepository instantiates the repository.
func NewExamAttemptRepository(db *gorm.DB) ExamAttemptRepository {
	return &examAttemptRepository{db: db}
}

func (r *examAttemptRepository) Get(ctx context.Context, assignmentID, studentID uint) (models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&attempt).Error; err != nil {
		return models.ExamAttempt{}, err
	}
	return attempt, nil
}

func (r *examAttemptRepository) CreateOnce(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflictingWrite
		}
		return err
	}
	return nil
}
