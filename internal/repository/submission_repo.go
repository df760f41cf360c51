package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/models"
)

// ErrConflictingWrite indicates a write lost against a concurrent one, e.g.
// two clients racing to submit the same exam. The unique index decides the
// winner; the loser gets this error instead of silently overwriting.
var ErrConflictingWrite = errors.New("conflicting write")

// SubmissionFilter narrows submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
}

// SubmissionRepository defines data operations for exam/quiz submissions.
// Submissions are write-once: there is deliberately no update path.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	CreateOnce(ctx context.Context, submission *models.Submission) error
	Grade(ctx context.Context, id uint, grade float64) (models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// CreateOnce inserts the submission, relying on the unique
// (assignment_id, student_id) index. A duplicate insert, including one racing
// a concurrent client, surfaces as ErrConflictingWrite.
func (r *submissionRepository) CreateOnce(ctx context.Context, submission *models.Submission) error {
	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflictingWrite
		}
		return err
	}
	return nil
}

// Grade sets the final grade on an existing submission. Answers stay
// immutable; only the grade written by a teacher may change.
func (r *submissionRepository) Grade(ctx context.Context, id uint, grade float64) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	submission.Grade = &grade
	if err := r.db.WithContext(ctx).Save(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}
