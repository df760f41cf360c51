package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/models"
)

// CourseRepository defines persistence operations for courses and
// enrollments.
type CourseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Course, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Course, error)
	GetByID(ctx context.Context, id uint) (models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error
	Enroll(ctx context.Context, courseID uint, student models.User) error
	Unenroll(ctx context.Context, courseID, studentID uint) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Course{}).
		Preload("Teacher").
		Preload("Students").
		Preload("Slots")
}

func (r *courseRepository) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.baseQuery(ctx).Order("name ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Course, error) {
	var courses []models.Course
	if err := r.baseQuery(ctx).Where("teacher_id = ?", teacherID).Order("name ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Course, error) {
	var courses []models.Course
	if err := r.baseQuery(ctx).
		Joins("JOIN course_enrollments ON course_enrollments.course_id = courses.id").
		Where("course_enrollments.user_id = ?", studentID).
		Order("name ASC").
		Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.baseQuery(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Select("Slots").Delete(&models.Course{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepository) Enroll(ctx context.Context, courseID uint, student models.User) error {
	return r.db.WithContext(ctx).
		Model(&models.Course{ID: courseID}).
		Association("Students").
		Append(&student)
}

func (r *courseRepository) Unenroll(ctx context.Context, courseID, studentID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Course{ID: courseID}).
		Association("Students").
		Delete(&models.User{ID: studentID})
}
