package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/models"
)

// ScheduleSlotRepository defines persistence operations for recurring
// schedule slots.
type ScheduleSlotRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.ScheduleSlot, error)
	ListByCourses(ctx context.Context, courseIDs []uint) ([]models.ScheduleSlot, error)
	GetByID(ctx context.Context, id uint) (models.ScheduleSlot, error)
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	Update(ctx context.Context, slot *models.ScheduleSlot) error
	Delete(ctx context.Context, id uint) error
}

type scheduleSlotRepository struct {
	db *gorm.DB
}

// NewScheduleSlotRepository instantiates a GORM-backed repository.
func NewScheduleSlotRepository(db *gorm.DB) ScheduleSlotRepository {
	return &scheduleSlotRepository{db: db}
}

// slotOrder keeps listings deterministic: weekday, then start time, then
// insertion order. Calendar resolution depends on this for stable output.
const slotOrder = "weekday ASC, start_time ASC, id ASC"

func (r *scheduleSlotRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.ScheduleSlot, error) {
	var slots []models.ScheduleSlot
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order(slotOrder).
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *scheduleSlotRepository) ListByCourses(ctx context.Context, courseIDs []uint) ([]models.ScheduleSlot, error) {
	if len(courseIDs) == 0 {
		return []models.ScheduleSlot{}, nil
	}

	var slots []models.ScheduleSlot
	if err := r.db.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order(slotOrder).
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *scheduleSlotRepository) GetByID(ctx context.Context, id uint) (models.ScheduleSlot, error) {
	var slot models.ScheduleSlot
	if err := r.db.WithContext(ctx).First(&slot, id).Error; err != nil {
		return models.ScheduleSlot{}, err
	}
	return slot, nil
}

func (r *scheduleSlotRepository) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *scheduleSlotRepository) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	return r.db.WithContext(ctx).Save(slot).Error
}

func (r *scheduleSlotRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ScheduleSlot{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
