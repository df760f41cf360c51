package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
	"github.com/ecolehub/cartable-api/internal/timetable"
)

const calendarDateLayout = "2006-01-02"

var (
	// ErrSlotNotFound indicates the requested schedule slot does not exist.
	ErrSlotNotFound = errors.New("schedule slot not found")
	// ErrNotOccurring indicates the named date does not fall on the slot's
	// weekday, so there is no occurrence to cancel.
	ErrNotOccurring = errors.New("slot does not occur on that date")
)

// ScheduleService manages recurring slots and resolves calendar windows.
type ScheduleService interface {
	ListByCourse(ctx context.Context, courseID uint) ([]dto.SlotResponse, error)
	Create(ctx context.Context, actor Actor, courseID uint, payload dto.SlotCreateRequest) (dto.SlotSaveResponse, error)
	Update(ctx context.Context, actor Actor, slotID uint, payload dto.SlotUpdateRequest) (dto.SlotSaveResponse, error)
	Delete(ctx context.Context, actor Actor, slotID uint) error
	CancelOccurrence(ctx context.Context, actor Actor, slotID uint, payload dto.CancelOccurrenceRequest) (dto.SlotResponse, error)
	RestoreOccurrence(ctx context.Context, actor Actor, slotID uint) (dto.SlotResponse, error)
	Calendar(ctx context.Context, actor Actor, start, end string) ([]dto.CalendarEntryResponse, error)
}

type scheduleService struct {
	slots     repository.ScheduleSlotRepository
	courses   repository.CourseRepository
	activity  ActivityRecorder
	notifier  Notifier
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScheduleService builds a new schedule service.
func NewScheduleService(slots repository.ScheduleSlotRepository, courses repository.CourseRepository, activity ActivityRecorder, notifier Notifier, validate *validator.Validate, logger zerolog.Logger) ScheduleService {
	return &scheduleService{
		slots:     slots,
		courses:   courses,
		activity:  activity,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "schedule_service").Logger(),
	}
}

func (s *scheduleService) ListByCourse(ctx context.Context, courseID uint) ([]dto.SlotResponse, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	slots, err := s.slots.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewSlotResponseSlice(slots), nil
}

func (s *scheduleService) Create(ctx context.Context, actor Actor, courseID uint, payload dto.SlotCreateRequest) (dto.SlotSaveResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SlotSaveResponse{}, err
	}

	course, err := s.ownedCourse(ctx, actor, courseID)
	if err != nil {
		return dto.SlotSaveResponse{}, err
	}

	slot := models.ScheduleSlot{
		CourseID:  course.ID,
		Weekday:   payload.Weekday,
		StartTime: payload.StartTime,
		EndTime:   payload.EndTime,
		Room:      payload.Room,
	}

	candidate, err := s.validateSlot(slot)
	if err != nil {
		return dto.SlotSaveResponse{}, err
	}

	warnings, err := s.overlapWarnings(ctx, course.ID, 0, candidate)
	if err != nil {
		return dto.SlotSaveResponse{}, err
	}

	if err := s.slots.Create(ctx, &slot); err != nil {
		return dto.SlotSaveResponse{}, err
	}

	s.recordScheduleChange(ctx, actor, models.ActionScheduleEdited, slot, "slot created")
	s.logger.Info().Uint("slot_id", slot.ID).Uint("course_id", course.ID).Msg("schedule slot created")

	return dto.SlotSaveResponse{Slot: dto.NewSlotResponse(slot), Warnings: warnings}, nil
}

func (s *scheduleService) Update(ctx context.Context, actor Actor, slotID uint, payload dto.SlotUpdateRequest) (dto.SlotSaveResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SlotSaveResponse{}, err
	}

	slot, err := s.ownedSlot(ctx, actor, slotID)
	if err != nil {
		return dto.SlotSaveResponse{}, err
	}

	if payload.Weekday != nil && *payload.Weekday != slot.Weekday {
		slot.Weekday = *payload.Weekday
		// A new weekday invalidates a pending single-date cancellation.
		slot.Cancelled = false
		slot.CancelledOn = nil
	}
	if payload.StartTime != nil {
		slot.StartTime = *payload.StartTime
	}
	if payload.EndTime != nil {
		slot.EndTime = *payload.EndTime
	}
	if payload.Room != nil {
		slot.Room = *payload.Room
	}

	candidate, err := s.validateSlot(slot)
	if err != nil {
		return dto.SlotSaveResponse{}, err
	}

	warnings, err := s.overlapWarnings(ctx, slot.CourseID, slot.ID, candidate)
	if err != nil {
		return dto.SlotSaveResponse{}, err
	}

	if err := s.slots.Update(ctx, &slot); err != nil {
		return dto.SlotSaveResponse{}, err
	}

	s.recordScheduleChange(ctx, actor, models.ActionScheduleEdited, slot, "slot updated")
	s.logger.Info().Uint("slot_id", slot.ID).Msg("schedule slot updated")

	return dto.SlotSaveResponse{Slot: dto.NewSlotResponse(slot), Warnings: warnings}, nil
}

func (s *scheduleService) Delete(ctx context.Context, actor Actor, slotID uint) error {
	slot, err := s.ownedSlot(ctx, actor, slotID)
	if err != nil {
		return err
	}

	if err := s.slots.Delete(ctx, slotID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		return err
	}

	s.recordScheduleChange(ctx, actor, models.ActionScheduleEdited, slot, "slot deleted")
	s.logger.Info().Uint("slot_id", slotID).Msg("schedule slot deleted")
	return nil
}

// CancelOccurrence calls off one calendar date of a recurring slot. Other
// weeks are unaffected; cancelling a second date replaces the first.
func (s *scheduleService) CancelOccurrence(ctx context.Context, actor Actor, slotID uint, payload dto.CancelOccurrenceRequest) (dto.SlotResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SlotResponse{}, err
	}

	slot, err := s.ownedSlot(ctx, actor, slotID)
	if err != nil {
		return dto.SlotResponse{}, err
	}

	date, err := time.Parse(calendarDateLayout, payload.Date)
	if err != nil {
		return dto.SlotResponse{}, fmt.Errorf("invalid date: %w", err)
	}

	candidate, err := slot.Timetable()
	if err != nil {
		return dto.SlotResponse{}, err
	}
	if !timetable.Occurs(candidate, date) {
		return dto.SlotResponse{}, ErrNotOccurring
	}

	slot.Cancelled = true
	slot.CancelledOn = &date

	if err := s.slots.Update(ctx, &slot); err != nil {
		return dto.SlotResponse{}, err
	}

	s.recordScheduleChange(ctx, actor, models.ActionSlotCancelled, slot, payload.Date)
	s.notifyCancellation(ctx, slot, date)
	s.logger.Info().Uint("slot_id", slot.ID).Str("date", payload.Date).Msg("occurrence cancelled")

	return dto.NewSlotResponse(slot), nil
}

// RestoreOccurrence clears a pending cancellation so the slot runs normally
// again on every date.
func (s *scheduleService) RestoreOccurrence(ctx context.Context, actor Actor, slotID uint) (dto.SlotResponse, error) {
	slot, err := s.ownedSlot(ctx, actor, slotID)
	if err != nil {
		return dto.SlotResponse{}, err
	}

	slot.Cancelled = false
	slot.CancelledOn = nil

	if err := s.slots.Update(ctx, &slot); err != nil {
		return dto.SlotResponse{}, err
	}

	s.recordScheduleChange(ctx, actor, models.ActionSlotRestored, slot, "")
	s.logger.Info().Uint("slot_id", slot.ID).Msg("occurrence restored")

	return dto.NewSlotResponse(slot), nil
}

// Calendar resolves every occurrence in the inclusive date window for the
// courses visible to the actor, ordered by date then start time.
func (s *scheduleService) Calendar(ctx context.Context, actor Actor, start, end string) ([]dto.CalendarEntryResponse, error) {
	startDate, err := time.Parse(calendarDateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	endDate, err := time.Parse(calendarDateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}

	var courses []models.Course
	switch actor.Role {
	case models.RoleStudent:
		courses, err = s.courses.ListByStudent(ctx, actor.ID)
	case models.RoleTeacher:
		courses, err = s.courses.ListByTeacher(ctx, actor.ID)
	default:
		courses, err = s.courses.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	courseNames := make(map[uint]string, len(courses))
	courseIDs := make([]uint, 0, len(courses))
	for _, course := range courses {
		courseNames[course.ID] = course.Name
		courseIDs = append(courseIDs, course.ID)
	}

	rows, err := s.slots.ListByCourses(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	candidates := make([]timetable.Slot, 0, len(rows))
	sources := make([]models.ScheduleSlot, 0, len(rows))
	for _, row := range rows {
		candidate, err := row.Timetable()
		if err != nil {
			s.logger.Warn().Err(err).Uint("slot_id", row.ID).Msg("skipping malformed slot")
			continue
		}
		candidates = append(candidates, candidate)
		sources = append(sources, row)
	}

	occurrences, err := timetable.OccurrencesInRange(candidates, startDate, endDate)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.CalendarEntryResponse, 0, len(occurrences))
	for _, occurrence := range occurrences {
		source := sources[occurrence.SlotIndex]
		entries = append(entries, dto.CalendarEntryResponse{
			Date:       occurrence.Date.Format(calendarDateLayout),
			SlotID:     source.ID,
			CourseID:   source.CourseID,
			CourseName: courseNames[source.CourseID],
			StartTime:  source.StartTime,
			EndTime:    source.EndTime,
			Room:       source.Room,
			State:      occurrence.State.String(),
		})
	}

	return entries, nil
}

// validateSlot converts the row to its pure form, which parses the clock
// strings and checks the weekday, ordering, and room constraints.
func (s *scheduleService) validateSlot(slot models.ScheduleSlot) (timetable.Slot, error) {
	candidate, err := slot.Timetable()
	if err != nil {
		return timetable.Slot{}, err
	}
	if err := candidate.Validate(); err != nil {
		return timetable.Slot{}, err
	}
	return candidate, nil
}

// overlapWarnings compares the candidate against the course's other slots.
// Overlaps are advisory: the caller surfaces them, the save goes through.
func (s *scheduleService) overlapWarnings(ctx context.Context, courseID, excludeID uint, candidate timetable.Slot) ([]dto.ConflictWarning, error) {
	existing, err := s.slots.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var warnings []dto.ConflictWarning
	for _, row := range existing {
		if row.ID == excludeID {
			continue
		}
		other, err := row.Timetable()
		if err != nil {
			continue
		}
		if timetable.Overlaps(candidate, other) {
			warnings = append(warnings, dto.NewConflictWarning(row))
		}
	}

	return warnings, nil
}

func (s *scheduleService) ownedSlot(ctx context.Context, actor Actor, slotID uint) (models.ScheduleSlot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ScheduleSlot{}, ErrSlotNotFound
		}
		return models.ScheduleSlot{}, err
	}

	if _, err := s.ownedCourse(ctx, actor, slot.CourseID); err != nil {
		return models.ScheduleSlot{}, err
	}

	return slot, nil
}

func (s *scheduleService) ownedCourse(ctx context.Context, actor Actor, courseID uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}

	if !actor.IsAdmin() && course.TeacherID != actor.ID {
		return models.Course{}, ErrNotCourseTeacher
	}

	return course, nil
}

func (s *scheduleService) recordScheduleChange(ctx context.Context, actor Actor, action string, slot models.ScheduleSlot, detail string) {
	if s.activity == nil {
		return
	}

	slotID := slot.ID
	metadata := map[string]interface{}{
		"course_id": slot.CourseID,
		"weekday":   slot.Weekday,
		"start":     slot.StartTime,
		"end":       slot.EndTime,
	}
	if detail != "" {
		metadata["detail"] = detail
	}

	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "schedule_slot",
		EntityID:   &slotID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record schedule change")
	}
}

func (s *scheduleService) notifyCancellation(ctx context.Context, slot models.ScheduleSlot, date time.Time) {
	if s.notifier == nil {
		return
	}

	course, err := s.courses.GetByID(ctx, slot.CourseID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("course_id", slot.CourseID).Msg("failed to load course for cancellation notice")
		return
	}

	message := fmt.Sprintf("%s on %s (%s-%s) is cancelled", course.Name, date.Format(calendarDateLayout), slot.StartTime, slot.EndTime)
	for _, student := range course.Students {
		if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:  student.ID,
			Type:    models.NotificationOccurrenceCancelled,
			Message: message,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("user_id", student.ID).Msg("failed to publish cancellation notice")
		}
	}
}
