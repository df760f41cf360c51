package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/timetable"
)

func newScheduleFixture(t *testing.T) (*memoryCourseRepo, *memorySlotRepo, *stubNotifier, *stubRecorder, ScheduleService) {
	t.Helper()
	courses := newMemoryCourseRepo()
	slots := newMemorySlotRepo()
	notifier := &stubNotifier{}
	recorder := &stubRecorder{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewScheduleService(slots, courses, recorder, notifier, validate, testLogger())
	return courses, slots, notifier, recorder, svc
}

func seedCourseWithTeacher(t *testing.T, courses *memoryCourseRepo, teacherID uint, students ...models.User) models.Course {
	t.Helper()
	course := models.Course{Name: "Mathematics", TeacherID: teacherID, Students: students}
	require.NoError(t, courses.Create(context.Background(), &course))
	return course
}

func TestScheduleServiceCreateSlot(t *testing.T) {
	courses, _, _, recorder, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7)

	result, err := svc.Create(context.Background(), Actor{ID: 7, Role: models.RoleTeacher}, course.ID, dto.SlotCreateRequest{
		Weekday:   3,
		StartTime: "09:45",
		EndTime:   "11:15",
		Room:      "Room 101",
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Slot.Weekday)
	require.Equal(t, "Wednesday", result.Slot.WeekdayName)
	require.Empty(t, result.Warnings)
	require.Len(t, recorder.entries, 1)
	require.Equal(t, models.ActionScheduleEdited, recorder.entries[0].Action)
}

func TestScheduleServiceCreateRejectsInvalidTimes(t *testing.T) {
	courses, _, _, _, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7)
	actor := Actor{ID: 7, Role: models.RoleTeacher}

	_, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday:   3,
		StartTime: "11:15",
		EndTime:   "09:45",
	})
	require.ErrorIs(t, err, timetable.ErrInvalidSlot)

	_, err = svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday:   3,
		StartTime: "25:00",
		EndTime:   "26:00",
	})
	require.Error(t, err)
}

func TestScheduleServiceCreateWarnsOnOverlap(t *testing.T) {
	courses, _, _, _, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7)
	actor := Actor{ID: 7, Role: models.RoleTeacher}

	_, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 2, StartTime: "08:00", EndTime: "09:30", Room: "Room 101",
	})
	require.NoError(t, err)

	// Overlapping on the same weekday: saved, but flagged.
	result, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 2, StartTime: "09:00", EndTime: "10:30", Room: "Room 102",
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, "08:00", result.Warnings[0].StartTime)

	// Back to back is not an overlap.
	result, err = svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 2, StartTime: "10:30", EndTime: "12:00",
	})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
}

func TestScheduleServiceForbidsForeignCourse(t *testing.T) {
	courses, _, _, _, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7)

	_, err := svc.Create(context.Background(), Actor{ID: 8, Role: models.RoleTeacher}, course.ID, dto.SlotCreateRequest{
		Weekday: 1, StartTime: "08:00", EndTime: "09:30",
	})
	require.ErrorIs(t, err, ErrNotCourseTeacher)
}

func TestScheduleServiceCancelOccurrence(t *testing.T) {
	student := models.User{ID: 21, Name: "Student", Role: models.RoleStudent}
	courses, slots, notifier, recorder, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7, student)
	actor := Actor{ID: 7, Role: models.RoleTeacher}

	created, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 3, StartTime: "09:45", EndTime: "11:15",
	})
	require.NoError(t, err)

	// 2024-03-06 is a Wednesday.
	result, err := svc.CancelOccurrence(context.Background(), actor, created.Slot.ID, dto.CancelOccurrenceRequest{Date: "2024-03-06"})
	require.NoError(t, err)
	require.True(t, result.Cancelled)
	require.NotNil(t, result.CancelledOn)
	require.Equal(t, "2024-03-06", *result.CancelledOn)

	require.Len(t, notifier.published, 1)
	require.Equal(t, student.ID, notifier.published[0].UserID)
	require.Equal(t, models.NotificationOccurrenceCancelled, notifier.published[0].Type)
	require.Equal(t, models.ActionSlotCancelled, recorder.entries[len(recorder.entries)-1].Action)

	// 2024-03-07 is a Thursday: the slot never occurs there.
	_, err = svc.CancelOccurrence(context.Background(), actor, created.Slot.ID, dto.CancelOccurrenceRequest{Date: "2024-03-07"})
	require.ErrorIs(t, err, ErrNotOccurring)

	stored, err := slots.GetByID(context.Background(), created.Slot.ID)
	require.NoError(t, err)
	require.True(t, stored.Cancelled)
}

func TestScheduleServiceRestoreOccurrence(t *testing.T) {
	courses, _, _, _, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7)
	actor := Actor{ID: 7, Role: models.RoleTeacher}

	created, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 3, StartTime: "09:45", EndTime: "11:15",
	})
	require.NoError(t, err)

	_, err = svc.CancelOccurrence(context.Background(), actor, created.Slot.ID, dto.CancelOccurrenceRequest{Date: "2024-03-06"})
	require.NoError(t, err)

	restored, err := svc.RestoreOccurrence(context.Background(), actor, created.Slot.ID)
	require.NoError(t, err)
	require.False(t, restored.Cancelled)
	require.Nil(t, restored.CancelledOn)
}

func TestScheduleServiceCalendarResolvesCancellation(t *testing.T) {
	student := models.User{ID: 21, Role: models.RoleStudent}
	courses, _, _, _, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7, student)
	actor := Actor{ID: 7, Role: models.RoleTeacher}

	created, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 3, StartTime: "09:45", EndTime: "11:15", Room: "Room 101",
	})
	require.NoError(t, err)

	_, err = svc.CancelOccurrence(context.Background(), actor, created.Slot.ID, dto.CancelOccurrenceRequest{Date: "2024-03-06"})
	require.NoError(t, err)

	entries, err := svc.Calendar(context.Background(), Actor{ID: student.ID, Role: models.RoleStudent}, "2024-03-04", "2024-03-17")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// The cancelled week stays visible in its cancelled state; the next
	// week runs normally.
	require.Equal(t, "2024-03-06", entries[0].Date)
	require.Equal(t, "cancelled", entries[0].State)
	require.Equal(t, "2024-03-13", entries[1].Date)
	require.Equal(t, "scheduled", entries[1].State)
	require.Equal(t, course.Name, entries[0].CourseName)
}

func TestScheduleServiceCalendarOrdersWithinDay(t *testing.T) {
	courses, _, _, _, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7)
	actor := Actor{ID: 7, Role: models.RoleTeacher}

	_, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 1, StartTime: "13:15", EndTime: "14:45",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 1, StartTime: "08:00", EndTime: "09:30",
	})
	require.NoError(t, err)

	// 2024-03-04 is a Monday.
	entries, err := svc.Calendar(context.Background(), actor, "2024-03-04", "2024-03-04")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "08:00", entries[0].StartTime)
	require.Equal(t, "13:15", entries[1].StartTime)
}

func TestScheduleServiceCalendarInvalidRange(t *testing.T) {
	courses, _, _, _, svc := newScheduleFixture(t)
	seedCourseWithTeacher(t, courses, 7)

	_, err := svc.Calendar(context.Background(), Actor{ID: 7, Role: models.RoleTeacher}, "2024-03-10", "2024-03-04")
	require.ErrorIs(t, err, timetable.ErrInvalidRange)
}

func TestScheduleServiceUpdateWeekdayClearsCancellation(t *testing.T) {
	courses, _, _, _, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7)
	actor := Actor{ID: 7, Role: models.RoleTeacher}

	created, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 3, StartTime: "09:45", EndTime: "11:15",
	})
	require.NoError(t, err)

	_, err = svc.CancelOccurrence(context.Background(), actor, created.Slot.ID, dto.CancelOccurrenceRequest{Date: "2024-03-06"})
	require.NoError(t, err)

	weekday := 4
	updated, err := svc.Update(context.Background(), actor, created.Slot.ID, dto.SlotUpdateRequest{Weekday: &weekday})
	require.NoError(t, err)
	require.Equal(t, 4, updated.Slot.Weekday)
	require.False(t, updated.Slot.Cancelled)
	require.Nil(t, updated.Slot.CancelledOn)
}

func TestScheduleServiceCalendarSkipsCoursesOfOthers(t *testing.T) {
	courses, _, _, _, svc := newScheduleFixture(t)
	mine := seedCourseWithTeacher(t, courses, 7)
	other := models.Course{Name: "History", TeacherID: 8}
	require.NoError(t, courses.Create(context.Background(), &other))

	actor := Actor{ID: 7, Role: models.RoleTeacher}
	_, err := svc.Create(context.Background(), actor, mine.ID, dto.SlotCreateRequest{
		Weekday: 1, StartTime: "08:00", EndTime: "09:30",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Actor{ID: 8, Role: models.RoleTeacher}, other.ID, dto.SlotCreateRequest{
		Weekday: 1, StartTime: "09:45", EndTime: "11:15",
	})
	require.NoError(t, err)

	entries, err := svc.Calendar(context.Background(), actor, "2024-03-04", "2024-03-04")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, mine.ID, entries[0].CourseID)
}

func TestScheduleServiceCancelledDateIgnoresTimeOfDay(t *testing.T) {
	courses, slots, _, _, svc := newScheduleFixture(t)
	course := seedCourseWithTeacher(t, courses, 7)
	actor := Actor{ID: 7, Role: models.RoleTeacher}

	created, err := svc.Create(context.Background(), actor, course.ID, dto.SlotCreateRequest{
		Weekday: 3, StartTime: "09:45", EndTime: "11:15",
	})
	require.NoError(t, err)

	// Store the cancellation with a non-midnight timestamp; resolution
	// compares calendar dates only.
	slot, err := slots.GetByID(context.Background(), created.Slot.ID)
	require.NoError(t, err)
	cancelledOn := time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)
	slot.Cancelled = true
	slot.CancelledOn = &cancelledOn
	require.NoError(t, slots.Update(context.Background(), &slot))

	entries, err := svc.Calendar(context.Background(), actor, "2024-03-06", "2024-03-06")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "cancelled", entries[0].State)
}
