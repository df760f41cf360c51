package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type memoryUserRepo struct {
	users  map[uint]models.User
	nextID uint
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uint]models.User), nextID: 1}
}

func (m *memoryUserRepo) List(_ context.Context, filter repository.UserFilter) ([]models.User, int64, error) {
	var results []models.User
	for _, user := range m.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(user.Name), search) && !strings.Contains(strings.ToLower(user.Email), search) {
				continue
			}
		}
		results = append(results, user)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, int64(len(results)), nil
}

func (m *memoryUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range m.users {
		if user.Email == strings.ToLower(strings.TrimSpace(email)) {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = m.nextID
	m.users[m.nextID] = *user
	m.nextID++
	return nil
}

func (m *memoryUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

type memoryCourseRepo struct {
	courses map[uint]models.Course
	nextID  uint
}

func newMemoryCourseRepo() *memoryCourseRepo {
	return &memoryCourseRepo{courses: make(map[uint]models.Course), nextID: 1}
}

func (m *memoryCourseRepo) List(_ context.Context) ([]models.Course, error) {
	results := make([]models.Course, 0, len(m.courses))
	for _, course := range m.courses {
		results = append(results, course)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func (m *memoryCourseRepo) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Course, error) {
	all, _ := m.List(ctx)
	var results []models.Course
	for _, course := range all {
		if course.TeacherID == teacherID {
			results = append(results, course)
		}
	}
	return results, nil
}

func (m *memoryCourseRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.Course, error) {
	all, _ := m.List(ctx)
	var results []models.Course
	for _, course := range all {
		if course.HasStudent(studentID) {
			results = append(results, course)
		}
	}
	return results, nil
}

func (m *memoryCourseRepo) GetByID(_ context.Context, id uint) (models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return models.Course{}, gorm.ErrRecordNotFound
	}
	return course, nil
}

func (m *memoryCourseRepo) Create(_ context.Context, course *models.Course) error {
	course.ID = m.nextID
	m.courses[m.nextID] = *course
	m.nextID++
	return nil
}

func (m *memoryCourseRepo) Update(_ context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *memoryCourseRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.courses[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.courses, id)
	return nil
}

func (m *memoryCourseRepo) Enroll(_ context.Context, courseID uint, student models.User) error {
	course, ok := m.courses[courseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	course.Students = append(course.Students, student)
	m.courses[courseID] = course
	return nil
}

func (m *memoryCourseRepo) Unenroll(_ context.Context, courseID, studentID uint) error {
	course, ok := m.courses[courseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	students := course.Students[:0]
	for _, student := range course.Students {
		if student.ID != studentID {
			students = append(students, student)
		}
	}
	course.Students = students
	m.courses[courseID] = course
	return nil
}

type memorySlotRepo struct {
	slots  map[uint]models.ScheduleSlot
	nextID uint
}

func newMemorySlotRepo() *memorySlotRepo {
	return &memorySlotRepo{slots: make(map[uint]models.ScheduleSlot), nextID: 1}
}

func sortSlots(slots []models.ScheduleSlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Weekday != slots[j].Weekday {
			return slots[i].Weekday < slots[j].Weekday
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].ID < slots[j].ID
	})
}

func (m *memorySlotRepo) ListByCourse(_ context.Context, courseID uint) ([]models.ScheduleSlot, error) {
	var results []models.ScheduleSlot
	for _, slot := range m.slots {
		if slot.CourseID == courseID {
			results = append(results, slot)
		}
	}
	sortSlots(results)
	return results, nil
}

func (m *memorySlotRepo) ListByCourses(_ context.Context, courseIDs []uint) ([]models.ScheduleSlot, error) {
	wanted := make(map[uint]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}
	var results []models.ScheduleSlot
	for _, slot := range m.slots {
		if _, ok := wanted[slot.CourseID]; ok {
			results = append(results, slot)
		}
	}
	sortSlots(results)
	return results, nil
}

func (m *memorySlotRepo) GetByID(_ context.Context, id uint) (models.ScheduleSlot, error) {
	slot, ok := m.slots[id]
	if !ok {
		return models.ScheduleSlot{}, gorm.ErrRecordNotFound
	}
	return slot, nil
}

func (m *memorySlotRepo) Create(_ context.Context, slot *models.ScheduleSlot) error {
	slot.ID = m.nextID
	m.slots[m.nextID] = *slot
	m.nextID++
	return nil
}

func (m *memorySlotRepo) Update(_ context.Context, slot *models.ScheduleSlot) error {
	if _, ok := m.slots[slot.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.slots[slot.ID] = *slot
	return nil
}

func (m *memorySlotRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.slots[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.slots, id)
	return nil
}

type memoryAssignmentRepo struct {
	assignments map[uint]models.Assignment
	nextID      uint
	subs        *memorySubmissionRepo
	comps       *memoryCompletionRepo
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{assignments: make(map[uint]models.Assignment), nextID: 1}
}

func (m *memoryAssignmentRepo) attach(assignment models.Assignment) models.Assignment {
	if m.subs != nil {
		assignment.Submissions = nil
		for _, submission := range m.subs.submissions {
			if submission.AssignmentID == assignment.ID {
				assignment.Submissions = append(assignment.Submissions, submission)
			}
		}
	}
	if m.comps != nil {
		assignment.Completions = nil
		for _, completion := range m.comps.completions {
			if completion.AssignmentID == assignment.ID {
				assignment.Completions = append(assignment.Completions, completion)
			}
		}
	}
	return assignment
}

func (m *memoryAssignmentRepo) List(_ context.Context, filter repository.AssignmentFilter) ([]models.Assignment, int64, error) {
	wanted := make(map[uint]struct{}, len(filter.CourseIDs))
	for _, id := range filter.CourseIDs {
		wanted[id] = struct{}{}
	}

	var filtered []models.Assignment
	for _, assignment := range m.assignments {
		if filter.CourseID != nil && assignment.CourseID != *filter.CourseID {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[assignment.CourseID]; !ok {
				continue
			}
		}
		if filter.TeacherID != nil && assignment.TeacherID != *filter.TeacherID {
			continue
		}
		if filter.Type != "" && assignment.Type != filter.Type {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(assignment.Title), search) && !strings.Contains(strings.ToLower(assignment.Description), search) {
				continue
			}
		}
		filtered = append(filtered, m.attach(assignment))
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Deadline.Before(filtered[j].Deadline) })

	total := int64(len(filtered))
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start >= len(filtered) {
			return []models.Assignment{}, total, nil
		}
		end := start + filter.PageSize
		if end > len(filtered) {
			end = len(filtered)
		}
		filtered = filtered[start:end]
	}

	return filtered, total, nil
}

func (m *memoryAssignmentRepo) GetByID(_ context.Context, id uint) (models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return m.attach(assignment), nil
}

func (m *memoryAssignmentRepo) Create(_ context.Context, assignment *models.Assignment) error {
	assignment.ID = m.nextID
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = time.Now()
	m.assignments[m.nextID] = *assignment
	m.nextID++
	return nil
}

func (m *memoryAssignmentRepo) Update(_ context.Context, assignment *models.Assignment) error {
	if _, ok := m.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	assignment.UpdatedAt = time.Now()
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

type submissionKey struct {
	assignmentID uint
	studentID    uint
}

type memorySubmissionRepo struct {
	submissions map[uint]models.Submission
	byPair      map[submissionKey]uint
	nextID      uint
}

func newMemorySubmissionRepo() *memorySubmissionRepo {
	return &memorySubmissionRepo{
		submissions: make(map[uint]models.Submission),
		byPair:      make(map[submissionKey]uint),
		nextID:      1,
	}
}

func (m *memorySubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	var results []models.Submission
	for _, submission := range m.submissions {
		if filter.AssignmentID != nil && submission.AssignmentID != *filter.AssignmentID {
			continue
		}
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		results = append(results, submission)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SubmittedAt.After(results[j].SubmittedAt) })
	return results, nil
}

func (m *memorySubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	submission, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (m *memorySubmissionRepo) GetByAssignmentAndStudent(_ context.Context, assignmentID, studentID uint) (models.Submission, error) {
	id, ok := m.byPair[submissionKey{assignmentID, studentID}]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return m.submissions[id], nil
}

func (m *memorySubmissionRepo) CreateOnce(_ context.Context, submission *models.Submission) error {
	key := submissionKey{submission.AssignmentID, submission.StudentID}
	if _, exists := m.byPair[key]; exists {
		return repository.ErrConflictingWrite
	}
	submission.ID = m.nextID
	m.submissions[m.nextID] = *submission
	m.byPair[key] = m.nextID
	m.nextID++
	return nil
}

func (m *memorySubmissionRepo) Grade(_ context.Context, id uint, grade float64) (models.Submission, error) {
	submission, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	submission.Grade = &grade
	m.submissions[id] = submission
	return submission, nil
}

type memoryAttemptRepo struct {
	attempts map[submissionKey]models.ExamAttempt
	nextID   uint
}

func newMemoryAttemptRepo() *memoryAttemptRepo {
	return &memoryAttemptRepo{attempts: make(map[submissionKey]models.ExamAttempt), nextID: 1}
}

func (m *memoryAttemptRepo) Get(_ context.Context, assignmentID, studentID uint) (models.ExamAttempt, error) {
	attempt, ok := m.attempts[submissionKey{assignmentID, studentID}]
	if !ok {
		return models.ExamAttempt{}, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (m *memoryAttemptRepo) CreateOnce(_ context.Context, attempt *models.ExamAttempt) error {
	key := submissionKey{attempt.AssignmentID, attempt.StudentID}
	if _, exists := m.attempts[key]; exists {
		return repository.ErrConflictingWrite
	}
	attempt.ID = m.nextID
	m.attempts[key] = *attempt
	m.nextID++
	return nil
}

type memoryCompletionRepo struct {
	completions map[submissionKey]models.Completion
	nextID      uint
}

func newMemoryCompletionRepo() *memoryCompletionRepo {
	return &memoryCompletionRepo{completions: make(map[submissionKey]models.Completion), nextID: 1}
}

func (m *memoryCompletionRepo) ListByAssignment(_ context.Context, assignmentID uint) ([]models.Completion, error) {
	var results []models.Completion
	for key, completion := range m.completions {
		if key.assignmentID == assignmentID {
			results = append(results, completion)
		}
	}
	return results, nil
}

func (m *memoryCompletionRepo) ListByStudent(_ context.Context, studentID uint) ([]models.Completion, error) {
	var results []models.Completion
	for key, completion := range m.completions {
		if key.studentID == studentID {
			results = append(results, completion)
		}
	}
	return results, nil
}

func (m *memoryCompletionRepo) SetDone(_ context.Context, assignmentID, studentID uint, done bool) (models.Completion, error) {
	key := submissionKey{assignmentID, studentID}
	completion, ok := m.completions[key]
	if !ok {
		completion = models.Completion{ID: m.nextID, AssignmentID: assignmentID, StudentID: studentID}
		m.nextID++
	}
	completion.Done = done
	completion.UpdatedAt = time.Now()
	m.completions[key] = completion
	return completion, nil
}

type memoryActivityRepo struct {
	entries []models.ActivityLog
	nextID  uint
}

func newMemoryActivityRepo() *memoryActivityRepo {
	return &memoryActivityRepo{nextID: 1}
}

func (m *memoryActivityRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	entry.ID = m.nextID
	entry.CreatedAt = time.Now()
	m.nextID++
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(_ context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	var filtered []models.ActivityLog
	for _, entry := range m.entries {
		if filter.ActorID != nil && entry.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && entry.EntityType != filter.EntityType {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered, int64(len(filtered)), nil
}

type stubNotifier struct {
	published []dto.NotificationCreateRequest
}

func (s *stubNotifier) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	s.published = append(s.published, payload)
	return dto.NotificationResponse{UserID: payload.UserID, Type: payload.Type, Message: payload.Message}, nil
}

type stubRecorder struct {
	entries []ActivityEntry
}

func (s *stubRecorder) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	s.entries = append(s.entries, entry)
	return dto.ActivityResponse{}, nil
}
