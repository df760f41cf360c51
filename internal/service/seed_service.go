package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedResult summarizes what a demo seed created.
type SeedResult struct {
	Users       int `json:"users"`
	Courses     int `json:"courses"`
	Slots       int `json:"slots"`
	Assignments int `json:"assignments"`
}

// SeedService provisions a demo school: accounts, courses with weekly
// slots, and a few assignments, enough to exercise every endpoint.
type SeedService interface {
	SeedDemo(ctx context.Context, token string) (SeedResult, error)
}

type seedService struct {
	users       repository.UserRepository
	courses     repository.CourseRepository
	slots       repository.ScheduleSlotRepository
	assignments repository.AssignmentRepository
	enabled     bool
	token       string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, courses repository.CourseRepository, slots repository.ScheduleSlotRepository, assignments repository.AssignmentRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		users:       users,
		courses:     courses,
		slots:       slots,
		assignments: assignments,
		enabled:     enabled,
		token:       token,
		logger:      logger.With().Str("component", "seed_service").Logger(),
		now:         time.Now,
	}
}

type seedSlot struct {
	weekday int
	start   string
	end     string
	room    string
}

type seedCourse struct {
	name  string
	slots []seedSlot
}

// Weekly templates use non-overlapping blocks: 08:00-09:30, 09:45-11:15,
// 11:30-13:00, 13:15-14:45, 15:00-16:30.
var demoCourses = []seedCourse{
	{name: "Mathematics", slots: []seedSlot{
		{1, "08:00", "09:30", "Room 101"},
		{3, "09:45", "11:15", "Room 101"},
		{5, "08:00", "09:30", "Room 101"},
	}},
	{name: "English", slots: []seedSlot{
		{2, "09:45", "11:15", "Room 102"},
		{4, "11:30", "13:00", "Room 102"},
	}},
	{name: "History", slots: []seedSlot{
		{1, "13:15", "14:45", "Room 103"},
		{4, "09:45", "11:15", "Room 103"},
	}},
	{name: "Science", slots: []seedSlot{
		{2, "13:15", "14:45", "Lab 201"},
		{3, "13:15", "14:45", "Lab 201"},
	}},
	{name: "Computer Science", slots: []seedSlot{
		{3, "15:00", "16:30", "Computer Lab"},
		{5, "15:00", "16:30", "Computer Lab"},
	}},
}

func (s *seedService) SeedDemo(ctx context.Context, token string) (SeedResult, error) {
	if !s.enabled {
		return SeedResult{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return SeedResult{}, ErrSeedUnauthorized
	}

	var result SeedResult

	if _, err := s.ensureUser(ctx, "Admin", "admin@cartable.local", models.RoleAdmin, "", &result); err != nil {
		return result, err
	}

	teachers := make([]models.User, 0, len(demoCourses))
	for idx := range demoCourses {
		teacher, err := s.ensureUser(ctx,
			fmt.Sprintf("Teacher %d", idx+1),
			fmt.Sprintf("teacher%d@cartable.local", idx+1),
			models.RoleTeacher, "", &result)
		if err != nil {
			return result, err
		}
		teachers = append(teachers, teacher)
	}

	students := make([]models.User, 0, 3)
	for idx := 0; idx < 3; idx++ {
		student, err := s.ensureUser(ctx,
			fmt.Sprintf("Student %d", idx+1),
			fmt.Sprintf("student%d@cartable.local", idx+1),
			models.RoleStudent, "6A", &result)
		if err != nil {
			return result, err
		}
		students = append(students, student)
	}

	deadline := s.now().AddDate(0, 0, 14)

	for idx, template := range demoCourses {
		course := models.Course{
			Name:       template.name,
			TeacherID:  teachers[idx].ID,
			ClassLabel: "6A",
		}
		if err := s.courses.Create(ctx, &course); err != nil {
			return result, err
		}
		result.Courses++

		for _, student := range students {
			if err := s.courses.Enroll(ctx, course.ID, student); err != nil {
				return result, err
			}
		}

		for _, slot := range template.slots {
			row := models.ScheduleSlot{
				CourseID:  course.ID,
				Weekday:   slot.weekday,
				StartTime: slot.start,
				EndTime:   slot.end,
				Room:      slot.room,
			}
			if err := s.slots.Create(ctx, &row); err != nil {
				return result, err
			}
			result.Slots++
		}

		homework := models.Assignment{
			CourseID:    course.ID,
			TeacherID:   teachers[idx].ID,
			Title:       fmt.Sprintf("%s homework", template.name),
			Description: fmt.Sprintf("Weekly exercises for %s.", template.name),
			Type:        models.AssignmentTypeHomework,
			Deadline:    deadline,
		}
		if err := s.assignments.Create(ctx, &homework); err != nil {
			return result, err
		}
		result.Assignments++
	}

	s.logger.Info().
		Int("users", result.Users).
		Int("courses", result.Courses).
		Int("slots", result.Slots).
		Int("assignments", result.Assignments).
		Msg("demo data seeded")

	return result, nil
}

func (s *seedService) ensureUser(ctx context.Context, name, email, role, classLabel string, result *SeedResult) (models.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme123"), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		ClassLabel:   classLabel,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, err
	}

	result.Users++
	return user, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
