package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/models"
)

type courseFixture struct {
	courses *memoryCourseRepo
	users   *memoryUserRepo
	svc     CourseService
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	courses := newMemoryCourseRepo()
	users := newMemoryUserRepo()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewCourseService(courses, users, validate, testLogger())
	return &courseFixture{courses: courses, users: users, svc: svc}
}

func (f *courseFixture) seedUser(t *testing.T, name, email, role string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Role: role}
	require.NoError(t, f.users.Create(context.Background(), &user))
	return user
}

func TestCourseServiceCreateForcesOwnership(t *testing.T) {
	f := newCourseFixture(t)
	teacher := f.seedUser(t, "Ms. Dupont", "dupont@cartable.local", models.RoleTeacher)
	other := f.seedUser(t, "Mr. Martin", "martin@cartable.local", models.RoleTeacher)

	// A teacher naming someone else as owner still ends up owning the course.
	created, err := f.svc.Create(context.Background(), Actor{ID: teacher.ID, Role: models.RoleTeacher}, dto.CourseCreateRequest{
		Name:      "Mathematics",
		TeacherID: other.ID,
	})
	require.NoError(t, err)
	require.Equal(t, teacher.ID, created.TeacherID)

	// Admins may assign any teacher.
	created, err = f.svc.Create(context.Background(), Actor{ID: 99, Role: models.RoleAdmin}, dto.CourseCreateRequest{
		Name:      "History",
		TeacherID: other.ID,
	})
	require.NoError(t, err)
	require.Equal(t, other.ID, created.TeacherID)
}

func TestCourseServiceCreateRejectsNonTeacherOwner(t *testing.T) {
	f := newCourseFixture(t)
	student := f.seedUser(t, "Lea", "lea@cartable.local", models.RoleStudent)

	_, err := f.svc.Create(context.Background(), Actor{ID: 99, Role: models.RoleAdmin}, dto.CourseCreateRequest{
		Name:      "Mathematics",
		TeacherID: student.ID,
	})
	require.ErrorIs(t, err, ErrNotATeacher)
}

func TestCourseServiceListScoping(t *testing.T) {
	f := newCourseFixture(t)
	teacherA := f.seedUser(t, "Ms. Dupont", "dupont@cartable.local", models.RoleTeacher)
	teacherB := f.seedUser(t, "Mr. Martin", "martin@cartable.local", models.RoleTeacher)
	student := f.seedUser(t, "Lea", "lea@cartable.local", models.RoleStudent)

	courseA := models.Course{Name: "Mathematics", TeacherID: teacherA.ID, Students: []models.User{student}}
	require.NoError(t, f.courses.Create(context.Background(), &courseA))
	courseB := models.Course{Name: "History", TeacherID: teacherB.ID}
	require.NoError(t, f.courses.Create(context.Background(), &courseB))

	fromStudent, err := f.svc.List(context.Background(), Actor{ID: student.ID, Role: models.RoleStudent})
	require.NoError(t, err)
	require.Len(t, fromStudent, 1)
	require.Equal(t, "Mathematics", fromStudent[0].Name)

	fromTeacher, err := f.svc.List(context.Background(), Actor{ID: teacherB.ID, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Len(t, fromTeacher, 1)
	require.Equal(t, "History", fromTeacher[0].Name)

	fromAdmin, err := f.svc.List(context.Background(), Actor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, fromAdmin, 2)
}

func TestCourseServiceUpdateOwnership(t *testing.T) {
	f := newCourseFixture(t)
	teacher := f.seedUser(t, "Ms. Dupont", "dupont@cartable.local", models.RoleTeacher)
	course := models.Course{Name: "Mathematics", TeacherID: teacher.ID}
	require.NoError(t, f.courses.Create(context.Background(), &course))

	name := "Advanced Mathematics"
	_, err := f.svc.Update(context.Background(), Actor{ID: teacher.ID + 1, Role: models.RoleTeacher}, course.ID, dto.CourseUpdateRequest{Name: &name})
	require.ErrorIs(t, err, ErrNotCourseTeacher)

	updated, err := f.svc.Update(context.Background(), Actor{ID: teacher.ID, Role: models.RoleTeacher}, course.ID, dto.CourseUpdateRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
}

func TestCourseServiceReassignRequiresAdmin(t *testing.T) {
	f := newCourseFixture(t)
	teacher := f.seedUser(t, "Ms. Dupont", "dupont@cartable.local", models.RoleTeacher)
	other := f.seedUser(t, "Mr. Martin", "martin@cartable.local", models.RoleTeacher)
	course := models.Course{Name: "Mathematics", TeacherID: teacher.ID}
	require.NoError(t, f.courses.Create(context.Background(), &course))

	_, err := f.svc.Update(context.Background(), Actor{ID: teacher.ID, Role: models.RoleTeacher}, course.ID, dto.CourseUpdateRequest{TeacherID: &other.ID})
	require.ErrorIs(t, err, ErrNotCourseTeacher)

	updated, err := f.svc.Update(context.Background(), Actor{ID: 99, Role: models.RoleAdmin}, course.ID, dto.CourseUpdateRequest{TeacherID: &other.ID})
	require.NoError(t, err)
	require.Equal(t, other.ID, updated.TeacherID)
}

func TestCourseServiceEnroll(t *testing.T) {
	f := newCourseFixture(t)
	teacher := f.seedUser(t, "Ms. Dupont", "dupont@cartable.local", models.RoleTeacher)
	student := f.seedUser(t, "Lea", "lea@cartable.local", models.RoleStudent)
	course := models.Course{Name: "Mathematics", TeacherID: teacher.ID}
	require.NoError(t, f.courses.Create(context.Background(), &course))
	actor := Actor{ID: teacher.ID, Role: models.RoleTeacher}

	enrolled, err := f.svc.Enroll(context.Background(), actor, course.ID, dto.EnrollRequest{StudentID: student.ID})
	require.NoError(t, err)
	require.Len(t, enrolled.Students, 1)

	// Enrolling twice is a no-op.
	enrolled, err = f.svc.Enroll(context.Background(), actor, course.ID, dto.EnrollRequest{StudentID: student.ID})
	require.NoError(t, err)
	require.Len(t, enrolled.Students, 1)

	_, err = f.svc.Enroll(context.Background(), actor, course.ID, dto.EnrollRequest{StudentID: teacher.ID})
	require.ErrorIs(t, err, ErrNotAStudent)

	after, err := f.svc.Unenroll(context.Background(), actor, course.ID, student.ID)
	require.NoError(t, err)
	require.Empty(t, after.Students)
}

func TestCourseServiceDelete(t *testing.T) {
	f := newCourseFixture(t)
	teacher := f.seedUser(t, "Ms. Dupont", "dupont@cartable.local", models.RoleTeacher)
	course := models.Course{Name: "Mathematics", TeacherID: teacher.ID}
	require.NoError(t, f.courses.Create(context.Background(), &course))

	require.ErrorIs(t, f.svc.Delete(context.Background(), Actor{ID: 42, Role: models.RoleTeacher}, course.ID), ErrNotCourseTeacher)
	require.NoError(t, f.svc.Delete(context.Background(), Actor{ID: teacher.ID, Role: models.RoleTeacher}, course.ID))
	require.ErrorIs(t, f.svc.Delete(context.Background(), Actor{ID: 99, Role: models.RoleAdmin}, course.ID), ErrCourseNotFound)
}
