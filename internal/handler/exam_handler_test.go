package handler_test

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/config"
	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/handler"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
	"github.com/ecolehub/cartable-api/internal/router"
	"github.com/ecolehub/cartable-api/internal/service"
)

func newExamApp(t *testing.T, db *gorm.DB, actorID uint, role string) *fiber.App {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	assignmentRepo := repository.NewAssignmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	attemptRepo := repository.NewExamAttemptRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, completionRepo, nil, nil, nil, validate, logger)
	examService := service.NewExamService(assignmentRepo, attemptRepo, submissionRepo, courseRepo, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, validate, logger),
		ExamHandler:       handler.NewExamHandler(examService, logger),
		JWTMiddleware:     authStub(actorID, role),
	})

	return app
}

func seedExam(t *testing.T, db *gorm.DB, course models.Course, teacher models.User, open bool) models.Assignment {
	t.Helper()

	correct := 1
	questions, err := dto.QuestionsToJSON([]dto.QuestionPayload{{
		ID:         "q1",
		Type:       models.QuestionMCQ,
		Prompt:     "2 + 2 = ?",
		Options:    []string{"3", "4", "5"},
		CorrectIdx: &correct,
		Points:     5,
	}})
	require.NoError(t, err)

	duration := 30
	exam := models.Assignment{
		CourseID:        course.ID,
		TeacherID:       teacher.ID,
		Title:           "Arithmetic quiz",
		Description:     "A short multiple choice check.",
		Type:            models.AssignmentTypeQuiz,
		Deadline:        time.Now().Add(48 * time.Hour),
		Open:            open,
		DurationMinutes: &duration,
		Questions:       questions,
	}
	require.NoError(t, db.Create(&exam).Error)
	return exam
}

func TestExamHandlerLifecycle(t *testing.T) {
	db := openHandlerDB(t)
	teacher := seedHandlerUser(t, db, models.RoleTeacher)
	student := seedHandlerUser(t, db, models.RoleStudent)
	course := seedHandlerCourse(t, db, teacher, student)
	exam := seedExam(t, db, course, teacher, true)

	app := newExamApp(t, db, student.ID, models.RoleStudent)

	statusReq := httptest.NewRequest("GET", fmt.Sprintf("/api/v1/assignments/%d/exam", exam.ID), nil)
	statusResp, err := app.Test(statusReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, statusResp.StatusCode)

	var statusBody struct {
		Data dto.ExamStatusResponse `json:"data"`
	}
	decodeResponse(t, statusResp, &statusBody)
	require.Equal(t, "allowed", statusBody.Data.Decision)
	require.False(t, statusBody.Data.Started)

	startReq := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/assignments/%d/exam/start", exam.ID), nil)
	startResp, err := app.Test(startReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, startResp.StatusCode)

	var startBody struct {
		Data dto.ExamStartResponse `json:"data"`
	}
	decodeResponse(t, startResp, &startBody)
	require.Equal(t, 30, startBody.Data.DurationMinutes)

	// A second start keeps the original countdown anchor.
	againResp, err := app.Test(httptest.NewRequest("POST", fmt.Sprintf("/api/v1/assignments/%d/exam/start", exam.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, againResp.StatusCode)

	var againBody struct {
		Data dto.ExamStartResponse `json:"data"`
	}
	decodeResponse(t, againResp, &againBody)
	require.WithinDuration(t, startBody.Data.StartedAt, againBody.Data.StartedAt, time.Second)

	submitReq := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/assignments/%d/exam/submit", exam.ID),
		strings.NewReader(`{"answers":[{"question_id":"q1","value":"1"}]}`))
	submitReq.Header.Set("Content-Type", "application/json")
	submitResp, err := app.Test(submitReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, submitResp.StatusCode)

	var submitBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, submitResp, &submitBody)
	require.NotNil(t, submitBody.Data.Grade)
	require.Equal(t, 5.0, *submitBody.Data.Grade)
	require.Equal(t, 5.0, submitBody.Data.MaxGrade)
	require.False(t, submitBody.Data.AutoSubmitted)

	// Answers are write-once.
	dupReq := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/assignments/%d/exam/submit", exam.ID),
		strings.NewReader(`{"answers":[{"question_id":"q1","value":"0"}]}`))
	dupReq.Header.Set("Content-Type", "application/json")
	dupResp, err := app.Test(dupReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, dupResp.StatusCode)

	teacherApp := newExamApp(t, db, teacher.ID, models.RoleTeacher)
	listResp, err := teacherApp.Test(httptest.NewRequest("GET", fmt.Sprintf("/api/v1/assignments/%d/submissions", exam.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var listBody struct {
		Data []dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, listResp, &listBody)
	require.Len(t, listBody.Data, 1)

	gradeReq := httptest.NewRequest("PATCH", fmt.Sprintf("/api/v1/submissions/%d/grade", listBody.Data[0].ID),
		strings.NewReader(`{"grade":4}`))
	gradeReq.Header.Set("Content-Type", "application/json")
	gradeResp, err := teacherApp.Test(gradeReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, gradeResp.StatusCode)

	var gradeBody struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, gradeResp, &gradeBody)
	require.NotNil(t, gradeBody.Data.Grade)
	require.Equal(t, 4.0, *gradeBody.Data.Grade)
}

func TestExamHandlerClosedGate(t *testing.T) {
	db := openHandlerDB(t)
	teacher := seedHandlerUser(t, db, models.RoleTeacher)
	student := seedHandlerUser(t, db, models.RoleStudent)
	course := seedHandlerCourse(t, db, teacher, student)
	exam := seedExam(t, db, course, teacher, false)

	app := newExamApp(t, db, student.ID, models.RoleStudent)

	statusResp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/api/v1/assignments/%d/exam", exam.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, statusResp.StatusCode)

	var statusBody struct {
		Data dto.ExamStatusResponse `json:"data"`
	}
	decodeResponse(t, statusResp, &statusBody)
	require.Equal(t, "closed", statusBody.Data.Decision)

	startResp, err := app.Test(httptest.NewRequest("POST", fmt.Sprintf("/api/v1/assignments/%d/exam/start", exam.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, startResp.StatusCode)

	// Submitting without a start is refused as well.
	submitReq := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/assignments/%d/exam/submit", exam.ID),
		strings.NewReader(`{"answers":[{"question_id":"q1","value":"1"}]}`))
	submitReq.Header.Set("Content-Type", "application/json")
	submitResp, err := app.Test(submitReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, submitResp.StatusCode)
}

func TestExamHandlerRejectsHomework(t *testing.T) {
	db := openHandlerDB(t)
	teacher := seedHandlerUser(t, db, models.RoleTeacher)
	student := seedHandlerUser(t, db, models.RoleStudent)
	course := seedHandlerCourse(t, db, teacher, student)

	homework := models.Assignment{
		CourseID:    course.ID,
		TeacherID:   teacher.ID,
		Title:       "Essay draft",
		Description: "First draft of the term essay.",
		Type:        models.AssignmentTypeHomework,
		Deadline:    time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(&homework).Error)

	app := newExamApp(t, db, student.ID, models.RoleStudent)
	resp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/api/v1/assignments/%d/exam", homework.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
