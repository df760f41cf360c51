package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolehub/cartable-api/internal/availability"
	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/models"
	"github.com/ecolehub/cartable-api/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrDurationRequired indicates a timed assessment without a duration.
	ErrDurationRequired = errors.New("timed assessments require a duration")
	// ErrQuestionInvalid indicates a question with a missing or impossible
	// answer key.
	ErrQuestionInvalid = errors.New("invalid question definition")
	// ErrNotHomework indicates completion tracking was used on a timed
	// assessment, which goes through submissions instead.
	ErrNotHomework = errors.New("completion tracking only applies to homework")
	// ErrNotEnrolled indicates the student is not enrolled in the course.
	ErrNotEnrolled = errors.New("student is not enrolled in this course")
	// ErrAttachmentTypeNotAllowed indicates a rejected attachment MIME type.
	ErrAttachmentTypeNotAllowed = errors.New("attachment type not allowed")
)

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	List(ctx context.Context, actor Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	SetOpen(ctx context.Context, actor Actor, id uint, open bool) (dto.AssignmentResponse, error)
	ToggleCompletion(ctx context.Context, studentID, assignmentID uint, payload dto.CompletionToggleRequest) (dto.CompletionResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	courses     repository.CourseRepository
	completions repository.CompletionRepository
	activity    ActivityRecorder
	notifier    Notifier
	uploader    FileUploader
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(assignments repository.AssignmentRepository, courses repository.CourseRepository, completions repository.CompletionRepository, activity ActivityRecorder, notifier Notifier, uploader FileUploader, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		courses:     courses,
		completions: completions,
		activity:    activity,
		notifier:    notifier,
		uploader:    uploader,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

// List scopes results to the actor: students see assignments of their
// enrolled courses, teachers their own, admins everything.
func (s *assignmentService) List(ctx context.Context, actor Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	filter := repository.AssignmentFilter{
		CourseID: req.CourseID,
		Type:     req.Type,
		Search:   req.Search,
		Sort:     req.Sort,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	switch actor.Role {
	case models.RoleStudent:
		courses, err := s.courses.ListByStudent(ctx, actor.ID)
		if err != nil {
			return dto.AssignmentListResponse{}, err
		}
		if len(courses) == 0 {
			return dto.AssignmentListResponse{
				Items:      []dto.AssignmentResponse{},
				Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, 0),
				Search:     req.Search,
			}, nil
		}
		for _, course := range courses {
			filter.CourseIDs = append(filter.CourseIDs, course.ID)
		}
	case models.RoleTeacher:
		teacherID := actor.ID
		filter.TeacherID = &teacherID
	}

	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.AssignmentListResponse{
		Items:      dto.NewAssignmentResponseSlice(assignments),
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
		Search:     req.Search,
	}, nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	course, err := s.ownedCourse(ctx, actor, payload.CourseID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	deadline, err := time.Parse(time.RFC3339, payload.Deadline)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("invalid deadline: %w", err)
	}
	if !deadline.After(s.now()) {
		return dto.AssignmentResponse{}, fmt.Errorf("deadline must be in the future")
	}

	assignment := models.Assignment{
		CourseID:        course.ID,
		TeacherID:       course.TeacherID,
		Title:           payload.Title,
		Description:     payload.Description,
		Type:            payload.Type,
		Location:        payload.Location,
		Deadline:        deadline,
		DurationMinutes: payload.DurationMinutes,
	}

	if err := s.applyQuestions(&assignment, payload.Questions); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := validateAssessmentShape(assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if file != nil {
		url, err := s.uploadAttachment(ctx, file)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.AttachmentURL = url
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.recordAssignmentChange(ctx, actor, models.ActionAssignmentSaved, assignment)
	s.logger.Info().Uint("assignment_id", assignment.ID).Str("type", assignment.Type).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.ownedAssignment(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = *payload.Description
	}
	if payload.Location != nil {
		assignment.Location = *payload.Location
	}
	if payload.Deadline != nil {
		deadline, err := time.Parse(time.RFC3339, *payload.Deadline)
		if err != nil {
			return dto.AssignmentResponse{}, fmt.Errorf("invalid deadline: %w", err)
		}
		assignment.Deadline = deadline
	}
	if payload.DurationMinutes != nil {
		assignment.DurationMinutes = payload.DurationMinutes
	}
	if payload.Questions != nil {
		if err := s.applyQuestions(&assignment, payload.Questions); err != nil {
			return dto.AssignmentResponse{}, err
		}
	}

	if err := validateAssessmentShape(assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if file != nil {
		url, err := s.uploadAttachment(ctx, file)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.AttachmentURL = url
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.recordAssignmentChange(ctx, actor, models.ActionAssignmentSaved, assignment)
	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment updated")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.ownedAssignment(ctx, actor, id); err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

// SetOpen flips the manual gate on a timed assessment. Opening notifies every
// enrolled student.
func (s *assignmentService) SetOpen(ctx context.Context, actor Actor, id uint, open bool) (dto.AssignmentResponse, error) {
	assignment, err := s.ownedAssignment(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if !assignment.IsTimed() {
		return dto.AssignmentResponse{}, availability.ErrNotTimed
	}

	if assignment.Open == open {
		return dto.NewAssignmentResponse(assignment), nil
	}

	assignment.Open = open
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	action := models.ActionExamClosed
	if open {
		action = models.ActionExamOpened
	}
	s.recordAssignmentChange(ctx, actor, action, assignment)

	if open {
		s.notifyOpened(ctx, assignment)
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Bool("open", open).Msg("assessment gate changed")

	return dto.NewAssignmentResponse(assignment), nil
}

// ToggleCompletion flips a student's homework done flag. The flag is personal
// bookkeeping; it never gates anything.
func (s *assignmentService) ToggleCompletion(ctx context.Context, studentID, assignmentID uint, payload dto.CompletionToggleRequest) (dto.CompletionResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompletionResponse{}, ErrAssignmentNotFound
		}
		return dto.CompletionResponse{}, err
	}

	if assignment.Type != models.AssignmentTypeHomework {
		return dto.CompletionResponse{}, ErrNotHomework
	}

	course, err := s.courses.GetByID(ctx, assignment.CourseID)
	if err != nil {
		return dto.CompletionResponse{}, err
	}
	if !course.HasStudent(studentID) {
		return dto.CompletionResponse{}, ErrNotEnrolled
	}

	completion, err := s.completions.SetDone(ctx, assignmentID, studentID, payload.Done)
	if err != nil {
		return dto.CompletionResponse{}, err
	}

	return dto.CompletionResponse{
		AssignmentID: completion.AssignmentID,
		StudentID:    completion.StudentID,
		Done:         completion.Done,
		UpdatedAt:    completion.UpdatedAt,
	}, nil
}

// applyQuestions validates answer keys and serializes the question payloads
// onto the assignment.
func (s *assignmentService) applyQuestions(assignment *models.Assignment, payloads []dto.QuestionPayload) error {
	for _, question := range payloads {
		switch question.Type {
		case models.QuestionMCQ:
			if len(question.Options) < 2 {
				return fmt.Errorf("%w: mcq %q needs at least two options", ErrQuestionInvalid, question.ID)
			}
			if question.CorrectIdx == nil || *question.CorrectIdx >= len(question.Options) {
				return fmt.Errorf("%w: mcq %q answer key out of range", ErrQuestionInvalid, question.ID)
			}
		case models.QuestionTrueFalse:
			if question.CorrectBool == nil {
				return fmt.Errorf("%w: true-false %q has no answer key", ErrQuestionInvalid, question.ID)
			}
		}
	}

	questions, err := dto.QuestionsToJSON(payloads)
	if err != nil {
		return err
	}
	assignment.Questions = questions
	return nil
}

// validateAssessmentShape enforces the cross-field rules the struct tags
// cannot express: timed assessments need a duration, homework carries neither
// duration nor questions.
func validateAssessmentShape(assignment models.Assignment) error {
	if assignment.IsTimed() {
		if assignment.DurationMinutes == nil || *assignment.DurationMinutes <= 0 {
			return ErrDurationRequired
		}
		return nil
	}

	if assignment.DurationMinutes != nil || len(assignment.Questions) > 0 {
		return fmt.Errorf("%w: homework cannot carry a duration or questions", ErrQuestionInvalid)
	}
	return nil
}

func (s *assignmentService) uploadAttachment(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("file storage is not configured")
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, src); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	mime := mimetype.Detect(buf.Bytes())
	if !isAllowedAttachment(mime.String()) {
		return "", ErrAttachmentTypeNotAllowed
	}

	url, err := s.uploader.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return url, nil
}

func isAllowedAttachment(mime string) bool {
	switch mime {
	case "application/pdf", "application/zip", "application/x-zip-compressed":
		return true
	}
	return len(mime) > 6 && mime[:6] == "image/"
}

func (s *assignmentService) ownedAssignment(ctx context.Context, actor Actor, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	if !actor.IsAdmin() && assignment.TeacherID != actor.ID {
		return models.Assignment{}, ErrNotCourseTeacher
	}

	return assignment, nil
}

func (s *assignmentService) ownedCourse(ctx context.Context, actor Actor, courseID uint) (models.Course, error) {
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

func (s *assignmentService) recordAssignmentChange(ctx context.Context, actor Actor, action string, assignment models.Assignment) {
	if s.activity == nil {
		return
	}

	assignmentID := assignment.ID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "assignment",
		EntityID:   &assignmentID,
		Metadata: map[string]interface{}{
			"course_id": assignment.CourseID,
			"type":      assignment.Type,
			"title":     assignment.Title,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record assignment change")
	}
}

func (s *assignmentService) notifyOpened(ctx context.Context, assignment models.Assignment) {
	if s.notifier == nil {
		return
	}

	course, err := s.courses.GetByID(ctx, assignment.CourseID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("course_id", assignment.CourseID).Msg("failed to load course for open notice")
		return
	}

	message := fmt.Sprintf("%s: %q is now open", course.Name, assignment.Title)
	for _, student := range course.Students {
		if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
			UserID:  student.ID,
			Type:    models.NotificationExamOpened,
			Message: message,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("user_id", student.ID).Msg("failed to publish open notice")
		}
	}
}
