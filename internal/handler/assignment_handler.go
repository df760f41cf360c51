package handler

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ecolehub/cartable-api/internal/availability"
	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/service"
	"github.com/ecolehub/cartable-api/internal/utils"
)

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service   service.AssignmentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, validator *validator.Validate, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Patch("/:id/open", h.setOpen)
	router.Put("/:id/completion", h.toggleCompletion)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	var req dto.AssignmentListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.List(c.Context(), actorFromContext(c), req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", result)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	payload, err := parseAssignmentForm(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	assignment, err := h.service.Create(c.Context(), actorFromContext(c), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload, err := parseAssignmentUpdateForm(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	assignment, err := h.service.Update(c.Context(), actorFromContext(c), id, payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), actorFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}

type openRequest struct {
	Open bool `json:"open"`
}

func (h *AssignmentHandler) setOpen(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload openRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.SetOpen(c.Context(), actorFromContext(c), id, payload.Open)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment availability updated", assignment)
}

func (h *AssignmentHandler) toggleCompletion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CompletionToggleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	completion, err := h.service.ToggleCompletion(c.Context(), userIDFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "completion updated", completion)
}

func (h *AssignmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrNotCourseTeacher):
		return utils.SendError(c, fiber.StatusForbidden, "not the course teacher")
	case errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusForbidden, "not enrolled in this course")
	case errors.Is(err, service.ErrNotHomework):
		return utils.SendError(c, fiber.StatusConflict, "completion tracking only applies to homework")
	case errors.Is(err, availability.ErrNotTimed):
		return utils.SendError(c, fiber.StatusConflict, "assignment has no availability gate")
	case errors.Is(err, service.ErrDurationRequired),
		errors.Is(err, service.ErrQuestionInvalid),
		errors.Is(err, service.ErrAttachmentTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

// parseAssignmentForm reads a multipart or urlencoded assignment payload.
// Questions arrive as one JSON-encoded form field so the attachment can ride
// along in the same request.
func parseAssignmentForm(c *fiber.Ctx) (dto.AssignmentCreateRequest, error) {
	payload := dto.AssignmentCreateRequest{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Type:        c.FormValue("type"),
		Location:    c.FormValue("location"),
		Deadline:    c.FormValue("deadline"),
	}

	courseID, err := strconv.ParseUint(c.FormValue("course_id"), 10, 64)
	if err != nil {
		return payload, errors.New("invalid course_id")
	}
	payload.CourseID = uint(courseID)

	if raw := c.FormValue("duration_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return payload, errors.New("invalid duration_minutes")
		}
		payload.DurationMinutes = &minutes
	}

	if raw := c.FormValue("questions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload.Questions); err != nil {
			return payload, errors.New("invalid questions payload")
		}
	}

	return payload, nil
}

func parseAssignmentUpdateForm(c *fiber.Ctx) (dto.AssignmentUpdateRequest, error) {
	payload := dto.AssignmentUpdateRequest{}

	if title := c.FormValue("title"); title != "" {
		payload.Title = &title
	}
	if description := c.FormValue("description"); description != "" {
		payload.Description = &description
	}
	if location := c.FormValue("location"); location != "" {
		payload.Location = &location
	}
	if deadline := c.FormValue("deadline"); deadline != "" {
		payload.Deadline = &deadline
	}
	if raw := c.FormValue("duration_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return payload, errors.New("invalid duration_minutes")
		}
		payload.DurationMinutes = &minutes
	}
	if raw := c.FormValue("questions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload.Questions); err != nil {
			return payload, errors.New("invalid questions payload")
		}
	}

	return payload, nil
}
