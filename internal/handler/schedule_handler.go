package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ecolehub/cartable-api/internal/dto"
	"github.com/ecolehub/cartable-api/internal/service"
	"github.com/ecolehub/cartable-api/internal/timetable"
	"github.com/ecolehub/cartable-api/internal/utils"
)

// ScheduleHandler wires recurring slot and calendar routes.
type ScheduleHandler struct {
	service service.ScheduleService
	logger  zerolog.Logger
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(service service.ScheduleService, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		logger:  logger.With().Str("component", "schedule_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches the per-course slot endpoints.
func (h *ScheduleHandler) RegisterCourseRoutes(router fiber.Router) {
	router.Get("/:id/schedule", h.listByCourse)
	router.Post("/:id/schedule", h.create)
}

// Register attaches the slot mutation and calendar endpoints.
func (h *ScheduleHandler) Register(router fiber.Router) {
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/cancellation", h.cancelOccurrence)
	router.Delete("/:id/cancellation", h.restoreOccurrence)
}

// RegisterCalendar attaches the calendar resolution endpoint.
func (h *ScheduleHandler) RegisterCalendar(router fiber.Router) {
	router.Get("/calendar", h.calendar)
}

func (h *ScheduleHandler) listByCourse(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	slots, err := h.service.ListByCourse(c.Context(), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "schedule retrieved", slots)
}

func (h *ScheduleHandler) create(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SlotCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Create(c.Context(), actorFromContext(c), courseID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "slot created", result)
}

func (h *ScheduleHandler) update(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SlotUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Update(c.Context(), actorFromContext(c), slotID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "slot updated", result)
}

func (h *ScheduleHandler) delete(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), actorFromContext(c), slotID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "slot deleted", fiber.Map{"id": slotID})
}

func (h *ScheduleHandler) cancelOccurrence(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CancelOccurrenceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	slot, err := h.service.CancelOccurrence(c.Context(), actorFromContext(c), slotID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "occurrence cancelled", slot)
}

func (h *ScheduleHandler) restoreOccurrence(c *fiber.Ctx) error {
	slotID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	slot, err := h.service.RestoreOccurrence(c.Context(), actorFromContext(c), slotID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "occurrence restored", slot)
}

func (h *ScheduleHandler) calendar(c *fiber.Ctx) error {
	start := c.Query("start")
	end := c.Query("end")
	if start == "" || end == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "start and end dates are required")
	}

	entries, err := h.service.Calendar(c.Context(), actorFromContext(c), start, end)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "calendar resolved", entries)
}

func (h *ScheduleHandler) handleError(c *fiber.Ctx, err error) error {
	var parseErr *time.ParseError
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "slot not found")
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrNotCourseTeacher):
		return utils.SendError(c, fiber.StatusForbidden, "not the course teacher")
	case errors.Is(err, service.ErrNotOccurring):
		return utils.SendError(c, fiber.StatusConflict, "slot does not occur on that date")
	case errors.Is(err, timetable.ErrInvalidSlot), errors.Is(err, timetable.ErrInvalidRange):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &parseErr):
		return utils.SendError(c, fiber.StatusBadRequest, "dates must use the 2006-01-02 layout")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
