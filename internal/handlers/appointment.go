package handlers

import (
	"errors"

	"relist/internal/repositories"
	"relist/internal/services/appointment"
	"relist/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AppointmentHandler struct {
	appointmentService appointment.Service
}

func NewAppointmentHandler(appointmentService appointment.Service) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

func (h *AppointmentHandler) Confirm(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid appointment id")
	}

	appt, err := h.appointmentService.Confirm(c.Context(), id, claims.UserID)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"appointment": appt})
}

func (h *AppointmentHandler) Reject(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid appointment id")
	}

	appt, err := h.appointmentService.Reject(c.Context(), id, claims.UserID)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"appointment": appt})
}

func (h *AppointmentHandler) Cancel(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid appointment id")
	}

	if err := h.appointmentService.Cancel(c.Context(), id, claims.UserID); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "appointment cancelled"})
}

func (h *AppointmentHandler) Get(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid appointment id")
	}

	appt, err := h.appointmentService.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	if claims.UserID != appt.BuyerID && claims.UserID != appt.SellerID && claims.Role != "admin" {
		return utils.Forbidden(c, "not a party to this appointment")
	}
	return utils.Success(c, fiber.Map{"appointment": appt})
}

func (h *AppointmentHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, appointment.ErrInvalidState):
		return utils.Conflict(c, err.Error())
	case errors.Is(err, appointment.ErrNotParticipant):
		return utils.Forbidden(c, err.Error())
	case errors.Is(err, repositories.ErrAppointmentNotFound):
		return utils.NotFound(c, err.Error())
	default:
		return utils.InternalError(c, "appointment operation failed")
	}
}
