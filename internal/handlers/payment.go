package handlers

import (
	"errors"

	"relist/internal/repositories"
	"relist/internal/services/gateway"
	"relist/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	gatewayService gateway.Service
}

func NewPaymentHandler(gatewayService gateway.Service) *PaymentHandler {
	return &PaymentHandler{gatewayService: gatewayService}
}

// CreatePaymentURL issues the signed redirect URL for one installment.
func (h *PaymentHandler) CreatePaymentURL(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := parseIDParam(c, "appointmentID")
	if err != nil {
		return utils.BadRequest(c, "invalid appointment id")
	}

	var input struct {
		Kind string `json:"kind"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	req, err := h.gatewayService.BuildPaymentURL(c.Context(), id, claims.UserID, input.Kind)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnknownKind):
			return utils.BadRequest(c, err.Error())
		case errors.Is(err, gateway.ErrInvalidState):
			return utils.Conflict(c, err.Error())
		case errors.Is(err, gateway.ErrNotParticipant):
			return utils.Forbidden(c, err.Error())
		case errors.Is(err, repositories.ErrAppointmentNotFound):
			return utils.NotFound(c, err.Error())
		default:
			return utils.InternalError(c, "failed to build payment url")
		}
	}

	return utils.Success(c, fiber.Map{
		"payment_url": req.URL,
		"order_ref":   req.OrderRef,
		"kind":        req.Kind,
		"amount":      req.Amount,
	})
}

// Callback handles the user-facing return redirect from the gateway.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	return h.handleCallback(c, c.Queries())
}

// IPN handles the server-to-server webhook carrying the same event.
func (h *PaymentHandler) IPN(c *fiber.Ctx) error {
	params := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})
	// Some providers deliver the IPN as a GET-style query as well.
	for k, v := range c.Queries() {
		if _, ok := params[k]; !ok {
			params[k] = v
		}
	}
	return h.handleCallback(c, params)
}

func (h *PaymentHandler) handleCallback(c *fiber.Ctx, params map[string]string) error {
	result, err := h.gatewayService.HandleCallback(c.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidSignature):
			// Acknowledged so the gateway stops retrying a payload that
			// will never verify. Nothing was mutated.
			return utils.Success(c, fiber.Map{"status": "rejected", "reason": "invalid signature"})
		case errors.Is(err, gateway.ErrUnknownTransaction):
			return utils.NotFound(c, err.Error())
		default:
			return utils.InternalError(c, "failed to process payment callback")
		}
	}
	return utils.Success(c, result)
}
