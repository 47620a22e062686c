package handlers

import (
	"errors"
	"strconv"

	"relist/internal/repositories"
	"relist/internal/services/deposit"
	"relist/internal/services/ledger"
	"relist/internal/services/listing"
	"relist/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type DepositHandler struct {
	depositService deposit.Service
}

func NewDepositHandler(depositService deposit.Service) *DepositHandler {
	return &DepositHandler{depositService: depositService}
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func (h *DepositHandler) Create(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		ListingID uint  `json:"listing_id"`
		Amount    int64 `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	res, err := h.depositService.CreateDeposit(c.Context(), claims.UserID, input.ListingID, input.Amount)
	if err != nil {
		return h.mapError(c, err)
	}
	if res.TopUpRequired {
		// A normal outcome, not an error: the client offers the top-up
		// flow for the shortfall.
		return utils.Success(c, fiber.Map{
			"top_up_required": true,
			"shortfall":       res.Shortfall,
		})
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"deposit": res.Deposit})
}

func (h *DepositHandler) SellerConfirm(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid deposit id")
	}

	var input struct {
		Action string `json:"action"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	res, err := h.depositService.SellerConfirm(c.Context(), id, claims.UserID, input.Action)
	if err != nil {
		return h.mapError(c, err)
	}

	out := fiber.Map{"deposit": res.Deposit}
	if res.Appointment != nil {
		out["appointment"] = res.Appointment
		out["escrow_hold"] = res.Hold
	}
	return utils.Success(c, out)
}

func (h *DepositHandler) Cancel(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid deposit id")
	}

	dep, err := h.depositService.Cancel(c.Context(), id, claims.UserID)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"deposit": dep})
}

func (h *DepositHandler) Get(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid deposit id")
	}

	dep, err := h.depositService.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	if claims.UserID != dep.BuyerID && claims.UserID != dep.SellerID && claims.Role != "admin" {
		return utils.Forbidden(c, "not a party to this deposit")
	}
	return utils.Success(c, fiber.Map{"deposit": dep})
}

func (h *DepositHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, deposit.ErrInvalidAmount), errors.Is(err, deposit.ErrOwnListing):
		return utils.BadRequest(c, err.Error())
	case errors.Is(err, deposit.ErrListingNotSellable),
		errors.Is(err, deposit.ErrDuplicateDeposit),
		errors.Is(err, deposit.ErrInvalidState):
		return utils.Conflict(c, err.Error())
	case errors.Is(err, deposit.ErrNotParticipant):
		return utils.Forbidden(c, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return utils.PaymentRequired(c, err.Error())
	case errors.Is(err, listing.ErrNotFound), errors.Is(err, repositories.ErrDepositNotFound):
		return utils.NotFound(c, err.Error())
	default:
		return utils.InternalError(c, "deposit operation failed")
	}
}
