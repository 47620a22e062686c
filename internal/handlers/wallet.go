package handlers

import (
	"relist/internal/repositories"
	"relist/internal/services/ledger"
	"relist/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	ledgerService ledger.Service
	payments      repositories.PaymentRepository
}

func NewWalletHandler(ledgerService ledger.Service, payments repositories.PaymentRepository) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService, payments: payments}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to get wallet")
	}

	return utils.Success(c, fiber.Map{"wallet": wallet})
}

// TopUp credits the wallet directly. The gateway-hosted top-up page is an
// external surface; this endpoint records its confirmed outcome.
func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount int64 `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Amount <= 0 {
		return utils.BadRequest(c, "amount must be greater than 0")
	}

	if err := h.ledgerService.Credit(c.Context(), claims.UserID, input.Amount); err != nil {
		return utils.InternalError(c, "failed to top up wallet")
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to get wallet")
	}
	return utils.Success(c, fiber.Map{"wallet": wallet})
}

// ListPayments returns the caller's gateway payment history.
func (h *WalletHandler) ListPayments(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	page := utils.PageFromQuery(c)
	txns, total, err := h.payments.ListByUser(claims.UserID, page.Size, page.Offset())
	if err != nil {
		return utils.InternalError(c, "failed to list payments")
	}

	return utils.Success(c, utils.Paginated(txns, page, total))
}
