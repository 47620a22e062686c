package handlers

import (
	"time"

	"relist/internal/repositories"
	"relist/internal/services/ledger"
	"relist/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the operator read surface: deposits, appointments
// and the platform wallet with its transaction history.
type AdminHandler struct {
	deposits      repositories.DepositRepository
	appointments  repositories.AppointmentRepository
	wallets       repositories.WalletRepository
	ledgerService ledger.Service
}

func NewAdminHandler(
	deposits repositories.DepositRepository,
	appointments repositories.AppointmentRepository,
	wallets repositories.WalletRepository,
	ledgerService ledger.Service,
) *AdminHandler {
	return &AdminHandler{
		deposits:      deposits,
		appointments:  appointments,
		wallets:       wallets,
		ledgerService: ledgerService,
	}
}

func (h *AdminHandler) ListDeposits(c *fiber.Ctx) error {
	page := utils.PageFromQuery(c)
	deposits, total, err := h.deposits.List(c.Query("status"), page.Size, page.Offset())
	if err != nil {
		return utils.InternalError(c, "failed to list deposits")
	}
	return utils.Success(c, utils.Paginated(deposits, page, total))
}

func (h *AdminHandler) ListAppointments(c *fiber.Ctx) error {
	page := utils.PageFromQuery(c)
	appointments, total, err := h.appointments.List(c.Query("status"), page.Size, page.Offset())
	if err != nil {
		return utils.InternalError(c, "failed to list appointments")
	}
	return utils.Success(c, utils.Paginated(appointments, page, total))
}

func (h *AdminHandler) GetPlatformWallet(c *fiber.Ctx) error {
	pw, err := h.ledgerService.GetPlatform(c.Context())
	if err != nil {
		return utils.InternalError(c, "failed to get platform wallet")
	}
	return utils.Success(c, fiber.Map{"platform_wallet": pw})
}

// ListPlatformTransactions supports type and date filtering: ?kind=,
// &from=, &to= (RFC 3339), plus the usual pagination parameters.
func (h *AdminHandler) ListPlatformTransactions(c *fiber.Ctx) error {
	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return utils.BadRequest(c, "invalid from timestamp")
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return utils.BadRequest(c, "invalid to timestamp")
		}
		to = &t
	}

	page := utils.PageFromQuery(c)
	txns, total, err := h.wallets.ListPlatformTransactions(c.Query("kind"), from, to, page.Size, page.Offset())
	if err != nil {
		return utils.InternalError(c, "failed to list platform transactions")
	}
	return utils.Success(c, utils.Paginated(txns, page, total))
}
