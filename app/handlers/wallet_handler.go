package handlers

import (
	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type WalletHandler struct {
	ledger    businessflow.Ledger
	validator *validator.Validate
	logger    *zap.Logger
}

func NewWalletHandler(ledger businessflow.Ledger, logger *zap.Logger) *WalletHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletHandler{ledger: ledger, validator: validator.New(), logger: logger}
}

// Wallet returns both balances of the caller
// @Summary Get Wallet
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.WalletResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/wallet [get]
func (h *WalletHandler) Wallet(c fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}
	resp, err := h.ledger.Wallet(requestContext(c, "/api/v1/wallet"), uid)
	if err != nil {
		return mapError(c, h.logger, "get wallet", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Wallet retrieved", resp)
}

// Transfer moves funds between the main and business balances
// @Summary Transfer Between Balances
// @Tags Wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.WalletTransferRequest true "Transfer"
// @Success 200 {object} dto.APIResponse{data=dto.WalletResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/wallet/transfer [post]
func (h *WalletHandler) Transfer(c fiber.Ctx) error {
	var req dto.WalletTransferRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}
	req.UserID = uid
	if details := validationErrors(h.validator, &req); details != nil {
		return validationFailed(c, details)
	}

	resp, err := h.ledger.Transfer(requestContext(c, "/api/v1/wallet/transfer"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "wallet transfer", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Transfer completed", resp)
}
