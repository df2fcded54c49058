package handlers

import (
	"io"
	"strings"

	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DepositHandlerInterface interface {
	BankDeposit(c fiber.Ctx) error
	CreateCryptomusPayment(c fiber.Ctx) error
	ListDeposits(c fiber.Ctx) error
	CryptomusWebhook(c fiber.Ctx) error
}

type DepositHandler struct {
	flow         businessflow.DepositFlow
	webhook      businessflow.CryptomusWebhookFlow
	maxProofSize int
	validator    *validator.Validate
	logger       *zap.Logger
}

func NewDepositHandler(flow businessflow.DepositFlow, webhook businessflow.CryptomusWebhookFlow, maxProofSize int, logger *zap.Logger) *DepositHandler {
	if maxProofSize <= 0 {
		maxProofSize = utils.MaxProofImageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepositHandler{
		flow:         flow,
		webhook:      webhook,
		maxProofSize: maxProofSize,
		validator:    validator.New(),
		logger:       logger,
	}
}

// BankDeposit records a bank transfer awaiting admin review
// @Summary Submit Bank Deposit
// @Description Upload a bank transfer proof. The balance is credited only after an admin approves it.
// @Tags Deposits
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param amount formData string true "Amount in the account currency"
// @Param reference formData string true "Bank transfer reference"
// @Param proof formData file true "Proof image, at most 5MB"
// @Success 200 {object} dto.APIResponse{data=dto.BankDepositResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /deposit/bank [post]
func (h *DepositHandler) BankDeposit(c fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("amount")))
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "amount must be a number", "INVALID_AMOUNT", nil)
	}
	req := dto.BankDepositRequest{
		UserID:    uid,
		Amount:    amount,
		Reference: c.FormValue("reference"),
	}
	if details := validationErrors(h.validator, &req); details != nil {
		return validationFailed(c, details)
	}

	file, err := c.FormFile("proof")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, businessflow.ErrProofRequired.Error(), "PROOF_REQUIRED", nil)
	}
	if file.Size > int64(h.maxProofSize) {
		return ErrorResponse(c, fiber.StatusBadRequest, businessflow.ErrProofTooLarge.Error(), "PROOF_TOO_LARGE", nil)
	}
	f, err := file.Open()
	if err != nil {
		return mapError(c, h.logger, "read proof", err)
	}
	defer f.Close()
	proof, err := io.ReadAll(io.LimitReader(f, int64(h.maxProofSize)+1))
	if err != nil {
		return mapError(c, h.logger, "read proof", err)
	}
	req.Proof = proof
	req.ProofFilename = file.Filename

	resp, err := h.flow.SubmitBankDeposit(requestContext(c, "/deposit/bank"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "bank deposit", err)
	}
	return SuccessResponse(c, fiber.StatusOK, resp.Message, resp)
}

// CreateCryptomusPayment opens a hosted crypto invoice
// @Summary Create Cryptomus Payment
// @Tags Deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCryptomusPaymentRequest true "Payment request"
// @Success 200 {object} dto.APIResponse{data=dto.CreateCryptomusPaymentResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 502 {object} dto.APIResponse
// @Router /create-cryptomus-payment [post]
func (h *DepositHandler) CreateCryptomusPayment(c fiber.Ctx) error {
	var req dto.CreateCryptomusPaymentRequest
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

	resp, err := h.flow.CreateCryptomusPayment(requestContext(c, "/create-cryptomus-payment"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "create cryptomus payment", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Payment created", resp)
}

// ListDeposits lists the caller's deposit transactions, newest first
// @Summary List Deposits
// @Tags Deposits
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListTransactionsResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/deposits [get]
func (h *DepositHandler) ListDeposits(c fiber.Ctx) error {
	var req dto.ListDepositsRequest
	if err := c.Bind().Query(&req); err != nil {
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

	resp, err := h.flow.ListDeposits(requestContext(c, "/api/v1/deposits"), &req)
	if err != nil {
		return mapError(c, h.logger, "list deposits", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Deposits retrieved", resp)
}

// CryptomusWebhook receives signed payment callbacks
// @Summary Cryptomus Webhook
// @Description Payment status callback. Source IP and signature are verified; repeated deliveries are acknowledged without effect.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} dto.CryptomusWebhookResult
// @Failure 401 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /cryptomus-webhook [post]
func (h *DepositHandler) CryptomusWebhook(c fiber.Ctx) error {
	// the signature covers the exact bytes received
	raw := append([]byte(nil), c.Body()...)

	resp, err := h.webhook.Handle(requestContext(c, "/cryptomus-webhook"), raw, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "cryptomus webhook", err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
