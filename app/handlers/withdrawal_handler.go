package handlers

import (
	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type WithdrawalHandler struct {
	flow      businessflow.WithdrawalFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewWithdrawalHandler(flow businessflow.WithdrawalFlow, logger *zap.Logger) *WithdrawalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithdrawalHandler{flow: flow, validator: validator.New(), logger: logger}
}

// Withdraw debits the main balance and queues a bank payout
// @Summary Request Withdrawal
// @Tags Withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.WithdrawRequest true "Withdrawal"
// @Success 200 {object} dto.APIResponse{data=dto.WithdrawResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /withdraw [post]
func (h *WithdrawalHandler) Withdraw(c fiber.Ctx) error {
	var req dto.WithdrawRequest
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

	resp, err := h.flow.Withdraw(requestContext(c, "/withdraw"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "withdraw", err)
	}
	return SuccessResponse(c, fiber.StatusOK, resp.Message, resp)
}

// AddBankAccount registers a payout destination
// @Summary Add Bank Account
// @Tags Withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AddBankAccountRequest true "Bank account"
// @Success 201 {object} dto.APIResponse{data=dto.BankAccountDTO}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/bank-accounts [post]
func (h *WithdrawalHandler) AddBankAccount(c fiber.Ctx) error {
	var req dto.AddBankAccountRequest
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

	resp, err := h.flow.AddBankAccount(requestContext(c, "/api/v1/bank-accounts"), &req)
	if err != nil {
		return mapError(c, h.logger, "add bank account", err)
	}
	return SuccessResponse(c, fiber.StatusCreated, "Bank account added", resp)
}

// ListBankAccounts
// @Summary List Bank Accounts
// @Tags Withdrawals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.BankAccountDTO}
// @Router /api/v1/bank-accounts [get]
func (h *WithdrawalHandler) ListBankAccounts(c fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}
	resp, err := h.flow.ListBankAccounts(requestContext(c, "/api/v1/bank-accounts"), uid)
	if err != nil {
		return mapError(c, h.logger, "list bank accounts", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Bank accounts retrieved", resp)
}

// ListWithdrawals lists the caller's withdrawals
// @Summary List Withdrawals
// @Tags Withdrawals
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, paid or rejected"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListWithdrawalsResponse}
// @Router /api/v1/withdrawals [get]
func (h *WithdrawalHandler) ListWithdrawals(c fiber.Ctx) error {
	req, ok, err := h.listRequest(c)
	if !ok {
		return err
	}
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}
	req.UserID = uid

	resp, err := h.flow.ListWithdrawals(requestContext(c, "/api/v1/withdrawals"), req)
	if err != nil {
		return mapError(c, h.logger, "list withdrawals", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Withdrawals retrieved", resp)
}

// Approve marks a pending withdrawal as paid
// @Summary Approve Withdrawal
// @Tags Admin Withdrawals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} dto.APIResponse{data=dto.WithdrawalDTO}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /admin/withdrawals/{id}/approve [post]
func (h *WithdrawalHandler) Approve(c fiber.Ctx) error {
	req, ok, err := h.reviewRequest(c)
	if !ok {
		return err
	}
	resp, err := h.flow.Approve(requestContext(c, "/admin/withdrawals/approve"), req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "approve withdrawal", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Withdrawal approved", resp)
}

// Reject refunds a pending withdrawal to the main balance
// @Summary Reject Withdrawal
// @Tags Admin Withdrawals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} dto.APIResponse{data=dto.WithdrawalDTO}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /admin/withdrawals/{id}/reject [post]
func (h *WithdrawalHandler) Reject(c fiber.Ctx) error {
	req, ok, err := h.reviewRequest(c)
	if !ok {
		return err
	}
	resp, err := h.flow.Reject(requestContext(c, "/admin/withdrawals/reject"), req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "reject withdrawal", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Withdrawal rejected", resp)
}

// AdminList pages through all withdrawals
// @Summary List All Withdrawals
// @Tags Admin Withdrawals
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, paid or rejected"
// @Success 200 {object} dto.APIResponse{data=dto.ListWithdrawalsResponse}
// @Router /admin/withdrawals [get]
func (h *WithdrawalHandler) AdminList(c fiber.Ctx) error {
	req, ok, err := h.listRequest(c)
	if !ok {
		return err
	}
	resp, err := h.flow.AdminList(requestContext(c, "/admin/withdrawals"), req)
	if err != nil {
		return mapError(c, h.logger, "list withdrawals", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Withdrawals retrieved", resp)
}

// Export downloads withdrawals as a spreadsheet
// @Summary Export Withdrawals
// @Tags Admin Withdrawals
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Router /admin/withdrawals/export [get]
func (h *WithdrawalHandler) Export(c fiber.Ctx) error {
	req, ok, err := h.listRequest(c)
	if !ok {
		return err
	}
	file, err := h.flow.Export(requestContext(c, "/admin/withdrawals/export"), req)
	if err != nil {
		return mapError(c, h.logger, "export withdrawals", err)
	}
	return sendFile(c, file)
}

func (h *WithdrawalHandler) reviewRequest(c fiber.Ctx) (*dto.ReviewWithdrawalRequest, bool, error) {
	aid, ok := adminID(c)
	if !ok {
		return nil, false, unauthorized(c, "MISSING_ADMIN_ID")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false, ErrorResponse(c, fiber.StatusBadRequest, "Invalid withdrawal id", "INVALID_ID", nil)
	}
	return &dto.ReviewWithdrawalRequest{AdminID: aid, WithdrawalID: id}, true, nil
}

func (h *WithdrawalHandler) listRequest(c fiber.Ctx) (*dto.ListWithdrawalsRequest, bool, error) {
	var req dto.ListWithdrawalsRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, false, invalidBody(c)
	}
	if details := validationErrors(h.validator, &req); details != nil {
		return nil, false, validationFailed(c, details)
	}
	return &req, true, nil
}
