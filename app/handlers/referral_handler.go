package handlers

import (
	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type ReferralHandler struct {
	flow      businessflow.ReferralFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewReferralHandler(flow businessflow.ReferralFlow, logger *zap.Logger) *ReferralHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferralHandler{flow: flow, validator: validator.New(), logger: logger}
}

// Summary reports referral earnings
// @Summary Referral Summary
// @Tags Referrals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ReferralSummaryResponse}
// @Router /api/v1/referrals/summary [get]
func (h *ReferralHandler) Summary(c fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}
	resp, err := h.flow.Summary(requestContext(c, "/api/v1/referrals/summary"), uid)
	if err != nil {
		return mapError(c, h.logger, "referral summary", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Referral summary retrieved", resp)
}

// Withdraw pays out earned commissions
// @Summary Withdraw Referral Earnings
// @Tags Referrals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ReferralWithdrawRequest true "Withdrawal"
// @Success 200 {object} dto.APIResponse{data=dto.ReferralWithdrawResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/referrals/withdraw [post]
func (h *ReferralHandler) Withdraw(c fiber.Ctx) error {
	var req dto.ReferralWithdrawRequest
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

	resp, err := h.flow.Withdraw(requestContext(c, "/api/v1/referrals/withdraw"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "referral withdraw", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Referral withdrawal requested", resp)
}
