package handlers

import (
	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type AdminDepositHandlerInterface interface {
	Approve(c fiber.Ctx) error
	Reject(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Proof(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

type AdminDepositHandler struct {
	flow      businessflow.AdminDepositFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAdminDepositHandler(flow businessflow.AdminDepositFlow, logger *zap.Logger) *AdminDepositHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminDepositHandler{flow: flow, validator: validator.New(), logger: logger}
}

// Approve credits a pending bank deposit
// @Summary Approve Deposit
// @Tags Admin Deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pending deposit ID"
// @Param request body dto.ReviewDepositRequest false "Optional note"
// @Success 200 {object} dto.APIResponse{data=dto.ReviewDepositResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /admin/deposits/{id}/approve [post]
func (h *AdminDepositHandler) Approve(c fiber.Ctx) error {
	req, ok, err := h.reviewRequest(c)
	if !ok {
		return err
	}
	resp, err := h.flow.Approve(requestContext(c, "/admin/deposits/approve"), req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "approve deposit", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Deposit approved", resp)
}

// Reject closes a pending bank deposit without crediting
// @Summary Reject Deposit
// @Tags Admin Deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pending deposit ID"
// @Param request body dto.ReviewDepositRequest false "Optional note"
// @Success 200 {object} dto.APIResponse{data=dto.ReviewDepositResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /admin/deposits/{id}/reject [post]
func (h *AdminDepositHandler) Reject(c fiber.Ctx) error {
	req, ok, err := h.reviewRequest(c)
	if !ok {
		return err
	}
	resp, err := h.flow.Reject(requestContext(c, "/admin/deposits/reject"), req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "reject deposit", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Deposit rejected", resp)
}

// reviewRequest builds the review input. When ok is false the response has
// already been written and err is what the handler must return.
func (h *AdminDepositHandler) reviewRequest(c fiber.Ctx) (*dto.ReviewDepositRequest, bool, error) {
	var req dto.ReviewDepositRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return nil, false, invalidBody(c)
		}
	}
	aid, ok := adminID(c)
	if !ok {
		return nil, false, unauthorized(c, "MISSING_ADMIN_ID")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false, ErrorResponse(c, fiber.StatusBadRequest, "Invalid deposit id", "INVALID_ID", nil)
	}
	req.AdminID = aid
	req.DepositID = id
	if details := validationErrors(h.validator, &req); details != nil {
		return nil, false, validationFailed(c, details)
	}
	return &req, true, nil
}

// List pages through pending deposits
// @Summary List Pending Deposits
// @Tags Admin Deposits
// @Produce json
// @Security BearerAuth
// @Param status query string false "Pending, Approved or Rejected"
// @Param user_id query int false "Filter by user"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.AdminListDepositsResponse}
// @Router /admin/deposits [get]
func (h *AdminDepositHandler) List(c fiber.Ctx) error {
	req, ok, err := h.listRequest(c)
	if !ok {
		return err
	}
	resp, err := h.flow.List(requestContext(c, "/admin/deposits"), req)
	if err != nil {
		return mapError(c, h.logger, "list deposits", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Deposits retrieved", resp)
}

// Export downloads the filtered deposits as a spreadsheet
// @Summary Export Pending Deposits
// @Tags Admin Deposits
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "Pending, Approved or Rejected"
// @Success 200 {file} file
// @Router /admin/deposits/export [get]
func (h *AdminDepositHandler) Export(c fiber.Ctx) error {
	req, ok, err := h.listRequest(c)
	if !ok {
		return err
	}
	file, err := h.flow.Export(requestContext(c, "/admin/deposits/export"), req)
	if err != nil {
		return mapError(c, h.logger, "export deposits", err)
	}
	return sendFile(c, file)
}

func (h *AdminDepositHandler) listRequest(c fiber.Ctx) (*dto.AdminListDepositsRequest, bool, error) {
	var req dto.AdminListDepositsRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, false, invalidBody(c)
	}
	if details := validationErrors(h.validator, &req); details != nil {
		return nil, false, validationFailed(c, details)
	}
	return &req, true, nil
}

// Proof streams the uploaded transfer proof
// @Summary Get Deposit Proof
// @Tags Admin Deposits
// @Produce image/png
// @Produce image/jpeg
// @Security BearerAuth
// @Param id path int true "Pending deposit ID"
// @Success 200 {file} file
// @Failure 404 {object} dto.APIResponse
// @Router /admin/deposits/{id}/proof [get]
func (h *AdminDepositHandler) Proof(c fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid deposit id", "INVALID_ID", nil)
	}
	img, err := h.flow.Proof(requestContext(c, "/admin/deposits/proof"), id)
	if err != nil {
		return mapError(c, h.logger, "deposit proof", err)
	}
	c.Set(fiber.HeaderContentType, img.MimeType)
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	return c.Status(fiber.StatusOK).Send(img.Data)
}

func sendFile(c fiber.Ctx, file *dto.ExportFile) error {
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
	return c.Status(fiber.StatusOK).Send(file.Data)
}
