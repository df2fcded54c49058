package handlers

import (
	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type OrderHandler struct {
	flow      businessflow.OrderFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewOrderHandler(flow businessflow.OrderFlow, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{flow: flow, validator: validator.New(), logger: logger}
}

// SMMServices lists the SMM catalogue priced for the caller
// @Summary List SMM Services
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.SMMServiceDTO}
// @Failure 502 {object} dto.APIResponse
// @Router /api/v1/smm/services [get]
func (h *OrderHandler) SMMServices(c fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}
	resp, err := h.flow.SMMServices(requestContext(c, "/api/v1/smm/services"), uid)
	if err != nil {
		return mapError(c, h.logger, "smm services", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Services retrieved", resp)
}

// CreateSMMOrder places an SMM order
// @Summary Create SMM Order
// @Description The charge is debited and the provider order placed in one step; a provider failure leaves the balance untouched.
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSMMOrderRequest true "Order"
// @Success 201 {object} dto.APIResponse{data=dto.SMMOrderDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 502 {object} dto.APIResponse
// @Router /api/v1/smm/orders [post]
func (h *OrderHandler) CreateSMMOrder(c fiber.Ctx) error {
	var req dto.CreateSMMOrderRequest
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

	resp, err := h.flow.CreateSMMOrder(requestContext(c, "/api/v1/smm/orders"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "create smm order", err)
	}
	return SuccessResponse(c, fiber.StatusCreated, "Order placed", resp)
}

// ListSMMOrders
// @Summary List SMM Orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListSMMOrdersResponse}
// @Router /api/v1/smm/orders [get]
func (h *OrderHandler) ListSMMOrders(c fiber.Ctx) error {
	req, ok, err := h.listRequest(c)
	if !ok {
		return err
	}
	resp, err := h.flow.ListSMMOrders(requestContext(c, "/api/v1/smm/orders"), req)
	if err != nil {
		return mapError(c, h.logger, "list smm orders", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Orders retrieved", resp)
}

// CreateSMSOrder rents a number for verification codes
// @Summary Create SMS Order
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSMSOrderRequest true "Order"
// @Success 201 {object} dto.APIResponse{data=dto.SMSOrderDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 502 {object} dto.APIResponse
// @Router /api/v1/sms/orders [post]
func (h *OrderHandler) CreateSMSOrder(c fiber.Ctx) error {
	var req dto.CreateSMSOrderRequest
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

	resp, err := h.flow.CreateSMSOrder(requestContext(c, "/api/v1/sms/orders"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "create sms order", err)
	}
	return SuccessResponse(c, fiber.StatusCreated, "Number rented", resp)
}

// ListSMSOrders
// @Summary List SMS Orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListSMSOrdersResponse}
// @Router /api/v1/sms/orders [get]
func (h *OrderHandler) ListSMSOrders(c fiber.Ctx) error {
	req, ok, err := h.listRequest(c)
	if !ok {
		return err
	}
	resp, err := h.flow.ListSMSOrders(requestContext(c, "/api/v1/sms/orders"), req)
	if err != nil {
		return mapError(c, h.logger, "list sms orders", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Orders retrieved", resp)
}

// ListProducts lists available accounts for sale
// @Summary List Products
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param platform query string false "Platform filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListProductsResponse}
// @Router /api/v1/products [get]
func (h *OrderHandler) ListProducts(c fiber.Ctx) error {
	var req dto.ListProductsRequest
	if err := c.Bind().Query(&req); err != nil {
		return invalidBody(c)
	}
	if details := validationErrors(h.validator, &req); details != nil {
		return validationFailed(c, details)
	}
	resp, err := h.flow.ListProducts(requestContext(c, "/api/v1/products"), &req)
	if err != nil {
		return mapError(c, h.logger, "list products", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Products retrieved", resp)
}

// PurchaseProduct buys one listed account
// @Summary Purchase Product
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} dto.APIResponse{data=dto.ProductPurchaseResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/products/{id}/purchase [post]
func (h *OrderHandler) PurchaseProduct(c fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return unauthorized(c, "MISSING_USER_ID")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid product id", "INVALID_ID", nil)
	}
	req := dto.PurchaseProductRequest{UserID: uid, ProductID: id}
	resp, err := h.flow.PurchaseProduct(requestContext(c, "/api/v1/products/purchase"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "purchase product", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Purchase completed", resp)
}

func (h *OrderHandler) listRequest(c fiber.Ctx) (*dto.ListOrdersRequest, bool, error) {
	var req dto.ListOrdersRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, false, invalidBody(c)
	}
	uid, ok := userID(c)
	if !ok {
		return nil, false, unauthorized(c, "MISSING_USER_ID")
	}
	req.UserID = uid
	if details := validationErrors(h.validator, &req); details != nil {
		return nil, false, validationFailed(c, details)
	}
	return &req, true, nil
}
