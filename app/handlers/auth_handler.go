package handlers

import (
	"strings"

	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	AdminLogin(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
}

type AuthHandler struct {
	flow      businessflow.AuthFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAuthHandler(flow businessflow.AuthFlow, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{flow: flow, validator: validator.New(), logger: logger}
}

// Login authenticates a user by email and password
// @Summary User Login
// @Description Exchange email and password for an access and refresh token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	if details := validationErrors(h.validator, &req); details != nil {
		return validationFailed(c, details)
	}

	resp, err := h.flow.Login(requestContext(c, "/api/v1/auth/login"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "login", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Login successful", resp)
}

// AdminLogin authenticates an administrator
// @Summary Admin Login
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Admin credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/admin/auth/login [post]
func (h *AuthHandler) AdminLogin(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	if details := validationErrors(h.validator, &req); details != nil {
		return validationFailed(c, details)
	}

	resp, err := h.flow.AdminLogin(requestContext(c, "/api/v1/admin/auth/login"), &req, clientMetadata(c))
	if err != nil {
		return mapError(c, h.logger, "admin login", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Login successful", resp)
}

// Refresh rotates a refresh token
// @Summary Refresh Token
// @Description Exchange a refresh token for a new pair. The presented token is revoked.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return invalidBody(c)
	}
	if details := validationErrors(h.validator, &req); details != nil {
		return validationFailed(c, details)
	}

	resp, err := h.flow.Refresh(requestContext(c, "/api/v1/auth/refresh"), &req)
	if err != nil {
		return mapError(c, h.logger, "refresh token", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Token refreshed", resp)
}

// Logout ends the session
// @Summary Logout
// @Description Revoke the bearer access token and, when given, the refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.LogoutRequest false "Refresh token to revoke"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	var req dto.LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return invalidBody(c)
		}
	}

	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if err := h.flow.Logout(requestContext(c, "/api/v1/auth/logout"), token, &req); err != nil {
		return mapError(c, h.logger, "logout", err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Logged out", nil)
}
