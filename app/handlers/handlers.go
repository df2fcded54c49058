// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/amirphl/smm-panel/app/dto"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// Locals keys set by the auth middleware
const (
	LocalUserID  = "user_id"
	LocalAdminID = "admin_id"
)

func ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func requestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx := context.WithValue(context.Background(), utils.EndpointKey, endpoint)
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		ctx = context.WithValue(ctx, utils.RequestIDKey, rid)
	}
	return ctx
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
}

// validationErrors returns readable messages, or nil when req is valid
func validationErrors(v *validator.Validate, req any) any {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return messages
}

func invalidBody(c fiber.Ctx) error {
	return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", dto.CodeInvalidRequest, nil)
}

func validationFailed(c fiber.Ctx, details any) error {
	return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", dto.CodeValidation, details)
}

func unauthorized(c fiber.Ctx, code string) error {
	return ErrorResponse(c, fiber.StatusUnauthorized, "Unauthorized", code, nil)
}

func userID(c fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

func adminID(c fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalAdminID).(uint)
	return id, ok && id != 0
}

func pathID(c fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// mapError translates a business error into the HTTP taxonomy
func mapError(c fiber.Ctx, logger *zap.Logger, op string, err error) error {
	code := ""
	message := ""
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code, message = be.Code, be.Message
	}
	pick := func(fallbackCode, fallbackMessage string) (string, string) {
		if code != "" {
			return code, message
		}
		return fallbackCode, fallbackMessage
	}

	switch {
	case businessflow.IsWebhookIPNotAllowed(err):
		return ErrorResponse(c, fiber.StatusForbidden, "Forbidden", dto.CodeWebhookIP, nil)
	case businessflow.IsInvalidSignature(err):
		return ErrorResponse(c, fiber.StatusUnauthorized, "Invalid signature", dto.CodeInvalidSignature, nil)
	case businessflow.IsIncorrectPassword(err):
		return ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", dto.CodeInvalidCredentials, nil)
	case businessflow.IsAccountInactive(err):
		return ErrorResponse(c, fiber.StatusForbidden, "Account is suspended or locked", dto.CodeAccountInactive, nil)
	case businessflow.IsInsufficientFunds(err):
		code, message := pick(dto.CodeInsufficientFunds, "Insufficient funds")
		return ErrorResponse(c, fiber.StatusBadRequest, message, code, nil)
	case businessflow.IsValidation(err):
		code, message := pick(dto.CodeInvalidRequest, err.Error())
		return ErrorResponse(c, fiber.StatusBadRequest, message, code, nil)
	case businessflow.IsNotFound(err):
		return ErrorResponse(c, fiber.StatusNotFound, err.Error(), dto.CodeNotFound, nil)
	case businessflow.IsStateConflict(err):
		return ErrorResponse(c, fiber.StatusConflict, err.Error(), dto.CodeAlreadyProcessed, nil)
	case businessflow.IsProviderError(err):
		code, message := pick(dto.CodeProviderError, "Upstream provider failed")
		logger.Warn(op+" provider failure", zap.Error(err))
		return ErrorResponse(c, fiber.StatusBadGateway, message, code, nil)
	}

	logger.Error(op+" failed", zap.Error(err))
	code, message = pick(dto.CodeInternal, fmt.Sprintf("%s failed", op))
	return ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "nefield":
		return err.Field() + " must differ from " + err.Param()
	case "url":
		return err.Field() + " must be a valid URL"
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
