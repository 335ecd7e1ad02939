package handlers

import (
	"errors"

	"goat-rush/logger"
	"goat-rush/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var statusByCode = map[string]int{
	services.CodeInsufficientCredits:      fiber.StatusPaymentRequired,
	services.CodeInsufficientQuestionPool: fiber.StatusServiceUnavailable,
	services.CodeCreditDebitFailed:        fiber.StatusConflict,
	services.CodeRoundNotFound:            fiber.StatusNotFound,
	services.CodeRoundClosed:              fiber.StatusConflict,
	services.CodeRoundInProgress:          fiber.StatusConflict,
	services.CodeWalletRequired:           fiber.StatusUnauthorized,
	services.CodeInvalidWallet:            fiber.StatusBadRequest,
	services.CodeInvalidInput:             fiber.StatusBadRequest,
	services.CodeFeatureDisabled:          fiber.StatusForbidden,
	services.CodeClaimNotEligible:         fiber.StatusUnprocessableEntity,
	services.CodeClaimFailed:              fiber.StatusConflict,
}

// respondError writes err as {"error", "code"} plus any extra fields. Errors
// without a code are logged and reported as a generic 500.
func respondError(c *fiber.Ctx, err error, extra fiber.Map) error {
	body := fiber.Map{}
	for k, v := range extra {
		body[k] = v
	}

	var appErr *services.AppError
	if errors.As(err, &appErr) {
		status, ok := statusByCode[appErr.Code]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		body["error"] = appErr.Message
		body["code"] = appErr.Code
		if appErr.Code == services.CodeInvalidInput && appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}
		return c.Status(status).JSON(body)
	}

	logger.WithFields(logrus.Fields{"path": c.Path(), "method": c.Method()}).Errorf("[HTTP] unhandled error: %v", err)
	body["error"] = "internal server error"
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "code": services.CodeInvalidInput})
}
