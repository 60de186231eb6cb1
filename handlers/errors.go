package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"luckyspin/middleware"
	"luckyspin/services"
	"luckyspin/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StatusFor maps a ledger outcome to its HTTP status.
func StatusFor(le *services.LedgerError) int {
	if le == services.ErrNoPlaysAvailable {
		return fiber.StatusBadRequest
	}
	switch le.Kind {
	case services.KindAuthentication:
		return fiber.StatusUnauthorized
	case services.KindValidation:
		return fiber.StatusBadRequest
	case services.KindStateConflict:
		return fiber.StatusConflict
	case services.KindThrottle:
		return fiber.StatusTooManyRequests
	case services.KindTransient:
		return fiber.StatusServiceUnavailable
	case services.KindNotFound:
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

func requestLanguage(c *fiber.Ctx) string {
	if id := middleware.IdentityFrom(c); id != nil && id.LanguageCode != "" {
		return id.LanguageCode
	}
	lang := c.Get(fiber.HeaderAcceptLanguage)
	if i := strings.IndexAny(lang, ",;"); i >= 0 {
		lang = lang[:i]
	}
	return strings.TrimSpace(lang)
}

// ErrorHandler renders every failure as {success:false, code, message} with
// the message localized for the caller.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		lang := requestLanguage(c)

		if le, ok := services.AsLedgerError(err); ok {
			return c.Status(StatusFor(le)).JSON(fiber.Map{
				"success": false,
				"code":    le.Code,
				"message": utils.Localize(lang, le.Code),
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"code":    "http_error",
				"message": fe.Message,
			})
		}

		if services.KindOf(err) == services.KindTransient {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"code":    services.ErrTransient.Code,
				"message": utils.Localize(lang, services.ErrTransient.Code),
			})
		}

		log.Error("request failed", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"code":    "internal_error",
			"message": utils.Localize(lang, "internal_error"),
		})
	}
}

// parseBody decodes an optional JSON body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Body(), out); err != nil {
		return services.ErrInvalidRequest
	}
	return nil
}
