package middleware

import (
	"encoding/json"

	"luckyspin/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	SessionPayloadHeader = "X-Session-Payload"
	identityKey          = "identity"
)

// SessionMiddleware verifies the signed session payload carried in the
// X-Session-Payload header or the signedPayload body field and stores the
// caller's identity for the handlers. Failures go to the app error handler.
func SessionMiddleware(auth *services.SessionAuthenticator, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := c.Get(SessionPayloadHeader)
		if payload == "" && len(c.Body()) > 0 {
			var body struct {
				SignedPayload string `json:"signedPayload"`
			}
			if err := json.Unmarshal(c.Body(), &body); err != nil {
				return services.ErrInvalidRequest
			}
			payload = body.SignedPayload
		}

		id, err := auth.Verify(payload)
		if err != nil {
			log.Debug("session rejected", zap.String("path", c.Path()), zap.Error(err))
			return err
		}

		c.Locals(identityKey, id)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by SessionMiddleware.
func IdentityFrom(c *fiber.Ctx) *services.Identity {
	id, _ := c.Locals(identityKey).(*services.Identity)
	return id
}
