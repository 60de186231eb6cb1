package handlers

import (
	"luckyspin/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupPublicRoutes(app *fiber.App, svc *Services) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := svc.Leaderboard.Top(c.UserContext(), c.QueryInt("limit", 10))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "leaderboard": entries})
	})

	app.Get("/payment-methods", func(c *fiber.Ctx) error {
		rules := svc.Settings.Rules()
		return c.JSON(fiber.Map{
			"success":         true,
			"methods":         services.PaymentMethods(),
			"min_amount":      rules.MinWithdrawal,
			"max_amount":      rules.MaxWithdrawal,
			"enabled":         rules.WithdrawalsEnabled,
			"bounds_currency": "EGP",
		})
	})
}
