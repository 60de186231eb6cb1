package handlers

import (
	"fmt"
	"strconv"

	"luckyspin/middleware"
	"luckyspin/models"
	"luckyspin/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func accountParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.ErrInvalidRequest
	}
	return id, nil
}

func SetupAdminRoutes(app *fiber.App, svc *Services, adminToken string, log *zap.Logger) {
	admin := app.Group("/admin", middleware.AdminTokenMiddleware(adminToken, log))

	// Promo codes
	admin.Get("/promos", func(c *fiber.Ctx) error {
		promos, err := svc.Promos.List(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "promos": promos})
	})
	admin.Post("/promos", func(c *fiber.Ctx) error {
		var req services.CreatePromoInput
		if err := parseBody(c, &req); err != nil {
			return err
		}
		promo, err := svc.Promos.Create(c.UserContext(), middleware.AdminIDFrom(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "promo": promo})
	})

	// Ads and tasks
	admin.Post("/ads", func(c *fiber.Ctx) error {
		var req services.CreateAdInput
		if err := parseBody(c, &req); err != nil {
			return err
		}
		ad, err := svc.Ads.Create(c.UserContext(), middleware.AdminIDFrom(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "ad": ad})
	})
	admin.Post("/tasks", func(c *fiber.Ctx) error {
		var req services.CreateTaskInput
		if err := parseBody(c, &req); err != nil {
			return err
		}
		task, err := svc.Tasks.Create(c.UserContext(), middleware.AdminIDFrom(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "task": task})
	})

	// Accounts
	setBanned := func(banned bool) fiber.Handler {
		return func(c *fiber.Ctx) error {
			id, err := accountParam(c)
			if err != nil {
				return err
			}
			acc, err := svc.Admin.SetBanned(c.UserContext(), middleware.AdminIDFrom(c), id, banned)
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"success": true, "account": acc})
		}
	}
	admin.Post("/accounts/:id/ban", setBanned(true))
	admin.Post("/accounts/:id/unban", setBanned(false))
	admin.Post("/accounts/:id/plays", func(c *fiber.Ctx) error {
		id, err := accountParam(c)
		if err != nil {
			return err
		}
		var req struct {
			Plays int `json:"plays"`
		}
		if err := parseBody(c, &req); err != nil {
			return err
		}
		acc, err := svc.Admin.GrantPlays(c.UserContext(), middleware.AdminIDFrom(c), id, req.Plays)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "account": acc})
	})

	// Withdrawals
	admin.Get("/withdrawals", func(c *fiber.Ctx) error {
		list, err := svc.Withdrawals.List(c.UserContext(), models.WithdrawalStatus(c.Query("status")), c.QueryInt("limit", 100))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "withdrawals": list})
	})
	admin.Post("/withdrawals/:id/complete", func(c *fiber.Ctx) error {
		var req struct {
			TransactionID string `json:"transaction_id"`
		}
		if err := parseBody(c, &req); err != nil {
			return err
		}
		ref := req.TransactionID
		if ref == "" {
			ref = fmt.Sprintf("MANUAL_%s", c.Params("id"))
		}
		w, err := svc.Withdrawals.Complete(c.UserContext(), c.Params("id"), ref, middleware.AdminIDFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "withdrawal": w})
	})
	admin.Post("/withdrawals/:id/reject", func(c *fiber.Ctx) error {
		var req struct {
			Note string `json:"note"`
		}
		if err := parseBody(c, &req); err != nil {
			return err
		}
		w, err := svc.Withdrawals.Reject(c.UserContext(), c.Params("id"), req.Note, middleware.AdminIDFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "withdrawal": w})
	})
	admin.Post("/withdrawals/:id/requeue", func(c *fiber.Ctx) error {
		w, err := svc.Withdrawals.Requeue(c.UserContext(), c.Params("id"), middleware.AdminIDFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "withdrawal": w})
	})

	// Settings, stats and audit log
	admin.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "settings": svc.Settings.Values()})
	})
	admin.Put("/settings", func(c *fiber.Ctx) error {
		var req struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := parseBody(c, &req); err != nil {
			return err
		}
		rules, err := svc.Settings.Set(c.UserContext(), middleware.AdminIDFrom(c), req.Key, req.Value)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "settings": rules.Settings()})
	})
	admin.Get("/stats", func(c *fiber.Ctx) error {
		st, err := svc.Leaderboard.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "stats": st})
	})
	admin.Get("/logs", func(c *fiber.Ctx) error {
		logs, err := svc.Admin.Logs(c.UserContext(), c.QueryInt("limit", 100))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "logs": logs})
	})
}
