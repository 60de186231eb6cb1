package handlers

import (
	"luckyspin/middleware"
	"luckyspin/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Services bundles the domain services the routes call.
type Services struct {
	Auth        *services.SessionAuthenticator
	Accounts    *services.AccountService
	Games       *services.GameService
	Promos      *services.PromoService
	Ads         *services.AdService
	Tasks       *services.TaskService
	Withdrawals *services.WithdrawalService
	Admin       *services.AdminService
	Leaderboard *services.LeaderboardService
	Settings    *services.SettingsService
}

func SetupSessionRoutes(app *fiber.App, svc *Services, log *zap.Logger) {
	// Every player route carries a signed Telegram session payload
	session := app.Group("/session", middleware.SessionMiddleware(svc.Auth, log))

	session.Post("/account", func(c *fiber.Ctx) error {
		var req struct {
			StartParameter string `json:"startParameter"`
		}
		if err := parseBody(c, &req); err != nil {
			return err
		}
		acc, created, err := svc.Accounts.Open(c.UserContext(), middleware.IdentityFrom(c), req.StartParameter)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "account": acc, "created": created})
	})

	session.Post("/play", func(c *fiber.Ctx) error {
		res, err := svc.Games.Play(c.UserContext(), middleware.IdentityFrom(c).ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "draw": res.Draw, "account": res.Account})
	})

	session.Post("/history", func(c *fiber.Ctx) error {
		var req struct {
			Page     int `json:"page"`
			PageSize int `json:"page_size"`
		}
		if err := parseBody(c, &req); err != nil {
			return err
		}
		entries, total, err := svc.Games.History(c.UserContext(), middleware.IdentityFrom(c).ID, req.Page, req.PageSize)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "entries": entries, "total": total})
	})

	session.Post("/promo/redeem", func(c *fiber.Ctx) error {
		var req struct {
			Code string `json:"code"`
		}
		if err := parseBody(c, &req); err != nil {
			return err
		}
		res, err := svc.Promos.Redeem(c.UserContext(), middleware.IdentityFrom(c).ID, req.Code)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "redemption": res, "account": res.Account})
	})

	session.Post("/ads", func(c *fiber.Ctx) error {
		ads, err := svc.Ads.Active(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "ads": ads})
	})

	session.Post("/ads/:id/view", func(c *fiber.Ctx) error {
		view, err := svc.Ads.RecordView(c.UserContext(), middleware.IdentityFrom(c).ID, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "view_id": view.ID})
	})

	session.Post("/ads/views/:id/reward", func(c *fiber.Ctx) error {
		res, err := svc.Ads.RewardView(c.UserContext(), middleware.IdentityFrom(c).ID, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "reward": res, "account": res.Account})
	})

	session.Post("/tasks", func(c *fiber.Ctx) error {
		tasks, err := svc.Tasks.Active(c.UserContext(), middleware.IdentityFrom(c).ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "tasks": tasks})
	})

	session.Post("/tasks/:id/complete", func(c *fiber.Ctx) error {
		res, err := svc.Tasks.CompleteTask(c.UserContext(), middleware.IdentityFrom(c).ID, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "reward": res, "account": res.Account})
	})

	session.Post("/withdrawals", func(c *fiber.Ctx) error {
		var req services.WithdrawalRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		w, err := svc.Withdrawals.Request(c.UserContext(), middleware.IdentityFrom(c).ID, req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "withdrawal": w})
	})

	session.Post("/withdrawals/list", func(c *fiber.Ctx) error {
		list, err := svc.Withdrawals.ForAccount(c.UserContext(), middleware.IdentityFrom(c).ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "withdrawals": list})
	})
}
