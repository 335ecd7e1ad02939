package handlers

import (
	"goat-rush/services"

	"github.com/gofiber/fiber/v2"
)

const maxLeaderboardLimit = 100

func SetupLeaderboardRoutes(app *fiber.App, board *services.Leaderboard) {
	app.Get("/leaderboard/:board", func(c *fiber.Ctx) error {
		b, ok := services.ParseBoard(c.Params("board"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown leaderboard"})
		}
		limit := c.QueryInt("limit", 10)
		if limit < 1 || limit > maxLeaderboardLimit {
			limit = maxLeaderboardLimit
		}
		entries, err := board.Top(c.UserContext(), b, limit)
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.JSON(fiber.Map{"board": b, "entries": entries})
	})
}
