package handlers

import (
	"goat-rush/middleware"
	"goat-rush/services"

	"github.com/gofiber/fiber/v2"
)

type answerRequest struct {
	Answer string `json:"answer"`
}

func SetupGameRoutes(app *fiber.App, game *services.GameService) {
	rounds := app.Group("/game/rounds", middleware.WalletContextMiddleware())

	// Start a round: debits one credit and returns the first question
	rounds.Post("/", func(c *fiber.Ctx) error {
		view, err := game.StartRound(c.UserContext(), middleware.Wallet(c))
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	})

	rounds.Get("/:id", func(c *fiber.Ctx) error {
		view, err := game.GetRound(middleware.Wallet(c), c.Params("id"))
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.JSON(view)
	})

	rounds.Post("/:id/answers", func(c *fiber.Ctx) error {
		var req answerRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		view, err := game.SubmitAnswer(c.UserContext(), middleware.Wallet(c), c.Params("id"), req.Answer)
		if err != nil {
			var extra fiber.Map
			if view != nil {
				extra = fiber.Map{"round": view}
			}
			return respondError(c, err, extra)
		}
		return c.JSON(view)
	})

	// Play again from a finished round
	rounds.Post("/:id/reinvest", func(c *fiber.Ctx) error {
		view, err := game.Reinvest(c.UserContext(), middleware.Wallet(c), c.Params("id"))
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	})
}
