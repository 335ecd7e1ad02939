package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"goat-rush/logger"
	"goat-rush/middleware"
	"goat-rush/models"
	"goat-rush/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const streamKeepAlive = 15 * time.Second

type connectRequest struct {
	WalletAddress string       `json:"wallet_address"`
	Chain         models.Chain `json:"chain"`
}

func SetupWalletRoutes(app *fiber.App, wallets *services.WalletService, claims *services.ClaimService) {
	app.Post("/wallet/connect", func(c *fiber.Ctx) error {
		var req connectRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if strings.TrimSpace(req.WalletAddress) == "" {
			return respondError(c, services.ErrWalletRequired, nil)
		}
		req.Chain = models.Chain(strings.ToLower(string(req.Chain)))
		if req.Chain != "" && !req.Chain.Valid() {
			return badRequest(c, `chain must be "solana" or "base"`)
		}
		profile, err := wallets.Connect(c.UserContext(), req.WalletAddress, req.Chain)
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.JSON(profile)
	})

	secured := app.Group("/wallet", middleware.WalletContextMiddleware())

	secured.Get("/profile", func(c *fiber.Ctx) error {
		profile, err := wallets.Refresh(c.UserContext(), middleware.Wallet(c))
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.JSON(profile)
	})

	secured.Get("/history", func(c *fiber.Ctx) error {
		entries, err := wallets.History(c.UserContext(), middleware.Wallet(c), c.QueryInt("limit", services.DefaultHistoryLimit))
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.JSON(fiber.Map{"history": entries})
	})

	// Redeems points/streak for a voucher; points and streak drop to zero
	secured.Post("/claim", func(c *fiber.Ctx) error {
		claim, err := claims.Claim(c.UserContext(), middleware.Wallet(c))
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"claim": claim})
	})

	secured.Get("/stream", func(c *fiber.Ctx) error {
		return streamProfile(c, wallets, middleware.Wallet(c))
	})
}

// streamProfile pushes the wallet's HUD as server-sent events: the current
// profile first, then every refresh.
func streamProfile(c *fiber.Ctx, wallets *services.WalletService, wallet string) error {
	initial, err := wallets.Refresh(c.UserContext(), wallet)
	if err != nil {
		return respondError(c, err, nil)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	updates := make(chan models.Profile, 16)
	unsubscribe := wallets.Subscribe(wallet, func(p models.Profile) {
		select {
		case updates <- p:
		default:
			// slow reader; it will catch up on the next refresh
		}
	})
	done := c.Context().Done()
	log := logger.WithFields(logrus.Fields{"wallet": wallet})

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		if err := writeProfileEvent(w, *initial); err != nil {
			return
		}
		for {
			select {
			case p := <-updates:
				if err := writeProfileEvent(w, p); err != nil {
					log.Debugf("[SSE] client gone: %v", err)
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(":\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}

func writeProfileEvent(w *bufio.Writer, p models.Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: profile\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
