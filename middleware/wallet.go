package middleware

import (
	"strings"

	"goat-rush/logger"
	"goat-rush/models"
	"goat-rush/services"
	"goat-rush/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	WalletHeader = "X-Wallet-Address"
	ChainHeader  = "X-Wallet-Chain"

	walletLocal = "wallet_address"
	chainLocal  = "wallet_chain"
)

// WalletContextMiddleware resolves the connected wallet from X-Wallet-Address
// (and optional X-Wallet-Chain). Streams cannot set headers, so the wallet and
// chain query parameters are accepted as well. The canonical address is
// stored in the request locals.
func WalletContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		address := strings.TrimSpace(c.Get(WalletHeader))
		if address == "" {
			address = strings.TrimSpace(c.Query("wallet"))
		}
		chain := models.Chain(strings.ToLower(strings.TrimSpace(c.Get(ChainHeader))))
		if chain == "" {
			chain = models.Chain(strings.ToLower(strings.TrimSpace(c.Query("chain"))))
		}

		if address == "" {
			logger.WithFields(logrus.Fields{"path": c.Path()}).Warn("[WALLET_CTX] missing wallet on secured route")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "connect a wallet first",
				"code":  services.CodeWalletRequired,
			})
		}

		wallet, chain, err := utils.NormalizeWallet(address, chain)
		if err != nil {
			logger.WithFields(logrus.Fields{"path": c.Path(), "chain": chain}).Warnf("[WALLET_CTX] rejected wallet: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": services.ErrInvalidWallet.Message,
				"code":  services.CodeInvalidWallet,
			})
		}

		c.Locals(walletLocal, wallet)
		c.Locals(chainLocal, chain)
		return c.Next()
	}
}

// Wallet returns the canonical wallet set by WalletContextMiddleware.
func Wallet(c *fiber.Ctx) string {
	w, _ := c.Locals(walletLocal).(string)
	return w
}

// Chain returns the chain set by WalletContextMiddleware.
func Chain(c *fiber.Ctx) models.Chain {
	ch, _ := c.Locals(chainLocal).(models.Chain)
	return ch
}
