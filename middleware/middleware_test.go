package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"goat-rush/services"

	"github.com/gofiber/fiber/v2"
)

func newWalletApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", WalletContextMiddleware(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"wallet": Wallet(c), "chain": Chain(c)})
	})
	return app
}

func TestWalletContextMiddleware(t *testing.T) {
	app := newWalletApp()

	tests := []struct {
		name       string
		target     string
		headers    map[string]string
		wantStatus int
		wantWallet string
		wantChain  string
		wantCode   string
	}{
		{
			name:       "header evm",
			target:     "/me",
			headers:    map[string]string{WalletHeader: "0x00000000000000000000000000000000000000AA"},
			wantStatus: fiber.StatusOK,
			wantWallet: "0x00000000000000000000000000000000000000aa",
			wantChain:  "base",
		},
		{
			name:       "query solana",
			target:     "/me?wallet=9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM&chain=SOLANA",
			wantStatus: fiber.StatusOK,
			wantWallet: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			wantChain:  "solana",
		},
		{name: "missing", target: "/me", wantStatus: fiber.StatusUnauthorized, wantCode: services.CodeWalletRequired},
		{
			name:       "invalid",
			target:     "/me",
			headers:    map[string]string{WalletHeader: "0x12", ChainHeader: "base"},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   services.CodeInvalidWallet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantStatus != fiber.StatusOK {
				if body["code"] != tt.wantCode {
					t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
				}
				return
			}
			if body["wallet"] != tt.wantWallet || body["chain"] != tt.wantChain {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"bearer ok", "s3cret", "Bearer s3cret", fiber.StatusOK},
		{"raw ok", "s3cret", "s3cret", fiber.StatusOK},
		{"wrong", "s3cret", "Bearer nope", fiber.StatusForbidden},
		{"missing", "s3cret", "", fiber.StatusUnauthorized},
		{"disabled", "", "Bearer anything", fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Post("/admin", AdminAuthMiddleware(tt.configured), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})
			req := httptest.NewRequest("POST", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}
