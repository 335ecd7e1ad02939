package handlers

import (
	"io"
	"strings"

	"goat-rush/middleware"
	"goat-rush/models"
	"goat-rush/services"

	"github.com/gofiber/fiber/v2"
)

// maxUploadBytes caps question uploads; MaxImportRows rows fit well within it.
const maxUploadBytes = 2 * 1024 * 1024

type purchaseRequest struct {
	WalletAddress string       `json:"wallet_address"`
	Chain         models.Chain `json:"chain"`
	Quantity      int          `json:"quantity"`
}

func SetupAdminRoutes(app *fiber.App, importer *services.QuestionImporter, adminToken string) {
	admin := app.Group("/admin", middleware.AdminAuthMiddleware(adminToken))

	admin.Post("/questions/upload", func(c *fiber.Ctx) error {
		file, err := c.FormFile("file")
		if err != nil {
			return badRequest(c, "No file provided")
		}
		if file.Size > maxUploadBytes {
			return badRequest(c, "file too large (max 2MB)")
		}
		format := services.ImportFormat(strings.ToLower(c.FormValue("format", string(services.FormatCSV))))

		f, err := file.Open()
		if err != nil {
			return badRequest(c, "failed to open file")
		}
		defer f.Close()
		content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			return badRequest(c, "failed to read file")
		}

		report, err := importer.Import(c.UserContext(), format, file.Filename, content)
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"inserted":     report.Inserted,
			"errors":       report.Errors,
			"total_errors": report.TotalErrors,
			"archive_url":  report.ArchiveURL,
		})
	})
}

func SetupPurchaseRoutes(app *fiber.App, purchases *services.PurchaseService) {
	// Dev-only credit top-up; disabled unless ALLOW_SIMULATED_PURCHASES is set
	app.Post("/purchases/simulate", func(c *fiber.Ctx) error {
		var req purchaseRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if strings.TrimSpace(req.WalletAddress) == "" {
			return badRequest(c, "wallet_address is required")
		}
		total, err := purchases.Simulate(c.UserContext(), req.WalletAddress, req.Chain, req.Quantity)
		if err != nil {
			return respondError(c, err, nil)
		}
		return c.JSON(fiber.Map{"success": true, "new_credits": total})
	})
}
