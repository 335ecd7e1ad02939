package services

import (
	"context"
	"time"

	"goat-rush/models"
	"goat-rush/repository"
)

// LedgerStore is the row store holding users and game history. It offers no
// transactions; CompareAndSwap is the only safe way to mutate a user.
type LedgerStore interface {
	GetUser(ctx context.Context, wallet string) (*models.User, error)
	EnsureUser(ctx context.Context, wallet string, chain models.Chain) (*models.User, error)
	CompareAndSwap(ctx context.Context, wallet string, guard repository.Guard, updates map[string]any) (bool, error)
	InsertHistory(ctx context.Context, entry *models.GameHistory) error
	ListHistory(ctx context.Context, wallet string, limit int) ([]models.GameHistory, error)
	TopUsers(ctx context.Context, column string, limit int) ([]models.User, error)
	RecordPurchase(ctx context.Context, p *models.Purchase) error
	RecordClaim(ctx context.Context, c *models.Claim) error
}

// QuestionSource exposes the public (answerless) and private question views.
type QuestionSource interface {
	ListActive(ctx context.Context, limit int) ([]models.PublicQuestion, error)
	ListAnswers(ctx context.Context, ids []string) ([]models.AnswerKey, error)
}

// QuestionWriter is used by the admin import and the expiry job.
type QuestionWriter interface {
	BulkInsert(ctx context.Context, questions []models.Question) (int, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// Archiver stores a raw upload somewhere durable and returns its URL.
type Archiver interface {
	Archive(ctx context.Context, filename string, content []byte, contentType string) (string, error)
}
