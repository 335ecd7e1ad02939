package repository

import (
	"context"
	"errors"
	"sort"

	"goat-rush/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = errors.New("user not found")

// Guard lists column values a conditional update expects to still hold.
type Guard map[string]any

// Columns returns the guarded column names in a stable order.
func (g Guard) Columns() []string {
	cols := make([]string, 0, len(g))
	for c := range g {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetUser reads the ledger row for wallet.
func (r *LedgerRepository) GetUser(ctx context.Context, wallet string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", wallet).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureUser inserts a zeroed row for wallet unless one exists, then returns it.
func (r *LedgerRepository) EnsureUser(ctx context.Context, wallet string, chain models.Chain) (*models.User, error) {
	user := models.User{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		Chain:         chain,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet_address"}},
			DoNothing: true,
		}).
		Create(&user).Error; err != nil {
		return nil, err
	}
	return r.GetUser(ctx, wallet)
}

// CompareAndSwap applies updates to the wallet's row only when every guard
// column still holds its expected value. It reports whether the row changed.
func (r *LedgerRepository) CompareAndSwap(ctx context.Context, wallet string, guard Guard, updates map[string]any) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("wallet_address = ?", wallet)
	for _, col := range guard.Columns() {
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: guard[col]})
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *LedgerRepository) InsertHistory(ctx context.Context, entry *models.GameHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListHistory returns the newest entries first.
func (r *LedgerRepository) ListHistory(ctx context.Context, wallet string, limit int) ([]models.GameHistory, error) {
	var entries []models.GameHistory
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", wallet).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// TopUsers orders users by column ("points" or "streak") descending.
func (r *LedgerRepository) TopUsers(ctx context.Context, column string, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where(clause.Gt{Column: clause.Column{Name: column}, Value: 0}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: true}).
		Order("updated_at ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *LedgerRepository) RecordPurchase(ctx context.Context, p *models.Purchase) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *LedgerRepository) RecordClaim(ctx context.Context, c *models.Claim) error {
	return r.db.WithContext(ctx).Create(c).Error
}
