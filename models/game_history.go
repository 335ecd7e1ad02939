package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// GameHistory is append-only; rows are never updated.
type GameHistory struct {
	ID                 string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID             string          `gorm:"type:uuid;not null;index" json:"user_id"`
	WalletAddress      string          `gorm:"size:64;not null;index:idx_history_wallet_time" json:"wallet_address"`
	SessionID          string          `gorm:"type:uuid;index" json:"session_id"`
	QuestionsAttempted int             `gorm:"not null" json:"questions_attempted"`
	QuestionsCorrect   int             `gorm:"not null" json:"questions_correct"`
	Outcome            Outcome         `gorm:"type:varchar(8);not null" json:"outcome"`
	Earnings           decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"earnings"`
	Timestamp          time.Time       `gorm:"not null;index:idx_history_wallet_time" json:"timestamp"`
}

func (GameHistory) TableName() string {
	return "game_history"
}
