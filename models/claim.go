package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusProcessed ClaimStatus = "processed"
	ClaimStatusRejected  ClaimStatus = "rejected"
)

// Claim is a voucher issued in exchange for a wallet's points and streak.
// Vouchers are paid out by hand; ProcessedAt is set when that happens.
type Claim struct {
	ID             string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	WalletAddress  string          `gorm:"size:64;not null;index" json:"wallet_address"`
	Chain          Chain           `gorm:"type:varchar(16);not null" json:"chain"`
	Code           string          `gorm:"size:64;not null;uniqueIndex" json:"code"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PointsRedeemed int             `gorm:"not null;default:0" json:"points_redeemed"`
	StreakRedeemed bool            `gorm:"not null;default:false" json:"streak_redeemed"`
	Status         ClaimStatus     `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`

	Timestamps
}
