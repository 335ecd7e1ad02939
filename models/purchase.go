package models

import (
	"time"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusConfirmed PurchaseStatus = "confirmed"
	PurchaseStatusRejected  PurchaseStatus = "rejected"
)

// Purchase records a credit purchase confirmed by the payment side.
type Purchase struct {
	ID             string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	WalletAddress  string         `gorm:"size:64;not null;index" json:"wallet_address"`
	Chain          Chain          `gorm:"type:varchar(16);not null" json:"chain"`
	TxHash         string         `gorm:"size:128;not null;uniqueIndex" json:"tx_hash"`
	Quantity       int            `gorm:"not null" json:"quantity"`
	TokensCredited int            `gorm:"not null;default:0" json:"tokens_credited"`
	Status         PurchaseStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty"`

	Timestamps
}
