package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Chain string

const (
	ChainSolana Chain = "solana"
	ChainBase   Chain = "base"
)

func (c Chain) Valid() bool {
	return c == ChainSolana || c == ChainBase
}

// User is the ledger row for one wallet. Credits, balance, points and streak
// are only mutated through conditional updates guarded on their prior values.
type User struct {
	ID            string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	WalletAddress string          `gorm:"uniqueIndex;size:64;not null" json:"wallet_address"`
	Chain         Chain           `gorm:"type:varchar(16);not null" json:"chain"`
	Credits       int             `gorm:"not null;default:0;check:credits >= 0" json:"credits"`
	Balance       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	Points        int             `gorm:"not null;default:0;check:points >= 0" json:"points"`
	Streak        int             `gorm:"not null;default:0;check:streak >= 0" json:"streak"`
	TotalPlays    int             `gorm:"not null;default:0" json:"total_plays"`
	TotalWins     int             `gorm:"not null;default:0" json:"total_wins"`
	LastPlay      *time.Time      `json:"last_play,omitempty"`
	LastWin       *time.Time      `json:"last_win,omitempty"`

	Timestamps
}

// Profile is the HUD view of a user row.
type Profile struct {
	WalletAddress string          `json:"wallet_address"`
	Balance       decimal.Decimal `json:"balance"`
	Credits       int             `json:"credits"`
	Points        int             `json:"points"`
	Streak        int             `json:"streak"`
}

func (u *User) Profile() Profile {
	return Profile{
		WalletAddress: u.WalletAddress,
		Balance:       u.Balance,
		Credits:       u.Credits,
		Points:        u.Points,
		Streak:        u.Streak,
	}
}
