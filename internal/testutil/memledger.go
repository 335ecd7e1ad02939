// Package testutil provides in-memory implementations of the ledger and
// question stores for use in tests across the module. Never import this in
// production code.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"goat-rush/models"
	"goat-rush/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemLedger is a thread-safe in-memory LedgerStore. The exported knobs inject
// the failure modes of an eventually consistent row store; set them before
// the code under test runs.
type MemLedger struct {
	mu        sync.Mutex
	users     map[string]*models.User
	history   []models.GameHistory
	purchases []models.Purchase
	claims    []models.Claim

	// ConflictCAS makes the next N conditional updates report no match.
	ConflictCAS int
	// FailCAS makes the next N conditional updates return an error.
	FailCAS int
	// FailGets makes the next N reads return an error.
	FailGets int
	// StaleReadsPerWrite serves the pre-image for the next N reads after
	// each successful conditional update.
	StaleReadsPerWrite int
	// HistoryErr is returned by InsertHistory when set.
	HistoryErr error
	// ClaimErr is returned by RecordClaim when set.
	ClaimErr error
	// BeforeCAS runs under the lock with the live row before each guarded
	// comparison, letting a test simulate a concurrent writer.
	BeforeCAS func(u *models.User)

	staleImage *models.User
	staleLeft  int
	casCalls   int
}

func NewMemLedger() *MemLedger {
	return &MemLedger{users: make(map[string]*models.User)}
}

// Seed stores a copy of u, filling in an ID if missing.
func (m *MemLedger) Seed(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Chain == "" {
		u.Chain = models.ChainSolana
	}
	m.users[u.WalletAddress] = &u
}

// User returns a copy of the live row, ignoring stale-read injection.
func (m *MemLedger) User(wallet string) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[wallet]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

func (m *MemLedger) History() []models.GameHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.GameHistory(nil), m.history...)
}

func (m *MemLedger) Purchases() []models.Purchase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Purchase(nil), m.purchases...)
}

func (m *MemLedger) Claims() []models.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Claim(nil), m.claims...)
}

// CASCalls counts conditional updates attempted so far.
func (m *MemLedger) CASCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.casCalls
}

func (m *MemLedger) GetUser(ctx context.Context, wallet string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGets > 0 {
		m.FailGets--
		return nil, errors.New("injected read failure")
	}
	if m.staleLeft > 0 && m.staleImage != nil && m.staleImage.WalletAddress == wallet {
		m.staleLeft--
		cp := *m.staleImage
		return &cp, nil
	}
	u, ok := m.users[wallet]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemLedger) EnsureUser(ctx context.Context, wallet string, chain models.Chain) (*models.User, error) {
	m.mu.Lock()
	if _, ok := m.users[wallet]; !ok {
		m.users[wallet] = &models.User{
			ID:            uuid.NewString(),
			WalletAddress: wallet,
			Chain:         chain,
			Balance:       decimal.Zero,
		}
	}
	cp := *m.users[wallet]
	m.mu.Unlock()
	return &cp, nil
}

func (m *MemLedger) CompareAndSwap(ctx context.Context, wallet string, guard repository.Guard, updates map[string]any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.FailCAS > 0 {
		m.FailCAS--
		return false, errors.New("injected write failure")
	}
	u, ok := m.users[wallet]
	if !ok {
		return false, nil
	}
	if m.BeforeCAS != nil {
		m.BeforeCAS(u)
	}
	if m.ConflictCAS > 0 {
		m.ConflictCAS--
		return false, nil
	}
	for _, col := range guard.Columns() {
		if !columnEquals(u, col, guard[col]) {
			return false, nil
		}
	}

	pre := *u
	for col, v := range updates {
		if err := applyColumn(u, col, v); err != nil {
			return false, err
		}
	}
	if m.StaleReadsPerWrite > 0 {
		m.staleImage = &pre
		m.staleLeft = m.StaleReadsPerWrite
	}
	return true, nil
}

func (m *MemLedger) InsertHistory(ctx context.Context, entry *models.GameHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HistoryErr != nil {
		return m.HistoryErr
	}
	m.history = append(m.history, *entry)
	return nil
}

func (m *MemLedger) ListHistory(ctx context.Context, wallet string, limit int) ([]models.GameHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GameHistory
	for _, h := range m.history {
		if h.WalletAddress == wallet {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemLedger) TopUsers(ctx context.Context, column string, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if score(u, column) > 0 {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := score(&out[i], column), score(&out[j], column)
		if si != sj {
			return si > sj
		}
		return out[i].WalletAddress < out[j].WalletAddress
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemLedger) RecordPurchase(ctx context.Context, p *models.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases = append(m.purchases, *p)
	return nil
}

func (m *MemLedger) RecordClaim(ctx context.Context, c *models.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClaimErr != nil {
		return m.ClaimErr
	}
	m.claims = append(m.claims, *c)
	return nil
}

func score(u *models.User, column string) int {
	if column == "streak" {
		return u.Streak
	}
	return u.Points
}

func columnEquals(u *models.User, col string, want any) bool {
	switch col {
	case "credits":
		return want == any(u.Credits)
	case "points":
		return want == any(u.Points)
	case "streak":
		return want == any(u.Streak)
	case "balance":
		d, ok := want.(decimal.Decimal)
		return ok && d.Equal(u.Balance)
	}
	return false
}

func applyColumn(u *models.User, col string, v any) error {
	switch col {
	case "credits":
		u.Credits = v.(int)
	case "total_plays":
		u.TotalPlays = v.(int)
	case "total_wins":
		u.TotalWins = v.(int)
	case "points":
		u.Points = v.(int)
	case "streak":
		u.Streak = v.(int)
	case "balance":
		u.Balance = v.(decimal.Decimal)
	case "last_play":
		t := v.(time.Time)
		u.LastPlay = &t
	case "last_win":
		t := v.(time.Time)
		u.LastWin = &t
	default:
		return fmt.Errorf("unknown column %q", col)
	}
	return nil
}
