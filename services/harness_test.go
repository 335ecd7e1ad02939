package services

import (
	"testing"
	"time"

	"goat-rush/events"
	"goat-rush/internal/testutil"
	"goat-rush/models"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

const testWallet = "0x00000000000000000000000000000000000000aa"

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type harness struct {
	ledger    *testutil.MemLedger
	questions *testutil.MemQuestions
	clock     *clockwork.FakeClock
	emitter   *events.Emitter
	wallets   *WalletService
	credits   *CreditService
	settle    *SettlementService
	game      *GameService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ledger:    testutil.NewMemLedger(),
		questions: testutil.NewMemQuestions(),
		clock:     clockwork.NewFakeClockAt(testNow),
		emitter:   events.NewEmitter(),
	}
	policy := DefaultLedgerPolicy(0)
	h.wallets = NewWalletService(h.ledger, h.emitter, h.clock, policy)
	h.credits = NewCreditService(h.ledger, h.clock, policy)
	h.settle = NewSettlementService(h.ledger, h.clock, policy, decimal.RequireFromString("2.00"), 3)
	h.game = NewGameService(GameDeps{
		Store:      h.ledger,
		Questions:  NewQuestionService(h.questions, h.clock, policy.Mutation, 3, 100),
		Credits:    h.credits,
		Verifier:   NewAnswerVerifier(h.questions),
		Settlement: h.settle,
		Wallets:    h.wallets,
		Board:      NewLeaderboard(nil, h.ledger),
		Emitter:    h.emitter,
		Clock:      h.clock,
	}, GameSettings{RoundDuration: 30 * time.Second, SessionTTL: 30 * time.Minute})
	t.Cleanup(h.game.Wait)
	return h
}

func (h *harness) seed(credits int, balance string, points, streak int) {
	h.ledger.Seed(models.User{
		WalletAddress: testWallet,
		Chain:         models.ChainBase,
		Credits:       credits,
		Balance:       decimal.RequireFromString(balance),
		Points:        points,
		Streak:        streak,
	})
}

func (h *harness) user(t *testing.T) models.User {
	t.Helper()
	u, ok := h.ledger.User(testWallet)
	if !ok {
		t.Fatalf("user %s not found", testWallet)
	}
	return u
}

func (h *harness) round(t *testing.T, sessionID string) *Round {
	t.Helper()
	h.game.mu.Lock()
	defer h.game.mu.Unlock()
	r, ok := h.game.rounds[sessionID]
	if !ok {
		t.Fatalf("round %s not registered", sessionID)
	}
	return r
}

func waitDone(t *testing.T, r *Round) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("round did not settle")
	}
}

func assertBalance(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("balance = %s, want %s", got.StringFixed(2), want)
	}
}
