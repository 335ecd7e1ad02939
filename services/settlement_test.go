package services

import (
	"context"
	"errors"
	"testing"

	"goat-rush/models"
)

func TestSettleWin(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "10.50", 4, 2)

	res, err := h.settle.Settle(context.Background(), testWallet, "session-1", 3, 3)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.Outcome != models.OutcomeWin {
		t.Errorf("outcome = %s, want win", res.Outcome)
	}
	assertBalance(t, res.Earnings, "2.00")

	got := h.user(t)
	assertBalance(t, got.Balance, "12.50")
	if got.Points != 5 || got.Streak != 3 || got.TotalWins != 1 {
		t.Errorf("points/streak/wins = %d/%d/%d, want 5/3/1", got.Points, got.Streak, got.TotalWins)
	}
	if got.LastWin == nil {
		t.Error("last_win not set")
	}
	if res.Profile == nil || res.Profile.Points != 5 {
		t.Errorf("profile = %+v, want points 5", res.Profile)
	}

	h.settle.Flush()
	history := h.ledger.History()
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	entry := history[0]
	if entry.Outcome != models.OutcomeWin || entry.QuestionsCorrect != 3 || entry.QuestionsAttempted != 3 {
		t.Errorf("history = %+v", entry)
	}
	assertBalance(t, entry.Earnings, "2.00")
	if entry.SessionID != "session-1" || entry.UserID != got.ID {
		t.Errorf("history ids = %s/%s", entry.SessionID, entry.UserID)
	}
}

func TestSettleLoss(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "4.00", 7, 5)

	res, err := h.settle.Settle(context.Background(), testWallet, "session-1", 2, 3)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.Outcome != models.OutcomeLoss || !res.Earnings.IsZero() {
		t.Errorf("result = %s/%s, want loss/0", res.Outcome, res.Earnings)
	}

	got := h.user(t)
	assertBalance(t, got.Balance, "4.00")
	if got.Points != 7 || got.Streak != 0 || got.TotalWins != 0 {
		t.Errorf("points/streak/wins = %d/%d/%d, want 7/0/0", got.Points, got.Streak, got.TotalWins)
	}

	h.settle.Flush()
	if history := h.ledger.History(); len(history) != 1 || history[0].Outcome != models.OutcomeLoss {
		t.Errorf("history = %+v", history)
	}
}

func TestSettleBalanceStaysExact(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "0.10", 0, 0)

	for i := 0; i < 3; i++ {
		if _, err := h.settle.Settle(context.Background(), testWallet, "s", 3, 3); err != nil {
			t.Fatalf("Settle %d: %v", i, err)
		}
	}
	got := h.user(t)
	assertBalance(t, got.Balance, "6.10")
	if got.Points != 3 || got.Streak != 3 {
		t.Errorf("points/streak = %d/%d, want 3/3", got.Points, got.Streak)
	}
}

func TestSettleRetriesConflict(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "1.00", 1, 1)
	h.ledger.ConflictCAS = 2

	if _, err := h.settle.Settle(context.Background(), testWallet, "s", 3, 3); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	got := h.user(t)
	assertBalance(t, got.Balance, "3.00")
	if got.Points != 2 {
		t.Errorf("points = %d, want 2 (applied once)", got.Points)
	}
}

func TestSettleConcurrentPointsChange(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "1.00", 10, 1)

	calls := 0
	h.ledger.BeforeCAS = func(u *models.User) {
		calls++
		if calls == 1 {
			u.Points = 0
		}
	}

	if _, err := h.settle.Settle(context.Background(), testWallet, "s", 3, 3); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	got := h.user(t)
	if got.Points != 1 {
		t.Errorf("points = %d, want 1 (rebased on concurrent reset)", got.Points)
	}
	assertBalance(t, got.Balance, "3.00")
}

func TestSettleUnconfirmed(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "1.00", 1, 1)
	h.ledger.FailCAS = 3

	res, err := h.settle.Settle(context.Background(), testWallet, "s", 3, 3)
	if !errors.Is(err, ErrSettlementUnconfirmed) {
		t.Fatalf("err = %v, want ErrSettlementUnconfirmed", err)
	}
	if res == nil || res.Outcome != models.OutcomeWin || res.Correct != 3 {
		t.Errorf("result = %+v, want computed win", res)
	}

	h.settle.Flush()
	if n := len(h.ledger.History()); n != 0 {
		t.Errorf("history entries = %d, want 0", n)
	}
	assertBalance(t, h.user(t).Balance, "1.00")
}

func TestSettleLateVisibility(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "1.00", 1, 1)
	h.ledger.StaleReadsPerWrite = 5

	if _, err := h.settle.Settle(context.Background(), testWallet, "s", 3, 3); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	got := h.user(t)
	if got.Points != 2 || got.Streak != 2 {
		t.Errorf("points/streak = %d/%d, want 2/2", got.Points, got.Streak)
	}
	if h.ledger.CASCalls() != 1 {
		t.Errorf("CAS calls = %d, want 1", h.ledger.CASCalls())
	}
}

func TestSettleHistoryFailureIsSilent(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "0", 0, 0)
	h.ledger.HistoryErr = errors.New("insert failed")

	res, err := h.settle.Settle(context.Background(), testWallet, "s", 3, 3)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.Outcome != models.OutcomeWin {
		t.Errorf("outcome = %s, want win", res.Outcome)
	}
	h.settle.Flush()
	assertBalance(t, h.user(t).Balance, "2.00")
}
