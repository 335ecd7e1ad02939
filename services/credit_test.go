package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"goat-rush/models"
)

func TestDebitOne(t *testing.T) {
	h := newHarness(t)
	h.seed(3, "0", 0, 0)

	user, err := h.credits.DebitOne(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("DebitOne: %v", err)
	}
	if user.Credits != 2 {
		t.Errorf("returned credits = %d, want 2", user.Credits)
	}

	got := h.user(t)
	if got.Credits != 2 || got.TotalPlays != 1 {
		t.Errorf("credits/plays = %d/%d, want 2/1", got.Credits, got.TotalPlays)
	}
	if got.LastPlay == nil || !got.LastPlay.Equal(testNow) {
		t.Errorf("last_play = %v, want %v", got.LastPlay, testNow)
	}
	if h.ledger.CASCalls() != 1 {
		t.Errorf("CAS calls = %d, want 1", h.ledger.CASCalls())
	}
}

func TestDebitOneInsufficient(t *testing.T) {
	h := newHarness(t)
	h.seed(0, "5", 0, 0)

	_, err := h.credits.DebitOne(context.Background(), testWallet)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if h.ledger.CASCalls() != 0 {
		t.Errorf("CAS calls = %d, want 0", h.ledger.CASCalls())
	}

	_, err = h.credits.DebitOne(context.Background(), "0x00000000000000000000000000000000000000bb")
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("unknown wallet err = %v, want ErrInsufficientCredits", err)
	}
}

func TestDebitOneRetriesConflict(t *testing.T) {
	h := newHarness(t)
	h.seed(3, "0", 0, 0)
	h.ledger.ConflictCAS = 1

	if _, err := h.credits.DebitOne(context.Background(), testWallet); err != nil {
		t.Fatalf("DebitOne: %v", err)
	}
	if got := h.user(t); got.Credits != 2 || got.TotalPlays != 1 {
		t.Errorf("credits/plays = %d/%d, want 2/1", got.Credits, got.TotalPlays)
	}
	if h.ledger.CASCalls() != 2 {
		t.Errorf("CAS calls = %d, want 2", h.ledger.CASCalls())
	}
}

func TestDebitOneConcurrentPurchase(t *testing.T) {
	h := newHarness(t)
	h.seed(3, "0", 0, 0)

	calls := 0
	h.ledger.BeforeCAS = func(u *models.User) {
		calls++
		if calls == 1 {
			u.Credits += 5
		}
	}

	if _, err := h.credits.DebitOne(context.Background(), testWallet); err != nil {
		t.Fatalf("DebitOne: %v", err)
	}
	if got := h.user(t).Credits; got != 7 {
		t.Errorf("credits = %d, want 7", got)
	}
}

func TestDebitOneGivesUp(t *testing.T) {
	h := newHarness(t)
	h.seed(3, "0", 0, 0)
	h.ledger.ConflictCAS = 3

	_, err := h.credits.DebitOne(context.Background(), testWallet)
	if !errors.Is(err, ErrCreditDebitFailed) {
		t.Fatalf("err = %v, want ErrCreditDebitFailed", err)
	}
	if got := h.user(t).Credits; got != 3 {
		t.Errorf("credits = %d, want 3", got)
	}
}

func TestDebitOneWriteErrors(t *testing.T) {
	h := newHarness(t)
	h.seed(3, "0", 0, 0)
	h.ledger.FailCAS = 2
	h.ledger.FailGets = 1

	if _, err := h.credits.DebitOne(context.Background(), testWallet); err == nil {
		t.Fatal("expected failure: one read and two writes fail across three attempts")
	}

	h.ledger.FailCAS = 1
	if _, err := h.credits.DebitOne(context.Background(), testWallet); err != nil {
		t.Fatalf("DebitOne after one failure: %v", err)
	}
	if got := h.user(t).Credits; got != 2 {
		t.Errorf("credits = %d, want 2", got)
	}
}

func TestDebitOneLateVisibility(t *testing.T) {
	for _, stale := range []int{5, 6} {
		h := newHarness(t)
		h.seed(3, "0", 0, 0)
		h.ledger.StaleReadsPerWrite = stale

		user, err := h.credits.DebitOne(context.Background(), testWallet)
		if err != nil {
			t.Fatalf("stale=%d: DebitOne: %v", stale, err)
		}
		if user.Credits != 2 {
			t.Errorf("stale=%d: confirmed credits = %d, want 2", stale, user.Credits)
		}
		if got := h.user(t); got.Credits != 2 || got.TotalPlays != 1 {
			t.Errorf("stale=%d: credits/plays = %d/%d, want 2/1", stale, got.Credits, got.TotalPlays)
		}
	}
}

func TestDebitOneConcurrentCallers(t *testing.T) {
	h := newHarness(t)
	h.seed(5, "0", 0, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.credits.DebitOne(context.Background(), testWallet); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got := h.user(t)
	if got.Credits < 0 {
		t.Fatalf("credits went negative: %d", got.Credits)
	}
	if got.Credits != 5-successes {
		t.Errorf("credits = %d with %d successful debits, want %d", got.Credits, successes, 5-successes)
	}
	if got.TotalPlays != successes {
		t.Errorf("total plays = %d, want %d", got.TotalPlays, successes)
	}
}
