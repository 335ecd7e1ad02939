package services

import (
	"context"
	"testing"

	"goat-rush/internal/testutil"
	"goat-rush/models"

	"github.com/shopspring/decimal"
)

func TestLeaderboardFallsBackToStore(t *testing.T) {
	ledger := testutil.NewMemLedger()
	for i, u := range []struct {
		wallet         string
		points, streak int
	}{
		{"wallet-a", 5, 1},
		{"wallet-b", 9, 0},
		{"wallet-c", 0, 7},
		{"wallet-d", 2, 3},
	} {
		ledger.Seed(models.User{
			WalletAddress: u.wallet,
			Balance:       decimal.NewFromInt(int64(i)),
			Points:        u.points,
			Streak:        u.streak,
		})
	}
	board := NewLeaderboard(nil, ledger)

	points, err := board.Top(context.Background(), BoardPoints, 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	want := []string{"wallet-b", "wallet-a", "wallet-d"}
	if len(points) != len(want) {
		t.Fatalf("entries = %+v", points)
	}
	for i, w := range want {
		if points[i].WalletAddress != w || points[i].Rank != i+1 {
			t.Errorf("entry %d = %+v, want %s", i, points[i], w)
		}
	}

	streaks, _ := board.Top(context.Background(), BoardStreak, 1)
	if len(streaks) != 1 || streaks[0].WalletAddress != "wallet-c" || streaks[0].Score != 7 {
		t.Errorf("streak top = %+v", streaks)
	}

	if n, err := board.Rebuild(context.Background(), BoardPoints, 10); n != 0 || err != nil {
		t.Errorf("Rebuild without redis = %d, %v", n, err)
	}
}

func TestParseBoard(t *testing.T) {
	if b, ok := ParseBoard("streak"); !ok || b != BoardStreak {
		t.Errorf("ParseBoard(streak) = %v, %v", b, ok)
	}
	if _, ok := ParseBoard("balance"); ok {
		t.Error("balance is not a board")
	}
}
