package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"goat-rush/services"

	"github.com/jonboulle/clockwork"
)

type countingRebuilder struct {
	mu    sync.Mutex
	calls map[services.Board]int
	fail  bool
	seen  chan struct{}
}

func (r *countingRebuilder) Rebuild(ctx context.Context, b services.Board, limit int) (int, error) {
	r.mu.Lock()
	r.calls[b]++
	r.mu.Unlock()
	r.seen <- struct{}{}
	if r.fail {
		return 0, errors.New("redis down")
	}
	return limit, nil
}

func (r *countingRebuilder) count(b services.Board) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[b]
}

func waitCalls(t *testing.T, r *countingRebuilder, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("saw %d of %d rebuilds", i, n)
		}
	}
}

func TestLeaderboardSyncWorker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := &countingRebuilder{calls: map[services.Board]int{}, fail: true, seen: make(chan struct{}, 16)}
	w := NewLeaderboardSyncWorker(r, clock, time.Minute, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	waitCalls(t, r, 2)
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	waitCalls(t, r, 2)

	if r.count(services.BoardPoints) != 2 || r.count(services.BoardStreak) != 2 {
		t.Errorf("calls = %d/%d, want 2 per board", r.count(services.BoardPoints), r.count(services.BoardStreak))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
