package workers

import (
	"context"
	"time"

	"goat-rush/logger"
	"goat-rush/services"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Rebuilder refreshes one leaderboard's cache from the ledger.
type Rebuilder interface {
	Rebuild(ctx context.Context, b services.Board, limit int) (int, error)
}

// LeaderboardSyncWorker periodically rebuilds the cached leaderboards so
// entries written while the cache was unavailable are not lost.
type LeaderboardSyncWorker struct {
	board    Rebuilder
	clock    clockwork.Clock
	interval time.Duration
	limit    int
}

func NewLeaderboardSyncWorker(board Rebuilder, clock clockwork.Clock, interval time.Duration, limit int) *LeaderboardSyncWorker {
	return &LeaderboardSyncWorker{board: board, clock: clock, interval: interval, limit: limit}
}

// Run syncs once, then every interval until ctx is done.
func (w *LeaderboardSyncWorker) Run(ctx context.Context) {
	logger.Infof("[leaderboard-sync] starting, every %s", w.interval)
	w.syncAll(ctx)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[leaderboard-sync] stopped")
			return
		case <-ticker.Chan():
			w.syncAll(ctx)
		}
	}
}

func (w *LeaderboardSyncWorker) syncAll(ctx context.Context) {
	for _, b := range []services.Board{services.BoardPoints, services.BoardStreak} {
		n, err := w.board.Rebuild(ctx, b, w.limit)
		if err != nil {
			// keep the previous cache; next tick retries
			logger.WithFields(logrus.Fields{"board": b}).Errorf("[leaderboard-sync] rebuild failed: %v", err)
			continue
		}
		logger.WithFields(logrus.Fields{"board": b, "entries": n}).Debug("[leaderboard-sync] rebuilt")
	}
}
