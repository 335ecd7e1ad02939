package services

import (
	"context"
	"fmt"

	"goat-rush/logger"
	"goat-rush/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Board names a leaderboard.
type Board string

const (
	BoardPoints Board = "points"
	BoardStreak Board = "streak"
)

func ParseBoard(s string) (Board, bool) {
	switch b := Board(s); b {
	case BoardPoints, BoardStreak:
		return b, true
	}
	return "", false
}

const leaderboardKeyPrefix = "goatrush:leaderboard:"

func (b Board) key() string {
	return leaderboardKeyPrefix + string(b)
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	WalletAddress string `json:"wallet_address"`
	Score         int    `json:"score"`
}

// Leaderboard ranks wallets by points and by streak. Redis sorted sets serve
// reads when configured; the ledger table is the fallback and the source the
// sync worker rebuilds from.
type Leaderboard struct {
	rdb   *redis.Client
	store LedgerStore
}

// NewLeaderboard accepts a nil client, in which case every read hits the store.
func NewLeaderboard(rdb *redis.Client, store LedgerStore) *Leaderboard {
	return &Leaderboard{rdb: rdb, store: store}
}

// Record pushes the user's current scores into the sorted sets.
func (l *Leaderboard) Record(ctx context.Context, p models.Profile) {
	if l.rdb == nil {
		return
	}
	pipe := l.rdb.TxPipeline()
	l.stage(ctx, pipe, BoardPoints, p.WalletAddress, p.Points)
	l.stage(ctx, pipe, BoardStreak, p.WalletAddress, p.Streak)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.WithFields(logrus.Fields{"wallet": p.WalletAddress}).Warnf("[leaderboard] record failed: %v", err)
	}
}

func (l *Leaderboard) stage(ctx context.Context, pipe redis.Pipeliner, b Board, wallet string, score int) {
	if score <= 0 {
		pipe.ZRem(ctx, b.key(), wallet)
		return
	}
	pipe.ZAdd(ctx, b.key(), redis.Z{Score: float64(score), Member: wallet})
}

// Top returns up to limit entries, highest score first.
func (l *Leaderboard) Top(ctx context.Context, b Board, limit int) ([]LeaderboardEntry, error) {
	if l.rdb != nil {
		entries, err := l.topFromRedis(ctx, b, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			logger.WithFields(logrus.Fields{"board": b}).Warnf("[leaderboard] redis read failed, using store: %v", err)
		}
	}
	return l.topFromStore(ctx, b, limit)
}

func (l *Leaderboard) topFromRedis(ctx context.Context, b Board, limit int) ([]LeaderboardEntry, error) {
	zs, err := l.rdb.ZRevRangeWithScores(ctx, b.key(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		wallet, _ := z.Member.(string)
		out = append(out, LeaderboardEntry{Rank: i + 1, WalletAddress: wallet, Score: int(z.Score)})
	}
	return out, nil
}

func (l *Leaderboard) topFromStore(ctx context.Context, b Board, limit int) ([]LeaderboardEntry, error) {
	users, err := l.store.TopUsers(ctx, string(b), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s leaderboard: %w", b, err)
	}
	out := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		score := u.Points
		if b == BoardStreak {
			score = u.Streak
		}
		out[i] = LeaderboardEntry{Rank: i + 1, WalletAddress: u.WalletAddress, Score: score}
	}
	return out, nil
}

// Rebuild replaces a board's sorted set with the store's top limit rows.
func (l *Leaderboard) Rebuild(ctx context.Context, b Board, limit int) (int, error) {
	if l.rdb == nil {
		return 0, nil
	}
	entries, err := l.topFromStore(ctx, b, limit)
	if err != nil {
		return 0, err
	}
	pipe := l.rdb.TxPipeline()
	pipe.Del(ctx, b.key())
	for _, e := range entries {
		pipe.ZAdd(ctx, b.key(), redis.Z{Score: float64(e.Score), Member: e.WalletAddress})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to rebuild %s leaderboard: %w", b, err)
	}
	return len(entries), nil
}
