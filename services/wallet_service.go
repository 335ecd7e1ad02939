package services

import (
	"context"
	"errors"

	"goat-rush/events"
	"goat-rush/logger"
	"goat-rush/models"
	"goat-rush/repository"
	"goat-rush/utils"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// WalletService owns the connected-wallet HUD: the profile snapshot and its
// push updates.
type WalletService struct {
	store   LedgerStore
	emitter *events.Emitter
	clock   clockwork.Clock
	policy  LedgerPolicy
}

func NewWalletService(store LedgerStore, emitter *events.Emitter, clock clockwork.Clock, policy LedgerPolicy) *WalletService {
	return &WalletService{store: store, emitter: emitter, clock: clock, policy: policy}
}

// Connect normalises the address, creates a zeroed ledger row if the wallet
// is new and publishes the resulting profile.
func (s *WalletService) Connect(ctx context.Context, address string, chain models.Chain) (*models.Profile, error) {
	wallet, chain, err := utils.NormalizeWallet(address, chain)
	if err != nil {
		return nil, ErrInvalidWallet.Wrap(err)
	}
	user, err := s.store.EnsureUser(ctx, wallet, chain)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"wallet": wallet, "chain": chain}).Info("[wallet] connected")
	profile := user.Profile()
	s.Publish(profile)
	return &profile, nil
}

// Refresh re-reads the ledger row and publishes it to subscribers.
func (s *WalletService) Refresh(ctx context.Context, wallet string) (*models.Profile, error) {
	user, err := s.store.GetUser(ctx, wallet)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	s.Publish(profile)
	return &profile, nil
}

// RefreshWithRetry tries Refresh up to the refresh budget. It never fails the
// caller; the last error is only logged.
func (s *WalletService) RefreshWithRetry(ctx context.Context, wallet string) *models.Profile {
	var lastErr error
	for attempt := 1; attempt <= s.policy.Refresh.attempts(); attempt++ {
		profile, err := s.Refresh(ctx, wallet)
		if err == nil {
			return profile
		}
		lastErr = err
		if errors.Is(err, repository.ErrUserNotFound) {
			break
		}
		if werr := s.policy.Refresh.wait(ctx, s.clock, attempt); werr != nil {
			lastErr = werr
			break
		}
	}
	logger.WithFields(logrus.Fields{"wallet": wallet}).Warnf("[wallet] refresh failed: %v", lastErr)
	return nil
}

// Subscribe calls fn with every profile published for wallet until the
// returned function is called.
func (s *WalletService) Subscribe(wallet string, fn func(models.Profile)) func() {
	return s.emitter.Subscribe(events.EventProfileRefreshed, wallet, func(ev events.Event) {
		if p, ok := ev.Data["profile"].(models.Profile); ok {
			fn(p)
		}
	})
}

// History returns the newest entries, clamping limit to [1, MaxHistoryLimit].
func (s *WalletService) History(ctx context.Context, wallet string, limit int) ([]models.GameHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.store.ListHistory(ctx, wallet, limit)
}

// Publish pushes p to HUD subscribers without touching the store.
func (s *WalletService) Publish(p models.Profile) {
	s.emitter.Emit(events.Event{
		Type:   events.EventProfileRefreshed,
		Wallet: p.WalletAddress,
		Data:   map[string]any{"profile": p},
	})
}
