package services

import (
	"context"
	"errors"
	"fmt"

	"goat-rush/logger"
	"goat-rush/models"
	"goat-rush/repository"
	"goat-rush/utils"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	MinPurchaseQuantity = 1
	MaxPurchaseQuantity = 10
)

// PurchaseService grants credits without an on-chain payment. It exists for
// development and is off unless explicitly enabled.
type PurchaseService struct {
	store   LedgerStore
	wallets *WalletService
	clock   clockwork.Clock
	policy  LedgerPolicy
	enabled bool
}

func NewPurchaseService(store LedgerStore, wallets *WalletService, clock clockwork.Clock, policy LedgerPolicy, enabled bool) *PurchaseService {
	return &PurchaseService{store: store, wallets: wallets, clock: clock, policy: policy, enabled: enabled}
}

// Simulate adds quantity credits to the wallet, creating the user if needed,
// and returns the new credit total.
func (s *PurchaseService) Simulate(ctx context.Context, address string, chain models.Chain, quantity int) (int, error) {
	if !s.enabled {
		return 0, ErrFeatureDisabled
	}
	if !chain.Valid() {
		return 0, ErrInvalidInput.Wrap(errors.New(`chain must be "solana" or "base"`))
	}
	if quantity < MinPurchaseQuantity || quantity > MaxPurchaseQuantity {
		return 0, ErrInvalidInput.Wrap(fmt.Errorf("quantity must be an integer between %d and %d", MinPurchaseQuantity, MaxPurchaseQuantity))
	}
	wallet, chain, err := utils.NormalizeWallet(address, chain)
	if err != nil {
		return 0, ErrInvalidWallet.Wrap(err)
	}
	if _, err := s.store.EnsureUser(ctx, wallet, chain); err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	log := logger.WithFields(logrus.Fields{"wallet": wallet, "quantity": quantity})
	var lastErr error
	for attempt := 1; attempt <= s.policy.Mutation.attempts(); attempt++ {
		total, err := s.addCredits(ctx, wallet, quantity)
		if err == nil {
			s.record(ctx, wallet, chain, quantity)
			log.Infof("[purchase] simulated purchase, %d credits now", total)
			s.wallets.RefreshWithRetry(ctx, wallet)
			return total, nil
		}
		lastErr = err
		log.Warnf("[purchase] attempt %d failed: %v", attempt, err)
		if werr := s.policy.Mutation.wait(ctx, s.clock, attempt); werr != nil {
			return 0, werr
		}
	}
	log.Errorf("[purchase] failed to update credits: %v", lastErr)
	return 0, fmt.Errorf("failed to update credits: %w", lastErr)
}

func (s *PurchaseService) addCredits(ctx context.Context, wallet string, quantity int) (int, error) {
	user, err := s.store.GetUser(ctx, wallet)
	if err != nil {
		return 0, err
	}
	total := user.Credits + quantity
	ok, err := s.store.CompareAndSwap(ctx, wallet,
		repository.Guard{"credits": user.Credits},
		map[string]any{"credits": total})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New("credits changed concurrently")
	}
	return total, nil
}

func (s *PurchaseService) record(ctx context.Context, wallet string, chain models.Chain, quantity int) {
	now := s.clock.Now().UTC()
	p := &models.Purchase{
		ID:             uuid.NewString(),
		WalletAddress:  wallet,
		Chain:          chain,
		TxHash:         "simulated-" + uuid.NewString(),
		Quantity:       quantity,
		TokensCredited: quantity,
		Status:         models.PurchaseStatusConfirmed,
		ConfirmedAt:    &now,
	}
	if err := s.store.RecordPurchase(ctx, p); err != nil {
		logger.WithFields(logrus.Fields{"wallet": wallet}).Warnf("[purchase] failed to record purchase: %v", err)
	}
}
