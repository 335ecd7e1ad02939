package services

import (
	"context"
	"errors"

	"goat-rush/logger"
	"goat-rush/models"
	"goat-rush/repository"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// CreditService removes exactly one credit per round.
type CreditService struct {
	store  LedgerStore
	clock  clockwork.Clock
	policy LedgerPolicy
}

func NewCreditService(store LedgerStore, clock clockwork.Clock, policy LedgerPolicy) *CreditService {
	return &CreditService{store: store, clock: clock, policy: policy}
}

// debitTarget is the row state a successful debit writes.
type debitTarget struct {
	prevCredits int
	prevPlays   int
	credits     int
	plays       int
}

func (t debitTarget) landed(u *models.User) bool {
	return u.Credits == t.credits && u.TotalPlays == t.plays
}

// stale reports that the read still shows the pre-image.
func (t debitTarget) stale(u *models.User) bool {
	return u.Credits == t.prevCredits && u.TotalPlays == t.prevPlays
}

// DebitOne decrements credits by one and increments total plays with a
// conditional update guarded on the credits value read just before, then
// reads the row back until the write is visible. The whole attempt is retried
// on conflict or when the write never becomes visible.
func (s *CreditService) DebitOne(ctx context.Context, wallet string) (*models.User, error) {
	log := logger.WithFields(logrus.Fields{"wallet": wallet, "op": "debit"})

	var pending *debitTarget
	var lastErr error
	for attempt := 1; attempt <= s.policy.Mutation.attempts(); attempt++ {
		user, err := s.store.GetUser(ctx, wallet)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrInsufficientCredits
		case err != nil:
			lastErr = err
			log.Warnf("[credit] read failed on attempt %d: %v", attempt, err)
			if werr := s.policy.Mutation.wait(ctx, s.clock, attempt); werr != nil {
				return nil, ErrCreditDebitFailed.Wrap(werr)
			}
			continue
		}

		// A previous attempt's write may have become visible late.
		if pending != nil && pending.landed(user) {
			log.Infof("[credit] debit from attempt %d confirmed late", attempt-1)
			return user, nil
		}

		if user.Credits < 1 {
			return nil, ErrInsufficientCredits
		}

		target := debitTarget{
			prevCredits: user.Credits,
			prevPlays:   user.TotalPlays,
			credits:     user.Credits - 1,
			plays:       user.TotalPlays + 1,
		}
		ok, err := s.store.CompareAndSwap(ctx, wallet,
			repository.Guard{"credits": user.Credits},
			map[string]any{
				"credits":     target.credits,
				"total_plays": target.plays,
				"last_play":   s.clock.Now().UTC(),
			})
		switch {
		case err != nil:
			lastErr = err
			log.Warnf("[credit] conditional update failed on attempt %d: %v", attempt, err)
		case !ok:
			lastErr = errors.New("credits changed concurrently")
			log.Warnf("[credit] conflict on attempt %d", attempt)
		default:
			pending = &target
			confirmed, err := s.confirm(ctx, wallet, target)
			if err != nil {
				return nil, ErrCreditDebitFailed.Wrap(err)
			}
			if confirmed != nil {
				log.Infof("[credit] debited 1 credit, %d left", confirmed.Credits)
				return confirmed, nil
			}
			lastErr = errors.New("debit not visible after read-back")
			log.Warnf("[credit] read-back never showed the debit on attempt %d", attempt)
		}

		if werr := s.policy.Mutation.wait(ctx, s.clock, attempt); werr != nil {
			return nil, ErrCreditDebitFailed.Wrap(werr)
		}
	}

	log.Errorf("[credit] giving up: %v", lastErr)
	return nil, ErrCreditDebitFailed.Wrap(lastErr)
}

// confirm polls the row until the debit is visible. A row that has moved past
// the pre-image also counts, since the guarded write preceded that change.
func (s *CreditService) confirm(ctx context.Context, wallet string, target debitTarget) (*models.User, error) {
	for i := 1; i <= s.policy.Verify.attempts(); i++ {
		user, err := s.store.GetUser(ctx, wallet)
		if err == nil && (target.landed(user) || !target.stale(user)) {
			return user, nil
		}
		if err := s.policy.Verify.wait(ctx, s.clock, i); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
