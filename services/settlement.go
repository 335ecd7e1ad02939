package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"goat-rush/logger"
	"goat-rush/models"
	"goat-rush/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// balanceEpsilon absorbs representation noise when comparing balances.
var balanceEpsilon = decimal.New(1, -3)

// SettlementResult describes what a round settled to.
type SettlementResult struct {
	Outcome  models.Outcome  `json:"outcome"`
	Correct  int             `json:"questions_correct"`
	Earnings decimal.Decimal `json:"earnings"`
	Profile  *models.Profile `json:"profile,omitempty"`
}

// SettlementService applies the win/loss effect of a round to the ledger and
// appends a history entry.
type SettlementService struct {
	store             LedgerStore
	clock             clockwork.Clock
	policy            LedgerPolicy
	payout            decimal.Decimal
	questionsPerRound int

	history sync.WaitGroup
}

func NewSettlementService(store LedgerStore, clock clockwork.Clock, policy LedgerPolicy, payout decimal.Decimal, questionsPerRound int) *SettlementService {
	return &SettlementService{
		store:             store,
		clock:             clock,
		policy:            policy,
		payout:            payout.Round(2),
		questionsPerRound: questionsPerRound,
	}
}

type settleTarget struct {
	prev    *models.User
	balance decimal.Decimal
	points  int
	streak  int
	wins    int
}

func (t settleTarget) landed(u *models.User) bool {
	return u.Balance.Sub(t.balance).Abs().LessThan(balanceEpsilon) &&
		u.Points == t.points &&
		u.Streak == t.streak &&
		u.TotalWins == t.wins
}

func (t settleTarget) stale(u *models.User) bool {
	return u.Balance.Sub(t.prev.Balance).Abs().LessThan(balanceEpsilon) &&
		u.Points == t.prev.Points &&
		u.Streak == t.prev.Streak &&
		u.TotalWins == t.prev.TotalWins
}

// Settle records the outcome of a round with correct answers out of
// attempted questions. A win pays out, adds a point and extends the streak; a
// loss only resets the streak. When the ledger write cannot be confirmed the
// computed result is returned together with ErrSettlementUnconfirmed and no
// history entry is written.
func (s *SettlementService) Settle(ctx context.Context, wallet, sessionID string, correct, attempted int) (*SettlementResult, error) {
	log := logger.WithFields(logrus.Fields{"wallet": wallet, "session_id": sessionID, "op": "settle"})

	result := &SettlementResult{
		Outcome:  models.OutcomeLoss,
		Correct:  correct,
		Earnings: decimal.Zero,
	}
	if correct == s.questionsPerRound {
		result.Outcome = models.OutcomeWin
		result.Earnings = s.payout
	}

	var pending *settleTarget
	var lastErr error
	for attempt := 1; attempt <= s.policy.Mutation.attempts(); attempt++ {
		user, err := s.store.GetUser(ctx, wallet)
		if err != nil {
			lastErr = err
			log.Warnf("[settle] read failed on attempt %d: %v", attempt, err)
			if errors.Is(err, repository.ErrUserNotFound) {
				break
			}
			if werr := s.policy.Mutation.wait(ctx, s.clock, attempt); werr != nil {
				lastErr = werr
				break
			}
			continue
		}

		if pending != nil && pending.landed(user) {
			log.Infof("[settle] settlement from attempt %d confirmed late", attempt-1)
			return s.finish(ctx, result, user, sessionID, attempted), nil
		}

		target := s.target(user, result.Outcome)
		ok, err := s.store.CompareAndSwap(ctx, wallet,
			repository.Guard{"balance": user.Balance, "points": user.Points},
			s.updates(target, result.Outcome))
		switch {
		case err != nil:
			lastErr = err
			log.Warnf("[settle] conditional update failed on attempt %d: %v", attempt, err)
		case !ok:
			lastErr = errors.New("balance or points changed concurrently")
			log.Warnf("[settle] conflict on attempt %d", attempt)
		default:
			pending = &target
			confirmed, err := s.confirm(ctx, wallet, target)
			if err != nil {
				lastErr = err
				break
			}
			if confirmed != nil {
				return s.finish(ctx, result, confirmed, sessionID, attempted), nil
			}
			lastErr = errors.New("settlement not visible after read-back")
			log.Warnf("[settle] read-back never showed the settlement on attempt %d", attempt)
		}

		if werr := s.policy.Mutation.wait(ctx, s.clock, attempt); werr != nil {
			lastErr = werr
			break
		}
	}

	log.WithField("code", CodeSettlementUnconfirmed).Errorf("[settle] giving up: %v", lastErr)
	return result, ErrSettlementUnconfirmed.Wrap(lastErr)
}

func (s *SettlementService) target(user *models.User, outcome models.Outcome) settleTarget {
	t := settleTarget{
		prev:    user,
		balance: user.Balance,
		points:  user.Points,
		streak:  0,
		wins:    user.TotalWins,
	}
	if outcome == models.OutcomeWin {
		t.balance = user.Balance.Add(s.payout).Round(2)
		t.points = user.Points + 1
		t.streak = user.Streak + 1
		t.wins = user.TotalWins + 1
	}
	return t
}

func (s *SettlementService) updates(t settleTarget, outcome models.Outcome) map[string]any {
	if outcome != models.OutcomeWin {
		return map[string]any{"streak": 0}
	}
	return map[string]any{
		"balance":    t.balance,
		"points":     t.points,
		"streak":     t.streak,
		"total_wins": t.wins,
		"last_win":   s.clock.Now().UTC(),
	}
}

func (s *SettlementService) confirm(ctx context.Context, wallet string, target settleTarget) (*models.User, error) {
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

func (s *SettlementService) finish(ctx context.Context, result *SettlementResult, user *models.User, sessionID string, attempted int) *SettlementResult {
	profile := user.Profile()
	result.Profile = &profile

	entry := &models.GameHistory{
		ID:                 uuid.NewString(),
		UserID:             user.ID,
		WalletAddress:      user.WalletAddress,
		SessionID:          sessionID,
		QuestionsAttempted: attempted,
		QuestionsCorrect:   result.Correct,
		Outcome:            result.Outcome,
		Earnings:           result.Earnings,
		Timestamp:          s.clock.Now().UTC(),
	}
	s.appendHistory(context.WithoutCancel(ctx), entry)

	logger.WithFields(logrus.Fields{
		"wallet":   user.WalletAddress,
		"outcome":  result.Outcome,
		"correct":  result.Correct,
		"earnings": result.Earnings.StringFixed(2),
	}).Info("[settle] round settled")
	return result
}

// appendHistory writes the entry in the background; a failure is logged and
// never affects the settled outcome.
func (s *SettlementService) appendHistory(ctx context.Context, entry *models.GameHistory) {
	s.history.Add(1)
	go func() {
		defer s.history.Done()
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.store.InsertHistory(ctx, entry); err != nil {
			logger.WithFields(logrus.Fields{
				"wallet":     entry.WalletAddress,
				"session_id": entry.SessionID,
			}).Errorf("[settle] failed to append history: %v", err)
		}
	}()
}

// Flush waits for pending history writes.
func (s *SettlementService) Flush() {
	s.history.Wait()
}
