package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"goat-rush/events"
	"goat-rush/logger"
	"goat-rush/models"
	"goat-rush/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// timeoutSettleBudget bounds settlement triggered by the countdown.
const timeoutSettleBudget = 30 * time.Second

type GameSettings struct {
	RoundDuration time.Duration
	SessionTTL    time.Duration
}

type GameDeps struct {
	Store      LedgerStore
	Questions  *QuestionService
	Credits    *CreditService
	Verifier   *AnswerVerifier
	Settlement *SettlementService
	Wallets    *WalletService
	Board      *Leaderboard
	Emitter    *events.Emitter
	Clock      clockwork.Clock
}

// GameService runs rounds: it debits, serves questions, runs the countdown
// and settles. A wallet has at most one unfinished round at a time.
type GameService struct {
	GameDeps
	settings GameSettings

	mu     sync.Mutex
	rounds map[string]*Round
	active map[string]*Round

	background sync.WaitGroup
}

func NewGameService(deps GameDeps, settings GameSettings) *GameService {
	return &GameService{
		GameDeps: deps,
		settings: settings,
		rounds:   make(map[string]*Round),
		active:   make(map[string]*Round),
	}
}

// StartRound loads questions, debits one credit and starts the countdown.
// Nothing is debited if the question pool is too small.
func (s *GameService) StartRound(ctx context.Context, wallet string) (*RoundView, error) {
	log := logger.WithFields(logrus.Fields{"wallet": wallet})

	user, err := s.Store.GetUser(ctx, wallet)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, ErrInsufficientCredits
	case err != nil:
		log.Warnf("[game] credit check failed: %v", err)
		return nil, ErrCreditDebitFailed.Wrap(err)
	case user.Credits < 1:
		return nil, ErrInsufficientCredits
	}

	round, err := s.register(wallet)
	if err != nil {
		return nil, err
	}
	log = log.WithField("session_id", round.ID())

	questions, err := s.Questions.FetchRound(ctx)
	if err != nil {
		s.discard(round)
		log.Warnf("[game] round aborted before debit: %v", err)
		return nil, err
	}
	round.commitQuestions(questions)

	if round.claimDebit() {
		debited, err := s.Credits.DebitOne(ctx, wallet)
		if err != nil {
			s.discard(round)
			log.Warnf("[game] round aborted, debit failed: %v", err)
			return nil, err
		}
		s.Wallets.Publish(debited.Profile())
	}

	if !round.begin(s.Clock, s.settings.RoundDuration, func() { s.onTimeout(round) }) {
		s.discard(round)
		return nil, ErrRoundClosed
	}

	s.Emitter.Emit(events.Event{
		Type:   events.EventRoundStarted,
		Wallet: wallet,
		Data:   map[string]any{"session_id": round.ID()},
	})
	log.Info("[game] round started")

	view := round.View(s.Clock.Now())
	return &view, nil
}

func (s *GameService) register(wallet string) (*Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.active[wallet]; cur != nil && !cur.State().Terminal() {
		return nil, ErrRoundInProgress
	}
	round := newRound(uuid.NewString(), wallet, s.Clock.Now())
	s.rounds[round.ID()] = round
	s.active[wallet] = round
	return round, nil
}

func (s *GameService) discard(round *Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rounds, round.ID())
	if s.active[round.Wallet()] == round {
		delete(s.active, round.Wallet())
	}
}

func (s *GameService) lookup(wallet, sessionID string) (*Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	round, ok := s.rounds[sessionID]
	if !ok || round.Wallet() != wallet {
		return nil, ErrRoundNotFound
	}
	return round, nil
}

// GetRound returns the current view of one of wallet's rounds.
func (s *GameService) GetRound(wallet, sessionID string) (*RoundView, error) {
	round, err := s.lookup(wallet, sessionID)
	if err != nil {
		return nil, err
	}
	view := round.View(s.Clock.Now())
	return &view, nil
}

// SubmitAnswer records the answer to the current question. The answer that
// completes the round triggers settlement and the returned view is terminal.
func (s *GameService) SubmitAnswer(ctx context.Context, wallet, sessionID, answer string) (*RoundView, error) {
	round, err := s.lookup(wallet, sessionID)
	if err != nil {
		return nil, err
	}

	complete, err := round.recordAnswer(answer, s.Clock.Now())
	if err != nil {
		view := round.View(s.Clock.Now())
		return &view, err
	}
	if complete {
		s.settle(ctx, round)
	}
	view := round.View(s.Clock.Now())
	return &view, nil
}

// Reinvest starts a fresh round once the previous one has ended.
func (s *GameService) Reinvest(ctx context.Context, wallet, sessionID string) (*RoundView, error) {
	round, err := s.lookup(wallet, sessionID)
	if err != nil {
		return nil, err
	}
	if !round.State().Terminal() {
		return nil, ErrRoundInProgress
	}
	return s.StartRound(ctx, wallet)
}

func (s *GameService) onTimeout(round *Round) {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutSettleBudget)
	defer cancel()
	logger.WithFields(logrus.Fields{"wallet": round.Wallet(), "session_id": round.ID()}).Info("[game] countdown expired")
	s.settle(ctx, round)
}

// settle verifies and settles round exactly once. Concurrent callers wait for
// the winner to finish.
func (s *GameService) settle(ctx context.Context, round *Round) {
	ids, answers, ok := round.claimSettlement()
	if !ok {
		select {
		case <-round.Done():
		case <-ctx.Done():
		}
		return
	}
	// Registered before Done closes so Wait always covers the follow-up.
	s.background.Add(1)

	ctx = context.WithoutCancel(ctx)
	correct := s.Verifier.Verify(ctx, ids, answers)
	res, err := s.Settlement.Settle(ctx, round.Wallet(), round.ID(), correct, len(ids))

	result := &RoundResult{
		Outcome:   res.Outcome,
		Correct:   correct,
		Attempted: len(ids),
		Earnings:  res.Earnings,
		Profile:   res.Profile,
		SettledAt: s.Clock.Now(),
	}
	if err != nil {
		result.Outcome = models.OutcomeLoss
		result.Earnings = decimal.Zero
		result.SettlementUnconfirmed = true
		result.Warning = ErrSettlementUnconfirmed.Message
	}
	round.finish(result)

	s.Emitter.Emit(events.Event{
		Type:   events.EventRoundSettled,
		Wallet: round.Wallet(),
		Data: map[string]any{
			"session_id":             round.ID(),
			"outcome":                result.Outcome,
			"questions_correct":      result.Correct,
			"settlement_unconfirmed": result.SettlementUnconfirmed,
		},
	})

	go func() {
		defer s.background.Done()
		if res.Profile != nil && s.Board != nil {
			s.Board.Record(ctx, *res.Profile)
		}
		s.Wallets.RefreshWithRetry(ctx, round.Wallet())
	}()
}

// Sweep drops rounds that ended, or never started, more than the session TTL
// ago. It returns how many were removed.
func (s *GameService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, round := range s.rounds {
		if !round.expired(now, s.settings.SessionTTL) {
			continue
		}
		delete(s.rounds, id)
		if s.active[round.Wallet()] == round {
			delete(s.active, round.Wallet())
		}
		removed++
	}
	return removed
}

// Wait blocks until background refreshes and history writes are done.
func (s *GameService) Wait() {
	s.background.Wait()
	s.Settlement.Flush()
}
