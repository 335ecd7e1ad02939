package services

import (
	"context"
	"math/rand"

	"goat-rush/logger"
	"goat-rush/models"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// QuestionService draws rounds from the public question view.
type QuestionService struct {
	source    QuestionSource
	clock     clockwork.Clock
	retry     RetryPolicy
	perRound  int
	poolLimit int
	shuffle   func(n int, swap func(i, j int))
}

func NewQuestionService(source QuestionSource, clock clockwork.Clock, retry RetryPolicy, perRound, poolLimit int) *QuestionService {
	return &QuestionService{
		source:    source,
		clock:     clock,
		retry:     retry,
		perRound:  perRound,
		poolLimit: poolLimit,
		shuffle:   rand.Shuffle,
	}
}

// FetchRound returns perRound distinct questions picked at random from up to
// poolLimit active ones. Fewer available questions is an error.
func (s *QuestionService) FetchRound(ctx context.Context) ([]models.PublicQuestion, error) {
	var pool []models.PublicQuestion
	var err error
	for attempt := 1; attempt <= s.retry.attempts(); attempt++ {
		pool, err = s.source.ListActive(ctx, s.poolLimit)
		if err == nil {
			break
		}
		logger.WithFields(logrus.Fields{"attempt": attempt}).Warnf("[questions] failed to list active questions: %v", err)
		if werr := s.retry.wait(ctx, s.clock, attempt); werr != nil {
			return nil, ErrInsufficientQuestionPool.Wrap(werr)
		}
	}
	if err != nil {
		return nil, ErrInsufficientQuestionPool.Wrap(err)
	}

	pool = dedupe(pool)
	if len(pool) < s.perRound {
		logger.WithFields(logrus.Fields{"available": len(pool), "needed": s.perRound}).
			Warn("[questions] question pool too small")
		return nil, ErrInsufficientQuestionPool
	}

	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	round := make([]models.PublicQuestion, s.perRound)
	copy(round, pool[:s.perRound])
	return round, nil
}

func dedupe(pool []models.PublicQuestion) []models.PublicQuestion {
	seen := make(map[string]bool, len(pool))
	out := make([]models.PublicQuestion, 0, len(pool))
	for _, q := range pool {
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out
}
