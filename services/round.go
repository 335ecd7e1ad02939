package services

import (
	"sync"
	"time"

	"goat-rush/models"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

type RoundState string

const (
	StateLoading RoundState = "loading"
	StatePlaying RoundState = "playing"
	StateWin     RoundState = "win"
	StateLoss    RoundState = "loss"
)

// Terminal reports whether no further transition can happen.
func (s RoundState) Terminal() bool {
	return s == StateWin || s == StateLoss
}

// celebrationWindow is how long a win keeps its celebrate flag.
const celebrationWindow = 5 * time.Second

// RoundResult is the settled outcome of a round.
type RoundResult struct {
	Outcome               models.Outcome  `json:"outcome"`
	Correct               int             `json:"questions_correct"`
	Attempted             int             `json:"questions_attempted"`
	Earnings              decimal.Decimal `json:"earnings"`
	SettlementUnconfirmed bool            `json:"settlement_unconfirmed"`
	Warning               string          `json:"warning,omitempty"`
	Profile               *models.Profile `json:"profile,omitempty"`
	SettledAt             time.Time       `json:"settled_at"`
}

// RoundView is a point-in-time snapshot safe to hand to a client.
type RoundView struct {
	SessionID        string                 `json:"session_id"`
	State            RoundState             `json:"state"`
	TotalQuestions   int                    `json:"total_questions"`
	CurrentIndex     int                    `json:"current_index"`
	CurrentQuestion  *models.PublicQuestion `json:"current_question,omitempty"`
	AnswersSubmitted int                    `json:"answers_submitted"`
	TimeLeft         int                    `json:"time_left"`
	Deadline         *time.Time             `json:"deadline,omitempty"`
	Result           *RoundResult           `json:"result,omitempty"`
	Celebrate        bool                   `json:"celebrate"`
}

// Round is one play session. All fields are guarded by mu; transitions
// enforce the one-debit and one-settlement rules.
type Round struct {
	mu sync.Mutex

	id        string
	wallet    string
	state     RoundState
	questions []models.PublicQuestion
	answers   []string

	creditDeducted bool
	settling       bool
	gameEnded      bool

	createdAt time.Time
	deadline  time.Time
	timer     clockwork.Timer
	result    *RoundResult
	done      chan struct{}
}

func newRound(id, wallet string, now time.Time) *Round {
	return &Round{
		id:        id,
		wallet:    wallet,
		state:     StateLoading,
		createdAt: now,
		done:      make(chan struct{}),
	}
}

func (r *Round) ID() string     { return r.id }
func (r *Round) Wallet() string { return r.wallet }

// Done is closed once the round reaches a terminal state.
func (r *Round) Done() <-chan struct{} {
	return r.done
}

func (r *Round) State() RoundState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// commitQuestions fixes the question list; it can only happen once.
func (r *Round) commitQuestions(qs []models.PublicQuestion) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLoading || r.questions != nil {
		return false
	}
	r.questions = qs
	return true
}

// claimDebit returns true for exactly one caller.
func (r *Round) claimDebit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.creditDeducted {
		return false
	}
	r.creditDeducted = true
	return true
}

// begin moves loading to playing and arms the countdown.
func (r *Round) begin(clock clockwork.Clock, d time.Duration, onTimeout func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLoading || r.questions == nil || !r.creditDeducted {
		return false
	}
	r.state = StatePlaying
	r.deadline = clock.Now().Add(d)
	r.timer = clock.AfterFunc(d, onTimeout)
	return true
}

// recordAnswer appends the answer for the current question and reports
// whether all questions are now answered.
func (r *Round) recordAnswer(answer string, now time.Time) (complete bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePlaying || r.settling || r.gameEnded {
		return false, ErrRoundClosed
	}
	if !now.Before(r.deadline) {
		return false, ErrRoundClosed
	}
	if len(r.answers) >= len(r.questions) {
		return false, ErrRoundClosed
	}
	if answer == "" {
		answer = DefaultAnswer
	}
	r.answers = append(r.answers, answer)
	return len(r.answers) == len(r.questions), nil
}

// claimSettlement returns the collected answers to exactly one caller.
func (r *Round) claimSettlement() (ids, answers []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePlaying || r.settling || r.gameEnded {
		return nil, nil, false
	}
	r.settling = true
	if r.timer != nil {
		r.timer.Stop()
	}
	ids = make([]string, len(r.questions))
	for i, q := range r.questions {
		ids[i] = q.ID
	}
	answers = append([]string(nil), r.answers...)
	return ids, answers, true
}

// finish records the result and closes Done.
func (r *Round) finish(result *RoundResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gameEnded {
		return
	}
	r.result = result
	r.gameEnded = true
	r.settling = false
	if result.Outcome == models.OutcomeWin && !result.SettlementUnconfirmed {
		r.state = StateWin
	} else {
		r.state = StateLoss
	}
	close(r.done)
}

// expired reports whether the round has been idle past ttl.
func (r *Round) expired(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.gameEnded:
		return now.Sub(r.result.SettledAt) > ttl
	case r.state == StateLoading:
		return now.Sub(r.createdAt) > ttl
	default:
		return false
	}
}

// View snapshots the round at now.
func (r *Round) View(now time.Time) RoundView {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := RoundView{
		SessionID:        r.id,
		State:            r.state,
		TotalQuestions:   len(r.questions),
		AnswersSubmitted: len(r.answers),
		Result:           r.result,
	}
	if r.state == StatePlaying {
		d := r.deadline
		v.Deadline = &d
		v.TimeLeft = secondsLeft(now, r.deadline)
		if !r.settling && len(r.answers) < len(r.questions) {
			v.CurrentIndex = len(r.answers)
			q := r.questions[v.CurrentIndex]
			v.CurrentQuestion = &q
		} else {
			v.CurrentIndex = len(r.questions) - 1
		}
	}
	if r.state == StateWin && now.Before(r.result.SettledAt.Add(celebrationWindow)) {
		v.Celebrate = true
	}
	return v
}

func secondsLeft(now, deadline time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}
