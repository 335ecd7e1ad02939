package testutil

import (
	"context"
	"sync"
	"time"

	"goat-rush/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemQuestions is an in-memory question store serving both the public and
// the private view.
type MemQuestions struct {
	mu        sync.Mutex
	questions []models.Question

	// ListErr and AnswersErr are returned by the corresponding reads when set.
	ListErr    error
	AnswersErr error
}

func NewMemQuestions() *MemQuestions {
	return &MemQuestions{}
}

// Add stores an active, unexpired question and returns its ID.
func (m *MemQuestions) Add(text, correct string, options models.Options) string {
	q := models.Question{
		ID:            uuid.NewString(),
		Text:          text,
		Category:      models.CategoryWeb3,
		Options:       datatypes.NewJSONType(options),
		CorrectAnswer: correct,
		IsActive:      true,
		ExpiryDate:    time.Now().Add(24 * time.Hour),
	}
	m.mu.Lock()
	m.questions = append(m.questions, q)
	m.mu.Unlock()
	return q.ID
}

// AddStandard adds n questions whose correct answer is key "b".
func (m *MemQuestions) AddStandard(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = m.Add("Which option is the right one here?", "b", models.Options{
			"a": "Alpha", "b": "Bravo", "c": "Charlie", "d": "Delta",
		})
	}
	return ids
}

func (m *MemQuestions) All() []models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Question(nil), m.questions...)
}

func (m *MemQuestions) ListActive(ctx context.Context, limit int) ([]models.PublicQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []models.PublicQuestion
	for i := range m.questions {
		if len(out) == limit {
			break
		}
		if m.questions[i].IsActive {
			out = append(out, m.questions[i].Public())
		}
	}
	return out, nil
}

func (m *MemQuestions) ListAnswers(ctx context.Context, ids []string) ([]models.AnswerKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AnswersErr != nil {
		return nil, m.AnswersErr
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.AnswerKey
	for i := range m.questions {
		if want[m.questions[i].ID] {
			out = append(out, m.questions[i].AnswerKey())
		}
	}
	return out, nil
}

func (m *MemQuestions) BulkInsert(ctx context.Context, questions []models.Question) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, questions...)
	return len(questions), nil
}

func (m *MemQuestions) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.questions {
		if m.questions[i].IsActive && m.questions[i].ExpiryDate.Before(now) {
			m.questions[i].IsActive = false
			n++
		}
	}
	return n, nil
}
