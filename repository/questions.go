package repository

import (
	"context"
	"time"

	"goat-rush/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PublicViewName is the answerless projection players read from.
const PublicViewName = "questions_public"

type QuestionRepository struct {
	db    *gorm.DB
	clock clockwork.Clock
}

func NewQuestionRepository(db *gorm.DB, clock clockwork.Clock) *QuestionRepository {
	return &QuestionRepository{db: db, clock: clock}
}

// EnsurePublicView (re)creates the answerless view over questions.
func EnsurePublicView(db *gorm.DB) error {
	return db.Exec(`
		CREATE OR REPLACE VIEW ` + PublicViewName + ` AS
		SELECT id, text, category, options, source_url, is_active, expiry_date, created_at
		FROM questions
	`).Error
}

type publicRow struct {
	ID       string
	Text     string
	Category models.QuestionCategory
	Options  datatypes.JSONType[models.Options]
}

// ListActive returns up to limit active, unexpired questions without answers.
func (r *QuestionRepository) ListActive(ctx context.Context, limit int) ([]models.PublicQuestion, error) {
	var rows []publicRow
	err := r.db.WithContext(ctx).
		Table(PublicViewName).
		Select("id, text, category, options").
		Where("is_active = ? AND expiry_date >= ?", true, dateOf(r.clock.Now())).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.PublicQuestion, len(rows))
	for i, row := range rows {
		out[i] = models.PublicQuestion{
			ID:       row.ID,
			Text:     row.Text,
			Category: row.Category,
			Options:  row.Options.Data(),
		}
	}
	return out, nil
}

// ListAnswers reads authoritative answers for ids from the private table.
func (r *QuestionRepository) ListAnswers(ctx context.Context, ids []string) ([]models.AnswerKey, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Select("id, correct_answer, options").
		Where("id IN ?", ids).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.AnswerKey, len(questions))
	for i := range questions {
		out[i] = questions[i].AnswerKey()
	}
	return out, nil
}

// BulkInsert creates questions in batches and returns how many were written.
// Callers assign IDs.
func (r *QuestionRepository) BulkInsert(ctx context.Context, questions []models.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).CreateInBatches(&questions, 50)
	return int(res.RowsAffected), res.Error
}

// DeactivateExpired flips is_active off for rows whose expiry date has passed.
func (r *QuestionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("is_active = ? AND expiry_date < ?", true, dateOf(now)).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
