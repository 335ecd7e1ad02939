package services

import (
	"context"
	"strings"

	"goat-rush/logger"
	"goat-rush/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
)

// DefaultAnswer is recorded when a player submits nothing, matching the
// per-question auto-submit on timeout.
const DefaultAnswer = "a"

// AnswerVerifier scores submissions against the private answer view.
type AnswerVerifier struct {
	source QuestionSource
}

func NewAnswerVerifier(source QuestionSource) *AnswerVerifier {
	return &AnswerVerifier{source: source}
}

// Verify counts correct answers. answers[i] belongs to questionIDs[i]; a
// question with no collected answer or no stored record counts as incorrect.
// If the answer fetch fails the result is 0.
func (v *AnswerVerifier) Verify(ctx context.Context, questionIDs, answers []string) int {
	if len(questionIDs) == 0 {
		return 0
	}

	keys, err := v.source.ListAnswers(ctx, questionIDs)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"code":      CodeVerificationFailed,
			"questions": len(questionIDs),
		}).Errorf("[verify] failed to fetch answers: %v", err)
		return 0
	}

	byID := make(map[string]models.AnswerKey, len(keys))
	for _, k := range keys {
		byID[k.ID] = k
	}

	correct := 0
	for i, id := range questionIDs {
		if i >= len(answers) {
			break
		}
		key, ok := byID[id]
		if !ok {
			logger.WithFields(logrus.Fields{"question_id": id}).Warn("[verify] no answer record")
			continue
		}
		if AnswersMatch(answers[i], key.CorrectAnswer, key.Options) {
			correct++
		}
	}
	return correct
}

// AnswersMatch compares a submission with the stored answer, accepting either
// side as an option key or as option text. Comparison is case-insensitive
// with surrounding whitespace ignored.
func AnswersMatch(submitted, stored string, options models.Options) bool {
	s := normalize(submitted)
	if s == "" {
		s = DefaultAnswer
	}
	a := normalize(stored)
	if a == "" {
		return false
	}

	opts := make(map[string]string, len(options))
	for k, text := range options {
		opts[normalize(k)] = normalize(text)
	}

	// same key or same text
	if s == a {
		return true
	}
	// stored is a key, submission is its text
	if text, ok := opts[a]; ok && text == s {
		return true
	}
	// submission is a single-letter key for the stored text
	if len([]rune(s)) == 1 {
		if text, ok := opts[s]; ok && text == a {
			return true
		}
	}
	// any pairing of key and text across the option set
	for k, text := range opts {
		if (k == a && text == s) || (text == a && k == s) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
