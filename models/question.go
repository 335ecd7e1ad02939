package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type QuestionCategory string

const (
	CategoryCT   QuestionCategory = "ct"
	CategoryWeb3 QuestionCategory = "web3"
	CategoryNews QuestionCategory = "news"
)

// ParseCategory accepts any casing of ct, web3 or news.
func ParseCategory(s string) (QuestionCategory, bool) {
	switch c := QuestionCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryCT, CategoryWeb3, CategoryNews:
		return c, true
	}
	return "", false
}

// OptionKeys are the four answer keys every question carries.
var OptionKeys = []string{"a", "b", "c", "d"}

// Options maps an option key (a-d) to its text.
type Options map[string]string

// Question is the private row. CorrectAnswer may hold a key ("b") or the
// literal option text; rows imported by this service always store the key.
type Question struct {
	ID            string                      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Text          string                      `gorm:"type:text;not null" json:"text"`
	Category      QuestionCategory            `gorm:"type:varchar(16);not null;index" json:"category"`
	Options       datatypes.JSONType[Options] `gorm:"type:jsonb;not null" json:"options"`
	CorrectAnswer string                      `gorm:"not null" json:"-"`
	SourceURL     *string                     `json:"source_url,omitempty"`
	IsActive      bool                        `gorm:"not null;default:true;index" json:"is_active"`
	ExpiryDate    time.Time                   `gorm:"type:date;not null;index" json:"expiry_date"`

	Timestamps
}

// PublicQuestion is what a player sees: no answer.
type PublicQuestion struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Category QuestionCategory `json:"category"`
	Options  Options          `json:"options"`
}

// AnswerKey is the private view used only by answer verification.
type AnswerKey struct {
	ID            string
	CorrectAnswer string
	Options       Options
}

func (q *Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:       q.ID,
		Text:     q.Text,
		Category: q.Category,
		Options:  q.Options.Data(),
	}
}

func (q *Question) AnswerKey() AnswerKey {
	return AnswerKey{
		ID:            q.ID,
		CorrectAnswer: q.CorrectAnswer,
		Options:       q.Options.Data(),
	}
}
