package entities

import (
	"strings"
	"time"
)

// Field limits, counted in runes after trimming.
const (
	MaxQuestionTextLength = 500
	MaxAnswerLength       = 1000
)

// Question is a single item on a visit checklist.
// IsAnswered is derived from Answer and must not be set independently.
type Question struct {
	ID         string    `json:"id" validate:"required"`
	Text       string    `json:"text" validate:"required,max=500"`
	Answer     string    `json:"answer,omitempty" validate:"max=1000"`
	IsAnswered bool      `json:"isAnswered"`
	Category   string    `json:"category,omitempty" validate:"max=100"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewQuestion returns an unanswered question stamped with now.
func NewQuestion(id, text string, now time.Time) Question {
	return Question{
		ID:        id,
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Normalize trims text and answer and recomputes IsAnswered.
func (q Question) Normalize() Question {
	q.Text = strings.TrimSpace(q.Text)
	q.Answer = strings.TrimSpace(q.Answer)
	q.IsAnswered = q.Answer != ""
	return q
}

// WithAnswer returns a copy carrying the trimmed answer. An empty answer clears it.
func (q Question) WithAnswer(answer string, now time.Time) Question {
	q.Answer = answer
	q.UpdatedAt = now
	return q.Normalize()
}

// WithText returns a copy with replaced text.
func (q Question) WithText(text string, now time.Time) Question {
	q.Text = text
	q.UpdatedAt = now
	return q.Normalize()
}

// CloneQuestions returns a copy of qs that shares no backing array with it.
func CloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}
