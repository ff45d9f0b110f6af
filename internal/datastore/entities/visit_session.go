package entities

import (
	"fmt"
	"slices"
	"time"
)

// VisitStatus is the lifecycle state of a visit.
type VisitStatus string

const (
	VisitStatusPlanned   VisitStatus = "planned"
	VisitStatusCompleted VisitStatus = "completed"
	VisitStatusCancelled VisitStatus = "cancelled"
)

// ParseVisitStatus accepts the three known statuses.
func ParseVisitStatus(s string) (VisitStatus, error) {
	switch status := VisitStatus(s); status {
	case VisitStatusPlanned, VisitStatusCompleted, VisitStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown visit status %q", s)
	}
}

// VisitSession is one visit to a nursery. It belongs to exactly one Nursery.
type VisitSession struct {
	ID         string      `json:"id" validate:"required"`
	VisitDate  time.Time   `json:"visitDate"`
	Status     VisitStatus `json:"status" validate:"oneof=planned completed cancelled"`
	Questions  []Question  `json:"questions" validate:"dive"`
	Insights   []string    `json:"insights"`
	SharedWith []string    `json:"sharedWith,omitempty"`
	// AutoCreated marks the default session made on a caller's behalf.
	AutoCreated bool      `json:"autoCreated,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewVisitSession returns an empty planned session for the given date.
func NewVisitSession(id string, visitDate, now time.Time) VisitSession {
	return VisitSession{
		ID:        id,
		VisitDate: visitDate,
		Status:    VisitStatusPlanned,
		Questions: []Question{},
		Insights:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (s VisitSession) Clone() VisitSession {
	s.Questions = CloneQuestions(s.Questions)
	s.Insights = slices.Clone(s.Insights)
	s.SharedWith = slices.Clone(s.SharedWith)
	return s
}

// NewDefaultVisitSession returns the empty session created when a nursery needs one.
func NewDefaultVisitSession(id string, now time.Time) VisitSession {
	s := NewVisitSession(id, now, now)
	s.AutoCreated = true
	return s
}

// IsPlaceholder reports whether the session was auto-created and never touched.
func (s *VisitSession) IsPlaceholder() bool {
	return s.AutoCreated &&
		s.Status == VisitStatusPlanned &&
		len(s.Questions) == 0 &&
		len(s.Insights) == 0 &&
		len(s.SharedWith) == 0 &&
		s.CreatedAt.Equal(s.UpdatedAt)
}

// FindQuestion returns the index of the question with the given id.
func (s *VisitSession) FindQuestion(id string) (int, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// AnsweredCount returns how many questions carry an answer.
func (s *VisitSession) AnsweredCount() int {
	n := 0
	for i := range s.Questions {
		if s.Questions[i].IsAnswered {
			n++
		}
	}
	return n
}
