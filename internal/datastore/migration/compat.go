package migration

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/datastore/mapper"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
)

// ErrVisitSessionNotFound is returned when no nursery owns the requested session.
var ErrVisitSessionNotFound = errors.NewStd("visit session not found")

// Compat serves call sites that still read and write the flat QuestionList shape.
// Every call migrates first and stores the result in the nursery shape.
type Compat struct {
	migrator *Migrator
	mu       sync.Mutex
}

// NewCompat returns adapters over m.
func NewCompat(m *Migrator) *Compat {
	return &Compat{migrator: m}
}

// GetAllQuestionLists returns every visit session flattened into a QuestionList.
func (c *Compat) GetAllQuestionLists(ctx context.Context) ([]entities.QuestionList, error) {
	nurseries, err := c.migrator.Nurseries(ctx)
	if err != nil {
		return nil, err
	}
	return mapper.NurseriesToQuestionLists(nurseries), nil
}

// CreateQuestionList stores input as a new visit session of the nursery with the
// same name, creating the nursery when none exists. Untouched placeholder sessions
// of a reused nursery are dropped. It returns the new session id.
func (c *Compat) CreateQuestionList(ctx context.Context, input *entities.QuestionListInput) (string, error) {
	if err := entities.Validate(input); err != nil {
		return "", err
	}
	questions, err := normalizeQuestions(input.Questions)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nurseries, err := c.migrator.Nurseries(ctx)
	if err != nil {
		return "", err
	}

	m := c.migrator
	now := m.now()
	name := strings.TrimSpace(input.NurseryName)
	if name == "" {
		name = strings.TrimSpace(input.Title)
	}

	visitDate := now
	if input.VisitDate != nil && !input.VisitDate.IsZero() {
		visitDate = *input.VisitDate
	}

	session := entities.NewVisitSession(m.newID(), visitDate, now)
	session.Questions = append(session.Questions, questions...)
	session.SharedWith = slices.Clone(input.SharedWith)

	idx := slices.IndexFunc(nurseries, func(n entities.Nursery) bool { return n.Name == name })
	if idx < 0 {
		n := entities.NewNursery(m.newID(), name, now)
		n.VisitSessions = []entities.VisitSession{session}
		nurseries = append(nurseries, n)
	} else {
		n := nurseries[idx].Clone()
		n.VisitSessions = slices.DeleteFunc(n.VisitSessions, func(s entities.VisitSession) bool {
			return s.IsPlaceholder()
		})
		n.VisitSessions = append(n.VisitSessions, session)
		n.UpdatedAt = now
		nurseries[idx] = n
	}

	if err := m.nurseries.Save(ctx, nurseries); err != nil {
		return "", err
	}

	m.log.Debug("question list stored as visit session",
		logger.String("session_id", session.ID),
		logger.String("nursery", name))
	return session.ID, nil
}

// UpdateQuestionList applies a partial update to the session with the given id.
// A new title or nursery name renames the owning nursery.
func (c *Compat) UpdateQuestionList(ctx context.Context, sessionID string, update *entities.QuestionListUpdate) error {
	if err := entities.Validate(update); err != nil {
		return err
	}
	var questions []entities.Question
	if update.Questions != nil {
		var err error
		if questions, err = normalizeQuestions(*update.Questions); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nurseries, err := c.migrator.Nurseries(ctx)
	if err != nil {
		return err
	}

	ni, si := -1, -1
	for i := range nurseries {
		if j, ok := nurseries[i].FindSession(sessionID); ok {
			ni, si = i, j
			break
		}
	}
	if ni < 0 {
		return errors.New(ErrVisitSessionNotFound).
			Component("datastore/migration").
			Category(errors.CategoryNotFound).
			Context("session_id", sessionID).
			Build()
	}

	now := c.migrator.now()
	n := nurseries[ni].Clone()
	s := n.VisitSessions[si]

	rename := update.NurseryName
	if rename == nil {
		rename = update.Title
	}
	if rename != nil {
		name := strings.TrimSpace(*rename)
		if name == "" {
			return errors.ValidationError("nursery name cannot be empty")
		}
		n.Name = name
	}
	if update.VisitDate != nil {
		s.VisitDate = *update.VisitDate
	}
	if update.Questions != nil {
		s.Questions = questions
	}
	if update.SharedWith != nil {
		s.SharedWith = slices.Clone(*update.SharedWith)
	}

	s.UpdatedAt = now
	n.VisitSessions[si] = s
	n.UpdatedAt = now
	nurseries[ni] = n

	return c.migrator.nurseries.Save(ctx, nurseries)
}

// normalizeQuestions trims each question and validates the trimmed result.
// The returned slice never aliases qs and is non-nil.
func normalizeQuestions(qs []entities.Question) ([]entities.Question, error) {
	out := make([]entities.Question, 0, len(qs))
	for i := range qs {
		q := qs[i].Normalize()
		if err := entities.Validate(&q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
