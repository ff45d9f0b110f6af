package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/visitprep/internal/datastore/entities"
)

// CreateNursery adds a nursery without visit sessions.
func (s *Store) CreateNursery(ctx context.Context, name string) (entities.Nursery, error) {
	name, err := cleanName(name)
	if err != nil {
		return entities.Nursery{}, err
	}

	var created entities.Nursery
	err = s.mutate(ctx, "create_nursery", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		created = entities.NewNursery(s.newID(), name, now)
		return append(ns, created), nil
	})
	if err != nil {
		return entities.Nursery{}, err
	}
	return created.Clone(), nil
}

// RenameNursery changes a nursery's name.
func (s *Store) RenameNursery(ctx context.Context, id, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	return s.mutate(ctx, "rename_nursery", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withNursery(ns, id, now, func(n *entities.Nursery) error {
			n.Name = name
			return nil
		})
	})
}

// DeleteNursery removes a nursery and all of its sessions.
func (s *Store) DeleteNursery(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_nursery", func(ns []entities.Nursery, _ time.Time) ([]entities.Nursery, error) {
		i := indexNursery(ns, id)
		if i < 0 {
			return nil, notFound(ErrNurseryNotFound, "nursery_id", id)
		}
		return slices.Delete(ns, i, i+1), nil
	})
}

// AddVisitSession appends a planned session. A zero visitDate means now.
func (s *Store) AddVisitSession(ctx context.Context, nurseryID string, visitDate time.Time) (entities.VisitSession, error) {
	var created entities.VisitSession
	err := s.mutate(ctx, "add_visit_session", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withNursery(ns, nurseryID, now, func(n *entities.Nursery) error {
			date := visitDate
			if date.IsZero() {
				date = now
			}
			created = entities.NewVisitSession(s.newID(), date, now)
			n.VisitSessions = append(n.VisitSessions, created)
			return nil
		})
	})
	if err != nil {
		return entities.VisitSession{}, err
	}
	return created.Clone(), nil
}

// SetVisitStatus changes a session's status.
func (s *Store) SetVisitStatus(ctx context.Context, nurseryID, sessionID string, status entities.VisitStatus) error {
	if _, err := entities.ParseVisitStatus(string(status)); err != nil {
		return invalid(err.Error())
	}
	return s.mutate(ctx, "set_visit_status", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withSession(ns, nurseryID, sessionID, now, func(v *entities.VisitSession) error {
			v.Status = status
			return nil
		})
	})
}

// DeleteVisitSession removes one session and its questions.
func (s *Store) DeleteVisitSession(ctx context.Context, nurseryID, sessionID string) error {
	return s.mutate(ctx, "delete_visit_session", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withNursery(ns, nurseryID, now, func(n *entities.Nursery) error {
			j, ok := n.FindSession(sessionID)
			if !ok {
				return notFound(ErrVisitSessionNotFound, "session_id", sessionID)
			}
			n.VisitSessions = slices.Delete(n.VisitSessions, j, j+1)
			return nil
		})
	})
}

// AddInsight appends a free-form insight tag. Duplicates are ignored.
func (s *Store) AddInsight(ctx context.Context, nurseryID, sessionID, insight string) error {
	insight = strings.TrimSpace(insight)
	if insight == "" {
		return invalid("insight is required")
	}
	return s.mutate(ctx, "add_insight", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withSession(ns, nurseryID, sessionID, now, func(v *entities.VisitSession) error {
			if !slices.Contains(v.Insights, insight) {
				v.Insights = append(v.Insights, insight)
			}
			return nil
		})
	})
}

// RemoveInsight removes an insight tag. Removing an absent tag is a no-op write.
func (s *Store) RemoveInsight(ctx context.Context, nurseryID, sessionID, insight string) error {
	insight = strings.TrimSpace(insight)
	return s.mutate(ctx, "remove_insight", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withSession(ns, nurseryID, sessionID, now, func(v *entities.VisitSession) error {
			v.Insights = slices.DeleteFunc(v.Insights, func(tag string) bool { return tag == insight })
			return nil
		})
	})
}

// AddQuestion appends a manually written question to a session.
func (s *Store) AddQuestion(ctx context.Context, nurseryID, sessionID, text, category string) (entities.Question, error) {
	var created entities.Question
	err := s.mutate(ctx, "add_question", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withSession(ns, nurseryID, sessionID, now, func(v *entities.VisitSession) error {
			q := entities.NewQuestion(s.newID(), text, now)
			q.Category = strings.TrimSpace(category)
			if err := entities.Validate(&q); err != nil {
				return err
			}
			created = q
			v.Questions = append(v.Questions, q)
			return nil
		})
	})
	if err != nil {
		return entities.Question{}, err
	}
	return created, nil
}

// EditQuestion replaces a question's text.
func (s *Store) EditQuestion(ctx context.Context, nurseryID, sessionID, questionID, text string) error {
	return s.mutate(ctx, "edit_question", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withQuestion(ns, nurseryID, sessionID, questionID, now, func(q *entities.Question) error {
			edited := q.WithText(text, now)
			if err := entities.Validate(&edited); err != nil {
				return err
			}
			*q = edited
			return nil
		})
	})
}

// AnswerQuestion sets or clears an answer. A blank answer marks the question unanswered.
func (s *Store) AnswerQuestion(ctx context.Context, nurseryID, sessionID, questionID, answer string) error {
	return s.mutate(ctx, "answer_question", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withQuestion(ns, nurseryID, sessionID, questionID, now, func(q *entities.Question) error {
			answered := q.WithAnswer(answer, now)
			if err := entities.Validate(&answered); err != nil {
				return err
			}
			*q = answered
			return nil
		})
	})
}

// ReorderQuestions reorders a session's questions. order must list every question id exactly once.
func (s *Store) ReorderQuestions(ctx context.Context, nurseryID, sessionID string, order []string) error {
	return s.mutate(ctx, "reorder_questions", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withSession(ns, nurseryID, sessionID, now, func(v *entities.VisitSession) error {
			if len(order) != len(v.Questions) {
				return invalid("question order must list every question exactly once")
			}
			reordered := make([]entities.Question, 0, len(order))
			seen := make(map[string]bool, len(order))
			for _, id := range order {
				k, ok := v.FindQuestion(id)
				if !ok || seen[id] {
					return invalid("question order must list every question exactly once")
				}
				seen[id] = true
				reordered = append(reordered, v.Questions[k])
			}
			v.Questions = reordered
			return nil
		})
	})
}

// DeleteQuestion removes one question from a session.
func (s *Store) DeleteQuestion(ctx context.Context, nurseryID, sessionID, questionID string) error {
	return s.mutate(ctx, "delete_question", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withSession(ns, nurseryID, sessionID, now, func(v *entities.VisitSession) error {
			k, ok := v.FindQuestion(questionID)
			if !ok {
				return notFound(ErrQuestionNotFound, "question_id", questionID)
			}
			v.Questions = slices.Delete(v.Questions, k, k+1)
			return nil
		})
	})
}
