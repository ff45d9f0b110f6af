// Package mapper converts between the legacy flat QuestionList shape and the
// Nursery/VisitSession aggregate. All functions are pure and never mutate inputs.
package mapper

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/errors"
)

// UntitledNurseryName names a nursery built from a list with neither nursery name nor title.
const UntitledNurseryName = "Untitled nursery"

// DecodeQuestionList decodes one legacy record. Wrong field types and a missing id
// are data-integrity errors; IsAnswered is recomputed from the answers.
func DecodeQuestionList(raw []byte) (entities.QuestionList, error) {
	var list entities.QuestionList
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&list); err != nil {
		return entities.QuestionList{}, errors.New(err).
			Component("datastore/mapper").
			Category(errors.CategoryDataIntegrity).
			Context("operation", "decode_question_list").
			Build()
	}
	if strings.TrimSpace(list.ID) == "" {
		return entities.QuestionList{}, errors.Newf("question list has no id").
			Component("datastore/mapper").
			Category(errors.CategoryDataIntegrity).
			Context("operation", "decode_question_list").
			Build()
	}

	for i := range list.Questions {
		if list.Questions[i].ID == "" {
			return entities.QuestionList{}, errors.Newf("question %d in list %q has no id", i, list.ID).
				Component("datastore/mapper").
				Category(errors.CategoryDataIntegrity).
				Context("operation", "decode_question_list").
				Context("list_id", list.ID).
				Build()
		}
		list.Questions[i] = list.Questions[i].Normalize()
	}
	return list, nil
}

// QuestionListToVisitSession builds the session that represents list.
// Missing dates fall back to the list creation time, then to now.
func QuestionListToVisitSession(list *entities.QuestionList, now time.Time) entities.VisitSession {
	created := list.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := list.UpdatedAt
	if updated.IsZero() || updated.Before(created) {
		updated = created
	}

	visitDate := created
	if list.VisitDate != nil && !list.VisitDate.IsZero() {
		visitDate = *list.VisitDate
	}

	questions := make([]entities.Question, len(list.Questions))
	for i := range list.Questions {
		questions[i] = list.Questions[i].Normalize()
	}

	return entities.VisitSession{
		ID:         list.ID,
		VisitDate:  visitDate,
		Status:     entities.VisitStatusPlanned,
		Questions:  questions,
		Insights:   []string{},
		SharedWith: slices.Clone(list.SharedWith),
		CreatedAt:  created,
		UpdatedAt:  updated,
	}
}

// VisitSessionToQuestionList flattens one session and its owner into the legacy shape.
func VisitSessionToQuestionList(nursery *entities.Nursery, session *entities.VisitSession) entities.QuestionList {
	var visitDate *time.Time
	if !session.VisitDate.IsZero() {
		d := session.VisitDate
		visitDate = &d
	}

	questions := entities.CloneQuestions(session.Questions)
	if questions == nil {
		questions = []entities.Question{}
	}

	return entities.QuestionList{
		ID:          session.ID,
		Title:       nursery.Name,
		NurseryName: nursery.Name,
		VisitDate:   visitDate,
		Questions:   questions,
		SharedWith:  slices.Clone(session.SharedWith),
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}

// GroupQuestionLists collapses lists into nurseries. Lists sharing a nursery name
// become sessions of one nursery, in creation order; lists without a name each get
// their own nursery named after their title. newID supplies nursery ids.
func GroupQuestionLists(lists []entities.QuestionList, newID func() string, now time.Time) []entities.Nursery {
	ordered := slices.Clone(lists)
	slices.SortStableFunc(ordered, func(a, b entities.QuestionList) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	nurseries := make([]entities.Nursery, 0, len(ordered))
	byName := make(map[string]int, len(ordered))

	for i := range ordered {
		list := &ordered[i]
		session := QuestionListToVisitSession(list, now)
		name := strings.TrimSpace(list.NurseryName)

		if name != "" {
			if idx, ok := byName[name]; ok {
				appendSession(&nurseries[idx], session)
				continue
			}
			byName[name] = len(nurseries)
		} else {
			name = strings.TrimSpace(list.Title)
			if name == "" {
				name = UntitledNurseryName
			}
		}

		nurseries = append(nurseries, entities.Nursery{
			ID:            newID(),
			Name:          name,
			VisitSessions: []entities.VisitSession{session},
			CreatedAt:     session.CreatedAt,
			UpdatedAt:     session.UpdatedAt,
		})
	}
	return nurseries
}

func appendSession(n *entities.Nursery, session entities.VisitSession) {
	n.VisitSessions = append(n.VisitSessions, session)
	if session.CreatedAt.Before(n.CreatedAt) {
		n.CreatedAt = session.CreatedAt
	}
	if session.UpdatedAt.After(n.UpdatedAt) {
		n.UpdatedAt = session.UpdatedAt
	}
}

// NurseriesToQuestionLists flattens every session of every nursery, keeping
// nursery order and session order.
func NurseriesToQuestionLists(nurseries []entities.Nursery) []entities.QuestionList {
	total := 0
	for i := range nurseries {
		total += len(nurseries[i].VisitSessions)
	}

	lists := make([]entities.QuestionList, 0, total)
	for i := range nurseries {
		n := &nurseries[i]
		for j := range n.VisitSessions {
			lists = append(lists, VisitSessionToQuestionList(n, &n.VisitSessions[j]))
		}
	}
	return lists
}
