// Package templating merges template questions into question collections and
// into the first visit session of a nursery. All functions are synchronous and
// return new values; inputs are never mutated.
package templating

import (
	"fmt"
	"slices"
	"time"

	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/errors"
)

var (
	// ErrNoVisitSession is returned when a nursery has no session to apply a template to.
	ErrNoVisitSession = errors.NewStd("no visit session exists")
	// ErrTemplateNotFound is returned when no candidate template has the requested id.
	ErrTemplateNotFound = errors.NewStd("template not found")
)

// Engine applies templates with an injectable clock and id source.
type Engine struct {
	Now   func() time.Time
	NewID func() string
}

// NewEngine returns an engine using time.Now and entities.NewID.
func NewEngine() *Engine {
	return &Engine{Now: time.Now, NewID: entities.NewID}
}

var defaultEngine = NewEngine()

// ApplyTemplateQuestions appends one new question per template text to a copy of existing.
// Existing questions keep their order, ids and timestamps; the new ones share one timestamp.
// Applying the same template twice adds the questions twice.
func (e *Engine) ApplyTemplateQuestions(tmpl *entities.Template, existing []entities.Question) []entities.Question {
	out := make([]entities.Question, len(existing), len(existing)+len(tmpl.Questions))
	copy(out, existing)
	if len(tmpl.Questions) == 0 {
		return out
	}

	now := e.Now()
	for _, text := range tmpl.Questions {
		out = append(out, entities.NewQuestion(e.NewID(), text, now))
	}
	return out
}

// ApplyTemplateToNursery applies tmpl to the nursery's first visit session.
// Other sessions are carried over unchanged.
func (e *Engine) ApplyTemplateToNursery(tmpl *entities.Template, nursery *entities.Nursery) (entities.Nursery, error) {
	first, ok := nursery.FirstSession()
	if !ok {
		return entities.Nursery{}, errors.New(ErrNoVisitSession).
			Component("templating").
			Category(errors.CategoryPrecondition).
			Context("nursery_id", nursery.ID).
			Context("template_id", tmpl.ID).
			Build()
	}

	questions := e.ApplyTemplateQuestions(tmpl, first.Questions)
	now := e.Now()

	updated := first
	updated.Questions = questions
	updated.Insights = slices.Clone(first.Insights)
	updated.SharedWith = slices.Clone(first.SharedWith)
	updated.UpdatedAt = later(now, first.UpdatedAt)

	out := *nursery
	out.VisitSessions = make([]entities.VisitSession, len(nursery.VisitSessions))
	out.VisitSessions[0] = updated
	copy(out.VisitSessions[1:], nursery.VisitSessions[1:])
	out.UpdatedAt = later(now, nursery.UpdatedAt)
	return out, nil
}

// ApplyTemplateByID finds the template with id among templates and applies it.
func (e *Engine) ApplyTemplateByID(id string, nursery *entities.Nursery, templates []entities.Template) (entities.Nursery, error) {
	tmpl, ok := entities.FindTemplate(templates, id)
	if !ok {
		return entities.Nursery{}, errors.New(fmt.Errorf("%w: %q", ErrTemplateNotFound, id)).
			Component("templating").
			Category(errors.CategoryNotFound).
			Context("template_id", id).
			Context("candidates", len(templates)).
			Build()
	}
	return e.ApplyTemplateToNursery(&tmpl, nursery)
}

// later returns now, or just after prev when the clock has not moved past it.
func later(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}

// ApplyTemplateQuestions uses the default engine.
func ApplyTemplateQuestions(tmpl *entities.Template, existing []entities.Question) []entities.Question {
	return defaultEngine.ApplyTemplateQuestions(tmpl, existing)
}

// ApplyTemplateToNursery uses the default engine.
func ApplyTemplateToNursery(tmpl *entities.Template, nursery *entities.Nursery) (entities.Nursery, error) {
	return defaultEngine.ApplyTemplateToNursery(tmpl, nursery)
}

// ApplyTemplateByID uses the default engine.
func ApplyTemplateByID(id string, nursery *entities.Nursery, templates []entities.Template) (entities.Nursery, error) {
	return defaultEngine.ApplyTemplateByID(id, nursery, templates)
}
