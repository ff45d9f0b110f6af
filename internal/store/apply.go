package store

import (
	"context"
	"time"

	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
	"github.com/tphakala/visitprep/internal/observability/metrics"
	"github.com/tphakala/visitprep/internal/templating"
)

// ApplyTemplate merges a template into the nursery's first visit session.
// A nursery without sessions first gets a default planned session, persisted on
// its own; if that fails the template is not applied.
func (s *Store) ApplyTemplate(ctx context.Context, nurseryID, templateID string) (entities.Nursery, error) {
	if err := s.ensureSession(ctx, nurseryID); err != nil {
		s.recordApply(err)
		return entities.Nursery{}, err
	}

	templates, err := s.catalog.AllTemplates(ctx)
	if err != nil {
		s.recordApply(err)
		return entities.Nursery{}, err
	}

	var applied entities.Nursery
	err = s.mutate(ctx, "apply_template", func(ns []entities.Nursery, _ time.Time) ([]entities.Nursery, error) {
		i := indexNursery(ns, nurseryID)
		if i < 0 {
			return nil, notFound(ErrNurseryNotFound, "nursery_id", nurseryID)
		}
		next, err := s.engine.ApplyTemplateByID(templateID, &ns[i], templates)
		if err != nil {
			return nil, err
		}
		ns[i] = next
		applied = next
		return ns, nil
	})
	s.recordApply(err)
	if err != nil {
		return entities.Nursery{}, err
	}

	s.log.Info("template applied",
		logger.String("nursery_id", nurseryID),
		logger.String("template_id", templateID),
		logger.Int("questions", len(applied.VisitSessions[0].Questions)))
	return applied.Clone(), nil
}

// ensureSession creates the default session when the nursery has none.
func (s *Store) ensureSession(ctx context.Context, nurseryID string) error {
	s.mu.Lock()
	err := s.ensureLoadedLocked(ctx)
	hasSession := false
	if err == nil {
		i := indexNursery(s.nurseries, nurseryID)
		if i < 0 {
			err = notFound(ErrNurseryNotFound, "nursery_id", nurseryID)
		} else {
			hasSession = len(s.nurseries[i].VisitSessions) > 0
		}
	}
	s.mu.Unlock()

	if err != nil || hasSession {
		return err
	}

	return s.mutate(ctx, "create_default_session", func(ns []entities.Nursery, now time.Time) ([]entities.Nursery, error) {
		return ns, withNursery(ns, nurseryID, now, func(n *entities.Nursery) error {
			if len(n.VisitSessions) == 0 {
				n.VisitSessions = append(n.VisitSessions, entities.NewDefaultVisitSession(s.newID(), now))
			}
			return nil
		})
	})
}

func (s *Store) recordApply(err error) {
	switch {
	case err == nil:
		s.metrics.RecordOperation(metrics.OpTemplateApply, metrics.StatusSuccess)
	case errors.Is(err, templating.ErrNoVisitSession):
		s.metrics.RecordOperation(metrics.OpTemplateApply, metrics.StatusNoSession)
	case errors.IsNotFound(err):
		s.metrics.RecordOperation(metrics.OpTemplateApply, metrics.StatusNotFound)
	default:
		s.metrics.RecordOperation(metrics.OpTemplateApply, metrics.StatusError)
	}
}
