// Package store holds the canonical in-memory nursery snapshot. Every mutation
// is persisted as a whole-collection write before the snapshot changes, and
// subscribers are notified after each successful write.
package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/tphakala/visitprep/internal/catalog"
	"github.com/tphakala/visitprep/internal/datastore"
	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/datastore/migration"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
	"github.com/tphakala/visitprep/internal/observability/metrics"
	"github.com/tphakala/visitprep/internal/templating"
)

var (
	ErrNurseryNotFound      = errors.NewStd("nursery not found")
	ErrVisitSessionNotFound = errors.NewStd("visit session not found")
	ErrQuestionNotFound     = errors.NewStd("question not found")
)

// Listener receives a copy of the collection after each successful write.
type Listener func(nurseries []entities.Nursery)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces entities.NewID.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithRecorder records mutation outcomes and durations.
func WithRecorder(rec metrics.Recorder) Option {
	return func(s *Store) { s.metrics = metrics.OrNoOp(rec) }
}

// WithEngine replaces the template engine.
func WithEngine(e *templating.Engine) Option {
	return func(s *Store) { s.engine = e }
}

// Store is the state layer between callers and persisted nurseries.
type Store struct {
	mu        sync.RWMutex
	nurseries []entities.Nursery
	loaded    bool

	migrator *migration.Migrator
	repo     *datastore.NurseryRepository
	catalog  *catalog.Catalog
	engine   *templating.Engine
	log      logger.Logger
	metrics  metrics.Recorder
	now      func() time.Time
	newID    func() string

	subMu     sync.Mutex
	listeners map[int]Listener
	nextSub   int
}

// New returns a store persisting to s. The first read or write migrates legacy data.
func New(s datastore.Storage, m *migration.Migrator, c *catalog.Catalog, log logger.Logger, opts ...Option) *Store {
	st := &Store{
		migrator:  m,
		repo:      datastore.NewNurseryRepository(s),
		catalog:   c,
		engine:    templating.NewEngine(),
		log:       log,
		metrics:   metrics.NoOpRecorder{},
		now:       time.Now,
		newID:     entities.NewID,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Load reads the persisted collection, migrating legacy data first when needed.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	err := s.loadLocked(ctx)
	snapshot := entities.CloneNurseries(s.nurseries)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(snapshot)
	return nil
}

func (s *Store) loadLocked(ctx context.Context) error {
	nurseries, err := s.migrator.Nurseries(ctx)
	if err != nil {
		return err
	}
	s.nurseries = nurseries
	s.loaded = true
	s.log.Debug("nurseries loaded", logger.Int("count", len(nurseries)))
	return nil
}

// Nurseries returns a copy of the current snapshot. It is empty before Load.
func (s *Store) Nurseries() []entities.Nursery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := entities.CloneNurseries(s.nurseries)
	if out == nil {
		out = []entities.Nursery{}
	}
	return out
}

// Nursery returns a copy of one nursery.
func (s *Store) Nursery(id string) (entities.Nursery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexNursery(s.nurseries, id)
	if i < 0 {
		return entities.Nursery{}, notFound(ErrNurseryNotFound, "nursery_id", id)
	}
	return s.nurseries[i].Clone(), nil
}

// Subscribe registers fn for change notifications and returns its cancel function.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(snapshot []entities.Nursery) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, id := range slices.Sorted(maps.Keys(s.listeners)) {
		listeners = append(listeners, s.listeners[id])
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(entities.CloneNurseries(snapshot))
	}
}

// mutateFunc edits a private copy of the collection.
type mutateFunc func(nurseries []entities.Nursery, now time.Time) ([]entities.Nursery, error)

// mutate applies fn, persists the result and swaps the snapshot. On any error
// the snapshot and storage keep their previous contents.
func (s *Store) mutate(ctx context.Context, op string, fn mutateFunc) error {
	operation := metrics.StoreOp(op)
	start := time.Now()

	s.mu.Lock()
	err := s.ensureLoadedLocked(ctx)
	var snapshot []entities.Nursery
	if err == nil {
		var next []entities.Nursery
		next, err = fn(entities.CloneNurseries(s.nurseries), s.now())
		if err == nil {
			err = s.repo.Save(ctx, next)
		}
		if err == nil {
			s.nurseries = next
			snapshot = entities.CloneNurseries(next)
		}
	}
	s.mu.Unlock()

	s.metrics.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordOperation(operation, metrics.StatusError)
		s.metrics.RecordError(operation, categoryOf(err))
		s.log.Debug("store mutation failed", logger.String("operation", op), logger.Error(err))
		return err
	}

	s.metrics.RecordOperation(operation, metrics.StatusSuccess)
	s.notify(snapshot)
	return nil
}

func (s *Store) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.loadLocked(ctx)
}

func categoryOf(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}

func notFound(sentinel error, key, id string) error {
	return errors.New(sentinel).
		Component("store").
		Category(errors.CategoryNotFound).
		Context(key, id).
		Build()
}

func invalid(msg string) error {
	return errors.New(errors.NewStd(msg)).
		Component("store").
		Category(errors.CategoryValidation).
		Build()
}

func indexNursery(nurseries []entities.Nursery, id string) int {
	return slices.IndexFunc(nurseries, func(n entities.Nursery) bool { return n.ID == id })
}

// withNursery runs fn on the nursery with id and stamps it as updated.
func withNursery(nurseries []entities.Nursery, id string, now time.Time, fn func(n *entities.Nursery) error) error {
	i := indexNursery(nurseries, id)
	if i < 0 {
		return notFound(ErrNurseryNotFound, "nursery_id", id)
	}
	if err := fn(&nurseries[i]); err != nil {
		return err
	}
	nurseries[i].UpdatedAt = now
	return nil
}

// withSession runs fn on one session and stamps it and its nursery as updated.
func withSession(nurseries []entities.Nursery, nurseryID, sessionID string, now time.Time, fn func(s *entities.VisitSession) error) error {
	return withNursery(nurseries, nurseryID, now, func(n *entities.Nursery) error {
		j, ok := n.FindSession(sessionID)
		if !ok {
			return notFound(ErrVisitSessionNotFound, "session_id", sessionID)
		}
		if err := fn(&n.VisitSessions[j]); err != nil {
			return err
		}
		n.VisitSessions[j].UpdatedAt = now
		return nil
	})
}

// withQuestion runs fn on one question.
func withQuestion(nurseries []entities.Nursery, nurseryID, sessionID, questionID string, now time.Time, fn func(q *entities.Question) error) error {
	return withSession(nurseries, nurseryID, sessionID, now, func(s *entities.VisitSession) error {
		k, ok := s.FindQuestion(questionID)
		if !ok {
			return notFound(ErrQuestionNotFound, "question_id", questionID)
		}
		return fn(&s.Questions[k])
	})
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("nursery name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", invalid("nursery name must be at most 200 characters")
	}
	return name, nil
}

const maxNameLength = 200
