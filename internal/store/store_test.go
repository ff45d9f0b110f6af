package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	testLogger = logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	t0         = time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
)

// failingStorage fails writes to one key while failing is set.
type failingStorage struct {
	datastore.Storage
	failKey string
	failing atomic.Bool
}

func (s *failingStorage) Set(ctx context.Context, key string, value []byte) error {
	if s.failing.Load() && key == s.failKey {
		return errors.StorageError(errors.NewStd("write refused"), "set", key)
	}
	return s.Storage.Set(ctx, key, value)
}

type fixture struct {
	store   *Store
	catalog *catalog.Catalog
	storage datastore.Storage
}

func newFixture(t *testing.T, s datastore.Storage, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	var clockMu sync.Mutex
	current := t0
	now := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		current = current.Add(time.Second)
		return current
	}
	var seq atomic.Int64
	newID := func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }

	state, err := migration.NewStateManager(ctx, s)
	require.NoError(t, err)
	m := migration.NewMigrator(s, state, testLogger, migration.WithClock(now), migration.WithIDGenerator(newID))

	c, err := catalog.New(datastore.NewTemplateRepository(s), testLogger, catalog.WithClock(now))
	require.NoError(t, err)

	engine := &templating.Engine{Now: now, NewID: newID}
	opts = append([]Option{WithClock(now), WithIDGenerator(newID), WithEngine(engine)}, opts...)
	return &fixture{store: New(s, m, c, testLogger, opts...), catalog: c, storage: s}
}

func TestLoad_MigratesAndNotifies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := datastore.NewMemoryStore()
	legacy := []entities.QuestionList{
		{ID: "l1", Title: "Acorns", NurseryName: "Acorns", CreatedAt: t0, UpdatedAt: t0},
		{ID: "l2", Title: "Acorns", NurseryName: "Acorns", CreatedAt: t0.Add(time.Hour), UpdatedAt: t0.Add(time.Hour)},
	}
	require.NoError(t, datastore.NewLegacyRepository(s).Save(ctx, legacy))

	f := newFixture(t, s)
	assert.Empty(t, f.store.Nurseries())

	var got []entities.Nursery
	cancel := f.store.Subscribe(func(ns []entities.Nursery) { got = ns })
	defer cancel()

	require.NoError(t, f.store.Load(ctx))
	require.Len(t, got, 1)
	assert.Len(t, got[0].VisitSessions, 2)
	assert.Equal(t, got, f.store.Nurseries())
}

func TestNurseryLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	n, err := f.store.CreateNursery(ctx, "  Little Oaks ")
	require.NoError(t, err)
	assert.Equal(t, "Little Oaks", n.Name)
	assert.Empty(t, n.VisitSessions)

	_, err = f.store.CreateNursery(ctx, "   ")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	require.NoError(t, f.store.RenameNursery(ctx, n.ID, "Little Oaks Day Care"))
	got, err := f.store.Nursery(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Little Oaks Day Care", got.Name)
	assert.True(t, got.UpdatedAt.After(n.UpdatedAt))

	err = f.store.RenameNursery(ctx, "missing", "x")
	require.ErrorIs(t, err, ErrNurseryNotFound)
	assert.True(t, errors.IsNotFound(err))

	_, err = f.store.AddVisitSession(ctx, n.ID, time.Time{})
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteNursery(ctx, n.ID))
	_, err = f.store.Nursery(n.ID)
	require.ErrorIs(t, err, ErrNurseryNotFound)
	require.ErrorIs(t, f.store.DeleteNursery(ctx, n.ID), ErrNurseryNotFound)

	// a fresh store sees the persisted result
	reloaded := newFixture(t, f.storage)
	require.NoError(t, reloaded.store.Load(ctx))
	assert.Empty(t, reloaded.store.Nurseries())
}

func TestVisitSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)

	visit := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	s1, err := f.store.AddVisitSession(ctx, n.ID, visit)
	require.NoError(t, err)
	assert.True(t, s1.VisitDate.Equal(visit))
	assert.Equal(t, entities.VisitStatusPlanned, s1.Status)
	assert.False(t, s1.AutoCreated)

	s2, err := f.store.AddVisitSession(ctx, n.ID, time.Time{})
	require.NoError(t, err)
	assert.False(t, s2.VisitDate.IsZero())

	require.NoError(t, f.store.SetVisitStatus(ctx, n.ID, s1.ID, entities.VisitStatusCompleted))
	err = f.store.SetVisitStatus(ctx, n.ID, s1.ID, "postponed")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	require.ErrorIs(t, f.store.SetVisitStatus(ctx, n.ID, "missing", entities.VisitStatusCancelled), ErrVisitSessionNotFound)

	require.NoError(t, f.store.AddInsight(ctx, n.ID, s1.ID, " friendly staff "))
	require.NoError(t, f.store.AddInsight(ctx, n.ID, s1.ID, "friendly staff"))
	require.NoError(t, f.store.AddInsight(ctx, n.ID, s1.ID, "big garden"))
	require.Error(t, f.store.AddInsight(ctx, n.ID, s1.ID, "  "))

	got, err := f.store.Nursery(n.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.VisitStatusCompleted, got.VisitSessions[0].Status)
	assert.Equal(t, []string{"friendly staff", "big garden"}, got.VisitSessions[0].Insights)

	require.NoError(t, f.store.RemoveInsight(ctx, n.ID, s1.ID, "friendly staff"))
	require.NoError(t, f.store.DeleteVisitSession(ctx, n.ID, s2.ID))
	require.ErrorIs(t, f.store.DeleteVisitSession(ctx, n.ID, s2.ID), ErrVisitSessionNotFound)

	got, err = f.store.Nursery(n.ID)
	require.NoError(t, err)
	require.Len(t, got.VisitSessions, 1)
	assert.Equal(t, []string{"big garden"}, got.VisitSessions[0].Insights)
}

func TestQuestions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)
	s, err := f.store.AddVisitSession(ctx, n.ID, t0)
	require.NoError(t, err)

	q1, err := f.store.AddQuestion(ctx, n.ID, s.ID, " Staff ratio? ", "staffing")
	require.NoError(t, err)
	assert.Equal(t, "Staff ratio?", q1.Text)
	assert.Equal(t, "staffing", q1.Category)
	q2, err := f.store.AddQuestion(ctx, n.ID, s.ID, "Meals?", "")
	require.NoError(t, err)
	q3, err := f.store.AddQuestion(ctx, n.ID, s.ID, "Fees?", "")
	require.NoError(t, err)

	_, err = f.store.AddQuestion(ctx, n.ID, s.ID, "   ", "")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	require.NoError(t, f.store.EditQuestion(ctx, n.ID, s.ID, q2.ID, "Are meals cooked on site?"))
	require.NoError(t, f.store.AnswerQuestion(ctx, n.ID, s.ID, q1.ID, " 1:3 for babies "))
	require.ErrorIs(t, f.store.AnswerQuestion(ctx, n.ID, s.ID, "missing", "x"), ErrQuestionNotFound)

	require.Error(t, f.store.ReorderQuestions(ctx, n.ID, s.ID, []string{q1.ID, q2.ID}))
	require.Error(t, f.store.ReorderQuestions(ctx, n.ID, s.ID, []string{q1.ID, q1.ID, q2.ID}))
	require.NoError(t, f.store.ReorderQuestions(ctx, n.ID, s.ID, []string{q3.ID, q1.ID, q2.ID}))

	got, err := f.store.Nursery(n.ID)
	require.NoError(t, err)
	qs := got.VisitSessions[0].Questions
	require.Len(t, qs, 3)
	assert.Equal(t, []string{q3.ID, q1.ID, q2.ID}, []string{qs[0].ID, qs[1].ID, qs[2].ID})
	assert.Equal(t, "1:3 for babies", qs[1].Answer)
	assert.True(t, qs[1].IsAnswered)
	assert.Equal(t, "Are meals cooked on site?", qs[2].Text)
	assert.Equal(t, 1, got.VisitSessions[0].AnsweredCount())

	// clearing the answer
	require.NoError(t, f.store.AnswerQuestion(ctx, n.ID, s.ID, q1.ID, "   "))
	require.NoError(t, f.store.DeleteQuestion(ctx, n.ID, s.ID, q3.ID))
	require.ErrorIs(t, f.store.DeleteQuestion(ctx, n.ID, s.ID, q3.ID), ErrQuestionNotFound)

	got, err = f.store.Nursery(n.ID)
	require.NoError(t, err)
	require.Len(t, got.VisitSessions[0].Questions, 2)
	assert.False(t, got.VisitSessions[0].Questions[0].IsAnswered)
}

func TestApplyTemplate_ExistingSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)
	s, err := f.store.AddVisitSession(ctx, n.ID, t0)
	require.NoError(t, err)
	_, err = f.store.AddQuestion(ctx, n.ID, s.ID, "existing", "")
	require.NoError(t, err)

	system := f.catalog.GetDefaultTemplate()[0]
	got, err := f.store.ApplyTemplate(ctx, n.ID, system.ID)
	require.NoError(t, err)

	qs := got.VisitSessions[0].Questions
	require.Len(t, qs, 1+len(system.Questions))
	assert.Equal(t, "existing", qs[0].Text)
	assert.Equal(t, system.Questions[0], qs[1].Text)

	stored, err := datastore.NewNurseryRepository(f.storage).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored[0].VisitSessions[0].Questions, len(qs))
}

func TestApplyTemplate_CreatesDefaultSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)

	custom, err := f.catalog.CreateCustomTemplate(ctx, "Short", []string{"Q1", "Q2"})
	require.NoError(t, err)

	got, err := f.store.ApplyTemplate(ctx, n.ID, custom.ID)
	require.NoError(t, err)
	require.Len(t, got.VisitSessions, 1)

	session := got.VisitSessions[0]
	assert.Equal(t, entities.VisitStatusPlanned, session.Status)
	assert.Empty(t, session.Insights)
	require.Len(t, session.Questions, 2)
	assert.Equal(t, "Q1", session.Questions[0].Text)
	assert.False(t, session.IsPlaceholder())
}

func TestApplyTemplate_MissingTemplateKeepsDefaultSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)

	_, err = f.store.ApplyTemplate(ctx, n.ID, "no-such-template")
	require.ErrorIs(t, err, templating.ErrTemplateNotFound)
	assert.Contains(t, err.Error(), "no-such-template")

	got, err := f.store.Nursery(n.ID)
	require.NoError(t, err)
	require.Len(t, got.VisitSessions, 1)
	assert.True(t, got.VisitSessions[0].IsPlaceholder())
}

func TestApplyTemplate_SessionCreationFailureSkipsEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := &failingStorage{Storage: datastore.NewMemoryStore(), failKey: datastore.KeyNurseries}
	var engineCalls atomic.Int32
	engine := &templating.Engine{
		Now: time.Now,
		NewID: func() string {
			engineCalls.Add(1)
			return entities.NewID()
		},
	}
	f := newFixture(t, s, WithEngine(engine))

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)
	system := f.catalog.GetDefaultTemplate()[0]

	s.failing.Store(true)
	_, err = f.store.ApplyTemplate(ctx, n.ID, system.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryStorage))
	assert.Zero(t, engineCalls.Load())

	got, err := f.store.Nursery(n.ID)
	require.NoError(t, err)
	assert.Empty(t, got.VisitSessions)
}

func TestApplyTemplate_UnknownNursery(t *testing.T) {
	t.Parallel()
	f := newFixture(t, datastore.NewMemoryStore())

	_, err := f.store.ApplyTemplate(context.Background(), "missing", "t")
	require.ErrorIs(t, err, ErrNurseryNotFound)
}

func TestFailedWriteKeepsSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := &failingStorage{Storage: datastore.NewMemoryStore(), failKey: datastore.KeyNurseries}
	f := newFixture(t, s)
	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)

	notified := 0
	defer f.store.Subscribe(func([]entities.Nursery) { notified++ })()

	s.failing.Store(true)
	err = f.store.RenameNursery(ctx, n.ID, "Renamed")
	require.Error(t, err)

	got, err := f.store.Nursery(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acorns", got.Name)
	assert.Zero(t, notified)
}

func TestSnapshotsAreCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)
	_, err = f.store.AddVisitSession(ctx, n.ID, t0)
	require.NoError(t, err)

	var fromListener []entities.Nursery
	defer f.store.Subscribe(func(ns []entities.Nursery) { fromListener = ns })()
	require.NoError(t, f.store.RenameNursery(ctx, n.ID, "Oaks"))

	snap := f.store.Nurseries()
	snap[0].Name = "changed"
	snap[0].VisitSessions[0].Status = entities.VisitStatusCancelled
	fromListener[0].Name = "changed too"

	got, err := f.store.Nursery(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oaks", got.Name)
	assert.Equal(t, entities.VisitStatusPlanned, got.VisitSessions[0].Status)
}

func TestSubscribeCancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	var a, b int
	cancelA := f.store.Subscribe(func([]entities.Nursery) { a++ })
	cancelB := f.store.Subscribe(func([]entities.Nursery) { b++ })
	defer cancelB()

	_, err := f.store.CreateNursery(ctx, "One")
	require.NoError(t, err)
	cancelA()
	_, err = f.store.CreateNursery(ctx, "Two")
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestConcurrentMutations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, datastore.NewMemoryStore())

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)
	s, err := f.store.AddVisitSession(ctx, n.ID, t0)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	for i := range workers {
		wg.Go(func() {
			_, err := f.store.AddQuestion(ctx, n.ID, s.ID, fmt.Sprintf("Question %d", i), "")
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	got, err := f.store.Nursery(n.ID)
	require.NoError(t, err)
	assert.Len(t, got.VisitSessions[0].Questions, workers)

	data, err := f.storage.Get(ctx, datastore.KeyNurseries)
	require.NoError(t, err)
	var stored map[string]entities.Nursery
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Len(t, stored[n.ID].VisitSessions[0].Questions, workers)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := prometheus.NewRegistry()
	rec, err := metrics.NewOrganizerMetrics(registry)
	require.NoError(t, err)
	f := newFixture(t, datastore.NewMemoryStore(), WithRecorder(rec))

	n, err := f.store.CreateNursery(ctx, "Acorns")
	require.NoError(t, err)
	_, err = f.store.ApplyTemplate(ctx, n.ID, f.catalog.GetDefaultTemplate()[0].ID)
	require.NoError(t, err)
	_, err = f.store.ApplyTemplate(ctx, n.ID, "missing")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(registry, "visitprep_template_applications_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count) // success and not_found

	count, err = testutil.GatherAndCount(registry, "visitprep_store_operations_total")
	require.NoError(t, err)
	// create_nursery, create_default_session and apply_template success, apply_template error
	assert.Equal(t, 4, count)
}
