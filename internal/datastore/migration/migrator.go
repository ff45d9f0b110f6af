// Package migration converts legacy question lists into nursery aggregates and
// keeps the legacy read/write shape available through compat adapters.
//
// The conversion runs lazily on the first read that needs nurseries and is guarded
// by a persisted completion flag owned by StateManager. Concurrent triggers within
// one process share a single run; across processes the last writer wins.
package migration

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tphakala/visitprep/internal/datastore"
	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/datastore/mapper"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
	"github.com/tphakala/visitprep/internal/observability/metrics"
)

// SkippedRecord is a legacy record left out of the conversion.
type SkippedRecord struct {
	Key string
	Err error
}

// Report summarizes one EnsureMigrated call.
type Report struct {
	// Ran is false when the completion flag short-circuited the call.
	Ran       bool
	Converted int
	Skipped   []SkippedRecord
	Nurseries int
	Duration  time.Duration
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Migrator) { m.now = now }
}

// WithIDGenerator replaces entities.NewID for generated nursery and session ids.
func WithIDGenerator(newID func() string) Option {
	return func(m *Migrator) { m.newID = newID }
}

// WithRecorder records run and record outcomes.
func WithRecorder(rec metrics.Recorder) Option {
	return func(m *Migrator) { m.metrics = metrics.OrNoOp(rec) }
}

// RunOption configures one EnsureMigrated call.
type RunOption func(*runConfig)

type runConfig struct {
	force bool
}

// WithForce re-runs the conversion even when the completion flag is set. Legacy
// lists not yet stored as sessions are added; stored nurseries are kept as they are.
func WithForce() RunOption {
	return func(c *runConfig) { c.force = true }
}

// Migrator runs the legacy conversion and serves the nursery read path.
type Migrator struct {
	state     *StateManager
	legacy    *datastore.LegacyRepository
	nurseries *datastore.NurseryRepository
	log       logger.Logger
	metrics   metrics.Recorder
	now       func() time.Time
	newID     func() string
	flight    singleflight.Group
}

// NewMigrator returns a migrator over s. state must have been built from the same storage.
// log is used as given; callers scope it, e.g. with Module("migration").
func NewMigrator(s datastore.Storage, state *StateManager, log logger.Logger, opts ...Option) *Migrator {
	m := &Migrator{
		state:     state,
		legacy:    datastore.NewLegacyRepository(s),
		nurseries: datastore.NewNurseryRepository(s),
		log:       log,
		metrics:   metrics.NoOpRecorder{},
		now:       time.Now,
		newID:     entities.NewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the underlying state manager.
func (m *Migrator) State() *StateManager {
	return m.state
}

// EnsureMigrated converts the legacy lists unless that already happened.
// Calls that overlap an in-flight run wait for it and share its result.
func (m *Migrator) EnsureMigrated(ctx context.Context, opts ...RunOption) (Report, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.force && m.state.State() == StateMigrated {
		m.metrics.RecordOperation(metrics.OpMigration, metrics.StatusNoop)
		return Report{}, nil
	}

	key := "migrate"
	if cfg.force {
		key = "migrate-force"
	}
	v, err, _ := m.flight.Do(key, func() (any, error) {
		return m.run(ctx, cfg.force)
	})
	report, _ := v.(Report)
	return report, err
}

// Nurseries migrates if needed and returns the stored nurseries.
func (m *Migrator) Nurseries(ctx context.Context) ([]entities.Nursery, error) {
	if _, err := m.EnsureMigrated(ctx); err != nil {
		return nil, err
	}
	return m.nurseries.Load(ctx)
}

func (m *Migrator) run(ctx context.Context, force bool) (Report, error) {
	// a run that finished while this caller waited to enter the flight
	if !force && m.state.State() == StateMigrated {
		m.metrics.RecordOperation(metrics.OpMigration, metrics.StatusNoop)
		return Report{}, nil
	}

	start := time.Now()
	if err := m.state.Begin(force); err != nil {
		m.fail(err)
		return Report{}, err
	}

	report, err := m.convert(ctx)
	if err == nil {
		err = m.state.Complete(ctx)
	}
	report.Duration = time.Since(start)
	m.metrics.RecordDuration(metrics.OpMigration, report.Duration.Seconds())

	if err != nil {
		m.state.Abort()
		m.fail(err)
		m.log.Error("legacy conversion failed",
			logger.Error(err),
			logger.Bool("forced", force),
			logger.Duration("elapsed", report.Duration))
		return report, err
	}

	m.metrics.RecordOperation(metrics.OpMigration, metrics.StatusSuccess)
	m.log.Info("legacy conversion completed",
		logger.Int("converted", report.Converted),
		logger.Int("skipped", len(report.Skipped)),
		logger.Int("nurseries", report.Nurseries),
		logger.Bool("forced", force),
		logger.Duration("elapsed", report.Duration))
	return report, nil
}

func (m *Migrator) convert(ctx context.Context) (Report, error) {
	report := Report{Ran: true}

	records, err := m.legacy.LoadRaw(ctx)
	if err != nil {
		return report, err
	}

	lists := make([]entities.QuestionList, 0, len(records))
	for _, rec := range records {
		list, err := mapper.DecodeQuestionList(rec.Data)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRecord{Key: rec.Key, Err: err})
			m.metrics.RecordOperation(metrics.OpMigrationRecord, metrics.StatusSkipped)
			m.log.Warn("skipping malformed legacy record",
				logger.String("record_key", rec.Key),
				logger.Error(err))
			continue
		}
		lists = append(lists, list)
		m.metrics.RecordOperation(metrics.OpMigrationRecord, metrics.StatusConverted)
	}
	report.Converted = len(lists)

	converted := mapper.GroupQuestionLists(lists, m.newID, m.now())

	// Stored nurseries always win over their legacy originals.
	existing, err := m.nurseries.Load(ctx)
	if err != nil {
		return report, err
	}
	result := mergeNurseries(existing, converted, unnamedSessions(lists))
	report.Nurseries = len(result)

	if err := ctx.Err(); err != nil {
		return report, errors.New(err).
			Component("datastore/migration").
			Category(errors.CategoryCancellation).
			Context("operation", "convert").
			Build()
	}
	if err := m.nurseries.Save(ctx, result); err != nil {
		return report, err
	}
	return report, nil
}

// mergeNurseries keeps existing nurseries and adds converted sessions whose ids
// are not stored yet. Sessions of a named legacy nursery join the stored nursery
// with the same name; unnamed ones stay singletons. Converted nurseries left
// without sessions are dropped.
func mergeNurseries(existing, converted []entities.Nursery, unnamed map[string]struct{}) []entities.Nursery {
	if len(existing) == 0 {
		return converted
	}

	known := make(map[string]struct{})
	byName := make(map[string]int, len(existing))
	out := entities.CloneNurseries(existing)
	for i := range out {
		for j := range out[i].VisitSessions {
			known[out[i].VisitSessions[j].ID] = struct{}{}
		}
		name := strings.TrimSpace(out[i].Name)
		if _, taken := byName[name]; !taken {
			byName[name] = i
		}
	}

	for i := range converted {
		n := converted[i]
		fresh := make([]entities.VisitSession, 0, len(n.VisitSessions))
		for j := range n.VisitSessions {
			if _, ok := known[n.VisitSessions[j].ID]; !ok {
				fresh = append(fresh, n.VisitSessions[j])
			}
		}
		if len(fresh) == 0 {
			continue
		}

		_, single := unnamed[n.VisitSessions[0].ID]
		if idx, ok := byName[strings.TrimSpace(n.Name)]; ok && !single {
			target := &out[idx]
			target.VisitSessions = append(target.VisitSessions, fresh...)
			if n.UpdatedAt.After(target.UpdatedAt) {
				target.UpdatedAt = n.UpdatedAt
			}
			continue
		}

		n.VisitSessions = fresh
		out = append(out, n)
		if !single {
			byName[strings.TrimSpace(n.Name)] = len(out) - 1
		}
	}
	return out
}

// unnamedSessions returns the ids of lists without a nursery name. Their sessions
// keep the list id.
func unnamedSessions(lists []entities.QuestionList) map[string]struct{} {
	out := make(map[string]struct{})
	for i := range lists {
		if strings.TrimSpace(lists[i].NurseryName) == "" {
			out[lists[i].ID] = struct{}{}
		}
	}
	return out
}

func (m *Migrator) fail(err error) {
	m.metrics.RecordOperation(metrics.OpMigration, metrics.StatusError)
	category := string(errors.CategoryGeneric)
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		category = ee.GetCategory()
	}
	m.metrics.RecordError(metrics.OpMigration, category)
}
