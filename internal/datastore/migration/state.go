package migration

import (
	"context"
	"sync"

	"github.com/tphakala/visitprep/internal/datastore"
	"github.com/tphakala/visitprep/internal/errors"
)

// State is the migration state of one storage instance.
type State int

const (
	StateNotMigrated State = iota
	StateMigrating
	StateMigrated
)

func (s State) String() string {
	switch s {
	case StateNotMigrated:
		return "not_migrated"
	case StateMigrating:
		return "migrating"
	case StateMigrated:
		return "migrated"
	default:
		return "unknown"
	}
}

// flagValue is what the completion flag holds once the conversion finished.
const flagValue = "true"

// StateManager owns the migration state machine for one storage instance.
// The persisted completion flag is read once at construction; afterwards the
// manager is the only writer.
type StateManager struct {
	storage  datastore.Storage
	mu       sync.Mutex
	state    State
	previous State
}

// NewStateManager reads the completion flag from s.
func NewStateManager(ctx context.Context, s datastore.Storage) (*StateManager, error) {
	state := StateNotMigrated

	value, err := s.Get(ctx, datastore.KeyMigrationCompleted)
	switch {
	case errors.Is(err, datastore.ErrKeyNotFound):
	case err != nil:
		return nil, err
	case string(value) == flagValue:
		state = StateMigrated
	}

	return &StateManager{storage: s, state: state}, nil
}

// State returns the current state.
func (m *StateManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Begin moves to Migrating. From Migrated it requires force.
func (m *StateManager) Begin(force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.state == StateNotMigrated, m.state == StateMigrated && force:
		m.previous = m.state
		m.state = StateMigrating
		return nil
	default:
		return transitionError(StateMigrating, m.state)
	}
}

// Complete persists the completion flag and moves to Migrated.
// On a storage failure the state stays Migrating so the caller can Abort.
func (m *StateManager) Complete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateMigrating {
		return transitionError(StateMigrated, m.state)
	}
	if err := m.storage.Set(ctx, datastore.KeyMigrationCompleted, []byte(flagValue)); err != nil {
		return err
	}
	m.state = StateMigrated
	return nil
}

// Abort returns from Migrating to the state Begin was called in.
func (m *StateManager) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateMigrating {
		m.state = m.previous
	}
}

// Reset deletes the completion flag so the next read converts again.
func (m *StateManager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateMigrating {
		return transitionError(StateNotMigrated, m.state)
	}
	if err := m.storage.Delete(ctx, datastore.KeyMigrationCompleted); err != nil {
		return err
	}
	m.state = StateNotMigrated
	return nil
}

func transitionError(to, current State) error {
	return errors.Newf("cannot transition to %s: current state is %s", to, current).
		Component("datastore/migration").
		Category(errors.CategoryState).
		Context("target_state", to.String()).
		Context("current_state", current.String()).
		Build()
}
