package datastore

import (
	"context"
	"time"

	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/observability/metrics"
)

// instrumentedStorage records operation counts, durations and errors for any Storage.
type instrumentedStorage struct {
	Storage
	rec metrics.Recorder
}

// Instrument wraps s so every call is recorded on rec. A nil rec returns s unchanged.
func Instrument(s Storage, rec metrics.Recorder) Storage {
	if rec == nil {
		return s
	}
	return &instrumentedStorage{Storage: s, rec: rec}
}

func (s *instrumentedStorage) record(operation string, start time.Time, err error) {
	s.rec.RecordDuration(operation, time.Since(start).Seconds())

	switch {
	case err == nil:
		s.rec.RecordOperation(operation, metrics.StatusSuccess)
	case errors.Is(err, ErrKeyNotFound):
		s.rec.RecordOperation(operation, metrics.StatusNotFound)
	default:
		s.rec.RecordOperation(operation, metrics.StatusError)
		category := string(errors.CategoryGeneric)
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			category = ee.GetCategory()
		}
		s.rec.RecordError(operation, category)
	}
}

func (s *instrumentedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := s.Storage.Get(ctx, key)
	s.record(metrics.OpStorageGet, start, err)
	return v, err
}

func (s *instrumentedStorage) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.Storage.Set(ctx, key, value)
	s.record(metrics.OpStorageSet, start, err)
	return err
}

func (s *instrumentedStorage) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.Storage.Delete(ctx, key)
	s.record(metrics.OpStorageDelete, start, err)
	return err
}
