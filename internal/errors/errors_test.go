package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = NewStd("sentinel")

func TestBuild_FastPathDefaults(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.GetTimestamp().IsZero())
	assert.Nil(t, ee.GetContext())
}

func TestBuild_ExplicitFields(t *testing.T) {
	t.Parallel()

	ee := Newf("template %q not found", "t1").
		Component("catalog").
		Category(CategoryNotFound).
		Priority(PriorityLow).
		Context("template_id", "t1").
		Timing("apply_template", 1500*time.Millisecond).
		Build()

	assert.Equal(t, `template "t1" not found`, ee.Error())
	assert.Equal(t, "catalog", ee.GetComponent())
	assert.Equal(t, "not-found", ee.GetCategory())
	assert.Equal(t, PriorityLow, ee.GetPriority())

	ctx := ee.GetContext()
	assert.Equal(t, "t1", ctx["template_id"])
	assert.Equal(t, "apply_template", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])

	// returned context is a copy
	ctx["template_id"] = "changed"
	assert.Equal(t, "t1", ee.GetContext()["template_id"])
}

func TestPriority_UnknownFallsBackToMedium(t *testing.T) {
	t.Parallel()

	ee := New(errSentinel).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.GetPriority())
}

func TestCategory_InheritedFromWrappedEnhancedError(t *testing.T) {
	t.Parallel()

	inner := New(errSentinel).Category(CategoryStorage).Build()
	outer := New(fmt.Errorf("save nurseries: %w", inner)).Build()

	assert.Equal(t, CategoryStorage, outer.Category)
}

func TestIsAndAs_ThroughWrappedChain(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("lookup: %w", errSentinel)).Category(CategoryNotFound).Build()
	wrapped := fmt.Errorf("apply: %w", ee)

	assert.True(t, Is(wrapped, errSentinel))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsPrecondition(wrapped))
	assert.True(t, IsCategory(wrapped, CategoryNotFound))

	var target *EnhancedError
	require.True(t, As(wrapped, &target))
	assert.Same(t, ee, target)
}

func TestEnhancedErrorIs_MatchesByCategory(t *testing.T) {
	t.Parallel()

	a := New(NewStd("a")).Category(CategoryPrecondition).Build()
	b := New(NewStd("b")).Category(CategoryPrecondition).Build()
	c := New(NewStd("c")).Category(CategoryStorage).Build()

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
}

func TestPlainErrorsHaveNoCategory(t *testing.T) {
	t.Parallel()

	assert.False(t, IsNotFound(errSentinel))
	assert.False(t, IsCategory(nil, CategoryGeneric))
}

func TestStorageError(t *testing.T) {
	t.Parallel()

	ee := StorageError(errSentinel, "set", "visitprep.nurseries")

	assert.Equal(t, CategoryStorage, ee.Category)
	assert.ErrorIs(t, ee, errSentinel)
	assert.Equal(t, "set", ee.GetContext()["operation"])
	assert.Equal(t, "visitprep.nurseries", ee.GetContext()["key"])
}

func TestErrorHooks(t *testing.T) {
	t.Cleanup(ClearErrorHooks)

	var seen []*EnhancedError
	AddErrorHook(func(ee *EnhancedError) { seen = append(seen, ee) })
	assert.True(t, hasActiveReporting.Load())

	ee := New(errSentinel).Category(CategoryDataIntegrity).Build()
	require.Len(t, seen, 1)
	assert.Same(t, ee, seen[0])

	ClearErrorHooks()
	assert.False(t, hasActiveReporting.Load())

	New(errSentinel).Build()
	assert.Len(t, seen, 1)
}

type recordingReporter struct {
	enabled  bool
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return r.enabled }

func TestTelemetryReporter(t *testing.T) {
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	disabled := &recordingReporter{}
	SetTelemetryReporter(disabled)
	New(errSentinel).Build()
	assert.Empty(t, disabled.reported)

	enabled := &recordingReporter{enabled: true}
	SetTelemetryReporter(enabled)
	ee := New(errSentinel).Category(CategoryStorage).Build()

	require.Len(t, enabled.reported, 1)
	assert.True(t, ee.IsReported())
	assert.Same(t, enabled, GetTelemetryReporter())
}

func TestInitSentry_EmptyDSNDisabled(t *testing.T) {
	t.Parallel()

	reporter, err := InitSentry("", "test")
	require.NoError(t, err)
	assert.False(t, reporter.IsEnabled())
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ee   *EnhancedError
		want string
	}{
		{
			name: "component category and operation",
			ee: &EnhancedError{
				Err: errSentinel, component: "migration", Category: CategoryDataIntegrity,
				Context: map[string]any{"operation": "decode_question_list"},
			},
			want: "Migration Data Integrity Error Decode Question List",
		},
		{
			name: "unknown component is omitted",
			ee:   &EnhancedError{Err: errSentinel, component: ComponentUnknown, Category: CategoryNotFound},
			want: "Not Found",
		},
		{
			name: "falls back to error type",
			ee:   &EnhancedError{Err: errSentinel, Category: CategoryGeneric},
			want: "*errors.errorString",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, generateErrorTitle(tt.ee))
		})
	}
}

func TestBasicURLScrub(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"Error at https://api.example.com?[REDACTED]",
		basicURLScrub("Error at https://api.example.com?api_key=secret123&token=abc"))

	scrubbed := basicURLScrub("dial visitprep:hunter2@tcp(db:3306)/visitprep failed")
	assert.NotContains(t, scrubbed, "hunter2")

	scrubbed = basicURLScrub("Auth failed with token=abc123 and auth=xyz789")
	assert.NotContains(t, scrubbed, "abc123")
	assert.NotContains(t, scrubbed, "xyz789")
}

func TestLookupComponent_LongestPatternWins(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "migration",
		lookupComponent("github.com/tphakala/visitprep/internal/datastore/migration.(*Migrator).EnsureMigrated"))
	assert.Equal(t, "datastore",
		lookupComponent("github.com/tphakala/visitprep/internal/datastore.(*GormStore).Get"))
	assert.Equal(t, ComponentUnknown, lookupComponent("main.main"))
}
