package catalog

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visitprep/internal/datastore"
	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
)

var (
	testLogger = logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	t0         = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
)

func steppingClock() func() time.Time {
	current := t0
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newTestCatalog(t *testing.T, opts ...Option) *Catalog {
	t.Helper()
	repo := datastore.NewTemplateRepository(datastore.NewMemoryStore())
	c, err := New(repo, testLogger, append([]Option{WithClock(steppingClock())}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestParseTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		data          string
		wantQuestions []string
		wantErr       bool
	}{
		{name: "valid", data: "id: t1\nname: Basics\nquestions:\n  - ' Q1 '\n  - Q2\n", wantQuestions: []string{"Q1", "Q2"}},
		{name: "empty question list", data: "id: t1\nname: Basics\nquestions: []\n", wantQuestions: []string{}},
		{name: "empty document", data: "", wantErr: true},
		{name: "not a mapping", data: "- just\n- a list\n", wantErr: true},
		{name: "questions not a list", data: "id: t1\nname: Basics\nquestions: Q1\n", wantErr: true},
		{name: "questions of mappings", data: "id: t1\nname: Basics\nquestions:\n  - text: Q1\n", wantErr: true},
		{name: "unknown field", data: "id: t1\nname: Basics\nisSystem: true\nquestions: [Q1]\n", wantErr: true},
		{name: "missing id", data: "name: Basics\nquestions: [Q1]\n", wantErr: true},
		{name: "missing name", data: "id: t1\nquestions: [Q1]\n", wantErr: true},
		{name: "missing questions", data: "id: t1\nname: Basics\n", wantErr: true},
		{name: "blank question", data: "id: t1\nname: Basics\nquestions: [Q1, '  ']\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTemplate([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalidTemplateData)
				assert.True(t, errors.IsCategory(err, errors.CategoryDataIntegrity))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "t1", got.ID)
			assert.Equal(t, tt.wantQuestions, got.Questions)
			assert.False(t, got.IsSystem)
		})
	}
}

func TestBundledTemplateIsValid(t *testing.T) {
	t.Parallel()

	tmpl, err := ParseTemplate(defaultTemplateData)
	require.NoError(t, err)
	assert.NotEmpty(t, tmpl.ID)
	assert.NotEmpty(t, tmpl.Name)
	assert.NotEmpty(t, tmpl.Questions)
}

func TestNew_FailsOnBrokenBundle(t *testing.T) {
	t.Parallel()

	repo := datastore.NewTemplateRepository(datastore.NewMemoryStore())
	_, err := New(repo, testLogger, WithBundledData([]byte("id: x\nquestions: {}\n")))
	require.ErrorIs(t, err, ErrInvalidTemplateData)
}

func TestGetDefaultTemplate(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)

	first := c.GetDefaultTemplate()
	require.Len(t, first, 1)
	assert.True(t, first[0].IsSystem)
	assert.False(t, first[0].CreatedAt.IsZero())
	assert.Equal(t, first[0].CreatedAt, first[0].UpdatedAt)

	second := c.GetDefaultTemplate()
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, second[0].CreatedAt.After(first[0].CreatedAt), "each call is freshly stamped")

	// callers cannot corrupt the catalog
	first[0].Questions[0] = "changed"
	assert.NotEqual(t, "changed", c.GetDefaultTemplate()[0].Questions[0])

	all := c.GetAllSystemTemplates()
	require.Len(t, all, 1)
	assert.Equal(t, first[0].ID, all[0].ID)
}

func TestCustomTemplates_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ids := []string{"custom-1", "custom-2"}
	c := newTestCatalog(t, WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	custom, err := c.GetCustomTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, custom)

	a, err := c.CreateCustomTemplate(ctx, " Second visit ", []string{"Any changes since last time?", " Waiting list? "})
	require.NoError(t, err)
	assert.Equal(t, "custom-1", a.ID)
	assert.Equal(t, "Second visit", a.Name)
	assert.Equal(t, []string{"Any changes since last time?", "Waiting list?"}, a.Questions)
	assert.False(t, a.IsSystem)

	_, err = c.CreateCustomTemplate(ctx, "Settling in", []string{"Key worker?"})
	require.NoError(t, err)

	all, err := c.AllTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].IsSystem)
	assert.Equal(t, "custom-1", all[1].ID)
	assert.Equal(t, "custom-2", all[2].ID)

	a.Name = "Second visit (updated)"
	created := a.CreatedAt
	require.NoError(t, c.SaveCustomTemplate(ctx, &a))
	assert.Equal(t, created, a.CreatedAt)
	assert.True(t, a.UpdatedAt.After(created))

	require.NoError(t, c.DeleteCustomTemplate(ctx, "custom-2"))
	err = c.DeleteCustomTemplate(ctx, "custom-2")
	require.ErrorIs(t, err, ErrCustomTemplateNotFound)
	assert.True(t, errors.IsNotFound(err))

	custom, err = c.GetCustomTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Equal(t, "Second visit (updated)", custom[0].Name)
}

func TestCustomTemplates_SystemTemplatesAreReadOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newTestCatalog(t)
	systemID := c.GetDefaultTemplate()[0].ID

	err := c.SaveCustomTemplate(ctx, &entities.Template{ID: "x", Name: "n", Questions: []string{"q"}, IsSystem: true})
	require.ErrorIs(t, err, ErrSystemTemplateReadOnly)
	assert.True(t, errors.IsPrecondition(err))

	err = c.SaveCustomTemplate(ctx, &entities.Template{ID: systemID, Name: "n", Questions: []string{"q"}})
	require.ErrorIs(t, err, ErrSystemTemplateReadOnly)

	err = c.DeleteCustomTemplate(ctx, systemID)
	require.ErrorIs(t, err, ErrSystemTemplateReadOnly)
}

func TestCustomTemplates_Validation(t *testing.T) {
	t.Parallel()
	c := newTestCatalog(t)

	_, err := c.CreateCustomTemplate(context.Background(), "  ", []string{"q"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = c.CreateCustomTemplate(context.Background(), "Empty", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestCustomTemplates_HonorCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestCatalog(t)

	_, err := c.GetCustomTemplates(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))

	_, err = c.AllTemplates(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, err = c.CreateCustomTemplate(ctx, "n", []string{"q"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCustomTemplates_EmptyQuestionList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newTestCatalog(t, WithIDGenerator(func() string { return "custom-empty" }))

	tmpl, err := c.CreateCustomTemplate(ctx, "Placeholder", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, tmpl.Questions)

	custom, err := c.GetCustomTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 1)
	assert.Empty(t, custom[0].Questions)

	// a stored record still has to carry the question array
	err = c.SaveCustomTemplate(ctx, &entities.Template{ID: "no-array", Name: "Broken"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
