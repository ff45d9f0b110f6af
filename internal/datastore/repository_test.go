package datastore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/errors"
)

var base = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func TestNurseryRepository_RoundTripAndOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewNurseryRepository(NewMemoryStore())

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	later := entities.NewNursery("a", "Later", base.Add(time.Hour))
	first := entities.NewNursery("z", "First", base)
	tieB := entities.NewNursery("b", "Tie B", base.Add(2*time.Hour))
	tieA := entities.NewNursery("a2", "Tie A", base.Add(2*time.Hour))
	session := entities.NewVisitSession("s1", base, base)
	session.Questions = []entities.Question{entities.NewQuestion("q1", "Meals?", base).WithAnswer("cooked on site", base)}
	first.VisitSessions = []entities.VisitSession{session}

	require.NoError(t, repo.Save(ctx, []entities.Nursery{later, tieB, first, tieA}))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	assert.Equal(t, []string{"z", "a", "a2", "b"}, []string{loaded[0].ID, loaded[1].ID, loaded[2].ID, loaded[3].ID})

	q := loaded[0].VisitSessions[0].Questions[0]
	assert.True(t, q.IsAnswered)
	assert.Equal(t, "cooked on site", q.Answer)
	assert.True(t, loaded[0].CreatedAt.Equal(base))
}

func TestNurseryRepository_RejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	repo := NewNurseryRepository(NewMemoryStore())
	n := entities.NewNursery("n1", "A", base)

	err := repo.Save(context.Background(), []entities.Nursery{n, n})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestNurseryRepository_CorruptBlob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyNurseries, []byte("[not an object")))

	_, err := NewNurseryRepository(store).Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDataIntegrity))
}

func TestLegacyRepository_LoadRawKeepsMalformedRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	blob := `{"l2":{"id":"l2","title":"B"},"l1":{"id":"l1","title":"A"},"bad":{"id":42}}`
	require.NoError(t, store.Set(ctx, KeyQuestionLists, []byte(blob)))

	records, err := NewLegacyRepository(store).LoadRaw(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "bad", records[0].Key)
	assert.JSONEq(t, `{"id":42}`, string(records[0].Data))
	assert.Equal(t, "l1", records[1].Key)
	assert.Equal(t, "l2", records[2].Key)
}

func TestLegacyRepository_SaveAndImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewLegacyRepository(NewMemoryStore())

	records, err := repo.LoadRaw(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, repo.Save(ctx, []entities.QuestionList{{ID: "l1", Title: "A", CreatedAt: base, UpdatedAt: base}}))
	require.NoError(t, repo.ImportRaw(ctx, []RawRecord{{Key: "l2", Data: json.RawMessage(`{"id":"l2","title":"B"}`)}}))

	records, err = repo.LoadRaw(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var first entities.QuestionList
	require.NoError(t, json.Unmarshal(records[0].Data, &first))
	assert.Equal(t, "A", first.Title)
}

func TestTemplateRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewTemplateRepository(NewMemoryStore())

	b := entities.Template{ID: "b", Name: "Second", Questions: []string{"x"}, CreatedAt: base.Add(time.Minute)}
	a := entities.Template{ID: "a", Name: "First", Questions: []string{"y"}, CreatedAt: base}
	require.NoError(t, repo.Put(ctx, b))
	require.NoError(t, repo.Put(ctx, a))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	a.Name = "Renamed"
	require.NoError(t, repo.Put(ctx, a))

	existed, err := repo.Delete(ctx, "b")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(ctx, "b")
	require.NoError(t, err)
	assert.False(t, existed)

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Renamed", got[0].Name)
}
