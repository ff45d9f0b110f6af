package datastore

import (
	"cmp"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/errors"
)

// loadBlob decodes the JSON object stored at key. A missing key is an empty map.
func loadBlob[T any](ctx context.Context, s Storage, key string) (map[string]T, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return map[string]T{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := map[string]T{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, integrityError(err, key)
	}
	return out, nil
}

// saveBlob replaces the JSON object stored at key.
func saveBlob[T any](ctx context.Context, s Storage, key string, m map[string]T) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("operation", "encode_blob").
			Context("key", key).
			Build()
	}
	return s.Set(ctx, key, data)
}

// byCreation orders by creation time, then id, so reloads are deterministic.
func byCreation(aCreated, bCreated time.Time, aID, bID string) int {
	if c := aCreated.Compare(bCreated); c != 0 {
		return c
	}
	return cmp.Compare(aID, bID)
}

// NurseryRepository persists the nursery collection as one blob keyed by nursery id.
type NurseryRepository struct {
	storage Storage
}

// NewNurseryRepository returns a repository over s.
func NewNurseryRepository(s Storage) *NurseryRepository {
	return &NurseryRepository{storage: s}
}

// Load returns all nurseries ordered by CreatedAt, then ID.
func (r *NurseryRepository) Load(ctx context.Context) ([]entities.Nursery, error) {
	blob, err := loadBlob[entities.Nursery](ctx, r.storage, KeyNurseries)
	if err != nil {
		return nil, err
	}

	nurseries := slices.Collect(maps.Values(blob))
	slices.SortFunc(nurseries, func(a, b entities.Nursery) int {
		return byCreation(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return nurseries, nil
}

// Save replaces the stored collection with nurseries. Ids must be unique.
func (r *NurseryRepository) Save(ctx context.Context, nurseries []entities.Nursery) error {
	blob := make(map[string]entities.Nursery, len(nurseries))
	for i := range nurseries {
		id := nurseries[i].ID
		if _, dup := blob[id]; dup {
			return errors.Newf("duplicate nursery id %q", id).
				Component("datastore").
				Category(errors.CategoryValidation).
				Context("operation", "save_nurseries").
				Build()
		}
		blob[id] = nurseries[i]
	}
	return saveBlob(ctx, r.storage, KeyNurseries, blob)
}

// RawRecord is one undecoded legacy record.
type RawRecord struct {
	Key  string
	Data json.RawMessage
}

// LegacyRepository reads the legacy question list blob. Records stay raw so one
// malformed record does not hide the others.
type LegacyRepository struct {
	storage Storage
}

// NewLegacyRepository returns a repository over s.
func NewLegacyRepository(s Storage) *LegacyRepository {
	return &LegacyRepository{storage: s}
}

// LoadRaw returns every legacy record ordered by key. Only an undecodable outer
// object is an error.
func (r *LegacyRepository) LoadRaw(ctx context.Context) ([]RawRecord, error) {
	blob, err := loadBlob[json.RawMessage](ctx, r.storage, KeyQuestionLists)
	if err != nil {
		return nil, err
	}

	records := make([]RawRecord, 0, len(blob))
	for _, key := range slices.Sorted(maps.Keys(blob)) {
		records = append(records, RawRecord{Key: key, Data: blob[key]})
	}
	return records, nil
}

// Save replaces the legacy blob with lists keyed by their id.
func (r *LegacyRepository) Save(ctx context.Context, lists []entities.QuestionList) error {
	blob := make(map[string]entities.QuestionList, len(lists))
	for i := range lists {
		blob[lists[i].ID] = lists[i]
	}
	return saveBlob(ctx, r.storage, KeyQuestionLists, blob)
}

// ImportRaw merges records into the legacy blob without decoding them.
func (r *LegacyRepository) ImportRaw(ctx context.Context, records []RawRecord) error {
	blob, err := loadBlob[json.RawMessage](ctx, r.storage, KeyQuestionLists)
	if err != nil {
		return err
	}
	for _, rec := range records {
		blob[rec.Key] = rec.Data
	}
	return saveBlob(ctx, r.storage, KeyQuestionLists, blob)
}

// TemplateRepository persists custom templates as one blob keyed by template id.
type TemplateRepository struct {
	storage Storage
}

// NewTemplateRepository returns a repository over s.
func NewTemplateRepository(s Storage) *TemplateRepository {
	return &TemplateRepository{storage: s}
}

// Load returns all custom templates ordered by CreatedAt, then ID.
func (r *TemplateRepository) Load(ctx context.Context) ([]entities.Template, error) {
	blob, err := loadBlob[entities.Template](ctx, r.storage, KeyCustomTemplates)
	if err != nil {
		return nil, err
	}

	templates := slices.Collect(maps.Values(blob))
	slices.SortFunc(templates, func(a, b entities.Template) int {
		return byCreation(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return templates, nil
}

// Put creates or replaces one template.
func (r *TemplateRepository) Put(ctx context.Context, t entities.Template) error {
	blob, err := loadBlob[entities.Template](ctx, r.storage, KeyCustomTemplates)
	if err != nil {
		return err
	}
	blob[t.ID] = t
	return saveBlob(ctx, r.storage, KeyCustomTemplates, blob)
}

// Delete removes one template and reports whether it existed.
func (r *TemplateRepository) Delete(ctx context.Context, id string) (bool, error) {
	blob, err := loadBlob[entities.Template](ctx, r.storage, KeyCustomTemplates)
	if err != nil {
		return false, err
	}
	if _, ok := blob[id]; !ok {
		return false, nil
	}
	delete(blob, id)
	return true, saveBlob(ctx, r.storage, KeyCustomTemplates, blob)
}
