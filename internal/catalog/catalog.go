// Package catalog supplies question templates: the bundled system templates,
// loaded and checked once at startup, and custom templates kept in storage.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/visitprep/internal/datastore"
	"github.com/tphakala/visitprep/internal/datastore/entities"
	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
)

//go:embed data/default_template.yaml
var defaultTemplateData []byte

var (
	// ErrInvalidTemplateData marks bundled or imported template data of the wrong shape.
	ErrInvalidTemplateData = errors.NewStd("invalid template data")
	// ErrCustomTemplateNotFound is returned when deleting an unknown custom template.
	ErrCustomTemplateNotFound = errors.NewStd("custom template not found")
	// ErrSystemTemplateReadOnly is returned for writes that target a system template.
	ErrSystemTemplateReadOnly = errors.NewStd("system templates are read-only")
)

// ParseTemplate decodes one template record and checks its shape. Unknown keys,
// missing fields and blank questions are rejected.
func ParseTemplate(data []byte) (entities.Template, error) {
	var t entities.Template

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return entities.Template{}, invalidTemplate(err)
	}

	t = normalizeTemplate(t)
	if err := entities.Validate(&t); err != nil {
		return entities.Template{}, invalidTemplate(err)
	}
	return t, nil
}

func invalidTemplate(cause error) error {
	return errors.New(fmt.Errorf("%w: %w", ErrInvalidTemplateData, cause)).
		Component("catalog").
		Category(errors.CategoryDataIntegrity).
		Priority(errors.PriorityCritical).
		Context("operation", "parse_template").
		Build()
}

func normalizeTemplate(t entities.Template) entities.Template {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	if t.Questions == nil {
		return t
	}
	questions := make([]string, len(t.Questions))
	for i, q := range t.Questions {
		questions[i] = strings.TrimSpace(q)
	}
	t.Questions = questions
	return t
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock replaces time.Now for template timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithIDGenerator replaces entities.NewID for custom template ids.
func WithIDGenerator(newID func() string) Option {
	return func(c *Catalog) { c.newID = newID }
}

// WithBundledData replaces the embedded system template record.
func WithBundledData(data []byte) Option {
	return func(c *Catalog) { c.bundled = data }
}

// Catalog serves system and custom templates.
type Catalog struct {
	system  entities.Template
	bundled []byte
	custom  *datastore.TemplateRepository
	log     logger.Logger
	now     func() time.Time
	newID   func() string
}

// New parses the bundled system template. Invalid bundled data is an error,
// so a broken build fails at startup.
func New(repo *datastore.TemplateRepository, log logger.Logger, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		bundled: defaultTemplateData,
		custom:  repo,
		log:     log,
		now:     time.Now,
		newID:   entities.NewID,
	}
	for _, opt := range opts {
		opt(c)
	}

	system, err := ParseTemplate(c.bundled)
	if err != nil {
		return nil, err
	}
	system.IsSystem = true
	c.system = system

	c.log.Debug("system templates loaded",
		logger.String("template_id", system.ID),
		logger.Int("questions", len(system.Questions)))
	return c, nil
}

// GetDefaultTemplate returns the bundled template stamped with the current time.
func (c *Catalog) GetDefaultTemplate() []entities.Template {
	now := c.now()
	t := c.system.Clone()
	t.CreatedAt = now
	t.UpdatedAt = now
	return []entities.Template{t}
}

// GetAllSystemTemplates returns every system template.
func (c *Catalog) GetAllSystemTemplates() []entities.Template {
	return c.GetDefaultTemplate()
}

func (c *Catalog) isSystemID(id string) bool {
	return slices.ContainsFunc(c.GetAllSystemTemplates(), func(t entities.Template) bool {
		return t.ID == id
	})
}

// GetCustomTemplates returns the stored custom templates, oldest first.
func (c *Catalog) GetCustomTemplates(ctx context.Context) ([]entities.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err, "get_custom_templates")
	}
	return c.custom.Load(ctx)
}

// SaveCustomTemplate creates or replaces a custom template.
func (c *Catalog) SaveCustomTemplate(ctx context.Context, t *entities.Template) error {
	if t.IsSystem || c.isSystemID(strings.TrimSpace(t.ID)) {
		return errors.New(ErrSystemTemplateReadOnly).
			Component("catalog").
			Category(errors.CategoryPrecondition).
			Context("template_id", t.ID).
			Build()
	}

	saved := normalizeTemplate(t.Clone())
	if err := entities.Validate(&saved); err != nil {
		return err
	}

	now := c.now()
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now

	if err := ctx.Err(); err != nil {
		return cancelled(err, "save_custom_template")
	}
	if err := c.custom.Put(ctx, saved); err != nil {
		return err
	}

	*t = saved
	c.log.Info("custom template saved",
		logger.String("template_id", saved.ID),
		logger.Int("questions", len(saved.Questions)))
	return nil
}

// CreateCustomTemplate stores a new custom template with a generated id.
func (c *Catalog) CreateCustomTemplate(ctx context.Context, name string, questions []string) (entities.Template, error) {
	t := entities.Template{
		ID:        c.newID(),
		Name:      name,
		Questions: append([]string{}, questions...),
	}
	if err := c.SaveCustomTemplate(ctx, &t); err != nil {
		return entities.Template{}, err
	}
	return t, nil
}

// DeleteCustomTemplate removes a custom template.
func (c *Catalog) DeleteCustomTemplate(ctx context.Context, id string) error {
	if c.isSystemID(id) {
		return errors.New(ErrSystemTemplateReadOnly).
			Component("catalog").
			Category(errors.CategoryPrecondition).
			Context("template_id", id).
			Build()
	}

	existed, err := c.custom.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		return errors.New(ErrCustomTemplateNotFound).
			Component("catalog").
			Category(errors.CategoryNotFound).
			Context("template_id", id).
			Build()
	}

	c.log.Info("custom template deleted", logger.String("template_id", id))
	return nil
}

// AllTemplates returns system templates followed by custom ones.
func (c *Catalog) AllTemplates(ctx context.Context) ([]entities.Template, error) {
	custom, err := c.GetCustomTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Concat(c.GetAllSystemTemplates(), custom), nil
}

func cancelled(err error, operation string) error {
	return errors.New(err).
		Component("catalog").
		Category(errors.CategoryCancellation).
		Context("operation", operation).
		Build()
}
