package entities

import (
	"slices"
	"time"
)

// Template is a named, ordered list of question texts.
// System templates come from the bundled catalog and carry deterministic ids.
type Template struct {
	ID        string    `json:"id" yaml:"id" validate:"required,max=100"`
	Name      string    `json:"name" yaml:"name" validate:"required,max=200"`
	Questions []string  `json:"questions" yaml:"questions" validate:"required,dive,required,max=500"`
	IsSystem  bool      `json:"isSystem" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// Clone returns a deep copy.
func (t Template) Clone() Template {
	t.Questions = slices.Clone(t.Questions)
	return t
}

// FindTemplate returns the first template with the given id.
func FindTemplate(templates []Template, id string) (Template, bool) {
	for i := range templates {
		if templates[i].ID == id {
			return templates[i], true
		}
	}
	return Template{}, false
}
