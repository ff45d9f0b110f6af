package entities

import "time"

// QuestionList is the legacy flat record. It is kept for migration and for
// call sites that still read or write the flat shape.
type QuestionList struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	NurseryName string     `json:"nurseryName,omitempty"`
	VisitDate   *time.Time `json:"visitDate,omitempty"`
	Questions   []Question `json:"questions"`
	SharedWith  []string   `json:"sharedWith,omitempty"`
	IsTemplate  bool       `json:"isTemplate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// QuestionListInput is the legacy creation payload.
type QuestionListInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	NurseryName string     `json:"nurseryName,omitempty" validate:"max=200"`
	VisitDate   *time.Time `json:"visitDate,omitempty"`
	Questions   []Question `json:"questions" validate:"dive"`
	SharedWith  []string   `json:"sharedWith,omitempty"`
}

// QuestionListUpdate is a partial legacy update; nil fields are left alone.
// NurseryName and Title both rename the owning nursery, NurseryName wins when both are set.
type QuestionListUpdate struct {
	Title       *string     `json:"title,omitempty" validate:"omitempty,max=200"`
	NurseryName *string     `json:"nurseryName,omitempty" validate:"omitempty,max=200"`
	VisitDate   *time.Time  `json:"visitDate,omitempty"`
	Questions   *[]Question `json:"questions,omitempty"`
	SharedWith  *[]string   `json:"sharedWith,omitempty"`
}
