package entities

import "time"

// Nursery is the aggregate root for one facility.
// VisitSessions keep creation order; templates are applied to the first one.
type Nursery struct {
	ID            string         `json:"id" validate:"required"`
	Name          string         `json:"name" validate:"required,max=200"`
	VisitSessions []VisitSession `json:"visitSessions" validate:"dive"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewNursery returns a nursery without sessions.
func NewNursery(id, name string, now time.Time) Nursery {
	return Nursery{
		ID:            id,
		Name:          name,
		VisitSessions: []VisitSession{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// FirstSession returns the session templates are applied to.
func (n *Nursery) FirstSession() (VisitSession, bool) {
	if len(n.VisitSessions) == 0 {
		return VisitSession{}, false
	}
	return n.VisitSessions[0], true
}

// FindSession returns the index of the session with the given id.
func (n *Nursery) FindSession(id string) (int, bool) {
	for i := range n.VisitSessions {
		if n.VisitSessions[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy.
func (n Nursery) Clone() Nursery {
	if n.VisitSessions != nil {
		sessions := make([]VisitSession, len(n.VisitSessions))
		for i := range n.VisitSessions {
			sessions[i] = n.VisitSessions[i].Clone()
		}
		n.VisitSessions = sessions
	}
	return n
}

// CloneNurseries deep-copies a nursery collection.
func CloneNurseries(nurseries []Nursery) []Nursery {
	if nurseries == nil {
		return nil
	}
	out := make([]Nursery, len(nurseries))
	for i := range nurseries {
		out[i] = nurseries[i].Clone()
	}
	return out
}
