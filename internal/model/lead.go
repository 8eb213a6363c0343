package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// LeadStatus represents a lead's position in the sales pipeline.
type LeadStatus string

const (
	StatusNew       LeadStatus = "new"
	StatusContacted LeadStatus = "contacted"
	StatusSold      LeadStatus = "sold"
	StatusRejected  LeadStatus = "rejected"
)

// ParseLeadStatus validates a raw status string.
func ParseLeadStatus(s string) (LeadStatus, error) {
	switch LeadStatus(s) {
	case StatusNew, StatusContacted, StatusSold, StatusRejected:
		return LeadStatus(s), nil
	}
	return "", eris.Errorf("model: unknown lead status %q", s)
}

// allowedTransitions is the forward-only pipeline: new leads can be
// contacted (or jump straight to sold/rejected), contacted leads close
// as sold or rejected, sold is terminal, and rejected leads can only be
// resurrected by an explicit edit back to contacted.
var allowedTransitions = map[LeadStatus][]LeadStatus{
	StatusNew:       {StatusContacted, StatusSold, StatusRejected},
	StatusContacted: {StatusSold, StatusRejected},
	StatusSold:      {},
	StatusRejected:  {StatusContacted},
}

// ErrIllegalTransition is returned when a status change would move a
// lead backwards through the pipeline.
var ErrIllegalTransition = eris.New("model: illegal lead status transition")

// CanTransition reports whether a lead may move from one status to
// another. Writing the same status again is always permitted, so
// repeated upserts stay idempotent.
func CanTransition(from, to LeadStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lead is the persisted pipeline record for one place, keyed by the
// stable place identifier. Display fields are denormalized from the
// place at the time of the last status change.
type Lead struct {
	PlaceID   string     `json:"place_id"`
	Status    LeadStatus `json:"status"`
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	Phone     *string    `json:"phone"`
	Website   *string    `json:"website"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Advance moves the lead to the given status, rejecting illegal
// regressions such as sold back to contacted.
func (l *Lead) Advance(to LeadStatus) error {
	if !CanTransition(l.Status, to) {
		return eris.Wrapf(ErrIllegalTransition, "%s -> %s for %s", l.Status, to, l.PlaceID)
	}
	l.Status = to
	return nil
}
