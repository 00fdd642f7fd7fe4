package models

// BulkAction is an operation applied to a selection of records
type BulkAction string

const (
	BulkActivate   BulkAction = "activate"
	BulkDeactivate BulkAction = "deactivate"
	BulkDelete     BulkAction = "delete"
)

// BulkPolicy describes what an action requires before any write is issued
type BulkPolicy struct {
	RequiresAdmin        bool
	RequiresConfirmation bool
}

// BulkPolicies is the authorization table for bulk actions.
// Activate and deactivate are not admin-gated while delete is; the
// asymmetry is kept until product confirms the intended policy.
var BulkPolicies = map[BulkAction]BulkPolicy{
	BulkActivate:   {RequiresAdmin: false, RequiresConfirmation: false},
	BulkDeactivate: {RequiresAdmin: false, RequiresConfirmation: false},
	BulkDelete:     {RequiresAdmin: true, RequiresConfirmation: true},
}

// WriteState tracks a single optimistic write
type WriteState string

const (
	WriteIdle       WriteState = "idle"
	WritePending    WriteState = "pending"
	WriteCommitted  WriteState = "committed"
	WriteRolledBack WriteState = "rolled_back"
)

// Advance moves a write one step along Idle → Pending → Committed or
// RolledBack. err decides how a pending write settles; settled writes
// do not move.
func (s WriteState) Advance(err error) WriteState {
	switch s {
	case WriteIdle:
		return WritePending
	case WritePending:
		if err != nil {
			return WriteRolledBack
		}
		return WriteCommitted
	}
	return s
}

// BulkOutcome is the result of one target inside a bulk action
type BulkOutcome struct {
	ID    string     `json:"id"`
	State WriteState `json:"state"`
	Error string     `json:"error,omitempty"`
}

// BulkReport summarises an applied bulk action
type BulkReport struct {
	Action    BulkAction    `json:"action"`
	Requested int           `json:"requested"`
	Committed int           `json:"committed"`
	Failed    int           `json:"failed"`
	Outcomes  []BulkOutcome `json:"outcomes"`
}

// SelectionSet is the set of record ids a session has chosen for a bulk action
type SelectionSet struct {
	IDs           []string `json:"ids"`
	DeletePending bool     `json:"delete_pending"`
}
