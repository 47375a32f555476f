package model

import "time"

// LaneStatus is the confirmation status of one lane of a KeyReviewState row.
// The zero value means the lane has never run.
type LaneStatus string

const (
	LaneNotRun    LaneStatus = ""
	LanePending   LaneStatus = "pending"
	LaneConfirmed LaneStatus = "confirmed"
	LaneAccepted  LaneStatus = "accepted"
)

// LaneAction selects which transition ApplySharedLane performs.
type LaneAction string

const (
	ActionAccept  LaneAction = "accept"
	ActionConfirm LaneAction = "confirm"
)

// KeyReviewState is the authoritative per-target review row. One row exists
// per ReviewTarget identity tuple, created lazily on first touch.
//
// The primary lanes are meaningful only for grid_key targets. The shared lanes
// apply to all three target shapes and are the sole confirm lanes for
// component_key and enum_key. Lanes are fully independent: confirming one
// never changes the other.
type KeyReviewState struct {
	Target              ReviewTarget `json:"target"`
	SelectedValue       string       `json:"selected_value,omitempty"`
	SelectedCandidateID string       `json:"selected_candidate_id,omitempty"`
	ConfidenceScore     float64      `json:"confidence_score,omitempty"`
	AIConfirmPrimary    LaneStatus   `json:"ai_confirm_primary_status,omitempty"`
	UserAcceptPrimary   LaneStatus   `json:"user_accept_primary_status,omitempty"`
	AIConfirmShared     LaneStatus   `json:"ai_confirm_shared_status,omitempty"`
	UserAcceptShared    LaneStatus   `json:"user_accept_shared_status,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Selection carries the candidate/value a lane mutation records.
type Selection struct {
	CandidateID string  `json:"candidate_id,omitempty"`
	Value       string  `json:"value"`
	Confidence  float64 `json:"confidence,omitempty"`
	// Suppress leaves the stored selected_* fields untouched while still
	// running the lane transition.
	Suppress bool `json:"suppress,omitempty"`
}

// Changed reports whether the selection differs from the row's stored
// selection by candidate id or value. An accept of an unchanged selection must
// not re-open a confirmed lane.
func (s Selection) Changed(row *KeyReviewState) bool {
	if s.CandidateID != "" && s.CandidateID != row.SelectedCandidateID {
		return true
	}
	return !EqualFoldTrim(s.Value, row.SelectedValue)
}

// AuditEntry records one lane mutation for the audit log.
type AuditEntry struct {
	ID       string    `json:"id"`
	TargetID string    `json:"target_id"`
	Event    string    `json:"event"`
	Actor    string    `json:"actor"`
	OldValue string    `json:"old_value,omitempty"`
	NewValue string    `json:"new_value,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}
