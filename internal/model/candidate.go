package model

import "time"

// CandidateSource identifies where a candidate value came from.
type CandidateSource string

const (
	SourcePipeline  CandidateSource = "pipeline"
	SourceReference CandidateSource = "reference"
	SourceUser      CandidateSource = "user"
	SourceDerived   CandidateSource = "derived"
)

// Evidence links a candidate back to the text it was extracted from.
type Evidence struct {
	URL     string `json:"url,omitempty"`
	Quote   string `json:"quote,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Candidate is a proposed value for a reviewable slot. Candidates are
// immutable once inserted; a slot accumulates them over time from pipeline
// runs, reference imports and manual entry.
type Candidate struct {
	ID        string          `json:"id"`
	SlotKey   string          `json:"slot_key"` // ReviewTarget identity tuple of the owning slot
	Value     string          `json:"value"`
	Score     float64         `json:"score"`
	Source    CandidateSource `json:"source"`
	Evidence  Evidence        `json:"evidence,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ReviewContext scopes a CandidateReview to one use of the candidate.
type ReviewContext string

const (
	ContextItem      ReviewContext = "item"
	ContextComponent ReviewContext = "component"
	ContextList      ReviewContext = "list"
)

// AI review statuses. Absence (empty string) means pending.
const (
	AIAccepted = "accepted"
	AIRejected = "rejected"
)

// Legacy ai_reason tags written by older confirmation tooling. Rows carrying
// them are excluded from counting as AI-resolved when the caller asks for
// strict shared-lane semantics; they remain valid resolution markers
// everywhere else.
const (
	ReasonSharedAccept   = "shared_accept"
	ReasonPrimaryConfirm = "primary_confirm"
	ReasonSharedConfirm  = "shared_confirm"
)

// CandidateReview is one decision about one candidate within one review
// context. Multiple reviews may exist for the same candidate across contexts;
// lookup is always scoped to (candidate_id, context_type, context_id).
type CandidateReview struct {
	CandidateID   string        `json:"candidate_id"`
	ContextType   ReviewContext `json:"context_type"`
	ContextID     string        `json:"context_id"`
	AIStatus      string        `json:"ai_review_status,omitempty"` // accepted | rejected | "" (pending)
	HumanAccepted bool          `json:"human_accepted"`
	AIReason      string        `json:"ai_reason,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
