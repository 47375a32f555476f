// Package ledger records per-(candidate, context) review decisions. These
// rows are the sole input to pending-candidate resolution; no other component
// may infer resolution status by comparing values.
package ledger

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/store"
)

// Typed precondition failures. Lane mutations are strict: any of these aborts
// the whole operation.
var (
	ErrNotFound        = eris.New("ledger: candidate not found")
	ErrContextMismatch = eris.New("ledger: candidate belongs to a different slot")
	ErrValueMismatch   = eris.New("ledger: candidate value disagrees with requested value")
)

// Decision is the verdict to record for one candidate in one context.
type Decision struct {
	AIStatus      string `json:"ai_review_status,omitempty"` // accepted | rejected | ""
	HumanAccepted bool   `json:"human_accepted,omitempty"`
	AIReason      string `json:"ai_reason,omitempty"`

	// ExpectedSlotKey, when set, requires the candidate to belong to that
	// slot. Guards against a request wired to the wrong field.
	ExpectedSlotKey string `json:"-"`
	// ExpectedValue, when set on an accepting decision (AI-accepted or
	// human-accepted), requires the candidate's recorded value to match.
	// AllowRename sanctions the one exception: an explicit rename-accept.
	ExpectedValue string `json:"-"`
	AllowRename   bool   `json:"-"`
}

// Ledger validates and upserts CandidateReview rows.
type Ledger struct {
	store store.Store
}

// New creates a Ledger backed by the given store.
func New(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// Upsert records a decision for (candidateID, ctxType, ctxID), idempotently.
func (l *Ledger) Upsert(ctx context.Context, candidateID string, ctxType model.ReviewContext, ctxID string, d Decision) (*model.CandidateReview, error) {
	c, err := l.store.GetCandidate(ctx, candidateID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "%s", candidateID)
		}
		return nil, eris.Wrap(err, "ledger: load candidate")
	}

	if d.ExpectedSlotKey != "" && c.SlotKey != d.ExpectedSlotKey {
		return nil, eris.Wrapf(ErrContextMismatch, "candidate %s is attached to %s", candidateID, c.SlotKey)
	}
	accepts := d.AIStatus == model.AIAccepted || d.HumanAccepted
	if d.ExpectedValue != "" && accepts && !d.AllowRename {
		if !model.EqualFoldTrim(c.Value, d.ExpectedValue) {
			return nil, eris.Wrapf(ErrValueMismatch, "candidate %s holds %q, caller sent %q", candidateID, c.Value, d.ExpectedValue)
		}
	}

	row := model.CandidateReview{
		CandidateID:   candidateID,
		ContextType:   ctxType,
		ContextID:     ctxID,
		AIStatus:      d.AIStatus,
		HumanAccepted: d.HumanAccepted,
		AIReason:      d.AIReason,
	}
	if err := l.store.UpsertReview(ctx, row); err != nil {
		return nil, eris.Wrap(err, "ledger: upsert review")
	}

	zap.L().Debug("ledger: decision recorded",
		zap.String("candidate_id", candidateID),
		zap.String("context_type", string(ctxType)),
		zap.String("context_id", ctxID),
		zap.String("ai_status", d.AIStatus),
		zap.Bool("human_accepted", d.HumanAccepted),
	)
	return &row, nil
}
