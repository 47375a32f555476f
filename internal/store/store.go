// Package store persists review state, candidates, decisions, link indexes,
// dependent field values and queue state. Two backends implement the same
// interface: SQLite (default) and Postgres.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/CdubVentures/specdesk/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = eris.New("store: not found")

// DependentRef identifies one dependent record resolved through a link index.
type DependentRef struct {
	DependentID string `json:"dependent_id"`
	FieldKey    string `json:"field_key"`
}

// Store is the persistence interface for the review engine.
type Store interface {
	// Key review state. Upserts are idempotent on the target's identity tuple.
	GetKeyReview(ctx context.Context, target model.ReviewTarget) (*model.KeyReviewState, error)
	UpsertKeyReview(ctx context.Context, row *model.KeyReviewState) error
	PurgeCategory(ctx context.Context, category string) (int, error)

	// Candidates. Immutable once inserted.
	InsertCandidate(ctx context.Context, c model.Candidate) error
	GetCandidate(ctx context.Context, id string) (*model.Candidate, error)
	GetCandidatesForSlot(ctx context.Context, slotKey string) ([]model.Candidate, error)

	// Candidate reviews, keyed (candidate_id, context_type, context_id).
	UpsertReview(ctx context.Context, r model.CandidateReview) error
	GetReview(ctx context.Context, candidateID string, ctxType model.ReviewContext, ctxID string) (*model.CandidateReview, error)
	ListReviewsForCandidates(ctx context.Context, candidateIDs []string, ctxType model.ReviewContext, ctxID string) (map[string]model.CandidateReview, error)

	// Link index.
	UpsertComponentLink(ctx context.Context, category, componentType, name, maker, dependentID, fieldKey string) error
	GetDependentsForComponent(ctx context.Context, category, componentType, name, maker string) ([]DependentRef, error)
	UpsertEnumLink(ctx context.Context, category, field, value, dependentID string) error
	GetDependentsForEnumValue(ctx context.Context, category, field, value string) ([]DependentRef, error)
	DeleteEnumLinks(ctx context.Context, category, field, value string) (int, error)

	// Dependent field state.
	GetFieldValue(ctx context.Context, category, dependentID, field string) (string, error)
	SetFieldValue(ctx context.Context, category, dependentID, field, value string) error
	GetFieldValues(ctx context.Context, category, field string, dependentIDs []string) (map[string]string, error)
	ScanFieldValues(ctx context.Context, category, field string) (map[string]string, error)
	ListFields(ctx context.Context, category string) ([]string, error)

	// Queue state. Callers only raise priority and append dirty flags.
	LoadQueueState(ctx context.Context, category string) (map[string]model.QueueEntry, error)
	SaveQueueState(ctx context.Context, category string, entries map[string]model.QueueEntry) error

	// Audit log.
	AppendAudit(ctx context.Context, e model.AuditEntry) error
	ListAudit(ctx context.Context, targetID string, limit int) ([]model.AuditEntry, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
