// Package review owns the KeyReviewState lane state machine. A row has two
// independent lanes (primary: per-item, shared: across all dependents of a
// canonical entity), each with its own AI-confirm and user-accept status.
//
// Shared lane transitions: not_run -> pending -> confirmed, re-opening to
// pending only when the selection actually changes. Confirmation never
// regresses as a side effect of an accept of an unchanged value.
package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/resolver"
	"github.com/CdubVentures/specdesk/internal/store"
)

// ErrNotGridKey is returned when a primary-lane operation is applied to a
// shared-only target shape.
var ErrNotGridKey = eris.New("review: primary lane only applies to grid_key targets")

// Audit event types.
const (
	EventUserAcceptShared  = "user_accept_shared"
	EventAIConfirmShared   = "ai_confirm_shared"
	EventUserAcceptPrimary = "user_accept_primary"
	EventAIConfirmPrimary  = "ai_confirm_primary"
)

// Service applies lane transitions to KeyReviewState rows.
type Service struct {
	store    store.Store
	resolver *resolver.Resolver
}

// NewService creates a review service.
func NewService(st store.Store, res *resolver.Resolver) *Service {
	return &Service{store: st, resolver: res}
}

// ApplySharedLane locates or creates the row for target and applies a shared
// lane accept or confirm.
//
// accept: records the selection (unless suppressed) and sets
// user_accept_shared=accepted. A changed selection forces
// ai_confirm_shared=pending; an unchanged one leaves a prior confirmed alone.
//
// confirm: sets ai_confirm_shared from confirmOverride when given, otherwise
// from whether any competing candidates remain unresolved. An
// already-confirmed lane is left alone: candidates arriving after confirmation
// do not demote it, only a selection change re-opens the lane. Confidence is
// 1.0 only when confirmed.
func (s *Service) ApplySharedLane(ctx context.Context, target model.ReviewTarget, action model.LaneAction, sel *model.Selection, confirmOverride model.LaneStatus, actor string) (*model.KeyReviewState, error) {
	if err := target.Validate(); err != nil {
		return nil, eris.Wrap(err, "review: apply shared lane")
	}

	row, err := s.locateOrCreate(ctx, target)
	if err != nil {
		return nil, err
	}

	switch action {
	case model.ActionAccept:
		oldStatus := row.UserAcceptShared
		selectionChanged := false
		if sel != nil {
			selectionChanged = sel.Changed(row)
			if !sel.Suppress {
				row.SelectedValue = model.NormValue(sel.Value)
				row.SelectedCandidateID = sel.CandidateID
				if sel.Confidence > 0 {
					row.ConfidenceScore = sel.Confidence
				}
			}
		}
		row.UserAcceptShared = model.LaneAccepted
		if selectionChanged {
			row.AIConfirmShared = model.LanePending
		}
		// Unchanged selection: a prior confirmed stays confirmed.

		if err := s.store.UpsertKeyReview(ctx, row); err != nil {
			return nil, eris.Wrap(err, "review: save accept")
		}
		s.audit(ctx, row.Target, EventUserAcceptShared, actor,
			string(oldStatus), string(row.UserAcceptShared), auditReason(selectionChanged))

	case model.ActionConfirm:
		oldStatus := row.AIConfirmShared
		next := confirmOverride
		if next == model.LaneNotRun {
			// Re-running the confirm tool never demotes a confirmed lane;
			// only a selection change re-opens it.
			if row.AIConfirmShared == model.LaneConfirmed {
				return row, nil
			}
			pending, err := s.resolver.PendingCandidateIDs(ctx, target, resolver.SharedOptions())
			if err != nil {
				return nil, eris.Wrap(err, "review: resolve pending")
			}
			if len(pending) == 0 {
				next = model.LaneConfirmed
			} else {
				next = model.LanePending
			}
		}
		row.AIConfirmShared = next
		if next == model.LaneConfirmed {
			row.ConfidenceScore = 1.0
		}

		if err := s.store.UpsertKeyReview(ctx, row); err != nil {
			return nil, eris.Wrap(err, "review: save confirm")
		}
		s.audit(ctx, row.Target, EventAIConfirmShared, actor,
			string(oldStatus), string(row.AIConfirmShared), "shared confirm evaluated")

	default:
		return nil, eris.Errorf("review: unknown lane action %q", action)
	}

	return row, nil
}

// UpdateAIConfirmPrimary sets the primary AI-confirm status for a grid_key
// target. Primary and shared lanes are fully independent.
func (s *Service) UpdateAIConfirmPrimary(ctx context.Context, target model.ReviewTarget, status model.LaneStatus, actor, reason string) (*model.KeyReviewState, error) {
	return s.updatePrimary(ctx, target, status, actor, reason, EventAIConfirmPrimary)
}

// UpdateUserAcceptPrimary sets the primary user-accept status for a grid_key
// target.
func (s *Service) UpdateUserAcceptPrimary(ctx context.Context, target model.ReviewTarget, status model.LaneStatus, actor, reason string) (*model.KeyReviewState, error) {
	return s.updatePrimary(ctx, target, status, actor, reason, EventUserAcceptPrimary)
}

func (s *Service) updatePrimary(ctx context.Context, target model.ReviewTarget, status model.LaneStatus, actor, reason, event string) (*model.KeyReviewState, error) {
	if target.Kind != model.KindGrid {
		return nil, eris.Wrapf(ErrNotGridKey, "%s", target.Kind)
	}
	if err := target.Validate(); err != nil {
		return nil, eris.Wrap(err, "review: update primary")
	}

	row, err := s.locateOrCreate(ctx, target)
	if err != nil {
		return nil, err
	}

	var old model.LaneStatus
	switch event {
	case EventAIConfirmPrimary:
		old = row.AIConfirmPrimary
		row.AIConfirmPrimary = status
	case EventUserAcceptPrimary:
		old = row.UserAcceptPrimary
		row.UserAcceptPrimary = status
	}

	if err := s.store.UpsertKeyReview(ctx, row); err != nil {
		return nil, eris.Wrap(err, "review: save primary lane")
	}
	s.audit(ctx, row.Target, event, actor, string(old), string(status), reason)
	return row, nil
}

// PurgeCategory removes every review row for a category. The only sanctioned
// bulk delete.
func (s *Service) PurgeCategory(ctx context.Context, category string) (int, error) {
	n, err := s.store.PurgeCategory(ctx, category)
	if err != nil {
		return 0, eris.Wrap(err, "review: purge category")
	}
	zap.L().Info("review: category purged", zap.String("category", category), zap.Int("rows", n))
	return n, nil
}

func (s *Service) locateOrCreate(ctx context.Context, target model.ReviewTarget) (*model.KeyReviewState, error) {
	row, err := s.store.GetKeyReview(ctx, target)
	if err != nil {
		return nil, eris.Wrap(err, "review: load state")
	}
	if row == nil {
		row = &model.KeyReviewState{Target: target}
	}
	return row, nil
}

// audit appends one log entry per mutation. Failures never abort the lane
// transition that already landed.
func (s *Service) audit(ctx context.Context, target model.ReviewTarget, event, actor, oldVal, newVal, reason string) {
	err := s.store.AppendAudit(ctx, model.AuditEntry{
		ID:       uuid.New().String(),
		TargetID: target.IdentityTuple(),
		Event:    event,
		Actor:    actor,
		OldValue: oldVal,
		NewValue: newVal,
		Reason:   reason,
	})
	if err != nil {
		zap.L().Warn("review: audit append failed",
			zap.String("event", event),
			zap.String("target", target.IdentityTuple()),
			zap.Error(err),
		)
	}
}

func auditReason(selectionChanged bool) string {
	if selectionChanged {
		return "selection changed, shared confirm re-opened"
	}
	return "selection unchanged"
}
