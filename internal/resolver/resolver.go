// Package resolver enumerates the competing candidates for a reviewable slot
// and reports which are not yet resolved. A shared confirm only lands once
// this reports nothing pending, which makes confirmation a convergence
// operation over ledger decisions.
package resolver

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/store"
)

// Options control what counts as a resolved candidate.
type Options struct {
	// IncludeHumanAccepted treats human_accepted=true as resolved. Primary
	// lanes set this: a human accept on the item's own candidate is
	// authoritative for that item.
	IncludeHumanAccepted bool
	// TreatSharedAcceptAsPending re-opens accepted reviews whose ai_reason is
	// a legacy shared_accept/primary_confirm tag. Shared confirmation must be
	// AI-driven, so historically-written accept rows must not silently count.
	// The tags stay valid resolution markers when this is unset.
	TreatSharedAcceptAsPending bool
}

// SharedOptions are the options every shared-lane call site passes.
func SharedOptions() Options {
	return Options{IncludeHumanAccepted: false, TreatSharedAcceptAsPending: true}
}

// PrimaryOptions are the options every primary-lane call site passes.
func PrimaryOptions() Options {
	return Options{IncludeHumanAccepted: true}
}

// Resolver reads candidates and ledger decisions for a slot.
type Resolver struct {
	store store.Store
}

// New creates a Resolver backed by the given store.
func New(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// PendingCandidateIDs returns the ids of every meaningful-valued candidate on
// the target's slot that is not yet resolved, in stable insertion order. At
// most one review per candidate id is counted.
func (r *Resolver) PendingCandidateIDs(ctx context.Context, target model.ReviewTarget, opts Options) ([]string, error) {
	ctxType, ctxID := reviewContextFor(target)
	return r.pending(ctx, target.IdentityTuple(), ctxType, ctxID, opts)
}

// ForItem resolves pending candidates for one product's field slot.
func (r *Resolver) ForItem(ctx context.Context, category, productID, field, fieldSlotID string, opts Options) ([]string, error) {
	return r.PendingCandidateIDs(ctx, model.NewGridTarget(category, productID, field, fieldSlotID), opts)
}

// ForComponent resolves pending candidates for a shared component property.
func (r *Resolver) ForComponent(ctx context.Context, category, componentType, name, maker, property string, opts Options) ([]string, error) {
	return r.PendingCandidateIDs(ctx, model.NewComponentTarget(category, componentType, name, maker, property), opts)
}

// ForEnum resolves pending candidates for a canonical enum value.
func (r *Resolver) ForEnum(ctx context.Context, category, field, value string, opts Options) ([]string, error) {
	return r.PendingCandidateIDs(ctx, model.NewEnumTarget(category, field, value), opts)
}

func (r *Resolver) pending(ctx context.Context, slotKey string, ctxType model.ReviewContext, ctxID string, opts Options) ([]string, error) {
	candidates, err := r.store.GetCandidatesForSlot(ctx, slotKey)
	if err != nil {
		return nil, eris.Wrap(err, "resolver: load candidates")
	}

	// Dedup by id while preserving insertion order.
	seen := make(map[string]struct{}, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !model.IsMeaningful(c.Value) {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	reviews, err := r.store.ListReviewsForCandidates(ctx, ids, ctxType, ctxID)
	if err != nil {
		return nil, eris.Wrap(err, "resolver: load reviews")
	}

	var pending []string
	for _, id := range ids {
		review, ok := reviews[id]
		if !ok || !isResolved(review, opts) {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

func isResolved(review model.CandidateReview, opts Options) bool {
	if review.AIStatus == model.AIRejected {
		return true
	}
	if review.AIStatus == model.AIAccepted {
		if opts.TreatSharedAcceptAsPending && isLegacyReason(review.AIReason) {
			// Legacy rows fall through: they may still resolve via
			// human_accepted below.
		} else {
			return true
		}
	}
	if opts.IncludeHumanAccepted && review.HumanAccepted {
		return true
	}
	return false
}

func isLegacyReason(reason string) bool {
	return reason == model.ReasonSharedAccept || reason == model.ReasonPrimaryConfirm
}

// reviewContextFor maps a target shape to the ledger context its decisions
// live in. Slot ids scope the context when present; the identity tuple is the
// fallback so decisions stay scoped even before slot ids are assigned.
func reviewContextFor(target model.ReviewTarget) (model.ReviewContext, string) {
	switch target.Kind {
	case model.KindGrid:
		if target.Grid.FieldSlotID != "" {
			return model.ContextItem, target.Grid.FieldSlotID
		}
		return model.ContextItem, target.IdentityTuple()
	case model.KindComponent:
		if target.Component.ValueSlotID != "" {
			return model.ContextComponent, target.Component.ValueSlotID
		}
		return model.ContextComponent, target.IdentityTuple()
	case model.KindEnum:
		if target.Enum.ListValueID != "" {
			return model.ContextList, target.Enum.ListValueID
		}
		return model.ContextList, target.IdentityTuple()
	}
	return model.ContextItem, target.IdentityTuple()
}

// ReviewContextFor exposes the context mapping for callers that record
// decisions against the same scope the resolver reads.
func ReviewContextFor(target model.ReviewTarget) (model.ReviewContext, string) {
	return reviewContextFor(target)
}
