// Package cascade propagates canonical-value changes (component property or
// identity edits, enum removes and renames) to every dependent record and
// marks each one stale with a policy-derived priority.
//
// Error handling is layered: resolving who is affected is strict, everything
// after that is best-effort. One bad dependent never blocks marking the rest
// stale; failures land in the propagation report instead.
package cascade

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CdubVentures/specdesk/internal/layout"
	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/store"
	"github.com/CdubVentures/specdesk/internal/variance"
)

// Propagation actions recorded in dirty flags and reports.
const (
	ActionValuePushed     = "value_pushed"
	ActionVarianceFlagged = "variance_flagged"
	ActionValueCleared    = "value_cleared"
	ActionStaleMarked     = "stale_marked"
)

// Dirty-flag reasons.
const (
	ReasonComponentChange = "component_change"
	ReasonEnumRemove      = "enum_remove"
	ReasonEnumRename      = "enum_rename"
)

// Enum actions.
const (
	EnumRemove = "remove"
	EnumRename = "rename"
)

var (
	// ErrEmptyNewValue rejects a rename whose replacement value is missing or
	// a recognized unknown token.
	ErrEmptyNewValue = eris.New("cascade: rename requires a meaningful new value")
	// ErrUnknownEnumAction rejects enum actions other than remove/rename.
	ErrUnknownEnumAction = eris.New("cascade: unknown enum action")
)

// Input describes one component canonical change.
type Input struct {
	Category       string                `json:"category"`
	ComponentType  string                `json:"component_type"`
	Name           string                `json:"name"`
	Maker          string                `json:"maker,omitempty"`
	Property       string                `json:"property"`
	NewValue       string                `json:"new_value"`
	Policy         string                `json:"policy,omitempty"`
	Constraints    []variance.Constraint `json:"constraints,omitempty"`
	PreAffectedIDs []string              `json:"pre_affected_ids,omitempty"`
}

// EnumInput describes one enum canonical change.
type EnumInput struct {
	Category       string   `json:"category"`
	Field          string   `json:"field"`
	Action         string   `json:"action"` // remove | rename
	Value          string   `json:"value"`
	NewValue       string   `json:"new_value,omitempty"`
	PreAffectedIDs []string `json:"pre_affected_ids,omitempty"`
}

// Propagation collects best-effort failures encountered past resolution.
type Propagation struct {
	Errors []string `json:"errors,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Report is the outcome of one cascade call. Affected is everyone the change
// touches; Cascaded counts how many stale-markings actually persisted.
type Report struct {
	Affected    []string              `json:"affected"`
	Cascaded    int                   `json:"cascaded"`
	Action      string                `json:"action"`
	Violations  []string              `json:"violations,omitempty"`
	Variance    *variance.BatchResult `json:"variance,omitempty"`
	Propagation Propagation           `json:"propagation"`
}

// Engine resolves dependents and applies cascades.
type Engine struct {
	store  store.Store
	layout *layout.Cache
	tol    float64
	now    func() time.Time
}

// NewEngine creates an Engine. tol <= 0 selects the evaluator's default
// range tolerance.
func NewEngine(st store.Store, lc *layout.Cache, tol float64) *Engine {
	return &Engine{store: st, layout: lc, tol: tol, now: time.Now}
}

// ComponentChange propagates a component property or identity change to every
// dependent record.
func (e *Engine) ComponentChange(ctx context.Context, in Input) (*Report, error) {
	refs, err := e.resolveComponentDependents(ctx, in)
	if err != nil {
		return nil, err
	}
	rep := &Report{Affected: dependentIDs(refs)}
	if len(refs) == 0 {
		rep.Action = ActionStaleMarked
		return rep, nil
	}

	pushed := model.IsIdentityProperty(in.Property) || in.Policy == model.PolicyAuthoritative
	flagged := in.Policy == model.PolicyUpperBound || in.Policy == model.PolicyLowerBound || in.Policy == model.PolicyRange

	switch {
	case pushed:
		rep.Action = ActionValuePushed
		e.pushValue(ctx, in, refs, rep)
	case flagged:
		rep.Action = ActionVarianceFlagged
		e.flagVariance(ctx, in, refs, rep)
	default:
		rep.Action = ActionStaleMarked
	}

	if len(in.Constraints) > 0 {
		e.applyConstraints(ctx, in, refs, rep)
	}

	targets := rep.Affected
	if !pushed && !flagged && len(in.Constraints) > 0 {
		// Constraint-only edits touch only the violating dependents.
		targets = rep.Violations
	}

	priority := model.PriorityForPolicy(in.Policy)
	if len(in.Constraints) > 0 {
		priority = model.TightenPriority(priority)
	}
	flag := model.DirtyFlag{
		Reason:        ReasonComponentChange,
		ComponentType: in.ComponentType,
		Name:          in.Name,
		Maker:         in.Maker,
		Property:      in.Property,
		NewValue:      in.NewValue,
		Policy:        in.Policy,
		Action:        rep.Action,
		At:            e.now().UTC(),
	}
	e.markStale(ctx, in.Category, targets, priority, flag, rep)

	zap.L().Info("cascade: component change propagated",
		zap.String("category", in.Category),
		zap.String("component", in.ComponentType+"/"+in.Name),
		zap.String("property", in.Property),
		zap.String("action", rep.Action),
		zap.Int("affected", len(rep.Affected)),
		zap.Int("cascaded", rep.Cascaded),
	)
	return rep, nil
}

// Preview runs resolution and variance evaluation for a component change
// without writing anything. Backs the dry-run CLI path.
func (e *Engine) Preview(ctx context.Context, in Input) (*Report, error) {
	refs, err := e.resolveComponentDependents(ctx, in)
	if err != nil {
		return nil, err
	}
	rep := &Report{Affected: dependentIDs(refs), Action: ActionVarianceFlagged}
	if len(refs) == 0 {
		return rep, nil
	}
	e.flagVariance(ctx, in, refs, rep)
	if len(in.Constraints) > 0 {
		e.applyConstraints(ctx, in, refs, rep)
	}
	return rep, nil
}

// EnumChange propagates an enum value removal or rename. Enum identity changes
// are always authoritative, so every affected dependent goes stale at the
// highest priority.
func (e *Engine) EnumChange(ctx context.Context, in EnumInput) (*Report, error) {
	switch in.Action {
	case EnumRemove:
	case EnumRename:
		if !model.IsMeaningful(in.NewValue) {
			return nil, eris.Wrapf(ErrEmptyNewValue, "%s.%s", in.Category, in.Field)
		}
	default:
		return nil, eris.Wrapf(ErrUnknownEnumAction, "%q", in.Action)
	}

	ids, err := e.resolveEnumDependents(ctx, in)
	if err != nil {
		return nil, err
	}
	rep := &Report{Affected: ids}

	newValue := model.Unknown
	reason := ReasonEnumRemove
	rep.Action = ActionValueCleared
	if in.Action == EnumRename {
		newValue = model.NormValue(in.NewValue)
		reason = ReasonEnumRename
		rep.Action = ActionValuePushed
	}

	for _, id := range ids {
		if err := e.store.SetFieldValue(ctx, in.Category, id, in.Field, newValue); err != nil {
			rep.Propagation.Errors = append(rep.Propagation.Errors,
				eris.Wrapf(err, "rewrite %s", id).Error())
			continue
		}
		if in.Action == EnumRename {
			if err := e.store.UpsertEnumLink(ctx, in.Category, in.Field, newValue, id); err != nil {
				rep.Propagation.Errors = append(rep.Propagation.Errors,
					eris.Wrapf(err, "relink %s", id).Error())
			}
		}
	}
	if _, err := e.store.DeleteEnumLinks(ctx, in.Category, in.Field, in.Value); err != nil {
		rep.Propagation.Errors = append(rep.Propagation.Errors,
			eris.Wrap(err, "delete enum links").Error())
	}
	e.layout.Invalidate(in.Category)

	flag := model.DirtyFlag{
		Reason:   reason,
		Field:    in.Field,
		NewValue: newValue,
		Action:   rep.Action,
		At:       e.now().UTC(),
	}
	e.markStale(ctx, in.Category, ids, model.PriorityAuthoritative, flag, rep)

	zap.L().Info("cascade: enum change propagated",
		zap.String("category", in.Category),
		zap.String("field", in.Field),
		zap.String("action", in.Action),
		zap.Int("affected", len(rep.Affected)),
		zap.Int("cascaded", rep.Cascaded),
	)
	return rep, nil
}

// resolveComponentDependents is the strict step: link index first, full
// category scan only when the index has nothing, so cascades work before the
// index is populated.
func (e *Engine) resolveComponentDependents(ctx context.Context, in Input) ([]store.DependentRef, error) {
	refs, err := e.store.GetDependentsForComponent(ctx, in.Category, in.ComponentType, in.Name, in.Maker)
	if err != nil {
		return nil, eris.Wrap(err, "cascade: resolve via index")
	}
	if len(refs) == 0 {
		refs, err = e.resolveViaScan(ctx, in)
		if err != nil {
			return nil, err
		}
	}
	return unionPreAffected(refs, in.PreAffectedIDs, in.ComponentType), nil
}

// resolveViaScan matches dependents by value on the component-type field.
// Exact matches are preferred; substring matches only count when no exact
// match exists.
func (e *Engine) resolveViaScan(ctx context.Context, in Input) ([]store.DependentRef, error) {
	ok, err := e.layout.Has(ctx, in.Category, in.ComponentType)
	if err != nil {
		return nil, eris.Wrap(err, "cascade: check layout")
	}
	if !ok {
		return nil, nil
	}

	values, err := e.store.ScanFieldValues(ctx, in.Category, in.ComponentType)
	if err != nil {
		return nil, eris.Wrap(err, "cascade: scan fallback")
	}

	needle := strings.ToLower(strings.TrimSpace(in.Name))
	var exact, loose []string
	for id, v := range values {
		switch {
		case model.EqualFoldTrim(v, in.Name):
			exact = append(exact, id)
		case needle != "" && strings.Contains(strings.ToLower(v), needle):
			loose = append(loose, id)
		}
	}
	matched := exact
	if len(matched) == 0 {
		matched = loose
	}
	sort.Strings(matched)

	refs := make([]store.DependentRef, 0, len(matched))
	for _, id := range matched {
		refs = append(refs, store.DependentRef{DependentID: id, FieldKey: in.ComponentType})
	}
	return refs, nil
}

func (e *Engine) resolveEnumDependents(ctx context.Context, in EnumInput) ([]string, error) {
	refs, err := e.store.GetDependentsForEnumValue(ctx, in.Category, in.Field, in.Value)
	if err != nil {
		return nil, eris.Wrap(err, "cascade: resolve enum via index")
	}
	ids := dependentIDs(refs)
	if len(ids) == 0 {
		values, err := e.store.ScanFieldValues(ctx, in.Category, in.Field)
		if err != nil {
			return nil, eris.Wrap(err, "cascade: enum scan fallback")
		}
		for id, v := range values {
			if model.EqualFoldTrim(v, in.Value) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
	}
	return unionIDs(ids, in.PreAffectedIDs), nil
}

// pushValue rewrites the dependent field that mirrors the changed property.
// Identity changes rewrite the component-reference field itself.
func (e *Engine) pushValue(ctx context.Context, in Input, refs []store.DependentRef, rep *Report) {
	for _, ref := range refs {
		field := in.Property
		if model.IsIdentityProperty(in.Property) {
			field = ref.FieldKey
		}
		if err := e.store.SetFieldValue(ctx, in.Category, ref.DependentID, field, model.NormValue(in.NewValue)); err != nil {
			rep.Propagation.Errors = append(rep.Propagation.Errors,
				eris.Wrapf(err, "push %s", ref.DependentID).Error())
		}
	}
}

// flagVariance batch-evaluates dependents without rewriting them.
func (e *Engine) flagVariance(ctx context.Context, in Input, refs []store.DependentRef, rep *Report) {
	ids := dependentIDs(refs)
	values, err := e.store.GetFieldValues(ctx, in.Category, in.Property, ids)
	if err != nil {
		rep.Propagation.Errors = append(rep.Propagation.Errors,
			eris.Wrap(err, "read dependent values").Error())
		return
	}
	deps := make([]variance.Dependent, 0, len(ids))
	for _, id := range ids {
		deps = append(deps, variance.Dependent{ID: id, Value: values[id]})
	}
	batch := variance.EvaluateBatch(in.Policy, in.NewValue, deps, e.tol)
	rep.Variance = &batch
	for _, item := range batch.Results {
		if !item.Result.Compliant {
			rep.Violations = append(rep.Violations, item.ID)
		}
	}
}

// applyConstraints unions constraint violations into the violation set.
func (e *Engine) applyConstraints(ctx context.Context, in Input, refs []store.DependentRef, rep *Report) {
	ids := dependentIDs(refs)
	values, err := e.store.GetFieldValues(ctx, in.Category, in.Property, ids)
	if err != nil {
		rep.Propagation.Errors = append(rep.Propagation.Errors,
			eris.Wrap(err, "read values for constraints").Error())
		return
	}
	seen := make(map[string]struct{}, len(rep.Violations))
	for _, id := range rep.Violations {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		if violated := variance.CheckConstraints(in.Constraints, values[id]); len(violated) > 0 {
			rep.Violations = append(rep.Violations, id)
			seen[id] = struct{}{}
		}
	}
}

// markStale raises priorities and appends one dirty flag per targeted
// dependent. Priority is monotonic: an existing higher-urgency marking wins.
func (e *Engine) markStale(ctx context.Context, category string, ids []string, priority int, flag model.DirtyFlag, rep *Report) {
	if len(ids) == 0 {
		return
	}
	entries, err := e.store.LoadQueueState(ctx, category)
	if err != nil {
		rep.Propagation.Error = eris.Wrap(err, "load queue state").Error()
		return
	}
	if entries == nil {
		entries = make(map[string]model.QueueEntry, len(ids))
	}
	for _, id := range ids {
		entry := entries[id]
		entry.Status = model.QueueStatusStale
		entry.Priority = model.MinPriority(entry.Priority, priority)
		entry.DirtyFlags = append(entry.DirtyFlags, flag)
		entries[id] = entry
	}
	if err := e.store.SaveQueueState(ctx, category, entries); err != nil {
		rep.Propagation.Error = eris.Wrap(err, "save queue state").Error()
		return
	}
	rep.Cascaded = len(ids)
}

func dependentIDs(refs []store.DependentRef) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.DependentID)
	}
	return ids
}

func unionPreAffected(refs []store.DependentRef, pre []string, fieldKey string) []store.DependentRef {
	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		seen[r.DependentID] = struct{}{}
	}
	for _, id := range pre {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, store.DependentRef{DependentID: id, FieldKey: fieldKey})
	}
	return refs
}

func unionIDs(ids, pre []string) []string {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range pre {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
