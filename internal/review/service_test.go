package review

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/resolver"
	"github.com/CdubVentures/specdesk/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return NewService(st, resolver.New(st)), st
}

func seedCandidate(t *testing.T, st store.Store, id, slotKey, value string) {
	t.Helper()
	require.NoError(t, st.InsertCandidate(context.Background(), model.Candidate{
		ID: id, SlotKey: slotKey, Value: value, Source: model.SourcePipeline,
	}))
}

func resolveAll(t *testing.T, st store.Store, target model.ReviewTarget, ids ...string) {
	t.Helper()
	ctxType, ctxID := resolver.ReviewContextFor(target)
	for _, id := range ids {
		require.NoError(t, st.UpsertReview(context.Background(), model.CandidateReview{
			CandidateID: id, ContextType: ctxType, ContextID: ctxID, AIStatus: model.AIAccepted,
		}))
	}
}

func TestAccept_CreatesRowAndRecordsSelection(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	target := model.NewComponentTarget("mice", "sensor", "PAW3395", "PixArt", "dpi")
	row, err := svc.ApplySharedLane(ctx, target, model.ActionAccept,
		&model.Selection{CandidateID: "c1", Value: " 26000 ", Confidence: 0.9}, model.LaneNotRun, "tester")
	require.NoError(t, err)

	assert.Equal(t, model.LaneAccepted, row.UserAcceptShared)
	assert.Equal(t, "26000", row.SelectedValue)
	assert.Equal(t, "c1", row.SelectedCandidateID)
	assert.Equal(t, model.LanePending, row.AIConfirmShared)

	stored, err := st.GetKeyReview(ctx, target)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.LaneAccepted, stored.UserAcceptShared)
}

func TestAccept_UnchangedSelectionKeepsConfirmed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target := model.NewGridTarget("mice", "p1", "weight", "fs-1")
	sel := &model.Selection{CandidateID: "c1", Value: "59"}

	_, err := svc.ApplySharedLane(ctx, target, model.ActionAccept, sel, model.LaneNotRun, "tester")
	require.NoError(t, err)
	row, err := svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneNotRun, "ai")
	require.NoError(t, err)
	require.Equal(t, model.LaneConfirmed, row.AIConfirmShared)

	// Re-accepting the same selection must not regress the confirm.
	row, err = svc.ApplySharedLane(ctx, target, model.ActionAccept, sel, model.LaneNotRun, "tester")
	require.NoError(t, err)
	assert.Equal(t, model.LaneConfirmed, row.AIConfirmShared)
}

func TestAccept_ChangedSelectionReopensConfirm(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target := model.NewGridTarget("mice", "p1", "weight", "fs-1")
	_, err := svc.ApplySharedLane(ctx, target, model.ActionAccept,
		&model.Selection{CandidateID: "c1", Value: "59"}, model.LaneNotRun, "tester")
	require.NoError(t, err)
	_, err = svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneNotRun, "ai")
	require.NoError(t, err)

	row, err := svc.ApplySharedLane(ctx, target, model.ActionAccept,
		&model.Selection{CandidateID: "c2", Value: "63"}, model.LaneNotRun, "tester")
	require.NoError(t, err)
	assert.Equal(t, model.LanePending, row.AIConfirmShared)
	assert.Equal(t, "63", row.SelectedValue)
}

func TestAccept_SuppressedSelectionStillTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target := model.NewGridTarget("mice", "p1", "weight", "fs-1")
	_, err := svc.ApplySharedLane(ctx, target, model.ActionAccept,
		&model.Selection{CandidateID: "c1", Value: "59"}, model.LaneNotRun, "tester")
	require.NoError(t, err)

	row, err := svc.ApplySharedLane(ctx, target, model.ActionAccept,
		&model.Selection{CandidateID: "c2", Value: "63", Suppress: true}, model.LaneNotRun, "tester")
	require.NoError(t, err)
	assert.Equal(t, model.LaneAccepted, row.UserAcceptShared)
	assert.Equal(t, "59", row.SelectedValue, "suppressed selection must not overwrite stored fields")
	assert.Equal(t, model.LanePending, row.AIConfirmShared, "the transition still sees the change")
}

func TestConfirm_ConvergesOnResolvedCandidates(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	target := model.NewComponentTarget("mice", "sensor", "PAW3395", "PixArt", "dpi")
	slot := target.IdentityTuple()
	seedCandidate(t, st, "c1", slot, "26000")
	seedCandidate(t, st, "c2", slot, "25600")

	row, err := svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneNotRun, "ai")
	require.NoError(t, err)
	assert.Equal(t, model.LanePending, row.AIConfirmShared)
	assert.Zero(t, row.ConfidenceScore)

	resolveAll(t, st, target, "c1", "c2")

	row, err = svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneNotRun, "ai")
	require.NoError(t, err)
	assert.Equal(t, model.LaneConfirmed, row.AIConfirmShared)
	assert.Equal(t, 1.0, row.ConfidenceScore)
}

func TestConfirm_DoesNotRegressConfirmedLane(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	target := model.NewComponentTarget("mice", "sensor", "PAW3395", "PixArt", "dpi")
	row, err := svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneNotRun, "ai")
	require.NoError(t, err)
	require.Equal(t, model.LaneConfirmed, row.AIConfirmShared)

	// A candidate arriving after confirmation must not demote the lane when
	// the confirm tool runs again.
	seedCandidate(t, st, "c-late", target.IdentityTuple(), "24000")
	row, err = svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneNotRun, "ai")
	require.NoError(t, err)
	assert.Equal(t, model.LaneConfirmed, row.AIConfirmShared)

	// A changed selection re-opens the lane, and the next confirm sees the
	// unresolved candidate.
	_, err = svc.ApplySharedLane(ctx, target, model.ActionAccept,
		&model.Selection{CandidateID: "c-late", Value: "24000"}, model.LaneNotRun, "tester")
	require.NoError(t, err)
	row, err = svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneNotRun, "ai")
	require.NoError(t, err)
	assert.Equal(t, model.LanePending, row.AIConfirmShared)

	// An explicit override still lands regardless of lane state.
	row, err = svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneConfirmed, "ai")
	require.NoError(t, err)
	assert.Equal(t, model.LaneConfirmed, row.AIConfirmShared)
}

func TestConfirm_OverrideSkipsResolution(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	target := model.NewComponentTarget("mice", "sensor", "PAW3395", "PixArt", "dpi")
	seedCandidate(t, st, "c1", target.IdentityTuple(), "26000")

	// Unresolved candidate exists, but the caller forces confirmed.
	row, err := svc.ApplySharedLane(ctx, target, model.ActionConfirm, nil, model.LaneConfirmed, "ai")
	require.NoError(t, err)
	assert.Equal(t, model.LaneConfirmed, row.AIConfirmShared)
	assert.Equal(t, 1.0, row.ConfidenceScore)
}

func TestPrimaryLane_GridOnly(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateAIConfirmPrimary(context.Background(),
		model.NewComponentTarget("mice", "sensor", "PAW3395", "PixArt", "dpi"),
		model.LaneConfirmed, "ai", "")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotGridKey))
}

func TestPrimaryLane_IndependentOfShared(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	target := model.NewGridTarget("mice", "p1", "weight", "fs-1")
	_, err := svc.ApplySharedLane(ctx, target, model.ActionAccept,
		&model.Selection{Value: "59"}, model.LaneNotRun, "tester")
	require.NoError(t, err)

	row, err := svc.UpdateAIConfirmPrimary(ctx, target, model.LaneConfirmed, "ai", "single source")
	require.NoError(t, err)
	assert.Equal(t, model.LaneConfirmed, row.AIConfirmPrimary)
	assert.Equal(t, model.LaneAccepted, row.UserAcceptShared, "shared lane untouched")
	assert.Equal(t, model.LanePending, row.AIConfirmShared)

	row, err = svc.UpdateUserAcceptPrimary(ctx, target, model.LaneAccepted, "tester", "")
	require.NoError(t, err)
	assert.Equal(t, model.LaneAccepted, row.UserAcceptPrimary)
	assert.Equal(t, model.LaneConfirmed, row.AIConfirmPrimary, "sibling primary lane untouched")
}

func TestMutations_AppendAudit(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	target := model.NewGridTarget("mice", "p1", "weight", "fs-1")
	_, err := svc.ApplySharedLane(ctx, target, model.ActionAccept,
		&model.Selection{Value: "59"}, model.LaneNotRun, "tester")
	require.NoError(t, err)
	_, err = svc.UpdateUserAcceptPrimary(ctx, target, model.LaneAccepted, "tester", "manual check")
	require.NoError(t, err)

	entries, err := st.ListAudit(ctx, target.IdentityTuple(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EventUserAcceptPrimary, entries[0].Event)
	assert.Equal(t, EventUserAcceptShared, entries[1].Event)
	assert.Equal(t, "tester", entries[0].Actor)
}

func TestPurgeCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ApplySharedLane(ctx, model.NewGridTarget("mice", "p1", "weight", ""),
		model.ActionAccept, &model.Selection{Value: "59"}, model.LaneNotRun, "tester")
	require.NoError(t, err)
	_, err = svc.ApplySharedLane(ctx, model.NewGridTarget("keyboards", "k1", "weight", ""),
		model.ActionAccept, &model.Selection{Value: "900"}, model.LaneNotRun, "tester")
	require.NoError(t, err)

	n, err := svc.PurgeCategory(ctx, "mice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row, err := svc.ApplySharedLane(ctx, model.NewGridTarget("keyboards", "k1", "weight", ""),
		model.ActionConfirm, nil, model.LaneConfirmed, "ai")
	require.NoError(t, err)
	assert.Equal(t, "900", row.SelectedValue, "other categories survive the purge")
}
