package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CdubVentures/specdesk/internal/cascade"
	"github.com/CdubVentures/specdesk/internal/layout"
	"github.com/CdubVentures/specdesk/internal/ledger"
	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/resolver"
	"github.com/CdubVentures/specdesk/internal/review"
	"github.com/CdubVentures/specdesk/internal/store"
)

func newTestEnv(t *testing.T) *env {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	res := resolver.New(st)
	lc := layout.New(st, time.Minute)
	return &env{
		store:    st,
		resolver: res,
		ledger:   ledger.New(st),
		review:   review.NewService(st, res),
		layout:   lc,
		cascade:  cascade.NewEngine(st, lc, 0),
	}
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	router := buildRouter(newTestEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_AcceptThenConfirm(t *testing.T) {
	router := buildRouter(newTestEnv(t))
	target := model.NewGridTarget("mice", "p1", "weight", "fs-1")

	rr := postJSON(t, router, "/review/accept", acceptRequest{
		Target:    target,
		Selection: &model.Selection{CandidateID: "c1", Value: "59"},
		Actor:     "tester",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var row model.KeyReviewState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &row))
	assert.Equal(t, model.LaneAccepted, row.UserAcceptShared)
	assert.Equal(t, model.LanePending, row.AIConfirmShared)

	// No unresolved candidates exist, so the confirm converges.
	rr = postJSON(t, router, "/review/confirm", confirmRequest{Target: target})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &row))
	assert.Equal(t, model.LaneConfirmed, row.AIConfirmShared)
}

func TestRouter_AcceptRejectsBadTarget(t *testing.T) {
	router := buildRouter(newTestEnv(t))

	rr := postJSON(t, router, "/review/accept", acceptRequest{
		Target: model.ReviewTarget{Kind: model.KindGrid},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRouter_Pending(t *testing.T) {
	e := newTestEnv(t)
	router := buildRouter(e)
	ctx := context.Background()

	target := model.NewGridTarget("mice", "p1", "weight", "")
	require.NoError(t, e.store.InsertCandidate(ctx, model.Candidate{
		ID: "c1", SlotKey: target.IdentityTuple(), Value: "59", Source: model.SourcePipeline,
	}))

	req := httptest.NewRequest(http.MethodGet, "/review/pending?category=mice&product=p1&field=weight", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Pending []string `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"c1"}, body.Pending)
}

func TestRouter_CascadeComponent(t *testing.T) {
	e := newTestEnv(t)
	router := buildRouter(e)
	ctx := context.Background()

	require.NoError(t, e.store.UpsertComponentLink(ctx, "mice", "sensor", "PAW3395", "PixArt", "p1", "sensor"))
	require.NoError(t, e.store.SetFieldValue(ctx, "mice", "p1", "dpi", "25600"))

	rr := postJSON(t, router, "/cascade/component", cascade.Input{
		Category: "mice", ComponentType: "sensor", Name: "PAW3395", Maker: "PixArt",
		Property: "dpi", NewValue: "26000", Policy: model.PolicyAuthoritative,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rep cascade.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, []string{"p1"}, rep.Affected)
	assert.Equal(t, 1, rep.Cascaded)
}

func TestRouter_CascadeEnumRenameNoOp(t *testing.T) {
	router := buildRouter(newTestEnv(t))

	rr := postJSON(t, router, "/cascade/enum", cascade.EnumInput{
		Category: "mice", Field: "connectivity", Action: cascade.EnumRename,
		Value: "Wireless", NewValue: " wireless ",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["changed"])
}

func TestRouter_CascadeEnumRemove(t *testing.T) {
	e := newTestEnv(t)
	router := buildRouter(e)
	ctx := context.Background()

	require.NoError(t, e.store.UpsertEnumLink(ctx, "mice", "connectivity", "wireless", "p1"))
	require.NoError(t, e.store.SetFieldValue(ctx, "mice", "p1", "connectivity", "wireless"))

	rr := postJSON(t, router, "/cascade/enum", cascade.EnumInput{
		Category: "mice", Field: "connectivity", Action: cascade.EnumRemove, Value: "wireless",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	v, err := e.store.GetFieldValue(ctx, "mice", "p1", "connectivity")
	require.NoError(t, err)
	assert.Equal(t, model.Unknown, v)
}

func TestRouter_BadJSON(t *testing.T) {
	router := buildRouter(newTestEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/review/accept", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
