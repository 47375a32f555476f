package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CdubVentures/specdesk/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_GetKeyReview_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT target, selected_value`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetKeyReview(context.Background(), model.NewGridTarget("mice", "p1", "weight", ""))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertKeyReview(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	target := model.NewComponentTarget("mice", "sensor", "PAW3395", "PixArt", "dpi")
	mock.ExpectExec(`INSERT INTO key_review_state`).
		WithArgs(target.IdentityTuple(), "mice",
			pgxmock.AnyArg(), "26000", "c1", 0.9,
			"", "", "pending", "accepted",
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertKeyReview(context.Background(), &model.KeyReviewState{
		Target:              target,
		SelectedValue:       "26000",
		SelectedCandidateID: "c1",
		ConfidenceScore:     0.9,
		AIConfirmShared:     model.LanePending,
		UserAcceptShared:    model.LaneAccepted,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCandidate_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, slot_key, value`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCandidate(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertReview(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO candidate_reviews`).
		WithArgs("c1", "component", "slot-9", "rejected", false, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertReview(context.Background(), model.CandidateReview{
		CandidateID: "c1", ContextType: model.ContextComponent, ContextID: "slot-9",
		AIStatus: model.AIRejected,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDependentsForComponent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"dependent_id", "field_key"}).
		AddRow("p1", "sensor").
		AddRow("p2", "sensor")
	mock.ExpectQuery(`SELECT dependent_id, field_key FROM component_links`).
		WithArgs("mice", "sensor", "paw3395", "pixart").
		WillReturnRows(rows)

	refs, err := s.GetDependentsForComponent(context.Background(), "mice", "sensor", "PAW3395", "PixArt")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "p1", refs[0].DependentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PurgeCategory(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM key_review_state`).
		WithArgs("mice").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.PurgeCategory(context.Background(), "mice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveQueueState_Tx(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO queue_state`).
		WithArgs("mice", "p1", "stale", 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveQueueState(context.Background(), "mice", map[string]model.QueueEntry{
		"p1": {Status: model.QueueStatusStale, Priority: 1},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
