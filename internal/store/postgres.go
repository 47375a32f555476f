package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/CdubVentures/specdesk/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock implements it
// for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS key_review_state (
	target_id             TEXT PRIMARY KEY,
	category              TEXT NOT NULL,
	target                JSONB NOT NULL,
	selected_value        TEXT NOT NULL DEFAULT '',
	selected_candidate_id TEXT NOT NULL DEFAULT '',
	confidence_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	ai_confirm_primary    TEXT NOT NULL DEFAULT '',
	user_accept_primary   TEXT NOT NULL DEFAULT '',
	ai_confirm_shared     TEXT NOT NULL DEFAULT '',
	user_accept_shared    TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
	id         TEXT PRIMARY KEY,
	slot_key   TEXT NOT NULL,
	value      TEXT NOT NULL,
	score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	source     TEXT NOT NULL DEFAULT 'pipeline',
	evidence   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS candidate_reviews (
	candidate_id   TEXT NOT NULL,
	context_type   TEXT NOT NULL,
	context_id     TEXT NOT NULL,
	ai_status      TEXT NOT NULL DEFAULT '',
	human_accepted BOOLEAN NOT NULL DEFAULT FALSE,
	ai_reason      TEXT NOT NULL DEFAULT '',
	updated_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (candidate_id, context_type, context_id)
);

CREATE TABLE IF NOT EXISTS component_links (
	category       TEXT NOT NULL,
	component_type TEXT NOT NULL,
	name_norm      TEXT NOT NULL,
	maker_norm     TEXT NOT NULL,
	dependent_id   TEXT NOT NULL,
	field_key      TEXT NOT NULL,
	PRIMARY KEY (category, component_type, name_norm, maker_norm, dependent_id, field_key)
);

CREATE TABLE IF NOT EXISTS enum_links (
	category     TEXT NOT NULL,
	field        TEXT NOT NULL,
	value_norm   TEXT NOT NULL,
	dependent_id TEXT NOT NULL,
	PRIMARY KEY (category, field, value_norm, dependent_id)
);

CREATE TABLE IF NOT EXISTS field_values (
	category     TEXT NOT NULL,
	dependent_id TEXT NOT NULL,
	field        TEXT NOT NULL,
	value        TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (category, dependent_id, field)
);

CREATE TABLE IF NOT EXISTS queue_state (
	category     TEXT NOT NULL,
	dependent_id TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT '',
	priority     INTEGER NOT NULL DEFAULT 0,
	dirty_flags  JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY (category, dependent_id)
);

CREATE TABLE IF NOT EXISTS audit_log (
	id        TEXT PRIMARY KEY,
	target_id TEXT NOT NULL,
	event     TEXT NOT NULL,
	actor     TEXT NOT NULL DEFAULT '',
	old_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL DEFAULT '',
	reason    TEXT NOT NULL DEFAULT '',
	at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_key_review_category ON key_review_state(category);
CREATE INDEX IF NOT EXISTS idx_candidates_slot ON candidates(slot_key);
CREATE INDEX IF NOT EXISTS idx_field_values_field ON field_values(category, field);
CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_log(target_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- key review state ---

func (s *PostgresStore) GetKeyReview(ctx context.Context, target model.ReviewTarget) (*model.KeyReviewState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT target, selected_value, selected_candidate_id, confidence_score,
		        ai_confirm_primary, user_accept_primary, ai_confirm_shared, user_accept_shared,
		        created_at, updated_at
		 FROM key_review_state WHERE target_id = $1`,
		target.IdentityTuple(),
	)
	r, err := scanKeyReviewPgx(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get key review")
	}
	return r, nil
}

func (s *PostgresStore) UpsertKeyReview(ctx context.Context, r *model.KeyReviewState) error {
	targetJSON, err := json.Marshal(r.Target)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal target")
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err = s.pool.Exec(ctx,
		`INSERT INTO key_review_state (
			target_id, category, target, selected_value, selected_candidate_id, confidence_score,
			ai_confirm_primary, user_accept_primary, ai_confirm_shared, user_accept_shared,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (target_id) DO UPDATE SET
			selected_value        = EXCLUDED.selected_value,
			selected_candidate_id = EXCLUDED.selected_candidate_id,
			confidence_score      = EXCLUDED.confidence_score,
			ai_confirm_primary    = EXCLUDED.ai_confirm_primary,
			user_accept_primary   = EXCLUDED.user_accept_primary,
			ai_confirm_shared     = EXCLUDED.ai_confirm_shared,
			user_accept_shared    = EXCLUDED.user_accept_shared,
			updated_at            = EXCLUDED.updated_at`,
		r.Target.IdentityTuple(), r.Target.Category(), string(targetJSON),
		r.SelectedValue, r.SelectedCandidateID, r.ConfidenceScore,
		string(r.AIConfirmPrimary), string(r.UserAcceptPrimary),
		string(r.AIConfirmShared), string(r.UserAcceptShared),
		r.CreatedAt, r.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert key review")
}

func (s *PostgresStore) PurgeCategory(ctx context.Context, category string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM key_review_state WHERE category = $1`, category)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: purge category %s", category)
	}
	return int(tag.RowsAffected()), nil
}

// --- candidates ---

func (s *PostgresStore) InsertCandidate(ctx context.Context, c model.Candidate) error {
	evidenceJSON, err := json.Marshal(c.Evidence)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evidence")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO candidates (id, slot_key, value, score, source, evidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.SlotKey, c.Value, c.Score, string(c.Source), string(evidenceJSON), c.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert candidate %s", c.ID)
}

func (s *PostgresStore) GetCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, slot_key, value, score, source, evidence, created_at FROM candidates WHERE id = $1`,
		id,
	)
	c, err := scanCandidatePgx(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "candidate %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get candidate %s", id)
	}
	return c, nil
}

func (s *PostgresStore) GetCandidatesForSlot(ctx context.Context, slotKey string) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, slot_key, value, score, source, evidence, created_at
		 FROM candidates WHERE slot_key = $1 ORDER BY created_at, id`,
		slotKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: candidates for slot")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidatePgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: candidates iterate")
}

// --- candidate reviews ---

func (s *PostgresStore) UpsertReview(ctx context.Context, r model.CandidateReview) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO candidate_reviews (candidate_id, context_type, context_id, ai_status, human_accepted, ai_reason, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (candidate_id, context_type, context_id) DO UPDATE SET
			ai_status      = EXCLUDED.ai_status,
			human_accepted = EXCLUDED.human_accepted,
			ai_reason      = EXCLUDED.ai_reason,
			updated_at     = EXCLUDED.updated_at`,
		r.CandidateID, string(r.ContextType), r.ContextID, r.AIStatus, r.HumanAccepted, r.AIReason, r.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert review %s", r.CandidateID)
}

func (s *PostgresStore) GetReview(ctx context.Context, candidateID string, ctxType model.ReviewContext, ctxID string) (*model.CandidateReview, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT candidate_id, context_type, context_id, ai_status, human_accepted, ai_reason, updated_at
		 FROM candidate_reviews WHERE candidate_id = $1 AND context_type = $2 AND context_id = $3`,
		candidateID, string(ctxType), ctxID,
	)
	r, err := scanReviewPgx(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get review")
	}
	return r, nil
}

func (s *PostgresStore) ListReviewsForCandidates(ctx context.Context, candidateIDs []string, ctxType model.ReviewContext, ctxID string) (map[string]model.CandidateReview, error) {
	out := make(map[string]model.CandidateReview, len(candidateIDs))
	if len(candidateIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT candidate_id, context_type, context_id, ai_status, human_accepted, ai_reason, updated_at
		 FROM candidate_reviews
		 WHERE candidate_id = ANY($1) AND context_type = $2 AND context_id = $3`,
		candidateIDs, string(ctxType), ctxID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanReviewPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		out[r.CandidateID] = *r
	}
	return out, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}

// --- link index ---

func (s *PostgresStore) UpsertComponentLink(ctx context.Context, category, componentType, name, maker, dependentID, fieldKey string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO component_links (category, component_type, name_norm, maker_norm, dependent_id, field_key)
		 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
		category, componentType, norm(name), norm(maker), dependentID, fieldKey,
	)
	return eris.Wrap(err, "postgres: upsert component link")
}

func (s *PostgresStore) GetDependentsForComponent(ctx context.Context, category, componentType, name, maker string) ([]DependentRef, error) {
	query := `SELECT dependent_id, field_key FROM component_links
	          WHERE category = $1 AND component_type = $2 AND name_norm = $3`
	args := []any{category, componentType, norm(name)}
	if maker != "" {
		query += ` AND maker_norm = $4`
		args = append(args, norm(maker))
	}
	query += ` ORDER BY dependent_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: component dependents")
	}
	defer rows.Close()
	return collectRefsPgx(rows)
}

func (s *PostgresStore) UpsertEnumLink(ctx context.Context, category, field, value, dependentID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO enum_links (category, field, value_norm, dependent_id)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		category, field, norm(value), dependentID,
	)
	return eris.Wrap(err, "postgres: upsert enum link")
}

func (s *PostgresStore) GetDependentsForEnumValue(ctx context.Context, category, field, value string) ([]DependentRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT dependent_id, field FROM enum_links
		 WHERE category = $1 AND field = $2 AND value_norm = $3 ORDER BY dependent_id`,
		category, field, norm(value),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: enum dependents")
	}
	defer rows.Close()
	return collectRefsPgx(rows)
}

func (s *PostgresStore) DeleteEnumLinks(ctx context.Context, category, field, value string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM enum_links WHERE category = $1 AND field = $2 AND value_norm = $3`,
		category, field, norm(value),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete enum links")
	}
	return int(tag.RowsAffected()), nil
}

// --- field state ---

func (s *PostgresStore) GetFieldValue(ctx context.Context, category, dependentID, field string) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM field_values WHERE category = $1 AND dependent_id = $2 AND field = $3`,
		category, dependentID, field,
	).Scan(&v)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: get field value")
	}
	return v, nil
}

func (s *PostgresStore) SetFieldValue(ctx context.Context, category, dependentID, field, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO field_values (category, dependent_id, field, value, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (category, dependent_id, field) DO UPDATE SET
			value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		category, dependentID, field, value, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: set field value %s/%s", dependentID, field)
}

func (s *PostgresStore) GetFieldValues(ctx context.Context, category, field string, dependentIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(dependentIDs))
	if len(dependentIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT dependent_id, value FROM field_values
		 WHERE category = $1 AND field = $2 AND dependent_id = ANY($3)`,
		category, field, dependentIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get field values")
	}
	defer rows.Close()
	return collectValuesPgx(rows, out)
}

func (s *PostgresStore) ScanFieldValues(ctx context.Context, category, field string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT dependent_id, value FROM field_values WHERE category = $1 AND field = $2`,
		category, field,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan field values")
	}
	defer rows.Close()
	return collectValuesPgx(rows, map[string]string{})
}

func (s *PostgresStore) ListFields(ctx context.Context, category string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT field FROM field_values WHERE category = $1 ORDER BY field`,
		category,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list fields")
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, eris.Wrap(err, "postgres: scan field")
		}
		fields = append(fields, f)
	}
	return fields, eris.Wrap(rows.Err(), "postgres: list fields iterate")
}

// --- queue state ---

func (s *PostgresStore) LoadQueueState(ctx context.Context, category string) (map[string]model.QueueEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT dependent_id, status, priority, dirty_flags FROM queue_state WHERE category = $1`,
		category,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load queue state")
	}
	defer rows.Close()

	out := map[string]model.QueueEntry{}
	for rows.Next() {
		var id, status string
		var priority int
		var flagsJSON []byte
		if err := rows.Scan(&id, &status, &priority, &flagsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan queue entry")
		}
		entry := model.QueueEntry{Status: status, Priority: priority}
		if err := json.Unmarshal(flagsJSON, &entry.DirtyFlags); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal dirty flags %s", id)
		}
		out[id] = entry
	}
	return out, eris.Wrap(rows.Err(), "postgres: queue state iterate")
}

func (s *PostgresStore) SaveQueueState(ctx context.Context, category string, entries map[string]model.QueueEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin queue save")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for id, entry := range entries {
		flagsJSON, err := json.Marshal(entry.DirtyFlags)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal dirty flags %s", id)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO queue_state (category, dependent_id, status, priority, dirty_flags)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (category, dependent_id) DO UPDATE SET
				status = EXCLUDED.status, priority = EXCLUDED.priority, dirty_flags = EXCLUDED.dirty_flags`,
			category, id, entry.Status, entry.Priority, string(flagsJSON),
		); err != nil {
			return eris.Wrapf(err, "postgres: save queue entry %s", id)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit queue save")
}

// --- audit log ---

func (s *PostgresStore) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, target_id, event, actor, old_value, new_value, reason, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.TargetID, e.Event, e.Actor, e.OldValue, e.NewValue, e.Reason, e.At,
	)
	return eris.Wrap(err, "postgres: append audit")
}

func (s *PostgresStore) ListAudit(ctx context.Context, targetID string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, target_id, event, actor, old_value, new_value, reason, at
		 FROM audit_log WHERE target_id = $1 ORDER BY at DESC, id LIMIT $2`,
		targetID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.TargetID, &e.Event, &e.Actor, &e.OldValue, &e.NewValue, &e.Reason, &e.At); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}

// --- helpers ---

func scanKeyReviewPgx(row pgx.Row) (*model.KeyReviewState, error) {
	var r model.KeyReviewState
	var targetJSON []byte
	var aiP, uaP, aiS, uaS string

	err := row.Scan(&targetJSON, &r.SelectedValue, &r.SelectedCandidateID, &r.ConfidenceScore,
		&aiP, &uaP, &aiS, &uaS, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(targetJSON, &r.Target); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target")
	}
	r.AIConfirmPrimary = model.LaneStatus(aiP)
	r.UserAcceptPrimary = model.LaneStatus(uaP)
	r.AIConfirmShared = model.LaneStatus(aiS)
	r.UserAcceptShared = model.LaneStatus(uaS)
	return &r, nil
}

func scanCandidatePgx(row pgx.Row) (*model.Candidate, error) {
	var c model.Candidate
	var source string
	var evidenceJSON []byte
	if err := row.Scan(&c.ID, &c.SlotKey, &c.Value, &c.Score, &source, &evidenceJSON, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Source = model.CandidateSource(source)
	if err := json.Unmarshal(evidenceJSON, &c.Evidence); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal evidence")
	}
	return &c, nil
}

func scanReviewPgx(row pgx.Row) (*model.CandidateReview, error) {
	var r model.CandidateReview
	var ctxType string
	if err := row.Scan(&r.CandidateID, &ctxType, &r.ContextID, &r.AIStatus, &r.HumanAccepted, &r.AIReason, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ContextType = model.ReviewContext(ctxType)
	return &r, nil
}

func collectRefsPgx(rows pgx.Rows) ([]DependentRef, error) {
	var out []DependentRef
	for rows.Next() {
		var ref DependentRef
		if err := rows.Scan(&ref.DependentID, &ref.FieldKey); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dependent ref")
		}
		out = append(out, ref)
	}
	return out, eris.Wrap(rows.Err(), "postgres: dependent refs iterate")
}

func collectValuesPgx(rows pgx.Rows, out map[string]string) (map[string]string, error) {
	for rows.Next() {
		var id, v string
		if err := rows.Scan(&id, &v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan field value")
		}
		out[id] = v
	}
	return out, eris.Wrap(rows.Err(), "postgres: field values iterate")
}
