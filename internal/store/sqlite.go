package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/CdubVentures/specdesk/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS key_review_state (
	target_id             TEXT PRIMARY KEY,
	category              TEXT NOT NULL,
	target                TEXT NOT NULL,
	selected_value        TEXT NOT NULL DEFAULT '',
	selected_candidate_id TEXT NOT NULL DEFAULT '',
	confidence_score      REAL NOT NULL DEFAULT 0,
	ai_confirm_primary    TEXT NOT NULL DEFAULT '',
	user_accept_primary   TEXT NOT NULL DEFAULT '',
	ai_confirm_shared     TEXT NOT NULL DEFAULT '',
	user_accept_shared    TEXT NOT NULL DEFAULT '',
	created_at            DATETIME NOT NULL,
	updated_at            DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
	id         TEXT PRIMARY KEY,
	slot_key   TEXT NOT NULL,
	value      TEXT NOT NULL,
	score      REAL NOT NULL DEFAULT 0,
	source     TEXT NOT NULL DEFAULT 'pipeline',
	evidence   TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS candidate_reviews (
	candidate_id   TEXT NOT NULL,
	context_type   TEXT NOT NULL,
	context_id     TEXT NOT NULL,
	ai_status      TEXT NOT NULL DEFAULT '',
	human_accepted INTEGER NOT NULL DEFAULT 0,
	ai_reason      TEXT NOT NULL DEFAULT '',
	updated_at     DATETIME NOT NULL,
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
	updated_at   DATETIME NOT NULL,
	PRIMARY KEY (category, dependent_id, field)
);

CREATE TABLE IF NOT EXISTS queue_state (
	category     TEXT NOT NULL,
	dependent_id TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT '',
	priority     INTEGER NOT NULL DEFAULT 0,
	dirty_flags  TEXT NOT NULL DEFAULT '[]',
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
	at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_key_review_category ON key_review_state(category);
CREATE INDEX IF NOT EXISTS idx_candidates_slot ON candidates(slot_key);
CREATE INDEX IF NOT EXISTS idx_field_values_field ON field_values(category, field);
CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_log(target_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- key review state ---

func (s *SQLiteStore) GetKeyReview(ctx context.Context, target model.ReviewTarget) (*model.KeyReviewState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT target, selected_value, selected_candidate_id, confidence_score,
		        ai_confirm_primary, user_accept_primary, ai_confirm_shared, user_accept_shared,
		        created_at, updated_at
		 FROM key_review_state WHERE target_id = ?`,
		target.IdentityTuple(),
	)
	return scanKeyReview(row)
}

func (s *SQLiteStore) UpsertKeyReview(ctx context.Context, r *model.KeyReviewState) error {
	targetJSON, err := json.Marshal(r.Target)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal target")
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO key_review_state (
			target_id, category, target, selected_value, selected_candidate_id, confidence_score,
			ai_confirm_primary, user_accept_primary, ai_confirm_shared, user_accept_shared,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(target_id) DO UPDATE SET
			selected_value        = excluded.selected_value,
			selected_candidate_id = excluded.selected_candidate_id,
			confidence_score      = excluded.confidence_score,
			ai_confirm_primary    = excluded.ai_confirm_primary,
			user_accept_primary   = excluded.user_accept_primary,
			ai_confirm_shared     = excluded.ai_confirm_shared,
			user_accept_shared    = excluded.user_accept_shared,
			updated_at            = excluded.updated_at`,
		r.Target.IdentityTuple(), r.Target.Category(), string(targetJSON),
		r.SelectedValue, r.SelectedCandidateID, r.ConfidenceScore,
		string(r.AIConfirmPrimary), string(r.UserAcceptPrimary),
		string(r.AIConfirmShared), string(r.UserAcceptShared),
		r.CreatedAt, r.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert key review")
}

func (s *SQLiteStore) PurgeCategory(ctx context.Context, category string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM key_review_state WHERE category = ?`, category)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: purge category %s", category)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// --- candidates ---

func (s *SQLiteStore) InsertCandidate(ctx context.Context, c model.Candidate) error {
	evidenceJSON, err := json.Marshal(c.Evidence)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evidence")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO candidates (id, slot_key, value, score, source, evidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SlotKey, c.Value, c.Score, string(c.Source), string(evidenceJSON), c.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert candidate %s", c.ID)
}

func (s *SQLiteStore) GetCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slot_key, value, score, source, evidence, created_at FROM candidates WHERE id = ?`,
		id,
	)
	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "candidate %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get candidate %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) GetCandidatesForSlot(ctx context.Context, slotKey string) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slot_key, value, score, source, evidence, created_at
		 FROM candidates WHERE slot_key = ? ORDER BY created_at, id`,
		slotKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: candidates for slot")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: candidates iterate")
}

// --- candidate reviews ---

func (s *SQLiteStore) UpsertReview(ctx context.Context, r model.CandidateReview) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO candidate_reviews (candidate_id, context_type, context_id, ai_status, human_accepted, ai_reason, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(candidate_id, context_type, context_id) DO UPDATE SET
			ai_status      = excluded.ai_status,
			human_accepted = excluded.human_accepted,
			ai_reason      = excluded.ai_reason,
			updated_at     = excluded.updated_at`,
		r.CandidateID, string(r.ContextType), r.ContextID,
		r.AIStatus, boolToInt(r.HumanAccepted), r.AIReason, r.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert review %s", r.CandidateID)
}

func (s *SQLiteStore) GetReview(ctx context.Context, candidateID string, ctxType model.ReviewContext, ctxID string) (*model.CandidateReview, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT candidate_id, context_type, context_id, ai_status, human_accepted, ai_reason, updated_at
		 FROM candidate_reviews WHERE candidate_id = ? AND context_type = ? AND context_id = ?`,
		candidateID, string(ctxType), ctxID,
	)
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get review")
	}
	return r, nil
}

func (s *SQLiteStore) ListReviewsForCandidates(ctx context.Context, candidateIDs []string, ctxType model.ReviewContext, ctxID string) (map[string]model.CandidateReview, error) {
	out := make(map[string]model.CandidateReview, len(candidateIDs))
	if len(candidateIDs) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(candidateIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(candidateIDs)+2)
	for _, id := range candidateIDs {
		args = append(args, id)
	}
	args = append(args, string(ctxType), ctxID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT candidate_id, context_type, context_id, ai_status, human_accepted, ai_reason, updated_at
		 FROM candidate_reviews
		 WHERE candidate_id IN (`+placeholders+`) AND context_type = ? AND context_id = ?`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		out[r.CandidateID] = *r
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

// --- link index ---

func (s *SQLiteStore) UpsertComponentLink(ctx context.Context, category, componentType, name, maker, dependentID, fieldKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO component_links (category, component_type, name_norm, maker_norm, dependent_id, field_key)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		category, componentType, norm(name), norm(maker), dependentID, fieldKey,
	)
	return eris.Wrap(err, "sqlite: upsert component link")
}

func (s *SQLiteStore) GetDependentsForComponent(ctx context.Context, category, componentType, name, maker string) ([]DependentRef, error) {
	query := `SELECT dependent_id, field_key FROM component_links
	          WHERE category = ? AND component_type = ? AND name_norm = ?`
	args := []any{category, componentType, norm(name)}
	if maker != "" {
		query += ` AND maker_norm = ?`
		args = append(args, norm(maker))
	}
	query += ` ORDER BY dependent_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: component dependents")
	}
	defer rows.Close()
	return collectRefs(rows)
}

func (s *SQLiteStore) UpsertEnumLink(ctx context.Context, category, field, value, dependentID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO enum_links (category, field, value_norm, dependent_id) VALUES (?, ?, ?, ?)`,
		category, field, norm(value), dependentID,
	)
	return eris.Wrap(err, "sqlite: upsert enum link")
}

func (s *SQLiteStore) GetDependentsForEnumValue(ctx context.Context, category, field, value string) ([]DependentRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dependent_id, field FROM enum_links
		 WHERE category = ? AND field = ? AND value_norm = ? ORDER BY dependent_id`,
		category, field, norm(value),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: enum dependents")
	}
	defer rows.Close()
	return collectRefs(rows)
}

func (s *SQLiteStore) DeleteEnumLinks(ctx context.Context, category, field, value string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM enum_links WHERE category = ? AND field = ? AND value_norm = ?`,
		category, field, norm(value),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete enum links")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// --- field state ---

func (s *SQLiteStore) GetFieldValue(ctx context.Context, category, dependentID, field string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM field_values WHERE category = ? AND dependent_id = ? AND field = ?`,
		category, dependentID, field,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: get field value")
	}
	return v, nil
}

func (s *SQLiteStore) SetFieldValue(ctx context.Context, category, dependentID, field, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO field_values (category, dependent_id, field, value, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(category, dependent_id, field) DO UPDATE SET
			value = excluded.value, updated_at = excluded.updated_at`,
		category, dependentID, field, value, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set field value %s/%s", dependentID, field)
}

func (s *SQLiteStore) GetFieldValues(ctx context.Context, category, field string, dependentIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(dependentIDs))
	if len(dependentIDs) == 0 {
		return out, nil
	}
	placeholders := strings.Repeat("?,", len(dependentIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := []any{category, field}
	for _, id := range dependentIDs {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT dependent_id, value FROM field_values
		 WHERE category = ? AND field = ? AND dependent_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get field values")
	}
	defer rows.Close()
	return collectValues(rows, out)
}

func (s *SQLiteStore) ScanFieldValues(ctx context.Context, category, field string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dependent_id, value FROM field_values WHERE category = ? AND field = ?`,
		category, field,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan field values")
	}
	defer rows.Close()
	return collectValues(rows, map[string]string{})
}

func (s *SQLiteStore) ListFields(ctx context.Context, category string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT field FROM field_values WHERE category = ? ORDER BY field`,
		category,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fields")
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan field")
		}
		fields = append(fields, f)
	}
	return fields, eris.Wrap(rows.Err(), "sqlite: list fields iterate")
}

// --- queue state ---

func (s *SQLiteStore) LoadQueueState(ctx context.Context, category string) (map[string]model.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dependent_id, status, priority, dirty_flags FROM queue_state WHERE category = ?`,
		category,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load queue state")
	}
	defer rows.Close()

	out := map[string]model.QueueEntry{}
	for rows.Next() {
		var id, status, flagsJSON string
		var priority int
		if err := rows.Scan(&id, &status, &priority, &flagsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan queue entry")
		}
		entry := model.QueueEntry{Status: status, Priority: priority}
		if err := json.Unmarshal([]byte(flagsJSON), &entry.DirtyFlags); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal dirty flags %s", id)
		}
		out[id] = entry
	}
	return out, eris.Wrap(rows.Err(), "sqlite: queue state iterate")
}

func (s *SQLiteStore) SaveQueueState(ctx context.Context, category string, entries map[string]model.QueueEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin queue save")
	}
	defer tx.Rollback() //nolint:errcheck

	for id, entry := range entries {
		flagsJSON, err := json.Marshal(entry.DirtyFlags)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal dirty flags %s", id)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO queue_state (category, dependent_id, status, priority, dirty_flags)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(category, dependent_id) DO UPDATE SET
				status = excluded.status, priority = excluded.priority, dirty_flags = excluded.dirty_flags`,
			category, id, entry.Status, entry.Priority, string(flagsJSON),
		); err != nil {
			return eris.Wrapf(err, "sqlite: save queue entry %s", id)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit queue save")
}

// --- audit log ---

func (s *SQLiteStore) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, target_id, event, actor, old_value, new_value, reason, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TargetID, e.Event, e.Actor, e.OldValue, e.NewValue, e.Reason, e.At,
	)
	return eris.Wrap(err, "sqlite: append audit")
}

func (s *SQLiteStore) ListAudit(ctx context.Context, targetID string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_id, event, actor, old_value, new_value, reason, at
		 FROM audit_log WHERE target_id = ? ORDER BY at DESC, id LIMIT ?`,
		targetID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.TargetID, &e.Event, &e.Actor, &e.OldValue, &e.NewValue, &e.Reason, &e.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

// --- helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanKeyReview(row scannable) (*model.KeyReviewState, error) {
	var r model.KeyReviewState
	var targetJSON string
	var aiP, uaP, aiS, uaS string

	err := row.Scan(&targetJSON, &r.SelectedValue, &r.SelectedCandidateID, &r.ConfidenceScore,
		&aiP, &uaP, &aiS, &uaS, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan key review")
	}
	if err := json.Unmarshal([]byte(targetJSON), &r.Target); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal target")
	}
	r.AIConfirmPrimary = model.LaneStatus(aiP)
	r.UserAcceptPrimary = model.LaneStatus(uaP)
	r.AIConfirmShared = model.LaneStatus(aiS)
	r.UserAcceptShared = model.LaneStatus(uaS)
	return &r, nil
}

func scanCandidate(row scannable) (*model.Candidate, error) {
	var c model.Candidate
	var source, evidenceJSON string
	if err := row.Scan(&c.ID, &c.SlotKey, &c.Value, &c.Score, &source, &evidenceJSON, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Source = model.CandidateSource(source)
	if err := json.Unmarshal([]byte(evidenceJSON), &c.Evidence); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal evidence")
	}
	return &c, nil
}

func scanReview(row scannable) (*model.CandidateReview, error) {
	var r model.CandidateReview
	var ctxType string
	var humanAccepted int
	if err := row.Scan(&r.CandidateID, &ctxType, &r.ContextID, &r.AIStatus, &humanAccepted, &r.AIReason, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ContextType = model.ReviewContext(ctxType)
	r.HumanAccepted = humanAccepted != 0
	return &r, nil
}

func collectRefs(rows *sql.Rows) ([]DependentRef, error) {
	var out []DependentRef
	for rows.Next() {
		var ref DependentRef
		if err := rows.Scan(&ref.DependentID, &ref.FieldKey); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dependent ref")
		}
		out = append(out, ref)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: dependent refs iterate")
}

func collectValues(rows *sql.Rows, out map[string]string) (map[string]string, error) {
	for rows.Next() {
		var id, v string
		if err := rows.Scan(&id, &v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan field value")
		}
		out[id] = v
	}
	return out, eris.Wrap(rows.Err(), "sqlite: field values iterate")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func norm(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
