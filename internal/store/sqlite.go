package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/clearcomply/compliance-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local single
// user setups without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
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
CREATE TABLE IF NOT EXISTS policies (
	id               TEXT PRIMARY KEY,
	file_name        TEXT NOT NULL,
	file_url         TEXT,
	content_preview  TEXT,
	status           TEXT NOT NULL DEFAULT 'uploaded',
	uploaded_by      TEXT,
	last_analyzed_at DATETIME,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS controls (
	id                  TEXT PRIMARY KEY,
	framework           TEXT NOT NULL,
	control_code        TEXT NOT NULL,
	title               TEXT NOT NULL,
	description         TEXT,
	keywords            TEXT NOT NULL DEFAULT '[]',
	severity_if_missing TEXT,
	UNIQUE (framework, control_code)
);

CREATE TABLE IF NOT EXISTS compliance_results (
	id                   TEXT PRIMARY KEY,
	policy_id            TEXT NOT NULL REFERENCES policies(id),
	framework            TEXT NOT NULL,
	compliance_score     REAL NOT NULL,
	controls_covered     INTEGER NOT NULL,
	controls_partial     INTEGER NOT NULL,
	controls_missing     INTEGER NOT NULL,
	status               TEXT NOT NULL,
	analyzed_at          DATETIME NOT NULL,
	analysis_duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS mappings (
	id               TEXT PRIMARY KEY,
	policy_id        TEXT NOT NULL REFERENCES policies(id),
	control_id       TEXT NOT NULL,
	framework        TEXT NOT NULL,
	evidence_snippet TEXT NOT NULL,
	confidence       REAL NOT NULL,
	rationale        TEXT NOT NULL,
	decision         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS gaps (
	id           TEXT PRIMARY KEY,
	policy_id    TEXT NOT NULL REFERENCES policies(id),
	framework    TEXT NOT NULL,
	control_id   TEXT NOT NULL,
	control_name TEXT NOT NULL,
	severity     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'Open',
	description  TEXT NOT NULL,
	owner        TEXT
);

CREATE TABLE IF NOT EXISTS insights (
	id           TEXT PRIMARY KEY,
	policy_id    TEXT NOT NULL REFERENCES policies(id),
	insight_type TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	priority     TEXT NOT NULL,
	confidence   REAL NOT NULL,
	status       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	policy_id    TEXT NOT NULL REFERENCES policies(id),
	report_type  TEXT NOT NULL,
	format       TEXT NOT NULL,
	status       TEXT NOT NULL,
	download_url TEXT,
	frameworks   TEXT NOT NULL DEFAULT '[]',
	generated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	details     TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_policies_status ON policies(status);
CREATE INDEX IF NOT EXISTS idx_controls_framework ON controls(framework);
CREATE INDEX IF NOT EXISTS idx_results_policy ON compliance_results(policy_id);
CREATE INDEX IF NOT EXISTS idx_mappings_policy ON mappings(policy_id);
CREATE INDEX IF NOT EXISTS idx_gaps_policy ON gaps(policy_id);
CREATE INDEX IF NOT EXISTS idx_insights_policy ON insights(policy_id);
CREATE INDEX IF NOT EXISTS idx_reports_policy ON reports(policy_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreatePolicy(ctx context.Context, p *model.Policy) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = model.PolicyStatusUploaded
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO policies (id, file_name, file_url, content_preview, status, uploaded_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.FileName, p.FileURL, p.ContentPreview, string(p.Status), p.UploadedBy, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert policy")
}

func (s *SQLiteStore) GetPolicy(ctx context.Context, id string) (*model.Policy, error) {
	var p model.Policy
	var fileURL, preview, uploadedBy sql.NullString
	var lastAnalyzed sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, file_url, content_preview, status, uploaded_by, last_analyzed_at, created_at, updated_at
		 FROM policies WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.FileName, &fileURL, &preview, &p.Status, &uploadedBy, &lastAnalyzed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get policy %s", id)
	}
	p.FileURL = fileURL.String
	p.ContentPreview = preview.String
	p.UploadedBy = uploadedBy.String
	if lastAnalyzed.Valid {
		t := lastAnalyzed.Time
		p.LastAnalyzedAt = &t
	}
	return &p, nil
}

func (s *SQLiteStore) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, file_url, content_preview, status, uploaded_by, last_analyzed_at, created_at, updated_at
		 FROM policies ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list policies")
	}
	defer rows.Close()

	var policies []model.Policy
	for rows.Next() {
		var p model.Policy
		var fileURL, preview, uploadedBy sql.NullString
		var lastAnalyzed sql.NullTime
		if err := rows.Scan(&p.ID, &p.FileName, &fileURL, &preview, &p.Status, &uploadedBy, &lastAnalyzed, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan policy")
		}
		p.FileURL = fileURL.String
		p.ContentPreview = preview.String
		p.UploadedBy = uploadedBy.String
		if lastAnalyzed.Valid {
			t := lastAnalyzed.Time
			p.LastAnalyzedAt = &t
		}
		policies = append(policies, p)
	}
	return policies, eris.Wrap(rows.Err(), "sqlite: list policies iterate")
}

func (s *SQLiteStore) TransitionPolicyStatus(ctx context.Context, id string, from []model.PolicyStatus, to model.PolicyStatus) (bool, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	args := []any{string(to), time.Now().UTC(), id}
	for _, st := range from {
		args = append(args, string(st))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE policies SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: transition policy %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkPolicyAnalyzed(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE policies SET status = ?, last_analyzed_at = ?, updated_at = ? WHERE id = ?`,
		string(model.PolicyStatusAnalyzed), at, at, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark analyzed %s", id)
	}
	return checkRowsAffected(res, "policy", id)
}

func (s *SQLiteStore) CreateControls(ctx context.Context, controls []model.Control) (int, error) {
	if len(controls) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO controls (id, framework, control_code, title, description, keywords, severity_if_missing)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert control")
	}
	defer stmt.Close()

	for _, c := range controls {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		keywordsJSON, err := json.Marshal(c.Keywords)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal keywords")
		}
		if _, err := stmt.ExecContext(ctx, id, c.Framework, c.Code, c.Title, c.Description, string(keywordsJSON), string(c.SeverityIfMissing)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert control %s", c.Code)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit controls")
	}
	return len(controls), nil
}

func (s *SQLiteStore) ListControls(ctx context.Context, framework string) ([]model.Control, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, framework, control_code, title, description, keywords, severity_if_missing
		 FROM controls WHERE framework = ? ORDER BY control_code`,
		framework,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list controls for %s", framework)
	}
	defer rows.Close()
	return scanSQLiteControls(rows)
}

func (s *SQLiteStore) GetControlsByID(ctx context.Context, ids []string) ([]model.Control, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, framework, control_code, title, description, keywords, severity_if_missing
		 FROM controls WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get controls by id")
	}
	defer rows.Close()
	return scanSQLiteControls(rows)
}

func scanSQLiteControls(rows *sql.Rows) ([]model.Control, error) {
	var controls []model.Control
	for rows.Next() {
		var c model.Control
		var desc, keywordsJSON, severity sql.NullString
		if err := rows.Scan(&c.ID, &c.Framework, &c.Code, &c.Title, &desc, &keywordsJSON, &severity); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan control")
		}
		c.Description = desc.String
		if keywordsJSON.String != "" {
			if err := json.Unmarshal([]byte(keywordsJSON.String), &c.Keywords); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
			}
		}
		c.SeverityIfMissing = model.Severity(severity.String)
		controls = append(controls, c)
	}
	return controls, eris.Wrap(rows.Err(), "sqlite: controls iterate")
}

func (s *SQLiteStore) ListFrameworks(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT framework FROM controls ORDER BY framework`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list frameworks")
	}
	defer rows.Close()

	var frameworks []string
	for rows.Next() {
		var fw string
		if err := rows.Scan(&fw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan framework")
		}
		frameworks = append(frameworks, fw)
	}
	return frameworks, eris.Wrap(rows.Err(), "sqlite: frameworks iterate")
}

func (s *SQLiteStore) CreateComplianceResult(ctx context.Context, r *model.ComplianceResult) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO compliance_results (id, policy_id, framework, compliance_score, controls_covered, controls_partial, controls_missing, status, analyzed_at, analysis_duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PolicyID, r.Framework, r.Score, r.Covered, r.Partial, r.Missing, string(r.Status), r.AnalyzedAt, r.Duration,
	)
	return eris.Wrap(err, "sqlite: insert compliance result")
}

func (s *SQLiteStore) ListComplianceResults(ctx context.Context, policyID string) ([]model.ComplianceResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy_id, framework, compliance_score, controls_covered, controls_partial, controls_missing, status, analyzed_at, analysis_duration_ms
		 FROM compliance_results WHERE policy_id = ? ORDER BY analyzed_at DESC`,
		policyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list compliance results")
	}
	defer rows.Close()

	var results []model.ComplianceResult
	for rows.Next() {
		var r model.ComplianceResult
		if err := rows.Scan(&r.ID, &r.PolicyID, &r.Framework, &r.Score, &r.Covered, &r.Partial, &r.Missing, &r.Status, &r.AnalyzedAt, &r.Duration); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan compliance result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: results iterate")
}

func (s *SQLiteStore) CreateMappings(ctx context.Context, mappings []model.Mapping) (int, error) {
	if len(mappings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO mappings (id, policy_id, control_id, framework, evidence_snippet, confidence, rationale, decision)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert mapping")
	}
	defer stmt.Close()

	for _, m := range mappings {
		id := m.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, m.PolicyID, m.ControlID, m.Framework, m.EvidenceSnippet, m.Confidence, m.Rationale, string(m.Decision)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert mapping %s", m.ControlID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit mappings")
	}
	return len(mappings), nil
}

func (s *SQLiteStore) CreateGaps(ctx context.Context, gaps []model.Gap) (int, error) {
	if len(gaps) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gaps (id, policy_id, framework, control_id, control_name, severity, status, description, owner)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert gap")
	}
	defer stmt.Close()

	for _, g := range gaps {
		id := g.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, g.PolicyID, g.Framework, g.ControlID, g.ControlName, string(g.Severity), string(g.Status), g.Description, g.Owner); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert gap %s", g.ControlID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit gaps")
	}
	return len(gaps), nil
}

func (s *SQLiteStore) ListGaps(ctx context.Context, filter GapFilter) ([]model.Gap, error) {
	query := `SELECT id, policy_id, framework, control_id, control_name, severity, status, description, owner FROM gaps WHERE 1=1`
	var args []any

	if filter.PolicyID != "" {
		query += ` AND policy_id = ?`
		args = append(args, filter.PolicyID)
	}
	if filter.Framework != "" {
		query += ` AND framework = ?`
		args = append(args, filter.Framework)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY severity, control_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list gaps")
	}
	defer rows.Close()

	var gaps []model.Gap
	for rows.Next() {
		var g model.Gap
		var owner sql.NullString
		if err := rows.Scan(&g.ID, &g.PolicyID, &g.Framework, &g.ControlID, &g.ControlName, &g.Severity, &g.Status, &g.Description, &owner); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan gap")
		}
		g.Owner = owner.String
		gaps = append(gaps, g)
	}
	return gaps, eris.Wrap(rows.Err(), "sqlite: gaps iterate")
}

func (s *SQLiteStore) CreateInsight(ctx context.Context, in *model.Insight) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO insights (id, policy_id, insight_type, title, description, priority, confidence, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.PolicyID, string(in.Type), in.Title, in.Description, string(in.Priority), in.Confidence, in.Status,
	)
	return eris.Wrap(err, "sqlite: insert insight")
}

func (s *SQLiteStore) ListInsights(ctx context.Context, policyID string) ([]model.Insight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy_id, insight_type, title, description, priority, confidence, status
		 FROM insights WHERE policy_id = ?`,
		policyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list insights")
	}
	defer rows.Close()

	var insights []model.Insight
	for rows.Next() {
		var in model.Insight
		if err := rows.Scan(&in.ID, &in.PolicyID, &in.Type, &in.Title, &in.Description, &in.Priority, &in.Confidence, &in.Status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan insight")
		}
		insights = append(insights, in)
	}
	return insights, eris.Wrap(rows.Err(), "sqlite: insights iterate")
}

func (s *SQLiteStore) CreateReport(ctx context.Context, rep *model.Report) error {
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}
	frameworksJSON, err := json.Marshal(rep.Frameworks)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report frameworks")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, policy_id, report_type, format, status, download_url, frameworks, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.PolicyID, string(rep.Type), rep.Format, rep.Status, rep.DownloadURL, string(frameworksJSON), rep.GeneratedAt,
	)
	return eris.Wrap(err, "sqlite: insert report")
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, actor, action, target_type, target_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Actor, e.Action, e.TargetType, e.TargetID, e.Details, e.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert audit entry")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
