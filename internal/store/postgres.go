package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/clearcomply/compliance-cli/internal/db"
	"github.com/clearcomply/compliance-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot analysis-path store operations.
var preparedStatements = map[string]string{
	"get_policy":        `SELECT id, file_name, file_url, content_preview, status, uploaded_by, last_analyzed_at, created_at, updated_at FROM policies WHERE id = $1`,
	"transition_policy": `UPDATE policies SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4)`,
	"mark_analyzed":     `UPDATE policies SET status = $1, last_analyzed_at = $2, updated_at = $2 WHERE id = $3`,
	"list_controls":     `SELECT id, framework, control_code, title, description, keywords, severity_if_missing FROM controls WHERE framework = $1 ORDER BY control_code`,
	"insert_result":     `INSERT INTO compliance_results (id, policy_id, framework, compliance_score, controls_covered, controls_partial, controls_missing, status, analyzed_at, analysis_duration_ms) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"insert_audit":      `INSERT INTO audit_log (id, actor, action, target_type, target_id, details, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
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

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

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

// NewPostgresFromPool wraps an existing pool. The caller owns the pool's
// lifecycle; Close on the returned store is a no-op.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS policies (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	file_name        TEXT NOT NULL,
	file_url         TEXT,
	content_preview  TEXT,
	status           TEXT NOT NULL DEFAULT 'uploaded',
	uploaded_by      TEXT,
	last_analyzed_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS controls (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	framework           TEXT NOT NULL,
	control_code        TEXT NOT NULL,
	title               TEXT NOT NULL,
	description         TEXT,
	keywords            JSONB NOT NULL DEFAULT '[]',
	severity_if_missing TEXT,
	UNIQUE (framework, control_code)
);

CREATE TABLE IF NOT EXISTS compliance_results (
	id                   TEXT PRIMARY KEY,
	policy_id            TEXT NOT NULL REFERENCES policies(id),
	framework            TEXT NOT NULL,
	compliance_score     DOUBLE PRECISION NOT NULL,
	controls_covered     INTEGER NOT NULL,
	controls_partial     INTEGER NOT NULL,
	controls_missing     INTEGER NOT NULL,
	status               TEXT NOT NULL,
	analyzed_at          TIMESTAMPTZ NOT NULL,
	analysis_duration_ms BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS mappings (
	id               TEXT PRIMARY KEY,
	policy_id        TEXT NOT NULL REFERENCES policies(id),
	control_id       TEXT NOT NULL,
	framework        TEXT NOT NULL,
	evidence_snippet TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
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
	confidence   DOUBLE PRECISION NOT NULL,
	status       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	policy_id    TEXT NOT NULL REFERENCES policies(id),
	report_type  TEXT NOT NULL,
	format       TEXT NOT NULL,
	status       TEXT NOT NULL,
	download_url TEXT,
	frameworks   JSONB NOT NULL DEFAULT '[]',
	generated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	details     TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_policies_status ON policies(status);
CREATE INDEX IF NOT EXISTS idx_controls_framework ON controls(framework);
CREATE INDEX IF NOT EXISTS idx_results_policy ON compliance_results(policy_id);
CREATE INDEX IF NOT EXISTS idx_mappings_policy ON mappings(policy_id);
CREATE INDEX IF NOT EXISTS idx_gaps_policy ON gaps(policy_id);
CREATE INDEX IF NOT EXISTS idx_gaps_status ON gaps(status);
CREATE INDEX IF NOT EXISTS idx_insights_policy ON insights(policy_id);
CREATE INDEX IF NOT EXISTS idx_reports_policy ON reports(policy_id);
CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_log(target_type, target_id);
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

func (s *PostgresStore) CreatePolicy(ctx context.Context, p *model.Policy) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = model.PolicyStatusUploaded
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO policies (id, file_name, file_url, content_preview, status, uploaded_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.FileName, p.FileURL, p.ContentPreview, string(p.Status), p.UploadedBy, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert policy")
}

func (s *PostgresStore) GetPolicy(ctx context.Context, id string) (*model.Policy, error) {
	var p model.Policy
	err := s.pool.QueryRow(ctx,
		`SELECT id, file_name, file_url, content_preview, status, uploaded_by, last_analyzed_at, created_at, updated_at
		 FROM policies WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.FileName, &p.FileURL, &p.ContentPreview, &p.Status, &p.UploadedBy, &p.LastAnalyzedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get policy %s", id)
	}
	return &p, nil
}

func (s *PostgresStore) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, file_name, file_url, content_preview, status, uploaded_by, last_analyzed_at, created_at, updated_at
		 FROM policies ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list policies")
	}
	defer rows.Close()

	var policies []model.Policy
	for rows.Next() {
		var p model.Policy
		if err := rows.Scan(&p.ID, &p.FileName, &p.FileURL, &p.ContentPreview, &p.Status, &p.UploadedBy, &p.LastAnalyzedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan policy")
		}
		policies = append(policies, p)
	}
	return policies, eris.Wrap(rows.Err(), "postgres: list policies iterate")
}

func (s *PostgresStore) TransitionPolicyStatus(ctx context.Context, id string, from []model.PolicyStatus, to model.PolicyStatus) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, st := range from {
		fromStrs[i] = string(st)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE policies SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4)`,
		string(to), time.Now().UTC(), id, fromStrs,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: transition policy %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) MarkPolicyAnalyzed(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE policies SET status = $1, last_analyzed_at = $2, updated_at = $2 WHERE id = $3`,
		string(model.PolicyStatusAnalyzed), at, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark analyzed %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("policy not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateControls(ctx context.Context, controls []model.Control) (int, error) {
	rows := make([][]any, 0, len(controls))
	for _, c := range controls {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		keywordsJSON, err := json.Marshal(c.Keywords)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal keywords")
		}
		rows = append(rows, []any{id, c.Framework, c.Code, c.Title, c.Description, keywordsJSON, string(c.SeverityIfMissing)})
	}

	n, err := db.CopyFrom(ctx, s.pool, "controls",
		[]string{"id", "framework", "control_code", "title", "description", "keywords", "severity_if_missing"},
		rows,
	)
	return int(n), err
}

func (s *PostgresStore) ListControls(ctx context.Context, framework string) ([]model.Control, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, framework, control_code, title, description, keywords, severity_if_missing
		 FROM controls WHERE framework = $1 ORDER BY control_code`,
		framework,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list controls for %s", framework)
	}
	defer rows.Close()
	return scanControls(rows)
}

func (s *PostgresStore) GetControlsByID(ctx context.Context, ids []string) ([]model.Control, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, framework, control_code, title, description, keywords, severity_if_missing
		 FROM controls WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get controls by id")
	}
	defer rows.Close()
	return scanControls(rows)
}

func scanControls(rows pgx.Rows) ([]model.Control, error) {
	var controls []model.Control
	for rows.Next() {
		var c model.Control
		var keywordsJSON []byte
		var severity *string
		if err := rows.Scan(&c.ID, &c.Framework, &c.Code, &c.Title, &c.Description, &keywordsJSON, &severity); err != nil {
			return nil, eris.Wrap(err, "postgres: scan control")
		}
		if err := json.Unmarshal(keywordsJSON, &c.Keywords); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal keywords")
		}
		if severity != nil {
			c.SeverityIfMissing = model.Severity(*severity)
		}
		controls = append(controls, c)
	}
	return controls, eris.Wrap(rows.Err(), "postgres: controls iterate")
}

func (s *PostgresStore) ListFrameworks(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT framework FROM controls ORDER BY framework`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list frameworks")
	}
	defer rows.Close()

	var frameworks []string
	for rows.Next() {
		var fw string
		if err := rows.Scan(&fw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan framework")
		}
		frameworks = append(frameworks, fw)
	}
	return frameworks, eris.Wrap(rows.Err(), "postgres: frameworks iterate")
}

func (s *PostgresStore) CreateComplianceResult(ctx context.Context, r *model.ComplianceResult) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO compliance_results (id, policy_id, framework, compliance_score, controls_covered, controls_partial, controls_missing, status, analyzed_at, analysis_duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.PolicyID, r.Framework, r.Score, r.Covered, r.Partial, r.Missing, string(r.Status), r.AnalyzedAt, r.Duration,
	)
	return eris.Wrap(err, "postgres: insert compliance result")
}

func (s *PostgresStore) ListComplianceResults(ctx context.Context, policyID string) ([]model.ComplianceResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, policy_id, framework, compliance_score, controls_covered, controls_partial, controls_missing, status, analyzed_at, analysis_duration_ms
		 FROM compliance_results WHERE policy_id = $1 ORDER BY analyzed_at DESC`,
		policyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list compliance results")
	}
	defer rows.Close()

	var results []model.ComplianceResult
	for rows.Next() {
		var r model.ComplianceResult
		if err := rows.Scan(&r.ID, &r.PolicyID, &r.Framework, &r.Score, &r.Covered, &r.Partial, &r.Missing, &r.Status, &r.AnalyzedAt, &r.Duration); err != nil {
			return nil, eris.Wrap(err, "postgres: scan compliance result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: results iterate")
}

func (s *PostgresStore) CreateMappings(ctx context.Context, mappings []model.Mapping) (int, error) {
	rows := make([][]any, 0, len(mappings))
	for _, m := range mappings {
		id := m.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, m.PolicyID, m.ControlID, m.Framework, m.EvidenceSnippet, m.Confidence, m.Rationale, string(m.Decision)})
	}

	n, err := db.CopyFrom(ctx, s.pool, "mappings",
		[]string{"id", "policy_id", "control_id", "framework", "evidence_snippet", "confidence", "rationale", "decision"},
		rows,
	)
	return int(n), err
}

func (s *PostgresStore) CreateGaps(ctx context.Context, gaps []model.Gap) (int, error) {
	rows := make([][]any, 0, len(gaps))
	for _, g := range gaps {
		id := g.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, g.PolicyID, g.Framework, g.ControlID, g.ControlName, string(g.Severity), string(g.Status), g.Description, g.Owner})
	}

	n, err := db.CopyFrom(ctx, s.pool, "gaps",
		[]string{"id", "policy_id", "framework", "control_id", "control_name", "severity", "status", "description", "owner"},
		rows,
	)
	return int(n), err
}

func (s *PostgresStore) ListGaps(ctx context.Context, filter GapFilter) ([]model.Gap, error) {
	query := `SELECT id, policy_id, framework, control_id, control_name, severity, status, description, owner FROM gaps WHERE true`
	args := []any{}
	argIdx := 1

	if filter.PolicyID != "" {
		query += fmt.Sprintf(` AND policy_id = $%d`, argIdx)
		args = append(args, filter.PolicyID)
		argIdx++
	}
	if filter.Framework != "" {
		query += fmt.Sprintf(` AND framework = $%d`, argIdx)
		args = append(args, filter.Framework)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY severity, control_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list gaps")
	}
	defer rows.Close()

	var gaps []model.Gap
	for rows.Next() {
		var g model.Gap
		var owner *string
		if err := rows.Scan(&g.ID, &g.PolicyID, &g.Framework, &g.ControlID, &g.ControlName, &g.Severity, &g.Status, &g.Description, &owner); err != nil {
			return nil, eris.Wrap(err, "postgres: scan gap")
		}
		if owner != nil {
			g.Owner = *owner
		}
		gaps = append(gaps, g)
	}
	return gaps, eris.Wrap(rows.Err(), "postgres: gaps iterate")
}

func (s *PostgresStore) CreateInsight(ctx context.Context, in *model.Insight) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO insights (id, policy_id, insight_type, title, description, priority, confidence, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		in.ID, in.PolicyID, string(in.Type), in.Title, in.Description, string(in.Priority), in.Confidence, in.Status,
	)
	return eris.Wrap(err, "postgres: insert insight")
}

func (s *PostgresStore) ListInsights(ctx context.Context, policyID string) ([]model.Insight, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, policy_id, insight_type, title, description, priority, confidence, status
		 FROM insights WHERE policy_id = $1`,
		policyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list insights")
	}
	defer rows.Close()

	var insights []model.Insight
	for rows.Next() {
		var in model.Insight
		if err := rows.Scan(&in.ID, &in.PolicyID, &in.Type, &in.Title, &in.Description, &in.Priority, &in.Confidence, &in.Status); err != nil {
			return nil, eris.Wrap(err, "postgres: scan insight")
		}
		insights = append(insights, in)
	}
	return insights, eris.Wrap(rows.Err(), "postgres: insights iterate")
}

func (s *PostgresStore) CreateReport(ctx context.Context, rep *model.Report) error {
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}
	frameworksJSON, err := json.Marshal(rep.Frameworks)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report frameworks")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, policy_id, report_type, format, status, download_url, frameworks, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rep.ID, rep.PolicyID, string(rep.Type), rep.Format, rep.Status, rep.DownloadURL, frameworksJSON, rep.GeneratedAt,
	)
	return eris.Wrap(err, "postgres: insert report")
}

func (s *PostgresStore) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, actor, action, target_type, target_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Actor, e.Action, e.TargetType, e.TargetID, e.Details, e.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert audit entry")
}
