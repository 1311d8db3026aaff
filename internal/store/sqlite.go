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

	"github.com/sells-group/lead-radar/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are
// stored as fixed-width UTC text so string comparison orders them.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single writer avoids SQLITE_BUSY between the scheduler and API.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	name               TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	features           TEXT NOT NULL DEFAULT '[]',
	benefits           TEXT NOT NULL DEFAULT '[]',
	pain_points        TEXT NOT NULL DEFAULT '[]',
	ideal_customer     TEXT NOT NULL DEFAULT '',
	target_communities TEXT NOT NULL DEFAULT '[]',
	active             INTEGER NOT NULL DEFAULT 1,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS background_jobs (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	product_id       TEXT NOT NULL,
	job_type         TEXT NOT NULL DEFAULT 'monitor_product',
	status           TEXT NOT NULL DEFAULT 'active',
	interval_minutes INTEGER NOT NULL CHECK (interval_minutes > 0),
	last_run         TEXT,
	next_run         TEXT NOT NULL,
	error_message    TEXT NOT NULL DEFAULT '',
	run_count        INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	product_id      TEXT NOT NULL,
	post_id         TEXT NOT NULL,
	title           TEXT NOT NULL,
	excerpt         TEXT NOT NULL DEFAULT '',
	community       TEXT NOT NULL,
	author          TEXT NOT NULL DEFAULT '',
	post_score      INTEGER NOT NULL DEFAULT 0,
	num_comments    INTEGER NOT NULL DEFAULT 0,
	url             TEXT NOT NULL DEFAULT '',
	permalink       TEXT NOT NULL,
	posted_at       TEXT,
	relevance_score INTEGER NOT NULL,
	quality_score   INTEGER NOT NULL DEFAULT 0,
	reasoning       TEXT NOT NULL DEFAULT '',
	suggested_reply TEXT NOT NULL DEFAULT '',
	scoring_source  TEXT NOT NULL DEFAULT 'ai',
	status          TEXT NOT NULL DEFAULT 'new',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS oauth_credentials (
	user_id       TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	expires_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id              TEXT PRIMARY KEY,
	job_id          TEXT NOT NULL DEFAULT '',
	user_id         TEXT NOT NULL,
	product_id      TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	term_source     TEXT NOT NULL DEFAULT '',
	credential_tier TEXT NOT NULL DEFAULT '',
	posts           INTEGER NOT NULL DEFAULT 0,
	accepted        INTEGER NOT NULL DEFAULT 0,
	inserted        INTEGER NOT NULL DEFAULT 0,
	degraded        INTEGER NOT NULL DEFAULT 0,
	budget_exceeded INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_group_stats (
	run_id          TEXT NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
	grp             TEXT NOT NULL,
	terms           INTEGER NOT NULL,
	raw             INTEGER NOT NULL,
	uniq            INTEGER NOT NULL,
	accepted        INTEGER NOT NULL,
	search_failures INTEGER NOT NULL,
	batch_failures  INTEGER NOT NULL,
	degraded        INTEGER NOT NULL,
	duration_ms     INTEGER NOT NULL,
	PRIMARY KEY (run_id, grp)
);

CREATE INDEX IF NOT EXISTS idx_products_user_id ON products(user_id);
CREATE INDEX IF NOT EXISTS idx_background_jobs_due ON background_jobs(status, next_run);
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_user_permalink ON leads(user_id, permalink);
CREATE INDEX IF NOT EXISTS idx_leads_product_created ON leads(product_id, created_at);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// --- Products ---

func (s *SQLiteStore) CreateProduct(ctx context.Context, p *model.ProductProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := s.clock()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Description, encodeList(p.Features), encodeList(p.Benefits),
		encodeList(p.PainPoints), p.IdealCustomer, encodeList(p.TargetCommunities), p.Active,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: insert product %s", p.ID)
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*model.ProductProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanSQLiteProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: product %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context, userID string) ([]model.ProductProfile, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ProductProfile
	for rows.Next() {
		p, err := scanSQLiteProduct(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list products")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProduct(row scanner) (*model.ProductProfile, error) {
	var (
		p                                model.ProductProfile
		features, benefits, pains, comms string
		createdAt, updatedAt             string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &features, &benefits, &pains,
		&p.IdealCustomer, &comms, &p.Active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.Features, err = decodeList(features); err != nil {
		return nil, err
	}
	if p.Benefits, err = decodeList(benefits); err != nil {
		return nil, err
	}
	if p.PainPoints, err = decodeList(pains); err != nil {
		return nil, err
	}
	if p.TargetCommunities, err = decodeList(comms); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Jobs ---

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.BackgroundJob) error {
	if err := prepareJob(job, s.clock()); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	var lastRun *string
	if job.LastRun != nil {
		v := formatTime(*job.LastRun)
		lastRun = &v
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO background_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.ProductID, string(job.Type), string(job.Status), job.IntervalMinutes,
		lastRun, formatTime(job.NextRun), job.ErrorMessage, job.RunCount,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.ID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.BackgroundJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM background_jobs WHERE id = ?`, id)
	j, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return j, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.BackgroundJob, error) {
	query := `SELECT ` + jobColumns + ` FROM background_jobs WHERE 1=1`
	var args []any
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.ProductID != "" {
		query += ` AND product_id = ?`
		args = append(args, filter.ProductID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY next_run, id LIMIT ?`
	args = append(args, limit)

	return s.queryJobs(ctx, "list jobs", query, args...)
}

func (s *SQLiteStore) DueJobs(ctx context.Context, now time.Time) ([]model.BackgroundJob, error) {
	return s.queryJobs(ctx, "due jobs",
		`SELECT `+jobColumns+` FROM background_jobs
		WHERE status IN ('active', 'error') AND next_run <= ? ORDER BY next_run, id`,
		formatTime(now),
	)
}

func (s *SQLiteStore) queryJobs(ctx context.Context, op, query string, args ...any) ([]model.BackgroundJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close() //nolint:errcheck

	var jobs []model.BackgroundJob
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrapf(rows.Err(), "sqlite: %s", op)
}

func (s *SQLiteStore) RecordJobRun(ctx context.Context, id string, u model.JobRunUpdate) error {
	var lastRun, nextRun *string
	if !u.LastRun.IsZero() {
		v := formatTime(u.LastRun)
		lastRun = &v
	}
	if u.NextRun != nil {
		v := formatTime(*u.NextRun)
		nextRun = &v
	}
	inc := 0
	if u.IncrementRun {
		inc = 1
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE background_jobs SET
			status = ?,
			error_message = ?,
			last_run = COALESCE(?, last_run),
			next_run = COALESCE(?, next_run),
			run_count = run_count + ?,
			updated_at = ?
		WHERE id = ?`,
		string(u.Status), u.ErrorMessage, lastRun, nextRun, inc, formatTime(s.clock()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record job run %s", id)
	}
	return rowsAffectedOrNotFound(res, "sqlite: job "+id)
}

func (s *SQLiteStore) SetJobStatus(ctx context.Context, id string, status model.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE background_jobs SET status = ?, error_message = '', updated_at = ? WHERE id = ?`,
		string(status), formatTime(s.clock()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set job status %s", id)
	}
	return rowsAffectedOrNotFound(res, "sqlite: job "+id)
}

func rowsAffectedOrNotFound(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, what)
	}
	if n == 0 {
		return eris.Wrap(ErrNotFound, what)
	}
	return nil
}

func scanSQLiteJob(row scanner) (*model.BackgroundJob, error) {
	var (
		j                           model.BackgroundJob
		jobType, status             string
		lastRun                     sql.NullString
		nextRun, createdAt, updated string
	)
	if err := row.Scan(&j.ID, &j.UserID, &j.ProductID, &jobType, &status, &j.IntervalMinutes,
		&lastRun, &nextRun, &j.ErrorMessage, &j.RunCount, &createdAt, &updated); err != nil {
		return nil, err
	}
	j.Type = model.JobType(jobType)
	j.Status = model.JobStatus(status)

	var err error
	if lastRun.Valid && lastRun.String != "" {
		t, err := parseTime(lastRun.String)
		if err != nil {
			return nil, err
		}
		j.LastRun = &t
	}
	if j.NextRun, err = parseTime(nextRun); err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &j, nil
}

// --- Leads ---

func (s *SQLiteStore) LeadExists(ctx context.Context, userID, permalink string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM leads WHERE user_id = ? AND permalink = ?)`,
		userID, permalink,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: lead exists")
	}
	return exists, nil
}

func (s *SQLiteStore) InsertLead(ctx context.Context, l *model.Lead) (bool, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	now := s.clock()
	l.CreatedAt, l.UpdatedAt = now, now

	var postedAt *string
	if !l.PostedAt.IsZero() {
		v := formatTime(l.PostedAt)
		postedAt = &v
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, permalink) DO NOTHING`,
		l.ID, l.UserID, l.ProductID, l.PostID, l.Title, l.Excerpt, l.Community, l.Author,
		l.PostScore, l.NumComments, l.URL, l.Permalink, postedAt, l.RelevanceScore,
		l.QualityScore, l.Reasoning, l.SuggestedReply, string(l.ScoringSource), string(l.Status),
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert lead %s", l.PostID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert lead rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.ProductID != "" {
		query += ` AND product_id = ?`
		args = append(args, filter.ProductID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, formatTime(filter.CreatedAfter))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` ORDER BY created_at DESC, relevance_score DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		var (
			l                    model.Lead
			source, status       string
			postedAt             sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.PostID, &l.Title, &l.Excerpt, &l.Community,
			&l.Author, &l.PostScore, &l.NumComments, &l.URL, &l.Permalink, &postedAt, &l.RelevanceScore,
			&l.QualityScore, &l.Reasoning, &l.SuggestedReply, &source, &status, &createdAt, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		if postedAt.Valid && postedAt.String != "" {
			if l.PostedAt, err = parseTime(postedAt.String); err != nil {
				return nil, err
			}
		}
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		l.ScoringSource = model.ScoringSource(source)
		l.Status = model.LeadStatus(status)
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads")
}

// --- Credentials ---

func (s *SQLiteStore) GetCredential(ctx context.Context, userID string) (*model.Credential, error) {
	var (
		c                    model.Credential
		expiresAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, access_token, refresh_token, expires_at, updated_at FROM oauth_credentials WHERE user_id = ?`,
		userID,
	).Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &expiresAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get credential %s", userID)
	}
	if c.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) SaveCredential(ctx context.Context, c model.Credential) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_credentials (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		c.UserID, c.AccessToken, c.RefreshToken, formatTime(c.ExpiresAt), formatTime(c.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: save credential %s", c.UserID)
}

// --- Runs ---

func (s *SQLiteStore) SaveRun(ctx context.Context, rec *model.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save run")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, job_id, user_id, product_id, started_at, duration_ms, term_source,
			credential_tier, posts, accepted, inserted, degraded, budget_exceeded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.JobID, rec.UserID, rec.ProductID, formatTime(rec.StartedAt), rec.DurationMs,
		rec.TermSource, rec.CredentialTier, rec.Posts, rec.Accepted, rec.Inserted, rec.Degraded,
		rec.BudgetExceeded,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", rec.ID)
	}

	insert := `INSERT INTO run_group_stats (` + strings.Join(groupStatColumns, ", ") +
		`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, g := range rec.Groups {
		if _, err := tx.ExecContext(ctx, insert,
			rec.ID, string(g.Group), g.Terms, g.Raw, g.Unique, g.Accepted,
			g.SearchFailures, g.BatchFailures, g.Degraded, g.DurationMs,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert group stats %s/%s", rec.ID, g.Group)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save run")
}

func (s *SQLiteStore) SummarizeRuns(ctx context.Context, since time.Time) (RunSummary, error) {
	var sum RunSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*),
			COALESCE(sum(CASE WHEN degraded THEN 1 ELSE 0 END), 0),
			COALESCE(sum(CASE WHEN budget_exceeded THEN 1 ELSE 0 END), 0),
			COALESCE(sum(accepted), 0),
			COALESCE(sum(inserted), 0)
		FROM pipeline_runs WHERE started_at >= ?`,
		formatTime(since),
	).Scan(&sum.Runs, &sum.DegradedRuns, &sum.BudgetExceeded, &sum.Accepted, &sum.Inserted)
	if err != nil {
		return RunSummary{}, eris.Wrap(err, "sqlite: summarize runs")
	}
	return sum, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: parse time %q", s)
	}
	return t, nil
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode list")
	}
	return out, nil
}
