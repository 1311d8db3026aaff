package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-radar/internal/db"
	"github.com/sells-group/lead-radar/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlLeadExists = `SELECT EXISTS(SELECT 1 FROM leads WHERE user_id = $1 AND permalink = $2)`
	sqlDueJobs    = `SELECT ` + jobColumns + ` FROM background_jobs WHERE status IN ('active', 'error') AND next_run <= $1 ORDER BY next_run, id`
	sqlGetCred    = `SELECT user_id, access_token, refresh_token, expires_at, updated_at FROM oauth_credentials WHERE user_id = $1`
)

var leadInsert = db.InsertConfig{
	Table: "leads",
	Columns: []string{
		"id", "user_id", "product_id", "post_id", "title", "excerpt", "community", "author",
		"post_score", "num_comments", "url", "permalink", "posted_at", "relevance_score",
		"quality_score", "reasoning", "suggested_reply", "scoring_source", "status",
		"created_at", "updated_at",
	},
	ConflictKeys: []string{"user_id", "permalink"},
}

var credentialUpsert = db.InsertConfig{
	Table:        "oauth_credentials",
	Columns:      []string{"user_id", "access_token", "refresh_token", "expires_at", "updated_at"},
	ConflictKeys: []string{"user_id"},
	UpdateCols:   []string{"access_token", "refresh_token", "expires_at", "updated_at"},
}

var groupStatColumns = []string{
	"run_id", "grp", "terms", "raw", "uniq", "accepted",
	"search_failures", "batch_failures", "degraded", "duration_ms",
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

	// Hot queries are reused through pgx's per-connection statement cache.
	pgxCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

// NewPostgresFromPool wraps an existing pool. Close does not close it.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return migratePostgres(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Products ---

const productColumns = `id, user_id, name, description, features, benefits, pain_points, ideal_customer, target_communities, active, created_at, updated_at`

func (s *PostgresStore) CreateProduct(ctx context.Context, p *model.ProductProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := s.clock()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.UserID, p.Name, p.Description, nonNil(p.Features), nonNil(p.Benefits), nonNil(p.PainPoints),
		p.IdealCustomer, nonNil(p.TargetCommunities), p.Active, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert product %s", p.ID)
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.ProductProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: product %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get product %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, userID string) ([]model.ProductProfile, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var out []model.ProductProfile
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list products")
}

func scanProduct(row pgx.Row) (*model.ProductProfile, error) {
	var p model.ProductProfile
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Features, &p.Benefits, &p.PainPoints,
		&p.IdealCustomer, &p.TargetCommunities, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Jobs ---

const jobColumns = `id, user_id, product_id, job_type, status, interval_minutes, last_run, next_run, error_message, run_count, created_at, updated_at`

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.BackgroundJob) error {
	if err := prepareJob(job, s.clock()); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO background_jobs (`+jobColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.UserID, job.ProductID, string(job.Type), string(job.Status), job.IntervalMinutes,
		job.LastRun, job.NextRun, job.ErrorMessage, job.RunCount, job.CreatedAt, job.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert job %s", job.ID)
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.BackgroundJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM background_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: job %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.BackgroundJob, error) {
	query := `SELECT ` + jobColumns + ` FROM background_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.ProductID != "" {
		query += fmt.Sprintf(` AND product_id = $%d`, argIdx)
		args = append(args, filter.ProductID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY next_run, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	return s.queryJobs(ctx, "list jobs", query, args...)
}

func (s *PostgresStore) DueJobs(ctx context.Context, now time.Time) ([]model.BackgroundJob, error) {
	return s.queryJobs(ctx, "due jobs", sqlDueJobs, now.UTC())
}

func (s *PostgresStore) queryJobs(ctx context.Context, op, query string, args ...any) ([]model.BackgroundJob, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	var jobs []model.BackgroundJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrapf(rows.Err(), "postgres: %s", op)
}

func (s *PostgresStore) RecordJobRun(ctx context.Context, id string, u model.JobRunUpdate) error {
	var lastRun *time.Time
	if !u.LastRun.IsZero() {
		t := u.LastRun.UTC()
		lastRun = &t
	}
	inc := 0
	if u.IncrementRun {
		inc = 1
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE background_jobs SET
			status = $1,
			error_message = $2,
			last_run = COALESCE($3, last_run),
			next_run = COALESCE($4, next_run),
			run_count = run_count + $5,
			updated_at = $6
		WHERE id = $7`,
		string(u.Status), u.ErrorMessage, lastRun, u.NextRun, inc, s.clock(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record job run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", id)
	}
	return nil
}

func (s *PostgresStore) SetJobStatus(ctx context.Context, id string, status model.JobStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE background_jobs SET status = $1, error_message = '', updated_at = $2 WHERE id = $3`,
		string(status), s.clock(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set job status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", id)
	}
	return nil
}

func scanJob(row pgx.Row) (*model.BackgroundJob, error) {
	var j model.BackgroundJob
	var jobType, status string
	err := row.Scan(&j.ID, &j.UserID, &j.ProductID, &jobType, &status, &j.IntervalMinutes,
		&j.LastRun, &j.NextRun, &j.ErrorMessage, &j.RunCount, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Type = model.JobType(jobType)
	j.Status = model.JobStatus(status)
	return &j, nil
}

// --- Leads ---

func (s *PostgresStore) LeadExists(ctx context.Context, userID, permalink string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, sqlLeadExists, userID, permalink).Scan(&exists); err != nil {
		return false, eris.Wrap(err, "postgres: lead exists")
	}
	return exists, nil
}

func (s *PostgresStore) InsertLead(ctx context.Context, l *model.Lead) (bool, error) {
	query, err := db.InsertSQL(leadInsert)
	if err != nil {
		return false, err
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	now := s.clock()
	l.CreatedAt, l.UpdatedAt = now, now

	tag, err := s.pool.Exec(ctx, query,
		l.ID, l.UserID, l.ProductID, l.PostID, l.Title, l.Excerpt, l.Community, l.Author,
		l.PostScore, l.NumComments, l.URL, l.Permalink, nullTime(l.PostedAt), l.RelevanceScore,
		l.QualityScore, l.Reasoning, l.SuggestedReply, string(l.ScoringSource), string(l.Status),
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert lead %s", l.PostID)
	}
	return tag.RowsAffected() == 1, nil
}

const leadColumns = `id, user_id, product_id, post_id, title, excerpt, community, author, post_score, num_comments, url, permalink, posted_at, relevance_score, quality_score, reasoning, suggested_reply, scoring_source, status, created_at, updated_at`

func (s *PostgresStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.ProductID != "" {
		query += fmt.Sprintf(` AND product_id = $%d`, argIdx)
		args = append(args, filter.ProductID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC, relevance_score DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var source, status string
		var postedAt *time.Time
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.PostID, &l.Title, &l.Excerpt, &l.Community,
			&l.Author, &l.PostScore, &l.NumComments, &l.URL, &l.Permalink, &postedAt, &l.RelevanceScore,
			&l.QualityScore, &l.Reasoning, &l.SuggestedReply, &source, &status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		if postedAt != nil {
			l.PostedAt = *postedAt
		}
		l.ScoringSource = model.ScoringSource(source)
		l.Status = model.LeadStatus(status)
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads")
}

// --- Credentials ---

func (s *PostgresStore) GetCredential(ctx context.Context, userID string) (*model.Credential, error) {
	var c model.Credential
	err := s.pool.QueryRow(ctx, sqlGetCred, userID).
		Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get credential %s", userID)
	}
	return &c, nil
}

func (s *PostgresStore) SaveCredential(ctx context.Context, c model.Credential) error {
	query, err := db.InsertSQL(credentialUpsert)
	if err != nil {
		return err
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.clock()
	}
	_, err = s.pool.Exec(ctx, query, c.UserID, c.AccessToken, c.RefreshToken, c.ExpiresAt.UTC(), c.UpdatedAt.UTC())
	return eris.Wrapf(err, "postgres: save credential %s", c.UserID)
}

// --- Runs ---

func (s *PostgresStore) SaveRun(ctx context.Context, rec *model.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, job_id, user_id, product_id, started_at, duration_ms, term_source,
			credential_tier, posts, accepted, inserted, degraded, budget_exceeded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.JobID, rec.UserID, rec.ProductID, rec.StartedAt.UTC(), rec.DurationMs, rec.TermSource,
		rec.CredentialTier, rec.Posts, rec.Accepted, rec.Inserted, rec.Degraded, rec.BudgetExceeded,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", rec.ID)
	}

	rows := make([][]any, 0, len(rec.Groups))
	for _, g := range rec.Groups {
		rows = append(rows, []any{
			rec.ID, string(g.Group), g.Terms, g.Raw, g.Unique, g.Accepted,
			g.SearchFailures, g.BatchFailures, g.Degraded, g.DurationMs,
		})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "run_group_stats", groupStatColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: insert group stats for run %s", rec.ID)
	}
	return nil
}

func (s *PostgresStore) SummarizeRuns(ctx context.Context, since time.Time) (RunSummary, error) {
	var sum RunSummary
	err := s.pool.QueryRow(ctx,
		`SELECT count(*),
			count(*) FILTER (WHERE degraded),
			count(*) FILTER (WHERE budget_exceeded),
			COALESCE(sum(accepted), 0),
			COALESCE(sum(inserted), 0)
		FROM pipeline_runs WHERE started_at >= $1`,
		since.UTC(),
	).Scan(&sum.Runs, &sum.DegradedRuns, &sum.BudgetExceeded, &sum.Accepted, &sum.Inserted)
	if err != nil {
		return RunSummary{}, eris.Wrap(err, "postgres: summarize runs")
	}
	return sum, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
