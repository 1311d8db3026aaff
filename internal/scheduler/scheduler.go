// Package scheduler runs the lead pipeline for every due background job on
// a fixed tick and keeps the jobs' run bookkeeping.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/lease"
	"github.com/sells-group/lead-radar/internal/metrics"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/pipeline"
	"github.com/sells-group/lead-radar/internal/store"
)

const (
	// DefaultTick is the poll interval.
	DefaultTick = 60 * time.Second
	// DefaultJobTimeout bounds one job execution, pipeline and persistence included.
	DefaultJobTimeout = 2 * time.Minute

	maxErrorMessage = 500
	bookkeepingWait = 10 * time.Second
)

// RunNow errors.
var (
	ErrJobNotRunnable = eris.New("scheduler: job not runnable")
	ErrJobBusy        = eris.New("scheduler: job already running")
)

// Store is the subset of the store used by the scheduler.
type Store interface {
	GetProduct(ctx context.Context, id string) (*model.ProductProfile, error)
	GetJob(ctx context.Context, id string) (*model.BackgroundJob, error)
	DueJobs(ctx context.Context, now time.Time) ([]model.BackgroundJob, error)
	RecordJobRun(ctx context.Context, id string, u model.JobRunUpdate) error
	SaveRun(ctx context.Context, rec *model.RunRecord) error
	pipeline.LeadWriter
}

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Outcome is the result of one job execution.
type Outcome struct {
	JobID   string                  `json:"job_id"`
	Status  model.JobStatus         `json:"status"`
	Error   string                  `json:"error,omitempty"`
	Result  *pipeline.Result        `json:"-"`
	Persist *pipeline.PersistReport `json:"persist,omitempty"`
}

// TickReport summarizes one poll cycle. Skipped counts due jobs that were
// leased by another instance or were no longer due once leased.
type TickReport struct {
	Due       int             `json:"due"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Failures  []model.Failure `json:"failures,omitempty"`
}

// Scheduler polls the job store and runs due jobs one at a time.
type Scheduler struct {
	store        Store
	runner       Runner
	locker       lease.Locker
	tick         time.Duration
	jobTimeout   time.Duration
	excerptChars int
	now          func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	first  sync.WaitGroup

	// running holds the IDs of jobs executing in this process.
	runMu   sync.Mutex
	running map[string]struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick sets the poll interval.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithJobTimeout bounds each job execution.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithLocker sets the per-job lease. The default grants every lease.
func WithLocker(l lease.Locker) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithExcerptChars sets the stored lead excerpt length.
func WithExcerptChars(n int) Option {
	return func(s *Scheduler) { s.excerptChars = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler.
func New(st Store, runner Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:      st,
		runner:     runner,
		locker:     lease.Noop{},
		tick:       DefaultTick,
		jobTimeout: DefaultJobTimeout,
		now:        time.Now,
		running:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the poll loop and runs the first tick immediately.
// Overlapping ticks are skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return eris.New("scheduler: already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	clog := cronLogger{zap.L().Sugar().With("component", "scheduler.cron")}
	job := cron.NewChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)).
		Then(cron.FuncJob(func() { s.Tick(ctx) }))

	c := cron.New(cron.WithLogger(clog))
	c.Schedule(cron.Every(s.tick), job)
	c.Start()
	s.first.Add(1)
	go func() {
		defer s.first.Done()
		job.Run()
	}()

	s.cron = c
	s.cancel = cancel
	zap.L().Info("scheduler started", zap.String("component", "scheduler"), zap.Duration("tick", s.tick))
	return nil
}

// Stop halts the poll loop and waits for a running tick, the immediate first
// tick included, to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	<-c.Stop().Done()
	s.first.Wait()
	cancel()
	zap.L().Info("scheduler stopped", zap.String("component", "scheduler"))
}

// Tick runs every due job sequentially. A failing or panicking job is
// recorded and does not stop the others.
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	log := zap.L().With(zap.String("component", "scheduler"))
	var rep TickReport

	jobs, err := s.store.DueJobs(ctx, s.now().UTC())
	if err != nil {
		log.Error("scheduler: load due jobs failed", zap.Error(err))
		return rep
	}
	rep.Due = len(jobs)
	if len(jobs) == 0 {
		log.Debug("scheduler: no due jobs")
		return rep
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		out, ran, err := s.runGuarded(ctx, job, true)
		switch {
		case !ran:
			rep.Skipped++
		case err != nil:
			rep.Failed++
			rep.Failures = append(rep.Failures, model.Failure{ID: job.ID, Error: out.Error})
		default:
			rep.Succeeded++
		}
	}

	log.Info("scheduler: tick complete",
		zap.Int("due", rep.Due),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
		zap.Int("skipped", rep.Skipped),
	)
	return rep
}

// RunNow executes a job immediately regardless of its next_run. Paused and
// stopped jobs are refused.
func (s *Scheduler) RunNow(ctx context.Context, jobID string) (*Outcome, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == model.JobStatusPaused || job.Status == model.JobStatusStopped {
		return nil, eris.Wrapf(ErrJobNotRunnable, "scheduler: job %s is %s", jobID, job.Status)
	}
	out, ran, err := s.runGuarded(ctx, *job, false)
	if !ran {
		return nil, eris.Wrapf(ErrJobBusy, "scheduler: job %s", jobID)
	}
	return out, err
}

// runGuarded claims the job in this process, takes the job lease, re-reads
// the job when requireDue is set so a job finished elsewhere is not run
// twice, then executes it.
func (s *Scheduler) runGuarded(ctx context.Context, job model.BackgroundJob, requireDue bool) (*Outcome, bool, error) {
	log := zap.L().With(zap.String("component", "scheduler"), zap.String("job_id", job.ID))

	if !s.claim(job.ID) {
		log.Info("scheduler: job already running in this process, skipping")
		return nil, false, nil
	}
	defer s.unclaim(job.ID)

	release, ok, err := s.locker.Acquire(ctx, job.ID)
	if err != nil {
		// Lease backend down: run anyway, single-instance semantics still hold.
		log.Warn("scheduler: lease unavailable", zap.Error(err))
		release, ok = func() {}, true
	}
	if !ok {
		metrics.JobLeaseContention.Inc()
		log.Info("scheduler: job leased elsewhere, skipping")
		return nil, false, nil
	}
	defer release()

	if requireDue {
		fresh, err := s.store.GetJob(ctx, job.ID)
		if err != nil {
			log.Warn("scheduler: reload job failed", zap.Error(err))
			return nil, false, nil
		}
		if !fresh.Due(s.now().UTC()) {
			return nil, false, nil
		}
		job = *fresh
	}

	out, err := s.RunJob(ctx, job)
	return out, true, err
}

func (s *Scheduler) claim(id string) bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if _, ok := s.running[id]; ok {
		return false
	}
	s.running[id] = struct{}{}
	return true
}

func (s *Scheduler) unclaim(id string) {
	s.runMu.Lock()
	delete(s.running, id)
	s.runMu.Unlock()
}

// RunJob executes one job and writes its bookkeeping. On success the job is
// active, last_run is now, next_run is now plus the interval and run_count
// increments. On failure the status becomes error with a message and the
// schedule and run count are left unchanged.
func (s *Scheduler) RunJob(ctx context.Context, job model.BackgroundJob) (out *Outcome, err error) {
	log := zap.L().With(
		zap.String("component", "scheduler"),
		zap.String("job_id", job.ID),
		zap.String("product_id", job.ProductID),
	)
	out = &Outcome{JobID: job.ID}

	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("scheduler: job panicked: %v", r)
			metrics.JobRuns.WithLabelValues("panic").Inc()
			log.Error("scheduler: job panicked", zap.Any("panic", r))
			s.fail(ctx, job, out, err, log)
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	res, persist, err := s.execute(jobCtx, job, log)
	out.Result = res
	out.Persist = persist
	if err != nil {
		metrics.JobRuns.WithLabelValues("error").Inc()
		s.fail(ctx, job, out, err, log)
		return out, err
	}

	finished := s.now().UTC()
	next := finished.Add(job.Interval())
	if err := s.record(ctx, job.ID, model.JobRunUpdate{
		Status:       model.JobStatusActive,
		LastRun:      finished,
		NextRun:      &next,
		IncrementRun: true,
	}); err != nil {
		log.Error("scheduler: record success failed", zap.Error(err))
		out.Status = model.JobStatusError
		out.Error = err.Error()
		metrics.JobRuns.WithLabelValues("error").Inc()
		return out, err
	}

	out.Status = model.JobStatusActive
	metrics.JobRuns.WithLabelValues("success").Inc()
	log.Info("scheduler: job complete",
		zap.Int("accepted", len(res.Accepted)),
		zap.Int("inserted", persist.Inserted),
		zap.Int("duplicates", persist.Duplicates),
		zap.Int("persist_failures", len(persist.Failures)),
		zap.Time("next_run", next),
	)
	return out, nil
}

func (s *Scheduler) execute(ctx context.Context, job model.BackgroundJob, log *zap.Logger) (*pipeline.Result, *pipeline.PersistReport, error) {
	product, err := s.store.GetProduct(ctx, job.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, eris.Errorf("scheduler: product %s not found", job.ProductID)
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "scheduler: load product")
	}
	if !product.Active {
		return nil, nil, eris.Errorf("scheduler: product %s is inactive", job.ProductID)
	}

	res, err := s.runner.Run(ctx, pipeline.Request{Profile: *product, UserID: job.UserID})
	if err != nil {
		return nil, nil, err
	}

	userID := job.UserID
	if userID == "" {
		userID = product.UserID
	}
	persist := pipeline.Persist(ctx, s.store, userID, product.ID, res.Accepted, s.excerptChars)
	for _, f := range persist.Failures {
		log.Warn("scheduler: lead not persisted", zap.String("post_id", f.ID), zap.String("error", f.Error))
	}

	rec := res.Record(userID, product.ID)
	rec.JobID = job.ID
	rec.Inserted = persist.Inserted
	if err := s.store.SaveRun(ctx, &rec); err != nil {
		log.Warn("scheduler: save run summary failed", zap.Error(err))
	}
	return res, &persist, nil
}

func (s *Scheduler) fail(ctx context.Context, job model.BackgroundJob, out *Outcome, cause error, log *zap.Logger) {
	msg := errorMessage(cause)
	out.Status = model.JobStatusError
	out.Error = msg
	log.Warn("scheduler: job failed", zap.String("error", msg))

	if err := s.record(ctx, job.ID, model.JobRunUpdate{
		Status:       model.JobStatusError,
		ErrorMessage: msg,
	}); err != nil {
		log.Error("scheduler: record failure failed", zap.Error(err))
	}
}

// record writes bookkeeping even when ctx was cancelled mid-job.
func (s *Scheduler) record(ctx context.Context, id string, u model.JobRunUpdate) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingWait)
	defer cancel()
	return s.store.RecordJobRun(rctx, id, u)
}

// errorMessage renders a single-line message without eris stack frames.
func errorMessage(err error) string {
	msg := fmt.Sprint(err)
	if r := []rune(msg); len(r) > maxErrorMessage {
		msg = string(r[:maxErrorMessage])
	}
	return msg
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
