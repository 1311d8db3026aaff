package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-radar/internal/api"
	"github.com/sells-group/lead-radar/internal/lease"
	"github.com/sells-group/lead-radar/internal/monitoring"
	"github.com/sells-group/lead-radar/internal/relevance"
	"github.com/sells-group/lead-radar/internal/scheduler"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job scheduler, health checker and ops HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Unattended runs score with the fallback scorer when the AI is down.
		orch, err := newOrchestrator(st, string(relevance.DegradeHeuristic))
		if err != nil {
			return err
		}

		var locker lease.Locker = lease.Noop{}
		if cfg.Redis.URL != "" {
			rl, err := lease.Dial(ctx, cfg.Redis.URL, time.Duration(cfg.Redis.LeaseTTLSecs)*time.Second)
			if err != nil {
				return err
			}
			defer rl.Close() //nolint:errcheck
			locker = rl
			zap.L().Info("job leases enabled", zap.String("backend", "redis"))
		}

		sched := scheduler.New(st, orch,
			scheduler.WithTick(time.Duration(cfg.Scheduler.TickSecs)*time.Second),
			scheduler.WithJobTimeout(time.Duration(cfg.Scheduler.JobTimeoutSecs)*time.Second),
			scheduler.WithLocker(locker),
			scheduler.WithExcerptChars(cfg.Pipeline.BodyExcerptChars),
		)

		collector := monitoring.NewCollector(st)
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		checker := monitoring.NewChecker(collector, alerter, cfg.Monitoring)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: api.NewRouter(api.Deps{
				Store:         st,
				Jobs:          st,
				Runner:        sched,
				Monitor:       collector,
				Alerter:       alerter,
				LookbackHours: cfg.Monitoring.LookbackWindowHours,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			if err := sched.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			sched.Stop()
			return nil
		})

		g.Go(func() error {
			checker.Run(gctx)
			return nil
		})

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
