package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firebook-app/firebook/pkg/cli/config"
	httpctrl "github.com/firebook-app/firebook/pkg/controller/http"
	"github.com/firebook-app/firebook/pkg/service/worker"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var jobToken string
	var watch bool
	var replay bool
	var pipeCfg pipelineConfig
	var authCfg config.Auth

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("FIREBOOK_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "job-token",
			Usage:       "Bearer token accepted by POST /jobs (endpoint disabled when empty)",
			Sources:     cli.EnvVars("FIREBOOK_JOB_TOKEN"),
			Destination: &jobToken,
		},
		&cli.BoolFlag{
			Name:        "watch",
			Usage:       "Watch for new bookmarks and enqueue enrichment jobs",
			Value:       true,
			Sources:     cli.EnvVars("FIREBOOK_WATCH"),
			Destination: &watch,
		},
		&cli.BoolFlag{
			Name:        "watch-replay",
			Usage:       "Also enqueue bookmarks that already exist when the watch starts",
			Sources:     cli.EnvVars("FIREBOOK_WATCH_REPLAY"),
			Destination: &replay,
		},
	}

	flags = append(flags, pipeCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP server and the enrichment workers",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			p, err := pipeCfg.build(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			authUC, err := authCfg.Configure(ctx)
			if err != nil {
				return err
			}

			pool := worker.NewJobPool(p.uc.RunJob, p.app.PoolOptions()...)
			if err := pool.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start job pool")
			}
			defer pool.Stop()

			if watch {
				watcher := worker.NewBookmarkWatcher(p.repo.Bookmark(), pool, worker.WithReplay(replay))
				if err := watcher.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start bookmark watcher")
				}
				// Stopped before the pool so no enqueue races the shutdown
				defer watcher.Stop()
			}

			httpOpts := []httpctrl.Options{
				httpctrl.WithAuth(authUC),
			}
			if jobToken != "" {
				httpOpts = append(httpOpts, httpctrl.WithJobToken(jobToken))
				logging.Default().Info("Job endpoint enabled")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(p.uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "watch", watch)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig, "pending_jobs", pool.Pending())

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
