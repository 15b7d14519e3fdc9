package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/MNasiifu/automobile-association-sub000/httpapi"
	"github.com/MNasiifu/automobile-association-sub000/observability"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		recordsPath string
		addr        string
		watch       bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve certificates over HTTP",
		Long: `Serve certificates for the records in --records.

  GET /certificates/{id}          PDF download
  GET /certificates/{id}/preview  composed HTML page
  GET /healthz                    liveness
  GET /metrics                    Prometheus metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := httpapi.NewMemoryStore()
			if recordsPath != "" {
				if err := reloadStore(store, recordsPath); err != nil {
					return err
				}
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			svc, err := c.newService(observability.NewPrometheusMetrics(reg))
			if err != nil {
				return err
			}
			handler := httpapi.New(svc, store,
				httpapi.WithLogger(c.logger),
				httpapi.WithGatherer(reg),
			)

			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: c.cfg.Server.ReadTimeout,
				ReadTimeout:       c.cfg.Server.ReadTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch && recordsPath != "" {
				go func() {
					err := watchFile(ctx, c.logger, recordsPath, func() {
						if err := reloadStore(store, recordsPath); err != nil {
							c.logger.Warn("records reload failed, keeping previous set", observability.Error("error", err))
							return
						}
						c.logger.Info("records reloaded", observability.String("path", recordsPath))
					})
					if err != nil {
						c.logger.Error("records watcher stopped", observability.Error("error", err))
					}
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				c.logger.Info("listening", observability.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			c.logger.Info("shutting down", observability.Duration("timeout", c.cfg.Server.ShutdownTimeout))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recordsPath, "records", "", "JSON file with an array of records")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload --records when it changes")
	return cmd
}

func reloadStore(store *httpapi.MemoryStore, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	defer fh.Close()
	next, err := httpapi.LoadMemoryStore(fh)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	store.Replace(next)
	return nil
}
