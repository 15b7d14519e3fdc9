package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/MNasiifu/automobile-association-sub000/httpapi"
	"github.com/MNasiifu/automobile-association-sub000/observability"
	"github.com/MNasiifu/automobile-association-sub000/permit"
	"github.com/MNasiifu/automobile-association-sub000/pipeline"
	"github.com/MNasiifu/automobile-association-sub000/records"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 200 * time.Millisecond

func newPreviewCmd(c *cli) *cobra.Command {
	var (
		recordPath string
		at         string
		dir        string
		viewer     string
		stdout     bool
		watch      bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Open the composed certificate page",
		Long: `Compose the certificate page for a record and open it as HTML.

With --watch the page is recomposed and reopened whenever the record file
changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if recordPath == "" {
				return errors.New("--record is required")
			}
			var previewer pipeline.Previewer = pipeline.WriterPreviewer{W: cmd.OutOrStdout()}
			browser := &pipeline.BrowserPreviewer{Dir: dir, Viewer: viewer}
			if !stdout {
				previewer = browser
			}
			svc, err := c.newService(observability.NopMetrics{}, pipeline.WithPreviewer(previewer))
			if err != nil {
				return err
			}

			run := func(ctx context.Context) error {
				rec, err := records.ReadFile(recordPath)
				if err != nil {
					return err
				}
				now, err := parseAt(at)
				if err != nil {
					return err
				}
				if err := svc.GenerateAndPreview(ctx, rec, permit.Classify(rec, now), now.Format(httpapi.RenderedAtLayout)); err != nil {
					return err
				}
				if !stdout && browser.LastPath() != "" {
					printSuccess(cmd.ErrOrStderr(), "Preview written to "+styleTitle.Render(browser.LastPath()))
				}
				return nil
			}

			if err := run(cmd.Context()); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchFile(ctx, c.logger, recordPath, func() {
				if err := run(ctx); err != nil {
					printWarning(cmd.ErrOrStderr(), err.Error())
				}
			})
		},
	}
	cmd.Flags().StringVarP(&recordPath, "record", "r", "", "verification record JSON file")
	cmd.Flags().StringVar(&at, "at", "", "classification time, YYYY-MM-DD or RFC 3339 (default now)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory for the preview file (default system temp)")
	cmd.Flags().StringVar(&viewer, "viewer", "", "program used to open the preview (default OS handler)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write the markup to stdout instead of opening it")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-preview when the record file changes")
	return cmd
}

// watchFile calls onChange after path is written or replaced, until ctx is
// done. The parent directory is watched because editors often save by
// renaming a temporary file over the original.
func watchFile(ctx context.Context, logger observability.Logger, path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching for changes", observability.String("path", abs))

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", observability.Error("error", err))
		case <-timer:
			timer = nil
			logger.Debug("change detected", observability.String("path", abs))
			onChange()
		}
	}
}
