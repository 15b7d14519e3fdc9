package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MNasiifu/automobile-association-sub000/assets"
	"github.com/MNasiifu/automobile-association-sub000/layout"
	"github.com/MNasiifu/automobile-association-sub000/observability"
	"github.com/MNasiifu/automobile-association-sub000/pipeline"
	"github.com/MNasiifu/automobile-association-sub000/render"
	"github.com/MNasiifu/automobile-association-sub000/validate"
	"github.com/MNasiifu/automobile-association-sub000/writer"
)

const tracerName = "github.com/MNasiifu/automobile-association-sub000/cmd/certgen"

// newService wires the pipeline from the loaded configuration.
func (c *cli) newService(metrics observability.Metrics, opts ...pipeline.Option) (*pipeline.Service, error) {
	cfg := c.cfg
	fetcher := assets.SchemeFetcher{
		HTTP: &assets.HTTPFetcher{
			Client:   &http.Client{Timeout: cfg.Logo.FetchTimeout},
			MaxBytes: cfg.Logo.MaxBytes,
		},
		File: assets.FileFetcher{MaxBytes: cfg.Logo.MaxBytes},
	}
	resolver := assets.NewResolver(fetcher, cfg.Logo.Ref,
		assets.WithCache(assets.NewMemoryCache()),
		assets.WithLogger(c.logger),
		assets.WithMetrics(metrics),
	)

	background, err := layout.ParseColor(cfg.Render.Background)
	if err != nil {
		return nil, fmt.Errorf("render background: %w", err)
	}
	renderer := render.New(
		render.WithRasterizer(render.NewLayoutRasterizer(cfg.Render.Width)),
		render.WithLoader(render.DataURILoader{Fetcher: fetcher}),
		render.WithImageTimeout(cfg.Render.ImageTimeout),
		render.WithSettleDelay(cfg.Render.SettleDelay),
		render.WithScale(cfg.Render.Scale),
		render.WithBackground(background),
		render.WithLogger(c.logger),
		render.WithMetrics(metrics),
	)

	base := []pipeline.Option{
		pipeline.WithValidator(validate.New(cfg.Validation.MinBytes)),
		pipeline.WithLogger(c.logger),
		pipeline.WithTracer(observability.NewOTelTracer(tracerName)),
		pipeline.WithMetrics(metrics),
		pipeline.WithOrganization(cfg.Organization),
	}
	return pipeline.New(pipeline.Deps{
		Resolver: resolver,
		Renderer: renderer,
		Encoder:  writer.New(cfg.WriterConfig()),
	}, append(base, opts...)...)
}

// parseAt reads the --at flag: empty means now, otherwise a date or an
// RFC 3339 timestamp.
func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at must be YYYY-MM-DD or RFC 3339, got %q", s)
	}
	return t, nil
}
