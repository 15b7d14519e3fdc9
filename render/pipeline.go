// Package render materializes a composed certificate into a raster. A
// render mounts the document hidden, waits for every image to settle,
// captures it and always detaches the mount.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/MNasiifu/automobile-association-sub000/certerrors"
	"github.com/MNasiifu/automobile-association-sub000/compose"
	"github.com/MNasiifu/automobile-association-sub000/observability"
)

const (
	DefaultImageTimeout = 5 * time.Second
	DefaultSettleDelay  = 100 * time.Millisecond
	DefaultScale        = 2.0
)

// Pipeline renders documents.
type Pipeline struct {
	target     Target
	rasterizer Rasterizer
	loader     ImageLoader
	logger     observability.Logger
	metrics    observability.Metrics

	imageTimeout time.Duration
	settleDelay  time.Duration
	raster       RasterOptions
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTarget sets the mount target. Defaults to a fresh Surface.
func WithTarget(t Target) Option {
	return func(p *Pipeline) { p.target = t }
}

func WithRasterizer(r Rasterizer) Option {
	return func(p *Pipeline) { p.rasterizer = r }
}

func WithLoader(l ImageLoader) Option {
	return func(p *Pipeline) { p.loader = l }
}

func WithLogger(l observability.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithMetrics(m observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithImageTimeout sets how long a single image may take to settle.
func WithImageTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.imageTimeout = d }
}

// WithSettleDelay sets the grace delay between settling and capture.
func WithSettleDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.settleDelay = d }
}

func WithScale(scale float64) Option {
	return func(p *Pipeline) { p.raster.Scale = scale }
}

// WithBackground sets the capture background. It is painted opaque.
func WithBackground(c color.Color) Option {
	return func(p *Pipeline) { p.raster.Background = c }
}

// New returns a pipeline with the headless layout rasterizer.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:       DataURILoader{},
		logger:       observability.NopLogger{},
		metrics:      observability.NopMetrics{},
		imageTimeout: DefaultImageTimeout,
		settleDelay:  DefaultSettleDelay,
		raster:       RasterOptions{Scale: DefaultScale, Background: color.White},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.target == nil {
		p.target = NewSurface()
	}
	if p.rasterizer == nil {
		p.rasterizer = NewLayoutRasterizer(0)
	}
	if p.imageTimeout <= 0 {
		p.imageTimeout = DefaultImageTimeout
	}
	return p
}

// Render mounts doc, waits for its images, captures it and detaches it.
// The mount is detached on every return path, panics included.
func (p *Pipeline) Render(ctx context.Context, doc *compose.Document) (img *image.RGBA, err error) {
	start := time.Now()
	m, err := p.target.Attach(doc)
	if err != nil {
		if certerrors.CodeOf(err) == "" {
			err = certerrors.Wrap(err, certerrors.CodeCompositionMalformed, "mount document")
		}
		return nil, err
	}
	defer func() {
		p.target.Detach(m)
		p.logger.Debug("mount detached",
			observability.String("mount_id", m.ID),
			observability.Duration("elapsed", time.Since(start)),
		)
	}()
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = p.rasterFailure(m, start, fmt.Errorf("rasterizer panicked: %v", r))
		}
	}()

	if err := p.awaitImages(ctx, m); err != nil {
		return nil, canceled(err, "awaiting images")
	}
	if err := sleep(ctx, p.settleDelay); err != nil {
		return nil, canceled(err, "settle delay")
	}

	img, err = p.rasterizer.Rasterize(ctx, m, p.raster)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx.Err(), "rasterize")
		}
		return nil, p.rasterFailure(m, start, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, p.rasterFailure(m, start, errors.New("rasterizer produced an empty bitmap"))
	}
	return img, nil
}

func (p *Pipeline) rasterFailure(m *Mount, start time.Time, cause error) error {
	counts := m.Counts()
	msg := fmt.Sprintf("rasterize (root present=%t, images loaded=%d failed=%d timed_out=%d, elapsed=%s)",
		m.Root != nil, counts[ImageLoaded], counts[ImageFailed], counts[ImageTimedOut],
		time.Since(start).Round(time.Millisecond))
	err := certerrors.Wrap(cause, certerrors.CodeRasterizationFailed, msg)
	p.logger.Error("rasterization failed",
		observability.String("mount_id", m.ID),
		observability.Bool("root_present", m.Root != nil),
		observability.Int("images_loaded", counts[ImageLoaded]),
		observability.Int("images_failed", counts[ImageFailed]),
		observability.Int("images_timed_out", counts[ImageTimedOut]),
		observability.Duration("elapsed", time.Since(start)),
		observability.Error("error", err),
	)
	return err
}

// awaitImages is the settle barrier. Each image is watched by its own
// goroutine under its own timeout; the barrier returns once all settled.
func (p *Pipeline) awaitImages(ctx context.Context, m *Mount) error {
	var wg sync.WaitGroup
	for _, n := range m.order {
		st := m.images[n]
		if img, ok := m.decoded.get(st.Src); ok {
			m.settle(n, ImageState{Src: st.Src, Outcome: ImageLoaded, Image: img, Cached: true})
			p.record(m, st.Src, ImageLoaded, 0, nil)
			continue
		}
		wg.Add(1)
		go func(n *html.Node, src string) {
			defer wg.Done()
			p.watch(ctx, m, n, src)
		}(n, st.Src)
	}
	wg.Wait()
	return ctx.Err()
}

type loadResult struct {
	img image.Image
	err error
}

func (p *Pipeline) watch(ctx context.Context, m *Mount, n *html.Node, src string) {
	start := time.Now()
	ictx, cancel := context.WithTimeout(ctx, p.imageTimeout)
	defer cancel()

	done := make(chan loadResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- loadResult{err: fmt.Errorf("image loader panicked: %v", rec)}
			}
		}()
		img, err := p.loader.Load(ictx, src)
		done <- loadResult{img: img, err: err}
	}()

	var st ImageState
	select {
	case r := <-done:
		switch {
		case r.err == nil && r.img != nil:
			st = ImageState{Outcome: ImageLoaded, Image: r.img}
			m.decoded.put(src, r.img)
		case r.err == nil:
			st = ImageState{Outcome: ImageFailed, Err: errors.New("loader returned no image")}
		case errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil:
			st = ImageState{Outcome: ImageTimedOut, Err: r.err}
		default:
			st = ImageState{Outcome: ImageFailed, Err: r.err}
		}
	case <-ictx.Done():
		if ctx.Err() != nil {
			st = ImageState{Outcome: ImageFailed, Err: ctx.Err()}
		} else {
			st = ImageState{Outcome: ImageTimedOut, Err: ictx.Err()}
		}
	}
	st.Src = src
	st.Elapsed = time.Since(start)
	m.settle(n, st)
	p.record(m, src, st.Outcome, st.Elapsed, st.Err)
}

func (p *Pipeline) record(m *Mount, src string, outcome ImageOutcome, elapsed time.Duration, err error) {
	p.metrics.CountImage(outcome.String())
	fields := []observability.Field{
		observability.String("mount_id", m.ID),
		observability.String("src", shortSrc(src)),
		observability.String("outcome", outcome.String()),
		observability.Duration("elapsed", elapsed),
	}
	switch outcome {
	case ImageLoaded:
		p.logger.Debug("image settled", fields...)
	case ImageTimedOut:
		p.logger.Warn("image timed out", append(fields, observability.Duration("timeout", p.imageTimeout))...)
	default:
		p.logger.Warn("image failed", append(fields, observability.Error("error", err))...)
	}
}

func shortSrc(src string) string {
	if len(src) > 48 {
		return src[:48] + "..."
	}
	return src
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func canceled(cause error, stage string) error {
	return certerrors.Wrap(cause, certerrors.CodeCanceled, "render canceled while "+stage)
}
