// Package assets resolves the images a certificate embeds. Resolution never
// fails: a logo that cannot be fetched is synthesized, a photo that cannot be
// fetched degrades to the logo.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/MNasiifu/automobile-association-sub000/certerrors"
	"github.com/MNasiifu/automobile-association-sub000/observability"
	"github.com/MNasiifu/automobile-association-sub000/permit"
)

// Resolver produces embeddable assets for the composer.
type Resolver struct {
	fetcher   Fetcher
	cache     LogoCache
	logoRef   string
	logger    observability.Logger
	metrics   observability.Metrics
	newCanvas CanvasFactory
	emblem    Emblem

	inflight singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache injects the logo cache. Tests use it to start from a known state.
func WithCache(c LogoCache) Option {
	return func(r *Resolver) { r.cache = c }
}

func WithLogger(l observability.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithMetrics(m observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithCanvasFactory replaces the surface the fallback emblem is drawn on.
func WithCanvasFactory(f CanvasFactory) Option {
	return func(r *Resolver) { r.newCanvas = f }
}

func WithEmblem(e Emblem) Option {
	return func(r *Resolver) { r.emblem = e }
}

// NewResolver builds a resolver fetching the logo from logoRef.
func NewResolver(fetcher Fetcher, logoRef string, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:   fetcher,
		logoRef:   logoRef,
		logger:    observability.NopLogger{},
		metrics:   observability.NopMetrics{},
		newCanvas: NewRasterCanvas,
		emblem:    DefaultEmblem(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewMemoryCache()
	}
	return r
}

// ResolveLogo returns the cached logo, fetching or synthesizing it on a miss.
// Concurrent misses share one fetch.
func (r *Resolver) ResolveLogo(ctx context.Context) permit.ResolvedAsset {
	if asset, ok := r.cache.Get(); ok {
		return asset
	}
	v, _, _ := r.inflight.Do("logo", func() (interface{}, error) {
		if asset, ok := r.cache.Get(); ok {
			return asset, nil
		}
		asset := r.fetchLogo(ctx)
		// A fallback produced because the caller went away says nothing
		// about the logo itself; leave the cache empty for the next caller.
		if ctx.Err() == nil {
			r.cache.Set(asset)
		}
		return asset, nil
	})
	asset := v.(permit.ResolvedAsset)
	r.metrics.CountAsset("logo", string(asset.Origin))
	return asset
}

// ClearCache drops the cached logo; the next ResolveLogo fetches again.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
}

func (r *Resolver) fetchLogo(ctx context.Context) permit.ResolvedAsset {
	if strings.TrimSpace(r.logoRef) == "" {
		r.degraded("logo", r.logoRef, errors.New("no logo reference configured"))
		return r.SynthesizeFallbackLogo()
	}
	uri, err := r.fetchDataURI(ctx, r.logoRef)
	if err != nil {
		r.degraded("logo", r.logoRef, err)
		return r.SynthesizeFallbackLogo()
	}
	return permit.ResolvedAsset{DataURI: uri, Origin: permit.OriginFetched}
}

// ResolvePhoto resolves a holder photo. A nil reference yields nil. A failed
// fetch yields the logo so the photo slot is never blank.
func (r *Resolver) ResolvePhoto(ctx context.Context, ref *string) *permit.ResolvedAsset {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return nil
	}
	if IsDataURI(*ref) {
		return &permit.ResolvedAsset{DataURI: *ref, Origin: permit.OriginFetched}
	}
	uri, err := r.fetchDataURI(ctx, *ref)
	if err != nil {
		r.degraded("photo", *ref, err)
		logo := r.ResolveLogo(ctx)
		return &logo
	}
	r.metrics.CountAsset("photo", string(permit.OriginFetched))
	return &permit.ResolvedAsset{DataURI: uri, Origin: permit.OriginFetched}
}

func (r *Resolver) fetchDataURI(ctx context.Context, ref string) (string, error) {
	if r.fetcher == nil {
		return "", errors.New("no fetcher configured")
	}
	data, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	mime, err := SniffImage(data)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(mime, data), nil
}

// SynthesizeFallbackLogo draws the emblem and encodes it as a PNG data URI.
// When no canvas can be obtained the minimal embedded image is returned.
func (r *Resolver) SynthesizeFallbackLogo() (asset permit.ResolvedAsset) {
	asset = permit.ResolvedAsset{DataURI: MinimalLogoDataURI, Origin: permit.OriginFallbackSynthesized}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("fallback emblem drawing panicked", observability.String("panic", fmt.Sprint(rec)))
			asset = permit.ResolvedAsset{DataURI: MinimalLogoDataURI, Origin: permit.OriginFallbackSynthesized}
		}
	}()

	canvas, err := r.newCanvas(r.emblem.Size, r.emblem.Size)
	if err != nil || canvas == nil {
		r.logger.Warn("fallback canvas unavailable, using embedded logo", observability.Error("error", err))
		return asset
	}
	DrawEmblem(canvas, r.emblem)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas.Image()); err != nil {
		r.logger.Warn("fallback emblem encoding failed, using embedded logo", observability.Error("error", err))
		return asset
	}
	asset.DataURI = EncodeDataURI("image/png", buf.Bytes())
	return asset
}

func (r *Resolver) degraded(kind, ref string, cause error) {
	err := certerrors.Wrap(cause, certerrors.CodeAssetDegraded, kind+" resolution degraded")
	r.logger.Warn("asset resolution degraded",
		observability.String("code", string(certerrors.CodeAssetDegraded)),
		observability.String("asset", kind),
		observability.String("ref", redactRef(ref)),
		observability.Error("error", err),
	)
}

// redactRef keeps data URIs out of logs.
func redactRef(ref string) string {
	if IsDataURI(ref) {
		return "data:..."
	}
	if len(ref) > 200 {
		return ref[:200] + "..."
	}
	return ref
}
