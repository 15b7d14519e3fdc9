// Package pipeline sequences certificate generation: resolve assets,
// compose, render, encode, validate and only then persist or preview.
package pipeline

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MNasiifu/automobile-association-sub000/certerrors"
	"github.com/MNasiifu/automobile-association-sub000/compose"
	"github.com/MNasiifu/automobile-association-sub000/observability"
	"github.com/MNasiifu/automobile-association-sub000/permit"
	"github.com/MNasiifu/automobile-association-sub000/validate"
	"github.com/MNasiifu/automobile-association-sub000/writer"
)

// AssetResolver produces embeddable images. Both methods always succeed.
type AssetResolver interface {
	ResolveLogo(ctx context.Context) permit.ResolvedAsset
	ResolvePhoto(ctx context.Context, ref *string) *permit.ResolvedAsset
}

// Renderer rasterizes a composed document, tearing down whatever it mounted.
type Renderer interface {
	Render(ctx context.Context, doc *compose.Document) (*image.RGBA, error)
}

// Encoder turns a raster into an export document held in memory.
type Encoder interface {
	Encode(ctx context.Context, img image.Image) (*writer.Result, error)
}

// Validator checks an artifact before it is saved.
type Validator interface {
	Validate(a permit.ExportArtifact) error
}

// Deps are the collaborators of a Service. Resolver, Renderer and Encoder
// are required.
type Deps struct {
	Resolver  AssetResolver
	Renderer  Renderer
	Encoder   Encoder
	Validator Validator
	Saver     Saver
	Previewer Previewer
	Logger    observability.Logger
	Tracer    observability.Tracer
	Metrics   observability.Metrics
	Org       compose.Organization
	Now       func() time.Time
}

// Service runs the generate-and-save and generate-and-preview operations.
// It holds no per-invocation state and is safe for concurrent use.
type Service struct {
	deps Deps
}

type Option func(*Deps)

func WithSaver(s Saver) Option                       { return func(d *Deps) { d.Saver = s } }
func WithPreviewer(p Previewer) Option               { return func(d *Deps) { d.Previewer = p } }
func WithValidator(v Validator) Option               { return func(d *Deps) { d.Validator = v } }
func WithLogger(l observability.Logger) Option       { return func(d *Deps) { d.Logger = l } }
func WithTracer(t observability.Tracer) Option       { return func(d *Deps) { d.Tracer = t } }
func WithMetrics(m observability.Metrics) Option     { return func(d *Deps) { d.Metrics = m } }
func WithOrganization(o compose.Organization) Option { return func(d *Deps) { d.Org = o } }
func WithClock(now func() time.Time) Option          { return func(d *Deps) { d.Now = now } }

var errMissingDeps = errors.New("pipeline: resolver, renderer and encoder are required")

// New validates deps, applies opts and fills ambient defaults.
func New(deps Deps, opts ...Option) (*Service, error) {
	for _, opt := range opts {
		opt(&deps)
	}
	if deps.Resolver == nil || deps.Renderer == nil || deps.Encoder == nil {
		return nil, errMissingDeps
	}
	if deps.Validator == nil {
		deps.Validator = validate.Validator{}
	}
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger{}
	}
	if deps.Tracer == nil {
		deps.Tracer = observability.NopTracer()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NopMetrics{}
	}
	if deps.Org == (compose.Organization{}) {
		deps.Org = compose.DefaultOrganization()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}, nil
}

// GenerateAndSave produces the certificate for rec and hands it to the
// Saver once it has passed validation. The artifact is returned as saved.
func (s *Service) GenerateAndSave(ctx context.Context, rec permit.VerificationRecord, status permit.StatusClassification, renderedAt string) (*permit.ExportArtifact, error) {
	ctx, span, log := s.begin(ctx, observability.StageGenerate, rec)
	start := time.Now()

	art, err := s.generate(ctx, log, rec, status, renderedAt)
	if err == nil {
		err = s.stage(ctx, observability.StageSave, func(ctx context.Context) error {
			return s.save(ctx, art)
		})
	}
	s.end(span, log, "save", start, err)
	if err != nil {
		return nil, err
	}
	log.Info("certificate saved",
		observability.String("filename", art.SuggestedFilename),
		observability.Int("bytes", len(art.Bytes)),
		observability.Int("pages", art.Pages),
		observability.String("digest", art.Digest),
	)
	return art, nil
}

// Generate runs every stage except persistence. GenerateAndSave and the
// HTTP surface share it.
func (s *Service) Generate(ctx context.Context, rec permit.VerificationRecord, status permit.StatusClassification, renderedAt string) (*permit.ExportArtifact, error) {
	ctx, span, log := s.begin(ctx, observability.StageGenerate, rec)
	start := time.Now()
	art, err := s.generate(ctx, log, rec, status, renderedAt)
	s.end(span, log, "generate", start, err)
	return art, err
}

func (s *Service) generate(ctx context.Context, log observability.Logger, rec permit.VerificationRecord, status permit.StatusClassification, renderedAt string) (*permit.ExportArtifact, error) {
	doc, err := s.composeDocument(ctx, rec, status, renderedAt)
	if err != nil {
		return nil, err
	}

	var img *image.RGBA
	err = s.stage(ctx, observability.StageRender, func(ctx context.Context) error {
		var rerr error
		img, rerr = s.deps.Renderer.Render(ctx, doc)
		if rerr != nil {
			return classify(ctx, rerr, certerrors.CodeRasterizationFailed, "render certificate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var res *writer.Result
	err = s.stage(ctx, observability.StageEncode, func(ctx context.Context) error {
		var eerr error
		res, eerr = s.deps.Encoder.Encode(ctx, img)
		if eerr != nil {
			return classify(ctx, eerr, certerrors.CodeEncodingFailed, "encode certificate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	art := permit.NewArtifact(res.Bytes, permit.SuggestedFilename(rec.ID, s.deps.Now()), res.Pages)
	err = s.stage(ctx, observability.StageValidate, func(context.Context) error {
		if verr := s.deps.Validator.Validate(art); verr != nil {
			return certerrors.Wrap(verr, certerrors.CodeOutputTooSmall, "validate certificate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.ObserveArtifact(len(art.Bytes))
	log.Debug("certificate encoded",
		observability.Int("bytes", len(art.Bytes)),
		observability.Int("pages", art.Pages),
	)
	return &art, nil
}

// GenerateAndPreview composes the certificate and shows it. A previewer
// failure is not an error: the raw markup is logged instead.
func (s *Service) GenerateAndPreview(ctx context.Context, rec permit.VerificationRecord, status permit.StatusClassification, renderedAt string) error {
	ctx, span, log := s.begin(ctx, observability.StagePreview, rec)
	start := time.Now()

	markup, err := s.Markup(ctx, rec, status, renderedAt)
	if err != nil {
		s.end(span, log, "preview", start, err)
		return err
	}

	name := strings.TrimSuffix(permit.SuggestedFilename(rec.ID, s.deps.Now()), ".pdf") + ".html"
	if s.deps.Previewer == nil {
		log.Info("no previewer configured, composed markup follows", observability.String("markup", markup))
	} else if perr := s.deps.Previewer.Preview(ctx, name, []byte(markup)); perr != nil {
		log.Info("preview unavailable, composed markup follows",
			observability.Error("error", perr),
			observability.String("markup", markup),
		)
	}
	s.end(span, log, "preview", start, nil)
	return nil
}

// Markup resolves assets and returns the standalone HTML page for rec.
func (s *Service) Markup(ctx context.Context, rec permit.VerificationRecord, status permit.StatusClassification, renderedAt string) (string, error) {
	doc, err := s.composeDocument(ctx, rec, status, renderedAt)
	if err != nil {
		return "", err
	}
	markup, err := doc.HTML()
	if err != nil {
		return "", certerrors.Wrap(err, certerrors.CodeCompositionMalformed, "serialize composed document")
	}
	return markup, nil
}

func (s *Service) composeDocument(ctx context.Context, rec permit.VerificationRecord, status permit.StatusClassification, renderedAt string) (*compose.Document, error) {
	logo, photo, err := s.resolveAssets(ctx, rec)
	if err != nil {
		return nil, err
	}
	var doc *compose.Document
	err = s.stage(ctx, observability.StageCompose, func(context.Context) error {
		doc = compose.Compose(compose.Input{
			Record:     rec,
			Status:     status,
			Logo:       logo,
			Photo:      photo,
			RenderedAt: renderedAt,
			Org:        s.deps.Org,
		})
		if doc == nil || doc.Root() == nil {
			return certerrors.New(certerrors.CodeCompositionMalformed, "composer produced no certificate root")
		}
		return nil
	})
	return doc, err
}

// resolveAssets fetches logo and photo concurrently. Neither can fail, so
// the only error is cancellation.
func (s *Service) resolveAssets(ctx context.Context, rec permit.VerificationRecord) (permit.ResolvedAsset, *permit.ResolvedAsset, error) {
	var (
		logo  permit.ResolvedAsset
		photo *permit.ResolvedAsset
	)
	err := s.stage(ctx, observability.StageAssets, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logo = s.deps.Resolver.ResolveLogo(gctx)
			return nil
		})
		if rec.Found && rec.HasPhoto() {
			g.Go(func() error {
				photo = s.deps.Resolver.ResolvePhoto(gctx, rec.PhotoReference)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return certerrors.Wrap(err, certerrors.CodeCanceled, "resolve assets")
		}
		return nil
	})
	return logo, photo, err
}

func (s *Service) save(ctx context.Context, art *permit.ExportArtifact) error {
	if s.deps.Saver == nil {
		return certerrors.New(certerrors.CodePersistenceFailed, "no saver configured")
	}
	if err := ctx.Err(); err != nil {
		return certerrors.Wrap(err, certerrors.CodeCanceled, "save certificate")
	}
	if err := s.deps.Saver.Save(ctx, art.SuggestedFilename, art.Bytes); err != nil {
		return classify(ctx, err, certerrors.CodePersistenceFailed, "save "+art.SuggestedFilename)
	}
	return nil
}

func (s *Service) begin(ctx context.Context, name string, rec permit.VerificationRecord) (context.Context, observability.Span, observability.Logger) {
	renderID := uuid.NewString()
	ctx, span := s.deps.Tracer.StartSpan(ctx, name)
	span.SetTag("render_id", renderID)
	span.SetTag("record_id", rec.ID)
	span.SetTag("found", rec.Found)
	log := s.deps.Logger.With(
		observability.String("render_id", renderID),
		observability.String("record_id", rec.ID),
	)
	log.Info("certificate requested", observability.String("operation", name), observability.Bool("found", rec.Found))
	return ctx, span, log
}

func (s *Service) end(span observability.Span, log observability.Logger, op string, start time.Time, err error) {
	code := "ok"
	if err != nil {
		code = string(certerrors.CodeOf(err))
		if code == "" {
			code = "unknown"
		}
		span.SetError(err)
		log.Error("certificate failed",
			observability.String("operation", op),
			observability.String("code", code),
			observability.Duration("elapsed", time.Since(start)),
			observability.Error("error", err),
		)
	}
	s.deps.Metrics.CountResult(op, code)
	span.Finish()
}

func (s *Service) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.deps.Tracer.StartSpan(ctx, name)
	defer span.Finish()
	start := time.Now()
	err := fn(ctx)
	s.deps.Metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.SetError(err)
	}
	return err
}

// classify keeps an existing code, maps a finished context to Canceled and
// otherwise applies code.
func classify(ctx context.Context, err error, code certerrors.Code, msg string) error {
	if certerrors.CodeOf(err) == "" && (ctx.Err() != nil || errors.Is(err, context.Canceled)) {
		code = certerrors.CodeCanceled
	}
	return certerrors.Wrap(err, code, msg)
}
