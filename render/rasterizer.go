package render

import (
	"context"
	"image"
	"image/color"

	"github.com/MNasiifu/automobile-association-sub000/compose"
	"github.com/MNasiifu/automobile-association-sub000/layout"
)

// RasterOptions controls capture.
type RasterOptions struct {
	Scale      float64
	Background color.Color
}

// Rasterizer captures a mounted document into a bitmap.
type Rasterizer interface {
	Rasterize(ctx context.Context, m *Mount, opts RasterOptions) (*image.RGBA, error)
}

// RasterizerFunc adapts a function to Rasterizer.
type RasterizerFunc func(ctx context.Context, m *Mount, opts RasterOptions) (*image.RGBA, error)

func (f RasterizerFunc) Rasterize(ctx context.Context, m *Mount, opts RasterOptions) (*image.RGBA, error) {
	return f(ctx, m, opts)
}

// LayoutRasterizer paints mounts with the headless layout engine.
type LayoutRasterizer struct {
	Engine *layout.Engine
}

// NewLayoutRasterizer returns a rasterizer using the certificate stylesheet
// at the given CSS width.
func NewLayoutRasterizer(width float64) *LayoutRasterizer {
	opts := []layout.Option{layout.WithStylesheet(compose.Stylesheet())}
	if width > 0 {
		opts = append(opts, layout.WithWidth(width))
	}
	return &LayoutRasterizer{Engine: layout.NewEngine(opts...)}
}

func (r *LayoutRasterizer) Rasterize(ctx context.Context, m *Mount, opts RasterOptions) (*image.RGBA, error) {
	e := *r.Engine
	if opts.Scale > 0 {
		e.Scale = opts.Scale
	}
	if opts.Background != nil {
		e.Background = opts.Background
	}
	return e.Render(ctx, m.Root, m)
}
