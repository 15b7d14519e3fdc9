package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/MNasiifu/automobile-association-sub000/assets"
)

// ImageLoader decodes the source of an <img>.
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// DataURILoader decodes data URIs. Other sources are fetched through
// Fetcher when one is set.
type DataURILoader struct {
	Fetcher assets.Fetcher
}

var errNoSource = errors.New("image has no source")

func (l DataURILoader) Load(ctx context.Context, src string) (image.Image, error) {
	if src == "" {
		return nil, errNoSource
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if assets.IsDataURI(src) {
		return assets.DecodeImage(src)
	}
	if l.Fetcher == nil {
		return nil, fmt.Errorf("remote image %q and no fetcher configured", src)
	}
	data, err := l.Fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return img, nil
}

// LoaderFunc adapts a function to ImageLoader.
type LoaderFunc func(ctx context.Context, src string) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, src string) (image.Image, error) { return f(ctx, src) }
