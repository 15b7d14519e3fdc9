package assets_test

//go:generate mockgen -source=fetch.go -destination=mocks/mock_fetcher.go -package=mocks Fetcher

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MNasiifu/automobile-association-sub000/assets"
	"github.com/MNasiifu/automobile-association-sub000/assets/mocks"
	"github.com/MNasiifu/automobile-association-sub000/observability"
	"github.com/MNasiifu/automobile-association-sub000/permit"
)

const logoURL = "https://example.org/logo.png"

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func requireDecodable(t *testing.T, asset permit.ResolvedAsset) image.Image {
	t.Helper()
	require.True(t, assets.IsDataURI(asset.DataURI), "asset must be a data URI")
	img, err := assets.DecodeImage(asset.DataURI)
	require.NoError(t, err)
	return img
}

func TestResolveLogo_FetchedIsCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), logoURL).Return(pngBytes(t, color.Black), nil).Times(1)

	r := assets.NewResolver(fetcher, logoURL, assets.WithLogger(observability.NewTestLogger(t)))

	first := r.ResolveLogo(context.Background())
	second := r.ResolveLogo(context.Background())

	assert.Equal(t, permit.OriginFetched, first.Origin)
	assert.Equal(t, first, second)
	requireDecodable(t, first)
}

func TestResolveLogo_ClearCacheRefetches(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), logoURL).Return(pngBytes(t, color.White), nil).Times(2)

	r := assets.NewResolver(fetcher, logoURL)
	r.ResolveLogo(context.Background())
	r.ClearCache()
	r.ResolveLogo(context.Background())
}

func TestResolveLogo_FallbackIsTotal(t *testing.T) {
	cases := map[string]struct {
		data []byte
		err  error
	}{
		"network error":     {err: errors.New("dial tcp: connection refused")},
		"malformed payload": {data: []byte("<html>not an image</html>")},
		"empty payload":     {data: []byte{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fetcher := mocks.NewMockFetcher(ctrl)
			fetcher.EXPECT().Fetch(gomock.Any(), logoURL).Return(tc.data, tc.err).Times(1)

			r := assets.NewResolver(fetcher, logoURL)
			asset := r.ResolveLogo(context.Background())

			assert.Equal(t, permit.OriginFallbackSynthesized, asset.Origin)
			requireDecodable(t, asset)
			assert.Equal(t, asset, r.ResolveLogo(context.Background()), "fallback must be cached")
		})
	}
}

func TestResolveLogo_UnreachableLogoSynthesizesEmblem(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, errors.New("host unreachable"))

	r := assets.NewResolver(fetcher, logoURL)
	asset := r.ResolveLogo(context.Background())

	require.Equal(t, permit.OriginFallbackSynthesized, asset.Origin)
	assert.NotEqual(t, assets.MinimalLogoDataURI, asset.DataURI, "a canvas was available so the emblem is drawn")

	img := requireDecodable(t, asset)
	size := assets.DefaultEmblem().Size
	assert.Equal(t, size, img.Bounds().Dx())

	// Non-uniform pixels: the fill, ring and text all differ.
	seen := map[color.RGBA]bool{}
	for y := 0; y < size; y += 4 {
		for x := 0; x < size; x += 4 {
			seen[color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)] = true
		}
	}
	assert.Greater(t, len(seen), 2)
}

func TestResolveLogo_NoReferenceConfigured(t *testing.T) {
	r := assets.NewResolver(nil, "")
	asset := r.ResolveLogo(context.Background())
	assert.Equal(t, permit.OriginFallbackSynthesized, asset.Origin)
	requireDecodable(t, asset)
}

func TestResolveLogo_ConcurrentMissesFetchOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), logoURL).Return(pngBytes(t, color.Black), nil).Times(1)

	r := assets.NewResolver(fetcher, logoURL)

	var wg sync.WaitGroup
	results := make([]permit.ResolvedAsset, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.ResolveLogo(context.Background())
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, results[0], got)
	}
}

func TestResolveLogo_CanceledCallerDoesNotCacheFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	gomock.InOrder(
		fetcher.EXPECT().Fetch(gomock.Any(), logoURL).DoAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
			return nil, ctx.Err()
		}),
		fetcher.EXPECT().Fetch(gomock.Any(), logoURL).Return(pngBytes(t, color.Black), nil),
	)

	r := assets.NewResolver(fetcher, logoURL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := r.ResolveLogo(ctx)
	assert.Equal(t, permit.OriginFallbackSynthesized, first.Origin)

	second := r.ResolveLogo(context.Background())
	assert.Equal(t, permit.OriginFetched, second.Origin, "a healthy caller refetches after a canceled one")
	assert.Equal(t, second, r.ResolveLogo(context.Background()))
}

func TestResolveLogo_InjectedCache(t *testing.T) {
	cache := assets.NewMemoryCache()
	preset := permit.ResolvedAsset{DataURI: assets.MinimalLogoDataURI, Origin: permit.OriginFetched}
	cache.Set(preset)

	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)

	r := assets.NewResolver(fetcher, logoURL, assets.WithCache(cache))
	assert.Equal(t, preset, r.ResolveLogo(context.Background()))
}

func TestSynthesizeFallbackLogo_CanvasUnavailable(t *testing.T) {
	r := assets.NewResolver(nil, logoURL, assets.WithCanvasFactory(func(int, int) (assets.Canvas, error) {
		return nil, errors.New("no 2d context")
	}))
	asset := r.SynthesizeFallbackLogo()
	assert.Equal(t, assets.MinimalLogoDataURI, asset.DataURI)
	assert.Equal(t, permit.OriginFallbackSynthesized, asset.Origin)
	requireDecodable(t, asset)
}

type panicCanvas struct{ assets.Canvas }

func (panicCanvas) Size() (int, int) { panic("canvas lost") }

func TestSynthesizeFallbackLogo_RecoversFromPanic(t *testing.T) {
	r := assets.NewResolver(nil, logoURL, assets.WithCanvasFactory(func(int, int) (assets.Canvas, error) {
		return panicCanvas{}, nil
	}))
	asset := r.SynthesizeFallbackLogo()
	assert.Equal(t, assets.MinimalLogoDataURI, asset.DataURI)
}

func TestResolvePhoto(t *testing.T) {
	photoURL := "https://example.org/photo.jpg"

	t.Run("nil reference", func(t *testing.T) {
		r := assets.NewResolver(nil, logoURL)
		assert.Nil(t, r.ResolvePhoto(context.Background(), nil))
	})

	t.Run("data URI passes through", func(t *testing.T) {
		r := assets.NewResolver(nil, logoURL)
		ref := assets.MinimalLogoDataURI
		got := r.ResolvePhoto(context.Background(), &ref)
		require.NotNil(t, got)
		assert.Equal(t, ref, got.DataURI)
		assert.Equal(t, permit.OriginFetched, got.Origin)
	})

	t.Run("fetched", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fetcher := mocks.NewMockFetcher(ctrl)
		fetcher.EXPECT().Fetch(gomock.Any(), photoURL).Return(pngBytes(t, color.White), nil)

		r := assets.NewResolver(fetcher, logoURL)
		got := r.ResolvePhoto(context.Background(), &photoURL)
		require.NotNil(t, got)
		assert.Equal(t, permit.OriginFetched, got.Origin)
		requireDecodable(t, *got)
	})

	t.Run("failure degrades to logo", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fetcher := mocks.NewMockFetcher(ctrl)
		fetcher.EXPECT().Fetch(gomock.Any(), photoURL).Return(nil, errors.New("404"))
		fetcher.EXPECT().Fetch(gomock.Any(), logoURL).Return(pngBytes(t, color.Black), nil)

		r := assets.NewResolver(fetcher, logoURL)
		got := r.ResolvePhoto(context.Background(), &photoURL)
		require.NotNil(t, got)
		assert.Equal(t, r.ResolveLogo(context.Background()), *got)
	})
}
