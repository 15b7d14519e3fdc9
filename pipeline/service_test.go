package pipeline_test

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MNasiifu/automobile-association-sub000/assets"
	assetmocks "github.com/MNasiifu/automobile-association-sub000/assets/mocks"
	"github.com/MNasiifu/automobile-association-sub000/certerrors"
	"github.com/MNasiifu/automobile-association-sub000/compose"
	"github.com/MNasiifu/automobile-association-sub000/observability"
	"github.com/MNasiifu/automobile-association-sub000/permit"
	"github.com/MNasiifu/automobile-association-sub000/pipeline"
	"github.com/MNasiifu/automobile-association-sub000/pipeline/mocks"
	"github.com/MNasiifu/automobile-association-sub000/render"
	"github.com/MNasiifu/automobile-association-sub000/writer"
)

func clock() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

func validRecord() permit.VerificationRecord {
	return permit.VerificationRecord{
		ID:               "UG2024SAMPLE123",
		GivenNames:       "Jane",
		Surname:          "Nakato",
		PassportNumber:   "B1234567",
		PermittedClasses: "B, C",
		IssueDate:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		ExpiryDate:       time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
		Found:            true,
	}
}

func offlineResolver(t *testing.T) *assets.Resolver {
	ctrl := gomock.NewController(t)
	f := assetmocks.NewMockFetcher(ctrl)
	f.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, errors.New("offline")).AnyTimes()
	return assets.NewResolver(f, "https://example.org/logo.png")
}

type stubRenderer struct {
	img *image.RGBA
	err error
}

func (s stubRenderer) Render(context.Context, *compose.Document) (*image.RGBA, error) {
	return s.img, s.err
}

type stubEncoder struct {
	res *writer.Result
	err error
}

func (s stubEncoder) Encode(context.Context, image.Image) (*writer.Result, error) {
	return s.res, s.err
}

type countingResolver struct {
	logo, photo int32
}

func (c *countingResolver) ResolveLogo(context.Context) permit.ResolvedAsset {
	atomic.AddInt32(&c.logo, 1)
	return permit.ResolvedAsset{DataURI: assets.MinimalLogoDataURI, Origin: permit.OriginFallbackSynthesized}
}

func (c *countingResolver) ResolvePhoto(_ context.Context, ref *string) *permit.ResolvedAsset {
	atomic.AddInt32(&c.photo, 1)
	if ref == nil {
		return nil
	}
	return &permit.ResolvedAsset{DataURI: assets.MinimalLogoDataURI, Origin: permit.OriginFetched}
}

func realService(t *testing.T, saver pipeline.Saver) *pipeline.Service {
	t.Helper()
	svc, err := pipeline.New(pipeline.Deps{
		Resolver: offlineResolver(t),
		Renderer: render.New(render.WithSettleDelay(0)),
		Encoder:  writer.New(writer.Config{Compress: true}),
		Saver:    saver,
		Logger:   observability.NewTestLogger(t),
		Now:      clock,
	})
	require.NoError(t, err)
	return svc
}

func TestGenerateAndSave_ValidRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	saver := mocks.NewMockSaver(ctrl)

	var saved []byte
	saver.EXPECT().
		Save(gomock.Any(), "IDP_Verification_UG2024SAMPLE123_2024-06-01.pdf", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, data []byte) error {
			saved = data
			return nil
		}).
		Times(1)

	rec := validRecord()
	art, err := realService(t, saver).GenerateAndSave(context.Background(), rec, permit.Classify(rec, clock()), "1 June 2024 10:00")
	require.NoError(t, err)
	require.NotNil(t, art)

	assert.Equal(t, saved, art.Bytes)
	assert.GreaterOrEqual(t, len(art.Bytes), 1024)
	assert.True(t, bytes.HasPrefix(art.Bytes, []byte("%PDF-")))
	assert.Equal(t, 1, art.Pages)
	assert.Equal(t, permit.Digest(art.Bytes), art.Digest)
}

func TestGenerateAndSave_NotFoundRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	saver := mocks.NewMockSaver(ctrl)
	saver.EXPECT().Save(gomock.Any(), "IDP_Verification_UG-INVALID_2024-06-01.pdf", gomock.Any()).Return(nil)

	rec := permit.VerificationRecord{ID: "UG-INVALID"}
	_, err := realService(t, saver).GenerateAndSave(context.Background(), rec, permit.Classify(rec, clock()), "now")
	require.NoError(t, err)
}

func TestGenerateAndSave_TooSmallNeverSaves(t *testing.T) {
	ctrl := gomock.NewController(t)
	saver := mocks.NewMockSaver(ctrl)
	saver.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	svc, err := pipeline.New(pipeline.Deps{
		Resolver: &countingResolver{},
		Renderer: stubRenderer{img: image.NewRGBA(image.Rect(0, 0, 2, 2))},
		Encoder:  stubEncoder{res: &writer.Result{Bytes: []byte("%PDF-1.7\n%%EOF\n"), Pages: 1}},
		Saver:    saver,
	})
	require.NoError(t, err)

	art, err := svc.GenerateAndSave(context.Background(), validRecord(), permit.StatusClassification{State: permit.StateValid}, "now")
	assert.Nil(t, art)
	assert.ErrorIs(t, err, certerrors.ErrOutputTooSmall)
}

func TestGenerateAndSave_ErrorClassification(t *testing.T) {
	raster := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for name, tc := range map[string]struct {
		renderer pipeline.Renderer
		encoder  pipeline.Encoder
		saveErr  error
		want     error
	}{
		"raster failure": {
			renderer: stubRenderer{err: errors.New("capture failed")},
			want:     certerrors.ErrRasterizationFailed,
		},
		"malformed passes through": {
			renderer: stubRenderer{err: certerrors.New(certerrors.CodeCompositionMalformed, "no root")},
			want:     certerrors.ErrCompositionMalformed,
		},
		"encoder failure": {
			renderer: stubRenderer{img: raster},
			encoder:  stubEncoder{err: errors.New("jpeg exploded")},
			want:     certerrors.ErrEncodingFailed,
		},
		"save failure": {
			renderer: stubRenderer{img: raster},
			saveErr:  errors.New("disk full"),
			want:     certerrors.ErrPersistenceFailed,
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			saver := mocks.NewMockSaver(ctrl)
			if tc.saveErr != nil {
				saver.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(tc.saveErr)
			}
			enc := tc.encoder
			if enc == nil {
				enc = writer.New(writer.Config{})
			}
			svc, err := pipeline.New(pipeline.Deps{
				Resolver:  &countingResolver{},
				Renderer:  tc.renderer,
				Encoder:   enc,
				Saver:     saver,
				Validator: noopValidator{},
			})
			require.NoError(t, err)

			_, err = svc.GenerateAndSave(context.Background(), validRecord(), permit.StatusClassification{State: permit.StateValid}, "now")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

type noopValidator struct{}

func (noopValidator) Validate(permit.ExportArtifact) error { return nil }

func TestGenerateAndSave_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	saver := mocks.NewMockSaver(ctrl)
	saver.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := realService(t, saver).GenerateAndSave(ctx, validRecord(), permit.StatusClassification{State: permit.StateValid}, "now")
	assert.ErrorIs(t, err, certerrors.ErrCanceled)
}

func TestGenerateAndSave_NoSaver(t *testing.T) {
	svc, err := pipeline.New(pipeline.Deps{
		Resolver:  &countingResolver{},
		Renderer:  stubRenderer{img: image.NewRGBA(image.Rect(0, 0, 2, 2))},
		Encoder:   writer.New(writer.Config{}),
		Validator: noopValidator{},
	})
	require.NoError(t, err)
	_, err = svc.GenerateAndSave(context.Background(), validRecord(), permit.StatusClassification{}, "now")
	assert.ErrorIs(t, err, certerrors.ErrPersistenceFailed)
}

func TestResolve_PhotoOnlyForFoundRecords(t *testing.T) {
	photo := "data:image/png;base64,AAAA"
	res := &countingResolver{}
	svc, err := pipeline.New(pipeline.Deps{Resolver: res, Renderer: stubRenderer{}, Encoder: stubEncoder{}})
	require.NoError(t, err)

	rec := validRecord()
	rec.PhotoReference = &photo
	_, err = svc.Markup(context.Background(), rec, permit.StatusClassification{State: permit.StateValid}, "now")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&res.logo))
	assert.Equal(t, int32(1), atomic.LoadInt32(&res.photo))

	missing := permit.VerificationRecord{ID: "X", PhotoReference: &photo}
	_, err = svc.Markup(context.Background(), missing, permit.StatusClassification{State: permit.StateNotFound}, "now")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&res.photo), "not-found records never fetch a photo")
}

func TestGenerateAndPreview_FailureLogsMarkup(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctrl := gomock.NewController(t)
	previewer := mocks.NewMockPreviewer(ctrl)
	previewer.EXPECT().
		Preview(gomock.Any(), "IDP_Verification_UG2024SAMPLE123_2024-06-01.html", gomock.Any()).
		Return(errors.New("no display"))

	svc, err := pipeline.New(pipeline.Deps{
		Resolver:  &countingResolver{},
		Renderer:  stubRenderer{},
		Encoder:   stubEncoder{},
		Previewer: previewer,
		Logger:    observability.NewZapAdapter(zap.New(core)),
		Now:       clock,
	})
	require.NoError(t, err)

	err = svc.GenerateAndPreview(context.Background(), validRecord(), permit.StatusClassification{State: permit.StateValid}, "now")
	require.NoError(t, err)

	entries := logs.FilterMessage("preview unavailable, composed markup follows").All()
	require.Len(t, entries, 1)
	markup, _ := entries[0].ContextMap()["markup"].(string)
	assert.Contains(t, markup, `id="certificate-root"`)
	assert.Contains(t, markup, compose.TitleValid[:8])
}

func TestGenerateAndPreview_WritesMarkup(t *testing.T) {
	var buf bytes.Buffer
	svc, err := pipeline.New(pipeline.Deps{Resolver: &countingResolver{}, Renderer: stubRenderer{}, Encoder: stubEncoder{}},
		pipeline.WithPreviewer(pipeline.WriterPreviewer{W: &buf}))
	require.NoError(t, err)

	rec := permit.VerificationRecord{ID: "UG-INVALID"}
	require.NoError(t, svc.GenerateAndPreview(context.Background(), rec, permit.Classify(rec, clock()), "now"))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "UG-INVALID")
	assert.Contains(t, out, compose.VerifiedMarker)
}

func TestNew_RequiresCoreDeps(t *testing.T) {
	_, err := pipeline.New(pipeline.Deps{})
	assert.Error(t, err)
}

func TestFileSaver_Atomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := pipeline.FileSaver{Dir: dir}
	require.NoError(t, s.Save(context.Background(), "cert.pdf", []byte("%PDF-1.7")))

	data, err := os.ReadFile(s.Path("cert.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file left behind")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Save(ctx, "other.pdf", []byte("x")))
}

func TestWriterSaver(t *testing.T) {
	var buf bytes.Buffer
	var name string
	s := pipeline.WriterSaver{W: &buf, OnName: func(n string) { name = n }}
	require.NoError(t, s.Save(context.Background(), "a.pdf", []byte("data")))
	assert.Equal(t, "data", buf.String())
	assert.Equal(t, "a.pdf", name)
}
