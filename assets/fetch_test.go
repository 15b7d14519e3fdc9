package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("payload"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second)
	data, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "unexpected status 404")

	f.MaxBytes = 16
	_, err = f.Fetch(context.Background(), srv.URL+"/big")
	assert.ErrorContains(t, err, "exceeds 16 bytes")
}

func TestSchemeFetcher_RoutesFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.bin")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o600))

	f := NewSchemeFetcher(time.Second)
	for _, ref := range []string{path, "file://" + path} {
		data, err := f.Fetch(context.Background(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "local", string(data))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDataURI(t *testing.T) {
	uri := EncodeDataURI("image/png", []byte{0x89, 'P', 'N', 'G'})
	assert.True(t, IsDataURI(uri))
	assert.False(t, IsDataURI("https://example.org/a.png"))

	mime, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	mime, data, err = DecodeDataURI("data:,hello%20world")
	require.NoError(t, err)
	assert.Equal(t, "text/plain;charset=US-ASCII", mime)
	assert.Equal(t, "hello world", string(data))

	_, _, err = DecodeDataURI("data:image/png;base64")
	assert.Error(t, err)
}

func TestSniffImage(t *testing.T) {
	_, data, err := DecodeDataURI(MinimalLogoDataURI)
	require.NoError(t, err)

	mime, err := SniffImage(data)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = SniffImage([]byte("GIF? no"))
	assert.Error(t, err)
	_, err = SniffImage(nil)
	assert.Error(t, err)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	_, ok := c.Get()
	assert.False(t, ok)

	c.Set(resolved("a"))
	c.Set(resolved("b"))
	got, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, "b", got.DataURI)

	c.Clear()
	_, ok = c.Get()
	assert.False(t, ok)
}
