package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MNasiifu/automobile-association-sub000/writer"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeFile(t, `
environment: development
logo:
  ref: https://example.org/logo.png
  fetch_timeout: 3s
render:
  image_timeout: 2s
  scale: 1.5
export:
  page_break: slice
  jpeg_quality: 90
organization:
  name: Test Motoring Club
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/logo.png", cfg.Logo.Ref)
	assert.Equal(t, 3*time.Second, cfg.Logo.FetchTimeout)
	assert.Equal(t, 2*time.Second, cfg.Render.ImageTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Render.SettleDelay)
	assert.Equal(t, 1.5, cfg.Render.Scale)
	assert.Equal(t, "Test Motoring Club", cfg.Organization.Name)
	assert.Equal(t, "AA Uganda", cfg.Organization.ShortName, "unset organization fields use defaults")

	wc := cfg.WriterConfig()
	assert.Equal(t, writer.PageBreakSlice, wc.PageBreak)
	assert.Equal(t, 90, wc.JPEGQuality)
	assert.False(t, wc.Compress)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeFile(t, "render:\n  scale: 2\n")
	t.Setenv("CERTGEN_RENDER_SCALE", "3")
	t.Setenv("CERTGEN_SERVER_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Render.Scale)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoad_CompressDerivedFromEnvironment(t *testing.T) {
	cfg, err := Load(writeFile(t, "environment: production\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Compress())
	assert.Equal(t, "json", cfg.Log.Format)

	cfg, err = Load(writeFile(t, "environment: development\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Compress())

	cfg, err = Load(writeFile(t, "environment: production\nexport:\n  compress: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Compress(), "explicit setting wins over the environment")
}

func TestLoad_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"environment": "environment: staging\n",
		"page break":  "export:\n  page_break: columns\n",
		"quality":     "export:\n  jpeg_quality: 101\n",
		"background":  "render:\n  background: not-a-colour\n",
		"scale":       "render:\n  scale: -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().WriteYAML(&buf))
	assert.Contains(t, buf.String(), "image_timeout: 5s")

	cfg, err := Load(writeFile(t, buf.String()))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}
