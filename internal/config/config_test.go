package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
	"github.com/joeblew999/nyc-dob-map/internal/style"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no dobmap.yaml is found
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "current", cfg.Map.DefaultVariant)
	assert.Equal(t, []float64{-73.935242, 40.73061}, cfg.Map.Center)
	assert.InDelta(t, 19.9, cfg.Map.MaxZoom, 0.001)
	assert.InDelta(t, 0.9, cfg.Map.Opacity, 0.001)
	assert.Equal(t, "new-york.pmtiles", cfg.Map.BasemapArchive)
	assert.Equal(t, style.DefaultSourceLayer, cfg.Tiler.Layer)
	assert.Equal(t, 14, cfg.Tiler.MaxZoom)
	assert.True(t, cfg.Tiler.ActiveOnly)
	assert.Equal(t, "t", cfg.Tour.Key)
	assert.Len(t, cfg.Tour.Steps, 3)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, style.DefaultVariants(), cfg.Variants)
	assert.Equal(t, style.DefaultRadius, cfg.Map.Radius.Ramp())
	assert.Equal(t, 2*time.Minute, cfg.Server.ViewTTL)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := `
map:
  default_variant: elevators
  opacity: 0.5
  radius:
    base: 2
    stops:
      - zoom: 12
        radius: 4
      - zoom: 14
        radius: 3
variants:
  - name: elevators
    title: Elevator complaints
    vintage: legacy
    archive: nyc-dob.pmtiles
    source_layer: nycdob_rollup
    scheme: heat
    allow: ["41", "6S"]
tiler:
  engine: go
  min_zoom: 8
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dobmap.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Variants, 1)
	v, ok := cfg.Variant("elevators")
	require.True(t, ok)
	assert.Equal(t, catalog.Legacy, v.Vintage)
	assert.Equal(t, "nycdob_rollup", v.SourceLayer)
	assert.Equal(t, []string{"41", "6S"}, v.Allow)
	assert.InDelta(t, 0.5, cfg.Map.Opacity, 0.001)
	assert.Equal(t, "go", cfg.Tiler.Engine)
	assert.Equal(t, 8, cfg.Tiler.MinZoom)
	assert.Equal(t, "debug", cfg.Log.Level)

	ramp := cfg.Map.Radius.Ramp()
	assert.Equal(t, 2.0, ramp.Base())
	assert.Equal(t, 4.0, ramp.Radius(14), "ramp never shrinks")
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tour:\n  key: g\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "g", cfg.Tour.Key)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "a named file must exist")
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DOBMAP_LOG_LEVEL", "warn")
	t.Setenv("DOBMAP_TILER_ENGINE", "tippecanoe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "tippecanoe", cfg.Tiler.Engine)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown default", func(c *Config) { c.Map.DefaultVariant = "nope" }, "default variant"},
		{"duplicate", func(c *Config) { c.Variants = append(c.Variants, c.Variants[0]) }, "duplicate"},
		{"bad scheme", func(c *Config) { c.Variants[0].Scheme = "rainbow" }, "color scheme"},
		{"bad vintage", func(c *Config) { c.Variants[0].Vintage = "1999" }, "vintage"},
		{"no archive", func(c *Config) { c.Variants[0].Archive = "" }, "archive"},
		{"center", func(c *Config) { c.Map.Center = []float64{1} }, "center"},
		{"opacity", func(c *Config) { c.Map.Opacity = 2 }, "opacity"},
		{"zoom", func(c *Config) { c.Tiler.MinZoom = 15 }, "min zoom"},
		{"tour", func(c *Config) { c.Tour.Steps[0].Center = []float64{1, 2, 3} }, "tour step 0"},
		{"view ttl", func(c *Config) { c.Server.ViewTTL = -time.Second }, "view ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			cfg.Variants = append([]style.Variant(nil), base.Variants...)
			cfg.Tour.Steps = append([]TourStep(nil), base.Tour.Steps...)
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
