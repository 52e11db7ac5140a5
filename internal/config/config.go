// Package config loads map settings from a YAML file and DOBMAP_*
// environment variables, and sets up the global logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
	"github.com/joeblew999/nyc-dob-map/internal/style"
)

// Config holds the full application configuration.
type Config struct {
	Map      MapConfig       `yaml:"map" mapstructure:"map"`
	Variants []style.Variant `yaml:"variants" mapstructure:"variants"`
	Catalog  CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Tiler    TilerConfig     `yaml:"tiler" mapstructure:"tiler"`
	Tour     TourConfig      `yaml:"tour" mapstructure:"tour"`
	Server   ServerConfig    `yaml:"server" mapstructure:"server"`
	Log      LogConfig       `yaml:"log" mapstructure:"log"`
}

// MapConfig configures the viewer page and the style documents.
type MapConfig struct {
	DefaultVariant string       `yaml:"default_variant" mapstructure:"default_variant"`
	Basemap        string       `yaml:"basemap" mapstructure:"basemap"`
	BasemapArchive string       `yaml:"basemap_archive" mapstructure:"basemap_archive"`
	Attribution    string       `yaml:"attribution" mapstructure:"attribution"`
	Center         []float64    `yaml:"center" mapstructure:"center"`
	Zoom           float64      `yaml:"zoom" mapstructure:"zoom"`
	MinZoom        float64      `yaml:"min_zoom" mapstructure:"min_zoom"`
	MaxZoom        float64      `yaml:"max_zoom" mapstructure:"max_zoom"`
	Pitch          float64      `yaml:"pitch" mapstructure:"pitch"`
	Opacity        float64      `yaml:"opacity" mapstructure:"opacity"`
	Radius         RadiusConfig `yaml:"radius" mapstructure:"radius"`
}

// RadiusConfig is the circle radius ramp.
type RadiusConfig struct {
	Base  float64      `yaml:"base" mapstructure:"base"`
	Stops []style.Stop `yaml:"stops" mapstructure:"stops"`
}

// Ramp builds the radius ramp, falling back to the default when unset.
func (r RadiusConfig) Ramp() style.RadiusRamp {
	if r.Base == 0 && len(r.Stops) == 0 {
		return style.DefaultRadius
	}
	return style.NewRadiusRamp(r.Base, r.Stops...)
}

// CatalogConfig points at replacement lookup tables.
type CatalogConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// TilerConfig configures tile generation.
type TilerConfig struct {
	Engine     string `yaml:"engine" mapstructure:"engine"`
	Bin        string `yaml:"bin" mapstructure:"bin"`
	Layer      string `yaml:"layer" mapstructure:"layer"`
	MinZoom    int    `yaml:"min_zoom" mapstructure:"min_zoom"`
	MaxZoom    int    `yaml:"max_zoom" mapstructure:"max_zoom"`
	ActiveOnly bool   `yaml:"active_only" mapstructure:"active_only"`
}

// TourConfig is the camera sequence played on the tour key.
type TourConfig struct {
	Key   string     `yaml:"key" mapstructure:"key"`
	Steps []TourStep `yaml:"steps" mapstructure:"steps"`
}

// TourStep is one camera move.
type TourStep struct {
	Center   []float64 `yaml:"center" mapstructure:"center" json:"center,omitempty"`
	Zoom     float64   `yaml:"zoom" mapstructure:"zoom" json:"zoom"`
	Pitch    float64   `yaml:"pitch" mapstructure:"pitch" json:"pitch"`
	Bearing  float64   `yaml:"bearing" mapstructure:"bearing" json:"bearing"`
	Duration int       `yaml:"duration_ms" mapstructure:"duration_ms" json:"duration"`
}

// ServerConfig holds HTTP settings not covered by the command line.
type ServerConfig struct {
	CORSOrigins []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ViewTTL     time.Duration `yaml:"view_ttl" mapstructure:"view_ttl"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Variant returns the variant called name.
func (c *Config) Variant(name string) (style.Variant, bool) {
	for _, v := range c.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return style.Variant{}, false
}

// Validate checks the settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for _, v := range c.Variants {
		if v.Name == "" {
			return fmt.Errorf("config: variant without a name")
		}
		if seen[v.Name] {
			return fmt.Errorf("config: duplicate variant %q", v.Name)
		}
		seen[v.Name] = true
		if _, ok := catalog.ParseVintage(string(v.Vintage)); !ok {
			return fmt.Errorf("config: variant %q: unknown vintage %q", v.Name, v.Vintage)
		}
		if _, err := v.Options(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if v.Archive == "" {
			return fmt.Errorf("config: variant %q has no archive", v.Name)
		}
	}
	if !seen[c.Map.DefaultVariant] {
		return fmt.Errorf("config: default variant %q is not configured", c.Map.DefaultVariant)
	}
	if len(c.Map.Center) != 2 {
		return fmt.Errorf("config: map center needs [lon, lat], got %v", c.Map.Center)
	}
	if c.Map.Opacity < 0 || c.Map.Opacity > 1 {
		return fmt.Errorf("config: map opacity %v outside [0, 1]", c.Map.Opacity)
	}
	if c.Tiler.MinZoom > c.Tiler.MaxZoom {
		return fmt.Errorf("config: tiler min zoom %d above max zoom %d", c.Tiler.MinZoom, c.Tiler.MaxZoom)
	}
	if c.Server.ViewTTL < 0 {
		return fmt.Errorf("config: negative view ttl %v", c.Server.ViewTTL)
	}
	for i, s := range c.Tour.Steps {
		if len(s.Center) != 0 && len(s.Center) != 2 {
			return fmt.Errorf("config: tour step %d: center needs [lon, lat]", i)
		}
	}
	return nil
}

// Load reads configuration from path, or from dobmap.yaml in the working
// directory when path is empty, then from the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dobmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("DOBMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("map.default_variant", "current")
	v.SetDefault("map.basemap", "")
	v.SetDefault("map.basemap_archive", "new-york.pmtiles")
	v.SetDefault("map.attribution", `<a href="https://protomaps.com">Protomaps</a> | <a href="https://openmaptiles.org">© OpenMapTiles</a> | <a href="http://www.openstreetmap.org/copyright">© OpenStreetMap contributors</a>`)
	v.SetDefault("map.center", []float64{-73.935242, 40.73061})
	v.SetDefault("map.zoom", 10)
	v.SetDefault("map.min_zoom", 10)
	v.SetDefault("map.max_zoom", 19.9)
	v.SetDefault("map.pitch", 20)
	v.SetDefault("map.opacity", 0.9)
	v.SetDefault("catalog.dir", "")
	v.SetDefault("tiler.engine", "")
	v.SetDefault("tiler.bin", "tippecanoe")
	v.SetDefault("tiler.layer", style.DefaultSourceLayer)
	v.SetDefault("tiler.min_zoom", 6)
	v.SetDefault("tiler.max_zoom", 14)
	v.SetDefault("tiler.active_only", true)
	v.SetDefault("tour.key", "t")
	v.SetDefault("server.view_ttl", "2m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless named)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Variants) == 0 {
		cfg.Variants = style.DefaultVariants()
	}
	if len(cfg.Tour.Steps) == 0 {
		cfg.Tour.Steps = DefaultTour()
	}

	return &cfg, nil
}

// DefaultTour flies into Midtown, pulls back over the five boroughs and
// settles on lower Manhattan.
func DefaultTour() []TourStep {
	return []TourStep{
		{Center: []float64{-73.9855, 40.758}, Zoom: 15, Pitch: 50, Bearing: -20, Duration: 4000},
		{Center: []float64{-73.935242, 40.73061}, Zoom: 10, Pitch: 0, Duration: 3000},
		{Center: []float64{-74.0079, 40.7106}, Zoom: 14, Pitch: 40, Bearing: 20, Duration: 3500},
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
