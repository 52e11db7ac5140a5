package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/nyc-dob-map/internal/config"
	"github.com/joeblew999/nyc-dob-map/internal/db"
	"github.com/joeblew999/nyc-dob-map/internal/metrics"
	"github.com/joeblew999/nyc-dob-map/internal/rollup"
	"github.com/joeblew999/nyc-dob-map/internal/tiler"
)

// ComplaintLoader reads the complaints of a named export.
type ComplaintLoader func(ctx context.Context, name string, opts db.LoadOptions) ([]rollup.Complaint, error)

// GenerateOptions selects the export to tile and the archive to write.
// Zero values fall back to the tiler configuration.
type GenerateOptions struct {
	Source     string `json:"source" required:"true" doc:"Complaint export under the sources directory" example:"dob_complaints.csv"`
	Output     string `json:"output" required:"true" doc:"Archive name under the tiles directory" example:"nyc-rollup.pmtiles"`
	Engine     string `json:"engine,omitempty" enum:"go,tippecanoe" doc:"Tiling engine; empty picks the configured one"`
	Layer      string `json:"layer,omitempty" doc:"Vector layer name" example:"nycdob_rollup"`
	MinZoom    int    `json:"minZoom,omitempty" minimum:"0" maximum:"14" doc:"Minimum zoom"`
	MaxZoom    int    `json:"maxZoom,omitempty" minimum:"0" maximum:"14" doc:"Maximum zoom"`
	ActiveOnly *bool  `json:"activeOnly,omitempty" doc:"Only tile complaints with status ACTIVE"`
	Limit      int    `json:"limit,omitempty" minimum:"0" doc:"Read at most this many records"`
}

// GenerateResult reports a finished build.
type GenerateResult struct {
	Output string        `json:"output" doc:"Archive written"`
	Engine string        `json:"engine" doc:"Engine used"`
	Stats  rollup.Stats  `json:"stats"`
	Took   time.Duration `json:"took" doc:"Build time in nanoseconds"`
}

// TilerService rolls complaint exports up per building and tiles them
// into the tiles directory.
type TilerService struct {
	load       ComplaintLoader
	tiles      *TileService
	priorities rollup.Priorities
	engines    []tiler.Tiler
	cfg        config.TilerConfig
	bus        *EventBus
	metrics    *metrics.Metrics
}

// NewTilerService creates a tiler service. bus and m may be nil.
func NewTilerService(load ComplaintLoader, tiles *TileService, priorities rollup.Priorities, cfg config.TilerConfig, bus *EventBus, m *metrics.Metrics, engines ...tiler.Tiler) *TilerService {
	return &TilerService{
		load:       load,
		tiles:      tiles,
		priorities: priorities,
		engines:    engines,
		cfg:        cfg,
		bus:        bus,
		metrics:    m,
	}
}

// Engines lists the engine names and whether each can run here.
func (s *TilerService) Engines() map[string]bool {
	out := make(map[string]bool, len(s.engines))
	for _, e := range s.engines {
		out[e.Name()] = e.Available()
	}
	return out
}

func (s *TilerService) withDefaults(opts GenerateOptions) GenerateOptions {
	if opts.Engine == "" {
		opts.Engine = s.cfg.Engine
	}
	if opts.Layer == "" {
		opts.Layer = s.cfg.Layer
	}
	if opts.MinZoom == 0 && opts.MaxZoom == 0 {
		opts.MinZoom, opts.MaxZoom = s.cfg.MinZoom, s.cfg.MaxZoom
	}
	if opts.ActiveOnly == nil {
		active := s.cfg.ActiveOnly
		opts.ActiveOnly = &active
	}
	if opts.Output != "" && !strings.HasSuffix(strings.ToLower(opts.Output), ".pmtiles") {
		opts.Output += ".pmtiles"
	}
	return opts
}

// Generate builds an archive from an export. The archive only replaces an
// existing one of the same name once the build has succeeded.
func (s *TilerService) Generate(ctx context.Context, opts GenerateOptions, progress tiler.ProgressFunc) (result GenerateResult, err error) {
	opts = s.withDefaults(opts)
	outPath, err := s.tiles.Path(opts.Output)
	if err != nil {
		return GenerateResult{}, err
	}
	engine, err := tiler.Select(opts.Engine, s.engines...)
	if err != nil {
		return GenerateResult{}, eris.Wrap(err, "service: select tiler")
	}

	start := time.Now()
	defer func() { s.metrics.TileBuild(engine.Name(), time.Since(start), err) }()

	report := func(pct int, status string) {
		if progress != nil {
			progress(pct, status)
		}
	}

	report(0, "reading "+opts.Source)
	complaints, err := s.load(ctx, opts.Source, db.LoadOptions{ActiveOnly: *opts.ActiveOnly, Limit: opts.Limit})
	if err != nil {
		return GenerateResult{}, err
	}
	fc, stats := rollup.Build(complaints, s.priorities)
	if len(fc.Features) == 0 {
		return GenerateResult{}, eris.Errorf("service: %s has no located buildings", opts.Source)
	}
	report(5, fmt.Sprintf("%d complaints in %d buildings", stats.Complaints, stats.Buildings))

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return GenerateResult{}, eris.Wrap(err, "service: create tiles dir")
	}

	in, err := os.CreateTemp(dir, ".build-*.geojson")
	if err != nil {
		return GenerateResult{}, eris.Wrap(err, "service: create rollup file")
	}
	defer os.Remove(in.Name())
	if err := json.NewEncoder(in).Encode(fc); err != nil {
		in.Close()
		return GenerateResult{}, eris.Wrap(err, "service: write rollup")
	}
	if err := in.Close(); err != nil {
		return GenerateResult{}, eris.Wrap(err, "service: write rollup")
	}

	tmp := filepath.Join(dir, ".build-"+opts.Output)
	defer os.Remove(tmp)

	cfg := tiler.TileConfig{
		Layer:       opts.Layer,
		MinZoom:     opts.MinZoom,
		MaxZoom:     opts.MaxZoom,
		Name:        strings.TrimSuffix(opts.Output, filepath.Ext(opts.Output)),
		Description: "Active DOB complaints rolled up per building",
		Attribution: "NYC Department of Buildings",
		Progress:    progress,
	}
	if err := engine.Tile(ctx, in.Name(), tmp, cfg); err != nil {
		return GenerateResult{}, eris.Wrapf(err, "service: %s tiler", engine.Name())
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return GenerateResult{}, eris.Wrap(err, "service: publish archive")
	}

	took := time.Since(start)
	zap.L().Info("tiles generated",
		zap.String("output", opts.Output),
		zap.String("engine", engine.Name()),
		zap.Int("buildings", stats.Buildings),
		zap.Duration("took", took))
	report(100, "done")

	if s.bus != nil {
		s.bus.Publish(Event{Resource: "tiles", Action: "updated", ID: opts.Output})
	}
	return GenerateResult{Output: opts.Output, Engine: engine.Name(), Stats: stats, Took: took}, nil
}
