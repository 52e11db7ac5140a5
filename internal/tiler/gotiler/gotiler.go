// Package gotiler generates point tiles in pure Go with paulmach/orb and
// writes them with internal/pmtiles. It needs no external binaries, so it
// is the default engine and the one the tests use.
package gotiler

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/nyc-dob-map/internal/pmtiles"
	"github.com/joeblew999/nyc-dob-map/internal/tiler"
)

// Buffer is the fraction of a tile's width around it whose features are
// also written to it, so circles near an edge are not cut in half.
const Buffer = 1.0 / 16

// GoTiler implements tiler.Tiler.
type GoTiler struct{}

// New creates a GoTiler.
func New() *GoTiler {
	return &GoTiler{}
}

var _ tiler.Tiler = (*GoTiler)(nil)

// Name returns the engine name.
func (g *GoTiler) Name() string { return "go" }

// Available is always true.
func (g *GoTiler) Available() bool { return true }

// Tile reads a GeoJSON feature collection and writes a PMTiles archive.
func (g *GoTiler) Tile(ctx context.Context, inputPath, outputPath string, cfg tiler.TileConfig) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("parsing geojson: %w", err)
	}

	cfg.Report(5, fmt.Sprintf("read %d features", len(fc.Features)))

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := g.Write(ctx, f, fc, cfg); err != nil {
		f.Close()
		os.Remove(outputPath)
		return err
	}
	return f.Close()
}

// Write encodes fc as tiles and writes the archive to w.
func (g *GoTiler) Write(ctx context.Context, w io.Writer, fc *geojson.FeatureCollection, cfg tiler.TileConfig) error {
	cfg = cfg.Normalize()
	if len(fc.Features) == 0 {
		return fmt.Errorf("no features to tile")
	}

	var (
		tiles []pmtiles.Tile
		bound = fc.Features[0].Geometry.Bound()
	)
	for _, f := range fc.Features[1:] {
		bound = bound.Union(f.Geometry.Bound())
	}

	levels := cfg.MaxZoom - cfg.MinZoom + 1
	for i, z := 0, cfg.MinZoom; z <= cfg.MaxZoom; i, z = i+1, z+1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		level, err := zoomLevel(fc, maptile.Zoom(z), cfg.Layer)
		if err != nil {
			return err
		}
		tiles = append(tiles, level...)
		cfg.Report(10+80*(i+1)/levels, fmt.Sprintf("zoom %d: %d tiles", z, len(level)))
	}

	return pmtiles.Write(w, tiles, pmtiles.WriteOptions{
		TileType:        pmtiles.Mvt,
		TileCompression: pmtiles.Gzip,
		MinZoom:         uint8(cfg.MinZoom),
		MaxZoom:         uint8(cfg.MaxZoom),
		Bounds:          bound,
		Metadata:        metadata(cfg, fc),
	})
}

// zoomLevel buckets features into the tiles they touch, buffer included,
// and encodes each bucket.
func zoomLevel(fc *geojson.FeatureCollection, z maptile.Zoom, layer string) ([]pmtiles.Tile, error) {
	buckets := make(map[maptile.Tile][]*geojson.Feature)
	for _, f := range fc.Features {
		for _, t := range touching(f.Geometry.Bound(), z) {
			buckets[t] = append(buckets[t], f)
		}
	}

	out := make([]pmtiles.Tile, 0, len(buckets))
	for t, features := range buckets {
		data, err := encode(t, features, layer)
		if err != nil {
			return nil, fmt.Errorf("tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
		}
		if data == nil {
			continue
		}
		out = append(out, pmtiles.Tile{Z: uint8(t.Z), X: t.X, Y: t.Y, Data: data})
	}
	return out, nil
}

// touching lists the tiles whose buffered extent intersects b.
func touching(b orb.Bound, z maptile.Zoom) []maptile.Tile {
	lo := maptile.At(b.Min, z)
	hi := maptile.At(b.Max, z)
	minX, maxX := lo.X, hi.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := lo.Y, hi.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	if minX > 0 {
		minX--
	}
	if minY > 0 {
		minY--
	}
	last := uint32(1)<<z - 1
	if maxX < last {
		maxX++
	}
	if maxY < last {
		maxY++
	}

	var tiles []maptile.Tile
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			t := maptile.New(x, y, z)
			if buffered(t).Intersects(b) {
				tiles = append(tiles, t)
			}
		}
	}
	return tiles
}

func buffered(t maptile.Tile) orb.Bound {
	b := t.Bound()
	dx := (b.Max.Lon() - b.Min.Lon()) * Buffer
	dy := (b.Max.Lat() - b.Min.Lat()) * Buffer
	return orb.Bound{
		Min: orb.Point{b.Min.Lon() - dx, b.Min.Lat() - dy},
		Max: orb.Point{b.Max.Lon() + dx, b.Max.Lat() + dy},
	}
}

// encode builds one gzipped MVT tile. Geometries are cloned because the
// mvt projection works in place.
func encode(t maptile.Tile, features []*geojson.Feature, layer string) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		clone := geojson.NewFeature(orb.Clone(f.Geometry))
		clone.ID = f.ID
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		fc.Append(clone)
	}

	l := mvt.NewLayer(layer, fc)
	if eps := simplifyEpsilon(t.Z); eps > 0 {
		l.Simplify(simplify.DouglasPeucker(eps))
	}
	l.Clip(buffered(t))
	l.ProjectToTile(t)
	l.RemoveEmpty(0.5, 0.5)
	if len(l.Features) == 0 {
		return nil, nil
	}

	return mvt.MarshalGzipped(mvt.Layers{l})
}

// simplifyEpsilon only matters for line and polygon input; points pass
// through unchanged.
func simplifyEpsilon(z maptile.Zoom) float64 {
	switch {
	case z >= 12:
		return 0
	case z >= 8:
		return 0.0001
	default:
		return 0.001
	}
}

func metadata(cfg tiler.TileConfig, fc *geojson.FeatureCollection) map[string]any {
	fields := map[string]string{}
	for _, f := range fc.Features {
		for k, v := range f.Properties {
			switch v.(type) {
			case float64, int, int64:
				fields[k] = "Number"
			case bool:
				fields[k] = "Boolean"
			default:
				fields[k] = "String"
			}
		}
	}
	return map[string]any{
		"name":        cfg.Name,
		"description": cfg.Description,
		"attribution": cfg.Attribution,
		"format":      "pbf",
		"minzoom":     cfg.MinZoom,
		"maxzoom":     cfg.MaxZoom,
		"vector_layers": []map[string]any{{
			"id":      cfg.Layer,
			"fields":  fields,
			"minzoom": cfg.MinZoom,
			"maxzoom": cfg.MaxZoom,
		}},
	}
}
