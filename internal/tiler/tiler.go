// Package tiler turns a GeoJSON feature collection into a PMTiles archive.
// Engines are interchangeable: the pure Go engine runs anywhere, the
// tippecanoe engine shells out when the binary is installed.
package tiler

import (
	"context"
	"fmt"
	"strings"
)

// MaxZoom is the deepest zoom any engine writes; the map overzooms beyond.
const MaxZoom = 14

// ProgressFunc receives a completion percentage and a status line.
type ProgressFunc func(percent int, status string)

// TileConfig describes the archive to produce.
type TileConfig struct {
	Layer       string
	MinZoom     int
	MaxZoom     int
	Name        string
	Description string
	Attribution string
	Progress    ProgressFunc
}

// Normalize clamps the zoom range and fills defaults.
func (c TileConfig) Normalize() TileConfig {
	if c.Layer == "" {
		c.Layer = "default"
	}
	if c.MinZoom < 0 {
		c.MinZoom = 0
	}
	if c.MaxZoom <= 0 || c.MaxZoom > MaxZoom {
		c.MaxZoom = MaxZoom
	}
	if c.MinZoom > c.MaxZoom {
		c.MinZoom = c.MaxZoom
	}
	if c.Name == "" {
		c.Name = c.Layer
	}
	return c
}

// Report calls Progress when set.
func (c TileConfig) Report(percent int, status string) {
	if c.Progress != nil {
		c.Progress(percent, status)
	}
}

// Tiler is a tile generation engine.
type Tiler interface {
	Name() string
	Available() bool
	Tile(ctx context.Context, inputPath, outputPath string, cfg TileConfig) error
}

// Select returns the engine called name, or with name empty the first
// available one.
func Select(name string, engines ...Tiler) (Tiler, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range engines {
		if name == "" && e.Available() {
			return e, nil
		}
		if e.Name() != name {
			continue
		}
		if !e.Available() {
			return nil, fmt.Errorf("tiler %q is not available", name)
		}
		return e, nil
	}
	if name == "" {
		return nil, fmt.Errorf("no tiler available")
	}
	return nil, fmt.Errorf("unknown tiler %q", name)
}
