// Package service holds the map server's state and file handling: map
// variants and their layers, per-page views, tile archives, complaint
// exports and tile builds.
package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	ErrVariantNotFound = eris.New("variant not found")
	ErrLayerNotFound   = eris.New("layer not found")
	ErrViewNotFound    = eris.New("view not found")
	ErrNotReady        = eris.New("map has not finished loading")
	ErrAlreadyReady    = eris.New("map already initialized")
	ErrFileNotFound    = eris.New("file not found")
	ErrInvalidName     = eris.New("invalid file name")
	ErrDBUnavailable   = eris.New("database not available")
)

// SourceFile is a complaint export under the sources directory.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"dob_complaints.csv"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"CSV, Parquet or JSON" example:"CSV"`
}

// TileFile is a PMTiles archive under the tiles directory.
type TileFile struct {
	Name string `json:"name" doc:"PMTiles file name" example:"nyc-rollup.pmtiles"`
	Size string `json:"size" doc:"Human-readable file size" example:"5.4 MB"`
}

// TileInfo summarizes an archive's header and metadata.
type TileInfo struct {
	TileFile
	TileType        string         `json:"tileType" example:"mvt"`
	TileCompression string         `json:"tileCompression" example:"gzip"`
	MinZoom         int            `json:"minZoom" example:"6"`
	MaxZoom         int            `json:"maxZoom" example:"14"`
	Bounds          [4]float64     `json:"bounds" doc:"[west, south, east, north]"`
	Center          [3]float64     `json:"center" doc:"[lon, lat, zoom]"`
	AddressedTiles  uint64         `json:"addressedTiles"`
	TileEntries     uint64         `json:"tileEntries"`
	TileContents    uint64         `json:"tileContents"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// safeName checks that name is a bare file name with one of exts.
func safeName(name string, exts ...string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return eris.Wrapf(ErrInvalidName, "%q", name)
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return nil
		}
	}
	return eris.Wrapf(ErrInvalidName, "%q: unsupported type %q", name, ext)
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
