package service

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/joeblew999/nyc-dob-map/internal/pmtiles"
)

// TileService manages PMTiles archives.
type TileService struct {
	tilesDir string
}

// NewTileService creates a new tile service.
func NewTileService(dataDir string) *TileService {
	return &TileService{
		tilesDir: filepath.Join(dataDir, "tiles"),
	}
}

// List returns all available PMTiles files, sorted by name.
func (s *TileService) List() ([]TileFile, error) {
	entries, err := os.ReadDir(s.tilesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TileFile{}, nil
		}
		return nil, eris.Wrap(err, "service: list tiles")
	}

	files := []TileFile{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pmtiles" || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, TileFile{
			Name: entry.Name(),
			Size: formatSize(info.Size()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Path returns the path an archive called name has or would have.
func (s *TileService) Path(name string) (string, error) {
	if err := safeName(name, ".pmtiles"); err != nil {
		return "", err
	}
	return filepath.Join(s.tilesDir, name), nil
}

// Exists reports whether the archive is present.
func (s *TileService) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Inspect reads an archive's header and metadata.
func (s *TileService) Inspect(name string) (TileInfo, error) {
	path, err := s.Path(name)
	if err != nil {
		return TileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return TileInfo{}, eris.Wrapf(ErrFileNotFound, "archive %q", name)
		}
		return TileInfo{}, eris.Wrapf(err, "service: stat %q", name)
	}

	f, err := pmtiles.Open(path)
	if err != nil {
		return TileInfo{}, eris.Wrapf(err, "service: open %q", name)
	}
	defer f.Close()

	h := f.Header()
	b, c := h.Bounds(), h.Center()
	out := TileInfo{
		TileFile:        TileFile{Name: name, Size: formatSize(info.Size())},
		TileType:        h.TileType.String(),
		TileCompression: h.TileCompression.String(),
		MinZoom:         int(h.MinZoom),
		MaxZoom:         int(h.MaxZoom),
		Bounds:          [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()},
		Center:          [3]float64{c.Lon(), c.Lat(), float64(h.CenterZoom)},
		AddressedTiles:  h.AddressedTilesCount,
		TileEntries:     h.TileEntriesCount,
		TileContents:    h.TileContentsCount,
	}
	if meta, err := f.Metadata(); err == nil {
		out.Metadata = meta
	}
	return out, nil
}

// TilesDir returns the path to the tiles directory.
func (s *TileService) TilesDir() string {
	return s.tilesDir
}
