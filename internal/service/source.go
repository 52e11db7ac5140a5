package service

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/joeblew999/nyc-dob-map/internal/db"
	"github.com/joeblew999/nyc-dob-map/internal/rollup"
)

// sourceTypes maps supported export extensions to their display type.
var sourceTypes = map[string]string{
	".csv":     "CSV",
	".txt":     "CSV",
	".parquet": "Parquet",
	".json":    "JSON",
	".ndjson":  "JSON",
}

func sourceExts() []string {
	exts := make([]string, 0, len(sourceTypes))
	for ext := range sourceTypes {
		exts = append(exts, ext)
	}
	return exts
}

// SourceService lists complaint exports and reads them through DuckDB.
type SourceService struct {
	sourcesDir string
	conn       *sql.DB
}

// NewSourceService creates a source service. conn may be nil, in which
// case only listing works.
func NewSourceService(dataDir string, conn *sql.DB) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
		conn:       conn,
	}
}

// List returns the complaint exports, sorted by name.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, eris.Wrap(err, "service: list sources")
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType, ok := sourceTypes[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Path returns the absolute path of an existing export.
func (s *SourceService) Path(name string) (string, error) {
	if err := safeName(name, sourceExts()...); err != nil {
		return "", err
	}
	path := filepath.Join(s.sourcesDir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", eris.Wrapf(ErrFileNotFound, "source %q", name)
		}
		return "", eris.Wrapf(err, "service: stat source %q", name)
	}
	return path, nil
}

// Load reads the complaints of an export.
func (s *SourceService) Load(ctx context.Context, name string, opts db.LoadOptions) ([]rollup.Complaint, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	if s.conn == nil {
		return nil, ErrDBUnavailable
	}
	return db.LoadComplaints(ctx, s.conn, path, opts)
}

// Summary counts an export's complaints per category.
func (s *SourceService) Summary(ctx context.Context, name string) ([]db.CategoryCount, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	if s.conn == nil {
		return nil, ErrDBUnavailable
	}
	return db.CountByCategory(ctx, s.conn, path)
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}
