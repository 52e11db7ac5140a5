package catalog

import (
	"embed"
	"encoding/json"
	"io"
	"io/fs"
	"sync"

	"github.com/rotisserie/eris"
)

// Asset file names, in the assets directory or an override directory.
const (
	LegacyFile  = "dobcomplaints_complaint_category.json"
	CurrentFile = "complaint_category.json"
)

//go:embed assets/*.json
var assets embed.FS

type legacyRecord struct {
	Code        string `json:"CODE"`
	Description string `json:"COMPLAINT CATEGORY DESCRIPTION"`
	Priority    string `json:"PRIORITY"`
}

type currentRecord struct {
	Code        string `json:"COMPLAINT CATEGORY"`
	Description string `json:"COMPLAINT CATEGORY DESCRIPTION"`
}

// ReadLegacy decodes the legacy table.
func ReadLegacy(r io.Reader) (*Catalog, error) {
	var records []legacyRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, eris.Wrap(err, "catalog: decode legacy table")
	}
	cats := make([]Category, 0, len(records))
	for _, rec := range records {
		cats = append(cats, Category{
			Code:        rec.Code,
			Description: rec.Description,
			Priority:    ParsePriority(rec.Priority),
		})
	}
	return New(Legacy, cats), nil
}

// ReadCurrent decodes the 2021+ table. Priorities come from the legacy
// category with the same code; codes without one are unknown.
func ReadCurrent(r io.Reader, legacy *Catalog) (*Catalog, error) {
	var records []currentRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, eris.Wrap(err, "catalog: decode 2021 table")
	}
	cats := make([]Category, 0, len(records))
	for _, rec := range records {
		p := PriorityUnknown
		if old, ok := legacy.Lookup(rec.Code); ok {
			p = old.Priority
		}
		cats = append(cats, Category{Code: rec.Code, Description: rec.Description, Priority: p})
	}
	return New(Current, cats), nil
}

// LoadFS reads both tables from fsys.
func LoadFS(fsys fs.FS) (*Set, error) {
	lf, err := fsys.Open(LegacyFile)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", LegacyFile)
	}
	defer lf.Close()
	legacy, err := ReadLegacy(lf)
	if err != nil {
		return nil, err
	}

	cf, err := fsys.Open(CurrentFile)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", CurrentFile)
	}
	defer cf.Close()
	current, err := ReadCurrent(cf, legacy)
	if err != nil {
		return nil, err
	}
	return &Set{Legacy: legacy, Current: current}, nil
}

// Embedded returns the tables compiled into the binary.
func Embedded() (*Set, error) {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		return nil, eris.Wrap(err, "catalog: embedded assets")
	}
	return LoadFS(sub)
}

// Default is the process-wide catalog set, loaded on first use.
var Default = sync.OnceValues(Embedded)
