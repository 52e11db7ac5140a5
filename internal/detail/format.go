// Package detail turns the attribute bag of a clicked building into the
// rows of the detail panel.
package detail

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
)

// PriorityLabel is the label of the row derived from a complaint category.
const PriorityLabel = "Priority"

// suffixLen is the length of the zip-like tail of a rolled-up address.
const suffixLen = 6

// Lookup resolves complaint category codes for display.
type Lookup interface {
	Describe(code string) string
	PriorityLabel(code string) string
}

// Row is one label/value line of the panel.
type Row struct {
	Label string `json:"label" example:"complaint category"`
	Value string `json:"value" example:"ELEVATOR"`
}

// Panel is the formatted selection.
type Panel struct {
	Name            string  `json:"name" doc:"Lower-cased address without its suffix" example:"123456main st"`
	Suffix          string  `json:"suffix" doc:"Last six characters of the address" example:"100001"`
	HighestPriority string  `json:"highestPriority,omitempty" doc:"Best priority letter among the building's complaints"`
	Count           *int    `json:"count,omitempty" doc:"Number of active complaints"`
	Entries         [][]Row `json:"entries" doc:"One row group per complaint"`
}

// Formatter renders features against a category lookup.
type Formatter struct {
	Lookup Lookup
}

// NewFormatter returns a Formatter resolving codes through l.
func NewFormatter(l Lookup) *Formatter {
	return &Formatter{Lookup: l}
}

// FormatRecord labels every field of a complaint. The complaint category
// is shown by description and followed by its priority.
func (f *Formatter) FormatRecord(rec Attributes) []Row {
	rows := make([]Row, 0, len(rec)+1)
	for _, a := range rec {
		label := Label(a.Name)
		value := Text(a.Value)
		if a.Name != CategoryField {
			rows = append(rows, Row{Label: label, Value: value})
			continue
		}
		code := strings.TrimSpace(value)
		rows = append(rows,
			Row{Label: label, Value: f.describe(code)},
			Row{Label: PriorityLabel, Value: f.priority(code)},
		)
	}
	return rows
}

// Format renders a whole feature.
func (f *Formatter) Format(feat Feature) Panel {
	name, suffix := SplitAddress(feat.Address)
	p := Panel{
		Name:            name,
		Suffix:          suffix,
		HighestPriority: feat.HighestPriority,
		Count:           feat.Count,
		Entries:         make([][]Row, 0, len(feat.Records)),
	}
	for _, rec := range feat.Records {
		p.Entries = append(p.Entries, f.FormatRecord(rec))
	}
	return p
}

func (f *Formatter) describe(code string) string {
	if f == nil || f.Lookup == nil {
		return code
	}
	return f.Lookup.Describe(code)
}

func (f *Formatter) priority(code string) string {
	if f == nil || f.Lookup == nil {
		return catalog.UnknownPriorityLabel
	}
	return f.Lookup.PriorityLabel(code)
}

// Label turns a field name into a display label.
func Label(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// SplitAddress splits a rolled-up address into its lower-cased name and
// the six-character suffix. Shorter addresses are all suffix.
func SplitAddress(addr string) (name, suffix string) {
	r := []rune(addr)
	if len(r) < suffixLen {
		return "", addr
	}
	cut := len(r) - suffixLen
	return cases.Lower(language.Und).String(string(r[:cut])), string(r[cut:])
}
