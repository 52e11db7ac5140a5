package detail

import (
	"slices"
	"strconv"
	"strings"

	"github.com/joeblew999/nyc-dob-map/internal/style"
)

// Field names of a rolled-up building feature.
const (
	AddressField    = "address"
	PriorityField   = style.PriorityProp
	CountField      = "count"
	CategoriesField = style.CategoriesProp
	DataField       = "data"
	CategoryField   = "complaint_category"
)

// Feature is the selected building. Records holds one attribute bag per
// complaint; Extra holds the fields not named here.
type Feature struct {
	Address         string       `json:"address,omitempty"`
	HighestPriority string       `json:"highestPriority,omitempty"`
	Count           *int         `json:"count,omitempty"`
	Categories      []string     `json:"complaintCategories,omitempty"`
	Records         []Attributes `json:"records"`
	Extra           Attributes   `json:"extra,omitempty"`
}

// ParseFeature splits a feature's attribute bag into its named fields.
// When the bag carries a decodable data field its records are the
// complaints; otherwise the remaining fields are the single record.
func ParseFeature(bag Attributes) Feature {
	f := Feature{
		Address:         bag.String(AddressField),
		HighestPriority: bag.String(PriorityField),
		Count:           parseCount(bag),
		Extra:           bag.Without(AddressField, PriorityField, CountField, CategoriesField, DataField),
	}
	if v, ok := bag.Get(CategoriesField); ok {
		f.Categories = parseCategories(v)
	}
	if v, ok := bag.Get(DataField); ok {
		f.Records = parseRecords(v)
	}
	if f.Records == nil {
		f.Records = []Attributes{f.Extra}
	}
	return f
}

// ParseFeatureJSON parses a JSON object of feature properties.
func ParseFeatureJSON(data []byte) (Feature, error) {
	bag, err := DecodeAttributes(data)
	if err != nil {
		return Feature{}, err
	}
	return ParseFeature(bag), nil
}

func parseCount(bag Attributes) *int {
	v, ok := bag.Get(CountField)
	if !ok || v == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(Text(v)))
	if err != nil {
		return nil
	}
	return &n
}

func parseCategories(v any) []string {
	switch x := v.(type) {
	case string:
		return style.DecodeCategories(x)
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, c := range x {
			out = append(out, Text(c))
		}
		return out
	}
	return nil
}

// parseRecords accepts the data field either still JSON-encoded, as tiles
// carry it, or already decoded.
func parseRecords(v any) []Attributes {
	switch x := v.(type) {
	case string:
		recs, err := DecodeRecords([]byte(x))
		if err != nil {
			return nil
		}
		return recs
	case []Attributes:
		return x
	case []any:
		out := make([]Attributes, 0, len(x))
		for _, item := range x {
			switch rec := item.(type) {
			case Attributes:
				out = append(out, rec)
			case map[string]any:
				out = append(out, fromMap(rec))
			}
		}
		return out
	}
	return nil
}

// fromMap has no order to keep, so fields come out sorted by name.
func fromMap(m map[string]any) Attributes {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	out := make(Attributes, 0, len(names))
	for _, n := range names {
		out = append(out, Attribute{Name: n, Value: m[n]})
	}
	return out
}
