// Package style builds the MapLibre layers and style documents of the
// complaints map from a complaint-category catalog.
package style

import (
	"encoding/json"
	"strings"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
)

const (
	// AggregateID is the layer drawing every complaint regardless of category.
	AggregateID = "nyc-dob"

	// AggregateLabel is the panel label of the aggregate layer.
	AggregateLabel = "All Complaint Types"

	// CategoriesProp is the multi-valued tile attribute listing a building's categories.
	CategoriesProp = "complaintCategories"

	// PriorityProp is the tile attribute holding a building's highest priority letter.
	PriorityProp = "highestPriority"

	layerPrefix = "nyc-"
)

// LayerID returns the layer id of a category.
func LayerID(code string) string {
	return layerPrefix + code
}

// CodeFromID returns the category code of a per-category layer id.
func CodeFromID(id string) (string, bool) {
	if id == AggregateID {
		return "", false
	}
	return strings.CutPrefix(id, layerPrefix)
}

// EncodeCategories renders a category list the way it is stored in tiles:
// vector tiles have no list type, so the list is a JSON string.
func EncodeCategories(codes []string) string {
	if codes == nil {
		codes = []string{}
	}
	b, _ := json.Marshal(codes)
	return string(b)
}

// DecodeCategories parses EncodeCategories output. Anything else yields
// nil: the layer filters only match JSON-encoded lists.
func DecodeCategories(s string) []string {
	var codes []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &codes); err != nil {
		return nil
	}
	return codes
}

// categoryNeedle is the quoted code searched for inside the encoded list.
// Quoting keeps "1" from matching inside "41".
func categoryNeedle(code string) string {
	b, _ := json.Marshal(code)
	return string(b)
}

// Layout is the layout block of a circle layer.
type Layout struct {
	Visibility string `json:"visibility" enum:"visible,none" doc:"Initial layer visibility"`
}

// CirclePaint is the paint block of a circle layer.
type CirclePaint struct {
	CircleColor   Expression `json:"circle-color" doc:"Priority color expression"`
	CircleOpacity float64    `json:"circle-opacity" doc:"Circle opacity (0-1)"`
	CircleRadius  Expression `json:"circle-radius" doc:"Zoom radius expression"`
}

// Metadata carries the non-rendering attributes of a layer.
type Metadata struct {
	Category string `json:"category,omitempty" doc:"Category code, empty for the aggregate layer" example:"41"`
	Label    string `json:"label" doc:"Panel label" example:"ELEVATOR"`
	Visible  bool   `json:"visible" doc:"Whether the layer is drawn initially"`
}

// LayerSpec is one renderable complaint layer.
type LayerSpec struct {
	ID          string      `json:"id" doc:"Unique layer identifier" example:"nyc-41"`
	Type        string      `json:"type" doc:"MapLibre layer type" example:"circle"`
	Source      string      `json:"source" doc:"Style source id" example:"dobTiles"`
	SourceLayer string      `json:"source-layer" doc:"Layer name within the tile archive" example:"nycdob_rollup"`
	Filter      Expression  `json:"filter,omitempty" doc:"Category membership filter"`
	Layout      Layout      `json:"layout"`
	Paint       CirclePaint `json:"paint"`
	Metadata    Metadata    `json:"metadata"`
}

// IsAggregate reports whether l is the all-categories layer.
func (l LayerSpec) IsAggregate() bool {
	return l.ID == AggregateID
}

// InitialVisible reports whether the layer starts drawn.
func (l LayerSpec) InitialVisible() bool {
	return l.Metadata.Visible
}

// Matches evaluates the layer filter against a feature's categories.
func (l LayerSpec) Matches(categories []string) bool {
	if l.IsAggregate() {
		return true
	}
	encoded := EncodeCategories(categories)
	return strings.Contains(encoded, categoryNeedle(l.Metadata.Category))
}

// Options controls layer construction.
type Options struct {
	Source      string
	SourceLayer string
	Ramp        ColorRamp
	Radius      RadiusRamp
	Opacity     float64
	// Allow restricts which codes get a layer of their own. Empty means all.
	Allow []string
}

// DefaultSource and DefaultSourceLayer name the complaint tiles in the style.
const (
	DefaultSource      = "dobTiles"
	DefaultSourceLayer = "nycdob_rollup"
)

func (o Options) withDefaults() Options {
	if o.Source == "" {
		o.Source = DefaultSource
	}
	if o.SourceLayer == "" {
		o.SourceLayer = DefaultSourceLayer
	}
	if o.Ramp == (ColorRamp{}) {
		o.Ramp = Heat
	}
	if o.Radius.IsZero() {
		o.Radius = DefaultRadius
	}
	if o.Opacity <= 0 || o.Opacity > 1 {
		o.Opacity = 0.9
	}
	return o
}

// Build derives the ordered layer list from a catalog: the aggregate layer
// first, then one layer per category in catalog order.
func Build(cat *catalog.Catalog, opts Options) []LayerSpec {
	opts = opts.withDefaults()

	var allow map[string]bool
	if len(opts.Allow) > 0 {
		allow = make(map[string]bool, len(opts.Allow))
		for _, code := range opts.Allow {
			allow[strings.TrimSpace(code)] = true
		}
	}

	layers := []LayerSpec{newLayer(AggregateID, "", AggregateLabel, true, nil, opts)}
	if cat == nil {
		return layers
	}
	for _, c := range cat.Categories() {
		if allow != nil && !allow[c.Code] {
			continue
		}
		filter := All(In(categoryNeedle(c.Code), Get(CategoriesProp)))
		layers = append(layers, newLayer(LayerID(c.Code), c.Code, c.Description, false, filter, opts))
	}
	return layers
}

func newLayer(id, code, label string, visible bool, filter Expression, opts Options) LayerSpec {
	if label == "" {
		label = code
	}
	return LayerSpec{
		ID:          id,
		Type:        "circle",
		Source:      opts.Source,
		SourceLayer: opts.SourceLayer,
		Filter:      filter,
		Layout:      Layout{Visibility: Visibility(visible)},
		Paint: CirclePaint{
			CircleColor:   opts.Ramp.Expression(PriorityProp),
			CircleOpacity: opts.Opacity,
			CircleRadius:  opts.Radius.Expression(),
		},
		Metadata: Metadata{Category: code, Label: label, Visible: visible},
	}
}

// Visibility converts a flag to the MapLibre layout value.
func Visibility(visible bool) string {
	if visible {
		return "visible"
	}
	return "none"
}

// IDs lists the layer ids in order.
func IDs(layers []LayerSpec) []string {
	ids := make([]string, len(layers))
	for i, l := range layers {
		ids[i] = l.ID
	}
	return ids
}
