package style

import (
	"github.com/rotisserie/eris"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
)

// Variant is one deployment of the map: a tile archive of a given category
// vintage, a color scheme and an optional allow-list of categories that get
// their own layer.
type Variant struct {
	Name        string          `json:"name" mapstructure:"name" doc:"Variant name" example:"current"`
	Title       string          `json:"title" mapstructure:"title" doc:"Display title" example:"Active Complaints"`
	Vintage     catalog.Vintage `json:"vintage" mapstructure:"vintage" enum:"legacy,2021" doc:"Category code vintage of the archive"`
	Archive     string          `json:"archive" mapstructure:"archive" doc:"PMTiles file under the tiles directory" example:"nyc-rollup.pmtiles"`
	SourceLayer string          `json:"sourceLayer" mapstructure:"source_layer" doc:"Layer name within the archive" example:"nycdob_rollup"`
	Scheme      string          `json:"scheme" mapstructure:"scheme" enum:"heat,plasma" doc:"Priority color scheme"`
	Allow       []string        `json:"allow,omitempty" mapstructure:"allow" doc:"Codes that get their own layer; empty means all"`
}

// DefaultVariants are the two deployments the map has had: the 2021+ rollup
// and the legacy archive.
func DefaultVariants() []Variant {
	return []Variant{
		{
			Name:        "current",
			Title:       "Active Complaints",
			Vintage:     catalog.Current,
			Archive:     "nyc-rollup.pmtiles",
			SourceLayer: DefaultSourceLayer,
			Scheme:      "plasma",
		},
		{
			Name:        "legacy",
			Title:       "Complaints (pre-2021 categories)",
			Vintage:     catalog.Legacy,
			Archive:     "nyc-dob.pmtiles",
			SourceLayer: DefaultSourceLayer,
			Scheme:      "heat",
		},
	}
}

// Options returns the layer options of the variant.
func (v Variant) Options() (Options, error) {
	ramp, ok := Scheme(v.Scheme)
	if !ok {
		return Options{}, eris.Errorf("style: variant %q: unknown color scheme %q", v.Name, v.Scheme)
	}
	return Options{
		Source:      DefaultSource,
		SourceLayer: v.SourceLayer,
		Ramp:        ramp,
		Allow:       v.Allow,
	}.withDefaults(), nil
}

// Layers builds the layer list of the variant from its vintage's catalog.
func (v Variant) Layers(set *catalog.Set) ([]LayerSpec, error) {
	cat, ok := set.Catalog(v.Vintage)
	if !ok {
		return nil, eris.Errorf("style: variant %q: no catalog for vintage %q", v.Name, v.Vintage)
	}
	opts, err := v.Options()
	if err != nil {
		return nil, err
	}
	return Build(cat, opts), nil
}
