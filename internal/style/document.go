package style

import (
	"bytes"
	"embed"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

//go:embed assets/dark-matter.json
var assets embed.FS

// BeforeLayer is the basemap layer complaint layers are drawn under, so
// street names stay legible.
const BeforeLayer = "highway_name_other"

// Source is a style source. Only vector sources are used.
type Source struct {
	Type        string   `json:"type" doc:"Source type" example:"vector"`
	URL         string   `json:"url,omitempty" doc:"TileJSON or pmtiles:// URL"`
	Tiles       []string `json:"tiles,omitempty" doc:"Tile URL templates"`
	MinZoom     int      `json:"minzoom,omitempty" doc:"Minimum zoom with data"`
	MaxZoom     int      `json:"maxzoom,omitempty" doc:"Maximum zoom with data"`
	Attribution string   `json:"attribution,omitempty" doc:"Attribution HTML"`
}

// Document is a MapLibre style (version 8). Layers holds basemap layers
// verbatim (json.RawMessage) next to complaint LayerSpecs.
type Document struct {
	Version int               `json:"version" doc:"Style spec version" example:"8"`
	Name    string            `json:"name,omitempty" doc:"Style name"`
	Center  []float64         `json:"center,omitempty" doc:"Initial [lon, lat]"`
	Zoom    float64           `json:"zoom,omitempty" doc:"Initial zoom"`
	Pitch   float64           `json:"pitch,omitempty" doc:"Initial pitch"`
	Sources map[string]Source `json:"sources" doc:"Style sources"`
	Glyphs  string            `json:"glyphs,omitempty" doc:"Glyph URL template"`
	Sprite  string            `json:"sprite,omitempty" doc:"Sprite URL"`
	Layers  []any             `json:"layers" doc:"Basemap and complaint layers"`
}

// Basemap is the part of a style document the complaint map is drawn on.
type Basemap struct {
	Glyphs string            `json:"glyphs"`
	Sprite string            `json:"sprite"`
	Layers []json.RawMessage `json:"layers"`
}

// ReadBasemap decodes the layers, glyphs and sprite of a style document.
func ReadBasemap(r io.Reader) (*Basemap, error) {
	var b Basemap
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, eris.Wrap(err, "style: decode basemap")
	}
	return &b, nil
}

// LoadBasemap reads a basemap style from disk, or the embedded dark style
// when path is empty.
func LoadBasemap(path string) (*Basemap, error) {
	if path == "" {
		data, err := assets.ReadFile("assets/dark-matter.json")
		if err != nil {
			return nil, eris.Wrap(err, "style: embedded basemap")
		}
		return ReadBasemap(bytes.NewReader(data))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "style: open basemap %s", path)
	}
	defer f.Close()
	return ReadBasemap(f)
}

// LayerIDs lists the ids of the basemap layers.
func (b *Basemap) LayerIDs() []string {
	ids := make([]string, 0, len(b.Layers))
	for _, raw := range b.Layers {
		ids = append(ids, rawLayerID(raw))
	}
	return ids
}

func rawLayerID(raw json.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}

// Has reports whether the basemap has a layer with id.
func (b *Basemap) Has(id string) bool {
	for _, lid := range b.LayerIDs() {
		if lid == id {
			return true
		}
	}
	return false
}

// Compose assembles a style document. Overlays are inserted before the
// basemap layer named before, or appended when it does not exist.
func Compose(base *Basemap, sources map[string]Source, overlays []LayerSpec, before string) Document {
	doc := Document{
		Version: 8,
		Sources: sources,
		Layers:  make([]any, 0, len(base.Layers)+len(overlays)),
	}
	doc.Glyphs = base.Glyphs
	doc.Sprite = base.Sprite

	inserted := len(overlays) == 0
	for _, raw := range base.Layers {
		if !inserted && rawLayerID(raw) == before {
			for _, l := range overlays {
				doc.Layers = append(doc.Layers, l)
			}
			inserted = true
		}
		doc.Layers = append(doc.Layers, raw)
	}
	if !inserted {
		for _, l := range overlays {
			doc.Layers = append(doc.Layers, l)
		}
	}
	return doc
}
