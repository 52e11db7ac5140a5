package service

import (
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
	"github.com/joeblew999/nyc-dob-map/internal/config"
	"github.com/joeblew999/nyc-dob-map/internal/detail"
	"github.com/joeblew999/nyc-dob-map/internal/style"
)

// BasemapSource is the style source id of the basemap tiles.
const BasemapSource = "openmaptiles"

// MapService serves the configured map variants: their layer lists and
// style documents. Layer lists are built once per variant.
type MapService struct {
	cfg       *config.Config
	set       *catalog.Set
	basemap   *style.Basemap
	formatter *detail.Formatter

	mu     sync.Mutex
	layers map[string][]style.LayerSpec
}

// NewMapService creates a map service over loaded catalogs and basemap.
func NewMapService(cfg *config.Config, set *catalog.Set, basemap *style.Basemap) *MapService {
	return &MapService{
		cfg:       cfg,
		set:       set,
		basemap:   basemap,
		formatter: detail.NewFormatter(set),
		layers:    make(map[string][]style.LayerSpec),
	}
}

// Config returns the configuration the service was built with.
func (s *MapService) Config() *config.Config { return s.cfg }

// Catalogs returns the category catalogs.
func (s *MapService) Catalogs() *catalog.Set { return s.set }

// Formatter returns the detail formatter shared by all views.
func (s *MapService) Formatter() *detail.Formatter { return s.formatter }

// Variants returns the configured variants in order.
func (s *MapService) Variants() []style.Variant {
	return s.cfg.Variants
}

// Variant returns the variant called name; "" names the default.
func (s *MapService) Variant(name string) (style.Variant, error) {
	if name == "" {
		name = s.cfg.Map.DefaultVariant
	}
	v, ok := s.cfg.Variant(name)
	if !ok {
		return style.Variant{}, eris.Wrapf(ErrVariantNotFound, "%q", name)
	}
	return v, nil
}

// Options returns the layer options of a variant with the map-wide
// radius and opacity applied.
func (s *MapService) Options(v style.Variant) (style.Options, error) {
	opts, err := v.Options()
	if err != nil {
		return style.Options{}, err
	}
	opts.Radius = s.cfg.Map.Radius.Ramp()
	if s.cfg.Map.Opacity > 0 {
		opts.Opacity = s.cfg.Map.Opacity
	}
	return opts, nil
}

// Layers returns the ordered layer list of a variant.
func (s *MapService) Layers(name string) ([]style.LayerSpec, error) {
	v, err := s.Variant(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if layers, ok := s.layers[v.Name]; ok {
		return layers, nil
	}

	cat, ok := s.set.Catalog(v.Vintage)
	if !ok {
		return nil, eris.Errorf("variant %q: no catalog for vintage %q", v.Name, v.Vintage)
	}
	opts, err := s.Options(v)
	if err != nil {
		return nil, err
	}
	layers := style.Build(cat, opts)
	s.layers[v.Name] = layers
	return layers, nil
}

// Layer returns one layer of a variant.
func (s *MapService) Layer(name, id string) (style.LayerSpec, error) {
	layers, err := s.Layers(name)
	if err != nil {
		return style.LayerSpec{}, err
	}
	for _, l := range layers {
		if l.ID == id {
			return l, nil
		}
	}
	return style.LayerSpec{}, eris.Wrapf(ErrLayerNotFound, "%q in variant %q", id, name)
}

// Legend returns the priority legend of a variant.
func (s *MapService) Legend(name string) ([]style.LegendItem, error) {
	v, err := s.Variant(name)
	if err != nil {
		return nil, err
	}
	ramp, ok := style.Scheme(v.Scheme)
	if !ok {
		return nil, eris.Errorf("variant %q: unknown color scheme %q", v.Name, v.Scheme)
	}
	return ramp.Legend(), nil
}

// Before returns the basemap layer complaint layers are inserted under,
// or "" when the basemap has no such layer.
func (s *MapService) Before() string {
	if s.basemap != nil && s.basemap.Has(style.BeforeLayer) {
		return style.BeforeLayer
	}
	return ""
}

// Style assembles the style document of a variant. baseURL is the
// server's external origin; archives are served under /tiles. With
// overlays false the document holds the basemap only and the complaint
// layers are added by the viewer once the map has loaded.
func (s *MapService) Style(name, baseURL string, overlays bool) (style.Document, error) {
	v, err := s.Variant(name)
	if err != nil {
		return style.Document{}, err
	}
	var layers []style.LayerSpec
	if overlays {
		if layers, err = s.Layers(v.Name); err != nil {
			return style.Document{}, err
		}
	}

	base := strings.TrimRight(baseURL, "/")
	sources := map[string]style.Source{
		BasemapSource: {
			Type:        "vector",
			URL:         "pmtiles://" + base + "/tiles/" + s.cfg.Map.BasemapArchive,
			MinZoom:     6,
			MaxZoom:     14,
			Attribution: s.cfg.Map.Attribution,
		},
		style.DefaultSource: {
			Type:        "vector",
			URL:         "pmtiles://" + base + "/tiles/" + v.Archive,
			MinZoom:     6,
			MaxZoom:     14,
			Attribution: `<a href="https://www.nyc.gov/site/buildings/">NYC DOB</a>`,
		},
	}

	basemap := s.basemap
	if basemap == nil {
		basemap = &style.Basemap{}
	}
	doc := style.Compose(basemap, sources, layers, s.Before())
	doc.Name = v.Title
	doc.Center = s.cfg.Map.Center
	doc.Zoom = s.cfg.Map.Zoom
	doc.Pitch = s.cfg.Map.Pitch
	if strings.HasPrefix(doc.Glyphs, "/") {
		doc.Glyphs = base + doc.Glyphs
	}
	if strings.HasPrefix(doc.Sprite, "/") {
		doc.Sprite = base + doc.Sprite
	}
	return doc, nil
}
