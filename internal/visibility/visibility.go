// Package visibility keeps renderer layer visibility in step with the layer
// panel. Toggle is a pure state transition; Apply performs the renderer
// side effect.
package visibility

import (
	"errors"
	"fmt"

	"github.com/joeblew999/nyc-dob-map/internal/style"
)

// Entry is the visibility of one layer.
type Entry struct {
	ID      string `json:"id" doc:"Layer id" example:"nyc-41"`
	Visible bool   `json:"visible" doc:"Whether the layer is drawn"`
}

// Entries is the ordered visibility state of a view: aggregate layer
// first, then categories in catalog order.
type Entries []Entry

// Initial returns the entries for freshly added layers.
func Initial(layers []style.LayerSpec) Entries {
	out := make(Entries, len(layers))
	for i, l := range layers {
		out[i] = Entry{ID: l.ID, Visible: l.InitialVisible()}
	}
	return out
}

// Toggle returns a copy of entries with the visible flag of id inverted.
// An unknown id yields an unchanged copy.
func Toggle(entries Entries, id string) Entries {
	out := make(Entries, len(entries))
	for i, e := range entries {
		if e.ID == id {
			e.Visible = !e.Visible
		}
		out[i] = e
	}
	return out
}

// Lookup returns the entry for id.
func (es Entries) Lookup(id string) (Entry, bool) {
	for _, e := range es {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Visible lists the ids currently drawn.
func (es Entries) Visible() []string {
	var ids []string
	for _, e := range es {
		if e.Visible {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Renderer is the part of the map renderer visibility needs.
type Renderer interface {
	SetLayoutProperty(layerID, name string, value any) error
}

// Apply sets the visibility layout property of every entry. Layers are
// independent: a failure on one does not stop the rest, and all failures
// are returned joined.
func Apply(r Renderer, entries Entries) error {
	var errs []error
	for _, e := range entries {
		if err := r.SetLayoutProperty(e.ID, "visibility", style.Visibility(e.Visible)); err != nil {
			errs = append(errs, fmt.Errorf("layer %s: %w", e.ID, err))
		}
	}
	return errors.Join(errs...)
}
