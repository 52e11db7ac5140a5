// Package viewer serves the map page and the Datastar endpoints that keep
// the browser map in step with its server-side view.
package viewer

import (
	"github.com/joeblew999/nyc-dob-map/internal/humastar"
	"github.com/joeblew999/nyc-dob-map/internal/service"
	"github.com/joeblew999/nyc-dob-map/internal/style"
)

// mapObject is the page's map glue, defined in static/viewer.js.
const mapObject = "window.dobMap"

// scriptRenderer turns renderer commands into calls on the page's map,
// collected into one script per response.
type scriptRenderer struct {
	script *humastar.Script
}

var _ service.MapRenderer = (*scriptRenderer)(nil)

func newScriptRenderer() *scriptRenderer {
	return &scriptRenderer{script: &humastar.Script{}}
}

func (r *scriptRenderer) AddLayer(spec style.LayerSpec, before string) error {
	return r.script.Call(mapObject+".addLayer", spec, before)
}

func (r *scriptRenderer) SetLayoutProperty(layerID, name string, value any) error {
	return r.script.Call(mapObject+".setLayoutProperty", layerID, name, value)
}

func (r *scriptRenderer) FlyThrough(steps any) error {
	return r.script.Call(mapObject+".tour", steps)
}

func (r *scriptRenderer) ReloadSource(id string) error {
	return r.script.Call(mapObject+".reloadSource", id)
}
