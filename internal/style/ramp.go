package style

import (
	"sort"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
)

// ColorRamp maps a priority letter to a circle color. It is total: any
// priority outside A-D gets Default.
type ColorRamp struct {
	A       string `json:"A" doc:"Color for priority A"`
	B       string `json:"B" doc:"Color for priority B"`
	C       string `json:"C" doc:"Color for priority C"`
	D       string `json:"D" doc:"Color for priority D"`
	Default string `json:"default" doc:"Color for unknown priorities"`
}

// Heat runs from red (A) to yellow (D) with a neutral grey for unknown.
var Heat = ColorRamp{
	A:       "#d7191c",
	B:       "#f46d43",
	C:       "#fdae61",
	D:       "#fee08b",
	Default: "#9e9e9e",
}

// Plasma is the palette the first deployment of the map shipped with.
var Plasma = ColorRamp{
	A:       "#6e40aa",
	B:       "#417de0",
	C:       "#1ac7c2",
	D:       "#40f373",
	Default: "#aff05b",
}

// Scheme returns a named color ramp.
func Scheme(name string) (ColorRamp, bool) {
	switch name {
	case "heat", "":
		return Heat, true
	case "plasma":
		return Plasma, true
	}
	return ColorRamp{}, false
}

// Color returns the color for p.
func (r ColorRamp) Color(p catalog.Priority) string {
	switch p {
	case catalog.PriorityA:
		return r.A
	case catalog.PriorityB:
		return r.B
	case catalog.PriorityC:
		return r.C
	case catalog.PriorityD:
		return r.D
	}
	return r.Default
}

// Expression returns the data-driven match over a feature property.
func (r ColorRamp) Expression(prop string) Expression {
	return Expression{
		"match", Get(prop),
		"A", r.A,
		"B", r.B,
		"C", r.C,
		"D", r.D,
		r.Default,
	}
}

// LegendItem defines a legend entry.
type LegendItem struct {
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}

// Legend lists the ramp from most to least severe.
func (r ColorRamp) Legend() []LegendItem {
	return []LegendItem{
		{Label: "Priority A", Color: r.A},
		{Label: "Priority B", Color: r.B},
		{Label: "Priority C", Color: r.C},
		{Label: "Priority D", Color: r.D},
		{Label: "Unknown", Color: r.Default},
	}
}

// Stop is one step of a radius ramp: from Zoom upward the radius is Radius.
type Stop struct {
	Zoom   float64 `json:"zoom" mapstructure:"zoom"`
	Radius float64 `json:"radius" mapstructure:"radius"`
}

// RadiusRamp is a non-decreasing step function of zoom.
type RadiusRamp struct {
	base  float64
	stops []Stop
}

// DefaultRadius grows circles from 1.75px at city scale to 10px at street scale.
var DefaultRadius = NewRadiusRamp(1.75,
	Stop{Zoom: 11, Radius: 2.5},
	Stop{Zoom: 12, Radius: 3},
	Stop{Zoom: 13, Radius: 3.5},
	Stop{Zoom: 15, Radius: 5},
	Stop{Zoom: 17, Radius: 7},
	Stop{Zoom: 20, Radius: 10},
)

// NewRadiusRamp sorts stops by zoom and raises any radius that is smaller
// than the one before it, so the ramp never shrinks as zoom grows. Stops at
// the same zoom collapse into the largest radius.
func NewRadiusRamp(base float64, stops ...Stop) RadiusRamp {
	sorted := make([]Stop, len(stops))
	copy(sorted, stops)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Zoom < sorted[j].Zoom })

	r := RadiusRamp{base: base}
	last := base
	for _, s := range sorted {
		if s.Radius < last {
			s.Radius = last
		}
		if n := len(r.stops); n > 0 && r.stops[n-1].Zoom == s.Zoom {
			r.stops[n-1].Radius = s.Radius
		} else {
			r.stops = append(r.stops, s)
		}
		last = s.Radius
	}
	return r
}

// Base is the radius below the first stop.
func (r RadiusRamp) Base() float64 { return r.base }

// Stops returns the normalized stops.
func (r RadiusRamp) Stops() []Stop {
	out := make([]Stop, len(r.stops))
	copy(out, r.stops)
	return out
}

// Radius evaluates the ramp at zoom.
func (r RadiusRamp) Radius(zoom float64) float64 {
	radius := r.base
	for _, s := range r.stops {
		if zoom < s.Zoom {
			break
		}
		radius = s.Radius
	}
	return radius
}

// Expression returns the ["step", ["zoom"], ...] form.
func (r RadiusRamp) Expression() Expression {
	e := Expression{"step", Zoom(), r.base}
	for _, s := range r.stops {
		e = append(e, s.Zoom, s.Radius)
	}
	return e
}

// IsZero reports whether the ramp was never built.
func (r RadiusRamp) IsZero() bool {
	return r.base == 0 && len(r.stops) == 0
}
