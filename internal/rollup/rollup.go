// Package rollup groups complaint records into one point feature per
// building, the shape the map's tiles carry.
package rollup

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
	"github.com/joeblew999/nyc-dob-map/internal/style"
)

// Complaint is one DOB complaint. The tagged fields are what the detail
// panel lists, in this order.
type Complaint struct {
	Number         string  `json:"complaint_number"`
	BIN            string  `json:"bin"`
	HouseNumber    string  `json:"-"`
	HouseStreet    string  `json:"-"`
	ZipCode        string  `json:"-"`
	Unit           string  `json:"unit,omitempty"`
	Category       string  `json:"complaint_category"`
	DateEntered    string  `json:"date_entered,omitempty"`
	InspectionDate string  `json:"inspection_date,omitempty"`
	CommunityBoard string  `json:"community_board,omitempty"`
	Latitude       float64 `json:"-"`
	Longitude      float64 `json:"-"`
}

// Address is the building address shown in the panel header: house
// number and street, then the zip code as a fixed six character tail.
func (c Complaint) Address() string {
	name := strings.Join(strings.Fields(c.HouseNumber+" "+c.HouseStreet), " ")
	zip := strings.TrimSpace(c.ZipCode)
	if len(zip) > 5 {
		zip = zip[:5]
	}
	return name + fmt.Sprintf(" %5s", zip)
}

// Point returns the complaint location, false when it has none.
func (c Complaint) Point() (orb.Point, bool) {
	lat, lon := c.Latitude, c.Longitude
	if math.IsNaN(lat) || math.IsNaN(lon) || (lat == 0 && lon == 0) {
		return orb.Point{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// Priorities resolves the priority of a category code.
type Priorities interface {
	Priority(code string) catalog.Priority
}

// Stats summarizes a rollup.
type Stats struct {
	Complaints int `json:"complaints" doc:"Records read"`
	Buildings  int `json:"buildings" doc:"Features written"`
	Skipped    int `json:"skipped" doc:"Records without a building id or location"`
}

// Property names of a building feature besides the category and
// priority attributes the layers read.
const (
	AddressProp = "address"
	BINProp     = "bin"
	CountProp   = "count"
	DataProp    = "data"
)

type building struct {
	bin        string
	address    string
	point      orb.Point
	located    bool
	best       catalog.Priority
	categories []string
	records    []Complaint
}

// Build groups complaints by BIN. Features come out sorted by BIN.
// Priorities may be nil, in which case no feature carries a priority.
func Build(complaints []Complaint, priorities Priorities) (*geojson.FeatureCollection, Stats) {
	stats := Stats{Complaints: len(complaints)}
	byBIN := map[string]*building{}

	for _, c := range complaints {
		bin := strings.TrimSpace(c.BIN)
		if bin == "" {
			stats.Skipped++
			continue
		}
		b, ok := byBIN[bin]
		if !ok {
			b = &building{bin: bin, address: c.Address(), best: catalog.PriorityUnknown}
			byBIN[bin] = b
		}
		if !b.located {
			b.point, b.located = c.Point()
		}

		code := strings.TrimSpace(c.Category)
		if code != "" && !slices.Contains(b.categories, code) {
			b.categories = append(b.categories, code)
		}
		if priorities != nil && code != "" {
			if p := priorities.Priority(code); p.Rank() < b.best.Rank() {
				b.best = p
			}
		}
		c.BIN = bin
		c.Category = code
		b.records = append(b.records, c)
	}

	bins := make([]string, 0, len(byBIN))
	for bin, b := range byBIN {
		if !b.located {
			stats.Skipped += len(b.records)
			continue
		}
		bins = append(bins, bin)
	}
	slices.Sort(bins)

	fc := geojson.NewFeatureCollection()
	for _, bin := range bins {
		fc.Append(byBIN[bin].feature())
	}
	stats.Buildings = len(fc.Features)
	return fc, stats
}

func (b *building) feature() *geojson.Feature {
	f := geojson.NewFeature(b.point)
	f.Properties[AddressProp] = b.address
	f.Properties[BINProp] = b.bin
	f.Properties[CountProp] = len(b.records)
	f.Properties[style.CategoriesProp] = style.EncodeCategories(b.categories)
	if b.best.Known() {
		f.Properties[style.PriorityProp] = string(b.best)
	}
	data, _ := json.Marshal(b.records)
	f.Properties[DataProp] = string(data)
	return f
}
