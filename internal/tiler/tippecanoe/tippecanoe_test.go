package tippecanoe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeblew999/nyc-dob-map/internal/tiler"
)

func TestArgs(t *testing.T) {
	args := Args("in.geojson", "out.pmtiles", tiler.TileConfig{Layer: "nycdob_rollup", MinZoom: 10, MaxZoom: 16, Attribution: "NYC DOB"})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-o out.pmtiles")
	assert.Contains(t, joined, "-l nycdob_rollup")
	assert.Contains(t, joined, "-Z 10")
	assert.Contains(t, joined, "-z 14", "clamped to the deepest zoom")
	assert.Contains(t, joined, "-A NYC DOB")
	assert.NotContains(t, joined, "-N")
	assert.Equal(t, "in.geojson", args[len(args)-1])
}

func TestPercent(t *testing.T) {
	pct, ok := Percent("99.9%  11/603/769")
	assert.True(t, ok)
	assert.InDelta(t, 99.9, pct, 1e-9)

	_, ok = Percent("For layer 0, using name \"nycdob_rollup\"")
	assert.False(t, ok)
	_, ok = Percent("")
	assert.False(t, ok)
}

func TestRelay(t *testing.T) {
	var got []int
	cfg := tiler.TileConfig{Progress: func(p int, _ string) { got = append(got, p) }}

	last := relay(strings.NewReader("10%  1/0/0\r50%  2/1/1\r\nsomething broke\n"), cfg)
	assert.Equal(t, []int{18, 50}, got)
	assert.Equal(t, "something broke", last)
}

func TestMissingBinary(t *testing.T) {
	e := New("definitely-not-a-tippecanoe-binary")
	assert.False(t, e.Available())
	assert.Equal(t, "tippecanoe", e.Name())
}
