package tiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fake struct {
	name  string
	avail bool
}

func (f fake) Name() string    { return f.name }
func (f fake) Available() bool { return f.avail }
func (f fake) Tile(context.Context, string, string, TileConfig) error {
	return nil
}

func TestSelect(t *testing.T) {
	engines := []Tiler{fake{"tippecanoe", false}, fake{"go", true}}

	e, err := Select("", engines...)
	require.NoError(t, err)
	assert.Equal(t, "go", e.Name())

	e, err = Select(" GO ", engines...)
	require.NoError(t, err)
	assert.Equal(t, "go", e.Name())

	_, err = Select("tippecanoe", engines...)
	assert.ErrorContains(t, err, "not available")

	_, err = Select("mapnik", engines...)
	assert.ErrorContains(t, err, "unknown")

	_, err = Select("")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	c := TileConfig{MinZoom: -2, MaxZoom: 30}.Normalize()
	assert.Equal(t, 0, c.MinZoom)
	assert.Equal(t, MaxZoom, c.MaxZoom)
	assert.Equal(t, "default", c.Layer)
	assert.Equal(t, "default", c.Name)

	c = TileConfig{Layer: "x", MinZoom: 16, MaxZoom: 12}.Normalize()
	assert.Equal(t, 12, c.MinZoom)
}
