package style

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
)

func TestBuildOneLayerPerCode(t *testing.T) {
	set, err := catalog.Default()
	require.NoError(t, err)

	for _, cat := range []*catalog.Catalog{set.Legacy, set.Current} {
		t.Run(string(cat.Vintage()), func(t *testing.T) {
			layers := Build(cat, Options{})
			require.Len(t, layers, cat.Len()+1)

			assert.Equal(t, AggregateID, layers[0].ID)
			assert.True(t, layers[0].InitialVisible())
			assert.Nil(t, layers[0].Filter)

			seen := map[string]bool{}
			for _, l := range layers {
				assert.False(t, seen[l.ID], "duplicate id %s", l.ID)
				seen[l.ID] = true
			}
			for i, code := range cat.Codes() {
				l := layers[i+1]
				assert.Equal(t, LayerID(code), l.ID)
				assert.False(t, l.InitialVisible())
				assert.Equal(t, "none", l.Layout.Visibility)
				assert.Equal(t, code, l.Metadata.Category)
			}
		})
	}
}

func TestBuildAllowList(t *testing.T) {
	cat := catalog.New(catalog.Legacy, []catalog.Category{
		{Code: "01", Description: "ACCIDENT"},
		{Code: "41", Description: "ELEVATOR"},
		{Code: "86", Description: "STOP WORK"},
	})

	layers := Build(cat, Options{Allow: []string{"86", "41", "ZZ"}})
	assert.Equal(t, []string{AggregateID, "nyc-41", "nyc-86"}, IDs(layers))
}

func TestBuildNilCatalog(t *testing.T) {
	layers := Build(nil, Options{})
	assert.Equal(t, []string{AggregateID}, IDs(layers))
}

func TestMatchesIsMembership(t *testing.T) {
	cat := catalog.New(catalog.Legacy, []catalog.Category{
		{Code: "1", Description: "ONE"},
		{Code: "41", Description: "ELEVATOR"},
		{Code: "4A", Description: "ILLEGAL HOTEL"},
	})
	layers := Build(cat, Options{})
	byID := map[string]LayerSpec{}
	for _, l := range layers {
		byID[l.ID] = l
	}

	feature := []string{"41", "4A"}
	assert.True(t, byID[AggregateID].Matches(feature))
	assert.True(t, byID["nyc-41"].Matches(feature))
	assert.True(t, byID["nyc-4A"].Matches(feature))
	assert.False(t, byID["nyc-1"].Matches(feature), "substring of 41 must not match")
	assert.False(t, byID["nyc-41"].Matches(nil))
}

func TestFilterExpression(t *testing.T) {
	cat := catalog.New(catalog.Current, []catalog.Category{{Code: "41"}})
	layers := Build(cat, Options{})

	data, err := json.Marshal(layers[1].Filter)
	require.NoError(t, err)
	assert.JSONEq(t, `["all", ["in", "\"41\"", ["get", "complaintCategories"]]]`, string(data))
	assert.Equal(t, "41", layers[1].Metadata.Label, "label falls back to code")
}

func TestLayerJSONShape(t *testing.T) {
	layers := Build(catalog.New(catalog.Legacy, nil), Options{Ramp: Plasma})
	data, err := json.Marshal(layers[0])
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "circle", got["type"])
	assert.Equal(t, DefaultSource, got["source"])
	assert.Equal(t, DefaultSourceLayer, got["source-layer"])
	assert.NotContains(t, got, "filter")
	paint := got["paint"].(map[string]any)
	assert.Equal(t, 0.9, paint["circle-opacity"])
	color := paint["circle-color"].([]any)
	assert.Equal(t, "match", color[0])
	assert.Equal(t, Plasma.Default, color[len(color)-1])
}

func TestCodeFromID(t *testing.T) {
	code, ok := CodeFromID("nyc-4A")
	assert.True(t, ok)
	assert.Equal(t, "4A", code)

	_, ok = CodeFromID(AggregateID)
	assert.False(t, ok)
	_, ok = CodeFromID("other")
	assert.False(t, ok)
}

func TestCategoriesEncoding(t *testing.T) {
	assert.Equal(t, `["41","4A"]`, EncodeCategories([]string{"41", "4A"}))
	assert.Equal(t, `[]`, EncodeCategories(nil))
	assert.Equal(t, []string{"41", "4A"}, DecodeCategories(`["41","4A"]`))
	assert.Nil(t, DecodeCategories("41, 4A"))
	assert.Nil(t, DecodeCategories("41"))
	assert.Nil(t, DecodeCategories(""))
}
