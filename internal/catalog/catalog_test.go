package catalog

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTables(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	require.NotZero(t, set.Legacy.Len())
	require.NotZero(t, set.Current.Len())
	assert.Equal(t, Legacy, set.Legacy.Vintage())
	assert.Equal(t, Current, set.Current.Vintage())

	elevator, ok := set.Legacy.Lookup("41")
	require.True(t, ok)
	assert.Equal(t, "ELEVATOR", elevator.Description)
	assert.Equal(t, PriorityB, elevator.Priority)
}

func TestCurrentInheritsLegacyPriority(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	shared, ok := set.Current.Lookup("05")
	require.True(t, ok)
	assert.Equal(t, PriorityB, shared.Priority)

	newOnly, ok := set.Current.Lookup("8A")
	require.True(t, ok)
	assert.Equal(t, PriorityUnknown, newOnly.Priority)
}

func TestNewDropsEmptyAndDuplicateCodes(t *testing.T) {
	c := New(Legacy, []Category{
		{Code: " 01 ", Description: "first", Priority: PriorityA},
		{Code: "", Description: "blank"},
		{Code: "01", Description: "second"},
		{Code: "02", Description: "no priority"},
	})

	assert.Equal(t, []string{"01", "02"}, c.Codes())
	got, ok := c.Lookup("01")
	require.True(t, ok)
	assert.Equal(t, "first", got.Description)
	got, _ = c.Lookup("02")
	assert.Equal(t, PriorityUnknown, got.Priority)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"A", PriorityA},
		{" b ", PriorityB},
		{"c", PriorityC},
		{"D", PriorityD},
		{"E", PriorityUnknown},
		{"", PriorityUnknown},
		{"unknown", PriorityUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePriority(tt.in), "input %q", tt.in)
	}
	assert.Less(t, PriorityA.Rank(), PriorityD.Rank())
	assert.False(t, PriorityUnknown.Known())
}

func TestChainPrecedence(t *testing.T) {
	legacy := New(Legacy, []Category{{Code: "45", Description: "OLD TEXT", Priority: PriorityB}})
	current := New(Current, []Category{
		{Code: "45", Description: "NEW TEXT"},
		{Code: "1Z", Description: "ENFORCEMENT WORK ORDER (DOB)"},
	})
	set := &Set{Legacy: legacy, Current: current}
	chain := set.Chain()

	assert.Equal(t, "OLD TEXT", chain.Describe("45"))
	assert.Equal(t, "ENFORCEMENT WORK ORDER (DOB)", chain.Describe("1Z"))
	assert.Equal(t, "ZZ", chain.Describe("ZZ"))

	assert.Equal(t, "B", set.PriorityLabel("45"))
	assert.Equal(t, UnknownPriorityLabel, set.PriorityLabel("1Z"))
	assert.Equal(t, UnknownPriorityLabel, set.PriorityLabel("ZZ"))
}

func TestChainSkipsNilSources(t *testing.T) {
	var missing *Catalog
	chain := Chain{nil, missing}
	assert.Equal(t, "41", chain.Describe("41"))
}

func TestLoadFSErrors(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), LegacyFile)

	_, err = LoadFS(fstest.MapFS{
		LegacyFile:  {Data: []byte(`[]`)},
		CurrentFile: {Data: []byte(`{not json`)},
	})
	require.Error(t, err)
}

func TestReadLegacy(t *testing.T) {
	c, err := ReadLegacy(strings.NewReader(`[
		{"CODE": "86", "COMPLAINT CATEGORY DESCRIPTION": "WORK CONTRARY TO STOP WORK ORDER", "PRIORITY": "A"},
		{"CODE": "99", "COMPLAINT CATEGORY DESCRIPTION": "NO LETTER", "PRIORITY": ""}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	cat, _ := c.Lookup("99")
	assert.Equal(t, PriorityUnknown, cat.Priority)
}

func TestParseVintage(t *testing.T) {
	v, ok := ParseVintage("Legacy")
	assert.True(t, ok)
	assert.Equal(t, Legacy, v)
	v, ok = ParseVintage("2021")
	assert.True(t, ok)
	assert.Equal(t, Current, v)
	_, ok = ParseVintage("1999")
	assert.False(t, ok)
}
