package detail

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/nyc-dob-map/internal/catalog"
)

func formatter(t *testing.T) *Formatter {
	t.Helper()
	set, err := catalog.Default()
	require.NoError(t, err)
	return NewFormatter(set)
}

func TestFormatLegacyCategory(t *testing.T) {
	rows := formatter(t).FormatRecord(Attributes{{Name: "complaint_category", Value: "41"}})
	assert.Equal(t, []Row{
		{Label: "complaint category", Value: "ELEVATOR"},
		{Label: "Priority", Value: "B"},
	}, rows)
}

func TestFormatCurrentOnlyCategory(t *testing.T) {
	rows := formatter(t).FormatRecord(Attributes{{Name: "complaint_category", Value: "1Z"}})
	assert.Equal(t, []Row{
		{Label: "complaint category", Value: "ENFORCEMENT WORK ORDER (DOB)"},
		{Label: "Priority", Value: "Unknown Priority (category post-2021)"},
	}, rows)
}

func TestFormatUnknownCategory(t *testing.T) {
	rows := formatter(t).FormatRecord(Attributes{{Name: "complaint_category", Value: "ZZ"}})
	assert.Equal(t, []Row{
		{Label: "complaint category", Value: "ZZ"},
		{Label: "Priority", Value: catalog.UnknownPriorityLabel},
	}, rows)
}

func TestFormatWithoutLookup(t *testing.T) {
	rows := (&Formatter{}).FormatRecord(Attributes{{Name: "complaint_category", Value: "41"}})
	assert.Equal(t, "41", rows[0].Value)
	assert.Equal(t, catalog.UnknownPriorityLabel, rows[1].Value)
}

func TestFormatEndToEnd(t *testing.T) {
	feat, err := ParseFeatureJSON([]byte(`{"bin":"1000123","unit":"4A","complaint_category":"41","address":"123456MAIN ST100001"}`))
	require.NoError(t, err)

	panel := formatter(t).Format(feat)
	assert.Equal(t, "123456main st", panel.Name)
	assert.Equal(t, "100001", panel.Suffix)
	require.Len(t, panel.Entries, 1)
	assert.Equal(t, []Row{
		{Label: "bin", Value: "1000123"},
		{Label: "unit", Value: "4A"},
		{Label: "complaint category", Value: "ELEVATOR"},
		{Label: "Priority", Value: "B"},
	}, panel.Entries[0])
}

func TestParseFeatureWithData(t *testing.T) {
	data := `[{"complaint_number":"1","complaint_category":"05","date_entered":"01/02/2021"},{"complaint_number":"2","complaint_category":"1Z"}]`
	props, err := json.Marshal(map[string]any{
		"address":             "1 BROADWAY10004",
		"bin":                 1000001,
		"count":               2,
		"highestPriority":     "B",
		"complaintCategories": `["05","1Z"]`,
		"data":                data,
	})
	require.NoError(t, err)

	feat, err := ParseFeatureJSON(props)
	require.NoError(t, err)
	assert.Equal(t, "1 BROADWAY10004", feat.Address)
	assert.Equal(t, "B", feat.HighestPriority)
	require.NotNil(t, feat.Count)
	assert.Equal(t, 2, *feat.Count)
	assert.Equal(t, []string{"05", "1Z"}, feat.Categories)
	assert.Equal(t, Attributes{{Name: "bin", Value: json.Number("1000001")}}, feat.Extra)
	require.Len(t, feat.Records, 2)
	assert.Equal(t, []string{"complaint_number", "complaint_category", "date_entered"}, names(feat.Records[0]))

	panel := formatter(t).Format(feat)
	assert.Equal(t, "1 broadwa", panel.Name)
	assert.Equal(t, "Y10004", panel.Suffix)
	assert.Equal(t, []Row{
		{Label: "complaint number", Value: "1"},
		{Label: "complaint category", Value: "PERMIT - NONE (BUILDING/PA/DEMO ETC.)"},
		{Label: "Priority", Value: "B"},
		{Label: "date entered", Value: "01/02/2021"},
	}, panel.Entries[0])
}

func TestParseFeatureBadDataFallsBack(t *testing.T) {
	feat := ParseFeature(Attributes{
		{Name: "bin", Value: "1"},
		{Name: "data", Value: "not json"},
	})
	assert.Equal(t, []Attributes{{{Name: "bin", Value: "1"}}}, feat.Records)
}

func TestParseFeatureDecodedData(t *testing.T) {
	feat := ParseFeature(Attributes{
		{Name: "data", Value: []any{map[string]any{"unit": "4A", "bin": "9"}}},
	})
	require.Len(t, feat.Records, 1)
	assert.Equal(t, []string{"bin", "unit"}, names(feat.Records[0]))
}

func TestParseFeatureJSONRejectsNonObject(t *testing.T) {
	_, err := ParseFeatureJSON([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = ParseFeatureJSON([]byte(`{"a":1} {}`))
	assert.Error(t, err)
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		addr, name, suffix string
	}{
		{"123456MAIN ST100001", "123456main st", "100001"},
		{"100001", "", "100001"},
		{"ABC", "", "ABC"},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, suffix := SplitAddress(tt.addr)
		assert.Equal(t, tt.name, name, tt.addr)
		assert.Equal(t, tt.suffix, suffix, tt.addr)
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "1000123", Text(json.Number("1000123")))
	assert.Equal(t, "1.5", Text(json.Number("1.50")))
	assert.Equal(t, "12345678901234567890", Text(json.Number("12345678901234567890")))
	assert.Equal(t, "-9007199254740993", Text(json.Number("-9007199254740993")))
	assert.Equal(t, "1200", Text(json.Number("1.2e3")))
	assert.Equal(t, "7", Text(7))
	assert.Equal(t, "40.7", Text(40.7))
	assert.Equal(t, "true", Text(true))
	assert.Equal(t, `{"a":1}`, Text(map[string]any{"a": 1}))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "inspection date", Label("inspection_date"))
	assert.Equal(t, "bin", Label("bin"))
}

func names(as Attributes) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Name
	}
	return out
}
