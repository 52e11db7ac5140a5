package detail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Attribute is one named value of a feature.
type Attribute struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Attributes is an attribute bag in the order the tile (or the client)
// listed its fields.
type Attributes []Attribute

// Get returns the value of name.
func (as Attributes) Get(name string) (any, bool) {
	for _, a := range as {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// String returns the value of name as display text, "" when absent.
func (as Attributes) String(name string) string {
	v, _ := as.Get(name)
	return Text(v)
}

// Without returns the attributes whose names are not listed.
func (as Attributes) Without(names ...string) Attributes {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := make(Attributes, 0, len(as))
	for _, a := range as {
		if !skip[a.Name] {
			out = append(out, a)
		}
	}
	return out
}

// Map returns the attributes as a map. Order is lost.
func (as Attributes) Map() map[string]any {
	m := make(map[string]any, len(as))
	for _, a := range as {
		m[a.Name] = a.Value
	}
	return m
}

// DecodeAttributes decodes a JSON object keeping its key order. Nested
// values are decoded as plain JSON values with numbers kept as json.Number.
func DecodeAttributes(data []byte) (Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	as, err := decodeObject(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}
	return as, nil
}

// DecodeRecords decodes a JSON array of objects, each keeping its key order.
func DecodeRecords(data []byte) ([]Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var out []Attributes
	for dec.More() {
		as, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, as)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeObject(dec *json.Decoder) (Attributes, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	as := Attributes{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		as = append(as, Attribute{Name: name, Value: v})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return as, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// Text renders a primitive attribute value the way the map shows it.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			return x.String()
		}
		if f, err := x.Float64(); err == nil {
			return formatFloat(f)
		}
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
