package style

// Expression is a MapLibre style expression, e.g. ["get", "highestPriority"].
type Expression []any

// Get reads a feature property.
func Get(prop string) Expression {
	return Expression{"get", prop}
}

// Zoom is the current camera zoom.
func Zoom() Expression {
	return Expression{"zoom"}
}

// In tests whether needle occurs in haystack (substring or array element).
func In(needle any, haystack Expression) Expression {
	return Expression{"in", needle, haystack}
}

// All combines filters with a logical and.
func All(filters ...Expression) Expression {
	e := Expression{"all"}
	for _, f := range filters {
		e = append(e, f)
	}
	return e
}
