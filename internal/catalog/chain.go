package catalog

// Source is anything a category code can be resolved against.
type Source interface {
	Lookup(code string) (Category, bool)
}

// Chain is an ordered list of sources tried in sequence. The first source
// that knows a code wins.
type Chain []Source

// Resolve returns the first matching category.
func (ch Chain) Resolve(code string) (Category, bool) {
	for _, src := range ch {
		if src == nil {
			continue
		}
		if cat, ok := src.Lookup(code); ok {
			return cat, true
		}
	}
	return Category{}, false
}

// Describe returns the description of code, or the raw code on a miss.
func (ch Chain) Describe(code string) string {
	if cat, ok := ch.Resolve(code); ok && cat.Description != "" {
		return cat.Description
	}
	return code
}

// Set pairs the two catalog vintages.
type Set struct {
	Legacy  *Catalog
	Current *Catalog
}

// Catalog returns the catalog of a vintage.
func (s *Set) Catalog(v Vintage) (*Catalog, bool) {
	switch v {
	case Legacy:
		return s.Legacy, s.Legacy != nil
	case Current:
		return s.Current, s.Current != nil
	}
	return nil, false
}

// Chain returns the description lookup order: legacy, then 2021+.
func (s *Set) Chain() Chain {
	return Chain{s.Legacy, s.Current}
}

// Priority returns the legacy priority of a code, or unknown.
func (s *Set) Priority(code string) Priority {
	if cat, ok := s.Legacy.Lookup(code); ok {
		return cat.Priority
	}
	return PriorityUnknown
}

// PriorityLabel returns the priority letter for display, with a fixed
// fallback for codes that predate priority tracking.
func (s *Set) PriorityLabel(code string) string {
	if p := s.Priority(code); p.Known() {
		return string(p)
	}
	return UnknownPriorityLabel
}

// Describe resolves a description through Chain.
func (s *Set) Describe(code string) string {
	return s.Chain().Describe(code)
}
