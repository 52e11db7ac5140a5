// Package catalog holds the NYC DOB complaint-category lookup tables.
//
// Two vintages coexist: the legacy table, which carries a priority letter per
// code, and the 2021+ table, which only carries descriptions. Tables are
// loaded once and never mutated, so a *Catalog is safe for concurrent readers.
package catalog

import "strings"

// Vintage identifies which code set a catalog (and a tile archive) was built from.
type Vintage string

const (
	Legacy  Vintage = "legacy"
	Current Vintage = "2021"
)

// ParseVintage maps user input onto a known vintage.
func ParseVintage(s string) (Vintage, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy", "pre-2021":
		return Legacy, true
	case "2021", "current", "2021+":
		return Current, true
	}
	return "", false
}

// Priority is the severity letter of a legacy category (A highest, D lowest).
type Priority string

const (
	PriorityA       Priority = "A"
	PriorityB       Priority = "B"
	PriorityC       Priority = "C"
	PriorityD       Priority = "D"
	PriorityUnknown Priority = "unknown"
)

// UnknownPriorityLabel is shown for codes that predate priority tracking.
const UnknownPriorityLabel = "Unknown Priority (category post-2021)"

// ParsePriority returns the priority for a letter; anything else is unknown.
func ParsePriority(s string) Priority {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityA, PriorityB, PriorityC, PriorityD:
		return p
	}
	return PriorityUnknown
}

// Known reports whether p is one of A-D.
func (p Priority) Known() bool {
	return p.Rank() < 4
}

// Rank orders priorities from most (0) to least (4) severe.
func (p Priority) Rank() int {
	switch p {
	case PriorityA:
		return 0
	case PriorityB:
		return 1
	case PriorityC:
		return 2
	case PriorityD:
		return 3
	}
	return 4
}

// Category is one complaint category of a vintage.
type Category struct {
	Code        string   `json:"code" doc:"Complaint category code" example:"41"`
	Description string   `json:"description" doc:"Human-readable description" example:"ELEVATOR"`
	Priority    Priority `json:"priority" enum:"A,B,C,D,unknown" doc:"Priority letter, unknown for post-2021 codes"`
}

// Catalog is an ordered, read-only set of categories of one vintage.
type Catalog struct {
	vintage    Vintage
	categories []Category
	index      map[string]int
}

// New builds a catalog. Codes are trimmed; empty codes are dropped and the
// first occurrence of a duplicated code wins, so codes stay unique.
func New(v Vintage, categories []Category) *Catalog {
	c := &Catalog{
		vintage: v,
		index:   make(map[string]int, len(categories)),
	}
	for _, cat := range categories {
		cat.Code = strings.TrimSpace(cat.Code)
		if cat.Code == "" {
			continue
		}
		if _, dup := c.index[cat.Code]; dup {
			continue
		}
		if cat.Priority == "" {
			cat.Priority = PriorityUnknown
		}
		c.index[cat.Code] = len(c.categories)
		c.categories = append(c.categories, cat)
	}
	return c
}

// Vintage returns the code set of the catalog.
func (c *Catalog) Vintage() Vintage { return c.vintage }

// Len returns the number of categories.
func (c *Catalog) Len() int { return len(c.categories) }

// Categories returns the categories in table order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Codes returns the category codes in table order.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.categories))
	for i, cat := range c.categories {
		out[i] = cat.Code
	}
	return out
}

// Lookup returns the category for a code.
func (c *Catalog) Lookup(code string) (Category, bool) {
	if c == nil {
		return Category{}, false
	}
	i, ok := c.index[strings.TrimSpace(code)]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}
