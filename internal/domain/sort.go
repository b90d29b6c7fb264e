package domain

import (
	"fmt"
	"sort"
	"strings"
)

// SortSpec orders a listing sequence by one schema field.
type SortSpec struct {
	Field string
	Desc  bool
}

// ParseSortSpec parses "field" or "field:asc|desc" (direction
// case-insensitive) and validates the field against the schema.
func ParseSortSpec(s string, schema Schema) (SortSpec, error) {
	field, dir, hasDir := strings.Cut(strings.TrimSpace(s), ":")
	if field == "" {
		return SortSpec{}, fmt.Errorf("sort: field is required")
	}
	if _, ok := schema[field]; !ok {
		return SortSpec{}, &UnknownFieldError{Field: field}
	}

	spec := SortSpec{Field: field}
	if hasDir {
		switch strings.ToLower(dir) {
		case "asc":
		case "desc":
			spec.Desc = true
		default:
			return SortSpec{}, fmt.Errorf("sort: direction %q (want asc or desc)", dir)
		}
	}
	return spec, nil
}

// SortListings returns a new slice ordered by the spec using the schema's
// type-aware comparison. Listings missing the sort field go last regardless
// of direction; ties keep their original relative order.
//
// This is the reference ordering for the whole system: the postgres store
// compiles the same spec to SQL (ORDER BY with NULLS LAST, empty text
// treated as absent via NULLIF) and must agree with this function on every
// input.
func SortListings(listings []Listing, spec SortSpec) []Listing {
	out := make([]Listing, len(listings))
	copy(out, listings)

	sort.SliceStable(out, func(i, j int) bool {
		a, aOK := out[i].Field(spec.Field)
		b, bOK := out[j].Field(spec.Field)
		if !aOK || !bOK {
			// Present sorts before absent; two absents keep input order.
			return aOK && !bOK
		}
		if spec.Desc {
			return a.Compare(b) > 0
		}
		return a.Compare(b) < 0
	})
	return out
}
