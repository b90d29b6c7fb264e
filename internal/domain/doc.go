// Package domain models flat-share (WG) listings and the vocabulary of the
// query and route-ranking core.
//
// # Listings
//
// Listings are produced by the scraping collaborator and imported as JSONL
// (see the ingest package). A listing has three required text fields
// (listing_id, url, title) and a set of optional fields that may be absent
// when the source page did not expose them. Absence matters: a filter clause
// or sort key referencing a field that is absent on a listing never matches
// and always sorts last. Optional fields are therefore pointers, not zero
// values.
//
// # Filter language
//
// User-facing grammar, shared with the filter package:
//
//	filter  = clause *( ";" clause )
//	clause  = field operator value
//	operator = "=" | "!=" | ">" | "<" | ">=" | "<="
//
// Operators are tokenized longest-first so "rent>=500" parses as (rent, >=, 500)
// rather than (rent>, =, 500). Clauses combine with implicit AND; there is no
// OR, grouping, or negation. Values have no escaping mechanism, so a literal
// ";" or operator character cannot appear inside a value. Both limitations are
// deliberate and documented rather than worked around.
//
// Comparison semantics are schema-driven and fixed at predicate compile time:
//
//	numeric  parsed as float64, compared numerically
//	text     "="/"!=" exact, ordering operators lexicographic (byte order)
//	date     ISO-8601 ("2006-01-02" or RFC 3339), compared chronologically
//
// # Route data conventions
//
// Straight-line distance is the great-circle (haversine) distance with an
// Earth radius of 6371 km. It is always computed locally and always present
// in a RouteResult. Routed distance and duration come from the external
// routing service and are absent (nil) when routing failed for that listing.
//
// Reported precision is part of the output contract, not cosmetics:
// distances are rounded to two decimal places (km), durations to one
// decimal place (minutes).
package domain
