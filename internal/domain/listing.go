package domain

import "time"

// FieldKind is the comparison type of a listing field.
type FieldKind int

const (
	KindNumeric FieldKind = iota
	KindText
	KindDate
)

func (k FieldKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Schema maps queryable field names to their comparison kind.
type Schema map[string]FieldKind

// ListingSchema is the canonical schema for Listing. Filter compilation and
// sort-spec validation both check against it, so a compiled predicate can
// never hit a type error at evaluation time.
func ListingSchema() Schema {
	return Schema{
		"listing_id":      KindText,
		"url":             KindText,
		"title":           KindText,
		"city":            KindText,
		"district":        KindText,
		"address":         KindText,
		"room_type":       KindText,
		"contact_name":    KindText,
		"size":            KindNumeric,
		"rent":            KindNumeric,
		"flatmates":       KindNumeric,
		"rooms_free":      KindNumeric,
		"available_from":  KindDate,
		"available_until": KindDate,
		"online_since":    KindDate,
		"scraped_at":      KindDate,
	}
}

// Listing is one scraped flat-share advertisement. The core never mutates a
// listing; route annotations live alongside it in pipeline results.
type Listing struct {
	ListingID string `json:"listing_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`

	City        string `json:"city,omitempty"`
	District    string `json:"district,omitempty"`
	Address     string `json:"address,omitempty"`
	RoomType    string `json:"room_type,omitempty"`
	ContactName string `json:"contact_name,omitempty"`

	Size      *float64 `json:"size,omitempty"`
	Rent      *float64 `json:"rent,omitempty"`
	Flatmates *float64 `json:"flatmates,omitempty"`
	RoomsFree *float64 `json:"rooms_free,omitempty"`

	AvailableFrom  *time.Time `json:"available_from,omitempty"`
	AvailableUntil *time.Time `json:"available_until,omitempty"`
	OnlineSince    *time.Time `json:"online_since,omitempty"`
	ScrapedAt      time.Time  `json:"scraped_at"`

	// Location is set when the source page carried coordinates; listings
	// without one are geocoded from Address/District/City during routing.
	Location *Coordinate `json:"location,omitempty"`
}

// FieldValue is a typed value read from a listing field.
type FieldValue struct {
	Kind FieldKind
	Num  float64
	Text string
	Date time.Time
}

// Compare orders v against o: -1, 0, or 1. Both values must share a kind,
// which the schema check at compile time guarantees.
func (v FieldValue) Compare(o FieldValue) int {
	switch v.Kind {
	case KindNumeric:
		switch {
		case v.Num < o.Num:
			return -1
		case v.Num > o.Num:
			return 1
		}
		return 0
	case KindDate:
		switch {
		case v.Date.Before(o.Date):
			return -1
		case v.Date.After(o.Date):
			return 1
		}
		return 0
	default:
		switch {
		case v.Text < o.Text:
			return -1
		case v.Text > o.Text:
			return 1
		}
		return 0
	}
}

// Field returns the typed value of the named field, or ok=false when the
// field is absent on this listing. Unknown names also report ok=false;
// callers validate names against the schema before evaluation.
func (l Listing) Field(name string) (FieldValue, bool) {
	switch name {
	case "listing_id":
		return textValue(l.ListingID)
	case "url":
		return textValue(l.URL)
	case "title":
		return textValue(l.Title)
	case "city":
		return textValue(l.City)
	case "district":
		return textValue(l.District)
	case "address":
		return textValue(l.Address)
	case "room_type":
		return textValue(l.RoomType)
	case "contact_name":
		return textValue(l.ContactName)
	case "size":
		return numValue(l.Size)
	case "rent":
		return numValue(l.Rent)
	case "flatmates":
		return numValue(l.Flatmates)
	case "rooms_free":
		return numValue(l.RoomsFree)
	case "available_from":
		return dateValue(l.AvailableFrom)
	case "available_until":
		return dateValue(l.AvailableUntil)
	case "online_since":
		return dateValue(l.OnlineSince)
	case "scraped_at":
		if l.ScrapedAt.IsZero() {
			return FieldValue{}, false
		}
		return FieldValue{Kind: KindDate, Date: l.ScrapedAt}, true
	default:
		return FieldValue{}, false
	}
}

func textValue(s string) (FieldValue, bool) {
	if s == "" {
		return FieldValue{}, false
	}
	return FieldValue{Kind: KindText, Text: s}, true
}

func numValue(f *float64) (FieldValue, bool) {
	if f == nil {
		return FieldValue{}, false
	}
	return FieldValue{Kind: KindNumeric, Num: *f}, true
}

func dateValue(t *time.Time) (FieldValue, bool) {
	if t == nil {
		return FieldValue{}, false
	}
	return FieldValue{Kind: KindDate, Date: *t}, true
}
