package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestParseSortSpec(t *testing.T) {
	schema := ListingSchema()

	spec, err := ParseSortSpec("rent:asc", schema)
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Field: "rent"}, spec)

	spec, err = ParseSortSpec("size:DESC", schema)
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Field: "size", Desc: true}, spec)

	spec, err = ParseSortSpec("city", schema)
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Field: "city"}, spec)
}

func TestParseSortSpec_Errors(t *testing.T) {
	schema := ListingSchema()

	_, err := ParseSortSpec("rent:sideways", schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")

	_, err = ParseSortSpec("shoe_size:asc", schema)
	var unknown *UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "shoe_size", unknown.Field)

	_, err = ParseSortSpec("", schema)
	require.Error(t, err)
}

func TestSortListings_DescendingWithMissingLast(t *testing.T) {
	listings := []Listing{
		{ListingID: "a", Size: f(20)},
		{ListingID: "b"}, // no size
		{ListingID: "c", Size: f(30)},
	}

	sorted := SortListings(listings, SortSpec{Field: "size", Desc: true})

	ids := []string{sorted[0].ListingID, sorted[1].ListingID, sorted[2].ListingID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestSortListings_MissingLastAscendingToo(t *testing.T) {
	listings := []Listing{
		{ListingID: "a"},
		{ListingID: "b", Rent: f(450)},
		{ListingID: "c", Rent: f(300)},
	}

	sorted := SortListings(listings, SortSpec{Field: "rent"})
	ids := []string{sorted[0].ListingID, sorted[1].ListingID, sorted[2].ListingID}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestSortListings_StableOnTies(t *testing.T) {
	listings := []Listing{
		{ListingID: "a", Rent: f(400)},
		{ListingID: "b", Rent: f(400)},
		{ListingID: "c", Rent: f(400)},
	}

	sorted := SortListings(listings, SortSpec{Field: "rent"})
	ids := []string{sorted[0].ListingID, sorted[1].ListingID, sorted[2].ListingID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSortListings_TextLexicographic(t *testing.T) {
	listings := []Listing{
		{ListingID: "1", City: "München"},
		{ListingID: "2", City: "Berlin"},
		{ListingID: "3", City: "Hamburg"},
	}

	sorted := SortListings(listings, SortSpec{Field: "city"})
	assert.Equal(t, "Berlin", sorted[0].City)
	assert.Equal(t, "Hamburg", sorted[1].City)
	assert.Equal(t, "München", sorted[2].City)
}

func TestSortListings_EmptyTextSortsLast(t *testing.T) {
	// An empty text field counts as absent, matching how the store treats
	// empty columns when it sorts in SQL.
	listings := []Listing{
		{ListingID: "1", District: ""},
		{ListingID: "2", District: "Mitte"},
		{ListingID: "3", District: "Altona"},
	}

	sorted := SortListings(listings, SortSpec{Field: "district"})
	ids := []string{sorted[0].ListingID, sorted[1].ListingID, sorted[2].ListingID}
	assert.Equal(t, []string{"3", "2", "1"}, ids)

	sorted = SortListings(listings, SortSpec{Field: "district", Desc: true})
	ids = []string{sorted[0].ListingID, sorted[1].ListingID, sorted[2].ListingID}
	assert.Equal(t, []string{"2", "3", "1"}, ids, "absent stays last descending too")
}

func TestSortListings_DoesNotMutateInput(t *testing.T) {
	listings := []Listing{
		{ListingID: "a", Size: f(10)},
		{ListingID: "b", Size: f(5)},
	}

	_ = SortListings(listings, SortSpec{Field: "size"})
	assert.Equal(t, "a", listings[0].ListingID)
}
