// Package catalog defines the artwork records served by the remote collection
// API and the contract for fetching them one page at a time.
package catalog

// ID identifies an item. It is stable across fetches and page sizes.
type ID int64

// Item is a single artwork record as returned by the collection API.
// Only ID carries meaning for selection; the rest is display data.
type Item struct {
	ID            ID     `json:"id"`
	Title         string `json:"title"`
	PlaceOfOrigin string `json:"place_of_origin"`
	ArtistDisplay string `json:"artist_display"`
	Inscriptions  string `json:"inscriptions"`
	DateStart     int    `json:"date_start"`
	DateEnd       int    `json:"date_end"`
}

// Fields lists the item attributes requested from the API.
var Fields = []string{
	"id",
	"title",
	"place_of_origin",
	"artist_display",
	"inscriptions",
	"date_start",
	"date_end",
}
