package model

// CatalogItem is a raw candidate as the external catalog returns it,
// before room-level dedupe.
type CatalogItem struct {
	ID          string
	Title       string
	PosterRef   string
	Synopsis    string
	Rating      float64
	ReleaseDate string
	MediaType   MediaType
}
