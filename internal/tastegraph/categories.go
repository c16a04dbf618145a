package tastegraph

import "strings"

const urnPrefix = "urn:entity:"

// Taxonomy tags understood by the taste-graph.
const (
	TypeArtist      = urnPrefix + "artist"
	TypePlace       = urnPrefix + "place"
	TypeDestination = urnPrefix + "destination"
	TypeMovie       = urnPrefix + "movie"
	TypeTVShow      = urnPrefix + "tv_show"
	TypeBook        = urnPrefix + "book"
)

var categoryTypes = map[string]string{
	"music":       TypeArtist,
	"restaurants": TypePlace,
	"food":        TypePlace,
	"travel":      TypeDestination,
	"places":      TypeDestination,
	"movies":      TypeMovie,
	"tv":          TypeTVShow,
	"books":       TypeBook,
}

// TypeFor maps an app category to its taxonomy tag, defaulting to place.
func TypeFor(category string) string {
	if t, ok := categoryTypes[strings.ToLower(strings.TrimSpace(category))]; ok {
		return t
	}
	return TypePlace
}

// TypesFor maps categories in order and drops duplicates.
func TypesFor(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	types := make([]string, 0, len(categories))
	for _, c := range categories {
		t := TypeFor(c)
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return types
}
