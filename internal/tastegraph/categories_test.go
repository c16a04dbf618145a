package tastegraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/culture-compass/backend/internal/storage/models"
)

func TestTypeFor(t *testing.T) {
	cases := map[string]string{
		"music":       TypeArtist,
		"restaurants": TypePlace,
		"food":        TypePlace,
		"travel":      TypeDestination,
		"places":      TypeDestination,
		"movies":      TypeMovie,
		"tv":          TypeTVShow,
		"books":       TypeBook,
		"Music ":      TypeArtist,
		"pottery":     TypePlace,
		"":            TypePlace,
	}
	for category, want := range cases {
		assert.Equal(t, want, TypeFor(category), category)
	}
}

func TestTypesForDeduplicates(t *testing.T) {
	assert.Equal(t, []string{TypePlace, TypeArtist}, TypesFor([]string{"food", "restaurants", "music"}))
}

func TestEntitiesDecodesBothShapes(t *testing.T) {
	var bare Response
	require.NoError(t, json.Unmarshal([]byte(`{"results":[{"id":"1"}]}`), &bare))
	assert.Len(t, bare.Results, 1)

	var wrapped Response
	require.NoError(t, json.Unmarshal([]byte(`{"results":{"entities":[{"id":"1"},{"id":"2"}]}}`), &wrapped))
	assert.Len(t, wrapped.Results, 2)

	var missing Response
	require.NoError(t, json.Unmarshal([]byte(`{}`), &missing))
	assert.Nil(t, missing.Results)
}

func TestEntitiesHelpers(t *testing.T) {
	list := Entities{
		{QlooID: "A"},
		{Name: "no id"},
		{EntityID: "B"},
		{ID: "C"},
	}

	assert.Equal(t, []string{"A", "B"}, list.IDs(2))
	assert.Equal(t, []string{"A", "B", "C"}, list.IDs(0))
	assert.Equal(t, []models.Entity{{QlooID: "A"}, {Name: "no id"}}, list.First(2))
	assert.Len(t, list.First(10), 4)
}
