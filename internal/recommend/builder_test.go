package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/internal/tastegraph"
)

type searchCall struct {
	query      string
	categories []string
}

type fakeGraph struct {
	search   map[string]tastegraph.Response
	insights tastegraph.Response

	searches    []searchCall
	insightIDs  []string
	insightType string
}

func (f *fakeGraph) Search(_ context.Context, query string, categories []string) tastegraph.Response {
	f.searches = append(f.searches, searchCall{query, categories})
	return f.search[query]
}

func (f *fakeGraph) InsightsForEntities(_ context.Context, ids []string, filterType string) tastegraph.Response {
	f.insightIDs = ids
	f.insightType = filterType
	return f.insights
}

type fakeEnhancer struct {
	text string
	fail map[string]bool
}

func (f *fakeEnhancer) EnhanceRecommendation(_ context.Context, entity models.Entity, _ models.Preferences) (string, error) {
	if f.fail[entity.Identifier()] {
		return "", errors.New("model unavailable")
	}
	return f.text, nil
}

type fakeStore struct {
	created []models.Recommendation
	failOn  string
}

func (f *fakeStore) CreateRecommendation(_ context.Context, rec *models.Recommendation) (*models.Recommendation, error) {
	if rec.ExternalID == f.failOn {
		return nil, errors.New("disk full")
	}
	out := *rec
	out.ID = fmt.Sprintf("rec-%d", len(f.created)+1)
	f.created = append(f.created, out)
	return &out, nil
}

type fixedScorer int

func (s fixedScorer) Score(models.Entity, models.Preferences) int { return int(s) }

func ids(prefix string, n int) tastegraph.Entities {
	list := make(tastegraph.Entities, n)
	for i := range list {
		list[i] = models.Entity{ID: fmt.Sprintf("%s%d", prefix, i)}
	}
	return list
}

func TestCrossRecommendationsCollectsSeeds(t *testing.T) {
	graph := &fakeGraph{
		search: map[string]tastegraph.Response{
			"jazz":   {Results: ids("j", 5)},
			"reggae": {Results: ids("r", 5)},
			"thai":   {Results: ids("t", 5)},
			"indian": {Results: ids("i", 5)},
		},
		insights: tastegraph.Response{Results: ids("p", 20)},
	}
	b := NewBuilder(graph, &fakeEnhancer{}, &fakeStore{}, Config{})

	prefs := models.Preferences{
		Music: []string{"jazz", "reggae", "blues"},
		Food:  []string{"thai", "indian", "greek"},
	}
	candidates, err := b.CrossRecommendations(context.Background(), prefs)
	require.NoError(t, err)

	require.Len(t, graph.searches, 4)
	assert.Equal(t, searchCall{"jazz", []string{"music"}}, graph.searches[0])
	assert.Equal(t, searchCall{"thai", []string{"restaurants"}}, graph.searches[2])
	assert.Equal(t, []string{"j0", "j1", "j2", "r0", "r1", "r2", "t0", "t1", "i0", "i1"}, graph.insightIDs)
	assert.Equal(t, tastegraph.TypePlace, graph.insightType)
	assert.Len(t, candidates, DefaultMaxCandidates)
}

func TestCrossRecommendationsWithoutSeeds(t *testing.T) {
	graph := &fakeGraph{search: map[string]tastegraph.Response{"jazz": {Error: "down"}}}
	b := NewBuilder(graph, &fakeEnhancer{}, &fakeStore{}, Config{})

	candidates, err := b.CrossRecommendations(context.Background(), models.Preferences{Music: []string{"jazz"}, Travel: []string{"tokyo"}})
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Nil(t, graph.insightIDs)
}

func TestCrossRecommendationsUpstreamFailure(t *testing.T) {
	graph := &fakeGraph{
		search:   map[string]tastegraph.Response{"jazz": {Results: ids("j", 1)}},
		insights: tastegraph.Response{Error: "Qloo API error: 500"},
	}
	b := NewBuilder(graph, &fakeEnhancer{}, &fakeStore{}, Config{})

	got, err := b.CrossRecommendations(context.Background(), models.Preferences{Music: []string{"jazz"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGenerateReportsUpstreamFailureAsItem(t *testing.T) {
	graph := &fakeGraph{
		search:   map[string]tastegraph.Response{"jazz": {Results: ids("j", 1)}},
		insights: tastegraph.Response{Error: "Qloo API error: 503 - busy"},
	}
	store := &fakeStore{}
	b := NewBuilder(graph, &fakeEnhancer{}, store, Config{})

	outcome, err := b.Generate(context.Background(), &models.CulturalProfile{
		ID:          "p1",
		Preferences: models.Preferences{Music: []string{"jazz"}},
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Empty(t, outcome.Recommendations)
	require.Len(t, outcome.Items, 1)
	assert.False(t, outcome.Items[0].Persisted)
	assert.Equal(t, "Qloo API error: 503 - busy", outcome.Items[0].Error)
}

func TestGeneratePersistsEveryCandidate(t *testing.T) {
	graph := &fakeGraph{
		search: map[string]tastegraph.Response{"jazz": {Results: ids("j", 1)}},
		insights: tastegraph.Response{Results: tastegraph.Entities{
			{EntityID: "P1", Name: "Blue Note", Category: "place", Location: "New York", Image: "https://img/1.jpg",
				Description: "<p>Legendary <b>jazz</b> club &amp; bar</p>"},
			{EntityID: "P2", Domain: "restaurant", City: "Kyoto",
				Properties: models.EntityProperties{Description: "Kaiseki dining", Image: "https://img/2.jpg"}},
			{QlooID: "P3", Title: "Night Market", Country: "Taiwan"},
		}},
	}
	store := &fakeStore{}
	enhancer := &fakeEnhancer{text: "Made for you.", fail: map[string]bool{"P1": true}}
	b := NewBuilder(graph, enhancer, store, Config{Scorer: fixedScorer(91)})

	profile := &models.CulturalProfile{ID: "profile-1", Preferences: models.Preferences{Music: []string{"jazz"}}}
	outcome, err := b.Generate(context.Background(), profile)
	require.NoError(t, err)

	require.Len(t, outcome.Recommendations, 3)
	require.Len(t, store.created, 3)

	blueNote := outcome.Recommendations[0]
	assert.Equal(t, "profile-1", blueNote.ProfileID)
	assert.Equal(t, "Blue Note", blueNote.Title)
	assert.Equal(t, "Legendary jazz club & bar", blueNote.Description)
	assert.Equal(t, "place", blueNote.Category)
	assert.Equal(t, "New York", blueNote.Location)
	assert.Equal(t, "https://img/1.jpg", blueNote.ImageURL)
	assert.Equal(t, "P1", blueNote.ExternalID)
	assert.Equal(t, 91, blueNote.MatchPercentage)
	require.NotNil(t, blueNote.Metadata)
	assert.Equal(t, "P1", blueNote.Metadata.EntityID)
	assert.False(t, outcome.Items[0].Enhanced)
	assert.True(t, outcome.Items[0].Persisted)
	assert.Contains(t, outcome.Items[0].Error, "model unavailable")

	kaiseki := outcome.Recommendations[1]
	assert.Equal(t, "Cultural Discovery", kaiseki.Title)
	assert.Equal(t, "Made for you.", kaiseki.Description)
	assert.Equal(t, "restaurant", kaiseki.Category)
	assert.Equal(t, "Kyoto", kaiseki.Location)
	assert.Equal(t, "https://img/2.jpg", kaiseki.ImageURL)
	assert.True(t, outcome.Items[1].Enhanced)

	market := outcome.Recommendations[2]
	assert.Equal(t, "Night Market", market.Title)
	assert.Equal(t, "experience", market.Category)
	assert.Equal(t, "Taiwan", market.Location)
	assert.Equal(t, "P3", market.ExternalID)
}

func TestGenerateFallsBackToPlaceholderDescription(t *testing.T) {
	graph := &fakeGraph{
		search:   map[string]tastegraph.Response{"jazz": {Results: ids("j", 1)}},
		insights: tastegraph.Response{Results: tastegraph.Entities{{EntityID: "P1", Name: "Somewhere"}}},
	}
	b := NewBuilder(graph, &fakeEnhancer{fail: map[string]bool{"P1": true}}, &fakeStore{}, Config{Scorer: fixedScorer(85)})

	outcome, err := b.Generate(context.Background(), &models.CulturalProfile{ID: "p", Preferences: models.Preferences{Music: []string{"jazz"}}})
	require.NoError(t, err)
	require.Len(t, outcome.Recommendations, 1)
	assert.Equal(t, "Discover something new", outcome.Recommendations[0].Description)
}

func TestGenerateContinuesPastStoreFailure(t *testing.T) {
	graph := &fakeGraph{
		search:   map[string]tastegraph.Response{"jazz": {Results: ids("j", 1)}},
		insights: tastegraph.Response{Results: ids("p", 3)},
	}
	store := &fakeStore{failOn: "p1"}
	b := NewBuilder(graph, &fakeEnhancer{text: "x"}, store, Config{})

	outcome, err := b.Generate(context.Background(), &models.CulturalProfile{ID: "p", Preferences: models.Preferences{Music: []string{"jazz"}}})
	require.NoError(t, err)

	assert.Len(t, outcome.Recommendations, 2)
	require.Len(t, outcome.Items, 3)
	assert.False(t, outcome.Items[1].Persisted)
	assert.Contains(t, outcome.Items[1].Error, "disk full")
}

func TestRandomScorerStaysInRange(t *testing.T) {
	s := NewRandomScorer(80, 100, 42)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := s.Score(models.Entity{}, models.Preferences{})
		require.GreaterOrEqual(t, v, 80)
		require.LessOrEqual(t, v, 100)
		seen[v] = true
	}
	assert.Len(t, seen, 21)
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "plain text", StripMarkup("  plain   text "))
	assert.Equal(t, "Fish & chips", StripMarkup("<div>Fish &amp; <i>chips</i></div>"))
	assert.Equal(t, "", StripMarkup(""))
}
