package affinity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/internal/tastegraph"
)

type insightsCall struct {
	ids        []string
	filterType string
}

type fakeGraph struct {
	search   map[string]tastegraph.Response
	insights func(ids []string, filterType string) tastegraph.Response

	searches      []string
	insightsCalls []insightsCall
}

func (f *fakeGraph) Search(_ context.Context, query string, _ []string) tastegraph.Response {
	f.searches = append(f.searches, query)
	if r, ok := f.search[query]; ok {
		return r
	}
	return tastegraph.Response{Results: tastegraph.Entities{}}
}

func (f *fakeGraph) InsightsForEntities(_ context.Context, ids []string, filterType string) tastegraph.Response {
	f.insightsCalls = append(f.insightsCalls, insightsCall{ids: ids, filterType: filterType})
	if f.insights != nil {
		return f.insights(ids, filterType)
	}
	return tastegraph.Response{Results: tastegraph.Entities{{EntityID: "insight-" + ids[0]}}}
}

func entities(prefix string, n int) tastegraph.Entities {
	list := make(tastegraph.Entities, n)
	for i := range list {
		list[i] = models.Entity{QlooID: fmt.Sprintf("%s%d", prefix, i), Name: fmt.Sprintf("%s %d", prefix, i)}
	}
	return list
}

func TestEmptyPreferencesMakeNoCalls(t *testing.T) {
	graph := &fakeGraph{}
	result := NewAggregator(graph, Config{}).CulturalAffinities(context.Background(), models.Preferences{})

	assert.Empty(t, graph.searches)
	assert.Empty(t, graph.insightsCalls)
	assert.NotNil(t, result.CulturalAffinities)
	assert.Empty(t, result.CulturalAffinities)
	assert.Zero(t, result.TotalEntities)
}

func TestCategoriesRunInFixedOrderWithSliceBound(t *testing.T) {
	graph := &fakeGraph{search: map[string]tastegraph.Response{
		"jazz":   {Results: entities("j", 7)},
		"reggae": {Results: entities("r", 2)},
		"thai":   {Results: entities("t", 1)},
		"tokyo":  {Results: entities("k", 4)},
	}}

	prefs := models.Preferences{
		Travel: []string{"tokyo"},
		Food:   []string{"thai"},
		Music:  []string{"jazz", "reggae", "blues"},
		Art:    []string{"cubism"},
	}
	result := NewAggregator(graph, Config{}).CulturalAffinities(context.Background(), prefs)

	assert.Equal(t, []string{"jazz", "reggae", "thai", "tokyo"}, graph.searches)
	require.Len(t, result.CulturalAffinities, 4)

	jazz := result.CulturalAffinities[0]
	assert.Equal(t, models.CategoryMusic, jazz.Category)
	assert.Equal(t, "jazz", jazz.Query)
	assert.Len(t, jazz.SearchEntities, SearchEntitiesKept)
	assert.Equal(t, []string{"j0", "j1", "j2"}, graph.insightsCalls[0].ids)
	assert.Equal(t, tastegraph.TypeArtist, graph.insightsCalls[0].filterType)
	assert.Equal(t, tastegraph.TypePlace, graph.insightsCalls[2].filterType)
	assert.Equal(t, tastegraph.TypeDestination, graph.insightsCalls[3].filterType)

	assert.Equal(t, 5+2+1+4, result.TotalEntities)
	sum := 0
	for _, a := range result.CulturalAffinities {
		sum += len(a.SearchEntities)
	}
	assert.Equal(t, sum, result.TotalEntities)
}

func TestConfigurableBounds(t *testing.T) {
	graph := &fakeGraph{search: map[string]tastegraph.Response{
		"jazz":   {Results: entities("j", 5)},
		"reggae": {Results: entities("r", 5)},
		"blues":  {Results: entities("b", 5)},
	}}

	prefs := models.Preferences{Music: []string{"jazz", "reggae", "blues"}}
	result := NewAggregator(graph, Config{ItemsPerCategory: 3, EntityIDsPerQuery: 1}).CulturalAffinities(context.Background(), prefs)

	assert.Len(t, result.CulturalAffinities, 3)
	for _, call := range graph.insightsCalls {
		assert.Len(t, call.ids, 1)
	}
}

func TestFailuresAreOmittedAndReported(t *testing.T) {
	graph := &fakeGraph{
		search: map[string]tastegraph.Response{
			"jazz":  {Error: "Qloo API error: 500"},
			"thai":  {Results: entities("t", 3)},
			"tokyo": {Results: tastegraph.Entities{{Name: "no identifiers"}}},
		},
		insights: func(ids []string, filterType string) tastegraph.Response {
			if filterType == tastegraph.TypePlace {
				return tastegraph.Response{Error: "Qloo API error: 429"}
			}
			return tastegraph.Response{Results: tastegraph.Entities{}}
		},
	}

	prefs := models.Preferences{
		Music:  []string{"jazz", "salsa"},
		Food:   []string{"thai"},
		Travel: []string{"tokyo"},
	}
	result := NewAggregator(graph, Config{}).CulturalAffinities(context.Background(), prefs)

	assert.Empty(t, result.CulturalAffinities)
	assert.Zero(t, result.TotalEntities)

	require.Len(t, result.Items, 4)
	assert.Equal(t, models.OutcomeFailed, result.Items[0].Outcome)
	assert.Contains(t, result.Items[0].Reason, "500")
	assert.Equal(t, models.OutcomeSkipped, result.Items[1].Outcome)
	assert.Equal(t, "salsa", result.Items[1].Query)
	assert.Equal(t, models.OutcomeFailed, result.Items[2].Outcome)
	assert.Contains(t, result.Items[2].Reason, "insights")
	assert.Equal(t, models.OutcomeSkipped, result.Items[3].Outcome)
}

func TestErrorMarkedEntitiesNeverAppear(t *testing.T) {
	graph := &fakeGraph{
		search: map[string]tastegraph.Response{
			"jazz":   {Results: entities("j", 2)},
			"reggae": {Results: entities("r", 2)},
		},
		insights: func(ids []string, _ string) tastegraph.Response {
			if ids[0] == "r0" {
				return tastegraph.Response{Error: "boom"}
			}
			return tastegraph.Response{Results: entities("i", 2)}
		},
	}

	result := NewAggregator(graph, Config{}).CulturalAffinities(context.Background(), models.Preferences{Music: []string{"jazz", "reggae"}})

	require.Len(t, result.CulturalAffinities, 1)
	assert.Equal(t, "jazz", result.CulturalAffinities[0].Query)
	assert.Len(t, result.CulturalAffinities[0].Entities, 2)
}

func TestCancelledContextStopsCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	graph := &fakeGraph{}
	result := NewAggregator(graph, Config{}).CulturalAffinities(ctx, models.Preferences{Music: []string{"jazz"}})

	assert.Empty(t, graph.searches)
	require.Len(t, result.Items, 1)
	assert.Equal(t, models.OutcomeFailed, result.Items[0].Outcome)
}
