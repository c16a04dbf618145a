// Package affinity turns a user's preferences into taste-graph affinities:
// a search per preference item followed by an insights query seeded with
// the entities that search found.
package affinity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/metrics"
	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/internal/tastegraph"
	"github.com/culture-compass/backend/pkg/logger"
)

// TasteGraph is the subset of the taste-graph client the aggregator uses.
type TasteGraph interface {
	Search(ctx context.Context, query string, categories []string) tastegraph.Response
	InsightsForEntities(ctx context.Context, entityIDs []string, filterType string) tastegraph.Response
}

const (
	DefaultItemsPerCategory  = 2
	DefaultEntityIDsPerQuery = 3
	// SearchEntitiesKept bounds the search results stored with each affinity.
	SearchEntitiesKept = 5
)

// Category order is fixed.
var plan = []struct {
	category   models.Category
	filterType string
}{
	{models.CategoryMusic, tastegraph.TypeArtist},
	{models.CategoryFood, tastegraph.TypePlace},
	{models.CategoryTravel, tastegraph.TypeDestination},
}

type Config struct {
	ItemsPerCategory  int
	EntityIDsPerQuery int
}

type Aggregator struct {
	graph             TasteGraph
	itemsPerCategory  int
	entityIDsPerQuery int
}

type Result struct {
	CulturalAffinities []models.Affinity   `json:"culturalAffinities"`
	TotalEntities      int                 `json:"totalEntities"`
	Items              []models.ItemStatus `json:"items,omitempty"`
}

func NewAggregator(graph TasteGraph, cfg Config) *Aggregator {
	if cfg.ItemsPerCategory <= 0 {
		cfg.ItemsPerCategory = DefaultItemsPerCategory
	}
	if cfg.EntityIDsPerQuery <= 0 {
		cfg.EntityIDsPerQuery = DefaultEntityIDsPerQuery
	}
	return &Aggregator{
		graph:             graph,
		itemsPerCategory:  cfg.ItemsPerCategory,
		entityIDsPerQuery: cfg.EntityIDsPerQuery,
	}
}

// CulturalAffinities never fails: an item whose calls fail is left out of
// the affinities and recorded in Items with the reason.
func (a *Aggregator) CulturalAffinities(ctx context.Context, prefs models.Preferences) Result {
	result := Result{
		CulturalAffinities: []models.Affinity{},
		Items:              []models.ItemStatus{},
	}

	for _, step := range plan {
		items := prefs.Get(step.category)
		if len(items) > a.itemsPerCategory {
			items = items[:a.itemsPerCategory]
		}

		for _, query := range items {
			if err := ctx.Err(); err != nil {
				result.Items = append(result.Items, status(step.category, query, models.OutcomeFailed, err.Error()))
				continue
			}

			affinity, st := a.item(ctx, step.category, step.filterType, query)
			result.Items = append(result.Items, st)
			metrics.AggregationItems.WithLabelValues(string(step.category), string(st.Outcome)).Inc()

			if affinity != nil {
				result.CulturalAffinities = append(result.CulturalAffinities, *affinity)
				result.TotalEntities += len(affinity.SearchEntities)
			}
		}
	}

	logger.Info("Cultural affinities aggregated",
		zap.Int("affinities", len(result.CulturalAffinities)),
		zap.Int("total_entities", result.TotalEntities),
		zap.Int("items", len(result.Items)),
	)

	return result
}

func (a *Aggregator) item(ctx context.Context, category models.Category, filterType, query string) (*models.Affinity, models.ItemStatus) {
	search := a.graph.Search(ctx, query, nil)
	if search.Failed() {
		logger.Warn("Affinity search failed",
			zap.String("category", string(category)),
			zap.String("query", query),
			zap.String("error", search.Error),
		)
		return nil, status(category, query, models.OutcomeFailed, fmt.Sprintf("search: %s", search.Error))
	}
	if len(search.Results) == 0 {
		return nil, status(category, query, models.OutcomeSkipped, "search returned no entities")
	}

	ids := search.Results.IDs(a.entityIDsPerQuery)
	if len(ids) == 0 {
		return nil, status(category, query, models.OutcomeSkipped, "search results carried no identifiers")
	}

	insights := a.graph.InsightsForEntities(ctx, ids, filterType)
	if insights.Failed() {
		logger.Warn("Affinity insights failed",
			zap.String("category", string(category)),
			zap.String("query", query),
			zap.String("error", insights.Error),
		)
		return nil, status(category, query, models.OutcomeFailed, fmt.Sprintf("insights: %s", insights.Error))
	}

	entities := []models.Entity(insights.Results)
	if entities == nil {
		entities = []models.Entity{}
	}

	return &models.Affinity{
		Category:       category,
		Query:          query,
		SearchEntities: search.Results.First(SearchEntitiesKept),
		Entities:       entities,
	}, status(category, query, models.OutcomeOK, "")
}

func status(category models.Category, query string, outcome models.ItemOutcome, reason string) models.ItemStatus {
	return models.ItemStatus{Category: category, Query: query, Outcome: outcome, Reason: reason}
}
