// Package recommend builds cross-category recommendations from a profile's
// preferences and persists them with an enhanced description and a match score.
package recommend

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/metrics"
	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/internal/tastegraph"
	"github.com/culture-compass/backend/pkg/logger"
)

const (
	DefaultItemsPerCategory = 2
	DefaultMaxCandidates    = 15

	musicIDsPerSearch = 3
	foodIDsPerSearch  = 2

	fallbackTitle       = "Cultural Discovery"
	fallbackCategory    = "experience"
	fallbackDescription = "Discover something new"

	crossRecommendationsItem = "cross recommendations"
)

type TasteGraph interface {
	Search(ctx context.Context, query string, categories []string) tastegraph.Response
	InsightsForEntities(ctx context.Context, entityIDs []string, filterType string) tastegraph.Response
}

type Enhancer interface {
	EnhanceRecommendation(ctx context.Context, entity models.Entity, prefs models.Preferences) (string, error)
}

type RecommendationStore interface {
	CreateRecommendation(ctx context.Context, rec *models.Recommendation) (*models.Recommendation, error)
}

// Scorer assigns a 0-100 match percentage to a candidate.
type Scorer interface {
	Score(entity models.Entity, prefs models.Preferences) int
}

// RandomScorer draws uniformly from [Min, Max]. It stands in for a real
// relevance score, which the taste-graph does not provide.
type RandomScorer struct {
	Min, Max int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomScorer(lo, hi int, seed int64) *RandomScorer {
	if lo > hi {
		lo, hi = hi, lo
	}
	return &RandomScorer{Min: lo, Max: hi, rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomScorer) Score(models.Entity, models.Preferences) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Min + s.rng.Intn(s.Max-s.Min+1)
}

type Config struct {
	ItemsPerCategory int
	MaxCandidates    int
	Scorer           Scorer
}

type Builder struct {
	graph    TasteGraph
	enhancer Enhancer
	store    RecommendationStore
	scorer   Scorer

	itemsPerCategory int
	maxCandidates    int
}

// ItemStatus reports what happened to one candidate.
type ItemStatus struct {
	ExternalID string `json:"externalId,omitempty"`
	Title      string `json:"title"`
	Persisted  bool   `json:"persisted"`
	Enhanced   bool   `json:"enhanced"`
	Error      string `json:"error,omitempty"`
}

type Outcome struct {
	Recommendations []models.Recommendation `json:"recommendations"`
	Items           []ItemStatus            `json:"items"`
}

func NewBuilder(graph TasteGraph, enhancer Enhancer, store RecommendationStore, cfg Config) *Builder {
	if cfg.ItemsPerCategory <= 0 {
		cfg.ItemsPerCategory = DefaultItemsPerCategory
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if cfg.Scorer == nil {
		cfg.Scorer = NewRandomScorer(80, 100, rand.Int63())
	}
	return &Builder{
		graph:            graph,
		enhancer:         enhancer,
		store:            store,
		scorer:           cfg.Scorer,
		itemsPerCategory: cfg.ItemsPerCategory,
		maxCandidates:    cfg.MaxCandidates,
	}
}

// CrossRecommendations collects entity ids from the leading music and food
// preferences and asks the taste-graph for places sharing their affinity.
// An upstream failure yields no candidates rather than an error.
func (b *Builder) CrossRecommendations(ctx context.Context, prefs models.Preferences) ([]models.Entity, error) {
	candidates, _ := b.crossRecommendations(ctx, prefs)
	return candidates, nil
}

// crossRecommendations also returns the taste-graph error marker, if any.
func (b *Builder) crossRecommendations(ctx context.Context, prefs models.Preferences) ([]models.Entity, string) {
	var ids []string
	ids = append(ids, b.collect(ctx, prefs.Music, "music", musicIDsPerSearch)...)
	ids = append(ids, b.collect(ctx, prefs.Food, "restaurants", foodIDsPerSearch)...)

	if len(ids) == 0 {
		logger.Info("No seed entities for cross recommendations")
		return []models.Entity{}, ""
	}

	resp := b.graph.InsightsForEntities(ctx, ids, tastegraph.TypePlace)
	if resp.Failed() {
		logger.Warn("Cross recommendation insights failed",
			zap.Int("seed_entities", len(ids)),
			zap.String("error", resp.Error),
		)
		return []models.Entity{}, resp.Error
	}

	candidates := resp.Results.First(b.maxCandidates)
	logger.Info("Cross recommendations fetched",
		zap.Int("seed_entities", len(ids)),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, ""
}

func (b *Builder) collect(ctx context.Context, items []string, category string, perSearch int) []string {
	if len(items) > b.itemsPerCategory {
		items = items[:b.itemsPerCategory]
	}

	var ids []string
	for _, item := range items {
		resp := b.graph.Search(ctx, item, []string{category})
		if resp.Failed() {
			logger.Warn("Seed search failed",
				zap.String("category", category),
				zap.String("query", item),
				zap.String("error", resp.Error),
			)
			continue
		}
		ids = append(ids, tastegraph.Entities(resp.Results.First(perSearch)).IDs(0)...)
	}
	return ids
}

// Generate fetches candidates for the profile and persists each one. A
// failed enhancement or store write affects only its own candidate; a failed
// taste-graph lookup shows up as a single unpersisted item.
func (b *Builder) Generate(ctx context.Context, profile *models.CulturalProfile) (*Outcome, error) {
	candidates, upstreamErr := b.crossRecommendations(ctx, profile.Preferences)

	outcome := &Outcome{
		Recommendations: []models.Recommendation{},
		Items:           make([]ItemStatus, 0, len(candidates)+1),
	}
	if upstreamErr != "" {
		outcome.Items = append(outcome.Items, ItemStatus{Title: crossRecommendationsItem, Error: upstreamErr})
	}

	for _, entity := range candidates {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		rec := b.toRecommendation(profile, entity)
		status := ItemStatus{ExternalID: rec.ExternalID, Title: rec.Title}

		enhanced, err := b.enhancer.EnhanceRecommendation(ctx, entity, profile.Preferences)
		if err != nil {
			status.Error = err.Error()
		}
		if enhanced != "" {
			rec.Description = enhanced
			status.Enhanced = true
		}

		created, err := b.store.CreateRecommendation(ctx, rec)
		if err != nil {
			logger.Error("Failed to persist recommendation",
				zap.String("profile_id", profile.ID),
				zap.String("external_id", rec.ExternalID),
				zap.Error(err),
			)
			status.Error = err.Error()
			outcome.Items = append(outcome.Items, status)
			metrics.RecommendationsPersisted.WithLabelValues("failed").Inc()
			continue
		}

		status.Persisted = true
		outcome.Items = append(outcome.Items, status)
		outcome.Recommendations = append(outcome.Recommendations, *created)
		metrics.RecommendationsPersisted.WithLabelValues("persisted").Inc()
		metrics.MatchScore.Observe(float64(created.MatchPercentage))
	}

	logger.Info("Recommendations generated",
		zap.String("profile_id", profile.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("persisted", len(outcome.Recommendations)),
	)
	return outcome, nil
}

func (b *Builder) toRecommendation(profile *models.CulturalProfile, entity models.Entity) *models.Recommendation {
	metadata := entity
	return &models.Recommendation{
		ProfileID:       profile.ID,
		Title:           firstNonEmpty(entity.DisplayName(), fallbackTitle),
		Description:     firstNonEmpty(StripMarkup(entity.RawDescription()), fallbackDescription),
		Category:        firstNonEmpty(entity.Category, entity.Domain, fallbackCategory),
		MatchPercentage: clamp(b.scorer.Score(entity, profile.Preferences), 0, 100),
		Location:        entity.PlaceName(),
		ImageURL:        entity.PictureURL(),
		ExternalID:      entity.Identifier(),
		Metadata:        &metadata,
	}
}

// StripMarkup reduces an HTML fragment to its collapsed text.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
