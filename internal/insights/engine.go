// Package insights runs the questionnaire flow: persist answers, derive
// preferences, aggregate taste-graph affinities, generate insights and
// write everything back to the profile.
package insights

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/affinity"
	"github.com/culture-compass/backend/internal/metrics"
	"github.com/culture-compass/backend/internal/narrative"
	"github.com/culture-compass/backend/internal/recommend"
	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/pkg/logger"
)

type Aggregator interface {
	CulturalAffinities(ctx context.Context, prefs models.Preferences) affinity.Result
}

type Narrator interface {
	GenerateCulturalInsights(ctx context.Context, prefs models.Preferences, affinities []models.Affinity) ([]models.GeneratedInsight, error)
	GenerateCulturalStory(ctx context.Context, prefs models.Preferences, insights []models.GeneratedInsight) (string, error)
	StreamCulturalStory(ctx context.Context, prefs models.Preferences, insights []models.GeneratedInsight, onChunk func(string) error) error
}

type Recommender interface {
	Generate(ctx context.Context, profile *models.CulturalProfile) (*recommend.Outcome, error)
}

// Answer is one questionnaire answer as submitted.
type Answer struct {
	QuestionID string   `json:"questionId" validate:"required,max=100"`
	Answer     []string `json:"answer" validate:"dive,max=200"`
}

type SubmitResult struct {
	Responses            []models.QuestionnaireResponse `json:"responses"`
	Insights             []models.GeneratedInsight      `json:"insights"`
	CompletionPercentage int                            `json:"completionPercentage"`
	Items                []models.ItemStatus            `json:"items"`
}

type Engine struct {
	store       storage.Store
	aggregator  Aggregator
	narrator    Narrator
	recommender Recommender
}

func NewEngine(store storage.Store, aggregator Aggregator, narrator Narrator, recommender Recommender) *Engine {
	return &Engine{
		store:       store,
		aggregator:  aggregator,
		narrator:    narrator,
		recommender: recommender,
	}
}

// Completion is the share of the questionnaire answered, capped at 100.
func Completion(answers int) int {
	pct := answers * 100 / models.ExpectedCategories
	if pct > 100 {
		return 100
	}
	return pct
}

// PreferencesFrom maps answers onto categories. Unknown question ids are
// ignored. An answered question always yields a non-nil slice, so an empty
// answer clears its category on merge.
func PreferencesFrom(answers []Answer) models.Preferences {
	var prefs models.Preferences
	for _, a := range answers {
		if c, ok := models.QuestionCategory(a.QuestionID); ok {
			prefs.Set(c, append(make([]string, 0, len(a.Answer)), a.Answer...))
		}
	}
	return prefs
}

// Submit runs the whole questionnaire flow. The steps are not atomic: when
// insight generation fails the answers stay persisted and the profile is
// left untouched.
func (e *Engine) Submit(ctx context.Context, profileID string, answers []Answer) (*SubmitResult, error) {
	profile, err := e.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Responses: make([]models.QuestionnaireResponse, 0, len(answers))}
	for _, a := range answers {
		saved, err := e.store.CreateResponse(ctx, &models.QuestionnaireResponse{
			ProfileID:  profileID,
			QuestionID: a.QuestionID,
			Response:   a.Answer,
		})
		if err != nil {
			metrics.QuestionnaireSubmissions.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("failed to save response %s: %w", a.QuestionID, err)
		}
		result.Responses = append(result.Responses, *saved)
	}

	prefs := profile.Preferences.Merge(PreferencesFrom(answers))

	aggregated := e.aggregator.CulturalAffinities(ctx, prefs)

	generated, err := e.narrator.GenerateCulturalInsights(ctx, prefs, aggregated.CulturalAffinities)
	if err != nil {
		metrics.QuestionnaireSubmissions.WithLabelValues("failed").Inc()
		logger.Error("Questionnaire submission failed",
			zap.String("profile_id", profileID),
			zap.Int("responses_saved", len(result.Responses)),
			zap.Error(err),
		)
		return nil, err
	}

	completion := Completion(len(answers))
	dna := models.CulturalDNA{
		Insights:       generated,
		QlooAffinities: aggregated.CulturalAffinities,
		TotalEntities:  aggregated.TotalEntities,
		ItemStatuses:   aggregated.Items,
	}
	if _, err := e.store.UpdateProfile(ctx, profileID, models.ProfileUpdate{
		Preferences:          &prefs,
		CulturalDNA:          &dna,
		CompletionPercentage: &completion,
	}); err != nil {
		metrics.QuestionnaireSubmissions.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	for _, insight := range generated {
		if _, err := e.store.CreateInsight(ctx, &models.CulturalInsight{
			ProfileID:       profileID,
			Category:        insight.Category,
			InsightText:     insight.Insight,
			MatchPercentage: narrative.MatchPercentage(insight.Confidence),
			Source:          models.SourceHybrid,
		}); err != nil {
			metrics.QuestionnaireSubmissions.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("failed to save insight: %w", err)
		}
		metrics.InsightsGenerated.Inc()
	}

	metrics.QuestionnaireSubmissions.WithLabelValues("ok").Inc()
	logger.Info("Questionnaire processed",
		zap.String("profile_id", profileID),
		zap.Int("responses", len(result.Responses)),
		zap.Int("insights", len(generated)),
		zap.Int("completion", completion),
	)

	result.Insights = generated
	result.CompletionPercentage = completion
	result.Items = aggregated.Items
	return result, nil
}

// Story narrates the profile's preferences and stored insights.
func (e *Engine) Story(ctx context.Context, profileID string) (string, error) {
	profile, err := e.store.GetProfile(ctx, profileID)
	if err != nil {
		return "", err
	}
	return e.narrator.GenerateCulturalStory(ctx, profile.Preferences, storedInsights(profile))
}

func (e *Engine) StreamStory(ctx context.Context, profileID string, onChunk func(string) error) error {
	profile, err := e.store.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	return e.narrator.StreamCulturalStory(ctx, profile.Preferences, storedInsights(profile), onChunk)
}

func (e *Engine) Recommend(ctx context.Context, profileID string) (*recommend.Outcome, error) {
	profile, err := e.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return e.recommender.Generate(ctx, profile)
}

func storedInsights(profile *models.CulturalProfile) []models.GeneratedInsight {
	if profile.CulturalDNA == nil || profile.CulturalDNA.Insights == nil {
		return []models.GeneratedInsight{}
	}
	return profile.CulturalDNA.Insights
}
