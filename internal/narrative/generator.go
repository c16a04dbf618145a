// Package narrative turns preferences and taste-graph output into insight
// records, stories and recommendation blurbs using a hosted text model.
package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/llm"
	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/pkg/logger"
)

var (
	// ErrGeneration means the model call itself failed.
	ErrGeneration = errors.New("generation failed")
	// ErrParse means the model answered with something other than the requested JSON.
	ErrParse = errors.New("unparseable model reply")
)

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	CompleteStream(ctx context.Context, req llm.CompletionRequest, onChunk func(string) error) (*llm.CompletionResponse, error)
}

// affinitySamples bounds how many entity names per affinity go into the prompt.
const affinitySamples = 3

type Generator struct {
	llm Completer
}

func NewGenerator(completer Completer) *Generator {
	return &Generator{llm: completer}
}

// GenerateCulturalInsights asks for structured insights. A reply that is
// not the expected JSON yields an empty list; a failed call is an error.
func (g *Generator) GenerateCulturalInsights(ctx context.Context, prefs models.Preferences, affinities []models.Affinity) ([]models.GeneratedInsight, error) {
	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Operation:    "insights",
		SystemPrompt: insightsSystemPrompt,
		UserPrompt:   fmt.Sprintf(insightsUserPrompt, prefs.Summary(), affinityContext(affinities)),
		Temperature:  0.7,
		MaxTokens:    2000,
		JSON:         true,
	})
	if err != nil {
		logger.Error("Insight generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: cultural insights: %v", ErrGeneration, err)
	}

	insights, err := parseInsights(resp.Content)
	if err != nil {
		logger.Warn("Discarding insight reply", zap.Error(err))
		return []models.GeneratedInsight{}, nil
	}

	logger.Info("Cultural insights generated", zap.Int("count", len(insights)))
	return insights, nil
}

func (g *Generator) GenerateCulturalStory(ctx context.Context, prefs models.Preferences, insights []models.GeneratedInsight) (string, error) {
	req, err := storyRequest(prefs, insights)
	if err != nil {
		return "", err
	}

	resp, err := g.llm.Complete(ctx, req)
	if err != nil {
		logger.Error("Story generation failed", zap.Error(err))
		return "", fmt.Errorf("%w: cultural story: %v", ErrGeneration, err)
	}
	return resp.Content, nil
}

// StreamCulturalStory is GenerateCulturalStory delivered in pieces. Errors
// returned by onChunk abort the stream and come back unwrapped.
func (g *Generator) StreamCulturalStory(ctx context.Context, prefs models.Preferences, insights []models.GeneratedInsight, onChunk func(string) error) error {
	req, err := storyRequest(prefs, insights)
	if err != nil {
		return err
	}

	var callbackErr error
	_, err = g.llm.CompleteStream(ctx, req, func(chunk string) error {
		if err := onChunk(chunk); err != nil {
			callbackErr = err
			return err
		}
		return nil
	})
	if callbackErr != nil {
		return callbackErr
	}
	if err != nil {
		logger.Error("Story stream failed", zap.Error(err))
		return fmt.Errorf("%w: cultural story stream: %v", ErrGeneration, err)
	}
	return nil
}

// EnhanceRecommendation writes a short personal blurb for one entity. On
// failure it returns "" with the error; callers treat the text as optional.
func (g *Generator) EnhanceRecommendation(ctx context.Context, entity models.Entity, prefs models.Preferences) (string, error) {
	entityJSON, err := json.Marshal(entity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entity: %w", err)
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal preferences: %w", err)
	}

	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Operation:    "enhance",
		SystemPrompt: enhanceSystemPrompt,
		UserPrompt:   fmt.Sprintf(enhanceUserPrompt, entityJSON, prefsJSON),
		Temperature:  0.7,
		MaxTokens:    200,
	})
	if err != nil {
		logger.Warn("Recommendation enhancement failed",
			zap.String("entity", entity.Identifier()),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: enhance recommendation: %v", ErrGeneration, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// MatchPercentage rescales a [0,1] confidence to a 0-100 integer.
func MatchPercentage(confidence float64) int {
	if math.IsNaN(confidence) {
		return 0
	}
	pct := int(math.Round(confidence * 100))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

func storyRequest(prefs models.Preferences, insights []models.GeneratedInsight) (llm.CompletionRequest, error) {
	if insights == nil {
		insights = []models.GeneratedInsight{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return llm.CompletionRequest{}, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	insightsJSON, err := json.Marshal(insights)
	if err != nil {
		return llm.CompletionRequest{}, fmt.Errorf("failed to marshal insights: %w", err)
	}

	return llm.CompletionRequest{
		Operation:    "story",
		SystemPrompt: storySystemPrompt,
		UserPrompt:   fmt.Sprintf(storyUserPrompt, prefsJSON, insightsJSON),
		Temperature:  0.8,
		MaxTokens:    800,
	}, nil
}

func parseInsights(content string) ([]models.GeneratedInsight, error) {
	var reply struct {
		Insights *[]models.GeneratedInsight `json:"insights"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if reply.Insights == nil {
		return nil, fmt.Errorf("%w: missing insights field", ErrParse)
	}

	insights := *reply.Insights
	if insights == nil {
		insights = []models.GeneratedInsight{}
	}
	return insights, nil
}

func affinityContext(affinities []models.Affinity) string {
	if len(affinities) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Taste-graph affinities:\n")
	for _, a := range affinities {
		names := make([]string, 0, affinitySamples)
		for _, e := range a.Entities {
			if len(names) == affinitySamples {
				break
			}
			if name := e.DisplayName(); name != "" {
				names = append(names, name)
			}
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", a.Query, a.Category, strings.Join(names, ", "))
	}
	return b.String()
}
