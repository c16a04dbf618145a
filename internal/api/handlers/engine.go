package handlers

import (
	"context"

	"github.com/culture-compass/backend/internal/insights"
	"github.com/culture-compass/backend/internal/recommend"
	"github.com/culture-compass/backend/internal/tastegraph"
)

// Engine is the questionnaire, story and recommendation flow behind the handlers.
type Engine interface {
	Submit(ctx context.Context, profileID string, answers []insights.Answer) (*insights.SubmitResult, error)
	Story(ctx context.Context, profileID string) (string, error)
	StreamStory(ctx context.Context, profileID string, onChunk func(string) error) error
	Recommend(ctx context.Context, profileID string) (*recommend.Outcome, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, categories []string) tastegraph.Response
}

type profileRequest struct {
	ProfileID string `json:"profileId" validate:"required"`
}
