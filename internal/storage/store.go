// Package storage defines the record store shared by the memory and sqlite backends.
package storage

import (
	"context"
	"errors"

	"github.com/culture-compass/backend/internal/storage/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Store is the keyed record collection per entity type. List methods
// return newest records first. Updates are merge patches and fail with
// ErrNotFound for unknown ids. Operations on different entity types are
// independent; there is no cross-type transaction.
type Store interface {
	CreateUser(ctx context.Context, email, name string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateProfile(ctx context.Context, profile *models.CulturalProfile) (*models.CulturalProfile, error)
	GetProfile(ctx context.Context, id string) (*models.CulturalProfile, error)
	GetProfileByUser(ctx context.Context, userID string) (*models.CulturalProfile, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.CulturalProfile, error)

	CreateInsight(ctx context.Context, insight *models.CulturalInsight) (*models.CulturalInsight, error)
	ListInsights(ctx context.Context, profileID string) ([]models.CulturalInsight, error)

	CreateRecommendation(ctx context.Context, rec *models.Recommendation) (*models.Recommendation, error)
	ListRecommendations(ctx context.Context, profileID string, limit int) ([]models.Recommendation, error)
	UpdateRecommendation(ctx context.Context, id string, update models.RecommendationUpdate) (*models.Recommendation, error)

	CreateResponse(ctx context.Context, resp *models.QuestionnaireResponse) (*models.QuestionnaireResponse, error)
	ListResponses(ctx context.Context, profileID string) ([]models.QuestionnaireResponse, error)

	Close() error
}
