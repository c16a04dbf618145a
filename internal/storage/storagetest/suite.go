// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/storage/models"
)

// StoreSuite runs the Store contract against a fresh backend per test.
type StoreSuite struct {
	suite.Suite
	NewStore func() storage.Store

	store storage.Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.NewStore()
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *StoreSuite) newProfile() *models.CulturalProfile {
	user, err := s.store.CreateUser(s.ctx, "ada@example.com", "Ada")
	s.Require().NoError(err)

	profile, err := s.store.CreateProfile(s.ctx, &models.CulturalProfile{
		UserID:      user.ID,
		Preferences: models.Preferences{Music: []string{"jazz"}},
	})
	s.Require().NoError(err)
	return profile
}

func (s *StoreSuite) TestUserEmailIsUnique() {
	user, err := s.store.CreateUser(s.ctx, "ada@example.com", "Ada")
	s.Require().NoError(err)
	s.NotEmpty(user.ID)
	s.False(user.CreatedAt.IsZero())

	_, err = s.store.CreateUser(s.ctx, "ada@example.com", "Another Ada")
	s.ErrorIs(err, storage.ErrConflict)

	found, err := s.store.GetUserByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)

	_, err = s.store.GetUserByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) TestProfileRoundTrip() {
	user, err := s.store.CreateUser(s.ctx, "grace@example.com", "Grace")
	s.Require().NoError(err)

	before := time.Now().Add(-time.Second)
	created, err := s.store.CreateProfile(s.ctx, &models.CulturalProfile{
		UserID:               user.ID,
		Preferences:          models.Preferences{Music: []string{"jazz"}, Food: []string{"thai"}},
		CompletionPercentage: 40,
	})
	s.Require().NoError(err)

	read, err := s.store.GetProfile(s.ctx, created.ID)
	s.Require().NoError(err)

	s.Equal(created.ID, read.ID)
	s.Equal(created.UserID, read.UserID)
	s.Equal(created.Preferences, read.Preferences)
	s.Equal(created.CulturalDNA, read.CulturalDNA)
	s.Equal(created.CompletionPercentage, read.CompletionPercentage)
	s.False(read.LastUpdated.Before(before))

	byUser, err := s.store.GetProfileByUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, byUser.ID)
}

func (s *StoreSuite) TestProfileRequiresUserAndIsOnePerUser() {
	_, err := s.store.CreateProfile(s.ctx, &models.CulturalProfile{UserID: "missing"})
	s.ErrorIs(err, storage.ErrNotFound)

	profile := s.newProfile()
	_, err = s.store.CreateProfile(s.ctx, &models.CulturalProfile{UserID: profile.UserID})
	s.ErrorIs(err, storage.ErrConflict)
}

func (s *StoreSuite) TestUpdateProfileMergesFields() {
	profile := s.newProfile()

	completion := 60
	updated, err := s.store.UpdateProfile(s.ctx, profile.ID, models.ProfileUpdate{CompletionPercentage: &completion})
	s.Require().NoError(err)
	s.Equal(60, updated.CompletionPercentage)
	s.Equal([]string{"jazz"}, updated.Preferences.Music)
	s.False(updated.LastUpdated.Before(profile.LastUpdated))

	dna := models.CulturalDNA{TotalEntities: 4, Insights: []models.GeneratedInsight{{Category: "music", Insight: "x", Confidence: 0.5}}}
	prefs := models.Preferences{Travel: []string{"tokyo"}}
	updated, err = s.store.UpdateProfile(s.ctx, profile.ID, models.ProfileUpdate{Preferences: &prefs, CulturalDNA: &dna})
	s.Require().NoError(err)
	s.Equal(60, updated.CompletionPercentage)
	s.Equal(prefs, updated.Preferences)
	s.Require().NotNil(updated.CulturalDNA)
	s.Equal(4, updated.CulturalDNA.TotalEntities)

	_, err = s.store.UpdateProfile(s.ctx, "missing", models.ProfileUpdate{})
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) TestInsightsNewestFirst() {
	profile := s.newProfile()

	for _, text := range []string{"first", "second", "third"} {
		_, err := s.store.CreateInsight(s.ctx, &models.CulturalInsight{
			ProfileID:       profile.ID,
			Category:        "music",
			InsightText:     text,
			MatchPercentage: 85,
			Source:          models.SourceHybrid,
		})
		s.Require().NoError(err)
	}

	insights, err := s.store.ListInsights(s.ctx, profile.ID)
	s.Require().NoError(err)
	s.Require().Len(insights, 3)
	s.Equal("third", insights[0].InsightText)
	s.Equal("first", insights[2].InsightText)

	_, err = s.store.CreateInsight(s.ctx, &models.CulturalInsight{ProfileID: "missing", InsightText: "x"})
	s.ErrorIs(err, storage.ErrNotFound)

	empty, err := s.store.ListInsights(s.ctx, "other")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *StoreSuite) TestRecommendationsLimitAndBookmark() {
	profile := s.newProfile()

	var last *models.Recommendation
	for i := 0; i < 4; i++ {
		rec, err := s.store.CreateRecommendation(s.ctx, &models.Recommendation{
			ProfileID:       profile.ID,
			Title:           "Blue Note",
			Description:     "Jazz club",
			Category:        "place",
			MatchPercentage: 90,
			ExternalID:      "E1",
			Metadata:        &models.Entity{EntityID: "E1", Name: "Blue Note"},
		})
		s.Require().NoError(err)
		s.False(rec.IsBookmarked)
		last = rec
	}

	recs, err := s.store.ListRecommendations(s.ctx, profile.ID, 2)
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal(last.ID, recs[0].ID)
	s.Require().NotNil(recs[0].Metadata)
	s.Equal("Blue Note", recs[0].Metadata.Name)

	bookmarked := true
	for i := 0; i < 2; i++ {
		updated, err := s.store.UpdateRecommendation(s.ctx, last.ID, models.RecommendationUpdate{IsBookmarked: &bookmarked})
		s.Require().NoError(err)
		s.True(updated.IsBookmarked)
		s.Equal(last.Title, updated.Title)
	}

	all, err := s.store.ListRecommendations(s.ctx, profile.ID, 0)
	s.Require().NoError(err)
	s.Len(all, 4)

	_, err = s.store.UpdateRecommendation(s.ctx, "missing", models.RecommendationUpdate{IsBookmarked: &bookmarked})
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) TestResponsesAppendOnly() {
	profile := s.newProfile()

	_, err := s.store.CreateResponse(s.ctx, &models.QuestionnaireResponse{
		ProfileID: profile.ID, QuestionID: "music-genres", Response: []string{"jazz"},
	})
	s.Require().NoError(err)
	_, err = s.store.CreateResponse(s.ctx, &models.QuestionnaireResponse{
		ProfileID: profile.ID, QuestionID: "food-cuisines", Response: []string{"thai", "indian"},
	})
	s.Require().NoError(err)

	responses, err := s.store.ListResponses(s.ctx, profile.ID)
	s.Require().NoError(err)
	s.Require().Len(responses, 2)
	s.Equal("food-cuisines", responses[0].QuestionID)
	s.Equal([]string{"thai", "indian"}, responses[0].Response)

	_, err = s.store.CreateResponse(s.ctx, &models.QuestionnaireResponse{ProfileID: "missing", QuestionID: "x"})
	s.ErrorIs(err, storage.ErrNotFound)
}
