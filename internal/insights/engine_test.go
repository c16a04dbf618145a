package insights

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/culture-compass/backend/internal/affinity"
	"github.com/culture-compass/backend/internal/narrative"
	"github.com/culture-compass/backend/internal/recommend"
	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/storage/memory"
	"github.com/culture-compass/backend/internal/storage/models"
)

type fakeAggregator struct {
	result affinity.Result
	seen   []models.Preferences
}

func (f *fakeAggregator) CulturalAffinities(_ context.Context, prefs models.Preferences) affinity.Result {
	f.seen = append(f.seen, prefs)
	return f.result
}

type fakeNarrator struct {
	insights []models.GeneratedInsight
	story    string
	err      error

	storyInsights []models.GeneratedInsight
}

func (f *fakeNarrator) GenerateCulturalInsights(context.Context, models.Preferences, []models.Affinity) ([]models.GeneratedInsight, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.insights, nil
}

func (f *fakeNarrator) GenerateCulturalStory(_ context.Context, _ models.Preferences, insights []models.GeneratedInsight) (string, error) {
	f.storyInsights = insights
	if f.err != nil {
		return "", f.err
	}
	return f.story, nil
}

func (f *fakeNarrator) StreamCulturalStory(_ context.Context, _ models.Preferences, _ []models.GeneratedInsight, onChunk func(string) error) error {
	if f.err != nil {
		return f.err
	}
	return onChunk(f.story)
}

type fakeRecommender struct {
	profiles []string
}

func (f *fakeRecommender) Generate(_ context.Context, profile *models.CulturalProfile) (*recommend.Outcome, error) {
	f.profiles = append(f.profiles, profile.ID)
	return &recommend.Outcome{Recommendations: []models.Recommendation{}}, nil
}

type EngineSuite struct {
	suite.Suite

	ctx         context.Context
	store       *memory.Store
	aggregator  *fakeAggregator
	narrator    *fakeNarrator
	recommender *fakeRecommender
	engine      *Engine
	profile     *models.CulturalProfile
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.aggregator = &fakeAggregator{result: affinity.Result{
		CulturalAffinities: []models.Affinity{{Category: models.CategoryMusic, Query: "jazz", SearchEntities: make([]models.Entity, 3)}},
		TotalEntities:      3,
		Items:              []models.ItemStatus{{Category: models.CategoryMusic, Query: "jazz", Outcome: models.OutcomeOK}},
	}}
	s.narrator = &fakeNarrator{
		insights: []models.GeneratedInsight{
			{Category: "music", Insight: "Improvisation speaks to you", Confidence: 0.87},
			{Category: "travel", Insight: "New Orleans calls", Confidence: 0.6},
		},
		story: "Your taste profile reveals...",
	}
	s.recommender = &fakeRecommender{}
	s.engine = NewEngine(s.store, s.aggregator, s.narrator, s.recommender)

	user, err := s.store.CreateUser(s.ctx, "ada@example.com", "Ada")
	s.Require().NoError(err)
	s.profile, err = s.store.CreateProfile(s.ctx, &models.CulturalProfile{UserID: user.ID})
	s.Require().NoError(err)
}

func (s *EngineSuite) TestSubmitSingleJazzAnswer() {
	result, err := s.engine.Submit(s.ctx, s.profile.ID, []Answer{{QuestionID: "music-genres", Answer: []string{"jazz"}}})
	s.Require().NoError(err)

	s.Equal(20, result.CompletionPercentage)
	s.Len(result.Responses, 1)
	s.Len(result.Insights, 2)

	profile, err := s.store.GetProfile(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Equal([]string{"jazz"}, profile.Preferences.Music)
	s.Equal(20, profile.CompletionPercentage)
	s.Require().NotNil(profile.CulturalDNA)
	s.Equal(3, profile.CulturalDNA.TotalEntities)
	s.Len(profile.CulturalDNA.QlooAffinities, 1)
	s.Len(profile.CulturalDNA.Insights, 2)
	s.Len(profile.CulturalDNA.ItemStatuses, 1)

	stored, err := s.store.ListInsights(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Require().Len(stored, 2)
	byCategory := map[string]models.CulturalInsight{}
	for _, i := range stored {
		byCategory[i.Category] = i
	}
	s.Equal(87, byCategory["music"].MatchPercentage)
	s.Equal(60, byCategory["travel"].MatchPercentage)
	s.Equal(models.SourceHybrid, byCategory["music"].Source)
}

func (s *EngineSuite) TestSubmitEmptyAnswerClearsCategory() {
	_, err := s.engine.Submit(s.ctx, s.profile.ID, []Answer{
		{QuestionID: "music-genres", Answer: []string{"jazz"}},
		{QuestionID: "food-cuisines", Answer: []string{"thai"}},
	})
	s.Require().NoError(err)

	_, err = s.engine.Submit(s.ctx, s.profile.ID, []Answer{{QuestionID: "music-genres", Answer: []string{}}})
	s.Require().NoError(err)

	profile, err := s.store.GetProfile(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Empty(profile.Preferences.Music)
	s.Equal([]string{"thai"}, profile.Preferences.Food)
	s.Empty(s.aggregator.seen[1].Music)
}

func (s *EngineSuite) TestSubmitCapsCompletionAndIgnoresUnknownQuestions() {
	answers := []Answer{
		{QuestionID: "music-genres", Answer: []string{"jazz"}},
		{QuestionID: "food-cuisines", Answer: []string{"thai"}},
		{QuestionID: "travel-destinations", Answer: []string{"tokyo"}},
		{QuestionID: "art-styles", Answer: []string{"cubism"}},
		{QuestionID: "lifestyle", Answer: []string{"slow"}},
		{QuestionID: "favourite-colour", Answer: []string{"teal"}},
	}
	result, err := s.engine.Submit(s.ctx, s.profile.ID, answers)
	s.Require().NoError(err)

	s.Equal(100, result.CompletionPercentage)
	s.Len(result.Responses, 6)
	s.Require().Len(s.aggregator.seen, 1)
	s.Equal(models.Preferences{
		Music:     []string{"jazz"},
		Food:      []string{"thai"},
		Travel:    []string{"tokyo"},
		Art:       []string{"cubism"},
		Lifestyle: []string{"slow"},
	}, s.aggregator.seen[0])
}

func (s *EngineSuite) TestSubmitMergesWithExistingPreferences() {
	_, err := s.engine.Submit(s.ctx, s.profile.ID, []Answer{{QuestionID: "music-genres", Answer: []string{"jazz"}}})
	s.Require().NoError(err)
	_, err = s.engine.Submit(s.ctx, s.profile.ID, []Answer{{QuestionID: "food-cuisines", Answer: []string{"thai"}}})
	s.Require().NoError(err)

	profile, err := s.store.GetProfile(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Equal([]string{"jazz"}, profile.Preferences.Music)
	s.Equal([]string{"thai"}, profile.Preferences.Food)
}

func (s *EngineSuite) TestSubmitGenerationFailureKeepsResponses() {
	s.narrator.err = narrative.ErrGeneration

	_, err := s.engine.Submit(s.ctx, s.profile.ID, []Answer{{QuestionID: "music-genres", Answer: []string{"jazz"}}})
	s.ErrorIs(err, narrative.ErrGeneration)

	responses, err := s.store.ListResponses(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Len(responses, 1)

	profile, err := s.store.GetProfile(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Nil(profile.CulturalDNA)
	s.Zero(profile.CompletionPercentage)

	insights, err := s.store.ListInsights(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Empty(insights)
}

func (s *EngineSuite) TestSubmitUnknownProfile() {
	_, err := s.engine.Submit(s.ctx, "missing", []Answer{{QuestionID: "music-genres", Answer: []string{"jazz"}}})
	s.ErrorIs(err, storage.ErrNotFound)
	s.Empty(s.aggregator.seen)
}

func (s *EngineSuite) TestStoryUsesStoredInsights() {
	_, err := s.engine.Submit(s.ctx, s.profile.ID, []Answer{{QuestionID: "music-genres", Answer: []string{"jazz"}}})
	s.Require().NoError(err)

	story, err := s.engine.Story(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Equal("Your taste profile reveals...", story)
	s.Len(s.narrator.storyInsights, 2)

	_, err = s.engine.Story(s.ctx, "missing")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *EngineSuite) TestStoryWithoutDNA() {
	_, err := s.engine.Story(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.NotNil(s.narrator.storyInsights)
	s.Empty(s.narrator.storyInsights)
}

func (s *EngineSuite) TestStreamStory() {
	var chunks []string
	err := s.engine.StreamStory(s.ctx, s.profile.ID, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	s.Require().NoError(err)
	s.Equal([]string{"Your taste profile reveals..."}, chunks)
}

func (s *EngineSuite) TestRecommendLoadsProfile() {
	_, err := s.engine.Recommend(s.ctx, s.profile.ID)
	s.Require().NoError(err)
	s.Equal([]string{s.profile.ID}, s.recommender.profiles)

	_, err = s.engine.Recommend(s.ctx, "missing")
	s.ErrorIs(err, storage.ErrNotFound)
}

func TestCompletion(t *testing.T) {
	assert.Equal(t, 0, Completion(0))
	assert.Equal(t, 20, Completion(1))
	assert.Equal(t, 60, Completion(3))
	assert.Equal(t, 100, Completion(5))
	assert.Equal(t, 100, Completion(9))
}

func TestPreferencesFrom(t *testing.T) {
	prefs := PreferencesFrom([]Answer{
		{QuestionID: "music-genres", Answer: []string{"jazz", "reggae"}},
		{QuestionID: "unknown", Answer: []string{"x"}},
	})
	require.Equal(t, []string{"jazz", "reggae"}, prefs.Music)
	assert.Nil(t, prefs.Food)

	cleared := PreferencesFrom([]Answer{{QuestionID: "music-genres"}})
	assert.NotNil(t, cleared.Music)
	assert.Empty(t, cleared.Music)
}
