// Package memory is the default record store: maps guarded by a mutex,
// lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/pkg/logger"
)

type entry[T any] struct {
	seq    uint64
	record T
}

type Store struct {
	mu  sync.RWMutex
	seq uint64
	now func() time.Time

	users           map[string]entry[models.User]
	profiles        map[string]entry[models.CulturalProfile]
	insights        map[string]entry[models.CulturalInsight]
	recommendations map[string]entry[models.Recommendation]
	responses       map[string]entry[models.QuestionnaireResponse]
}

var _ storage.Store = (*Store)(nil)

type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:             time.Now,
		users:           make(map[string]entry[models.User]),
		profiles:        make(map[string]entry[models.CulturalProfile]),
		insights:        make(map[string]entry[models.CulturalInsight]),
		recommendations: make(map[string]entry[models.Recommendation]),
		responses:       make(map[string]entry[models.QuestionnaireResponse]),
	}
	for _, opt := range opts {
		opt(s)
	}
	logger.Info("In-memory store initialized")
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateUser(_ context.Context, email, name string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.users {
		if strings.EqualFold(e.record.Email, email) {
			return nil, fmt.Errorf("user %s: %w", email, storage.ErrConflict)
		}
	}

	user := models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: s.now(),
	}
	s.users[user.ID] = entry[models.User]{seq: s.next(), record: user}

	logger.Debug("User created", zap.String("user_id", user.ID))
	return &user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	user := e.record
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.users {
		if strings.EqualFold(e.record.Email, email) {
			user := e.record
			return &user, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (s *Store) CreateProfile(_ context.Context, profile *models.CulturalProfile) (*models.CulturalProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[profile.UserID]; !ok {
		return nil, fmt.Errorf("user %s: %w", profile.UserID, storage.ErrNotFound)
	}
	for _, e := range s.profiles {
		if e.record.UserID == profile.UserID {
			return nil, fmt.Errorf("profile for user %s: %w", profile.UserID, storage.ErrConflict)
		}
	}

	created := cloneProfile(*profile)
	created.ID = uuid.New().String()
	created.LastUpdated = s.now()
	s.profiles[created.ID] = entry[models.CulturalProfile]{seq: s.next(), record: created}

	logger.Debug("Cultural profile created", zap.String("profile_id", created.ID), zap.String("user_id", created.UserID))
	out := cloneProfile(created)
	return &out, nil
}

func (s *Store) GetProfile(_ context.Context, id string) (*models.CulturalProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, storage.ErrNotFound)
	}
	out := cloneProfile(e.record)
	return &out, nil
}

func (s *Store) GetProfileByUser(_ context.Context, userID string) (*models.CulturalProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.profiles {
		if e.record.UserID == userID {
			out := cloneProfile(e.record)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("profile for user %s: %w", userID, storage.ErrNotFound)
}

func (s *Store) UpdateProfile(_ context.Context, id string, update models.ProfileUpdate) (*models.CulturalProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, storage.ErrNotFound)
	}

	profile := e.record
	if update.Preferences != nil {
		profile.Preferences = *update.Preferences
	}
	if update.CulturalDNA != nil {
		dna := *update.CulturalDNA
		profile.CulturalDNA = &dna
	}
	if update.CompletionPercentage != nil {
		profile.CompletionPercentage = *update.CompletionPercentage
	}
	profile.LastUpdated = s.now()

	e.record = cloneProfile(profile)
	s.profiles[id] = e

	out := cloneProfile(profile)
	return &out, nil
}

func (s *Store) CreateInsight(_ context.Context, insight *models.CulturalInsight) (*models.CulturalInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[insight.ProfileID]; !ok {
		return nil, fmt.Errorf("profile %s: %w", insight.ProfileID, storage.ErrNotFound)
	}

	created := *insight
	created.ID = uuid.New().String()
	if created.Source == "" {
		created.Source = models.SourceAI
	}
	created.CreatedAt = s.now()
	s.insights[created.ID] = entry[models.CulturalInsight]{seq: s.next(), record: created}
	return &created, nil
}

func (s *Store) ListInsights(_ context.Context, profileID string) ([]models.CulturalInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.insights, 0, func(i models.CulturalInsight) (string, time.Time) {
		return i.ProfileID, i.CreatedAt
	}, profileID), nil
}

func (s *Store) CreateRecommendation(_ context.Context, rec *models.Recommendation) (*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[rec.ProfileID]; !ok {
		return nil, fmt.Errorf("profile %s: %w", rec.ProfileID, storage.ErrNotFound)
	}

	created := *rec
	created.ID = uuid.New().String()
	created.CreatedAt = s.now()
	s.recommendations[created.ID] = entry[models.Recommendation]{seq: s.next(), record: created}
	return &created, nil
}

func (s *Store) ListRecommendations(_ context.Context, profileID string, limit int) ([]models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.recommendations, limit, func(r models.Recommendation) (string, time.Time) {
		return r.ProfileID, r.CreatedAt
	}, profileID), nil
}

func (s *Store) UpdateRecommendation(_ context.Context, id string, update models.RecommendationUpdate) (*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.recommendations[id]
	if !ok {
		return nil, fmt.Errorf("recommendation %s: %w", id, storage.ErrNotFound)
	}
	if update.IsBookmarked != nil {
		e.record.IsBookmarked = *update.IsBookmarked
	}
	s.recommendations[id] = e

	out := e.record
	return &out, nil
}

func (s *Store) CreateResponse(_ context.Context, resp *models.QuestionnaireResponse) (*models.QuestionnaireResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[resp.ProfileID]; !ok {
		return nil, fmt.Errorf("profile %s: %w", resp.ProfileID, storage.ErrNotFound)
	}

	created := *resp
	created.ID = uuid.New().String()
	created.Response = append([]string(nil), resp.Response...)
	created.CreatedAt = s.now()
	s.responses[created.ID] = entry[models.QuestionnaireResponse]{seq: s.next(), record: created}
	return &created, nil
}

func (s *Store) ListResponses(_ context.Context, profileID string) ([]models.QuestionnaireResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.responses, 0, func(r models.QuestionnaireResponse) (string, time.Time) {
		return r.ProfileID, r.CreatedAt
	}, profileID), nil
}

// newestFirst filters records by profile and orders them by creation time,
// falling back to insertion order for equal timestamps.
func newestFirst[T any](records map[string]entry[T], limit int, key func(T) (string, time.Time), profileID string) []T {
	matched := make([]entry[T], 0)
	for _, e := range records {
		if id, _ := key(e.record); id == profileID {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		_, ti := key(matched[i].record)
		_, tj := key(matched[j].record)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return matched[i].seq > matched[j].seq
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]T, len(matched))
	for i, e := range matched {
		out[i] = e.record
	}
	return out
}

func cloneProfile(p models.CulturalProfile) models.CulturalProfile {
	p.Preferences = models.Preferences{}.Merge(p.Preferences)
	if p.CulturalDNA != nil {
		dna := *p.CulturalDNA
		p.CulturalDNA = &dna
	}
	return p
}
