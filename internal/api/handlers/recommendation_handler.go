package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/storage/models"
	"github.com/culture-compass/backend/internal/validation"
	"github.com/culture-compass/backend/pkg/logger"
)

const defaultRecommendationLimit = 20

type RecommendationHandler struct {
	store  storage.Store
	engine Engine
}

func NewRecommendationHandler(store storage.Store, engine Engine) *RecommendationHandler {
	return &RecommendationHandler{store: store, engine: engine}
}

type bookmarkRequest struct {
	IsBookmarked *bool `json:"isBookmarked" validate:"required"`
}

func (h *RecommendationHandler) ListRecommendations(c *fiber.Ctx) error {
	limit := defaultRecommendationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return respondError(c, validation.Invalid("limit", "limit must be a positive integer"), "Cultural profile", "Failed to fetch recommendations")
		}
		limit = n
	}

	recs, err := h.store.ListRecommendations(c.UserContext(), c.Params("profileId"), limit)
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to fetch recommendations")
	}
	return c.JSON(recs)
}

func (h *RecommendationHandler) Generate(c *fiber.Ctx) error {
	var req profileRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err, "Cultural profile", "Failed to generate recommendations")
	}

	outcome, err := h.engine.Recommend(c.UserContext(), req.ProfileID)
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to generate recommendations")
	}

	logger.Info("Recommendations generated",
		zap.String("profile_id", req.ProfileID),
		zap.Int("saved", len(outcome.Recommendations)),
		zap.Int("candidates", len(outcome.Items)),
	)
	return c.JSON(outcome)
}

// Bookmark sets isBookmarked; repeating the same value is a no-op.
func (h *RecommendationHandler) Bookmark(c *fiber.Ctx) error {
	var req bookmarkRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err, "Recommendation", "Failed to update bookmark status")
	}

	rec, err := h.store.UpdateRecommendation(c.UserContext(), c.Params("id"), models.RecommendationUpdate{
		IsBookmarked: req.IsBookmarked,
	})
	if err != nil {
		return respondError(c, err, "Recommendation", "Failed to update bookmark status")
	}
	return c.JSON(rec)
}
