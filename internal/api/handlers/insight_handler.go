package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/culture-compass/backend/internal/storage"
)

type InsightHandler struct {
	store  storage.Store
	engine Engine
}

func NewInsightHandler(store storage.Store, engine Engine) *InsightHandler {
	return &InsightHandler{store: store, engine: engine}
}

func (h *InsightHandler) ListInsights(c *fiber.Ctx) error {
	insights, err := h.store.ListInsights(c.UserContext(), c.Params("profileId"))
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to fetch cultural insights")
	}
	return c.JSON(insights)
}

// GenerateStory narrates the stored profile in one response.
func (h *InsightHandler) GenerateStory(c *fiber.Ctx) error {
	var req profileRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err, "Cultural profile", "Failed to generate cultural story")
	}

	story, err := h.engine.Story(c.UserContext(), req.ProfileID)
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to generate cultural story")
	}
	return c.JSON(fiber.Map{"story": story})
}
