package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/insights"
	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/pkg/logger"
)

type QuestionnaireHandler struct {
	store  storage.Store
	engine Engine
}

func NewQuestionnaireHandler(store storage.Store, engine Engine) *QuestionnaireHandler {
	return &QuestionnaireHandler{store: store, engine: engine}
}

type submitRequest struct {
	ProfileID string            `json:"profileId" validate:"required"`
	Responses []insights.Answer `json:"responses" validate:"required,max=50,dive"`
}

func (h *QuestionnaireHandler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err, "Cultural profile", "Failed to process questionnaire responses")
	}

	logger.Info("Processing questionnaire",
		zap.String("profile_id", req.ProfileID),
		zap.Int("responses", len(req.Responses)),
	)

	result, err := h.engine.Submit(c.UserContext(), req.ProfileID, req.Responses)
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to process questionnaire responses")
	}

	return c.JSON(fiber.Map{
		"success":              true,
		"responses":            result.Responses,
		"insights":             result.Insights,
		"completionPercentage": result.CompletionPercentage,
		"items":                result.Items,
	})
}

func (h *QuestionnaireHandler) ListResponses(c *fiber.Ctx) error {
	responses, err := h.store.ListResponses(c.UserContext(), c.Params("profileId"))
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to fetch questionnaire responses")
	}
	return c.JSON(responses)
}
