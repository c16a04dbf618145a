package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/storage/models"
)

type ProfileHandler struct {
	store storage.Store
}

func NewProfileHandler(store storage.Store) *ProfileHandler {
	return &ProfileHandler{store: store}
}

type createProfileRequest struct {
	UserID      string             `json:"userId" validate:"required"`
	Preferences models.Preferences `json:"preferences"`
}

// updateProfileRequest is a merge patch; omitted fields keep their value.
type updateProfileRequest struct {
	Preferences          *models.Preferences `json:"preferences"`
	CulturalDNA          *models.CulturalDNA `json:"culturalDNA"`
	CompletionPercentage *int                `json:"completionPercentage" validate:"omitempty,gte=0,lte=100"`
}

func (h *ProfileHandler) CreateProfile(c *fiber.Ctx) error {
	var req createProfileRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err, "Cultural profile", "Failed to create cultural profile")
	}

	profile, err := h.store.CreateProfile(c.UserContext(), &models.CulturalProfile{
		UserID:      req.UserID,
		Preferences: req.Preferences,
	})
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to create cultural profile")
	}
	return c.JSON(profile)
}

func (h *ProfileHandler) GetProfileByUser(c *fiber.Ctx) error {
	profile, err := h.store.GetProfileByUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to fetch cultural profile")
	}
	return c.JSON(profile)
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err, "Cultural profile", "Failed to update profile")
	}

	profile, err := h.store.UpdateProfile(c.UserContext(), c.Params("id"), models.ProfileUpdate{
		Preferences:          req.Preferences,
		CulturalDNA:          req.CulturalDNA,
		CompletionPercentage: req.CompletionPercentage,
	})
	if err != nil {
		return respondError(c, err, "Cultural profile", "Failed to update profile")
	}
	return c.JSON(profile)
}
