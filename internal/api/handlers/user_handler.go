package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/culture-compass/backend/internal/storage"
)

type UserHandler struct {
	store storage.Store
}

func NewUserHandler(store storage.Store) *UserHandler {
	return &UserHandler{store: store}
}

type createUserRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,max=200"`
}

func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err, "User", "Failed to create user")
	}

	user, err := h.store.CreateUser(c.UserContext(), strings.TrimSpace(req.Email), strings.TrimSpace(req.Name))
	if err != nil {
		return respondError(c, err, "User", "Failed to create user")
	}
	return c.JSON(user)
}

func (h *UserHandler) GetUserByEmail(c *fiber.Ctx) error {
	user, err := h.store.GetUserByEmail(c.UserContext(), c.Params("email"))
	if err != nil {
		return respondError(c, err, "User", "Failed to fetch user")
	}
	return c.JSON(user)
}
