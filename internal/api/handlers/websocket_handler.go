package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/pkg/logger"
)

type jsonWriter interface {
	WriteJSON(v any) error
}

type WebSocketHandler struct {
	engine Engine
}

func NewWebSocketHandler(engine Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

// RequireUpgrade rejects plain HTTP requests to websocket routes.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleStory streams the cultural story for :profileId as chunk messages
// followed by one complete or error message.
func (h *WebSocketHandler) HandleStory(c *websocket.Conn) {
	profileID := c.Params("profileId")
	logger.Info("Story stream opened", zap.String("profile_id", profileID))

	defer func() {
		c.Close()
		logger.Info("Story stream closed", zap.String("profile_id", profileID))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.streamStory(ctx, c, profileID); err != nil {
		logger.Error("Failed to stream story",
			zap.String("profile_id", profileID),
			zap.Error(err),
		)
	}
}

func (h *WebSocketHandler) streamStory(ctx context.Context, w jsonWriter, profileID string) error {
	var story strings.Builder
	err := h.engine.StreamStory(ctx, profileID, func(chunk string) error {
		story.WriteString(chunk)
		return sendChunk(w, chunk)
	})
	if err != nil {
		msg := "Failed to generate cultural story"
		if errors.Is(err, storage.ErrNotFound) {
			msg = "Cultural profile not found"
		}
		if sendErr := sendError(w, msg); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}
	return sendComplete(w, story.String())
}

func sendChunk(w jsonWriter, content string) error {
	return w.WriteJSON(map[string]any{
		"type":    "chunk",
		"content": content,
	})
}

func sendComplete(w jsonWriter, story string) error {
	return w.WriteJSON(map[string]any{
		"type":  "complete",
		"story": story,
	})
}

func sendError(w jsonWriter, msg string) error {
	return w.WriteJSON(map[string]any{
		"type":  "error",
		"error": msg,
	})
}
