package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	mwvalidation "github.com/culture-compass/backend/internal/middleware/validation"
	"github.com/culture-compass/backend/pkg/logger"
)

type SearchHandler struct {
	graph Searcher
}

func NewSearchHandler(graph Searcher) *SearchHandler {
	return &SearchHandler{graph: graph}
}

// Search proxies a taste-graph search. Upstream failures come back as the
// error marker with a 500.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	query, _ := c.Locals(mwvalidation.SanitizedQueryKey).(string)
	if query == "" {
		query = strings.TrimSpace(c.Query("query"))
	}
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Query parameter required"})
	}

	resp := h.graph.Search(c.UserContext(), query, splitCategories(c.Query("categories")))
	if resp.Failed() {
		logger.Warn("Taste-graph search failed",
			zap.String("query", query),
			zap.String("error", resp.Error),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	}
	return c.JSON(resp)
}

func splitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
