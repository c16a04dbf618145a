package validation

import (
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{MaxQueryLength: 20}))
	app.All("/echo", func(c *fiber.Ctx) error {
		q, _ := c.Locals(SanitizedQueryKey).(string)
		return c.SendString(q)
	})
	return app
}

func TestRejectsUnsupportedContentType(t *testing.T) {
	req := httptest.NewRequest("POST", "/echo", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := newApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestAcceptsJSONAndBodylessRequests(t *testing.T) {
	req := httptest.NewRequest("PATCH", "/echo", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err := newApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = newApp().Test(httptest.NewRequest("POST", "/echo", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestQuerySanitized(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest("GET", "/echo?query="+url.QueryEscape(" jazz\x00 "), nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "jazz", string(body))
}

func TestQueryRejected(t *testing.T) {
	for name, q := range map[string]string{
		"too long": strings.Repeat("a", 21),
		"script":   "<script>x",
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := newApp().Test(httptest.NewRequest("GET", "/echo?query="+url.QueryEscape(q), nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}
