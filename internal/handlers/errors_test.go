package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeDeal/internal/services"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{services.Validation("bad amount"), fiber.StatusBadRequest, "bad amount"},
		{services.NotFound("offer x not found"), fiber.StatusNotFound, "offer x not found"},
		{services.Forbidden("not yours"), fiber.StatusForbidden, "not yours"},
		{services.Conflict("already closed"), fiber.StatusConflict, "already closed"},
		{errors.New("connection reset"), fiber.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return respondError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestRespondErrorIncludesFields(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, &services.Error{
			Kind:    services.KindValidation,
			Message: "invalid title",
			Fields:  map[string]string{"title": "is required"},
		})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "is required", body.Fields["title"])
}
