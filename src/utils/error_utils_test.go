package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.ErrNotFound, fiber.StatusNotFound},
		{fmt.Errorf("poll 1: %w", apperr.ErrInvalidOption), fiber.StatusBadRequest},
		{apperr.ErrFormInactive, fiber.StatusBadRequest},
		{apperr.ErrDuplicateResponse, fiber.StatusConflict},
		{apperr.ErrAccessDenied, fiber.StatusForbidden},
		{apperr.ErrInvalidAnswer, fiber.StatusBadRequest},
		{apperr.ErrValidation, fiber.StatusBadRequest},
		{apperr.ErrUnauthorized, fiber.StatusUnauthorized},
		{apperr.ErrConflict, fiber.StatusConflict},
		{errors.New("disk on fire"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestHandleServiceErrorHidesInternalErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error { return HandleServiceError(c, errors.New("secret detail")) })
	app.Get("/gone", func(c *fiber.Ctx) error { return HandleServiceError(c, apperr.ErrNotFound) })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	var out models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 500, out.Status)
	assert.NotContains(t, out.Message, "secret")

	resp, err = app.Test(httptest.NewRequest("GET", "/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(models.CreatePollRequest{Question: "Q", Options: []string{"only one"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "Options")

	assert.NoError(t, ValidateStruct(models.CreatePollRequest{Question: "Q", Options: []string{"a", "b"}}))

	idx := 0
	assert.NoError(t, ValidateStruct(models.VoteRequest{OptionIndex: &idx}), "index 0 is a valid vote")
	assert.ErrorIs(t, ValidateStruct(models.VoteRequest{}), apperr.ErrValidation)
}
