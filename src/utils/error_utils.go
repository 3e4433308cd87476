// error_utils.go
package utils

import (
	"errors"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func HandleError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Status:  status,
		Message: message,
	})
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidOption),
		errors.Is(err, apperr.ErrFormInactive),
		errors.Is(err, apperr.ErrInvalidAnswer),
		errors.Is(err, apperr.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrDuplicateResponse), errors.Is(err, apperr.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, apperr.ErrAccessDenied):
		return fiber.StatusForbidden
	case errors.Is(err, apperr.ErrUnauthorized):
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// HandleServiceError แปลง error จาก service เป็น ErrorResponse; error ที่ไม่รู้จักจะถูก log และตอบ 500
func HandleServiceError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("unhandled service error")
		return HandleError(c, status, "Internal server error")
	}
	return HandleError(c, status, err.Error())
}
