package controllers

import (
	"context"
	"time"

	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// timeoutCtx bounds every store call made while serving a request (DB_TIMEOUT).
type timeoutCtx time.Duration

func (t timeoutCtx) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	d := time.Duration(t)
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(c.UserContext(), d)
}

// parseBody อ่าน JSON body แล้ว validate ตาม tag; ok=false เมื่อตอบ 400 ไปแล้ว
func parseBody(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, utils.HandleError(c, fiber.StatusBadRequest, "Invalid input: "+err.Error())
	}
	if err := utils.ValidateStruct(out); err != nil {
		return false, utils.HandleError(c, fiber.StatusBadRequest, err.Error())
	}
	return true, nil
}

// parseObjectID returns ok=false after writing a 400 response.
func parseObjectID(c *fiber.Ctx, value, field string) (primitive.ObjectID, bool, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, false, utils.HandleError(c, fiber.StatusBadRequest, "Invalid "+field)
	}
	return id, true, nil
}
