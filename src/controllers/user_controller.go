package controllers

import (
	"time"

	"Backend-PollSurvey/src/middleware"
	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/users"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	users *users.Service
	timeoutCtx
}

func NewUserController(svc *users.Service, timeout time.Duration) *UserController {
	return &UserController{users: svc, timeoutCtx: timeoutCtx(timeout)}
}

// GetUser godoc
// @Summary      Get public user info
// @Tags         users
// @Produce      json
// @Param        id   path  string  true  "User ID"
// @Success      200  {object}  models.UserSummary
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /users/{id} [get]
func (ctl *UserController) GetUser(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	user, err := ctl.users.GetInfo(ctx, id)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile godoc
// @Summary      Update the caller's name
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body models.UpdateProfileRequest true "New name"
// @Success      200  {object}  models.UserSummary
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /users/profile [put]
func (ctl *UserController) UpdateProfile(c *fiber.Ctx) error {
	var req models.UpdateProfileRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	user, err := ctl.users.UpdateProfile(ctx, middleware.IdentityFrom(c), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(user)
}
