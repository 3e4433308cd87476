package controllers

import (
	"time"

	"Backend-PollSurvey/src/middleware"
	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/users"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	users *users.Service
	timeoutCtx
}

func NewAuthController(svc *users.Service, timeout time.Duration) *AuthController {
	return &AuthController{users: svc, timeoutCtx: timeoutCtx(timeout)}
}

// Register godoc
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body models.RegisterRequest true "Name, email and password"
// @Success      201  {object}  models.AuthResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /auth/register [post]
func (ctl *AuthController) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	res, err := ctl.users.Register(ctx, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Login godoc
// @Summary      Login with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body models.LoginRequest true "Credentials"
// @Success      200  {object}  models.AuthResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /auth/login [post]
func (ctl *AuthController) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	res, err := ctl.users.Login(ctx, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(res)
}

// Logout godoc
// @Summary      Revoke the current token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.MessageResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /auth/logout [post]
func (ctl *AuthController) Logout(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	if err := ctl.users.Logout(ctx, middleware.TokenFrom(c)); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(models.MessageResponse{Message: "Logged out successfully"})
}
