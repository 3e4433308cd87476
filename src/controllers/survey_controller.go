package controllers

import (
	"time"

	"Backend-PollSurvey/src/middleware"
	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/surveys"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
)

type SurveyController struct {
	surveys *surveys.Service
	timeoutCtx
}

func NewSurveyController(svc *surveys.Service, timeout time.Duration) *SurveyController {
	return &SurveyController{surveys: svc, timeoutCtx: timeoutCtx(timeout)}
}

// CreateSurvey godoc
// @Summary      Create a survey
// @Description  Missing question ids are generated. bgColor defaults to #ffffff.
// @Tags         surveys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body models.CreateSurveyRequest true "Survey"
// @Success      201  {object}  models.Survey
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /surveys [post]
func (ctl *SurveyController) CreateSurvey(c *fiber.Ctx) error {
	var req models.CreateSurveyRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	survey, err := ctl.surveys.CreateSurvey(ctx, middleware.IdentityFrom(c), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(survey)
}

// GetSurveys godoc
// @Summary      All surveys, newest first
// @Tags         surveys
// @Produce      json
// @Success      200  {array}   models.Survey
// @Failure      500  {object}  models.ErrorResponse
// @Router       /surveys [get]
func (ctl *SurveyController) GetSurveys(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	list, err := ctl.surveys.ListAll(ctx)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(list)
}

// GetMySurveys godoc
// @Summary      Surveys created by the caller
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.SurveyListResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /surveys/mine [get]
func (ctl *SurveyController) GetMySurveys(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	list, err := ctl.surveys.ListMine(ctx, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(models.SurveyListResponse{Surveys: list})
}

// GetMyActiveSurveys godoc
// @Summary      Active surveys created by the caller
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.ActiveSurveysResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /surveys/my-active-surveys [get]
func (ctl *SurveyController) GetMyActiveSurveys(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	res, err := ctl.surveys.ListMyActive(ctx, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(res)
}

// GetSurvey godoc
// @Summary      Get a survey
// @Description  Private surveys are visible to the creator and allowed emails.
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Survey ID"
// @Success      200  {object}  models.Survey
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /surveys/{id} [get]
func (ctl *SurveyController) GetSurvey(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	survey, err := ctl.surveys.GetSurvey(ctx, id, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(survey)
}

// UpdateSurvey godoc
// @Summary      Update a survey (owner only)
// @Tags         surveys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string                     true  "Survey ID"
// @Param        body body  models.UpdateSurveyRequest true  "Fields to change"
// @Success      200  {object}  models.Survey
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /surveys/{id} [put]
func (ctl *SurveyController) UpdateSurvey(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	var req models.UpdateSurveyRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	survey, err := ctl.surveys.UpdateSurvey(ctx, id, middleware.IdentityFrom(c), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(survey)
}

// ToggleSurveyStatus godoc
// @Summary      Open or close a survey (owner only)
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Survey ID"
// @Success      200  {object}  models.ToggleActiveResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /surveys/toggle-active/{id} [patch]
func (ctl *SurveyController) ToggleSurveyStatus(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	res, err := ctl.surveys.ToggleActive(ctx, id, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(res)
}

// DeleteSurvey godoc
// @Summary      Delete a survey and its responses (owner only)
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Survey ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /surveys/{id} [delete]
func (ctl *SurveyController) DeleteSurvey(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	if err := ctl.surveys.DeleteSurvey(ctx, id, middleware.IdentityFrom(c)); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(models.MessageResponse{Message: "Survey deleted successfully"})
}
