package controllers

import (
	"time"

	"Backend-PollSurvey/src/middleware"
	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/responses"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
)

type SurveyResponseController struct {
	ledger *responses.Ledger
	timeoutCtx
}

func NewSurveyResponseController(ledger *responses.Ledger, timeout time.Duration) *SurveyResponseController {
	return &SurveyResponseController{ledger: ledger, timeoutCtx: timeoutCtx(timeout)}
}

// CreateSurveyResponse godoc
// @Summary      Submit a survey (once per email)
// @Tags         survey-responses
// @Accept       json
// @Produce      json
// @Param        body body models.SubmitSurveyResponseRequest true "Answers"
// @Success      201  {object}  models.SurveyResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Failure      429  {object}  models.ErrorResponse
// @Router       /survey-responses [post]
func (ctl *SurveyResponseController) CreateSurveyResponse(c *fiber.Ctx) error {
	var req models.SubmitSurveyResponseRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	surveyID, ok, err := parseObjectID(c, req.SurveyID, "surveyId")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	// ผู้ตอบอาจไม่ได้ login; email มาจาก body
	respondent := models.Identity{UserID: middleware.IdentityFrom(c).UserID, Email: req.RespondentEmail}
	resp, err := ctl.ledger.SubmitSurveyResponse(ctx, surveyID, respondent, req.Answers)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetSurveyResponses godoc
// @Summary      All responses, or the caller's own when surveyId and respondentEmail are given
// @Description  With both query params the result is [] or a one-element array.
// @Tags         survey-responses
// @Produce      json
// @Param        surveyId        query string false "Survey ID"
// @Param        respondentEmail query string false "Respondent email"
// @Success      200  {array}   models.SurveyResponse
// @Failure      400  {object}  models.ErrorResponse
// @Router       /survey-responses [get]
func (ctl *SurveyResponseController) GetSurveyResponses(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	surveyParam, email := c.Query("surveyId"), c.Query("respondentEmail")
	if surveyParam != "" && email != "" {
		surveyID, ok, err := parseObjectID(c, surveyParam, "surveyId")
		if !ok {
			return err
		}
		existing, err := ctl.ledger.HasResponded(ctx, surveyID, email)
		if err != nil {
			return utils.HandleServiceError(c, err)
		}
		if existing == nil {
			return c.JSON([]models.SurveyResponse{})
		}
		return c.JSON([]models.SurveyResponse{*existing})
	}

	list, err := ctl.ledger.ListAllSurveyResponses(ctx)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(list)
}

// GetResponsesBySurvey godoc
// @Summary      Respondent email and answers for every submission, newest first
// @Tags         survey-responses
// @Produce      json
// @Param        surveyId path string true "Survey ID"
// @Success      200  {array}   models.RespondentAnswers
// @Failure      400  {object}  models.ErrorResponse
// @Router       /survey-responses/survey/{surveyId} [get]
func (ctl *SurveyResponseController) GetResponsesBySurvey(c *fiber.Ctx) error {
	surveyID, ok, err := parseObjectID(c, c.Params("surveyId"), "survey ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	list, err := ctl.ledger.ListResponses(ctx, surveyID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	out := make([]models.RespondentAnswers, 0, len(list))
	for _, r := range list {
		out = append(out, models.RespondentAnswers{RespondentEmail: r.RespondentEmail, Answers: r.Answers})
	}
	return c.JSON(out)
}

// CountResponsesBySurvey godoc
// @Summary      Number of submissions for a survey
// @Tags         survey-responses
// @Produce      json
// @Param        surveyId path string true "Survey ID"
// @Success      200  {object}  models.CountResponse
// @Failure      400  {object}  models.ErrorResponse
// @Router       /survey-responses/survey/{surveyId}/count [get]
func (ctl *SurveyResponseController) CountResponsesBySurvey(c *fiber.Ctx) error {
	surveyID, ok, err := parseObjectID(c, c.Params("surveyId"), "survey ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	n, err := ctl.ledger.CountResponses(ctx, surveyID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(models.CountResponse{Count: n})
}

// GetSurveyResponse godoc
// @Summary      One submission
// @Tags         survey-responses
// @Produce      json
// @Param        id   path  string  true  "Response ID"
// @Success      200  {object}  models.SurveyResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /survey-responses/{id} [get]
func (ctl *SurveyResponseController) GetSurveyResponse(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	resp, err := ctl.ledger.GetSurveyResponse(ctx, id)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(resp)
}

// DeleteSurveyResponse godoc
// @Summary      Delete a submission (survey owner only)
// @Tags         survey-responses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Response ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /survey-responses/{id} [delete]
func (ctl *SurveyResponseController) DeleteSurveyResponse(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	if err := ctl.ledger.DeleteSurveyResponse(ctx, id, middleware.IdentityFrom(c)); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(models.MessageResponse{Message: "Deleted successfully"})
}
