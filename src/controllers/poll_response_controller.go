package controllers

import (
	"time"

	"Backend-PollSurvey/src/middleware"
	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/responses"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
)

type PollResponseController struct {
	ledger *responses.Ledger
	timeoutCtx
}

func NewPollResponseController(ledger *responses.Ledger, timeout time.Duration) *PollResponseController {
	return &PollResponseController{ledger: ledger, timeoutCtx: timeoutCtx(timeout)}
}

// CreatePollResponse godoc
// @Summary      Vote, or change an existing vote
// @Tags         poll-responses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body models.VoteRequest true "pollId and optionIndex"
// @Success      201  {object}  models.PollResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      429  {object}  models.ErrorResponse
// @Router       /poll-responses [post]
func (ctl *PollResponseController) CreatePollResponse(c *fiber.Ctx) error {
	var req models.VoteRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	pollID, ok, err := parseObjectID(c, req.PollID, "pollId")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	resp, err := ctl.ledger.SubmitPollVote(ctx, pollID, middleware.IdentityFrom(c), *req.OptionIndex)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetPollResponses godoc
// @Summary      Votes on a poll with voter name and email
// @Tags         poll-responses
// @Produce      json
// @Param        pollId path string true "Poll ID"
// @Success      200  {array}   models.PollResponse
// @Failure      400  {object}  models.ErrorResponse
// @Router       /poll-responses/poll/{pollId} [get]
func (ctl *PollResponseController) GetPollResponses(c *fiber.Ctx) error {
	pollID, ok, err := parseObjectID(c, c.Params("pollId"), "poll ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	list, err := ctl.ledger.ListPollResponses(ctx, pollID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(list)
}

// CountPollResponses godoc
// @Summary      Number of votes on a poll
// @Tags         poll-responses
// @Produce      json
// @Param        pollId path string true "Poll ID"
// @Success      200  {object}  models.CountResponse
// @Failure      400  {object}  models.ErrorResponse
// @Router       /poll-responses/poll/{pollId}/count [get]
func (ctl *PollResponseController) CountPollResponses(c *fiber.Ctx) error {
	pollID, ok, err := parseObjectID(c, c.Params("pollId"), "poll ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	n, err := ctl.ledger.CountPollResponses(ctx, pollID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(models.CountResponse{Count: n})
}

// GetMyPollResponses godoc
// @Summary      The caller's votes with poll question and options
// @Tags         poll-responses
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.PollResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /poll-responses/user [get]
func (ctl *PollResponseController) GetMyPollResponses(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	list, err := ctl.ledger.ListUserPollResponses(ctx, middleware.IdentityFrom(c).UserID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(list)
}
