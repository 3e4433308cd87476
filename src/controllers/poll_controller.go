package controllers

import (
	"time"

	"Backend-PollSurvey/src/middleware"
	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/services/polls"
	"Backend-PollSurvey/src/services/responses"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
)

type PollController struct {
	polls  *polls.Service
	ledger *responses.Ledger
	timeoutCtx
}

func NewPollController(svc *polls.Service, ledger *responses.Ledger, timeout time.Duration) *PollController {
	return &PollController{polls: svc, ledger: ledger, timeoutCtx: timeoutCtx(timeout)}
}

// CreatePoll godoc
// @Summary      Create a poll
// @Description  Question with at least 2 options. type defaults to "Single Choice", isPublic to true.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body models.CreatePollRequest true "Poll"
// @Success      201  {object}  models.Poll
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /polls [post]
func (ctl *PollController) CreatePoll(c *fiber.Ctx) error {
	var req models.CreatePollRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	poll, err := ctl.polls.CreatePoll(ctx, middleware.IdentityFrom(c), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(poll)
}

// GetPolls godoc
// @Summary      Public polls, plus the caller's own polls when logged in
// @Tags         polls
// @Produce      json
// @Success      200  {array}   models.Poll
// @Failure      500  {object}  models.ErrorResponse
// @Router       /polls [get]
func (ctl *PollController) GetPolls(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	list, err := ctl.polls.ListVisible(ctx, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(list)
}

// GetAllPolls godoc
// @Summary      All polls, no filter
// @Tags         polls
// @Produce      json
// @Success      200  {array}   models.Poll
// @Failure      500  {object}  models.ErrorResponse
// @Router       /polls/all [get]
func (ctl *PollController) GetAllPolls(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	list, err := ctl.polls.ListAll(ctx)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(list)
}

// GetMyPolls godoc
// @Summary      Polls created by the caller
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Poll
// @Failure      401  {object}  models.ErrorResponse
// @Router       /polls/my-polls [get]
func (ctl *PollController) GetMyPolls(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	list, err := ctl.polls.ListMine(ctx, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(list)
}

// GetMyActivePolls godoc
// @Summary      Active polls created by the caller
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.ActivePollsResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /polls/my-active-polls [get]
func (ctl *PollController) GetMyActivePolls(c *fiber.Ctx) error {
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	res, err := ctl.polls.ListMyActive(ctx, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(res)
}

// GetPoll godoc
// @Summary      Get a poll
// @Description  Private polls are visible to the creator and invited emails.
// @Tags         polls
// @Produce      json
// @Param        id   path  string  true  "Poll ID"
// @Success      200  {object}  models.Poll
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /polls/{id} [get]
func (ctl *PollController) GetPoll(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	poll, err := ctl.polls.GetPoll(ctx, id, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(poll)
}

// VotePoll godoc
// @Summary      Vote on a poll and get the updated poll back
// @Description  Same ledger rules as POST /poll-responses: one vote per user, a new index moves the vote.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string            true  "Poll ID"
// @Param        body body  models.VoteRequest true  "Option index"
// @Success      200  {object}  models.Poll
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /polls/{id}/vote [post]
func (ctl *PollController) VotePoll(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "poll ID")
	if !ok {
		return err
	}
	var req models.VoteRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	voter := middleware.IdentityFrom(c)
	if _, err := ctl.ledger.SubmitPollVote(ctx, id, voter, *req.OptionIndex); err != nil {
		return utils.HandleServiceError(c, err)
	}
	poll, err := ctl.polls.GetPoll(ctx, id, voter)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(poll)
}

// TogglePollStatus godoc
// @Summary      Open or close a poll (owner only)
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Poll ID"
// @Success      200  {object}  models.ToggleActiveResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /polls/{id}/toggle-active [patch]
func (ctl *PollController) TogglePollStatus(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	active, err := ctl.polls.ToggleActive(ctx, id, middleware.IdentityFrom(c))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(models.ToggleActiveResponse{IsActive: active})
}

// DeletePoll godoc
// @Summary      Delete a poll and its votes (owner only)
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Poll ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /polls/{id} [delete]
func (ctl *PollController) DeletePoll(c *fiber.Ctx) error {
	id, ok, err := parseObjectID(c, c.Params("id"), "ID")
	if !ok {
		return err
	}
	ctx, cancel := ctl.ctx(c)
	defer cancel()

	if err := ctl.polls.DeletePoll(ctx, id, middleware.IdentityFrom(c)); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(models.MessageResponse{Message: "Poll deleted successfully"})
}
