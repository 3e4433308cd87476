package routes

import (
	"Backend-PollSurvey/src/controllers"
	"Backend-PollSurvey/src/middleware"

	"github.com/gofiber/fiber/v2"
)

func pollResponseRoutes(router fiber.Router, auth *middleware.Auth, limiter fiber.Handler, ctrl *controllers.PollResponseController) {
	group := router.Group("/poll-responses")

	group.Post("/", auth.AuthJWT, limiter, ctrl.CreatePollResponse)
	group.Get("/poll/:pollId", ctrl.GetPollResponses)
	group.Get("/poll/:pollId/count", ctrl.CountPollResponses)
	group.Get("/user", auth.AuthJWT, ctrl.GetMyPollResponses)
}
