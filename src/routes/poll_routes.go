package routes

import (
	"Backend-PollSurvey/src/controllers"
	"Backend-PollSurvey/src/middleware"

	"github.com/gofiber/fiber/v2"
)

func pollRoutes(router fiber.Router, auth *middleware.Auth, limiter fiber.Handler, ctrl *controllers.PollController) {
	group := router.Group("/polls")

	// Create
	group.Post("/", auth.AuthJWT, ctrl.CreatePoll)

	// Read (path คงที่ต้องมาก่อน /:id)
	group.Get("/", auth.OptionalAuthJWT, ctrl.GetPolls)
	group.Get("/all", ctrl.GetAllPolls)
	group.Get("/my-polls", auth.AuthJWT, ctrl.GetMyPolls)
	group.Get("/my-active-polls", auth.AuthJWT, ctrl.GetMyActivePolls)
	group.Get("/:id", auth.OptionalAuthJWT, ctrl.GetPoll)

	// Vote / status
	group.Post("/:id/vote", auth.AuthJWT, limiter, ctrl.VotePoll)
	group.Patch("/:id/toggle-active", auth.AuthJWT, ctrl.TogglePollStatus)

	// Delete
	group.Delete("/:id", auth.AuthJWT, ctrl.DeletePoll)
}
