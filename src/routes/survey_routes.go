package routes

import (
	"Backend-PollSurvey/src/controllers"
	"Backend-PollSurvey/src/middleware"

	"github.com/gofiber/fiber/v2"
)

func surveyRoutes(router fiber.Router, auth *middleware.Auth, ctrl *controllers.SurveyController) {
	group := router.Group("/surveys")

	// Create
	group.Post("/", auth.AuthJWT, ctrl.CreateSurvey)

	// Read
	group.Get("/", ctrl.GetSurveys)
	group.Get("/mine", auth.AuthJWT, ctrl.GetMySurveys)
	group.Get("/my-active-surveys", auth.AuthJWT, ctrl.GetMyActiveSurveys)
	group.Get("/:id", auth.AuthJWT, ctrl.GetSurvey)

	// Update
	group.Put("/:id", auth.AuthJWT, ctrl.UpdateSurvey)
	group.Patch("/toggle-active/:id", auth.AuthJWT, ctrl.ToggleSurveyStatus)

	// Delete
	group.Delete("/:id", auth.AuthJWT, ctrl.DeleteSurvey)
}
