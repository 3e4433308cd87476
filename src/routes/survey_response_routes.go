package routes

import (
	"Backend-PollSurvey/src/controllers"
	"Backend-PollSurvey/src/middleware"

	"github.com/gofiber/fiber/v2"
)

func surveyResponseRoutes(router fiber.Router, auth *middleware.Auth, limiter fiber.Handler, ctrl *controllers.SurveyResponseController) {
	group := router.Group("/survey-responses")

	// ส่งแบบสอบถามได้โดยไม่ต้อง login
	group.Post("/", auth.OptionalAuthJWT, limiter, ctrl.CreateSurveyResponse)

	group.Get("/", ctrl.GetSurveyResponses)
	group.Get("/survey/:surveyId", ctrl.GetResponsesBySurvey)
	group.Get("/survey/:surveyId/count", ctrl.CountResponsesBySurvey)
	group.Get("/:id", ctrl.GetSurveyResponse)

	group.Delete("/:id", auth.AuthJWT, ctrl.DeleteSurveyResponse)
}
