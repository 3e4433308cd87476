package routes

import (
	"Backend-PollSurvey/src/controllers"
	"Backend-PollSurvey/src/middleware"

	"github.com/gofiber/fiber/v2"
)

// userRoutes กำหนดเส้นทางสำหรับ User API
func userRoutes(router fiber.Router, auth *middleware.Auth, ctrl *controllers.UserController) {
	group := router.Group("/users")
	group.Put("/profile", auth.AuthJWT, ctrl.UpdateProfile) // ต้องมาก่อน /:id
	group.Get("/:id", ctrl.GetUser)
}
