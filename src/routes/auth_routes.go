package routes

import (
	"Backend-PollSurvey/src/controllers"
	"Backend-PollSurvey/src/middleware"

	"github.com/gofiber/fiber/v2"
)

// authRoutes กำหนด route สำหรับ auth (login/logout/register)
func authRoutes(router fiber.Router, auth *middleware.Auth, ctrl *controllers.AuthController) {
	group := router.Group("/auth")

	group.Post("/register", ctrl.Register)
	group.Post("/login", ctrl.Login) // 🔐 login

	// token เข้า blacklist จนหมดอายุ
	group.Post("/logout", auth.AuthJWT, ctrl.Logout)
}
