package routes

import (
	"time"

	"Backend-PollSurvey/src/config"
	"Backend-PollSurvey/src/controllers"
	"Backend-PollSurvey/src/middleware"
	"Backend-PollSurvey/src/repository"
	"Backend-PollSurvey/src/services/polls"
	"Backend-PollSurvey/src/services/responses"
	"Backend-PollSurvey/src/services/surveys"
	"Backend-PollSurvey/src/services/users"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Deps คือทุกอย่างที่ route ต้องใช้ สร้างครั้งเดียวใน main
type Deps struct {
	Store  *repository.Store
	Redis  *redis.Client // nil = ไม่มี blacklist
	Config *config.Config
}

// InitRoutes รวม routes จากแต่ละ module ไว้ใต้ /api
func InitRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config
	jwt := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	blacklist := utils.NewTokenBlacklist(deps.Redis)
	auth := middleware.NewAuth(jwt, blacklist)

	userSvc := users.NewService(deps.Store.Users, jwt, blacklist)
	pollSvc := polls.NewService(deps.Store)
	surveySvc := surveys.NewService(deps.Store)
	var ledgerOpts []responses.Option
	if deps.Redis != nil {
		// หลาย instance ใช้ lock เดียวกันผ่าน Redis
		ledgerOpts = append(ledgerOpts, responses.WithLocker(utils.NewRedisLock(deps.Redis, 2*cfg.DBTimeout)))
	}
	ledger := responses.NewLedger(deps.Store, ledgerOpts...)

	// โหวตและส่งแบบสอบถามใช้ limiter ร่วมกันต่อ IP
	submitLimiter := middleware.RateLimitByIP(middleware.NewIPRateLimiter(cfg.VoteRatePerMin, cfg.VoteRateBurst, 10*time.Minute))

	api := app.Group("/api")
	authRoutes(api, auth, controllers.NewAuthController(userSvc, cfg.DBTimeout))
	userRoutes(api, auth, controllers.NewUserController(userSvc, cfg.DBTimeout))
	pollRoutes(api, auth, submitLimiter, controllers.NewPollController(pollSvc, ledger, cfg.DBTimeout))
	pollResponseRoutes(api, auth, submitLimiter, controllers.NewPollResponseController(ledger, cfg.DBTimeout))
	surveyRoutes(api, auth, controllers.NewSurveyController(surveySvc, cfg.DBTimeout))
	surveyResponseRoutes(api, auth, submitLimiter, controllers.NewSurveyResponseController(ledger, cfg.DBTimeout))

	// Route เช็คว่า API ทำงานอยู่
	app.Get("/health", controllers.Health)
}
