package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"Backend-PollSurvey/src/config"
	"Backend-PollSurvey/src/database"
	_ "Backend-PollSurvey/src/docs"
	"Backend-PollSurvey/src/metrics"
	"Backend-PollSurvey/src/routes"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title Poll & Survey API
// @version 1.0
// @description Polls with live tallies and multi-question surveys with one response per respondent.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		utils.Log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// เชื่อมต่อกับ MongoDB (หรือ memory store ตอน dev)
	store, err := database.NewStore(ctx, cfg)
	if err != nil {
		utils.Log.WithError(err).Fatal("Error connecting to the database")
	}

	rdb, err := database.InitRedis(ctx, cfg.RedisURI)
	if err != nil {
		utils.Log.WithError(err).Fatal("Error connecting to redis")
	}
	if rdb == nil {
		utils.Log.Warn("⚠️ REDIS_URI not set, logout will not revoke tokens")
	}

	// สร้าง app instance
	app := fiber.New(fiber.Config{
		AppName:      "Backend-PollSurvey",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New(helmet.Config{CrossOriginEmbedderPolicy: "unsafe-none"}))
	app.Use(compress.New())

	// ✅ เปิดใช้งาน CORS Middleware
	origins := strings.TrimSpace(cfg.AllowedOrigins)
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*", // ❌ ต้องเป็น false ถ้าใช้ "*"
	}))
	app.Use(metrics.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// เปิดใช้งาน Swagger ที่ URL /swagger
	app.Get("/swagger/*", swagger.HandlerDefault)

	// รวม routes จากแต่ละ module
	routes.InitRoutes(app, routes.Deps{Store: store, Redis: rdb, Config: cfg})

	go func() {
		<-ctx.Done()
		utils.Log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			utils.Log.WithError(err).Error("shutdown failed")
		}
	}()

	// เริ่มเซิร์ฟเวอร์
	utils.Log.WithField("port", cfg.AppPort).Info("Server is running")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		utils.Log.WithError(err).Error("server stopped")
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if rdb != nil {
		_ = rdb.Close()
	}
	database.Disconnect(closeCtx)
}

// errorHandler ตอบ error ที่หลุดมาจาก handler ในรูป ErrorResponse เดียวกับ controller
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.HandleError(c, fe.Code, fe.Message)
	}
	return utils.HandleServiceError(c, err)
}
