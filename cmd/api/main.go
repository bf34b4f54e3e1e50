package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"bolita-miniapp-backend/internal/config"
	"bolita-miniapp-backend/internal/handlers"
	"bolita-miniapp-backend/internal/middleware"
	"bolita-miniapp-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	schedule, err := services.NewSchedule(cfg.Timezone)
	if err != nil {
		log.Fatalf("Failed to load schedule: %v", err)
	}

	jwtService := services.NewJWTService(cfg)
	ledger := services.NewLedger(redisService)
	registry := services.NewSessionRegistry(redisService, schedule)
	wagerService := services.NewWagerService(redisService, ledger, registry)
	payoutEngine := services.NewPayoutEngine(redisService, ledger, registry)
	gateway := services.NewFundRequestGateway(redisService, ledger)

	wsHandler := handlers.NewWebSocketHandler(redisService)
	registry.SetBroadcaster(wsHandler)
	payoutEngine.SetBroadcaster(wsHandler)

	// Sessions whose closing hour passed stop accepting wagers immediately;
	// this tick just moves their stored status to closed.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			now := time.Now().In(schedule.Location())
			if closed, err := registry.CloseExpired(now); err == nil && len(closed) > 0 {
				log.Printf("Closed %d expired sessions", len(closed))
			}
		}
	}()

	authHandler := handlers.NewAuthHandler(redisService, jwtService, cfg.BotToken)
	accountHandler := handlers.NewAccountHandler(redisService, ledger)
	wagerHandler := handlers.NewWagerHandler(wagerService, registry, schedule, redisService)
	fundsHandler := handlers.NewFundsHandler(gateway, redisService)
	adminHandler := handlers.NewAdminHandler(redisService, registry, payoutEngine, gateway, schedule)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/telegram", authHandler.Login)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/me", accountHandler.GetCurrentAccount)
		protected.POST("/transfer", accountHandler.Transfer)
		protected.GET("/transactions", accountHandler.GetTransactions)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		protected.GET("/sessions", wagerHandler.GetSessions)
		protected.GET("/winning-numbers", wagerHandler.GetWinningNumbers)
		protected.GET("/rates", wagerHandler.GetRates)

		wagers := protected.Group("/wagers")
		{
			wagers.POST("/place", wagerHandler.PlaceWager)
			wagers.DELETE("/:id", wagerHandler.CancelWager)
			wagers.GET("/history", wagerHandler.GetHistory)
		}

		funds := protected.Group("/funds")
		{
			funds.GET("/methods", fundsHandler.GetPaymentMethods)
			funds.POST("/deposit", fundsHandler.RequestDeposit)
			funds.POST("/withdraw", fundsHandler.RequestWithdraw)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.AdminMiddleware(cfg))
		{
			admin.POST("/sessions", adminHandler.CreateSession)
			admin.POST("/sessions/:id/close", adminHandler.CloseSession)
			admin.POST("/sessions/:id/winning-number", adminHandler.PublishWinningNumber)
			admin.POST("/sessions/:id/resume", adminHandler.ResumeSettlement)
			admin.GET("/sessions/:id/winners", adminHandler.GetWinners)

			admin.GET("/requests", adminHandler.ListPendingRequests)
			admin.POST("/requests/:id/approve", adminHandler.ApproveRequest)
			admin.POST("/requests/:id/reject", adminHandler.RejectRequest)

			admin.POST("/rates", adminHandler.SetExchangeRate)
			admin.POST("/prices", adminHandler.SetPlayPrice)
			admin.POST("/methods", adminHandler.CreatePaymentMethod)
			admin.PUT("/methods/:id", adminHandler.UpdatePaymentMethod)
			admin.DELETE("/methods/:id", adminHandler.DeletePaymentMethod)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
