package main

import (
	"context"
	"log"
	"os"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/auth"
	"backend/internal/conflict"
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/notify"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           HR Request Workflow API
// @version         1.0
// @description     Leave and reimbursement workflow engine with business-day accounting, audit trail and notifications.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer logger.Sync()

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	logger.Info("connected to PostgreSQL")

	jwtSecret := auth.Secret()

	// WebSocket hub for real-time notification delivery
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Repositories
	txMgr := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	reimbursementRepo := repository.NewReimbursementRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Notification bus: websocket push plus (logged) email, fan-out off the
	// request path.
	resolveEmail := func(userID string) (string, error) {
		id, err := uuid.Parse(userID)
		if err != nil {
			return "", err
		}
		user, err := userRepo.GetByID(context.Background(), id)
		if err != nil {
			return "", err
		}
		return user.Email, nil
	}
	bus := notify.NewBus(0, logger,
		notify.NewWebsocketSubscriber(wsHub),
		notify.NewEmailSubscriber(notify.NewLogEmailSender(logger), resolveEmail),
	)
	go bus.Run()
	defer bus.Close()

	detector := conflict.NewDetector(0)

	// Services
	userService := service.NewUserService(userRepo, tokenRepo, leaveRepo, auditRepo, txMgr, jwtSecret, logger)
	leaveService := service.NewLeaveService(leaveRepo, userRepo, holidayRepo, auditRepo, txMgr, detector, bus, logger)
	reimbursementService := service.NewReimbursementService(reimbursementRepo, userRepo, auditRepo, txMgr, bus, logger)
	holidayService := service.NewHolidayService(holidayRepo, auditRepo, txMgr, bus, logger)
	accrualService := service.NewAccrualService(userRepo, auditRepo, txMgr, logger)
	auditService := service.NewAuditService(auditRepo, logger)

	// Handlers
	userHandler := handler.NewUserHandler(userService, jwtSecret)
	leaveHandler := handler.NewLeaveHandler(leaveService, jwtSecret)
	reimbursementHandler := handler.NewReimbursementHandler(reimbursementService, jwtSecret)
	holidayHandler := handler.NewHolidayHandler(holidayService, jwtSecret)
	accrualHandler := handler.NewAccrualHandler(accrualService, jwtSecret)
	auditHandler := handler.NewAuditHandler(auditService, jwtSecret)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtSecret)
	})

	// API Routing
	api := router.Group("/api")
	userHandler.RegisterRoutes(api)
	leaveHandler.RegisterRoutes(api)
	reimbursementHandler.RegisterRoutes(api)
	holidayHandler.RegisterRoutes(api)
	accrualHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	port := envOr("PORT", "8080")
	logger.Info("server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
