// Package bootstrap loads configuration and wires the application together.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "collaborative-story/internal/handler/http"
	gormpersistence "collaborative-story/internal/infra/persistence/gorm"
	"collaborative-story/internal/infra/setup"
	redisstate "collaborative-story/internal/infra/state/redis"
	"collaborative-story/internal/middleware"
	"collaborative-story/internal/service"
	"collaborative-story/internal/tasks"
	"collaborative-story/internal/token"
	"collaborative-story/internal/worker"
)

// Config holds everything loaded from the environment.
type Config struct {
	DBUser            string
	DBPassword        string
	DBHost            string
	DBPort            string
	DBName            string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	AdminJWTSecret    string
	InviteSecret      string
	AdminPasswordHash string
	PublicBaseURL     string
	ServerPort        string
	LogLevel          string
	AppEnv            string
	KeyPrefix         string
	RateLimitMax      int
	RateLimitWindow   time.Duration
	SessionTTLHours   int
	CORSOrigin        string
}

// LoadConfig reads configuration from the environment, preferring an
// optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		AdminJWTSecret:    os.Getenv("ADMIN_JWT_SECRET"),
		InviteSecret:      os.Getenv("INVITE_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		PublicBaseURL:     os.Getenv("PUBLIC_BASE_URL"),
		ServerPort:        os.Getenv("SERVER_PORT"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		AppEnv:            os.Getenv("APP_ENV"),
		KeyPrefix:         os.Getenv("REDIS_KEY_PREFIX"),
		CORSOrigin:        os.Getenv("CORS_ALLOWED_ORIGIN"),
		RateLimitMax:      100,
		RateLimitWindow:   1 * time.Second,
		SessionTTLHours:   24,
	}
	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "story:"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.ServerPort
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.AdminJWTSecret == "" {
		return nil, fmt.Errorf("environment variable ADMIN_JWT_SECRET must be set")
	}
	if cfg.InviteSecret == "" {
		return nil, fmt.Errorf("environment variable INVITE_SECRET must be set")
	}
	if cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("environment variable ADMIN_PASSWORD_HASH must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// App holds the wired application components.
type App struct {
	Config         *Config
	Log            *logrus.Logger
	DB             *gorm.DB
	RedisClient    *redis.Client
	AsynqClient    *asynq.Client
	AsynqServer    *worker.WorkerServer
	HttpServer     *http.Server
	redisClientOpt asynq.RedisClientOpt
}

// NewApp creates and wires all application components.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Info("Configuration loaded")

	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	codec, err := token.NewCodec(cfg.AdminJWTSecret, cfg.InviteSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	roomRepo := redisstate.NewRedisRoomRepository(redisClient, cfg.KeyPrefix)
	archiveRepo := gormpersistence.NewGormArchiveRepository(db)

	authService, err := service.NewAuthService(codec, cfg.AdminPasswordHash, cfg.SessionTTLHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	roomService := service.NewRoomService(roomRepo, codec, asynqClient, cfg.PublicBaseURL)
	log.Info("Services initialized")

	authHandler := httpHandler.NewAuthHandler(authService)
	roomHandler := httpHandler.NewRoomHandler(roomService, codec)
	inviteHandler := httpHandler.NewInviteHandler(roomService)

	workerServer := worker.NewWorkerServer(redisClientOpt, archiveRepo, roomRepo, log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(cfg.CORSOrigin))
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)
	api.POST("/rooms", roomHandler.HandleAction)
	invites := api.Group("/invites")
	{
		invites.POST("", middleware.AdminAuth(codec, token.RoleAdmin), inviteHandler.Create)
		invites.POST("/claim", inviteHandler.Claim)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}, nil
}

// Start launches the background routines and the HTTP server.
func (a *App) Start() {
	go a.AsynqServer.Start()
	a.Log.Info("Worker server routine started")

	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	task, err := tasks.NewRoomSweepTask()
	if err != nil {
		a.Log.Errorf("Failed to create room sweep task payload: %v", err)
		return
	}
	entryID, err := scheduler.Register("@every 5m", task, asynq.Queue("default"))
	if err != nil {
		a.Log.Errorf("Could not register periodic room sweep task: %v", err)
	} else {
		a.Log.Infof("Periodic room sweep registered (EntryID: %s)", entryID)
	}

	go func() {
		if err := scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
		}
	}()
}

// Shutdown stops everything gracefully.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete.")
}

// corsMiddleware answers preflight requests and sets the CORS headers.
// Business handlers never see OPTIONS requests.
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:3000"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware records one structured line per request.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
