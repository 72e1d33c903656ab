package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lawdesk_backend/database"
	"lawdesk_backend/internal/config"
	"lawdesk_backend/internal/handlers"
	"lawdesk_backend/internal/logger"
	"lawdesk_backend/internal/middleware"
	"lawdesk_backend/internal/realtime"
	"lawdesk_backend/internal/repositories"
	repoChat "lawdesk_backend/internal/repositories/chat"
	"lawdesk_backend/internal/routes"
	"lawdesk_backend/internal/services"
	serviceschat "lawdesk_backend/internal/services/chat"
	"lawdesk_backend/internal/validator"
	"lawdesk_backend/ws"
)

// App holds the assembled application and its background machinery.
type App struct {
	Router     *gin.Engine
	Transport  realtime.Transport
	Dispatcher *realtime.Dispatcher
	Services   *services.ServiceContainer

	manager       *ws.Manager
	cancelManager context.CancelFunc
}

// Run starts the server and blocks until SIGINT or SIGTERM. Shutdown
// drains queued pushes before the transport goes away so persisted
// events lose as few deliveries as possible.
func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("failed to get *sql.DB from GORM", "error", err)
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Fatal("database unavailable", "error", err)
	}
	logger.Info("database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("migration failed", "error", err)
	}

	application, err := Build(cfg, gormDB)
	if err != nil {
		logger.Fatal("failed to assemble application", "error", err)
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    address,
		Handler: application.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "address", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	application.Shutdown(shutdownCtx)
}

// Build assembles the full application graph on the given database.
// Tests call it with a sqlite connection and an in-memory transport.
func Build(cfg *config.Config, gormDB *gorm.DB) (*App, error) {
	transport, err := buildTransport(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := realtime.NewDispatcher(transport, cfg.Realtime.PushWorkers, cfg.Realtime.PushQueue)
	tracker := realtime.NewTracker(transport)
	typing := realtime.NewTypingBroadcaster(transport, time.Duration(cfg.Realtime.TypingIdleMS)*time.Millisecond)

	// Repositories.
	userRepo := repositories.NewUserRepository(gormDB)
	caseRepo := repositories.NewCaseRepository(gormDB)
	notificationRepo := repositories.NewNotificationRepository(gormDB)
	roomRepo := repoChat.NewRoomRepository(gormDB)
	messageRepo := repoChat.NewMessageRepository(gormDB)
	statusRepo := repoChat.NewMessageStatusRepository(gormDB)

	gateway := realtime.NewGateway(cfg.Realtime.AppKey, cfg.Realtime.AppSecret, roomRepo)

	// Services.
	authService := services.NewAuthService(userRepo)
	notificationService := services.NewNotificationService(gormDB, notificationRepo, userRepo, dispatcher)
	chatService := serviceschat.NewChatService(gormDB, roomRepo, messageRepo, statusRepo, dispatcher, tracker, notificationService)
	caseService := services.NewCaseService(gormDB, caseRepo, chatService, notificationService)

	container := &services.ServiceContainer{
		AuthService:         authService,
		CaseService:         caseService,
		ChatService:         chatService,
		NotificationService: notificationService,
	}

	// Websocket surface.
	manager := ws.NewManager(gateway, transport, tracker, typing, chatService)
	managerCtx, cancelManager := context.WithCancel(context.Background())
	go manager.Run(managerCtx)
	wsHandler := ws.NewHandler(manager, authService)

	// HTTP surface.
	base := handlers.NewBaseHandler(validator.New())
	appHandlers := &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(base, authService),
		CaseHandler:         handlers.NewCaseHandler(base, caseService),
		ChatHandler:         handlers.NewChatHandler(base, chatService),
		NotificationHandler: handlers.NewNotificationHandler(base, notificationService),
		RealtimeAuthHandler: handlers.NewRealtimeAuthHandler(base, gateway, authService),
	}

	router := newGinRouter(cfg)
	routes.RegisterRoutes(router, appHandlers, wsHandler)

	return &App{
		Router:        router,
		Transport:     transport,
		Dispatcher:    dispatcher,
		Services:      container,
		manager:       manager,
		cancelManager: cancelManager,
	}, nil
}

// Shutdown stops the websocket manager, drains the push queue, then
// closes the transport. Order matters: queued pushes still need the
// transport alive.
func (a *App) Shutdown(ctx context.Context) {
	a.cancelManager()
	a.manager.Wait()
	if err := a.Dispatcher.Close(ctx); err != nil {
		logger.Error("push dispatcher drain failed", "error", err)
	}
	if err := a.Transport.Close(); err != nil {
		logger.Error("transport close failed", "error", err)
	}
}

func buildTransport(cfg *config.Config) (realtime.Transport, error) {
	switch cfg.Realtime.Transport {
	case "", "memory":
		return realtime.NewHub(), nil
	case "nats":
		return realtime.NewNATSTransport(realtime.DefaultNATSConfig(cfg.Realtime.NATSURL))
	default:
		return nil, fmt.Errorf("unknown realtime transport %q", cfg.Realtime.Transport)
	}
}

func newGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.CORSMiddleware(),
	)
	return router
}
