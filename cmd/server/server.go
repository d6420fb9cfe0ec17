package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/taskboard-chat/internal/config"
	"github.com/thereayou/taskboard-chat/internal/database"
	"github.com/thereayou/taskboard-chat/internal/handlers"
	"github.com/thereayou/taskboard-chat/internal/middleware"
	"github.com/thereayou/taskboard-chat/internal/reminder"
	"github.com/thereayou/taskboard-chat/internal/services"
	"github.com/thereayou/taskboard-chat/internal/websocket"
	"github.com/thereayou/taskboard-chat/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub
	Reminders  *reminder.Worker

	cfg        *config.Server
	httpServer *http.Server
	stopWorker context.CancelFunc
}

// NewServer собирает зависимости поверх уже открытых БД и Redis
func NewServer(cfg *config.Server, db *database.Database, rdb *redis.Client) *Server {
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	hub := websocket.NewHub()
	chat := services.NewChatService(db, hub)

	h := Handlers{
		Auth:      handlers.NewAuthHandler(db, jwtMgr, rdb),
		User:      handlers.NewUserHandler(db, hub),
		Room:      handlers.NewRoomHandler(db, hub),
		Message:   handlers.NewHTTPMessageHandler(db, chat),
		Project:   handlers.NewProjectHandler(db),
		WebSocket: handlers.NewWebSocketHandler(db, hub, handlers.NewMessageHandler(chat, hub), cfg.AllowedOrigins),
	}

	router := gin.Default()
	APIEndpoints(router, h,
		middleware.AuthMiddleware(jwtMgr, rdb),
		middleware.WSAuthMiddleware(jwtMgr, rdb),
	)

	return &Server{
		Router:     router,
		DB:         db,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
		Reminders:  reminder.NewWorker(db, hub, cfg.ReminderInterval, cfg.ReminderLead),
		cfg:        cfg,
	}
}

// Start запускает hub, воркер напоминаний и HTTP сервер в фоне
func (s *Server) Start() {
	go s.Hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWorker = cancel
	go s.Reminders.Run(ctx)

	s.httpServer = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", s.cfg.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server run error: %v", err)
		}
	}()
}

// Stop останавливает приём запросов, затем hub, воркер и Redis
func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if s.stopWorker != nil {
		s.stopWorker()
	}
	s.Hub.Stop()

	if err := s.Redis.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
