package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medwatch-server/internal/config"
	"medwatch-server/internal/domain"
	"medwatch-server/internal/handler"
	"medwatch-server/internal/mailer"
	"medwatch-server/internal/middleware"
	"medwatch-server/internal/repository"
	"medwatch-server/internal/service"
	"medwatch-server/internal/thingsboard"
	"medwatch-server/internal/tokenstore"
	"medwatch-server/internal/websocket"
	"medwatch-server/pkg/logger"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		zlog.Fatal("failed to connect to CouchDB", zap.Error(err))
	}

	exists, err := client.DBExists(context.Background(), cfg.Database.Name)
	if err != nil {
		zlog.Fatal("failed to check database existence", zap.Error(err))
	}

	if !exists {
		if err := client.CreateDB(context.Background(), cfg.Database.Name); err != nil {
			zlog.Fatal("failed to create database", zap.Error(err))
		}
		zlog.Info("created database", zap.String("name", cfg.Database.Name))
	}

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	doctorRepo := repository.NewDoctorRepository(client, cfg.Database.Name)
	patientRepo := repository.NewPatientRepository(client, cfg.Database.Name)
	deviceRepo := repository.NewDeviceRepository(client, cfg.Database.Name)

	tokens := tokenstore.New()

	tbClient := thingsboard.NewClient(
		cfg.ThingsBoard.URL,
		thingsboard.Credentials{Username: cfg.ThingsBoard.AdminUsername, Password: cfg.ThingsBoard.AdminPassword},
		thingsboard.Credentials{Username: cfg.ThingsBoard.TenantUsername, Password: cfg.ThingsBoard.TenantPassword},
		cfg.ThingsBoard.RequestTimeout,
		zlog.Named("thingsboard"),
	)

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerUser,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
		zlog.Named("websocket"),
	)
	go wsManager.Run()

	alarmMailer := mailer.New(cfg.SMTP, zlog.Named("mailer"))

	authService := service.NewAuthService(userRepo, tokens, tbClient, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration, zlog.Named("auth"))
	doctorService := service.NewDoctorService(doctorRepo, userRepo, zlog.Named("doctor"))
	deviceService := service.NewDeviceService(patientRepo, doctorRepo, deviceRepo, tokens, tbClient, zlog.Named("device"))
	patientService := service.NewPatientService(patientRepo, userRepo, deviceRepo, tokens, tbClient, zlog.Named("patient"))
	notificationService := service.NewNotificationService(patientRepo, doctorRepo, wsManager, alarmMailer, cfg.Notification.MinInterval, zlog.Named("notification"))

	wsMessageHandler := handler.NewWebSocketMessageHandler(zlog.Named("ws-messages"))
	wsManager.SetMessageHandler(wsMessageHandler)

	authHandler := handler.NewAuthHandler(authService)
	doctorHandler := handler.NewDoctorHandler(doctorService)
	patientHandler := handler.NewPatientHandler(patientService, deviceService)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	alarmHandler := handler.NewAlarmHandler(notificationService, zlog.Named("alarm"))
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.JWT.Secret, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, zlog.Named("ws"))

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(zlog.Named("http")))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/change-password", authHandler.ChangePassword).Methods("POST", "OPTIONS")

	// Alarm webhooks come straight from the ThingsBoard rule engine.
	api.HandleFunc("/thingsboard/alarm", alarmHandler.HandleAlarm).Methods("POST", "OPTIONS")
	api.HandleFunc("/thingsboard/test-alarm", alarmHandler.TestAlarm).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	protected.HandleFunc("/doctors/me", doctorHandler.GetMe).Methods("GET", "OPTIONS")
	protected.HandleFunc("/doctors/me", doctorHandler.UpdateMe).Methods("PUT", "OPTIONS")

	protected.HandleFunc("/patients", patientHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/patients", patientHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/patients/{id}", patientHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/patients/{id}", patientHandler.Update).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/patients/{id}", patientHandler.Delete).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/patients/{id}/health", patientHandler.GetHealthInfo).Methods("GET", "OPTIONS")
	protected.HandleFunc("/patients/{id}/allocate-device", patientHandler.AllocateDevice).Methods("POST", "OPTIONS")
	protected.HandleFunc("/patients/{id}/recall-device", patientHandler.RecallDevice).Methods("POST", "OPTIONS")

	admin := protected.PathPrefix("").Subrouter()
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	admin.HandleFunc("/devices", deviceHandler.List).Methods("GET", "OPTIONS")
	admin.HandleFunc("/doctors", doctorHandler.Create).Methods("POST", "OPTIONS")
	admin.HandleFunc("/doctors", doctorHandler.List).Methods("GET", "OPTIONS")
	admin.HandleFunc("/doctors/{id}", doctorHandler.Get).Methods("GET", "OPTIONS")
	admin.HandleFunc("/doctors/{id}", doctorHandler.Update).Methods("PUT", "OPTIONS")
	admin.HandleFunc("/doctors/{id}", doctorHandler.Delete).Methods("DELETE", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("starting medwatch server",
			zap.String("addr", addr),
			zap.String("env", cfg.Server.Env),
			zap.String("thingsboard_url", cfg.ThingsBoard.URL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"medwatch-server"}`))
}
