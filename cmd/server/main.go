package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"socialcal/backend/internal/cache"
	"socialcal/backend/internal/config"
	"socialcal/backend/internal/database"
	"socialcal/backend/internal/events"
	"socialcal/backend/internal/friendship"
	"socialcal/backend/internal/handler"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/jobs"
	"socialcal/backend/internal/logging"
	"socialcal/backend/internal/mailer"
	"socialcal/backend/internal/messaging"
	"socialcal/backend/internal/middleware"
	"socialcal/backend/internal/notification"

	"github.com/gin-gonic/gin"
)

func init() {
	config.LoadConfig()
}

// @title           Socialcal API
// @version         1.0
// @description     Friends, calendars, events and realtime notifications.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.AppConfig
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DBDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	h := hub.NewHub(log)
	if cfg.RedisAddr != "" {
		client, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer client.Close()

		bridge := hub.NewRedisBridge(client, cfg.RedisChannel, log)
		h.SetBridge(bridge)
		go func() {
			if err := bridge.Run(ctx, h, nil); err != nil {
				log.WithError(err).Error("Redis bridge stopped")
			}
		}()
		log.WithField("channel", cfg.RedisChannel).Info("Realtime events fan out through Redis")
	}

	publisher := events.NewNoopPublisher(log)
	if cfg.AMQPURL != "" {
		broker, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to RabbitMQ")
		}
		publisher = broker
		log.WithField("exchange", cfg.AMQPExchange).Info("Domain events publish to RabbitMQ")
	}
	defer publisher.Close()

	notifier := notification.NewService(db, h, log)
	friends := friendship.NewService(db, notifier, h, publisher, log)
	messages := messaging.NewService(db, h, publisher, log)

	m := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromEmail, log)
	reminders := jobs.NewReminderJob(db, notifier, m, publisher, log, cfg.ReminderInterval)
	reminders.Start()
	defer reminders.Stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := limiter.Cleanup(10 * time.Minute); n > 0 {
					log.WithField("removed", n).Debug("Pruned idle rate limiters")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	router := handler.NewRouter(handler.RouterDeps{
		DB:            db,
		Log:           log,
		Hub:           h,
		Friends:       friends,
		Notifications: notifier,
		Messages:      messages,
		Publisher:     publisher,
		Limiter:       limiter,
		JWTSecret:     cfg.JWTSecret,
		FrontendURL:   cfg.FrontendURL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("Server is running")
		log.Infof("Swagger UI is available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
