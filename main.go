package main

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pagecraft/action-service/config"
	"github.com/pagecraft/action-service/database"
	appkafka "github.com/pagecraft/action-service/kafka"
	"github.com/pagecraft/action-service/pkg/logger"
	"github.com/pagecraft/action-service/routes"
	"github.com/pagecraft/action-service/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("[ActionService] ❌ Failed to load config:", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	var guard services.AttemptGuard
	if cfg.RedisURL != "" {
		guard = services.NewRedisAttemptGuard(database.NewRedisClient(cfg.RedisURL))
	} else {
		logger.Log.Warn("REDIS_URL not set, attempt guard is per-process only")
		guard = services.NewMemoryAttemptGuard()
	}

	var events services.EventPublisher
	if cfg.KafkaBrokers != "" {
		producer := appkafka.NewCheckoutEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		defer producer.Close()
		events = producer
	}

	dispatcher := services.NewDispatcher(
		services.NewOrderClient(cfg.OrderServiceURL),
		services.NewPaymentClient(cfg.PaymentServiceURL),
		guard,
		events,
		services.DispatcherConfig{
			DownloadBaseURL: cfg.DownloadBaseURL,
			SiteOrigin:      cfg.SiteOrigin,
			Language:        cfg.Language,
			PaymentMethod:   cfg.PaymentMethod,
			RequireAmount:   cfg.RequireAmount,
		},
		logger.Log,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())

	routes.RegisterActionRoutes(r, dispatcher)

	log.Println("[ActionService] ✅ Running on port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[ActionService] ❌ Server failed:", err)
	}
}
