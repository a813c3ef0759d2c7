package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/restodesk/api/internal/cache"
	"github.com/restodesk/api/internal/chat"
	"github.com/restodesk/api/internal/config"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/events"
	"github.com/restodesk/api/internal/router"
	"github.com/restodesk/api/internal/service"
	"github.com/restodesk/api/internal/ws"
	"github.com/robfig/cron/v3"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run(ctx)
	notifier := ws.NewNotifier(hub)
	lowStock := service.MultiLowStock(service.LogLowStock, notifier)

	deps := router.Deps{Queries: queries, Pool: pool, Hub: hub}

	if rdb, err := cache.NewClient(ctx, cfg.RedisURL); err != nil {
		log.Printf("WARN: redis unavailable, running without cache: %v", err)
	} else {
		defer rdb.Close()
		deps.Cache = cache.NewRedisCache(rdb)
	}

	switch cfg.OrderEvents {
	case enum.OrderEventsKafka:
		w := events.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer w.Close()
		deps.StockHook = events.NewPublisher(w)
		log.Printf("Order events published to kafka topic %s", cfg.KafkaTopic)

		alerts := events.NewReader(cfg.KafkaBrokers, cfg.KafkaAlertsTopic, cfg.KafkaAlertsGroupID)
		defer alerts.Close()
		go func() {
			if err := events.NewAlertConsumer(alerts, notifier).Start(ctx); err != nil {
				log.Printf("ERROR: low stock relay: %v", err)
			}
		}()
	case enum.OrderEventsInline:
		consumer, err := service.NewQueriesInventoryConsumer(cfg.InventoryMode, queries, pool, lowStock)
		if err != nil {
			log.Fatalf("Inventory consumer: %v", err)
		}
		deps.StockHook = consumer
		log.Printf("Order events consumed inline (inventory mode %s)", cfg.InventoryMode)
	default:
		log.Fatalf("Unknown ORDER_EVENTS %q", cfg.OrderEvents)
	}

	if cfg.LLMAPIKey != "" {
		deps.LLM = chat.NewOpenAICompleter(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	} else {
		log.Println("WARN: LLM_API_KEY is not set, chat assistant disabled")
	}

	sweeper := service.NewLowStockSweeper(queries, lowStock)
	c := cron.New()
	if _, err := c.AddFunc(cfg.LowStockSchedule, func() {
		if _, err := sweeper.Sweep(ctx); err != nil {
			log.Printf("ERROR: low stock sweep: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to register low stock sweep %q: %v", cfg.LowStockSchedule, err)
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: shutdown: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
