package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/restodesk/api/internal/config"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/events"
	"github.com/restodesk/api/internal/service"
)

// The worker consumes order.placed messages and applies stock changes. The
// server runs with ORDER_EVENTS=kafka when a worker is deployed.
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

	// Low-stock alerts go back to the server, which owns the websocket hub.
	alertWriter := events.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertsTopic)
	defer alertWriter.Close()
	lowStock := service.MultiLowStock(service.LogLowStock, events.NewPublisher(alertWriter))

	consumer, err := service.NewQueriesInventoryConsumer(cfg.InventoryMode, database.New(pool), pool, lowStock)
	if err != nil {
		log.Fatalf("Inventory consumer: %v", err)
	}

	reader := events.NewReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	log.Printf("Consuming %s as group %s (inventory mode %s)", cfg.KafkaTopic, cfg.KafkaGroupID, cfg.InventoryMode)
	if err := events.NewConsumer(reader, consumer).Start(ctx); err != nil {
		log.Fatalf("Consumer: %v", err)
	}
	log.Println("Worker stopped")
}
