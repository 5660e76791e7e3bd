package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/config"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/inventory"
	kafkax "github.com/ariefcatur/go-cafe-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/postgres"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/reconciler"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "reconciler").Logger()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &reconciler.Service{
		Ledger: &inventory.PGLedger{DB: db},
		Redis:  rdb,
	}

	group := getenv("RECONCILER_GROUP", "reconciler-svc")
	workers := mustAtoi(os.Getenv("RECONCILER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderFinalized, workers)

	go func() {
		log.Info().
			Str("group", group).
			Str("topic", orders.TopicOrderFinalized).
			Int("workers", workers).
			Msg("reconciler consumer started")
		if err := cons.Start(ctx, svc.HandleOrderFinalized); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
