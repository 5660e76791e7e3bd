package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-cafe-fulfillment/internal/config"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/httpx"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/inventory"
	kafkax "github.com/ariefcatur/go-cafe-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/lifecycle"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/loyalty"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/orders"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/payments"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/postgres"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/realtime"
	"github.com/ariefcatur/go-cafe-fulfillment/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()
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

	// Kafka producers: one per topic (lifecycle stream + finalized)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	prod.Start(ctx)
	prodFin := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderFinalized, 1024)
	prodFin.Start(ctx)

	// Realtime hub
	hub := realtime.NewHub(log)

	// Core wiring
	store := &orders.PGStore{DB: db}
	ledger := &inventory.PGLedger{DB: db}
	catalog := &inventory.PGCatalog{DB: db}

	manager := lifecycle.NewManager(lifecycle.Deps{
		Store:       store,
		Ledger:      ledger,
		Catalog:     catalog,
		Gateway:     payments.NewHTTPGateway(cfg.PaymentGatewayURL),
		Loyalty:     loyalty.NewHTTPLedger(cfg.LoyaltyURL),
		Broadcaster: hub,
		Events:      prod,
		Finalized:   prodFin,
		Service:     cfg.ServiceName,
		TaxRateBps:  cfg.TaxRateBps,
		Currency:    cfg.Currency,
		Logger:      log,
	})

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Manager: manager,
		Store:   store,
		Catalog: catalog,
		Redis:   rdb,
		Hub:     hub,
	}
	oh.Register(router)
	wh := &httpx.WebhookHandler{Manager: manager, Redis: rdb}
	wh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-gctx.Done():
		}
		log.Info().Msg("shutting down...")

		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)

		prod.Close() // close inbox -> flush & close writer
		prodFin.Close()
		cancel() // stop producer loops
		prod.WaitClosed()
		prodFin.WaitClosed()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("exit")
	}
}
