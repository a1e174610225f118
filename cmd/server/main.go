package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/spot-saver/internal/app"
	"github.com/iliyamo/spot-saver/internal/booking"
	"github.com/iliyamo/spot-saver/internal/catalog"
	"github.com/iliyamo/spot-saver/internal/config"
	"github.com/iliyamo/spot-saver/internal/database"
	"github.com/iliyamo/spot-saver/internal/handler"
	"github.com/iliyamo/spot-saver/internal/middleware"
	"github.com/iliyamo/spot-saver/internal/queue"
	"github.com/iliyamo/spot-saver/internal/repository"
	"github.com/iliyamo/spot-saver/internal/router"
	"github.com/iliyamo/spot-saver/internal/service"
	"github.com/iliyamo/spot-saver/internal/store"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
	}

	locations := repository.NewLocationRepo(db)
	if cfg.SeedCatalog {
		seedCatalog(ctx, locations)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: cache and rate limiting disabled, booking sessions kept in memory")
	} else {
		defer rdb.Close()
	}

	var sessions booking.Store = booking.NewMemoryStore()
	if rdb != nil {
		sessions = booking.NewRedisStore(rdb, cfg.Booking.SessionPrefix, cfg.Booking.SessionTTL)
	}

	var src catalog.Source = catalog.NewStaticSource()
	if cfg.CatalogSource == "db" {
		src = catalog.RepositorySource{Repo: locations}
	}
	provider := catalog.NewProvider(src)

	backend := store.NewBackend(db, cfg)

	hub := app.NewHub()
	go hub.Run(ctx)

	clients := app.NewRegistry(backend, nil, hub, cfg.ClientIdleTTL)
	clients.MaxClients = cfg.MaxClients
	defer clients.Close()
	go clients.RunSweeper(ctx, time.Minute)

	pub := service.NewPublisher(cfg.Broker)
	defer pub.Close()
	startConsumer(ctx, cfg.Broker)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb)
	id := router.Identity{Clients: clients, Auth: backend, Limiter: limiter, SecureCookie: cfg.Env == "prod"}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, id, handler.NewAuthHandler(backend), limiter)
	router.RegisterCatalog(e, id, handler.NewLocationHandler(provider, cache))
	router.RegisterBookingSession(e, id, handler.NewBookingSessionHandler(sessions, provider, pub, cfg.Booking.RedirectDelay))
	router.RegisterAccount(e, id, handler.NewBookingHandler(backend), handler.NewProfileHandler(backend, backend))
	router.RegisterEvents(e, id, handler.NewEventsHandler(hub, cfg.AllowedOrigins))

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

// seedCatalog fills an empty locations table with the built-in catalog.
func seedCatalog(ctx context.Context, repo *repository.LocationRepo) {
	n, err := repo.Count(ctx)
	if err != nil {
		log.Printf("catalog seed: count: %v", err)
		return
	}
	if n > 0 {
		return
	}
	if err := repo.Seed(ctx, catalog.SeedLocations()); err != nil {
		log.Printf("catalog seed: %v", err)
		return
	}
	log.Printf("catalog seed: inserted built-in locations")
}

// startConsumer appends booking.confirmed events to the booking log from
// whichever broker is configured.
func startConsumer(ctx context.Context, cfg config.BrokerConfig) {
	sink := queue.NewBookingLog(cfg.LogDir)
	switch cfg.Kind {
	case "rabbitmq", "amqp":
		go func() {
			if err := queue.StartRabbitConsumer(ctx, cfg.RabbitURL, cfg.Queue, sink); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking-consumer: %v", err)
			}
		}()
	case "kafka":
		go func() {
			if err := queue.StartKafkaConsumer(ctx, cfg.KafkaBrokers, cfg.Queue, "spot-saver-booking-log", sink); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking-consumer: %v", err)
			}
		}()
	default:
		log.Printf("booking-consumer: disabled (EVENT_BROKER=%s)", cfg.Kind)
	}
}
