package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/trekker-booking/internal/config"
	"github.com/iliyamo/trekker-booking/internal/database"
	"github.com/iliyamo/trekker-booking/internal/handler"
	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/middleware"
	"github.com/iliyamo/trekker-booking/internal/model"
	"github.com/iliyamo/trekker-booking/internal/observability"
	"github.com/iliyamo/trekker-booking/internal/queue"
	"github.com/iliyamo/trekker-booking/internal/repository"
	"github.com/iliyamo/trekker-booking/internal/router"
	"github.com/iliyamo/trekker-booking/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := observability.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:   cfg.OtelEndpoint,
		AuthHeader: cfg.OtelAuthHeader,
		Insecure:   cfg.OtelInsecure,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	locks, err := newLocker(cfg, rdb)
	if err != nil {
		return err
	}
	log.Info("ledger lock", zap.String("backend", cfg.LockBackend), zap.Duration("timeout", cfg.LockTimeout))

	events := newPublisher(cfg, log)
	defer func() { _ = events.Close() }()

	if cfg.ConsumerEnabled && cfg.EventsBroker == config.BrokerRabbitMQ {
		go func() {
			if err := queue.StartBookingConsumer(ctx, cfg.RabbitURL, cfg.BookingLogDir, log); err != nil &&
				!errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)

	hotels := repository.NewHotelRepo(db)
	rooms := repository.NewRoomRepo(db)
	tours := repository.NewTourRepo(db)
	reservations := repository.NewHotelReservationRepo(db)
	bookings := repository.NewTourBookingRepo(db)

	roomLedger := ledger.New[*model.HotelReservation](repository.NewRoomStore(db), locks, log)
	tourLedger := ledger.New[*model.TourBooking](repository.NewTourStore(db), locks, log)

	hotelSvc := service.NewHotelBookingService(rooms, reservations, roomLedger, events, cache, log)
	tourSvc := service.NewTourBookingService(tours, bookings, tourLedger, events, cache, log)
	catalogue := service.NewCatalogueService(hotels, rooms, tours, roomLedger, tourLedger, cache, log)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, router.Handlers{
		Catalogue:         handler.NewCatalogueHandler(hotels, rooms, tours, catalogue, log),
		HotelReservations: handler.NewHotelReservationHandler(hotelSvc, log),
		TourBookings:      handler.NewTourBookingHandler(tourSvc, log),
		Blog: handler.NewBlogHandler(repository.NewCategoryRepo(db), repository.NewPostRepo(db),
			repository.NewCommentRepo(db), cache, log),
		Cache:     cache,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		JWTSecret: cfg.JWTSecret,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}

func newLocker(cfg config.Config, rdb *redis.Client) (ledger.Locker, error) {
	if cfg.LockBackend == config.LockRedis {
		if rdb == nil {
			return nil, errors.New("LEDGER_LOCK_BACKEND=redis but redis is unreachable")
		}
		return ledger.NewRedisLocker(rdb, cfg.LockTimeout), nil
	}
	return ledger.NewLocalLocker(cfg.LockTimeout), nil
}

func newPublisher(cfg config.Config, log *zap.Logger) queue.Publisher {
	switch cfg.EventsBroker {
	case config.BrokerKafka:
		return queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.BrokerRabbitMQ:
		return queue.NewAMQPPublisher(cfg.RabbitURL, log)
	}
	return queue.NopPublisher{}
}
