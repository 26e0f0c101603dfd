package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/database"
	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/inventory"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/router"
	"github.com/iliyamo/movie-booking/internal/schedule"
	"github.com/iliyamo/movie-booking/internal/service"
)

const bookingLogPath = "logs/booking.log"

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	policy := config.LoadPolicyConfig()

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if cfg.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("migrate database")
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := queue.NewPublisher(cfg.RabbitMQURL)
	defer publisher.Close()

	movieRepo := repository.NewMovieRepo(db)
	showtimeRepo := repository.NewShowtimeRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	hallRepo := repository.NewHallRepo(db)
	userRepo := repository.NewUserRepo(db)

	// One lock table for every writer of the seat counters.
	seatLocks := inventory.NewLocks()
	clock := service.SystemClock{}

	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost, clock)
	movieSvc := service.NewMovieService(movieRepo, showtimeRepo, bookingRepo, clock)
	showtimeSvc := service.NewShowtimeService(movieRepo, showtimeRepo, bookingRepo, hallRepo,
		schedule.Policy{HallScoped: policy.HallScoped, Buffer: policy.ScheduleBuffer},
		seatLocks, clock)
	bookingSvc := service.NewBookingService(movieRepo, showtimeRepo, bookingRepo, seatLocks, publisher,
		service.BookingPolicy{CancelLockout: policy.CancelLockout, MaxSeatsPerBooking: policy.MaxSeatsPerBooking},
		clock)
	hallSvc := service.NewHallService(hallRepo, clock)

	e := router.New(router.Deps{
		Log:       log,
		Redis:     rdb,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		DB:        db,
		Resolver:  authSvc,
		Auth:      handler.NewAuthHandler(authSvc),
		Movies:    handler.NewMovieHandler(movieSvc),
		Showtimes: handler.NewShowtimeHandler(showtimeSvc),
		Halls:     handler.NewHallHandler(hallSvc),
		Bookings:  handler.NewBookingHandler(bookingSvc),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	addr := ":" + cfg.Port
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":        addr,
			"env":         cfg.Env,
			"hall_scoped": policy.HallScoped,
			"buffer":      policy.ScheduleBuffer.String(),
			"lockout":     policy.CancelLockout.String(),
			"redis":       rdb != nil,
		}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return queue.StartBookingConsumer(ctx, cfg.RabbitMQURL, bookingLogPath)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
