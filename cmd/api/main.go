// @title EventHub API
// @version 1.0
// @description Event listing, seat booking, points and organizer approval.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventhub/config"
	_ "eventhub/docs"
	"eventhub/internal/adapters/auth"
	"eventhub/internal/adapters/email"
	"eventhub/internal/adapters/kafka"
	"eventhub/internal/adapters/locks"
	"eventhub/internal/adapters/qrcode"
	"eventhub/internal/clock"
	deliveryhttp "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
	"eventhub/internal/repository/mongodb"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/repository/postgres/migrations"
	"eventhub/internal/services"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// repositories is the storage backend selected by STORE_DRIVER.
type repositories struct {
	events        domain.EventRepository
	users         domain.UserRepository
	notifications domain.NotificationRepository
	close         func()
}

func main() {
	logger := config.NewLogger()
	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repos.close()

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSAccessKeyID,
			SecretAccessKey: cfg.Email.AWSSecretAccessKey,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}

	clk := clock.NewSystem(cfg.Location)
	timeout := cfg.RequestTimeout

	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	notificationService := services.NewNotificationService(repos.notifications, emailService, clk, logger)
	pointsService := services.NewPointsService(repos.users, clk)

	consumers := []domain.BookingEventPublisher{pointsService, notificationService}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaBookingsTopic != "" {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaBookingsTopic)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Warn("failed to close kafka writer", "err", err)
			}
		}()
		consumers = append(consumers, kafkaPublisher)
		logger.Info("publishing booking events to kafka", "topic", cfg.KafkaBookingsTopic)
	}
	publisher := services.NewMultiPublisher(consumers...)

	bookingService := services.NewBookingService(repos.events, repos.users, locker, publisher, clk, logger, timeout)
	eventService := services.NewEventService(repos.events, repos.users, pointsService, locker, clk, logger, timeout)
	userService := services.NewUserService(repos.users, repos.events, notificationService, logger, timeout)
	authService := services.NewAuthService(repos.users, auth.NewBcryptHasher(0), auth.NewJWTIssuer(cfg.JWTSecret), cfg.JWTExpiry, clk)
	lifecycle := services.NewLifecycleService(repos.events, notificationService, clk, logger, cfg.LifecycleInterval)

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return fmt.Errorf("failed to bootstrap admin account: %w", err)
		}
	}

	go lifecycle.Run(ctx)

	router := deliveryhttp.NewRouter(deliveryhttp.RouterDeps{
		Logger:        logger,
		Verifier:      auth.NewJWTVerifier(cfg.JWTSecret),
		AuthLimiter:   middleware.NewRateLimiter(cfg.AuthRateLimitPerMinute, cfg.TrustedProxies...),
		Auth:          controllers.NewAuthController(logger, authService),
		Events:        controllers.NewEventController(logger, eventService),
		Bookings:      controllers.NewBookingController(logger, bookingService, qrcode.NewGenerator(cfg.JWTSecret)),
		Users:         controllers.NewUserController(logger, userService, eventService),
		Notifications: controllers.NewNotificationController(logger, notificationService),
		Admin:         controllers.NewAdminController(logger, userService, lifecycle),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "env", cfg.Environment, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("connected to mongo", "database", cfg.MongoDatabase)
		return &repositories{
			events:        mongodb.NewEventRepository(db.Collection(mongodb.EventsCollection)),
			users:         mongodb.NewUserRepository(db.Collection(mongodb.UsersCollection)),
			notifications: mongodb.NewNotificationRepository(db.Collection(mongodb.NotificationsCollection)),
			close:         func() { _ = client.Disconnect(context.Background()) },
		}, nil
	default:
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := migrations.Up(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("connected to postgres")
		return &repositories{
			events:        postgres.NewEventRepository(db),
			users:         postgres.NewUserRepository(db),
			notifications: postgres.NewNotificationRepository(db),
			close:         func() { _ = db.Close() },
		}, nil
	}
}

// newLocker uses Redis when REDIS_ADDR is set so that several instances serialise
// writes to the same event. Otherwise locks are process-local.
func newLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.EventLocker, func(), error) {
	if cfg.RedisAddr == "" {
		return locks.NewMemoryLocker(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("using redis event locks", "addr", cfg.RedisAddr)
	return locks.NewRedisLocker(client), func() { _ = client.Close() }, nil
}
