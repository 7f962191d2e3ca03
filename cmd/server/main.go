package main

import (
	"context"
	"errors"
	"fmt"
	"inkblog/internal/config"
	"inkblog/internal/db"
	"inkblog/internal/events"
	"inkblog/internal/idem"
	"inkblog/internal/metrics"
	"inkblog/internal/middleware"
	"inkblog/internal/repositories"
	"inkblog/internal/router"
	"inkblog/internal/services"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

type app struct {
	ctx context.Context

	logConf zap.Config
	logger  *zap.Logger

	config *config.Config

	db        *gorm.DB
	redis     *redis.Client
	publisher events.Publisher
	tracing   func(context.Context) error
	server    *http.Server
}

func newApp(ctx context.Context, lcf zap.Config, log *zap.Logger) (*app, error) {
	a := &app{ctx: ctx, logConf: lcf, logger: log}
	var err error

	log.Debug("Loading configuration.")
	a.config, err = config.Read()
	if err != nil {
		return nil, fmt.Errorf("couldn't load configuration: %w", err)
	}
	lcf.Level.SetLevel(a.config.Logging.Level)
	if a.config.IsProduction() {
		pcf := zap.NewProductionConfig()
		pcf.Level = lcf.Level
		if plog, err := pcf.Build(); err == nil {
			a.logger, log = plog, plog
		}
	}

	a.tracing, err = initTracing(ctx, a.config)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize tracing: %w", err)
	}

	log.Debug("Connecting to PostgreSQL.")
	a.db, err = db.Open(a.config, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(a.db); err != nil {
		return nil, err
	}

	var opts []services.Option
	opts = append(opts, services.WithLogger(log.Named("comments")))

	// 配置了 redis 才启用 Idempotency-Key
	if a.config.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.config.Redis.Addr,
			Password: a.config.Redis.Password,
			DB:       a.config.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("couldn't reach redis: %w", err)
		}
		opts = append(opts, services.WithIdempotency(idem.NewRedisStore(a.redis), a.config.Redis.IdempotencyTTL))
	}

	a.publisher = events.Nop{}
	if len(a.config.Kafka.Brokers) > 0 {
		a.publisher = events.NewKafkaPublisher(a.config.Kafka.Brokers, a.config.Kafka.Topic, a.config.Kafka.Async)
		log.Info("Publishing comment events.", zap.Strings("brokers", a.config.Kafka.Brokers), zap.String("topic", a.config.Kafka.Topic))
	}
	opts = append(opts, services.WithPublisher(a.publisher))

	svc := services.NewCommentService(
		repositories.NewStore(a.db),
		services.NewCursorCodec(a.config.Cursor.Secret),
		services.Limits{
			DefaultLimit:  a.config.Comments.DefaultLimit,
			MaxLimit:      a.config.Comments.MaxLimit,
			MaxBodyLength: a.config.Comments.MaxBodyLength,
		},
		opts...,
	)

	var handler http.Handler = a.engine(svc)
	if a.config.Otel.Endpoint != "" {
		handler = otelhttp.NewHandler(handler, a.config.Otel.ServiceName)
	}
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *app) engine(svc *services.CommentService) *gin.Engine {
	if a.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware())

	// Setup Sessions
	store := cookie.NewStore([]byte(a.config.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   a.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("inkblog_session", store))
	r.Use(middleware.LoadUser(a.config.Auth.JWTSecret))

	router.RegisterRoutes(r, svc, a.logger)
	return r
}

func (a *app) Run() error {
	defer a.close()

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("Server listening.", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-a.ctx.Done():
		a.logger.Info("Signal received, shutting down.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("Couldn't close event publisher.", zap.Error(err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Couldn't close redis.", zap.Error(err))
		}
	}
	if err := db.Close(a.db); err != nil {
		a.logger.Warn("Couldn't close database.", zap.Error(err))
	}
	if err := a.tracing(ctx); err != nil {
		a.logger.Warn("Couldn't flush traces.", zap.Error(err))
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load .env file
	_ = godotenv.Load()

	lcf := zap.NewDevelopmentConfig() // level is switched once config is loaded
	lcf.Level.SetLevel(zapcore.DebugLevel)
	lcf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	lcf.DisableCaller = true
	log, _ := lcf.Build()
	defer func() { _ = log.Sync() }()

	log.Info("Initializing application.")
	a, err := newApp(ctx, lcf, log)
	if err != nil {
		log.Sugar().Fatalf("Couldn't initialize application: %s.", err)
	}

	if err := a.Run(); err != nil {
		log.Sugar().Fatalf("Application crashed: %s.", err)
	}
	log.Info("Shutdown complete.")
}
