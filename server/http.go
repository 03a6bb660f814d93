package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"session-gateway/config"
	"session-gateway/constant"
	gatewayHandler "session-gateway/handler"
	"session-gateway/pkg/rabbitmq"
	"session-gateway/pkg/recorder"
	"session-gateway/pkg/sessionrpc"
	"session-gateway/repository"
	"session-gateway/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	pool := sessionrpc.NewPool(cfg.SessionService)
	recorderClient := recorder.NewClient(cfg.Recorder)
	repo := repository.NewProfileRepo(cfg.DB)

	// The gateway keeps serving reads if the broker is down; events and
	// archiving resume on restart.
	var publisher service.EventPublisher
	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	} else {
		publisher = rabbitmq.NewPublisher(conn, cfg.Queue)
	}

	sessionService := service.NewSessionService(pool, repo, publisher)
	profileService := service.NewProfileService(repo)
	archiveService := service.NewArchiveService(recorderClient, cfg.Storage, cfg.MinIOBucket)

	if conn != nil {
		serviceDeps := gatewayHandler.ServiceDependencies{
			ArchiveService: archiveService,
		}
		recordingConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, rabbitmq.QueueConfig{
			Exchange:      cfg.Queue.ExchangeName,
			Queue:         "recording.completed",
			RoutingKey:    "recording.completed",
			DLX:           cfg.Queue.ExchangeName + ".dlx",
			DLQ:           "recording.completed.dlq",
			DLQRoutingKey: "recording.completed.failed",
		}, cfg.Server.Workers, gatewayHandler.RecordingCompletedHandler)
		go func() {
			if err := recordingConsumer.Consume(ctx, serviceDeps); err != nil && !errors.Is(err, context.Canceled) {
				zerolog.Ctx(ctx).Error().Err(err).Msg("recording consumer error")
			}
		}()
	}

	r := gin.Default()
	r.Use(gatewayHandler.IdentityMiddleware(cfg.SessionService.SigningSecret))
	addHealth(r)
	gatewayHandler.NewSessionHandler(sessionService, profileService).RegisterRoutes(r)

	httpServer := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
