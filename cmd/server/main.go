package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skyminlab/running-game/internal/archive"
	"github.com/skyminlab/running-game/internal/auth"
	"github.com/skyminlab/running-game/internal/config"
	"github.com/skyminlab/running-game/internal/phase"
	"github.com/skyminlab/running-game/internal/service"
	"github.com/skyminlab/running-game/internal/store"
	"github.com/skyminlab/running-game/internal/syncer"
	"github.com/skyminlab/running-game/internal/transport/rest"
	"github.com/skyminlab/running-game/internal/transport/ws"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis holds the live session records and change markers.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("parse redis url")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("ping redis")
	}
	log.Info().Str("addr", redisOpts.Addr).Msg("connected to redis")

	// Mongo only keeps the archive of finished sessions.
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongo")
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("ping mongo")
	}
	log.Info().Msg("connected to mongo")

	clock := clockwork.NewRealClock()

	sessionStore := store.New(rdb, clock, log)
	sy := syncer.New(rdb, sessionStore, log)
	sessionStore.SetNotifier(sy)
	go sy.Run(ctx)

	authSvc := auth.NewService(cfg.Username, cfg.Password, cfg.JWTSecret)
	arch := archive.NewMongo(mongoClient.Database(cfg.MongoDatabase))
	sessionSvc := service.NewSessionService(sessionStore, authSvc, arch, clock, log)
	phaseCtrl := phase.NewController(sessionStore, log)

	hub := ws.NewHub(log)
	wsHandler := ws.NewHandler(hub, authSvc, sessionStore, sy, clock, cfg.PollInterval, log)

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		PhaseCtrl:      phaseCtrl,
		WSHub:          hub,
		WSHandler:      wsHandler,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
