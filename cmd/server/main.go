package main

import (
	"context"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/cache"
	"github.com/emberapp/ember-backend/internal/config"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/logger"
	"github.com/emberapp/ember-backend/internal/media"
	"github.com/emberapp/ember-backend/internal/realtime"
	"github.com/emberapp/ember-backend/internal/server"
	"github.com/emberapp/ember-backend/internal/service/account"
	"github.com/emberapp/ember-backend/internal/service/discovery"
	"github.com/emberapp/ember-backend/internal/service/message"
	"github.com/emberapp/ember-backend/internal/service/quota"
	"github.com/emberapp/ember-backend/internal/service/swipe"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log, cfg)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Realtime hub: forwards pub/sub events to sockets on this instance.
	hub := realtime.NewHub(appCtx)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	registrars := []server.Registrar{
		account.NewRegistrar(appCtx),
		discovery.NewRegistrar(appCtx),
		swipe.NewRegistrar(appCtx),
		quota.NewRegistrar(appCtx),
		message.NewRegistrar(appCtx),
		media.NewRegistrar(appCtx),
		realtime.NewRegistrar(appCtx, hub),
	}

	router := server.NewRouter(cfg, registrars...)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := server.StartHTTPServer(cfg, router); err != nil {
		log.Error("failed to start HTTP server", "err", err)
	}
}
