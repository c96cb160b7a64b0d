package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/bloops-games/balloonbomb/internal/buildinfo"
	"github.com/bloops-games/balloonbomb/internal/cache"
	"github.com/bloops-games/balloonbomb/internal/database"
	scoredb "github.com/bloops-games/balloonbomb/internal/database/scorearchive/database"
	slotdb "github.com/bloops-games/balloonbomb/internal/database/slotstate/database"
	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/relay"
	"github.com/bloops-games/balloonbomb/internal/server"
	"github.com/bloops-games/balloonbomb/internal/shutdown"
	"github.com/kelseyhightower/envconfig"
)

var version string

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(os.Stdout, buildinfo.GreetingCLI, buildinfo.ProjectName, version, buildinfo.GithubURL)

	ctx, done := shutdown.New()
	defer done()

	config := relay.Config{}
	if err := envconfig.Process("", &config); err != nil {
		logging.DefaultLogger().Fatalf("processing the config: %v", err)
	}

	logger := logging.NewLogger(config.Debug)
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, config); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, config relay.Config) error {
	logger := logging.FromContext(ctx).Named("main.realMain")

	db, err := database.NewFromEnv(ctx, &config.DB)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}

	defer db.Close(ctx)

	scoreCache, err := cache.NewLRU(config.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	archive := scoredb.New(db, scoreCache)
	hub := relay.NewHub(ctx, slotdb.New(db), archive)
	defer hub.Shutdown()

	srv, err := server.New(config.Port)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	logger.Infof("relay listening on :%s", srv.Port())
	handler := relay.NewServer(ctx, hub, archive, config).Routes()
	if err := srv.ServeHTTP(ctx, &http.Server{Handler: handler}); err != nil {
		return fmt.Errorf("srv.ServeHTTP: %w", err)
	}

	return nil
}
