package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bloops-games/balloonbomb/internal/buildinfo"
	"github.com/bloops-games/balloonbomb/internal/console"
	"github.com/bloops-games/balloonbomb/internal/gamestate"
	"github.com/bloops-games/balloonbomb/internal/logging"
	"github.com/bloops-games/balloonbomb/internal/notify"
	"github.com/bloops-games/balloonbomb/internal/notify/tgmirror"
	"github.com/bloops-games/balloonbomb/internal/relay/relayclient"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"github.com/bloops-games/balloonbomb/internal/shutdown"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

var version string

type Config struct {
	Debug bool `envconfig:"BALLOON_DEBUG" default:"false"`

	// Relay base address, http(s):// or ws(s)://
	RelayURL string `envconfig:"BALLOON_RELAY_URL" default:"http://localhost:8080"`

	// Room code handed out by POST /rooms on the relay
	Room string `envconfig:"BALLOON_ROOM" required:"true"`

	// Participant id; a random one is generated when empty
	UserID string `envconfig:"BALLOON_USER_ID"`

	DisplayName   string   `envconfig:"BALLOON_DISPLAY_NAME" required:"true"`
	PrincipalName string   `envconfig:"BALLOON_PRINCIPAL_NAME"`
	Roles         []string `envconfig:"BALLOON_ROLES" default:"Attendee"`

	// Roles allowed to drive the game; empty makes it public
	AllowedRoles []string `envconfig:"BALLOON_ALLOWED_ROLES" default:"Organizer,Presenter"`

	ToastTTL       time.Duration `envconfig:"BALLOON_TOAST_TTL" default:"2500ms"`
	ConnectTimeout time.Duration `envconfig:"BALLOON_CONNECT_TIMEOUT" default:"10s"`
	Telegram       tgmirror.Config
}

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(os.Stdout, buildinfo.GreetingCLI, buildinfo.ProjectName, version, buildinfo.GithubURL)

	ctx, done := shutdown.New()
	defer done()

	config := Config{}
	if err := envconfig.Process("", &config); err != nil {
		logging.DefaultLogger().Fatalf("processing the config: %v", err)
	}

	logger := logging.NewLogger(config.Debug)
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, config); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, config Config) error {
	logger := logging.FromContext(ctx).Named("main.realMain")

	if config.UserID == "" {
		config.UserID = uuid.New().String()
	}
	if config.PrincipalName == "" {
		config.PrincipalName = notify.PlaceholderPrincipal
	}

	identity := replica.Identity{
		ID:            config.UserID,
		DisplayName:   config.DisplayName,
		PrincipalName: config.PrincipalName,
		Roles:         replica.ParseRoles(config.Roles),
	}

	game := gamestate.New(gamestate.Config{Joiner: &relayclient.Joiner{
		BaseURL:  config.RelayURL,
		Room:     config.Room,
		Identity: identity,
	}})
	defer game.Close()

	var mirror console.Mirror
	if config.Telegram.Enabled() {
		if config.Telegram.Prefix == "" {
			config.Telegram.Prefix = "[" + config.Room + "]"
		}
		m, err := tgmirror.New(config.Telegram)
		if err != nil {
			return fmt.Errorf("telegram mirror: %w", err)
		}
		mirror = m
		logger.Infof("mirroring toasts to telegram chat %d", config.Telegram.ChatID)
	}

	ctrl := console.New(console.Config{
		Game:         game,
		Identity:     identity,
		AllowedRoles: replica.ParseRoles(config.AllowedRoles),
		Out:          os.Stdout,
		ToastTTL:     config.ToastTTL,
		Mirror:       mirror,
	})

	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if err := game.Connect(connectCtx); err != nil {
		return fmt.Errorf("connect to room %s: %w", config.Room, err)
	}
	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("start console: %w", err)
	}
	defer ctrl.Stop()

	logger.Debugf("joined room %s as %s", config.Room, identity.ID)
	if err := ctrl.Run(ctx, os.Stdin); err != nil {
		return fmt.Errorf("run console: %w", err)
	}

	return nil
}
