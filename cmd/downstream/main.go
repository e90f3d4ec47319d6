package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ilnaes/downstream/internal/auth"
	"github.com/ilnaes/downstream/internal/client"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/config"
	"github.com/ilnaes/downstream/internal/server"
	"github.com/ilnaes/downstream/internal/sprite"
	"github.com/ilnaes/downstream/internal/store"
	"github.com/ilnaes/downstream/internal/transport"
	"github.com/pkg/profile"
	"github.com/redis/go-redis/v9"
)

func main() {
	mode := flag.String("mode", "server", "server, client or standalone")
	configPath := flag.String("config", "", "path to a YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	prof := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	switch *prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Error("unknown profile", "profile", *prof)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting downstream", "mode", *mode, "transport", cfg.Server.Transport, "store", cfg.Store.Driver)
	switch *mode {
	case "server":
		err = runServer(ctx, cfg, log)
	case "client":
		err = runClient(ctx, cfg, log)
	case "standalone":
		err = runStandalone(ctx, cfg, log)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && ctx.Err() == nil {
		log.Error("downstream stopped", "error", err)
		cancel()
		os.Exit(1)
	}
	log.Info("downstream stopped")
}

func newRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func runServer(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var link common.Transport
	switch cfg.Server.Transport {
	case config.TransportRedis:
		r, err := transport.NewRedis(ctx, newRedis(cfg),
			transport.UpChannel(cfg.Redis.Channel), transport.DownChannel(cfg.Redis.Channel), log)
		if err != nil {
			return fmt.Errorf("redis transport: %w", err)
		}
		link = r
	default:
		link = server.NewHub(log)
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	engine := sprite.NewEngine(log, cfg.Touch)
	srv := server.New(cfg, engine, link, st, log)
	if err := srv.Restore(ctx); err != nil {
		log.Warn("could not restore world", "error", err)
	}
	buildScene(engine, log)

	return srv.Run(ctx, auth.NewSigner(cfg.Auth.Secret, cfg.Auth.TokenTTL))
}

func runClient(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var link common.Transport
	switch cfg.Server.Transport {
	case config.TransportRedis:
		r, err := transport.NewRedis(ctx, newRedis(cfg),
			transport.DownChannel(cfg.Redis.Channel), transport.UpChannel(cfg.Redis.Channel), log)
		if err != nil {
			return fmt.Errorf("redis transport: %w", err)
		}
		link = r
	default:
		host, _ := os.Hostname()
		conn, err := client.Connect(ctx, cfg.Client, auth.NewSigner(cfg.Auth.Secret, cfg.Auth.TokenTTL), host, log)
		if err != nil {
			return err
		}
		link = conn
	}

	c := client.New(link, cfg.Client, log)
	defer c.Close()
	return clientLoop(ctx, c, cfg.Client.TickRate, log)
}

// runStandalone runs server and renderer in one process over an in-memory
// pipe.
func runStandalone(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	down, up := transport.Pipe(transport.DefaultBuffer)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	engine := sprite.NewEngine(log.With("side", "server"), cfg.Touch)
	srv := server.New(cfg, engine, down, st, log.With("side", "server"))
	if err := srv.Restore(ctx); err != nil {
		log.Warn("could not restore world", "error", err)
	}
	buildScene(engine, log)

	c := client.New(up, cfg.Client, log.With("side", "client"))
	go clientLoop(ctx, c, cfg.Client.TickRate, log)

	srv.Loop(ctx)
	if st != nil {
		st.Close(context.Background())
	}
	return nil
}

func clientLoop(ctx context.Context, c *client.Client, tickRate int, log *slog.Logger) error {
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	report := time.NewTicker(10 * time.Second)
	defer report.Stop()
	started := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Update(); err != nil {
				log.Warn("client update failed", "error", err)
			}
		case <-report.C:
			log.Info("client status",
				"id", c.ID(),
				"state", c.State(),
				"frame", c.Frame(),
				"sprites", c.Engine().Len(),
				"up_since", humanize.Time(started),
			)
		}
	}
}
