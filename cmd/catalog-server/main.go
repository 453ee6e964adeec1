// Command catalog-server serves browsing sessions over the artworks
// collection API: paged views, a selection that survives navigation, and
// "select the first N" across the whole collection.
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

	"github.com/Sternrassler/artwork-catalog/internal/config"
	"github.com/Sternrassler/artwork-catalog/internal/session"
	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
	"github.com/Sternrassler/artwork-catalog/pkg/client"
	"github.com/Sternrassler/artwork-catalog/pkg/logging"
	"github.com/Sternrassler/artwork-catalog/pkg/pagination"
	"github.com/alecthomas/kong"
	"github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// CLI is the command line interface.
type CLI struct {
	Serve  ServeCmd  `cmd:"" default:"withargs" help:"Run the catalog HTTP server."`
	Config ConfigCmd `cmd:"" help:"Print the effective configuration as TOML."`
}

// Options are shared by every command. Flags override the config file.
type Options struct {
	ConfigFile string `name:"config" short:"c" help:"Path to a TOML config file." env:"CATALOG_CONFIG"`
	Listen     string `help:"HTTP listen address." env:"CATALOG_LISTEN"`
	RedisAddr  string `name:"redis-addr" help:"Redis address (host:port)." env:"CATALOG_REDIS_ADDR"`
	BaseURL    string `name:"base-url" help:"Collection API base URL." env:"CATALOG_BASE_URL"`
	UserAgent  string `name:"user-agent" help:"User-Agent sent to the collection API." env:"CATALOG_USER_AGENT"`
	LogLevel   string `name:"log-level" help:"Log level (debug, info, warn, error)." env:"CATALOG_LOG_LEVEL"`
	LogPretty  bool   `name:"log-pretty" help:"Human-readable console logs." env:"CATALOG_LOG_PRETTY"`
}

// load reads the config file and applies flag overrides.
func (o *Options) load() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}

	if o.Listen != "" {
		cfg.Server.Listen = o.Listen
	}
	if o.RedisAddr != "" {
		cfg.Redis.Addr = o.RedisAddr
	}
	if o.BaseURL != "" {
		cfg.API.BaseURL = o.BaseURL
	}
	if o.UserAgent != "" {
		cfg.API.UserAgent = o.UserAgent
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogPretty {
		cfg.Logging.Pretty = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigCmd prints the effective configuration.
type ConfigCmd struct {
	Options `embed:""`
}

// Run implements the config command.
func (cmd *ConfigCmd) Run() error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Options `embed:""`
}

// Run implements the serve command.
func (cmd *ServeCmd) Run(ctx context.Context) error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{Level: level, Pretty: cfg.Logging.Pretty})
	logger := logging.NewLogger("catalog-server")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	apiClient, err := client.New(client.Config{
		Redis:          redisClient,
		BaseURL:        cfg.API.BaseURL,
		UserAgent:      cfg.API.UserAgent,
		RespectExpires: cfg.API.RespectExpires,
		MaxRetries:     cfg.API.MaxRetries,
		InitialBackoff: cfg.API.InitialBackoff.Duration,
		MaxBackoff:     cfg.API.MaxBackoff.Duration,
		RequestTimeout: cfg.API.RequestTimeout.Duration,
		Fields:         catalog.Fields,
	})
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}
	defer apiClient.Close()

	store := session.NewStore(apiClient, session.Config{
		PageSize: cfg.Session.PageSize,
		Bulk: pagination.Config{
			PageSize:    cfg.Session.BulkPageSize,
			PageTimeout: cfg.Session.BulkPageTimeout.Duration,
		},
	}, logging.NewLogger("session"))

	e := newServer(store, redisClient, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("listen", cfg.Server.Listen).
			Str("base_url", cfg.API.BaseURL).
			Str("user_agent", cfg.API.UserAgent).
			Msg("Starting catalog server")
		if err := e.Start(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return store.Run(ctx, cfg.Session.SweepInterval.Duration, cfg.Session.MaxIdle.Duration)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("catalog-server"),
		kong.Description("Browse the artworks collection with a selection that survives paging."),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = kctx.Run()
	parser.FatalIfErrorf(err)
}
