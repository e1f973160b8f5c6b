package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"gatherly/internal/app"
	"gatherly/internal/config"
	"gatherly/internal/logging"
)

const version = "v0.3.0"

type cliArgs struct {
	JSONLog    bool
	LogLevel   string `validate:"omitempty,oneof=trace debug info warn error"`
	ConfigFile string `validate:"omitempty,file"`
}

type seedArgs struct {
	Users  int `validate:"gte=0"`
	Events int `validate:"gte=0"`
	Seed   uint64
}

func main() {
	if err := newCLI(&cliArgs{}).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gatherly: %v\n", err)
		os.Exit(1)
	}
}

// newCLI builds the command tree; args receives the global flags
func newCLI(args *cliArgs) *cli.App {
	seed := &seedArgs{}

	return &cli.App{
		Name:        "gatherly",
		Version:     version,
		Usage:       "event community server with real-time direct messages",
		Description: "Serves the REST API and the WebSocket delivery endpoint",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json-log",
				Usage:       "Whether to log in JSON format",
				Aliases:     []string{"j"},
				EnvVars:     []string{config.EnvPrefix + "_LOG_JSON"},
				Destination: &args.JSONLog,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging level: [trace debug info warn error]. Overrides the config file",
				Aliases:     []string{"l"},
				EnvVars:     []string{config.EnvPrefix + "_LOG_LEVEL"},
				Destination: &args.LogLevel,
			},
			&cli.StringFlag{
				Name:        "config-file",
				Usage:       "Application config file. Defaults are used when not specified",
				Aliases:     []string{"c"},
				EnvVars:     []string{config.EnvPrefix + "_CONFIG_FILE"},
				Destination: &args.ConfigFile,
			},
		},
		Commands: []*cli.Command{
			{
				Name:        "serve",
				Usage:       "Run the gatherly server",
				Description: "Serves REST, WebSocket, health and metrics endpoints until SIGINT or SIGTERM",
				Action: func(c *cli.Context) error {
					return runServe(c.Context, args)
				},
			},
			{
				Name:        "config",
				Usage:       "Print the effective configuration as YAML",
				Description: "Defaults, config file and environment merged; the auth secret is masked",
				Action: func(c *cli.Context) error {
					cfg, _, err := setup(args)
					if err != nil {
						return err
					}
					return cfg.WriteYAML(c.App.Writer)
				},
			},
			{
				Name:        "seed",
				Usage:       "Fill the database with sample users and events",
				Description: "Existing records are skipped, so seeding twice is harmless",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "users",
						Usage:       "Number of users to create",
						Aliases:     []string{"u"},
						Value:       10,
						Destination: &seed.Users,
					},
					&cli.IntFlag{
						Name:        "events",
						Usage:       "Number of events to create",
						Aliases:     []string{"e"},
						Value:       20,
						Destination: &seed.Events,
					},
					&cli.Uint64Flag{
						Name:        "seed",
						Usage:       "Random seed, for reproducible data",
						Value:       1,
						Destination: &seed.Seed,
					},
				},
				Action: func(c *cli.Context) error {
					return runSeed(c.Context, args, seed)
				},
			},
		},
	}
}

// setup validates the flags, loads configuration and builds the logger
func setup(args *cliArgs) (*config.Config, zerolog.Logger, error) {
	if err := validator.New().Struct(args); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid command line arguments: %w", err)
	}

	cfg, err := config.Load(args.ConfigFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	if args.JSONLog {
		cfg.Log.JSON = true
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func runServe(ctx context.Context, args *cliArgs) error {
	cfg, logger, err := setup(args)
	if err != nil {
		return err
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		_ = application.Store().Close()
		return fmt.Errorf("failed to start application: %w", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err, ok := <-application.Done():
		if ok {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}

func runSeed(ctx context.Context, args *cliArgs, seed *seedArgs) error {
	if err := validator.New().Struct(seed); err != nil {
		return fmt.Errorf("invalid seed arguments: %w", err)
	}

	cfg, logger, err := setup(args)
	if err != nil {
		return err
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() { _ = application.Store().Close() }()

	result, err := app.Seed(ctx, application.Accounts(), application.Store(), app.SeedOptions{
		Users:  seed.Users,
		Events: seed.Events,
		Seed:   seed.Seed,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("created %d users and %d events (skipped %d users, %d events)\n",
		result.Users, result.Events, result.SkippedUsers, result.SkippedEvents)
	return nil
}
