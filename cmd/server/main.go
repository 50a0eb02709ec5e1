package main

// garmentrack serves the order tracking API and runs its maintenance jobs.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/garmentrack/garmentrack/app"
	"github.com/garmentrack/garmentrack/internal/catalog"
	"github.com/garmentrack/garmentrack/internal/config"
	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/events"
	"github.com/garmentrack/garmentrack/server"
)

func main() {
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fallbackLogger.Warn("failed to load .env", "error", err)
	}

	cliApp := &cli.App{
		Name:  "garmentrack",
		Usage: "garments order and production tracking API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "seed", Usage: "load CATALOG_SEED_PATH before serving"},
					&cli.StringFlag{Name: "owner", Usage: "owner email for seeded products without one"},
				},
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: migrate,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "roll back one migration"},
				},
			},
			{
				Name:   "seed",
				Usage:  "upsert the product catalog from a YAML file",
				Action: seed,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "catalog file, defaults to CATALOG_SEED_PATH"},
					&cli.StringFlag{Name: "owner", Usage: "owner email for products without one"},
				},
			},
			{
				Name:   "notify",
				Usage:  "consume order events and email buyers",
				Action: notify,
			},
		},
		DefaultCommand: "serve",
	}

	if err := cliApp.Run(os.Args); err != nil {
		fallbackLogger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	application, err := app.New()
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer application.Close()

	if c.Bool("seed") {
		if err := seedCatalog(c.Context, application, application.Config.CatalogSeedPath, c.String("owner")); err != nil {
			return err
		}
	}

	srv, err := server.New(application.Config, application.Logger, application.Handlers)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Close(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.UsesMemoryStore() {
		return fmt.Errorf("migrations need STORE_PROVIDER=postgres")
	}

	version, err := db.Migrate(cfg.DatabaseURL, c.Bool("down"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "schema at version %d\n", version)
	return nil
}

func seed(c *cli.Context) error {
	application, err := app.Base(c.Context)
	if err != nil {
		return err
	}
	defer application.Close()

	path := c.String("file")
	if path == "" {
		path = application.Config.CatalogSeedPath
	}
	return seedCatalog(c.Context, application, path, c.String("owner"))
}

func seedCatalog(ctx context.Context, application *app.App, path, owner string) error {
	file, err := catalog.NewParser().ParseFile(path)
	if err != nil {
		return err
	}
	count, err := application.ProductService.Seed(ctx, file, owner)
	if err != nil {
		return err
	}
	application.Logger.Info("catalog seeded", "path", path, "products", count)
	return nil
}

func notify(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Base(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	cfg := application.Config
	notifier, err := application.NewNotifier()
	if err != nil {
		return err
	}
	consumer, err := events.NewConsumer(events.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
		Workers: cfg.KafkaWorkers,

		DeadLetterTopic: cfg.KafkaDeadLetterTopic,
	}, application.Logger.With("component", "kafka_consumer"))
	if err != nil {
		return err
	}

	application.Logger.Info("notifier consuming", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID, "workers", cfg.KafkaWorkers)
	if err := consumer.Run(ctx, notifier.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
