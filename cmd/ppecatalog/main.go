package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ppecatalog/internal/config"
	"ppecatalog/internal/http/handlers"
	applog "ppecatalog/internal/log"
	"ppecatalog/internal/listing"
	"ppecatalog/internal/notify"
	"ppecatalog/internal/repos"
	"ppecatalog/internal/seed"
	"ppecatalog/internal/services"
)

const shutdownTimeout = 10 * time.Second

var (
	envFile string
	cfg     config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ppecatalog",
	Short: "PPE distributor catalog site",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv(envFile)
		cfg = config.Load()
		l, err := applog.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		applog.SetLogger(l)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web site and the outbox dispatcher",
	RunE:  runServe,
}

var productsCmd = &cobra.Command{
	Use:   "products [query]",
	Short: "Print the product listing for a query string",
	Long: `Runs the listing engine over the configured store and prints the page as JSON.

Example:
  ppecatalog products "category=cat-tete&f.norme=EN+397&sort=name_asc"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProducts,
}

var seedCheckCmd = &cobra.Command{
	Use:   "seed-check [file]",
	Short: "Validate a seed bundle (the embedded one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSeedCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(serveCmd, productsCmd, seedCheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func storeOptions() []repos.Option {
	var opts []repos.Option
	if cfg.CascadeProducts {
		opts = append(opts, repos.WithDeletePolicy(repos.CascadeProducts))
	}
	return opts
}

func openStore() (repos.Store, error) {
	b, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	for _, p := range seed.Check(b) {
		logger.Warn("seed_problem", zap.String("problem", p))
	}
	return repos.Open(cfg.DBDSN, b, storeOptions()...)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("config_loaded", zap.Any("config", cfg.Fields()))

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mailer notify.Mailer = notify.LogMailer{Log: logger}
	if cfg.SMTP.Host != "" {
		smtp := notify.NewSMTPMailer(cfg.SMTP)
		if err := smtp.Verify(ctx); err != nil {
			// Deliveries are retried by the dispatcher.
			logger.Error("smtp_verify_failed", zap.String("host", cfg.SMTP.Host), zap.Error(err))
		}
		mailer = smtp
	} else {
		logger.Warn("smtp_disabled", zap.String("reason", "SMTP_HOST not set, notifications are only logged"))
	}
	dispatcher := notify.NewDispatcher(store, mailer, logger,
		notify.WithInterval(cfg.OutboxInterval),
		notify.WithMaxAttempts(cfg.OutboxMaxAttempts),
	)

	deps := handlers.NewDeps(store, cfg, logger)
	app := handlers.NewApp(deps, cfg)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http_listening", zap.String("addr", ":"+cfg.Port))
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("http_shutdown")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runProducts(cmd *cobra.Command, args []string) error {
	var raw string
	if len(args) == 1 {
		raw = args[0]
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := services.NewCatalogService(store).Listing(cmd.Context(), listing.ParseQuery(vals))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runSeedCheck(cmd *cobra.Command, args []string) error {
	path := cfg.SeedFile
	if len(args) == 1 {
		path = args[0]
	}
	b, err := seed.Load(path)
	if err != nil {
		return err
	}
	problems := seed.Check(b)
	for _, p := range problems {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s) in seed bundle", len(problems))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d categories, %d subcategories, %d products\n",
		len(b.Categories), len(b.SubCategories), len(b.Products))
	return nil
}
