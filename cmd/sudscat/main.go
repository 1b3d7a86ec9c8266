package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	serveradapter "github.com/oriolvila/sudscat/internal/adapters/server"
	"github.com/oriolvila/sudscat/internal/adapters/storage/sqlite"
	"github.com/oriolvila/sudscat/internal/app"
	"github.com/oriolvila/sudscat/internal/config"
	"github.com/oriolvila/sudscat/internal/domain"
	"github.com/oriolvila/sudscat/internal/platform"
)

// version stores a package-level helper value.
var version = "dev"

// serveCommandRunner starts the HTTP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("sudscat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		dbPath     string
		appName    string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("SUDSCAT_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("SUDSCAT_APP_NAME")); envApp != "" {
		appName = envApp
	} else {
		appName = "sudscat"
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&dbPath, "db", "", "path to sqlite database")
	fs.StringVar(&appName, "app", appName, "application name for config/data path resolution")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "sudscat %s\n", version)
		return nil
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: appName,
		DevMode: devMode,
	})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "app: %s\n", appName)
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
		return nil
	case "", "serve":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	dbOverridden := strings.TrimSpace(dbPath) != ""
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("SUDSCAT_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("SUDSCAT_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	defaultCfg := config.Default(dbPath)
	cfg, err := config.Load(configPath, defaultCfg)
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           logLevel(devMode),
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})
	charmLog.SetDefault(logger)

	logger.Info("startup configuration resolved", "app", appName, "dev_mode", devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	seeded, err := seedCategories(ctx, repo, cfg.Catalogue.DefaultCategories)
	if err != nil {
		return fmt.Errorf("seed category order: %w", err)
	}
	if seeded {
		logger.Info("category order seeded", "categories", len(cfg.Catalogue.DefaultCategories))
	}

	svc := app.NewService(repo, uuid.NewString, nil)
	logger.Debug("application service initialized")

	defaultRole, err := domain.ParseRole(cfg.Catalogue.DefaultRole)
	if err != nil {
		return fmt.Errorf("resolve default role: %w", err)
	}

	logger.Info("command flow start", "command", "serve")
	if err := runServe(ctx, svc, fs.Args(), cfg, defaultRole); err != nil {
		logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	logger.Info("command flow complete", "command", "serve")
	return nil
}

// runServe runs the serve subcommand flow.
func runServe(ctx context.Context, svc *app.Service, args []string, cfg config.Config, defaultRole domain.Role) error {
	if len(args) > 0 && args[0] == "serve" {
		args = args[1:]
	}
	fs := flag.NewFlagSet("sudscat serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		httpBind    string
		apiEndpoint string
	)
	fs.StringVar(&httpBind, "http", cfg.Server.Bind, "HTTP listen address")
	fs.StringVar(&apiEndpoint, "api-endpoint", cfg.Server.APIEndpoint, "HTTP API base endpoint")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse serve flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected serve arguments: %v", fs.Args())
	}

	return serveCommandRunner(ctx, serveradapter.Config{
		HTTPBind:    httpBind,
		APIEndpoint: apiEndpoint,
		DefaultRole: defaultRole,
	}, serveradapter.Dependencies{
		Service: svc,
	})
}

// seedCategories installs the configured category order on an empty store and
// reports whether seeding ran. An existing order document is never touched.
func seedCategories(ctx context.Context, repo *sqlite.Repository, categories []string) (bool, error) {
	if len(categories) == 0 {
		return false, nil
	}
	current, err := repo.GetCategoryOrder(ctx)
	if err != nil {
		return false, err
	}
	if len(current) > 0 {
		return false, nil
	}

	order := make([]string, 0, len(categories))
	definitions, err := repo.GetDefinitions(ctx)
	if err != nil {
		return false, err
	}
	next := definitions.Clone()
	for _, raw := range categories {
		name := domain.NormalizeCategoryName(raw)
		if name == "" {
			continue
		}
		order = append(order, name)
		if _, ok := next[name]; !ok {
			next[name] = []string{}
		}
	}
	if len(order) == 0 {
		return false, nil
	}
	if err := repo.SetCategoryOrder(ctx, order); err != nil {
		return false, err
	}
	if err := repo.SetDefinitions(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// logLevel maps dev mode onto the default runtime log level.
func logLevel(devMode bool) charmLog.Level {
	if devMode {
		return charmLog.DebugLevel
	}
	return charmLog.InfoLevel
}

// firstArg handles first arg.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
