// Command gateway runs the multi-tenant authorization gateway: it
// resolves tenant scope and effective permissions for every inbound
// request and proxies authorized requests to backend workers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/observability"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "", "path to the gateway configuration file")
		logLevel    = flag.String("log-level", "", "log level override: debug, info, warn, error")
		logFormat   = flag.String("log-format", "", "log format override: json or console")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("emfgw %s\n", version)
		return
	}

	path := resolveConfigPath(*configPath)
	cfg, err := loadAndValidateConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emfgw: %v\n", err)
		os.Exit(1)
	}

	applyLoggingOverrides(cfg, *logLevel, *logFormat)

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emfgw: init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	observability.SetGlobalLogger(logger)

	logger.Info("starting gateway",
		observability.String("version", version),
		observability.String("config", path),
		observability.String("name", cfg.Metadata.Name),
	)

	app, err := initApplication(context.Background(), path, cfg, logger)
	if err != nil {
		logger.Fatal("initialization failed", observability.Error(err))
	}

	if err := runGateway(app); err != nil {
		logger.Fatal("gateway exited", observability.Error(err))
	}
}

// resolveConfigPath picks the config file from the flag, the
// EMFGW_CONFIG environment variable, or the default location.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("EMFGW_CONFIG"); env != "" {
		return env
	}
	return "config.yaml"
}

func loadAndValidateConfig(path string) (*config.GatewayConfig, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingOverrides lets command line flags win over the config
// file, matching the precedence operators expect.
func applyLoggingOverrides(cfg *config.GatewayConfig, level, format string) {
	if level != "" {
		cfg.Spec.Logging.Level = level
	}
	if format != "" {
		cfg.Spec.Logging.Format = format
	}
}

func initLogger(cfg *config.GatewayConfig) (observability.Logger, error) {
	return observability.NewLogger(observability.LogConfig{
		Level:  cfg.Spec.Logging.Level,
		Format: cfg.Spec.Logging.Format,
		Output: cfg.Spec.Logging.Output,
	})
}
