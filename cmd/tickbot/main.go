// Command tickbot runs the tick-synchronous strategy loop against a RIT
// client API. It loads configuration, validates it, wires dependencies, sets
// up signal handling, and starts the application in the configured mode.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/tickbot/internal/app"
	"github.com/alanyoungcy/tickbot/internal/config"
	"github.com/alanyoungcy/tickbot/internal/crypto"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	encryptKey := flag.String("encrypt-key", "", "write an encrypted API key file to this path and exit")
	flag.Parse()

	if *encryptKey != "" {
		if err := writeKeyFile(*encryptKey, os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "encrypted key written to %s\n", *encryptKey)
		return
	}

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", configPath),
			slog.String("error", err.Error()),
		)
		return 1
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("tickbot starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", configPath),
		slog.Any("strategies", cfg.Strategy.RunOrder()),
	)
	logger.Debug("active configuration", slog.Any("config", config.RedactedConfig(cfg)))

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error",
			slog.String("error", err.Error()),
		)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}

	logger.Info("tickbot stopped")
	return 0
}

// writeKeyFile encrypts the venue API key under a password. Both come from
// TICKBOT_VENUE_API_KEY and TICKBOT_VENUE_KEY_PASSWORD when set, otherwise
// from the first two lines of in.
func writeKeyFile(path string, in io.Reader) error {
	apiKey := os.Getenv("TICKBOT_VENUE_API_KEY")
	password := os.Getenv("TICKBOT_VENUE_KEY_PASSWORD")

	sc := bufio.NewScanner(in)
	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("missing %s on stdin", what)
		}
		return strings.TrimSpace(sc.Text()), nil
	}

	var err error
	if apiKey == "" {
		if apiKey, err = next("api key"); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = next("password"); err != nil {
			return err
		}
	}
	return crypto.WriteKeyFile(path, apiKey, password)
}
