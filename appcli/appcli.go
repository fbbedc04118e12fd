// Package appcli is the standard entrypoint for DCWiz services: it parses
// the start subcommand's flags, loads .env and the settings file, sets up
// logging, and serves the application.
package appcli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/dcwiz/appkit/app"
	"github.com/dcwiz/appkit/applog"
	"github.com/dcwiz/appkit/config"
)

// Options are the resolved start flags. Flag values override settings-file
// values, which override the built-in defaults.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	LogLevel   string
	RootPath   string
}

// SetupFunc registers routes and wires dependencies onto the app before it
// starts serving.
type SetupFunc func(ctx context.Context, a *app.App) error

// Run is the entry point for a service binary: appcli.Run(os.Args[1:], setup).
// It returns an exit code.
func Run(args []string, setup SetupFunc) int {
	if len(args) < 1 {
		usage()
		return 2
	}

	switch args[0] {
	case "start":
		if err := start(args[1:], setup); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		return 0
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: <service> start [flags]

flags:
  --config     path to the TOML settings file (default "config.toml" if present)
  --host       listen host (default "0.0.0.0")
  --port       listen port (default 8000)
  --loglevel   log level: debug, info, warn, error (default "info")
  --root-path  deployment path prefix added by the reverse proxy`)
}

func start(args []string, setup SetupFunc) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the TOML settings file")
	host := fs.String("host", "", "listen host")
	port := fs.Int("port", 0, "listen port")
	logLevel := fs.String("loglevel", "", "log level")
	rootPath := fs.String("root-path", "", "deployment path prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Populate the process environment before config reads it.
	_ = godotenv.Load()

	path := *configPath
	if path == "" {
		if _, err := os.Stat("config.toml"); err == nil {
			path = "config.toml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	opts := Options{
		ConfigPath: path,
		Host:       resolve(*host, cfg.String("server.host", "0.0.0.0")),
		Port:       resolveInt(*port, cfg.Int("server.port", 8000)),
		LogLevel:   resolve(*logLevel, cfg.String("log.level", "info")),
		RootPath:   resolve(*rootPath, cfg.String("server.root_path", "")),
	}
	// app.New reads the root path from config, so the flag value is
	// overlaid before the config goes global.
	if opts.RootPath != cfg.String("server.root_path", "") {
		cfg = cfg.With(map[string]any{"server.root_path": opts.RootPath})
	}
	config.SetGlobal(cfg)
	applog.Setup(opts.LogLevel)

	return Serve(cfg, opts, setup)
}

// Serve builds the app, runs setup, and blocks serving until SIGINT or
// SIGTERM.
func Serve(cfg *config.Config, opts Options, setup SetupFunc) error {
	a := app.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if setup != nil {
		if err := setup(ctx, a); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	if err := a.Start(ctx, addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func resolve(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func resolveInt(flagValue, configValue int) int {
	if flagValue != 0 {
		return flagValue
	}
	return configValue
}
