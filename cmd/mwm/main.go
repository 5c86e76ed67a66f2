package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/config"
	"github.com/Dante983/mwm/internal/daemon"
	"github.com/Dante983/mwm/internal/dispatch"
	"github.com/Dante983/mwm/internal/lockfile"
	"github.com/Dante983/mwm/internal/runtimepath"
	"github.com/Dante983/mwm/internal/state"
	"github.com/Dante983/mwm/internal/statusbar"
	"github.com/Dante983/mwm/internal/wm"
	"github.com/Dante983/mwm/internal/x11"
)

// version is stamped by the build.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mwm:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "mwm",
		Short:         "A minimal tag-based tiling window manager",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Stray positionals and unknown flags are ignored rather than
		// fatal.
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/mwm/config.yaml)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	return cmd
}

func run(configPath, logLevel string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, logLevel)
	if err != nil {
		return err
	}

	lockPath, err := runtimepath.LockPath()
	if err != nil {
		return err
	}
	lock, err := lockfile.Acquire(lockPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	conn, err := x11.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	statePath, err := runtimepath.StatePath()
	if err != nil {
		return err
	}
	statusPath, err := runtimepath.StatusPath()
	if err != nil {
		return err
	}

	adapter := x11.NewAdapter(conn, log)
	store := state.NewStore(statePath, log)
	status := statusbar.Multi{
		statusbar.NewFileDisplay(statusPath, log),
		statusbar.NewLogDisplay(log),
	}

	mgr, err := wm.NewManager(cfg, adapter, store, status, log)
	if err != nil {
		return fmt.Errorf("manager setup failed: %w", err)
	}

	table, err := dispatch.BuildTable(cfg, x11.NewKeymap(conn))
	if err != nil {
		return fmt.Errorf("key bindings: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := dispatch.NewDispatcher(table, mgr, stop)

	chords := make([]backend.KeyEvent, 0, len(table))
	for _, b := range table {
		chords = append(chords, backend.KeyEvent{Mod: b.Mod, Keycode: b.Keycode})
	}
	keys := x11.NewKeySource(conn, chords, log)

	loop := daemon.NewLoop(
		time.Duration(cfg.ScanIntervalSeconds)*time.Second,
		mgr, keys, dispatcher, log,
	)

	log.Info().Str("version", version).Msg("mwm starting")
	return loop.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// newLogger builds the process logger at the configured level, with an
// optional command-line override.
func newLogger(cfg *config.Config, override string) (zerolog.Logger, error) {
	name := cfg.LogLevel
	if override != "" {
		name = override
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", name, err)
	}

	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
