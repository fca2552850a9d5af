package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/messenger-server/internal/app"
	"github.com/vovakirdan/messenger-server/internal/auth"
	"github.com/vovakirdan/messenger-server/internal/config"
	applog "github.com/vovakirdan/messenger-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type serverFlags struct {
	configPath        string
	addr              string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	logLevel          string
	logFormat         string
	tokenDigest       string
}

func newRootCmd() *cobra.Command {
	var flags serverFlags

	cmd := &cobra.Command{
		Use:           "messenger-server",
		Short:         "Channel messenger HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "path to config file (default config.yaml)")
	f.StringVar(&flags.addr, "addr", "", "HTTP listen address")
	f.DurationVar(&flags.readHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	f.DurationVar(&flags.shutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	f.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&flags.logFormat, "log-format", "", "log format (console or json)")
	f.StringVar(&flags.tokenDigest, "digest", "", "token digest (sha224 or blake2b)")

	cmd.AddCommand(newTokenCmd())
	return cmd
}

func runServer(cmd *cobra.Command, flags serverFlags) error {
	bootLogger := applog.New("info", "console")

	cfg, path, err := config.Load(bootLogger, flags.configPath)
	if err != nil {
		bootLogger.Error().Err(err).Msg("load config")
		return err
	}

	// Flags override file and environment values only when set.
	cfg.UpdateFrom(config.Config{
		Addr:              flags.addr,
		ReadHeaderTimeout: flags.readHeaderTimeout,
		ShutdownTimeout:   flags.shutdownTimeout,
		LogLevel:          flags.logLevel,
		LogFormat:         flags.logFormat,
		TokenDigest:       flags.tokenDigest,
	})

	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("init application")
		return err
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newTokenCmd() *cobra.Command {
	var digestName string

	cmd := &cobra.Command{
		Use:   "token <username> <password>",
		Short: "Print the session token derived from a username and password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := auth.NewDigester(digestName)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), digest(args[0], args[1]))
			return err
		},
	}
	cmd.Flags().StringVar(&digestName, "digest", auth.DigestSHA224, "token digest (sha224 or blake2b)")
	return cmd
}

