package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hhftechnology/wordpress-docker/internal/config"
	"github.com/hhftechnology/wordpress-docker/internal/docker"
	"github.com/hhftechnology/wordpress-docker/internal/orchestrator"
	"github.com/hhftechnology/wordpress-docker/internal/stackfile"
	"github.com/hhftechnology/wordpress-docker/internal/ws"
	"github.com/hhftechnology/wordpress-docker/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "wpstack",
	Short: "Operate the WordPress stack: database, application, proxy, admin",
	Long: `wpstack drives the four-service WordPress deployment. It loads the
environment file and stack descriptor, starts services in dependency order
with readiness gating, renders the proxy and upload-policy configuration,
and can serve as the reverse proxy itself.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "environment file overlaid onto the process environment")
	rootCmd.PersistentFlags().String("stack-file", "", "stack descriptor path (overrides STACK_FILE)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("env-file", rootCmd.PersistentFlags().Lookup("env-file"))
	_ = viper.BindPFlag("stack-file", rootCmd.PersistentFlags().Lookup("stack-file"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.SetEnvPrefix("WPSTACK")
	viper.AutomaticEnv()
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newLogger(service string) *slog.Logger {
	return logger.New(service, logger.ParseLevel(viper.GetString("log-level")))
}

// loadStack loads configuration and the stack descriptor. The env file must
// be overlaid before descriptor interpolation runs.
func loadStack(ctx context.Context) (config.Stack, stackfile.Stack, error) {
	cfg, err := config.Load(viper.GetString("env-file"))
	if err != nil {
		return config.Stack{}, stackfile.Stack{}, err
	}
	if path := viper.GetString("stack-file"); path != "" {
		cfg.StackFile = path
	}
	stack, err := stackfile.Load(ctx, cfg.StackFile, cfg.ProjectName)
	if err != nil {
		return config.Stack{}, stackfile.Stack{}, err
	}
	return cfg, stack, nil
}

// newOrchestrator wires the docker engine and orchestrator for a command
// invocation. Callers must Close the returned client.
func newOrchestrator(ctx context.Context, log *slog.Logger, hub *ws.Hub) (*orchestrator.Orchestrator, *docker.Client, config.Stack, error) {
	cfg, stack, err := loadStack(ctx)
	if err != nil {
		return nil, nil, config.Stack{}, err
	}
	engine, err := docker.New(cfg.DockerHost)
	if err != nil {
		return nil, nil, config.Stack{}, err
	}
	orch, err := orchestrator.New(engine, stack, cfg, log, hub)
	if err != nil {
		engine.Close()
		return nil, nil, config.Stack{}, err
	}
	return orch, engine, cfg, nil
}
