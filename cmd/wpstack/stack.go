package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull [service...]",
	Short: "Pull service images",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		return orch.Pull(ctx, args...)
	},
}

var upCmd = &cobra.Command{
	Use:   "up [service]",
	Short: "Start the stack in dependency order, or a single service without gating",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		if len(args) == 1 {
			return orch.UpService(ctx, args[0])
		}
		return orch.Up(ctx)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the stack (data directories are kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		return orch.Down(ctx)
	},
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List stack containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		states, err := orch.Ps(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SERVICE\tNAME\tIMAGE\tSTATE\tSTATUS")
		for _, state := range states {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", state.Service, state.Name, state.Image, state.State, state.Status)
		}
		return tw.Flush()
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart <service>",
	Short: "Restart a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		return orch.Restart(ctx, args[0])
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <service>",
	Short: "Stop a service without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		return orch.Stop(ctx, args[0])
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <service>",
	Short: "Force-remove a service container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		return orch.Remove(ctx, args[0])
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin on|off",
	Short: "Start or stop the database browser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		switch args[0] {
		case "on":
			return orch.AdminOn(ctx)
		case "off":
			return orch.AdminOff(ctx)
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(pullCmd, upCmd, downCmd, psCmd, restartCmd, stopCmd, rmCmd, adminCmd)
}
