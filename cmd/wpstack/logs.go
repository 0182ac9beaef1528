package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsTail   string
)

var logsCmd = &cobra.Command{
	Use:   "logs <service>",
	Short: "Print service logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		orch, engine, _, err := newOrchestrator(ctx, newLogger("wpstack"), nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		return orch.Logs(ctx, args[0], logsTail, logsFollow, func(line string) {
			fmt.Fprintln(os.Stdout, line)
		})
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().StringVar(&logsTail, "tail", "100", "number of lines to show from the end")
	rootCmd.AddCommand(logsCmd)
}
