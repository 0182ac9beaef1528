package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hhftechnology/wordpress-docker/internal/render"
)

var renderReload bool

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the proxy and upload-policy configuration files",
	Long: `render writes the nginx server configuration and the PHP upload
policy derived from the environment. With --reload, the running proxy
container is signalled to pick the new configuration up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		log := newLogger("wpstack")

		cfg, _, err := loadStack(ctx)
		if err != nil {
			return err
		}
		if err := render.WriteArtifacts(cfg); err != nil {
			return err
		}
		log.Info("configuration rendered",
			"nginx", cfg.NginxConfPath,
			"uploads", cfg.UploadsConfPath,
		)

		if !renderReload {
			return nil
		}
		orch, engine, _, err := newOrchestrator(ctx, log, nil)
		if err != nil {
			return err
		}
		defer engine.Close()
		return orch.ReloadProxy(ctx)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved stack descriptor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		_, stack, err := loadStack(ctx)
		if err != nil {
			return err
		}
		out, err := stack.MarshalText()
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, string(out))
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderReload, "reload", false, "signal the proxy to reload after writing")
	rootCmd.AddCommand(renderCmd, configCmd)
}
