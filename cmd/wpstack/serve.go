package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/hhftechnology/wordpress-docker/internal/proxy"
	"github.com/hhftechnology/wordpress-docker/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reverse proxy in the foreground",
	Long: `serve runs the HTTPS reverse proxy, the port-80 redirect listener and
the ops listener until interrupted. Container logs are followed and mirrored
to websocket subscribers on the ops listener.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		log := newLogger("proxy")
		hub := ws.NewHub()
		defer hub.Shutdown()

		orch, engine, cfg, err := newOrchestrator(ctx, log, hub)
		if err != nil {
			return err
		}
		defer engine.Close()

		// Best-effort log followers per service. A service that is not
		// running yet simply has no follower; subscribers reconnect via
		// the ops endpoint after it comes up.
		for _, svc := range orch.Services() {
			go func(name string) {
				if err := orch.Logs(ctx, name, "0", true, nil); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("log follower stopped", "service", name, "error", err)
				}
			}(svc.Name)
		}

		srv, err := proxy.New(cfg, log, hub)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
