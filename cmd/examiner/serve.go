package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/server"
)

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the grading HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx := cmd.Context()

			oracle, closeOracle, err := c.oracle(ctx)
			if err != nil {
				return err
			}
			defer closeOracle()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(st)

			srv := server.New(c.newService(oracle, st), st,
				server.WithBodyLimit(c.cfg.Server.BodyLimit))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Listen(c.cfg.Server.Addr)
			})
			g.Go(func() error {
				<-gctx.Done()
				slog.Info("shutting down http server")
				sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
