package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func newRegionsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the parishes, municipalities and islands of the source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.loadStore()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), Regions(store, a.sel.Kind))
		},
	}
}

func newReportCommand(a *app, use, short string, run runner) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.loadStore()
			if err != nil {
				return err
			}
			out, err := run(cmd.Context(), a.svc, store, a.sel)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           newRouter(a.svc, csvOptions(a.cfg.Source), a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), srv, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

// serve runs srv until ctx is done, then drains it.
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
