package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinoosan/shopledger/internal/httpapi"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd.OutOrStdout(), true)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			srv := &http.Server{
				Addr: addr,
				Handler: httpapi.New(httpapi.Deps{
					Store:           a.store,
					Roles:           a.roles,
					Currency:        a.cfg.Currency,
					DefaultPageSize: a.cfg.DefaultPageSize,
					Logger:          a.logger,
				}).Handler(),
				ReadTimeout:       a.cfg.ReadTimeout,
				ReadHeaderTimeout: a.cfg.ReadTimeout,
				WriteTimeout:      a.cfg.WriteTimeout,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("shopledger listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
				ctxShutdown, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(ctxShutdown); err != nil {
					a.logger.Error("server shutdown error", "err", err)
					return err
				}
				return nil
			case err := <-errCh:
				a.logger.Error("server error", "err", err)
				return err
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to HTTP_ADDR)")
	return cmd
}
