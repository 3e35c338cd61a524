package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/John-Robertt/clashforge/internal/fetch"
	"github.com/John-Robertt/clashforge/internal/httpapi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	listen            string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	maxBody           int64
	template          string
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt := httpapi.Options{MaxBodyBytes: f.maxBody}
			if f.template != "" {
				text, err := readInput(cmd, f.template, fetch.KindTemplate)
				if err != nil {
					return err
				}
				opt.Template = text
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, f, httpapi.NewHandler(opt))
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.listen, "listen", "127.0.0.1:25500", "HTTP listen address")
	fl.DurationVar(&f.readHeaderTimeout, "read-header-timeout", 5*time.Second, "HTTP ReadHeaderTimeout")
	fl.DurationVar(&f.shutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown wait after a signal")
	fl.Int64Var(&f.maxBody, "max-body", 8<<20, "maximum convert request body in bytes")
	fl.StringVarP(&f.template, "template", "t", "", "base Clash document replacing the built-in one")
	return cmd
}

func serve(ctx context.Context, f serveFlags, h http.Handler) error {
	srv := &http.Server{
		Addr:              f.listen,
		Handler:           h,
		ReadHeaderTimeout: f.readHeaderTimeout,
	}

	log.Info().Str("addr", "http://"+f.listen).Msg("listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), f.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
			_ = srv.Close()
		}

		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
