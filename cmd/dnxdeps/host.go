package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	dnxdeps "github.com/albertocavalcante/go-dnxdeps"
	"github.com/albertocavalcante/go-dnxdeps/cache"
	"github.com/albertocavalcante/go-dnxdeps/designtime"
)

func (a *app) hostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Serve design-time requests on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.host(cmd.Context())
		},
	}
	cmd.Flags().Bool("watch", false, "push updated configurations when the manifest changes")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func (a *app) host(ctx context.Context) error {
	opts := a.contextOptions()

	if addr := a.v.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		m, err := cache.NewMetrics(reg)
		if err != nil {
			return err
		}
		opts = append(opts, dnxdeps.WithMetrics(m))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.log.Info("serving metrics", "addr", addr)
	}

	session := designtime.NewSession(
		designtime.WithFS(a.fs),
		designtime.WithContextOptions(opts...),
		designtime.WithLogger(a.log),
	)
	server := &designtime.Server{Session: session, Watch: a.v.GetBool("watch")}
	return server.Serve(ctx, a.in, a.out)
}
