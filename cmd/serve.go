package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/config"
	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/observability"
)

var (
	serveAddr     string
	serveNoAuth   bool
	serveMetrics  string
	serveTextLogs bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, event stream and metrics",
	Long: `Serve the engine over HTTP.

  GET  /v1/issuances[/{id}]          reads, no signature
  POST /v1/issuances/{id}/…          signed intents (` + "X-Tokenhub-Signature" + `)
  GET  /ws/events[?issuance=<id>]    committed events
  GET  /metrics                      prometheus

The server logs JSON at info level; --text-logs and log_level override.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("verbose") && cfg.LogLevel == "warn" {
			log.SetLevel(logrus.InfoLevel)
		}
		if !serveTextLogs {
			log.SetFormatter(&logrus.JSONFormatter{})
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		metrics := observability.NewMetrics("tokenhub")
		eng, done, err := openEngine(ctx, engine.WithMetrics(metrics))
		if err != nil {
			return err
		}
		defer done()

		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		metricsAddr := cfg.MetricsAddr
		if serveMetrics != "" {
			metricsAddr = serveMetrics
		}

		srv := api.New(eng,
			api.WithLogger(log),
			api.WithMetrics(metrics),
			api.WithSignatureCheck(!serveNoAuth),
		)
		if serveNoAuth {
			log.Warn("signature checks disabled: any caller field is trusted")
		}

		servers := []*http.Server{{
			Addr:              addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		}}
		if metricsAddr != "" && metricsAddr != addr {
			servers = append(servers, &http.Server{
				Addr:              metricsAddr,
				Handler:           metrics.Handler(),
				ReadHeaderTimeout: config.ReadHeaderTimeout,
			})
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, s := range servers {
			g.Go(func() error {
				log.WithField("addr", s.Addr).Info("listening")
				if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancel()
			var errs []error
			for _, s := range servers {
				errs = append(errs, s.Shutdown(shutdownCtx))
			}
			return errors.Join(errs...)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: listen_addr)")
	serveCmd.Flags().StringVar(&serveMetrics, "metrics-addr", "", "separate metrics listener (default: metrics_addr)")
	serveCmd.Flags().BoolVar(&serveTextLogs, "text-logs", false, "human-readable logs instead of JSON")
	serveCmd.Flags().BoolVar(&serveNoAuth, "insecure-no-signatures", false, "accept unsigned intents (local testing only)")
}
