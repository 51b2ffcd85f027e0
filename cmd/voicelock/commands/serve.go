package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/haivivi/voicelock/cmd/voicelock/internal/app"
	"github.com/haivivi/voicelock/cmd/voicelock/internal/server"
	"github.com/haivivi/voicelock/pkg/relay"
)

var serveListen string

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session HTTP API",
	Long: `Serve voicelock sessions over HTTP until interrupted.

Routes:
  POST   /v1/sessions                 create a session
  GET    /v1/sessions                 list sessions
  GET    /v1/sessions/{id}            session state
  DELETE /v1/sessions/{id}            close a session
  POST   /v1/sessions/{id}/captures   submit audio/wav or audio/L16;rate=N
  POST   /v1/sessions/{id}/reset      lock and forget the voice
  GET    /v1/sessions/{id}/journal    recorded attempts
  GET    /v1/sessions/{id}/events     WebSocket lock events
  POST   /v1/sessions/{id}/commands   relay {"channel","value"} when unlocked
  GET    /metrics                     Prometheus metrics
  GET    /healthz                     liveness

Examples:
  voicelock serve
  voicelock serve --listen :8710
  curl -X POST localhost:8710/v1/sessions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if serveListen != "" {
			c := *cfg
			c.ListenAddr = serveListen
			cfg = &c
		}
		logger := newLogger(cfg)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, *cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(ctx))

		mgr := a.NewManager()
		defer mgr.Close()

		opts := server.Options{
			Manager:  mgr,
			Journal:  a.Journal,
			Registry: a.Registry,
			Debounce: cfg.Relay.DebounceDuration(),
			Logger:   logger.With("component", "server"),
		}
		if url := cfg.Relay.URL; url != "" {
			opts.NewSink = func(string) relay.Sink { return relay.NewWebSocketSink(url, nil) }
		}
		srv := server.New(opts)
		defer srv.Close()

		ln, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return err
		}
		httpSrv := &http.Server{
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("voicelock serving", "addr", ln.Addr().String(),
				"threshold", cfg.Threshold, "enroll_target", cfg.EnrollTarget,
				"model", cfg.Model.Kind, "degraded", a.Generator.Degraded())
			if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("voicelock shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
