// Command api serves citycast lookups over HTTP and, when NATS_URL is set,
// over NATS request-reply.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WessleyAI/citycast/engine/domain"
	"github.com/WessleyAI/citycast/engine/lookup"
	"github.com/WessleyAI/citycast/engine/semantic"
	"github.com/WessleyAI/citycast/engine/weather"
	"github.com/WessleyAI/citycast/pkg/config"
	"github.com/WessleyAI/citycast/pkg/metrics"
	"github.com/WessleyAI/citycast/pkg/mid"
	"github.com/WessleyAI/citycast/pkg/natsutil"
	"github.com/WessleyAI/citycast/pkg/ollama"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	index, err := semantic.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer index.Close()

	wx, err := weather.New(cfg.WeatherURL, weather.WithLogger(logger))
	if err != nil {
		return err
	}

	reg := metrics.New()
	deps := lookup.Deps{
		Embedder: ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, ollama.WithToken(cfg.OllamaToken), ollama.WithLogger(logger)),
		Weather:  wx,
		Index:    index,
		Metrics:  reg,
		Logger:   logger,
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("citycast-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		deps.Publisher = natsutil.Publisher{Conn: nc}
	}

	s := &server{
		svc:     lookup.New(deps),
		index:   index,
		cities:  domain.DefaultCities(),
		metrics: reg,
		logger:  logger,
	}

	if nc != nil {
		sub, err := natsutil.Respond(nc, lookup.QuerySubject, s.respond)
		if err != nil {
			return fmt.Errorf("nats subscribe %s: %w", lookup.QuerySubject, err)
		}
		defer sub.Unsubscribe()
		logger.Info("nats responder ready", "subject", lookup.QuerySubject)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(s, cfg.CORSOrigin, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "backend", cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func newHandler(s *server, corsOrigin string, logger *slog.Logger) http.Handler {
	return mid.Chain(s.routes(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(s.metrics),
		mid.CORS(corsOrigin),
		mid.OTel("citycast-api"),
		mid.RateLimit(rate.NewLimiter(20, 40)),
	)
}
