// Command citycast ingests current weather for the default cities and runs a
// fixed set of demo questions against the index.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/WessleyAI/citycast/engine/domain"
	"github.com/WessleyAI/citycast/engine/lookup"
	"github.com/WessleyAI/citycast/engine/semantic"
	"github.com/WessleyAI/citycast/engine/weather"
	"github.com/WessleyAI/citycast/pkg/config"
	"github.com/WessleyAI/citycast/pkg/ollama"
)

var demoQueries = []string{
	"What's the weather in Madrid?",
	"How's Barcelona today?",
	"Temperature in Bilbao",
	"Madrid weather",
	"What about Barcelona?",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Error("citycast failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	index, err := semantic.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer index.Close()

	wx, err := weather.New(cfg.WeatherURL, weather.WithLogger(logger))
	if err != nil {
		return err
	}

	svc := lookup.New(lookup.Deps{
		Embedder: ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, ollama.WithToken(cfg.OllamaToken), ollama.WithLogger(logger)),
		Weather:  wx,
		Index:    index,
		Logger:   logger,
	})

	collected, err := svc.Ingest(ctx, domain.DefaultCities())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(collected, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Weather data collected:")
	fmt.Fprintln(out, string(data))

	fmt.Fprintln(out, "\nRunning test queries:")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	for _, q := range demoQueries {
		answer, err := svc.Answer(ctx, q)
		if err != nil {
			return fmt.Errorf("query %q: %w", q, err)
		}
		fmt.Fprintf(out, "\nQuery: '%s'\n", q)
		fmt.Fprintln(out, answer)
		fmt.Fprintln(out, strings.Repeat("-", 50))
	}
	return nil
}
