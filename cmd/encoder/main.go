package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/consumer"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/store"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting encoder worker",
		"language", cfg.Encoder.Language,
		"length_policy", cfg.Encoder.LengthPolicy,
	)

	stopwords, err := tokenizer.LoadStopwords(cfg.Encoder.StopwordsPath, slog.Default())
	if err != nil {
		slog.Error("failed to load stopwords", "error", err)
		os.Exit(1)
	}
	opts, err := encoder.OptionsFromConfig(cfg.Encoder, stopwords)
	if err != nil {
		slog.Error("invalid encoder config", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		opts.Metrics = m
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer shutdown(context.Background())
	}

	registry, err := encoder.NewRegistry(opts)
	if err != nil {
		slog.Error("failed to create encoder", "error", err)
		os.Exit(1)
	}

	var statusStore consumer.StatusStore
	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, document status updates disabled", "error", err)
	} else {
		defer pg.Close()
		statusStore = store.New(pg.DB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SparseVectors)
	defer producer.Close()

	handler := consumer.NewHandler(registry, producer, statusStore, m)
	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.DocumentIngest,
		handler.MessageHandler(),
	)
	encodeConsumer := consumer.New(kafkaConsumer)

	slog.Info("encoder worker ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"publish_topic", producer.Topic(),
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := encodeConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	stats := registry.Default().Stats()
	consumed := kafkaConsumer.Stats()
	slog.Info("encoder worker stopped",
		"documents", stats.Documents,
		"avg_doc_length", stats.AvgDocLength,
		"messages_processed", consumed.Processed,
		"messages_failed", consumed.Failed,
	)
}
