package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vape-market/internal/app"
	"vape-market/internal/kafka"
	"vape-market/internal/notify"
	"vape-market/internal/search"
	"vape-market/internal/worker"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultCfgPath = "config/config.yaml"
	workerAddr     = ":8082"
)

func main() {
	cfgPath := flag.String("config", defaultCfgPath, "path to YAML config")
	flag.Parse()

	// Init logger
	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger := zapLogger.Sugar()
	defer func() { _ = zapLogger.Sync() }()

	// Parse config
	c, err := app.NewConfig(*cfgPath)
	if err != nil {
		logger.Fatalf("Error parsing config: %v", err)
	}
	if len(c.CfgKafka.Brokers) == 0 {
		logger.Fatal("kafka.brokers is empty: worker has nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init search index
	var indexer worker.Indexer
	if len(c.CfgES.Addresses) > 0 {
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: c.CfgES.Addresses})
		if err != nil {
			logger.Fatalf("Error creating elasticsearch client: %v", err)
		}

		es := search.NewElasticService(esClient, logger, c.CfgES.Index)
		if err := es.EnsureIndex(ctx); err != nil {
			logger.Errorf("Elasticsearch index is not ready: %v", err)
		}
		indexer = es
	} else {
		logger.Warn("es.addresses is empty: search index is not maintained")
	}

	// Init notifier
	var notifier notify.Notifier = notify.NopNotifier{}
	if c.CfgTelegram.Enabled() {
		notifier = notify.NewTelegramNotifier(c.CfgTelegram.APIURL, c.CfgTelegram.BotToken, c.CfgTelegram.ChatID, logger)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is not set: admin notifications are disabled")
	}

	handler := worker.NewHandler(indexer, notifier, logger)

	// Init Kafka Consumer
	consumer := kafka.NewConsumer(c.CfgKafka.Brokers, c.CfgKafka.Topic, c.CfgKafka.GroupID, logger)
	defer consumer.Close()

	// Start event processor
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Consume(ctx, handler.Process)
	}()

	// Init HTTP server
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         workerAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Starting worker on %s", workerAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Failed to start server: %v", err)
	}

	<-done
	logger.Info("worker stopped")
}
