package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vape-market/internal/ad"
	"vape-market/internal/app"
	"vape-market/internal/etl"
	handlersAds "vape-market/internal/handlers/ads"
	"vape-market/internal/kafka"
	"vape-market/internal/rating"
	"vape-market/internal/search"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

const defaultCfgPath = "config/config.yaml"

func main() {
	cfgPath := flag.String("config", defaultCfgPath, "path to YAML config")
	flag.Parse()

	// init logger
	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	logger := zapLogger.Sugar()
	defer func() {
		if err := zapLogger.Sync(); err != nil {
			logger.Warnf("error to sync logger: %v", err)
		}
	}()

	// парсим конфиг
	c, err := app.NewConfig(*cfgPath)
	if err != nil {
		logger.Fatalf("error to parsing config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// init storage
	var (
		adRepo     ad.AdRepo
		ratingRepo rating.RatingRepo
	)

	switch c.Storage {
	case app.StoragePostgres:
		db, err := sql.Open("postgres", c.CfgDB.DSN())
		if err != nil {
			logger.Fatalf("error to database start: %v", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(c.MaxOpenConns)
		if err := db.PingContext(ctx); err != nil {
			logger.Infof("Failed to get response to ping: %v", err)
		}

		adRepo = ad.NewAdDBRepository(db, c.AdsCapacity, logger)
		ratingRepo = rating.NewRatingDBRepository(db, logger)
	default:
		logger.Warn("using in-memory storage: ads and ratings are lost on restart")
		adRepo = ad.NewMemoryRepository(c.AdsCapacity, logger)
		ratingRepo = rating.NewMemoryRepository(logger)
	}

	// init search
	var searcher search.Searcher = search.NewScanSearcher(adRepo)
	if len(c.CfgES.Addresses) > 0 {
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: c.CfgES.Addresses})
		if err != nil {
			logger.Fatalf("error to create elasticsearch client: %v", err)
		}

		es := search.NewElasticService(esClient, logger, c.CfgES.Index)
		if err := es.EnsureIndex(ctx); err != nil {
			logger.Warnf("elasticsearch index is not ready, search falls back to scan: %v", err)
		} else {
			searcher = es

			pipeline := etl.NewPipeline(
				etl.NewRepoExtractor(adRepo, logger),
				etl.NewTransformer(logger),
				etl.NewElasticLoader(es, logger),
				logger,
				c.CfgES.ReindexInterval,
			)
			if n, err := pipeline.RunOnce(ctx); err != nil {
				logger.Warnf("initial reindex failed: %v", err)
			} else {
				logger.Infof("initial reindex loaded %d docs", n)
			}
			go pipeline.Run(ctx)
		}
	}

	// init kafka
	var producer kafka.EventProducer = kafka.NopProducer{}
	if len(c.CfgKafka.Brokers) > 0 {
		producer = kafka.NewProducer(c.CfgKafka.Brokers, c.CfgKafka.Topic, logger)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Warnf("error to close kafka producer: %v", err)
		}
	}()

	adsHandler := handlersAds.NewAdsHandler(logger, adRepo, ratingRepo, searcher, producer)

	srv := &http.Server{
		Addr:         c.ServerPort,
		Handler:      app.NewRouter(adsHandler, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("error to shutdown server: %v", err)
		}
	}()

	logger.Infow("starting server",
		"type", "START",
		"addr", c.ServerPort,
		"storage", c.Storage,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("can't start server: %v", err)
	}

	logger.Info("server stopped")
}
