package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shopfront/internal/cache"
	"shopfront/internal/config"
	"shopfront/internal/docstore"
	"shopfront/internal/events"
	httpapi "shopfront/internal/http"
	"shopfront/internal/repository"
	"shopfront/internal/service"
	"shopfront/internal/telemetry"

	_ "shopfront/docs"
)

// @title Shopfront API
// @version 1.0
// @description Product catalogue, orders and file uploads backed by an embedded document store.
// @BasePath /
func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("telemetry setup", zap.Error(err))
	}
	log := tel.Logger
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		tel.Shutdown(sctx)
	}()

	if err := run(ctx, cfg, tel); err != nil {
		log.Error("exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, tel *telemetry.Telemetry) error {
	log := tel.Logger

	metrics, err := telemetry.NewMetrics(tel.Meter)
	if err != nil {
		return err
	}

	productsCol, err := docstore.Open(ctx, cfg.ProductsFile())
	if err != nil {
		return err
	}
	defer productsCol.Close()
	ordersCol, err := docstore.Open(ctx, cfg.OrdersFile())
	if err != nil {
		return err
	}
	defer ordersCol.Close()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithTracer(tel.Tracer),
		service.WithMetrics(metrics),
		service.WithEventTopic(cfg.KafkaTopic),
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("product cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			opts = append(opts, service.WithProductCache(cache.NewRedis(rdb, cfg.CacheTTL)))
			log.Info("product cache enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	publisher := newPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close publisher", zap.Error(err))
		}
	}()

	productsSvc := service.NewProductService(repository.NewDocProducts(productsCol), opts...)
	ordersSvc := service.NewOrderService(repository.NewDocOrders(ordersCol), publisher, cfg.ServiceName, opts...)
	uploadsSvc := service.NewUploadService(cfg.UploadDir, opts...)

	srv := httpapi.NewServer(cfg.ServiceName, log, productsSvc, ordersSvc, uploadsSvc)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	return g.Wait()
}

// newPublisher fans order events out to every configured broker. Brokers that
// cannot be reached at startup are skipped.
func newPublisher(cfg config.Config, log *zap.Logger) events.Publisher {
	var pubs events.Multi
	if len(cfg.KafkaBrokers) > 0 {
		pubs = append(pubs, events.NewKafka(cfg.KafkaBrokers))
		log.Info("kafka publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	if cfg.AMQPURL != "" {
		a, err := events.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Warn("amqp publisher disabled", zap.Error(err))
		} else {
			pubs = append(pubs, a)
			log.Info("amqp publisher enabled", zap.String("exchange", cfg.AMQPExchange))
		}
	}
	if len(pubs) == 0 {
		return events.Noop{}
	}
	return pubs
}
