package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-datagen/config"
	"ecommerce-datagen/internal/api"
	"ecommerce-datagen/internal/broker"
	"ecommerce-datagen/internal/catalog"
	"ecommerce-datagen/internal/inventory"
	"ecommerce-datagen/internal/redisclient"
	"ecommerce-datagen/internal/service"
	"ecommerce-datagen/internal/sink"
	"ecommerce-datagen/internal/store"
	"ecommerce-datagen/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ecommerce data generator")

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := cfg.Generation
	fixtures := catalog.Generate(catalog.Config{
		Categories:   gen.Categories,
		Products:     gen.Products,
		Users:        gen.Users,
		TimespanDays: gen.TimespanDays,
		WindowEnd:    gen.WindowEnd,
	}, gen.Seed)
	logger.Info("Catalog generated",
		zap.Int("categories", len(fixtures.Categories)),
		zap.Int("products", len(fixtures.Products)),
		zap.Int("users", len(fixtures.Users)))

	ledger, closeLedger, err := newLedger(ctx, cfg, fixtures)
	if err != nil {
		log.Fatalf("Failed to initialize inventory ledger: %v", err)
	}
	defer closeLedger()

	handler := api.NewHandler(ledger)
	var srv *http.Server
	if cfg.Server.Serve {
		srv = startServer(cfg, handler)
	}

	generator := service.NewGenerator(fixtures, ledger, service.Options{
		Sessions:              gen.Sessions,
		Transactions:          gen.Transactions,
		TimespanDays:          gen.TimespanDays,
		WindowEnd:             gen.WindowEnd,
		Seed:                  gen.Seed,
		Workers:               gen.Workers,
		MaxStandaloneAttempts: gen.MaxStandaloneAttempts,
	})

	result, err := generator.Run(ctx)
	if err != nil {
		logger.Error("Generation failed", zap.Error(err))
		util.SyncLogger()
		os.Exit(1)
	}

	if err := writeOutputs(ctx, cfg, result); err != nil {
		logger.Error("Failed to write outputs", zap.Error(err))
		util.SyncLogger()
		os.Exit(1)
	}

	handler.SetSummary(result.Summary)
	logger.Info("Run summary",
		zap.Any("sessions_by_status", result.Summary.SessionsByStatus),
		zap.Any("conversions_dropped", result.Summary.ConversionsDropped),
		zap.Int("transactions", result.Summary.Transactions),
		zap.Int("units_sold", result.Summary.UnitsSold))

	if srv == nil {
		return
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

// newLedger builds the configured ledger backend wrapped with metrics
func newLedger(ctx context.Context, cfg *config.Config, fixtures *catalog.Catalog) (inventory.Ledger, func(), error) {
	logger := util.GetLogger()

	switch cfg.Ledger.Backend {
	case config.LedgerBackendRedis:
		prefix := fmt.Sprintf("datagen:%d", cfg.Generation.Seed)
		client, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, prefix)
		if err != nil {
			return nil, nil, err
		}
		ledger, err := inventory.NewRedisLedger(ctx, client, fixtures.Products)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		logger.Info("Redis ledger connected", zap.String("addr", cfg.Redis.Addr))
		return inventory.Instrument(ledger, config.LedgerBackendRedis), func() { client.Close() }, nil

	default:
		ledger, err := inventory.NewMemoryLedger(fixtures.Products)
		if err != nil {
			return nil, nil, err
		}
		return inventory.Instrument(ledger, config.LedgerBackendMemory), func() {}, nil
	}
}

// writeOutputs hands the dataset to every configured sink
func writeOutputs(ctx context.Context, cfg *config.Config, result *service.Result) error {
	logger := util.GetLogger()

	files, err := sink.NewJSONLines(cfg.Output.Dir)
	if err != nil {
		return err
	}
	sinks := []sink.Sink{files}

	var db *store.Store
	if cfg.Output.DatabaseURL != "" {
		db, err = store.NewStore(ctx, cfg.Output.DatabaseDriver, cfg.Output.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info("Database connected", zap.String("driver", cfg.Output.DatabaseDriver))
		sinks = append(sinks, db)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		sinks = append(sinks, broker.NewEventPublisher(producer))
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	out := sink.NewMulti(sinks...)
	if err := sink.WriteAll(ctx, out, sink.Dataset{
		Categories:   result.Categories,
		Products:     result.Products,
		Users:        result.Users,
		Sessions:     result.Sessions,
		Transactions: result.Transactions,
	}); err != nil {
		out.Close()
		return err
	}

	if db != nil {
		counts, err := db.Counts(ctx)
		if err != nil {
			out.Close()
			return err
		}
		logger.Info("Database rows", zap.Any("counts", counts))

		if err := db.VerifyStock(ctx, result.Products); err != nil {
			out.Close()
			return err
		}
		logger.Info("Stored stock verified", zap.Int("products", len(result.Products)))
	}

	logger.Info("Dataset written", zap.String("dir", files.Dir()))
	return out.Close()
}

func startServer(cfg *config.Config, handler *api.Handler) *http.Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		util.GetLogger().Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	return srv
}
