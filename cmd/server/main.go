package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/rebalancer-backend/internal/adapter/grpc"
	"github.com/simaogato/rebalancer-backend/internal/adapter/repository/memory"
	"github.com/simaogato/rebalancer-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/rebalancer-backend/internal/config"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/logger"
	"github.com/simaogato/rebalancer-backend/internal/scheduler"
	"github.com/simaogato/rebalancer-backend/internal/usecase/authz"
	"github.com/simaogato/rebalancer-backend/internal/usecase/autorebalance"
	"github.com/simaogato/rebalancer-backend/internal/usecase/portfolio"
	"github.com/simaogato/rebalancer-backend/internal/usecase/pricing"
	"github.com/simaogato/rebalancer-backend/internal/usecase/rebalance"
	"github.com/simaogato/rebalancer-backend/internal/usecase/seeder"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// run wires the server and blocks until shutdown. Resources are released before it returns.
func run(cfg *config.Config, log zerolog.Logger) error {
	// 2. Setup Store
	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	defer closeStore()

	// 3. Initialize Services (Use Cases)
	portfolioService := portfolio.NewPortfolioService(store, log)
	assetService := portfolio.NewAssetService(store, log)
	oracle := pricing.NewOracle(store, authz.NewGuard(domain.Principal(cfg.PriceAuthority)), log)
	engine := rebalance.NewEngine(store, log)

	// Initialize Price Seeder and run it
	priceSeeder := seeder.NewPriceSeeder(oracle, domain.Principal(cfg.PriceAuthority), cfg.SeedPrices(), log)
	if err := priceSeeder.Seed(context.Background()); err != nil {
		return fmt.Errorf("failed to seed prices: %w", err)
	}

	// 4. Start Scheduler
	sched := scheduler.New(log)
	if cfg.AutoRebalanceSchedule != "" {
		job := autorebalance.NewJob(store, engine, log)
		if err := sched.AddJob(cfg.AutoRebalanceSchedule, job); err != nil {
			return fmt.Errorf("failed to schedule auto-rebalance %q: %w", cfg.AutoRebalanceSchedule, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log),
			grpcadapter.AuthInterceptor(cfg.APIToken, cfg.BoundTokens()),
		),
	)

	grpcAdapter := grpcadapter.NewServer(portfolioService, assetService, oracle, engine)
	grpcadapter.RegisterRebalancerServiceServer(grpcServer, grpcAdapter)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Full descriptors only exist for the health service
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Str("store", cfg.StoreDriver).Msg("gRPC server listening")
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	return waitForShutdown(log, grpcServer, healthServer, serveErr)
}

// openStore builds the configured domain.Store and returns a function releasing it
func openStore(cfg *config.Config, log zerolog.Logger) (domain.Store, func(), error) {
	var (
		db  *sqlstore.DB
		err error
	)

	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory store; state is lost on restart")
		return memory.NewStore(), func() {}, nil
	case config.StorePostgres:
		db, err = sqlstore.NewDB(sqlstore.DriverPostgres, cfg.DBConnStr)
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err = sqlstore.NewDB(sqlstore.DriverSQLite, cfg.SQLitePath)
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, nil, err
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
	return sqlstore.NewStore(db), closeDB, nil
}

// waitForShutdown blocks until SIGTERM, SIGINT or a serve failure and gracefully shuts down the server.
// The scheduler and store are released by run's deferred calls.
func waitForShutdown(log zerolog.Logger, grpcServer *grpclib.Server, healthServer *health.Server, serveErr <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")
	case err := <-serveErr:
		healthServer.Shutdown()
		return fmt.Errorf("failed to serve gRPC server: %w", err)
	}

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")
	return nil
}
