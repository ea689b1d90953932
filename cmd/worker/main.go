// Command worker is the docuflow control-plane daemon: it serves the
// tenant and document HTTP API, runs the dispatch monitor that advances
// jobs through their pipeline, and registers the Restate and mock
// workflow providers that dispatch each job's pipeline steps.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/api"
	"github.com/jaxxstorm/docuflow/internal/callback"
	"github.com/jaxxstorm/docuflow/internal/cloud/awsconfig"
	"github.com/jaxxstorm/docuflow/internal/config"
	"github.com/jaxxstorm/docuflow/internal/controller"
	"github.com/jaxxstorm/docuflow/internal/database"
	"github.com/jaxxstorm/docuflow/internal/logger"
	"github.com/jaxxstorm/docuflow/internal/progress"
	"github.com/jaxxstorm/docuflow/internal/signaldispatch"
	"github.com/jaxxstorm/docuflow/internal/storage"
	"github.com/jaxxstorm/docuflow/internal/tenant/postgres"
	"github.com/jaxxstorm/docuflow/internal/tenantdb"
	"github.com/jaxxstorm/docuflow/internal/workflow"
	"github.com/jaxxstorm/docuflow/internal/workflow/providers/mock"
	"github.com/jaxxstorm/docuflow/internal/workflow/providers/restate"
)

func main() {
	v := config.NewViperInstance()
	if err := config.BindEnvironmentVariables(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind environment variables: %v\n", err)
		os.Exit(1)
	}

	configFile, err := config.FindConfigFile("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to find config file: %v\n", err)
		os.Exit(1)
	}
	if configFile != "" {
		if err := config.LoadConfigFile(v, configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config file: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadFromViper(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting docuflow control plane")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbProvider, err := database.NewProvider(ctx, &cfg.Database, log)
	if err != nil {
		log.Fatal("failed to initialize central database", zap.Error(err))
	}
	defer dbProvider.Close()

	pool, ok := dbProvider.Pool().(*pgxpool.Pool)
	if !ok {
		log.Fatal("database provider is not a pgxpool.Pool")
	}

	tenantRepo, err := postgres.New(pool, log)
	if err != nil {
		log.Fatal("failed to initialize tenant repository", zap.Error(err))
	}

	masterKey, err := cfg.Credential.DecodedMasterKey()
	if err != nil {
		log.Fatal("invalid credential master key", zap.Error(err))
	}

	awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: cfg.Storage.S3Region})
	if err != nil {
		log.Fatal("failed to load AWS configuration", zap.Error(err))
	}

	storageCfg := storage.Config{
		Backend:     cfg.Storage.Backend,
		S3Bucket:    cfg.Storage.S3Bucket,
		S3KeyPrefix: cfg.Storage.S3KeyPrefix,
		FSRoot:      cfg.Storage.FSRoot,
	}

	workflowRegistry := workflow.NewRegistry(log)
	restateProvider, err := restate.New(cfg.Workflow.Restate, log)
	if err != nil {
		log.Fatal("failed to initialize restate workflow provider", zap.Error(err))
	}
	if err := workflowRegistry.Register(restateProvider); err != nil {
		log.Fatal("failed to register restate workflow provider", zap.Error(err))
	}
	workflowManager := workflow.New(workflowRegistry, log)

	bus := progress.NewBus()

	callbackRepo := callback.NewRepository(pool, log)
	callbackRegistry := callback.NewRegistry(callbackRepo, signaldispatch.New(workflowRegistry), log)

	providerType := cfg.Workflow.DefaultProvider
	if cfg.Controller.WorkflowProvider != "" {
		providerType = cfg.Controller.WorkflowProvider
	}

	tenantDB := tenantdb.New(tenantdb.Options{
		Tenants:      tenantRepo,
		Callbacks:    callbackRegistry,
		Workflows:    workflowManager,
		Bus:          bus,
		MasterKey:    masterKey,
		Storage:      storageCfg,
		AWS:          awsCfg,
		ProviderName: providerType,
	}, log)
	defer tenantDB.Close()

	// The mock provider dispatches through the same per-tenant
	// activity.Runner the Restate worker uses, so a deployment that
	// leaves workflow.default_provider at its "mock" default still runs
	// the real processor pipeline rather than faking success.
	if err := workflowRegistry.Register(mock.New(tenantDB, log)); err != nil {
		log.Fatal("failed to register mock workflow provider", zap.Error(err))
	}

	apiServer := api.New(&cfg.HTTP, dbProvider, tenantRepo, tenantDB, callbackRegistry, log)

	dispatchClient := controller.NewStepDispatchClient(workflowManager, log, 30*time.Second, providerType)
	monitor := controller.NewDispatchMonitor(tenantRepo, tenantDB, dispatchClient, cfg.Controller, log)
	apiServer.SetController(monitor)

	if err := monitor.Start(); err != nil {
		log.Fatal("failed to start dispatch monitor", zap.Error(err))
	}
	defer monitor.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("api server listening", zap.String("address", cfg.HTTP.Address()))
		if err := apiServer.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("api server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error shutting down api server", zap.Error(err))
	}

	log.Info("docuflow control plane stopped")
}
