// Command restate-worker is the Restate pipeline-step worker process: it
// registers the durable pipeline-step service with the Restate runtime
// and, for every invocation, dials the invoking tenant's database and
// runs the processor that invocation's step names.
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

	"github.com/jaxxstorm/docuflow/internal/callback"
	"github.com/jaxxstorm/docuflow/internal/cloud/awsconfig"
	"github.com/jaxxstorm/docuflow/internal/config"
	"github.com/jaxxstorm/docuflow/internal/database"
	"github.com/jaxxstorm/docuflow/internal/logger"
	"github.com/jaxxstorm/docuflow/internal/progress"
	"github.com/jaxxstorm/docuflow/internal/signaldispatch"
	"github.com/jaxxstorm/docuflow/internal/storage"
	"github.com/jaxxstorm/docuflow/internal/tenant/postgres"
	"github.com/jaxxstorm/docuflow/internal/tenantdb"
	"github.com/jaxxstorm/docuflow/internal/workflow"
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

	log.Info("starting docuflow restate pipeline-step worker")

	ctx := context.Background()

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

	tenantDB := tenantdb.New(tenantdb.Options{
		Tenants:      tenantRepo,
		Callbacks:    callbackRegistry,
		Workflows:    workflowManager,
		Bus:          bus,
		MasterKey:    masterKey,
		Storage:      storageCfg,
		AWS:          awsCfg,
		ProviderName: "restate",
	}, log)
	defer tenantDB.Close()

	restateWorker, err := restate.NewWorkerEngine(cfg.Workflow.Restate, tenantDB, log)
	if err != nil {
		log.Fatal("failed to initialize restate worker engine", zap.Error(err))
	}

	workerRegistry := workflow.NewWorkerRegistry(log)
	if err := workerRegistry.Register(restateWorker); err != nil {
		log.Fatal("failed to register restate worker engine", zap.Error(err))
	}

	selectedWorker, err := workerRegistry.Get(restateWorker.Name())
	if err != nil {
		log.Fatal("no worker engine registered", zap.Error(err))
	}

	workerCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	workerAddr := cfg.Workflow.Restate.WorkerListenAddress

	startErr := make(chan error, 1)
	go func() {
		startErr <- selectedWorker.Start(workerCtx, workerAddr)
	}()

	// Give the worker server a moment to start before registering with Restate.
	time.Sleep(500 * time.Millisecond)

	if err := selectedWorker.Register(ctx); err != nil {
		log.Fatal("failed to register worker engine", zap.Error(err))
	}

	log.Info("worker started, waiting for workflows",
		zap.String("address", workerAddr),
		zap.String("worker_engine", selectedWorker.Name()),
	)

	if err := <-startErr; err != nil {
		log.Fatal("worker failed", zap.Error(err))
	}

	log.Info("worker stopped")
}
