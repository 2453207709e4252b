package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/stackforge/orderhub-backend/internal/logger"
	"github.com/stackforge/orderhub-backend/pkg/api/routes"
	"github.com/stackforge/orderhub-backend/pkg/api/servers"
	"github.com/stackforge/orderhub-backend/pkg/credentials"
	"github.com/stackforge/orderhub-backend/pkg/deployers"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"
	"github.com/stackforge/orderhub-backend/pkg/infrastructure/postgres/connection"
	"github.com/stackforge/orderhub-backend/pkg/infrastructure/postgres/repositories"
	"github.com/stackforge/orderhub-backend/pkg/orders"
	"github.com/stackforge/orderhub-backend/pkg/servicelock"
	"github.com/stackforge/orderhub-backend/pkg/taskmanager"

	"github.com/gin-contrib/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

func main() {
	logger.Init()

	// Load .env file if it exists (optional for Docker runtime)
	if err := godotenv.Load(".env"); err != nil {
		logger.Infof("No .env file found, using environment variables: %s", err)
	}

	port := envOr("PORT", "8000")
	callbackBaseURL := envOr("CALLBACK_BASE_URL", "http://localhost:"+port)

	postgresDB, err := connection.Init(
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_DB"),
		os.Getenv("POSTGRES_PORT"),
	)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}

	orderRepo := repositories.NewOrderPostgresRepository(postgresDB)
	serviceRepo := repositories.NewServicePostgresRepository(postgresDB)

	locks := servicelock.NewRegistry()

	credCache := credentials.NewCache(envInt("CREDENTIAL_CACHE_SIZE", 256),
		func(key credentials.Key, reason credentials.RemovalReason) {
			logger.Info("Credential removed from cache",
				zap.String("provider", key.Provider),
				zap.String("principal", key.Principal),
				zap.String("kind", key.Kind),
				zap.String("reason", string(reason)),
			)
		})
	credCache.StartSweep(envDuration("CREDENTIAL_SWEEP_INTERVAL", time.Minute))
	credIssuer := credentials.NewHTTPCollaborator(envOr("CREDENTIAL_SERVICE_URL", "http://localhost:8100"))

	registry := deployers.NewRegistry()
	workRoot := envOr("WORKSPACE_ROOT", "/var/lib/orderhub/workspaces")
	registry.Register(entities.DeployerKindTerraform,
		deployers.NewLocalExec(entities.DeployerKindTerraform, envOr("TERRAFORM_BIN", "terraform"), workRoot))
	registry.Register(entities.DeployerKindOpenTofu,
		deployers.NewLocalExec(entities.DeployerKindOpenTofu, envOr("TOFU_BIN", "tofu"), workRoot))
	registry.Register(entities.DeployerKindHelm,
		deployers.NewLocalExec(entities.DeployerKindHelm, envOr("HELM_BIN", "helm"), workRoot))

	oauth := clientcredentials.Config{
		ClientID:     os.Getenv("DEPLOYER_OAUTH_CLIENT_ID"),
		ClientSecret: os.Getenv("DEPLOYER_OAUTH_CLIENT_SECRET"),
		TokenURL:     os.Getenv("DEPLOYER_OAUTH_TOKEN_URL"),
	}
	if terraBootURL := os.Getenv("TERRA_BOOT_URL"); terraBootURL != "" {
		registry.Register(entities.DeployerKindTerraBoot,
			deployers.NewRemote(terraBootURL, callbackBaseURL, oauth))
	}
	if tofuMakerURL := os.Getenv("TOFU_MAKER_URL"); tofuMakerURL != "" {
		registry.Register(entities.DeployerKindTofuMaker,
			deployers.NewRemote(tofuMakerURL, callbackBaseURL, oauth))
	}

	tasks := taskmanager.NewTaskManager(envInt("TASK_WORKERS", 0), envInt("TASK_QUEUE_SIZE", 64))

	manager := orders.NewManager(orderRepo, serviceRepo, locks, registry, credCache, credIssuer, tasks)

	ctx := context.Background()

	reconciler := orders.NewReconciler(manager, orderRepo, locks, tasks,
		envDuration("RECONCILE_GRACE", 2*time.Minute))
	if err := reconciler.Run(ctx); err != nil {
		logger.Fatal("Failed to reconcile in-flight orders", zap.Error(err))
	}

	watchdog := orders.NewWatchdog(manager, orderRepo,
		envDuration("ORDER_MAX_DURATION", 2*time.Hour),
		envDuration("WATCHDOG_INTERVAL", time.Minute))
	watchdog.Start(ctx)

	server := servers.NewServer(postgresDB, manager)
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"*"}

	server.Use(cors.New(config))

	routes.SetupRoutes(server)

	if err := server.Start(port); err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Fatalf("Invalid %s: %s", key, v)
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Fatalf("Invalid %s: %s", key, v)
	}
	return d
}
