// Package di wires the menu editor together with Google Wire.
package di

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	awsDynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsEventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"github.com/google/wire"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"menueditor-backend/internal/backup"
	"menueditor-backend/internal/config"
	"menueditor-backend/internal/flash"
	"menueditor-backend/internal/handlers"
	"menueditor-backend/internal/infrastructure/messaging"
	"menueditor-backend/internal/infrastructure/observability"
	"menueditor-backend/internal/middleware"
	"menueditor-backend/internal/search"
	"menueditor-backend/internal/service/editor"
	"menueditor-backend/internal/storage"
	"menueditor-backend/internal/storage/sqlite"
	"menueditor-backend/pkg/auth"
	apperrors "menueditor-backend/pkg/errors"
)

// ============================================================================
// PROVIDER SETS
// ============================================================================

// ConfigProviders provides the logger and tracing, which everything else uses.
var ConfigProviders = wire.NewSet(
	provideLogger,
	provideTracerProvider,
)

// InfrastructureProviders provides storage, AWS clients and cross-cutting
// concerns.
var InfrastructureProviders = wire.NewSet(
	provideAWSConfig,
	provideDynamoDBClient,
	provideEventBridgeClient,
	provideFilesystem,
	provideDocumentStore,
	provideRotator,
	provideMetrics,
	providePublisher,
)

// EditorProviders provides the editor service.
var EditorProviders = wire.NewSet(
	provideEditorService,
)

// SearchProviders provides the site model and the content search.
var SearchProviders = wire.NewSet(
	provideSiteStore,
	provideSiteWatcher,
	provideContentIndex,
	provideSearchService,
)

// InterfaceProviders provides the HTTP layer.
var InterfaceProviders = wire.NewSet(
	provideTokenValidator,
	provideFlashStore,
	provideErrorHandler,
	provideEditorHandler,
	provideSearchHandler,
	provideHealthHandler,
	provideRouter,
	wire.Bind(new(handlers.Searcher), new(*search.Service)),
)

// SuperSet combines all provider sets for the HTTP service.
var SuperSet = wire.NewSet(
	ConfigProviders,
	InfrastructureProviders,
	EditorProviders,
	SearchProviders,
	InterfaceProviders,
	NewColdStartTracker,
	wire.Struct(new(Container), "*"),
)

// ToolSet is the subset the operator CLI needs.
var ToolSet = wire.NewSet(
	provideLogger,
	InfrastructureProviders,
	EditorProviders,
	wire.Struct(new(Tools), "*"),
)

// ============================================================================
// CONFIGURATION PROVIDERS
// ============================================================================

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	zc := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build(zap.Fields(
		zap.String("service", cfg.Tracing.ServiceName),
		zap.String("environment", string(cfg.Environment)),
	))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = logger.Sync()
	}
	return logger, cleanup, nil
}

// provideTracerProvider returns nil when tracing is disabled; spans then go to
// the global no-op provider.
func provideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.Tracing.Enabled {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ============================================================================
// INFRASTRUCTURE PROVIDERS
// ============================================================================

func provideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Storage.Region))
}

func provideDynamoDBClient(awsCfg aws.Config) *awsDynamodb.Client {
	return awsDynamodb.NewFromConfig(awsCfg)
}

func provideEventBridgeClient(awsCfg aws.Config) *awsEventbridge.Client {
	return awsEventbridge.NewFromConfig(awsCfg)
}

// provideFilesystem roots the menu file and its backups at Storage.Root.
func provideFilesystem(cfg *config.Config) billy.Filesystem {
	return osfs.New(cfg.Storage.Root)
}

func provideDocumentStore(cfg *config.Config, fs billy.Filesystem, dynamo *awsDynamodb.Client, logger *zap.Logger) storage.DocumentStore {
	var store storage.DocumentStore
	switch cfg.Storage.Driver {
	case config.DriverDynamoDB:
		store = storage.NewDynamoStore(dynamo, storage.DynamoConfig{
			TableName: cfg.Storage.TableName,
			Name:      cfg.Storage.MenuFile,
		}, logger)
	default:
		store = storage.NewFileStore(fs, cfg.Storage.MenuFile, logger)
	}
	logger.Info("Menu storage configured", zap.String("location", store.Location()))
	return observability.TraceStore(store, observability.Tracer())
}

func provideRotator(cfg *config.Config, fs billy.Filesystem, logger *zap.Logger) *backup.Rotator {
	return backup.NewRotator(fs, backup.Policy{
		Enabled:   cfg.Backups.Enabled,
		Folder:    cfg.Backups.Folder,
		Keep:      cfg.Backups.Keep,
		Collision: cfg.Backups.Collision,
	}, logger)
}

// provideMetrics returns nil when metrics are disabled.
func provideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

func providePublisher(cfg *config.Config, client *awsEventbridge.Client, logger *zap.Logger) messaging.Publisher {
	if !cfg.Events.Enabled {
		return messaging.NopPublisher{}
	}
	if cfg.Events.Provider == "eventbridge" {
		return messaging.NewEventBridgePublisher(client, cfg.Events.EventBusName, cfg.Events.Source, logger)
	}
	return messaging.NewLogPublisher(logger)
}

// ============================================================================
// SERVICE PROVIDERS
// ============================================================================

func provideEditorService(
	cfg *config.Config,
	store storage.DocumentStore,
	rotator *backup.Rotator,
	publisher messaging.Publisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) editor.Service {
	return editor.NewService(store, rotator, publisher, metrics, logger, editor.Options{
		Permission:      cfg.Security.Permission,
		MaxDepth:        cfg.Menu.MaxDepth,
		MaxPayloadBytes: cfg.Menu.MaxPayloadBytes,
		Fields:          cfg.Menu.Fields,
	})
}

func provideSiteStore(cfg *config.Config) (*config.SiteStore, error) {
	site, err := config.LoadSite(cfg.Storage.SiteConfigDir)
	if err != nil {
		return nil, err
	}
	return config.NewSiteStore(site), nil
}

// provideSiteWatcher returns nil inside Lambda, or when the site directory
// cannot be watched; the model loaded at startup is then kept.
func provideSiteWatcher(cfg *config.Config, store *config.SiteStore, logger *zap.Logger) (*config.SiteWatcher, func()) {
	if IsRunningInLambda() {
		return nil, func() {}
	}
	watcher, err := config.NewSiteWatcher(cfg.Storage.SiteConfigDir, store, logger, config.DefaultDebounce)
	if err != nil {
		logger.Warn("Site configuration hot reloading disabled", zap.Error(err))
		return nil, func() {}
	}
	return watcher, func() { _ = watcher.Close() }
}

func provideContentIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (search.ContentIndex, func(), error) {
	idx, err := sqlite.Open(cfg.Search.IndexDSN, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := idx.Close(); err != nil {
			logger.Warn("Failed to close content index", zap.Error(err))
		}
	}
	// Read-only indexes are maintained by the host CMS.
	if !strings.Contains(cfg.Search.IndexDSN, "mode=ro") {
		if err := idx.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	if !cfg.CircuitBreaker.Enabled {
		return idx, cleanup, nil
	}
	cb := cfg.CircuitBreaker
	return search.NewBreakerIndex(idx, search.BreakerConfig{
		Name:         "content-index",
		MaxRequests:  cb.MaxRequests,
		Interval:     cb.Interval,
		Timeout:      cb.Timeout,
		FailureRatio: cb.FailureRatio,
		MinRequests:  cb.MinimumRequests,
	}, logger), cleanup, nil
}

func provideSearchService(
	cfg *config.Config,
	index search.ContentIndex,
	site *config.SiteStore,
	metrics *observability.Collector,
	logger *zap.Logger,
) *search.Service {
	return search.NewService(index, site, search.Options{
		Permission:     cfg.Security.Permission,
		MaxQueryLength: cfg.Search.MaxQueryLength,
	}, metrics, logger)
}

// ============================================================================
// INTERFACE PROVIDERS
// ============================================================================

// provideTokenValidator returns a nil interface when authentication is
// disabled, which makes every request run as the development principal.
func provideTokenValidator(cfg *config.Config, logger *zap.Logger) (middleware.TokenValidator, error) {
	if !cfg.Security.EnableAuth {
		logger.Warn("Authentication disabled, all requests run with every permission")
		return nil, nil
	}
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.Security.JWTSecret,
		Issuer:        cfg.Security.JWTIssuer,
	})
	if err != nil {
		return nil, err
	}
	return validator, nil
}

// provideFlashStore signs flash cookies with the flash key, falling back to
// the JWT secret and then to a per-process key.
func provideFlashStore(cfg *config.Config) *flash.Store {
	key := cfg.Security.FlashKey
	if key == "" {
		key = cfg.Security.JWTSecret
	}
	if key == "" {
		key = uuid.NewString()
	}
	return flash.NewStore(key, cfg.Server.BasePath, cfg.Environment == config.Production)
}

func provideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.Handler {
	return apperrors.NewHandler(logger, cfg.IsDevelopment())
}

func provideEditorHandler(cfg *config.Config, service editor.Service, flashes *flash.Store, errs *apperrors.Handler, logger *zap.Logger) *handlers.EditorHandler {
	return handlers.NewEditorHandler(service, flashes, errs, logger, handlers.EditorOptions{
		Home:       cfg.Server.BasePath,
		MaxPayload: cfg.Menu.MaxPayloadBytes,
	})
}

func provideSearchHandler(searcher handlers.Searcher, errs *apperrors.Handler) *handlers.SearchHandler {
	return handlers.NewSearchHandler(searcher, errs)
}

func provideHealthHandler(store storage.DocumentStore) *handlers.HealthHandler {
	return handlers.NewHealthHandler(observability.ServiceVersion(), store.Location())
}

// provideRouter mounts /metrics on the main router unless metrics are served
// on their own port.
func provideRouter(
	cfg *config.Config,
	editorHandler *handlers.EditorHandler,
	searchHandler *handlers.SearchHandler,
	healthHandler *handlers.HealthHandler,
	validator middleware.TokenValidator,
	metrics *observability.Collector,
	errs *apperrors.Handler,
	logger *zap.Logger,
) *chi.Mux {
	metricsPath := cfg.Metrics.Path
	if cfg.Metrics.Port != 0 {
		metricsPath = ""
	}
	return handlers.NewRouter(handlers.RouterConfig{
		BasePath:       cfg.Server.BasePath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Permission:     cfg.Security.Permission,
		ServiceName:    cfg.Tracing.ServiceName,
		MetricsPath:    metricsPath,
	}, handlers.Dependencies{
		Editor:    editorHandler,
		Search:    searchHandler,
		Health:    healthHandler,
		Validator: validator,
		Metrics:   metrics,
		Errors:    errs,
		Logger:    logger,
	})
}

// IsRunningInLambda reports whether the process runs inside AWS Lambda.
func IsRunningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
