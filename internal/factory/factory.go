package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/credaudit/internal/dependencies/clock"
	"github.com/mcoot/credaudit/internal/dependencies/ids"
	"github.com/mcoot/credaudit/internal/services/audit"
	"github.com/mcoot/credaudit/internal/services/auth"
	"github.com/mcoot/credaudit/internal/services/dictionary"
	"github.com/mcoot/credaudit/internal/services/oracle"
	"github.com/mcoot/credaudit/internal/services/search"
	"github.com/mcoot/credaudit/internal/storage"
	"github.com/mcoot/credaudit/internal/storage/memory"
	redisstorage "github.com/mcoot/credaudit/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	IDs   ids.Generator

	// Services
	DictionaryService *dictionary.Service
	AuthService       *auth.Service
	Oracle            *oracle.Adapter
	SearchController  *search.Controller
	AuditService      *audit.Service
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// OracleConfig holds retry and rate limit settings (optional)
	// If nil, defaults to oracle.DefaultConfig()
	OracleConfig *oracle.Config
	// SearchConfig holds controller settings (optional)
	// If nil, defaults to search.DefaultConfig()
	SearchConfig *search.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	oracleCfg := oracle.DefaultConfig()
	if cfg.OracleConfig != nil {
		oracleCfg = *cfg.OracleConfig
	}
	searchCfg := search.DefaultConfig()
	if cfg.SearchConfig != nil {
		searchCfg = *cfg.SearchConfig
	}

	return newWithDependencies(store, clock.New(), ids.New(), cfg.AuthConfig, oracleCfg, searchCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	idGen ids.Generator,
	authCfg auth.Config,
	oracleCfg oracle.Config,
	searchCfg search.Config,
	logger *slog.Logger,
) *App {
	dictService := dictionary.NewService(store, logger)
	authService := auth.New(store, clk, authCfg, logger)
	adapter := oracle.NewAdapter(oracle.Recovering(authService, logger), oracleCfg, logger)
	controller := search.NewController(adapter, clk, idGen, searchCfg, logger)
	auditService := audit.New(store, dictService, controller, logger)

	return &App{
		Storage:           store,
		Clock:             clk,
		IDs:               idGen,
		DictionaryService: dictService,
		AuthService:       authService,
		Oracle:            adapter,
		SearchController:  controller,
		AuditService:      auditService,
	}
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Storage.Close()
}
