package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/procurement/internal/application/dispatcher"
	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/application/service"
	"github.com/garyjia/procurement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procurement/internal/infrastructure/worker"
	httpapi "github.com/garyjia/procurement/internal/interfaces/http"
	"github.com/garyjia/procurement/pkg/database"
	"github.com/garyjia/procurement/pkg/utils"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	sinks   []port.NotificationSink
	storage *StorageBundle

	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	auth       *httpapi.Authenticator
	workers    *worker.Manager

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access
type RepositoryBundle struct {
	Documents     port.DocumentRepository
	Templates     port.TemplateRepository
	Users         port.UserRepository
	History       port.HistoryRepository
	Notifications port.NotificationRepository
	Comments      port.CommentRepository
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Templates     service.TemplateService
	Documents     service.DocumentService
	Validation    service.ValidationService
	Approvals     service.ApprovalService
	BAST          service.BASTService
	Comments      service.CommentService
	Notifications service.NotificationService
	Reminders     service.ReminderService
}

// HTTP returns the services in the shape the HTTP server expects
func (b *ServiceBundle) HTTP() httpapi.Services {
	return httpapi.Services{
		Templates:     b.Templates,
		Documents:     b.Documents,
		Validation:    b.Validation,
		Approvals:     b.Approvals,
		BAST:          b.BAST,
		Comments:      b.Comments,
		Notifications: b.Notifications,
	}
}

// HealthStatus represents the health of all components
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, migrations and repositories
// 2. Notification sinks
// 3. Storage, proof inspector and exporter
// 4. Event dispatcher
// 5. Application services and notification handlers
// 6. Seed data
// 7. Background workers
// A failed start releases whatever was already opened.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.start(ctx); err != nil {
		c.shutdown()
		return err
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) start(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = dbBundle.DB
	c.txManager = dbBundle.TransactionMgr

	if c.repositories, err = ProvideRepositories(c.db, c.logger); err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	c.logger.Info("Database initialized")

	if c.sinks, err = ProvideSinks(&c.config.Lark, c.repositories, c.logger); err != nil {
		return fmt.Errorf("failed to initialize notification sinks: %w", err)
	}

	if c.storage, err = ProvideStorage(&c.config.Storage, c.logger); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage initialized")

	if c.dispatcher, err = ProvideDispatcher(c.config.Notification.PoolSize, c.logger); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	c.services, err = ProvideServices(&ServiceDeps{
		Repos:        c.repositories,
		TxManager:    c.txManager,
		Storage:      c.storage,
		Dispatcher:   c.dispatcher,
		Sinks:        c.sinks,
		Notification: &c.config.Notification,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if c.auth, err = ProvideAuthenticator(&c.config.Auth); err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}
	c.logger.Info("Application services initialized", zap.Int("sinks", len(c.sinks)))

	if c.config.SeedPath != "" {
		if _, err := ApplySeed(ctx, c.config.SeedPath, c.repositories, c.txManager, c.logger); err != nil {
			return fmt.Errorf("failed to apply seed: %w", err)
		}
	}

	c.workers = ProvideWorkers(&c.config.Notification, c.services.Reminders, c.logger)
	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.logger.Info("Workers started", zap.Int("count", c.workers.Count()))

	return nil
}

// Close gracefully shuts down all components in reverse order.
// The dispatcher drains queued notifications before the database closes.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.shutdown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) shutdown() []error {
	var errs []error

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
		c.workers = nil
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.db = nil
	}

	return errs
}

// Ready returns true when all components are initialized
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.db == nil:
		set("database", false, "not initialized")
	default:
		if err := c.db.PingContext(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.dispatcher != nil {
		set("dispatcher", true, "")
	} else {
		set("dispatcher", false, "not initialized")
	}

	if c.workers != nil {
		set("workers", c.workers.IsRunning(), fmt.Sprintf("worker count: %d", c.workers.Count()))
	}

	if c.services != nil {
		set("services", true, fmt.Sprintf("notification sinks: %d", len(c.sinks)))
	} else {
		set("services", false, "not initialized")
	}

	return status
}

// Repositories returns all repositories
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// TxManager returns the transaction manager
func (c *Container) TxManager() port.TransactionManager {
	return c.txManager
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Authenticator returns the bearer token authenticator
func (c *Container) Authenticator() *httpapi.Authenticator {
	return c.auth
}

// NewHTTPServer builds the HTTP server over the container's services
func (c *Container) NewHTTPServer() *httpapi.Server {
	cfg := c.config.Server
	return httpapi.NewServer(httpapi.ServerConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: c.config.Storage.MaxProofBytes,
	}, c.services.HTTP(), c.auth, utils.NewKVLogger(c.logger, "http"))
}

// Logger returns the container's logger
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration
func (c *Container) Config() *Config {
	return c.config
}
