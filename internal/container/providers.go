package container

import (
	"context"
	"fmt"

	"github.com/garyjia/procurement/internal/application/dispatcher"
	"github.com/garyjia/procurement/internal/application/port"
	"github.com/garyjia/procurement/internal/application/service"
	"github.com/garyjia/procurement/internal/infrastructure/export"
	infraLark "github.com/garyjia/procurement/internal/infrastructure/external/lark"
	"github.com/garyjia/procurement/internal/infrastructure/persistence/repository"
	"github.com/garyjia/procurement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procurement/internal/infrastructure/proof"
	"github.com/garyjia/procurement/internal/infrastructure/storage"
	"github.com/garyjia/procurement/internal/infrastructure/worker"
	httpapi "github.com/garyjia/procurement/internal/interfaces/http"
	"github.com/garyjia/procurement/internal/notification"
	"github.com/garyjia/procurement/internal/seed"
	"github.com/garyjia/procurement/migrations"
	"github.com/garyjia/procurement/pkg/database"
	"github.com/garyjia/procurement/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// StorageBundle holds file-related components
type StorageBundle struct {
	FileStorage port.FileStorage
	Inspector   port.ProofInspector
	Exporter    port.DocumentExporter
}

// ProvideDatabase opens the database and applies the embedded migrations
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db, logger).Run(ctx, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Migrations applied", zap.Int("count", applied))

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Documents:     repository.NewDocumentRepository(db.DB, logger),
		Templates:     repository.NewTemplateRepository(db.DB, logger),
		Users:         repository.NewUserRepository(db.DB, logger),
		History:       repository.NewHistoryRepository(db.DB, logger),
		Notifications: repository.NewNotificationRepository(db.DB, logger),
		Comments:      repository.NewCommentRepository(db.DB, logger),
	}, nil
}

// ProvideSinks returns the notification sinks: the in-app inbox always,
// Lark direct messages when credentials are configured
func ProvideSinks(cfg *LarkConfig, repos *RepositoryBundle, logger *zap.Logger) ([]port.NotificationSink, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	sinks := []port.NotificationSink{notification.NewInboxSink(repos.Notifications)}

	larkCfg := infraLark.Config{AppID: cfg.AppID, AppSecret: cfg.AppSecret, BaseURL: cfg.BaseURL}
	if !larkCfg.Enabled() {
		logger.Info("Lark delivery disabled: no app_id configured")
		return sinks, nil
	}

	messenger := infraLark.NewMessenger(infraLark.NewClient(larkCfg), logger)
	sinks = append(sinks, notification.NewLarkSink(messenger, cfg.RateLimit, cfg.RateBurst, logger))
	return sinks, nil
}

// ProvideStorage creates proof storage, the proof inspector and the exporter
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	fileStorage, err := storage.NewLocalFileStorage(cfg.BaseDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file storage: %w", err)
	}

	return &StorageBundle{
		FileStorage: fileStorage,
		Inspector:   proof.NewInspector(int(cfg.MaxProofBytes), cfg.MaxProofPages, logger),
		Exporter:    export.NewXLSXExporter(cfg.CompanyName, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher
func ProvideDispatcher(poolSize int, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(utils.NewKVLogger(logger, "dispatcher"))}
	if poolSize > 0 {
		opts = append(opts, dispatcher.WithPoolSize(poolSize))
	}
	return dispatcher.NewDispatcher(opts...)
}

// ServiceDeps holds dependencies needed to create services
type ServiceDeps struct {
	Repos        *RepositoryBundle
	TxManager    port.TransactionManager
	Storage      *StorageBundle
	Dispatcher   dispatcher.Dispatcher
	Sinks        []port.NotificationSink
	Notification *NotificationConfig
	Logger       *zap.Logger
}

// ProvideServices creates all application services and registers the
// notification handlers on the dispatcher
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.TxManager == nil || deps.Storage == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("repositories, transaction manager, storage and dispatcher are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	r := deps.Repos
	logger := utils.NewKVLogger(deps.Logger, "service")

	notifications := service.NewNotificationService(
		r.Notifications, r.Users, deps.Notification.LinkBaseURL, logger, deps.Sinks...)
	notifications.Register(deps.Dispatcher)

	return &ServiceBundle{
		Templates:     service.NewTemplateService(r.Templates, r.Users, logger),
		Documents:     service.NewDocumentService(r.Documents, r.History, deps.TxManager, deps.Storage.Exporter, deps.Dispatcher, logger),
		Validation:    service.NewValidationService(r.Documents, r.Templates, r.Users, r.History, deps.TxManager, deps.Dispatcher, logger),
		Approvals:     service.NewApprovalService(r.Documents, r.History, deps.TxManager, deps.Dispatcher, logger),
		BAST:          service.NewBASTService(r.Documents, r.History, deps.TxManager, deps.Storage.FileStorage, deps.Storage.Inspector, deps.Dispatcher, logger),
		Comments:      service.NewCommentService(r.Documents, r.Comments, r.Users, deps.Dispatcher, logger),
		Notifications: notifications,
		Reminders:     service.NewReminderService(r.Documents, deps.Dispatcher, deps.Notification.ReminderAfter, logger),
	}, nil
}

// ProvideWorkers creates the background workers; an empty manager when
// reminders are disabled
func ProvideWorkers(cfg *NotificationConfig, reminders service.ReminderService, logger *zap.Logger) *worker.Manager {
	m := worker.NewManager(logger)
	if cfg.ReminderInterval > 0 && reminders != nil {
		m.Register(worker.NewReminderWorker(cfg.ReminderInterval, reminders, logger))
	}
	return m
}

// ProvideAuthenticator creates the bearer token authenticator
func ProvideAuthenticator(cfg *AuthConfig) (*httpapi.Authenticator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	return httpapi.NewAuthenticator(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL)
}

// ApplySeed loads the seed file at path and applies it
func ApplySeed(ctx context.Context, path string, repos *RepositoryBundle, txManager port.TransactionManager, logger *zap.Logger) (*seed.Result, error) {
	f, err := seed.Load(path)
	if err != nil {
		return nil, err
	}
	return seed.NewSeeder(repos.Users, repos.Templates, txManager, logger).Apply(ctx, f)
}
