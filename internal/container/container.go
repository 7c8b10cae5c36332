package container

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/contacts-identity/config"
	"github.com/oksasatya/contacts-identity/internal/application"
	"github.com/oksasatya/contacts-identity/internal/domain/repository"
	"github.com/oksasatya/contacts-identity/internal/infrastructure/imageproc"
	"github.com/oksasatya/contacts-identity/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/contacts-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/contacts-identity/internal/infrastructure/redisstore"
	"github.com/oksasatya/contacts-identity/internal/infrastructure/storage"
	handlers "github.com/oksasatya/contacts-identity/internal/interface/http"
	"github.com/oksasatya/contacts-identity/pkg/helpers"
	"github.com/oksasatya/contacts-identity/pkg/mailer"
)

// Container holds the constructed components of one server process.
// Router modules are wired from it; nothing here is package-level state.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Store       repository.UserRepository
	Identity    *application.IdentityService
	Avatars     *application.AvatarService
	UserHandler *handlers.UserHandler

	closers []func()
}

// Deps are the driver-selected collaborators. New builds them from config;
// tests pass their own to Build.
type Deps struct {
	Store   repository.UserRepository
	Mail    application.Notifier
	Storage application.AvatarStorage
}

// New connects every driver named in cfg and wires the services on top.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	var deps Deps
	var err error

	if deps.Store, err = c.newStore(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if deps.Mail, err = c.newNotifier(); err != nil {
		c.Close()
		return nil, err
	}
	if deps.Storage, err = c.newAvatarStorage(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.wire(deps); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Build wires the services on top of already constructed collaborators.
func Build(cfg *config.Config, logger *logrus.Logger, deps Deps) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	if err := c.wire(deps); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(deps Deps) error {
	cfg := c.Config
	if err := os.MkdirAll(cfg.UploadTmpDir, 0o755); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}
	c.Store = deps.Store
	c.Identity = application.NewIdentityService(
		deps.Store,
		helpers.NewBcryptHasher(cfg.BcryptCost),
		helpers.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		deps.Mail,
		c.Logger,
		application.IdentityConfig{
			AppName:             cfg.AppName,
			CompanyName:         cfg.CompanyName,
			SupportURL:          cfg.SupportURL,
			PublicBaseURL:       cfg.PublicBaseURL,
			DefaultSubscription: cfg.DefaultSubscription,
		},
	)
	c.Avatars = application.NewAvatarService(deps.Store, imageproc.NewAvatarResizer(), deps.Storage, c.Logger)
	c.UserHandler = handlers.NewUserHandler(c.Identity, c.Avatars, c.Logger, cfg.UploadTmpDir, cfg.MaxAvatarBytes)
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Container) onClose(fn func()) { c.closers = append(c.closers, fn) }

func (c *Container) newStore(ctx context.Context) (repository.UserRepository, error) {
	cfg := c.Config
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, err
		}
		c.onClose(pool.Close)
		if cfg.MigrationsDir != "" {
			if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, c.Logger); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return pginfra.NewUserRepository(pool), nil
	case "redis":
		rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		c.onClose(func() { _ = rdb.Close() })
		return redisstore.NewUserRepository(rdb), nil
	case "memory":
		c.Logger.Warn("using in-memory credential store, accounts are lost on restart")
		return memory.NewUserRepository(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func (c *Container) newNotifier() (application.Notifier, error) {
	cfg := c.Config
	if !cfg.MailSendEnabled {
		return mailer.LogSender{Logger: c.Logger}, nil
	}
	switch cfg.MailDriver {
	case "log":
		return mailer.LogSender{Logger: c.Logger}, nil
	case "direct":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, fmt.Errorf("mail driver direct needs MAILGUN_DOMAIN and MAILGUN_API_KEY")
		}
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), nil
	case "queue":
		q, err := helpers.NewRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, err
		}
		c.onClose(q.Close)
		return mailer.NewQueue(q), nil
	}
	return nil, fmt.Errorf("unknown MAIL_DRIVER %q", cfg.MailDriver)
}

func (c *Container) newAvatarStorage(ctx context.Context) (application.AvatarStorage, error) {
	cfg := c.Config
	switch cfg.AvatarDriver {
	case "local":
		return storage.NewLocal(cfg.AvatarDir, cfg.AvatarPublicPath)
	case "gcs":
		client, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		c.onClose(func() { _ = client.Close() })
		return storage.NewGCS(helpers.NewGCSUploader(client), cfg.GCSBucket)
	case "s3":
		client, err := helpers.NewS3Client(ctx, helpers.S3Options{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return storage.NewS3(client, cfg.S3Bucket, cfg.S3PublicURL)
	}
	return nil, fmt.Errorf("unknown AVATAR_DRIVER %q", cfg.AvatarDriver)
}

// OpenStore connects only the credential store named in cfg. The returned
// func releases the connection.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	c := &Container{Config: cfg, Logger: logger}
	store, err := c.newStore(ctx)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return store, c.Close, nil
}
