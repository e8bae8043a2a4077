package providers

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/totegamma/concrnt-journal/internal/config"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/cache"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/database"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/gateway"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/localization"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/repository"
)

// NewDatabase opens the configured database. A "sqlite://" DSN selects the
// embedded driver.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	return database.Open(conf.PostgresDsn)
}

// MigrateDatabase applies migrations for the application models.
func MigrateDatabase(db *gorm.DB) error {
	return database.Migrate(db)
}

// NewMemcache creates a memcache client, or nil when no address is set.
func NewMemcache(addr string) *memcache.Client {
	return database.NewMemcached(addr)
}

// NewRedis creates the redis client used for change events, or nil when no
// address is set.
func NewRedis(conf config.Server) *redis.Client {
	if conf.RedisAddr == "" {
		return nil
	}
	return database.NewRedis(conf.RedisAddr, conf.RedisDB)
}

func NewDocumentCache(mc *memcache.Client, ttl time.Duration) *cache.DocumentCache {
	return cache.NewDocumentCache(mc, ttl)
}

func NewDocumentRepository(db *gorm.DB, c *cache.DocumentCache) *repository.DocumentRepository {
	return repository.NewDocumentRepository(db, c)
}

func NewTransferGateway(db *gorm.DB, c *cache.DocumentCache) *gateway.TransferGateway {
	return gateway.NewTransferGateway(db, c)
}

// NewCatalog loads the translation files under path, defaulting to English.
func NewCatalog(path string) (*localization.Catalog, error) {
	return localization.LoadDir(path, language.English)
}
