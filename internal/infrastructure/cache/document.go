package cache

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	gocache "github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/concrnt-journal"
	"github.com/totegamma/concrnt-journal/internal/domain"
)

// DocumentCache keeps resolved documents in process and, when a memcached
// client is given, in a shared second level.
type DocumentCache struct {
	local  *gocache.Cache
	shared *memcache.Client
	ttl    time.Duration
}

type entry struct {
	Document domain.Document  `json:"document"`
	Parent   *domain.Document `json:"parent,omitempty"`
}

func NewDocumentCache(shared *memcache.Client, ttl time.Duration) *DocumentCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DocumentCache{
		local:  gocache.New(ttl, 2*ttl),
		shared: shared,
		ttl:    ttl,
	}
}

func Key(t journal.DocumentType, id string) string {
	return "ej:doc:" + strconv.FormatUint(xxh3.HashString(string(t)+":"+id), 16)
}

func (c *DocumentCache) Get(t journal.DocumentType, id string) (domain.Document, bool) {
	key := Key(t, id)
	if cached, found := c.local.Get(key); found {
		return cached.(domain.Document), true
	}

	if c.shared == nil {
		return domain.Document{}, false
	}
	item, err := c.shared.Get(key)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			slog.Debug("memcache get failed", slog.String("error", err.Error()), slog.String("module", "cache"))
		}
		return domain.Document{}, false
	}

	var e entry
	if err := json.Unmarshal(item.Value, &e); err != nil {
		return domain.Document{}, false
	}
	doc := e.Document
	doc.Parent = e.Parent
	c.local.Set(key, doc, c.ttl)
	return doc, true
}

func (c *DocumentCache) Set(doc domain.Document) {
	key := Key(doc.Type, doc.ID)
	c.local.Set(key, doc, c.ttl)

	if c.shared == nil {
		return
	}
	value, err := json.Marshal(entry{Document: doc, Parent: doc.Parent})
	if err != nil {
		return
	}
	err = c.shared.Set(&memcache.Item{Key: key, Value: value, Expiration: int32(c.ttl / time.Second)})
	if err != nil {
		slog.Debug("memcache set failed", slog.String("error", err.Error()), slog.String("module", "cache"))
	}
}

// Invalidate drops a document from both levels.
func (c *DocumentCache) Invalidate(t journal.DocumentType, id string) {
	key := Key(t, id)
	c.local.Delete(key)
	if c.shared != nil {
		_ = c.shared.Delete(key)
	}
}
