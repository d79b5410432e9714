package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/AnimeKaizoku/cacher"
	rcache "github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/teampoint/botcore/internal/config"
	"github.com/teampoint/botcore/internal/utils/values"
	"github.com/vmihailenco/msgpack/v5"
)

type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
}

type CacheOpts struct {
	TimeToLive    time.Duration
	CleanInterval *time.Duration
	Revaluate     *bool
	Prefix        string
}

var redisClient *redis.Client

func InitRedis(ctx context.Context) {
	cfg := values.GetConfig().App.AppCache
	redisClient = redis.NewClient(&redis.Options{Addr: cfg.ServiceUrl})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to redis at %s: %v", cfg.ServiceUrl, err)
	}
	logrus.Infof("Connected to redis at %s", cfg.ServiceUrl)
}

// NewCache picks the backend from config: the in-app generic cacher by
// default, redis when the deployment shares cache state across
// replicas.
func NewCache[K comparable, V any](opts *CacheOpts) Cache[K, V] {
	cfg := config.CacheConfig{InApp: true}
	if c := values.GetConfig(); c != nil {
		cfg = c.App.AppCache
	}
	if cfg.InApp || redisClient == nil {
		cleanInterval := time.Hour
		if opts.CleanInterval != nil {
			cleanInterval = *opts.CleanInterval
		}
		revaluate := false
		if opts.Revaluate != nil {
			revaluate = *opts.Revaluate
		}
		return &inAppCache[K, V]{
			inner: cacher.NewCacher[K, V](&cacher.NewCacherOpts{
				TimeToLive:    opts.TimeToLive,
				CleanInterval: cleanInterval,
				Revaluate:     revaluate,
			}),
		}
	}
	size := cfg.InternalCacheSize
	if size <= 0 {
		size = 1000
	}
	localTTL := cfg.InternalCacheDuration
	if localTTL <= 0 {
		localTTL = time.Minute
	}
	return &redisCache[K, V]{
		inner: rcache.New(&rcache.Options{
			Redis:      redisClient,
			LocalCache: rcache.NewTinyLFU(size, localTTL),
			Marshal:    msgpack.Marshal,
			Unmarshal:  msgpack.Unmarshal,
		}),
		ttl:    opts.TimeToLive,
		prefix: opts.Prefix,
	}
}

type inAppCache[K comparable, V any] struct {
	inner *cacher.Cacher[K, V]
}

func (c *inAppCache[K, V]) Get(key K) (V, bool) {
	return c.inner.Get(key)
}

func (c *inAppCache[K, V]) Set(key K, value V) {
	c.inner.Set(key, value)
}

func (c *inAppCache[K, V]) Delete(key K) {
	c.inner.Delete(key)
}

type redisCache[K comparable, V any] struct {
	inner  *rcache.Cache
	ttl    time.Duration
	prefix string
}

func (c *redisCache[K, V]) key(key K) string {
	return fmt.Sprintf("%s:%v", c.prefix, key)
}

func (c *redisCache[K, V]) Get(key K) (value V, ok bool) {
	if err := c.inner.Get(context.Background(), c.key(key), &value); err != nil {
		return value, false
	}
	return value, true
}

func (c *redisCache[K, V]) Set(key K, value V) {
	err := c.inner.Set(&rcache.Item{
		Ctx:   context.Background(),
		Key:   c.key(key),
		Value: value,
		TTL:   c.ttl,
	})
	if err != nil {
		logrus.Warnf("Failed to write cache key %s: %v", c.key(key), err)
	}
}

func (c *redisCache[K, V]) Delete(key K) {
	if err := c.inner.Delete(context.Background(), c.key(key)); err != nil {
		logrus.Warnf("Failed to delete cache key %s: %v", c.key(key), err)
	}
}
