package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

const (
	redisKeyPrefix = "cfdi:sat:"
	scanBatchSize  = 100
)

// RedisConfig conexión a Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStatusCache caché compartida entre instancias. La expiración la aplica Redis
// con el TTL de cada clave.
type RedisStatusCache struct {
	client     *redis.Client
	ttl        time.Duration
	ownsClient bool
}

var _ ports.StatusCache = (*RedisStatusCache)(nil)

// NewRedisStatusCache abre la conexión y verifica con PING.
func NewRedisStatusCache(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisStatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: conectar a redis %s: %w", cfg.Addr, err)
	}

	c := NewRedisStatusCacheWithClient(client, ttl)
	c.ownsClient = true
	return c, nil
}

// NewRedisStatusCacheWithClient usa un cliente existente; el llamador lo cierra.
func NewRedisStatusCacheWithClient(client *redis.Client, ttl time.Duration) *RedisStatusCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStatusCache{client: client, ttl: ttl}
}

// Get un redis.Nil es fallo de caché; una entrada corrupta se borra.
func (c *RedisStatusCache) Get(ctx context.Context, key string) (cfdi.AuthorityStatus, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cfdi.AuthorityStatus{}, false, nil
	}
	if err != nil {
		return cfdi.AuthorityStatus{}, false, fmt.Errorf("cache: redis get: %w", err)
	}

	var st cfdi.AuthorityStatus
	if err := json.Unmarshal(data, &st); err != nil {
		_ = c.client.Del(ctx, redisKeyPrefix+key).Err()
		return cfdi.AuthorityStatus{}, false, fmt.Errorf("cache: entrada corrupta %q: %w", key, err)
	}
	return st, true, nil
}

// Set guarda el veredicto con el TTL configurado.
func (c *RedisStatusCache) Set(ctx context.Context, key string, status cfdi.AuthorityStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("cache: serializar estado: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Clear borra las claves del prefijo con SCAN (no KEYS, para no bloquear Redis).
func (c *RedisStatusCache) Clear(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, redisKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return int(deleted), fmt.Errorf("cache: redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return int(deleted), fmt.Errorf("cache: redis del: %w", err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return int(deleted), nil
}

// Close cierra el cliente si esta caché lo creó.
func (c *RedisStatusCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}
