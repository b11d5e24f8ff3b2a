package pass

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	passmetrics "passbook/internal/passes/metrics"
	"passbook/internal/passes/models"
	"passbook/pkg/platform/circuit"
)

// Store is the contract CachedStore decorates.
type Store interface {
	Create(ctx context.Context, p *models.Pass) error
	FindByIdentity(ctx context.Context, passType, serial string) (*models.Pass, error)
	FindByType(ctx context.Context, passType string) ([]*models.Pass, error)
	Touch(ctx context.Context, p *models.Pass) error
}

const (
	cacheKeyPrefix = "passbook:pass:"

	// fillTimeout bounds a backing-store read shared by joined callers.
	fillTimeout = 10 * time.Second
)

// setIfNewer writes a cache entry unless the stored one carries a newer
// version. Entries are hashes of {version, payload}; version is the pass's
// UpdatedAt in Unix microseconds.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'payload', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// CachedStore is a read-through Redis cache in front of another Store.
// Only FindByIdentity is cached. Touch writes the new version through, and a
// fill never replaces a newer entry, so a read racing an update cannot put
// the old payload back. Every writer of passes must go through a CachedStore
// on the same Redis. Redis failures degrade to the backing store, and
// repeated failures open a breaker that skips Redis reads until its cooldown
// elapses.
type CachedStore struct {
	next    Store
	client  redis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	metrics *passmetrics.Metrics
	breaker *circuit.Breaker
	group   singleflight.Group
}

type CacheOption func(*CachedStore)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedStore) { c.logger = logger }
}

func WithCacheMetrics(m *passmetrics.Metrics) CacheOption {
	return func(c *CachedStore) { c.metrics = m }
}

func WithCacheBreaker(b *circuit.Breaker) CacheOption {
	return func(c *CachedStore) {
		if b != nil {
			c.breaker = b
		}
	}
}

func NewCached(next Store, client redis.Cmdable, ttl time.Duration, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		next:    next,
		client:  client,
		ttl:     ttl,
		breaker: circuit.New("pass-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cachedPass is the Redis representation; Data stays raw JSON.
type cachedPass struct {
	ID                 int64           `json:"id"`
	PassTypeIdentifier string          `json:"pass_type_identifier"`
	SerialNumber       string          `json:"serial_number"`
	Data               json.RawMessage `json:"data"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func cacheKey(passType, serial string) string {
	return cacheKeyPrefix + passType + ":" + serial
}

func (c *CachedStore) Create(ctx context.Context, p *models.Pass) error {
	return c.next.Create(ctx, p)
}

func (c *CachedStore) FindByType(ctx context.Context, passType string) ([]*models.Pass, error) {
	return c.next.FindByType(ctx, passType)
}

func (c *CachedStore) FindByIdentity(ctx context.Context, passType, serial string) (*models.Pass, error) {
	key := cacheKey(passType, serial)
	if !c.breaker.Allow() {
		c.metrics.ObserveCache("bypass")
		return c.next.FindByIdentity(ctx, passType, serial)
	}

	raw, err := c.client.HGet(ctx, key, "payload").Bytes()
	c.record(ctx, err)
	switch {
	case err == nil:
		var cp cachedPass
		if jsonErr := json.Unmarshal(raw, &cp); jsonErr == nil {
			c.metrics.ObserveCache("hit")
			return fromCached(cp), nil
		}
		c.warn(ctx, "discarding corrupt pass cache entry", key, nil)
	case errors.Is(err, redis.Nil):
	default:
		c.metrics.ObserveCache("error")
		c.warn(ctx, "pass cache read failed", key, err)
		return c.next.FindByIdentity(ctx, passType, serial)
	}
	c.metrics.ObserveCache("miss")

	// The fill is shared by every caller joined on key, so it must not die
	// with the first caller's context.
	fillCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(fillCtx, fillTimeout)
		defer cancel()
		p, err := c.next.FindByIdentity(ctx, passType, serial)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, p)
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Pass).Clone(), nil
	}
}

func (c *CachedStore) Touch(ctx context.Context, p *models.Pass) error {
	if err := c.next.Touch(ctx, p); err != nil {
		return err
	}
	key := cacheKey(p.PassTypeIdentifier, p.SerialNumber)
	if c.store(ctx, key, p) {
		return nil
	}
	// The new version could not be written; drop the old one instead.
	err := c.client.Del(ctx, key).Err()
	c.record(ctx, err)
	if err != nil {
		c.warn(ctx, "pass cache invalidation failed", key, err)
	}
	return nil
}

// store writes p unless the cache already holds a newer version. It reports
// false only when Redis could not be written.
func (c *CachedStore) store(ctx context.Context, key string, p *models.Pass) bool {
	payload, err := json.Marshal(toCached(p))
	if err != nil {
		c.warn(ctx, "pass cache encode failed", key, err)
		return false
	}
	err = setIfNewer.Run(ctx, c.client, []string{key},
		p.UpdatedAt.UnixMicro(), payload, c.ttl.Milliseconds()).Err()
	c.record(ctx, err)
	if err != nil {
		c.warn(ctx, "pass cache write failed", key, err)
		return false
	}
	return true
}

// record feeds a Redis result into the breaker. redis.Nil is a healthy miss.
func (c *CachedStore) record(ctx context.Context, err error) {
	var change circuit.StateChange
	if err == nil || errors.Is(err, redis.Nil) {
		change = c.breaker.RecordSuccess()
	} else {
		change = c.breaker.RecordFailure()
	}
	if c.logger == nil {
		return
	}
	switch {
	case change.Opened:
		c.logger.WarnContext(ctx, "pass cache circuit opened", "breaker", c.breaker.Name())
	case change.Closed:
		c.logger.InfoContext(ctx, "pass cache circuit closed", "breaker", c.breaker.Name())
	}
}

func (c *CachedStore) warn(ctx context.Context, msg, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, msg, "key", key, "error", err)
}

func toCached(p *models.Pass) cachedPass {
	return cachedPass{
		ID:                 p.ID,
		PassTypeIdentifier: p.PassTypeIdentifier,
		SerialNumber:       p.SerialNumber,
		Data:               p.Data,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func fromCached(cp cachedPass) *models.Pass {
	return &models.Pass{
		ID:                 cp.ID,
		PassTypeIdentifier: cp.PassTypeIdentifier,
		SerialNumber:       cp.SerialNumber,
		Data:               cp.Data,
		CreatedAt:          cp.CreatedAt.UTC(),
		UpdatedAt:          cp.UpdatedAt.UTC(),
	}
}
