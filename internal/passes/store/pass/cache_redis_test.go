package pass

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	passmetrics "passbook/internal/passes/metrics"
	"passbook/internal/passes/models"
	"passbook/internal/sentinel"
	"passbook/pkg/platform/circuit"
	tu "passbook/pkg/testutil"
)

// unreachableRedis points at a port nothing listens on, so every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedStore_DegradesWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	p, err := models.NewPass(tu.PassType, tu.Serial, []byte(tu.PassPayload), tu.FixedTime)
	require.NoError(t, err)
	require.NoError(t, backing.Create(ctx, p))

	m := passmetrics.New(prometheus.NewRegistry())
	cached := NewCached(backing, unreachableRedis(t), time.Minute, WithCacheMetrics(m))

	got, err := cached.FindByIdentity(ctx, tu.PassType, tu.Serial)
	require.NoError(t, err)
	assert.JSONEq(t, tu.PassPayload, string(got.Data))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("error")))

	_, err = cached.FindByIdentity(ctx, tu.PassType, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	changed, err := got.ReplaceData([]byte(`{"foo":1}`), tu.FixedTime.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, cached.Touch(ctx, got), "invalidation failures must not fail Touch")
}

func TestCachedStore_BreakerSkipsRedisWhileOpen(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	p, err := models.NewPass(tu.PassType, tu.Serial, []byte(tu.PassPayload), tu.FixedTime)
	require.NoError(t, err)
	require.NoError(t, backing.Create(ctx, p))

	m := passmetrics.New(prometheus.NewRegistry())
	breaker := circuit.New("pass-cache", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	cached := NewCached(backing, unreachableRedis(t), time.Minute,
		WithCacheMetrics(m), WithCacheBreaker(breaker))

	for range 4 {
		got, err := cached.FindByIdentity(ctx, tu.PassType, tu.Serial)
		require.NoError(t, err)
		assert.Equal(t, tu.Serial, got.SerialNumber)
	}

	assert.Equal(t, circuit.StateOpen, breaker.State())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("bypass")))
}

func newMiniRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func createPass(t *testing.T, store Store) *models.Pass {
	t.Helper()
	p, err := models.NewPass(tu.PassType, tu.Serial, []byte(tu.PassPayload), tu.FixedTime)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

func TestCachedStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	createPass(t, backing)

	m := passmetrics.New(prometheus.NewRegistry())
	cached := NewCached(backing, newMiniRedis(t), time.Minute, WithCacheMetrics(m))

	for range 2 {
		got, err := cached.FindByIdentity(ctx, tu.PassType, tu.Serial)
		require.NoError(t, err)
		assert.JSONEq(t, tu.PassPayload, string(got.Data))
		assert.Equal(t, tu.FixedTime, got.UpdatedAt)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
}

func TestCachedStore_TouchWritesNewVersion(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	createPass(t, backing)

	m := passmetrics.New(prometheus.NewRegistry())
	cached := NewCached(backing, newMiniRedis(t), time.Minute, WithCacheMetrics(m))

	p, err := cached.FindByIdentity(ctx, tu.PassType, tu.Serial)
	require.NoError(t, err)
	changed, err := p.ReplaceData([]byte(`{"foo":58}`), tu.FixedTime.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, cached.Touch(ctx, p))

	got, err := cached.FindByIdentity(ctx, tu.PassType, tu.Serial)
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":58}`, string(got.Data))
	assert.Equal(t, tu.FixedTime.Add(time.Minute), got.UpdatedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
}

func TestCachedStore_StaleFillKeepsNewerEntry(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	old := createPass(t, backing)
	cached := NewCached(backing, newMiniRedis(t), time.Minute)

	// A reader loaded old from the database, then an update landed before
	// the reader wrote its fill.
	updated := old.Clone()
	_, err := updated.ReplaceData([]byte(`{"foo":58}`), tu.FixedTime.Add(time.Second))
	require.NoError(t, err)
	require.NoError(t, cached.Touch(ctx, updated))

	require.True(t, cached.store(ctx, cacheKey(tu.PassType, tu.Serial), old))

	got, err := cached.FindByIdentity(ctx, tu.PassType, tu.Serial)
	require.NoError(t, err)
	assert.JSONEq(t, `{"foo":58}`, string(got.Data))
}

// gatedStore blocks FindByIdentity until release is closed.
type gatedStore struct {
	*InMemory
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedStore) FindByIdentity(ctx context.Context, passType, serial string) (*models.Pass, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.InMemory.FindByIdentity(ctx, passType, serial)
}

func TestCachedStore_CancelledCallerDoesNotFailOthers(t *testing.T) {
	ctx := context.Background()
	backing := &gatedStore{InMemory: NewInMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	createPass(t, backing)
	cached := NewCached(backing, newMiniRedis(t), time.Minute)

	firstCtx, cancelFirst := context.WithCancel(ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := cached.FindByIdentity(firstCtx, tu.PassType, tu.Serial)
		firstErr <- err
	}()
	<-backing.entered

	type result struct {
		p   *models.Pass
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := cached.FindByIdentity(ctx, tu.PassType, tu.Serial)
		second <- result{p, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(backing.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, tu.Serial, res.p.SerialNumber)

	// The shared fill completed and populated the cache.
	got, err := cached.FindByIdentity(ctx, tu.PassType, tu.Serial)
	require.NoError(t, err)
	assert.JSONEq(t, tu.PassPayload, string(got.Data))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "passbook:pass:com.company.pass.example:ABC123", cacheKey(tu.PassType, tu.Serial))
}

func TestCachedRoundTrip(t *testing.T) {
	p, err := models.NewPass(tu.PassType, tu.Serial, []byte(tu.PassPayload), tu.FixedTime)
	require.NoError(t, err)
	p.ID = 7

	got := fromCached(toCached(p))
	assert.Equal(t, p, got)
}
