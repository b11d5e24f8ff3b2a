//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passbook/internal/platform/config"
	"passbook/pkg/testutil/containers"
)

func TestClient_HealthAndPoolStats(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	client, err := New(ctx, config.RedisConfig{
		URL:          rc.URL,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, NewPoolMetrics(reg))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Health(ctx))
	require.NoError(t, client.Set(ctx, "k", "v", time.Minute).Err())

	client.RecordPoolStats()
	client.RecordPoolStats()

	assert.GreaterOrEqual(t, testutil.ToFloat64(client.metrics.totalConns), 1.0)
}
