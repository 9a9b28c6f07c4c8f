package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"homecook-market/market-svc/internal/auth"
	"homecook-market/market-svc/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestEnv(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("IDENTITY_URL", "")
	t.Setenv("KAFKA_BROKER", "")
	return mr
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "seed", "reindex", "token", "consume"} {
		assert.True(t, names[want], want)
	}
}

func TestSeedReindexAndToken(t *testing.T) {
	setupTestEnv(t)

	var seeded map[string]int
	require.NoError(t, json.Unmarshal([]byte(run(t, "seed")), &seeded))
	assert.Equal(t, 4, seeded["accounts"])
	assert.Equal(t, 3, seeded["recipes"])

	var reindexed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(run(t, "reindex")), &reindexed))
	assert.Equal(t, float64(3), reindexed["recipes"])
	assert.Equal(t, float64(0), reindexed["index_entries"])

	token := strings.TrimSpace(run(t, "token", "--user", "demo-cook-um-ali"))
	identity, err := auth.NewJWTVerifier("test-secret").Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "demo-cook-um-ali", identity.ID)
	assert.Equal(t, domain.RoleCook, identity.Role)
	assert.Equal(t, "Um Ali", identity.Name)
}

func TestConsumeRequiresBroker(t *testing.T) {
	setupTestEnv(t)

	rootCmd.SetArgs([]string{"consume"})
	err := rootCmd.Execute()
	assert.EqualError(t, err, "KAFKA_BROKER is required to consume order events")
}
