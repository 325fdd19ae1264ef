package repository

import (
	"context"
	"database/sql"
	"io"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/deposit-service/internal/models"
)

func calculation(owner string, principal float64) *models.Calculation {
	return &models.Calculation{
		Owner: owner,
		Params: models.FDParameters{
			Principal:            principal,
			TenureYears:          1,
			AnnualRatePercent:    6.5,
			CompoundingFrequency: models.Quarterly,
		},
		Result:      models.FDResult{MaturityAmount: principal * 1.0666, TotalInterest: principal * 0.0666},
		Explanation: "explained",
		Signature:   "sig",
	}
}

func TestMemoryRepository_SaveAndList(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i, owner := range []string{"alice", "bob", "alice", "alice"} {
		calc := calculation(owner, float64(1000*(i+1)))
		require.NoError(t, repo.SaveCalculation(ctx, calc))
		assert.Equal(t, int64(i+1), calc.ID)
		assert.False(t, calc.CreatedAt.IsZero())
	}

	got, err := repo.ListCalculations(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 4000.0, got[0].Params.Principal, "newest first")
	assert.Equal(t, 1000.0, got[2].Params.Principal)

	got, err = repo.ListCalculations(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.ListCalculations(ctx, "carol", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "v1", time.Minute))
	require.NoError(t, cache.Set(ctx, "forever", "v2", 0))

	v, ok := cache.Get(ctx, "short")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	now = now.Add(time.Minute)
	_, ok = cache.Get(ctx, "short")
	assert.False(t, ok)

	v, ok = cache.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	_, ok = cache.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cache := NewRedisCache(addr, logger)
	defer cache.Close()
	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	key := "deposit-service:test:" + time.Now().Format(time.RFC3339Nano)
	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, "value", time.Minute))
	v, ok := cache.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestRepository_Postgres(t *testing.T) {
	conn := os.Getenv("TEST_DB_CONN")
	if conn == "" {
		t.Skip("TEST_DB_CONN not set")
	}
	db, err := sql.Open("postgres", conn)
	require.NoError(t, err)
	defer db.Close()

	schema, err := os.ReadFile("../../migrations/0001_calculations.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	repo := NewRepository(db)
	ctx := context.Background()
	owner := "test-" + time.Now().Format(time.RFC3339Nano)

	calc := calculation(owner, 5000)
	require.NoError(t, repo.SaveCalculation(ctx, calc))
	assert.NotZero(t, calc.ID)

	got, err := repo.ListCalculations(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.Quarterly, got[0].Params.CompoundingFrequency)
	assert.Equal(t, calc.Result, got[0].Result)
}
