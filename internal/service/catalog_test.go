package service

import (
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCatalog(t *testing.T, cache *redis.Client) CatalogService {
	t.Helper()
	db := newTestDB(t)
	repo := repository.NewCatalogRepository(db)
	require.NoError(t, repo.Seed(context.Background()))
	return NewCatalogService(repo, cache, time.Minute, zaptest.NewLogger(t))
}

func TestCatalogService_ResolveDispatchesByKind(t *testing.T) {
	catalog := newTestCatalog(t, nil)
	ctx := context.Background()

	build, err := catalog.Resolve(ctx, model.ItemTypeBuild, 3)
	require.NoError(t, err)
	assert.Equal(t, "Diffusion Studio", build.Name)
	assert.Equal(t, "2649.50", build.PriceEur.StringFixed(2))
	assert.Contains(t, build.Summary, "64GB RAM")

	gpu, err := catalog.Resolve(ctx, model.ItemTypeGPU, 7)
	require.NoError(t, err)
	assert.Equal(t, model.ItemTypeGPU, gpu.Type)
	assert.Equal(t, "NVIDIA", gpu.Brand)

	compact, err := catalog.Resolve(ctx, model.ItemTypeCompact, 12)
	require.NoError(t, err)
	assert.Equal(t, "259.00", compact.Response().PriceEur)
}

func TestCatalogService_ResolveErrors(t *testing.T) {
	catalog := newTestCatalog(t, nil)
	ctx := context.Background()

	_, err := catalog.Resolve(ctx, "laptop", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = catalog.Resolve(ctx, model.ItemTypeGPU, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = catalog.Resolve(ctx, model.ItemTypeCPU, 7)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = catalog.Resolve(ctx, model.ItemTypeBuild, 99)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestCatalogService_List(t *testing.T) {
	catalog := newTestCatalog(t, nil)
	ctx := context.Background()

	gpus, err := catalog.List(ctx, model.ItemTypeGPU)
	require.NoError(t, err)
	assert.Len(t, gpus, 4)
	for _, item := range gpus {
		assert.Equal(t, model.ItemTypeGPU, item.Type)
	}

	builds, err := catalog.List(ctx, model.ItemTypeBuild)
	require.NoError(t, err)
	assert.Len(t, builds, 3)

	_, err = catalog.List(ctx, "laptop")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCatalogService_UnreachableCacheFallsThrough(t *testing.T) {
	cache := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = cache.Close() })

	catalog := newTestCatalog(t, cache)

	item, err := catalog.Resolve(context.Background(), model.ItemTypeGPU, 7)
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA GeForce RTX 4070 Super 12GB", item.Name)
}
