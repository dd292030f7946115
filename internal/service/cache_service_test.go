package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type memoryCacheRepo struct {
	items  map[string][]byte
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

func newTestCache(repo *memoryCacheRepo) *CacheService {
	return NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := newTestCache(repo)
	ctx := context.Background()

	var out []string
	hit, err := cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "k", []string{"a"}, 0))
	hit, err = cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, out)

	require.NoError(t, cache.Delete(ctx, "k"))
	hit, _ = cache.Get(ctx, "k", &out)
	assert.False(t, hit)
}

func TestCacheServiceInvalidatePattern(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := newTestCache(repo)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, cacheKeyStudentReport+"s1", 1, 0))
	require.NoError(t, cache.Set(ctx, cacheKeyTeacherSessions+"t1", 2, 0))
	require.NoError(t, cache.Invalidate(ctx, cacheKeyStudentReport+"*"))

	assert.NotContains(t, repo.items, cacheKeyStudentReport+"s1")
	assert.Contains(t, repo.items, cacheKeyTeacherSessions+"t1")
}

func TestCacheServiceDisabledAndErrors(t *testing.T) {
	ctx := context.Background()
	var nilCache *CacheService
	hit, err := nilCache.Get(ctx, "k", nil)
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, nilCache.Set(ctx, "k", 1, 0))
	assert.NoError(t, nilCache.Invalidate(ctx, "*"))

	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	hit, err = newTestCache(repo).Get(ctx, "k", new(int))
	assert.False(t, hit)
	assert.Error(t, err)
}
