package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

type fakeSettingRepo struct {
	settings map[string]*models.Setting
	getCalls int
}

func (f *fakeSettingRepo) Get(_ context.Context, key string) (*models.Setting, error) {
	f.getCalls++
	s, ok := f.settings[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeSettingRepo) List(_ context.Context) ([]models.Setting, error) {
	out := make([]models.Setting, 0, len(f.settings))
	for _, s := range f.settings {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSettingRepo) Upsert(_ context.Context, setting *models.Setting) error {
	if f.settings == nil {
		f.settings = map[string]*models.Setting{}
	}
	f.settings[setting.Key] = setting
	return nil
}

type fakeSettingCache struct {
	entries map[string][]byte
	deleted []string
}

func (f *fakeSettingCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeSettingCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if f.entries == nil {
		f.entries = map[string][]byte{}
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeSettingCache) Delete(_ context.Context, key string) error {
	delete(f.entries, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeCacheMetrics struct {
	hits   int
	misses int
}

func (f *fakeCacheMetrics) RecordCacheOperation(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func TestSettingGetPopulatesCache(t *testing.T) {
	repo := &fakeSettingRepo{settings: map[string]*models.Setting{
		"district.name": {Key: "district.name", Value: "Grand Bend ISD"},
	}}
	cache := &fakeSettingCache{entries: map[string][]byte{}}
	metrics := &fakeCacheMetrics{}
	svc := NewSettingService(repo, cache, metrics, time.Minute, nil, nil)

	first, err := svc.Get(context.Background(), "district.name")
	require.NoError(t, err)
	assert.Equal(t, "Grand Bend ISD", first.Value)
	assert.Equal(t, 1, repo.getCalls)
	assert.Equal(t, 1, metrics.misses)

	// Second read is served from cache.
	second, err := svc.Get(context.Background(), "district.name")
	require.NoError(t, err)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, 1, repo.getCalls)
	assert.Equal(t, 1, metrics.hits)
}

func TestSettingUpsertInvalidatesCache(t *testing.T) {
	repo := &fakeSettingRepo{settings: map[string]*models.Setting{}}
	cache := &fakeSettingCache{entries: map[string][]byte{}}
	svc := NewSettingService(repo, cache, nil, time.Minute, nil, nil)

	_, err := svc.Upsert(context.Background(), SettingRequest{Key: "grading.scale", Value: "standard"})
	require.NoError(t, err)

	// Warm the cache, then overwrite and ensure the stale copy is dropped.
	_, err = svc.Get(context.Background(), "grading.scale")
	require.NoError(t, err)
	assert.Contains(t, cache.entries, "settings:grading.scale")

	_, err = svc.Upsert(context.Background(), SettingRequest{Key: "grading.scale", Value: "mastery"})
	require.NoError(t, err)
	assert.NotContains(t, cache.entries, "settings:grading.scale")

	fresh, err := svc.Get(context.Background(), "grading.scale")
	require.NoError(t, err)
	assert.Equal(t, "mastery", fresh.Value)
}

func TestSettingGetUnknownKey(t *testing.T) {
	svc := NewSettingService(&fakeSettingRepo{}, nil, nil, time.Minute, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
