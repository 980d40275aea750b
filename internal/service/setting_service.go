package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

type settingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

type settingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// SettingRequest upserts one setting.
type SettingRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

const settingCacheKeyPrefix = "settings:"

// SettingService reads and writes district settings with a Redis read-through
// cache. Writes invalidate the cached entry.
type SettingService struct {
	repo      settingRepository
	cache     settingCache
	metrics   cacheMetrics
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingService constructs the setting service.
func NewSettingService(repo settingRepository, cache settingCache, metrics cacheMetrics, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SettingService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingService{repo: repo, cache: cache, metrics: metrics, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Get returns one setting, consulting the cache first.
func (s *SettingService) Get(ctx context.Context, key string) (*models.Setting, error) {
	cacheKey := settingCacheKeyPrefix + key
	if s.cache != nil {
		var cached models.Setting
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.recordCache(true)
			return &cached, nil
		}
		s.recordCache(false)
	}

	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "setting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load setting")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, setting, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache setting", zap.String("key", key), zap.Error(err))
		}
	}
	return setting, nil
}

// List returns all settings straight from the database.
func (s *SettingService) List(ctx context.Context) ([]models.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	return settings, nil
}

// Upsert writes a setting and drops its cached copy.
func (s *SettingService) Upsert(ctx context.Context, req SettingRequest) (*models.Setting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid setting payload")
	}
	setting := &models.Setting{Key: req.Key, Value: req.Value}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save setting")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, settingCacheKeyPrefix+req.Key); err != nil {
			s.logger.Warn("failed to invalidate setting cache", zap.String("key", req.Key), zap.Error(err))
		}
	}
	return setting, nil
}

func (s *SettingService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}
