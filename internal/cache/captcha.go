package cache

import (
	"context"
	"encoding/json"
	"time"

	"rudyprotect/internal/storage"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	captchaKeyPrefix = "rudyprotect:captcha:"

	// redisTimeout bounds every cache round trip so an unreachable Redis
	// falls through to the store.
	redisTimeout = 500 * time.Millisecond
)

type CaptchaStore interface {
	GetCaptchaConfig(ctx context.Context, guildID string, defaults storage.CaptchaConfig) (storage.CaptchaConfig, error)
	UpsertCaptchaConfig(ctx context.Context, cfg storage.CaptchaConfig) error
}

// CaptchaConfigs reads captcha settings through Redis when a client is
// configured and straight from the store otherwise. Redis failures fall back
// to the store.
type CaptchaConfigs struct {
	store    CaptchaStore
	client   rueidis.Client
	ttl      time.Duration
	timeout  time.Duration
	defaults storage.CaptchaConfig
	logger   *zap.Logger
}

type cachedConfig struct {
	Enabled        bool   `json:"enabled"`
	ChannelID      string `json:"channel_id"`
	RoleID         string `json:"role_id"`
	TimeoutMinutes int    `json:"timeout_minutes"`
	UpdatedAt      int64  `json:"updated_at"`
}

func NewClient(addr, password string) (rueidis.Client, error) {
	return rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{addr},
		Password:         password,
		DisableCache:     true,
		DisableRetry:     true,
		ConnWriteTimeout: 2 * time.Second,
	})
}

func NewCaptchaConfigs(store CaptchaStore, client rueidis.Client, ttl time.Duration, defaults storage.CaptchaConfig, logger *zap.Logger) *CaptchaConfigs {
	return &CaptchaConfigs{
		store:    store,
		client:   client,
		ttl:      ttl,
		timeout:  redisTimeout,
		defaults: defaults,
		logger:   logger.Named("captcha_cache"),
	}
}

func captchaKey(guildID string) string {
	return captchaKeyPrefix + guildID
}

func (c *CaptchaConfigs) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Do(ctx, cmd)
}

func (c *CaptchaConfigs) Get(ctx context.Context, guildID string) (storage.CaptchaConfig, error) {
	if c.client != nil {
		if cfg, ok := c.lookup(ctx, guildID); ok {
			return cfg, nil
		}
	}

	cfg, err := c.store.GetCaptchaConfig(ctx, guildID, c.defaults)
	if err != nil {
		return storage.CaptchaConfig{}, err
	}
	if c.client != nil {
		c.fill(ctx, cfg)
	}
	return cfg, nil
}

// Save writes through to the store and drops the cached copy.
func (c *CaptchaConfigs) Save(ctx context.Context, cfg storage.CaptchaConfig) error {
	if err := c.store.UpsertCaptchaConfig(ctx, cfg); err != nil {
		return err
	}
	c.Invalidate(ctx, cfg.GuildID)
	return nil
}

func (c *CaptchaConfigs) Invalidate(ctx context.Context, guildID string) {
	if c.client == nil {
		return
	}
	if err := c.do(ctx, c.client.B().Del().Key(captchaKey(guildID)).Build()).Error(); err != nil {
		c.logger.Warn("captcha cache invalidate failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (c *CaptchaConfigs) lookup(ctx context.Context, guildID string) (storage.CaptchaConfig, bool) {
	raw, err := c.do(ctx, c.client.B().Get().Key(captchaKey(guildID)).Build()).ToString()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("captcha cache read failed", zap.String("guild_id", guildID), zap.Error(err))
		}
		return storage.CaptchaConfig{}, false
	}

	var cached cachedConfig
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		c.logger.Warn("invalid cached captcha config", zap.String("guild_id", guildID), zap.Error(err))
		return storage.CaptchaConfig{}, false
	}
	return storage.CaptchaConfig{
		GuildID:        guildID,
		Enabled:        cached.Enabled,
		ChannelID:      cached.ChannelID,
		RoleID:         cached.RoleID,
		TimeoutMinutes: cached.TimeoutMinutes,
		UpdatedAt:      time.Unix(cached.UpdatedAt, 0),
	}, true
}

func (c *CaptchaConfigs) fill(ctx context.Context, cfg storage.CaptchaConfig) {
	payload, err := json.Marshal(cachedConfig{
		Enabled:        cfg.Enabled,
		ChannelID:      cfg.ChannelID,
		RoleID:         cfg.RoleID,
		TimeoutMinutes: cfg.TimeoutMinutes,
		UpdatedAt:      cfg.UpdatedAt.Unix(),
	})
	if err != nil {
		return
	}
	cmd := c.client.B().Set().Key(captchaKey(cfg.GuildID)).Value(string(payload)).Ex(c.ttl).Build()
	if err := c.do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("captcha cache write failed", zap.String("guild_id", cfg.GuildID), zap.Error(err))
	}
}
