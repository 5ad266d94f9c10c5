package purge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	PageSize     = 100
	BulkMaxAge   = 14 * 24 * time.Hour
	bulkMaxBatch = 100
	// Bulk deletion rejects messages right at the age limit, so keep a margin.
	bulkAgeMargin = time.Minute
)

type Message struct {
	ID        string
	AuthorID  string
	CreatedAt time.Time
}

// History is the slice of the chat API the purger needs.
type History interface {
	// PurgeableChannels lists text channels where the bot can view, read
	// history and manage messages.
	PurgeableChannels(ctx context.Context, guildID string) ([]string, error)
	// Messages returns up to limit messages older than before, newest first.
	Messages(ctx context.Context, channelID, before string, limit int) ([]Message, error)
	BulkDelete(ctx context.Context, channelID string, messageIDs []string) error
	DeleteChannelMessage(ctx context.Context, channelID, messageID string) error
}

type Config struct {
	RequestsPerSecond float64
	Concurrency       int
	// MaxPages bounds how far back each channel is scanned. Zero scans the whole history.
	MaxPages int
}

type Result struct {
	Deleted  int
	Scanned  int
	Channels int
	Failed   int
}

// Purger removes a departed member's messages from every channel it can manage.
type Purger struct {
	history     History
	limiter     *rate.Limiter
	concurrency int
	maxPages    int
	logger      *zap.Logger
	now         func() time.Time
}

func New(history History, cfg Config, logger *zap.Logger) *Purger {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Purger{
		history:     history,
		limiter:     rate.NewLimiter(limit, cfg.Concurrency),
		concurrency: cfg.Concurrency,
		maxPages:    cfg.MaxPages,
		logger:      logger.Named("purge"),
		now:         time.Now,
	}
}

func (p *Purger) PurgeMember(ctx context.Context, guildID, userID string) (Result, error) {
	channels, err := p.history.PurgeableChannels(ctx, guildID)
	if err != nil {
		return Result{}, fmt.Errorf("list channels: %w", err)
	}

	var (
		mu     sync.Mutex
		result = Result{Channels: len(channels)}
		wp     = pool.New().WithContext(ctx).WithMaxGoroutines(p.concurrency)
	)
	for _, channelID := range channels {
		wp.Go(func(ctx context.Context) error {
			deleted, scanned, err := p.purgeChannel(ctx, channelID, userID)

			mu.Lock()
			result.Deleted += deleted
			result.Scanned += scanned
			if err != nil {
				result.Failed++
			}
			mu.Unlock()

			if err != nil {
				p.logger.Warn("channel purge failed",
					zap.String("guild_id", guildID),
					zap.String("channel_id", channelID),
					zap.Error(err))
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
			}
			return nil
		})
	}
	err = wp.Wait()

	p.logger.Info("member messages purged",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.Int("deleted", result.Deleted),
		zap.Int("scanned", result.Scanned),
		zap.Int("channels", result.Channels))
	return result, err
}

func (p *Purger) purgeChannel(ctx context.Context, channelID, userID string) (int, int, error) {
	var (
		before  string
		deleted int
		scanned int
	)
	for page := 0; p.maxPages == 0 || page < p.maxPages; page++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return deleted, scanned, err
		}
		messages, err := p.history.Messages(ctx, channelID, before, PageSize)
		if err != nil {
			return deleted, scanned, fmt.Errorf("fetch messages: %w", err)
		}
		if len(messages) == 0 {
			break
		}
		scanned += len(messages)

		var recent, old []string
		cutoff := p.now().Add(-BulkMaxAge + bulkAgeMargin)
		for _, msg := range messages {
			if msg.AuthorID != userID {
				continue
			}
			if msg.CreatedAt.After(cutoff) {
				recent = append(recent, msg.ID)
			} else {
				old = append(old, msg.ID)
			}
		}

		n, err := p.deleteRecent(ctx, channelID, recent)
		deleted += n
		if err != nil {
			return deleted, scanned, err
		}
		n, err = p.deleteEach(ctx, channelID, old)
		deleted += n
		if err != nil {
			return deleted, scanned, err
		}

		if len(messages) < PageSize {
			break
		}
		before = messages[len(messages)-1].ID
	}
	return deleted, scanned, nil
}

func (p *Purger) deleteRecent(ctx context.Context, channelID string, ids []string) (int, error) {
	deleted := 0
	for start := 0; start < len(ids); start += bulkMaxBatch {
		batch := ids[start:min(start+bulkMaxBatch, len(ids))]
		if len(batch) == 1 {
			n, err := p.deleteEach(ctx, channelID, batch)
			deleted += n
			if err != nil {
				return deleted, err
			}
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return deleted, err
		}
		if err := p.history.BulkDelete(ctx, channelID, batch); err != nil {
			p.logger.Debug("bulk delete failed, deleting one by one", zap.String("channel_id", channelID), zap.Error(err))
			n, err := p.deleteEach(ctx, channelID, batch)
			deleted += n
			if err != nil {
				return deleted, err
			}
			continue
		}
		deleted += len(batch)
	}
	return deleted, nil
}

// deleteEach skips messages that fail individually; only context errors stop it.
func (p *Purger) deleteEach(ctx context.Context, channelID string, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if err := p.limiter.Wait(ctx); err != nil {
			return deleted, err
		}
		if err := p.history.DeleteChannelMessage(ctx, channelID, id); err != nil {
			p.logger.Debug("message delete failed", zap.String("channel_id", channelID), zap.String("message_id", id), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}
