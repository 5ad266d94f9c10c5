package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rudyprotect/internal/modules/audit"
	"rudyprotect/internal/schedule"

	"go.uber.org/zap"
)

const (
	KickReason = "Timeout de vérification captcha"
	RoleReason = "Vérification captcha réussie"

	expiryTimeout = 30 * time.Second
)

type Options struct {
	GraceMinutes  int
	ExpiredMemory time.Duration
	Clock         schedule.Clock
	Recorder      Recorder
}

// Coordinator drives one verification attempt per joining member from the
// prompt to verification, expiry, or departure.
type Coordinator struct {
	members   MembershipGateway
	probe     MembershipProbe
	messages  MessagingGateway
	configs   ConfigStore
	reporter  ErrorReporter
	recorder  Recorder
	logger    *zap.Logger
	registry  *Registry
	scheduler *schedule.Scheduler
	clock     schedule.Clock
	grace     int
}

func NewCoordinator(members MembershipGateway, probe MembershipProbe, messages MessagingGateway, configs ConfigStore, reporter ErrorReporter, logger *zap.Logger, opts Options) *Coordinator {
	if opts.ExpiredMemory <= 0 {
		opts.ExpiredMemory = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler := schedule.New(opts.Clock)
	return &Coordinator{
		members:   members,
		probe:     probe,
		messages:  messages,
		configs:   configs,
		reporter:  reporter,
		recorder:  opts.Recorder,
		logger:    logger,
		registry:  NewRegistry(opts.ExpiredMemory),
		scheduler: scheduler,
		clock:     scheduler.Clock(),
		grace:     opts.GraceMinutes,
	}
}

func (c *Coordinator) Registry() *Registry {
	return c.registry
}

func (c *Coordinator) PendingTimers() int {
	return c.scheduler.Pending()
}

// OnMemberJoin returns a nil record without error when captcha is disabled
// for the guild or the member left before the prompt was attached.
func (c *Coordinator) OnMemberJoin(ctx context.Context, ev JoinEvent) (*Record, error) {
	cfg, err := c.configs.CaptchaConfig(ctx, ev.GuildID)
	if err != nil {
		err = fmt.Errorf("load captcha config: %w", err)
		c.report(ctx, "member_join", ev.GuildID, ev.MemberID, "", err)
		return nil, err
	}
	if !cfg.Enabled {
		return nil, nil
	}

	channels, err := c.messages.Channels(ctx, ev.GuildID)
	if err != nil {
		c.report(ctx, "member_join", ev.GuildID, ev.MemberID, "", gatewayError("list channels", err))
	}
	channelID, ok := ResolveChannel(cfg.ChannelID, channels)
	if !ok {
		err := fmt.Errorf("%w: guild %s", ErrChannelUnavailable, ev.GuildID)
		c.report(ctx, "member_join", ev.GuildID, ev.MemberID, "", err)
		return nil, err
	}

	now := c.clock.Now()
	timeout := EffectiveTimeout(cfg.TimeoutMinutes, ev.VerificationLevel, c.grace)
	rec := Record{
		ID:             NewID(ev.MemberID, now),
		MemberID:       ev.MemberID,
		GuildID:        ev.GuildID,
		GuildName:      ev.GuildName,
		RoleID:         cfg.RoleID,
		TimeoutMinutes: timeout,
		CreatedAt:      now,
	}

	if prev, replaced := c.registry.Insert(rec); replaced {
		c.scheduler.Cancel(prev.ID)
		c.deletePrompt(ctx, "member_join", prev)
		c.logger.Info("verification replaced", zap.String("guild_id", ev.GuildID), zap.String("user_id", ev.MemberID), zap.String("previous_id", prev.ID))
	}

	grace := 0
	if timeout > cfg.TimeoutMinutes {
		grace = timeout - cfg.TimeoutMinutes
	}
	ref, err := c.messages.SendPrompt(ctx, channelID, Prompt{
		VerificationID: rec.ID,
		ControlID:      ControlID(rec.ID),
		MemberID:       ev.MemberID,
		GuildName:      ev.GuildName,
		TimeoutMinutes: timeout,
		GraceMinutes:   grace,
	})
	if err != nil {
		c.registry.Take(rec.ID)
		err = gatewayError("send prompt", err)
		c.report(ctx, "member_join", ev.GuildID, ev.MemberID, channelID, err)
		return nil, err
	}

	if !c.registry.AttachPrompt(rec.ID, ref) {
		// Resolved by a leave while the prompt was in flight.
		c.deletePrompt(ctx, "member_join", Record{GuildID: ev.GuildID, MemberID: ev.MemberID, Prompt: &ref})
		c.logger.Info("verification resolved before prompt attached", zap.String("guild_id", ev.GuildID), zap.String("user_id", ev.MemberID))
		return nil, nil
	}
	rec.Prompt = &ref

	if timeout > 0 {
		id, memberID := rec.ID, rec.MemberID
		c.scheduler.Schedule(id, time.Duration(timeout)*time.Minute, func() {
			c.expire(id, memberID)
		})
	}

	c.record(ctx, audit.LevelInfo, rec.GuildID, rec.MemberID, audit.EventCaptchaCreated, fmt.Sprintf("timeout=%dm channel=%s", timeout, channelID))
	c.logger.Info("verification created",
		zap.String("guild_id", rec.GuildID),
		zap.String("user_id", rec.MemberID),
		zap.String("verification_id", rec.ID),
		zap.Int("timeout_minutes", timeout),
	)
	return &rec, nil
}

// OnVerifyConfirm resolves the attempt for the member who pressed the button.
// ErrNotFound and ErrWrongUser leave every record untouched.
func (c *Coordinator) OnVerifyConfirm(ctx context.Context, verificationID, actingUserID string) (Record, error) {
	rec, err := c.registry.TakeFor(verificationID, actingUserID)
	if err != nil {
		return Record{}, err
	}
	c.scheduler.Cancel(rec.ID)

	if rec.RoleID != "" {
		if err := c.members.GrantRole(ctx, rec.GuildID, rec.MemberID, rec.RoleID, RoleReason); err != nil {
			c.report(ctx, "verify_confirm", rec.GuildID, rec.MemberID, "", gatewayError("grant role", err))
		}
	}
	c.deletePrompt(ctx, "verify_confirm", rec)

	if err := c.messages.DirectMessage(ctx, rec.MemberID, Notice{Kind: NoticeVerified, GuildID: rec.GuildID, GuildName: rec.GuildName}); err != nil {
		c.logger.Debug("welcome dm failed", zap.String("user_id", rec.MemberID), zap.Error(err))
	}

	c.record(ctx, audit.LevelInfo, rec.GuildID, rec.MemberID, audit.EventCaptchaVerified, "")
	c.logger.Info("verification completed", zap.String("guild_id", rec.GuildID), zap.String("user_id", rec.MemberID), zap.String("verification_id", rec.ID))
	return rec, nil
}

func (c *Coordinator) expire(id, memberID string) {
	rec, err := c.registry.TakeFor(id, memberID)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), expiryTimeout)
	defer cancel()

	c.registry.MarkExpired(rec.GuildID, rec.MemberID, c.clock.Now())

	if err := c.messages.DirectMessage(ctx, rec.MemberID, Notice{Kind: NoticeExpired, GuildID: rec.GuildID, GuildName: rec.GuildName}); err != nil {
		c.logger.Debug("expiry dm failed", zap.String("user_id", rec.MemberID), zap.Error(err))
	}
	if err := c.members.Kick(ctx, rec.GuildID, rec.MemberID, KickReason); err != nil {
		c.report(ctx, "verify_expire", rec.GuildID, rec.MemberID, "", gatewayError("kick", err))
	}
	c.deletePrompt(ctx, "verify_expire", rec)

	c.record(ctx, audit.LevelWarn, rec.GuildID, rec.MemberID, audit.EventCaptchaExpired, fmt.Sprintf("timeout=%dm", rec.TimeoutMinutes))
	c.logger.Info("verification expired", zap.String("guild_id", rec.GuildID), zap.String("user_id", rec.MemberID), zap.String("verification_id", rec.ID))
}

// OnMemberLeave classifies a departure. Only LeftVerified allows the caller
// to purge the member's messages.
func (c *Coordinator) OnMemberLeave(ctx context.Context, ev LeaveEvent) LeaveOutcome {
	if rec, ok := c.registry.TakeByMember(ev.GuildID, ev.MemberID); ok {
		c.scheduler.Cancel(rec.ID)
		c.deletePrompt(ctx, "member_leave", rec)
		c.record(ctx, audit.LevelInfo, rec.GuildID, rec.MemberID, audit.EventCaptchaAbandoned, "")
		c.logger.Info("verification abandoned", zap.String("guild_id", rec.GuildID), zap.String("user_id", rec.MemberID), zap.String("verification_id", rec.ID))
		return LeaveOutcome{Status: LeftAbandoned, Record: &rec}
	}

	if c.registry.ConsumeExpired(ev.GuildID, ev.MemberID, c.clock.Now()) {
		return LeaveOutcome{Status: LeftExpired}
	}

	cfg, err := c.configs.CaptchaConfig(ctx, ev.GuildID)
	if err != nil {
		c.report(ctx, "member_leave", ev.GuildID, ev.MemberID, "", fmt.Errorf("load captcha config: %w", err))
		return LeaveOutcome{Status: LeftUnknown}
	}
	if !cfg.Enabled || cfg.RoleID == "" {
		return LeaveOutcome{Status: LeftVerified}
	}

	// Unknown counts as verified so a failed lookup never marks a member.
	if c.probe.HasRole(ctx, ev.GuildID, ev.MemberID, cfg.RoleID) == PresenceNo {
		return LeaveOutcome{Status: LeftUnverified}
	}
	return LeaveOutcome{Status: LeftVerified}
}

// Close stops every pending expiry. Pending records are dropped with the process.
func (c *Coordinator) Close() {
	c.scheduler.Stop()
}

func (c *Coordinator) deletePrompt(ctx context.Context, source string, rec Record) {
	if rec.Prompt == nil {
		return
	}
	if err := c.messages.DeleteMessage(ctx, *rec.Prompt); err != nil {
		c.report(ctx, source, rec.GuildID, rec.MemberID, rec.Prompt.ChannelID, gatewayError("delete prompt", err))
	}
}

func (c *Coordinator) report(ctx context.Context, source, guildID, userID, channelID string, err error) {
	if c.reporter != nil {
		c.reporter.Report(ctx, ErrorContext{Source: source, GuildID: guildID, UserID: userID, ChannelID: channelID}, err)
		return
	}
	level := zap.ErrorLevel
	if errors.Is(err, ErrChannelUnavailable) {
		level = zap.WarnLevel
	}
	c.logger.Check(level, "verification step failed").Write(
		zap.String("source", source),
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.Error(err),
	)
}

func (c *Coordinator) record(ctx context.Context, level, guildID, userID, event, details string) {
	if c.recorder != nil {
		c.recorder.Log(ctx, level, guildID, userID, event, details)
	}
}
