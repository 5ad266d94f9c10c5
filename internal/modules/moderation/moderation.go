package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rudyprotect/internal/modules/audit"
	"rudyprotect/internal/storage"

	"go.uber.org/zap"
)

type Action string

const (
	ActionBan  Action = "ban"
	ActionKick Action = "kick"
	ActionMute Action = "mute"
)

const (
	DefaultReason = "Aucune raison spécifiée"

	MaxDeleteDays  = 7
	MinMuteMinutes = 1
	MaxMuteMinutes = 40320
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

var (
	ErrSelfTarget      = errors.New("cannot target yourself")
	ErrOwnerTarget     = errors.New("cannot target the server owner")
	ErrNotMember       = errors.New("user is not a member of the server")
	ErrHierarchy       = errors.New("target role is not below the actor's highest role")
	ErrInvalidDuration = errors.New("mute duration out of range")

	// ErrUnknownTarget is returned by gateways when the guild, user or member does not exist.
	ErrUnknownTarget = errors.New("unknown guild or member")
)

// Target describes the actor and target positions needed for the safety checks.
type Target struct {
	ActorID           string
	TargetID          string
	OwnerID           string
	ActorTopPosition  int
	TargetTopPosition int
	TargetIsMember    bool
}

// CheckTarget applies the self, owner, membership and hierarchy rules. The
// guild owner bypasses the hierarchy rule. Non-members skip it too when
// requireMember is false.
func CheckTarget(t Target, requireMember bool) error {
	if t.TargetID == t.ActorID {
		return ErrSelfTarget
	}
	if t.TargetID == t.OwnerID {
		return ErrOwnerTarget
	}
	if !t.TargetIsMember {
		if requireMember {
			return ErrNotMember
		}
		return nil
	}
	if t.ActorID != t.OwnerID && t.TargetTopPosition >= t.ActorTopPosition {
		return ErrHierarchy
	}
	return nil
}

func ClampDeleteDays(days int) int {
	return max(0, min(days, MaxDeleteDays))
}

func ValidateMuteMinutes(minutes int) error {
	if minutes < MinMuteMinutes || minutes > MaxMuteMinutes {
		return fmt.Errorf("%w: %d minutes (allowed %d-%d)", ErrInvalidDuration, minutes, MinMuteMinutes, MaxMuteMinutes)
	}
	return nil
}

// DurationText renders a mute length in its largest whole unit.
func DurationText(minutes int) string {
	switch {
	case minutes < minutesPerHour:
		return fmt.Sprintf("%d minute(s)", minutes)
	case minutes < minutesPerDay:
		return fmt.Sprintf("%d hour(s)", minutes/minutesPerHour)
	default:
		return fmt.Sprintf("%d day(s)", minutes/minutesPerDay)
	}
}

func normalizeReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return DefaultReason
	}
	return reason
}

// Notice is what the sanctioned member is told by DM.
type Notice struct {
	Action       Action
	GuildName    string
	Reason       string
	DurationText string
	ExpiresAt    time.Time
}

type Gateway interface {
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	NotifySanction(ctx context.Context, userID string, notice Notice) error
}

type MuteStore interface {
	UpsertMute(ctx context.Context, mute storage.Mute) error
}

type Recorder interface {
	Log(ctx context.Context, level, guildID, userID, event, details string)
}

type Request struct {
	GuildID         string
	GuildName       string
	ActorID         string
	ActorTag        string
	TargetID        string
	Reason          string
	DeleteDays      int
	DurationMinutes int
}

type Outcome struct {
	Action       Action
	Reason       string
	DeleteDays   int
	DurationText string
	ExpiresAt    time.Time
	Notified     bool
}

// Service carries out sanctions once the caller has checked the target.
type Service struct {
	gateway  Gateway
	mutes    MuteStore
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(gateway Gateway, mutes MuteStore, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{gateway: gateway, mutes: mutes, recorder: recorder, logger: logger.Named("moderation"), now: time.Now}
}

func (s *Service) Ban(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{Action: ActionBan, Reason: normalizeReason(req.Reason), DeleteDays: ClampDeleteDays(req.DeleteDays)}
	// Banned users share no guild with the bot afterwards, so notify first.
	out.Notified = s.notify(ctx, req.TargetID, Notice{Action: ActionBan, GuildName: req.GuildName, Reason: out.Reason})

	if err := s.gateway.Ban(ctx, req.GuildID, req.TargetID, auditReason(out.Reason, req), out.DeleteDays); err != nil {
		return Outcome{}, fmt.Errorf("ban %s: %w", req.TargetID, err)
	}
	s.record(ctx, audit.LevelWarn, req, "member_ban", fmt.Sprintf("reason=%s delete_days=%d", out.Reason, out.DeleteDays))
	return out, nil
}

func (s *Service) Kick(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{Action: ActionKick, Reason: normalizeReason(req.Reason)}
	out.Notified = s.notify(ctx, req.TargetID, Notice{Action: ActionKick, GuildName: req.GuildName, Reason: out.Reason})

	if err := s.gateway.Kick(ctx, req.GuildID, req.TargetID, auditReason(out.Reason, req)); err != nil {
		return Outcome{}, fmt.Errorf("kick %s: %w", req.TargetID, err)
	}
	s.record(ctx, audit.LevelWarn, req, "member_kick", "reason="+out.Reason)
	return out, nil
}

func (s *Service) Mute(ctx context.Context, req Request) (Outcome, error) {
	if err := ValidateMuteMinutes(req.DurationMinutes); err != nil {
		return Outcome{}, err
	}
	now := s.now()
	out := Outcome{
		Action:       ActionMute,
		Reason:       normalizeReason(req.Reason),
		DurationText: DurationText(req.DurationMinutes),
		ExpiresAt:    now.Add(time.Duration(req.DurationMinutes) * time.Minute),
	}

	if err := s.gateway.Timeout(ctx, req.GuildID, req.TargetID, out.ExpiresAt, auditReason(out.Reason, req)); err != nil {
		return Outcome{}, fmt.Errorf("timeout %s: %w", req.TargetID, err)
	}
	if s.mutes != nil {
		if err := s.mutes.UpsertMute(ctx, storage.Mute{
			GuildID:   req.GuildID,
			UserID:    req.TargetID,
			Reason:    out.Reason,
			MutedBy:   req.ActorID,
			ExpiresAt: out.ExpiresAt,
			CreatedAt: now,
		}); err != nil {
			return out, fmt.Errorf("store mute: %w", err)
		}
	}
	out.Notified = s.notify(ctx, req.TargetID, Notice{
		Action:       ActionMute,
		GuildName:    req.GuildName,
		Reason:       out.Reason,
		DurationText: out.DurationText,
		ExpiresAt:    out.ExpiresAt,
	})
	s.record(ctx, audit.LevelWarn, req, "member_mute", fmt.Sprintf("reason=%s duration=%dm", out.Reason, req.DurationMinutes))
	return out, nil
}

func (s *Service) notify(ctx context.Context, userID string, notice Notice) bool {
	if err := s.gateway.NotifySanction(ctx, userID, notice); err != nil {
		s.logger.Debug("sanction dm failed", zap.String("user_id", userID), zap.String("action", string(notice.Action)), zap.Error(err))
		return false
	}
	return true
}

func (s *Service) record(ctx context.Context, level string, req Request, event, details string) {
	s.logger.Info(event, zap.String("guild_id", req.GuildID), zap.String("actor_id", req.ActorID), zap.String("target_id", req.TargetID))
	if s.recorder != nil {
		s.recorder.Log(ctx, level, req.GuildID, req.TargetID, event, details+" by="+req.ActorID)
	}
}

func auditReason(reason string, req Request) string {
	if req.ActorTag == "" {
		return reason
	}
	return reason + " - " + req.ActorTag
}
