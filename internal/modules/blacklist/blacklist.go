package blacklist

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"rudyprotect/internal/modules/audit"
	"rudyprotect/internal/storage"

	"go.uber.org/zap"
)

const (
	DefaultReason = "Aucune raison spécifiée"
	DefaultLimit  = 25
	MaxLimit      = 100
)

var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrInvalidMAC    = errors.New("invalid mac address")

	userIDPattern = regexp.MustCompile(`^\d{17,19}$`)
	macPattern    = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)
)

type Store interface {
	AddBlacklist(ctx context.Context, entry storage.BlacklistEntry) (storage.BlacklistEntry, error)
	RemoveBlacklist(ctx context.Context, kind storage.BlacklistKind, value string) (storage.BlacklistEntry, error)
	UpdateBlacklistReason(ctx context.Context, kind storage.BlacklistKind, value, reason string) (storage.BlacklistEntry, error)
	GetBlacklist(ctx context.Context, kind storage.BlacklistKind, value string) (storage.BlacklistEntry, error)
	IsBlacklisted(ctx context.Context, kind storage.BlacklistKind, value string) (bool, error)
	ListBlacklist(ctx context.Context, kind storage.BlacklistKind, guildID string, limit int) ([]storage.BlacklistEntry, error)
}

type Recorder interface {
	Log(ctx context.Context, level, guildID, userID, event, details string)
}

func ValidateUserID(id string) error {
	if !userIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return nil
}

// NormalizeMAC returns the address upper-cased with colon separators.
func NormalizeMAC(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !macPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, raw)
	}
	return strings.ToUpper(strings.ReplaceAll(raw, "-", ":")), nil
}

// Normalize validates a value for the given list and returns its stored form.
func Normalize(kind storage.BlacklistKind, raw string) (string, error) {
	if kind == storage.BlacklistMAC {
		return NormalizeMAC(raw)
	}
	raw = strings.TrimSpace(raw)
	if err := ValidateUserID(raw); err != nil {
		return "", err
	}
	return raw, nil
}

type Service struct {
	store    Store
	recorder Recorder
	logger   *zap.Logger
}

func NewService(store Store, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{store: store, recorder: recorder, logger: logger.Named("blacklist")}
}

func (s *Service) Add(ctx context.Context, kind storage.BlacklistKind, raw, guildID, reason, actorID string) (storage.BlacklistEntry, error) {
	value, err := Normalize(kind, raw)
	if err != nil {
		return storage.BlacklistEntry{}, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultReason
	}
	entry, err := s.store.AddBlacklist(ctx, storage.BlacklistEntry{
		Kind:    kind,
		Value:   value,
		GuildID: guildID,
		Reason:  reason,
		AddedBy: actorID,
	})
	if err != nil {
		return storage.BlacklistEntry{}, err
	}
	s.record(ctx, guildID, actorID, "blacklist_add", kind, value, reason)
	return entry, nil
}

func (s *Service) Remove(ctx context.Context, kind storage.BlacklistKind, raw, guildID, actorID string) (storage.BlacklistEntry, error) {
	value, err := Normalize(kind, raw)
	if err != nil {
		return storage.BlacklistEntry{}, err
	}
	entry, err := s.store.RemoveBlacklist(ctx, kind, value)
	if err != nil {
		return storage.BlacklistEntry{}, err
	}
	s.record(ctx, guildID, actorID, "blacklist_remove", kind, value, entry.Reason)
	return entry, nil
}

func (s *Service) UpdateReason(ctx context.Context, kind storage.BlacklistKind, raw, guildID, reason, actorID string) (storage.BlacklistEntry, error) {
	value, err := Normalize(kind, raw)
	if err != nil {
		return storage.BlacklistEntry{}, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultReason
	}
	entry, err := s.store.UpdateBlacklistReason(ctx, kind, value, reason)
	if err != nil {
		return storage.BlacklistEntry{}, err
	}
	s.record(ctx, guildID, actorID, "blacklist_update", kind, value, reason)
	return entry, nil
}

func (s *Service) Get(ctx context.Context, kind storage.BlacklistKind, raw string) (storage.BlacklistEntry, error) {
	value, err := Normalize(kind, raw)
	if err != nil {
		return storage.BlacklistEntry{}, err
	}
	return s.store.GetBlacklist(ctx, kind, value)
}

func (s *Service) List(ctx context.Context, kind storage.BlacklistKind, guildID string, limit int) ([]storage.BlacklistEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	return s.store.ListBlacklist(ctx, kind, guildID, limit)
}

func (s *Service) IsUserBlacklisted(ctx context.Context, userID string) (bool, error) {
	if ValidateUserID(userID) != nil {
		return false, nil
	}
	return s.store.IsBlacklisted(ctx, storage.BlacklistUser, userID)
}

type CheckResult struct {
	UserBlacklisted bool `json:"user_blacklisted"`
	MACBlacklisted  bool `json:"mac_blacklisted"`
}

// Check looks up whichever of userID and mac is non-empty.
func (s *Service) Check(ctx context.Context, userID, mac string) (CheckResult, error) {
	var result CheckResult
	if userID != "" {
		if err := ValidateUserID(userID); err != nil {
			return result, err
		}
		listed, err := s.store.IsBlacklisted(ctx, storage.BlacklistUser, userID)
		if err != nil {
			return result, err
		}
		result.UserBlacklisted = listed
	}
	if mac != "" {
		value, err := NormalizeMAC(mac)
		if err != nil {
			return result, err
		}
		listed, err := s.store.IsBlacklisted(ctx, storage.BlacklistMAC, value)
		if err != nil {
			return result, err
		}
		result.MACBlacklisted = listed
	}
	return result, nil
}

func (s *Service) record(ctx context.Context, guildID, actorID, event string, kind storage.BlacklistKind, value, reason string) {
	s.logger.Info(event, zap.String("guild_id", guildID), zap.String("actor_id", actorID), zap.String("kind", string(kind)), zap.String("value", value))
	if s.recorder != nil {
		s.recorder.Log(ctx, audit.LevelInfo, guildID, actorID, event, fmt.Sprintf("%s=%s reason=%s", kind, value, reason))
	}
}
