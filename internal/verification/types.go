package verification

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ControlPrefix starts the custom id of every confirmation button.
const ControlPrefix = "verify_"

// HighVerificationLevel is Discord's "high" guild verification level.
const HighVerificationLevel = 3

type State int

const (
	StateCreated State = iota
	StatePromptPosted
)

func (s State) String() string {
	if s == StatePromptPosted {
		return "prompt_posted"
	}
	return "created"
}

// Config is the per-guild captcha configuration, read-only here.
type Config struct {
	Enabled        bool
	ChannelID      string
	RoleID         string
	TimeoutMinutes int
}

type MessageRef struct {
	ChannelID string
	MessageID string
}

// Record is one pending verification attempt.
type Record struct {
	ID             string
	MemberID       string
	GuildID        string
	GuildName      string
	RoleID         string
	TimeoutMinutes int
	Prompt         *MessageRef
	CreatedAt      time.Time
}

func (r Record) State() State {
	if r.Prompt != nil {
		return StatePromptPosted
	}
	return StateCreated
}

// ExpiresAt is the zero time for records that never expire.
func (r Record) ExpiresAt() time.Time {
	if r.TimeoutMinutes <= 0 {
		return time.Time{}
	}
	return r.CreatedAt.Add(time.Duration(r.TimeoutMinutes) * time.Minute)
}

type JoinEvent struct {
	GuildID           string
	GuildName         string
	MemberID          string
	VerificationLevel int
}

type LeaveEvent struct {
	GuildID  string
	MemberID string
}

type Channel struct {
	ID       string
	Name     string
	Text     bool
	Postable bool
}

// Prompt is what the messaging gateway renders into the channel.
type Prompt struct {
	VerificationID string
	ControlID      string
	MemberID       string
	GuildName      string
	TimeoutMinutes int
	GraceMinutes   int
}

type NoticeKind int

const (
	NoticeExpired NoticeKind = iota
	NoticeVerified
)

type Notice struct {
	Kind      NoticeKind
	GuildID   string
	GuildName string
}

type Presence int

const (
	PresenceUnknown Presence = iota
	PresenceYes
	PresenceNo
)

type LeaveStatus int

const (
	// LeftVerified: no pending attempt and nothing says the member failed.
	LeftVerified LeaveStatus = iota
	// LeftUnverified: the member is known to lack the verification role.
	LeftUnverified
	// LeftAbandoned: the member left while an attempt was pending.
	LeftAbandoned
	// LeftExpired: the member was just kicked by an expired attempt.
	LeftExpired
	// LeftUnknown: the captcha configuration could not be read.
	LeftUnknown
)

func (s LeaveStatus) String() string {
	switch s {
	case LeftVerified:
		return "verified"
	case LeftUnverified:
		return "unverified"
	case LeftAbandoned:
		return "abandoned"
	case LeftExpired:
		return "expired"
	default:
		return "unknown"
	}
}

type LeaveOutcome struct {
	Status LeaveStatus
	Record *Record
}

// ShouldPurge reports whether the leaver's messages may be deleted. Messages
// of members that never verified are kept.
func (o LeaveOutcome) ShouldPurge() bool {
	return o.Status == LeftVerified
}

type MembershipGateway interface {
	Kick(ctx context.Context, guildID, memberID, reason string) error
	GrantRole(ctx context.Context, guildID, memberID, roleID, reason string) error
}

type MembershipProbe interface {
	HasRole(ctx context.Context, guildID, memberID, roleID string) Presence
}

type MessagingGateway interface {
	Channels(ctx context.Context, guildID string) ([]Channel, error)
	SendPrompt(ctx context.Context, channelID string, prompt Prompt) (MessageRef, error)
	DeleteMessage(ctx context.Context, ref MessageRef) error
	DirectMessage(ctx context.Context, userID string, notice Notice) error
}

type ConfigStore interface {
	CaptchaConfig(ctx context.Context, guildID string) (Config, error)
}

type ErrorContext struct {
	Source    string
	GuildID   string
	UserID    string
	ChannelID string
}

type ErrorReporter interface {
	Report(ctx context.Context, ec ErrorContext, err error)
}

// Recorder receives one line per lifecycle transition.
type Recorder interface {
	Log(ctx context.Context, level, guildID, userID, event, details string)
}

// ControlID is the custom id carried by the prompt's button.
func ControlID(verificationID string) string {
	return ControlPrefix + verificationID
}

func ParseControlID(customID string) (string, bool) {
	if !strings.HasPrefix(customID, ControlPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(customID, ControlPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// NewID derives a verification id from the member and the creation time.
func NewID(memberID string, at time.Time) string {
	return memberID + "-" + ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}

// EffectiveTimeout adds the grace period on high-security guilds. A zero
// timeout never expires and is never extended.
func EffectiveTimeout(base, verificationLevel, grace int) int {
	if base <= 0 {
		return 0
	}
	if verificationLevel >= HighVerificationLevel {
		return base + grace
	}
	return base
}
