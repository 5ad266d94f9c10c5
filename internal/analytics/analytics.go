package analytics

import (
	"context"
	"fmt"
	"time"

	"rudyprotect/internal/modules/audit"
)

const (
	EventCreated   = audit.EventCaptchaCreated
	EventVerified  = audit.EventCaptchaVerified
	EventExpired   = audit.EventCaptchaExpired
	EventAbandoned = audit.EventCaptchaAbandoned

	DefaultDays = 7
	MaxDays     = 90
)

type Store interface {
	CountAuditEvents(ctx context.Context, guildID string, since time.Time) (map[string]int, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type Report struct {
	Days      int            `json:"days"`
	Created   int            `json:"created"`
	Verified  int            `json:"verified"`
	Expired   int            `json:"expired"`
	Abandoned int            `json:"abandoned"`
	Events    map[string]int `json:"events"`
}

// Resolved counts attempts that reached a terminal state.
func (r Report) Resolved() int {
	return r.Verified + r.Expired + r.Abandoned
}

// SuccessRate is the verified share of resolved attempts, in percent.
func (r Report) SuccessRate() float64 {
	resolved := r.Resolved()
	if resolved == 0 {
		return 0
	}
	return float64(r.Verified) * 100 / float64(resolved)
}

func (r Report) Summary() string {
	return fmt.Sprintf("Créées: %d | Vérifiées: %d | Expirées: %d | Abandonnées: %d | Réussite: %.1f%%",
		r.Created, r.Verified, r.Expired, r.Abandoned, r.SuccessRate())
}

// Verification summarizes captcha outcomes for the last days. An empty
// guildID covers every guild.
func (s *Service) Verification(ctx context.Context, guildID string, days int) (Report, error) {
	if days <= 0 {
		days = DefaultDays
	}
	days = min(days, MaxDays)

	counts, err := s.store.CountAuditEvents(ctx, guildID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return Report{}, err
	}
	return Report{
		Days:      days,
		Created:   counts[EventCreated],
		Verified:  counts[EventVerified],
		Expired:   counts[EventExpired],
		Abandoned: counts[EventAbandoned],
		Events:    counts,
	}, nil
}
