package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rudyprotect/internal/storage"
	"rudyprotect/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	TypeBug           = "bug"
	TypeSuggestion    = "suggestion"
	TypeLanguageError = "language_error"
	TypeOther         = "other"

	maxDetailsLength = 1000
	maxLinks         = 5
)

var (
	ErrBlacklisted  = errors.New("user is blacklisted")
	ErrUnknownType  = errors.New("unknown report type")
	ErrEmptyDetails = errors.New("report details are empty")
	ErrNoDeveloper  = errors.New("no developer configured")
)

type kind struct {
	label string
	color int
}

var kinds = map[string]kind{
	TypeBug:           {label: "🐛 Bug", color: 0xED4245},
	TypeSuggestion:    {label: "💡 Suggestion", color: 0x57F287},
	TypeLanguageError: {label: "🌍 Language issue", color: 0x5865F2},
	TypeOther:         {label: "📝 Other", color: 0xFEE75C},
}

// Types lists the accepted report types in display order.
func Types() []string {
	return []string{TypeBug, TypeSuggestion, TypeLanguageError, TypeOther}
}

func Label(reportType string) string {
	if k, ok := kinds[reportType]; ok {
		return k.label
	}
	return reportType
}

type Store interface {
	AddReport(ctx context.Context, report storage.Report) (storage.Report, error)
}

type BlacklistChecker interface {
	IsUserBlacklisted(ctx context.Context, userID string) (bool, error)
}

type Messenger interface {
	SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
}

type Submission struct {
	GuildID   string
	GuildName string
	UserID    string
	UserTag   string
	Type      string
	Details   string
}

type Service struct {
	store       Store
	blacklist   BlacklistChecker
	messenger   Messenger
	developerID string
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(store Store, blacklist BlacklistChecker, messenger Messenger, developerID string, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		blacklist:   blacklist,
		messenger:   messenger,
		developerID: developerID,
		logger:      logger.Named("reports"),
		now:         time.Now,
	}
}

// Submit stores the report and forwards it to the developer. A stored report
// whose DM failed is returned together with the delivery error.
func (s *Service) Submit(ctx context.Context, sub Submission) (storage.Report, error) {
	if _, ok := kinds[sub.Type]; !ok {
		return storage.Report{}, fmt.Errorf("%w: %q", ErrUnknownType, sub.Type)
	}
	sub.Details = strings.TrimSpace(sub.Details)
	if sub.Details == "" {
		return storage.Report{}, ErrEmptyDetails
	}
	if s.blacklist != nil {
		listed, err := s.blacklist.IsUserBlacklisted(ctx, sub.UserID)
		if err != nil {
			return storage.Report{}, fmt.Errorf("blacklist lookup: %w", err)
		}
		if listed {
			return storage.Report{}, ErrBlacklisted
		}
	}

	report, err := s.store.AddReport(ctx, storage.Report{
		GuildID:   sub.GuildID,
		UserID:    sub.UserID,
		Type:      sub.Type,
		Details:   sub.Details,
		CreatedAt: s.now(),
	})
	if err != nil {
		return storage.Report{}, fmt.Errorf("store report: %w", err)
	}
	s.logger.Info("report submitted", zap.Int64("report_id", report.ID), zap.String("type", sub.Type), zap.String("user_id", sub.UserID))

	if s.messenger == nil || s.developerID == "" {
		return report, ErrNoDeveloper
	}
	if err := s.messenger.SendDirectEmbed(ctx, s.developerID, s.Embed(report, sub)); err != nil {
		return report, fmt.Errorf("deliver report: %w", err)
	}
	return report, nil
}

func (s *Service) Embed(report storage.Report, sub Submission) *discordgo.MessageEmbed {
	k := kinds[sub.Type]
	server := "DM"
	if sub.GuildID != "" {
		server = fmt.Sprintf("%s\n(%s)", sub.GuildName, sub.GuildID)
	}
	details := sub.Details
	if len(details) > maxDetailsLength {
		details = details[:maxDetailsLength] + "…"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "📌 Report type", Value: k.label, Inline: true},
		{Name: "👤 User", Value: fmt.Sprintf("%s\n(%s)", sub.UserTag, sub.UserID), Inline: true},
		{Name: "🏠 Server", Value: server, Inline: true},
		{Name: "📝 Details", Value: "```" + strings.ReplaceAll(details, "```", "'''") + "```"},
	}
	if links := NormalizedLinks(sub.Details); len(links) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🔗 Links", Value: strings.Join(links, "\n")})
	}

	return &discordgo.MessageEmbed{
		Title:       "📋 New Report",
		Description: fmt.Sprintf("A new report has been submitted by <@%s>", sub.UserID),
		Color:       k.color,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("RudyProtect • #%d", report.ID)},
		Timestamp:   report.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NormalizedLinks returns the distinct links found in text, stripped of
// tracking parameters.
func NormalizedLinks(text string) []string {
	var links []string
	seen := make(map[string]struct{})
	for _, raw := range utils.ExtractURLs(text) {
		normalized, _, err := utils.NormalizeURL(raw)
		if err != nil {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
		if len(links) == maxLinks {
			break
		}
	}
	return links
}
