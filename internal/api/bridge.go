package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"rudyprotect/internal/modules/blacklist"
	"rudyprotect/internal/modules/moderation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Moderator is the part of the bot the website may drive.
type Moderator interface {
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	MuteMember(ctx context.Context, guildID, userID string, minutes int, reason string) (time.Time, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	GuildCount() int
	Uptime() time.Duration
}

type BlacklistChecker interface {
	Check(ctx context.Context, userID, mac string) (blacklist.CheckResult, error)
}

type kickRequest struct {
	GuildID string `json:"guild_id" validate:"required,numeric"`
	UserID  string `json:"user_id" validate:"required,numeric,min=17,max=20"`
	Reason  string `json:"reason" validate:"max=512"`
}

type banRequest struct {
	GuildID           string `json:"guild_id" validate:"required,numeric"`
	UserID            string `json:"user_id" validate:"required,numeric,min=17,max=20"`
	Reason            string `json:"reason" validate:"max=512"`
	DeleteMessageDays int    `json:"delete_message_days" validate:"min=0,max=7"`
}

type muteRequest struct {
	GuildID         string `json:"guild_id" validate:"required,numeric"`
	UserID          string `json:"user_id" validate:"required,numeric,min=17,max=20"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=40320"`
	Reason          string `json:"reason" validate:"max=512"`
}

type roleRequest struct {
	GuildID string `json:"guild_id" validate:"required,numeric"`
	UserID  string `json:"user_id" validate:"required,numeric,min=17,max=20"`
	RoleID  string `json:"role_id" validate:"required,numeric"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Guilds        int    `json:"guilds"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type muteResponse struct {
	Success   bool      `json:"success"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Bridge is the bearer-protected API the website backend calls.
type Bridge struct {
	moderator Moderator
	blacklist BlacklistChecker
	secret    string
	logger    *zap.Logger
}

func NewBridge(moderator Moderator, checker BlacklistChecker, secret string, logger *zap.Logger) *Bridge {
	return &Bridge{moderator: moderator, blacklist: checker, secret: secret, logger: logger.Named("bridge")}
}

func (b *Bridge) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(b.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", b.health)
		r.Post("/health", b.health)

		r.Group(func(r chi.Router) {
			r.Use(b.requireSecret)
			r.Post("/kick-user", b.kick)
			r.Post("/ban-user", b.ban)
			r.Post("/mute-user", b.mute)
			r.Post("/add-role", b.addRole)
			r.Post("/remove-role", b.removeRole)
			r.Get("/blacklist/check", b.checkBlacklist)
		})
	})
	return r
}

// HealthRoutes serves a bare /health probe for container orchestration.
func HealthRoutes(moderator Moderator) http.Handler {
	r := chi.NewRouter()
	b := &Bridge{moderator: moderator}
	r.Get("/health", b.health)
	return r
}

func (b *Bridge) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || b.secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(b.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Bridge) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Guilds:        b.moderator.GuildCount(),
		UptimeSeconds: int64(b.moderator.Uptime().Seconds()),
	})
}

func (b *Bridge) kick(w http.ResponseWriter, r *http.Request) {
	var req kickRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := b.moderator.KickMember(r.Context(), req.GuildID, req.UserID, req.Reason); err != nil {
		b.fail(w, "kick-user", err)
		return
	}
	writeJSON(w, http.StatusOK, messageEnvelope{Success: true, Message: "member kicked"})
}

func (b *Bridge) ban(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := b.moderator.BanMember(r.Context(), req.GuildID, req.UserID, req.Reason, req.DeleteMessageDays); err != nil {
		b.fail(w, "ban-user", err)
		return
	}
	writeJSON(w, http.StatusOK, messageEnvelope{Success: true, Message: "member banned"})
}

func (b *Bridge) mute(w http.ResponseWriter, r *http.Request) {
	var req muteRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expires, err := b.moderator.MuteMember(r.Context(), req.GuildID, req.UserID, req.DurationMinutes, req.Reason)
	if err != nil {
		b.fail(w, "mute-user", err)
		return
	}
	writeJSON(w, http.StatusOK, muteResponse{Success: true, ExpiresAt: expires})
}

func (b *Bridge) addRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := b.moderator.AddRole(r.Context(), req.GuildID, req.UserID, req.RoleID); err != nil {
		b.fail(w, "add-role", err)
		return
	}
	writeJSON(w, http.StatusOK, messageEnvelope{Success: true, Message: "role added"})
}

func (b *Bridge) removeRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := b.moderator.RemoveRole(r.Context(), req.GuildID, req.UserID, req.RoleID); err != nil {
		b.fail(w, "remove-role", err)
		return
	}
	writeJSON(w, http.StatusOK, messageEnvelope{Success: true, Message: "role removed"})
}

func (b *Bridge) checkBlacklist(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	mac := r.URL.Query().Get("mac")
	if userID == "" && mac == "" {
		writeError(w, http.StatusBadRequest, "user_id or mac is required")
		return
	}
	result, err := b.blacklist.Check(r.Context(), userID, mac)
	if err != nil {
		b.fail(w, "blacklist-check", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (b *Bridge) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		b.logger.Error("bridge call failed", zap.String("op", op), zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, moderation.ErrUnknownTarget):
		return http.StatusNotFound
	case errors.Is(err, moderation.ErrInvalidDuration),
		errors.Is(err, blacklist.ErrInvalidUserID),
		errors.Is(err, blacklist.ErrInvalidMAC):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
