package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rudyprotect/internal/analytics"
	"rudyprotect/internal/modules/audit"
	"rudyprotect/internal/modules/blacklist"
	"rudyprotect/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	stateCookie       = "rudy_oauth_state"
	stateTTL          = 10 * time.Minute
	defaultReportRows = 25
	maxReportRows     = 100
)

type CaptchaSettings interface {
	Get(ctx context.Context, guildID string) (storage.CaptchaConfig, error)
	Save(ctx context.Context, cfg storage.CaptchaConfig) error
}

type BlacklistManager interface {
	Add(ctx context.Context, kind storage.BlacklistKind, raw, guildID, reason, actorID string) (storage.BlacklistEntry, error)
	Remove(ctx context.Context, kind storage.BlacklistKind, raw, guildID, actorID string) (storage.BlacklistEntry, error)
	List(ctx context.Context, kind storage.BlacklistKind, guildID string, limit int) ([]storage.BlacklistEntry, error)
}

type ReportLister interface {
	ListReports(ctx context.Context, guildID string, limit int) ([]storage.Report, error)
}

type StatsSource interface {
	Verification(ctx context.Context, guildID string, days int) (analytics.Report, error)
}

type Recorder interface {
	Log(ctx context.Context, level, guildID, userID, event, details string)
}

type DashboardDeps struct {
	Captcha   CaptchaSettings
	Blacklist BlacklistManager
	Reports   ReportLister
	Stats     StatsSource
	Identity  IdentityProvider
	Tokens    *TokenIssuer
	Recorder  Recorder
}

type DashboardOptions struct {
	AllowedOrigins    []string
	RequestsPerSecond float64
	RequestBurst      int
	AuthAttempts      int
	AuthWindow        time.Duration
	SecureCookies     bool
}

// Dashboard is the JSON API behind the web dashboard. Sessions come from the
// Discord OAuth flow and only cover guilds the user can manage.
type Dashboard struct {
	deps     DashboardDeps
	opts     DashboardOptions
	limiter  *RateLimiter
	attempts *AttemptLimiter
	logger   *zap.Logger
}

func NewDashboard(deps DashboardDeps, opts DashboardOptions, logger *zap.Logger) *Dashboard {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.RequestBurst <= 0 {
		opts.RequestBurst = 20
	}
	if opts.AuthAttempts <= 0 {
		opts.AuthAttempts = 20
	}
	if opts.AuthWindow <= 0 {
		opts.AuthWindow = time.Hour
	}
	return &Dashboard{
		deps:     deps,
		opts:     opts,
		limiter:  NewRateLimiter(rate.Limit(opts.RequestsPerSecond), opts.RequestBurst),
		attempts: NewAttemptLimiter(opts.AuthWindow, opts.AuthAttempts),
		logger:   logger.Named("dashboard"),
	}
}

func (d *Dashboard) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.logger))
	r.Use(middleware.Recoverer)
	r.Use(d.limiter.Limit)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.attempts.Limit)
			r.Get("/auth/login", d.login)
			r.Get("/auth/callback", d.callback)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(d.deps.Tokens))
			r.Get("/me", d.me)

			r.Route("/guilds/{guildID}", func(r chi.Router) {
				r.Use(requireGuild)
				r.Get("/captcha", d.getCaptcha)
				r.Put("/captcha", d.putCaptcha)
				r.Get("/blacklist", d.listBlacklist)
				r.Post("/blacklist", d.addBlacklist)
				r.Delete("/blacklist/{value}", d.removeBlacklist)
				r.Get("/reports", d.listReports)
				r.Get("/stats", d.stats)
			})
		})
	})
	return r
}

func requireGuild(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.CanManage(chi.URLParam(r, "guildID")) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (d *Dashboard) login(w http.ResponseWriter, r *http.Request) {
	state := ulid.Make().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/v1/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   d.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, d.deps.Identity.AuthCodeURL(state), http.StatusFound)
}

type sessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      sessionUser `json:"user"`
	Guilds    []string    `json:"guilds"`
}

func (d *Dashboard) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	cookie, err := r.Cookie(stateCookie)
	if err != nil || query.Get("state") == "" || cookie.Value != query.Get("state") {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	code := query.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/v1/auth", MaxAge: -1})

	user, guilds, err := d.deps.Identity.Exchange(r.Context(), code)
	if err != nil {
		d.logger.Warn("discord oauth exchange failed", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "discord authentication failed")
		return
	}
	managed := managedGuildIDs(guilds)
	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	token, expires, err := d.deps.Tokens.Sign(user.ID, name, managed)
	if err != nil {
		d.logger.Error("sign session token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	d.logger.Info("dashboard login", zap.String("user_id", user.ID), zap.Int("guilds", len(managed)))
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      sessionUser{ID: user.ID, Username: name},
		Guilds:    managed,
	})
}

func (d *Dashboard) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, struct {
		User   sessionUser `json:"user"`
		Guilds []string    `json:"guilds"`
	}{sessionUser{ID: claims.UserID, Username: claims.Username}, claims.Guilds})
}

type captchaView struct {
	GuildID        string    `json:"guild_id"`
	Enabled        bool      `json:"enabled"`
	ChannelID      string    `json:"channel_id"`
	RoleID         string    `json:"role_id"`
	TimeoutMinutes int       `json:"timeout_minutes"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

func newCaptchaView(cfg storage.CaptchaConfig) captchaView {
	return captchaView{
		GuildID:        cfg.GuildID,
		Enabled:        cfg.Enabled,
		ChannelID:      cfg.ChannelID,
		RoleID:         cfg.RoleID,
		TimeoutMinutes: cfg.TimeoutMinutes,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

// captchaPatch only changes the fields present in the body. Empty strings
// clear the channel or role.
type captchaPatch struct {
	Enabled        *bool   `json:"enabled"`
	ChannelID      *string `json:"channel_id" validate:"omitempty,numeric"`
	RoleID         *string `json:"role_id" validate:"omitempty,numeric"`
	TimeoutMinutes *int    `json:"timeout_minutes" validate:"omitempty,min=0,max=1440"`
}

func (d *Dashboard) getCaptcha(w http.ResponseWriter, r *http.Request) {
	cfg, err := d.deps.Captcha.Get(r.Context(), chi.URLParam(r, "guildID"))
	if err != nil {
		d.internal(w, "load captcha config", err)
		return
	}
	writeJSON(w, http.StatusOK, newCaptchaView(cfg))
}

func (d *Dashboard) putCaptcha(w http.ResponseWriter, r *http.Request) {
	var patch captchaPatch
	if err := decodeValid(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	guildID := chi.URLParam(r, "guildID")
	cfg, err := d.deps.Captcha.Get(r.Context(), guildID)
	if err != nil {
		d.internal(w, "load captcha config", err)
		return
	}
	if patch.Enabled != nil {
		cfg.Enabled = *patch.Enabled
	}
	if patch.ChannelID != nil {
		cfg.ChannelID = *patch.ChannelID
	}
	if patch.RoleID != nil {
		cfg.RoleID = *patch.RoleID
	}
	if patch.TimeoutMinutes != nil {
		cfg.TimeoutMinutes = *patch.TimeoutMinutes
	}
	cfg.GuildID = guildID
	if err := d.deps.Captcha.Save(r.Context(), cfg); err != nil {
		d.internal(w, "save captcha config", err)
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	d.record(r.Context(), guildID, claims.UserID, audit.EventCaptchaConfig,
		fmt.Sprintf("enabled=%t channel=%s role=%s timeout=%dm source=dashboard", cfg.Enabled, cfg.ChannelID, cfg.RoleID, cfg.TimeoutMinutes))
	writeJSON(w, http.StatusOK, newCaptchaView(cfg))
}

type blacklistView struct {
	Kind      string    `json:"kind"`
	Value     string    `json:"value"`
	Reason    string    `json:"reason"`
	AddedBy   string    `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

func newBlacklistView(e storage.BlacklistEntry) blacklistView {
	return blacklistView{Kind: string(e.Kind), Value: e.Value, Reason: e.Reason, AddedBy: e.AddedBy, CreatedAt: e.CreatedAt}
}

type blacklistRequest struct {
	Kind   string `json:"kind" validate:"omitempty,oneof=id ip"`
	Value  string `json:"value" validate:"required,max=32"`
	Reason string `json:"reason" validate:"max=512"`
}

func blacklistKind(raw string) (storage.BlacklistKind, bool) {
	switch raw {
	case "", string(storage.BlacklistUser):
		return storage.BlacklistUser, true
	case string(storage.BlacklistMAC):
		return storage.BlacklistMAC, true
	}
	return "", false
}

func (d *Dashboard) listBlacklist(w http.ResponseWriter, r *http.Request) {
	kind, ok := blacklistKind(r.URL.Query().Get("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be id or ip")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := d.deps.Blacklist.List(r.Context(), kind, chi.URLParam(r, "guildID"), limit)
	if err != nil {
		d.internal(w, "list blacklist", err)
		return
	}
	views := make([]blacklistView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newBlacklistView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (d *Dashboard) addBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, _ := blacklistKind(req.Kind)
	claims, _ := ClaimsFromContext(r.Context())
	entry, err := d.deps.Blacklist.Add(r.Context(), kind, req.Value, chi.URLParam(r, "guildID"), req.Reason, claims.UserID)
	if err != nil {
		d.blacklistFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBlacklistView(entry))
}

func (d *Dashboard) removeBlacklist(w http.ResponseWriter, r *http.Request) {
	kind, ok := blacklistKind(r.URL.Query().Get("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be id or ip")
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	entry, err := d.deps.Blacklist.Remove(r.Context(), kind, chi.URLParam(r, "value"), chi.URLParam(r, "guildID"), claims.UserID)
	if err != nil {
		d.blacklistFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBlacklistView(entry))
}

func (d *Dashboard) blacklistFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blacklist.ErrInvalidUserID), errors.Is(err, blacklist.ErrInvalidMAC):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already blacklisted")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not blacklisted")
	default:
		d.internal(w, "blacklist change", err)
	}
}

type reportView struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Dashboard) listReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultReportRows
	}
	limit = min(limit, maxReportRows)
	reports, err := d.deps.Reports.ListReports(r.Context(), chi.URLParam(r, "guildID"), limit)
	if err != nil {
		d.internal(w, "list reports", err)
		return
	}
	views := make([]reportView, 0, len(reports))
	for _, rep := range reports {
		views = append(views, reportView{ID: rep.ID, UserID: rep.UserID, Type: rep.Type, Details: rep.Details, CreatedAt: rep.CreatedAt})
	}
	writeJSON(w, http.StatusOK, views)
}

type statsView struct {
	analytics.Report
	Resolved    int     `json:"resolved"`
	SuccessRate float64 `json:"success_rate"`
}

func (d *Dashboard) stats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	report, err := d.deps.Stats.Verification(r.Context(), chi.URLParam(r, "guildID"), days)
	if err != nil {
		d.internal(w, "verification stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsView{Report: report, Resolved: report.Resolved(), SuccessRate: report.SuccessRate()})
}

func (d *Dashboard) internal(w http.ResponseWriter, op string, err error) {
	d.logger.Error("dashboard request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (d *Dashboard) record(ctx context.Context, guildID, userID, event, details string) {
	if d.deps.Recorder != nil {
		d.deps.Recorder.Log(ctx, audit.LevelInfo, guildID, userID, event, details)
	}
}
