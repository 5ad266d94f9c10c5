package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rudyprotect/internal/analytics"
	"rudyprotect/internal/api"
	"rudyprotect/internal/bot"
	"rudyprotect/internal/cache"
	"rudyprotect/internal/config"
	"rudyprotect/internal/modules/audit"
	"rudyprotect/internal/storage"

	"github.com/redis/rueidis"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and its HTTP surfaces until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := buildLogger(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func openStore(cfg config.Config) (*storage.Store, error) {
	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return store, nil
}

type services struct {
	bot       *bot.Bot
	captcha   *cache.CaptchaConfigs
	audit     *audit.Logger
	analytics *analytics.Service
	close     func()
}

type surface struct {
	name    string
	addr    string
	handler http.Handler
}

// newServices assembles the bot and the services it shares with the HTTP surfaces.
func newServices(cfg config.Config, logger *zap.Logger, store *storage.Store) (*services, error) {
	var client rueidis.Client
	closeCache := func() {}
	if cfg.Redis.Enabled {
		c, err := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			logger.Warn("redis unavailable, captcha configs read from the database", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			client = c
			closeCache = c.Close
		}
	}
	svc := &services{
		captcha: cache.NewCaptchaConfigs(store, client, time.Duration(cfg.Redis.TTLSeconds)*time.Second,
			storage.CaptchaConfig{TimeoutMinutes: cfg.Captcha.DefaultTimeoutMinutes}, logger),
		audit:     audit.NewLogger(store, logger),
		analytics: analytics.New(store),
		close:     closeCache,
	}

	botSvc, err := bot.New(cfg, logger, store, svc.captcha, svc.audit, svc.analytics)
	if err != nil {
		closeCache()
		return nil, fmt.Errorf("bot init: %w", err)
	}
	svc.bot = botSvc
	return svc, nil
}

func surfaces(cfg config.Config, logger *zap.Logger, store *storage.Store, svc *services) ([]surface, error) {
	var out []surface
	if cfg.Health.Enabled {
		out = append(out, surface{"health", cfg.Health.Addr, api.HealthRoutes(svc.bot)})
	}
	if cfg.API.Enabled {
		bridge := api.NewBridge(svc.bot, svc.bot.Blacklist(), cfg.API.SecretToken, logger)
		out = append(out, surface{"bridge", cfg.API.Addr, bridge.Routes()})
	}
	if cfg.Dashboard.Enabled {
		tokens, err := api.NewTokenIssuer(cfg.Dashboard.JWTSecret, time.Duration(cfg.Dashboard.JWTExpirySeconds)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("dashboard: %w", err)
		}
		dashboard := api.NewDashboard(api.DashboardDeps{
			Captcha:   svc.captcha,
			Blacklist: svc.bot.Blacklist(),
			Reports:   store,
			Stats:     svc.analytics,
			Identity:  api.NewDiscordOAuth(cfg.Dashboard.ClientID, cfg.Dashboard.ClientSecret, cfg.Dashboard.RedirectURL),
			Tokens:    tokens,
			Recorder:  svc.audit,
		}, api.DashboardOptions{
			AllowedOrigins:    cfg.Dashboard.AllowedOrigins,
			RequestsPerSecond: cfg.Dashboard.RequestsPerSecond,
			RequestBurst:      cfg.Dashboard.RequestBurst,
			AuthAttempts:      cfg.Dashboard.AuthAttempts,
			AuthWindow:        time.Duration(cfg.Dashboard.AuthWindowSeconds) * time.Second,
			SecureCookies:     strings.HasPrefix(cfg.Dashboard.RedirectURL, "https://"),
		}, logger)
		out = append(out, surface{"dashboard", cfg.Dashboard.Addr, dashboard.Routes()})
	}
	return out, nil
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newServices(cfg, logger, store)
	if err != nil {
		return err
	}
	defer svc.close()

	servers, err := surfaces(cfg, logger, store, svc)
	if err != nil {
		return err
	}

	if err := svc.bot.Start(); err != nil {
		return fmt.Errorf("bot start: %w", err)
	}
	defer svc.bot.Close()
	logger.Info("bot started")

	var wg conc.WaitGroup
	for _, s := range servers {
		named := logger.Named(s.name)
		wg.Go(func() {
			if err := api.Serve(ctx, s.addr, s.handler, named); err != nil {
				named.Error("http server failed", zap.Error(err))
			}
		})
	}

	<-ctx.Done()
	logger.Info("shutdown requested")
	wg.Wait()
	return nil
}
