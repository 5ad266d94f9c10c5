package main

import (
	"rudyprotect/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read()
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

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("migrations applied", zap.String("dialect", string(store.Dialect())))
		return nil
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Sync slash command definitions with Discord and exit",
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
		if err := svc.bot.Open(); err != nil {
			return err
		}
		defer svc.bot.Close()
		return svc.bot.SyncCommands()
	},
}
