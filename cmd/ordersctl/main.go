package main

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/config"
	"ai-build-shop/internal/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Version = "dev"

// env is filled by the root command before any subcommand runs.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "ordersctl",
		Short:         "Operate the shop's order store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.cfg, e.log = cfg, log
			return nil
		},
	}

	rootCmd.AddCommand(migrateCmd(e))
	rootCmd.AddCommand(seedCmd(e))
	rootCmd.AddCommand(ordersCmd(e))
	rootCmd.AddCommand(reconcileCmd(e))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (e *env) openDB() (*gorm.DB, func(), error) {
	db, err := client.InitDatabase(&e.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeFn, nil
}
