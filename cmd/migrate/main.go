// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate up|down|status
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/nexura/internal/config"
	"github.com/iliyamo/nexura/internal/database"
	"github.com/iliyamo/nexura/internal/logging"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|status")
		os.Exit(2)
	}
	cfg := config.Load()
	logger, err := logging.New(logging.Options{
		Level: cfg.LogLevel, Pretty: true, Service: "nexura-migrate", Env: cfg.Env, Version: cfg.Version,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(os.Args[1], cfg, logger); err != nil {
		logger.Fatal("migrate failed", zap.String("cmd", os.Args[1]), zap.Error(err))
	}
}

func run(cmd string, cfg config.Config, logger *zap.Logger) error {
	db, err := database.Open(database.OptionsFrom(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := database.NewMigrator(db, database.DialectMySQL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cmd {
	case "up":
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", zap.Int("count", n))
	case "down":
		if err := m.Down(ctx); err != nil {
			return err
		}
		logger.Info("rolled back one migration")
	case "status":
		states, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range states {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%05d  %-8s  %s\n", s.Version, state, s.Source)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}
