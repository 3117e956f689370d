package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/authgate/authgate"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "c", "", "loads the server configurations")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	logger := log{}

	cfg, err := authgate.LoadSettings(configPath)
	if err != nil {
		return err
	}

	if cfg.App.DBURL == "" {
		return authgate.ErrEmptyDBURL
	}

	expiry, err := cfg.TokenExpiry()
	if err != nil {
		return err
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.App.DBURL)
	if err != nil {
		return err
	}
	sqldb.SetMaxOpenConns(cfg.App.MaxConns)
	sqldb.SetMaxIdleConns(cfg.App.MinIdleConns)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()
	if err := authgate.EnsureSchema(ctx, db); err != nil {
		return err
	}

	tokenizer := authgate.NewTokenizer(expiry, cfg.Server.SecretKey, logger)
	store := authgate.NewUserStore(db, logger)
	server := authgate.NewServer(cfg, store, tokenizer, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("received %s, shutting down", sig)
		return server.Shutdown()
	}
}

type log struct{}

func (log) Debug(format string, args ...any) { fmt.Printf("[DBG] "+format+"\n", args...) }
func (log) Info(format string, args ...any)  { fmt.Printf("[INF] "+format+"\n", args...) }
func (log) Error(format string, args ...any) { fmt.Printf("[ERR] "+format+"\n", args...) }
