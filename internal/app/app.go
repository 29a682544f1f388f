// Package app wires configuration into a ready exam service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/joyat/exam-portal/internal/config"
	"github.com/joyat/exam-portal/internal/db"
	"github.com/joyat/exam-portal/internal/exam"
	"github.com/joyat/exam-portal/internal/storage"
)

// OpenStore returns the record store selected by cfg.StoreDriver and a
// function that releases it.
func OpenStore(ctx context.Context, cfg config.Config) (exam.Store, func(), error) {
	switch cfg.StoreDriver {
	case "", "file":
		blob, err := storage.NewFSStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("data dir: %w", err)
		}
		return exam.NewFileStore(blob), func() {}, nil
	case string(db.DriverSQLite), string(db.DriverPostgres):
		dbh, err := db.Open(ctx, db.Driver(cfg.StoreDriver), cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		return exam.NewSQLStore(dbh, cfg.StoreDriver), func() { closeDB(dbh) }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
}

func closeDB(dbh *sql.DB) {
	if err := dbh.Close(); err != nil {
		log.Printf("db close: %v", err)
	}
}

// Settings builds the service settings, reading the pool table file if one
// is configured.
func Settings(cfg config.Config) (exam.Settings, error) {
	pools := exam.DefaultPools
	if cfg.PoolsFile != "" {
		pt, err := exam.LoadPoolFile(cfg.PoolsFile)
		if err != nil {
			return exam.Settings{}, fmt.Errorf("pools file: %w", err)
		}
		pools = pt
	}
	return exam.Settings{Schools: cfg.Schools, Pools: pools}, nil
}

// NewService opens the store and backup directory and builds the service.
func NewService(ctx context.Context, cfg config.Config) (*exam.Service, func(), error) {
	settings, err := Settings(cfg)
	if err != nil {
		return nil, nil, err
	}
	backups, err := storage.NewFSStore(cfg.BackupDir)
	if err != nil {
		return nil, nil, fmt.Errorf("backup dir: %w", err)
	}
	store, closeFn, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("store=%s data=%s backups=%s pools=v%d", cfg.StoreDriver, cfg.DataDir, cfg.BackupDir, settings.Pools.Version)
	return exam.NewService(store, backups, settings), closeFn, nil
}
