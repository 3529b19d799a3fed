package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/cipher"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/config"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/logger"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
)

// app bundles every dependency a CLI command needs: configuration, a
// logger, the database handle, and the store's repositories (the
// connection repository holds the field cipher).
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *gorm.DB

	connRepo  *store.ConnectionRepository
	syncRepo  *store.SyncLogRepository
	retryRepo *store.RetryQueueRepository
	sentRepo  *store.SentOrderRepository
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.LogLevel)

	enc, err := cipher.New(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		connRepo:  store.NewConnectionRepository(db, enc),
		syncRepo:  store.NewSyncLogRepository(db),
		retryRepo: store.NewRetryQueueRepository(db),
		sentRepo:  store.NewSentOrderRepository(db),
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
