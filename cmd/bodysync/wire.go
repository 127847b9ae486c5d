package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"bodysync/internal/adapter/blobstore"
	"bodysync/internal/adapter/garmin"
	"bodysync/internal/adapter/withings"
	"bodysync/internal/app"
	"bodysync/internal/config"
	"bodysync/internal/domain"
)

// deps is the wired application.
type deps struct {
	cfg     *config.Config
	logger  *slog.Logger
	tokens  *app.TokenStore
	sink    *garmin.Client
	sync    *app.SyncService
	history *app.HistoryService

	closers []io.Closer
}

func (d *deps) Close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.logger.Warn("close failed", "err", err)
		}
	}
}

func newLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// wire builds every component from cfg. challenge answers a sink one-time
// code prompt.
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, challenge domain.ChallengeResponder) (*deps, error) {
	if err := cfg.RequireSink(); err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg, logger: logger}

	store, err := blobstore.Open(ctx, cfg.TokenStoreDSN)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, store)

	ledger, err := openLedger(ctx, cfg, store, d)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.tokens, err = app.NewTokenStore(store.Blobs, cfg.TokenKey, cfg.SessionKey, app.TokenSeed{
		AccessToken:  cfg.WithingsAccessToken,
		RefreshToken: cfg.WithingsRefreshToken,
		ValidUntil:   cfg.WithingsValidUntil,
	}, logger)
	if err != nil {
		d.Close()
		return nil, err
	}

	source := withings.New(withings.Options{BaseURL: cfg.WithingsAPIURL, Timeout: cfg.HTTPTimeout})
	d.sink, err = garmin.New(garmin.Options{
		APIURL:    cfg.GarminAPIURL,
		SSOURL:    cfg.GarminSSOURL,
		ClientID:  cfg.GarminClientID,
		Email:     cfg.GarminEmail,
		Password:  cfg.GarminPassword,
		Timeout:   cfg.HTTPTimeout,
		Sessions:  d.tokens,
		Challenge: challenge,
		Logger:    logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	d.sync = app.NewSyncService(
		d.tokens,
		app.NewTokenRefresher(source, cfg.Credentials(), cfg.RefreshMargin, logger),
		app.NewMeasurementFetcher(source, cfg.Location),
		d.sink,
		app.NewReconciler(cfg.Weights, logger),
		app.SyncOptions{Mode: cfg.Mode, Lookback: cfg.Lookback, Ledger: ledger, Logger: logger},
	)
	if ledger != nil {
		d.history = app.NewHistoryService(ledger, cfg.Location)
	}
	return d, nil
}

func openLedger(ctx context.Context, cfg *config.Config, store *blobstore.Backend, d *deps) (domain.SyncLogRepository, error) {
	switch cfg.LedgerDSN {
	case "":
		return nil, nil
	case cfg.TokenStoreDSN:
		if store.Ledger == nil {
			return nil, fmt.Errorf("%w: LEDGER_DSN %q cannot hold a sync ledger", domain.ErrConfig, cfg.LedgerDSN)
		}
		return store.Ledger, nil
	}
	b, err := blobstore.Open(ctx, cfg.LedgerDSN)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, b)
	if b.Ledger == nil {
		return nil, fmt.Errorf("%w: LEDGER_DSN %q cannot hold a sync ledger", domain.ErrConfig, cfg.LedgerDSN)
	}
	return b.Ledger, nil
}

// setup loads configuration and wires the application.
func setup(ctx context.Context, json bool, challenge domain.ChallengeResponder) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(os.Stderr, cfg.LogLevel, json)
	slog.SetDefault(logger)
	d, err := wire(ctx, cfg, logger, challenge)
	if err != nil {
		logger.Error("startup failed", "kind", domain.KindOf(err), "err", err)
		return nil, err
	}
	return d, nil
}

// failure turns a startup error into a run result.
func failure(err error) app.Result {
	return app.Result{Status: app.StatusFailure, Kind: domain.KindOf(err), Message: err.Error(), Err: err}
}

var errRunFailed = errors.New("sync failed")
