package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bodysync/internal/adapter/challenge"
	adapthttp "bodysync/internal/adapter/http"
	"bodysync/internal/app"
	"bodysync/internal/domain"
)

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Run   RunCmd   `command:"run" description:"Run one sync pass and exit"`
	Serve ServeCmd `command:"serve" description:"Serve POST /api/sync for schedulers that call URLs"`
	Login LoginCmd `command:"login" description:"Log in to Garmin Connect interactively and store the session"`
}

// RunCmd runs a single sync.
type RunCmd struct {
	Replace bool `long:"replace" description:"Replace entries on days that already have one"`
	JSON    bool `long:"json" description:"Log as JSON"`
}

func (c *RunCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Replace {
		_ = os.Setenv("REPLACE_EXISTING", "true")
	}
	d, err := setup(ctx, c.JSON, challenge.Refuse{})
	if err != nil {
		fmt.Println(failure(err).Message)
		return errRunFailed
	}
	defer d.Close()

	res := d.sync.Run(ctx)
	fmt.Println(res.Message)
	if res.Status != app.StatusSuccess {
		return errRunFailed
	}
	return nil
}

// ServeCmd serves the HTTP trigger.
type ServeCmd struct {
	Addr string `long:"addr" description:"Listen address (default ADDR or :8080)"`
	JSON bool   `long:"json" description:"Log as JSON"`
}

func (c *ServeCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx, c.JSON, challenge.Refuse{})
	if err != nil {
		return err
	}
	defer d.Close()

	addr := c.Addr
	if addr == "" {
		addr = d.cfg.Addr
	}
	h := adapthttp.New(d.sync, d.history, adapthttp.Options{
		TriggerTokenHash: d.cfg.TriggerTokenHash,
		Logger:           d.logger,
	}).Handler()
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		d.logger.Info("listening", slog.String("addr", addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		d.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		d.logger.Info("server stopped gracefully")
	}
	return nil
}

// LoginCmd establishes a Garmin session, prompting for a one-time code if
// the account requires one, so that scheduled runs can reuse it.
type LoginCmd struct{}

func (c *LoginCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx, false, challenge.Prompt{In: os.Stdin, Out: os.Stderr})
	if err != nil {
		return err
	}
	defer d.Close()

	today := time.Now().In(d.cfg.Location).Format(domain.DayLayout)
	if _, err := d.sink.ListRecordedDays(ctx, today, today); err != nil {
		return fmt.Errorf("garmin login: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Garmin session stored under", d.cfg.SessionKey)
	return nil
}
