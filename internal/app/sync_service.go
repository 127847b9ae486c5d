package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bodysync/internal/domain"

	"github.com/rs/xid"
)

// DefaultLookback is the measurement window used when none is configured.
const DefaultLookback = 30 * 24 * time.Hour

// Status is the overall outcome of a sync run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result summarizes a sync run.
type Result struct {
	RunID    string `json:"runId"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Kind     string `json:"kind,omitempty"`
	Inserted int    `json:"inserted"`
	Replaced int    `json:"replaced"`
	Skipped  int    `json:"skipped"`
	Rejected int    `json:"rejected"`
	Err      error  `json:"-"`
}

// SyncOptions configures a SyncService. Zero values select defaults.
type SyncOptions struct {
	Mode     domain.Mode
	Lookback time.Duration
	Ledger   domain.SyncLogRepository
	Logger   *slog.Logger
	Now      func() time.Time
}

// SyncService runs one end-to-end sync: load token, refresh, fetch,
// reconcile, write.
type SyncService struct {
	tokens     *TokenStore
	refresher  *TokenRefresher
	fetcher    *MeasurementFetcher
	sink       domain.SinkClient
	reconciler *Reconciler
	writer     *SinkWriter
	ledger     domain.SyncLogRepository
	mode       domain.Mode
	lookback   time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewSyncService wires the sync pipeline.
func NewSyncService(tokens *TokenStore, refresher *TokenRefresher, fetcher *MeasurementFetcher, sink domain.SinkClient, reconciler *Reconciler, opts SyncOptions) *SyncService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SyncService{
		tokens:     tokens,
		refresher:  refresher,
		fetcher:    fetcher,
		sink:       sink,
		reconciler: reconciler,
		writer:     NewSinkWriter(sink, logger),
		ledger:     opts.Ledger,
		mode:       opts.Mode,
		lookback:   lookback,
		now:        now,
		logger:     logger,
	}
}

// Run performs a sync and reports its outcome. Any error aborts the rest of
// the run and yields StatusFailure.
func (s *SyncService) Run(ctx context.Context) Result {
	res := Result{RunID: xid.New().String()}
	log := s.logger.With("run_id", res.RunID)
	log.Info("sync started", "mode", s.mode.String())

	if err := s.run(ctx, log, &res); err != nil {
		res.Status = StatusFailure
		res.Kind = domain.KindOf(err)
		res.Message = err.Error()
		res.Err = err
		log.Error("sync failed", "kind", res.Kind, "err", err)
		return res
	}
	res.Status = StatusSuccess
	log.Info("sync finished", "inserted", res.Inserted, "replaced", res.Replaced,
		"skipped", res.Skipped, "rejected", res.Rejected)
	return res
}

func (s *SyncService) run(ctx context.Context, log *slog.Logger, res *Result) error {
	rec, err := s.tokens.Load(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	rec, refreshed, err := s.refresher.EnsureFresh(ctx, rec, now)
	if err != nil {
		return err
	}
	if refreshed {
		if err := s.tokens.Save(ctx, rec); err != nil {
			return err
		}
	}

	log.Info("requesting measurements", "since", now.Add(-s.lookback).Format(time.RFC3339))
	points, stamps, err := s.fetcher.Fetch(ctx, rec.AccessToken, now.Add(-s.lookback), now)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		res.Message = "No measurements in window."
		return nil
	}

	start, end := dayWindow(stamps[0], stamps[len(stamps)-1])
	days, err := s.sink.ListRecordedDays(ctx, start, end)
	if err != nil {
		return err
	}

	for _, d := range s.reconciler.Plan(points, NewDaySet(days), s.mode) {
		w, err := s.writer.Apply(ctx, d)
		if err != nil {
			return err
		}
		switch d.Action {
		case domain.ActionSkip:
			res.Skipped++
			continue
		case domain.ActionReject:
			res.Rejected++
		case domain.ActionReplaceThenInsert:
			res.Replaced++
		case domain.ActionInsert:
			res.Inserted++
		}
		s.record(ctx, log, res.RunID, d, w)
	}
	res.Message = fmt.Sprintf("All measurements successfully synchronized (%d inserted, %d replaced, %d skipped, %d rejected).",
		res.Inserted, res.Replaced, res.Skipped, res.Rejected)
	return nil
}

// record appends to the ledger. Ledger failures are logged, not fatal.
func (s *SyncService) record(ctx context.Context, log *slog.Logger, runID string, d domain.Decision, w Write) {
	if s.ledger == nil {
		return
	}
	action := d.Action.String()
	if w != WriteNone {
		action += ":" + w.String()
	}
	_, err := s.ledger.AddSyncRecord(ctx, domain.SyncRecord{
		RunID:      runID,
		Day:        d.Point.Day(),
		MeasuredAt: d.Point.Timestamp,
		WeightKg:   d.Point.WeightKg,
		Action:     action,
		CreatedAt:  s.now(),
	})
	if err != nil {
		log.Warn("ledger write failed", "err", err)
	}
}

// dayWindow returns the inclusive day range spanned by the first and last
// fetched timestamps, whichever order the source returned them in.
func dayWindow(first, last string) (string, string) {
	a, b := dayOf(first), dayOf(last)
	if a > b {
		a, b = b, a
	}
	return a, b
}

func dayOf(iso string) string {
	if len(iso) < len(domain.DayLayout) {
		return iso
	}
	return iso[:len(domain.DayLayout)]
}
