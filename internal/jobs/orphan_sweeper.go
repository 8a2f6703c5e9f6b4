package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"io.winapps.confessionboard/internal/storage"
)

// AudioReferences reports which stored audio keys are still pointed at by a confession.
type AudioReferences interface {
	ReferencedAudio(ctx context.Context, keys []string) (map[string]bool, error)
}

// SweepResult summarises one pass.
type SweepResult struct {
	Scanned int
	Deleted int
	Failed  int
}

// OrphanSweeper removes uploaded audio that no confession row references,
// which happens when a process dies between writing the file and inserting the row.
type OrphanSweeper struct {
	files       storage.FileStore
	refs        AudioReferences
	logger      *zap.SugaredLogger
	grace       time.Duration
	timeout     time.Duration
	now         func() time.Time
	cronManager *cron.Cron
}

func NewOrphanSweeper(files storage.FileStore, refs AudioReferences, logger *zap.SugaredLogger, grace time.Duration) *OrphanSweeper {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &OrphanSweeper{
		files:       files,
		refs:        refs,
		logger:      logger,
		grace:       grace,
		timeout:     5 * time.Minute,
		now:         time.Now,
		cronManager: cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start schedules the sweep and starts the cron runner.
func (s *OrphanSweeper) Start(schedule string) error {
	_, err := s.cronManager.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		res, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Errorw("orphan sweep failed", "error", err, "deleted", res.Deleted)
			return
		}
		if res.Deleted > 0 || res.Failed > 0 {
			s.logger.Infow("orphan sweep finished", "scanned", res.Scanned, "deleted", res.Deleted, "failed", res.Failed)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cronManager.Start()
	return nil
}

// Stop halts scheduling and waits for a running sweep to return.
func (s *OrphanSweeper) Stop(ctx context.Context) {
	done := s.cronManager.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single sweep. Individual delete failures are logged and
// counted; only listing or reference lookup failures abort the pass.
func (s *OrphanSweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	listed, err := s.files.List(ctx, s.now().Add(-s.grace))
	if err != nil {
		return res, fmt.Errorf("failed to list stored audio: %w", err)
	}
	// Only files the store named itself are candidates; anything else in
	// the upload root was put there by someone else.
	keys := listed[:0]
	for _, key := range listed {
		if storage.IsGeneratedKey(key) {
			keys = append(keys, key)
		}
	}
	res.Scanned = len(keys)
	if len(keys) == 0 {
		return res, nil
	}

	referenced, err := s.refs.ReferencedAudio(ctx, keys)
	if err != nil {
		return res, fmt.Errorf("failed to look up audio references: %w", err)
	}

	for _, key := range keys {
		if referenced[key] {
			continue
		}
		if err := s.files.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			res.Failed++
			s.logger.Warnw("failed to delete orphaned audio", "key", key, "error", err)
			continue
		}
		res.Deleted++
		s.logger.Debugw("deleted orphaned audio", "key", key)
	}
	return res, nil
}
