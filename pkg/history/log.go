package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dynosched/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCapacity is the number of records kept when Options.Capacity is unset.
const DefaultCapacity = 1000

// Options configures an ActionLog.
type Options struct {
	Capacity int
	Now      func() time.Time
}

// ActionLog is a bounded, newest-first log of action records backed by a
// Store. Every append is persisted before it returns.
type ActionLog struct {
	mu       sync.Mutex
	store    Store
	capacity int
	now      func() time.Time
}

// Open wraps store in an ActionLog.
func Open(store Store, opts Options) (*ActionLog, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ActionLog{store: store, capacity: opts.Capacity, now: opts.Now}, nil
}

// Capacity returns the maximum number of retained records.
func (l *ActionLog) Capacity() int { return l.capacity }

// Append inserts rec at the head of the log, evicts the oldest records past
// capacity and persists the result. A missing ID or timestamp is filled in.
func (l *ActionLog) Append(ctx context.Context, rec ActionRecord) (ActionRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	if rec.Trigger == "" {
		rec.Trigger = TriggerScheduled
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.Load(ctx)
	if err != nil {
		return rec, fmt.Errorf("load history: %w", err)
	}

	records = append(records, ActionRecord{})
	copy(records[1:], records)
	records[0] = rec
	if len(records) > l.capacity {
		records = records[:l.capacity]
	}

	if err := l.store.Save(ctx, records); err != nil {
		return rec, fmt.Errorf("save history: %w", err)
	}

	logger.Debug("History entry added",
		zap.String("id", rec.ID),
		logger.AppField(rec.AppName),
		logger.ActionField(string(rec.Action)),
		zap.Bool("success", rec.Success))
	return rec, nil
}

// Query returns the records of the last sinceDays days, newest first.
// sinceDays <= 0 returns every record.
func (l *ActionLog) Query(ctx context.Context, sinceDays int) ([]ActionRecord, error) {
	l.mu.Lock()
	records, err := l.store.Load(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return filterSince(records, l.cutoff(sinceDays)), nil
}

// QueryApp is Query restricted to one app. limit <= 0 means no limit.
func (l *ActionLog) QueryApp(ctx context.Context, app string, sinceDays, limit int) ([]ActionRecord, error) {
	records, err := l.Query(ctx, sinceDays)
	if err != nil {
		return nil, err
	}
	out := make([]ActionRecord, 0)
	for _, r := range records {
		if r.AppName != app {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Statistics computes a snapshot over the last sinceDays days.
func (l *ActionLog) Statistics(ctx context.Context, sinceDays int) (*Statistics, error) {
	records, err := l.Query(ctx, sinceDays)
	if err != nil {
		return nil, err
	}
	stats := Compute(records)
	stats.Days = sinceDays
	return stats, nil
}

// Cleanup permanently drops records older than olderThanDays and returns how
// many were removed.
func (l *ActionLog) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("cleanup threshold must be positive, got %d", olderThanDays)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}
	kept := filterSince(records, l.cutoff(olderThanDays))
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := l.store.Save(ctx, kept); err != nil {
		return 0, fmt.Errorf("save history: %w", err)
	}
	logger.Info("Cleaned up old history entries", zap.Int("removed", removed), zap.Int("older_than_days", olderThanDays))
	return removed, nil
}

// Close releases the underlying store.
func (l *ActionLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Close()
}

func (l *ActionLog) cutoff(days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return l.now().AddDate(0, 0, -days)
}

func filterSince(records []ActionRecord, cutoff time.Time) []ActionRecord {
	out := make([]ActionRecord, 0, len(records))
	for _, r := range records {
		if cutoff.IsZero() || !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
