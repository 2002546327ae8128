package history

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dynosched/pkg/config"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newTestLog(t *testing.T, capacity int) (*ActionLog, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	log, err := Open(NewMemoryStore(), Options{Capacity: capacity, Now: clock.Now})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return log, clock
}

func TestOpenRequiresStore(t *testing.T) {
	if _, err := Open(nil, Options{}); err != ErrNilStore {
		t.Fatalf("expected ErrNilStore, got %v", err)
	}
}

func TestAppendKeepsMostRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	for _, capacity := range []int{1, 3, 10} {
		log, clock := newTestLog(t, capacity)
		n := capacity + 5
		for i := 0; i < n; i++ {
			clock.now = clock.now.Add(time.Minute)
			if _, err := log.Append(ctx, ActionRecord{AppName: fmt.Sprintf("app-%d", i), Action: ActionTurnOn, Success: true}); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}

		records, err := log.Query(ctx, 0)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(records) != capacity {
			t.Fatalf("capacity %d: expected %d records, got %d", capacity, capacity, len(records))
		}
		for i, r := range records {
			want := fmt.Sprintf("app-%d", n-1-i)
			if r.AppName != want {
				t.Errorf("capacity %d: record %d is %s, want %s", capacity, i, r.AppName, want)
			}
		}
	}
}

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	log, clock := newTestLog(t, 10)
	rec, err := log.Append(context.Background(), ActionRecord{AppName: "alpha", Action: ActionTurnOff})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated ID")
	}
	if !rec.Timestamp.Equal(clock.now) {
		t.Errorf("expected timestamp %v, got %v", clock.now, rec.Timestamp)
	}
	if rec.Trigger != TriggerScheduled {
		t.Errorf("expected scheduled trigger, got %s", rec.Trigger)
	}
}

func TestStatisticsEmptyWindowIsHundredPercent(t *testing.T) {
	log, _ := newTestLog(t, 10)
	stats, err := log.Statistics(context.Background(), 30)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalActions != 0 || stats.SuccessRate != 100 {
		t.Errorf("unexpected empty stats %+v", stats)
	}
}

func TestStatisticsAlpha(t *testing.T) {
	ctx := context.Background()
	log, clock := newTestLog(t, 100)
	for i := 0; i < 3; i++ {
		log.Append(ctx, ActionRecord{AppName: "alpha", Action: ActionTurnOn, Success: true})
	}
	log.Append(ctx, ActionRecord{AppName: "alpha", Action: ActionTurnOff, Success: false, Error: "boom"})
	// outside the window
	log.Append(ctx, ActionRecord{AppName: "alpha", Action: ActionTurnOff, Success: true, Timestamp: clock.now.AddDate(0, 0, -31)})

	stats, err := log.Statistics(ctx, 30)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalActions != 4 || stats.SuccessfulActions != 3 || stats.FailedActions != 1 {
		t.Errorf("unexpected totals %+v", stats)
	}
	if math.Abs(stats.SuccessRate-75.0) > 1e-9 {
		t.Errorf("expected 75%%, got %f", stats.SuccessRate)
	}
	want := AppStats{TurnOn: 3, TurnOff: 0, Failures: 1}
	if got := stats.ActionsByApp["alpha"]; got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if len(stats.RecentFailures) != 1 || stats.RecentFailures[0].Error != "boom" {
		t.Errorf("unexpected recent failures %+v", stats.RecentFailures)
	}
}

func TestComputeSuccessRateDistributions(t *testing.T) {
	for ok := 0; ok <= 5; ok++ {
		for bad := 0; bad <= 5; bad++ {
			var records []ActionRecord
			for i := 0; i < ok; i++ {
				records = append(records, ActionRecord{AppName: "a", Action: ActionTurnOn, Success: true})
			}
			for i := 0; i < bad; i++ {
				records = append(records, ActionRecord{AppName: "a", Action: ActionTurnOff})
			}
			stats := Compute(records)
			want := 100.0
			if ok+bad > 0 {
				want = float64(ok) / float64(ok+bad) * 100
			}
			if stats.SuccessRate != want {
				t.Errorf("ok=%d bad=%d: expected %f, got %f", ok, bad, want, stats.SuccessRate)
			}
		}
	}
}

func TestRecentFailuresBounded(t *testing.T) {
	var records []ActionRecord
	for i := 0; i < 15; i++ {
		records = append(records, ActionRecord{AppName: "a", Action: ActionTurnOn, Error: fmt.Sprint(i)})
	}
	stats := Compute(records)
	if len(stats.RecentFailures) != 10 {
		t.Fatalf("expected 10 recent failures, got %d", len(stats.RecentFailures))
	}
	if stats.RecentFailures[0].Error != "0" {
		t.Errorf("expected newest failure first, got %s", stats.RecentFailures[0].Error)
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	log, clock := newTestLog(t, 100)
	log.Append(ctx, ActionRecord{AppName: "old", Action: ActionTurnOn, Timestamp: clock.now.AddDate(0, 0, -100)})
	log.Append(ctx, ActionRecord{AppName: "new", Action: ActionTurnOn, Timestamp: clock.now.AddDate(0, 0, -1)})

	removed, err := log.Cleanup(ctx, 90)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	records, _ := log.Query(ctx, 0)
	if len(records) != 1 || records[0].AppName != "new" {
		t.Errorf("unexpected remaining records %+v", records)
	}
}

func TestQueryApp(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, 100)
	for _, app := range []string{"alpha", "beta", "alpha", "alpha"} {
		log.Append(ctx, ActionRecord{AppName: app, Action: ActionTurnOn, Success: true})
	}
	records, err := log.QueryApp(ctx, "alpha", 0, 2)
	if err != nil {
		t.Fatalf("QueryApp: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := log.Append(ctx, ActionRecord{AppName: fmt.Sprintf("app-%d", i), Action: ActionTurnOn, Success: true}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	records, _ := log.Query(ctx, 0)
	if len(records) != 50 {
		t.Fatalf("expected 50 records, got %d", len(records))
	}
}

func TestFileStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "logs", "history.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	log, _ := Open(store, Options{Capacity: 5})
	log.Append(ctx, ActionRecord{AppName: "alpha", Action: ActionTurnOn, Success: true, NewState: StateRunning})
	log.Append(ctx, ActionRecord{AppName: "alpha", Action: ActionTurnOff, Success: false, Error: "nope"})

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	records, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Action != ActionTurnOff || records[1].NewState != StateRunning {
		t.Errorf("unexpected order or content %+v", records)
	}
}

func TestFileStoreReadsCamelCaseRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	legacy := `[
  {"timestamp":"2024-01-02T18:00:00.000Z","appName":"alpha","action":"turn_off","success":true,"previousState":"running","newState":"stopped"},
  {"timestamp":"2024-01-02T09:00:00.000Z","appName":"beta","action":"turn_on","success":false,"error":"rate limited"}
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write history: %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.AppName != "alpha" || first.PreviousState != StateRunning || first.NewState != StateStopped {
		t.Errorf("unexpected first record %+v", first)
	}
	if !first.Timestamp.Equal(time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", first.Timestamp)
	}
	if records[1].AppName != "beta" || records[1].Success || records[1].Error != "rate limited" {
		t.Errorf("unexpected second record %+v", records[1])
	}

	log, err := Open(store, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	stats, err := log.Statistics(ctx, 0)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.ActionsByApp["alpha"].TurnOff != 1 || stats.ActionsByApp["beta"].Failures != 1 {
		t.Errorf("unexpected per-app stats %+v", stats.ActionsByApp)
	}
}

func TestOpenFromConfigCapacity(t *testing.T) {
	dir := t.TempDir()
	log, err := OpenFromConfig(&config.HistoryConfig{Driver: "file", Path: filepath.Join(dir, "a.json")})
	if err != nil {
		t.Fatalf("OpenFromConfig: %v", err)
	}
	if log.Capacity() != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, log.Capacity())
	}

	log, err = OpenFromConfig(&config.HistoryConfig{Driver: "file", Path: filepath.Join(dir, "b.json"), MaxEntries: 25})
	if err != nil {
		t.Fatalf("OpenFromConfig: %v", err)
	}
	if log.Capacity() != 25 {
		t.Errorf("expected capacity 25, got %d", log.Capacity())
	}
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	defer store.Close()

	log, _ := Open(store, Options{Capacity: 2})
	for _, app := range []string{"a", "b", "c"} {
		if _, err := log.Append(ctx, ActionRecord{AppName: app, Action: ActionTurnOn, Success: true}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	records, err := log.Query(ctx, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(records) != 2 || records[0].AppName != "c" || records[1].AppName != "b" {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestGenerateReport(t *testing.T) {
	ctx := context.Background()
	log, _ := newTestLog(t, 10)
	log.Append(ctx, ActionRecord{AppName: "alpha", Action: ActionTurnOn, Success: true})
	log.Append(ctx, ActionRecord{AppName: "alpha", Action: ActionTurnOff, Error: "rate limited"})

	report, err := log.GenerateReport(ctx, 7)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	for _, want := range []string{"Last 7 days", "Total Actions: 2", "Success Rate: 50.0%", "alpha:", "Error: rate limited"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestParseAction(t *testing.T) {
	if a, _ := ParseAction("on"); a != ActionTurnOn {
		t.Errorf("expected turn_on, got %s", a)
	}
	if a, _ := ParseAction("turn_off"); a != ActionTurnOff {
		t.Errorf("expected turn_off, got %s", a)
	}
	if _, err := ParseAction("restart"); err == nil {
		t.Error("expected error for unknown action")
	}
}
