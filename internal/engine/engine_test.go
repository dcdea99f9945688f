package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rusenback/nodewatch/internal/authlog"
	"github.com/rusenback/nodewatch/internal/model"
	"github.com/rusenback/nodewatch/internal/storage"
)

type fakeSource struct {
	snap      model.RawSnapshot
	err       error
	refreshes int
}

func (f *fakeSource) Refresh(ctx context.Context) error {
	f.refreshes++
	return f.err
}

func (f *fakeSource) Read() model.RawSnapshot {
	return f.snap
}

type memStore struct {
	samples     []model.MetricSample
	events      []model.AuthEvent
	saveErr     error
	compactErr  error
	compactions int
}

func (m *memStore) SaveSample(ctx context.Context, s model.MetricSample) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.samples = append(m.samples, s)
	return nil
}

func (m *memStore) Compact(ctx context.Context) error {
	m.compactions++
	return m.compactErr
}

func (m *memStore) RecentSamples(ctx context.Context, n int) ([]model.MetricSample, error) {
	if len(m.samples) > n {
		return m.samples[len(m.samples)-n:], nil
	}
	return m.samples, nil
}

func (m *memStore) RecentAuthEvents(ctx context.Context, n int) ([]model.AuthEvent, error) {
	if len(m.events) > n {
		return m.events[len(m.events)-n:], nil
	}
	return m.events, nil
}

type fakeAuth struct {
	res      authlog.PollResult
	err      error
	polls    int
	events   []model.AuthEvent
	capacity int
}

func (f *fakeAuth) Poll(ctx context.Context) (authlog.PollResult, error) {
	f.polls++
	f.events = append(f.events, f.res.Accepted...)
	return f.res, f.err
}

func (f *fakeAuth) Events() []model.AuthEvent {
	return append([]model.AuthEvent(nil), f.events...)
}

func (f *fakeAuth) Restore(events []model.AuthEvent) {
	f.events = append([]model.AuthEvent(nil), events...)
}

func (f *fakeAuth) Capacity() int {
	if f.capacity == 0 {
		return authlog.DefaultMaxEvents
	}
	return f.capacity
}

type recordingPublisher struct {
	published []model.AuthEvent
}

func (r *recordingPublisher) Publish(ev model.AuthEvent, host string) error {
	r.published = append(r.published, ev)
	return nil
}

const gib = 1 << 30

func hostSnapshot() model.RawSnapshot {
	return model.RawSnapshot{
		Cores:       4,
		MemoryTotal: 8 * gib,
		Disks:       []model.DiskSpace{{MountPath: "/", Total: 1000, Available: 400}},
		Target: model.ProcessStats{
			Found:          true,
			PID:            42,
			CPUPercent:     200,
			MemoryBytes:    2 * gib,
			DiskReadBytes:  10,
			DiskWriteBytes: 20,
		},
	}
}

func newTestEngine(t *testing.T, src *fakeSource, store Store, auth AuthPoller) *Engine {
	t.Helper()
	e, err := New(Options{Source: src, Store: store, Auth: auth, CompactEvery: DefaultCompactEvery})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.dirSize = func(string) (uint64, error) { return 0, nil }
	return e
}

var t0 = time.Unix(1_700_000_000, 0)

type logRecord struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
	Kind  string `json:"kind"`
	Op    string `json:"op"`
}

func jsonLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func readRecords(t *testing.T, buf *bytes.Buffer) []logRecord {
	t.Helper()
	var records []logRecord
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var r logRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("decode log line %q: %v", sc.Text(), err)
		}
		records = append(records, r)
	}
	return records
}

func findRecord(records []logRecord, kind, op string) (logRecord, bool) {
	for _, r := range records {
		if r.Kind == kind && r.Op == op {
			return r, true
		}
	}
	return logRecord{}, false
}

func TestNewRequiresSourceAndStore(t *testing.T) {
	if _, err := New(Options{Store: &memStore{}}); err == nil {
		t.Fatal("expected error without source")
	}
	if _, err := New(Options{Source: &fakeSource{}}); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestTickDerivesSample(t *testing.T) {
	src := &fakeSource{snap: hostSnapshot()}
	store := &memStore{}
	e, _ := New(Options{Source: src, Store: store, DataDir: "/data"})
	e.dirSize = func(path string) (uint64, error) {
		if path != "/data" {
			t.Fatalf("dir size of %s", path)
		}
		return 100, nil
	}

	snap, err := e.Tick(context.Background(), t0)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}

	want := model.MetricSample{
		Timestamp:            1_700_000_000,
		CPUPercent:           50,
		MemoryPercent:        25,
		MemoryTotalBytes:     8 * gib,
		MemoryUsedBytes:      2 * gib,
		DiskPercent:          70,
		TargetMemoryBytes:    2 * gib,
		TargetDiskReadBytes:  10,
		TargetDiskWriteBytes: 20,
	}
	if len(store.samples) != 1 || store.samples[0] != want {
		t.Fatalf("persisted = %+v, want %+v", store.samples, want)
	}
	if !snap.HasSample || snap.Latest != want || snap.Cores != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.DiskSpace.Total != 1000 {
		t.Fatalf("disk space = %+v", snap.DiskSpace)
	}
	for name, pts := range map[string][]model.Point{
		"cpu": snap.CPU, "mem": snap.Memory, "disk": snap.Disk, "rx": snap.Receive, "tx": snap.Send,
	} {
		if len(pts) != 1 {
			t.Fatalf("%s series has %d points, want 1", name, len(pts))
		}
	}
}

func TestTickMissingTargetIsNotAnError(t *testing.T) {
	snap := hostSnapshot()
	snap.Target = model.ProcessStats{}
	store := &memStore{}
	e := newTestEngine(t, &fakeSource{snap: snap}, store, nil)

	out, err := e.Tick(context.Background(), t0)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	m := out.Latest
	if m.CPUPercent != 0 || m.MemoryPercent != 0 || m.TargetMemoryBytes != 0 ||
		m.TargetDiskReadBytes != 0 || m.TargetDiskWriteBytes != 0 {
		t.Fatalf("target metrics not zero: %+v", m)
	}
	if len(store.samples) != 1 {
		t.Fatalf("sample not persisted")
	}
}

func TestTickNetworkRates(t *testing.T) {
	src := &fakeSource{snap: hostSnapshot()}
	e := newTestEngine(t, src, &memStore{}, nil)
	ctx := context.Background()

	src.snap.NetworkReceived = 10 << 20
	src.snap.NetworkTransmitted = 5 << 20
	snap, _ := e.Tick(ctx, t0)
	if snap.ReceiveRate != 0 || snap.SendRate != 0 {
		t.Fatalf("first rates = %v, %v; want 0", snap.ReceiveRate, snap.SendRate)
	}

	src.snap.NetworkReceived += 2 << 20
	src.snap.NetworkTransmitted += 1 << 20
	snap, _ = e.Tick(ctx, t0.Add(2*time.Second))
	if got := snap.ReceiveRate; got != 1 {
		t.Fatalf("rx = %v MiB/s, want 1", got)
	}
	if got := snap.SendRate; got != 0.5 {
		t.Fatalf("tx = %v MiB/s, want 0.5", got)
	}

	// counter reset
	src.snap.NetworkReceived = 0
	snap, _ = e.Tick(ctx, t0.Add(4*time.Second))
	if got := snap.ReceiveRate; got != 0 {
		t.Fatalf("rx after reset = %v, want 0", got)
	}
}

func TestDue(t *testing.T) {
	e := newTestEngine(t, &fakeSource{snap: hostSnapshot()}, &memStore{}, nil)

	if !e.Due(t0) {
		t.Fatal("first call must be due")
	}
	if _, err := e.Tick(context.Background(), t0); err != nil {
		t.Fatalf("tick: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"immediately", t0, false},
		{"after 1s", t0.Add(time.Second), false},
		{"after 1.999s", t0.Add(1999 * time.Millisecond), false},
		{"after 2s", t0.Add(2 * time.Second), true},
		{"after 10s", t0.Add(10 * time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Due(tt.at); got != tt.want {
				t.Fatalf("Due = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDueClockBackwards(t *testing.T) {
	e := newTestEngine(t, &fakeSource{snap: hostSnapshot()}, &memStore{}, nil)
	if _, err := e.Tick(context.Background(), t0); err != nil {
		t.Fatalf("tick: %v", err)
	}

	back := t0.Add(-time.Hour)
	if e.Due(back) {
		t.Fatal("backwards clock must not be due")
	}
	// anchor moved to the new clock
	if e.Due(back.Add(time.Second)) {
		t.Fatal("due 1s after reset")
	}
	if !e.Due(back.Add(2 * time.Second)) {
		t.Fatal("not due 2s after reset")
	}
}

func TestMetricWriteFailureIsFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store, err := storage.NewWithDB(db, storage.DriverSQLite)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	mock.ExpectExec("INSERT INTO metrics").WillReturnError(errors.New("disk full"))

	auth := &fakeAuth{}
	e := newTestEngine(t, &fakeSource{snap: hostSnapshot()}, store, auth)

	_, err = e.Tick(context.Background(), t0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsFatal(err) {
		t.Fatalf("metric write failure not fatal: %v", err)
	}
	if kind, _ := KindOf(err); kind != PersistenceFailure {
		t.Fatalf("kind = %v, want persistence_failure", kind)
	}
	if auth.polls != 1 {
		t.Fatalf("auth polls = %d, want 1 despite metric failure", auth.polls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshFailureSkipsMetrics(t *testing.T) {
	src := &fakeSource{snap: hostSnapshot(), err: errors.New("open /proc/stat: no such file")}
	store := &memStore{}
	auth := &fakeAuth{}
	e := newTestEngine(t, src, store, auth)

	snap, err := e.Tick(context.Background(), t0)
	if err == nil {
		t.Fatal("expected error")
	}
	if IsFatal(err) {
		t.Fatal("source failure must not be fatal")
	}
	if kind, _ := KindOf(err); kind != SourceUnavailable {
		t.Fatalf("kind = %v, want source_unavailable", kind)
	}
	if len(store.samples) != 0 || len(snap.CPU) != 0 {
		t.Fatal("failed refresh must not produce a sample")
	}
	if auth.polls != 1 {
		t.Fatalf("auth polls = %d, want 1", auth.polls)
	}
	if e.Cycles() != 1 {
		t.Fatalf("cycles = %d, want 1", e.Cycles())
	}
}

func TestTickLogsNonFatalFailures(t *testing.T) {
	logger, buf := jsonLogger()
	src := &fakeSource{snap: hostSnapshot(), err: errors.New("open /proc/stat: no such file")}
	auth := &fakeAuth{err: fmt.Errorf("%w: journalctl missing", authlog.ErrSourceUnavailable)}
	e, _ := New(Options{Source: src, Store: &memStore{}, Auth: auth, Logger: logger})

	if _, err := e.Tick(context.Background(), t0); err == nil || IsFatal(err) {
		t.Fatalf("err = %v, want non-fatal error", err)
	}

	records := readRecords(t, buf)
	for _, op := range []string{OpRefresh, OpPollAuth} {
		r, ok := findRecord(records, SourceUnavailable.String(), op)
		if !ok {
			t.Fatalf("no %s record for %q in %s", SourceUnavailable, op, buf.String())
		}
		if r.Level != "WARN" {
			t.Fatalf("%q logged at %s, want WARN", op, r.Level)
		}
	}
}

func TestFatalWriteIsLoggedAsError(t *testing.T) {
	logger, buf := jsonLogger()
	store := &memStore{saveErr: errors.New("readonly database")}
	e, _ := New(Options{Source: &fakeSource{snap: hostSnapshot()}, Store: store, Logger: logger})
	e.dirSize = func(string) (uint64, error) { return 0, nil }

	if _, err := e.Tick(context.Background(), t0); !IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
	r, ok := findRecord(readRecords(t, buf), PersistenceFailure.String(), OpSaveSample)
	if !ok || r.Level != "ERROR" {
		t.Fatalf("record = %+v (found %v), want ERROR", r, ok)
	}
}

func TestClockStepBackKeepsRunning(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	logger, buf := jsonLogger()
	e, _ := New(Options{Source: &fakeSource{snap: hostSnapshot()}, Store: store, Logger: logger})
	e.dirSize = func(string) (uint64, error) { return 0, nil }

	last := t0
	for i := 0; i < 10; i++ {
		last = t0.Add(time.Duration(i) * 2 * time.Second)
		if _, err := e.Tick(ctx, last); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	back := last.Add(-10 * time.Second)
	if e.Due(back) {
		t.Fatal("backwards clock must not be due")
	}
	snap, err := e.Tick(ctx, back)
	if err != nil {
		t.Fatalf("tick after step back: %v", err)
	}
	if snap.Latest.Timestamp != float64(back.Unix()) {
		t.Fatalf("latest = %v, want the stepped-back sample on screen", snap.Latest.Timestamp)
	}
	if n, _ := store.CountSamples(ctx); n != 10 {
		t.Fatalf("samples = %d, want 10", n)
	}
	if _, ok := findRecord(readRecords(t, buf), ClockAnomaly.String(), ""); !ok {
		t.Fatalf("no clock anomaly logged: %s", buf.String())
	}

	if _, err := e.Tick(ctx, last.Add(2*time.Second)); err != nil {
		t.Fatalf("tick past the stored second: %v", err)
	}
	if n, _ := store.CountSamples(ctx); n != 11 {
		t.Fatalf("samples = %d, want 11", n)
	}
}

func TestRestoreProtectsLastStoredSecond(t *testing.T) {
	store := &memStore{samples: []model.MetricSample{{Timestamp: 100}, {Timestamp: 102}}}
	e := newTestEngine(t, &fakeSource{snap: hostSnapshot()}, store, nil)
	if err := e.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if _, err := e.Tick(context.Background(), time.Unix(102, 400_000_000)); err != nil {
		t.Fatalf("tick in the stored second: %v", err)
	}
	if len(store.samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(store.samples))
	}
	if _, err := e.Tick(context.Background(), time.Unix(104, 0)); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(store.samples))
	}
}

func TestAuthFailureDoesNotStopMetrics(t *testing.T) {
	store := &memStore{}
	auth := &fakeAuth{err: authlog.ErrSourceUnavailable}
	e := newTestEngine(t, &fakeSource{snap: hostSnapshot()}, store, auth)

	_, err := e.Tick(context.Background(), t0)
	if err == nil || IsFatal(err) {
		t.Fatalf("err = %v, want non-fatal error", err)
	}
	if kind, _ := KindOf(err); kind != SourceUnavailable {
		t.Fatalf("kind = %v", kind)
	}
	if len(store.samples) != 1 {
		t.Fatal("metric sample not persisted")
	}
}

func TestAuthStoreFailureIsNotFatal(t *testing.T) {
	auth := &fakeAuth{err: errors.Join(authlog.ErrStore, errors.New("locked"))}
	e := newTestEngine(t, &fakeSource{snap: hostSnapshot()}, &memStore{}, auth)

	_, err := e.Tick(context.Background(), t0)
	if kind, _ := KindOf(err); kind != PersistenceFailure {
		t.Fatalf("kind = %v, want persistence_failure", kind)
	}
	if IsFatal(err) {
		t.Fatal("auth event write failure must not be fatal")
	}
}

func TestBothHalvesFailing(t *testing.T) {
	store := &memStore{saveErr: errors.New("readonly database")}
	auth := &fakeAuth{err: authlog.ErrSourceUnavailable}
	e := newTestEngine(t, &fakeSource{snap: hostSnapshot()}, store, auth)

	_, err := e.Tick(context.Background(), t0)
	if !IsFatal(err) {
		t.Fatalf("joined error lost the fatal metric failure: %v", err)
	}
	if !errors.Is(err, authlog.ErrSourceUnavailable) {
		t.Fatalf("joined error lost the auth failure: %v", err)
	}
}

func TestCompactionCadence(t *testing.T) {
	logger, buf := jsonLogger()
	store := &memStore{compactErr: errors.New("database is locked")}
	e, err := New(Options{Source: &fakeSource{snap: hostSnapshot()}, Store: store, CompactEvery: 3, Logger: logger})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	e.dirSize = func(string) (uint64, error) { return 0, nil }

	for i := 0; i < 7; i++ {
		if _, err := e.Tick(context.Background(), t0.Add(time.Duration(i)*2*time.Second)); err != nil {
			t.Fatalf("tick %d: compaction failure leaked: %v", i, err)
		}
	}
	if store.compactions != 2 {
		t.Fatalf("compactions = %d, want 2", store.compactions)
	}
	r, ok := findRecord(readRecords(t, buf), PersistenceFailure.String(), OpCompact)
	if !ok || r.Level != "WARN" {
		t.Fatalf("compaction failure record = %+v (found %v), want WARN", r, ok)
	}
}

func TestWindowIsBounded(t *testing.T) {
	e, _ := New(Options{Source: &fakeSource{snap: hostSnapshot()}, Store: &memStore{}, WindowSize: 3})
	e.dirSize = func(string) (uint64, error) { return 0, nil }

	var snap Snapshot
	for i := 0; i < 5; i++ {
		snap, _ = e.Tick(context.Background(), t0.Add(time.Duration(i)*2*time.Second))
	}
	if len(snap.CPU) != 3 || len(snap.Receive) != 3 {
		t.Fatalf("series lengths = %d, %d; want 3", len(snap.CPU), len(snap.Receive))
	}
	if snap.CPU[0].X != float64(t0.Add(4*time.Second).Unix()) {
		t.Fatalf("oldest point = %v", snap.CPU[0].X)
	}
	if snap.WindowStart != snap.CPU[0].X || snap.Window() != 4*time.Second {
		t.Fatalf("window = %v from %v", snap.Window(), snap.WindowStart)
	}
}

func TestUnreadableDataDirCountsAsEmpty(t *testing.T) {
	e, _ := New(Options{Source: &fakeSource{snap: hostSnapshot()}, Store: &memStore{}, DataDir: "/nope"})
	e.dirSize = func(string) (uint64, error) { return 0, errors.New("permission denied") }

	snap, err := e.Tick(context.Background(), t0)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if math.Abs(snap.Latest.DiskPercent-60) > 1e-9 {
		t.Fatalf("disk = %v, want 60", snap.Latest.DiskPercent)
	}
}

func TestPublishesAcceptedEvents(t *testing.T) {
	ev := model.AuthEvent{Timestamp: 1, Identifier: "10.0.0.5", Status: model.AuthFailed}
	auth := &fakeAuth{res: authlog.PollResult{Lines: 1, Matched: 1, Accepted: []model.AuthEvent{ev}}}
	pub := &recordingPublisher{}
	e, _ := New(Options{Source: &fakeSource{snap: hostSnapshot()}, Store: &memStore{}, Auth: auth, Publisher: pub})
	e.dirSize = func(string) (uint64, error) { return 0, nil }

	snap, err := e.Tick(context.Background(), t0)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != ev {
		t.Fatalf("published = %+v", pub.published)
	}
	if len(snap.Events) != 1 {
		t.Fatalf("snapshot events = %d", len(snap.Events))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	e := newTestEngine(t, &fakeSource{snap: hostSnapshot()}, &memStore{}, nil)
	snap, _ := e.Tick(context.Background(), t0)
	snap.CPU[0].Y = -1

	again := e.Snapshot()
	if again.CPU[0].Y == -1 {
		t.Fatal("snapshot shares storage with the engine")
	}
}

func TestRestore(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 5; i++ {
		store.samples = append(store.samples, model.MetricSample{
			Timestamp:            float64(100 + 2*i),
			CPUPercent:           float64(i),
			NetworkReceivedBytes: uint64(i) * 2 << 20,
		})
	}
	store.events = []model.AuthEvent{
		{Timestamp: 1, Identifier: "a", Status: model.AuthFailed},
		{Timestamp: 2, Identifier: "b", Status: model.AuthSuccess},
	}
	auth := &fakeAuth{capacity: 1}

	e, _ := New(Options{Source: &fakeSource{snap: hostSnapshot()}, Store: store, Auth: auth, WindowSize: 3})
	if err := e.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	snap := e.Snapshot()
	if len(snap.CPU) != 3 || snap.CPU[2].Y != 4 {
		t.Fatalf("cpu = %+v", snap.CPU)
	}
	if snap.Receive[0].Y != 0 {
		t.Fatalf("first restored rate = %v, want 0", snap.Receive[0].Y)
	}
	if snap.Receive[2].Y != 1 {
		t.Fatalf("restored rate = %v, want 1", snap.Receive[2].Y)
	}
	if !snap.HasSample || snap.Latest.Timestamp != 108 {
		t.Fatalf("latest = %+v", snap.Latest)
	}
	if len(snap.Events) != 1 || snap.Events[0].Identifier != "b" {
		t.Fatalf("events = %+v", snap.Events)
	}
	if snap.Cores != 4 || snap.DiskSpace.Total != 1000 {
		t.Fatalf("host facts not seeded: cores=%d disk=%+v", snap.Cores, snap.DiskSpace)
	}
}

func TestRestoreWithUnavailableSource(t *testing.T) {
	store := &memStore{samples: []model.MetricSample{{Timestamp: 100, CPUPercent: 5}}}
	src := &fakeSource{snap: hostSnapshot(), err: errors.New("no /proc")}
	e, _ := New(Options{Source: src, Store: store})

	if err := e.Restore(context.Background()); err != nil {
		t.Fatalf("restore must not fail on the source: %v", err)
	}
	snap := e.Snapshot()
	if len(snap.CPU) != 1 || snap.Cores != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestEndToEndWithSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	logs := &staticLog{lines: []string{
		"sshd[1]: Failed password for root from 10.0.0.5 port 22 ssh2",
		"sshd[1]: Accepted publickey for bob from 10.0.0.6 port 22 ssh2",
		"sshd[1]: pam_unix(sshd:session): session opened",
	}}
	ingestor := authlog.NewIngestor(logs, store, nil, authlog.Config{Service: "ssh", Lookback: time.Minute, MaxLines: 50}, nil)

	e, err := New(Options{Source: &fakeSource{snap: hostSnapshot()}, Store: store, Auth: ingestor})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	e.dirSize = func(string) (uint64, error) { return 0, nil }

	now := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := e.Tick(ctx, now.Add(time.Duration(i)*2*time.Second)); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	samples, err := store.CountSamples(ctx)
	if err != nil || samples != 3 {
		t.Fatalf("samples = %d, %v; want 3", samples, err)
	}

	// each poll stamps events with the wall clock, so rows only repeat
	// within one second; at most one set of rows per distinct second
	events, err := store.CountAuthEvents(ctx)
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events < 2 || events > 6 || int(events) != len(e.Snapshot().Events) {
		t.Fatalf("events = %d, in memory = %d", events, len(e.Snapshot().Events))
	}
}

type staticLog struct {
	lines []string
}

func (s *staticLog) Recent(ctx context.Context, service string, lookback time.Duration, limit int) ([]string, error) {
	return s.lines, nil
}

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{
		SourceUnavailable:  "source_unavailable",
		PersistenceFailure: "persistence_failure",
		ParseAnomaly:       "parse_anomaly",
		ClockAnomaly:       "clock_anomaly",
		Kind(0):            "unknown",
	} {
		if kind.String() != want {
			t.Fatalf("%d.String() = %s, want %s", kind, kind.String(), want)
		}
	}
}
