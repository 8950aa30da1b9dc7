package db

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type fakePurger struct {
	mu      sync.Mutex
	calls   int
	cutoffs []time.Time
	removed int64
	err     error
}

func (f *fakePurger) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.removed, f.err
}

func (f *fakePurger) snapshot() (int, []time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]time.Time(nil), f.cutoffs...)
}

// syncBuffer guards a bytes.Buffer written from the cleaner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newBufferLogger(level zapcore.Level) (*zap.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(buf),
		level,
	)
	return zap.New(core), buf
}

func TestStartStorageCleaner_Success(t *testing.T) {
	p := &fakePurger{removed: 3}
	logger, buf := newBufferLogger(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := time.Now()
	StartStorageCleaner(ctx, p, 10*time.Millisecond, time.Hour, logger)

	time.Sleep(200 * time.Millisecond)
	cancel()

	calls, cutoffs := p.snapshot()
	if calls == 0 {
		t.Fatal("purger was never called")
	}
	if got := cutoffs[0]; got.After(before.Add(-time.Hour).Add(time.Second)) || got.Before(before.Add(-time.Hour).Add(-time.Second)) {
		t.Errorf("cutoff %v not about one hour before %v", got, before)
	}
	if !strings.Contains(buf.String(), "cleaned expired storage entries") {
		t.Errorf("expected info log, got:\n%s", buf.String())
	}
}

func TestStartStorageCleaner_ErrorLogged(t *testing.T) {
	p := &fakePurger{err: fmt.Errorf("db fail")}
	logger, buf := newBufferLogger(zapcore.ErrorLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartStorageCleaner(ctx, p, 10*time.Millisecond, time.Hour, logger)

	time.Sleep(200 * time.Millisecond)
	cancel()

	out := buf.String()
	if !strings.Contains(out, "failed to clean expired storage entries") {
		t.Errorf("expected error log, got:\n%s", out)
	}
}

func TestStartStorageCleaner_CancelBeforeTicker(t *testing.T) {
	p := &fakePurger{}
	ctx, cancel := context.WithCancel(context.Background())

	StartStorageCleaner(ctx, p, time.Second, time.Hour, zap.NewNop())
	cancel()

	time.Sleep(50 * time.Millisecond)

	if calls, _ := p.snapshot(); calls != 0 {
		t.Errorf("expected no purge after cancel, got %d", calls)
	}
}
