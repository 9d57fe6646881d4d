package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vidsplit/vidsplit/internal/logging"
)

type fakeRunner struct {
	doctorFn    func(ctx context.Context) (*Capabilities, error)
	doctorCalls int
}

func (f *fakeRunner) Invoke(ctx context.Context, req InvokeRequest) RunResult {
	return RunResult{}
}

func (f *fakeRunner) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRunner) Doctor(ctx context.Context) (*Capabilities, error) {
	f.doctorCalls++
	if f.doctorFn != nil {
		return f.doctorFn(ctx)
	}
	return &Capabilities{
		FFmpeg:   ToolInfo{Available: true, Version: "ffmpeg version 6.1"},
		FFprobe:  ToolInfo{Available: true, Version: "ffprobe version 6.1"},
		ProbedAt: time.Now(),
	}, nil
}

func TestCachedDoctor_CachesWithinTTL(t *testing.T) {
	fake := &fakeRunner{}
	doctor := NewCachedDoctor(fake, logging.NewNopLogger())

	ctx := context.Background()
	if _, err := doctor.Get(ctx); err != nil {
		t.Fatalf("first Get() error = %v", err)
	}
	if _, err := doctor.Get(ctx); err != nil {
		t.Fatalf("second Get() error = %v", err)
	}

	if fake.doctorCalls != 1 {
		t.Errorf("doctor probed %d times, want 1 (cached)", fake.doctorCalls)
	}
}

func TestCachedDoctor_ExpiredCacheReprobes(t *testing.T) {
	fake := &fakeRunner{}
	doctor := &CachedDoctor{runner: fake, ttl: time.Nanosecond, logger: logging.NewNopLogger()}

	ctx := context.Background()
	doctor.Get(ctx)
	time.Sleep(time.Millisecond)
	doctor.Get(ctx)

	if fake.doctorCalls != 2 {
		t.Errorf("doctor probed %d times, want 2 after TTL expiry", fake.doctorCalls)
	}
}

func TestCachedDoctor_RefreshForcesProbe(t *testing.T) {
	fake := &fakeRunner{}
	doctor := NewCachedDoctor(fake, logging.NewNopLogger())

	ctx := context.Background()
	doctor.Get(ctx)
	doctor.Refresh(ctx)

	if fake.doctorCalls != 2 {
		t.Errorf("doctor probed %d times, want 2 after Refresh", fake.doctorCalls)
	}
}

func TestCachedDoctor_StaleCacheOnError(t *testing.T) {
	healthy := &Capabilities{
		FFmpeg:   ToolInfo{Available: true},
		ProbedAt: time.Now(),
	}

	calls := 0
	fake := &fakeRunner{doctorFn: func(ctx context.Context) (*Capabilities, error) {
		calls++
		if calls == 1 {
			return healthy, nil
		}
		return nil, errors.New("probe blew up")
	}}

	doctor := &CachedDoctor{runner: fake, ttl: time.Nanosecond, logger: logging.NewNopLogger()}
	ctx := context.Background()

	doctor.Get(ctx)
	time.Sleep(time.Millisecond)

	caps, err := doctor.Get(ctx)
	if err != nil {
		t.Fatalf("Get() with stale cache error = %v", err)
	}
	if caps != healthy {
		t.Errorf("expected stale capabilities to be returned on probe failure")
	}
}

func TestCachedDoctor_ErrorWithNoCache(t *testing.T) {
	fake := &fakeRunner{doctorFn: func(ctx context.Context) (*Capabilities, error) {
		return nil, errors.New("probe blew up")
	}}
	doctor := NewCachedDoctor(fake, logging.NewNopLogger())

	if _, err := doctor.Get(context.Background()); err == nil {
		t.Error("expected error when probe fails with empty cache")
	}
}

func TestCachedDoctor_Peek(t *testing.T) {
	fake := &fakeRunner{}
	doctor := NewCachedDoctor(fake, logging.NewNopLogger())

	if doctor.Peek() != nil {
		t.Error("Peek() before any probe should be nil")
	}

	doctor.Get(context.Background())
	if doctor.Peek() == nil {
		t.Error("Peek() after Get should return cached capabilities")
	}
	if fake.doctorCalls != 1 {
		t.Errorf("Peek must not probe, calls = %d", fake.doctorCalls)
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("ffmpeg version 6.1\nbuilt with gcc\n"); got != "ffmpeg version 6.1" {
		t.Errorf("firstLine = %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Errorf("firstLine single = %q", got)
	}
}
