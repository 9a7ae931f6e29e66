package circuitbreaker

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

var errTestFailure = errors.New("test failure")

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg Config, clock *fakeClock) CircuitBreaker {
	cfg.now = clock.Now
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return New(cfg)
}

func fail() error    { return errTestFailure }
func succeed() error { return nil }

func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		expectedConfig Config
	}{
		{
			name:           "valid config",
			config:         Config{FailureThreshold: 3, Timeout: 10 * time.Second, HalfOpenRequests: 2},
			expectedConfig: Config{FailureThreshold: 3, Timeout: 10 * time.Second, HalfOpenRequests: 2},
		},
		{
			name:           "zero values use defaults",
			config:         Config{},
			expectedConfig: Config{FailureThreshold: 5, Timeout: 30 * time.Second, HalfOpenRequests: 1},
		},
		{
			name:           "partial defaults",
			config:         Config{FailureThreshold: 10},
			expectedConfig: Config{FailureThreshold: 10, Timeout: 30 * time.Second, HalfOpenRequests: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := New(tt.config)
			if cb.State() != StateClosed {
				t.Errorf("expected state CLOSED, got %s", cb.State())
			}

			br := cb.(*breaker)
			if br.config.FailureThreshold != tt.expectedConfig.FailureThreshold {
				t.Errorf("expected FailureThreshold %d, got %d",
					tt.expectedConfig.FailureThreshold, br.config.FailureThreshold)
			}
			if br.config.Timeout != tt.expectedConfig.Timeout {
				t.Errorf("expected Timeout %v, got %v",
					tt.expectedConfig.Timeout, br.config.Timeout)
			}
			if br.config.HalfOpenRequests != tt.expectedConfig.HalfOpenRequests {
				t.Errorf("expected HalfOpenRequests %d, got %d",
					tt.expectedConfig.HalfOpenRequests, br.config.HalfOpenRequests)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "CLOSED"},
		{StateOpen, "OPEN"},
		{StateHalfOpen, "HALF-OPEN"},
		{State(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestClosedToOpen(t *testing.T) {
	cb := newTestBreaker(Config{FailureThreshold: 3, Timeout: time.Minute}, newFakeClock())

	for i := 0; i < 2; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errTestFailure) {
			t.Fatalf("expected test failure, got %v", err)
		}
		if cb.State() != StateClosed {
			t.Fatalf("expected CLOSED after %d failures, got %s", i+1, cb.State())
		}
	}

	if err := cb.Execute(fail); !errors.Is(err, errTestFailure) {
		t.Fatalf("expected test failure, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN after threshold, got %s", cb.State())
	}
}

func TestOpenBlocksRequests(t *testing.T) {
	cb := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Minute}, newFakeClock())
	_ = cb.Execute(fail)

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("expected function not to run while OPEN")
	}
}

func TestOpenToHalfOpenToClosed(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Minute}, clock)
	_ = cb.Execute(fail)

	clock.Advance(59 * time.Second)
	if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen before timeout, got %v", err)
	}

	clock.Advance(time.Second)
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("expected trial request to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected CLOSED after successful trial, got %s", cb.State())
	}
}

func TestHalfOpenFailureToOpen(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Minute}, clock)
	_ = cb.Execute(fail)

	clock.Advance(time.Minute)
	if err := cb.Execute(fail); !errors.Is(err, errTestFailure) {
		t.Fatalf("expected test failure, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("expected OPEN after failed trial, got %s", cb.State())
	}

	// The cool-down restarts from the failed trial.
	clock.Advance(30 * time.Second)
	if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestHalfOpenRequestLimit(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Minute, HalfOpenRequests: 2}, clock)
	_ = cb.Execute(fail)
	clock.Advance(time.Minute)

	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("expected first trial to succeed, got %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected HALF-OPEN after one of two trials, got %s", cb.State())
	}
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("expected second trial to succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected CLOSED after all trials, got %s", cb.State())
	}
}

func TestHalfOpenRequestLimitExceeded(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Minute}, clock)
	_ = cb.Execute(fail)
	clock.Advance(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(succeed); !errors.Is(err, ErrHalfOpenLimitReached) {
		t.Errorf("expected ErrHalfOpenLimitReached, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("expected trial to succeed, got %v", err)
	}
}

func TestClosedSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(Config{FailureThreshold: 3}, newFakeClock())

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	_ = cb.Execute(succeed)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	if cb.State() != StateClosed {
		t.Errorf("expected CLOSED since failures were not consecutive, got %s", cb.State())
	}
}

func TestReset(t *testing.T) {
	cb := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Hour}, newFakeClock())
	_ = cb.Execute(fail)

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED after reset, got %s", cb.State())
	}
	if err := cb.Execute(succeed); err != nil {
		t.Errorf("expected request to pass after reset, got %v", err)
	}
}

func TestOnStateChange(t *testing.T) {
	clock := newFakeClock()

	var mu sync.Mutex
	var got []string
	cb := newTestBreaker(Config{
		Name:             "playlist",
		FailureThreshold: 1,
		Timeout:          time.Minute,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+from.String()+"->"+to.String())
		},
	}, clock)

	_ = cb.Execute(fail)
	clock.Advance(time.Minute)
	_ = cb.Execute(succeed)
	cb.Reset()

	want := []string{
		"playlist:CLOSED->OPEN",
		"playlist:OPEN->HALF-OPEN",
		"playlist:HALF-OPEN->CLOSED",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	cb := newTestBreaker(Config{FailureThreshold: 1000}, newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Execute(fail)
			} else {
				_ = cb.Execute(succeed)
			}
			_ = cb.State()
		}(i)
	}
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("expected CLOSED under threshold, got %s", cb.State())
	}
}
