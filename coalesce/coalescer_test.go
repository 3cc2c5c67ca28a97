package coalesce

import (
	"context"
	"errors"
	"learntube-api-go/cache"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCoalescer(t *testing.T, ttl time.Duration) *Coalescer[string] {
	t.Helper()
	return New(cache.NewStore[string]("audio", ttl), ttl)
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	c := newTestCoalescer(t, time.Minute)

	var calls atomic.Int32
	produce := func() (string, error) {
		calls.Add(1)
		return "https://stream.example/a", nil
	}

	v, src, err := c.GetOrCompute(context.Background(), "abc123", produce)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if src != SourceMiss {
		t.Errorf("Expected source %s, got %s", SourceMiss, src)
	}
	if v != "https://stream.example/a" {
		t.Errorf("Expected stream URL, got %q", v)
	}

	v, src, err = c.GetOrCompute(context.Background(), "abc123", produce)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if src != SourceHit {
		t.Errorf("Expected source %s, got %s", SourceHit, src)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected producer to run once, ran %d times", calls.Load())
	}
	if v != "https://stream.example/a" {
		t.Errorf("Expected cached stream URL, got %q", v)
	}
}

func TestGetOrCompute_SingleFlight(t *testing.T) {
	c := newTestCoalescer(t, time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	produce := func() (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = c.GetOrCompute(context.Background(), "abc123", produce)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected exactly 1 producer call, got %d", calls.Load())
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("Caller %d: unexpected error %v", i, errs[i])
		}
		if results[i] != "value" {
			t.Errorf("Caller %d: expected %q, got %q", i, "value", results[i])
		}
	}

	stats := c.Stats()
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
	if stats.Misses+stats.Hits+stats.Coalesced != callers {
		t.Errorf("Expected %d accounted callers, got %+v", callers, stats)
	}
}

func TestGetOrCompute_FailureNotCached(t *testing.T) {
	c := newTestCoalescer(t, time.Minute)
	errExtract := errors.New("extraction failed")

	var calls atomic.Int32
	release := make(chan struct{})
	failing := func() (string, error) {
		calls.Add(1)
		<-release
		return "", errExtract
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = c.GetOrCompute(context.Background(), "abc123", failing)
		}(i)
	}
	time.Sleep(30 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, errExtract) {
			t.Errorf("Caller %d: expected the shared failure, got %v", i, err)
		}
	}
	if _, ok := c.Peek("abc123"); ok {
		t.Error("Expected failure not to be cached")
	}

	// next request runs the producer again
	v, src, err := c.GetOrCompute(context.Background(), "abc123", func() (string, error) {
		calls.Add(1)
		return "recovered", nil
	})
	if err != nil || v != "recovered" || src != SourceMiss {
		t.Errorf("Expected fresh computation after failure, got %q %s %v", v, src, err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 producer calls, got %d", calls.Load())
	}
}

func TestGetOrCompute_DistinctIDsIndependent(t *testing.T) {
	c := newTestCoalescer(t, time.Minute)

	blockA := make(chan struct{})
	doneA := make(chan struct{})
	go func() {
		c.GetOrCompute(context.Background(), "aaa", func() (string, error) {
			<-blockA
			return "a", nil
		})
		close(doneA)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, _, err := c.GetOrCompute(ctx, "bbb", func() (string, error) { return "b", nil })
	if err != nil {
		t.Fatalf("Expected id bbb to complete while aaa is in flight, got %v", err)
	}
	if v != "b" {
		t.Errorf("Expected %q, got %q", "b", v)
	}

	close(blockA)
	<-doneA
}

func TestGetOrCompute_WaiterContextDoesNotCancelProducer(t *testing.T) {
	c := newTestCoalescer(t, time.Minute)

	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		c.GetOrCompute(context.Background(), "abc123", func() (string, error) {
			<-release
			defer close(finished)
			return "value", nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, src, err := c.GetOrCompute(ctx, "abc123", func() (string, error) {
		t.Error("Expected waiter not to start its own producer")
		return "", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded for the impatient waiter, got %v", err)
	}
	if src != "" {
		t.Errorf("Expected no source for an abandoned wait, got %q", src)
	}

	close(release)
	<-finished
	time.Sleep(10 * time.Millisecond)

	if v, ok := c.Peek("abc123"); !ok || v != "value" {
		t.Errorf("Expected shared result to be cached, got %q %v", v, ok)
	}

	st := c.Stats()
	if st.Misses != 1 || st.Coalesced != 0 || st.Hits != 0 {
		t.Errorf("Expected only the producer's miss to be counted, got %+v", st)
	}
}

func TestGetOrCompute_ExpiredEntryRecomputed(t *testing.T) {
	c := newTestCoalescer(t, 10*time.Millisecond)

	var calls atomic.Int32
	produce := func() (string, error) {
		calls.Add(1)
		return "value", nil
	}

	c.GetOrCompute(context.Background(), "abc123", produce)
	time.Sleep(25 * time.Millisecond)
	_, src, _ := c.GetOrCompute(context.Background(), "abc123", produce)

	if src != SourceMiss {
		t.Errorf("Expected expired entry to be recomputed, got %s", src)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 producer calls, got %d", calls.Load())
	}
}
