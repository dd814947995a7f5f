package pagetimeout_test

import (
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/parsing/pagetimeout"
)

func TestTimeoutDefaultsWhenEmpty(t *testing.T) {
	m := pagetimeout.New()
	if got := m.Timeout(); got != pagetimeout.DefaultTimeout {
		t.Fatalf("Timeout = %v", got)
	}
	if m.SlowMode() {
		t.Fatal("empty model cannot be slow")
	}
	if got := m.SuggestedParallelism(4); got != 4 {
		t.Fatalf("SuggestedParallelism = %d", got)
	}
}

func TestTimeoutFromSamples(t *testing.T) {
	m := pagetimeout.New()
	for _, s := range []int{10, 12, 11} {
		m.Record(time.Duration(s) * time.Second)
	}
	got := m.Timeout()
	if got < 15*time.Second || got > 40*time.Second {
		t.Fatalf("Timeout = %v, want within [15s, 40s]", got)
	}
	// 11s*2.5 + 2*0.816s + 5s
	if got < 34*time.Second || got > 35*time.Second {
		t.Fatalf("Timeout = %v, want about 34.1s", got)
	}
	if got := m.SuggestedParallelism(4); got != 8 {
		t.Fatalf("fast pages should double parallelism, got %d", got)
	}
}

func TestTimeoutClamped(t *testing.T) {
	m := pagetimeout.New()
	m.Record(time.Millisecond)
	if got := m.Timeout(); got != pagetimeout.MinTimeout {
		t.Fatalf("Timeout = %v, want floor", got)
	}

	m.Reset()
	for range 3 {
		m.Record(10 * time.Minute)
	}
	if got := m.Timeout(); got != pagetimeout.MaxTimeout {
		t.Fatalf("Timeout = %v, want ceiling", got)
	}
	if !m.SlowMode() {
		t.Fatal("expected slow mode")
	}
	if got := m.SuggestedParallelism(4); got != 2 {
		t.Fatalf("slow mode should halve parallelism, got %d", got)
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	m := pagetimeout.New()
	for range pagetimeout.WindowSize {
		m.Record(100 * time.Second)
	}
	for range pagetimeout.WindowSize {
		m.Record(time.Second)
	}
	st := m.Stats()
	if st.WindowMean != time.Second {
		t.Fatalf("window mean = %v, old samples not evicted", st.WindowMean)
	}
	if st.Requests != 2*pagetimeout.WindowSize || st.Max != 100*time.Second || st.Min != time.Second {
		t.Fatalf("lifetime stats = %+v", st)
	}
}

func TestConcurrentRecord(t *testing.T) {
	m := pagetimeout.New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(time.Duration(i+1) * time.Millisecond)
			_ = m.Timeout()
		}()
	}
	wg.Wait()
	if m.Stats().Requests != 50 {
		t.Fatalf("requests = %d", m.Stats().Requests)
	}
}
