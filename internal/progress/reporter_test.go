package progress

import (
	"testing"

	"tube-transcriber/internal/domain"
)

// TestReporterDeliversSnapshots verifies basic fan-out to two subscribers.
func TestReporterDeliversSnapshots(t *testing.T) {
	r := NewReporter()
	a, cancelA := mustSubscribe(t, r)
	b, cancelB := mustSubscribe(t, r)
	defer cancelA()
	defer cancelB()

	r.Publish(domain.Job{ID: "job-1", Status: domain.JobStatusAcquiring})

	for name, ch := range map[string]<-chan domain.Job{"a": a, "b": b} {
		got := <-ch
		if got.ID != "job-1" || got.Status != domain.JobStatusAcquiring {
			t.Fatalf("subscriber %s got %+v", name, got)
		}
	}
}

// mustSubscribe registers a subscriber and fails the test on a nil channel.
func mustSubscribe(t *testing.T, r *Reporter) (<-chan domain.Job, func()) {
	t.Helper()
	ch, cancel := r.Subscribe()
	if ch == nil {
		t.Fatal("nil subscription channel")
	}
	return ch, cancel
}

// TestReporterLastValueWins verifies a slow subscriber only observes the
// newest snapshot, never blocking the publisher.
func TestReporterLastValueWins(t *testing.T) {
	r := NewReporter()
	ch, cancel := r.Subscribe()
	defer cancel()

	for i := 0; i <= 100; i += 10 {
		r.Publish(domain.Job{ID: "job-1", Progress: domain.Progress{Acquisition: float64(i)}})
	}

	got := <-ch
	if got.Progress.Acquisition != 100 {
		t.Fatalf("acquisition progress = %v, want 100 (latest snapshot)", got.Progress.Acquisition)
	}

	select {
	case extra := <-ch:
		t.Fatalf("unexpected queued snapshot: %+v", extra)
	default:
	}
}

// TestReporterUnsubscribeClosesChannel verifies removal stops delivery.
func TestReporterUnsubscribeClosesChannel(t *testing.T) {
	r := NewReporter()
	ch, cancel := r.Subscribe()
	cancel()

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	r.Publish(domain.Job{ID: "job-1"})
}

// TestReporterClose verifies shutdown closes all subscriptions.
func TestReporterClose(t *testing.T) {
	r := NewReporter()
	ch, _ := r.Subscribe()
	r.Close()

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after reporter Close")
	}

	late, _ := r.Subscribe()
	if _, open := <-late; open {
		t.Fatal("subscribe after Close should return a closed channel")
	}
}
