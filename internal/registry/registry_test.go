package registry

import (
	"sync"
	"testing"

	"tube-transcriber/internal/domain"
)

// recorder captures broadcast snapshots in order.
type recorder struct {
	mu   sync.Mutex
	jobs []domain.Job
}

func (r *recorder) Publish(job domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *recorder) all() []domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Job(nil), r.jobs...)
}

func testRef(t *testing.T, raw string) domain.SourceReference {
	t.Helper()
	ref, err := domain.ParseSourceReference(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return ref
}

// TestRegistryCreateAndGet verifies a fresh record starts pending.
func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry(nil)
	created := r.Create(testRef(t, "dQw4w9WgXcQ"))

	if created.ID == "" {
		t.Fatal("expected allocated id")
	}
	if created.Status != domain.JobStatusPending {
		t.Fatalf("status = %s, want pending", created.Status)
	}

	got, ok := r.Get(created.ID)
	if !ok {
		t.Fatal("job not found after create")
	}
	if got.Source.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("source video id = %q", got.Source.VideoID)
	}

	if _, ok := r.Get("missing"); ok {
		t.Fatal("lookup of unknown id should report not found")
	}
}

// TestRegistryUpdateBroadcasts verifies mutation commits and fans out.
func TestRegistryUpdateBroadcasts(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(rec)
	job := r.Create(testRef(t, "dQw4w9WgXcQ"))

	r.Update(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusAcquiring
		j.Progress.Acquisition = 25
	})

	got, _ := r.Get(job.ID)
	if got.Status != domain.JobStatusAcquiring || got.Progress.Acquisition != 25 {
		t.Fatalf("unexpected record after update: %+v", got)
	}

	broadcasts := rec.all()
	if len(broadcasts) != 1 {
		t.Fatalf("broadcast count = %d, want 1", len(broadcasts))
	}
	if broadcasts[0].Status != domain.JobStatusAcquiring {
		t.Fatalf("broadcast status = %s", broadcasts[0].Status)
	}
}

// TestRegistryUpdateUnknownIDIsNoOp verifies racing updates never panic.
func TestRegistryUpdateUnknownIDIsNoOp(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(rec)

	r.Update("no-such-job", func(j *domain.Job) {
		j.Status = domain.JobStatusFailed
	})

	if len(rec.all()) != 0 {
		t.Fatal("no broadcast expected for unknown id")
	}
}

// TestRegistrySnapshotsDoNotAlias verifies callers cannot mutate records.
func TestRegistrySnapshotsDoNotAlias(t *testing.T) {
	r := NewRegistry(nil)
	job := r.Create(testRef(t, "dQw4w9WgXcQ"))

	r.Update(job.ID, func(j *domain.Job) {
		j.Result = &domain.JobResult{TranscriptPath: "a.txt"}
	})

	got, _ := r.Get(job.ID)
	got.Result.TranscriptPath = "tampered.txt"
	got.Status = domain.JobStatusFailed

	fresh, _ := r.Get(job.ID)
	if fresh.Result.TranscriptPath != "a.txt" || fresh.Status != domain.JobStatusPending {
		t.Fatalf("registry state leaked through snapshot: %+v", fresh)
	}
}

// TestRegistryConcurrentUpdatesAreIsolated runs parallel mutations on two
// jobs and checks neither record bleeds into the other.
func TestRegistryConcurrentUpdatesAreIsolated(t *testing.T) {
	r := NewRegistry(&recorder{})
	a := r.Create(testRef(t, "aaaaaaaaaaa"))
	b := r.Create(testRef(t, "bbbbbbbbbbb"))

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(2)
		pct := float64(i)
		go func() {
			defer wg.Done()
			r.Update(a.ID, func(j *domain.Job) {
				if pct > j.Progress.Acquisition {
					j.Progress.Acquisition = pct
				}
			})
		}()
		go func() {
			defer wg.Done()
			r.Update(b.ID, func(j *domain.Job) {
				if pct > j.Progress.Transcription {
					j.Progress.Transcription = pct
				}
			})
		}()
	}
	wg.Wait()

	gotA, _ := r.Get(a.ID)
	gotB, _ := r.Get(b.ID)
	if gotA.Progress.Acquisition != 100 || gotA.Progress.Transcription != 0 {
		t.Fatalf("job a progress = %+v", gotA.Progress)
	}
	if gotB.Progress.Transcription != 100 || gotB.Progress.Acquisition != 0 {
		t.Fatalf("job b progress = %+v", gotB.Progress)
	}
}

// TestRegistryListOrdering verifies creation-time ordering of snapshots.
func TestRegistryListOrdering(t *testing.T) {
	r := NewRegistry(nil)
	first := r.Create(testRef(t, "aaaaaaaaaaa"))
	second := r.Create(testRef(t, "bbbbbbbbbbb"))

	jobs := r.List()
	if len(jobs) != 2 {
		t.Fatalf("list length = %d, want 2", len(jobs))
	}
	ids := map[string]bool{jobs[0].ID: true, jobs[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("list missing created jobs: %+v", jobs)
	}
	if jobs[0].CreatedAt.After(jobs[1].CreatedAt) {
		t.Fatal("list not ordered by creation time")
	}
}
