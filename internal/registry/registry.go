package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tube-transcriber/internal/domain"
)

// Broadcaster receives a snapshot after every committed job update.
type Broadcaster interface {
	Publish(domain.Job)
}

// Registry is the authoritative in-memory store of job records. It
// exclusively owns the records: callers only ever see value snapshots, and
// mutation happens through Update, which also triggers the broadcast.
// Records live for the process lifetime; nothing is ever deleted.
type Registry struct {
	mu          sync.RWMutex
	jobs        map[string]*domain.Job
	broadcaster Broadcaster
}

// NewRegistry creates an empty registry. The broadcaster may be nil when no
// observer fan-out is needed (tests, tooling).
func NewRegistry(b Broadcaster) *Registry {
	return &Registry{
		jobs:        make(map[string]*domain.Job),
		broadcaster: b,
	}
}

// Create stores a new pending job for the given reference and returns its
// snapshot. Business validation of the reference happens before this call.
func (r *Registry) Create(source domain.SourceReference) domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := &domain.Job{
		ID:        uuid.NewString(),
		Source:    source,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	r.jobs[job.ID] = job
	return snapshot(job)
}

// Get returns a snapshot of one job.
func (r *Registry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return snapshot(job), true
}

// List returns snapshots of all jobs ordered by creation time.
func (r *Registry) List() []domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, snapshot(job))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Update applies a mutation atomically with respect to concurrent updates
// and hands the committed snapshot to the broadcaster. Updating an unknown
// id is a no-op: late updates from finished pipelines must never crash the
// process. Broadcasting happens under the lock so observers see per-job
// snapshots in commit order.
func (r *Registry) Update(id string, mutate func(*domain.Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return
	}

	mutate(job)
	if r.broadcaster != nil {
		r.broadcaster.Publish(snapshot(job))
	}
}

// snapshot copies a record so callers can never alias registry-owned state.
func snapshot(job *domain.Job) domain.Job {
	out := *job
	if job.Result != nil {
		result := *job.Result
		out.Result = &result
	}
	return out
}
