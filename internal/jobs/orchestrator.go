package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"tube-transcriber/internal/domain"
	"tube-transcriber/internal/format"
	"tube-transcriber/internal/registry"
)

// Acquirer obtains a local audio artifact for a source reference.
type Acquirer interface {
	Acquire(ctx context.Context, ref domain.SourceReference, outputPath string, onProgress func(float64)) error
	ProbeTitle(ctx context.Context, ref domain.SourceReference) string
}

// TranscriptionClient is the remote speech-to-text service boundary.
type TranscriptionClient interface {
	Upload(ctx context.Context, audioPath string) (string, error)
	Submit(ctx context.Context, audioURL string) (string, error)
	AwaitCompletion(ctx context.Context, remoteID string, onProgress func(float64)) (domain.Transcript, error)
}

// ArtifactStore lays out and persists job artifacts.
type ArtifactStore interface {
	AudioPath(key string) string
	TranscriptPath(key string) string
	SpeakerTranscriptPath(key string) string
	TranscriptExists(key string) bool
	AudioExists(key string) bool
	SaveTranscripts(key, full, speakers string) error
	RemoveAudio(key string) error
}

// Options bound the two long-running stages. Zero values get defaults.
type Options struct {
	AcquireTimeout    time.Duration
	TranscribeTimeout time.Duration
}

const (
	defaultAcquireTimeout    = 30 * time.Minute
	defaultTranscribeTimeout = 2 * time.Hour
)

// Orchestrator drives each job through acquisition, transcription,
// formatting, persistence, and cleanup as an independent goroutine,
// committing every state change through the registry. One job's failure
// never touches another's record, and no error escapes a job task: every
// outcome funnels through a single exit point that writes either Completed
// or Failed.
type Orchestrator struct {
	registry *registry.Registry
	acquirer Acquirer
	client   TranscriptionClient
	store    ArtifactStore

	acquireTimeout    time.Duration
	transcribeTimeout time.Duration
	now               func() time.Time

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator wires the pipeline collaborators.
func NewOrchestrator(reg *registry.Registry, acquirer Acquirer, client TranscriptionClient, store ArtifactStore, opts Options) *Orchestrator {
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = defaultAcquireTimeout
	}
	if opts.TranscribeTimeout <= 0 {
		opts.TranscribeTimeout = defaultTranscribeTimeout
	}
	return &Orchestrator{
		registry:          reg,
		acquirer:          acquirer,
		client:            client,
		store:             store,
		acquireTimeout:    opts.AcquireTimeout,
		transcribeTimeout: opts.TranscribeTimeout,
		now:               time.Now,
		cancels:           make(map[string]context.CancelFunc),
	}
}

// Submit validates the reference, registers a pending job, and schedules
// its pipeline task. Validation is the only synchronous failure; the caller
// gets the pending snapshot back immediately.
func (o *Orchestrator) Submit(rawReference string) (domain.Job, error) {
	ref, err := domain.ParseSourceReference(rawReference)
	if err != nil {
		return domain.Job{}, err
	}

	job := o.registry.Create(ref)

	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(ctx, job)

	log.Printf("[jobs] job_id=%s video_id=%s status=submitted", job.ID, ref.VideoID)
	return job, nil
}

// Get returns one job snapshot.
func (o *Orchestrator) Get(id string) (domain.Job, bool) {
	return o.registry.Get(id)
}

// List returns snapshots of all jobs.
func (o *Orchestrator) List() []domain.Job {
	return o.registry.List()
}

// Cancel aborts a running job. The task observes the cancellation at its
// next suspension point and records the job as failed.
func (o *Orchestrator) Cancel(id string) error {
	if _, ok := o.registry.Get(id); !ok {
		return ErrNotFound
	}

	o.mu.Lock()
	cancel, running := o.cancels[id]
	o.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	cancel()
	return nil
}

// Shutdown waits for in-flight job tasks after cancelling them.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, cancel := range o.cancels {
		cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the per-job task. It terminates through exactly one exit point
// that always records the outcome; nothing propagates to any caller.
func (o *Orchestrator) run(ctx context.Context, job domain.Job) {
	defer o.wg.Done()
	defer o.clearCancel(job.ID)

	start := o.now()
	err := o.execute(ctx, job)
	if err != nil {
		o.fail(job.ID, err)
		log.Printf("[jobs] job_id=%s status=failed duration_ms=%d error=%v",
			job.ID, time.Since(start).Milliseconds(), err)
		return
	}
	log.Printf("[jobs] job_id=%s status=completed duration_ms=%d",
		job.ID, time.Since(start).Milliseconds())
}

// execute advances one job through the pipeline stages.
func (o *Orchestrator) execute(ctx context.Context, job domain.Job) error {
	key := job.Source.ArtifactKey()

	// Idempotency: a finished transcript for this key completes the job
	// without touching acquisition or transcription.
	if o.store.TranscriptExists(key) {
		log.Printf("[jobs] job_id=%s artifact_key=%s outcome=cached", job.ID, key)
		o.complete(job.ID, key)
		return nil
	}

	o.transition(job.ID, domain.JobStatusAcquiring)

	audioPath := o.store.AudioPath(key)
	if !o.store.AudioExists(key) {
		acquireCtx, cancel := context.WithTimeout(ctx, o.acquireTimeout)
		err := o.acquirer.Acquire(acquireCtx, job.Source, audioPath, func(pct float64) {
			o.setAcquisitionProgress(job.ID, pct)
		})
		cancel()
		if err != nil {
			return o.stageError("acquisition", o.acquireTimeout, err)
		}
	}
	if !o.store.AudioExists(key) {
		return &ArtifactMissingError{Path: audioPath}
	}
	o.setAcquisitionProgress(job.ID, 100)

	o.transition(job.ID, domain.JobStatusTranscribing)

	transcribeCtx, cancel := context.WithTimeout(ctx, o.transcribeTimeout)
	defer cancel()

	title := o.acquirer.ProbeTitle(transcribeCtx, job.Source)
	if title == "" {
		title = job.Source.VideoID
	}

	audioURL, err := o.client.Upload(transcribeCtx, audioPath)
	if err != nil {
		return o.stageError("transcription", o.transcribeTimeout, err)
	}
	remoteID, err := o.client.Submit(transcribeCtx, audioURL)
	if err != nil {
		return o.stageError("transcription", o.transcribeTimeout, err)
	}
	log.Printf("[jobs] job_id=%s remote_id=%s status=polling", job.ID, remoteID)

	transcript, err := o.client.AwaitCompletion(transcribeCtx, remoteID, func(pct float64) {
		o.setTranscriptionProgress(job.ID, pct)
	})
	if err != nil {
		return o.stageError("transcription", o.transcribeTimeout, err)
	}

	docs := format.Format(transcript, title, job.Source.URL(), o.now())
	if err := o.store.SaveTranscripts(key, docs.Full, docs.Speakers); err != nil {
		return err
	}

	// Intermediate audio removal is best effort: a stale artifact is a
	// disk-space concern, not a job failure.
	if err := o.store.RemoveAudio(key); err != nil {
		log.Printf("[jobs] job_id=%s cleanup_error=%v", job.ID, err)
	}

	o.complete(job.ID, key)
	return nil
}

// stageError maps context expiry onto the timeout/cancel taxonomy; other
// failures pass through untouched.
func (o *Orchestrator) stageError(stage string, limit time.Duration, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Stage: stage, Limit: limit}
	case errors.Is(err, context.Canceled):
		return ErrCancelled
	default:
		return err
	}
}

// transition advances the externally visible status. Invalid edges are
// dropped rather than applied: the visible status never moves backward.
func (o *Orchestrator) transition(id string, to domain.JobStatus) {
	o.registry.Update(id, func(j *domain.Job) {
		if isValidTransition(j.Status, to) {
			j.Status = to
		}
	})
}

// complete records the terminal success state with both artifact paths.
func (o *Orchestrator) complete(id, key string) {
	o.registry.Update(id, func(j *domain.Job) {
		if !isValidTransition(j.Status, domain.JobStatusCompleted) {
			return
		}
		j.Status = domain.JobStatusCompleted
		j.Progress = domain.Progress{Acquisition: 100, Transcription: 100}
		j.Result = &domain.JobResult{
			TranscriptPath:        o.store.TranscriptPath(key),
			SpeakerTranscriptPath: o.store.SpeakerTranscriptPath(key),
		}
	})
}

// fail records the terminal failure state with the task's error text.
func (o *Orchestrator) fail(id string, cause error) {
	o.registry.Update(id, func(j *domain.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = domain.JobStatusFailed
		j.Error = cause.Error()
	})
}

// setAcquisitionProgress commits a monotonic acquisition percentage.
func (o *Orchestrator) setAcquisitionProgress(id string, pct float64) {
	if pct < 0 || pct > 100 {
		return
	}
	o.registry.Update(id, func(j *domain.Job) {
		if pct > j.Progress.Acquisition {
			j.Progress.Acquisition = pct
		}
	})
}

// setTranscriptionProgress commits a monotonic transcription percentage.
func (o *Orchestrator) setTranscriptionProgress(id string, pct float64) {
	if pct < 0 || pct > 100 {
		return
	}
	o.registry.Update(id, func(j *domain.Job) {
		if pct > j.Progress.Transcription {
			j.Progress.Transcription = pct
		}
	})
}

// clearCancel drops the cancellation handle once a task finishes.
func (o *Orchestrator) clearCancel(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
		delete(o.cancels, id)
	}
}

// isValidTransition enforces the job state machine edges. Failed is
// reachable from every non-terminal state; nothing leaves a terminal state.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusPending:
		return to == domain.JobStatusAcquiring || to == domain.JobStatusCompleted || to == domain.JobStatusFailed
	case domain.JobStatusAcquiring:
		return to == domain.JobStatusTranscribing || to == domain.JobStatusFailed
	case domain.JobStatusTranscribing:
		return to == domain.JobStatusCompleted || to == domain.JobStatusFailed
	default:
		return false
	}
}
