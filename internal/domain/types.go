package domain

import "time"

// JobStatus tracks the externally visible lifecycle of a transcription job.
type JobStatus string

const (
	JobStatusPending      JobStatus = "pending"
	JobStatusAcquiring    JobStatus = "acquiring"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusFailed       JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Progress holds per-stage completion percentages in [0,100].
// Each value is monotonically non-decreasing within its stage.
type Progress struct {
	Acquisition   float64 `json:"acquisition"`
	Transcription float64 `json:"transcription"`
}

// JobResult points at the two persisted transcript documents.
type JobResult struct {
	TranscriptPath        string `json:"transcriptPath"`
	SpeakerTranscriptPath string `json:"speakerTranscriptPath"`
}

// Job is one end-to-end request to acquire, transcribe, and format a
// media source. Records are owned by the registry; everything else works
// on value snapshots.
type Job struct {
	ID        string          `json:"id"`
	Source    SourceReference `json:"source"`
	Status    JobStatus       `json:"status"`
	Progress  Progress        `json:"progress"`
	Result    *JobResult      `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
