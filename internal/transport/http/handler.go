package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"tube-transcriber/internal/domain"
	"tube-transcriber/internal/jobs"
	"tube-transcriber/internal/store"
)

// JobService is the orchestration surface the handler exposes over HTTP.
type JobService interface {
	Submit(rawReference string) (domain.Job, error)
	Get(id string) (domain.Job, bool)
	List() []domain.Job
	Cancel(id string) error
}

// EventStream supplies the live job-update feed for streaming clients.
type EventStream interface {
	Subscribe() (<-chan domain.Job, func())
}

// TranscriptOpener serves finished transcript documents by file name.
type TranscriptOpener interface {
	OpenTranscript(name string) (*os.File, error)
}

type Handler struct {
	jobSvc   JobService
	events   EventStream
	objects  TranscriptOpener
	diagnose func() domain.DiagnosticReport
}

func NewHandler(jobSvc JobService, events EventStream, objects TranscriptOpener, diagnose func() domain.DiagnosticReport) *Handler {
	return &Handler{jobSvc: jobSvc, events: events, objects: objects, diagnose: diagnose}
}

type submitJobDTO struct {
	SourceURL string `json:"source_url"`
}

type progressResp struct {
	Acquisition   float64 `json:"acquisition"`
	Transcription float64 `json:"transcription"`
}

type resultResp struct {
	TranscriptPath        string `json:"transcript_path"`
	SpeakerTranscriptPath string `json:"speaker_transcript_path"`
}

type jobResp struct {
	ID        string           `json:"id"`
	VideoID   string           `json:"video_id"`
	SourceURL string           `json:"source_url"`
	Status    domain.JobStatus `json:"status"`
	Progress  progressResp     `json:"progress"`
	Result    *resultResp      `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt string           `json:"created_at"`
}

func toJobResp(j domain.Job) jobResp {
	resp := jobResp{
		ID:        j.ID,
		VideoID:   j.Source.VideoID,
		SourceURL: j.Source.URL(),
		Status:    j.Status,
		Progress: progressResp{
			Acquisition:   j.Progress.Acquisition,
			Transcription: j.Progress.Transcription,
		},
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
	if j.Result != nil {
		resp.Result = &resultResp{
			TranscriptPath:        j.Result.TranscriptPath,
			SpeakerTranscriptPath: j.Result.SpeakerTranscriptPath,
		}
	}
	return resp
}

func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var dto submitJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	job, err := h.jobSvc.Submit(dto.SourceURL)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeErr(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, "submission failed")
		return
	}

	writeJSON(w, http.StatusCreated, toJobResp(job))
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	all := h.jobSvc.List()
	resp := make([]jobResp, 0, len(all))
	for _, j := range all {
		resp = append(resp, toJobResp(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := h.jobSvc.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobResp(j))
}

func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	switch err := h.jobSvc.Cancel(id); {
	case errors.Is(err, jobs.ErrNotFound):
		writeErr(w, http.StatusNotFound, "job not found")
	case errors.Is(err, jobs.ErrNotRunning):
		writeErr(w, http.StatusConflict, "job is not running")
	case err != nil:
		writeErr(w, http.StatusInternalServerError, "cancel failed")
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

// StreamEvents pushes job snapshots as server-sent events until the client
// disconnects or the feed closes.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case job, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(toJobResp(job))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: job\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, err := h.objects.OpenTranscript(name)
	if err != nil {
		if errors.Is(err, store.ErrUnknownArtifact) {
			writeErr(w, http.StatusNotFound, "artifact not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "artifact unavailable")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	report := h.diagnose()
	code := http.StatusOK
	if report.HasFailures {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}
