package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"tube-transcriber/internal/domain"
)

const (
	prodAPIURL = "https://api.assemblyai.com/v2"

	defaultPollInterval  = 3 * time.Second
	defaultRetryInterval = 5 * time.Second

	// minProgressDelta suppresses noisy remote progress updates.
	minProgressDelta = 1.0
)

// SubmitError reports a failure while uploading audio or creating the remote
// job. It is fatal to the local job.
type SubmitError struct {
	Op  string
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("transcription submit (%s): %v", e.Op, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// RemoteError carries a terminal failure reported by the service itself.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "transcription service reported error: " + e.Message
}

// Client talks to the asynchronous transcription API: upload a local audio
// file, create a remote transcription job, and poll it to completion.
type Client struct {
	baseURL       string
	apiKey        string
	language      string
	httpClient    *http.Client
	pollInterval  time.Duration
	retryInterval time.Duration
}

// NewClient builds a production client with fixed transcription options:
// speaker attribution enabled and one target language.
func NewClient(apiKey, language string) *Client {
	return &Client{
		baseURL:       prodAPIURL,
		apiKey:        apiKey,
		language:      language,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		pollInterval:  defaultPollInterval,
		retryInterval: defaultRetryInterval,
	}
}

// NewClientForTests builds a client against a test server with short
// polling intervals.
func NewClientForTests(baseURL, apiKey, language string, httpClient *http.Client, pollInterval, retryInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		language:      language,
		httpClient:    httpClient,
		pollInterval:  pollInterval,
		retryInterval: retryInterval,
	}
}

// uploadResponse is the payload returned by the upload endpoint.
type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// submitRequest creates one remote transcription job.
type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	LanguageCode  string `json:"language_code"`
}

// transcriptPayload is the remote job document. Fields are explicitly tagged
// so malformed responses fail decoding instead of propagating blanks.
type transcriptPayload struct {
	ID                 string             `json:"id"`
	Status             string             `json:"status"`
	Text               string             `json:"text"`
	AudioDuration      int                `json:"audio_duration"`
	PercentageComplete float64            `json:"percentage_complete"`
	Error              string             `json:"error"`
	Utterances         []utterancePayload `json:"utterances"`
	Words              []wordPayload      `json:"words"`
}

type utterancePayload struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

type wordPayload struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// apiError is the service's structured failure body.
type apiError struct {
	Error string `json:"error"`
}

// Upload streams a local audio file to the service and returns the
// addressable audio URL for submission.
func (c *Client) Upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", &SubmitError{Op: "open audio", Err: err}
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", f)
	if err != nil {
		return "", &SubmitError{Op: "upload", Err: err}
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", &SubmitError{Op: "upload", Err: err}
	}
	if resp.UploadURL == "" {
		return "", &SubmitError{Op: "upload", Err: fmt.Errorf("service returned no upload URL")}
	}
	return resp.UploadURL, nil
}

// Submit creates the remote transcription job and returns its opaque id.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(submitRequest{
		AudioURL:      audioURL,
		SpeakerLabels: true,
		LanguageCode:  c.language,
	})
	if err != nil {
		return "", &SubmitError{Op: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", &SubmitError{Op: "submit", Err: err}
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var resp transcriptPayload
	if err := c.do(req, &resp); err != nil {
		return "", &SubmitError{Op: "submit", Err: err}
	}
	if resp.ID == "" {
		return "", &SubmitError{Op: "submit", Err: fmt.Errorf("service returned no job id")}
	}
	return resp.ID, nil
}

// AwaitCompletion polls the remote job until it reaches a terminal state. A
// completed job yields the transcript and a final 100%% progress report; an
// explicit error status raises RemoteError. Transient poll failures are
// logged and retried after a longer back-off for as long as the context
// allows — the caller owns the overall deadline.
func (c *Client) AwaitCompletion(ctx context.Context, remoteID string, onProgress func(float64)) (domain.Transcript, error) {
	lastReported := -1.0

	for {
		payload, err := c.getTranscript(ctx, remoteID)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Transcript{}, ctx.Err()
			}
			log.Printf("[transcribe] remote_id=%s poll_error=%v retry_in=%s", remoteID, err, c.retryInterval)
			if err := sleepContext(ctx, c.retryInterval); err != nil {
				return domain.Transcript{}, err
			}
			continue
		}

		switch payload.Status {
		case "completed":
			if onProgress != nil {
				onProgress(100)
			}
			return payload.toDomain(), nil
		case "error":
			return domain.Transcript{}, &RemoteError{Message: payload.Error}
		default:
			pct := payload.PercentageComplete
			if pct >= 0 && pct <= 100 && pct-lastReported >= minProgressDelta {
				lastReported = pct
				if onProgress != nil {
					onProgress(pct)
				}
			}
			if err := sleepContext(ctx, c.pollInterval); err != nil {
				return domain.Transcript{}, err
			}
		}
	}
}

// getTranscript fetches the current remote job document.
func (c *Client) getTranscript(ctx context.Context, remoteID string) (transcriptPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+remoteID, nil)
	if err != nil {
		return transcriptPayload{}, err
	}
	req.Header.Set("Authorization", c.apiKey)

	var payload transcriptPayload
	if err := c.do(req, &payload); err != nil {
		return transcriptPayload{}, err
	}
	if payload.ID == "" || payload.Status == "" {
		return transcriptPayload{}, fmt.Errorf("malformed transcript payload for %s", remoteID)
	}
	return payload, nil
}

// do executes one API request and decodes the response, converting non-2xx
// bodies into errors.
func (c *Client) do(req *http.Request, v any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("status %d: %s", res.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("status %d: %s", res.StatusCode, bytes.TrimSpace(body))
	}

	if v != nil {
		return json.Unmarshal(body, v)
	}
	return nil
}

// toDomain converts the wire payload into the boundary transcript type.
func (p transcriptPayload) toDomain() domain.Transcript {
	t := domain.Transcript{
		RemoteID:   p.ID,
		Text:       p.Text,
		DurationMS: p.AudioDuration,
	}
	for _, u := range p.Utterances {
		t.Utterances = append(t.Utterances, domain.Utterance{
			Speaker: u.Speaker,
			Text:    u.Text,
			Start:   u.Start,
			End:     u.End,
		})
	}
	for _, w := range p.Words {
		t.Words = append(t.Words, domain.Word{Text: w.Text, Start: w.Start, End: w.End})
	}
	return t
}

// sleepContext waits for the duration unless the context ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
