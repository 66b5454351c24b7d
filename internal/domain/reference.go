package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ValidationError reports a malformed source reference. It is the only
// failure a caller sees synchronously when submitting a job.
type ValidationError struct {
	Reference string
	Reason    string
}

// Error formats the validation failure for API responses.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid source reference %q: %s", e.Reference, e.Reason)
}

// videoIDPattern matches a canonical YouTube video identifier.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// SourceReference is a validated media locator. Raw preserves the caller's
// input; VideoID is the stable identifier extracted from it.
type SourceReference struct {
	Raw     string `json:"raw"`
	VideoID string `json:"videoId"`
}

// URL returns the canonical watch URL for the reference.
func (r SourceReference) URL() string {
	return "https://www.youtube.com/watch?v=" + r.VideoID
}

// ArtifactKey derives the deterministic filename stem used for intermediate
// and output artifacts: the video id plus a short digest of the canonical
// URL. The same reference always maps to the same key, which is what makes
// resubmission idempotent.
func (r SourceReference) ArtifactKey() string {
	sum := sha1.Sum([]byte(r.URL()))
	return r.VideoID + "-" + hex.EncodeToString(sum[:])[:8]
}

// ParseSourceReference validates a caller-supplied locator. Accepted forms:
// full watch URLs, youtu.be short links, shorts links, and bare video ids.
func ParseSourceReference(raw string) (SourceReference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SourceReference{}, &ValidationError{Reference: raw, Reason: "empty reference"}
	}

	if videoIDPattern.MatchString(trimmed) {
		return SourceReference{Raw: trimmed, VideoID: trimmed}, nil
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return SourceReference{}, &ValidationError{Reference: raw, Reason: "not a valid URL"}
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	var id string
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		switch {
		case parsed.Path == "/watch":
			id = parsed.Query().Get("v")
		case strings.HasPrefix(parsed.Path, "/shorts/"):
			id = strings.TrimPrefix(parsed.Path, "/shorts/")
		case strings.HasPrefix(parsed.Path, "/live/"):
			id = strings.TrimPrefix(parsed.Path, "/live/")
		case strings.HasPrefix(parsed.Path, "/embed/"):
			id = strings.TrimPrefix(parsed.Path, "/embed/")
		}
	case "youtu.be":
		id = strings.TrimPrefix(parsed.Path, "/")
	default:
		return SourceReference{}, &ValidationError{Reference: raw, Reason: "unsupported host"}
	}

	id = strings.Trim(id, "/")
	if !videoIDPattern.MatchString(id) {
		return SourceReference{}, &ValidationError{Reference: raw, Reason: "cannot extract a video id"}
	}

	return SourceReference{Raw: strings.TrimSpace(raw), VideoID: id}, nil
}
