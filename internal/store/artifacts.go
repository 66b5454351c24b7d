package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PersistenceError reports a failed artifact write.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist artifact %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrUnknownArtifact is returned when serving a name outside the transcript
// collection.
var ErrUnknownArtifact = errors.New("unknown artifact")

const speakerSuffix = "_speakers"

// Store lays out the two on-disk artifact collections: intermediate audio
// and persisted transcript documents. File names derive deterministically
// from a job's artifact key, which is what the idempotency check relies on.
type Store struct {
	audioDir      string
	transcriptDir string
}

// New creates a store over the given collection directories.
func New(audioDir, transcriptDir string) *Store {
	return &Store{audioDir: audioDir, transcriptDir: transcriptDir}
}

// EnsureDirs creates both collection directories.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.audioDir, s.transcriptDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact directory %s: %w", dir, err)
		}
	}
	return nil
}

// AudioPath is where the acquisition chain must place extracted audio.
func (s *Store) AudioPath(key string) string {
	return filepath.Join(s.audioDir, key+".mp3")
}

// TranscriptPath is the full annotated document location.
func (s *Store) TranscriptPath(key string) string {
	return filepath.Join(s.transcriptDir, key+".txt")
}

// SpeakerTranscriptPath is the speaker-grouped document location.
func (s *Store) SpeakerTranscriptPath(key string) string {
	return filepath.Join(s.transcriptDir, key+speakerSuffix+".txt")
}

// TranscriptExists reports whether both output documents are already
// persisted for the key.
func (s *Store) TranscriptExists(key string) bool {
	for _, path := range []string{s.TranscriptPath(key), s.SpeakerTranscriptPath(key)} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// AudioExists reports whether the intermediate audio artifact is present.
func (s *Store) AudioExists(key string) bool {
	_, err := os.Stat(s.AudioPath(key))
	return err == nil
}

// SaveTranscripts persists both documents. Either write failing surfaces as
// a PersistenceError.
func (s *Store) SaveTranscripts(key, full, speakers string) error {
	if err := os.MkdirAll(s.transcriptDir, 0o755); err != nil {
		return &PersistenceError{Path: s.transcriptDir, Err: err}
	}

	writes := []struct {
		path string
		body string
	}{
		{s.TranscriptPath(key), full},
		{s.SpeakerTranscriptPath(key), speakers},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, []byte(w.body), 0o644); err != nil {
			return &PersistenceError{Path: w.path, Err: err}
		}
	}
	return nil
}

// RemoveAudio deletes the intermediate audio artifact.
func (s *Store) RemoveAudio(key string) error {
	return os.Remove(s.AudioPath(key))
}

// OpenTranscript resolves a persisted document by bare file name for the
// boundary layer. Names with path separators or traversal segments are
// rejected before touching the filesystem.
func (s *Store) OpenTranscript(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil, ErrUnknownArtifact
	}
	if filepath.Ext(name) != ".txt" {
		return nil, ErrUnknownArtifact
	}

	f, err := os.Open(filepath.Join(s.transcriptDir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrUnknownArtifact
		}
		return nil, err
	}
	return f, nil
}
