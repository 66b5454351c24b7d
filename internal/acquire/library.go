package acquire

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kkdai/youtube/v2"

	"tube-transcriber/internal/domain"
)

// mediaLibrary is the self-contained download path: no subprocess, no
// session data.
type mediaLibrary interface {
	Download(ctx context.Context, url string, w io.Writer, onProgress func(float64)) error
}

// DirectLibraryStrategy is the last-resort acquisition path. It downloads
// the raw audio stream through an embedded client library and extracts mp3
// with ffmpeg, bypassing the acquisition tool entirely.
type DirectLibraryStrategy struct {
	FFmpeg  string
	library mediaLibrary
	runner  commandRunner
}

// NewDirectLibraryStrategy builds the production fallback strategy.
func NewDirectLibraryStrategy(ffmpegPath string) *DirectLibraryStrategy {
	return &DirectLibraryStrategy{
		FFmpeg:  ffmpegPath,
		library: &youtubeLibrary{client: &youtube.Client{}},
		runner:  &execRunner{},
	}
}

func (s *DirectLibraryStrategy) Name() string { return "direct-library" }

func (s *DirectLibraryStrategy) Attempt(ctx context.Context, ref domain.SourceReference, outputPath string, onProgress func(float64)) error {
	rawPath := outputPath + ".part"
	raw, err := os.Create(rawPath)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	defer os.Remove(rawPath)

	downloadErr := s.library.Download(ctx, ref.URL(), raw, onProgress)
	closeErr := raw.Close()
	if downloadErr != nil {
		return fmt.Errorf("library download: %w", downloadErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close download file: %w", closeErr)
	}

	ffmpeg := s.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", rawPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		outputPath,
	}
	result, err := s.runner.Run(ctx, nil, ffmpeg, args...)
	if err != nil {
		return fmt.Errorf("audio extraction exited with code %d: %s", result.ExitCode, tailOf(result.Stderr, 300))
	}
	return nil
}

// youtubeLibrary adapts the embedded client library to mediaLibrary.
type youtubeLibrary struct {
	client *youtube.Client
}

func (l *youtubeLibrary) Download(ctx context.Context, url string, w io.Writer, onProgress func(float64)) error {
	video, err := l.client.GetVideoContext(ctx, url)
	if err != nil {
		return err
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return fmt.Errorf("no audio formats available")
	}
	best := formats[0]
	for _, f := range formats[1:] {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	stream, size, err := l.client.GetStreamContext(ctx, video, &best)
	if err != nil {
		return err
	}
	defer stream.Close()

	if size > 0 && onProgress != nil {
		w = io.MultiWriter(w, &progressWriter{total: size, onProgress: onProgress})
	}
	_, err = io.Copy(w, stream)
	return err
}

// progressWriter maps bytes written to completion percentage callbacks.
type progressWriter struct {
	total      int64
	written    int64
	onProgress func(float64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	pct := float64(p.written) / float64(p.total) * 100
	if pct > 100 {
		pct = 100
	}
	p.onProgress(pct)
	return len(b), nil
}
