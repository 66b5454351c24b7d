package acquire

import (
	"context"
	"fmt"

	"tube-transcriber/internal/domain"
)

// downloadArgs builds the acquisition tool invocation for mp3 extraction to
// a fixed output path. Extra flags are appended after the common set.
func downloadArgs(ffmpegPath, outputPath, url string, extra ...string) []string {
	args := []string{
		"--newline",
		"--no-warnings",
		"--no-playlist",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
	}
	if ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", ffmpegPath)
	}
	args = append(args, extra...)
	args = append(args, "-o", outputPath, url)
	return args
}

// runDownload executes one tool invocation, forwarding percentage tokens
// from its streaming output.
func runDownload(ctx context.Context, runner commandRunner, tool string, onProgress func(float64), args []string) error {
	result, err := runner.Run(ctx, func(line string) {
		if pct, ok := parsePercent(line); ok && onProgress != nil {
			onProgress(pct)
		}
	}, tool, args...)
	if err != nil {
		return fmt.Errorf("%s exited with code %d: %s", tool, result.ExitCode, tailOf(result.Stderr, 300))
	}
	return nil
}

// DirectStrategy invokes the acquisition tool with no authentication
// context. It is the cheapest attempt and the first in the chain.
type DirectStrategy struct {
	Tool   string
	FFmpeg string
	runner commandRunner
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Attempt(ctx context.Context, ref domain.SourceReference, outputPath string, onProgress func(float64)) error {
	return runDownload(ctx, s.runner, s.Tool, onProgress, downloadArgs(s.FFmpeg, outputPath, ref.URL()))
}

// InstalledBrowserStrategy iterates a fixed list of installed browser
// profiles, pointing the tool at each browser's stored session, and falls
// through to one relaxed no-cookie attempt when every profile is exhausted.
type InstalledBrowserStrategy struct {
	Tool     string
	FFmpeg   string
	Profiles []string
	runner   commandRunner
}

func (s *InstalledBrowserStrategy) Name() string { return "installed-browsers" }

func (s *InstalledBrowserStrategy) Attempt(ctx context.Context, ref domain.SourceReference, outputPath string, onProgress func(float64)) error {
	var lastErr error

	for _, profile := range s.Profiles {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		args := downloadArgs(s.FFmpeg, outputPath, ref.URL(), "--cookies-from-browser", profile)
		if err := runDownload(ctx, s.runner, s.Tool, onProgress, args); err != nil {
			lastErr = fmt.Errorf("profile %s: %w", profile, err)
			continue
		}
		return nil
	}

	// Final no-cookie attempt with relaxed network and geo options.
	args := downloadArgs(s.FFmpeg, outputPath, ref.URL(), "--geo-bypass", "--force-ipv4")
	if err := runDownload(ctx, s.runner, s.Tool, onProgress, args); err != nil {
		if lastErr != nil {
			return fmt.Errorf("relaxed attempt: %w (after %v)", err, lastErr)
		}
		return fmt.Errorf("relaxed attempt: %w", err)
	}
	return nil
}
