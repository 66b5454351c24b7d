package acquire

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tube-transcriber/internal/domain"
)

// ExhaustedError reports that every acquisition strategy failed. The last
// strategy's error text is kept for diagnostics.
type ExhaustedError struct {
	Last error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return "all acquisition strategies failed"
	}
	return fmt.Sprintf("all acquisition strategies failed, last error: %v", e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Strategy is one method of obtaining local audio from a source reference.
// An attempt succeeds only if the strategy returns nil AND the expected
// output artifact exists afterward; the chain enforces the second half.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, ref domain.SourceReference, outputPath string, onProgress func(float64)) error
}

// Config selects the external tools and session sources for the chain.
type Config struct {
	ToolPath        string
	FFmpegPath      string
	BrowserProfiles []string
	HarvestTimeout  time.Duration
}

// Chain tries a fixed, ordered list of strategies and stops at the first one
// that both reports success and produces the output artifact. Individual
// strategy failures are swallowed here; only full exhaustion surfaces.
type Chain struct {
	strategies []Strategy
	runner     commandRunner
	toolPath   string
	stat       func(string) (os.FileInfo, error)
}

// NewChain builds the production strategy order: direct, freshly harvested
// browser session, installed-browser sessions with a relaxed final retry,
// and the self-contained library fallback.
func NewChain(cfg Config) *Chain {
	runner := &execRunner{}
	profiles := cfg.BrowserProfiles
	if len(profiles) == 0 {
		profiles = []string{"chrome", "chromium", "brave", "firefox", "edge"}
	}
	harvestTimeout := cfg.HarvestTimeout
	if harvestTimeout <= 0 {
		harvestTimeout = 90 * time.Second
	}

	return &Chain{
		strategies: []Strategy{
			&DirectStrategy{Tool: cfg.ToolPath, FFmpeg: cfg.FFmpegPath, runner: runner},
			&HarvestedSessionStrategy{
				Tool:      cfg.ToolPath,
				FFmpeg:    cfg.FFmpegPath,
				runner:    runner,
				harvester: &chromedpHarvester{timeout: harvestTimeout},
			},
			&InstalledBrowserStrategy{Tool: cfg.ToolPath, FFmpeg: cfg.FFmpegPath, Profiles: profiles, runner: runner},
			NewDirectLibraryStrategy(cfg.FFmpegPath),
		},
		runner:   runner,
		toolPath: cfg.ToolPath,
		stat:     os.Stat,
	}
}

// NewChainForTests builds a chain over injected strategies.
func NewChainForTests(stat func(string) (os.FileInfo, error), strategies ...Strategy) *Chain {
	if stat == nil {
		stat = os.Stat
	}
	return &Chain{strategies: strategies, stat: stat}
}

// Acquire runs the chain for one reference. Progress callbacks carry raw
// percentage tokens from whichever strategy is currently active.
func (c *Chain) Acquire(ctx context.Context, ref domain.SourceReference, outputPath string, onProgress func(float64)) error {
	var lastErr error

	for _, s := range c.strategies {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := s.Attempt(ctx, ref, outputPath, onProgress)
		if err == nil {
			if _, statErr := c.stat(outputPath); statErr == nil {
				log.Printf("[acquire] video_id=%s strategy=%s outcome=success", ref.VideoID, s.Name())
				return nil
			}
			lastErr = fmt.Errorf("strategy %s reported success but produced no output artifact", s.Name())
			log.Printf("[acquire] video_id=%s strategy=%s outcome=missing_artifact", ref.VideoID, s.Name())
			continue
		}

		lastErr = err
		log.Printf("[acquire] video_id=%s strategy=%s outcome=failed error=%v", ref.VideoID, s.Name(), err)
	}

	return &ExhaustedError{Last: lastErr}
}

// ProbeTitle asks the acquisition tool for the media title without
// downloading anything. Best effort: an empty string means the caller should
// fall back to the video id.
func (c *Chain) ProbeTitle(ctx context.Context, ref domain.SourceReference) string {
	if c.runner == nil || c.toolPath == "" {
		return ""
	}

	var title string
	args := []string{"--skip-download", "--no-warnings", "--no-playlist", "--print", "title", ref.URL()}
	_, err := c.runner.Run(ctx, func(line string) {
		if title == "" {
			title = strings.TrimSpace(line)
		}
	}, c.toolPath, args...)
	if err != nil {
		return ""
	}
	return title
}
