package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "key-123")
	t.Setenv("TRANSCRIBER_DATA_DIR", "/data/transcriber")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("addr = %q", cfg.ListenAddr)
	}
	if cfg.Language != "pt" {
		t.Fatalf("language = %q", cfg.Language)
	}
	if cfg.AudioDir != filepath.Join("/data/transcriber", "audio") {
		t.Fatalf("audio dir = %q", cfg.AudioDir)
	}
	if cfg.TranscriptDir != filepath.Join("/data/transcriber", "transcripts") {
		t.Fatalf("transcript dir = %q", cfg.TranscriptDir)
	}
	if cfg.ToolPath != "yt-dlp" || cfg.FFmpegPath != "ffmpeg" {
		t.Fatalf("tool paths = %q %q", cfg.ToolPath, cfg.FFmpegPath)
	}
	if cfg.AcquireTimeout != 30*time.Minute || cfg.TranscribeTimeout != 120*time.Minute {
		t.Fatalf("timeouts = %s %s", cfg.AcquireTimeout, cfg.TranscribeTimeout)
	}
	if cfg.BrowserProfiles != nil {
		t.Fatalf("profiles should default to nil, got %v", cfg.BrowserProfiles)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ASSEMBLYAI_API_KEY", "key-123")
	t.Setenv("TRANSCRIBER_ADDR", "127.0.0.1:9000")
	t.Setenv("TRANSCRIBER_LANGUAGE", "en")
	t.Setenv("TRANSCRIBER_BROWSER_PROFILES", "firefox, brave,")
	t.Setenv("TRANSCRIBER_ACQUIRE_TIMEOUT_MIN", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:9000" || cfg.Language != "en" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.BrowserProfiles) != 2 || cfg.BrowserProfiles[0] != "firefox" || cfg.BrowserProfiles[1] != "brave" {
		t.Fatalf("profiles = %v", cfg.BrowserProfiles)
	}
	if cfg.AcquireTimeout != 5*time.Minute {
		t.Fatalf("acquire timeout = %s", cfg.AcquireTimeout)
	}
}

func TestEnvIntOrIgnoresGarbage(t *testing.T) {
	t.Setenv("TRANSCRIBER_TEST_INT", "not-a-number")
	if got := envIntOr("TRANSCRIBER_TEST_INT", 7); got != 7 {
		t.Fatalf("got %d, want default 7", got)
	}
}
