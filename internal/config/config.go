package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration, resolved once at startup from
// the environment with local defaults.
type Config struct {
	ListenAddr string

	APIKey   string
	Language string

	DataDir       string
	AudioDir      string
	TranscriptDir string

	ToolPath        string
	FFmpegPath      string
	BrowserProfiles []string

	AcquireTimeout    time.Duration
	TranscribeTimeout time.Duration
}

// Load resolves configuration from the environment. The transcription API
// key is the only required value.
func Load() (Config, error) {
	apiKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if apiKey == "" {
		return Config{}, fmt.Errorf("missing env: ASSEMBLYAI_API_KEY")
	}

	dataDir := envOr("TRANSCRIBER_DATA_DIR", defaultDataDir())

	cfg := Config{
		ListenAddr:        envOr("TRANSCRIBER_ADDR", ":8080"),
		APIKey:            apiKey,
		Language:          envOr("TRANSCRIBER_LANGUAGE", "pt"),
		DataDir:           dataDir,
		AudioDir:          filepath.Join(dataDir, "audio"),
		TranscriptDir:     filepath.Join(dataDir, "transcripts"),
		ToolPath:          envOr("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:        envOr("FFMPEG_PATH", "ffmpeg"),
		BrowserProfiles:   envListOr("TRANSCRIBER_BROWSER_PROFILES", nil),
		AcquireTimeout:    time.Duration(envIntOr("TRANSCRIBER_ACQUIRE_TIMEOUT_MIN", 30)) * time.Minute,
		TranscribeTimeout: time.Duration(envIntOr("TRANSCRIBER_TRANSCRIBE_TIMEOUT_MIN", 120)) * time.Minute,
	}
	return cfg, nil
}

// defaultDataDir places artifacts under the user's home directory.
func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".tube-transcriber")
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
