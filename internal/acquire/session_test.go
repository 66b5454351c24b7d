package acquire

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"tube-transcriber/internal/domain"
)

// fakeRunner records invocations and scripts stdout lines.
type fakeRunner struct {
	run   func(ctx context.Context, onLine func(string), name string, args ...string) (commandResult, error)
	calls [][]string
}

func (f *fakeRunner) Run(ctx context.Context, onLine func(string), name string, args ...string) (commandResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, onLine, name, args...)
}

// fakeHarvester returns a scripted cookie set.
type fakeHarvester struct {
	cookies []SessionCookie
	err     error
}

func (f *fakeHarvester) Harvest(ctx context.Context, url string) ([]SessionCookie, error) {
	return f.cookies, f.err
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// TestHarvestedSessionPassesAndCleansCookieFile verifies the cookie file is
// handed to the tool during the run and removed on every exit path.
func TestHarvestedSessionPassesAndCleansCookieFile(t *testing.T) {
	var cookiePathDuringRun string
	var contentDuringRun string

	runner := &fakeRunner{
		run: func(ctx context.Context, onLine func(string), name string, args ...string) (commandResult, error) {
			cookiePathDuringRun = argValue(args, "--cookies")
			body, err := os.ReadFile(cookiePathDuringRun)
			if err != nil {
				t.Errorf("cookie file unreadable during run: %v", err)
			}
			contentDuringRun = string(body)
			onLine("[download]  55.0% of 1MiB")
			return commandResult{}, nil
		},
	}

	s := &HarvestedSessionStrategy{
		Tool:   "yt-dlp",
		runner: runner,
		harvester: &fakeHarvester{cookies: []SessionCookie{
			{Name: "SID", Value: "abc123", Domain: ".youtube.com", Path: "/", Expires: 1893456000, Secure: true},
			{Name: "HSID", Value: "xyz", Domain: ".youtube.com", HTTPOnly: true},
		}},
	}

	var lastPct float64
	ref, _ := domain.ParseSourceReference("dQw4w9WgXcQ")
	err := s.Attempt(context.Background(), ref, "/tmp/out.mp3", func(pct float64) { lastPct = pct })
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}

	if cookiePathDuringRun == "" {
		t.Fatal("tool never received --cookies")
	}
	if _, statErr := os.Stat(cookiePathDuringRun); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("cookie file leaked: stat err = %v", statErr)
	}
	if !strings.Contains(contentDuringRun, "# Netscape HTTP Cookie File") {
		t.Fatalf("cookie file header missing:\n%s", contentDuringRun)
	}
	if !strings.Contains(contentDuringRun, ".youtube.com\tTRUE\t/\tTRUE\t1893456000\tSID\tabc123") {
		t.Fatalf("cookie line malformed:\n%s", contentDuringRun)
	}
	if !strings.Contains(contentDuringRun, "#HttpOnly_.youtube.com") {
		t.Fatalf("httponly prefix missing:\n%s", contentDuringRun)
	}
	if lastPct != 55 {
		t.Fatalf("progress = %v, want 55", lastPct)
	}
}

// TestHarvestedSessionCleansUpOnToolFailure verifies cleanup on the failure
// path as well.
func TestHarvestedSessionCleansUpOnToolFailure(t *testing.T) {
	var cookiePath string
	runner := &fakeRunner{
		run: func(ctx context.Context, onLine func(string), name string, args ...string) (commandResult, error) {
			cookiePath = argValue(args, "--cookies")
			return commandResult{ExitCode: 1, Stderr: "403 Forbidden"}, errors.New("exit status 1")
		},
	}
	s := &HarvestedSessionStrategy{
		Tool:      "yt-dlp",
		runner:    runner,
		harvester: &fakeHarvester{cookies: []SessionCookie{{Name: "SID", Value: "v", Domain: ".youtube.com"}}},
	}

	ref, _ := domain.ParseSourceReference("dQw4w9WgXcQ")
	if err := s.Attempt(context.Background(), ref, "/tmp/out.mp3", nil); err == nil {
		t.Fatal("expected tool failure")
	}
	if _, statErr := os.Stat(cookiePath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("cookie file leaked after failure: stat err = %v", statErr)
	}
}

// TestHarvestedSessionRequiresCookies verifies an empty harvest fails fast
// without invoking the tool.
func TestHarvestedSessionRequiresCookies(t *testing.T) {
	runner := &fakeRunner{}
	s := &HarvestedSessionStrategy{Tool: "yt-dlp", runner: runner, harvester: &fakeHarvester{}}

	ref, _ := domain.ParseSourceReference("dQw4w9WgXcQ")
	if err := s.Attempt(context.Background(), ref, "/tmp/out.mp3", nil); err == nil {
		t.Fatal("expected failure for empty cookie set")
	}
	if len(runner.calls) != 0 {
		t.Fatal("tool should not run without a session")
	}
}

// TestInstalledBrowserProfileOrder verifies fixed-order iteration, stop at
// first success, and the relaxed final attempt.
func TestInstalledBrowserProfileOrder(t *testing.T) {
	t.Run("second profile succeeds", func(t *testing.T) {
		runner := &fakeRunner{
			run: func(ctx context.Context, onLine func(string), name string, args ...string) (commandResult, error) {
				if argValue(args, "--cookies-from-browser") == "firefox" {
					return commandResult{}, nil
				}
				return commandResult{ExitCode: 1}, errors.New("exit status 1")
			},
		}
		s := &InstalledBrowserStrategy{Tool: "yt-dlp", Profiles: []string{"chrome", "firefox", "edge"}, runner: runner}

		ref, _ := domain.ParseSourceReference("dQw4w9WgXcQ")
		if err := s.Attempt(context.Background(), ref, "/tmp/out.mp3", nil); err != nil {
			t.Fatalf("attempt: %v", err)
		}
		if len(runner.calls) != 2 {
			t.Fatalf("tool invocations = %d, want 2", len(runner.calls))
		}
	})

	t.Run("exhausted profiles fall through to relaxed attempt", func(t *testing.T) {
		runner := &fakeRunner{
			run: func(ctx context.Context, onLine func(string), name string, args ...string) (commandResult, error) {
				if argValue(args, "--cookies-from-browser") != "" {
					return commandResult{ExitCode: 1}, errors.New("exit status 1")
				}
				return commandResult{}, nil
			},
		}
		s := &InstalledBrowserStrategy{Tool: "yt-dlp", Profiles: []string{"chrome", "firefox"}, runner: runner}

		ref, _ := domain.ParseSourceReference("dQw4w9WgXcQ")
		if err := s.Attempt(context.Background(), ref, "/tmp/out.mp3", nil); err != nil {
			t.Fatalf("attempt: %v", err)
		}

		last := runner.calls[len(runner.calls)-1]
		joined := strings.Join(last, " ")
		if !strings.Contains(joined, "--geo-bypass") || !strings.Contains(joined, "--force-ipv4") {
			t.Fatalf("relaxed attempt missing options: %v", last)
		}
		if strings.Contains(joined, "--cookies-from-browser") {
			t.Fatalf("relaxed attempt should not use browser cookies: %v", last)
		}
	})
}
