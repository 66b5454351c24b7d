package acquire

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"tube-transcriber/internal/domain"
)

// cookieHarvester collects the current session cookie set after visiting
// the source platform.
type cookieHarvester interface {
	Harvest(ctx context.Context, url string) ([]SessionCookie, error)
}

// HarvestedSessionStrategy drives a headless browser to the source platform,
// writes the harvested cookies into a scoped temporary file, and invokes the
// acquisition tool with that session. The cookie file and the browser are
// released on every exit path.
type HarvestedSessionStrategy struct {
	Tool      string
	FFmpeg    string
	runner    commandRunner
	harvester cookieHarvester
}

func (s *HarvestedSessionStrategy) Name() string { return "harvested-session" }

func (s *HarvestedSessionStrategy) Attempt(ctx context.Context, ref domain.SourceReference, outputPath string, onProgress func(float64)) error {
	cookies, err := s.harvester.Harvest(ctx, ref.URL())
	if err != nil {
		return fmt.Errorf("harvest session: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("harvest session: no cookies collected")
	}

	cookieFile, err := os.CreateTemp("", "session-cookies-*.txt")
	if err != nil {
		return fmt.Errorf("create cookie file: %w", err)
	}
	cookiePath := cookieFile.Name()
	defer os.Remove(cookiePath)

	_, writeErr := cookieFile.WriteString(serializeCookies(cookies))
	closeErr := cookieFile.Close()
	if writeErr != nil {
		return fmt.Errorf("write cookie file: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close cookie file: %w", closeErr)
	}

	args := downloadArgs(s.FFmpeg, outputPath, ref.URL(), "--cookies", cookiePath)
	return runDownload(ctx, s.runner, s.Tool, onProgress, args)
}

// chromedpHarvester visits the page in a headless browser and reads the
// resulting cookie jar over the DevTools protocol.
type chromedpHarvester struct {
	timeout time.Duration
}

func (h *chromedpHarvester) Harvest(ctx context.Context, url string) ([]SessionCookie, error) {
	harvestCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(harvestCtx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var raw []*network.Cookie
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		// Give the platform time to settle its session cookies.
		chromedp.Sleep(3*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			raw, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}

	cookies := make([]SessionCookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, SessionCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  int64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return cookies, nil
}
