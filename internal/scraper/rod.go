package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"torrentbot/internal/apperrors"
)

// RodFetcher renders pages in a headless browser. It is used when the
// index sits behind a JavaScript challenge a plain GET cannot pass.
type RodFetcher struct {
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewRodFetcher creates a fetcher that gives each page load at most timeout.
func NewRodFetcher(timeout time.Duration, logger logrus.FieldLogger) *RodFetcher {
	return &RodFetcher{
		timeout: timeout,
		log:     logger.WithField("component", "rod_fetcher"),
	}
}

// Fetch launches a browser, loads url and returns the rendered HTML.
func (f *RodFetcher) Fetch(ctx context.Context, url string) (html []byte, err error) {
	log := f.log.WithField("url", url)

	// --- Browser Setup ---
	path, exists := launcher.LookPath()
	if !exists {
		log.Error("Cannot find browser executable for rod")
		return nil, errors.New("rod browser dependency not found")
	}
	controlURL, err := launcher.New().Bin(path).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err = browser.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to rod browser")
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing rod browser instance")
		}
	}()

	// --- Page Navigation ---
	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, apperrors.NewTransportError(indexService, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.WithError(closeErr).Debug("Error closing rod page")
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	page = page.Context(pageCtx)

	if err = page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			log.WithError(pageCtx.Err()).Warn("Page load timed out")
		}
		return nil, apperrors.NewTransportError(indexService, err)
	}

	content, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}

	log.WithField("bytes", len(content)).Debug("Rendered page")
	return []byte(content), nil
}
