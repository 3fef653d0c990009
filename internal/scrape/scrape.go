// Package scrape ingests web pages into the knowledge store. Q&A pages
// become bug entries with the answer as resolution; other pages go
// through readability extraction and become doc entries.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jasma-ai/recall/internal/knowledge"
)

// Ingestor is the ingestion collaborator as the scraper consumes it.
type Ingestor interface {
	Store(ctx context.Context, req knowledge.StoreRequest) (knowledge.StoreResult, error)
}

// Config tunes the crawler.
type Config struct {
	Parallelism int
	Delay       time.Duration
	Timeout     time.Duration
}

// Scraper fetches pages politely and feeds them through the ingestion
// pipeline.
type Scraper struct {
	cfg      Config
	ingestor Ingestor
	logger   *slog.Logger
}

// NewScraper creates a Scraper.
func NewScraper(cfg Config, ingestor Ingestor, logger *slog.Logger) (*Scraper, error) {
	if ingestor == nil {
		return nil, fmt.Errorf("%w: ingestor", knowledge.ErrUninitialized)
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{cfg: cfg, ingestor: ingestor, logger: logger}, nil
}

// Ingest fetches one page and stores the extracted entry.
func (s *Scraper) Ingest(ctx context.Context, rawURL string) (knowledge.StoreResult, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return knowledge.StoreResult{}, fmt.Errorf("%w: url %q must be http(s)", knowledge.ErrInvalidInput, rawURL)
	}

	html, err := s.fetch(pageURL)
	if err != nil {
		return knowledge.StoreResult{}, err
	}

	req, err := Extract(html, pageURL)
	if err != nil {
		return knowledge.StoreResult{}, err
	}

	result, err := s.ingestor.Store(ctx, req)
	if err != nil {
		return result, fmt.Errorf("storing scraped entry: %w", err)
	}

	s.logger.Info("ingested page",
		"url", pageURL.String(), "kind", req.Kind,
		"id", result.ID, "created", result.Created)
	return result, nil
}

// fetch downloads the page body with colly, honoring the configured
// rate limits.
func (s *Scraper) fetch(pageURL *url.URL) (string, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(pageURL.Hostname()),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.cfg.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: s.cfg.Parallelism,
		Delay:       s.cfg.Delay,
	}); err != nil {
		return "", fmt.Errorf("configuring rate limit: %w", err)
	}

	var html string
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(pageURL.String()); err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, fetchErr)
	}
	if html == "" {
		return "", fmt.Errorf("fetching %s: empty response body", pageURL)
	}
	return html, nil
}
