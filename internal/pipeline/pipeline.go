package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Devon-White/achievement-scraper/internal/config"
	"github.com/Devon-White/achievement-scraper/internal/extractor"
	"github.com/Devon-White/achievement-scraper/internal/fetcher"
	"github.com/Devon-White/achievement-scraper/internal/writer"
)

// PageSource fetches achievement pages by id.
type PageSource interface {
	PageURL(id int) string
	FetchWithRetry(ctx context.Context, url string, retries int, onRetry func(attempt int, err error)) ([]byte, error)
}

// Result summarises one crawl.
type Result struct {
	Start       int
	LastVisited int // last id whose page was fully processed; Start-1 if none
	Visited     int
	Found       int
	Empty       int
}

// Run executes one crawl: resolve the start id, walk pages until the
// empty-page limit is reached, and write everything found to the CSV (and
// the SQLite mirror when configured).
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Result, error) {
	logger = logger.With("run", uuid.NewString())

	csvw, err := writer.NewCSVWriter(cfg.Output)
	if err != nil {
		return Result{}, err
	}
	sinks := []writer.Sink{csvw}

	if cfg.SQLitePath != "" {
		db, err := writer.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return Result{}, fmt.Errorf("sqlite: %w", err)
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	start := cfg.Start
	if start == 0 {
		start = writer.LastID(cfg.Output) + 1
		logger.Info("resuming from output file", "output", cfg.Output, "start", start)
	}

	f := fetcher.New(cfg.BaseURL, cfg.UserAgent, cfg.DelayMS, cfg.Timeout)
	return NewCrawler(cfg, f, sinks, logger).Crawl(ctx, start)
}

// Crawler walks consecutive achievement ids.
type Crawler struct {
	cfg    *config.Config
	src    PageSource
	sinks  []writer.Sink
	logger *slog.Logger
}

// NewCrawler returns a Crawler that reads from src and flushes to sinks.
func NewCrawler(cfg *config.Config, src PageSource, sinks []writer.Sink, logger *slog.Logger) *Crawler {
	return &Crawler{cfg: cfg, src: src, sinks: sinks, logger: logger}
}

// Crawl fetches pages from start upward until EmptyLimit consecutive pages
// are empty or fail (at or above MinStopID), MaxPages pages have been
// visited, or ctx is cancelled. Records are flushed every BatchSize finds
// and once more at the end. Only sink errors are returned.
func (c *Crawler) Crawl(ctx context.Context, start int) (Result, error) {
	res := Result{Start: start, LastVisited: start - 1}
	var pending []*extractor.Achievement
	consecutive := 0

	c.logger.Info("crawl started", "start", start, "empty_limit", c.cfg.EmptyLimit)

	for id := start; ; id++ {
		if ctx.Err() != nil {
			c.logger.Warn("crawl interrupted", "id", id)
			break
		}
		if c.cfg.MaxPages > 0 && res.Visited >= c.cfg.MaxPages {
			c.logger.Info("page limit reached", "max_pages", c.cfg.MaxPages)
			break
		}
		res.Visited++

		a, err := c.scrape(ctx, id)
		if err != nil && ctx.Err() != nil {
			// The page was cut short, not empty.
			c.logger.Warn("crawl interrupted", "id", id)
			break
		}
		res.LastVisited = id

		if err == nil {
			pending = append(pending, a)
			res.Found++
			consecutive = 0
			c.logger.Info("achievement found", "id", id, "nickname", a.Nickname, "vm", a.VMTitle)

			if len(pending) >= c.cfg.BatchSize {
				if err := c.flush(ctx, pending); err != nil {
					return res, err
				}
				pending = nil
			}
			continue
		}

		consecutive++
		res.Empty++
		if errors.Is(err, extractor.ErrEmptyPage) {
			c.logger.Debug("empty page", "id", id, "consecutive", consecutive, "limit", c.cfg.EmptyLimit)
		} else {
			c.logger.Debug("page failed", "id", id, "error", err, "consecutive", consecutive, "limit", c.cfg.EmptyLimit)
		}

		if consecutive >= c.cfg.EmptyLimit && id >= c.cfg.MinStopID {
			c.logger.Info("empty page limit reached", "id", id, "limit", c.cfg.EmptyLimit)
			break
		}
	}

	// Write what was collected even when the crawl was interrupted.
	if err := c.flush(context.WithoutCancel(ctx), pending); err != nil {
		return res, err
	}

	c.logger.Info("crawl finished", "found", res.Found, "visited", res.Visited, "last_visited", res.LastVisited)
	return res, nil
}

// scrape fetches and parses a single page.
func (c *Crawler) scrape(ctx context.Context, id int) (*extractor.Achievement, error) {
	url := c.src.PageURL(id)
	body, err := c.src.FetchWithRetry(ctx, url, c.cfg.Retries, func(attempt int, err error) {
		c.logger.Debug("retrying page", "id", id, "attempt", attempt, "retries", c.cfg.Retries, "error", err)
	})
	if err != nil {
		return nil, err
	}
	return extractor.Parse(body, id)
}

func (c *Crawler) flush(ctx context.Context, records []*extractor.Achievement) error {
	if len(records) == 0 {
		return nil
	}
	for _, s := range c.sinks {
		if err := s.Write(ctx, records); err != nil {
			return fmt.Errorf("saving batch: %w", err)
		}
	}
	c.logger.Info("batch saved", "records", len(records), "first_id", records[0].ID, "last_id", records[len(records)-1].ID)
	return nil
}
