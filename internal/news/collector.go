package news

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"sentiment-trader/internal/feed"
	"sentiment-trader/internal/logger"
	"sentiment-trader/internal/types"
)

// Source describes one news page. Selector matches a headline element;
// TimeSelector, when set, is looked up inside it for the publish time, read
// from TimeAttr or the element text.
type Source struct {
	Name         string
	URL          string
	Selector     string
	TimeSelector string
	TimeAttr     string
}

type Params struct {
	Sources       []Source
	HeadlinesFile string
	Interval      time.Duration
	Timeout       time.Duration
	UserAgent     string
}

// Collector scrapes headlines and appends unseen ones to the headlines file.
type Collector struct {
	p   Params
	now func() time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewCollector(p Params) *Collector {
	if p.Interval <= 0 {
		p.Interval = 5 * time.Minute
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return &Collector{p: p, now: time.Now, seen: make(map[string]struct{})}
}

// Run collects once, then on every interval until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	if err := c.loadSeen(); err != nil {
		return err
	}

	ticker := time.NewTicker(c.p.Interval)
	defer ticker.Stop()

	for {
		if _, err := c.Collect(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Collect scrapes every source once and returns how many headlines were
// appended. A failing source is logged and skipped.
func (c *Collector) Collect(ctx context.Context) (int, error) {
	var fresh []types.Headline
	for _, src := range c.p.Sources {
		if ctx.Err() != nil {
			break
		}
		hs, err := c.scrape(ctx, src)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", src.Name, "url", src.URL)
			continue
		}
		fresh = append(fresh, c.dedupe(hs)...)
	}

	if len(fresh) == 0 {
		return 0, nil
	}
	if err := c.appendHeadlines(fresh); err != nil {
		return 0, err
	}
	logger.Info(ctx, "Headlines collected", "count", len(fresh), "file", c.p.HeadlinesFile)
	return len(fresh), nil
}

func (c *Collector) scrape(ctx context.Context, src Source) ([]types.Headline, error) {
	var out []types.Headline
	collected := c.now().UnixMilli()

	col := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.MaxDepth(1),
		colly.AllowURLRevisit(),
	)
	col.SetRequestTimeout(c.p.Timeout)

	col.OnRequest(func(r *colly.Request) {
		if c.p.UserAgent != "" {
			r.Headers.Set("User-Agent", c.p.UserAgent)
		}
	})

	col.OnHTML(src.Selector, func(e *colly.HTMLElement) {
		text := headlineText(e.DOM)
		if text == "" {
			return
		}
		out = append(out, types.Headline{
			Source:        src.Name,
			CollectedTime: collected,
			PublishedTime: publishedTime(e.DOM, src, collected),
			Text:          text,
		})
	})

	var scrapeErr error
	col.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := col.Visit(src.URL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", src.URL, err)
	}
	col.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return out, nil
}

// headlineText is the element text on one line. A `,"` sequence would split
// the field when the line is read back, so it gets a space.
func headlineText(sel *goquery.Selection) string {
	text := feed.CleanText(strings.TrimSpace(sel.Text()))
	text = strings.Join(strings.Fields(text), " ")
	return strings.ReplaceAll(text, `,"`, `, "`)
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// publishedTime falls back to the collection time when the page carries no
// parseable publish time.
func publishedTime(sel *goquery.Selection, src Source, fallback int64) int64 {
	if src.TimeSelector == "" {
		return fallback
	}
	node := sel.Find(src.TimeSelector).First()
	if node.Length() == 0 {
		return fallback
	}

	raw := strings.TrimSpace(node.Text())
	if src.TimeAttr != "" {
		raw = strings.TrimSpace(node.AttrOr(src.TimeAttr, raw))
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli()
		}
	}
	return fallback
}

func (c *Collector) dedupe(hs []types.Headline) []types.Headline {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []types.Headline
	for _, h := range hs {
		key := strings.ToLower(h.Text)
		if _, ok := c.seen[key]; ok {
			continue
		}
		c.seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

// loadSeen primes de-duplication with what the headlines file already holds.
func (c *Collector) loadSeen() error {
	f, err := os.Open(c.p.HeadlinesFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if h, err := feed.ParseHeadline(sc.Text()); err == nil {
			c.seen[strings.ToLower(h.Text)] = struct{}{}
		}
	}
	return sc.Err()
}

func (c *Collector) appendHeadlines(hs []types.Headline) error {
	if err := os.MkdirAll(filepath.Dir(c.p.HeadlinesFile), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(c.p.HeadlinesFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open headlines file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, h := range hs {
		if _, err := w.WriteString(feed.FormatHeadline(h) + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
