// Package fetch wraps Colly behind a small client that returns parsed
// documents with a per-request timeout and cooperative cancellation.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "stagehand/1.0 (+https://github.com/mwhitten/stagehand)"

// Config controls client behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Client fetches venue pages. It is safe for concurrent use; each fetch
// clones the base collector so callbacks never cross requests.
type Client struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector()
	c.UserAgent = cfg.UserAgent
	c.SetRequestTimeout(cfg.Timeout)
	return &Client{cfg: cfg, base: c}
}

// Load fetches url and parses the response body into a goquery document.
// The visit runs in its own goroutine so a context cancellation arriving
// mid-flight unblocks the caller immediately instead of waiting out the
// request timeout.
func (c *Client) Load(ctx context.Context, url string) (*goquery.Document, error) {
	var (
		body       []byte
		statusCode int
		fetchErr   error
	)

	collector := c.base.Clone()
	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			statusCode = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(url); err != nil && fetchErr == nil {
			fetchErr = err
		}
		collector.Wait()
	}()

	select {
	case <-ctx.Done():
		// The abandoned visit finishes on its own; its results are
		// never read.
		return nil, ctx.Err()
	case <-done:
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if fetchErr != nil {
		if statusCode >= 400 {
			return nil, ErrStatus{Code: statusCode}
		}
		return nil, classify(fetchErr)
	}
	if statusCode >= 400 {
		return nil, ErrStatus{Code: statusCode}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", url, err)
	}
	return doc, nil
}
