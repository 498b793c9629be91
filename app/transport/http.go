// Package transport implements remote reads and writes of the news board
// collection over the board's HTTP API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Semior001/newsboard/app/store"
	"github.com/Semior001/newsboard/pkg/logx"
	"github.com/go-pkgz/requester"
	"github.com/go-pkgz/requester/middleware"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"
)

// HTTP is a client to the remote board API.
type HTTP struct {
	log  *slog.Logger
	base string
	rq   *requester.Requester
}

// NewHTTP makes a new HTTP transport for the API at baseURL.
func NewHTTP(lg *slog.Logger, cl http.Client, baseURL string) *HTTP {
	rq := requester.New(cl,
		middleware.Header("Content-Type", "application/json"),
		middleware.Header("Accept", "application/json"),
		logx.LoggingRoundTripper(lg, logx.RoundTripperOpts{Level: slog.LevelDebug}),
	)

	return &HTTP{log: lg, base: strings.TrimSuffix(baseURL, "/"), rq: rq}
}

// StatusError is returned when the remote responds with a non-2xx code.
type StatusError struct {
	Code int
	Body string
}

// Error returns the status code and the response body.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status code: %d", e.Code)
	}
	return fmt.Sprintf("bad status code: %d, body: %s", e.Code, e.Body)
}

type article struct {
	ID       string   `json:"_id"`
	Site     string   `json:"site"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Comments []string `json:"comments"`
}

type feedRequest struct {
	URL  string `json:"url,omitempty"`
	Site string `json:"site,omitempty"`
	Name string `json:"name,omitempty"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// ListArticles returns articles already scraped by the remote store.
func (t *HTTP) ListArticles(ctx context.Context) ([]store.Article, error) {
	var resp []article
	if err := t.do(ctx, http.MethodGet, "/api/articles", nil, &resp); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return toArticles(resp), nil
}

// Rescrape asks the remote store to scrape all feeds again and
// returns the resulting articles.
func (t *HTTP) Rescrape(ctx context.Context) ([]store.Article, error) {
	var resp []article
	if err := t.do(ctx, http.MethodGet, "/api/articles/scrape", nil, &resp); err != nil {
		return nil, fmt.Errorf("rescrape: %w", err)
	}
	return toArticles(resp), nil
}

// CreateFeed registers a new feed in the remote store.
func (t *HTTP) CreateFeed(ctx context.Context, site, feedURL string) error {
	if err := t.do(ctx, http.MethodPost, "/api/feeds", feedRequest{URL: feedURL, Site: site}, nil); err != nil {
		return fmt.Errorf("create feed %q: %w", site, err)
	}
	return nil
}

// DeleteFeed removes the feed from the remote store.
func (t *HTTP) DeleteFeed(ctx context.Context, site string) error {
	if err := t.do(ctx, http.MethodDelete, "/api/feeds/", feedRequest{Name: site}, nil); err != nil {
		return fmt.Errorf("delete feed %q: %w", site, err)
	}
	return nil
}

// CreateComment adds a comment to the article and returns the comment
// echoed by the remote store.
func (t *HTTP) CreateComment(ctx context.Context, articleID, text string) (string, error) {
	var raw json.RawMessage
	if err := t.do(ctx, http.MethodPost, commentsPath(articleID), commentRequest{Comment: text}, &raw); err != nil {
		return "", fmt.Errorf("create comment on %s: %w", articleID, err)
	}

	// the ack shape is not fixed, take the echo only when it is there
	var resp commentRequest
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Comment == "" {
		return text, nil
	}
	return resp.Comment, nil
}

// DeleteComment removes the comment from the article.
func (t *HTTP) DeleteComment(ctx context.Context, articleID, text string) error {
	if err := t.do(ctx, http.MethodDelete, commentsPath(articleID), commentRequest{Comment: text}, nil); err != nil {
		return fmt.Errorf("delete comment on %s: %w", articleID, err)
	}
	return nil
}

func commentsPath(articleID string) string {
	return "/api/articles/" + url.PathEscape(articleID) + "/comments"
}

func (t *HTTP) do(ctx context.Context, method, path string, body, dst any) error {
	rd := io.Reader(http.NoBody)
	if body != nil {
		bts, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(bts)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := t.rq.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.log.WarnCtx(ctx, "failed to close response body", slog.Any("err", err))
		}
	}()

	ok := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
	if !ok {
		bts, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(bts))}
	}

	if dst == nil {
		// acks carry no data we use, drain to reuse the connection
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func toArticles(resp []article) []store.Article {
	return lo.Map(resp, func(a article, _ int) store.Article {
		return store.Article{
			ID:      a.ID,
			Site:    a.Site,
			URL:     a.URL,
			Title:   a.Title,
			Summary: a.Summary,
			Comments: lo.Map(a.Comments, func(text string, _ int) store.Comment {
				return store.Comment{Text: text, Status: store.StatusConfirmed}
			}),
		}
	})
}
