// Package feed contains the engine that applies feed and comment mutations
// to the collection and keeps it in sync with the remote store.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Semior001/newsboard/app/store"
	"github.com/Semior001/newsboard/pkg/logx"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"
)

// Feed count bounds.
const (
	MinFeeds = 3
	MaxFeeds = 5
)

// Transport performs remote reads and writes of the collection.
type Transport interface {
	ListArticles(ctx context.Context) ([]store.Article, error)
	Rescrape(ctx context.Context) ([]store.Article, error)
	CreateFeed(ctx context.Context, site, feedURL string) error
	DeleteFeed(ctx context.Context, site string) error
	CreateComment(ctx context.Context, articleID, text string) (string, error)
	DeleteComment(ctx context.Context, articleID, text string) error
}

// Snapshotter persists collection snapshots.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, s store.Snapshot) error
}

// Resolution describes how an optimistic mutation was settled.
type Resolution string

// Resolutions.
const (
	Confirmed Resolution = "confirmed"
	Reverted  Resolution = "reverted"
)

// Outcome is the result of an optimistic comment mutation.
type Outcome struct {
	ArticleID  string
	Comment    store.Comment
	Resolution Resolution
}

// Options defines options for Engine.
type Options struct {
	Logger      *slog.Logger
	Timeout     time.Duration
	Snapshotter Snapshotter
}

// Option defines a function that configures Engine.
type Option func(*Options)

// WithLogger sets the logger to use.
func WithLogger(lg *slog.Logger) Option { return func(o *Options) { o.Logger = lg } }

// WithTimeout bounds every transport call with the given timeout.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithSnapshotter sets the storage for collection snapshots.
func WithSnapshotter(s Snapshotter) Option { return func(o *Options) { o.Snapshotter = s } }

// Engine orchestrates mutations of the collection.
type Engine struct {
	tr  Transport
	col *store.Collection
	Options

	mu        sync.Mutex
	scraping  bool
	feedOp    bool
	articleOp map[string]bool // articles with unconfirmed comment mutations
}

// NewEngine makes a new Engine over the collection.
func NewEngine(tr Transport, col *store.Collection, opts ...Option) *Engine {
	options := Options{
		Logger:  slog.New(logx.NoOp()),
		Timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &Engine{
		tr:        tr,
		col:       col,
		Options:   options,
		articleOp: map[string]bool{},
	}
}

// Collection returns the collection the engine writes to.
func (e *Engine) Collection() *store.Collection { return e.col }

// Busy returns true if a rescrape is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scraping
}

// Load fetches already scraped articles. If the remote store has none,
// it triggers a rescrape.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.beginRescrape(); err != nil {
		return err
	}
	defer e.endRescrape()

	tctx, cancel := context.WithTimeout(ctx, e.Timeout)
	articles, err := e.tr.ListArticles(tctx)
	cancel()
	if err != nil {
		return &TransportError{Op: "list articles", Err: err}
	}

	if len(articles) == 0 {
		e.Logger.InfoCtx(ctx, "no articles in remote store, scraping")
		return e.rescrape(ctx)
	}

	e.replace(ctx, articles)
	return nil
}

// Refresh rescrapes all feeds and replaces the collection with the result.
// It is rejected with ErrBusy while any mutation is unconfirmed.
func (e *Engine) Refresh(ctx context.Context) error {
	if err := e.beginRescrape(); err != nil {
		return err
	}
	defer e.endRescrape()

	return e.rescrape(ctx)
}

// AddFeed registers a new feed and rescrapes to fetch its articles.
func (e *Engine) AddFeed(ctx context.Context, site, feedURL string) error {
	if err := e.beginFeedOp(); err != nil {
		return err
	}
	defer e.endFeedOp()

	sites := e.col.DistinctSites()
	if len(sites) >= MaxFeeds {
		return ErrFeedLimitExceeded
	}

	site = strings.TrimSpace(site)
	if site == "" {
		return fmt.Errorf("%w: site name is required", ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(feedURL); err != nil {
		return fmt.Errorf("%w: bad feed url %q: %v", ErrInvalidInput, feedURL, err)
	}
	if lo.Contains(sites, site) {
		return fmt.Errorf("%w: feed %q already exists", ErrInvalidInput, site)
	}

	tctx, cancel := context.WithTimeout(ctx, e.Timeout)
	err := e.tr.CreateFeed(tctx, site, feedURL)
	cancel()
	if err != nil {
		e.Logger.WarnCtx(ctx, "failed to create feed", slog.String("site", site), slog.Any("err", err))
		return &TransportError{Op: "create feed", Err: err}
	}

	e.Logger.InfoCtx(ctx, "feed created, scraping", slog.String("site", site))

	e.setScraping(true)
	defer e.setScraping(false)

	return e.rescrape(ctx)
}

// RemoveFeed deletes the feed and, once the remote store confirms it,
// removes its articles from the collection.
func (e *Engine) RemoveFeed(ctx context.Context, site string) error {
	if err := e.beginFeedOp(); err != nil {
		return err
	}
	defer e.endFeedOp()

	sites := e.col.DistinctSites()
	if len(sites) <= MinFeeds {
		return ErrFeedMinimumViolated
	}
	if !lo.Contains(sites, site) {
		return fmt.Errorf("feed %q: %w", site, store.ErrNotFound)
	}

	tctx, cancel := context.WithTimeout(ctx, e.Timeout)
	err := e.tr.DeleteFeed(tctx, site)
	cancel()
	if err != nil {
		e.Logger.WarnCtx(ctx, "failed to delete feed", slog.String("site", site), slog.Any("err", err))
		return &TransportError{Op: "delete feed", Err: err}
	}

	removed := e.col.RemoveArticlesForSite(site)
	e.Logger.InfoCtx(ctx, "feed deleted", slog.String("site", site), slog.Int("articles", removed))
	e.persist(ctx)

	return nil
}

// AddComment appends the comment to the article right away as pending,
// then confirms it or reverts it depending on the remote result.
func (e *Engine) AddComment(ctx context.Context, articleID, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, fmt.Errorf("%w: empty comment", ErrInvalidInput)
	}

	if err := e.beginArticleOp(articleID); err != nil {
		return Outcome{}, err
	}
	defer e.endArticleOp(articleID)

	draft, err := e.col.AppendComment(articleID, store.Comment{Text: text, Status: store.StatusPending})
	if err != nil {
		return Outcome{}, fmt.Errorf("append draft: %w", err)
	}

	out := Outcome{ArticleID: articleID, Comment: draft}

	tctx, cancel := context.WithTimeout(ctx, e.Timeout)
	_, err = e.tr.CreateComment(tctx, articleID, text)
	cancel()
	if err != nil {
		e.Logger.WarnCtx(ctx, "failed to create comment, reverting",
			slog.String("article_id", articleID), slog.Any("err", err))

		if _, _, rerr := e.col.RemoveComment(articleID, draft.ID); rerr != nil {
			e.Logger.ErrorCtx(ctx, "failed to revert comment draft", slog.Any("err", rerr))
		}
		e.persist(ctx)

		out.Resolution = Reverted
		return out, &TransportError{Op: "create comment", Err: err}
	}

	if err = e.col.SetCommentStatus(articleID, draft.ID, store.StatusConfirmed); err != nil {
		return out, fmt.Errorf("confirm comment: %w", err)
	}

	out.Comment.Status = store.StatusConfirmed
	out.Resolution = Confirmed
	e.persist(ctx)

	return out, nil
}

// RemoveComment removes the comment from the article right away and
// puts it back to its position if the remote store fails to delete it.
func (e *Engine) RemoveComment(ctx context.Context, articleID, commentID string) (Outcome, error) {
	if err := e.beginArticleOp(articleID); err != nil {
		return Outcome{}, err
	}
	defer e.endArticleOp(articleID)

	removed, pos, err := e.col.RemoveComment(articleID, commentID)
	if err != nil {
		return Outcome{}, fmt.Errorf("remove comment: %w", err)
	}

	out := Outcome{ArticleID: articleID, Comment: removed}

	tctx, cancel := context.WithTimeout(ctx, e.Timeout)
	err = e.tr.DeleteComment(tctx, articleID, removed.Text)
	cancel()
	if err != nil {
		e.Logger.WarnCtx(ctx, "failed to delete comment, restoring",
			slog.String("article_id", articleID), slog.Any("err", err))

		if rerr := e.col.InsertComment(articleID, pos, removed); rerr != nil {
			e.Logger.ErrorCtx(ctx, "failed to restore comment", slog.Any("err", rerr))
		}
		e.persist(ctx)

		out.Resolution = Reverted
		return out, &TransportError{Op: "delete comment", Err: err}
	}

	out.Resolution = Confirmed
	e.persist(ctx)

	return out, nil
}

// rescrape expects the caller to hold the scraping flag.
func (e *Engine) rescrape(ctx context.Context) error {
	tctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	start := time.Now()
	articles, err := e.tr.Rescrape(tctx)
	if err != nil {
		return &TransportError{Op: "rescrape", Err: err}
	}

	e.replace(ctx, articles)
	e.Logger.InfoCtx(ctx, "rescraped",
		slog.Int("articles", len(articles)),
		slog.Duration("elapsed", time.Since(start)))

	return nil
}

func (e *Engine) replace(ctx context.Context, articles []store.Article) {
	e.col.Replace(articles)
	e.persist(ctx)
}

// persist saves the collection without comments still waiting for the remote store.
func (e *Engine) persist(ctx context.Context) {
	if e.Snapshotter == nil {
		return
	}

	if err := e.Snapshotter.SaveSnapshot(ctx, e.col.Snapshot().Settled()); err != nil {
		e.Logger.WarnCtx(ctx, "failed to save snapshot", slog.Any("err", err))
	}
}

func (e *Engine) beginRescrape() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scraping || e.feedOp || len(e.articleOp) > 0 {
		return ErrBusy
	}

	e.scraping = true
	return nil
}

func (e *Engine) endRescrape() { e.setScraping(false) }

func (e *Engine) setScraping(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scraping = v
}

func (e *Engine) beginFeedOp() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scraping || e.feedOp || len(e.articleOp) > 0 {
		return ErrBusy
	}

	e.feedOp = true
	return nil
}

func (e *Engine) endFeedOp() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feedOp = false
}

func (e *Engine) beginArticleOp(articleID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scraping || e.feedOp || e.articleOp[articleID] {
		return ErrBusy
	}

	e.articleOp[articleID] = true
	return nil
}

func (e *Engine) endArticleOp(articleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.articleOp, articleID)
}
