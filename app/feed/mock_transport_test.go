package feed

import (
	"context"
	"sync"

	"github.com/Semior001/newsboard/app/store"
)

// TransportMock is a mock implementation of Transport.
type TransportMock struct {
	ListArticlesFunc  func(ctx context.Context) ([]store.Article, error)
	RescrapeFunc      func(ctx context.Context) ([]store.Article, error)
	CreateFeedFunc    func(ctx context.Context, site, feedURL string) error
	DeleteFeedFunc    func(ctx context.Context, site string) error
	CreateCommentFunc func(ctx context.Context, articleID, text string) (string, error)
	DeleteCommentFunc func(ctx context.Context, articleID, text string) error

	mu    sync.Mutex
	calls []string
}

// Calls returns names of the called methods in the order of calls.
func (m *TransportMock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *TransportMock) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// ListArticles calls ListArticlesFunc.
func (m *TransportMock) ListArticles(ctx context.Context) ([]store.Article, error) {
	if m.ListArticlesFunc == nil {
		panic("TransportMock.ListArticlesFunc: method is nil but Transport.ListArticles was just called")
	}
	m.record("ListArticles")
	return m.ListArticlesFunc(ctx)
}

// Rescrape calls RescrapeFunc.
func (m *TransportMock) Rescrape(ctx context.Context) ([]store.Article, error) {
	if m.RescrapeFunc == nil {
		panic("TransportMock.RescrapeFunc: method is nil but Transport.Rescrape was just called")
	}
	m.record("Rescrape")
	return m.RescrapeFunc(ctx)
}

// CreateFeed calls CreateFeedFunc.
func (m *TransportMock) CreateFeed(ctx context.Context, site, feedURL string) error {
	if m.CreateFeedFunc == nil {
		panic("TransportMock.CreateFeedFunc: method is nil but Transport.CreateFeed was just called")
	}
	m.record("CreateFeed")
	return m.CreateFeedFunc(ctx, site, feedURL)
}

// DeleteFeed calls DeleteFeedFunc.
func (m *TransportMock) DeleteFeed(ctx context.Context, site string) error {
	if m.DeleteFeedFunc == nil {
		panic("TransportMock.DeleteFeedFunc: method is nil but Transport.DeleteFeed was just called")
	}
	m.record("DeleteFeed")
	return m.DeleteFeedFunc(ctx, site)
}

// CreateComment calls CreateCommentFunc.
func (m *TransportMock) CreateComment(ctx context.Context, articleID, text string) (string, error) {
	if m.CreateCommentFunc == nil {
		panic("TransportMock.CreateCommentFunc: method is nil but Transport.CreateComment was just called")
	}
	m.record("CreateComment")
	return m.CreateCommentFunc(ctx, articleID, text)
}

// DeleteComment calls DeleteCommentFunc.
func (m *TransportMock) DeleteComment(ctx context.Context, articleID, text string) error {
	if m.DeleteCommentFunc == nil {
		panic("TransportMock.DeleteCommentFunc: method is nil but Transport.DeleteComment was just called")
	}
	m.record("DeleteComment")
	return m.DeleteCommentFunc(ctx, articleID, text)
}
