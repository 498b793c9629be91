package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Semior001/newsboard/app/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remote is an in-memory remote store, one article per feed.
type remote struct {
	mu    sync.Mutex
	sites []string
}

func (r *remote) articles() []store.Article {
	r.mu.Lock()
	defer r.mu.Unlock()
	return articlesFor(r.sites...)
}

func (r *remote) transport() *TransportMock {
	return &TransportMock{
		ListArticlesFunc: func(context.Context) ([]store.Article, error) { return r.articles(), nil },
		RescrapeFunc:     func(context.Context) ([]store.Article, error) { return r.articles(), nil },
		CreateFeedFunc: func(_ context.Context, site, _ string) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.sites = append(r.sites, site)
			return nil
		},
		DeleteFeedFunc: func(_ context.Context, site string) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.sites {
				if s == site {
					r.sites = append(r.sites[:i], r.sites[i+1:]...)
					return nil
				}
			}
			return errors.New("no such feed")
		},
	}
}

func articlesFor(sites ...string) []store.Article {
	var res []store.Article
	for _, site := range sites {
		res = append(res, store.Article{
			ID:      "id-" + site,
			Site:    site,
			URL:     "https://" + site + ".example.com",
			Title:   "news from " + site,
			Summary: "summary of " + site,
		})
	}
	return res
}

func prepEngine(tr Transport, sites ...string) *Engine {
	col := store.NewCollection()
	col.Replace(articlesFor(sites...))
	return NewEngine(tr, col, WithTimeout(time.Second))
}

type snapshotterFunc func(ctx context.Context, s store.Snapshot) error

func (f snapshotterFunc) SaveSnapshot(ctx context.Context, s store.Snapshot) error { return f(ctx, s) }

func TestEngine_Load(t *testing.T) {
	t.Run("articles exist", func(t *testing.T) {
		r := &remote{sites: []string{"a", "b", "c"}}
		tr := r.transport()
		e := prepEngine(tr)

		require.NoError(t, e.Load(context.Background()))
		assert.Equal(t, []string{"ListArticles"}, tr.Calls())
		assert.Equal(t, []string{"a", "b", "c"}, e.Collection().DistinctSites())
	})

	t.Run("empty remote triggers rescrape", func(t *testing.T) {
		tr := &TransportMock{
			ListArticlesFunc: func(context.Context) ([]store.Article, error) { return nil, nil },
			RescrapeFunc: func(context.Context) ([]store.Article, error) {
				return articlesFor("x", "y", "z"), nil
			},
		}
		e := prepEngine(tr)

		require.NoError(t, e.Load(context.Background()))
		assert.Equal(t, []string{"ListArticles", "Rescrape"}, tr.Calls())
		assert.Equal(t, 3, e.Collection().Len())
	})

	t.Run("failure", func(t *testing.T) {
		tr := &TransportMock{
			ListArticlesFunc: func(context.Context) ([]store.Article, error) { return nil, errors.New("down") },
		}
		e := prepEngine(tr, "a")

		err := e.Load(context.Background())
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, "list articles", te.Op)
		assert.Equal(t, 1, e.Collection().Len())
		assert.False(t, e.Busy())
	})
}

func TestEngine_AddFeed(t *testing.T) {
	t.Run("limit reached", func(t *testing.T) {
		tr := &TransportMock{}
		e := prepEngine(tr, "a", "b", "c", "d", "e")

		err := e.AddFeed(context.Background(), "f", "https://f.example.com/rss")
		assert.ErrorIs(t, err, ErrFeedLimitExceeded)

		var pv *PolicyViolation
		require.True(t, errors.As(err, &pv))
		assert.Equal(t, "You may not have more than 5 RSS feeds.", pv.Notice)
		assert.Empty(t, tr.Calls())
	})

	t.Run("limit reported before input errors", func(t *testing.T) {
		tr := &TransportMock{}
		e := prepEngine(tr, "a", "b", "c", "d", "e")

		assert.ErrorIs(t, e.AddFeed(context.Background(), "f", "not a url"), ErrFeedLimitExceeded)
		assert.ErrorIs(t, e.AddFeed(context.Background(), " ", "https://f.example.com/rss"), ErrFeedLimitExceeded)
		assert.Empty(t, tr.Calls())
	})

	t.Run("created and rescraped", func(t *testing.T) {
		r := &remote{sites: []string{"a", "b", "c"}}
		tr := r.transport()
		e := prepEngine(tr, "a", "b", "c")

		require.NoError(t, e.AddFeed(context.Background(), " d ", "https://d.example.com/rss"))
		assert.Equal(t, []string{"CreateFeed", "Rescrape"}, tr.Calls())
		assert.Equal(t, []string{"a", "b", "c", "d"}, e.Collection().DistinctSites())
		assert.False(t, e.Busy())
	})

	t.Run("transport failure leaves collection intact", func(t *testing.T) {
		tr := &TransportMock{
			CreateFeedFunc: func(context.Context, string, string) error { return errors.New("boom") },
		}
		e := prepEngine(tr, "a", "b", "c")
		v := e.Collection().Version()

		err := e.AddFeed(context.Background(), "d", "https://d.example.com/rss")
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, "create feed", te.Op)
		assert.Equal(t, []string{"CreateFeed"}, tr.Calls())
		assert.Equal(t, v, e.Collection().Version())
	})

	t.Run("invalid input", func(t *testing.T) {
		tr := &TransportMock{}
		e := prepEngine(tr, "a", "b", "c")

		assert.ErrorIs(t, e.AddFeed(context.Background(), "  ", "https://d.example.com/rss"), ErrInvalidInput)
		assert.ErrorIs(t, e.AddFeed(context.Background(), "d", "not a url"), ErrInvalidInput)
		assert.ErrorIs(t, e.AddFeed(context.Background(), "a", "https://a.example.com/rss"), ErrInvalidInput)
		assert.Empty(t, tr.Calls())
	})
}

func TestEngine_RemoveFeed(t *testing.T) {
	t.Run("minimum reached", func(t *testing.T) {
		tr := &TransportMock{}
		e := prepEngine(tr, "a", "b", "c")

		err := e.RemoveFeed(context.Background(), "a")
		assert.ErrorIs(t, err, ErrFeedMinimumViolated)
		assert.Equal(t, "You cannot have less than 3 RSS feeds.", err.Error())
		assert.Empty(t, tr.Calls())
		assert.Equal(t, 3, e.Collection().Len())
	})

	t.Run("removed after confirmation", func(t *testing.T) {
		var snaps []store.Snapshot
		r := &remote{sites: []string{"a", "b", "c", "d"}}
		tr := r.transport()

		col := store.NewCollection()
		col.Replace(append(articlesFor("a", "b", "c", "d"), store.Article{ID: "a2", Site: "a"}))
		e := NewEngine(tr, col, WithSnapshotter(snapshotterFunc(func(_ context.Context, s store.Snapshot) error {
			snaps = append(snaps, s)
			return nil
		})))

		require.NoError(t, e.RemoveFeed(context.Background(), "a"))
		assert.Equal(t, []string{"DeleteFeed"}, tr.Calls())
		assert.Equal(t, []string{"b", "c", "d"}, col.DistinctSites())
		assert.Equal(t, 3, col.Len())

		require.Len(t, snaps, 1)
		assert.Len(t, snaps[0].Articles, 3)
	})

	t.Run("transport failure leaves collection intact", func(t *testing.T) {
		tr := &TransportMock{
			DeleteFeedFunc: func(context.Context, string) error { return errors.New("boom") },
		}
		e := prepEngine(tr, "a", "b", "c", "d")

		err := e.RemoveFeed(context.Background(), "a")
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, []string{"a", "b", "c", "d"}, e.Collection().DistinctSites())
	})

	t.Run("unknown feed", func(t *testing.T) {
		tr := &TransportMock{}
		e := prepEngine(tr, "a", "b", "c", "d")

		assert.ErrorIs(t, e.RemoveFeed(context.Background(), "z"), store.ErrNotFound)
		assert.Empty(t, tr.Calls())
	})
}

func TestEngine_FeedBoundsScenario(t *testing.T) {
	ctx := context.Background()
	r := &remote{sites: []string{"a", "b", "c"}}
	tr := r.transport()
	e := prepEngine(tr)
	require.NoError(t, e.Load(ctx))

	before := e.Collection().Snapshot()
	assert.ErrorIs(t, e.RemoveFeed(ctx, "a"), ErrFeedMinimumViolated)
	assert.Equal(t, before, e.Collection().Snapshot())

	require.NoError(t, e.AddFeed(ctx, "d", "https://d.example.com/rss"))
	require.NoError(t, e.AddFeed(ctx, "e", "https://e.example.com/rss"))
	assert.Len(t, e.Collection().DistinctSites(), 5)

	calls := len(tr.Calls())
	assert.ErrorIs(t, e.AddFeed(ctx, "f", "https://f.example.com/rss"), ErrFeedLimitExceeded)
	assert.Len(t, tr.Calls(), calls, "no transport call expected")
	assert.Len(t, e.Collection().DistinctSites(), 5)
}

func TestEngine_CommentRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := &TransportMock{
		CreateCommentFunc: func(_ context.Context, articleID, text string) (string, error) {
			assert.Equal(t, "id-a", articleID)
			return text, nil
		},
		DeleteCommentFunc: func(_ context.Context, articleID, text string) error {
			assert.Equal(t, "id-a", articleID)
			assert.Equal(t, "nice", text)
			return nil
		},
	}
	e := prepEngine(tr, "a", "b", "c")

	out, err := e.AddComment(ctx, "id-a", "nice")
	require.NoError(t, err)
	assert.Equal(t, Confirmed, out.Resolution)
	assert.Equal(t, store.StatusConfirmed, out.Comment.Status)
	assert.NotEmpty(t, out.Comment.ID)

	a, err := e.Collection().Article("id-a")
	require.NoError(t, err)
	require.Len(t, a.Comments, 1)
	assert.Equal(t, "nice", a.Comments[0].Text)
	assert.False(t, a.Comments[0].Pending())

	out, err = e.RemoveComment(ctx, "id-a", out.Comment.ID)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, out.Resolution)

	a, err = e.Collection().Article("id-a")
	require.NoError(t, err)
	assert.Empty(t, a.Comments)
	assert.Equal(t, []string{"CreateComment", "DeleteComment"}, tr.Calls())
}

func TestEngine_AddCommentPendingThenReverted(t *testing.T) {
	ctx := context.Background()
	started, release := make(chan struct{}), make(chan struct{})
	tr := &TransportMock{
		CreateCommentFunc: func(context.Context, string, string) (string, error) {
			close(started)
			<-release
			return "", errors.New("boom")
		},
	}
	e := prepEngine(tr, "a", "b", "c")

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result)
	go func() {
		out, err := e.AddComment(ctx, "id-a", "nice")
		done <- result{out: out, err: err}
	}()

	<-started
	a, err := e.Collection().Article("id-a")
	require.NoError(t, err)
	require.Len(t, a.Comments, 1)
	assert.True(t, a.Comments[0].Pending(), "draft must be visible before confirmation")

	_, err = e.AddComment(ctx, "id-a", "second")
	assert.ErrorIs(t, err, ErrBusy, "one unconfirmed mutation per article")
	assert.ErrorIs(t, e.Refresh(ctx), ErrBusy, "no rescrape while a comment is unconfirmed")
	assert.ErrorIs(t, e.RemoveFeed(ctx, "a"), ErrBusy)

	close(release)
	res := <-done

	var te *TransportError
	require.True(t, errors.As(res.err, &te))
	assert.Equal(t, "create comment", te.Op)
	assert.Equal(t, Reverted, res.out.Resolution)

	a, err = e.Collection().Article("id-a")
	require.NoError(t, err)
	assert.Empty(t, a.Comments)
}

func TestEngine_SnapshotSkipsUnconfirmedComments(t *testing.T) {
	ctx := context.Background()
	started, release := make(chan struct{}), make(chan struct{})
	tr := &TransportMock{
		CreateCommentFunc: func(_ context.Context, articleID, text string) (string, error) {
			if articleID == "id-a" {
				close(started)
				<-release
				return "", errors.New("boom")
			}
			return text, nil
		},
	}

	var mu sync.Mutex
	var snaps []store.Snapshot
	col := store.NewCollection()
	col.Replace(articlesFor("a", "b", "c"))
	e := NewEngine(tr, col, WithTimeout(time.Second),
		WithSnapshotter(snapshotterFunc(func(_ context.Context, s store.Snapshot) error {
			mu.Lock()
			defer mu.Unlock()
			snaps = append(snaps, s)
			return nil
		})))

	done := make(chan error)
	go func() {
		_, err := e.AddComment(ctx, "id-a", "nice")
		done <- err
	}()
	<-started

	out, err := e.AddComment(ctx, "id-b", "other")
	require.NoError(t, err)
	assert.Equal(t, Confirmed, out.Resolution)

	close(release)
	var te *TransportError
	require.True(t, errors.As(<-done, &te))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snaps, 2, "saved after the confirmed comment and after the revert")

	for _, snap := range snaps {
		for _, a := range snap.Articles {
			for _, c := range a.Comments {
				assert.False(t, c.Pending(), "article %s has pending comment %q", a.ID, c.Text)
				assert.NotEqual(t, "nice", c.Text)
			}
		}
	}

	// warm start from the last snapshot brings back only the confirmed comment
	restored := store.NewCollection()
	restored.Replace(snaps[len(snaps)-1].Articles)
	a, err := restored.Article("id-a")
	require.NoError(t, err)
	assert.Empty(t, a.Comments)
	b, err := restored.Article("id-b")
	require.NoError(t, err)
	require.Len(t, b.Comments, 1)
	assert.Equal(t, "other", b.Comments[0].Text)
	assert.Equal(t, store.StatusConfirmed, b.Comments[0].Status)
}

func TestEngine_RemoveCommentRestoredOnFailure(t *testing.T) {
	ctx := context.Background()
	tr := &TransportMock{
		DeleteCommentFunc: func(context.Context, string, string) error { return errors.New("boom") },
	}

	col := store.NewCollection()
	art := articlesFor("a")[0]
	art.Comments = []store.Comment{{Text: "one"}, {Text: "same"}, {Text: "same"}}
	col.Replace([]store.Article{art})
	e := NewEngine(tr, col)

	before, err := col.Article("id-a")
	require.NoError(t, err)

	out, err := e.RemoveComment(ctx, "id-a", before.Comments[2].ID)
	require.Error(t, err)
	assert.Equal(t, Reverted, out.Resolution)
	assert.Equal(t, before.Comments[2], out.Comment)

	after, err := col.Article("id-a")
	require.NoError(t, err)
	assert.Equal(t, before.Comments, after.Comments)

	_, err = e.RemoveComment(ctx, "id-a", "unknown")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.AddComment(ctx, "id-a", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, []string{"DeleteComment"}, tr.Calls())
}

func TestEngine_MutationsRejectedWhileScraping(t *testing.T) {
	ctx := context.Background()
	started, release := make(chan struct{}), make(chan struct{})
	tr := &TransportMock{
		RescrapeFunc: func(context.Context) ([]store.Article, error) {
			close(started)
			<-release
			return articlesFor("a", "b", "c", "d"), nil
		},
	}
	e := prepEngine(tr, "a", "b", "c", "d")

	done := make(chan error)
	go func() { done <- e.Refresh(ctx) }()

	<-started
	assert.True(t, e.Busy())
	assert.ErrorIs(t, e.Refresh(ctx), ErrBusy)
	assert.ErrorIs(t, e.Load(ctx), ErrBusy)
	assert.ErrorIs(t, e.AddFeed(ctx, "e", "https://e.example.com/rss"), ErrBusy)
	assert.ErrorIs(t, e.RemoveFeed(ctx, "a"), ErrBusy)
	_, err := e.AddComment(ctx, "id-a", "nice")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, e.Busy())
	assert.Equal(t, []string{"Rescrape"}, tr.Calls())
}

func TestEngine_Timeout(t *testing.T) {
	tr := &TransportMock{
		RescrapeFunc: func(ctx context.Context) ([]store.Article, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("rescrape: %w", ctx.Err())
		},
	}
	col := store.NewCollection()
	e := NewEngine(tr, col, WithTimeout(10*time.Millisecond))

	err := e.Refresh(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, e.Busy())
}
