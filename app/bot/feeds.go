package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Semior001/newsboard/app/feed"
	"github.com/Semior001/newsboard/app/store"
	"github.com/Semior001/newsboard/app/view"
	"github.com/Semior001/newsboard/pkg/botx"
	"golang.org/x/exp/slog"
)

const busyNotice = "Feeds are being refreshed, please try again in a moment."

func (c *Ctrl) feeds(_ context.Context, req botx.Request) ([]botx.Response, error) {
	return c.page(req, "", c.Projector.All())
}

func (c *Ctrl) filter(_ context.Context, req botx.Request) ([]botx.Response, error) {
	keywords := req.Args()
	if keywords == "" {
		return c.page(req, "", c.Projector.All())
	}

	return c.page(req, "", c.Projector.Filtered(keywords))
}

func (c *Ctrl) article(_ context.Context, req botx.Request) ([]botx.Response, error) {
	id := req.Args()
	if id == "" {
		return []botx.Response{req.Reply("Usage: /article <id>")}, nil
	}

	a, err := c.Engine.Collection().Article(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []botx.Response{req.Reply("Article not found.")}, nil
		}
		return nil, fmt.Errorf("get article: %w", err)
	}

	text, err := renderArticle(a)
	if err != nil {
		return nil, err
	}

	return []botx.Response{req.Reply("*" + escapeMarkdown(a.Site) + "*\n\n" + text)}, nil
}

func (c *Ctrl) refresh(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	if c.Engine.Busy() {
		return []botx.Response{req.Reply(busyNotice)}, nil
	}

	if err := c.API.SendMessage(ctx, req.Reply("Refreshing feeds, please wait...")); err != nil {
		return nil, fmt.Errorf("send start message: %w", err)
	}

	if err := c.Engine.Refresh(ctx); err != nil {
		return c.failure(ctx, req, err)
	}

	c.notifySubscribers(ctx, req.Chat.ID, c.summary("Feeds refreshed"))
	return c.page(req, "", c.Projector.All())
}

func (c *Ctrl) addFeed(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	fields := strings.Fields(req.Args())
	if len(fields) < 2 {
		return []botx.Response{req.Reply("Usage: /addfeed <site> <url>")}, nil
	}

	site, feedURL := strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]

	if err := c.API.SendMessage(ctx, req.Reply("Adding the feed and scraping news, please wait...")); err != nil {
		return nil, fmt.Errorf("send start message: %w", err)
	}

	if err := c.Engine.AddFeed(ctx, site, feedURL); err != nil {
		return c.failure(ctx, req, err)
	}

	c.notifySubscribers(ctx, req.Chat.ID, c.summary(fmt.Sprintf("Feed %q added", site)))
	return c.page(req, fmt.Sprintf("Feed %q added.", site), c.Projector.All())
}

func (c *Ctrl) removeFeed(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	site := req.Args()
	if site == "" {
		return []botx.Response{req.Reply("Usage: /rmfeed <site>")}, nil
	}

	if err := c.Engine.RemoveFeed(ctx, site); err != nil {
		return c.failure(ctx, req, err)
	}

	return c.page(req, fmt.Sprintf("Feed %q removed.", site), c.Projector.All())
}

func (c *Ctrl) addComment(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	articleID, text, _ := strings.Cut(req.Args(), " ")
	if articleID == "" || strings.TrimSpace(text) == "" {
		return []botx.Response{req.Reply("Usage: /comment <article id> <text>")}, nil
	}

	out, err := c.Engine.AddComment(ctx, articleID, strings.TrimSpace(text))
	if err != nil {
		return c.failure(ctx, req, err)
	}

	return c.outcome(req, out, "Comment added.")
}

func (c *Ctrl) removeComment(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	fields := strings.Fields(req.Args())
	if len(fields) != 2 {
		return []botx.Response{req.Reply("Usage: /uncomment <article id> <comment id>")}, nil
	}

	out, err := c.Engine.RemoveComment(ctx, fields[0], fields[1])
	if err != nil {
		return c.failure(ctx, req, err)
	}

	return c.outcome(req, out, "Comment removed.")
}

func (c *Ctrl) outcome(req botx.Request, out feed.Outcome, msg string) ([]botx.Response, error) {
	a, err := c.Engine.Collection().Article(out.ArticleID)
	if err != nil {
		// the article is gone along with its feed, nothing to show
		return []botx.Response{req.Reply(msg)}, nil
	}

	text, err := renderArticle(a)
	if err != nil {
		return nil, err
	}

	return []botx.Response{req.Reply(msg + "\n\n" + text)}, nil
}

func (c *Ctrl) page(req botx.Request, header string, p view.Page) ([]botx.Response, error) {
	text, err := renderPage(p)
	if err != nil {
		return nil, err
	}

	if c.Engine.Busy() {
		text = "_" + busyNotice + "_\n\n" + text
	}

	if header != "" {
		text = escapeMarkdown(header) + "\n\n" + text
	}

	return []botx.Response{req.Reply(text)}, nil
}

func (c *Ctrl) summary(prefix string) string {
	col := c.Engine.Collection()
	return escapeMarkdown(fmt.Sprintf("%s: %d articles from %d feeds.", prefix, col.Len(), len(col.DistinctSites())))
}

// failure turns engine errors into notices for the user.
// Unexpected errors are returned as is.
func (c *Ctrl) failure(ctx context.Context, req botx.Request, err error) ([]botx.Response, error) {
	var pv *feed.PolicyViolation
	var te *feed.TransportError

	switch {
	case errors.As(err, &pv):
		return []botx.Response{req.Reply(pv.Notice)}, nil
	case errors.Is(err, feed.ErrBusy):
		return []botx.Response{req.Reply(busyNotice)}, nil
	case errors.Is(err, feed.ErrInvalidInput):
		return []botx.Response{req.Reply(escapeMarkdown(err.Error()))}, nil
	case errors.Is(err, store.ErrNotFound):
		return []botx.Response{req.Reply("Not found: " + escapeMarkdown(err.Error()))}, nil
	case errors.As(err, &te):
		c.Logger.WarnCtx(ctx, "remote request failed", slog.String("op", te.Op), slog.Any("err", te.Err))
		return []botx.Response{req.Reply(fmt.Sprintf("Remote request failed (%s), please try again later.", te.Op))}, nil
	default:
		return nil, err
	}
}
