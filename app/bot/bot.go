// Package bot contains the chat interface of the news board:
// routes, controllers and rendering of the collection for chat messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Semior001/newsboard/app/feed"
	"github.com/Semior001/newsboard/app/store"
	"github.com/Semior001/newsboard/app/view"
	"github.com/Semior001/newsboard/pkg/botx"
	"github.com/Semior001/newsboard/pkg/botx/botmw"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"
)

// Ctrl provides routes and controllers for bot updates.
type Ctrl struct {
	Logger         *slog.Logger
	Store          store.Interface
	Engine         *feed.Engine
	Projector      *view.Projector
	API            botx.API
	AdminIDs       []string
	AuthToken      string
	HandlerTimeout time.Duration
}

// Routes returns a multiplexer for bot controllers.
func (c *Ctrl) Routes() *botx.Router {
	rtr := botx.NewRouter()

	rtr.Use(
		botmw.RequestID(),
		botmw.AppendRequestIDOnError(),
		botmw.Recover(c.Logger),
		botmw.Logger(c.Logger),
		botmw.Timeout(c.HandlerTimeout),
		c.ensureAuthorized,
	)

	rtr.NotFound(c.help)
	rtr.Add("/help", c.help)
	rtr.Add("/start", c.start)
	rtr.Add("/stop", c.stop)

	rtr.Add("/feeds", c.feeds)
	rtr.Add("/filter", c.filter)
	rtr.Add("/article", c.article)
	rtr.Add("/refresh", c.refresh)
	rtr.Add("/addfeed", c.addFeed)
	rtr.Add("/rmfeed", c.removeFeed)
	rtr.Add("/comment", c.addComment)
	rtr.Add("/uncomment", c.removeComment)

	rtr.Group(func(rtr *botx.Router) {
		rtr.Use(c.ensureAdmin)

		rtr.Add("/users", c.list)
		rtr.Add("/deluser", c.delete)
		rtr.Add("/cache", c.cacheStats)
	})

	return rtr
}

const helpText = `Commands:
/feeds - show news grouped by feed
/filter cat,dog - show news mentioning any of the keywords
/article <id> - show the article with its comments
/refresh - scrape all feeds again
/addfeed <site> <url> - add an RSS feed
/rmfeed <site> - remove the feed and its news
/comment <article id> <text> - comment the article
/uncomment <article id> <comment id> - remove the comment
/start, /stop - turn refresh notifications on and off`

func (c *Ctrl) help(_ context.Context, req botx.Request) ([]botx.Response, error) {
	return []botx.Response{req.Reply(escapeMarkdown(helpText))}, nil
}

func (c *Ctrl) start(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	u, ok := authorizedUser(ctx)
	if !ok {
		return c.register(ctx, req)
	}

	u.Subscribed = true
	if err := c.Store.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return []botx.Response{req.Reply("You will be notified after each feeds refresh.")}, nil
}

func (c *Ctrl) stop(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	u, ok := authorizedUser(ctx)
	if !ok {
		return nil, errors.New("no user in context")
	}

	u.Subscribed = false
	if err := c.Store.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return []botx.Response{req.Reply("You will no longer receive refresh notifications.")}, nil
}

func (c *Ctrl) ensureAdmin(h botx.Handler) botx.Handler {
	return func(ctx context.Context, req botx.Request) ([]botx.Response, error) {
		if !lo.Contains(c.AdminIDs, req.Chat.ID) {
			return c.help(ctx, req)
		}

		return h(ctx, req)
	}
}

func (c *Ctrl) ensureAuthorized(h botx.Handler) botx.Handler {
	return func(ctx context.Context, req botx.Request) ([]botx.Response, error) {
		u, err := c.Store.Get(ctx, req.Chat.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.register(ctx, req)
			}

			return nil, fmt.Errorf("get user: %w", err)
		}

		if u.Authorized {
			return h(context.WithValue(ctx, ctxUserKey{}, u), req)
		}

		if strings.TrimSpace(req.Text) != c.AuthToken || c.AuthToken == "" {
			return []botx.Response{req.Reply("You are not authorized, please provide a token.")}, nil
		}

		u.Authorized = true
		u.Subscribed = true

		if err := c.Store.Put(ctx, u); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}

		return []botx.Response{req.Reply("You are now authorized.\n\n" + escapeMarkdown(helpText))}, nil
	}
}

func (c *Ctrl) register(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	u := store.User{
		ChatID:   req.Chat.ID,
		Username: req.Chat.Username,
	}

	if err := c.Store.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("add user: %w", err)
	}

	if err := c.NotifyAdmins(ctx, fmt.Sprintf("new user: %s", escapeMarkdown(req.Chat.Username))); err != nil {
		c.Logger.WarnCtx(ctx, "notify admins about registered user", slog.Any("err", err))
	}

	return []botx.Response{req.Reply("Hello! In order to read the news board, you need to provide a token,\n" +
		"please ask admin for it and then send it to me.")}, nil
}

type ctxUserKey struct{}

// authorizedUser returns the user put to the context by ensureAuthorized.
func authorizedUser(ctx context.Context) (store.User, bool) {
	u, ok := ctx.Value(ctxUserKey{}).(store.User)
	return u, ok
}

// NotifyAdmins sends a message to all admins.
func (c *Ctrl) NotifyAdmins(ctx context.Context, msg string) error {
	for _, adminID := range c.AdminIDs {
		if err := c.API.SendMessage(ctx, botx.Response{ChatID: adminID, Text: msg}); err != nil {
			return fmt.Errorf("send message to admin %s: %w", adminID, err)
		}
	}

	return nil
}

// notifySubscribers sends the message to every subscribed user, except the given chat.
func (c *Ctrl) notifySubscribers(ctx context.Context, exceptChatID, msg string) {
	users, err := c.Store.List(ctx, store.ListRequest{SubscribedOnly: true})
	if err != nil {
		c.Logger.WarnCtx(ctx, "failed to list subscribers", slog.Any("err", err))
		return
	}

	for _, u := range users {
		if u.ChatID == exceptChatID {
			continue
		}

		if err := c.API.SendMessage(ctx, botx.Response{ChatID: u.ChatID, Text: msg}); err != nil {
			c.Logger.WarnCtx(ctx, "failed to notify subscriber",
				slog.String("chat_id", u.ChatID), slog.Any("err", err))
		}
	}
}
