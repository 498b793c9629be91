package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Semior001/newsboard/app/store"
	"github.com/Semior001/newsboard/pkg/botx"
)

func (c *Ctrl) list(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	users, err := c.Store.List(ctx, store.ListRequest{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	sb := &strings.Builder{}
	_, _ = sb.WriteString("Users:\n")
	for _, u := range users {
		_, _ = fmt.Fprintf(sb, "id: %s, username: %s, authorized: %t, subscribed: %t\n",
			u.ChatID, escapeMarkdown(u.Username), u.Authorized, u.Subscribed)
	}

	return []botx.Response{req.Reply(sb.String())}, nil
}

func (c *Ctrl) delete(ctx context.Context, req botx.Request) ([]botx.Response, error) {
	chatID := req.Args()
	if chatID == "" || strings.Contains(chatID, " ") {
		return []botx.Response{req.Reply("Usage: /deluser <chat id>")}, nil
	}

	if err := c.Store.Delete(ctx, chatID); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}

	return []botx.Response{req.Reply(fmt.Sprintf("User with id %s was deleted.", chatID))}, nil
}

func (c *Ctrl) cacheStats(_ context.Context, req botx.Request) ([]botx.Response, error) {
	stats := c.Projector.CacheStat()
	col := c.Engine.Collection()

	return []botx.Response{req.Reply(fmt.Sprintf(
		"projections cache: hits: %d, misses: %d, evictions: %d, added: %d\n"+
			"collection: version: %d, articles: %d, feeds: %d\n",
		stats.Hits, stats.Misses, stats.Evicted, stats.Added,
		col.Version(), col.Len(), len(col.DistinctSites()),
	))}, nil
}
