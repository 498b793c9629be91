package botx

import (
	"context"
	"strings"
)

// Handler handles requests.
type Handler func(ctx context.Context, req Request) ([]Response, error)

// Middleware wraps a handler.
type Middleware func(Handler) Handler

// Response is a response from handler.
type Response struct {
	ReplyToMessageID string
	ChatID           string
	Text             string
}

// Request is a request for handler.
type Request struct {
	MessageID string
	Chat      Chat
	Text      string
}

// Chat contains chat information.
type Chat struct {
	ID       string
	Username string
}

// Command returns the command of the request without the bot mention,
// e.g. "/feeds" for "/feeds@newsboard_bot".
// Empty string is returned if the text is not a command.
func (r Request) Command() string {
	if !strings.HasPrefix(r.Text, "/") {
		return ""
	}

	cmd, _, _ := strings.Cut(strings.TrimSpace(r.Text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}

// Args returns the text after the command, trimmed.
func (r Request) Args() string {
	_, args, _ := strings.Cut(strings.TrimSpace(r.Text), " ")
	return strings.TrimSpace(args)
}

// Reply makes a response to the request's chat.
func (r Request) Reply(text string) Response {
	return Response{ChatID: r.Chat.ID, ReplyToMessageID: r.MessageID, Text: text}
}

// NotFound is a default handler for not found commands.
func NotFound(_ context.Context, req Request) ([]Response, error) {
	return []Response{req.Reply("command not found")}, nil
}
