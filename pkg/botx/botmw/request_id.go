package botmw

import (
	"context"
	"fmt"

	"github.com/Semior001/newsboard/pkg/botx"
	"github.com/Semior001/newsboard/pkg/logx"
	"github.com/google/uuid"
)

// RequestID is a middleware that adds a fresh request id to context.
func RequestID() botx.Middleware {
	return func(next botx.Handler) botx.Handler {
		return func(ctx context.Context, req botx.Request) ([]botx.Response, error) {
			return next(logx.ContextWithRequestID(ctx, uuid.NewString()), req)
		}
	}
}

// AppendRequestIDOnError is a middleware that adds the request id to the
// responses of a failed request, so the user can report it to admins.
// If the handler has no response for the requester, a generic one is added.
func AppendRequestIDOnError() botx.Middleware {
	return func(next botx.Handler) botx.Handler {
		return func(ctx context.Context, req botx.Request) ([]botx.Response, error) {
			resps, err := next(ctx, req)
			if err == nil {
				return resps, nil
			}

			reqID, _ := logx.RequestIDFromContext(ctx)
			footer := fmt.Sprintf("\n\nRequest ID: `%s`", reqID)

			answered := false
			for i := range resps {
				resps[i].Text += footer
				answered = answered || resps[i].ChatID == req.Chat.ID
			}

			if !answered {
				resps = append(resps, req.Reply("Something went wrong, please ask admin for help."+footer))
			}

			return resps, err
		}
	}
}
