// Package botx provides interfaces and types to handle bot updates
// with a command router.
package botx

import (
	"context"
	"sync"

	"github.com/Semior001/newsboard/pkg/logx"
	"golang.org/x/exp/slog"
)

// API defines methods for an API interface to receive and send chat messages.
type API interface {
	Updates() <-chan Request
	SendMessage(ctx context.Context, resp Response) error
}

// Bot defines parameters for running a bot over some API.
type Bot struct {
	h   Handler
	api API
	Options
}

// NewBot creates a new Bot.
func NewBot(h Handler, api API, opts ...Option) *Bot {
	options := Options{
		Workers: 1,
		Logger:  slog.New(logx.NoOp()),
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &Bot{
		h:       h,
		api:     api,
		Options: options,
	}
}

// Run starts updates listener, it returns when the context is done
// or the updates channel is closed.
func (b *Bot) Run(ctx context.Context) {
	wg := &sync.WaitGroup{}
	wg.Add(b.Workers)

	updates := b.api.Updates()

	for i := 0; i < b.Workers; i++ {
		go func(idx int) {
			b.Logger.DebugCtx(ctx, "starting worker", slog.Int("worker", idx))

			defer func() {
				b.Logger.DebugCtx(ctx, "stopping worker", slog.Int("worker", idx))
				wg.Done()
			}()

			for {
				select {
				case <-ctx.Done():
					return
				case req, ok := <-updates:
					if !ok {
						return
					}
					b.handleUpdate(ctx, req)
				}
			}
		}(i)
	}

	wg.Wait()
}

func (b *Bot) handleUpdate(ctx context.Context, req Request) {
	resps, err := b.h(ctx, req)
	if err != nil {
		b.Logger.ErrorCtx(ctx, "failed to handle request",
			slog.String("chat_id", req.Chat.ID),
			slog.Any("err", err))
	}

	for _, resp := range resps {
		if err := b.send(ctx, resp); err != nil {
			b.Logger.WarnCtx(ctx, "failed to send message",
				slog.String("chat_id", resp.ChatID),
				slog.Any("err", err))
		}
	}
}

func (b *Bot) send(ctx context.Context, resp Response) error {
	if b.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.SendTimeout)
		defer cancel()
	}

	return b.api.SendMessage(ctx, resp)
}
