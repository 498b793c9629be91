// Package cmd contains commands for the application.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Semior001/newsboard/app/bot"
	"github.com/Semior001/newsboard/app/feed"
	"github.com/Semior001/newsboard/app/store"
	"github.com/Semior001/newsboard/app/transport"
	"github.com/Semior001/newsboard/app/view"
	"github.com/Semior001/newsboard/pkg/botx"
	"github.com/Semior001/newsboard/pkg/botx/botapi"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// Run is a command to run the bot.
type Run struct {
	Bot struct {
		Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"2m" description:"timeout for handling a single update"`
		Workers int           `long:"workers" env:"WORKERS" default:"10" description:"amount of update handlers running in parallel"`

		Telegram struct {
			Token string `long:"token" env:"TOKEN" description:"telegram token"`
		} `group:"telegram" namespace:"telegram" env-namespace:"TELEGRAM"`

		AdminIDs  []string `long:"admin-ids" env:"ADMIN_IDS" description:"admin IDs"`
		AuthToken string   `long:"auth-token" env:"AUTH_TOKEN" description:"token for authorizing requests"`
	} `group:"bot" namespace:"bot" env-namespace:"BOT"`

	Remote struct {
		URL     string        `long:"url" env:"URL" default:"http://localhost:8080" description:"base url of the article store"`
		Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"timeout for a single remote call"`
	} `group:"remote" namespace:"remote" env-namespace:"REMOTE"`

	CacheSize int    `long:"cache-size" env:"CACHE_SIZE" default:"100" description:"max amount of cached page projections"`
	StorePath string `long:"store-path" env:"STORE_PATH" description:"parent dir for bolt files"`
}

// Execute runs the command.
func (r Run) Execute(_ []string) error {
	lg := slog.Default()

	s, err := store.NewBolt(r.StorePath)
	if err != nil {
		return fmt.Errorf("make store: %w", err)
	}

	defer func() {
		if err := s.Close(); err != nil {
			lg.Error("close bolt store", slog.Any("err", err))
		}
	}()

	col, err := r.warmCollection(lg, s)
	if err != nil {
		return fmt.Errorf("warm up collection: %w", err)
	}

	engine := feed.NewEngine(
		transport.NewHTTP(lg.With(slog.String("prefix", "transport")), http.Client{}, r.Remote.URL),
		col,
		feed.WithLogger(lg.With(slog.String("prefix", "engine"))),
		feed.WithTimeout(r.Remote.Timeout),
		feed.WithSnapshotter(s),
	)

	api, err := botapi.NewTelegram(
		lg.With(slog.String("prefix", "telegram")),
		r.Bot.Telegram.Token,
		100,
	)
	if err != nil {
		return fmt.Errorf("make telegram controller: %w", err)
	}

	ctrl := &bot.Ctrl{
		Logger:         lg.With(slog.String("prefix", "bot")),
		Store:          s,
		Engine:         engine,
		Projector:      view.NewProjector(col, r.CacheSize),
		API:            api,
		AdminIDs:       r.Bot.AdminIDs,
		AuthToken:      r.Bot.AuthToken,
		HandlerTimeout: r.Bot.Timeout,
	}

	b := botx.NewBot(
		ctrl.Routes().Handle,
		api,
		botx.WithLogger(lg.With(slog.String("prefix", "botx"))),
		botx.WithWorkers(r.Bot.Workers),
		botx.WithSendTimeout(r.Remote.Timeout),
	)

	// the bot stays usable on a cached collection even if the store is down
	if err := engine.Load(context.Background()); err != nil {
		lg.Warn("failed to load articles", slog.Any("err", err))
	}

	if err := ctrl.NotifyAdmins(context.Background(), "bot started"); err != nil {
		return fmt.Errorf("notify admins about started bot: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case sig := <-sig:
			slog.Warn("caught signal, stopping", slog.String("signal", sig.String()))
			stop()
			return ctx.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	ewg.Go(func() error {
		lg.Info("starting bot")
		b.Run(ctx)
		lg.Warn("bot stopped")
		return nil
	})

	// api is run out of errgroup, it has to outlive the context
	// to notify admins about bot stopping
	apiStopped := make(chan struct{})
	go func() {
		lg.Info("starting telegram api")
		api.Run()
		lg.Warn("telegram api stopped listening for updates")
		apiStopped <- struct{}{}
	}()

	if err := ewg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		msg := fmt.Sprintf("bot stopped with error: %v", err)

		if sendErr := ctrl.NotifyAdmins(context.Background(), msg); sendErr != nil {
			return fmt.Errorf("notify admins about stopped bot (for reason: %v): %w", err, sendErr)
		}

		return err
	}

	if err := ctrl.NotifyAdmins(context.Background(), "bot stopped"); err != nil {
		return fmt.Errorf("notify admins about stopped bot: %w", err)
	}

	lg.Info("stopping telegram api")
	api.Stop()
	<-apiStopped
	lg.Info("telegram api stopped")

	return nil
}

// warmCollection fills the collection from the last saved snapshot, if any.
func (r Run) warmCollection(lg *slog.Logger, s *store.Bolt) (*store.Collection, error) {
	col := store.NewCollection()

	snap, err := s.LoadSnapshot(context.Background())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return col, nil
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	col.Replace(snap.Articles)
	lg.Info("collection restored from snapshot",
		slog.Int("articles", len(snap.Articles)),
		slog.Int("feeds", len(col.DistinctSites())))

	return col, nil
}
