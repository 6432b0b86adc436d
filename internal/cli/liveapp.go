package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tessro/onetap/internal/advance"
	"github.com/tessro/onetap/internal/config"
	"github.com/tessro/onetap/internal/core"
	xlog "github.com/tessro/onetap/internal/log"
	"golang.org/x/sync/errgroup"
)

// pingTimeout bounds the startup reachability check.
const pingTimeout = 3 * time.Second

// liveApp is the long-running form of app: the transport watcher, the
// auto-advance controller and the config watcher run together until the
// context is done.
type liveApp struct {
	*app
	holder     *config.Holder
	controller *advance.Controller
}

// watchedPath is the config file hot reload follows, or "" when running on
// defaults.
func watchedPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.FindConfigFile()
}

func newLiveApp(ctx context.Context, c *config.Config, out io.Writer) (*liveApp, error) {
	a, err := newApp(ctx, c)
	if err != nil {
		return nil, err
	}

	la := &liveApp{
		app:    a,
		holder: config.NewHolder(c, watchedPath()),
	}
	la.controller = advance.NewController(a.launcher, a.transport,
		advance.WithCrossShow(c.AutoAdvance.CrossShow),
		advance.WithOutcomeFunc(outcomePrinter(out)),
	)
	la.holder.OnReload(func(next *config.Config) {
		la.reload(next)
		la.controller.SetCrossShow(next.AutoAdvance.CrossShow)
	})
	return la, nil
}

// outcomePrinter reports every session the controller runs. The callback is
// invoked from the controller loop only, but the lock keeps output whole if
// that ever changes.
func outcomePrinter(w io.Writer) advance.OutcomeFunc {
	var mu sync.Mutex
	return func(out core.Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		if JSONOutput() {
			_ = writeJSON(w, out)
			return
		}
		if out.Status == "" {
			fmt.Fprintf(w, "✗ %s: %v\n", out.ShowID, err)
			return
		}
		_ = printOutcome(w, out)
	}
}

// checkTransport warns on w when the playback host cannot be reached. Plays
// are still attempted; the host may come up later.
func (la *liveApp) checkTransport(ctx context.Context, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := la.transport.Ping(ctx)
	if err != nil {
		logger := xlog.WithComponent("cli")
		logger.Warn().Err(err).Msg("playback host unreachable")
		if !JSONOutput() {
			fmt.Fprintf(w, "⚠ Playback host unreachable: %v\n", err)
		}
	}
	return err
}

// run starts the background loops alongside fn and waits for everything to
// stop. The loops stop when ctx is done or fn returns.
func (la *liveApp) run(ctx context.Context, fn func(ctx context.Context) error) error {
	logger := xlog.WithComponent("cli")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := la.transport.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("transport: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return la.controller.Run(ctx)
	})
	g.Go(func() error {
		if err := la.holder.Watch(ctx); err != nil {
			logger.Warn().Err(err).Msg("config hot reload disabled")
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return fn(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
