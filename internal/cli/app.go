package cli

import (
	"context"
	"fmt"

	"github.com/tessro/onetap/internal/config"
	"github.com/tessro/onetap/internal/core"
	"github.com/tessro/onetap/internal/history"
	"github.com/tessro/onetap/internal/library"
	xlog "github.com/tessro/onetap/internal/log"
	"github.com/tessro/onetap/internal/playback"
	"github.com/tessro/onetap/internal/selector"
	"github.com/tessro/onetap/internal/transport"
)

// app is the composed runtime: one history store, one transport and the
// launcher that ties them to the selector.
type app struct {
	store     core.HistoryStore
	transport transport.Live
	session   *playback.Session
	launcher  *playback.Launcher
}

type transportKey struct{}

// withTransport makes commands run under ctx use live instead of the
// configured transport.
func withTransport(ctx context.Context, live transport.Live) context.Context {
	return context.WithValue(ctx, transportKey{}, live)
}

func transportFrom(ctx context.Context) transport.Live {
	live, _ := ctx.Value(transportKey{}).(transport.Live)
	return live
}

func openStore(c *config.Config) (core.HistoryStore, error) {
	store, err := history.Open(c.History.Backend, c.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func transportOptions(c *config.Config) transport.Options {
	return transport.Options{
		Kind:         c.Transport.Kind,
		KodiURL:      c.Transport.KodiURL,
		Username:     c.Transport.Username,
		Password:     c.Transport.Password,
		Timeout:      c.TransportTimeout(),
		Command:      c.Transport.Command,
		PollInterval: c.PollInterval(),
		Logger:       xlog.WithComponent("transport"),
	}
}

func settingsFrom(c *config.Config) playback.Settings {
	return playback.Settings{
		Shows:  c.Shows(),
		Mode:   c.PlaybackMode(),
		Random: c.RandomOptions(),
	}
}

// newApp wires the app from c. The transport comes from ctx when one was
// attached with withTransport, otherwise from the config.
func newApp(ctx context.Context, c *config.Config) (*app, error) {
	store, err := openStore(c)
	if err != nil {
		return nil, err
	}

	live := transportFrom(ctx)
	if live == nil {
		live, err = transport.New(transportOptions(c))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	tolerant := history.NewTolerant(store, xlog.WithComponent("history"))
	session := playback.NewSession(live, tolerant,
		playback.WithFailureBudget(c.Playback.FailureBudget),
		playback.WithMaxHistory(c.History.Max),
	)
	launcher := playback.NewLauncher(settingsFrom(c), library.Lister{}, selector.New(), tolerant, session)

	return &app{store: store, transport: live, session: session, launcher: launcher}, nil
}

// reload applies a new configuration to the running launcher and session.
// The history backend and the transport are fixed for the life of the app.
func (a *app) reload(c *config.Config) {
	a.launcher.SetSettings(settingsFrom(c))
	a.session.SetFailureBudget(c.Playback.FailureBudget)
	a.session.SetMaxHistory(c.History.Max)
}

func (a *app) Close() error {
	return a.store.Close()
}
