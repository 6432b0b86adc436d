// Package transport implements the playback capability: opening episode files
// on a playback host and reporting ended/error/stopped lifecycle events.
package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

// Transport kinds accepted by New.
const (
	KindKodi    = "kodi"
	KindCommand = "command"
	KindNoop    = "noop"
)

// Live is a transport that also delivers lifecycle events once running.
type Live interface {
	core.Transport
	core.EventSource
	// Run drives event delivery until ctx is done.
	Run(ctx context.Context) error
	// Stop ends whatever is playing. Nothing playing is not an error.
	Stop(ctx context.Context) error
	// Ping checks that the playback host can be reached.
	Ping(ctx context.Context) error
}

// Options selects and configures a transport.
type Options struct {
	Kind         string
	KodiURL      string
	Username     string
	Password     string
	Timeout      time.Duration
	Command      []string
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// New builds the transport named by opts.Kind.
func New(opts Options) (Live, error) {
	switch strings.ToLower(opts.Kind) {
	case KindKodi, "":
		if opts.KodiURL == "" {
			return nil, fmt.Errorf("%w: transport.kodi_url is required for kind %q", apperr.ErrConfiguration, KindKodi)
		}
		return NewKodi(KodiOptions{
			URL:          opts.KodiURL,
			Username:     opts.Username,
			Password:     opts.Password,
			Timeout:      opts.Timeout,
			PollInterval: opts.PollInterval,
			Logger:       opts.Logger,
		}), nil
	case KindCommand:
		if len(opts.Command) == 0 {
			return nil, fmt.Errorf("%w: transport.command is required for kind %q", apperr.ErrConfiguration, KindCommand)
		}
		return NewCommand(opts.Command, CommandOptions{Logger: opts.Logger}), nil
	case KindNoop:
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport kind %q", apperr.ErrConfiguration, opts.Kind)
	}
}

var (
	_ Live = (*Kodi)(nil)
	_ Live = (*Command)(nil)
	_ Live = (*Noop)(nil)
)
