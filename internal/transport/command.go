package transport

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

// FilePlaceholder is replaced by the episode path in a command template.
const FilePlaceholder = "{file}"

const defaultStartGrace = 500 * time.Millisecond

// CommandOptions configures a Command transport.
type CommandOptions struct {
	// StartGrace is how long Play waits for an early exit. A non-zero exit
	// inside this window is a failure to start rather than a playback error.
	StartGrace time.Duration
	Logger     zerolog.Logger
}

// Command plays episodes by running an external player process, one at a
// time. Exit status 0 is a natural end, a kill is a stop, anything else is
// a playback error.
type Command struct {
	Hub

	argv   []string
	grace  time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	current *process
}

type process struct {
	cmd     *exec.Cmd
	episode string
	done    chan struct{}
	err     error

	mu       sync.Mutex
	stopped  bool
	replaced bool
}

// NewCommand creates a command transport from an argv template.
func NewCommand(argv []string, opts CommandOptions) *Command {
	grace := opts.StartGrace
	if grace <= 0 {
		grace = defaultStartGrace
	}
	return &Command{
		argv:   append([]string(nil), argv...),
		grace:  grace,
		logger: opts.Logger.With().Str("transport", KindCommand).Logger(),
	}
}

// Args expands the template for episode.
func (c *Command) Args(episode string) []string {
	args := make([]string, len(c.argv))
	for i, a := range c.argv {
		args[i] = strings.ReplaceAll(a, FilePlaceholder, episode)
	}
	return args
}

// Play starts the player for episode, replacing any running one.
func (c *Command) Play(ctx context.Context, episode string) (core.PlayResult, error) {
	if err := ctx.Err(); err != nil {
		return core.PlayResult{}, err
	}

	args := c.Args(episode)
	cmd := exec.Command(args[0], args[1:]...)

	c.mu.Lock()
	prev := c.current
	c.mu.Unlock()
	if prev != nil {
		prev.kill(true)
		<-prev.done
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return core.PlayResult{}, fmt.Errorf("%w: %v", apperr.ErrTransportUnavailable, err)
		}
		return core.PlayResult{Error: err.Error()}, nil
	}

	p := &process{cmd: cmd, episode: episode, done: make(chan struct{})}
	c.mu.Lock()
	c.current = p
	c.mu.Unlock()

	c.logger.Debug().Strs("args", args).Int("pid", cmd.Process.Pid).Msg("player started")

	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	timer := time.NewTimer(c.grace)
	defer timer.Stop()

	select {
	case <-p.done:
		if p.err != nil && !p.wasStopped() {
			c.clear(p)
			return core.PlayResult{Error: p.err.Error()}, nil
		}
		go c.report(p)
	case <-timer.C:
		go c.report(p)
	case <-ctx.Done():
		p.kill(true)
		<-p.done
		c.clear(p)
		return core.PlayResult{}, ctx.Err()
	}
	return core.PlayResult{}, nil
}

// Stop kills the running player, which is reported as a stopped event.
func (c *Command) Stop(ctx context.Context) error {
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()
	if p == nil {
		return nil
	}
	p.kill(false)
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping checks that the player executable can be found.
func (c *Command) Ping(ctx context.Context) error {
	if len(c.argv) == 0 {
		return fmt.Errorf("%w: empty player command", apperr.ErrConfiguration)
	}
	if _, err := exec.LookPath(c.argv[0]); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrTransportUnavailable, err)
	}
	return nil
}

// Run blocks until ctx is done, then stops any running player without
// reporting it.
func (c *Command) Run(ctx context.Context) error {
	<-ctx.Done()
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()
	if p != nil {
		p.kill(true)
		<-p.done
	}
	return nil
}

func (c *Command) report(p *process) {
	<-p.done
	c.clear(p)

	p.mu.Lock()
	replaced, stopped := p.replaced, p.stopped
	p.mu.Unlock()
	if replaced {
		return
	}

	ev := core.Event{Episode: p.episode, Timestamp: time.Now()}
	switch {
	case stopped || killedBySignal(p.err):
		ev.Type = core.EventStopped
	case p.err != nil:
		ev.Type = core.EventError
		ev.Detail = p.err.Error()
	default:
		ev.Type = core.EventEnded
	}
	c.logger.Debug().Str("episode", p.episode).Stringer("event", ev.Type).Msg("player exited")
	c.Emit(ev)
}

func (c *Command) clear(p *process) {
	c.mu.Lock()
	if c.current == p {
		c.current = nil
	}
	c.mu.Unlock()
}

func (p *process) wasStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped || p.replaced
}

// kill terminates the process. A replaced process produces no event.
func (p *process) kill(replaced bool) {
	p.mu.Lock()
	if replaced {
		p.replaced = true
	} else {
		p.stopped = true
	}
	p.mu.Unlock()

	select {
	case <-p.done:
	default:
		_ = p.cmd.Process.Kill()
	}
}

func killedBySignal(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}
