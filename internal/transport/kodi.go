package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

const (
	defaultKodiTimeout = 10 * time.Second
	jsonRPCVersion     = "2.0"
)

// KodiOptions configures a Kodi JSON-RPC transport.
type KodiOptions struct {
	URL          string // base URL, e.g. http://127.0.0.1:8080
	Username     string
	Password     string
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       zerolog.Logger
	HTTPClient   *http.Client
}

// Kodi drives a Kodi host over its HTTP JSON-RPC endpoint.
type Kodi struct {
	Hub

	endpoint   string
	username   string
	password   string
	httpClient *http.Client
	logger     zerolog.Logger
	watcher    *Watcher
}

// NewKodi creates a Kodi transport.
func NewKodi(opts KodiOptions) *Kodi {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultKodiTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	k := &Kodi{
		endpoint:   strings.TrimRight(opts.URL, "/") + "/jsonrpc",
		username:   opts.Username,
		password:   opts.Password,
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("transport", KindKodi).Logger(),
	}
	k.watcher = NewWatcher(k, opts.PollInterval, k.Emit)
	return k
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("Kodi error %d: %s", e.Code, e.Message)
}

// Call performs one JSON-RPC request and decodes its result into result.
// A response carrying an error member is returned as *RPCError. Calls are
// never retried.
func (k *Kodi) Call(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: jsonRPCVersion, ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if k.username != "" {
		req.SetBasicAuth(k.username, k.password)
	}

	k.logger.Debug().Str("method", method).RawJSON("body", body).Msg("kodi request")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", apperr.ErrTransportUnavailable, err)
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", apperr.ErrTransport, err)
	}

	k.logger.Debug().Str("method", method).Int("status", resp.StatusCode).Msg("kodi response")

	if resp.StatusCode == http.StatusUnauthorized {
		return apperr.WithSuggestion(
			fmt.Errorf("%w: Kodi rejected credentials", apperr.ErrTransport),
			"Check transport.username and transport.password",
		)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d, body: %s", apperr.ErrTransport, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", apperr.ErrTransport, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: failed to parse result: %v", apperr.ErrTransport, err)
		}
	}
	return nil
}

// Play opens episode with Player.Open. An RPC error member becomes the
// result's error payload; delivery problems are returned as errors.
func (k *Kodi) Play(ctx context.Context, episode string) (core.PlayResult, error) {
	params := map[string]any{"item": map[string]string{"file": episode}}

	err := k.Call(ctx, "Player.Open", params, nil)
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return core.PlayResult{Error: rpcErr.Message}, nil
	}
	if err != nil {
		return core.PlayResult{}, err
	}

	k.watcher.Expect(episode)
	return core.PlayResult{}, nil
}

// Stop stops every active player.
func (k *Kodi) Stop(ctx context.Context) error {
	players, err := k.activePlayers(ctx)
	if err != nil {
		return err
	}
	for _, p := range players {
		if err := k.Call(ctx, "Player.Stop", map[string]int{"playerid": p.ID}, nil); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks that the host answers JSON-RPC.
func (k *Kodi) Ping(ctx context.Context) error {
	return k.Call(ctx, "JSONRPC.Ping", nil, nil)
}

// Run polls player state and emits lifecycle events until ctx is done.
func (k *Kodi) Run(ctx context.Context) error {
	err := k.watcher.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type activePlayer struct {
	ID   int    `json:"playerid"`
	Type string `json:"type"`
}

type kodiTime struct {
	Hours        int `json:"hours"`
	Minutes      int `json:"minutes"`
	Seconds      int `json:"seconds"`
	Milliseconds int `json:"milliseconds"`
}

func (t kodiTime) Duration() time.Duration {
	return time.Duration(t.Hours)*time.Hour +
		time.Duration(t.Minutes)*time.Minute +
		time.Duration(t.Seconds)*time.Second +
		time.Duration(t.Milliseconds)*time.Millisecond
}

func (k *Kodi) activePlayers(ctx context.Context) ([]activePlayer, error) {
	var players []activePlayer
	if err := k.Call(ctx, "Player.GetActivePlayers", nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// State reports what the video player is doing. It returns an empty state
// when nothing is playing.
func (k *Kodi) State(ctx context.Context) (*core.PlaybackState, error) {
	players, err := k.activePlayers(ctx)
	if err != nil {
		return nil, err
	}

	var player *activePlayer
	for i := range players {
		if players[i].Type == "video" {
			player = &players[i]
			break
		}
	}
	if player == nil {
		return &core.PlaybackState{}, nil
	}

	var item struct {
		Item struct {
			File string `json:"file"`
		} `json:"item"`
	}
	if err := k.Call(ctx, "Player.GetItem", map[string]any{
		"playerid":   player.ID,
		"properties": []string{"file"},
	}, &item); err != nil {
		return nil, err
	}

	var props struct {
		Time      kodiTime `json:"time"`
		TotalTime kodiTime `json:"totaltime"`
		Speed     int      `json:"speed"`
	}
	if err := k.Call(ctx, "Player.GetProperties", map[string]any{
		"playerid":   player.ID,
		"properties": []string{"time", "totaltime", "speed"},
	}, &props); err != nil {
		return nil, err
	}

	return &core.PlaybackState{
		File:      item.Item.File,
		IsPlaying: props.Speed != 0,
		Progress:  props.Time.Duration(),
		Duration:  props.TotalTime.Duration(),
	}, nil
}
