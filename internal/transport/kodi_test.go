package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperr "github.com/tessro/onetap/internal/errors"
)

type fakeKodi struct {
	mu         sync.Mutex
	requests   []rpcRequest
	lastParams json.RawMessage
	auth       [2]string
	handle     func(method string, params json.RawMessage) (any, *RPCError)
}

func (f *fakeKodi) snapshot() ([]rpcRequest, json.RawMessage, [2]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rpcRequest(nil), f.requests...), f.lastParams, f.auth
}

func (f *fakeKodi) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/jsonrpc" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var raw struct {
		rpcRequest
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, pass, _ := r.BasicAuth()

	f.mu.Lock()
	f.requests = append(f.requests, raw.rpcRequest)
	f.lastParams = raw.Params
	f.auth = [2]string{user, pass}
	handle := f.handle
	f.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": raw.ID}
	result, rpcErr := handle(raw.Method, raw.Params)
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newFakeKodi(t *testing.T, handle func(string, json.RawMessage) (any, *RPCError)) (*fakeKodi, *Kodi) {
	t.Helper()
	fake := &fakeKodi{handle: handle}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, NewKodi(KodiOptions{URL: srv.URL + "/", Username: "kodi", Password: "secret"})
}

func TestKodiPlaySendsPlayerOpen(t *testing.T) {
	fake, k := newFakeKodi(t, func(string, json.RawMessage) (any, *RPCError) {
		return "OK", nil
	})

	res, err := k.Play(t.Context(), "/tv/bluey/s01e01.mkv")
	require.NoError(t, err)
	assert.False(t, res.Failed())

	requests, params, auth := fake.snapshot()
	require.Len(t, requests, 1)
	assert.Equal(t, "2.0", requests[0].JSONRPC)
	assert.Equal(t, 1, requests[0].ID)
	assert.Equal(t, "Player.Open", requests[0].Method)
	assert.JSONEq(t, `{"item":{"file":"/tv/bluey/s01e01.mkv"}}`, string(params))
	assert.Equal(t, [2]string{"kodi", "secret"}, auth)
}

func TestKodiPlayErrorPayload(t *testing.T) {
	_, k := newFakeKodi(t, func(string, json.RawMessage) (any, *RPCError) {
		return nil, &RPCError{Code: -32602, Message: "Invalid params."}
	})

	res, err := k.Play(t.Context(), "/missing.mkv")
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, "Invalid params.", res.Error)
}

func TestKodiUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	k := NewKodi(KodiOptions{URL: url, Timeout: time.Second})
	_, err := k.Play(t.Context(), "/a.mkv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTransportUnavailable), "err = %v", err)
	assert.True(t, errors.Is(err, apperr.ErrTransport))
}

func TestKodiHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	k := NewKodi(KodiOptions{URL: srv.URL})
	_, err := k.Play(t.Context(), "/a.mkv")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.Equal(t, "Check transport.username and transport.password", apperr.GetSuggestion(err))
}

func TestKodiState(t *testing.T) {
	_, k := newFakeKodi(t, func(method string, _ json.RawMessage) (any, *RPCError) {
		switch method {
		case "Player.GetActivePlayers":
			return []map[string]any{{"playerid": 0, "type": "audio"}, {"playerid": 1, "type": "video"}}, nil
		case "Player.GetItem":
			return map[string]any{"item": map[string]any{"file": "/tv/a.mkv", "label": "a"}}, nil
		case "Player.GetProperties":
			return map[string]any{
				"time":      map[string]int{"minutes": 1, "seconds": 30},
				"totaltime": map[string]int{"minutes": 7},
				"speed":     1,
			}, nil
		}
		return nil, &RPCError{Code: -32601, Message: "Method not found."}
	})

	state, err := k.State(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "/tv/a.mkv", state.File)
	assert.True(t, state.IsPlaying)
	assert.Equal(t, 90*time.Second, state.Progress)
	assert.Equal(t, 7*time.Minute, state.Duration)
}

func TestKodiStateIdle(t *testing.T) {
	_, k := newFakeKodi(t, func(string, json.RawMessage) (any, *RPCError) {
		return []any{}, nil
	})

	state, err := k.State(t.Context())
	require.NoError(t, err)
	assert.False(t, state.HasItem())
}

func TestKodiStopStopsEveryPlayer(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	fake, k := newFakeKodi(t, func(method string, params json.RawMessage) (any, *RPCError) {
		switch method {
		case "Player.GetActivePlayers":
			return []map[string]any{{"playerid": 0, "type": "audio"}, {"playerid": 1, "type": "video"}}, nil
		case "Player.Stop":
			mu.Lock()
			stopped = append(stopped, string(params))
			mu.Unlock()
			return "OK", nil
		}
		return nil, &RPCError{Code: -32601, Message: "Method not found."}
	})

	require.NoError(t, k.Stop(t.Context()))

	requests, _, _ := fake.snapshot()
	require.Len(t, requests, 3)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"playerid":0}`, `{"playerid":1}`}, stopped)
}

func TestKodiPing(t *testing.T) {
	fake, k := newFakeKodi(t, func(string, json.RawMessage) (any, *RPCError) {
		return "pong", nil
	})
	require.NoError(t, k.Ping(t.Context()))
	requests, _, _ := fake.snapshot()
	require.Len(t, requests, 1)
	assert.Equal(t, "JSONRPC.Ping", requests[0].Method)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	err := NewKodi(KodiOptions{URL: url, Timeout: time.Second}).Ping(t.Context())
	assert.ErrorIs(t, err, apperr.ErrTransportUnavailable)
}
