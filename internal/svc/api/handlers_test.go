// If you are AI: This file contains unit tests for API handlers.
// Tests verify JSON responses and error handling.

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"streamhub/internal/core/bus"
	"streamhub/internal/svc/relay"
	"streamhub/internal/svc/rtmp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelays struct {
	tasks     []relay.TaskInfo
	restarted []string
}

func (f *fakeRelays) TaskCount() int          { return len(f.tasks) }
func (f *fakeRelays) Tasks() []relay.TaskInfo { return f.tasks }
func (f *fakeRelays) Restart(_ context.Context, app, name string) error {
	for _, t := range f.tasks {
		if t.App == app && t.Name == name {
			f.restarted = append(f.restarted, app+"/"+name)
			return nil
		}
	}
	return relay.ErrTaskNotFound
}

type fixedConns int

func (c fixedConns) ConnCount() int { return int(c) }

func serve(t *testing.T, s *Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestHandleServer(t *testing.T) {
	registry := bus.NewRegistry(16)
	registry.GetOrCreate(bus.NewStreamKey("live", "a"))
	service := NewService(registry, relay.NewManager(registry, rtmp.Options{}), fixedConns(3))

	w := serve(t, service, http.MethodGet, "/api/server", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response ServerResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.NotEmpty(t, response.Version)
	assert.GreaterOrEqual(t, response.Uptime, int64(0))
	assert.NotEmpty(t, response.GoVersion)
	assert.Contains(t, response.EnabledServices, "rtmp")
	assert.Equal(t, 1, response.Streams)
	assert.Equal(t, 3, response.RTMPConnections)
}

func TestHandleStreams(t *testing.T) {
	registry := bus.NewRegistry(16)
	service := NewService(registry, nil, nil)

	w := serve(t, service, http.MethodGet, "/api/streams", "")
	require.Equal(t, http.StatusOK, w.Code)
	var empty StreamsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&empty))
	assert.Empty(t, empty.Streams)

	key := bus.NewStreamKey("live", "test")
	session, err := registry.Publish(key, registry.Register(nil))
	require.NoError(t, err)
	session.SendMediaData(bus.MessageTypeVideo, 0, []byte{0x17, 0x01, 0, 0, 0, 0x65})
	_, err = registry.Subscribe(key, registry.Register(bus.NewSubscriber(8, bus.BackpressureDropOldest, true)))
	require.NoError(t, err)

	w = serve(t, service, http.MethodGet, "/api/streams", "")
	require.Equal(t, http.StatusOK, w.Code)
	var response StreamsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Streams, 1)
	got := response.Streams[0]
	assert.Equal(t, "/live/test", got.Path)
	assert.True(t, got.Publishing)
	assert.Equal(t, 1, got.Subscribers)
	assert.Equal(t, 1, got.GOPLength)
	assert.Equal(t, uint64(1), got.Stats.VideoFrames)
}

func TestHandleRelay(t *testing.T) {
	service := NewService(bus.NewRegistry(16), nil, nil)
	w := serve(t, service, http.MethodGet, "/api/relay", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())

	relays := &fakeRelays{tasks: []relay.TaskInfo{{App: "live", Name: "cam", Mode: "pull", RemoteURL: "rtmp://o/live/cam", Running: true}}}
	service = NewService(bus.NewRegistry(16), relays, nil)
	w = serve(t, service, http.MethodGet, "/api/relay", "")
	var response RelayResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Tasks, 1)
	assert.Equal(t, "pull", response.Tasks[0].Mode)
	assert.True(t, response.Tasks[0].Running)
}

func TestHandleRelayRestart(t *testing.T) {
	relays := &fakeRelays{tasks: []relay.TaskInfo{{App: "live", Name: "cam"}}}
	service := NewService(bus.NewRegistry(16), relays, nil)

	w := serve(t, service, http.MethodPost, "/api/relay/restart", `{"app":"live","name":"cam"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"live/cam"}, relays.restarted)

	w = serve(t, service, http.MethodPost, "/api/relay/restart", `{"app":"live","name":"other"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, service, http.MethodPost, "/api/relay/restart", `{"app":"live"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, service, http.MethodPost, "/api/relay/restart", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	service := NewService(bus.NewRegistry(16), nil, nil)
	for _, path := range []string{"/api/server", "/api/streams", "/api/relay"} {
		w := serve(t, service, http.MethodPost, path, "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
	}
	w := serve(t, service, http.MethodGet, "/api/relay/restart", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, w.Body.String())
}
