// If you are AI: This file contains unit tests for HTTP-FLV handler.
// Tests verify FLV header generation, replay and subscriber lifecycle.

package httpflv

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamhub/internal/core/bus"
	"streamhub/internal/core/protocol/flv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKey  = bus.NewStreamKey("live", "test")
	avcSeq   = []byte{0x17, 0x00, 0, 0, 0, 0x01, 0x64}
	aacSeq   = []byte{0xAF, 0x00, 0x12, 0x10}
	keyframe = []byte{0x17, 0x01, 0, 0, 0, 0, 0, 0, 1, 0x65}
	inter    = []byte{0x27, 0x01, 0, 0, 0, 0, 0, 0, 1, 0x41}
)

func TestHTTPFLVHandlerNotFound(t *testing.T) {
	handler := NewHandler(bus.NewRegistry(16), 0)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live/nonexistent.flv", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPFLVHandlerNoPublisher(t *testing.T) {
	registry := bus.NewRegistry(16)
	registry.GetOrCreate(testKey)
	handler := NewHandler(registry, 0)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live/test.flv", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPFLVHandlerBadRequests(t *testing.T) {
	handler := NewHandler(bus.NewRegistry(16), 0)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/live/test.flv", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test.flv", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live/test.m3u8", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPFLVStreamsReplayThenLive(t *testing.T) {
	registry := bus.NewRegistry(16)
	pub := registry.Register(nil)
	session, err := registry.Publish(testKey, pub)
	require.NoError(t, err)
	session.SendMediaData(bus.MessageTypeVideo, 0, avcSeq)
	session.SendMediaData(bus.MessageTypeAudio, 0, aacSeq)
	session.SendMediaData(bus.MessageTypeVideo, 1000, keyframe)

	mux := http.NewServeMux()
	NewHandler(registry, 64).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/live/test.flv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/x-flv", resp.Header.Get("Content-Type"))

	r := flv.NewReader(resp.Body)
	header, err := r.ReadHeader()
	require.NoError(t, err)
	assert.True(t, header.HasAudio)
	assert.True(t, header.HasVideo)

	readTag := func() *flv.Tag {
		tag, err := r.ReadTag()
		require.NoError(t, err)
		return tag
	}
	tag := readTag()
	assert.Equal(t, byte(flv.TagTypeVideo), tag.Type)
	assert.Equal(t, avcSeq, tag.Data)
	tag = readTag()
	assert.Equal(t, byte(flv.TagTypeAudio), tag.Type)
	tag = readTag()
	assert.Equal(t, keyframe, tag.Data)
	assert.Equal(t, uint32(0), tag.Timestamp, "first frame is rebased to zero")

	// Wait for the viewer to be registered before sending live media.
	require.Eventually(t, func() bool { return session.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	session.SendMediaData(bus.MessageTypeVideo, 1040, inter)
	tag = readTag()
	assert.Equal(t, inter, tag.Data)
	assert.Equal(t, uint32(40), tag.Timestamp)

	// Unpublishing ends the response.
	registry.Unpublish(testKey, pub)
	_, err = r.ReadTag()
	assert.ErrorIs(t, err, io.EOF)

	require.Eventually(t, func() bool { return registry.Get(testKey) == nil }, time.Second, 5*time.Millisecond)
}
