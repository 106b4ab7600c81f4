// If you are AI: This file contains integration tests that run the streamhub binary.
// They cover startup, shutdown, publishing through RTMP and the push/pull commands.

package itest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"streamhub/internal/core/protocol/flv"
	"streamhub/internal/svc/rtmp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSPS = []byte{0x67, 0x64, 0x00, 0x1F}
	testPPS = []byte{0x68, 0xEE}
)

func TestServerStartupAndShutdown(t *testing.T) {
	bin := buildBinary(t)
	cmd, _ := startServe(t, bin)

	require.NoError(t, cmd.Process.Signal(syscall.SIGINT))
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("server did not exit after SIGINT")
	}
}

func TestPublishVisibleThroughAPI(t *testing.T) {
	bin := buildBinary(t)
	_, p := startServe(t, bin)

	pub, err := rtmp.NewPublisher(fmt.Sprintf("rtmp://127.0.0.1:%d/live/itest", p.rtmp), rtmp.Options{})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pub.Open(ctx))
	defer pub.Close()
	require.NoError(t, pub.WriteVideoConfig(testSPS, testPPS))

	streamsContain(t, p.health, `"path":"/live/itest"`, `"publishing":true`)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/live/missing.flv", p.http))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPushAndPullCommands(t *testing.T) {
	bin := buildBinary(t)
	_, p := startServe(t, bin)
	url := fmt.Sprintf("rtmp://127.0.0.1:%d/live/file", p.rtmp)

	// Two seconds of keyframes at 25 fps.
	var src bytes.Buffer
	w := flv.NewWriter(&src)
	seq, err := flv.AVCSequenceHeader(testSPS, testPPS)
	require.NoError(t, err)
	require.NoError(t, w.WriteTag(flv.NewTag(flv.TagTypeVideo, 0, seq)))
	for ts := uint32(0); ts < 2000; ts += 40 {
		require.NoError(t, w.WriteTag(flv.NewTag(flv.TagTypeVideo, ts, flv.AVCPacket([]byte{0, 0, 0, 1, 0x65, 0x88}, true, 0))))
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "in.flv")
	out := filepath.Join(dir, "out.flv")
	require.NoError(t, os.WriteFile(in, src.Bytes(), 0o644))

	pushCmd := exec.Command(bin, "push", "--url", url, "--file", in, "--loop", "--duration", "5s")
	pushCmd.Stderr = os.Stderr
	require.NoError(t, pushCmd.Start())
	t.Cleanup(func() {
		_ = pushCmd.Process.Kill()
		_ = pushCmd.Wait()
	})

	streamsContain(t, p.health, `"path":"/live/file"`, `"publishing":true`, `"has_video":true`)

	pullOut, err := exec.Command(bin, "pull", "--url", url, "--file", out, "--duration", "1s").CombinedOutput()
	require.NoError(t, err, string(pullOut))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	r := flv.NewReader(f)
	_, err = r.ReadHeader()
	require.NoError(t, err)
	tag, err := r.ReadTag()
	require.NoError(t, err)
	assert.True(t, flv.IsAVCSequenceHeader(tag.Data))
	tag, err = r.ReadTag()
	require.NoError(t, err)
	assert.True(t, flv.IsVideoKeyframe(tag.Data))
}
