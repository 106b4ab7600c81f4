// If you are AI: This file provides helper functions for starting and managing server processes in tests.

package itest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type ports struct {
	health, http, rtmp int
}

// buildBinary compiles cmd/streamhub into a temp dir.
func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("process tests skipped in short mode")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
	bin := filepath.Join(t.TempDir(), "streamhub")
	out, err := exec.Command("go", "build", "-o", bin, "../../cmd/streamhub").CombinedOutput()
	require.NoError(t, err, string(out))
	return bin
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T) (string, ports) {
	t.Helper()
	p := ports{health: freePort(t), http: freePort(t), rtmp: freePort(t)}
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("server:\n  health_port: %d\n  http_port: %d\n  rtmp_port: %d\n", p.health, p.http, p.rtmp)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, p
}

// startServe runs "streamhub serve" and waits for /healthz.
// The process gets SIGINT at cleanup if still running.
func startServe(t *testing.T, bin string) (*exec.Cmd, ports) {
	t.Helper()
	cfg, p := writeConfig(t)
	cmd := exec.Command(bin, "serve", "--config", cfg, "--log-json")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		if cmd.ProcessState == nil {
			_ = cmd.Process.Signal(syscall.SIGINT)
			_ = cmd.Wait()
		}
	})
	require.NoError(t, waitForHealth(p.health, 5*time.Second))
	return cmd, p
}

// waitForHealth polls /healthz until it answers 200 or timeout passes.
func waitForHealth(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.Errorf("health endpoint not available after %v", timeout)
}

// streamsContain polls /api/streams until its body holds every fragment.
func streamsContain(t *testing.T, healthPort int, fragments ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/streams", healthPort))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		for _, f := range fragments {
			if !strings.Contains(string(body), f) {
				return false
			}
		}
		return true
	}, 5*time.Second, 50*time.Millisecond)
}
