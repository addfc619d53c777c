package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/command"
	"firestige.xyz/peeracct/internal/testutil"
)

const testConfig = `peeracct:
  control:
    socket: %s
    pid_file: %s
  capture:
    enabled: false
  ports:
    a: %d
    b: 9984
    c: 9984
  metrics:
    enabled: false
  log:
    level: info
    format: json
`

func writeConfig(t *testing.T, path, socket, pid string, portA int) {
	t.Helper()
	data := []byte(fmt.Sprintf(testConfig, socket, pid, portA))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newTestDaemon(t *testing.T) (*Daemon, string, string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")
	socket := filepath.Join(dir, "peeracct.sock")
	pid := filepath.Join(dir, "run", "peeracct.pid")
	writeConfig(t, cfgPath, socket, pid, 9981)

	d, err := New(cfgPath, "", "")
	require.NoError(t, err)
	return d, cfgPath, socket, pid
}

func TestDaemonStartStop(t *testing.T) {
	d, _, socket, pid := newTestDaemon(t)
	require.NoError(t, d.Start())

	if _, err := os.Stat(pid); err != nil {
		t.Errorf("Expected PID file %s to exist: %v", pid, err)
	}
	if _, err := os.Stat(socket); err != nil {
		t.Errorf("Expected socket %s to exist: %v", socket, err)
	}

	client := command.NewUDSClient(socket, 2*time.Second)
	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, command.Version, status.Version)
	assert.Equal(t, classify.PortMap{A: 9981, B: 9984, C: 9984}, status.Ports)

	done := make(chan error, 1)
	go func() { done <- d.Run() }()

	require.NoError(t, client.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after daemon_shutdown")
	}

	if _, err := os.Stat(pid); !os.IsNotExist(err) {
		t.Errorf("Expected PID file to be removed, got %v", err)
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Errorf("Expected socket to be removed, got %v", err)
	}
}

func TestDaemonAccountsThroughEngine(t *testing.T) {
	d, _, socket, _ := newTestDaemon(t)
	require.NoError(t, d.Start())
	defer d.Stop()

	frame := testutil.TCP4("203.0.113.7", "10.0.0.1", 40000, 9981, 1000)
	d.Engine().Ingress(frame, len(frame))

	client := command.NewUDSClient(socket, 2*time.Second)
	peers, err := client.PeersDump(context.Background(), "ipv4")
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "203.0.113.7", peers[0].Peer.String())
	assert.Equal(t, uint64(len(frame)), peers[0].ADown)
}

func TestDaemonStopIdempotent(t *testing.T) {
	d, _, _, _ := newTestDaemon(t)
	require.NoError(t, d.Start())
	d.Stop()
	d.Stop()
	d.TriggerShutdown()
	d.TriggerShutdown()
}

func TestNewMissingConfig(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yml"), "", "")
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}
