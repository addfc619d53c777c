package command

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/core"
	"firestige.xyz/peeracct/internal/diag"
	"firestige.xyz/peeracct/internal/peerstats"
)

// UDSClient is a JSON-RPC client over Unix Domain Socket.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
}

// NewUDSClient creates a new UDS client.
func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &UDSClient{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// Call sends one request and decodes the result into out (which may be nil).
// A server-side error is returned as *ErrorInfo; a missing daemon as
// core.ErrDaemonNotRunning.
func (c *UDSClient) Call(ctx context.Context, method string, params, out interface{}) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		if errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("%w: %s", core.ErrDaemonNotRunning, c.socketPath)
		}
		return fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsJSON = data
	}

	reqID := fmt.Sprintf("req-%d", time.Now().UnixNano())
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsJSON,
		ID:      reqID,
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 64<<20) // peer dumps can be large
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return fmt.Errorf("connection closed without response")
	}

	var resp rawResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if id := fmt.Sprintf("%v", resp.ID); id != reqID {
		return fmt.Errorf("response ID mismatch: expected %v, got %v", reqID, id)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// Status calls daemon_status.
func (c *UDSClient) Status(ctx context.Context) (StatusResult, error) {
	var res StatusResult
	err := c.Call(ctx, "daemon_status", nil, &res)
	return res, err
}

// Stats calls daemon_stats.
func (c *UDSClient) Stats(ctx context.Context) (StatsResult, error) {
	var res StatsResult
	err := c.Call(ctx, "daemon_stats", nil, &res)
	return res, err
}

// Shutdown calls daemon_shutdown.
func (c *UDSClient) Shutdown(ctx context.Context) error {
	return c.Call(ctx, "daemon_shutdown", nil, nil)
}

// ConfigReload calls config_reload.
func (c *UDSClient) ConfigReload(ctx context.Context) error {
	return c.Call(ctx, "config_reload", nil, nil)
}

// PortsGet calls ports_get.
func (c *UDSClient) PortsGet(ctx context.Context) (classify.PortMap, error) {
	var res classify.PortMap
	err := c.Call(ctx, "ports_get", nil, &res)
	return res, err
}

// PortsSet calls ports_set and returns the resulting map.
func (c *UDSClient) PortsSet(ctx context.Context, class string, port int) (classify.PortMap, error) {
	var res classify.PortMap
	err := c.Call(ctx, "ports_set", PortsSetParams{Class: class, Port: port}, &res)
	return res, err
}

// PeersDump calls peers_dump. family may be empty.
func (c *UDSClient) PeersDump(ctx context.Context, family string) ([]peerstats.PeerRecord, error) {
	var res []peerstats.PeerRecord
	err := c.Call(ctx, "peers_dump", PeersDumpParams{Family: family}, &res)
	return res, err
}

// PeersDelete calls peers_delete.
func (c *UDSClient) PeersDelete(ctx context.Context, peer string) error {
	return c.Call(ctx, "peers_delete", PeersDeleteParams{Peer: peer}, nil)
}

// PeersClear calls peers_clear and returns the number of rows removed.
func (c *UDSClient) PeersClear(ctx context.Context) (int, error) {
	var res struct {
		Cleared int `json:"cleared"`
	}
	err := c.Call(ctx, "peers_clear", nil, &res)
	return res.Cleared, err
}

// DiagDump calls diag_dump.
func (c *UDSClient) DiagDump(ctx context.Context) (diag.Snapshot, error) {
	var res diag.Snapshot
	err := c.Call(ctx, "diag_dump", nil, &res)
	return res, err
}

// ExportFlush calls export_flush and returns the number of records written.
func (c *UDSClient) ExportFlush(ctx context.Context) (int, error) {
	var res struct {
		Records int `json:"records"`
	}
	err := c.Call(ctx, "export_flush", nil, &res)
	return res.Records, err
}

// Ping checks that the daemon answers.
func (c *UDSClient) Ping(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}
