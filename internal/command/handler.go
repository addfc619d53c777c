// Package command implements the local control channel.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/core"
	"firestige.xyz/peeracct/internal/diag"
	"firestige.xyz/peeracct/internal/engine"
	"firestige.xyz/peeracct/internal/peerstats"
	"firestige.xyz/peeracct/internal/pipeline"
)

// Version is reported by daemon_status.
const Version = "0.1.0"

// CommandHandler handles control plane commands.
type CommandHandler struct {
	engine         *engine.Engine
	configReloader ConfigReloader
	flusher        Flusher
	pipelineStats  func() pipeline.StatsSnapshot
	shutdownFunc   func() // Called by daemon_shutdown to trigger graceful stop
	startTime      int64  // Unix timestamp of daemon start for uptime calc
}

// ConfigReloader is the interface for reloading global configuration.
type ConfigReloader interface {
	Reload() error
}

// Flusher triggers an export outside the regular interval.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// NewCommandHandler creates a new command handler. reloader may be nil.
func NewCommandHandler(eng *engine.Engine, reloader ConfigReloader) *CommandHandler {
	return &CommandHandler{
		engine:         eng,
		configReloader: reloader,
		startTime:      time.Now().Unix(),
	}
}

// SetShutdownFunc sets the callback invoked by the daemon_shutdown command.
func (h *CommandHandler) SetShutdownFunc(fn func()) {
	h.shutdownFunc = fn
}

// SetFlusher enables export_flush.
func (h *CommandHandler) SetFlusher(f Flusher) {
	h.flusher = f
}

// SetPipelineStats adds capture counters to daemon_stats.
func (h *CommandHandler) SetPipelineStats(fn func() pipeline.StatsSnapshot) {
	h.pipelineStats = fn
}

// Command represents a control plane command.
type Command struct {
	Method string          `json:"method"` // e.g., "peers_dump", "ports_set"
	Params json.RawMessage `json:"params"` // command-specific parameters
	ID     string          `json:"id"`     // request ID for tracking
}

// Response represents a command response.
type Response struct {
	ID     string      `json:"id"`               // matches request ID
	Result interface{} `json:"result,omitempty"` // success result
	Error  *ErrorInfo  `json:"error,omitempty"`  // error info if failed
}

// ErrorInfo represents an error in the response.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal error
	ErrCodeNotFound       = -32004 // Peer not found
)

// Handle processes a command and returns a response.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Response {
	slog.Info("handling command", "method", cmd.Method, "id", cmd.ID)

	switch cmd.Method {
	case "daemon_status":
		return h.handleDaemonStatus(ctx, cmd)
	case "daemon_stats":
		return h.handleDaemonStats(ctx, cmd)
	case "daemon_shutdown":
		return h.handleDaemonShutdown(ctx, cmd)
	case "config_reload":
		return h.handleConfigReload(ctx, cmd)
	case "ports_get":
		return ok(cmd, h.engine.Ports().Snapshot())
	case "ports_set":
		return h.handlePortsSet(ctx, cmd)
	case "peers_dump":
		return h.handlePeersDump(ctx, cmd)
	case "peers_delete":
		return h.handlePeersDelete(ctx, cmd)
	case "peers_clear":
		return h.handlePeersClear(ctx, cmd)
	case "diag_dump":
		return ok(cmd, h.engine.Diag().Snapshot())
	case "export_flush":
		return h.handleExportFlush(ctx, cmd)
	default:
		return fail(cmd, ErrCodeMethodNotFound, fmt.Sprintf("method %q not found", cmd.Method))
	}
}

func ok(cmd Command, result interface{}) Response {
	return Response{ID: cmd.ID, Result: result}
}

func fail(cmd Command, code int, msg string) Response {
	return Response{ID: cmd.ID, Error: &ErrorInfo{Code: code, Message: msg}}
}

// failErr maps engine errors to codes.
func failErr(cmd Command, err error) Response {
	switch {
	case errors.Is(err, core.ErrPeerNotFound):
		return fail(cmd, ErrCodeNotFound, err.Error())
	case errors.Is(err, core.ErrUnknownClass), errors.Is(err, core.ErrInvalidAddress):
		return fail(cmd, ErrCodeInvalidParams, err.Error())
	default:
		return fail(cmd, ErrCodeInternalError, err.Error())
	}
}

func decodeParams(cmd Command, v interface{}) *Response {
	if len(cmd.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(cmd.Params, v); err != nil {
		resp := fail(cmd, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
		return &resp
	}
	return nil
}

// StatusResult is the daemon_status result.
type StatusResult struct {
	Version   string              `json:"version" yaml:"version"`
	UptimeSec int64               `json:"uptime_sec" yaml:"uptime_sec"`
	Ports     classify.PortMap    `json:"ports" yaml:"ports"`
	Occupancy peerstats.Occupancy `json:"occupancy" yaml:"occupancy"`
}

func (h *CommandHandler) handleDaemonStatus(_ context.Context, cmd Command) Response {
	return ok(cmd, StatusResult{
		Version:   Version,
		UptimeSec: time.Now().Unix() - h.startTime,
		Ports:     h.engine.Ports().Snapshot(),
		Occupancy: h.engine.Store().Occupancy(),
	})
}

// StatsResult is the daemon_stats result.
type StatsResult struct {
	Occupancy peerstats.Occupancy     `json:"occupancy" yaml:"occupancy"`
	Diag      diag.Snapshot           `json:"diag" yaml:"diag"`
	Pipeline  *pipeline.StatsSnapshot `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
}

func (h *CommandHandler) handleDaemonStats(_ context.Context, cmd Command) Response {
	res := StatsResult{
		Occupancy: h.engine.Store().Occupancy(),
		Diag:      h.engine.Diag().Snapshot(),
	}
	if h.pipelineStats != nil {
		ps := h.pipelineStats()
		res.Pipeline = &ps
	}
	return ok(cmd, res)
}

// handleDaemonShutdown triggers graceful daemon shutdown via the registered callback.
func (h *CommandHandler) handleDaemonShutdown(_ context.Context, cmd Command) Response {
	if h.shutdownFunc == nil {
		return fail(cmd, ErrCodeInternalError, "shutdown handler not registered")
	}

	slog.Info("daemon_shutdown command received, initiating graceful shutdown")
	go h.shutdownFunc() // Non-blocking: let the response be sent first

	return ok(cmd, map[string]interface{}{"status": "shutting_down"})
}

func (h *CommandHandler) handleConfigReload(_ context.Context, cmd Command) Response {
	if h.configReloader == nil {
		return fail(cmd, ErrCodeInternalError, "config reloader not available")
	}
	if err := h.configReloader.Reload(); err != nil {
		return fail(cmd, ErrCodeInternalError, fmt.Sprintf("reload config failed: %v", err))
	}
	return ok(cmd, map[string]interface{}{
		"status": "reloaded",
		"ports":  h.engine.Ports().Snapshot(),
	})
}

// PortsSetParams represents parameters for the ports_set command.
type PortsSetParams struct {
	Class string `json:"class"`
	Port  int    `json:"port"` // 0 disables the class
}

func (h *CommandHandler) handlePortsSet(_ context.Context, cmd Command) Response {
	var params PortsSetParams
	if resp := decodeParams(cmd, &params); resp != nil {
		return *resp
	}
	class, err := core.ParseClass(params.Class)
	if err != nil {
		return failErr(cmd, err)
	}
	if params.Port < 0 || params.Port > 65535 {
		return fail(cmd, ErrCodeInvalidParams, fmt.Sprintf("port %d out of range", params.Port))
	}
	if err := h.engine.Ports().Set(class, uint16(params.Port)); err != nil {
		return failErr(cmd, err)
	}
	slog.Info("port updated", "class", class.String(), "port", params.Port)
	return ok(cmd, h.engine.Ports().Snapshot())
}

// PeersDumpParams represents parameters for the peers_dump command.
type PeersDumpParams struct {
	Family string `json:"family,omitempty"` // "", "ipv4" or "ipv6"
}

func (h *CommandHandler) handlePeersDump(_ context.Context, cmd Command) Response {
	var params PeersDumpParams
	if resp := decodeParams(cmd, &params); resp != nil {
		return *resp
	}
	switch params.Family {
	case "", "ipv4", "ipv6":
	default:
		return fail(cmd, ErrCodeInvalidParams, fmt.Sprintf("unknown family %q", params.Family))
	}

	records := h.engine.Store().Snapshot()
	if params.Family != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Family() == params.Family {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	return ok(cmd, records)
}

// PeersDeleteParams represents parameters for the peers_delete command.
type PeersDeleteParams struct {
	Peer string `json:"peer"`
}

func (h *CommandHandler) handlePeersDelete(_ context.Context, cmd Command) Response {
	var params PeersDeleteParams
	if resp := decodeParams(cmd, &params); resp != nil {
		return *resp
	}
	addr, err := netip.ParseAddr(params.Peer)
	if err != nil {
		return fail(cmd, ErrCodeInvalidParams, fmt.Sprintf("%v: %q", core.ErrInvalidAddress, params.Peer))
	}
	if err := h.engine.Store().Delete(addr.Unmap()); err != nil {
		return failErr(cmd, err)
	}
	slog.Info("peer deleted", "peer", addr.Unmap())
	return ok(cmd, map[string]interface{}{"deleted": addr.Unmap().String()})
}

func (h *CommandHandler) handlePeersClear(_ context.Context, cmd Command) Response {
	n := h.engine.Store().Clear()
	slog.Info("peer tables cleared", "rows", n)
	return ok(cmd, map[string]interface{}{"cleared": n})
}

func (h *CommandHandler) handleExportFlush(ctx context.Context, cmd Command) Response {
	if h.flusher == nil {
		return fail(cmd, ErrCodeInternalError, "export is disabled")
	}
	n, err := h.flusher.Flush(ctx)
	if err != nil {
		return fail(cmd, ErrCodeInternalError, fmt.Sprintf("export flush failed: %v", err))
	}
	return ok(cmd, map[string]interface{}{"records": n})
}
