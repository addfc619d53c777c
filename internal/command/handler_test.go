package command

import (
	"context"
	"encoding/json"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/core"
	"firestige.xyz/peeracct/internal/engine"
	"firestige.xyz/peeracct/internal/peerstats"
	"firestige.xyz/peeracct/internal/pipeline"
	"firestige.xyz/peeracct/internal/testutil"
)

type stubReloader struct {
	calls int
	err   error
}

func (r *stubReloader) Reload() error {
	r.calls++
	return r.err
}

type stubFlusher struct{ n int }

func (f stubFlusher) Flush(context.Context) (int, error) { return f.n, nil }

func newTestEngine() *engine.Engine {
	eng := engine.New(classify.NewPorts(classify.PortMap{A: 9981, B: 9984, C: 9984}), peerstats.NewStore(0, 0), nil)
	f := testutil.TCP4("10.0.0.1", "203.0.113.9", 9981, 51000, 1000)
	eng.Egress(f, len(f))
	f = testutil.UDP6("2001:db8::9", "fd00::1", 40000, 9984, 500)
	eng.Ingress(f, len(f))
	return eng
}

func call(h *CommandHandler, method string, params interface{}) Response {
	var raw json.RawMessage
	if params != nil {
		raw, _ = json.Marshal(params)
	}
	return h.Handle(context.Background(), Command{Method: method, Params: raw, ID: "1"})
}

func TestHandleUnknownMethod(t *testing.T) {
	h := NewCommandHandler(newTestEngine(), nil)
	resp := call(h, "task_create", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "1", resp.ID)
}

func TestHandleDaemonStatus(t *testing.T) {
	h := NewCommandHandler(newTestEngine(), nil)
	resp := call(h, "daemon_status", nil)
	require.Nil(t, resp.Error)

	status, ok := resp.Result.(StatusResult)
	require.True(t, ok)
	assert.Equal(t, Version, status.Version)
	assert.Equal(t, classify.PortMap{A: 9981, B: 9984, C: 9984}, status.Ports)
	assert.Equal(t, 1, status.Occupancy.V4Entries)
	assert.Equal(t, 1, status.Occupancy.V6Entries)
}

func TestHandleDaemonStats(t *testing.T) {
	h := NewCommandHandler(newTestEngine(), nil)

	stats := call(h, "daemon_stats", nil).Result.(StatsResult)
	assert.Nil(t, stats.Pipeline)
	assert.Equal(t, uint64(1), stats.Diag.Events["accounted_v4"])

	h.SetPipelineStats(func() pipeline.StatsSnapshot { return pipeline.StatsSnapshot{Read: 7} })
	stats = call(h, "daemon_stats", nil).Result.(StatsResult)
	require.NotNil(t, stats.Pipeline)
	assert.Equal(t, uint64(7), stats.Pipeline.Read)
}

func TestHandlePortsSet(t *testing.T) {
	eng := newTestEngine()
	h := NewCommandHandler(eng, nil)

	resp := call(h, "ports_set", PortsSetParams{Class: "c", Port: 4443})
	require.Nil(t, resp.Error)
	assert.Equal(t, classify.PortMap{A: 9981, B: 9984, C: 4443}, resp.Result)
	assert.Equal(t, uint16(4443), eng.Ports().Port(core.ClassC))

	resp = call(h, "ports_set", PortsSetParams{Class: "x", Port: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)

	resp = call(h, "ports_set", PortsSetParams{Class: "a", Port: 70000})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)

	resp = h.Handle(context.Background(), Command{Method: "ports_set", Params: json.RawMessage(`{"class":`), ID: "2"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)

	assert.Equal(t, classify.PortMap{A: 9981, B: 9984, C: 4443}, call(h, "ports_get", nil).Result)
}

func TestHandlePeersDump(t *testing.T) {
	h := NewCommandHandler(newTestEngine(), nil)

	all := call(h, "peers_dump", nil).Result.([]peerstats.PeerRecord)
	require.Len(t, all, 2)
	assert.Equal(t, netip.MustParseAddr("203.0.113.9"), all[0].Peer)
	assert.Equal(t, peerstats.Counters{AUp: 1000}, all[0].Counters)

	v6 := call(h, "peers_dump", PeersDumpParams{Family: "ipv6"}).Result.([]peerstats.PeerRecord)
	require.Len(t, v6, 1)
	assert.Equal(t, peerstats.Counters{CDown: 500}, v6[0].Counters)

	resp := call(h, "peers_dump", PeersDumpParams{Family: "ipx"})
	require.NotNil(t, resp.Error)
}

func TestHandlePeersDeleteAndClear(t *testing.T) {
	eng := newTestEngine()
	h := NewCommandHandler(eng, nil)

	resp := call(h, "peers_delete", PeersDeleteParams{Peer: "203.0.113.9"})
	require.Nil(t, resp.Error)
	_, found := eng.Store().Lookup(netip.MustParseAddr("203.0.113.9"))
	assert.False(t, found)

	resp = call(h, "peers_delete", PeersDeleteParams{Peer: "203.0.113.9"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)

	resp = call(h, "peers_delete", PeersDeleteParams{Peer: "nope"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)

	resp = call(h, "peers_clear", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"cleared": 1}, resp.Result)
	assert.Equal(t, 0, eng.Store().Occupancy().V6Entries)
}

func TestHandleConfigReload(t *testing.T) {
	h := NewCommandHandler(newTestEngine(), nil)
	resp := call(h, "config_reload", nil)
	require.NotNil(t, resp.Error)

	r := &stubReloader{}
	h = NewCommandHandler(newTestEngine(), r)
	resp = call(h, "config_reload", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, r.calls)

	r.err = errors.New("bad yaml")
	resp = call(h, "config_reload", nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "bad yaml")
}

func TestHandleExportFlush(t *testing.T) {
	h := NewCommandHandler(newTestEngine(), nil)
	resp := call(h, "export_flush", nil)
	require.NotNil(t, resp.Error)

	h.SetFlusher(stubFlusher{n: 3})
	resp = call(h, "export_flush", nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"records": 3}, resp.Result)
}

func TestHandleDaemonShutdown(t *testing.T) {
	h := NewCommandHandler(newTestEngine(), nil)
	resp := call(h, "daemon_shutdown", nil)
	require.NotNil(t, resp.Error)

	done := make(chan struct{})
	h.SetShutdownFunc(func() { close(done) })
	resp = call(h, "daemon_shutdown", nil)
	require.Nil(t, resp.Error)
	<-done
}

func TestHandleDiagDump(t *testing.T) {
	h := NewCommandHandler(newTestEngine(), nil)
	resp := call(h, "diag_dump", nil)
	require.Nil(t, resp.Error)
	snap := resp.Result
	require.NotNil(t, snap)
}
