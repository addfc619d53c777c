package cmd

import (
	"context"
	"time"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/command"
	"firestige.xyz/peeracct/internal/diag"
	"firestige.xyz/peeracct/internal/peerstats"
)

// ControlClient is the daemon API the commands use. *command.UDSClient
// implements it; tests inject a mock.
type ControlClient interface {
	Status(ctx context.Context) (command.StatusResult, error)
	Stats(ctx context.Context) (command.StatsResult, error)
	Shutdown(ctx context.Context) error
	ConfigReload(ctx context.Context) error
	PortsGet(ctx context.Context) (classify.PortMap, error)
	PortsSet(ctx context.Context, class string, port int) (classify.PortMap, error)
	PeersDump(ctx context.Context, family string) ([]peerstats.PeerRecord, error)
	PeersDelete(ctx context.Context, peer string) error
	PeersClear(ctx context.Context) (int, error)
	DiagDump(ctx context.Context) (diag.Snapshot, error)
	ExportFlush(ctx context.Context) (int, error)
}

var cli ControlClient

// client returns the injected client or dials the daemon socket.
func client() ControlClient {
	if cli != nil {
		return cli
	}
	return command.NewUDSClient(socketPath, 10*time.Second)
}

// SetClient injects a client, for tests.
func SetClient(c ControlClient) {
	cli = c
}
