package cmd

import (
	"context"

	"github.com/stretchr/testify/mock"

	"firestige.xyz/peeracct/internal/classify"
	"firestige.xyz/peeracct/internal/command"
	"firestige.xyz/peeracct/internal/diag"
	"firestige.xyz/peeracct/internal/peerstats"
)

// MockClient implements ControlClient.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Status(ctx context.Context) (command.StatusResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(command.StatusResult), args.Error(1)
}

func (m *MockClient) Stats(ctx context.Context) (command.StatsResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(command.StatsResult), args.Error(1)
}

func (m *MockClient) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) ConfigReload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) PortsGet(ctx context.Context) (classify.PortMap, error) {
	args := m.Called(ctx)
	return args.Get(0).(classify.PortMap), args.Error(1)
}

func (m *MockClient) PortsSet(ctx context.Context, class string, port int) (classify.PortMap, error) {
	args := m.Called(ctx, class, port)
	return args.Get(0).(classify.PortMap), args.Error(1)
}

func (m *MockClient) PeersDump(ctx context.Context, family string) ([]peerstats.PeerRecord, error) {
	args := m.Called(ctx, family)
	return args.Get(0).([]peerstats.PeerRecord), args.Error(1)
}

func (m *MockClient) PeersDelete(ctx context.Context, peer string) error {
	args := m.Called(ctx, peer)
	return args.Error(0)
}

func (m *MockClient) PeersClear(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) DiagDump(ctx context.Context) (diag.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(diag.Snapshot), args.Error(1)
}

func (m *MockClient) ExportFlush(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
