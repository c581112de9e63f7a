package proxmox

import (
	"context"
	"net/http"
)

// MockClient is a mock implementation of Provider.
type MockClient struct {
	ListVMsFunc     func(ctx context.Context) ([]VMResource, error)
	GetVMConfigFunc func(ctx context.Context, node string, vmid int) (VMConfig, error)
	CloneVMFunc     func(ctx context.Context, node string, source, target int, name string) error
	SetVMConfigFunc func(ctx context.Context, node string, vmid int, options map[string]string) error
	DeleteVMFunc    func(ctx context.Context, node string, vmid int) error
	StartVMFunc     func(ctx context.Context, node string, vmid int) error
	StopVMFunc      func(ctx context.Context, node string, vmid int) error
	PingAgentFunc   func(ctx context.Context, node string, vmid int) error

	GetStoragePathFunc func(ctx context.Context, storage string) (string, error)
}

// Ensure interface compliance
var _ Provider = (*MockClient)(nil)

// ListVMs mocks listing cluster guests. The default is an empty
// cluster.
func (m *MockClient) ListVMs(ctx context.Context) ([]VMResource, error) {
	if m.ListVMsFunc != nil {
		return m.ListVMsFunc(ctx)
	}
	return nil, nil
}

// GetVMConfig mocks reading a guest configuration. The default matches
// the empty cluster: every VMID reads as absent.
func (m *MockClient) GetVMConfig(ctx context.Context, node string, vmid int) (VMConfig, error) {
	if m.GetVMConfigFunc != nil {
		return m.GetVMConfigFunc(ctx, node, vmid)
	}
	return nil, &APIError{
		StatusCode: http.StatusInternalServerError,
		Status:     "500 Configuration file does not exist",
		Message:    "Configuration file does not exist",
	}
}

// CloneVM mocks cloning a template.
func (m *MockClient) CloneVM(ctx context.Context, node string, source, target int, name string) error {
	if m.CloneVMFunc != nil {
		return m.CloneVMFunc(ctx, node, source, target, name)
	}
	return nil
}

// SetVMConfig mocks applying guest options.
func (m *MockClient) SetVMConfig(ctx context.Context, node string, vmid int, options map[string]string) error {
	if m.SetVMConfigFunc != nil {
		return m.SetVMConfigFunc(ctx, node, vmid, options)
	}
	return nil
}

// DeleteVM mocks destroying a guest.
func (m *MockClient) DeleteVM(ctx context.Context, node string, vmid int) error {
	if m.DeleteVMFunc != nil {
		return m.DeleteVMFunc(ctx, node, vmid)
	}
	return nil
}

// StartVM mocks powering a guest on.
func (m *MockClient) StartVM(ctx context.Context, node string, vmid int) error {
	if m.StartVMFunc != nil {
		return m.StartVMFunc(ctx, node, vmid)
	}
	return nil
}

// StopVM mocks powering a guest off.
func (m *MockClient) StopVM(ctx context.Context, node string, vmid int) error {
	if m.StopVMFunc != nil {
		return m.StopVMFunc(ctx, node, vmid)
	}
	return nil
}

// PingAgent mocks probing the guest agent.
func (m *MockClient) PingAgent(ctx context.Context, node string, vmid int) error {
	if m.PingAgentFunc != nil {
		return m.PingAgentFunc(ctx, node, vmid)
	}
	return nil
}

// GetStoragePath mocks resolving a storage path.
func (m *MockClient) GetStoragePath(ctx context.Context, storage string) (string, error) {
	if m.GetStoragePathFunc != nil {
		return m.GetStoragePathFunc(ctx, storage)
	}
	return "/var/lib/vz", nil
}
