// Package hostenv builds the device host from the loaded configuration.
package hostenv

import (
	"context"
	"errors"

	"github.com/micro-manager/micro-manager-sub007/internal/adapter"
	"github.com/micro-manager/micro-manager-sub007/internal/config"
	"github.com/micro-manager/micro-manager-sub007/internal/registry"
)

// Host is a registry with the loader that feeds it.
type Host struct {
	Loader   *adapter.Loader
	Registry *registry.Registry
}

// New builds a host from cfg. ctx bounds module runtime state.
func New(ctx context.Context, cfg *config.Config) *Host {
	loader := adapter.NewLoader(ctx, adapter.SearchPaths(cfg.Adapter.SearchPaths, cfg.Adapter.LegacyPaths))

	return &Host{
		Loader:   loader,
		Registry: registry.New(loader, registry.WithPolling(cfg.Core.PollingInterval, cfg.Core.Timeout)),
	}
}

// Close unloads every device, then every module.
func (h *Host) Close(ctx context.Context) error {
	return errors.Join(h.Registry.UnloadAllDevices(), h.Loader.Close(ctx))
}
