// Package cli provides centralized command registration.
package cli

import (
	"github.com/micro-manager/micro-manager-sub007/internal/commands/cli/adapters"
	"github.com/micro-manager/micro-manager-sub007/internal/commands/cli/devices"
	"github.com/micro-manager/micro-manager-sub007/internal/commands/cli/server"
	"github.com/spf13/cobra"
)

// RegisterCommands registers all root commands.
func RegisterCommands(root *cobra.Command) error {
	root.AddCommand(adapters.NewAdaptersCommand())
	root.AddCommand(devices.NewDevicesCommand())
	root.AddCommand(server.NewServeCommand())

	return nil
}
