// Package adapters provides adapter module inspection commands.
package adapters

import (
	"fmt"
	"text/tabwriter"

	"github.com/micro-manager/micro-manager-sub007/internal/commands/cli/hostenv"
	"github.com/micro-manager/micro-manager-sub007/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewAdaptersCommand creates the adapters command group.
func NewAdaptersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "Adapter module commands",
		Long:  `Commands for inspecting the device adapter modules on the search path.`,
	}

	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewDevicesCommand())

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available adapter modules",
		Long: `List every adapter module found on the search path. Each module is
loaded to check that its interface version matches the host.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	host := hostenv.New(cmd.Context(), config.Get())
	defer func() {
		if err := host.Close(cmd.Context()); err != nil {
			log.Error().Err(err).Msg("failed to close modules")
		}
	}()

	names, err := host.Loader.ListAvailableModules()
	if err != nil {
		return fmt.Errorf("failed to list modules: %w", err)
	}

	// Create tabwriter for aligned output.
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Module\tDevices\tLocation")
	_, _ = fmt.Fprintln(w, "------\t-------\t--------")

	for _, name := range names {
		m, err := host.Loader.LoadModule(name)
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\t-\t%v\n", name, err)
			continue
		}
		devices, err := m.GetAvailableDeviceNames()
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\t-\t%v\n", name, err)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(devices), m.Path())
	}

	return w.Flush()
}

// NewDevicesCommand creates the devices command.
func NewDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices MODULE",
		Short: "List the devices a module advertises",
		Args:  cobra.ExactArgs(1),
		RunE:  runDevices,
	}
}

func runDevices(cmd *cobra.Command, args []string) error {
	host := hostenv.New(cmd.Context(), config.Get())
	defer func() {
		if err := host.Close(cmd.Context()); err != nil {
			log.Error().Err(err).Msg("failed to close modules")
		}
	}()

	m, err := host.Loader.LoadModule(args[0])
	if err != nil {
		return err
	}
	names, err := m.GetAvailableDeviceNames()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Device\tType\tDescription")
	_, _ = fmt.Fprintln(w, "------\t----\t-----------")

	for _, name := range names {
		typ, err := m.GetAdvertisedType(name)
		if err != nil {
			return err
		}
		desc, err := m.GetDeviceDescription(name)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, typ, desc)
	}

	return w.Flush()
}
