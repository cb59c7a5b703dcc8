// Package devices provides hardware configuration commands.
package devices

import (
	"fmt"
	"text/tabwriter"

	"github.com/micro-manager/micro-manager-sub007/internal/commands/cli/hostenv"
	"github.com/micro-manager/micro-manager-sub007/internal/config"
	"github.com/micro-manager/micro-manager-sub007/internal/hwconfig"
	"github.com/micro-manager/micro-manager-sub007/internal/registry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewDevicesCommand creates the devices command group.
func NewDevicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Hardware configuration commands",
	}

	cmd.AddCommand(NewCheckCommand())

	return cmd
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load a hardware configuration and report on each device",
		Long: `Load every device of a hardware configuration, initialize them and
print their state. All devices are unloaded again before the command exits.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}

	cmd.Flags().StringP("file", "f", "", "hardware configuration file")
	cmd.Flags().Bool("detect", false, "run device detection on devices that support it")
	cmd.Flags().String("save", "", "write the resulting configuration to this file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	detect, _ := cmd.Flags().GetBool("detect")
	save, _ := cmd.Flags().GetString("save")

	hw, err := hwconfig.Load(file)
	if err != nil {
		return err
	}

	host := hostenv.New(cmd.Context(), config.Get())
	defer func() {
		if err := host.Close(cmd.Context()); err != nil {
			log.Error().Err(err).Msg("failed to unload devices")
		}
	}()

	if err := hwconfig.Apply(host.Registry, hw); err != nil {
		return fmt.Errorf("failed to apply %s: %w", file, err)
	}

	if err := report(cmd, host.Registry, detect); err != nil {
		return err
	}

	if save == "" {
		return nil
	}
	snap, err := hwconfig.Snapshot(host.Registry)
	if err != nil {
		return err
	}

	return hwconfig.Save(save, snap)
}

func report(cmd *cobra.Command, r *registry.Registry, detect bool) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Label\tModule\tDevice\tType\tParent\tState\tDetection")
	_, _ = fmt.Fprintln(w, "-----\t------\t------\t----\t------\t-----\t---------")

	for _, label := range r.Labels() {
		inst, err := r.GetDevice(label)
		if err != nil {
			return err
		}

		parent := "-"
		hub, err := r.GetParentDevice(inst)
		if err != nil {
			return err
		}
		if hub != nil {
			parent = hub.Label()
		}

		detection := "-"
		if detect {
			status, err := r.DetectDevice(label)
			if err != nil {
				return err
			}
			detection = status.String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			label, inst.ModuleName(), inst.Name(), inst.Type(), parent, inst.Lifecycle(), detection)
	}

	return w.Flush()
}
