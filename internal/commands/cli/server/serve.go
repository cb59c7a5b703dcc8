// Package server provides server-related CLI commands.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/micro-manager/micro-manager-sub007/internal/commands/cli/hostenv"
	"github.com/micro-manager/micro-manager-sub007/internal/config"
	"github.com/micro-manager/micro-manager-sub007/internal/hwconfig"
	"github.com/micro-manager/micro-manager-sub007/internal/registry"
	"github.com/micro-manager/micro-manager-sub007/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the device control server",
		Long: `Load the hardware configuration, if any, and serve the loaded devices
to control clients over TCP. SIGHUP, or a change to the configuration file
when watching is enabled, reloads the configuration.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	// Add serve command specific flags that can override config.
	cmd.Flags().String("host", "localhost", "Server host")
	cmd.Flags().Int("port", 1600, "Server port")
	cmd.Flags().String("hardware", "", "hardware configuration file")
	cmd.Flags().Bool("watch", false, "reload the hardware configuration when it changes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()

	// Create a context that will be canceled when the server is stopping.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	host := hostenv.New(ctx, cfg)
	defer func() {
		log.Info().Msg("unloading devices...")
		if err := host.Close(ctx); err != nil {
			log.Error().Err(err).Msg("error while unloading devices")
		}
	}()

	hwPath := cfg.Hardware.Config
	if hwPath != "" {
		if err := applyFile(host.Registry, hwPath); err != nil {
			return err
		}
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv, err := server.NewServer(serverAddr, host.Registry)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %v", err)
	}

	reloads := make(chan struct{}, 1)

	// Reload the hardware configuration on SIGHUP.
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)
	defer signal.Stop(hupChan)

	var changes <-chan struct{}
	if hwPath != "" && cfg.Hardware.Watch {
		watcher, err := hwconfig.NewWatcher(hwPath, 0)
		if err != nil {
			return err
		}
		if changes, err = watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	go func() {
		for {
			select {
			case <-hupChan:
			case <-changes:
			case <-ctx.Done():
				return
			}
			select {
			case reloads <- struct{}{}:
			default:
			}
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopChan)

	for {
		select {
		case <-reloads:
			if hwPath == "" {
				log.Warn().Msg("no hardware configuration to reload")
				continue
			}
			log.Info().Str("path", hwPath).Msg("reloading hardware configuration...")
			if err := srv.Reload(func(r *registry.Registry) error {
				if err := r.UnloadAllDevices(); err != nil {
					log.Error().Err(err).Msg("error while unloading devices")
				}

				return applyFile(r, hwPath)
			}); err != nil {
				log.Error().Err(err).Msg("failed to reload hardware configuration")
			}

		case err := <-errChan:
			return fmt.Errorf("failed to start server: %v", err)

		case <-stopChan:
			log.Info().Msg("shutting down server...")
			if err := srv.Stop(); err != nil {
				log.Error().Err(err).Msg("error during server shutdown")
			}

			return nil
		}
	}
}

func applyFile(r *registry.Registry, path string) error {
	hw, err := hwconfig.Load(path)
	if err != nil {
		return err
	}

	return hwconfig.Apply(r, hw)
}
