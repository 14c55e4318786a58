package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whisperflow/audio"
	"whisperflow/config"
	"whisperflow/doctor"
)

func newValidateCmd(g *globals) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the desktop integration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := g.load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n\n", path)

			actx, err := audio.NewContext()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "audio: %v\n", err)
				actx = nil
			} else {
				defer actx.Close()
			}
			if code := doctor.Run(cfg, actx, interactive); code != 0 {
				return exitError(code)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "also record a sample and test pasting")
	return cmd
}

func newInitConfigCmd(g *globals) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a config file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := g.path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "set OPENAI_API_KEY or "+config.EnvPrefix+"OPENAI_API_KEY before starting the daemon")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newDevicesCmd(g *globals) *cobra.Command {
	var pick bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices, or pick one with --pick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := g.load()
			if err != nil {
				return err
			}
			actx, err := audio.NewContext()
			if err != nil {
				return fmt.Errorf("initializing audio: %w", err)
			}
			defer actx.Close()

			if !pick {
				devices, err := actx.Devices()
				if err != nil {
					return err
				}
				audio.ListDevices(cmd.OutOrStdout(), devices, cfg.Device)
				return nil
			}

			dev, err := audio.SelectDevice(actx, os.Stdin, cmd.OutOrStdout())
			if errors.Is(err, audio.ErrSelectionAborted) {
				return nil
			}
			if err != nil {
				return err
			}
			file, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			file.Device = dev.Name
			if err := config.Write(path, file); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "using %s (saved to %s)\n", dev.Name, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a device interactively and save it")
	return cmd
}
