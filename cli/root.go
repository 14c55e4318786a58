// Package cli is the whisper-flow command line.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whisperflow/config"
)

var version = "dev"

// SetVersion is called from main with the linker-provided version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

type globals struct {
	configPath string
	logDir     string
}

func (g *globals) path() (string, error) {
	if g.configPath != "" {
		return g.configPath, nil
	}
	return config.Path()
}

func (g *globals) load() (config.Config, string, error) {
	path, err := g.path()
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

func newRoot() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "whisper-flow",
		Short:         "Hotkey driven dictation and voice commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.config/whisper-flow/config.yaml)")
	root.PersistentFlags().StringVar(&g.logDir, "log-dir", "", "log directory (default: OS-specific location)")

	root.AddCommand(
		newDaemonCmd(g),
		newStopCmd(g),
		newStatusCmd(g),
		newValidateCmd(g),
		newInitConfigCmd(g),
		newDevicesCmd(g),
		newVersionCmd(),
	)
	return root
}

// exitError carries a process exit code without printing anything more.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// Execute runs the command line and returns the process exit code.
func Execute() int {
	err := newRoot().Execute()
	if err == nil {
		return 0
	}
	var code exitError
	if errors.As(err, &code) {
		return int(code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "whisper-flow %s\n", version)
		},
	}
}
