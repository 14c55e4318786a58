package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"whisperflow/config"
	"whisperflow/daemon"
	"whisperflow/shutdown"
)

func newStopCmd(_ *globals) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pidPath, err := config.PIDPath()
			if err != nil {
				return err
			}
			st, pid, err := daemon.Check(pidPath)
			if err != nil {
				return err
			}
			if st != daemon.Running {
				fmt.Fprintf(cmd.OutOrStdout(), "daemon is %s\n", st)
				return nil
			}
			if err := shutdown.Terminate(pid); err != nil {
				return fmt.Errorf("signalling pid %d: %w", pid, err)
			}
			deadline := time.Now().Add(wait)
			for shutdown.Alive(pid) {
				if time.Now().After(deadline) {
					return fmt.Errorf("pid %d still running after %s", pid, wait)
				}
				time.Sleep(100 * time.Millisecond)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopped pid %d\n", pid)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for the daemon to exit")
	return cmd
}

func newStatusCmd(_ *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pidPath, err := config.PIDPath()
			if err != nil {
				return err
			}
			st, pid, err := daemon.Check(pidPath)
			if err != nil {
				return err
			}
			switch st {
			case daemon.Running:
				fmt.Fprintf(cmd.OutOrStdout(), "running (pid %d)\n", pid)
				return nil
			case daemon.Stale:
				fmt.Fprintf(cmd.OutOrStdout(), "stale pid file %s (pid %d is gone)\n", pidPath, pid)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			}
			return exitError(3)
		},
	}
}
