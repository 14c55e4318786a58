package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"whisperflow/audio"
	"whisperflow/config"
	"whisperflow/daemon"
	"whisperflow/doctor"
	"whisperflow/hotkey"
	"whisperflow/log"
	"whisperflow/notify"
	"whisperflow/shutdown"
	"whisperflow/tray"
	"whisperflow/tui"
)

// bgEnv marks the re-executed background child.
const bgEnv = "_WHISPER_FLOW_BG"

type daemonFlags struct {
	foreground bool
	tui        bool
	noTray     bool
	fakeAudio  bool
	fakeWav    string
	script     bool
}

func newDaemonCmd(g *globals) *cobra.Command {
	f := &daemonFlags{}
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the hotkey daemon",
		Long: `Run the hotkey daemon. Without --foreground or --tui the daemon detaches
and returns the shell prompt; use "whisper-flow stop" to end it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := g.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if f.fakeWav != "" || f.script {
				f.fakeAudio = true
			}
			if f.tui && !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("--tui needs an interactive terminal")
			}
			if !f.foreground && !f.tui && !f.script && os.Getenv(bgEnv) == "" {
				return detach(cmd.OutOrStdout())
			}
			return runDaemon(cmd.Context(), g, cfg, path, f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&f.foreground, "foreground", "f", false, "stay attached and log to stderr")
	cmd.Flags().BoolVar(&f.tui, "tui", false, "stay attached and show a terminal status view")
	cmd.Flags().BoolVar(&f.noTray, "no-tray", false, "do not show a tray icon")
	cmd.Flags().BoolVar(&f.fakeAudio, "fake-audio", false, "record a synthetic tone and use offline transcription and clipboard")
	cmd.Flags().StringVar(&f.fakeWav, "fake-wav", "", "with --fake-audio, replay this 16 kHz mono WAV instead of a tone")
	cmd.Flags().BoolVar(&f.script, "script", false, "drive fake hotkeys from stdin commands (implies --fake-audio)")
	return cmd
}

// detach re-executes the daemon in the background with the same
// arguments and returns once it has started.
func detach(out io.Writer) error {
	pidPath, err := config.PIDPath()
	if err != nil {
		return err
	}
	if st, pid, _ := daemon.Check(pidPath); st == daemon.Running {
		return fmt.Errorf("%w (pid %d)", daemon.ErrRunning, pid)
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	child := exec.Command(exe, os.Args[1:]...)
	child.Env = append(os.Environ(), bgEnv+"=1")
	devnull, err := os.Open(os.DevNull)
	if err != nil {
		return err
	}
	defer devnull.Close()
	child.Stdin, child.Stdout, child.Stderr = devnull, devnull, devnull
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	fmt.Fprintf(out, "whisper-flow daemon started (pid %d)\n", child.Process.Pid)
	return child.Process.Release()
}

func initCrashLog() {
	f, err := os.OpenFile(filepath.Join(log.Dir(), log.CrashFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
	f.Close()
}

func runDaemon(parent context.Context, g *globals, cfg config.Config, cfgPath string, f *daemonFlags, stdout io.Writer) error {
	logDir, err := log.ResolveDir(g.logDir, cfg.LogPath)
	if err != nil {
		return fmt.Errorf("resolving log directory: %w", err)
	}
	log.SetDir(logDir)
	var console io.Writer
	if f.foreground && !f.tui {
		console = os.Stderr
	}
	if err := log.Init(console); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		initCrashLog()
	}
	defer log.Close()
	logger := log.Logger()

	pidPath, err := config.PIDPath()
	if err != nil {
		return err
	}
	release, err := daemon.AcquirePID(pidPath)
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := shutdown.Context(parent)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		comps   daemon.Components
		cleanup = func() {}
		fake    *hotkey.FakeListener
	)
	if f.fakeAudio {
		var listener hotkey.Listener
		if f.script {
			fake = hotkey.NewFake()
			listener = fake
		}
		comps, _, err = daemon.Fake(cfg, f.fakeWav, listener)
	} else {
		comps, cleanup, err = daemon.Build(cfg, logger)
	}
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := daemon.New(cfg, comps, logger)
	if err != nil {
		return err
	}
	d.AddPresenter(log.Presenter{})

	notifier := notify.NewPresenter(notify.Desktop{Timeout: cfg.Notification()}, logger)
	notifier.OnDelivered = cfg.NotifyDelivered
	if !f.script {
		d.AddPresenter(notifier)
		if cfg.Sounds {
			d.AddPresenter(notify.NewCues(notify.Speaker()))
		}
	}

	eg, ctx := errgroup.WithContext(ctx)

	if !f.noTray && !f.script {
		t, closeTray := tray.Start(d.Profiles(), tray.Actions{
			Toggle: func() {
				if err := d.Toggle(ctx); err != nil {
					logger.Warn().Err(err).Msg("tray toggle")
				}
			},
			Settings: func() {
				if err := openSettings(cfgPath, openFile); err != nil {
					logger.Warn().Err(err).Str("path", cfgPath).Msg("open settings")
					notifier.Notify(notify.AppName, "Config file: "+cfgPath)
				}
			},
			Test: func() { notifier.Notify("Test Configuration", testConfiguration(cfg)) },
			Exit: cancel,
		})
		defer closeTray()
		d.AddPresenter(t)
	}

	if f.tui {
		view := tui.New(d.Profiles(), cfg.CancelChord())
		d.AddPresenter(view)
		eg.Go(func() error {
			err := view.Run()
			cancel()
			return err
		})
		eg.Go(func() error {
			<-ctx.Done()
			view.Quit()
			return nil
		})
	}

	if f.script {
		outcomes := make(daemon.Outcomes, 16)
		d.AddPresenter(outcomes)
		eg.Go(func() error {
			err := daemon.Script(ctx, os.Stdin, stdout, fake, cfg, outcomes)
			cancel()
			return err
		})
	}

	logger.Info().
		Str("version", version).
		Str("config", cfgPath).
		Bool("fake_audio", f.fakeAudio).
		Str("transcription_model", cfg.TranscriptionModel).
		Str("completion_model", cfg.CompletionModel).
		Msg("daemon_start")
	eg.Go(func() error { return d.Run(ctx) })

	err = eg.Wait()
	logger.Info().Err(err).Msg("daemon_stop")
	return err
}

// openSettings writes the default config when path is missing and then
// opens it.
func openSettings(path string, open func(string) error) error {
	if _, err := os.Stat(path); err != nil {
		if err := config.Write(path, config.Default()); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}
	return open(path)
}

// testConfiguration runs the non-interactive checks for the tray item and
// returns the one-line summary.
func testConfiguration(cfg config.Config) string {
	actx, err := audio.NewContext()
	if err != nil {
		actx = nil
	} else {
		defer actx.Close()
	}
	report := doctor.Check(cfg, doctor.System(actx))
	logger := log.Logger()
	for _, r := range report.Results {
		logger.Info().Str("check", r.Name).Str("status", r.Status.String()).Msg(r.Detail)
	}
	return report.Summary()
}
