package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"whisperflow/audio"
	"whisperflow/clipboard"
	"whisperflow/config"
	"whisperflow/session"
	"whisperflow/transcriber"
)

// Run prints the system checks and, when interactive, walks the user
// through a live recording and a paste. It returns the process exit code.
func Run(cfg config.Config, actx audio.Context, interactive bool) int {
	fmt.Println("whisper-flow doctor - system diagnostics")
	fmt.Println("========================================")
	fmt.Println()

	report := Check(cfg, System(actx))
	report.Write(os.Stdout)
	if !report.OK() {
		return 1
	}
	if !interactive {
		return 0
	}

	resetTerminal()
	stop := setupInterruptHandler()
	defer stop()

	allPass := checkMicAndTranscription(cfg, actx) &&
		checkClipboardCopy(clipboard.System())
	if allPass && cfg.AutoPaste {
		allPass = checkClipboardPaste() && checkLivePaste(cfg)
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func confirm(question string) bool {
	resetTerminal()
	fmt.Print(question + " [y/n]: ")
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func checkMicAndTranscription(cfg config.Config, actx audio.Context) bool {
	fmt.Println()
	fmt.Println("Microphone and transcription")

	rec := audio.NewRecorder(actx, audio.RecorderConfig{Device: cfg.Device})

	fmt.Print("Press Enter and speak for 3 seconds...")
	bufio.NewReader(os.Stdin).ReadString('\n')

	h, err := rec.Start(context.Background())
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	fmt.Print("  Recording")
	for range 6 {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	buf, err := rec.Stop(h)
	fmt.Println(" done")
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if buf.Frames() == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}
	fmt.Printf("  Recorded %.1f KB (rms %.3f), transcribing...\n", float64(len(buf.PCM))/1024, audio.Level(buf.PCM))

	client := transcriber.New(transcriber.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Format:  cfg.Format(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	text, err := client.Transcribe(ctx, buf, session.Request{
		Mode:        session.ModeTranscribe,
		Model:       cfg.TranscriptionModel,
		Language:    cfg.Language,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		fmt.Printf("  FAIL: transcription error: %v\n", err)
		return false
	}
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	if confirm("Is this correct?") {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}
	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

// checkLivePaste delivers a marker into the focused window the same way
// the daemon does and checks the previous clipboard comes back.
func checkLivePaste(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("Paste into the focused window")

	board := clipboard.System()
	const sentinel = "whisper-flow-preserve-check"
	if err := board.Write(sentinel); err != nil {
		fmt.Printf("  FAIL: could not set sentinel: %v\n", err)
		return false
	}

	fmt.Println("Focus on a text editor window...")
	for i := 5; i > 0; i-- {
		fmt.Printf("  %d...\n", i)
		time.Sleep(time.Second)
	}

	restore := cfg.RestoreAfter()
	if restore <= 0 {
		restore = 500 * time.Millisecond
	}
	sink := clipboard.NewSink(clipboard.Config{
		Board:        board,
		Paster:       clipboard.Keystroke(),
		AutoPaste:    true,
		RestoreAfter: restore,
	})
	ack, err := sink.Deliver(context.Background(), "whisper-flow-doctor-test")
	if err != nil {
		fmt.Printf("  FAIL: deliver failed: %v\n", err)
		return false
	}
	if !ack.Pasted {
		fmt.Println("  FAIL: paste keystroke could not be sent")
		return false
	}
	sink.Wait()

	if !confirm(`Did the text "whisper-flow-doctor-test" appear?`) {
		fmt.Println("  FAIL: paste not confirmed")
		return false
	}
	got, err := board.Read()
	if err != nil {
		fmt.Printf("  FAIL: could not read clipboard after restore: %v\n", err)
		return false
	}
	if got != sentinel {
		fmt.Printf("  FAIL: clipboard not preserved (got %q, want %q)\n", got, sentinel)
		return false
	}
	fmt.Println("  PASS: paste and clipboard preservation verified")
	return true
}
