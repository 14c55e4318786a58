package daemon

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"whisperflow/audio"
	"whisperflow/clipboard"
	"whisperflow/completion"
	"whisperflow/config"
	"whisperflow/hotkey"
	"whisperflow/prompt"
	"whisperflow/transcriber"
)

// FakeTranscript is what the fake transcriber returns for every recording.
const FakeTranscript = "This is a fake transcript."

// Build opens the audio backend and creates the network clients. The
// returned func releases the audio device.
func Build(cfg config.Config, logger *zerolog.Logger) (Components, func(), error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return Components{}, nil, err
	}
	actx, err := audio.NewContext()
	if err != nil {
		return Components{}, nil, fmt.Errorf("initializing audio: %w", err)
	}
	rec := audio.NewRecorder(actx, audio.RecorderConfig{
		Device:     cfg.Device,
		QuietAfter: cfg.SilenceStop(),
	})

	http := transcriber.NewTracedClient(logger)
	stt := transcriber.New(transcriber.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Format:  cfg.Format(),
		Client:  http,
		Logger:  logger,
	})
	llm := completion.New(completion.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Client:  http,
		Logger:  logger,
	})
	go stt.Warm()

	prompts, err := prompt.NewManager(cfg.Rules(), prompt.ActiveWindowTitle)
	if err != nil {
		rec.Close()
		return Components{}, nil, err
	}

	sink := clipboard.NewSink(clipboard.Config{
		AutoPaste:    cfg.AutoPaste,
		RestoreAfter: cfg.RestoreAfter(),
		Logger:       logger,
	})
	return Components{
		Capture:     rec,
		Transcriber: stt,
		Completer:   llm,
		Sink:        sink,
		Prompts:     prompts,
		Listener:    hotkey.New(),
	}, func() { sink.Wait(); rec.Close() }, nil
}

// Fake is the offline stack behind --fake-audio: recordings replay wav
// (or a tone when empty), transcription returns FakeTranscript, the
// completion echoes its prompt and delivery goes to an in-memory
// clipboard. The hotkey listener is real unless listener is given.
func Fake(cfg config.Config, wav string, listener hotkey.Listener) (Components, *clipboard.Memory, error) {
	var actx *audio.FakeContext
	if wav != "" {
		var err error
		if actx, err = audio.LoadFakeContext(wav, true); err != nil {
			return Components{}, nil, err
		}
	} else {
		actx = audio.NewFakeContext(fakeTone(time.Second), true)
	}
	if listener == nil {
		listener = hotkey.New()
	}
	prompts, err := prompt.NewManager(cfg.Rules(), nil)
	if err != nil {
		return Components{}, nil, err
	}
	board := &clipboard.Memory{}
	stt := transcriber.NewFake(FakeTranscript, nil)
	stt.Delay = 300 * time.Millisecond
	return Components{
		Capture:     audio.NewRecorder(actx, audio.RecorderConfig{QuietAfter: cfg.SilenceStop()}),
		Transcriber: stt,
		Completer:   completion.Echo{},
		Sink:        clipboard.NewSink(clipboard.Config{Board: board, Paster: board, AutoPaste: cfg.AutoPaste}),
		Prompts:     prompts,
		Listener:    listener,
	}, board, nil
}
