// Package config loads the daemon configuration from
// ~/.config/whisper-flow/config.yaml, applies WHISPER_FLOW_* environment
// overrides and validates the result once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"whisperflow/encoder"
	"whisperflow/prompt"
	"whisperflow/session"
)

const (
	AppDir     = "whisper-flow"
	FileName   = "config.yaml"
	PIDName    = "daemon.pid"
	EnvPrefix  = "WHISPER_FLOW_"
	defaultURL = "https://api.openai.com/v1"

	DefaultCommandPrompt = "You are a helpful assistant. Carry out the following spoken instruction and reply with only the result, no preamble:\n\n{{text}}"
)

type Rule struct {
	Name     string `yaml:"name,omitempty"`
	Match    string `yaml:"match"`
	Prompt   string `yaml:"prompt"`
	Category string `yaml:"category,omitempty"`
}

type ModeConfig struct {
	Hotkey string `yaml:"hotkey"`
	Style  string `yaml:"style"`
	Prompt string `yaml:"prompt"`
	Rules  []Rule `yaml:"rules,omitempty"`
}

type Modes struct {
	Transcribe     ModeConfig `yaml:"transcribe"`
	AutoTranscribe ModeConfig `yaml:"auto_transcribe"`
	Command        ModeConfig `yaml:"command"`
}

func (m *Modes) get(mode session.Mode) *ModeConfig {
	switch mode {
	case session.ModeTranscribe:
		return &m.Transcribe
	case session.ModeAutoTranscribe:
		return &m.AutoTranscribe
	case session.ModeCommand:
		return &m.Command
	}
	return nil
}

type Hotkeys struct {
	Cancel string `yaml:"cancel"`
	Menu   string `yaml:"menu"`
}

type Config struct {
	APIKey  string `yaml:"openai_api_key,omitempty"`
	BaseURL string `yaml:"base_url"`

	TranscriptionModel string  `yaml:"transcription_model"`
	CompletionModel    string  `yaml:"completion_model"`
	Temperature        float64 `yaml:"temperature"`
	Language           string  `yaml:"language,omitempty"`
	UploadFormat       string  `yaml:"upload_format"`

	// Durations are in seconds, notification timeout in milliseconds.
	RequestTimeout       float64 `yaml:"request_timeout"`
	MaxRecordingDuration float64 `yaml:"max_recording_duration"`
	AutoStopSilence      float64 `yaml:"auto_stop_silence_duration"`
	NotificationTimeout  int     `yaml:"notification_timeout"`

	AutoPaste        bool    `yaml:"auto_paste"`
	RestoreClipboard float64 `yaml:"restore_clipboard_after"`
	Sounds           bool    `yaml:"sounds"`
	NotifyDelivered  bool    `yaml:"notify_on_delivery"`
	Device           string  `yaml:"device,omitempty"`
	LogPath          string  `yaml:"log_path,omitempty"`

	Hotkeys Hotkeys `yaml:"hotkeys"`
	Modes   Modes   `yaml:"modes"`
}

func Default() Config {
	return Config{
		BaseURL:              defaultURL,
		TranscriptionModel:   "gpt-4o-mini-transcribe",
		CompletionModel:      "gpt-4o-mini",
		Temperature:          0.4,
		UploadFormat:         string(encoder.FormatFLAC),
		RequestTimeout:       60,
		MaxRecordingDuration: 300,
		AutoStopSilence:      2.0,
		NotificationTimeout:  3000,
		AutoPaste:            true,
		Sounds:               true,
		NotifyDelivered:      true,
		Hotkeys:              Hotkeys{Cancel: "esc", Menu: "f1"},
		Modes: Modes{
			Transcribe:     ModeConfig{Hotkey: "ctrl+cmd", Style: "push_to_talk", Prompt: session.TextPlaceholder},
			AutoTranscribe: ModeConfig{Hotkey: "ctrl+cmd+space", Style: "toggle", Prompt: session.TextPlaceholder},
			Command:        ModeConfig{Hotkey: "ctrl+cmd+alt", Style: "push_to_talk", Prompt: DefaultCommandPrompt},
		},
	}
}

// Dir is ~/.config/whisper-flow.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDir), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func PIDPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PIDName), nil
}

// Load reads path over the defaults; a missing file leaves the defaults.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile is Load without the environment, for rewriting the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, &session.ConfigError{Field: path, Reason: err.Error()}
		}
	}
	return cfg, nil
}

// Write saves cfg to path, creating the directory. The API key is never
// written.
func Write(path string, cfg Config) error {
	cfg.APIKey = ""
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func (c Config) Timeout() time.Duration      { return seconds(c.RequestTimeout) }
func (c Config) MaxRecording() time.Duration { return seconds(c.MaxRecordingDuration) }
func (c Config) SilenceStop() time.Duration  { return seconds(c.AutoStopSilence) }
func (c Config) RestoreAfter() time.Duration { return seconds(c.RestoreClipboard) }

func (c Config) Notification() time.Duration {
	return time.Duration(c.NotificationTimeout) * time.Millisecond
}

func (c Config) Format() encoder.Format {
	f, _ := encoder.ParseFormat(c.UploadFormat)
	return f
}

func (c Config) CancelChord() session.Chord { return optionalChord(c.Hotkeys.Cancel) }
func (c Config) MenuChord() session.Chord   { return optionalChord(c.Hotkeys.Menu) }

func optionalChord(s string) session.Chord {
	if s == "" {
		return ""
	}
	ch, _ := session.ParseChord(s)
	return ch
}

// Profiles converts the per-mode settings into session profiles, in
// session.Modes order. Call Validate first.
func (c Config) Profiles() ([]session.Profile, error) {
	var out []session.Profile
	for _, mode := range session.Modes {
		mc := c.Modes.get(mode)
		chord, err := session.ParseChord(mc.Hotkey)
		if err != nil {
			return nil, &session.ConfigError{Field: "modes." + mode.String() + ".hotkey", Reason: err.Error()}
		}
		style, err := session.ParseStyle(mc.Style)
		if err != nil {
			return nil, &session.ConfigError{Field: "modes." + mode.String() + ".style", Reason: err.Error()}
		}
		out = append(out, session.Profile{
			Mode:               mode,
			Chord:              chord,
			Style:              style,
			Prompt:             mc.Prompt,
			TranscriptionModel: c.TranscriptionModel,
			CompletionModel:    c.CompletionModel,
			Temperature:        c.Temperature,
			Language:           c.Language,
			AutoStop:           mode == session.ModeAutoTranscribe,
		})
	}
	return out, nil
}

// Rules returns the prompt rules per mode.
func (c Config) Rules() map[session.Mode][]prompt.Rule {
	out := map[session.Mode][]prompt.Rule{}
	for _, mode := range session.Modes {
		for _, r := range c.Modes.get(mode).Rules {
			out[mode] = append(out[mode], prompt.Rule{Name: r.Name, Match: r.Match, Prompt: r.Prompt, Category: r.Category})
		}
	}
	return out
}
