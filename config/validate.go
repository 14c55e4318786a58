package config

import (
	"errors"
	"fmt"
	"regexp"

	"whisperflow/encoder"
	"whisperflow/prompt"
	"whisperflow/session"
)

type bound struct {
	field    string
	value    float64
	min, max float64
}

// Validate checks the whole configuration and reports every problem at
// once as joined *session.ConfigError values.
func (c Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, &session.ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if c.TranscriptionModel == "" {
		bad("transcription_model", "must not be empty")
	}
	if c.CompletionModel == "" {
		bad("completion_model", "must not be empty")
	}
	if c.BaseURL == "" {
		bad("base_url", "must not be empty")
	}
	if _, err := encoder.ParseFormat(c.UploadFormat); err != nil {
		bad("upload_format", "%v", err)
	}

	for _, b := range []bound{
		{"temperature", c.Temperature, 0, 2},
		{"request_timeout", c.RequestTimeout, 1, 600},
		{"max_recording_duration", c.MaxRecordingDuration, 60, 1800},
		{"auto_stop_silence_duration", c.AutoStopSilence, 0.5, 10},
		{"notification_timeout", float64(c.NotificationTimeout), 1000, 10000},
		{"restore_clipboard_after", c.RestoreClipboard, 0, 60},
	} {
		if b.value < b.min || b.value > b.max {
			bad(b.field, "%g is outside %g..%g", b.value, b.min, b.max)
		}
	}

	reserved := map[session.Chord]string{}
	if c.Hotkeys.Cancel == "" {
		bad("hotkeys.cancel", "must not be empty")
	} else if ch, err := session.ParseChord(c.Hotkeys.Cancel); err != nil {
		bad("hotkeys.cancel", "%v", err)
	} else {
		reserved[ch] = "hotkeys.cancel"
	}
	if c.Hotkeys.Menu != "" {
		if ch, err := session.ParseChord(c.Hotkeys.Menu); err != nil {
			bad("hotkeys.menu", "%v", err)
		} else if other, dup := reserved[ch]; dup {
			bad("hotkeys.menu", "%q is already bound to %s", ch, other)
		} else {
			reserved[ch] = "hotkeys.menu"
		}
	}

	seen := map[session.Chord]string{}
	for _, mode := range session.Modes {
		mc := c.Modes.get(mode)
		field := "modes." + mode.String()
		if _, err := session.ParseStyle(mc.Style); err != nil {
			bad(field+".style", "%v", err)
		}
		ch, err := session.ParseChord(mc.Hotkey)
		switch {
		case err != nil:
			bad(field+".hotkey", "%v", err)
		case reserved[ch] != "":
			bad(field+".hotkey", "%q is reserved by %s", ch, reserved[ch])
		case seen[ch] != "":
			bad(field+".hotkey", "%q is already bound to %s", ch, seen[ch])
		default:
			seen[ch] = field
		}

		if _, err := prompt.Check(mc.Prompt); err != nil {
			bad(field+".prompt", "%v", err)
		}
		for i, r := range mc.Rules {
			rf := fmt.Sprintf("%s.rules[%d]", field, i)
			if r.Match == "" {
				bad(rf+".match", "must not be empty")
			} else if _, err := regexp.Compile(r.Match); err != nil {
				bad(rf+".match", "%v", err)
			}
			if _, err := prompt.Check(r.Prompt); err != nil {
				bad(rf+".prompt", "%v", err)
			}
		}
	}
	return errors.Join(errs...)
}

// Warnings lists non-fatal prompt template issues.
func (c Config) Warnings() []string {
	var out []string
	for _, mode := range session.Modes {
		mc := c.Modes.get(mode)
		ws, _ := prompt.Check(mc.Prompt)
		for _, w := range ws {
			out = append(out, fmt.Sprintf("modes.%s.prompt: %s", mode, w))
		}
	}
	return out
}

// RequireAPIKey reports a missing key as a ConfigError.
func (c Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return &session.ConfigError{Field: "openai_api_key", Reason: "set OPENAI_API_KEY or " + EnvPrefix + "OPENAI_API_KEY"}
	}
	return nil
}
