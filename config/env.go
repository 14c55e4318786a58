package config

import (
	"errors"
	"strconv"

	"whisperflow/session"
)

// ApplyEnv overrides settings from WHISPER_FLOW_* variables. The API key
// falls back to OPENAI_API_KEY.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvPrefix + "OPENAI_API_KEY"); v != "" {
		c.APIKey = v
	} else if v := getenv("OPENAI_API_KEY"); v != "" && c.APIKey == "" {
		c.APIKey = v
	}

	strs := map[string]*string{
		"HOTKEY_TRANSCRIBE":      &c.Modes.Transcribe.Hotkey,
		"HOTKEY_AUTO_TRANSCRIBE": &c.Modes.AutoTranscribe.Hotkey,
		"HOTKEY_COMMAND":         &c.Modes.Command.Hotkey,
		"HOTKEY_CANCEL":          &c.Hotkeys.Cancel,
		"HOTKEY_MENU":            &c.Hotkeys.Menu,
		"TRANSCRIPTION_MODEL":    &c.TranscriptionModel,
		"COMPLETION_MODEL":       &c.CompletionModel,
		"BASE_URL":               &c.BaseURL,
		"LANGUAGE":               &c.Language,
		"UPLOAD_FORMAT":          &c.UploadFormat,
		"DEVICE":                 &c.Device,
		"LOG_PATH":               &c.LogPath,
	}
	for name, dst := range strs {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	var errs []error
	floats := map[string]*float64{
		"TEMPERATURE":            &c.Temperature,
		"REQUEST_TIMEOUT":        &c.RequestTimeout,
		"MAX_RECORDING_DURATION": &c.MaxRecordingDuration,
		"AUTO_STOP_SILENCE":      &c.AutoStopSilence,
		"RESTORE_CLIPBOARD":      &c.RestoreClipboard,
	}
	for name, dst := range floats {
		v := getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, envError(name, v))
			continue
		}
		*dst = f
	}

	if v := getenv(EnvPrefix + "NOTIFICATION_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, envError("NOTIFICATION_TIMEOUT", v))
		} else {
			c.NotificationTimeout = n
		}
	}

	bools := map[string]*bool{
		"AUTO_PASTE":         &c.AutoPaste,
		"SOUNDS":             &c.Sounds,
		"NOTIFY_ON_DELIVERY": &c.NotifyDelivered,
	}
	for name, dst := range bools {
		v := getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, envError(name, v))
			continue
		}
		*dst = b
	}
	return errors.Join(errs...)
}

func envError(name, value string) error {
	return &session.ConfigError{Field: EnvPrefix + name, Reason: strconv.Quote(value) + " is not a valid value"}
}
