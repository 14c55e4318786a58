// Package doctor checks that the machine can run the daemon: a valid
// configuration, an API key, a capture device, a hotkey backend, a way to
// paste and the helper tools the desktop integration shells out to.
package doctor

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"whisperflow/audio"
	"whisperflow/clipboard"
	"whisperflow/config"
	"whisperflow/hotkey"
	"whisperflow/session"
)

type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Warn:
		return "WARN"
	}
	return "FAIL"
}

type Result struct {
	Name   string
	Status Status
	Detail string
}

type Report struct {
	Results []Result
}

func (r *Report) add(name string, s Status, format string, args ...any) {
	r.Results = append(r.Results, Result{Name: name, Status: s, Detail: fmt.Sprintf(format, args...)})
}

// OK is true when no check failed; warnings are allowed.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return false
		}
	}
	return true
}

func (r Report) count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Summary is a one-line verdict suitable for a notification.
func (r Report) Summary() string {
	fails, warns := r.count(Fail), r.count(Warn)
	switch {
	case fails > 0:
		var names []string
		for _, res := range r.Results {
			if res.Status == Fail {
				names = append(names, res.Name)
			}
		}
		return fmt.Sprintf("%d check(s) failed: %s", fails, strings.Join(names, ", "))
	case warns > 0:
		return fmt.Sprintf("All checks passed with %d warning(s)", warns)
	}
	return "All checks passed"
}

func (r Report) Write(w io.Writer) {
	for _, res := range r.Results {
		fmt.Fprintf(w, "  %-4s  %-14s %s\n", res.Status, res.Name, res.Detail)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary())
}

// Probes abstracts the machine so checks can run against fakes.
type Probes struct {
	GOOS      string
	LookPath  func(file string) (string, error)
	Devices   func() ([]audio.DeviceInfo, error)
	Hotkeys   func() (string, error)
	Supported func(session.Chord) error
	Paste     func() (string, error)
}

// System probes the running machine. actx may be nil when no audio
// backend could be opened.
func System(actx audio.Context) Probes {
	p := Probes{
		GOOS:      runtime.GOOS,
		LookPath:  exec.LookPath,
		Hotkeys:   hotkey.Diagnose,
		Supported: hotkey.Supported,
		Paste:     clipboard.Verify,
	}
	if actx != nil {
		p.Devices = actx.Devices
	}
	return p
}

// Check runs every non-interactive check.
func Check(cfg config.Config, p Probes) Report {
	var r Report
	checkConfig(&r, cfg)
	checkAPIKey(&r, cfg)
	checkHotkeys(&r, cfg, p)
	checkDevices(&r, cfg, p)
	checkPaste(&r, cfg, p)
	checkTools(&r, cfg, p)
	return r
}

func checkConfig(r *Report, cfg config.Config) {
	if err := cfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			r.add("config", Fail, "%s", line)
		}
		return
	}
	for _, w := range cfg.Warnings() {
		r.add("config", Warn, "%s", w)
	}
	r.add("models", Pass, "transcription %s, completion %s", cfg.TranscriptionModel, cfg.CompletionModel)
}

func checkAPIKey(r *Report, cfg config.Config) {
	if err := cfg.RequireAPIKey(); err != nil {
		r.add("api key", Fail, "%v", err)
		return
	}
	r.add("api key", Pass, "set (%d characters)", len(cfg.APIKey))
}

func checkHotkeys(r *Report, cfg config.Config, p Probes) {
	if p.Hotkeys != nil {
		msg, err := p.Hotkeys()
		if err != nil {
			r.add("hotkeys", Fail, "%v", err)
			return
		}
		r.add("hotkeys", Pass, "%s", msg)
	}
	if p.Supported == nil {
		return
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		return
	}
	chords := []session.Chord{cfg.CancelChord(), cfg.MenuChord()}
	for _, prof := range profiles {
		chords = append(chords, prof.Chord)
	}
	for _, c := range chords {
		if c == "" {
			continue
		}
		if err := p.Supported(c); err != nil {
			r.add("hotkeys", Fail, "%v", err)
		}
	}
}

func checkDevices(r *Report, cfg config.Config, p Probes) {
	if p.Devices == nil {
		r.add("audio", Fail, "no audio backend available")
		return
	}
	devices, err := p.Devices()
	if err != nil {
		r.add("audio", Fail, "cannot list devices: %v", err)
		return
	}
	if len(devices) == 0 {
		r.add("audio", Fail, "no capture devices found")
		return
	}
	if cfg.Device == "" {
		r.add("audio", Pass, "%d capture device(s), using system default", len(devices))
		return
	}
	for _, d := range devices {
		if strings.EqualFold(d.Name, cfg.Device) {
			if audio.IsBluetooth(d.Name) {
				r.add("audio", Warn, "%s is a bluetooth headset, audio quality drops while recording", d.Name)
			} else {
				r.add("audio", Pass, "using %s", d.Name)
			}
			return
		}
	}
	r.add("audio", Fail, "configured device %q not found", cfg.Device)
}

func checkPaste(r *Report, cfg config.Config, p Probes) {
	if !cfg.AutoPaste {
		r.add("paste", Pass, "auto paste disabled, text stays on the clipboard")
		return
	}
	if p.Paste == nil {
		return
	}
	msg, err := p.Paste()
	if err != nil {
		if p.GOOS == "linux" {
			r.add("paste", Warn, "%v (fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput)", err)
			return
		}
		r.add("paste", Warn, "%v", err)
		return
	}
	r.add("paste", Pass, "%s", msg)
}

func checkTools(r *Report, cfg config.Config, p Probes) {
	if p.LookPath == nil {
		return
	}
	hasRules := len(cfg.Rules()) > 0
	switch p.GOOS {
	case "linux":
		if _, err := p.LookPath("notify-send"); err != nil {
			r.add("notify-send", Warn, "not installed, falling back to D-Bus notifications")
		} else {
			r.add("notify-send", Pass, "found")
		}
		_, errXdo := p.LookPath("xdotool")
		_, errXprop := p.LookPath("xprop")
		switch {
		case errXdo == nil:
			r.add("window title", Pass, "xdotool found")
		case errXprop == nil:
			r.add("window title", Pass, "xprop found")
		case hasRules:
			r.add("window title", Warn, "xdotool and xprop missing, prompt rules and {{window_title}} will not match")
		}
	case "darwin":
		if _, err := p.LookPath("osascript"); err != nil && hasRules {
			r.add("window title", Warn, "osascript missing, prompt rules will not match")
		}
	}
}
