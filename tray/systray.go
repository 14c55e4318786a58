package tray

import (
	"sync"

	"fyne.io/systray"

	"whisperflow/session"
)

type systrayView struct {
	mu     sync.Mutex
	record *systray.MenuItem
}

func (v *systrayView) setIcon(k iconKind) {
	if k == iconIdle {
		systray.SetTemplateIcon(icons[k], icons[k])
		return
	}
	systray.SetIcon(icons[k])
}

func (v *systrayView) setTooltip(s string) { systray.SetTooltip(s) }

func (v *systrayView) setRecordTitle(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record != nil {
		v.record.SetTitle(s)
	}
}

// Start shows the tray icon and returns the presenter plus a function
// that removes the icon again.
func Start(profiles []session.Profile, actions Actions) (*Tray, func()) {
	v := &systrayView{}
	t := newTray(profiles, actions, v)
	ready := make(chan struct{})
	start, end := systray.RunWithExternalLoop(func() {
		t.build(v)
		close(ready)
	}, func() {})
	onMain(start)
	<-ready
	return t, func() { onMain(end) }
}

func (t *Tray) build(v *systrayView) {
	v.setIcon(iconIdle)
	systray.SetTooltip(tooltip(session.StateIdle, session.ModeNone))

	for _, label := range ModeLabels(t.profiles) {
		systray.AddMenuItem(label, label).Disable()
	}
	systray.AddSeparator()

	record := systray.AddMenuItem("Start Recording", "Start or stop a transcription")
	v.mu.Lock()
	v.record = record
	v.mu.Unlock()
	settings := systray.AddMenuItem("Settings", "Open the configuration file")
	test := systray.AddMenuItem("Test Configuration", "Run configuration checks")
	systray.AddSeparator()
	exit := systray.AddMenuItem("Exit", "Quit Whisper Flow")

	go func() {
		for {
			select {
			case <-record.ClickedCh:
				t.dispatch(t.actions.Toggle)
			case <-settings.ClickedCh:
				t.dispatch(t.actions.Settings)
			case <-test.ClickedCh:
				t.dispatch(t.actions.Test)
			case <-exit.ClickedCh:
				t.dispatch(t.actions.Exit)
				return
			}
		}
	}()
}
