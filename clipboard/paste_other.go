//go:build !linux

package clipboard

import (
	"runtime"
	"sync"

	"github.com/micmonay/keybd_event"
)

type keybdPaster struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

var keystroke = &keybdPaster{}

// Keystroke returns the platform paste keystroke sender.
func Keystroke() Paster { return keystroke }

func (p *keybdPaster) init() error {
	p.once.Do(func() {
		p.kb, p.err = keybd_event.NewKeyBonding()
	})
	return p.err
}

// Paste sends Cmd+V on macOS and Ctrl+V elsewhere.
func (p *keybdPaster) Paste() error {
	if err := p.init(); err != nil {
		return err
	}
	p.kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		p.kb.HasSuper(true)
	} else {
		p.kb.HasCTRL(true)
	}
	return p.kb.Launching()
}

// Verify checks that the keyboard event binding is initialized.
func Verify() (string, error) {
	if err := keystroke.init(); err != nil {
		return "", err
	}
	return "keyboard event binding OK", nil
}
