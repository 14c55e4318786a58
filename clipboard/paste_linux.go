package clipboard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// linux/uinput.h
const (
	uiSetEvbit  = 0x40045564
	uiSetKeybit = 0x40045565
	uiDevCreate = 0x5501
)

const (
	evSyn = 0x00
	evKey = 0x01

	keyLeftCtrl = 29
	keyV        = 47

	busUSB = 0x03
)

const deviceName = "whisper-flow-paste"

type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

// uinputPaster presses Ctrl+V through a virtual keyboard, which works
// under both X11 and Wayland.
type uinputPaster struct {
	once sync.Once
	dev  *os.File
	err  error
}

var keystroke = &uinputPaster{}

// Keystroke returns the platform paste keystroke sender.
func Keystroke() Paster { return keystroke }

func ioctl(f *os.File, req, arg uintptr) error {
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), req, arg); errno != 0 {
		return errno
	}
	return nil
}

func (p *uinputPaster) open() error {
	p.once.Do(func() {
		path := "/dev/uinput"
		if _, err := os.Stat(path); err != nil {
			path = "/dev/input/uinput"
			if _, err := os.Stat(path); err != nil {
				p.err = errors.New("uinput device not found, try: sudo modprobe uinput")
				return
			}
		}
		f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, os.ModeDevice)
		if err != nil {
			p.err = err
			return
		}
		if err := p.setup(f); err != nil {
			f.Close()
			p.err = err
			return
		}
		p.dev = f
		// The compositor needs a moment to pick up the new device.
		time.Sleep(200 * time.Millisecond)
	})
	return p.err
}

func (p *uinputPaster) setup(f *os.File) error {
	for _, bit := range []uintptr{evKey, evSyn} {
		if err := ioctl(f, uiSetEvbit, bit); err != nil {
			return err
		}
	}
	// All standard keys, so udev classifies the device as a keyboard.
	for i := uintptr(0); i < 256; i++ {
		if err := ioctl(f, uiSetKeybit, i); err != nil {
			return err
		}
	}
	dev := uinputUserDev{ID: inputID{Bustype: busUSB, Vendor: 0x1234, Product: 0x5678, Version: 1}}
	copy(dev.Name[:], deviceName)
	if err := binary.Write(f, binary.LittleEndian, &dev); err != nil {
		return err
	}
	return ioctl(f, uiDevCreate, 0)
}

func (p *uinputPaster) key(code uint16, value int32) error {
	if err := binary.Write(p.dev, binary.LittleEndian, &inputEvent{Type: evKey, Code: code, Value: value}); err != nil {
		return err
	}
	if err := binary.Write(p.dev, binary.LittleEndian, &inputEvent{Type: evSyn}); err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond)
	return nil
}

func (p *uinputPaster) Paste() error {
	if err := p.open(); err != nil {
		return err
	}
	steps := []struct {
		code  uint16
		value int32
	}{{keyLeftCtrl, 1}, {keyV, 1}, {keyV, 0}, {keyLeftCtrl, 0}}
	for _, s := range steps {
		if err := p.key(s.code, s.value); err != nil {
			return err
		}
	}
	return nil
}

// Verify sends Ctrl+V and reads it back from the kernel input layer.
func Verify() (string, error) {
	if err := keystroke.open(); err != nil {
		return "", fmt.Errorf("uinput init: %w", err)
	}

	entries, err := os.ReadDir("/sys/class/input")
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	var evdevPath string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/sys/class/input", e.Name(), "device", "name"))
		if err == nil && strings.TrimSpace(string(data)) == deviceName {
			evdevPath = filepath.Join("/dev/input", e.Name())
			break
		}
	}
	if evdevPath == "" {
		return "", errors.New(deviceName + " evdev device not found")
	}

	evdev, err := os.Open(evdevPath)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", evdevPath, err)
	}
	defer evdev.Close()

	if err := keystroke.Paste(); err != nil {
		return "", fmt.Errorf("paste send: %w", err)
	}

	type seen struct {
		ctrl, v bool
		err     error
	}
	ch := make(chan seen, 1)
	go func() {
		buf := make([]byte, 24*32)
		var r seen
		n, err := evdev.Read(buf)
		if err != nil {
			r.err = err
			ch <- r
			return
		}
		for i := 0; i+24 <= n; i += 24 {
			if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
				continue
			}
			switch binary.LittleEndian.Uint16(buf[i+18:]) {
			case keyLeftCtrl:
				r.ctrl = true
			case keyV:
				r.v = true
			}
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("reading events: %w", r.err)
		}
		if !r.ctrl || !r.v {
			return "", fmt.Errorf("missing events (ctrl=%v, v=%v)", r.ctrl, r.v)
		}
		return "Ctrl+V keystroke verified via " + evdevPath, nil
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("timed out waiting for keystroke events")
	}
}
