package clipboard

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errNoPaste = errors.New("paste unavailable")

func TestDeliver(t *testing.T) {
	tests := []struct {
		name       string
		autoPaste  bool
		mem        *Memory
		wantPasted bool
		wantErr    bool
		wantPastes int
	}{
		{"copy and paste", true, &Memory{}, true, false, 1},
		{"copy only", false, &Memory{}, false, false, 0},
		{"paste fails falls back to clipboard", true, &Memory{PasteErr: errNoPaste}, false, false, 0},
		{"copy fails", true, &Memory{WriteErr: errors.New("no display")}, false, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSink(Config{Board: tt.mem, Paster: tt.mem, AutoPaste: tt.autoPaste})
			ack, err := s.Deliver(context.Background(), "hello")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if ack.Pasted != tt.wantPasted {
				t.Errorf("Pasted = %v, want %v", ack.Pasted, tt.wantPasted)
			}
			if tt.mem.Pastes() != tt.wantPastes {
				t.Errorf("pastes = %d, want %d", tt.mem.Pastes(), tt.wantPastes)
			}
			if !tt.wantErr {
				if got, _ := tt.mem.Read(); got != "hello" {
					t.Errorf("clipboard = %q", got)
				}
			}
		})
	}
}

func TestDeliverCancelled(t *testing.T) {
	mem := &Memory{}
	s := NewSink(Config{Board: mem, Paster: mem, AutoPaste: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Deliver(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if got, _ := mem.Read(); got != "" {
		t.Errorf("clipboard touched: %q", got)
	}
}

func TestRestore(t *testing.T) {
	mem := &Memory{}
	mem.Write("previous")
	s := NewSink(Config{Board: mem, Paster: mem, AutoPaste: true, RestoreAfter: time.Millisecond})
	if _, err := s.Deliver(context.Background(), "dictated"); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if got, _ := mem.Read(); got != "previous" {
		t.Errorf("clipboard = %q, want restored", got)
	}
}

func TestRestoreSkippedWhenClipboardChanged(t *testing.T) {
	mem := &Memory{}
	mem.Write("previous")
	s := NewSink(Config{Board: mem, Paster: mem, AutoPaste: true, RestoreAfter: 20 * time.Millisecond})
	if _, err := s.Deliver(context.Background(), "dictated"); err != nil {
		t.Fatal(err)
	}
	mem.Write("user copied this")
	s.Wait()
	if got, _ := mem.Read(); got != "user copied this" {
		t.Errorf("clipboard = %q", got)
	}
}

func TestNoRestoreAfterFailedPaste(t *testing.T) {
	mem := &Memory{PasteErr: errNoPaste}
	mem.Write("previous")
	s := NewSink(Config{Board: mem, Paster: mem, AutoPaste: true, RestoreAfter: time.Millisecond})
	s.Deliver(context.Background(), "dictated")
	s.Wait()
	if got, _ := mem.Read(); got != "dictated" {
		t.Errorf("clipboard = %q", got)
	}
}
