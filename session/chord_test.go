package session

import "testing"

func TestParseChord(t *testing.T) {
	tests := []struct {
		in      string
		want    Chord
		wantErr bool
	}{
		{"ctrl+cmd", "ctrl+cmd", false},
		{"CMD+Ctrl", "ctrl+cmd", false},
		{"super+control+space", "ctrl+cmd+space", false},
		{"ctrl+cmd+alt", "ctrl+alt+cmd", false},
		{"option + shift + a", "alt+shift+a", false},
		{"Escape", "esc", false},
		{"f1", "f1", false},
		{"ctrl+ctrl+v", "ctrl+v", false},
		{"shift+b+a", "shift+a+b", false},
		{"", "", true},
		{"ctrl++a", "", true},
		{"ctrl+f13", "", true},
		{"hyper+a", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChord(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseChord(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChord(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseChord(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestChordParts(t *testing.T) {
	c := MustParseChord("ctrl+cmd+space")
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if mods := c.Modifiers(); len(mods) != 2 || mods[0] != "ctrl" || mods[1] != "cmd" {
		t.Errorf("Modifiers = %v", mods)
	}
	if keys := c.Key(); len(keys) != 1 || keys[0] != "space" {
		t.Errorf("Key = %v", keys)
	}
	if !c.Contains("cmd") || c.Contains("alt") {
		t.Error("Contains mismatch")
	}
}
