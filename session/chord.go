package session

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Chord is a normalized key combination such as "ctrl+cmd+space".
// Modifiers come first in a fixed order, the remaining keys follow
// alphabetically, so two spellings of the same combination compare equal.
type Chord string

var keyAliases = map[string]string{
	"control":  "ctrl",
	"ctl":      "ctrl",
	"command":  "cmd",
	"super":    "cmd",
	"win":      "cmd",
	"windows":  "cmd",
	"meta":     "cmd",
	"option":   "alt",
	"opt":      "alt",
	"escape":   "esc",
	"return":   "enter",
	"spacebar": "space",
}

var modifierRank = map[string]int{"ctrl": 0, "alt": 1, "shift": 2, "cmd": 3}

var namedKeys = map[string]bool{
	"space": true, "esc": true, "enter": true, "tab": true,
	"backspace": true, "delete": true, "insert": true,
	"home": true, "end": true, "pageup": true, "pagedown": true,
	"up": true, "down": true, "left": true, "right": true,
}

func ParseChord(s string) (Chord, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("empty chord")
	}
	seen := make(map[string]bool)
	var keys []string
	for _, part := range strings.Split(s, "+") {
		k := strings.TrimSpace(part)
		if alias, ok := keyAliases[k]; ok {
			k = alias
		}
		if !IsKnownKey(k) {
			return "", fmt.Errorf("chord %q: unknown key %q", s, part)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
	return Chord(strings.Join(keys, "+")), nil
}

// MustParseChord is ParseChord for literals; it panics on error.
func MustParseChord(s string) Chord {
	c, err := ParseChord(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Chord) Keys() []string {
	if c == "" {
		return nil
	}
	return strings.Split(string(c), "+")
}

func (c Chord) Len() int { return len(c.Keys()) }

func (c Chord) Contains(key string) bool {
	for _, k := range c.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Modifiers returns the modifier keys and Key the non-modifier keys of c.
func (c Chord) Modifiers() []string {
	var mods []string
	for _, k := range c.Keys() {
		if IsModifier(k) {
			mods = append(mods, k)
		}
	}
	return mods
}

func (c Chord) Key() []string {
	var keys []string
	for _, k := range c.Keys() {
		if !IsModifier(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c Chord) String() string { return string(c) }

func IsModifier(k string) bool {
	_, ok := modifierRank[k]
	return ok
}

func IsKnownKey(k string) bool {
	if IsModifier(k) || namedKeys[k] {
		return true
	}
	if len(k) == 1 && (k[0] >= 'a' && k[0] <= 'z' || k[0] >= '0' && k[0] <= '9') {
		return true
	}
	if len(k) >= 2 && k[0] == 'f' {
		n, err := strconv.Atoi(k[1:])
		return err == nil && n >= 1 && n <= 12
	}
	return false
}

func keyLess(a, b string) bool {
	ra, aMod := modifierRank[a]
	rb, bMod := modifierRank[b]
	switch {
	case aMod && bMod:
		return ra < rb
	case aMod:
		return true
	case bMod:
		return false
	}
	return a < b
}
