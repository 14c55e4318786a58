package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"whisperflow/session"
)

func fixedTitle(title string, calls *int) TitleFunc {
	return func(context.Context) (string, error) {
		*calls++
		return title, nil
	}
}

var rules = map[session.Mode][]Rule{
	session.ModeTranscribe: {
		{Match: "slack|discord", Prompt: "Make this casual: {{text}}", Category: "Chat"},
		{Match: `\.go - `, Prompt: "Code comment: {{text}}", Category: "Code"},
		{Match: "mail", Prompt: "Formal email: {{text}}"},
	},
}

func TestTemplate(t *testing.T) {
	profile := session.Profile{Mode: session.ModeTranscribe, Prompt: session.TextPlaceholder}
	tests := []struct {
		title string
		want  string
	}{
		{"#general | Slack", "Make this casual: {{text}}"},
		{"main.go - whisperflow", "Code comment: {{text}}"},
		{"Inbox - Mail", "Formal email: {{text}}"},
		{"Terminal", session.TextPlaceholder},
		{"", session.TextPlaceholder},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			var calls int
			m, err := NewManager(rules, fixedTitle(tt.title, &calls))
			if err != nil {
				t.Fatal(err)
			}
			if got := m.Template(profile); got != tt.want {
				t.Errorf("Template = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemplateWithoutRulesSkipsLookup(t *testing.T) {
	var calls int
	m, _ := NewManager(rules, fixedTitle("slack", &calls))
	p := session.Profile{Mode: session.ModeCommand, Prompt: "Do: {{text}}"}
	if got := m.Template(p); got != "Do: {{text}}" {
		t.Errorf("Template = %q", got)
	}
	if calls != 0 {
		t.Errorf("title looked up %d times", calls)
	}
}

func TestRender(t *testing.T) {
	var calls int
	m, _ := NewManager(nil, fixedTitle("Editor", &calls))
	m.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	tests := []struct {
		tmpl, text, want string
	}{
		{"{{text}}", "hello", "hello"},
		{"Fix: {{text}}", "teh", "Fix: teh"},
		{"{{date}} {{time}}: {{text}}", "x", "2026-03-04 05:06:07: x"},
		{"{{timestamp}}", "x", "2026-03-04 05:06:07"},
		{"in {{window_title}}: {{text}}", "x", "in Editor: x"},
		{"{{unknown}} {{text}}", "x", "{{unknown}} x"},
		{"Fix: {{text}}", "   ", ""},
	}
	for _, tt := range tests {
		if got := m.Render(tt.tmpl, tt.text); got != tt.want {
			t.Errorf("Render(%q, %q) = %q, want %q", tt.tmpl, tt.text, got, tt.want)
		}
	}
}

func TestTitleCached(t *testing.T) {
	var calls int
	m, _ := NewManager(rules, fixedTitle("slack", &calls))
	now := time.Unix(100, 0)
	m.now = func() time.Time { return now }
	p := session.Profile{Mode: session.ModeTranscribe}

	tmpl := m.Template(p)
	m.Render(tmpl+" {{window_title}}", "hi")
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	now = now.Add(2 * time.Second)
	m.Template(p)
	if calls != 2 {
		t.Fatalf("calls = %d after ttl, want 2", calls)
	}
}

func TestTitleError(t *testing.T) {
	m, _ := NewManager(rules, func(context.Context) (string, error) { return "", errors.New("no display") })
	p := session.Profile{Mode: session.ModeTranscribe, Prompt: "fallback {{text}}"}
	if got := m.Template(p); got != "fallback {{text}}" {
		t.Errorf("Template = %q", got)
	}
	if got := m.Render("[{{window_title}}] {{text}}", "x"); got != "[{{window_title}}] x" {
		t.Errorf("Render = %q", got)
	}
}

func TestBadRule(t *testing.T) {
	_, err := NewManager(map[session.Mode][]Rule{session.ModeCommand: {{Match: "(["}}}, nil)
	if err == nil {
		t.Fatal("expected regex error")
	}
}

func TestCategories(t *testing.T) {
	m, _ := NewManager(rules, nil)
	got := strings.Join(m.Categories(session.ModeTranscribe), ",")
	if got != "Chat,Code,General" {
		t.Errorf("Categories = %q", got)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		tmpl      string
		warnings  int
		wantError bool
	}{
		{"{{text}}", 0, false},
		{"Fix {{text}} at {{date}}", 0, false},
		{"no placeholder", 1, false},
		{"{{text}} {{bogus}}", 1, false},
		{"{{text}} {{", 0, true},
		{strings.Repeat("a", MaxTemplateLen) + "{{text}}", 1, false},
	}
	for _, tt := range tests {
		warnings, err := Check(tt.tmpl)
		if (err != nil) != tt.wantError || len(warnings) != tt.warnings {
			t.Errorf("Check(%.20q) = %v, %v", tt.tmpl, warnings, err)
		}
	}
}
