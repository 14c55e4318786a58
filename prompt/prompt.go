// Package prompt selects and renders the prompt template for a session.
//
// A template is free text with placeholders. {{text}} is replaced by the
// transcript; {{date}}, {{time}}, {{timestamp}}, {{datetime}} by the local
// clock; {{window_title}} by the focused window's title. Per-mode rules
// choose a template by matching a regex against the window title.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"whisperflow/session"
)

const DefaultCategory = "General"

// MaxTemplateLen is the size above which Check warns.
const MaxTemplateLen = 5000

var knownPlaceholders = map[string]bool{
	"text":         true,
	"timestamp":    true,
	"date":         true,
	"time":         true,
	"datetime":     true,
	"window_title": true,
}

var placeholderRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Rule picks Prompt when Match finds the active window title.
type Rule struct {
	Name     string
	Match    string
	Prompt   string
	Category string

	re *regexp.Regexp
}

// Compile prepares r for matching. Matching is case-insensitive.
func (r *Rule) Compile() error {
	if r.Match == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + r.Match)
	if err != nil {
		return fmt.Errorf("rule %q: %w", r.Match, err)
	}
	r.re = re
	return nil
}

func (r Rule) category() string {
	if r.Category == "" {
		return DefaultCategory
	}
	return r.Category
}

// TitleFunc reports the focused window's title.
type TitleFunc func(ctx context.Context) (string, error)

type Manager struct {
	rules map[session.Mode][]Rule
	title TitleFunc
	now   func() time.Time
	ttl   time.Duration

	mu       sync.Mutex
	cached   string
	cachedAt time.Time
}

// NewManager compiles rules. title may be nil, in which case rules never
// match and {{window_title}} renders empty.
func NewManager(rules map[session.Mode][]Rule, title TitleFunc) (*Manager, error) {
	m := &Manager{
		rules: make(map[session.Mode][]Rule, len(rules)),
		title: title,
		now:   time.Now,
		ttl:   time.Second,
	}
	var errs []error
	for mode, rs := range rules {
		compiled := make([]Rule, len(rs))
		for i, r := range rs {
			if err := r.Compile(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", mode, err))
			}
			compiled[i] = r
		}
		m.rules[mode] = compiled
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// Template returns the first rule prompt matching the active window, or
// the mode's own prompt.
func (m *Manager) Template(p session.Profile) string {
	if len(m.rules[p.Mode]) == 0 {
		return p.Prompt
	}
	if r, ok := m.Match(p.Mode, m.windowTitle()); ok {
		return r.Prompt
	}
	return p.Prompt
}

// Match returns the rule that would apply to a window with this title.
func (m *Manager) Match(mode session.Mode, title string) (Rule, bool) {
	for _, r := range m.rules[mode] {
		if r.re != nil && r.re.MatchString(title) {
			return r, true
		}
	}
	return Rule{}, false
}

// Categories lists the distinct rule categories for mode.
func (m *Manager) Categories(mode session.Mode) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range m.rules[mode] {
		c := r.category()
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Render(tmpl, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	out := strings.ReplaceAll(tmpl, session.TextPlaceholder, text)
	if !strings.Contains(out, "{{") {
		return out
	}
	now := m.now()
	pairs := []string{
		"{{timestamp}}", now.Format("2006-01-02 15:04:05"),
		"{{date}}", now.Format("2006-01-02"),
		"{{time}}", now.Format("15:04:05"),
		"{{datetime}}", now.Format("2006-01-02T15:04:05.000000"),
	}
	if strings.Contains(out, "{{window_title}}") {
		if title := m.windowTitle(); title != "" {
			pairs = append(pairs, "{{window_title}}", title)
		}
	}
	return strings.NewReplacer(pairs...).Replace(out)
}

// windowTitle returns the focused window title, reusing a lookup made
// within the last ttl so Template and Render agree.
func (m *Manager) windowTitle() string {
	if m.title == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !m.cachedAt.IsZero() && now.Sub(m.cachedAt) < m.ttl {
		return m.cached
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	title, err := m.title(ctx)
	if err != nil {
		title = ""
	}
	m.cached, m.cachedAt = title, now
	return title
}

// Check validates a template. Unbalanced braces are an error; a missing
// {{text}}, unknown placeholders and very long templates are warnings.
func Check(tmpl string) (warnings []string, err error) {
	if !strings.Contains(tmpl, session.TextPlaceholder) {
		warnings = append(warnings, "template does not contain {{text}}")
	}
	if strings.Count(tmpl, "{{") != strings.Count(tmpl, "}}") {
		err = errors.New("unbalanced placeholder braces")
	}
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !knownPlaceholders[m[1]] {
			warnings = append(warnings, fmt.Sprintf("unknown placeholder {{%s}}", m[1]))
		}
	}
	if len(tmpl) > MaxTemplateLen {
		warnings = append(warnings, "template is very long")
	}
	return warnings, err
}
