// Package tui is the foreground terminal view of the daemon.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"whisperflow/session"
)

type changeMsg session.Change
type menuMsg []session.Profile
type tickMsg time.Time

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	bindingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

type model struct {
	profiles []session.Profile
	cancel   session.Chord
	spinner  spinner.Model
	now      func() time.Time
	width    int

	state     session.State
	mode      session.Mode
	startedAt time.Time
	elapsed   time.Duration

	count   int
	last    session.Change
	hasLast bool
	menu    bool
}

func newModel(profiles []session.Profile, cancel session.Chord) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return model{profiles: profiles, cancel: cancel, spinner: sp, now: time.Now, width: 80}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "?":
			m.menu = !m.menu
		}

	case tickMsg:
		if m.state == session.StateRecording {
			m.elapsed = m.now().Sub(m.startedAt)
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case menuMsg:
		m.menu = true

	case changeMsg:
		c := session.Change(msg)
		if c.State == session.StateRecording && m.state != session.StateRecording {
			m.startedAt = m.now()
			m.elapsed = 0
		}
		m.state = c.State
		if c.Mode != session.ModeNone {
			m.mode = c.Mode
		}
		if c.Terminal() {
			m.count++
			m.last = c
			m.hasLast = true
		}
	}
	return m, nil
}

func (m model) status() string {
	switch m.state {
	case session.StateRecording:
		return recStyle.Render(fmt.Sprintf("● REC %s %.1fs", m.mode.Label(), m.elapsed.Seconds()))
	case session.StateProcessing:
		return busyStyle.Render(m.spinner.View() + " transcribing")
	case session.StateDelivering:
		return busyStyle.Render(m.spinner.View() + " delivering")
	case session.StateCancelling:
		return busyStyle.Render(m.spinner.View() + " cancelling")
	}
	return idleStyle.Render("○ STANDBY")
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("whisper-flow") + "  " + m.status() + "\n\n")

	if m.hasLast {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Last session (#%d, %s)", m.count, m.last.Mode.Label())) + "\n")
		b.WriteString(renderOutcome(m.last, max(m.width-2, 10)) + "\n")
	} else {
		b.WriteString(idleStyle.Render("No sessions yet") + "\n")
	}

	if m.menu {
		b.WriteString("\n")
		for _, p := range m.profiles {
			b.WriteString(keyStyle.Render(string(p.Chord)) + bindingStyle.Render(fmt.Sprintf("  %s (%s)", p.Mode.Label(), p.Style)) + "\n")
		}
		if m.cancel != "" {
			b.WriteString(keyStyle.Render(string(m.cancel)) + bindingStyle.Render("  cancel") + "\n")
		}
	}
	b.WriteString("\n" + bindingStyle.Render("? bindings · q quit"))
	return b.String()
}

func renderOutcome(c session.Change, width int) string {
	switch c.Outcome {
	case session.OutcomeFailed:
		msg := "failed"
		if c.Err != nil {
			msg = c.Err.Error()
		}
		return errStyle.Render(strings.Join(wrapText(msg, width), "\n"))
	case session.OutcomeCancelled:
		return noticeStyle.Render("cancelled")
	}
	if c.Text == "" {
		return noticeStyle.Render(c.Notice)
	}
	lines := wrapText(c.Text, width)
	var b strings.Builder
	for i, line := range lines {
		b.WriteString(textStyle.Render(line))
		if i == len(lines)-1 {
			if c.Notice == session.NoticeCopied {
				b.WriteString(" " + okStyle.Render("[✓ copied]"))
			} else {
				b.WriteString(" " + okStyle.Render("[✓ pasted]"))
			}
		}
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// wrapText breaks text at spaces so no line exceeds width runes.
func wrapText(text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	width = max(width, 1)
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		r := []rune(para)
		for len(r) > width {
			at := width
			for i := width; i > 0; i-- {
				if r[i] == ' ' {
					at = i
					break
				}
			}
			lines = append(lines, string(r[:at]))
			r = []rune(strings.TrimLeft(string(r[at:]), " "))
		}
		lines = append(lines, string(r))
	}
	return lines
}

// Presenter forwards session changes to a running program in order.
type Presenter struct {
	p  *tea.Program
	ch chan tea.Msg
}

// New builds the program. Run blocks until the user quits.
func New(profiles []session.Profile, cancel session.Chord, opts ...tea.ProgramOption) *Presenter {
	pr := &Presenter{
		p:  tea.NewProgram(newModel(profiles, cancel), opts...),
		ch: make(chan tea.Msg, 64),
	}
	go pr.forward()
	return pr
}

func (p *Presenter) forward() {
	for msg := range p.ch {
		p.p.Send(msg)
	}
}

func (p *Presenter) Run() error {
	_, err := p.p.Run()
	return err
}

func (p *Presenter) Quit() { p.p.Quit() }

// post drops the message if the view has fallen far behind.
func (p *Presenter) post(msg tea.Msg) {
	select {
	case p.ch <- msg:
	default:
	}
}

func (p *Presenter) StateChanged(c session.Change) { p.post(changeMsg(c)) }

func (p *Presenter) ShowMenu(profiles []session.Profile) { p.post(menuMsg(profiles)) }
