package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func profileFor(t *testing.T, m Mode) Profile {
	t.Helper()
	for _, p := range testProfiles() {
		if p.Mode == m {
			return p
		}
	}
	t.Fatalf("no profile for %s", m)
	return Profile{}
}

func testSession(t *testing.T, m Mode) *Session {
	t.Helper()
	return &Session{ID: 7, RequestID: "req-7", Mode: m, Profile: profileFor(t, m), StartedAt: time.Now()}
}

func TestDispatcherOnResult(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name        string
		mode        Mode
		text        string
		completer   *fakeCompleter
		sink        *fakeSink
		discard     bool
		wantOutcome Outcome
		wantText    string
		wantNotice  string
		wantHop     Hop
		wantKind    error
		wantSink    []string
	}{
		{
			name: "transcribe verbatim", mode: ModeTranscribe, text: " hello ",
			completer: &fakeCompleter{}, sink: &fakeSink{},
			wantOutcome: OutcomeDelivered, wantText: "hello", wantSink: []string{"hello"},
		},
		{
			name: "auto transcribe clipboard only", mode: ModeAutoTranscribe, text: "hi",
			completer: &fakeCompleter{}, sink: &fakeSink{noPaste: true},
			wantOutcome: OutcomeDelivered, wantText: "hi", wantNotice: NoticeCopied, wantSink: []string{"hi"},
		},
		{
			name: "command goes through completion", mode: ModeCommand, text: "open browser",
			completer: &fakeCompleter{text: "firefox &\n"}, sink: &fakeSink{},
			wantOutcome: OutcomeDelivered, wantText: "firefox &", wantSink: []string{"firefox &"},
		},
		{
			name: "command completion fails", mode: ModeCommand, text: "open browser",
			completer: &fakeCompleter{err: boom}, sink: &fakeSink{},
			wantOutcome: OutcomeFailed, wantHop: HopCompletion, wantKind: ErrCompletion,
		},
		{
			name: "empty transcript", mode: ModeCommand, text: "  ",
			completer: &fakeCompleter{}, sink: &fakeSink{},
			wantOutcome: OutcomeDelivered, wantNotice: NoticeNoSpeech,
		},
		{
			name: "discarded before delivery", mode: ModeTranscribe, text: "hello",
			completer: &fakeCompleter{}, sink: &fakeSink{}, discard: true,
			wantOutcome: OutcomeCancelled,
		},
		{
			name: "sink error", mode: ModeTranscribe, text: "hello",
			completer: &fakeCompleter{}, sink: &fakeSink{err: boom},
			wantOutcome: OutcomeFailed, wantHop: HopDelivery, wantKind: ErrDelivery,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(DispatcherConfig{Completer: tt.completer, Sink: tt.sink, Timeout: time.Second})
			s := testSession(t, tt.mode)
			if tt.discard {
				s.discard()
			}
			got := d.OnResult(context.Background(), s, tt.text)
			if got.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %s, want %s (err %v)", got.Outcome, tt.wantOutcome, got.Err)
			}
			if got.Text != tt.wantText {
				t.Errorf("text = %q, want %q", got.Text, tt.wantText)
			}
			if got.Notice != tt.wantNotice {
				t.Errorf("notice = %q, want %q", got.Notice, tt.wantNotice)
			}
			if hop := FailedHop(got.Err); hop != tt.wantHop {
				t.Errorf("hop = %q, want %q", hop, tt.wantHop)
			}
			if tt.wantKind != nil && !errors.Is(got.Err, tt.wantKind) {
				t.Errorf("err = %v, want %v", got.Err, tt.wantKind)
			}
			if tt.wantKind != nil && !errors.Is(got.Err, boom) {
				t.Errorf("err = %v does not wrap cause", got.Err)
			}
			if sent := tt.sink.texts(); len(sent) != len(tt.wantSink) {
				t.Errorf("sink got %q, want %q", sent, tt.wantSink)
			}
		})
	}
}

func TestDispatcherRendersCommandPrompt(t *testing.T) {
	comp := &fakeCompleter{text: "ok"}
	d := NewDispatcher(DispatcherConfig{Completer: comp, Sink: &fakeSink{}, Timeout: time.Second})
	d.OnResult(context.Background(), testSession(t, ModeCommand), "list files")
	prompts := comp.seen()
	if len(prompts) != 1 || prompts[0] != "Execute: list files" {
		t.Errorf("prompts = %q", prompts)
	}
}

func TestDispatcherCompletionTimeout(t *testing.T) {
	comp := &fakeCompleter{gate: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{Completer: comp, Sink: &fakeSink{}, Timeout: 20 * time.Millisecond})
	got := d.OnResult(context.Background(), testSession(t, ModeCommand), "slow")
	if !errors.Is(got.Err, ErrTimeout) || FailedHop(got.Err) != HopCompletion {
		t.Fatalf("err = %v, want completion timeout", got.Err)
	}
}

func TestDispatcherTemplateOnTranscribeMode(t *testing.T) {
	comp := &fakeCompleter{text: "Dear team"}
	sink := &fakeSink{}
	d := NewDispatcher(DispatcherConfig{Completer: comp, Sink: sink, Timeout: time.Second})
	s := testSession(t, ModeTranscribe)
	s.Profile.Prompt = "Rewrite as an email: {{text}}"
	got := d.OnResult(context.Background(), s, "hey team")
	if got.Text != "Dear team" || len(comp.seen()) != 1 {
		t.Fatalf("got %+v, prompts %q", got, comp.seen())
	}
}

func TestNeedsCompletion(t *testing.T) {
	tests := []struct {
		mode Mode
		tmpl string
		want bool
	}{
		{ModeTranscribe, "{{text}}", false},
		{ModeTranscribe, "  {{text}}\n", false},
		{ModeTranscribe, "", false},
		{ModeAutoTranscribe, "Fix grammar: {{text}}", true},
		{ModeCommand, "{{text}}", true},
	}
	for _, tt := range tests {
		if got := NeedsCompletion(tt.mode, tt.tmpl); got != tt.want {
			t.Errorf("NeedsCompletion(%s, %q) = %v, want %v", tt.mode, tt.tmpl, got, tt.want)
		}
	}
}

func TestDispatcherReportFansOut(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	a, b := newChangeLog(), newChangeLog()
	d.AddPresenter(a)
	d.AddPresenter(b)
	d.Report(testSession(t, ModeTranscribe), DispatchOutcome{Outcome: OutcomeDelivered, Text: "x"})
	for _, l := range []*changeLog{a, b} {
		got := l.terminal()
		if len(got) != 1 || got[0].Outcome != OutcomeDelivered || got[0].SessionID != 7 {
			t.Errorf("terminal changes = %+v", got)
		}
	}
}
