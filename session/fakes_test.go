package session

import (
	"context"
	"sync"

	"whisperflow/audio"
)

type fakeHandle struct {
	faults chan error
	quiet  chan struct{}
}

func (h *fakeHandle) Faults() <-chan error  { return h.faults }
func (h *fakeHandle) Quiet() <-chan struct{} { return h.quiet }

type fakeCapture struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	starts   int
	stops    int
	last     *fakeHandle
}

func (c *fakeCapture) Start(context.Context) (audio.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if c.startErr != nil {
		return nil, c.startErr
	}
	c.last = &fakeHandle{faults: make(chan error, 1), quiet: make(chan struct{})}
	return c.last, nil
}

func (c *fakeCapture) Stop(audio.Handle) (*audio.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	if c.stopErr != nil {
		return nil, c.stopErr
	}
	return &audio.Buffer{PCM: make([]byte, 3200), SampleRate: audio.SampleRate, Channels: 1}, nil
}

func (c *fakeCapture) counts() (starts, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts, c.stops
}

// fakeTranscriber returns text/err, optionally waiting for gate first.
type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	gate  chan struct{}
	calls int
	reqs  []Request
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ *audio.Buffer, req Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.reqs = append(f.reqs, req)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCompleter struct {
	mu      sync.Mutex
	text    string
	err     error
	gate    chan struct{}
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, _ Request) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeCompleter) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// fakeSink records deliveries. With gate set it signals entered and then
// blocks until gate is closed.
type fakeSink struct {
	mu        sync.Mutex
	err       error
	noPaste   bool
	gate      chan struct{}
	entered   chan struct{}
	delivered []string
}

func (s *fakeSink) Deliver(ctx context.Context, text string) (Ack, error) {
	s.mu.Lock()
	gate, entered := s.gate, s.entered
	s.mu.Unlock()
	if gate != nil {
		if entered != nil {
			close(entered)
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return Ack{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Ack{}, s.err
	}
	s.delivered = append(s.delivered, text)
	return Ack{Pasted: !s.noPaste}, nil
}

func (s *fakeSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.delivered...)
}

type changeLog struct {
	mu      sync.Mutex
	changes []Change
	menus   int
	done    chan Change
}

func newChangeLog() *changeLog {
	return &changeLog{done: make(chan Change, 16)}
}

func (l *changeLog) StateChanged(c Change) {
	l.mu.Lock()
	l.changes = append(l.changes, c)
	l.mu.Unlock()
	if c.Terminal() {
		l.done <- c
	}
}

func (l *changeLog) ShowMenu([]Profile) {
	l.mu.Lock()
	l.menus++
	l.mu.Unlock()
}

func (l *changeLog) terminal() []Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Change
	for _, c := range l.changes {
		if c.Terminal() {
			out = append(out, c)
		}
	}
	return out
}

func (l *changeLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []State
	for _, c := range l.changes {
		out = append(out, c.State)
	}
	return out
}
