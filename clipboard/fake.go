package clipboard

import "sync"

// Memory is an in-process Board with a recorded paste count. The daemon
// uses it when running against fake audio.
type Memory struct {
	mu       sync.Mutex
	text     string
	pastes   int
	ReadErr  error
	WriteErr error
	PasteErr error
}

func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return "", m.ReadErr
	}
	return m.text, nil
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.text = text
	return nil
}

func (m *Memory) Paste() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PasteErr != nil {
		return m.PasteErr
	}
	m.pastes++
	return nil
}

func (m *Memory) Pastes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pastes
}
