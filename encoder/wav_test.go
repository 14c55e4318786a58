package encoder

import (
	"bytes"
	"testing"

	"github.com/go-audio/wav"
)

func TestEncodeWav(t *testing.T) {
	buf := tone(1600)
	up, err := Encode(buf, FormatWAV)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(up.Data[:4]) != "RIFF" || string(up.Data[8:12]) != "WAVE" {
		t.Fatalf("bad header %q", up.Data[:12])
	}

	dec := wav.NewDecoder(bytes.NewReader(up.Data))
	if !dec.IsValidFile() {
		t.Fatal("decoder rejected file")
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pcm.Data) != buf.Frames() {
		t.Fatalf("decoded %d samples, want %d", len(pcm.Data), buf.Frames())
	}
	want := buf.Samples()
	for i := range want {
		if pcm.Data[i] != int(want[i]) {
			t.Fatalf("sample %d = %d, want %d", i, pcm.Data[i], want[i])
		}
	}
}

func TestMemFileSeek(t *testing.T) {
	var m memFile
	m.Write([]byte("hello world"))
	if _, err := m.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	m.Write([]byte("J"))
	if string(m.buf) != "Jello world" {
		t.Errorf("buf = %q", m.buf)
	}
	if _, err := m.Seek(-1, 0); err == nil {
		t.Error("expected error for negative seek")
	}
}
