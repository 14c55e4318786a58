package encoder

import (
	"fmt"
	"strings"
	"time"

	"whisperflow/audio"
)

const (
	BitsPerSample = 16
	BlockSize     = 4096
)

type Format string

const (
	FormatFLAC Format = "flac"
	FormatWAV  Format = "wav"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatFLAC:
		return FormatFLAC, nil
	case FormatWAV:
		return FormatWAV, nil
	}
	return "", fmt.Errorf("unknown upload format %q", s)
}

// Upload is an encoded recording ready for a multipart form.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
	Frames      int
	EncodeTime  time.Duration
}

func Encode(buf *audio.Buffer, f Format) (*Upload, error) {
	if buf == nil || buf.Frames() == 0 {
		return nil, fmt.Errorf("encode: empty recording")
	}
	start := time.Now()
	var (
		data []byte
		err  error
		up   = &Upload{Frames: buf.Frames()}
	)
	switch f {
	case FormatFLAC, "":
		data, err = encodeFlac(buf)
		up.Filename, up.ContentType = "audio.flac", "audio/flac"
	case FormatWAV:
		data, err = encodeWav(buf)
		up.Filename, up.ContentType = "audio.wav", "audio/wav"
	default:
		return nil, fmt.Errorf("encode: unknown format %q", f)
	}
	if err != nil {
		return nil, err
	}
	up.Data = data
	up.EncodeTime = time.Since(start)
	return up, nil
}
