// Package mp3 implements mux.Adapter as a bare MP3 elementary-stream
// writer: frames are concatenated as-is. Packets must arrive as complete
// MP3 frames (copied or encoder-produced); the adapter performs no framing
// work of its own.
package mp3

import (
	"fmt"
	"io"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// Muxer writes a single MP3 audio track to an io.Writer.
type Muxer struct {
	w       io.Writer
	trackID int
	hasTrack bool
	began   bool
}

// New creates an MP3 muxer writing to w.
func New(w io.Writer) *Muxer {
	return &Muxer{w: w}
}

func (m *Muxer) AddTrack(params mux.TrackParams) error {
	if m.hasTrack {
		return fmt.Errorf("mp3: only one audio track supported")
	}
	if params.Kind != stream.KindAudio || params.Codec != "mp3" {
		return fmt.Errorf("mp3: only mp3 audio tracks supported, got kind=%s codec=%s", params.Kind, params.Codec)
	}
	m.trackID = params.ID
	m.hasTrack = true
	return nil
}

func (m *Muxer) Begin() error {
	if !m.hasTrack {
		return fmt.Errorf("mp3: no track registered")
	}
	m.began = true
	return nil
}

func (m *Muxer) WritePacket(p stream.Packet) error {
	if !m.began {
		return fmt.Errorf("mp3: WritePacket called before Begin")
	}
	if p.TrackID != m.trackID {
		return fmt.Errorf("mp3: unknown track %d", p.TrackID)
	}
	_, err := m.w.Write(p.Data)
	return err
}

func (m *Muxer) Finalize() error {
	if c, ok := m.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (m *Muxer) Abort() error { return nil }

var _ mux.Adapter = (*Muxer)(nil)
