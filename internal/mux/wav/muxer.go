// Package wav implements mux.Adapter for RIFF/WAVE PCM output. WAV carries
// exactly one audio track of uncompressed PCM; it is written in two
// passes because the RIFF header needs final byte counts, so all packets
// are buffered until Finalize.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// Muxer writes a single-track PCM WAV file to an io.Writer.
type Muxer struct {
	w io.Writer

	track   *mux.TrackParams
	began   bool
	payload bytes.Buffer

	// BitsPerSample is the PCM sample width; WAV carries this in the fmt
	// chunk. Defaults to 16.
	BitsPerSample int
}

// New creates a WAV muxer writing to w.
func New(w io.Writer) *Muxer {
	return &Muxer{w: w, BitsPerSample: 16}
}

func (m *Muxer) AddTrack(params mux.TrackParams) error {
	if m.track != nil {
		return fmt.Errorf("wav: only one audio track supported")
	}
	if params.Kind != stream.KindAudio {
		return fmt.Errorf("wav: only audio tracks supported")
	}
	if params.Codec != "pcm" {
		return fmt.Errorf("wav: codec %q cannot be muxed into wav (pcm only)", params.Codec)
	}
	t := params
	m.track = &t
	return nil
}

func (m *Muxer) Begin() error {
	if m.track == nil {
		return fmt.Errorf("wav: no track registered")
	}
	m.began = true
	return nil
}

func (m *Muxer) WritePacket(p stream.Packet) error {
	if !m.began {
		return fmt.Errorf("wav: WritePacket called before Begin")
	}
	if m.track == nil || p.TrackID != m.track.ID {
		return fmt.Errorf("wav: unknown track %d", p.TrackID)
	}
	m.payload.Write(p.Data)
	return nil
}

func (m *Muxer) Finalize() error {
	if m.track == nil {
		return fmt.Errorf("wav: Finalize called with no track")
	}
	bitsPerSample := m.BitsPerSample
	if bitsPerSample == 0 {
		bitsPerSample = 16
	}
	channels := uint16(m.track.Channels)
	if channels == 0 {
		channels = 2
	}
	sampleRate := uint32(m.track.SampleRate)
	if sampleRate == 0 {
		sampleRate = 44100
	}
	blockAlign := channels * uint16(bitsPerSample/8)
	byteRate := sampleRate * uint32(blockAlign)
	dataSize := uint32(m.payload.Len())

	var hdr bytes.Buffer
	hdr.WriteString("RIFF")
	binary.Write(&hdr, binary.LittleEndian, uint32(36+dataSize))
	hdr.WriteString("WAVE")

	hdr.WriteString("fmt ")
	binary.Write(&hdr, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(&hdr, binary.LittleEndian, uint16(1))  // audio format: PCM
	binary.Write(&hdr, binary.LittleEndian, channels)
	binary.Write(&hdr, binary.LittleEndian, sampleRate)
	binary.Write(&hdr, binary.LittleEndian, byteRate)
	binary.Write(&hdr, binary.LittleEndian, blockAlign)
	binary.Write(&hdr, binary.LittleEndian, uint16(bitsPerSample))

	hdr.WriteString("data")
	binary.Write(&hdr, binary.LittleEndian, dataSize)

	if _, err := m.w.Write(hdr.Bytes()); err != nil {
		return err
	}
	_, err := m.w.Write(m.payload.Bytes())
	return err
}

func (m *Muxer) Abort() error { return nil }

var _ mux.Adapter = (*Muxer)(nil)
