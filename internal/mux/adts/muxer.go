// Package adts implements mux.Adapter as a minimal ADTS elementary-stream
// writer for AAC-only output. Each packet is prefixed with a 7-byte ADTS
// header computed from the track's AudioSpecificConfig; there is no
// container beyond that framing.
package adts

import (
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// sampleRates is the ADTS sampling_frequency_index lookup table.
var sampleRates = []int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350,
}

// Muxer writes a single AAC track as a raw ADTS stream to an io.Writer.
type Muxer struct {
	w        io.Writer
	trackID  int
	hasTrack bool
	began    bool

	sampleRateIndex int
	channelConfig   int
}

// New creates an ADTS muxer writing to w.
func New(w io.Writer) *Muxer {
	return &Muxer{w: w}
}

func (m *Muxer) AddTrack(params mux.TrackParams) error {
	if m.hasTrack {
		return fmt.Errorf("adts: only one audio track supported")
	}
	if params.Kind != stream.KindAudio || params.Codec != "aac" {
		return fmt.Errorf("adts: only aac audio tracks supported, got kind=%s codec=%s", params.Kind, params.Codec)
	}

	sampleRate := params.SampleRate
	channels := params.Channels
	if len(params.CodecPrivate) > 0 {
		var cfg mpeg4audio.AudioSpecificConfig
		if err := cfg.Unmarshal(params.CodecPrivate); err == nil {
			sampleRate = cfg.SampleRate
			channels = cfg.ChannelCount
		}
	}

	idx := indexForSampleRate(sampleRate)
	if idx < 0 {
		return fmt.Errorf("adts: unsupported sample rate %d", sampleRate)
	}
	if channels <= 0 || channels > 7 {
		channels = 2
	}

	m.sampleRateIndex = idx
	m.channelConfig = channels
	m.trackID = params.ID
	m.hasTrack = true
	return nil
}

func (m *Muxer) Begin() error {
	if !m.hasTrack {
		return fmt.Errorf("adts: no track registered")
	}
	m.began = true
	return nil
}

func (m *Muxer) WritePacket(p stream.Packet) error {
	if !m.began {
		return fmt.Errorf("adts: WritePacket called before Begin")
	}
	if p.TrackID != m.trackID {
		return fmt.Errorf("adts: unknown track %d", p.TrackID)
	}
	hdr := m.header(len(p.Data))
	if _, err := m.w.Write(hdr[:]); err != nil {
		return err
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

// header builds the 7-byte ADTS header (no CRC) for a frame of the given
// AAC payload length.
func (m *Muxer) header(payloadLen int) [7]byte {
	frameLen := payloadLen + 7
	var h [7]byte
	h[0] = 0xFF
	h[1] = 0xF1 // MPEG-4, layer 0, no CRC (protection_absent=1)
	// profile = AAC-LC (2) stored as profile-1 = 1
	h[2] = (1 << 6) | (byte(m.sampleRateIndex) << 2) | (byte(m.channelConfig) >> 2)
	h[3] = (byte(m.channelConfig&0x03) << 6) | byte(frameLen>>11)
	h[4] = byte(frameLen >> 3)
	h[5] = (byte(frameLen&0x07) << 5) | 0x1F
	h[6] = 0xFC
	return h
}

func indexForSampleRate(rate int) int {
	for i, r := range sampleRates {
		if r == rate {
			return i
		}
	}
	return -1
}

var _ mux.Adapter = (*Muxer)(nil)
