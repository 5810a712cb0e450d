// Package mkv implements mux.Adapter for Matroska/WebM, hand-rolled over
// EBML (no library in the retrieval pack provides an EBML/Matroska
// muxer). Output is buffered in memory and written as a single Segment
// with a known size in Finalize, avoiding EBML's unknown-size element
// machinery entirely.
package mkv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// Element IDs used by this writer (Matroska/WebM shared subset).
var (
	idEBML              = []byte{0x1A, 0x45, 0xDF, 0xA3}
	idDocType            = []byte{0x42, 0x82}
	idDocTypeVersion     = []byte{0x42, 0x87}
	idDocTypeReadVersion = []byte{0x42, 0x85}
	idEBMLVersion        = []byte{0x42, 0x86}
	idEBMLReadVersion    = []byte{0x42, 0xF7}
	idEBMLMaxIDLength    = []byte{0x42, 0xF2}
	idEBMLMaxSizeLength  = []byte{0x42, 0xF3}

	idSegment     = []byte{0x18, 0x53, 0x80, 0x67}
	idTracks      = []byte{0x16, 0x54, 0xAE, 0x6B}
	idTrackEntry  = []byte{0xAE}
	idTrackNumber = []byte{0xD7}
	idTrackUID    = []byte{0x73, 0xC5}
	idTrackType   = []byte{0x83}
	idCodecID     = []byte{0x86}
	idCodecPriv   = []byte{0x63, 0xA2}
	idVideo       = []byte{0xE0}
	idPixelWidth  = []byte{0xB0}
	idPixelHeight = []byte{0xBA}
	idAudio       = []byte{0xE1}
	idSamplingHz  = []byte{0xB5}
	idChannels    = []byte{0x9F}

	idCluster     = []byte{0x1F, 0x43, 0xB6, 0x75}
	idTimecode    = []byte{0xE7}
	idSimpleBlock = []byte{0xA3}
)

var videoCodecIDs = map[string]string{
	"h264": "V_MPEG4/ISO/AVC",
	"h265": "V_MPEGH/ISO/HEVC",
	"vp8":  "V_VP8",
	"vp9":  "V_VP9",
	"av1":  "V_AV1",
}

var audioCodecIDs = map[string]string{
	"opus":   "A_OPUS",
	"vorbis": "A_VORBIS",
	"aac":    "A_AAC",
	"ac3":    "A_AC3",
	"pcm":    "A_PCM/INT/LIT",
	"flac":   "A_FLAC",
}

type trackState struct {
	params  mux.TrackParams
	number  uint64
	clusterPackets []stream.Packet
}

// Muxer accumulates tracks and packets in memory and emits one Matroska
// Segment on Finalize. WebM is emitted automatically when every track's
// codec is WebM-legal (VP8/VP9/AV1 video, Opus/Vorbis audio).
type Muxer struct {
	w      io.Writer
	began  bool
	tracks map[int]*trackState
	order  []int
	nextNo uint64

	// TimecodeScale is nanoseconds per output tick; Matroska's native
	// scale is 1ms (1_000_000ns). The writer emits no Info element and
	// always writes block timecodes in milliseconds, so changing this
	// field does not change the output.
	TimecodeScale uint64
}

// New creates an MKV muxer writing to w.
func New(w io.Writer) *Muxer {
	return &Muxer{w: w, tracks: make(map[int]*trackState), TimecodeScale: 1_000_000}
}

func (m *Muxer) AddTrack(params mux.TrackParams) error {
	if m.began {
		return fmt.Errorf("mkv: AddTrack called after Begin")
	}
	switch params.Kind {
	case stream.KindVideo:
		if _, ok := videoCodecIDs[params.Codec]; !ok {
			return fmt.Errorf("mkv: unsupported video codec %q", params.Codec)
		}
	case stream.KindAudio:
		if _, ok := audioCodecIDs[params.Codec]; !ok {
			return fmt.Errorf("mkv: unsupported audio codec %q", params.Codec)
		}
	default:
		return fmt.Errorf("mkv: unsupported track kind %q", params.Kind)
	}
	m.nextNo++
	m.tracks[params.ID] = &trackState{params: params, number: m.nextNo}
	m.order = append(m.order, params.ID)
	return nil
}

func (m *Muxer) Begin() error {
	if len(m.tracks) == 0 {
		return fmt.Errorf("mkv: no tracks registered")
	}
	m.began = true
	return nil
}

func (m *Muxer) WritePacket(p stream.Packet) error {
	if !m.began {
		return fmt.Errorf("mkv: WritePacket called before Begin")
	}
	ts, ok := m.tracks[p.TrackID]
	if !ok {
		return fmt.Errorf("mkv: unknown track %d", p.TrackID)
	}
	ts.clusterPackets = append(ts.clusterPackets, p.Clone())
	return nil
}

func (m *Muxer) Finalize() error {
	var tracksBody bytes.Buffer
	for _, id := range m.order {
		tracksBody.Write(m.trackEntry(m.tracks[id]))
	}

	var clusterBody bytes.Buffer
	clusterBody.Write(uintElem(idTimecode, 0))
	for _, id := range m.order {
		ts := m.tracks[id]
		for _, p := range ts.clusterPackets {
			clusterBody.Write(simpleBlock(ts.number, p))
		}
	}

	var segmentBody bytes.Buffer
	segmentBody.Write(elem(idTracks, tracksBody.Bytes()))
	segmentBody.Write(elem(idCluster, clusterBody.Bytes()))

	if _, err := m.w.Write(m.ebmlHeader()); err != nil {
		return err
	}
	if _, err := m.w.Write(elem(idSegment, segmentBody.Bytes())); err != nil {
		return err
	}
	if c, ok := m.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (m *Muxer) Abort() error {
	if c, ok := m.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// isWebM reports whether every registered track's codec is legal in a
// WebM-profile Matroska file.
func (m *Muxer) isWebM() bool {
	for _, id := range m.order {
		c := m.tracks[id].params.Codec
		switch c {
		case "vp8", "vp9", "av1", "opus", "vorbis":
		default:
			return false
		}
	}
	return true
}

func (m *Muxer) ebmlHeader() []byte {
	docType := "matroska"
	if m.isWebM() {
		docType = "webm"
	}
	var body bytes.Buffer
	body.Write(uintElem(idEBMLVersion, 1))
	body.Write(uintElem(idEBMLReadVersion, 1))
	body.Write(uintElem(idEBMLMaxIDLength, 4))
	body.Write(uintElem(idEBMLMaxSizeLength, 8))
	body.Write(stringElem(idDocType, docType))
	body.Write(uintElem(idDocTypeVersion, 4))
	body.Write(uintElem(idDocTypeReadVersion, 2))
	return elem(idEBML, body.Bytes())
}

func (m *Muxer) trackEntry(ts *trackState) []byte {
	var body bytes.Buffer
	body.Write(uintElem(idTrackNumber, ts.number))
	body.Write(uintElem(idTrackUID, ts.number))

	switch ts.params.Kind {
	case stream.KindVideo:
		body.Write(uintElem(idTrackType, 1))
		body.Write(stringElem(idCodecID, videoCodecIDs[ts.params.Codec]))
		var v bytes.Buffer
		v.Write(uintElem(idPixelWidth, uint64(ts.params.Width)))
		v.Write(uintElem(idPixelHeight, uint64(ts.params.Height)))
		body.Write(elem(idVideo, v.Bytes()))
	case stream.KindAudio:
		body.Write(uintElem(idTrackType, 2))
		body.Write(stringElem(idCodecID, audioCodecIDs[ts.params.Codec]))
		var a bytes.Buffer
		a.Write(floatElem(idSamplingHz, float64(ts.params.SampleRate)))
		a.Write(uintElem(idChannels, uint64(ts.params.Channels)))
		body.Write(elem(idAudio, a.Bytes()))
	}
	if len(ts.params.CodecPrivate) > 0 {
		body.Write(elem(idCodecPriv, ts.params.CodecPrivate))
	}
	return elem(idTrackEntry, body.Bytes())
}

// simpleBlock encodes one packet as a SimpleBlock with a single lacing-free
// frame. Timecode is relative to the cluster's (always zero here).
func simpleBlock(trackNumber uint64, p stream.Packet) []byte {
	var body bytes.Buffer
	body.Write(vintTrackNumber(trackNumber))
	var tc [2]byte
	binary.BigEndian.PutUint16(tc[:], uint16(p.PTS.Rescale(1000).Num))
	body.Write(tc[:])
	flags := byte(0)
	if p.IsKeyframe {
		flags |= 0x80
	}
	body.WriteByte(flags)
	body.Write(p.Data)
	return elem(idSimpleBlock, body.Bytes())
}

// vintTrackNumber encodes the track number as a minimal-width EBML VINT,
// the form SimpleBlock requires for its leading track-number field.
func vintTrackNumber(n uint64) []byte {
	for width := 1; width <= 8; width++ {
		max := uint64(1)<<(7*width) - 2
		if n <= max {
			buf := make([]byte, width)
			marker := uint64(1) << uint(7*width)
			v := n | marker
			for i := width - 1; i >= 0; i-- {
				buf[i] = byte(v)
				v >>= 8
			}
			return buf
		}
	}
	return []byte{0x01, 0, 0, 0, 0, 0, 0, byte(n)}
}

// elem wraps payload with id and an 8-byte-wide EBML size field.
func elem(id []byte, payload []byte) []byte {
	out := make([]byte, 0, len(id)+8+len(payload))
	out = append(out, id...)
	out = append(out, encodeSize8(uint64(len(payload)))...)
	out = append(out, payload...)
	return out
}

// encodeSize8 encodes size as an 8-byte-wide EBML VINT (marker bit in the
// first byte's LSB position, i.e. byte 0x01 prefix).
func encodeSize8(size uint64) []byte {
	buf := make([]byte, 8)
	buf[0] = 0x01
	for i := 0; i < 7; i++ {
		shift := uint(8 * (6 - i))
		buf[1+i] = byte(size >> shift)
	}
	return buf
}

func uintElem(id []byte, value uint64) []byte {
	var b []byte
	for shift := 56; shift >= 0; shift -= 8 {
		byteVal := byte(value >> uint(shift))
		if len(b) == 0 && byteVal == 0 && shift != 0 {
			continue
		}
		b = append(b, byteVal)
	}
	if len(b) == 0 {
		b = []byte{0}
	}
	return elem(id, b)
}

func stringElem(id []byte, s string) []byte {
	return elem(id, []byte(s))
}

func floatElem(id []byte, f float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return elem(id, buf)
}

var _ mux.Adapter = (*Muxer)(nil)
