// Package fmp4 implements mux.Adapter over ISO-BMFF fragmented MP4, built
// directly on bluenviron/mediacommon's fmp4/mp4 format packages.
package fmp4

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mp4"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// Muxer writes fragmented MP4 (CMAF-style) to an io.Writer. One fragment
// per finalize-sized batch of samples; FragmentSamples controls how many
// samples accumulate per track before a fragment is flushed.
type Muxer struct {
	w               io.Writer
	FragmentSamples int

	tracks     []mux.TrackParams
	trackIndex map[int]int // TrackID -> index into tracks

	began          bool
	sequenceNumber uint32
	baseTime       map[int]uint64
	lastPTS        map[int]int64
	pending        map[int][]*fmp4.Sample
}

// New creates an fMP4 muxer writing to w.
func New(w io.Writer) *Muxer {
	return &Muxer{
		w:               w,
		FragmentSamples: 30,
		trackIndex:      make(map[int]int),
		baseTime:        make(map[int]uint64),
		lastPTS:         make(map[int]int64),
		pending:         make(map[int][]*fmp4.Sample),
	}
}

func (m *Muxer) AddTrack(params mux.TrackParams) error {
	if m.began {
		return fmt.Errorf("fmp4: AddTrack called after Begin")
	}
	m.trackIndex[params.ID] = len(m.tracks)
	m.tracks = append(m.tracks, params)
	return nil
}

func (m *Muxer) Begin() error {
	if len(m.tracks) == 0 {
		return fmt.Errorf("fmp4: no tracks registered")
	}

	init := &fmp4.Init{}
	for _, t := range m.tracks {
		c, err := codecFor(t)
		if err != nil {
			return err
		}
		init.Tracks = append(init.Tracks, &fmp4.InitTrack{
			ID:        t.ID,
			TimeScale: t.TimeBase,
			Codec:     c,
		})
	}

	var buf bytes.Buffer
	if err := init.Marshal(&seekableBuffer{Buffer: &buf}); err != nil {
		return fmt.Errorf("fmp4: marshal init: %w", err)
	}
	if _, err := m.w.Write(buf.Bytes()); err != nil {
		return err
	}
	m.began = true
	return nil
}

func (m *Muxer) WritePacket(p stream.Packet) error {
	if !m.began {
		return fmt.Errorf("fmp4: WritePacket called before Begin")
	}
	idx, ok := m.trackIndex[p.TrackID]
	if !ok {
		return fmt.Errorf("fmp4: unknown track %d", p.TrackID)
	}
	t := m.tracks[idx]

	sample := &fmp4.Sample{
		Payload:         p.Data,
		PTSOffset:       int32(p.PTS.Num - p.DTS.Num),
		IsNonSyncSample: !p.IsKeyframe,
		Duration:        uint32(p.Duration.Num),
	}
	if sample.Duration == 0 {
		if last, ok := m.lastPTS[p.TrackID]; ok && p.PTS.Num > last {
			sample.Duration = uint32(p.PTS.Num - last)
		} else {
			sample.Duration = 1
		}
	}
	m.lastPTS[p.TrackID] = p.PTS.Num

	m.pending[p.TrackID] = append(m.pending[p.TrackID], sample)
	if len(m.pending[p.TrackID]) >= m.FragmentSamples || t.Kind == stream.KindAudio && len(m.pending[p.TrackID]) >= m.FragmentSamples*2 {
		return m.flushFragment()
	}
	return nil
}

func (m *Muxer) Finalize() error {
	if err := m.flushFragment(); err != nil {
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

func (m *Muxer) flushFragment() error {
	anyPending := false
	for _, samples := range m.pending {
		if len(samples) > 0 {
			anyPending = true
			break
		}
	}
	if !anyPending {
		return nil
	}

	part := &fmp4.Part{SequenceNumber: m.sequenceNumber}
	for _, t := range m.tracks {
		samples := m.pending[t.ID]
		if len(samples) == 0 {
			continue
		}
		part.Tracks = append(part.Tracks, &fmp4.PartTrack{
			ID:       t.ID,
			BaseTime: m.baseTime[t.ID],
			Samples:  samples,
		})
		for _, s := range samples {
			m.baseTime[t.ID] += uint64(s.Duration)
		}
		m.pending[t.ID] = nil
	}

	var buf bytes.Buffer
	if err := part.Marshal(&seekableBuffer{Buffer: &buf}); err != nil {
		return fmt.Errorf("fmp4: marshal fragment: %w", err)
	}
	if _, err := m.w.Write(buf.Bytes()); err != nil {
		return err
	}
	m.sequenceNumber++
	return nil
}

func codecFor(t mux.TrackParams) (mp4.Codec, error) {
	switch t.Kind {
	case stream.KindVideo:
		return videoCodecFor(t)
	case stream.KindAudio:
		return audioCodecFor(t)
	default:
		return nil, fmt.Errorf("fmp4: unsupported track kind %q", t.Kind)
	}
}

func videoCodecFor(t mux.TrackParams) (mp4.Codec, error) {
	switch t.Codec {
	case "h264":
		sps, pps, err := splitParamSets(t.CodecPrivate)
		if err != nil {
			return nil, fmt.Errorf("fmp4: h264 params: %w", err)
		}
		return &mp4.CodecH264{SPS: sps, PPS: pps}, nil
	case "h265":
		return &mp4.CodecH265{VPS: nil, SPS: nil, PPS: t.CodecPrivate}, nil
	case "vp9":
		return &mp4.CodecVP9{Width: t.Width, Height: t.Height}, nil
	case "av1":
		return &mp4.CodecAV1{SequenceHeader: t.CodecPrivate}, nil
	default:
		return nil, fmt.Errorf("fmp4: unsupported video codec %q", t.Codec)
	}
}

func audioCodecFor(t mux.TrackParams) (mp4.Codec, error) {
	switch t.Codec {
	case "aac":
		var cfg mpeg4audio.AudioSpecificConfig
		if len(t.CodecPrivate) > 0 {
			if err := cfg.Unmarshal(t.CodecPrivate); err != nil {
				return nil, fmt.Errorf("fmp4: aac asc: %w", err)
			}
		} else {
			cfg = mpeg4audio.AudioSpecificConfig{
				Type:         mpeg4audio.ObjectTypeAACLC,
				SampleRate:   t.SampleRate,
				ChannelCount: t.Channels,
			}
		}
		return &mp4.CodecMPEG4Audio{Config: cfg}, nil
	case "opus":
		return &mp4.CodecOpus{ChannelCount: t.Channels}, nil
	case "ac3":
		return &mp4.CodecAC3{SampleRate: t.SampleRate, ChannelCount: t.Channels}, nil
	default:
		return nil, fmt.Errorf("fmp4: unsupported audio codec %q", t.Codec)
	}
}

// splitParamSets splits a concatenated SPS+PPS codec-private blob (as
// stored on stream.TrackDescriptor) into the two parameter sets. Callers
// that already hold separate SPS/PPS slices should bypass this and build
// mp4.CodecH264 directly.
func splitParamSets(private []byte) (sps, pps []byte, err error) {
	if len(private) == 0 {
		return nil, nil, fmt.Errorf("missing codec private data")
	}
	// AVCC-style: assume the caller packed [2-byte SPS len][SPS][2-byte PPS len][PPS].
	if len(private) < 4 {
		return private, nil, nil
	}
	spsLen := int(private[0])<<8 | int(private[1])
	if spsLen <= 0 || 2+spsLen > len(private) {
		return private, nil, nil
	}
	sps = private[2 : 2+spsLen]
	rest := private[2+spsLen:]
	if len(rest) < 2 {
		return sps, nil, nil
	}
	ppsLen := int(rest[0])<<8 | int(rest[1])
	if ppsLen <= 0 || 2+ppsLen > len(rest) {
		return sps, nil, nil
	}
	pps = rest[2 : 2+ppsLen]
	return sps, pps, nil
}

// seekableBuffer wraps bytes.Buffer to satisfy io.WriteSeeker, which
// fmp4.Init/fmp4.Part.Marshal require even though neither actually seeks
// backward for the append-only patterns used here.
type seekableBuffer struct {
	*bytes.Buffer
	pos int64
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	if int(s.pos) > s.Buffer.Len() {
		s.Buffer.Write(make([]byte, int(s.pos)-s.Buffer.Len()))
	}
	var n int
	var err error
	if int(s.pos) == s.Buffer.Len() {
		n, err = s.Buffer.Write(p)
	} else {
		b := s.Buffer.Bytes()
		n = copy(b[s.pos:], p)
		if n < len(p) {
			var m int
			m, err = s.Buffer.Write(p[n:])
			n += m
		}
	}
	s.pos += int64(n)
	return n, err
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = int64(s.Buffer.Len()) + offset
	default:
		return 0, fmt.Errorf("fmp4: invalid seek whence")
	}
	if newPos < 0 {
		return 0, fmt.Errorf("fmp4: negative seek position")
	}
	s.pos = newPos
	return newPos, nil
}

var _ mux.Adapter = (*Muxer)(nil)
