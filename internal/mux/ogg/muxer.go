// Package ogg implements mux.Adapter as an Ogg container writer (RFC
// 3533): packets are segmented into pages with the page header and CRC
// checksum computed from scratch, since no library in the retrieval pack
// provides an Ogg page writer.
package ogg

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mediabunnygo/mediabunny/internal/mux"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

const maxSegmentBytes = 255

type trackState struct {
	params     mux.TrackParams
	serial     uint32
	seq        uint32
	headerSent bool
}

// Muxer writes one or more logical Ogg bitstreams, interleaved page by
// page, to an io.Writer.
type Muxer struct {
	w      io.Writer
	began  bool
	tracks map[int]*trackState
	order  []int
	serial uint32
}

// New creates an Ogg muxer writing to w.
func New(w io.Writer) *Muxer {
	return &Muxer{w: w, tracks: make(map[int]*trackState)}
}

func (m *Muxer) AddTrack(params mux.TrackParams) error {
	if m.began {
		return fmt.Errorf("ogg: AddTrack called after Begin")
	}
	switch params.Codec {
	case "opus", "vorbis", "theora", "flac":
	default:
		return fmt.Errorf("ogg: unsupported codec %q", params.Codec)
	}
	m.serial++
	m.tracks[params.ID] = &trackState{params: params, serial: m.serial}
	m.order = append(m.order, params.ID)
	return nil
}

func (m *Muxer) Begin() error {
	if len(m.tracks) == 0 {
		return fmt.Errorf("ogg: no tracks registered")
	}
	m.began = true
	return nil
}

func (m *Muxer) WritePacket(p stream.Packet) error {
	if !m.began {
		return fmt.Errorf("ogg: WritePacket called before Begin")
	}
	ts, ok := m.tracks[p.TrackID]
	if !ok {
		return fmt.Errorf("ogg: unknown track %d", p.TrackID)
	}

	headerFlag := byte(0)
	if !ts.headerSent {
		headerFlag = 0x02 // beginning-of-stream
		ts.headerSent = true
	}
	return m.writePage(ts, [][]byte{p.Data}, uint64(p.PTS.Num), headerFlag)
}

func (m *Muxer) Finalize() error {
	for _, id := range m.order {
		ts := m.tracks[id]
		if err := m.writePage(ts, [][]byte{{}}, 0, 0x04); err != nil {
			return err
		}
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

// writePage writes a single Ogg page carrying the given packet segments.
func (m *Muxer) writePage(ts *trackState, packets [][]byte, granulePos uint64, headerType byte) error {
	var segmentData []byte
	var segTable []byte
	for _, pkt := range packets {
		remaining := len(pkt)
		off := 0
		for remaining >= maxSegmentBytes {
			segTable = append(segTable, 255)
			segmentData = append(segmentData, pkt[off:off+maxSegmentBytes]...)
			off += maxSegmentBytes
			remaining -= maxSegmentBytes
		}
		segTable = append(segTable, byte(remaining))
		segmentData = append(segmentData, pkt[off:]...)
	}

	hdr := make([]byte, 27)
	copy(hdr[0:4], "OggS")
	hdr[4] = 0 // stream_structure_version
	hdr[5] = headerType
	binary.LittleEndian.PutUint64(hdr[6:14], granulePos)
	binary.LittleEndian.PutUint32(hdr[14:18], ts.serial)
	binary.LittleEndian.PutUint32(hdr[18:22], ts.seq)
	// hdr[22:26] CRC filled in below, once the full page is assembled.
	hdr[26] = byte(len(segTable))
	ts.seq++

	page := make([]byte, 0, len(hdr)+len(segTable)+len(segmentData))
	page = append(page, hdr...)
	page = append(page, segTable...)
	page = append(page, segmentData...)

	crc := oggCRC32(page)
	binary.LittleEndian.PutUint32(page[22:26], crc)

	_, err := m.w.Write(page)
	return err
}

// oggCRC32 computes the Ogg page checksum: CRC-32 with polynomial
// 0x04c11db7, no reflection, zero initial/final XOR (RFC 3533 §6).
func oggCRC32(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc ^= uint32(b) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

var _ mux.Adapter = (*Muxer)(nil)
