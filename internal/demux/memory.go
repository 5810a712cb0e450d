package demux

import (
	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

// MemoryInput is an in-memory fake Input driven by pre-built packet
// slices, used throughout the pipeline and controller test suites in
// place of standing up a real container parser.
type MemoryInput struct {
	tracks   []stream.TrackDescriptor
	packets  map[int][]stream.Packet
	cursors  map[int]int
	duration timebase.Rational
}

// NewMemoryInput creates a MemoryInput. packets maps track ID to its
// packets, already in DTS order.
func NewMemoryInput(tracks []stream.TrackDescriptor, packets map[int][]stream.Packet, duration timebase.Rational) *MemoryInput {
	return &MemoryInput{
		tracks:   tracks,
		packets:  packets,
		cursors:  make(map[int]int),
		duration: duration,
	}
}

func (m *MemoryInput) Tracks() []stream.TrackDescriptor { return m.tracks }

func (m *MemoryInput) NextPacket(trackID int) (stream.Packet, error) {
	i := m.cursors[trackID]
	pkts := m.packets[trackID]
	if i >= len(pkts) {
		return stream.Packet{}, ErrEOF
	}
	m.cursors[trackID] = i + 1
	return pkts[i], nil
}

func (m *MemoryInput) Seek(trackID int, targetTime timebase.Rational) (timebase.Rational, error) {
	pkts := m.packets[trackID]
	idx := 0
	actual := timebase.Zero
	for i, p := range pkts {
		if p.DTS.Cmp(targetTime) > 0 {
			break
		}
		if p.IsKeyframe {
			idx = i
			actual = p.DTS
		}
	}
	m.cursors[trackID] = idx
	return actual, nil
}

func (m *MemoryInput) Duration() timebase.Rational { return m.duration }

func (m *MemoryInput) Close() error { return nil }

var _ Input = (*MemoryInput)(nil)
