package stream

import "github.com/mediabunnygo/mediabunny/internal/timebase"

// Packet is one coded unit of a media track: one NAL-unit access unit, one
// Opus packet, one ADTS frame, and so on. Packets flow once through the
// pipeline (move semantics) and are owned by whichever stage currently
// holds them.
type Packet struct {
	TrackID int
	Data    []byte

	PTS      timebase.Rational
	DTS      timebase.Rational
	Duration timebase.Rational

	IsKeyframe bool
}

// Clone returns a deep copy of p. Used where a packet must outlive the
// buffer it was read into (e.g. the mkv muxer and RecordingAdapter, which
// retain packets).
func (p Packet) Clone() Packet {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	p.Data = data
	return p
}
