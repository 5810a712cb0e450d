package demux

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mediabunnygo/mediabunny/internal/stream"
	"github.com/mediabunnygo/mediabunny/internal/timebase"
)

const wavTrackID = 0

// chunkBytes is the size of one PCM packet this reader emits. WAV has no
// native framing beyond samples, so packets are synthetic fixed-size
// chunks rather than codec access units.
const chunkBytes = 4096

// WAVInput reads a single-track PCM WAVE file. It parses just enough of
// RIFF/WAVE to recover the "fmt " chunk's sample format and the "data"
// chunk's payload; it does not handle WAVE_FORMAT_EXTENSIBLE or
// compressed codecs.
type WAVInput struct {
	r          io.ReadSeeker
	track      stream.TrackDescriptor
	dataOffset int64
	dataSize   uint32
	bytesRead  int64
	byteRate   uint32
}

// NewWAVInput parses r's RIFF/WAVE headers and returns a ready Input.
func NewWAVInput(r io.ReadSeeker) (*WAVInput, error) {
	var riffHeader [12]byte
	if _, err := io.ReadFull(r, riffHeader[:]); err != nil {
		return nil, fmt.Errorf("demux: reading RIFF header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, fmt.Errorf("demux: not a RIFF/WAVE file")
	}

	var (
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		byteRate      uint32
		dataOffset    int64
		dataSize      uint32
		sawFmt        bool
	)

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("demux: reading chunk header: %w", err)
		}
		id := string(chunkHeader[0:4])
		size := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("demux: reading fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, fmt.Errorf("demux: fmt chunk too short")
			}
			channels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			byteRate = binary.LittleEndian.Uint32(body[8:12])
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			sawFmt = true
		case "data":
			pos, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, err
			}
			dataOffset = pos
			dataSize = size
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("demux: skipping data chunk: %w", err)
			}
		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("demux: skipping chunk %q: %w", id, err)
			}
		}
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				break
			}
		}
	}

	if !sawFmt || dataOffset == 0 {
		return nil, fmt.Errorf("demux: missing fmt or data chunk")
	}
	if _, err := r.Seek(dataOffset, io.SeekStart); err != nil {
		return nil, err
	}

	blockAlign := int(channels) * int(bitsPerSample) / 8
	var totalFrames int64
	if blockAlign > 0 {
		totalFrames = int64(dataSize) / int64(blockAlign)
	}

	desc := stream.TrackDescriptor{
		ID:         wavTrackID,
		Kind:       stream.KindAudio,
		Codec:      "pcm",
		TimeBase:   timebase.New(1, int64(sampleRate)),
		Duration:   timebase.New(totalFrames, int64(sampleRate)),
		SampleRate: int(sampleRate),
		Channels:   int(channels),
	}

	return &WAVInput{r: r, track: desc, dataOffset: dataOffset, dataSize: dataSize, byteRate: byteRate}, nil
}

func (w *WAVInput) Tracks() []stream.TrackDescriptor {
	return []stream.TrackDescriptor{w.track}
}

func (w *WAVInput) NextPacket(trackID int) (stream.Packet, error) {
	if trackID != wavTrackID {
		return stream.Packet{}, fmt.Errorf("demux: unknown track %d", trackID)
	}
	remaining := int64(w.dataSize) - w.bytesRead
	if remaining <= 0 {
		return stream.Packet{}, ErrEOF
	}
	n := int64(chunkBytes)
	if n > remaining {
		n = remaining
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(w.r, buf); err != nil {
		return stream.Packet{}, fmt.Errorf("demux: reading PCM data: %w", err)
	}

	pts := timebase.New(w.bytesRead, int64(w.byteRate))
	w.bytesRead += n
	return stream.Packet{
		TrackID:    wavTrackID,
		Data:       buf,
		PTS:        pts,
		DTS:        pts,
		IsKeyframe: true,
	}, nil
}

func (w *WAVInput) Seek(trackID int, targetTime timebase.Rational) (timebase.Rational, error) {
	if trackID != wavTrackID {
		return timebase.Zero, fmt.Errorf("demux: unknown track %d", trackID)
	}
	offsetBytes := int64(targetTime.Seconds() * float64(w.byteRate))
	if offsetBytes < 0 {
		offsetBytes = 0
	}
	if offsetBytes > int64(w.dataSize) {
		offsetBytes = int64(w.dataSize)
	}
	if _, err := w.r.Seek(w.dataOffset+offsetBytes, io.SeekStart); err != nil {
		return timebase.Zero, err
	}
	w.bytesRead = offsetBytes
	return timebase.New(offsetBytes, int64(w.byteRate)), nil
}

func (w *WAVInput) Duration() timebase.Rational { return w.track.Duration }

func (w *WAVInput) Close() error {
	if c, ok := w.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ Input = (*WAVInput)(nil)
