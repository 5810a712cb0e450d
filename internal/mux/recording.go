package mux

import (
	"fmt"
	"sync"

	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// RecordingAdapter is an in-memory Adapter that records every call. Used by
// the conversion package's own tests, and by the CLI's loopback self-test,
// in place of standing up a real container writer.
type RecordingAdapter struct {
	mu       sync.Mutex
	Tracks   []TrackParams
	Packets  []stream.Packet
	Began    bool
	Finished bool
	Aborted  bool
}

// NewRecordingAdapter returns an empty RecordingAdapter.
func NewRecordingAdapter() *RecordingAdapter {
	return &RecordingAdapter{}
}

func (r *RecordingAdapter) AddTrack(params TrackParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tracks = append(r.Tracks, params)
	return nil
}

func (r *RecordingAdapter) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Tracks) == 0 {
		return fmt.Errorf("mux: Begin called with no tracks registered")
	}
	r.Began = true
	return nil
}

func (r *RecordingAdapter) WritePacket(p stream.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Began {
		return fmt.Errorf("mux: WritePacket called before Begin")
	}
	r.Packets = append(r.Packets, p.Clone())
	return nil
}

func (r *RecordingAdapter) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = true
	return nil
}

func (r *RecordingAdapter) Abort() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Aborted = true
	return nil
}

// PacketsFor returns the recorded packets for a single track, in the order
// they were written.
func (r *RecordingAdapter) PacketsFor(trackID int) []stream.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stream.Packet
	for _, p := range r.Packets {
		if p.TrackID == trackID {
			out = append(out, p)
		}
	}
	return out
}

var _ Adapter = (*RecordingAdapter)(nil)
