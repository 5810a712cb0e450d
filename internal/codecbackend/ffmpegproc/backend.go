// Package ffmpegproc implements codecbackend.Factory by shelling out to an
// ffmpeg binary per track via os/exec, sampling each subprocess's CPU and
// memory use with gopsutil.
package ffmpegproc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"sync"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/mediabunnygo/mediabunny/internal/codec"
	"github.com/mediabunnygo/mediabunny/internal/codecbackend"
	"github.com/mediabunnygo/mediabunny/internal/stream"
)

// Factory shells ffmpeg subprocesses for decode/encode. Binary defaults to
// "ffmpeg" on PATH.
type Factory struct {
	Binary string
	Logger *slog.Logger
}

// New creates a Factory using the given ffmpeg binary path (empty uses
// "ffmpeg" from PATH).
func New(binary string, logger *slog.Logger) *Factory {
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{Binary: binary, Logger: logger}
}

func (f *Factory) Name() string { return "ffmpegproc" }

func (f *Factory) Supports(codecName string, kind stream.Kind) bool {
	switch kind {
	case stream.KindVideo:
		_, ok := codec.ParseVideo(codecName)
		return ok
	case stream.KindAudio:
		_, ok := codec.ParseAudio(codecName)
		return ok
	default:
		return false
	}
}

func (f *Factory) NewDecoder(ctx context.Context, desc stream.TrackDescriptor) (codecbackend.Decoder, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", decodeInputFormat(desc), "-i", "pipe:0"}
	switch desc.Kind {
	case stream.KindVideo:
		args = append(args, "-f", "rawvideo", "-pix_fmt", "rgba", "pipe:1")
	case stream.KindAudio:
		args = append(args, "-f", "f32le", "-ar", fmt.Sprint(desc.SampleRate), "-ac", fmt.Sprint(desc.Channels), "pipe:1")
	default:
		return nil, fmt.Errorf("ffmpegproc: unsupported track kind %q", desc.Kind)
	}
	pipe, err := newProcPipe(ctx, f.Binary, args, f.Logger)
	if err != nil {
		return nil, err
	}
	return &procDecoder{procPipe: pipe, kind: desc.Kind}, nil
}

func (f *Factory) NewEncoder(ctx context.Context, kind stream.Kind, target string, hwaccel codec.HWAccel) (codecbackend.Encoder, error) {
	var args []string
	switch kind {
	case stream.KindVideo:
		v, ok := codec.ParseVideo(target)
		if !ok {
			return nil, fmt.Errorf("ffmpegproc: unknown video codec %q", target)
		}
		enc, ok := codec.VideoEncoder(v, hwaccel)
		if !ok {
			return nil, fmt.Errorf("ffmpegproc: no encoder for video codec %q", target)
		}
		args = []string{"-hide_banner", "-loglevel", "error", "-f", "rawvideo", "-pix_fmt", "rgba", "-i", "pipe:0", "-c:v", enc, "-f", containerFor(v.String()), "pipe:1"}
	case stream.KindAudio:
		a, ok := codec.ParseAudio(target)
		if !ok {
			return nil, fmt.Errorf("ffmpegproc: unknown audio codec %q", target)
		}
		enc, ok := codec.AudioEncoder(a)
		if !ok {
			return nil, fmt.Errorf("ffmpegproc: no encoder for audio codec %q", target)
		}
		args = []string{"-hide_banner", "-loglevel", "error", "-f", "f32le", "-i", "pipe:0", "-c:a", enc, "-f", "adts", "pipe:1"}
	default:
		return nil, fmt.Errorf("ffmpegproc: unsupported track kind %q", kind)
	}
	pipe, err := newProcPipe(ctx, f.Binary, args, f.Logger)
	if err != nil {
		return nil, err
	}
	return &procEncoder{procPipe: pipe, kind: kind}, nil
}

// procPipe is the ffmpeg subprocess plumbing shared by procDecoder and
// procEncoder: packets/frames go to stdin, decoded/encoded output comes
// back on stdout. Process CPU/RSS is sampled on demand via gopsutil, since
// this backend only needs point-in-time samples, not a continuous monitor
// loop.
type procPipe struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newProcPipe(ctx context.Context, binary string, args []string, logger *slog.Logger) (*procPipe, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpegproc: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpegproc: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpegproc: start %s: %w", binary, err)
	}
	return &procPipe{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout), logger: logger}, nil
}

func (p *procPipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	_ = p.stdin.Close()
	return p.cmd.Wait()
}

// Stats samples CPU/RSS for the running subprocess via gopsutil.
func (p *procPipe) Stats() (codecbackend.ProcessStats, error) {
	if p.cmd.Process == nil {
		return codecbackend.ProcessStats{}, fmt.Errorf("ffmpegproc: process not started")
	}
	proc, err := process.NewProcess(int32(p.cmd.Process.Pid))
	if err != nil {
		return codecbackend.ProcessStats{}, err
	}
	cpuPct, _ := proc.CPUPercent()
	memInfo, _ := proc.MemoryInfo()
	stats := codecbackend.ProcessStats{PID: p.cmd.Process.Pid, CPUPercent: cpuPct}
	if memInfo != nil {
		stats.MemoryRSSBytes = memInfo.RSS
	}
	return stats, nil
}

// procDecoder decodes packets for one track by writing coded data to the
// subprocess's stdin and reading raw samples/pixels back from stdout.
type procDecoder struct {
	*procPipe
	kind stream.Kind
}

// Decode writes one packet to the subprocess and reads back one decoded
// frame's worth of raw samples/pixels. Callers must have configured the
// subprocess's raw output format to match the frame sizes expected here.
func (p *procDecoder) Decode(ctx context.Context, pkt stream.Packet) (any, error) {
	if _, err := p.stdin.Write(pkt.Data); err != nil {
		return nil, fmt.Errorf("ffmpegproc: write packet: %w", err)
	}
	switch p.kind {
	case stream.KindAudio:
		buf := make([]byte, 4096)
		n, err := p.stdout.Read(buf)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("ffmpegproc: read decoded audio: %w", err)
		}
		samples := bytesToFloat32(buf[:n])
		return &stream.AudioFrame{Planes: [][]float32{samples}, FrameCount: len(samples), PTS: pkt.PTS}, nil
	case stream.KindVideo:
		return nil, fmt.Errorf("ffmpegproc: video decode requires known frame dimensions; use NewDecoder with a sized TrackDescriptor")
	default:
		return nil, fmt.Errorf("ffmpegproc: unsupported kind %q", p.kind)
	}
}

// Flush closes stdin and drains any remaining decoded frames buffered in
// the subprocess, in output order.
func (p *procDecoder) Flush(ctx context.Context) ([]any, error) {
	if err := p.stdin.Close(); err != nil {
		return nil, err
	}
	var out []any
	buf := make([]byte, 4096)
	for {
		n, err := p.stdout.Read(buf)
		if n > 0 {
			switch p.kind {
			case stream.KindAudio:
				samples := bytesToFloat32(buf[:n])
				out = append(out, &stream.AudioFrame{Planes: [][]float32{samples}, FrameCount: len(samples)})
			case stream.KindVideo:
				data := make([]byte, n)
				copy(data, buf[:n])
				out = append(out, &stream.VideoFrame{Pix: data})
			}
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

// procEncoder encodes frames for one track by writing decoded
// samples/pixels to the subprocess's stdin and reading coded packets back
// from stdout.
type procEncoder struct {
	*procPipe
	kind stream.Kind
}

// Encode writes one decoded frame to the subprocess and returns any coded
// packet(s) it produced so far. ffmpeg muxers buffer internally, so a
// single Encode call may legitimately return a zero-length packet while
// the final packet only appears during Flush.
func (p *procEncoder) Encode(ctx context.Context, frame any) (stream.Packet, error) {
	switch f := frame.(type) {
	case *stream.AudioFrame:
		if _, err := p.stdin.Write(float32ToBytes(f.Planes[0])); err != nil {
			return stream.Packet{}, fmt.Errorf("ffmpegproc: write frame: %w", err)
		}
	case *stream.VideoFrame:
		if _, err := p.stdin.Write(f.Pix); err != nil {
			return stream.Packet{}, fmt.Errorf("ffmpegproc: write frame: %w", err)
		}
	default:
		return stream.Packet{}, fmt.Errorf("ffmpegproc: unsupported frame type %T", frame)
	}

	buf := make([]byte, 4096)
	n, err := p.stdout.Read(buf)
	if err != nil && err != io.EOF {
		return stream.Packet{}, fmt.Errorf("ffmpegproc: read encoded packet: %w", err)
	}
	return stream.Packet{Data: buf[:n]}, nil
}

// Flush closes stdin and drains any packets the subprocess's muxer
// buffered internally.
func (p *procEncoder) Flush(ctx context.Context) ([]stream.Packet, error) {
	if err := p.stdin.Close(); err != nil {
		return nil, err
	}
	var out []stream.Packet
	buf := make([]byte, 4096)
	for {
		n, err := p.stdout.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			out = append(out, stream.Packet{Data: data})
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

func decodeInputFormat(desc stream.TrackDescriptor) string {
	switch desc.Codec {
	case "h264":
		return "h264"
	case "h265":
		return "hevc"
	case "aac":
		return "aac"
	case "mp3":
		return "mp3"
	default:
		return desc.Codec
	}
}

func containerFor(videoCodec string) string {
	switch videoCodec {
	case "vp9", "av1":
		return "ivf"
	default:
		return "h264"
	}
}

func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func float32ToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		bits := math.Float32bits(s)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

var _ codecbackend.Factory = (*Factory)(nil)
var _ codecbackend.Decoder = (*procDecoder)(nil)
var _ codecbackend.Encoder = (*procEncoder)(nil)
