// Package codec provides a unified codec registry for video and audio
// codecs. It consolidates codec definitions, encoder mappings, and
// container-compatibility information used by the conversion pipeline's
// planner (internal/convert/plan) and muxer adapters (internal/mux).
package codec

import "strings"

// Video represents a video codec.
type Video string

// Video codec constants.
const (
	VideoH264   Video = "h264" // H.264/AVC
	VideoH265   Video = "h265" // H.265/HEVC
	VideoVP8    Video = "vp8"  // VP8
	VideoVP9    Video = "vp9"  // VP9
	VideoAV1    Video = "av1"  // AV1
	VideoMPEG2  Video = "mpeg2"
	VideoMPEG4  Video = "mpeg4"
	VideoTheora Video = "theora" // Ogg video
)

// Audio represents an audio codec.
type Audio string

// Audio codec constants.
const (
	AudioAAC    Audio = "aac"
	AudioMP3    Audio = "mp3"
	AudioAC3    Audio = "ac3"
	AudioEAC3   Audio = "eac3"
	AudioOpus   Audio = "opus"
	AudioVorbis Audio = "vorbis"
	AudioFLAC   Audio = "flac"
	AudioPCM    Audio = "pcm"
)

// Container identifies an output container format. This set matches the
// muxer adapters under internal/mux.
type Container string

// Container constants.
const (
	ContainerMP4  Container = "mp4"
	ContainerMKV  Container = "mkv"
	ContainerWebM Container = "webm"
	ContainerMP3  Container = "mp3"
	ContainerWAV  Container = "wav"
	ContainerOgg  Container = "ogg"
	ContainerADTS Container = "adts"
)

// HWAccel identifies a hardware acceleration backend an encoder-side
// codecbackend factory may target.
type HWAccel string

// Hardware acceleration constants.
const (
	HWAccelAuto  HWAccel = "auto"
	HWAccelNone  HWAccel = "none"
	HWAccelCUDA  HWAccel = "cuda"
	HWAccelQSV   HWAccel = "qsv"
	HWAccelVAAPI HWAccel = "vaapi"
	HWAccelVT    HWAccel = "videotoolbox"
)

// String implementations for use in logging and config.

func (v Video) String() string     { return string(v) }
func (a Audio) String() string     { return string(a) }
func (c Container) String() string { return string(c) }
func (h HWAccel) String() string   { return string(h) }

// videoInfo holds registry metadata about a video codec.
type videoInfo struct {
	Name Video
	// Aliases and encoder names that normalize to this codec.
	Aliases []string
	// Encoders maps hardware acceleration backend to the codecbackend
	// encoder name it should request.
	Encoders map[HWAccel]string
	// Containers lists the containers this codec can be muxed into.
	Containers []Container
	// Demuxable reports whether internal/demux can bitstream-parse this
	// codec's access units (required to find keyframes for Copy-mode
	// trimming and GOP alignment).
	Demuxable bool
}

// audioInfo holds registry metadata about an audio codec.
type audioInfo struct {
	Name       Audio
	Aliases    []string
	Encoder    string
	Containers []Container
	Demuxable  bool
}

var videoRegistry = map[Video]*videoInfo{
	VideoH264: {
		Name:    VideoH264,
		Aliases: []string{"h264", "avc", "avc1", "h.264", "libx264", "h264_nvenc", "h264_qsv", "h264_vaapi", "h264_videotoolbox"},
		Encoders: map[HWAccel]string{
			HWAccelNone:  "libx264",
			HWAccelAuto:  "libx264",
			HWAccelCUDA:  "h264_nvenc",
			HWAccelQSV:   "h264_qsv",
			HWAccelVAAPI: "h264_vaapi",
			HWAccelVT:    "h264_videotoolbox",
		},
		Containers: []Container{ContainerMP4, ContainerMKV},
		Demuxable:  true,
	},
	VideoH265: {
		Name:    VideoH265,
		Aliases: []string{"h265", "hevc", "hev1", "hvc1", "h.265", "libx265", "hevc_nvenc", "hevc_qsv", "hevc_vaapi", "hevc_videotoolbox"},
		Encoders: map[HWAccel]string{
			HWAccelNone:  "libx265",
			HWAccelAuto:  "libx265",
			HWAccelCUDA:  "hevc_nvenc",
			HWAccelQSV:   "hevc_qsv",
			HWAccelVAAPI: "hevc_vaapi",
			HWAccelVT:    "hevc_videotoolbox",
		},
		Containers: []Container{ContainerMP4, ContainerMKV},
		Demuxable:  true,
	},
	VideoVP8: {
		Name:       VideoVP8,
		Aliases:    []string{"vp8", "libvpx"},
		Encoders:   map[HWAccel]string{HWAccelNone: "libvpx", HWAccelAuto: "libvpx"},
		Containers: []Container{ContainerMKV, ContainerWebM},
		Demuxable:  false,
	},
	VideoVP9: {
		Name:       VideoVP9,
		Aliases:    []string{"vp9", "vp09", "libvpx-vp9", "vp9_qsv", "vp9_vaapi"},
		Encoders:   map[HWAccel]string{HWAccelNone: "libvpx-vp9", HWAccelAuto: "libvpx-vp9", HWAccelQSV: "vp9_qsv", HWAccelVAAPI: "vp9_vaapi"},
		Containers: []Container{ContainerMP4, ContainerMKV, ContainerWebM},
		Demuxable:  false,
	},
	VideoAV1: {
		Name:       VideoAV1,
		Aliases:    []string{"av1", "av01", "libaom-av1", "libsvtav1", "av1_nvenc", "av1_qsv", "av1_vaapi"},
		Encoders:   map[HWAccel]string{HWAccelNone: "libaom-av1", HWAccelAuto: "libaom-av1", HWAccelCUDA: "av1_nvenc", HWAccelQSV: "av1_qsv", HWAccelVAAPI: "av1_vaapi"},
		Containers: []Container{ContainerMP4, ContainerMKV, ContainerWebM},
		Demuxable:  false,
	},
	VideoMPEG2: {
		Name:       VideoMPEG2,
		Aliases:    []string{"mpeg2", "mpeg2video"},
		Encoders:   map[HWAccel]string{HWAccelNone: "mpeg2video"},
		Containers: []Container{ContainerMP4, ContainerMKV},
		Demuxable:  false,
	},
	VideoMPEG4: {
		Name:       VideoMPEG4,
		Aliases:    []string{"mpeg4", "divx", "xvid"},
		Encoders:   map[HWAccel]string{HWAccelNone: "mpeg4"},
		Containers: []Container{ContainerMP4, ContainerMKV},
		Demuxable:  false,
	},
	VideoTheora: {
		Name:       VideoTheora,
		Aliases:    []string{"theora", "libtheora"},
		Encoders:   map[HWAccel]string{HWAccelNone: "libtheora"},
		Containers: []Container{ContainerOgg},
		Demuxable:  false,
	},
}

var audioRegistry = map[Audio]*audioInfo{
	AudioAAC: {
		Name:       AudioAAC,
		Aliases:    []string{"aac", "mp4a", "libfdk_aac", "aac_at"},
		Encoder:    "aac",
		Containers: []Container{ContainerMP4, ContainerMKV, ContainerADTS},
		Demuxable:  true,
	},
	AudioMP3: {
		Name:       AudioMP3,
		Aliases:    []string{"mp3", "mp3float", "libmp3lame"},
		Encoder:    "libmp3lame",
		Containers: []Container{ContainerMP4, ContainerMKV, ContainerMP3, ContainerWAV},
		Demuxable:  true,
	},
	AudioAC3: {
		Name:       AudioAC3,
		Aliases:    []string{"ac3", "ac-3", "a52"},
		Encoder:    "ac3",
		Containers: []Container{ContainerMP4, ContainerMKV},
		Demuxable:  true,
	},
	AudioEAC3: {
		Name:       AudioEAC3,
		Aliases:    []string{"eac3", "ec-3"},
		Encoder:    "eac3",
		Containers: []Container{ContainerMP4, ContainerMKV},
		Demuxable:  false,
	},
	AudioOpus: {
		Name:       AudioOpus,
		Aliases:    []string{"opus", "libopus"},
		Encoder:    "libopus",
		Containers: []Container{ContainerMP4, ContainerMKV, ContainerWebM, ContainerOgg},
		Demuxable:  true,
	},
	AudioVorbis: {
		Name:       AudioVorbis,
		Aliases:    []string{"vorbis", "libvorbis"},
		Encoder:    "libvorbis",
		Containers: []Container{ContainerOgg, ContainerMKV, ContainerWebM},
		Demuxable:  false,
	},
	AudioFLAC: {
		Name:       AudioFLAC,
		Aliases:    []string{"flac", "libflac"},
		Encoder:    "flac",
		Containers: []Container{ContainerMP4, ContainerMKV, ContainerOgg},
		Demuxable:  false,
	},
	AudioPCM: {
		Name:       AudioPCM,
		Aliases:    []string{"pcm", "pcm_s16le", "pcm_s24le", "pcm_s32le"},
		Encoder:    "pcm_s16le",
		Containers: []Container{ContainerWAV, ContainerMKV},
		Demuxable:  true,
	},
}

var (
	videoAliasIndex map[string]Video
	audioAliasIndex map[string]Audio
)

func init() {
	videoAliasIndex = make(map[string]Video)
	for c, info := range videoRegistry {
		for _, alias := range info.Aliases {
			videoAliasIndex[strings.ToLower(alias)] = c
		}
	}
	audioAliasIndex = make(map[string]Audio)
	for c, info := range audioRegistry {
		for _, alias := range info.Aliases {
			audioAliasIndex[strings.ToLower(alias)] = c
		}
	}
}

// ParseVideo parses a codec name, alias, or encoder name to a canonical
// Video codec.
func ParseVideo(s string) (Video, bool) {
	if s == "" {
		return "", false
	}
	c, ok := videoAliasIndex[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// ParseAudio parses a codec name, alias, or encoder name to a canonical
// Audio codec.
func ParseAudio(s string) (Audio, bool) {
	if s == "" {
		return "", false
	}
	c, ok := audioAliasIndex[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// NormalizeVideo returns the canonical codec string, or name unchanged if
// unrecognized.
func NormalizeVideo(name string) string {
	if c, ok := ParseVideo(name); ok {
		return string(c)
	}
	return name
}

// NormalizeAudio returns the canonical codec string, or name unchanged if
// unrecognized.
func NormalizeAudio(name string) string {
	if c, ok := ParseAudio(name); ok {
		return string(c)
	}
	return name
}

// VideoEncoder returns the codecbackend encoder name for a video codec
// under the given hardware acceleration, falling back to software.
func VideoEncoder(v Video, hwaccel HWAccel) (string, bool) {
	info, ok := videoRegistry[v]
	if !ok || info.Encoders == nil {
		return "", false
	}
	if enc, ok := info.Encoders[hwaccel]; ok {
		return enc, true
	}
	enc, ok := info.Encoders[HWAccelNone]
	return enc, ok
}

// AudioEncoder returns the codecbackend encoder name for an audio codec.
func AudioEncoder(a Audio) (string, bool) {
	info, ok := audioRegistry[a]
	if !ok {
		return "", false
	}
	return info.Encoder, info.Encoder != ""
}

// SupportsContainer reports whether the video codec may be muxed into the
// given container without transcoding.
func (v Video) SupportsContainer(c Container) bool {
	info, ok := videoRegistry[v]
	if !ok {
		return false
	}
	return containsContainer(info.Containers, c)
}

// SupportsContainer reports whether the audio codec may be muxed into the
// given container without transcoding.
func (a Audio) SupportsContainer(c Container) bool {
	info, ok := audioRegistry[a]
	if !ok {
		return false
	}
	return containsContainer(info.Containers, c)
}

func containsContainer(list []Container, c Container) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

// preferredVideoCodec maps a container to the video codec a transcode
// should target by default when no explicit request names one.
var preferredVideoCodec = map[Container]Video{
	ContainerMP4:  VideoH264,
	ContainerMKV:  VideoH264,
	ContainerWebM: VideoVP9,
	ContainerOgg:  VideoTheora,
}

// preferredAudioCodec maps a container to the audio codec a transcode
// should target by default when no explicit request names one.
var preferredAudioCodec = map[Container]Audio{
	ContainerMP4:  AudioAAC,
	ContainerMKV:  AudioAAC,
	ContainerWebM: AudioOpus,
	ContainerMP3:  AudioMP3,
	ContainerWAV:  AudioPCM,
	ContainerOgg:  AudioVorbis,
	ContainerADTS: AudioAAC,
}

// PreferredVideoCodec returns the video codec a transcode into c should
// target by default.
func PreferredVideoCodec(c Container) (Video, bool) {
	v, ok := preferredVideoCodec[c]
	return v, ok
}

// PreferredAudioCodec returns the audio codec a transcode into c should
// target by default.
func PreferredAudioCodec(c Container) (Audio, bool) {
	a, ok := preferredAudioCodec[c]
	return a, ok
}

// IsDemuxable reports whether internal/demux can bitstream-parse this video
// codec's access units.
func (v Video) IsDemuxable() bool {
	info, ok := videoRegistry[v]
	return ok && info.Demuxable
}

// IsDemuxable reports whether internal/demux can bitstream-parse this audio
// codec's access units.
func (a Audio) IsDemuxable() bool {
	info, ok := audioRegistry[a]
	return ok && info.Demuxable
}

// ParseHWAccel parses a hardware acceleration name.
func ParseHWAccel(s string) (HWAccel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return HWAccelAuto, true
	case "none", "":
		return HWAccelNone, true
	case "cuda":
		return HWAccelCUDA, true
	case "qsv":
		return HWAccelQSV, true
	case "vaapi":
		return HWAccelVAAPI, true
	case "videotoolbox", "vt":
		return HWAccelVT, true
	default:
		return "", false
	}
}

// ParseContainer parses a container name or file extension.
func ParseContainer(s string) (Container, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mp4", "m4a", "m4v", "fmp4", "cmaf":
		return ContainerMP4, true
	case "mkv", "matroska":
		return ContainerMKV, true
	case "webm":
		return ContainerWebM, true
	case "mp3":
		return ContainerMP3, true
	case "wav", "wave":
		return ContainerWAV, true
	case "ogg", "oga", "ogv":
		return ContainerOgg, true
	case "adts", "aac":
		return ContainerADTS, true
	default:
		return "", false
	}
}

// SupportedEncodingVideoCodecs lists video codecs the codecbackend registry
// is expected to offer an encoder factory for.
func SupportedEncodingVideoCodecs() []Video {
	return []Video{VideoH264, VideoH265, VideoVP9, VideoAV1}
}

// SupportedEncodingAudioCodecs lists audio codecs the codecbackend registry
// is expected to offer an encoder factory for.
func SupportedEncodingAudioCodecs() []Audio {
	return []Audio{AudioAAC, AudioMP3, AudioAC3, AudioOpus}
}
