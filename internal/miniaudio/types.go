package miniaudio

import (
	"fmt"
	"strings"

	"github.com/tphakala/go-miniaudio/internal/native"
)

// Backend identifies a native audio backend.
type Backend int32

const (
	BackendWasapi     = Backend(native.BackendWasapi)
	BackendDSound     = Backend(native.BackendDSound)
	BackendWinMM      = Backend(native.BackendWinMM)
	BackendCoreAudio  = Backend(native.BackendCoreAudio)
	BackendSndio      = Backend(native.BackendSndio)
	BackendAudio4     = Backend(native.BackendAudio4)
	BackendOSS        = Backend(native.BackendOSS)
	BackendPulseAudio = Backend(native.BackendPulseAudio)
	BackendALSA       = Backend(native.BackendALSA)
	BackendJack       = Backend(native.BackendJack)
	BackendAAudio     = Backend(native.BackendAAudio)
	BackendOpenSLES   = Backend(native.BackendOpenSLES)
	BackendWebAudio   = Backend(native.BackendWebAudio)
	BackendCustom     = Backend(native.BackendCustom)
	BackendNull       = Backend(native.BackendNull)
)

var backendNames = [...]string{
	BackendWasapi:     "wasapi",
	BackendDSound:     "dsound",
	BackendWinMM:      "winmm",
	BackendCoreAudio:  "coreaudio",
	BackendSndio:      "sndio",
	BackendAudio4:     "audio4",
	BackendOSS:        "oss",
	BackendPulseAudio: "pulseaudio",
	BackendALSA:       "alsa",
	BackendJack:       "jack",
	BackendAAudio:     "aaudio",
	BackendOpenSLES:   "opensl",
	BackendWebAudio:   "webaudio",
	BackendCustom:     "custom",
	BackendNull:       "null",
}

func (b Backend) String() string {
	if b >= 0 && int(b) < len(backendNames) {
		return backendNames[b]
	}
	return fmt.Sprintf("backend(%d)", int32(b))
}

// ParseBackend resolves a backend name case-insensitively. "pulse" and "opensles" are
// accepted as aliases.
func ParseBackend(s string) (Backend, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "pulse":
		return BackendPulseAudio, nil
	case "opensles":
		return BackendOpenSLES, nil
	}
	for i, n := range backendNames {
		if n == name {
			return Backend(i), nil
		}
	}
	return 0, argumentError("parse_backend", "unknown backend %q", s)
}

// SampleFormat is the decoded sample format of a resource manager.
type SampleFormat uint32

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatU8
	SampleFormatS16
	SampleFormatS24
	SampleFormatS32
	SampleFormatF32
)

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatU8:
		return "u8"
	case SampleFormatS16:
		return "s16"
	case SampleFormatS24:
		return "s24"
	case SampleFormatS32:
		return "s32"
	case SampleFormatF32:
		return "f32"
	default:
		return "unknown"
	}
}

// DeviceKind selects playback or capture devices.
type DeviceKind int32

const (
	DeviceKindPlayback = DeviceKind(native.DeviceKindPlayback)
	DeviceKindCapture  = DeviceKind(native.DeviceKindCapture)
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceKindPlayback:
		return "playback"
	case DeviceKindCapture:
		return "capture"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

// SoundInitFlags are passed verbatim to the native sound factories.
type SoundInitFlags uint32

const (
	SoundFlagStream              = SoundInitFlags(native.SoundFlagStream)
	SoundFlagDecode              = SoundInitFlags(native.SoundFlagDecode)
	SoundFlagAsync               = SoundInitFlags(native.SoundFlagAsync)
	SoundFlagWaitInit            = SoundInitFlags(native.SoundFlagWaitInit)
	SoundFlagUnknownLength       = SoundInitFlags(native.SoundFlagUnknownLength)
	SoundFlagLooping             = SoundInitFlags(native.SoundFlagLooping)
	SoundFlagNoDefaultAttachment = SoundInitFlags(native.SoundFlagNoDefaultAttachment)
	SoundFlagNoPitch             = SoundInitFlags(native.SoundFlagNoPitch)
	SoundFlagNoSpatialization    = SoundInitFlags(native.SoundFlagNoSpatialization)
)

var soundFlagNames = []struct {
	flag SoundInitFlags
	name string
}{
	{SoundFlagStream, "stream"},
	{SoundFlagDecode, "decode"},
	{SoundFlagAsync, "async"},
	{SoundFlagWaitInit, "wait-init"},
	{SoundFlagUnknownLength, "unknown-length"},
	{SoundFlagLooping, "looping"},
	{SoundFlagNoDefaultAttachment, "no-default-attachment"},
	{SoundFlagNoPitch, "no-pitch"},
	{SoundFlagNoSpatialization, "no-spatialization"},
}

// Has reports whether every bit of flag is set.
func (f SoundInitFlags) Has(flag SoundInitFlags) bool {
	return f&flag == flag
}

func (f SoundInitFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	rest := f
	for _, n := range soundFlagNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ResourceManagerFlags configure a resource manager.
type ResourceManagerFlags uint32

const (
	ResourceManagerNonBlocking = ResourceManagerFlags(native.ResourceManagerFlagNonBlocking)
	ResourceManagerNoThreading = ResourceManagerFlags(native.ResourceManagerFlagNoThreading)
)

// SoundState is the playback state of a sound.
type SoundState int32

const (
	SoundStateStopped  = SoundState(native.SoundStateStopped)
	SoundStatePlaying  = SoundState(native.SoundStatePlaying)
	SoundStateStarting = SoundState(native.SoundStateStarting)
	SoundStateStopping = SoundState(native.SoundStateStopping)
)

func (s SoundState) String() string {
	switch s {
	case SoundStateStopped:
		return "stopped"
	case SoundStatePlaying:
		return "playing"
	case SoundStateStarting:
		return "starting"
	case SoundStateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Positioning selects whether a sound's position is absolute or relative to the listener.
type Positioning int32

const (
	PositioningAbsolute = Positioning(native.PositioningAbsolute)
	PositioningRelative = Positioning(native.PositioningRelative)
)

// Vec3 is a position, direction or velocity in engine space.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) toNative() native.Vec3 { return native.Vec3{X: v.X, Y: v.Y, Z: v.Z} }

func vec3FromNative(v native.Vec3) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// ListenerCone describes the directional attenuation cone of a listener. Angles are in
// radians.
type ListenerCone struct {
	Inner     float32
	Outer     float32
	OuterGain float32
}
