package native

// Ptr is an opaque pointer-sized identifier for a native object.
// Zero and all-ones are never valid.
type Ptr uintptr

// InvalidPtr is the all-ones sentinel some native factories return on failure.
const InvalidPtr = ^Ptr(0)

// Valid reports whether p can refer to a live native object.
func (p Ptr) Valid() bool {
	return p != 0 && p != InvalidPtr
}

// Fixed buffer sizes of the device descriptor fields.
const (
	DeviceNameBufferSize = 256
	DeviceIDBufferSize   = 256
)

// MaxListeners is the listener capacity of an engine.
const MaxListeners = 4

// DeviceKind selects playback or capture devices.
type DeviceKind int32

const (
	DeviceKindPlayback DeviceKind = 1
	DeviceKindCapture  DeviceKind = 2
)

// DeviceDescriptor is the raw record filled by Driver.ContextGetDevices. Name and ID are
// NUL terminated inside their fixed buffers; trailing bytes are not part of the value.
type DeviceDescriptor struct {
	Name      [DeviceNameBufferSize]byte
	ID        [DeviceIDBufferSize]byte
	Kind      DeviceKind
	IsDefault uint32
}

// Backend identifiers, in miniaudio's ma_backend order.
const (
	BackendWasapi int32 = iota
	BackendDSound
	BackendWinMM
	BackendCoreAudio
	BackendSndio
	BackendAudio4
	BackendOSS
	BackendPulseAudio
	BackendALSA
	BackendJack
	BackendAAudio
	BackendOpenSLES
	BackendWebAudio
	BackendCustom
	BackendNull
)

// Sound init flag bits, forwarded verbatim from the control layer.
const (
	SoundFlagStream              uint32 = 0x0000_0001
	SoundFlagDecode              uint32 = 0x0000_0002
	SoundFlagAsync               uint32 = 0x0000_0004
	SoundFlagWaitInit            uint32 = 0x0000_0008
	SoundFlagUnknownLength       uint32 = 0x0000_0010
	SoundFlagLooping             uint32 = 0x0000_0020
	SoundFlagNoDefaultAttachment uint32 = 0x0000_1000
	SoundFlagNoPitch             uint32 = 0x0000_2000
	SoundFlagNoSpatialization    uint32 = 0x0000_4000
)

// Resource manager flag bits.
const (
	ResourceManagerFlagNonBlocking uint32 = 0x0000_0001
	ResourceManagerFlagNoThreading uint32 = 0x0000_0002
)

// SoundState as reported by Driver.SoundGetState.
type SoundState int32

const (
	SoundStateStopped SoundState = iota
	SoundStatePlaying
	SoundStateStarting
	SoundStateStopping
)

// Positioning mode of a sound.
type Positioning int32

const (
	PositioningAbsolute Positioning = iota
	PositioningRelative
)

// Vec3 is a position, direction or velocity in engine space.
type Vec3 struct {
	X, Y, Z float32
}

// Cone describes a listener cone.
type Cone struct {
	InnerAngleRadians float32
	OuterAngleRadians float32
	OuterGain         float32
}

// ResourceManagerConfig carries the explicit resource manager configuration.
// Zero fields mean "native default".
type ResourceManagerConfig struct {
	Flags             uint32
	DecodedFormat     uint32
	DecodedChannels   uint32
	DecodedSampleRate uint32
	JobThreadCount    uint32
}

// EngineConfig carries the create-with-options arguments. Zero Ptr fields and empty
// strings mean "not supplied".
type EngineConfig struct {
	Context                  Ptr
	ResourceManager          Ptr
	PlaybackDeviceID         string
	SampleRate               uint32
	Channels                 uint32
	PeriodSizeInFrames       uint32
	PeriodSizeInMilliseconds uint32
	NoAutoStart              bool
	NoDevice                 bool
}

// CaptureConfig carries the capture device create arguments.
type CaptureConfig struct {
	Context    Ptr
	DeviceID   string
	SampleRate uint32
	Channels   uint32
}

// EndCallback is invoked from the engine's real-time thread when a sound reaches the end
// of its data. userData is the token registered with Driver.SoundSetEndCallback.
type EndCallback func(userData uintptr, sound Ptr)

// CaptureDataCallback is invoked from the device thread with interleaved float32 samples.
// samples is only valid for the duration of the call.
type CaptureDataCallback func(samples []float32, frameCount, channelCount uint32, userData uintptr)
