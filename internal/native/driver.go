package native

// Driver is the native engine function table. Every input pointer must be a live object
// obtained from the same Driver; implementations may assume callers never pass a
// destroyed pointer because internal/handle serialises destruction against use.
//
// Functions returning a plain value report zero on failure.
type Driver interface {
	DescribeResult(r Result) string

	// Contexts.
	ContextCreateDefault() (Ptr, Result)
	ContextCreateWithBackends(backends []int32) (Ptr, Result)
	ContextDestroy(ctx Ptr)
	// ContextGetDevices fills up to len(out) descriptors and returns the total count of
	// devices of the given kind. Passing a nil slice queries the count only.
	ContextGetDevices(ctx Ptr, kind DeviceKind, out []DeviceDescriptor) (uint32, Result)

	// Resource managers.
	ResourceManagerCreateDefault() (Ptr, Result)
	ResourceManagerCreate(cfg ResourceManagerConfig) (Ptr, Result)
	ResourceManagerDestroy(rm Ptr)

	// Engines.
	EngineCreateDefault() (Ptr, Result)
	EngineCreate(cfg EngineConfig) (Ptr, Result)
	EngineDestroy(e Ptr)
	EngineStart(e Ptr) Result
	EngineStop(e Ptr) Result
	EngineSetVolume(e Ptr, volume float32) Result
	EngineGetVolume(e Ptr) float32
	EngineSetGainDb(e Ptr, gainDb float32) Result
	EngineGetGainDb(e Ptr) float32
	EngineGetSampleRate(e Ptr) uint32
	EngineGetChannels(e Ptr) uint32
	EngineGetTimeInPCMFrames(e Ptr) uint64
	EngineSetTimeInPCMFrames(e Ptr, frames uint64) Result
	EngineGetTimeInMilliseconds(e Ptr) uint64
	EngineSetTimeInMilliseconds(e Ptr, ms uint64) Result
	EngineReadPCMFrames(e Ptr, out []float32, frameCount uint64) (uint64, Result)
	EngineGetListenerCount(e Ptr) uint32
	EngineFindClosestListener(e Ptr, position Vec3) uint32
	EngineListenerSetPosition(e Ptr, index uint32, v Vec3)
	EngineListenerGetPosition(e Ptr, index uint32) Vec3
	EngineListenerSetDirection(e Ptr, index uint32, v Vec3)
	EngineListenerGetDirection(e Ptr, index uint32) Vec3
	EngineListenerSetWorldUp(e Ptr, index uint32, v Vec3)
	EngineListenerGetWorldUp(e Ptr, index uint32) Vec3
	EngineListenerSetVelocity(e Ptr, index uint32, v Vec3)
	EngineListenerGetVelocity(e Ptr, index uint32) Vec3
	EngineListenerSetCone(e Ptr, index uint32, cone Cone)
	EngineListenerGetCone(e Ptr, index uint32) Cone
	EngineListenerSetEnabled(e Ptr, index uint32, enabled bool)
	EngineListenerIsEnabled(e Ptr, index uint32) bool
	EnginePlaySound(e Ptr, path string) Result

	// Sounds.
	SoundCreateFromFile(e Ptr, path string, flags uint32) (Ptr, Result)
	SoundCreateFromPCMFrames(e Ptr, frames []float32, frameCount uint64, channels, sampleRate, flags uint32) (Ptr, Result)
	SoundCreateStream(e Ptr, channels, sampleRate uint32, capacityInFrames uint64, flags uint32) (Ptr, Result)
	SoundDestroy(s Ptr)
	SoundStart(s Ptr) Result
	SoundStop(s Ptr) Result
	SoundGetState(s Ptr) SoundState
	SoundSetVolume(s Ptr, volume float32)
	SoundGetVolume(s Ptr) float32
	SoundSetPitch(s Ptr, pitch float32)
	SoundGetPitch(s Ptr) float32
	SoundSetPan(s Ptr, pan float32)
	SoundGetPan(s Ptr) float32
	SoundSetPosition(s Ptr, v Vec3)
	SoundGetPosition(s Ptr) Vec3
	SoundSetDirection(s Ptr, v Vec3)
	SoundGetDirection(s Ptr) Vec3
	SoundSetPositioning(s Ptr, p Positioning)
	SoundGetPositioning(s Ptr) Positioning
	SoundSetLooping(s Ptr, looping bool)
	SoundIsLooping(s Ptr) bool
	SoundGetSampleRate(s Ptr) uint32
	SoundSeekToPCMFrame(s Ptr, frame uint64) Result
	SoundGetLengthInPCMFrames(s Ptr) (uint64, Result)
	SoundGetCursorInPCMFrames(s Ptr) (uint64, Result)
	SoundSetFadeInPCMFrames(s Ptr, from, to float32, length uint64)
	SoundSetFadeStartInPCMFrames(s Ptr, from, to float32, length, absoluteStart uint64)
	SoundGetCurrentFadeVolume(s Ptr) float32
	SoundSetStartTimeInPCMFrames(s Ptr, absolute uint64)
	SoundSetStopTimeInPCMFrames(s Ptr, absolute uint64)
	SoundSetStopTimeWithFadeInPCMFrames(s Ptr, absoluteStop, fadeLength uint64)
	// SoundSetEndCallback installs cb or, when cb is nil, removes it. Removal returns only
	// after any end callback already running for s has returned.
	SoundSetEndCallback(s Ptr, cb EndCallback, userData uintptr) Result

	// Streaming sounds. StreamReset discards queued frames and clears the end flag.
	StreamGetQueuedFrames(s Ptr) (uint64, Result)
	StreamGetAvailableWriteFrames(s Ptr) (uint64, Result)
	StreamAppendPCMFrames(s Ptr, frames []float32, frameCount uint64) (uint64, Result)
	StreamMarkEnd(s Ptr) Result
	StreamClearEnd(s Ptr) Result
	StreamIsEnd(s Ptr) bool
	StreamReset(s Ptr) Result

	// Capture devices. Destroy stops the device and guarantees no further callbacks.
	CaptureDeviceCreate(cfg CaptureConfig, cb CaptureDataCallback, userData uintptr) (Ptr, Result)
	CaptureDeviceStart(d Ptr) Result
	CaptureDeviceStop(d Ptr) Result
	CaptureDeviceDestroy(d Ptr)
}
