package miniaudio

import (
	"github.com/stretchr/testify/mock"

	"github.com/tphakala/go-miniaudio/internal/native"
)

var mockAnyToken = mock.AnythingOfType("uintptr")

// mockDriver mocks the handful of native calls the tests script. Calling any other
// method panics through the nil embedded interface.
type mockDriver struct {
	mock.Mock
	native.Driver
}

func (m *mockDriver) DescribeResult(r native.Result) string {
	return native.Describe(r)
}

func (m *mockDriver) ContextCreateDefault() (native.Ptr, native.Result) {
	args := m.Called()
	return args.Get(0).(native.Ptr), args.Get(1).(native.Result)
}

func (m *mockDriver) ContextDestroy(ctx native.Ptr) {
	m.Called(ctx)
}

func (m *mockDriver) ContextGetDevices(ctx native.Ptr, kind native.DeviceKind, out []native.DeviceDescriptor) (uint32, native.Result) {
	args := m.Called(ctx, kind, out)
	return args.Get(0).(uint32), args.Get(1).(native.Result)
}

func (m *mockDriver) EngineCreateDefault() (native.Ptr, native.Result) {
	args := m.Called()
	return args.Get(0).(native.Ptr), args.Get(1).(native.Result)
}

func (m *mockDriver) EngineDestroy(e native.Ptr) {
	m.Called(e)
}

func (m *mockDriver) EngineGetSampleRate(native.Ptr) uint32 { return 48000 }

func (m *mockDriver) EngineGetChannels(native.Ptr) uint32 { return 2 }

func (m *mockDriver) SoundCreateFromFile(e native.Ptr, path string, flags uint32) (native.Ptr, native.Result) {
	args := m.Called(e, path, flags)
	return args.Get(0).(native.Ptr), args.Get(1).(native.Result)
}

func (m *mockDriver) SoundDestroy(s native.Ptr) {
	m.Called(s)
}

func (m *mockDriver) SoundSetEndCallback(s native.Ptr, cb native.EndCallback, userData uintptr) native.Result {
	args := m.Called(s, cb != nil, userData)
	return args.Get(0).(native.Result)
}

func (m *mockDriver) CaptureDeviceCreate(cfg native.CaptureConfig, cb native.CaptureDataCallback, userData uintptr) (native.Ptr, native.Result) {
	args := m.Called(cfg, userData)
	return args.Get(0).(native.Ptr), args.Get(1).(native.Result)
}
