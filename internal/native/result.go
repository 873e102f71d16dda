// Package native describes the function surface of the native audio engine that the
// control layer in internal/miniaudio drives. Every native object is reached through an
// opaque Ptr and every fallible operation reports a Result status code.
package native

import "fmt"

// Result is a native status code. Zero is success, negative values are failures.
// The numbering follows miniaudio's ma_result.
type Result int32

const (
	ResultSuccess                    Result = 0
	ResultError                      Result = -1
	ResultInvalidArgs                Result = -2
	ResultInvalidOperation           Result = -3
	ResultOutOfMemory                Result = -4
	ResultOutOfRange                 Result = -5
	ResultAccessDenied               Result = -6
	ResultDoesNotExist               Result = -7
	ResultAlreadyExists              Result = -8
	ResultInvalidFile                Result = -10
	ResultBusy                       Result = -19
	ResultAtEnd                      Result = -17
	ResultNotImplemented             Result = -29
	ResultFormatNotSupported         Result = -200
	ResultDeviceTypeNotSupported     Result = -201
	ResultNoBackend                  Result = -203
	ResultNoDevice                   Result = -204
	ResultInvalidDeviceConfig        Result = -206
	ResultDeviceNotInitialized       Result = -300
	ResultDeviceAlreadyInitialized   Result = -301
	ResultDeviceNotStarted           Result = -302
	ResultDeviceNotStopped           Result = -303
	ResultFailedToInitBackend        Result = -400
	ResultFailedToOpenBackendDevice  Result = -401
	ResultFailedToStartBackendDevice Result = -402
	ResultFailedToStopBackendDevice  Result = -403
)

var resultDescriptions = map[Result]string{
	ResultSuccess:                    "No error",
	ResultError:                      "Unknown error",
	ResultInvalidArgs:                "Invalid argument",
	ResultInvalidOperation:           "Invalid operation",
	ResultOutOfMemory:                "Out of memory",
	ResultOutOfRange:                 "Out of range",
	ResultAccessDenied:               "Permission denied",
	ResultDoesNotExist:               "Resource does not exist",
	ResultAlreadyExists:              "Resource already exists",
	ResultInvalidFile:                "Invalid file",
	ResultBusy:                       "Device or resource busy",
	ResultAtEnd:                      "Reached end of collection",
	ResultNotImplemented:             "Function not implemented",
	ResultFormatNotSupported:         "Format not supported",
	ResultDeviceTypeNotSupported:     "Device type not supported",
	ResultNoBackend:                  "No backend",
	ResultNoDevice:                   "No device",
	ResultInvalidDeviceConfig:        "Invalid device config",
	ResultDeviceNotInitialized:       "Device not initialized",
	ResultDeviceAlreadyInitialized:   "Device already initialized",
	ResultDeviceNotStarted:           "Device not started",
	ResultDeviceNotStopped:           "Device not stopped",
	ResultFailedToInitBackend:        "Failed to initialize backend",
	ResultFailedToOpenBackendDevice:  "Failed to open backend device",
	ResultFailedToStartBackendDevice: "Failed to start backend device",
	ResultFailedToStopBackendDevice:  "Failed to stop backend device",
}

// Describe returns the human readable description of r, matching ma_result_description.
func Describe(r Result) string {
	if s, ok := resultDescriptions[r]; ok {
		return s
	}
	return "Unknown error"
}

// OK reports whether r is a success code.
func (r Result) OK() bool {
	return r == ResultSuccess
}

func (r Result) String() string {
	return fmt.Sprintf("%s (%d)", Describe(r), int32(r))
}
