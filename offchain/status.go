package offchain

import "strconv"

// HTTPRequestID is an opaque, host-assigned handle for an outbound HTTP request.
//
// Task code never constructs one; it only receives it from HTTPRequestStart.
// Ids are unique among outstanding requests and may be reused once the host
// has released a request.
type HTTPRequestID uint16

// HTTPRequestStatus is the status of an HTTP request as reported by the host.
//
// The value is the 32-bit wire code. The first hundred codes are reserved for
// internal states; of those only 0, 10 and 20 are assigned. Codes 100 through
// 999 carry the upstream HTTP status of a finished request.
type HTTPRequestStatus uint32

const (
	// StatusUnknown means the host does not know the request id, for example
	// because the request was already fully consumed.
	StatusUnknown HTTPRequestStatus = 0

	// StatusDeadlineReached means a caller deadline lapsed while the request
	// body was still being sent, so the host abandoned the request.
	StatusDeadlineReached HTTPRequestStatus = 10

	// StatusTimeout means the request did not complete in time.
	StatusTimeout HTTPRequestStatus = 20
)

const (
	minFinishedCode = 100
	maxFinishedCode = 999
)

// Finished returns the status of a request that completed with the given HTTP
// status code. It panics if code is outside 100..999.
func Finished(code uint16) HTTPRequestStatus {
	if code < minFinishedCode || code > maxFinishedCode {
		panic("offchain: finished status code out of range: " + strconv.Itoa(int(code)))
	}
	return HTTPRequestStatus(code)
}

// StatusFromUint32 parses a wire code. ok is false if the code has no
// assigned meaning, which signals a malformed host response.
func StatusFromUint32(code uint32) (status HTTPRequestStatus, ok bool) {
	switch {
	case code == uint32(StatusUnknown),
		code == uint32(StatusDeadlineReached),
		code == uint32(StatusTimeout):
		return HTTPRequestStatus(code), true
	case code >= minFinishedCode && code <= maxFinishedCode:
		return HTTPRequestStatus(code), true
	default:
		return 0, false
	}
}

// Uint32 returns the wire code. It is the inverse of StatusFromUint32.
func (s HTTPRequestStatus) Uint32() uint32 {
	return uint32(s)
}

// IsFinished reports whether the request completed with an HTTP status code.
func (s HTTPRequestStatus) IsFinished() bool {
	return s >= minFinishedCode && s <= maxFinishedCode
}

// Code returns the upstream HTTP status code of a finished request.
func (s HTTPRequestStatus) Code() (uint16, bool) {
	if !s.IsFinished() {
		return 0, false
	}
	return uint16(s), true
}

// String implements fmt.Stringer.
func (s HTTPRequestStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusDeadlineReached:
		return "deadline_reached"
	case StatusTimeout:
		return "timeout"
	}
	if s.IsFinished() {
		return "finished(" + strconv.Itoa(int(s)) + ")"
	}
	return "invalid(" + strconv.FormatUint(uint64(s), 10) + ")"
}

// Header is a single HTTP header as untyped bytes.
// Text encoding is the caller's responsibility.
type Header struct {
	Name  []byte
	Value []byte
}
