// Package offchain defines the contract between an isolated task context and
// the host runtime that performs side effects on its behalf.
package offchain

import (
	"math"
	"time"
)

// Duration is a span of time in milliseconds.
// It is unsigned, so it can never be negative.
type Duration uint64

// DurationFromMillis creates a Duration representing the given number of milliseconds.
func DurationFromMillis(millis uint64) Duration {
	return Duration(millis)
}

// Millis returns the number of milliseconds this Duration represents.
func (d Duration) Millis() uint64 {
	return uint64(d)
}

// Std converts d to a time.Duration, saturating at the largest representable value.
func (d Duration) Std() time.Duration {
	if uint64(d) > math.MaxInt64/uint64(time.Millisecond) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d) * time.Millisecond
}

// Timestamp is an opaque instant: milliseconds since the Unix epoch.
//
// Arithmetic saturates at zero and at the maximum value instead of wrapping.
// The zero value is the Unix epoch.
type Timestamp uint64

// TimestampFromUnixMillis creates a Timestamp from a Unix time in milliseconds.
func TimestampFromUnixMillis(millis uint64) Timestamp {
	return Timestamp(millis)
}

// TimestampFromTime converts t to a Timestamp. Instants before the epoch map to zero.
func TimestampFromTime(t time.Time) Timestamp {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return Timestamp(ms)
}

// UnixMillis returns the number of milliseconds since the Unix epoch.
func (t Timestamp) UnixMillis() uint64 {
	return uint64(t)
}

// Time returns t as a time.Time.
func (t Timestamp) Time() time.Time {
	if uint64(t) > math.MaxInt64 {
		return time.UnixMilli(math.MaxInt64)
	}
	return time.UnixMilli(int64(t))
}

// Add increases the timestamp by d, saturating at the maximum value.
func (t Timestamp) Add(d Duration) Timestamp {
	sum := uint64(t) + uint64(d)
	if sum < uint64(t) {
		return Timestamp(math.MaxUint64)
	}
	return Timestamp(sum)
}

// Sub decreases the timestamp by d, saturating at zero.
func (t Timestamp) Sub(d Duration) Timestamp {
	if uint64(d) > uint64(t) {
		return 0
	}
	return t - Timestamp(d)
}

// Diff returns the saturated difference t - other.
// It is zero whenever other is at or after t; compare the timestamps first
// if the direction matters.
func (t Timestamp) Diff(other Timestamp) Duration {
	if other >= t {
		return 0
	}
	return Duration(t - other)
}

// Before reports whether t is strictly before other.
func (t Timestamp) Before(other Timestamp) bool {
	return t < other
}

// After reports whether t is strictly after other.
func (t Timestamp) After(other Timestamp) bool {
	return t > other
}

// Deadline returns a pointer to t, for use as an optional deadline argument.
// A nil deadline means "block forever".
func Deadline(t Timestamp) *Timestamp {
	return &t
}

// Remaining converts an absolute deadline into a relative wait measured from now.
// ok is false when deadline is nil, meaning there is no bound. A deadline at or
// before now yields zero.
//
// Conversion happens at the call boundary so that sequential blocking calls
// share one time budget.
func Remaining(deadline *Timestamp, now Timestamp) (wait time.Duration, ok bool) {
	if deadline == nil {
		return 0, false
	}
	return deadline.Diff(now).Std(), true
}
