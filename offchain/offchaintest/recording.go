package offchaintest

import (
	"sync"
	"time"

	"github.com/ahimsalabs/offchain-go/offchain"
)

// RecordingExternalities wraps an Externalities and records all method calls.
//
// This is useful for testing that task code issues the expected calls in the
// right order with the right arguments.
//
// Example:
//
//	recorder := NewRecordingExternalities(inner)
//	runTask(recorder)
//	calls := recorder.Calls()
//	if calls[0].Method != "HTTPRequestStart" {
//		t.Errorf("first call should be HTTPRequestStart, got %s", calls[0].Method)
//	}
type RecordingExternalities struct {
	inner offchain.Externalities
	calls []Call
	mu    sync.Mutex
}

var _ offchain.Externalities = (*RecordingExternalities)(nil)

// Call represents a recorded method call.
type Call struct {
	Method string // Method name (e.g., "HTTPRequestStart")
	Args   []any  // Arguments in declaration order
	At     time.Time
}

// NewRecordingExternalities creates a RecordingExternalities that wraps inner.
func NewRecordingExternalities(inner offchain.Externalities) *RecordingExternalities {
	return &RecordingExternalities{inner: inner}
}

func (r *RecordingExternalities) record(method string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{
		Method: method,
		Args:   args,
		At:     time.Now(),
	})
}

// Calls returns a copy of all recorded calls.
func (r *RecordingExternalities) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Call, len(r.calls))
	copy(result, r.calls)
	return result
}

// Methods returns the method names of all recorded calls, in order.
func (r *RecordingExternalities) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	methods := make([]string, len(r.calls))
	for i, c := range r.calls {
		methods[i] = c.Method
	}
	return methods
}

// Reset clears all recorded calls.
func (r *RecordingExternalities) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *RecordingExternalities) SubmitTransaction(tx []byte) error {
	r.record("SubmitTransaction", tx)
	return r.inner.SubmitTransaction(tx)
}

func (r *RecordingExternalities) Sign(data []byte) ([64]byte, bool) {
	r.record("Sign", data)
	return r.inner.Sign(data)
}

func (r *RecordingExternalities) Timestamp() offchain.Timestamp {
	r.record("Timestamp")
	return r.inner.Timestamp()
}

func (r *RecordingExternalities) SleepUntil(deadline offchain.Timestamp) {
	r.record("SleepUntil", deadline)
	r.inner.SleepUntil(deadline)
}

func (r *RecordingExternalities) RandomSeed() [32]byte {
	r.record("RandomSeed")
	return r.inner.RandomSeed()
}

func (r *RecordingExternalities) LocalStorageSet(key, value []byte) {
	r.record("LocalStorageSet", key, value)
	r.inner.LocalStorageSet(key, value)
}

func (r *RecordingExternalities) LocalStorageRead(key []byte) ([]byte, bool) {
	r.record("LocalStorageRead", key)
	return r.inner.LocalStorageRead(key)
}

func (r *RecordingExternalities) HTTPRequestStart(method, uri string, meta []byte) (offchain.HTTPRequestID, error) {
	r.record("HTTPRequestStart", method, uri, meta)
	return r.inner.HTTPRequestStart(method, uri, meta)
}

func (r *RecordingExternalities) HTTPRequestAddHeader(id offchain.HTTPRequestID, name, value string) error {
	r.record("HTTPRequestAddHeader", id, name, value)
	return r.inner.HTTPRequestAddHeader(id, name, value)
}

func (r *RecordingExternalities) HTTPRequestWriteBody(id offchain.HTTPRequestID, chunk []byte, deadline *offchain.Timestamp) error {
	r.record("HTTPRequestWriteBody", id, chunk, deadline)
	return r.inner.HTTPRequestWriteBody(id, chunk, deadline)
}

func (r *RecordingExternalities) HTTPResponseWait(ids []offchain.HTTPRequestID, deadline *offchain.Timestamp) []offchain.HTTPRequestStatus {
	r.record("HTTPResponseWait", ids, deadline)
	return r.inner.HTTPResponseWait(ids, deadline)
}

func (r *RecordingExternalities) HTTPResponseHeaders(id offchain.HTTPRequestID) []offchain.Header {
	r.record("HTTPResponseHeaders", id)
	return r.inner.HTTPResponseHeaders(id)
}

func (r *RecordingExternalities) HTTPResponseReadBody(id offchain.HTTPRequestID, buf []byte, deadline *offchain.Timestamp) (int, error) {
	r.record("HTTPResponseReadBody", id, len(buf), deadline)
	return r.inner.HTTPResponseReadBody(id, buf, deadline)
}
