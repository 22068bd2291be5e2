// Package offchaintest provides test doubles for offchain.Externalities.
//
// The main helpers are:
//
//   - ExternalitiesStub: a configurable stub for unit tests
//   - RecordingExternalities: a decorator that records every call
//
// Example usage:
//
//	stub := &offchaintest.ExternalitiesStub{
//		TimestampFunc: func() offchain.Timestamp {
//			return offchain.TimestampFromUnixMillis(1000)
//		},
//	}
//	// Use stub as an offchain.Externalities in your tests
package offchaintest

import "github.com/ahimsalabs/offchain-go/offchain"

// ExternalitiesStub is a test double for offchain.Externalities.
//
// Set the function fields to control behavior. Unset methods panic with a
// "not implemented" message, making it easy to identify which methods your
// tests need to stub.
type ExternalitiesStub struct {
	SubmitTransactionFunc    func(tx []byte) error
	SignFunc                 func(data []byte) ([64]byte, bool)
	TimestampFunc            func() offchain.Timestamp
	SleepUntilFunc           func(deadline offchain.Timestamp)
	RandomSeedFunc           func() [32]byte
	LocalStorageSetFunc      func(key, value []byte)
	LocalStorageReadFunc     func(key []byte) ([]byte, bool)
	HTTPRequestStartFunc     func(method, uri string, meta []byte) (offchain.HTTPRequestID, error)
	HTTPRequestAddHeaderFunc func(id offchain.HTTPRequestID, name, value string) error
	HTTPRequestWriteBodyFunc func(id offchain.HTTPRequestID, chunk []byte, deadline *offchain.Timestamp) error
	HTTPResponseWaitFunc     func(ids []offchain.HTTPRequestID, deadline *offchain.Timestamp) []offchain.HTTPRequestStatus
	HTTPResponseHeadersFunc  func(id offchain.HTTPRequestID) []offchain.Header
	HTTPResponseReadBodyFunc func(id offchain.HTTPRequestID, buf []byte, deadline *offchain.Timestamp) (int, error)
}

var _ offchain.Externalities = (*ExternalitiesStub)(nil)

// SubmitTransaction delegates to SubmitTransactionFunc or panics if not set.
func (s *ExternalitiesStub) SubmitTransaction(tx []byte) error {
	if s.SubmitTransactionFunc == nil {
		panic("ExternalitiesStub.SubmitTransaction not implemented")
	}
	return s.SubmitTransactionFunc(tx)
}

// Sign delegates to SignFunc or panics if not set.
func (s *ExternalitiesStub) Sign(data []byte) ([64]byte, bool) {
	if s.SignFunc == nil {
		panic("ExternalitiesStub.Sign not implemented")
	}
	return s.SignFunc(data)
}

// Timestamp delegates to TimestampFunc or panics if not set.
func (s *ExternalitiesStub) Timestamp() offchain.Timestamp {
	if s.TimestampFunc == nil {
		panic("ExternalitiesStub.Timestamp not implemented")
	}
	return s.TimestampFunc()
}

// SleepUntil delegates to SleepUntilFunc or panics if not set.
func (s *ExternalitiesStub) SleepUntil(deadline offchain.Timestamp) {
	if s.SleepUntilFunc == nil {
		panic("ExternalitiesStub.SleepUntil not implemented")
	}
	s.SleepUntilFunc(deadline)
}

// RandomSeed delegates to RandomSeedFunc or panics if not set.
func (s *ExternalitiesStub) RandomSeed() [32]byte {
	if s.RandomSeedFunc == nil {
		panic("ExternalitiesStub.RandomSeed not implemented")
	}
	return s.RandomSeedFunc()
}

// LocalStorageSet delegates to LocalStorageSetFunc or panics if not set.
func (s *ExternalitiesStub) LocalStorageSet(key, value []byte) {
	if s.LocalStorageSetFunc == nil {
		panic("ExternalitiesStub.LocalStorageSet not implemented")
	}
	s.LocalStorageSetFunc(key, value)
}

// LocalStorageRead delegates to LocalStorageReadFunc or panics if not set.
func (s *ExternalitiesStub) LocalStorageRead(key []byte) ([]byte, bool) {
	if s.LocalStorageReadFunc == nil {
		panic("ExternalitiesStub.LocalStorageRead not implemented")
	}
	return s.LocalStorageReadFunc(key)
}

// HTTPRequestStart delegates to HTTPRequestStartFunc or panics if not set.
func (s *ExternalitiesStub) HTTPRequestStart(method, uri string, meta []byte) (offchain.HTTPRequestID, error) {
	if s.HTTPRequestStartFunc == nil {
		panic("ExternalitiesStub.HTTPRequestStart not implemented")
	}
	return s.HTTPRequestStartFunc(method, uri, meta)
}

// HTTPRequestAddHeader delegates to HTTPRequestAddHeaderFunc or panics if not set.
func (s *ExternalitiesStub) HTTPRequestAddHeader(id offchain.HTTPRequestID, name, value string) error {
	if s.HTTPRequestAddHeaderFunc == nil {
		panic("ExternalitiesStub.HTTPRequestAddHeader not implemented")
	}
	return s.HTTPRequestAddHeaderFunc(id, name, value)
}

// HTTPRequestWriteBody delegates to HTTPRequestWriteBodyFunc or panics if not set.
func (s *ExternalitiesStub) HTTPRequestWriteBody(id offchain.HTTPRequestID, chunk []byte, deadline *offchain.Timestamp) error {
	if s.HTTPRequestWriteBodyFunc == nil {
		panic("ExternalitiesStub.HTTPRequestWriteBody not implemented")
	}
	return s.HTTPRequestWriteBodyFunc(id, chunk, deadline)
}

// HTTPResponseWait delegates to HTTPResponseWaitFunc or panics if not set.
func (s *ExternalitiesStub) HTTPResponseWait(ids []offchain.HTTPRequestID, deadline *offchain.Timestamp) []offchain.HTTPRequestStatus {
	if s.HTTPResponseWaitFunc == nil {
		panic("ExternalitiesStub.HTTPResponseWait not implemented")
	}
	return s.HTTPResponseWaitFunc(ids, deadline)
}

// HTTPResponseHeaders delegates to HTTPResponseHeadersFunc or panics if not set.
func (s *ExternalitiesStub) HTTPResponseHeaders(id offchain.HTTPRequestID) []offchain.Header {
	if s.HTTPResponseHeadersFunc == nil {
		panic("ExternalitiesStub.HTTPResponseHeaders not implemented")
	}
	return s.HTTPResponseHeadersFunc(id)
}

// HTTPResponseReadBody delegates to HTTPResponseReadBodyFunc or panics if not set.
func (s *ExternalitiesStub) HTTPResponseReadBody(id offchain.HTTPRequestID, buf []byte, deadline *offchain.Timestamp) (int, error) {
	if s.HTTPResponseReadBodyFunc == nil {
		panic("ExternalitiesStub.HTTPResponseReadBody not implemented")
	}
	return s.HTTPResponseReadBodyFunc(id, buf, deadline)
}
