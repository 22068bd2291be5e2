package offchain

// Externalities is the capability set a task context uses to reach the host.
//
// All methods are synchronous and may block the caller. Blocking calls take an
// optional absolute deadline; nil blocks until the operation completes. There
// is no cancel operation: a caller stops waiting by letting a deadline pass.
//
// Implementations must be goroutine-safe.
type Externalities interface {
	// SubmitTransaction hands an encoded transaction to the pool for propagation.
	// Returns ErrFail if the pool rejected it.
	SubmitTransaction(tx []byte) error

	// Sign signs data with the current authority key.
	// ok is false if signing is not available.
	Sign(data []byte) (sig [64]byte, ok bool)

	// Timestamp returns the current Unix time in milliseconds.
	Timestamp() Timestamp

	// SleepUntil pauses execution until deadline. Returns immediately if the
	// deadline has already passed.
	SleepUntil(deadline Timestamp)

	// RandomSeed returns a truly random, non-deterministic seed generated by
	// the host.
	RandomSeed() [32]byte

	// LocalStorageSet sets a value in local storage.
	//
	// Local storage is not part of consensus. It is only visible to tasks on
	// the same host and is persisted between runs. No check-and-set is offered.
	LocalStorageSet(key, value []byte)

	// LocalStorageRead reads a value from local storage.
	// ok is false if the key does not exist.
	LocalStorageRead(key []byte) (value []byte, ok bool)

	// HTTPRequestStart initiates an HTTP request for the given method and URI.
	//
	// meta is a reserved, codec-encoded extension field. Implementations must
	// tolerate and ignore encodings they do not understand.
	HTTPRequestStart(method, uri string, meta []byte) (HTTPRequestID, error)

	// HTTPRequestAddHeader appends a header to the request.
	HTTPRequestAddHeader(id HTTPRequestID, name, value string) error

	// HTTPRequestWriteBody writes a chunk of the request body.
	//
	// Writing an empty chunk finalizes the request; later writes fail.
	// Returns ErrFail if the deadline is reached or the chunk could not be written.
	HTTPRequestWriteBody(id HTTPRequestID, chunk []byte, deadline *Timestamp) error

	// HTTPResponseWait blocks until every request in ids has a status or the
	// deadline passes.
	//
	// The result has one entry per id, in the same order. Requests that are
	// not ready when the deadline passes are reported as StatusTimeout and
	// unknown ids as StatusUnknown.
	HTTPResponseWait(ids []HTTPRequestID, deadline *Timestamp) []HTTPRequestStatus

	// HTTPResponseHeaders returns the response headers received so far.
	// It does not block and returns nothing for unknown ids.
	HTTPResponseHeaders(id HTTPRequestID) []Header

	// HTTPResponseReadBody reads a chunk of the response body into buf and
	// returns the number of bytes written. Zero means the body is complete.
	//
	// Returns ErrFail if the deadline passes before any data is available or
	// the remote side closed the connection abnormally.
	HTTPResponseReadBody(id HTTPRequestID, buf []byte, deadline *Timestamp) (int, error)
}

// Boxed holds an Externalities behind one level of indirection.
//
// Every method forwards to the wrapped implementer unchanged, so a Boxed value
// behaves exactly like the value it holds.
type Boxed struct {
	inner Externalities
}

var _ Externalities = (*Boxed)(nil)

// Box wraps ext.
func Box(ext Externalities) *Boxed {
	return &Boxed{inner: ext}
}

// Unbox returns the wrapped implementer.
func (b *Boxed) Unbox() Externalities {
	return b.inner
}

func (b *Boxed) SubmitTransaction(tx []byte) error {
	return b.inner.SubmitTransaction(tx)
}

func (b *Boxed) Sign(data []byte) ([64]byte, bool) {
	return b.inner.Sign(data)
}

func (b *Boxed) Timestamp() Timestamp {
	return b.inner.Timestamp()
}

func (b *Boxed) SleepUntil(deadline Timestamp) {
	b.inner.SleepUntil(deadline)
}

func (b *Boxed) RandomSeed() [32]byte {
	return b.inner.RandomSeed()
}

func (b *Boxed) LocalStorageSet(key, value []byte) {
	b.inner.LocalStorageSet(key, value)
}

func (b *Boxed) LocalStorageRead(key []byte) ([]byte, bool) {
	return b.inner.LocalStorageRead(key)
}

func (b *Boxed) HTTPRequestStart(method, uri string, meta []byte) (HTTPRequestID, error) {
	return b.inner.HTTPRequestStart(method, uri, meta)
}

func (b *Boxed) HTTPRequestAddHeader(id HTTPRequestID, name, value string) error {
	return b.inner.HTTPRequestAddHeader(id, name, value)
}

func (b *Boxed) HTTPRequestWriteBody(id HTTPRequestID, chunk []byte, deadline *Timestamp) error {
	return b.inner.HTTPRequestWriteBody(id, chunk, deadline)
}

func (b *Boxed) HTTPResponseWait(ids []HTTPRequestID, deadline *Timestamp) []HTTPRequestStatus {
	return b.inner.HTTPResponseWait(ids, deadline)
}

func (b *Boxed) HTTPResponseHeaders(id HTTPRequestID) []Header {
	return b.inner.HTTPResponseHeaders(id)
}

func (b *Boxed) HTTPResponseReadBody(id HTTPRequestID, buf []byte, deadline *Timestamp) (int, error) {
	return b.inner.HTTPResponseReadBody(id, buf, deadline)
}
