package offchain

import (
	"log/slog"
	"time"
)

// Middleware wraps an Externalities with additional behavior.
type Middleware func(Externalities) Externalities

// Chain combines multiple middleware into a single middleware.
// Middleware is applied in order: Chain(a, b, c)(e) == a(b(c(e))).
//
// Example:
//
//	ext := Chain(
//	    WithLogging(logger),
//	    myMetrics,
//	)(host)
func Chain(middlewares ...Middleware) Middleware {
	return func(next Externalities) Externalities {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// WithLogging wraps an Externalities with per-call logging.
// Successful calls log at debug level, failed calls at error level.
//
// Example:
//
//	ext := WithLogging(slog.Default())(host)
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Externalities) Externalities {
		return &loggingExternalities{next: next, logger: logger}
	}
}

type loggingExternalities struct {
	next   Externalities
	logger *slog.Logger
}

func (e *loggingExternalities) SubmitTransaction(tx []byte) error {
	start := time.Now()
	err := e.next.SubmitTransaction(tx)
	e.log("SubmitTransaction", start, err, "size", len(tx))
	return err
}

func (e *loggingExternalities) Sign(data []byte) ([64]byte, bool) {
	start := time.Now()
	sig, ok := e.next.Sign(data)
	e.log("Sign", start, nil, "available", ok)
	return sig, ok
}

func (e *loggingExternalities) Timestamp() Timestamp {
	return e.next.Timestamp()
}

func (e *loggingExternalities) SleepUntil(deadline Timestamp) {
	start := time.Now()
	e.next.SleepUntil(deadline)
	e.log("SleepUntil", start, nil, "deadline", uint64(deadline))
}

func (e *loggingExternalities) RandomSeed() [32]byte {
	return e.next.RandomSeed()
}

func (e *loggingExternalities) LocalStorageSet(key, value []byte) {
	start := time.Now()
	e.next.LocalStorageSet(key, value)
	e.log("LocalStorageSet", start, nil, "key", string(key), "size", len(value))
}

func (e *loggingExternalities) LocalStorageRead(key []byte) ([]byte, bool) {
	start := time.Now()
	value, ok := e.next.LocalStorageRead(key)
	e.log("LocalStorageRead", start, nil, "key", string(key), "found", ok)
	return value, ok
}

func (e *loggingExternalities) HTTPRequestStart(method, uri string, meta []byte) (HTTPRequestID, error) {
	start := time.Now()
	id, err := e.next.HTTPRequestStart(method, uri, meta)
	e.log("HTTPRequestStart", start, err, "method", method, "uri", uri, "id", id)
	return id, err
}

func (e *loggingExternalities) HTTPRequestAddHeader(id HTTPRequestID, name, value string) error {
	start := time.Now()
	err := e.next.HTTPRequestAddHeader(id, name, value)
	e.log("HTTPRequestAddHeader", start, err, "id", id, "name", name)
	return err
}

func (e *loggingExternalities) HTTPRequestWriteBody(id HTTPRequestID, chunk []byte, deadline *Timestamp) error {
	start := time.Now()
	err := e.next.HTTPRequestWriteBody(id, chunk, deadline)
	e.log("HTTPRequestWriteBody", start, err, "id", id, "size", len(chunk))
	return err
}

func (e *loggingExternalities) HTTPResponseWait(ids []HTTPRequestID, deadline *Timestamp) []HTTPRequestStatus {
	start := time.Now()
	statuses := e.next.HTTPResponseWait(ids, deadline)
	e.log("HTTPResponseWait", start, nil, "ids", ids, "statuses", statuses)
	return statuses
}

func (e *loggingExternalities) HTTPResponseHeaders(id HTTPRequestID) []Header {
	headers := e.next.HTTPResponseHeaders(id)
	e.logger.Debug("offchain call", "op", "HTTPResponseHeaders", "id", id, "count", len(headers))
	return headers
}

func (e *loggingExternalities) HTTPResponseReadBody(id HTTPRequestID, buf []byte, deadline *Timestamp) (int, error) {
	start := time.Now()
	n, err := e.next.HTTPResponseReadBody(id, buf, deadline)
	e.log("HTTPResponseReadBody", start, err, "id", id, "n", n)
	return n, err
}

func (e *loggingExternalities) log(op string, start time.Time, err error, attrs ...any) {
	args := append([]any{"op", op, "duration", time.Since(start)}, attrs...)
	if err != nil {
		e.logger.Error("offchain call failed", append(args, "error", err)...)
		return
	}
	e.logger.Debug("offchain call", args...)
}
