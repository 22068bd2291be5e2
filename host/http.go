package host

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ahimsalabs/offchain-go/offchain"
	"golang.org/x/net/http/httpguts"
)

// maxRequestIDs is the size of the 16-bit id space.
const maxRequestIDs = 1 << 16

// HTTPRequestStart implements offchain.Externalities.
//
// The method must be an HTTP token and the URI an absolute http or https URL.
// meta is accepted and ignored.
func (h *Host) HTTPRequestStart(method, uri string, meta []byte) (offchain.HTTPRequestID, error) {
	if h.closed.Load() {
		return 0, h.fail("start", 0, "host closed")
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return 0, h.fail("start", 0, "invalid method", "method", method)
	}
	u, err := url.Parse(uri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return 0, h.fail("start", 0, "invalid uri", "uri", uri)
	}

	ctx, cancel := context.WithCancel(h.shutdownCtx)

	h.idMu.Lock()
	defer h.idMu.Unlock()

	if h.live >= h.maxRequests {
		cancel()
		return 0, h.fail("start", 0, "too many outstanding requests", "limit", h.maxRequests)
	}
	for i := 0; i < maxRequestIDs; i++ {
		id := offchain.HTTPRequestID(h.nextID)
		h.nextID++
		if _, taken := h.requests.Load(id); taken {
			continue
		}
		r := newRequest(ctx, cancel, id, method, u.String(), h.clock.Now())
		if h.requestTimeout > 0 {
			r.timer = time.AfterFunc(h.requestTimeout, r.expire)
		}
		h.requests.Store(id, r)
		h.live++
		return id, nil
	}
	cancel()
	return 0, h.fail("start", 0, "request id space exhausted")
}

// HTTPRequestAddHeader implements offchain.Externalities.
//
// Headers may only be added before the first body write; later calls fail.
func (h *Host) HTTPRequestAddHeader(id offchain.HTTPRequestID, name, value string) error {
	r, ok := h.requests.Load(id)
	if !ok {
		return h.fail("add header", id, "unknown request")
	}
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return h.fail("add header", id, "invalid header", "name", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateStarted || r.ctx.Err() != nil {
		return h.fail("add header", id, "headers already sent")
	}
	r.header.Add(name, value)
	return nil
}

// HTTPRequestWriteBody implements offchain.Externalities.
//
// The first call dispatches the request. A non-empty chunk blocks until the
// upstream connection consumed it or the deadline passes; a missed deadline
// abandons the request, which then resolves as StatusDeadlineReached. An
// empty chunk finalizes the body.
func (h *Host) HTTPRequestWriteBody(id offchain.HTTPRequestID, chunk []byte, deadline *offchain.Timestamp) error {
	r, ok := h.requests.Load(id)
	if !ok {
		return h.fail("write body", id, "unknown request")
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if r.state >= stateFinalized {
		r.mu.Unlock()
		return h.fail("write body", id, "request already finalized")
	}
	if err := r.ctx.Err(); err != nil {
		r.mu.Unlock()
		return h.fail("write body", id, "request cancelled", "error", err)
	}
	if r.state == stateStarted {
		if err := h.dispatch(r, len(chunk) == 0); err != nil {
			r.mu.Unlock()
			return h.fail("write body", id, "dispatch failed", "error", err)
		}
		if len(chunk) == 0 {
			r.mu.Unlock()
			return nil
		}
	}
	pw := r.pw
	if len(chunk) == 0 {
		r.state = stateFinalized
		r.mu.Unlock()
		if err := pw.Close(); err != nil {
			return h.fail("write body", id, "finalize failed", "error", err)
		}
		return nil
	}
	r.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		_, err := pw.Write(chunk)
		errc <- err
	}()

	timeout, stop := h.deadlineTimer(deadline)
	defer stop()

	select {
	case err := <-errc:
		if err != nil {
			return h.fail("write body", id, "upstream did not accept chunk", "error", err)
		}
		return nil
	case <-timeout:
		r.mu.Lock()
		r.deadlineMissed = true
		r.mu.Unlock()
		pw.CloseWithError(errDeadlineReached)
		r.cancel()
		<-errc
		return h.fail("write body", id, "deadline reached")
	case <-r.ctx.Done():
		pw.CloseWithError(r.ctx.Err())
		<-errc
		return h.fail("write body", id, "request cancelled", "error", r.ctx.Err())
	}
}

// dispatch builds the outbound request and starts the exchange. When
// finalized is true the request is sent without a body. Must be called with
// r.mu held.
func (h *Host) dispatch(r *request, finalized bool) error {
	var body io.ReadCloser = http.NoBody
	if !finalized {
		pr, pw := io.Pipe()
		body = pr
		r.pw = pw
	}

	req, err := http.NewRequestWithContext(r.ctx, r.method, r.uri, body)
	if err != nil {
		return err
	}
	req.Header = r.header.Clone()
	if finalized {
		req.ContentLength = 0
		r.state = stateFinalized
	} else {
		req.ContentLength = -1
		r.state = stateWriting
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.roundTrip(r, req)
	}()
	return nil
}

// roundTrip performs the exchange and resolves r with its outcome.
func (h *Host) roundTrip(r *request, req *http.Request) {
	start := time.Now()
	resp, err := h.client.Do(req)

	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	switch {
	case err == nil && r.timedOut:
		// The timeout fired between the head arriving and this point; the
		// body is already cut off.
		resp.Body.Close()
		r.status = offchain.StatusTimeout
		err = context.DeadlineExceeded
	case err == nil && (resp.StatusCode < 100 || resp.StatusCode > 999):
		resp.Body.Close()
		r.failed = true
		r.status = offchain.StatusUnknown
		err = errors.New("upstream status out of range")
	case err == nil:
		r.status = offchain.Finished(uint16(resp.StatusCode))
		r.resp = resp
		r.headers = flattenHeaders(resp.Header)
		r.body = make(chan bodyChunk)
	case r.deadlineMissed:
		r.status = offchain.StatusDeadlineReached
	case r.timedOut || isTimeout(err):
		r.status = offchain.StatusTimeout
	default:
		r.failed = true
		r.status = offchain.StatusUnknown
	}
	r.state = stateResolved
	r.lastActivity = h.clock.Now()
	resolved := r.resp
	r.mu.Unlock()
	close(r.done)

	if resolved != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			r.pumpBody(resp)
		}()
	}

	if err != nil {
		h.logger.Debug("host: http request did not finish",
			"id", r.id, "method", r.method, "uri", r.uri,
			"status", r.status, "duration", time.Since(start), "error", err)
	} else {
		h.logger.Debug("host: http response",
			"id", r.id, "method", r.method, "uri", r.uri,
			"status", r.status, "duration", time.Since(start))
	}

	if r.failed {
		h.release(r)
	}
}

// HTTPResponseWait implements offchain.Externalities.
//
// All ids share one deadline. The result is positionally aligned with ids.
func (h *Host) HTTPResponseWait(ids []offchain.HTTPRequestID, deadline *offchain.Timestamp) []offchain.HTTPRequestStatus {
	statuses := make([]offchain.HTTPRequestStatus, len(ids))

	timeout, stop := h.deadlineTimer(deadline)
	defer stop()

	expired := false
	for i, id := range ids {
		r, ok := h.requests.Load(id)
		if !ok {
			statuses[i] = offchain.StatusUnknown
			continue
		}
		if !expired && !r.resolved() {
			select {
			case <-r.done:
			case <-r.ctx.Done():
				// A dispatched exchange resolves promptly once its context ends.
				if r.dispatched() {
					select {
					case <-r.done:
					case <-timeout:
						expired = true
					}
				}
			case <-timeout:
				expired = true
			case <-h.shutdownCtx.Done():
				expired = true
			}
		}
		r.touch(h.clock.Now())
		statuses[i] = r.currentStatus()
	}
	return statuses
}

// HTTPResponseHeaders implements offchain.Externalities.
func (h *Host) HTTPResponseHeaders(id offchain.HTTPRequestID) []offchain.Header {
	r, ok := h.requests.Load(id)
	if !ok || !r.resolved() {
		return nil
	}
	r.touch(h.clock.Now())
	if len(r.headers) == 0 {
		return nil
	}
	out := make([]offchain.Header, len(r.headers))
	copy(out, r.headers)
	return out
}

// HTTPResponseReadBody implements offchain.Externalities.
//
// A return of 0 with a nil error marks the end of the body; the host then
// releases the request and its id becomes unknown. An empty buf returns 0
// without consuming anything.
func (h *Host) HTTPResponseReadBody(id offchain.HTTPRequestID, buf []byte, deadline *offchain.Timestamp) (int, error) {
	r, ok := h.requests.Load(id)
	if !ok {
		return 0, h.fail("read body", id, "unknown request")
	}

	r.readMu.Lock()
	defer r.readMu.Unlock()

	timeout, stop := h.deadlineTimer(deadline)
	defer stop()

	if !r.resolved() {
		select {
		case <-r.done:
		case <-r.ctx.Done():
			return 0, h.fail("read body", id, "request cancelled", "error", r.ctx.Err())
		case <-timeout:
			return 0, h.fail("read body", id, "deadline reached before response")
		}
	}
	if r.resp == nil {
		return 0, h.fail("read body", id, "no response", "status", r.status)
	}
	r.touch(h.clock.Now())
	if r.bodyErr != nil {
		return 0, h.fail("read body", id, "body failed", "error", r.bodyErr)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	if len(r.pending) == 0 && !r.eof {
		var chunk bodyChunk
		var open bool
		select {
		case chunk, open = <-r.body:
		default:
			// Nothing buffered; block for the next chunk.
			select {
			case chunk, open = <-r.body:
			case <-r.ctx.Done():
				return 0, h.fail("read body", id, "request cancelled", "error", r.ctx.Err())
			case <-timeout:
				return 0, h.fail("read body", id, "deadline reached")
			}
		}
		switch {
		case !open:
			r.eof = true
		case chunk.err != nil:
			r.bodyErr = chunk.err
			return 0, h.fail("read body", id, "connection closed abnormally", "error", chunk.err)
		default:
			r.pending = chunk.data
		}
	}

	if len(r.pending) == 0 && r.eof {
		h.release(r)
		return 0, nil
	}

	n := copy(buf, r.pending)
	r.pending = r.pending[n:]
	r.touch(h.clock.Now())
	return n, nil
}

// release forgets r, aborts any work still attached to it and frees its id.
func (h *Host) release(r *request) {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	pw := r.pw
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()

	r.cancel()
	if pw != nil {
		pw.CloseWithError(errReleased)
	}

	h.idMu.Lock()
	if cur, ok := h.requests.Load(r.id); ok && cur == r {
		h.requests.Delete(r.id)
		h.live--
	}
	h.idMu.Unlock()
}

// deadlineTimer returns a channel that fires when deadline passes, and a
// function to release the timer. A nil deadline yields a nil channel, which
// never fires.
func (h *Host) deadlineTimer(deadline *offchain.Timestamp) (<-chan time.Time, func()) {
	wait, ok := offchain.Remaining(deadline, h.now())
	if !ok {
		return nil, func() {}
	}
	t := time.NewTimer(wait)
	return t.C, func() { t.Stop() }
}

// fail logs why an operation failed and returns the opaque contract error.
func (h *Host) fail(op string, id offchain.HTTPRequestID, reason string, attrs ...any) error {
	args := append([]any{"op", op, "id", id, "reason", reason}, attrs...)
	h.logger.Debug("host: http operation failed", args...)
	return offchain.ErrFail
}

// isTimeout reports whether err came from a request running out of time.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
