package host

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ahimsalabs/offchain-go/offchain"
)

// requestState tracks where a request is in its lifecycle.
type requestState int

const (
	stateStarted   requestState = iota // accepting headers, nothing sent yet
	stateWriting                       // dispatched, body streaming
	stateFinalized                     // body complete, awaiting response head
	stateResolved                      // status known
)

var (
	errDeadlineReached = errors.New("host: write deadline reached")
	errReleased        = errors.New("host: request released")
)

// bodyChunkSize is the maximum size of one chunk pumped from a response body.
const bodyChunkSize = 32 * 1024

// bodyChunk is one read from an upstream response body.
type bodyChunk struct {
	data []byte
	err  error
}

// request is the host-side record behind one HTTPRequestID.
type request struct {
	id     offchain.HTTPRequestID
	method string
	uri    string

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the fields below until done is closed. After that the
	// resolution fields (status, resp, headers, body) are immutable.
	mu             sync.Mutex
	state          requestState
	header         http.Header
	pw             *io.PipeWriter
	deadlineMissed bool
	timedOut       bool
	timer          *time.Timer // RequestTimeout, stopped once the response head is in
	startedAt      time.Time
	lastActivity   time.Time // resolution, then the latest wait, headers or read
	released       bool

	done    chan struct{} // closed once status is final
	status  offchain.HTTPRequestStatus
	failed  bool
	resp    *http.Response
	headers []offchain.Header
	body    chan bodyChunk // closed by the pump at end of body

	// writeMu serializes body writes; readMu serializes body reads.
	writeMu sync.Mutex
	readMu  sync.Mutex
	pending []byte // unread remainder of the last chunk, guarded by readMu
	eof     bool   // guarded by readMu
	bodyErr error  // guarded by readMu
}

func newRequest(ctx context.Context, cancel context.CancelFunc, id offchain.HTTPRequestID, method, uri string, now time.Time) *request {
	return &request{
		id:        id,
		method:    method,
		uri:       uri,
		ctx:       ctx,
		cancel:    cancel,
		state:     stateStarted,
		header:    make(http.Header),
		startedAt: now,
		done:      make(chan struct{}),
	}
}

// resolved reports whether the request status is final.
func (r *request) resolved() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// dispatched reports whether the exchange has been handed to the HTTP client.
func (r *request) dispatched() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != stateStarted
}

// currentStatus returns the final status, StatusUnknown once the request has
// been released, or StatusTimeout if it has not resolved yet.
func (r *request) currentStatus() offchain.HTTPRequestStatus {
	r.mu.Lock()
	released := r.released
	r.mu.Unlock()
	switch {
	case released:
		return offchain.StatusUnknown
	case r.resolved():
		return r.status
	default:
		return offchain.StatusTimeout
	}
}

// touch records caller activity on a resolved request.
func (r *request) touch(now time.Time) {
	r.mu.Lock()
	if r.state == stateResolved && now.After(r.lastActivity) {
		r.lastActivity = now
	}
	r.mu.Unlock()
}

// expire aborts the request if its response head has not arrived yet.
func (r *request) expire() {
	r.mu.Lock()
	if r.state == stateResolved {
		r.mu.Unlock()
		return
	}
	r.timedOut = true
	r.mu.Unlock()
	r.cancel()
}

// flattenHeaders converts h into one pair per value, ordered by name.
func flattenHeaders(h http.Header) []offchain.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []offchain.Header
	for _, name := range names {
		for _, value := range h[name] {
			out = append(out, offchain.Header{
				Name:  []byte(name),
				Value: []byte(value),
			})
		}
	}
	return out
}

// pumpBody copies the response body into r.body chunk by chunk.
// r.body is closed only after a clean EOF or after delivering an error; on
// cancellation the pump just stops, and readers observe r.ctx instead.
func (r *request) pumpBody(resp *http.Response) {
	defer resp.Body.Close()

	for {
		buf := make([]byte, bodyChunkSize)
		n, err := resp.Body.Read(buf)
		if n > 0 {
			select {
			case r.body <- bodyChunk{data: buf[:n]}:
			case <-r.ctx.Done():
				return
			}
		}
		if err == io.EOF {
			close(r.body)
			return
		}
		if err != nil {
			select {
			case r.body <- bodyChunk{err: err}:
				close(r.body)
			case <-r.ctx.Done():
			}
			return
		}
	}
}
