package host

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ahimsalabs/offchain-go/offchain"
)

func TestReapAbandoned(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("unread"))
	})
	clock := newFakeClock(time.Now())
	h := newTestHost(t, Options{Clock: clock, RetainResolved: time.Minute})

	never, err := h.HTTPRequestStart("GET", srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	unread := send(t, h, "GET", srv.URL, "")
	if got := h.HTTPResponseWait([]offchain.HTTPRequestID{unread}, nil); got[0] != offchain.Finished(200) {
		t.Fatalf("status = %v", got[0])
	}

	if n := h.reapAbandoned(); n != 0 {
		t.Fatalf("reaped %d fresh requests", n)
	}

	clock.Advance(2 * time.Minute)
	fresh, err := h.HTTPRequestStart("GET", srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	if n := h.reapAbandoned(); n != 2 {
		t.Errorf("reaped %d, want 2", n)
	}
	got := h.HTTPResponseWait([]offchain.HTTPRequestID{never, unread}, offchain.Deadline(0))
	for i, s := range got {
		if s != offchain.StatusUnknown {
			t.Errorf("status[%d] = %v, want unknown", i, s)
		}
	}
	if h.Outstanding() != 1 {
		t.Errorf("Outstanding = %d, want 1", h.Outstanding())
	}
	if err := h.HTTPRequestAddHeader(fresh, "X-Still", "here"); err != nil {
		t.Errorf("fresh request was reaped: %v", err)
	}
}

func TestReapLoopRuns(t *testing.T) {
	clock := newFakeClock(time.Now())
	h := newTestHost(t, Options{
		Clock:          clock,
		RetainResolved: time.Millisecond,
		ReapInterval:   10 * time.Millisecond,
	})

	if _, err := h.HTTPRequestStart("GET", "http://example.com", nil); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)
	waitOutstanding(t, h, 0)
}

func TestReapSparesActiveReader(t *testing.T) {
	payload := strings.Repeat("x", 100)
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, payload)
	})
	clock := newFakeClock(time.Now())
	h := newTestHost(t, Options{Clock: clock, RequestTimeout: -1, RetainResolved: time.Minute})

	id := send(t, h, "GET", srv.URL, "")
	if got := h.HTTPResponseWait([]offchain.HTTPRequestID{id}, nil); got[0] != offchain.Finished(200) {
		t.Fatalf("status = %v", got[0])
	}

	var sb strings.Builder
	buf := make([]byte, 10)
	for i := 0; i < 5; i++ {
		clock.Advance(40 * time.Second)
		if n := h.reapAbandoned(); n != 0 {
			t.Fatalf("sweep %d reaped a request that is still being read", i)
		}
		n, err := h.HTTPResponseReadBody(id, buf, nil)
		if err != nil || n == 0 {
			t.Fatalf("read %d: n=%d err=%v", i, n, err)
		}
		sb.Write(buf[:n])
	}
	sb.WriteString(readAll(t, h, id))
	if sb.String() != payload {
		t.Errorf("read %d bytes, want %d", sb.Len(), len(payload))
	}
}

func TestWaitReportsReapedRequestUnknown(t *testing.T) {
	clock := newFakeClock(time.Now())
	h := newTestHost(t, Options{Clock: clock, RetainResolved: time.Minute})

	id, err := h.HTTPRequestStart("GET", "http://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	got := make(chan offchain.HTTPRequestStatus, 1)
	go func() {
		got <- h.HTTPResponseWait([]offchain.HTTPRequestID{id}, nil)[0]
	}()
	time.Sleep(20 * time.Millisecond)

	clock.Advance(2 * time.Minute)
	if n := h.reapAbandoned(); n != 1 {
		t.Fatalf("reaped %d, want 1", n)
	}
	select {
	case s := <-got:
		if s != offchain.StatusUnknown {
			t.Errorf("status = %v, want unknown", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after the request was reaped")
	}
}
