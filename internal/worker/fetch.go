// Package worker runs periodic fetch tasks through an offchain.Externalities.
//
// Task code here never touches net/http, storage or keys directly; every side
// effect goes through the contract so the same code runs against the real
// host or a test double.
package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/ahimsalabs/offchain-go/offchain"
)

const (
	// writeChunkSize is the largest slice handed to one HTTPRequestWriteBody call.
	writeChunkSize = 16 * 1024

	// readBufSize is the buffer used for each HTTPResponseReadBody call.
	readBufSize = 4 * 1024

	// DefaultMaxBodySize bounds how much of a response a task will keep.
	DefaultMaxBodySize = 1 << 20
)

var (
	// ErrUnfinished is returned when a request resolved without an HTTP status.
	ErrUnfinished = errors.New("worker: request did not finish")

	// ErrBodyTooLarge is returned when a response exceeds the task's MaxBodySize.
	ErrBodyTooLarge = errors.New("worker: response body too large")

	// ErrNoSigner is returned when a task submits but the host cannot sign.
	ErrNoSigner = errors.New("worker: signing unavailable")
)

// Task describes one outbound fetch.
type Task struct {
	ID      string
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte

	// StorageKey is where the latest response body is kept in local storage.
	StorageKey []byte

	// Interval between runs of the task.
	Interval offchain.Duration

	// Timeout bounds the whole exchange, from start to the last body byte.
	Timeout offchain.Duration

	// MaxBodySize limits the response size. Default: DefaultMaxBodySize.
	MaxBodySize int

	// Submit makes the task submit a signed Record as a transaction.
	Submit bool
}

// Record is the signed payload a task produces for each successful fetch.
type Record struct {
	Task      string `json:"task"`
	FetchedAt uint64 `json:"fetched_at"`
	Status    uint32 `json:"status"`
	Body      []byte `json:"body"`
}

// Result is the outcome of one Fetch.
type Result struct {
	Record    Record
	Headers   []offchain.Header
	Signature [64]byte
	Signed    bool
}

// Transaction is the encoded form handed to SubmitTransaction.
type Transaction struct {
	Record    Record `json:"record"`
	Signature []byte `json:"signature"`
}

// Fetch performs task once: it sends the request, reads the response, stores
// the body, signs the record and, if requested, submits it.
func Fetch(ext offchain.Externalities, task Task) (*Result, error) {
	deadline := offchain.Deadline(ext.Timestamp().Add(task.Timeout))

	id, err := ext.HTTPRequestStart(task.Method, task.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("worker: start %s %s: %w", task.Method, task.URL, err)
	}

	names := make([]string, 0, len(task.Headers))
	for name := range task.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ext.HTTPRequestAddHeader(id, name, task.Headers[name]); err != nil {
			return nil, fmt.Errorf("worker: header %q: %w", name, err)
		}
	}

	for body := task.Body; len(body) > 0; {
		n := min(len(body), writeChunkSize)
		if err := ext.HTTPRequestWriteBody(id, body[:n], deadline); err != nil {
			return nil, fmt.Errorf("worker: write body: %w", err)
		}
		body = body[n:]
	}
	if err := ext.HTTPRequestWriteBody(id, nil, deadline); err != nil {
		return nil, fmt.Errorf("worker: finalize body: %w", err)
	}

	status := ext.HTTPResponseWait([]offchain.HTTPRequestID{id}, deadline)[0]
	if !status.IsFinished() {
		return nil, fmt.Errorf("worker: %s: %w", status, ErrUnfinished)
	}

	headers := ext.HTTPResponseHeaders(id)
	body, err := readBody(ext, id, deadline, task.maxBodySize())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Record: Record{
			Task:      task.ID,
			FetchedAt: ext.Timestamp().UnixMillis(),
			Status:    status.Uint32(),
			Body:      body,
		},
		Headers: headers,
	}

	ext.LocalStorageSet(task.StorageKey, body)
	ext.LocalStorageSet(fetchedAtKey(task.StorageKey), []byte(strconv.FormatUint(res.Record.FetchedAt, 10)))

	payload, err := json.Marshal(res.Record)
	if err != nil {
		return nil, fmt.Errorf("worker: encode record: %w", err)
	}
	res.Signature, res.Signed = ext.Sign(payload)

	if task.Submit {
		if !res.Signed {
			return res, ErrNoSigner
		}
		tx, err := json.Marshal(Transaction{Record: res.Record, Signature: res.Signature[:]})
		if err != nil {
			return res, fmt.Errorf("worker: encode transaction: %w", err)
		}
		if err := ext.SubmitTransaction(tx); err != nil {
			return res, fmt.Errorf("worker: submit: %w", err)
		}
	}

	return res, nil
}

// readBody drains the response body of id until the end-of-body marker.
func readBody(ext offchain.Externalities, id offchain.HTTPRequestID, deadline *offchain.Timestamp, limit int) ([]byte, error) {
	var body []byte
	buf := make([]byte, readBufSize)
	for {
		n, err := ext.HTTPResponseReadBody(id, buf, deadline)
		if err != nil {
			return nil, fmt.Errorf("worker: read body: %w", err)
		}
		if n == 0 {
			return body, nil
		}
		if len(body)+n > limit {
			return nil, fmt.Errorf("worker: more than %d bytes: %w", limit, ErrBodyTooLarge)
		}
		body = append(body, buf[:n]...)
	}
}

func (t Task) maxBodySize() int {
	if t.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return t.MaxBodySize
}

// fetchedAtKey is the local storage key holding the time of the last fetch.
func fetchedAtKey(key []byte) []byte {
	out := make([]byte, 0, len(key)+len(":fetched_at"))
	out = append(out, key...)
	return append(out, ":fetched_at"...)
}

// LastFetched returns when task last completed, according to local storage.
func LastFetched(ext offchain.Externalities, task Task) (offchain.Timestamp, bool) {
	raw, ok := ext.LocalStorageRead(fetchedAtKey(task.StorageKey))
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return offchain.TimestampFromUnixMillis(ms), true
}
