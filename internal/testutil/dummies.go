// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fluenthttp/fluenthttp/internal/logging"
	"github.com/fluenthttp/fluenthttp/internal/transport"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── Transport ─────────────────────────────────────────────────────────

// DummyTransport implements transport.Transport with a canned result. It
// records every descriptor it was asked to execute.
type DummyTransport struct {
	mu sync.Mutex

	// Result and Err are returned from Do as-is. When both are nil, Do
	// answers a 200 with an empty body.
	Result *transport.Result
	Err    error

	Calls []*transport.Descriptor
}

func (t *DummyTransport) Do(_ context.Context, d *transport.Descriptor) (*transport.Result, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, d)
	t.mu.Unlock()

	if t.Err != nil {
		return nil, t.Err
	}
	if t.Result != nil {
		return t.Result, nil
	}
	return &transport.Result{
		StatusCode: 200,
		Headers:    http.Header{},
		FetchedAt:  time.Now(),
	}, nil
}

func (t *DummyTransport) Close() error { return nil }

// CannedJSON builds a DummyTransport answering every dispatch with the given
// status and JSON body.
func CannedJSON(status int, body string) *DummyTransport {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	return &DummyTransport{Result: &transport.Result{
		StatusCode: status,
		Headers:    headers,
		Body:       []byte(body),
		FetchedAt:  time.Now(),
	}}
}

// CallCount returns how many descriptors were dispatched.
func (t *DummyTransport) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
