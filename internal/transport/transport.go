// Package transport executes fully-described HTTP requests. It is the layer
// underneath the fluent request builder: the builder accumulates a Descriptor,
// the transport turns it into real network I/O.
package transport

import (
	"context"
	"net/http"
	"time"
)

// Transport executes one Descriptor and returns the raw outcome.
type Transport interface {
	Do(ctx context.Context, d *Descriptor) (*Result, error)

	Close() error
}

// Descriptor is the complete description of one outgoing HTTP request.
// All fields are plain data; the transport owns the mapping to net/http.
type Descriptor struct {
	Method string
	URL    string

	Headers  http.Header
	Query    map[string]string
	RawQuery string

	Body []byte

	// Multipart form content. When either is non-empty the body is encoded
	// as multipart/form-data and Body is ignored.
	FormFields  map[string]string
	Attachments []Attachment

	TLS *TLSConfig

	// Timeout bounds the whole exchange; ResponseTimeout bounds only the wait
	// for response headers. Zero means no limit at that level.
	Timeout         time.Duration
	ResponseTimeout time.Duration

	Retry RetryPolicy

	// RedirectLimit caps followed redirects. Negative means the net/http
	// default; zero disables following and returns the redirect response.
	RedirectLimit int

	// UseCookieJar enables an in-memory cookie jar for the exchange, so
	// redirect chains and retries carry cookies.
	UseCookieJar bool
}

// Attachment is one multipart file part. Content wins over Path; when Content
// is nil the file at Path is opened at send time.
type Attachment struct {
	FieldName string
	FileName  string
	Path      string
	Content   []byte
}

// TLSConfig carries client certificate material for mutual TLS plus an
// optional CA bundle for server verification.
type TLSConfig struct {
	CertPEM []byte
	KeyPEM  []byte
	CAPEM   []byte

	InsecureSkipVerify bool
}

// RetryPolicy retries the whole exchange on transport errors. Count is the
// number of retries after the first attempt. OnRetry, when set, is invoked
// before each retry with the attempt number (starting at 1) and the error
// that caused it.
type RetryPolicy struct {
	Count   int
	OnRetry func(attempt int, err error)
}

// Result is the raw outcome of a dispatched Descriptor.
type Result struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	FetchedAt  time.Time
}
