// Package request provides a fluent, chainable HTTP request builder with
// response assertions. A Request is bound to one endpoint and method at
// construction, configured and asserted through chainable calls, then
// dispatched exactly once through a terminal operation (Done or End).
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fluenthttp/fluenthttp/internal/logging"
	"github.com/fluenthttp/fluenthttp/internal/transport"
)

var supportedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPatch:   {},
	http.MethodPut:     {},
	http.MethodDelete:  {},
	http.MethodHead:    {},
	http.MethodOptions: {},
	http.MethodTrace:   {},
}

// Request owns exactly one request descriptor for its lifetime. Configuration
// methods mutate the descriptor in place and return the same Request so calls
// can be chained. Endpoint and method are fixed at construction.
type Request struct {
	desc   *transport.Descriptor
	tr     transport.Transport
	logger logging.Logger

	expectations []expectation

	// buildErr records the first error hit while chaining (for example a JSON
	// body that cannot be marshaled); it is surfaced at dispatch time.
	buildErr error

	mu         sync.Mutex
	dispatched bool
	response   *Response
	cancel     context.CancelFunc
}

// New constructs a Request bound to endpoint and method. The method must be
// one of GET, POST, PATCH, PUT, DELETE, HEAD, OPTIONS or TRACE.
func New(endpoint, method string) (*Request, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if _, ok := supportedMethods[m]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	return &Request{
		desc: &transport.Descriptor{
			Method:        m,
			URL:           endpoint,
			Headers:       http.Header{},
			Query:         map[string]string{},
			RedirectLimit: -1,
		},
		logger: logging.Nop(),
	}, nil
}

// Endpoint returns the immutable endpoint the Request was constructed with.
func (r *Request) Endpoint() string { return r.desc.URL }

// Method returns the immutable HTTP method the Request was constructed with.
func (r *Request) Method() string { return r.desc.Method }

func (r *Request) fail(err error) *Request {
	if r.buildErr == nil {
		r.buildErr = err
	}
	return r
}

// --- header and query configuration ---

// Header sets one request header.
func (r *Request) Header(key, value string) *Request {
	r.desc.Headers.Set(key, value)
	return r
}

// Headers sets every header in the map.
func (r *Request) Headers(headers map[string]string) *Request {
	for k, v := range headers {
		r.desc.Headers.Set(k, v)
	}
	return r
}

// Query sets one query parameter.
func (r *Request) Query(key, value string) *Request {
	r.desc.Query[key] = value
	return r
}

// Queries sets every query parameter in the map.
func (r *Request) Queries(params map[string]string) *Request {
	for k, v := range params {
		r.desc.Query[k] = v
	}
	return r
}

// QueryString appends a raw, pre-encoded query string ("a=1&b=2").
func (r *Request) QueryString(raw string) *Request {
	if r.desc.RawQuery != "" {
		r.desc.RawQuery += "&"
	}
	r.desc.RawQuery += raw
	return r
}

// --- body configuration ---

// Body sets a raw string body.
func (r *Request) Body(body string) *Request {
	r.desc.Body = []byte(body)
	return r
}

// BodyBytes sets a raw binary body.
func (r *Request) BodyBytes(body []byte) *Request {
	r.desc.Body = body
	return r
}

// JSON serializes v as the request body and sets the JSON content type.
func (r *Request) JSON(v interface{}) *Request {
	data, err := json.Marshal(v)
	if err != nil {
		return r.fail(fmt.Errorf("marshal json body: %w", err))
	}
	r.desc.Body = data
	r.desc.Headers.Set("Content-Type", "application/json")
	return r
}

// Form sets a URL-encoded form body.
func (r *Request) Form(fields map[string]string) *Request {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	r.desc.Body = []byte(values.Encode())
	r.desc.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// Field adds one multipart form field. Any multipart content switches the
// body encoding to multipart/form-data.
func (r *Request) Field(key, value string) *Request {
	if r.desc.FormFields == nil {
		r.desc.FormFields = map[string]string{}
	}
	r.desc.FormFields[key] = value
	return r
}

// Attach adds a multipart file part read from path at send time.
func (r *Request) Attach(fieldName, path string) *Request {
	r.desc.Attachments = append(r.desc.Attachments, transport.Attachment{
		FieldName: fieldName,
		Path:      path,
	})
	return r
}

// AttachBytes adds a multipart file part with in-memory content.
func (r *Request) AttachBytes(fieldName, fileName string, content []byte) *Request {
	r.desc.Attachments = append(r.desc.Attachments, transport.Attachment{
		FieldName: fieldName,
		FileName:  fileName,
		Content:   content,
	})
	return r
}

// --- auth configuration ---

// Authorization sets the Authorization header to "<scheme> <credentials>".
func (r *Request) Authorization(scheme, credentials string) *Request {
	r.desc.Headers.Set("Authorization", scheme+" "+credentials)
	return r
}

// BasicAuth sets Basic credentials from a username and password.
func (r *Request) BasicAuth(username, password string) *Request {
	token := basicToken(username, password)
	return r.Authorization("Basic", token)
}

// BearerToken sets a Bearer token.
func (r *Request) BearerToken(token string) *Request {
	return r.Authorization("Bearer", token)
}

// DigestToken passes a pre-computed Digest credential through unchanged.
func (r *Request) DigestToken(token string) *Request {
	return r.Authorization("Digest", token)
}

// --- TLS configuration ---

func (r *Request) tlsConfig() *transport.TLSConfig {
	if r.desc.TLS == nil {
		r.desc.TLS = &transport.TLSConfig{}
	}
	return r.desc.TLS
}

// TLSCert sets the client certificate and key (PEM) for mutual TLS.
func (r *Request) TLSCert(certPEM, keyPEM []byte) *Request {
	cfg := r.tlsConfig()
	cfg.CertPEM = certPEM
	cfg.KeyPEM = keyPEM
	return r
}

// CACert sets the CA bundle (PEM) used to verify the server.
func (r *Request) CACert(caPEM []byte) *Request {
	r.tlsConfig().CAPEM = caPEM
	return r
}

// InsecureSkipVerify disables server certificate verification.
func (r *Request) InsecureSkipVerify() *Request {
	r.tlsConfig().InsecureSkipVerify = true
	return r
}

// --- timeout, retry, redirect, cookies ---

// Timeout bounds the whole exchange.
func (r *Request) Timeout(d time.Duration) *Request {
	r.desc.Timeout = d
	return r
}

// ResponseTimeout bounds only the wait for response headers.
func (r *Request) ResponseTimeout(d time.Duration) *Request {
	r.desc.ResponseTimeout = d
	return r
}

// Retry retries the exchange on transport errors up to count times. onRetry,
// when non-nil, runs before each retry with the attempt number and the error
// that caused it.
func (r *Request) Retry(count int, onRetry func(attempt int, err error)) *Request {
	r.desc.Retry = transport.RetryPolicy{Count: count, OnRetry: onRetry}
	return r
}

// RedirectLimit caps followed redirects; zero returns redirects unfollowed.
func (r *Request) RedirectLimit(limit int) *Request {
	r.desc.RedirectLimit = limit
	return r
}

// CookieJar enables an in-memory cookie jar for the exchange.
func (r *Request) CookieJar() *Request {
	r.desc.UseCookieJar = true
	return r
}

// --- injection ---

// WithLogger injects a logger used for dispatch observability. It has no
// effect on request semantics.
func (r *Request) WithLogger(logger logging.Logger) *Request {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithTransport injects the transport used at dispatch time. Without it a
// nethttp transport is constructed from the backend registry.
func (r *Request) WithTransport(tr transport.Transport) *Request {
	r.tr = tr
	return r
}

// basicToken produces the RFC 7617 credential for a username and password.
func basicToken(username, password string) string {
	req := http.Request{Header: http.Header{}}
	req.SetBasicAuth(username, password)
	return strings.TrimPrefix(req.Header.Get("Authorization"), "Basic ")
}
