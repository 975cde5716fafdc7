package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fluenthttp/fluenthttp/internal/transport"
)

// Response is the resolved outcome of a dispatched Request. It is populated
// exactly once, when a terminal operation resolves.
type Response struct {
	statusCode int
	headers    http.Header
	body       []byte
	fetchedAt  time.Time
}

func newResponse(res *transport.Result) *Response {
	return &Response{
		statusCode: res.StatusCode,
		headers:    res.Headers,
		body:       res.Body,
		fetchedAt:  res.FetchedAt,
	}
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.statusCode }

// Headers returns the response headers.
func (r *Response) Headers() http.Header { return r.headers }

// Body returns the raw response body.
func (r *Response) Body() []byte { return r.body }

// Text returns the response body as a string.
func (r *Response) Text() string { return string(r.body) }

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string { return r.headers.Get("Content-Type") }

// FetchedAt returns when the response was received.
func (r *Response) FetchedAt() time.Time { return r.fetchedAt }

// IsOK reports a 2xx status.
func (r *Response) IsOK() bool { return r.statusCode >= 200 && r.statusCode < 300 }

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool { return r.statusCode >= 400 && r.statusCode < 500 }

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool { return r.statusCode >= 500 && r.statusCode < 600 }

// IsUnauthorized reports a 401 status.
func (r *Response) IsUnauthorized() bool { return r.statusCode == http.StatusUnauthorized }

// JSON unmarshals the body into v.
func (r *Response) JSON(v interface{}) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("unmarshal response body: %w", err)
	}
	return nil
}

// HTML parses the body as an HTML document for element queries.
func (r *Response) HTML() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.body))
	if err != nil {
		return nil, fmt.Errorf("parse response html: %w", err)
	}
	return doc, nil
}

// --- post-dispatch accessors on Request ---

// Response returns the recorded Response, or ErrNoResponse before a terminal
// operation has resolved.
func (r *Request) Response() (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.response == nil {
		return nil, ErrNoResponse
	}
	return r.response, nil
}

// ResponseBody returns the recorded body bytes.
func (r *Request) ResponseBody() ([]byte, error) {
	resp, err := r.Response()
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// ResponseText returns the recorded body as a string.
func (r *Request) ResponseText() (string, error) {
	resp, err := r.Response()
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// ResponseHeaders returns the recorded headers.
func (r *Request) ResponseHeaders() (http.Header, error) {
	resp, err := r.Response()
	if err != nil {
		return nil, err
	}
	return resp.Headers(), nil
}

// ResponseStatusCode returns the recorded status code.
func (r *Request) ResponseStatusCode() (int, error) {
	resp, err := r.Response()
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// ResponseContentType returns the recorded Content-Type header.
func (r *Request) ResponseContentType() (string, error) {
	resp, err := r.Response()
	if err != nil {
		return "", err
	}
	return resp.ContentType(), nil
}

// ResponseJSON unmarshals the recorded body into v.
func (r *Request) ResponseJSON(v interface{}) error {
	resp, err := r.Response()
	if err != nil {
		return err
	}
	return resp.JSON(v)
}

// PipeResponseToFile writes the recorded body to path. The file handle is
// always closed, on success and on failure.
func (r *Request) PipeResponseToFile(path string) error {
	resp, err := r.Response()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, bytes.NewReader(resp.Body())); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Sync()
}
