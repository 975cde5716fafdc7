package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/fluenthttp/fluenthttp/internal/logging"
)

// net/http backed implementation of Transport.
type NetHTTPTransport struct {
	client *http.Client
	logger logging.Logger
}

// NewNetHTTPTransport builds the default transport. httpClient may be nil, in
// which case a client with a 30s timeout is constructed. Descriptors that need
// TLS material, redirect caps or a cookie jar get a derived client per call.
func NewNetHTTPTransport(cfg Config, logger logging.Logger, httpClient *http.Client) (Transport, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	componentLogger := logger.With(logging.Field{Key: "backend", Value: "nethttp"})

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	componentLogger.Debug("created nethttp transport",
		logging.Field{Key: "timeout", Value: httpClient.Timeout.String()})

	return &NetHTTPTransport{
		client: httpClient,
		logger: componentLogger,
	}, nil
}

// Do executes the descriptor, honoring every field on it.
func (t *NetHTTPTransport) Do(ctx context.Context, d *Descriptor) (*Result, error) {
	if d == nil {
		return nil, fmt.Errorf("nil descriptor")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(d.Method)

	t.logger.Debug("sending http request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: d.URL})

	fullURL, err := buildURL(d)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	client, err := t.clientFor(d)
	if err != nil {
		return nil, err
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	attempts := d.Retry.Count + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if d.Retry.OnRetry != nil {
				d.Retry.OnRetry(attempt, lastErr)
			}
			t.logger.Debug("retrying http request",
				logging.Field{Key: "attempt", Value: attempt},
				logging.Field{Key: "url", Value: d.URL})
		}

		res, err := t.doOnce(ctx, client, method, fullURL, d)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	t.logger.Warn("http request failed",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: d.URL},
		logging.Field{Key: "error", Value: lastErr.Error()})
	return nil, lastErr
}

func (t *NetHTTPTransport) doOnce(ctx context.Context, client *http.Client, method, fullURL string, d *Descriptor) (*Result, error) {
	bodyReader, contentType, err := buildBody(d)
	if err != nil {
		return nil, fmt.Errorf("build body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range d.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		FetchedAt:  time.Now(),
	}, nil
}

// clientFor derives an *http.Client for descriptors that cannot be served by
// the shared base client. The base client is reused whenever possible.
func (t *NetHTTPTransport) clientFor(d *Descriptor) (*http.Client, error) {
	needsDerived := d.TLS != nil || d.RedirectLimit >= 0 || d.UseCookieJar || d.ResponseTimeout > 0
	if !needsDerived {
		return t.client, nil
	}

	derived := &http.Client{Timeout: t.client.Timeout}

	var baseTransport *http.Transport
	if ht, ok := t.client.Transport.(*http.Transport); ok {
		baseTransport = ht.Clone()
	} else {
		baseTransport = http.DefaultTransport.(*http.Transport).Clone()
	}

	if d.TLS != nil {
		tlsCfg, err := d.TLS.build()
		if err != nil {
			return nil, err
		}
		baseTransport.TLSClientConfig = tlsCfg
	}
	if d.ResponseTimeout > 0 {
		baseTransport.ResponseHeaderTimeout = d.ResponseTimeout
	}
	derived.Transport = baseTransport

	if d.RedirectLimit == 0 {
		derived.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if d.RedirectLimit > 0 {
		limit := d.RedirectLimit
		derived.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) > limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	}

	if d.UseCookieJar {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		derived.Jar = jar
	}

	return derived, nil
}

func (t *NetHTTPTransport) Close() error {
	t.logger.Debug("closing nethttp transport")
	return nil
}

// HTTPClient returns the underlying base *http.Client.
func (t *NetHTTPTransport) HTTPClient() *http.Client {
	return t.client
}

func (c *TLSConfig) build() (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: c.InsecureSkipVerify} //nolint:gosec // caller opted in
	if len(c.CertPEM) > 0 || len(c.KeyPEM) > 0 {
		cert, err := tls.X509KeyPair(c.CertPEM, c.KeyPEM)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if len(c.CAPEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(c.CAPEM) {
			return nil, fmt.Errorf("no certificates parsed from CA bundle")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func buildURL(d *Descriptor) (string, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range d.Query {
		q.Set(k, v)
	}
	if d.RawQuery != "" {
		extra, err := url.ParseQuery(d.RawQuery)
		if err != nil {
			return "", fmt.Errorf("parse raw query: %w", err)
		}
		for k, vs := range extra {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// buildBody returns the request body reader and, for multipart content, the
// content type carrying the boundary.
func buildBody(d *Descriptor) (io.Reader, string, error) {
	if len(d.FormFields) == 0 && len(d.Attachments) == 0 {
		if len(d.Body) == 0 {
			return nil, "", nil
		}
		return bytes.NewReader(d.Body), "", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range d.FormFields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write form field %q: %w", k, err)
		}
	}
	for _, att := range d.Attachments {
		name := att.FileName
		if name == "" {
			name = filepath.Base(att.Path)
		}
		part, err := w.CreateFormFile(att.FieldName, name)
		if err != nil {
			return nil, "", fmt.Errorf("create form file %q: %w", att.FieldName, err)
		}
		content := att.Content
		if content == nil {
			content, err = os.ReadFile(att.Path)
			if err != nil {
				return nil, "", fmt.Errorf("read attachment %q: %w", att.Path, err)
			}
		}
		if _, err := part.Write(content); err != nil {
			return nil, "", fmt.Errorf("write attachment %q: %w", att.FieldName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
