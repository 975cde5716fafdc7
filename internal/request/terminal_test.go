package request_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluenthttp/fluenthttp/internal/request"
)

// ─── Real round-trips ──────────────────────────────────────────────────

func TestDone_RecordsResponse(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Custom", "hello")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer ts.Close()

	r, err := request.New(ts.URL, "GET")
	require.NoError(t, err)

	resp, err := r.Done(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, resp.StatusCode())
	assert.Equal(t, "short and stout", resp.Text())
	assert.Equal(t, "text/plain", resp.ContentType())
	assert.True(t, resp.IsClientError())
	assert.False(t, resp.IsOK())

	// accessors mirror the recorded response
	code, err := r.ResponseStatusCode()
	require.NoError(t, err)
	assert.Equal(t, resp.StatusCode(), code)

	headers, err := r.ResponseHeaders()
	require.NoError(t, err)
	assert.Equal(t, "hello", headers.Get("X-Custom"))
}

func TestDone_MockedUserLookup(t *testing.T) {
	t.Parallel()
	user := map[string]interface{}{"name": "Krishna", "age": 21, "address": "Homeless"}
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	handler := httphelpers.HandlerWithResponse(200, headers,
		[]byte(`{"name":"Krishna","age":21,"address":"Homeless"}`))
	rh, requestsCh := httphelpers.RecordingHandler(handler)

	ts := httptest.NewServer(rh)
	defer ts.Close()

	r, err := request.New(ts.URL+"/user", "GET")
	require.NoError(t, err)

	resp, err := r.
		ExpectStatus(200).
		ExpectBody(user).
		Done(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode())

	var got map[string]interface{}
	require.NoError(t, resp.JSON(&got))
	assert.Equal(t, "Krishna", got["name"])
	assert.Equal(t, float64(21), got["age"])

	info := <-requestsCh
	assert.Equal(t, "GET", info.Request.Method)
}

func TestExpectStatus_MismatchRejects(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	defer ts.Close()

	r, err := request.New(ts.URL, "GET")
	require.NoError(t, err)

	_, err = r.ExpectStatus(404).Done(context.Background())
	require.Error(t, err)

	var expErr *request.ExpectationError
	require.ErrorAs(t, err, &expErr)
	assert.Equal(t, "status", expErr.Subject)
	assert.Equal(t, "404", expErr.Expected)
	assert.Equal(t, "200", expErr.Actual)

	// the response is still recorded for inspection
	code, err := r.ResponseStatusCode()
	require.NoError(t, err)
	assert.Equal(t, 200, code)
}

// ─── Transport failures ────────────────────────────────────────────────

func TestDone_TransportErrorPropagates(t *testing.T) {
	t.Parallel()
	addr := closedPortAddr(t)

	r, err := request.New("http://"+addr, "GET")
	require.NoError(t, err)

	_, err = r.Timeout(2 * time.Second).Done(context.Background())
	require.Error(t, err)

	_, accessErr := r.Response()
	assert.ErrorIs(t, accessErr, request.ErrNoResponse)
}

func TestRetry_CallbackPerAttempt(t *testing.T) {
	t.Parallel()
	addr := closedPortAddr(t)

	var attempts int32
	r, err := request.New("http://"+addr, "GET")
	require.NoError(t, err)

	_, err = r.
		Retry(2, func(attempt int, err error) {
			atomic.AddInt32(&attempts, 1)
			assert.Error(t, err)
		}).
		Timeout(5 * time.Second).
		Done(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestAbort_CancelsInFlightDispatch(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer ts.Close()

	r, err := request.New(ts.URL, "GET")
	require.NoError(t, err)

	results := make(chan error, 1)
	r.End(func(_ *request.Response, err error) {
		results <- err
	})

	<-started
	r.Abort()

	select {
	case err := <-results:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch was not aborted")
	}
}

// ─── Streaming to file ─────────────────────────────────────────────────

func TestPipeResponseToFile(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("file payload"))
	}))
	defer ts.Close()

	r, err := request.New(ts.URL, "GET")
	require.NoError(t, err)
	_, err = r.Done(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, r.PipeResponseToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file payload", string(data))
}

// closedPortAddr reserves a port and closes it, so connections to it fail.
func closedPortAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return addr
}
