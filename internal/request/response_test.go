package request_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/fluenthttp/fluenthttp/internal/request"
	"github.com/fluenthttp/fluenthttp/internal/testutil"
	"github.com/fluenthttp/fluenthttp/internal/transport"
)

func dispatch(t *testing.T, tr transport.Transport) (*request.Request, *request.Response) {
	t.Helper()
	req, err := request.New("http://example.test/", "GET")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := req.WithTransport(tr).Done(context.Background())
	if err != nil {
		t.Fatalf("Done: %v", err)
	}
	return req, resp
}

// ─── classification helpers ────────────────────────────────────────────

func TestResponse_Classifications(t *testing.T) {
	t.Parallel()
	cases := []struct {
		status                   int
		ok, clientErr, serverErr bool
		unauthorized             bool
	}{
		{200, true, false, false, false},
		{204, true, false, false, false},
		{302, false, false, false, false},
		{401, false, true, false, true},
		{404, false, true, false, false},
		{500, false, false, true, false},
		{503, false, false, true, false},
	}
	for _, tc := range cases {
		_, resp := dispatch(t, &testutil.DummyTransport{Result: &transport.Result{
			StatusCode: tc.status,
			Headers:    http.Header{},
		}})
		if resp.IsOK() != tc.ok {
			t.Errorf("%d: IsOK = %v", tc.status, resp.IsOK())
		}
		if resp.IsClientError() != tc.clientErr {
			t.Errorf("%d: IsClientError = %v", tc.status, resp.IsClientError())
		}
		if resp.IsServerError() != tc.serverErr {
			t.Errorf("%d: IsServerError = %v", tc.status, resp.IsServerError())
		}
		if resp.IsUnauthorized() != tc.unauthorized {
			t.Errorf("%d: IsUnauthorized = %v", tc.status, resp.IsUnauthorized())
		}
	}
}

// ─── body accessors ────────────────────────────────────────────────────

func TestResponse_JSONAccessor(t *testing.T) {
	t.Parallel()
	req, _ := dispatch(t, testutil.CannedJSON(200, `{"name":"Ada","age":36}`))

	var out struct {
		Name string  `json:"name"`
		Age  float64 `json:"age"`
	}
	if err := req.ResponseJSON(&out); err != nil {
		t.Fatalf("ResponseJSON: %v", err)
	}
	if out.Name != "Ada" || out.Age != 36 {
		t.Errorf("unexpected decode: %+v", out)
	}

	ct, err := req.ResponseContentType()
	if err != nil {
		t.Fatalf("ResponseContentType: %v", err)
	}
	if ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestResponse_JSONAccessor_NotJSON(t *testing.T) {
	t.Parallel()
	req, _ := dispatch(t, &testutil.DummyTransport{Result: &transport.Result{
		StatusCode: 200,
		Headers:    http.Header{},
		Body:       []byte("<not json>"),
	}})

	var out map[string]interface{}
	if err := req.ResponseJSON(&out); err == nil {
		t.Fatal("expected unmarshal error for non-JSON body")
	}
}

func TestResponse_HTMLSelection(t *testing.T) {
	t.Parallel()
	headers := http.Header{}
	headers.Set("Content-Type", "text/html")
	_, resp := dispatch(t, &testutil.DummyTransport{Result: &transport.Result{
		StatusCode: 200,
		Headers:    headers,
		Body:       []byte(`<html><body><h1 id="title">Users</h1><ul><li>Ada</li><li>Grace</li></ul></body></html>`),
	}})

	doc, err := resp.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if got := doc.Find("#title").Text(); got != "Users" {
		t.Errorf("title = %q", got)
	}
	if n := doc.Find("li").Length(); n != 2 {
		t.Errorf("expected 2 list items, got %d", n)
	}
}
