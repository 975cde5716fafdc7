package request_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fluenthttp/fluenthttp/internal/request"
	"github.com/fluenthttp/fluenthttp/internal/testutil"
)

func TestExpectBody_JSONIgnoresKeyOrder(t *testing.T) {
	t.Parallel()
	tr := testutil.CannedJSON(200, `{"b":2,"a":1}`)
	r, _ := request.New("http://example.com", "GET")

	_, err := r.
		ExpectBody(map[string]int{"a": 1, "b": 2}).
		WithTransport(tr).
		Done(context.Background())
	if err != nil {
		t.Fatalf("Done: %v", err)
	}
}

func TestExpectBody_StringMismatchCarriesDiff(t *testing.T) {
	t.Parallel()
	tr := testutil.CannedJSON(200, `hello world`)
	r, _ := request.New("http://example.com", "GET")

	_, err := r.
		ExpectBody("hello there").
		WithTransport(tr).
		Done(context.Background())
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	var expErr *request.ExpectationError
	if !asExpectation(err, &expErr) {
		t.Fatalf("expected ExpectationError, got %T: %v", err, err)
	}
	if expErr.Diff == "" {
		t.Error("expected a diff in the mismatch error")
	}
	if !strings.Contains(err.Error(), "expectation failed") {
		t.Errorf("unhelpful error message: %v", err)
	}
}

func TestExpectField_DotPath(t *testing.T) {
	t.Parallel()
	body := `{"data":{"items":[{"id":"u1"},{"id":"u2"}]}}`

	cases := []struct {
		path    string
		want    interface{}
		wantErr bool
	}{
		{"data.items.0.id", "u1", false},
		{"data.items.1.id", "u2", false},
		{"data.items.1.id", "u9", true},
		{"data.missing", nil, true},
		{"data.items.7.id", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			r, _ := request.New("http://example.com", "GET")
			_, err := r.
				ExpectField(tc.path, tc.want).
				WithTransport(testutil.CannedJSON(200, body)).
				Done(context.Background())
			if tc.wantErr && err == nil {
				t.Errorf("ExpectField(%q, %v): expected error", tc.path, tc.want)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("ExpectField(%q, %v): %v", tc.path, tc.want, err)
			}
		})
	}
}

func TestExpectHeader(t *testing.T) {
	t.Parallel()
	r, _ := request.New("http://example.com", "GET")
	_, err := r.
		ExpectHeader("Content-Type", "application/json").
		WithTransport(testutil.CannedJSON(200, `{}`)).
		Done(context.Background())
	if err != nil {
		t.Fatalf("Done: %v", err)
	}

	r2, _ := request.New("http://example.com", "GET")
	_, err = r2.
		ExpectHeader("Content-Type", "text/html").
		WithTransport(testutil.CannedJSON(200, `{}`)).
		Done(context.Background())
	if err == nil {
		t.Fatal("expected header mismatch error")
	}
}

func TestExpectResponse_CustomCheck(t *testing.T) {
	t.Parallel()
	r, _ := request.New("http://example.com", "GET")
	_, err := r.
		ExpectResponse(func(resp *request.Response) error {
			if !resp.IsOK() {
				return fmt.Errorf("not ok: %d", resp.StatusCode())
			}
			return nil
		}).
		WithTransport(testutil.CannedJSON(200, `{}`)).
		Done(context.Background())
	if err != nil {
		t.Fatalf("Done: %v", err)
	}
}

func TestExpectations_EvaluatedInOrder(t *testing.T) {
	t.Parallel()
	r, _ := request.New("http://example.com", "GET")
	_, err := r.
		ExpectStatus(500).
		ExpectHeader("Content-Type", "text/html").
		WithTransport(testutil.CannedJSON(200, `{}`)).
		Done(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var expErr *request.ExpectationError
	if !asExpectation(err, &expErr) {
		t.Fatalf("expected ExpectationError, got %v", err)
	}
	if expErr.Subject != "status" {
		t.Errorf("first registered expectation should fail first, got %q", expErr.Subject)
	}
}

func asExpectation(err error, target **request.ExpectationError) bool {
	return errors.As(err, target)
}
