package request

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// expectation is one declarative check registered before dispatch and
// evaluated against the resolved response.
type expectation struct {
	subject string
	check   func(*Response) error
}

func (r *Request) addExpectation(subject string, check func(*Response) error) *Request {
	r.expectations = append(r.expectations, expectation{subject: subject, check: check})
	return r
}

// ExpectStatus asserts the response status code.
func (r *Request) ExpectStatus(code int) *Request {
	return r.addExpectation("status", func(resp *Response) error {
		if resp.StatusCode() != code {
			return &ExpectationError{
				Subject:  "status",
				Expected: strconv.Itoa(code),
				Actual:   strconv.Itoa(resp.StatusCode()),
			}
		}
		return nil
	})
}

// ExpectHeader asserts the exact value of one response header.
func (r *Request) ExpectHeader(key, value string) *Request {
	return r.addExpectation("header "+key, func(resp *Response) error {
		got := resp.Headers().Get(key)
		if got != value {
			return &ExpectationError{
				Subject:  "header " + key,
				Expected: strconv.Quote(value),
				Actual:   strconv.Quote(got),
			}
		}
		return nil
	})
}

// ExpectBody asserts the response body. Strings and byte slices are compared
// as raw text; any other value is compared as JSON, ignoring key order.
func (r *Request) ExpectBody(want interface{}) *Request {
	return r.addExpectation("body", func(resp *Response) error {
		switch w := want.(type) {
		case string:
			if resp.Text() != w {
				return bodyMismatch(w, resp.Text())
			}
		case []byte:
			if resp.Text() != string(w) {
				return bodyMismatch(string(w), resp.Text())
			}
		default:
			wantNorm, err := normalizeJSON(want)
			if err != nil {
				return fmt.Errorf("expected body is not JSON-encodable: %w", err)
			}
			var gotNorm interface{}
			if err := json.Unmarshal(resp.Body(), &gotNorm); err != nil {
				return &ExpectationError{
					Subject:  "body",
					Expected: "a JSON document",
					Actual:   snippet(resp.Text()),
				}
			}
			if !reflect.DeepEqual(wantNorm, gotNorm) {
				return bodyMismatch(prettyJSON(wantNorm), prettyJSON(gotNorm))
			}
		}
		return nil
	})
}

// ExpectField asserts one field of a JSON response body, addressed by a
// dot-separated path ("data.items.0.id").
func (r *Request) ExpectField(path string, want interface{}) *Request {
	return r.addExpectation("field "+path, func(resp *Response) error {
		var doc interface{}
		if err := json.Unmarshal(resp.Body(), &doc); err != nil {
			return &ExpectationError{
				Subject:  "field " + path,
				Expected: "a JSON document",
				Actual:   snippet(resp.Text()),
			}
		}
		got, err := walkPath(doc, path)
		if err != nil {
			return &ExpectationError{
				Subject:  "field " + path,
				Expected: "field to exist",
				Actual:   err.Error(),
			}
		}
		wantNorm, err := normalizeJSON(want)
		if err != nil {
			return fmt.Errorf("expected field value is not JSON-encodable: %w", err)
		}
		if !reflect.DeepEqual(wantNorm, got) {
			return &ExpectationError{
				Subject:  "field " + path,
				Expected: prettyJSON(wantNorm),
				Actual:   prettyJSON(got),
			}
		}
		return nil
	})
}

// ExpectResponse registers a custom check against the resolved response.
func (r *Request) ExpectResponse(check func(*Response) error) *Request {
	return r.addExpectation("response", func(resp *Response) error {
		return check(resp)
	})
}

// --- helpers ---

// normalizeJSON round-trips v through JSON so comparisons are unaffected by
// concrete Go types (ints vs float64, structs vs maps).
func normalizeJSON(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func prettyJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func walkPath(doc interface{}, path string) (interface{}, error) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("no key %q", part)
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("no index %q in array of length %d", part, len(node))
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("cannot descend into %T at %q", cur, part)
		}
	}
	return cur, nil
}

// bodyMismatch builds an ExpectationError carrying a readable text diff.
func bodyMismatch(expected, actual string) error {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			fmt.Fprintf(&b, "+ %s\n", text)
		case diffmatchpatch.DiffDelete:
			fmt.Fprintf(&b, "- %s\n", text)
		}
	}

	return &ExpectationError{
		Subject:  "body",
		Expected: snippet(expected),
		Actual:   snippet(actual),
		Diff:     strings.TrimRight(b.String(), "\n"),
	}
}

func snippet(s string) string {
	const max = 200
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
