package transport_test

import (
	"strings"
	"testing"

	"github.com/fluenthttp/fluenthttp/internal/logging"
	"github.com/fluenthttp/fluenthttp/internal/transport"
)

// TestNew_DefaultBackend verifies that an empty backend name defaults to nethttp.
func TestNew_DefaultBackend(t *testing.T) {
	t.Parallel()
	tr, err := transport.New(transport.Config{}, logging.Nop(), nil)
	if err != nil {
		t.Fatalf("failed to create default transport: %v", err)
	}
	if tr == nil {
		t.Fatal("transport is nil")
	}
	defer tr.Close()
}

// TestNew_NetHTTP verifies the nethttp backend can be created by name.
func TestNew_NetHTTP(t *testing.T) {
	t.Parallel()
	tr, err := transport.New(transport.Config{Backend: "nethttp"}, logging.Nop(), nil)
	if err != nil {
		t.Fatalf("failed to create nethttp transport: %v", err)
	}
	if tr == nil {
		t.Fatal("transport is nil")
	}
	defer tr.Close()
}

// TestNew_UnknownBackend verifies an unknown backend name returns an error
// naming the available backends.
func TestNew_UnknownBackend(t *testing.T) {
	t.Parallel()
	tr, err := transport.New(transport.Config{Backend: "carrier-pigeon"}, logging.Nop(), nil)
	if err == nil {
		t.Fatal("expected error for unknown backend, got nil")
	}
	if tr != nil {
		t.Fatal("expected nil transport for unknown backend")
	}
	if !strings.Contains(err.Error(), "nethttp") {
		t.Errorf("error should list available backends, got %q", err.Error())
	}
}

// TestListBackends verifies nethttp is always registered.
func TestListBackends(t *testing.T) {
	t.Parallel()
	backends := transport.ListBackends()
	for _, b := range backends {
		if b == "nethttp" {
			return
		}
	}
	t.Fatalf("nethttp missing from backends: %v", backends)
}
