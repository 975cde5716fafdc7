package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/fluenthttp/fluenthttp/internal/logging"
)

// Config selects and parameterizes a transport backend.
type Config struct {
	// Backend names a registered constructor; empty means "nethttp".
	Backend string
}

// BackendConstructor constructs a Transport given the config, logger and an
// optional pre-built *http.Client.
type BackendConstructor func(cfg Config, logger logging.Logger, httpClient *http.Client) (Transport, error)

var (
	mu       sync.RWMutex
	backends = map[string]BackendConstructor{}
)

// RegisterBackend registers a named backend constructor. Names are
// lower-cased internally; registering an existing name overwrites it.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	backends[strings.ToLower(name)] = ctor
}

// New constructs the configured Transport backend. It returns an error if the
// named backend has not been registered.
func New(cfg Config, logger logging.Logger, httpClient *http.Client) (Transport, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "nethttp"
	}

	mu.RLock()
	ctor, ok := backends[backend]
	mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("transport backend %q not registered: available backends=%v", backend, ListBackends())
	}

	tr, err := ctor(cfg, logger, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to construct transport backend %q: %w", backend, err)
	}
	if tr == nil {
		return nil, errors.New("transport constructor returned nil")
	}
	return tr, nil
}

// ListBackends returns the list of registered backend names.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	return out
}

func init() {
	RegisterBackend("nethttp", func(cfg Config, logger logging.Logger, httpClient *http.Client) (Transport, error) {
		return NewNetHTTPTransport(cfg, logger, httpClient)
	})
}
