package request

import (
	"context"

	"github.com/fluenthttp/fluenthttp/internal/logging"
	"github.com/fluenthttp/fluenthttp/internal/transport"
)

// Done dispatches the request and blocks until the transport resolves. On
// success the Response is recorded and returned. A failed expectation is
// returned as an error, but the Response is still recorded so accessors work.
// Exactly one dispatch is allowed per Request.
func (r *Request) Done(ctx context.Context) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	if r.dispatched {
		r.mu.Unlock()
		return nil, ErrAlreadyDispatched
	}
	r.dispatched = true
	if r.buildErr != nil {
		err := r.buildErr
		r.mu.Unlock()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	tr := r.tr
	r.mu.Unlock()
	defer cancel()

	if tr == nil {
		var err error
		tr, err = transport.New(transport.Config{}, r.logger, nil)
		if err != nil {
			return nil, err
		}
	}

	r.logger.Debug("dispatching request",
		logging.Field{Key: "method", Value: r.desc.Method},
		logging.Field{Key: "url", Value: r.desc.URL})

	result, err := tr.Do(ctx, r.desc)
	if err != nil {
		return nil, err
	}

	resp := newResponse(result)
	r.mu.Lock()
	r.response = resp
	r.mu.Unlock()

	for _, exp := range r.expectations {
		if err := exp.check(resp); err != nil {
			r.logger.Debug("expectation failed",
				logging.Field{Key: "subject", Value: exp.subject},
				logging.Field{Key: "error", Value: err.Error()})
			return resp, err
		}
	}

	return resp, nil
}

// End dispatches the request on a new goroutine and invokes callback exactly
// once with the outcome. It returns immediately.
func (r *Request) End(callback func(*Response, error)) {
	go func() {
		resp, err := r.Done(context.Background())
		if callback != nil {
			callback(resp, err)
		}
	}()
}

// Abort cancels an in-flight dispatch. It is a no-op before dispatch or after
// the response has resolved.
func (r *Request) Abort() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
