package httpx

import (
	"io"
	"net/http"
	"sync"
)

// LimitedTransport caps the number of requests in flight across all hosts.
// A slot is held from RoundTrip until the response body is closed; callers
// over the limit wait for a slot or for their request context to end.
type LimitedTransport struct {
	base  http.RoundTripper
	slots chan struct{}
}

func NewLimitedTransport(base http.RoundTripper, max int) *LimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if max <= 0 {
		max = DefaultMaxConns
	}
	return &LimitedTransport{base: base, slots: make(chan struct{}, max)}
}

func (t *LimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	select {
	case t.slots <- struct{}{}:
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		<-t.slots
		return nil, err
	}
	resp.Body = &releaseBody{ReadCloser: resp.Body, release: func() { <-t.slots }}
	return resp, nil
}

// InFlight reports how many slots are currently taken.
func (t *LimitedTransport) InFlight() int {
	return len(t.slots)
}

type releaseBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releaseBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
