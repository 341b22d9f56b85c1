package external

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedTransport bounds the request rate to external systems across
// all syncs in the process.
type RateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

// NewRateLimitedTransport allows rps requests per second with a burst of the
// same size. A non-positive rps disables limiting.
func NewRateLimitedTransport(next http.RoundTripper, rps float64) *RateLimitedTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &RateLimitedTransport{limiter: rate.NewLimiter(limit, burst), next: next}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// NewHTTPClient is the client used for all outbound integration calls.
// Per-call deadlines come from the request context.
func NewHTTPClient(rps float64) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = 20 * time.Second
	return &http.Client{Transport: NewRateLimitedTransport(base, rps)}
}
