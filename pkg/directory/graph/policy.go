package graph

import (
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"golang.org/x/time/rate"
)

// headerPolicy stamps a fixed set of headers on every request.
type headerPolicy struct {
	header http.Header
}

func (p headerPolicy) Do(req *policy.Request) (*http.Response, error) {
	for k, v := range p.header {
		req.Raw().Header[k] = v
	}
	return req.Next()
}

// rateLimitPolicy blocks each try until the limiter admits it.
type rateLimitPolicy struct {
	limiter *rate.Limiter
}

func newRateLimitPolicy(requestsPerSecond float64) *rateLimitPolicy {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond))
	}
	return &rateLimitPolicy{limiter: rate.NewLimiter(limit, burst)}
}

func (p *rateLimitPolicy) Do(req *policy.Request) (*http.Response, error) {
	if err := p.limiter.Wait(req.Raw().Context()); err != nil {
		return nil, err
	}
	return req.Next()
}
