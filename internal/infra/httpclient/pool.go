package httpclient

import (
	"net/http"
	"time"
)

// Timeouts carries the per-service request deadlines. The blob gateway
// answers from disk, web search crosses the public internet, and
// inference can hold a request for minutes; one shared deadline would
// fit none of them.
type Timeouts struct {
	Blob      time.Duration
	Search    time.Duration
	Inference time.Duration
}

// Pool hands out per-service http.Clients over one shared transport so
// connections to the blob gateway, search provider, and inference
// service stay warm across requests.
type Pool struct {
	transport *http.Transport
	blob      *http.Client
	search    *http.Client
	inference *http.Client
}

// NewPool builds the shared transport and the per-service clients.
func NewPool(t Timeouts) *Pool {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     120 * time.Second,
	}
	return &Pool{
		transport: transport,
		blob:      &http.Client{Timeout: t.Blob, Transport: transport},
		search:    &http.Client{Timeout: t.Search, Transport: transport},
		inference: &http.Client{Timeout: t.Inference, Transport: transport},
	}
}

// Blob returns the client for the chunk-payload gateway.
func (p *Pool) Blob() *http.Client { return p.blob }

// Search returns the client for the web search provider.
func (p *Pool) Search() *http.Client { return p.search }

// Inference returns the client for the generation service.
func (p *Pool) Inference() *http.Client { return p.inference }

// CloseIdle drops the pooled connections; called on shutdown.
func (p *Pool) CloseIdle() {
	p.transport.CloseIdleConnections()
}
