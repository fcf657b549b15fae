package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit open")

type HTTPOpts struct {
	Timeout       time.Duration
	FailThreshold int
	OpenFor       time.Duration
	MaxBodyBytes  int64
}

// HTTPClient is the net/http Requester. Each upstream host gets its own Breaker;
// transport errors and 5xx responses count as failures.
type HTTPClient struct {
	client *http.Client
	opts   HTTPOpts

	mu       sync.Mutex
	breakers map[string]*Breaker
}

func NewHTTPClient(client *http.Client, opts HTTPOpts) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	if client == nil {
		client = sharedClient(opts.Timeout)
	}
	return &HTTPClient{client: client, opts: opts, breakers: map[string]*Breaker{}}
}

func sharedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}

func (c *HTTPClient) breaker(host string) *Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[host]
	if !ok {
		b = NewBreaker(c.opts.FailThreshold, c.opts.OpenFor)
		c.breakers[host] = b
	}
	return b
}

func (c *HTTPClient) Do(ctx context.Context, r Request) (*Response, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	br := c.breaker(u.Host)
	if !br.TryAcquire() {
		return nil, fmt.Errorf("%s %s: %w", r.Method, u.Host, ErrCircuitOpen)
	}

	res, err := c.client.Do(req)
	if err != nil {
		br.OnFailure()
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, c.opts.MaxBodyBytes))
	if err != nil {
		br.OnFailure()
		return nil, fmt.Errorf("read body: %w", err)
	}

	if res.StatusCode >= 500 {
		br.OnFailure()
	} else {
		br.OnSuccess()
	}

	out := &Response{Status: res.StatusCode, Header: res.Header, Body: body}
	if res.StatusCode/100 != 2 {
		return out, &ResponseError{Method: r.Method, URL: r.URL, Response: out}
	}
	return out, nil
}
