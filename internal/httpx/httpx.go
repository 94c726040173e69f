package httpx

import (
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// ProxyConfig is the outbound routing surface. The values are interpreted
// here only; callers pass them through unchanged.
type ProxyConfig struct {
	// ProxyList holds proxy URLs to route requests through.
	ProxyList []string
	// ProxyMode selects how a proxy is picked from the list: "rotate"
	// (round-robin, the default) or "random".
	ProxyMode string
	// RequestMode "direct" bypasses the proxy list entirely.
	RequestMode string
	// ForwardURL, when set, relays each request through a forwarding proxy
	// that accepts the target in a "url" query parameter.
	ForwardURL string
}

// Client is a small wrapper around http.Client with sane defaults. It
// satisfies the provider clients' HTTPClient interface.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string

	forward *url.URL
}

func New(timeout time.Duration) *Client {
	return NewWithProxy(timeout, ProxyConfig{})
}

// NewWithProxy builds a client whose transport honors the proxy config.
func NewWithProxy(timeout time.Duration, proxy ProxyConfig) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
	if picker := proxyPicker(proxy); picker != nil {
		transport.Proxy = picker
	}
	c := &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "vciquote/1.0"}
	if proxy.ForwardURL != "" {
		if u, err := url.Parse(proxy.ForwardURL); err == nil {
			c.forward = u
		}
	}
	return c
}

// proxyPicker returns a Proxy function for the transport, or nil when the
// config selects direct requests.
func proxyPicker(cfg ProxyConfig) func(*http.Request) (*url.URL, error) {
	if len(cfg.ProxyList) == 0 || cfg.RequestMode == "direct" {
		return nil
	}
	proxies := make([]*url.URL, 0, len(cfg.ProxyList))
	for _, raw := range cfg.ProxyList {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		proxies = append(proxies, u)
	}
	if len(proxies) == 0 {
		return nil
	}
	if cfg.ProxyMode == "random" {
		return func(*http.Request) (*url.URL, error) {
			return proxies[rand.Intn(len(proxies))], nil
		}
	}
	var next atomic.Uint64
	return func(*http.Request) (*url.URL, error) {
		return proxies[next.Add(1)%uint64(len(proxies))], nil
	}
}

// Do sends the request, injecting default headers and, when configured,
// relaying through the forwarding proxy.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if c.forward != nil {
		fwd := *c.forward
		q := fwd.Query()
		q.Set("url", req.URL.String())
		fwd.RawQuery = q.Encode()
		req = req.Clone(req.Context())
		req.URL = &fwd
		req.Host = ""
	}
	return c.HTTP.Do(req)
}
