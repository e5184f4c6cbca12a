package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient creates the client used for directory downloads.
// timeout bounds a single request including the body read. headers are
// added to every outgoing request that does not already set them and may be nil.
func NewHTTPClient(timeout time.Duration, headers http.Header) *http.Client {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: WithDefaultHeaders(base, headers)}
}

// WithDefaultHeaders wraps next so every request carries headers.
// A header the request already sets wins. With no headers next is returned as is.
func WithDefaultHeaders(next http.RoundTripper, headers http.Header) http.RoundTripper {
	if len(headers) == 0 {
		return next
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return &headerTransport{next: next, headers: headers.Clone()}
}

type headerTransport struct {
	next    http.RoundTripper
	headers http.Header
}

// RoundTrip はリクエストを複製してから既定ヘッダーを補います（RoundTripperは入力を変更しない）。
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, vs := range t.headers {
		if _, ok := r.Header[k]; ok {
			continue
		}
		r.Header[k] = append([]string(nil), vs...)
	}
	return t.next.RoundTrip(r)
}
