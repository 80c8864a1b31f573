package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/punchamoorthee/paygate/internal/payerr"
)

var (
	clientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_client_requests_total",
		Help: "Outbound gateway requests, labeled by API surface, method and status",
	}, []string{"api", "method", "status"})

	clientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paygate_client_request_duration_seconds",
		Help:    "Latency of outbound gateway requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"api", "method"})
)

// HTTPOptions configures an HTTPAdapter. Zero values select defaults.
type HTTPOptions struct {
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// RateLimit paces requests to at most this many per second. Zero
	// disables pacing.
	RateLimit float64
}

const (
	DefaultTimeout        = 60 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// HTTPAdapter is the net/http implementation of Transport. It never retries.
type HTTPAdapter struct {
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPAdapter(opts HTTPOptions) *HTTPAdapter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = opts.ConnectTimeout

	a := &HTTPAdapter{client: &http.Client{Transport: tr, Timeout: opts.Timeout}}
	if opts.RateLimit > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return a
}

func (a *HTTPAdapter) Send(ctx context.Context, req *Request) (*Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, a.fail(req, err)
		}
	}

	timer := prometheus.NewTimer(clientRequestDuration.WithLabelValues(req.API, req.Method))
	defer timer.ObserveDuration()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, a.fail(req, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, a.fail(req, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, a.fail(req, fmt.Errorf("read body: %w", err))
	}

	clientRequestsTotal.WithLabelValues(req.API, req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

func (a *HTTPAdapter) fail(req *Request, err error) error {
	clientRequestsTotal.WithLabelValues(req.API, req.Method, "error").Inc()
	return &payerr.TransportError{
		Method:  req.Method,
		URL:     req.URL,
		Timeout: isTimeout(err),
		Err:     err,
	}
}

// Close drops idle keep-alive connections.
func (a *HTTPAdapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
