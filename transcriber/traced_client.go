package transcriber

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// RequestIDHeader carries the per-session request id to the provider.
const RequestIDHeader = "X-Client-Request-Id"

// TracedClient is an HTTP client that records per-phase network timings.
// Both the transcription and completion clients share one so a warm
// connection is reused across hops.
type TracedClient struct {
	client *http.Client
}

func NewTracedClient(logger *zerolog.Logger) *TracedClient {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	enableHTTP2(tr, log)
	return &TracedClient{client: &http.Client{Transport: tr}}
}

// enableHTTP2 upgrades tr through x/net/http2. On failure tr keeps the
// standard library's built-in negotiation.
func enableHTTP2(tr *http.Transport, log zerolog.Logger) bool {
	if err := http2.ConfigureTransport(tr); err != nil {
		log.Warn().Err(err).Msg("http2 transport not configured, using default negotiation")
		return false
	}
	return true
}

// WrapClient traces requests through an existing client, e.g. one from
// httptest.
func WrapClient(c *http.Client) *TracedClient {
	return &TracedClient{client: c}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	metrics := &NetworkMetrics{}
	// The transport fires these from its read and write loops.
	var mu sync.Mutex
	var getConnStart, dnsStart, tcpStart, tlsStart time.Time
	var gotConn, wroteHeaders, wroteRequest, firstByte time.Time
	locked := func(f func()) {
		mu.Lock()
		defer mu.Unlock()
		f()
	}

	trace := &httptrace.ClientTrace{
		GetConn: func(_ string) {
			locked(func() { getConnStart = time.Now() })
		},
		GotConn: func(info httptrace.GotConnInfo) {
			locked(func() {
				gotConn = time.Now()
				metrics.ConnWait = gotConn.Sub(getConnStart)
				metrics.ConnReused = info.Reused
			})
		},
		DNSStart: func(_ httptrace.DNSStartInfo) {
			locked(func() { dnsStart = time.Now() })
		},
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			locked(func() { metrics.DNS = time.Since(dnsStart) })
		},
		ConnectStart: func(_, _ string) {
			locked(func() { tcpStart = time.Now() })
		},
		ConnectDone: func(_, _ string, _ error) {
			locked(func() { metrics.TCP = time.Since(tcpStart) })
		},
		TLSHandshakeStart: func() {
			locked(func() { tlsStart = time.Now() })
		},
		TLSHandshakeDone: func(st tls.ConnectionState, _ error) {
			locked(func() {
				metrics.TLS = time.Since(tlsStart)
				metrics.TLSProtocol = st.NegotiatedProtocol
			})
		},
		WroteHeaders: func() {
			locked(func() {
				wroteHeaders = time.Now()
				metrics.ReqHeaders = wroteHeaders.Sub(gotConn)
			})
		},
		WroteRequest: func(_ httptrace.WroteRequestInfo) {
			locked(func() {
				wroteRequest = time.Now()
				metrics.ReqBody = wroteRequest.Sub(wroteHeaders)
			})
		},
		GotFirstResponseByte: func() {
			locked(func() {
				firstByte = time.Now()
				metrics.TTFB = firstByte.Sub(wroteRequest)
			})
		},
	}

	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	reqStart := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	if !firstByte.IsZero() {
		metrics.Download = time.Since(firstByte)
	}
	metrics.Total = time.Since(reqStart)
	out := *metrics
	mu.Unlock()

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    &out,
	}, nil
}

// Warm opens a connection to url ahead of the first real request and
// returns how long the TLS handshake took.
func (c *TracedClient) Warm(url string) time.Duration {
	var mu sync.Mutex
	var tlsStart time.Time
	var tlsDuration time.Duration

	trace := &httptrace.ClientTrace{
		TLSHandshakeStart: func() {
			mu.Lock()
			tlsStart = time.Now()
			mu.Unlock()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, _ error) {
			mu.Lock()
			tlsDuration = time.Since(tlsStart)
			mu.Unlock()
		},
	}

	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	mu.Lock()
	defer mu.Unlock()
	return tlsDuration
}
