package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

const maxRedirects = 10

type Options struct {
	// Timeout bounds the whole check, HEAD and GET fallback included.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification. Testing only.
	InsecureSkipVerify bool
}

type HTTPChecker struct {
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPChecker(opts Options) *HTTPChecker {
	if opts.Timeout <= 0 {
		opts.Timeout = domain.DefaultProbeTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // opt-in testing mode
	}
	return &HTTPChecker{
		Client: &http.Client{
			Transport: tr,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Past the cap the last 3xx is the answer, so its code is reported.
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		Timeout: opts.Timeout,
	}
}

// Check issues a HEAD request and falls back to GET when the transport fails or
// the far end rejects the method. Both attempts share one deadline, so a target
// that never answers is reported down after roughly Timeout.
func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	resp, err := h.do(ctx, http.MethodHead, target)
	if err != nil || headRejected(resp.StatusCode) {
		if resp != nil {
			resp.Body.Close()
		}
		resp, err = h.do(ctx, http.MethodGet, target)
	}
	latency := sinceMS(start)
	if err != nil {
		return CheckResult{Success: false, LatencyMS: latency, Message: failureReason(err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return CheckResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		LatencyMS:  latency,
		Message:    resp.Status,
	}
}

func (h *HTTPChecker) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "sitewatch/1.0")
	req.Header.Set("Cache-Control", "no-store")
	return h.Client.Do(req)
}

func headRejected(code int) bool {
	return code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}

func sinceMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
