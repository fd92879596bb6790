package xactions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"
)

// Doer executes one HTTP exchange and returns body, lower-cased response
// headers and status. *stealth.BrowserClient satisfies it.
type Doer interface {
	DoWithHeaderOrder(method, url string, headers map[string]string, body io.Reader, order []string) ([]byte, map[string]string, int, error)
}

var _ Doer = (*stealth.BrowserClient)(nil)

type request struct {
	endpoint    string
	method      string
	url         string
	body        io.Reader
	contentType string
}

type response struct {
	body    []byte
	headers map[string]string
	status  int
}

// guard signs, paces and sends every outbound call, and turns failures into
// typed errors. It never retries: retry policy belongs to the caller.
type guard struct {
	doer        Doer
	creds       CredentialProvider
	limiter     *rate.Limiter
	jitter      func(context.Context) error
	timeout     time.Duration
	metricsHook func(endpoint string, success, rateLimited bool)
}

// do runs one exchange for req.
func (g *guard) do(ctx context.Context, req request) (*response, error) {
	cred, err := g.creds.Credential(ctx, req.endpoint)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, &AuthenticationError{Endpoint: req.endpoint, Message: "no credential available"}
	}
	if requiresAuth(req.endpoint) && !cred.IsAuthenticated() {
		return nil, &AuthenticationError{Endpoint: req.endpoint, Message: "operation requires an authenticated session"}
	}

	resp, err := g.exchange(ctx, cred, req)
	// A caller abort says nothing about the credential.
	if obs, ok := g.creds.(Observer); ok && ctx.Err() == nil {
		obs.Observe(cred, req.endpoint, err)
	}
	if g.metricsHook != nil {
		g.metricsHook(req.endpoint, err == nil, KindOf(err) == KindRateLimited)
	}
	return resp, err
}

func (g *guard) exchange(ctx context.Context, cred Credential, req request) (*response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if g.jitter != nil {
		if err := g.jitter(ctx); err != nil {
			return nil, err
		}
	}

	headers := maps.Clone(cred.Headers())
	if headers == nil {
		headers = make(map[string]string)
	}
	if req.contentType != "" {
		headers["content-type"] = req.contentType
	}
	doer := g.doer
	if acc, ok := cred.(*Account); ok && acc.client != nil {
		doer = acc.client
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		body    []byte
		headers map[string]string
		status  int
		err     error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		body, hdrs, status, err := doer.DoWithHeaderOrder(req.method, req.url, headers, req.body, headerOrder)
		done <- result{body, hdrs, status, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, fmt.Errorf("transport: %w", r.err)
	}

	slog.Debug("request done",
		slog.String("endpoint", req.endpoint),
		slog.Int("status", r.status),
		slog.Duration("elapsed", time.Since(start)))

	if err := classifyResponse(req.endpoint, r.status, r.body, r.headers); err != nil {
		return nil, err
	}
	return &response{body: r.body, headers: r.headers, status: r.status}, nil
}

// classifyResponse maps a completed exchange to nil or a typed error.
func classifyResponse(endpoint string, status int, body []byte, headers map[string]string) error {
	switch {
	case status == 429:
		return &RateLimitError{Endpoint: endpoint, Snapshot: rateLimitSnapshot(headers)}

	case status == 401 || status == 403:
		_, apiErr := classifyError(body)
		return &AuthenticationError{Endpoint: endpoint, Status: status, Code: apiErr.Code, Message: apiErr.Message}

	case status < 200 || status >= 300:
		_, apiErr := classifyError(body)
		msg := apiErr.Message
		if msg == "" && apiErr.Code == 0 {
			msg = truncateBytes(body, 200)
		}
		return &ProtocolError{Endpoint: endpoint, Status: status, Code: apiErr.Code, Message: msg}
	}

	// 2xx: the API also reports failures inside the body.
	class, apiErr := classifyError(body)
	switch {
	case class == errNone:
		return nil
	case class == errBanned:
		return &RateLimitError{Endpoint: endpoint, Snapshot: rateLimitSnapshot(headers)}
	case class.isAuthClass():
		return &AuthenticationError{Endpoint: endpoint, Status: status, Code: apiErr.Code, Message: apiErr.Message}
	case (class == errInternal || class == errOther) && hasResponseData(body):
		slog.Debug("partial response with errors, using data",
			slog.String("endpoint", endpoint), slog.Int("code", apiErr.Code))
		return nil
	}
	return &ProtocolError{Endpoint: endpoint, Status: status, Code: apiErr.Code, Message: apiErr.Message}
}
