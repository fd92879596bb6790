package xactions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrorKind is the coarse failure category callers map to exit codes or HTTP statuses.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindAuthentication
	KindRateLimited
	KindPayloadTooLarge
	KindMalformedResponse
	KindMediaProcessingFailed
	KindProtocol
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuthentication:
		return "authentication"
	case KindRateLimited:
		return "rate_limited"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindMalformedResponse:
		return "malformed_response"
	case KindMediaProcessingFailed:
		return "media_processing_failed"
	case KindProtocol:
		return "protocol"
	}
	return "other"
}

// KindOf classifies err, looking through wrapped errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		authErr  *AuthenticationError
		rlErr    *RateLimitError
		sizeErr  *PayloadTooLargeError
		shapeErr *MalformedResponseError
		procErr  *MediaProcessingError
		protoErr *ProtocolError
	)
	switch {
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &rlErr):
		return KindRateLimited
	case errors.As(err, &sizeErr):
		return KindPayloadTooLarge
	case errors.As(err, &shapeErr):
		return KindMalformedResponse
	case errors.As(err, &procErr):
		return KindMediaProcessingFailed
	case errors.As(err, &protoErr):
		return KindProtocol
	}
	return KindOther
}

// AuthenticationError means the credential is missing, expired or was rejected.
// Callers must refresh credentials; the client never retries it.
type AuthenticationError struct {
	Endpoint string
	Status   int
	Code     int
	Message  string
}

func (e *AuthenticationError) Error() string {
	var b strings.Builder
	b.WriteString("authentication error")
	if e.Endpoint != "" {
		b.WriteString(" on " + e.Endpoint)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.Status)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// RateLimitSnapshot is the rate-limit state reported by the server on a failed request.
type RateLimitSnapshot struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimitError is returned when the server refuses a request for rate reasons.
type RateLimitError struct {
	Endpoint string
	Snapshot RateLimitSnapshot
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited until %s (limit %d, remaining %d)",
		e.Endpoint, e.Snapshot.Reset.UTC().Format(time.RFC3339), e.Snapshot.Limit, e.Snapshot.Remaining)
}

// RetryAfter returns how long until the limit resets, relative to now.
func (e *RateLimitError) RetryAfter() time.Duration {
	return max(0, time.Until(e.Snapshot.Reset))
}

// PayloadTooLargeError is a local validation failure; no request was sent.
type PayloadTooLargeError struct {
	Category string
	Size     int
	Limit    int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("%s payload of %d bytes exceeds limit of %d bytes", e.Category, e.Size, e.Limit)
}

// MalformedResponseError means a 200 response did not have the expected shape.
// Path is the dotted location of the offending field.
type MalformedResponseError struct {
	Path string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("malformed response: missing %s", e.Path)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// MediaProcessingError is a terminal server-side processing failure.
// Message is the server's reason, unmodified.
type MediaProcessingError struct {
	MediaID string
	Code    int
	Name    string
	Message string
}

func (e *MediaProcessingError) Error() string {
	return fmt.Sprintf("media %s processing failed: %s", e.MediaID, e.Message)
}

// ProtocolError covers every other non-2xx status and in-body API error.
type ProtocolError struct {
	Endpoint string
	Status   int
	Code     int
	Message  string
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s HTTP %d", e.Endpoint, e.Status)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// errorClass categorizes API error codes found in response bodies.
type errorClass int

const (
	errNone          errorClass = iota
	errBanned                   // 88: rate limit abuse
	errSuspended                // 64: account suspended
	errLocked                   // 326: account locked (captcha needed)
	errCSRF                     // 353: csrf token mismatch
	errAuthExpired              // 32: could not authenticate
	errBlocked                  // 161: blocked from performing action
	errNotAuthorized            // 179, 219: not authorized
	errInternal                 // 131: internal error
	errOther                    // any other code
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// classifyError inspects a response body for known API error codes and
// returns the class along with the first recognized error.
func classifyError(body []byte) (errorClass, apiError) {
	var errResp struct {
		Errors []apiError `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return errNone, apiError{}
	}

	for _, e := range errResp.Errors {
		switch e.Code {
		case 88:
			return errBanned, e
		case 64:
			return errSuspended, e
		case 326:
			return errLocked, e
		case 353:
			return errCSRF, e
		case 32:
			return errAuthExpired, e
		case 161:
			return errBlocked, e
		case 179, 219:
			return errNotAuthorized, e
		case 131:
			return errInternal, e
		}
	}
	return errOther, errResp.Errors[0]
}

// isAuthClass reports whether the class means the credential itself is unusable.
func (c errorClass) isAuthClass() bool {
	switch c {
	case errSuspended, errLocked, errCSRF, errAuthExpired:
		return true
	}
	return false
}

// parseRateLimitReset parses the x-rate-limit-reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}

// rateLimitSnapshot reads the x-rate-limit-* headers. Missing counters read as -1.
func rateLimitSnapshot(headers map[string]string) RateLimitSnapshot {
	atoi := func(name string) int {
		n, err := strconv.Atoi(strings.TrimSpace(header(headers, name)))
		if err != nil {
			return -1
		}
		return n
	}
	return RateLimitSnapshot{
		Limit:     atoi("x-rate-limit-limit"),
		Remaining: atoi("x-rate-limit-remaining"),
		Reset:     parseRateLimitReset(header(headers, "x-rate-limit-reset")),
	}
}

// header does a case-insensitive lookup in a response header map.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func asRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	ok := errors.As(err, &rl)
	return rl, ok
}
