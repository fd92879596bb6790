package xactions

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected errorClass
		code     int
	}{
		{"no errors", `{"data":{"user":{}}}`, errNone, 0},
		{"empty errors", `{"errors":[]}`, errNone, 0},
		{"banned 88", `{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`, errBanned, 88},
		{"suspended 64", `{"errors":[{"code":64}]}`, errSuspended, 64},
		{"locked 326", `{"errors":[{"code":326}]}`, errLocked, 326},
		{"csrf 353", `{"errors":[{"code":353}]}`, errCSRF, 353},
		{"auth expired 32", `{"errors":[{"code":32}]}`, errAuthExpired, 32},
		{"blocked 161", `{"errors":[{"code":161}]}`, errBlocked, 161},
		{"not authorized 179", `{"errors":[{"code":179}]}`, errNotAuthorized, 179},
		{"not authorized 219", `{"errors":[{"code":219}]}`, errNotAuthorized, 219},
		{"internal 131", `{"errors":[{"code":131}]}`, errInternal, 131},
		{"known code after unknown", `{"errors":[{"code":999},{"code":32}]}`, errAuthExpired, 32},
		{"unknown code", `{"errors":[{"code":999,"message":"nope"}]}`, errOther, 999},
		{"invalid json", `{invalid`, errNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, apiErr := classifyError([]byte(tt.body))
			assert.Equal(t, tt.expected, class)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestParseRateLimitReset(t *testing.T) {
	ts := time.Now().Add(3 * time.Minute).Unix()
	assert.Equal(t, ts, parseRateLimitReset(fmt.Sprint(ts)).Unix())

	for _, v := range []string{"", "not-a-number"} {
		result := parseRateLimitReset(v)
		if time.Until(result) < 14*time.Minute {
			t.Fatalf("expected ~15min fallback for %q", v)
		}
	}
}

func TestRateLimitSnapshot(t *testing.T) {
	snap := rateLimitSnapshot(map[string]string{
		"X-Rate-Limit-Limit":     "50",
		"x-rate-limit-remaining": "0",
		"x-rate-limit-reset":     "1700000000",
	})
	assert.Equal(t, 50, snap.Limit)
	assert.Equal(t, 0, snap.Remaining)
	assert.Equal(t, int64(1700000000), snap.Reset.Unix())

	empty := rateLimitSnapshot(nil)
	assert.Equal(t, -1, empty.Limit)
	assert.Equal(t, -1, empty.Remaining)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
	}{
		{nil, KindNone},
		{&AuthenticationError{Status: 401}, KindAuthentication},
		{fmt.Errorf("SearchTimeline: %w", &RateLimitError{}), KindRateLimited},
		{&PayloadTooLargeError{}, KindPayloadTooLarge},
		{fmt.Errorf("upload INIT: %w", &MalformedResponseError{Path: "media_id_string"}), KindMalformedResponse},
		{&MediaProcessingError{Message: "InvalidMedia"}, KindMediaProcessingFailed},
		{&ProtocolError{Status: 500}, KindProtocol},
		{errors.New("dial tcp: timeout"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	procErr := &MediaProcessingError{MediaID: "1", Message: "Unsupported video codec: hevc"}
	assert.Contains(t, procErr.Error(), "Unsupported video codec: hevc")

	shapeErr := &MalformedResponseError{Path: "data.user.result"}
	assert.Equal(t, "malformed response: missing data.user.result", shapeErr.Error())

	wrapped := &MalformedResponseError{Path: "$", Err: errors.New("unexpected EOF")}
	require.ErrorContains(t, wrapped, "unexpected EOF")

	authErr := &AuthenticationError{Endpoint: "CreateTweet", Status: 403, Code: 353, Message: "csrf"}
	assert.Equal(t, "authentication error on CreateTweet: HTTP 403 (code 353): csrf", authErr.Error())
}
