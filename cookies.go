package xactions

import (
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
)

var sessionCookieDomains = map[string]bool{
	"x.com":        true,
	".x.com":       true,
	"twitter.com":  true,
	".twitter.com": true,
}

// AccountFromCookies builds an Account from browser cookies captured by a
// login collaborator. It needs unexpired auth_token and ct0 cookies for the
// platform's domains. The account is named after the twid user ID when present.
func AccountFromCookies(cookies []*network.Cookie) (*Account, error) {
	var authToken, ct0, userID string
	now := time.Now()
	for _, c := range cookies {
		if c == nil || !sessionCookieDomains[c.Domain] {
			continue
		}
		if c.Expires > 0 && time.Unix(int64(c.Expires), 0).Before(now) {
			continue
		}
		switch c.Name {
		case "auth_token":
			authToken = c.Value
		case "ct0":
			ct0 = c.Value
		case "twid":
			userID = twidUserID(c.Value)
		}
	}
	if authToken == "" || ct0 == "" {
		return nil, &AuthenticationError{Message: "cookies lack an unexpired auth_token and ct0"}
	}
	return NewAccount(userID, authToken, ct0), nil
}

// twidUserID decodes a twid cookie value such as "u%3D12345".
func twidUserID(v string) string {
	if decoded, err := url.QueryUnescape(v); err == nil {
		v = decoded
	}
	return strings.TrimPrefix(strings.Trim(v, `"`), "u=")
}
