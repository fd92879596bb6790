package xactions

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Account is a cookie session (auth_token + ct0) captured by an external
// login or cookie-import collaborator. The client only reads it.
type Account struct {
	Username  string
	AuthToken string
	CT0       string
	Proxy     string
	UserAgent string
	Profile   stealth.BrowserProfile

	active       bool
	reactivateAt time.Time
	// client is the per-account transport when Proxy is set.
	client Doer

	mu          sync.Mutex
	rateLimiter *ratelimit.Limiter

	pool.HealthTracker
}

// NewAccount returns an active account for an existing session.
func NewAccount(username, authToken, ct0 string) *Account {
	acc := &Account{
		Username:  username,
		AuthToken: authToken,
		CT0:       ct0,
		active:    true,
	}
	acc.rateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig)
	acc.HealthTracker = pool.DefaultHealthTracker()
	return acc
}

// ID implements pool.Identity.
func (a *Account) ID() string { return a.Username }

// IsActive implements pool.Identity.
func (a *Account) IsActive() bool { return a.active }

// SetActive implements pool.Identity.
func (a *Account) SetActive(v bool) { a.active = v }

// ReactivateAt implements pool.Identity.
func (a *Account) ReactivateAt() time.Time { return a.reactivateAt }

// SetReactivateAt implements pool.Identity.
func (a *Account) SetReactivateAt(t time.Time) { a.reactivateAt = t }

// IsAuthenticated implements Credential.
func (a *Account) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.AuthToken != "" && a.CT0 != ""
}

// Headers implements Credential.
func (a *Account) Headers() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sessionHeaders(a.AuthToken, a.CT0, a.UserAgent)
}

// MarkEndpointRateLimited marks an endpoint as rate-limited for this account.
func (a *Account) MarkEndpointRateLimited(endpoint string, until time.Time) {
	if rl := a.limiter(); rl != nil {
		rl.MarkRateLimited(endpoint, until)
	}
}

// IsEndpointRateLimited returns true if the endpoint is currently blocked.
func (a *Account) IsEndpointRateLimited(endpoint string) bool {
	if rl := a.limiter(); rl != nil {
		return rl.IsRateLimited(endpoint)
	}
	return false
}

// EndpointAvailableAt returns when this account will be available for the given endpoint.
func (a *Account) EndpointAvailableAt(endpoint string) time.Time {
	if rl := a.limiter(); rl != nil {
		return rl.AvailableAt(endpoint)
	}
	return time.Time{}
}

func (a *Account) limiter() *ratelimit.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rateLimiter
}

// AssignBrowserProfile sets a browser profile based on index.
func AssignBrowserProfile(acc *Account, idx int) {
	p := stealth.BuiltinProfiles[idx%len(stealth.BuiltinProfiles)]
	acc.Profile = p
	acc.UserAgent = p.UserAgent
}

// ParseAccounts parses a comma-separated list of cookie sessions.
// Format: "user1:auth_token:ct0,user2:auth_token:ct0".
func ParseAccounts(raw string) []*Account {
	var accounts []*Account
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			slog.Warn("invalid account entry, skipping", slog.String("user", parts[0]))
			continue
		}
		acc := NewAccount(parts[0], parts[1], parts[2])
		AssignBrowserProfile(acc, len(accounts))
		accounts = append(accounts, acc)
	}
	return accounts
}
