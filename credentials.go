package xactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Credential is the signing material supplied by an authentication collaborator.
type Credential interface {
	// IsAuthenticated reports whether the credential carries a user session.
	IsAuthenticated() bool
	// Headers returns the headers that sign a request.
	Headers() map[string]string
}

// CredentialProvider hands the client a credential for each outbound call.
type CredentialProvider interface {
	Credential(ctx context.Context, endpoint string) (Credential, error)
}

// Observer is implemented by providers that want to learn call outcomes
// (nil err on success). The client never mutates credentials itself.
type Observer interface {
	Observe(cred Credential, endpoint string, err error)
}

// GuestToken is an unauthenticated credential usable for public reads.
type GuestToken string

// IsAuthenticated implements Credential.
func (g GuestToken) IsAuthenticated() bool { return false }

// Headers implements Credential.
func (g GuestToken) Headers() map[string]string { return guestHeaders(string(g)) }

type staticCredentials struct{ cred Credential }

// StaticCredentials returns a provider that always hands out cred.
func StaticCredentials(cred Credential) CredentialProvider {
	return staticCredentials{cred: cred}
}

func (s staticCredentials) Credential(context.Context, string) (Credential, error) {
	if s.cred == nil {
		return nil, &AuthenticationError{Message: "no credential configured"}
	}
	return s.cred, nil
}

// AccountPool rotates requests across several accounts. Accounts that hit a
// 429 are skipped for that endpoint until the reported reset; accounts whose
// session is rejected are cooled down.
type AccountPool struct {
	pool     *pool.Pool[*Account]
	accounts []*Account
	cooldown time.Duration
}

// NewAccountPool builds a pool over accounts. cooldown is how long a rejected
// account stays out of rotation; zero means one hour.
func NewAccountPool(accounts []*Account, cooldown time.Duration) *AccountPool {
	if cooldown == 0 {
		cooldown = time.Hour
	}
	for _, acc := range accounts {
		if acc.limiter() == nil {
			acc.rateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig)
			acc.HealthTracker = pool.DefaultHealthTracker()
			acc.active = true
		}
	}
	return &AccountPool{
		pool:     pool.New(accounts, pool.Config{}),
		accounts: accounts,
		cooldown: cooldown,
	}
}

// Credential implements CredentialProvider.
func (p *AccountPool) Credential(_ context.Context, endpoint string) (Credential, error) {
	acc, err := p.pool.Next(func(a *Account) bool {
		return a.IsAuthenticated() && !a.IsEndpointRateLimited(endpoint)
	})
	if err == nil {
		return acc, nil
	}

	// Tell a pool that is only waiting on rate limits apart from one with no usable sessions.
	var earliest time.Time
	for _, a := range p.accounts {
		if !a.IsActive() || !a.IsAuthenticated() || !a.IsEndpointRateLimited(endpoint) {
			continue
		}
		if at := a.EndpointAvailableAt(endpoint); earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}
	if !earliest.IsZero() {
		return nil, &RateLimitError{
			Endpoint: endpoint,
			Snapshot: RateLimitSnapshot{Limit: -1, Remaining: 0, Reset: earliest},
		}
	}
	return nil, &AuthenticationError{Endpoint: endpoint, Message: fmt.Sprintf("no usable account: %v", err)}
}

// Observe implements Observer.
func (p *AccountPool) Observe(cred Credential, endpoint string, err error) {
	acc, ok := cred.(*Account)
	if !ok || errors.Is(err, context.Canceled) {
		return
	}
	switch KindOf(err) {
	case KindNone:
		acc.RecordSuccess()
	case KindRateLimited:
		if rl, ok := asRateLimit(err); ok {
			acc.MarkEndpointRateLimited(endpoint, rl.Snapshot.Reset)
		}
	case KindAuthentication:
		p.pool.SoftDeactivate(acc, p.cooldown)
	case KindProtocol, KindOther:
		if acc.RecordFailure() {
			p.pool.DeactivateItem(acc)
		}
	}
}

// Len returns the number of accounts in the pool.
func (p *AccountPool) Len() int { return len(p.accounts) }
