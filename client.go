package xactions

import (
	"errors"
	"fmt"
	"log/slog"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"
)

// Client is the protocol client for the private GraphQL and media upload APIs.
type Client struct {
	guard *guard
	creds CredentialProvider
	cfg   ClientConfig
}

// NewClient creates a fully-wired client.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.defaults()

	creds := cfg.Credentials
	if creds == nil {
		if len(cfg.Accounts) == 0 {
			return nil, errors.New("no credentials configured")
		}
		creds = NewAccountPool(cfg.Accounts, cfg.AuthCooldown)
	}

	doer := cfg.Doer
	if doer == nil {
		opts := []stealth.ClientOption{
			stealth.WithHeaderOrder(headerOrder),
		}
		if cfg.DefaultProxy != "" {
			opts = append(opts, stealth.WithProxy(cfg.DefaultProxy))
		}
		bc, err := stealth.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("stealth client: %w", err)
		}
		doer = bc

		for _, acc := range cfg.Accounts {
			if acc.Proxy == "" {
				continue
			}
			accClient, err := stealth.NewClient(
				stealth.WithProxy(acc.Proxy),
				stealth.WithProfile(acc.Profile.TLSProfile),
				stealth.WithHeaderOrder(headerOrder),
			)
			if err != nil {
				slog.Warn("per-account client failed",
					slog.String("user", acc.Username),
					slog.String("proxy", stealth.MaskProxy(acc.Proxy)),
					slog.Any("error", err))
				continue
			}
			acc.client = accClient
		}
	}

	g := &guard{
		doer:        doer,
		creds:       creds,
		timeout:     cfg.RequestTimeout,
		metricsHook: cfg.MetricsHook,
	}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), cfg.Burst)
	}
	if !cfg.DisableJitter {
		g.jitter = stealth.DefaultJitter.Sleep
	}

	return &Client{guard: g, creds: creds, cfg: cfg}, nil
}

// Credentials returns the provider signing this client's requests.
func (c *Client) Credentials() CredentialProvider {
	return c.creds
}

func (c *Client) pageConfig() pageConfig {
	return pageConfig{defaultLimit: c.cfg.DefaultLimit, maxEmptyPages: c.cfg.MaxEmptyPages}
}
