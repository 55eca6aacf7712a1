// Package salesforce provides JWT-authenticated, rate-limited SOQL access
// to Salesforce.
package salesforce

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/retry"
)

// Client defines the Salesforce API operations used by the reporting
// pipeline.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
}

// Config holds JWT bearer-flow credentials.
type Config struct {
	LoginURL string
	ClientID string
	Username string
	KeyPath  string
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for SF API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: The underlying go-salesforce/v3 library does not accept
// context.Context, so the SF call itself ignores ctx. The rate limiter wait
// does honor it, so callers can still cancel there.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
	retry   retry.Policy
}

// WithRetry overrides the default retry policy for transient API failures.
func WithRetry(p retry.Policy) ClientOption {
	return func(c *sfClient) {
		c.retry = p
	}
}

// NewClient creates a Client wrapping the given go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewJWTClient authenticates with the JWT bearer flow and returns a Client.
func NewJWTClient(cfg Config, opts ...ClientOption) (Client, error) {
	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, eris.Wrapf(err, "sf: read key %s", cfg.KeyPath)
	}
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.LoginURL,
		ConsumerKey:    cfg.ClientID,
		Username:       cfg.Username,
		ConsumerRSAPem: string(key),
	})
	if err != nil {
		return nil, eris.Wrap(err, "sf: init jwt client")
	}
	return NewClient(sf, opts...), nil
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	p := c.retry
	if p.OnRetry == nil {
		p.OnRetry = func(attempt int, err error) {
			zap.L().Warn("retrying salesforce query", zap.Int("attempt", attempt), zap.Error(err))
		}
	}
	err := retry.Do(ctx, p, func(ctx context.Context) error {
		if err := c.wait(ctx); err != nil {
			return err
		}
		return c.sf.Query(soql, out)
	})
	if err != nil {
		return eris.Wrap(err, "sf: query")
	}
	return nil
}
