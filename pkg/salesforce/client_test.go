package salesforce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// mockClient implements Client for testing.
type mockClient struct {
	queryFn func(ctx context.Context, soql string, out any) error
}

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	if m.queryFn != nil {
		return m.queryFn(ctx, soql, out)
	}
	return nil
}

func TestWithRateLimit(t *testing.T) {
	c := &sfClient{}
	WithRateLimit(2.5)(c)
	require.NotNil(t, c.limiter)
	assert.Equal(t, rate.Limit(2.5), c.limiter.Limit())
	assert.Equal(t, 2, c.limiter.Burst())

	c = &sfClient{}
	WithRateLimit(0.5)(c)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst(), "burst never drops below one")

	c = &sfClient{}
	WithRateLimit(0)(c)
	assert.Nil(t, c.limiter)
}

func TestWaitCancelled(t *testing.T) {
	c := &sfClient{limiter: rate.NewLimiter(rate.Limit(0.001), 1)}
	require.NoError(t, c.wait(context.Background()), "first token is available")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.wait(ctx)
	require.Error(t, err, "second token would take ~1000s")
}

func TestWaitNoLimiter(t *testing.T) {
	c := &sfClient{}
	assert.NoError(t, c.wait(context.Background()))
}

func TestNewJWTClientMissingKey(t *testing.T) {
	_, err := NewJWTClient(Config{KeyPath: "/nonexistent/key.pem"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read key")
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	var c Client = &mockClient{
		queryFn: func(ctx context.Context, soql string, out any) error {
			assert.Contains(t, soql, "SELECT")
			return nil
		},
	}
	require.NoError(t, c.Query(context.Background(), "SELECT Id FROM Opportunity", nil))
}
