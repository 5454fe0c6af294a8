package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// CheckFunc adapts a plain function into a Check.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) Result
}

// NewCheckFunc wraps fn as a named Check.
func NewCheckFunc(name string, fn func(ctx context.Context) Result) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string { return c.name }

func (c *CheckFunc) Check(ctx context.Context) Result { return c.fn(ctx) }

// HTTPCheck probes an HTTP endpoint. Any 2xx response is healthy; 5xx is
// unhealthy; everything else is degraded.
type HTTPCheck struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPCheck builds an HTTP endpoint check. A nil client falls back to
// a dedicated client with a sane timeout.
func NewHTTPCheck(name, url string, client *http.Client) *HTTPCheck {
	if client == nil {
		client = &http.Client{Timeout: DefaultCheckTimeout}
	}

	return &HTTPCheck{name: name, url: url, client: client}
}

func (c *HTTPCheck) Name() string { return c.name }

func (c *HTTPCheck) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Unhealthy(fmt.Sprintf("building request: %v", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Unhealthy(fmt.Sprintf("endpoint unreachable: %v", err)).
			WithDetail("url", c.url)
	}
	defer resp.Body.Close()

	result := Healthy("endpoint responding")

	switch {
	case resp.StatusCode >= 500:
		result = Unhealthy("endpoint returning server errors")
	case resp.StatusCode >= 300:
		result = Degraded("endpoint returning unexpected status")
	}

	return result.
		WithDetail("url", c.url).
		WithDetail("status_code", resp.StatusCode)
}

// Pinger is the slice of a database handle the check needs; *sql.DB and
// most driver pools satisfy it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DatabaseCheck probes a database connection pool.
type DatabaseCheck struct {
	name string
	db   Pinger
}

// NewDatabaseCheck builds a database connectivity check.
func NewDatabaseCheck(name string, db Pinger) *DatabaseCheck {
	return &DatabaseCheck{name: name, db: db}
}

func (c *DatabaseCheck) Name() string { return c.name }

func (c *DatabaseCheck) Check(ctx context.Context) Result {
	start := time.Now()

	if err := c.db.PingContext(ctx); err != nil {
		return Unhealthy(fmt.Sprintf("ping failed: %v", err))
	}

	return Healthy("database responding").
		WithDetail("ping_ms", time.Since(start).Milliseconds())
}
