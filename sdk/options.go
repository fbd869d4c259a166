package talentwire

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mawhubtech/talentwire-go/pkg/core/metrics"
)

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient sets a custom HTTP client for the search and synthesis
// endpoints.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRequestTimeout sets the default timeout applied to request/response
// operations when the caller's context carries no deadline.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// WithSearchEndpoint sets the cache-backed pagination endpoint used to
// fetch result pages after the first.
func WithSearchEndpoint(url string) ClientOption {
	return func(c *Client) {
		c.searchURL = url
	}
}

// WithSynthesisEndpoint sets the speech-synthesis endpoint.
func WithSynthesisEndpoint(url string) ClientOption {
	return func(c *Client) {
		c.synthesisURL = url
	}
}

// WithSynthesisVoice sets the voice name sent with synthesis requests.
func WithSynthesisVoice(voice string) ClientOption {
	return func(c *Client) {
		c.synthesisVoice = voice
	}
}

// WithReconnectPolicy bounds reconnection after an unexpected drop:
// at most attempts tries, delays doubling from base up to max.
func WithReconnectPolicy(attempts int, base, max time.Duration) ClientOption {
	return func(c *Client) {
		c.maxReconnectAttempts = attempts
		c.reconnectBaseDelay = base
		c.reconnectMaxDelay = max
	}
}

// WithMetrics registers client metrics on reg. Pass nil to use the
// default Prometheus registerer.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *Client) {
		c.metrics = metrics.New(reg)
	}
}
