package bedrock

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"playlist-digest/internal/llm"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithRegion(region string) ClientOption {
	return func(c *Client) {
		if region != "" {
			c.region = region
		}
	}
}

func WithConfig(config *aws.Config) ClientOption {
	return func(c *Client) {
		c.awsConfig = config
	}
}

// WithRuntime replaces the bedrockruntime client.
func WithRuntime(api RuntimeAPI) ClientOption {
	return func(c *Client) {
		c.runtime = api
	}
}

// WithAdmin replaces the bedrock control-plane client.
func WithAdmin(api AdminAPI) ClientOption {
	return func(c *Client) {
		c.admin = api
	}
}

// WithInferenceProfile names the application inference profile used by
// completion models.
func WithInferenceProfile(name string) ClientOption {
	return func(c *Client) {
		c.profileName = name
	}
}

// WithAppTag sets the AppName tag value used to find and create profiles.
func WithAppTag(tag string) ClientOption {
	return func(c *Client) {
		if tag != "" {
			c.appTag = tag
		}
	}
}

func WithAnthropicVersion(version string) ClientOption {
	return func(c *Client) {
		c.anthropicVersion = version
	}
}

// WithPrices replaces the price table.
func WithPrices(prices map[string]llm.Price) ClientOption {
	return func(c *Client) {
		c.prices = prices
	}
}

func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithDiagnostics sets the logger cost lines are written to.
func WithDiagnostics(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.diag = log
	}
}
