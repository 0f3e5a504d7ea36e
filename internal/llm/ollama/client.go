package ollama

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"playlist-digest/internal/llm"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 120 * time.Second
)

var modelMap = map[string]string{
	"llama3.2": "llama3.2",
	"mistral":  "mistral",
}

// Models lists the friendly names served by the local runtime.
func Models() []string {
	return []string{"llama3.2", "mistral"}
}

// ModelID maps a friendly name to the runtime's model tag; unknown names
// pass through unchanged.
func ModelID(name string) string {
	if id, ok := modelMap[name]; ok {
		return id
	}
	return name
}

// Client talks to a locally hosted Ollama runtime.
type Client struct {
	baseURL    string
	model      string
	cfg        llm.ModelConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient builds a client for cfg.Model.
func NewClient(cfg llm.ModelConfig, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, llm.ConfigurationError("create ollama client", "model name is empty")
	}
	c := &Client{
		baseURL: defaultBaseURL,
		model:   ModelID(cfg.Model),
		cfg:     cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				IdleConnTimeout:       10 * time.Second,
				ResponseHeaderTimeout: defaultTimeout,
			},
			Timeout: defaultTimeout,
		},
		log: slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c, nil
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	return "ollama:" + c.model
}

// Model returns the resolved runtime model tag.
func (c *Client) Model() string {
	return c.model
}
