package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	oa "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"playlist-digest/internal/llm"
)

const (
	defaultChatTimeout = 120 * time.Second
	defaultMaxTokens   = 4096
	systemPrompt       = "You are a careful assistant that answers with a single JSON object and nothing else."
)

var modelMap = map[string]oa.ChatModel{
	"gpt-4o":      oa.ChatModelGPT4o,
	"gpt-4o-mini": oa.ChatModelGPT4oMini,
}

// DefaultPrices is the per-1000-token price table in USD.
var DefaultPrices = map[string]llm.Price{
	string(oa.ChatModelGPT4o):     {InputPer1K: 0.0025, OutputPer1K: 0.01},
	string(oa.ChatModelGPT4oMini): {InputPer1K: 0.00015, OutputPer1K: 0.0006},
}

// Models lists the friendly names served by OpenAI.
func Models() []string {
	return []string{"gpt-4o", "gpt-4o-mini"}
}

// Client calls the OpenAI Chat Completions API.
type Client struct {
	model       oa.ChatModel
	client      *oa.Client
	temperature float64
	maxTokens   int
	timeout     time.Duration

	prices   map[string]llm.Price
	ledger   llm.CostLedger
	warnOnce sync.Once

	log  *slog.Logger
	diag *slog.Logger
}

// Option configures a Client.
type Option func(*settings)

type settings struct {
	baseURL string
	prices  map[string]llm.Price
	log     *slog.Logger
	diag    *slog.Logger
	timeout time.Duration
}

func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

func WithPrices(prices map[string]llm.Price) Option {
	return func(s *settings) { s.prices = prices }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *settings) { s.log = log }
}

// WithDiagnostics sets the logger cost lines are written to.
func WithDiagnostics(log *slog.Logger) Option {
	return func(s *settings) { s.diag = log }
}

func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// NewClient builds a client for cfg.Model. The SDK's own retries are
// disabled; callers wrap the client in llm.RetryingInvoker.
func NewClient(apiKey string, cfg llm.ModelConfig, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, llm.ConfigurationError("create openai client", "api key required")
	}
	name := strings.TrimSpace(cfg.Model)
	if name == "" {
		return nil, llm.ConfigurationError("create openai client", "model name is empty")
	}
	model, ok := modelMap[name]
	if !ok {
		model = oa.ChatModel(name)
	}

	s := settings{prices: DefaultPrices, log: slog.Default(), timeout: defaultChatTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	if s.diag == nil {
		s.diag = s.log
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	cli := oa.NewClient(reqOpts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		model:       model,
		client:      &cli,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		timeout:     s.timeout,
		prices:      s.prices,
		log:         s.log,
		diag:        s.diag,
	}, nil
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	return "openai:" + string(c.model)
}

// TotalCost returns the USD spent by this client so far.
func (c *Client) TotalCost() float64 {
	return c.ledger.Total()
}

// RawInvoke sends one chat completion request.
func (c *Client) RawInvoke(ctx context.Context, prompt string) (string, error) {
	const op = "openai chat completion"

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(reqCtx, oa.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            buildMessages(systemPrompt, prompt),
		Temperature:         oa.Float(c.temperature),
		MaxCompletionTokens: oa.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return "", wrapError(op, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", llm.ParseError(op, "no choices returned", nil)
	}

	c.account(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) account(inputTokens, outputTokens int) {
	price, ok := c.prices[string(c.model)]
	if !ok {
		c.warnOnce.Do(func() {
			c.diag.Warn("no price configured for model, cost recorded as zero", "model", c.model)
		})
	}
	cost := llm.Cost(price, inputTokens, outputTokens)
	total := c.ledger.Add(cost)
	c.diag.Info("openai invocation cost",
		"model", c.model,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"cost_usd", cost,
		"total_usd", total,
	)
}

func buildMessages(system, user string) []oa.ChatCompletionMessageParamUnion {
	return []oa.ChatCompletionMessageParamUnion{
		{
			OfSystem: &oa.ChatCompletionSystemMessageParam{
				Content: oa.ChatCompletionSystemMessageParamContentUnion{
					OfString: oa.String(system),
				},
			},
		},
		{
			OfUser: &oa.ChatCompletionUserMessageParam{
				Content: oa.ChatCompletionUserMessageParamContentUnion{
					OfString: oa.String(user),
				},
			},
		},
	}
}

func wrapError(op string, err error) error {
	e := &llm.Error{Kind: llm.KindBackend, Op: op, Message: "request failed", Err: err}
	var apiErr *oa.Error
	if errors.As(err, &apiErr) {
		e.StatusCode = apiErr.StatusCode
		e.Code = apiErr.Code
		e.Message = fmt.Sprintf("request failed with status %d", apiErr.StatusCode)
	}
	return e
}
