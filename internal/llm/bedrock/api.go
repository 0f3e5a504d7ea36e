package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"playlist-digest/internal/llm"
)

// RawInvoke sends one prompt to the model and returns its text.
func (c *Client) RawInvoke(ctx context.Context, prompt string) (string, error) {
	if c.family == FamilyCompletion {
		return c.invokeCompletion(ctx, prompt)
	}
	return c.invokeChat(ctx, prompt)
}

func (c *Client) invokeChat(ctx context.Context, prompt string) (string, error) {
	const op = "bedrock invoke"

	req := &ChatRequest{
		AnthropicVersion: c.anthropicVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		Messages: []Message{{
			Role:    "user",
			Content: []ContentBlock{{Type: "text", Text: prompt}},
		}},
	}
	body, err := c.invoke(ctx, op, c.modelID, req)
	if err != nil {
		return "", err
	}

	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", llm.ParseError(op, "failed to unmarshal response", err)
	}
	if len(resp.Content) == 0 {
		return "", llm.ParseError(op, "response has no content blocks", nil)
	}

	if resp.Usage != nil {
		c.account(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	return resp.Content[0].Text, nil
}

func (c *Client) invokeCompletion(ctx context.Context, prompt string) (string, error) {
	const op = "bedrock invoke"

	if c.route == nil {
		return "", llm.ConfigurationError(op, fmt.Sprintf("model %s requires an inference profile and none is available", c.modelID))
	}

	req := &CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	body, err := c.invoke(ctx, op, c.route.ARN, req)
	if err != nil {
		return "", err
	}

	var resp CompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", llm.ParseError(op, "failed to unmarshal response", err)
	}
	// Completion models carry no usage block here, so nothing reaches the ledger.
	c.log.Debug("cost accounting skipped for completion model", "model", c.modelID, "profile", c.route.ARN)
	return resp.Text(), nil
}

func (c *Client) invoke(ctx context.Context, op, modelID string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, llm.NewError(llm.KindConfiguration, op, "failed to marshal request", err)
	}
	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        data,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, wrapError(op, err)
	}
	return out.Body, nil
}

func (c *Client) account(inputTokens, outputTokens int) {
	price, ok := c.prices[c.modelID]
	if !ok {
		c.warnOnce.Do(func() {
			c.diag.Warn("no price configured for model, cost recorded as zero", "model", c.modelID)
		})
	}
	cost := llm.Cost(price, inputTokens, outputTokens)
	total := c.ledger.Add(cost)
	c.diag.Info("bedrock invocation cost",
		"model", c.modelID,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"cost_usd", cost,
		"total_usd", total,
	)
}

type httpStatusError interface {
	HTTPStatusCode() int
}

// wrapError keeps the SDK's error code and HTTP status so the retry
// envelope can classify the failure.
func wrapError(op string, err error) error {
	e := &llm.Error{Kind: llm.KindBackend, Op: op, Message: "request failed", Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		e.Code = apiErr.ErrorCode()
	}
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		e.StatusCode = statusErr.HTTPStatusCode()
	}
	return e
}
