package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"playlist-digest/internal/llm"
)

const maxErrorBody = 512

// RawInvoke sends one non-streaming generate request and returns the text.
func (c *Client) RawInvoke(ctx context.Context, prompt string) (string, error) {
	const op = "ollama generate"

	req := &Request{
		Model:  c.model,
		Prompt: prompt,
		Format: c.cfg.Format,
		Stream: false,
		Options: &Options{
			Temperature: c.cfg.Temperature,
			NumThread:   c.cfg.NumThread,
			NumGPU:      c.cfg.NumGPU,
			NumCtx:      c.cfg.NumCtx,
			RepeatLastN: c.cfg.RepeatLastN,
		},
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", llm.NewError(llm.KindConfiguration, op, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", llm.NewError(llm.KindConfiguration, op, "failed to create HTTP request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", llm.NewError(llm.KindBackend, op, "failed to send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.NewError(llm.KindBackend, op, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &llm.Error{
			Kind:       llm.KindBackend,
			Op:         op,
			Message:    fmt.Sprintf("API request failed with status %d: %s", resp.StatusCode, errorText(body)),
			StatusCode: resp.StatusCode,
		}
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", llm.ParseError(op, "failed to unmarshal response", err)
	}

	c.log.Debug("ollama response",
		"model", c.model,
		"prompt_tokens", out.PromptEvalCount,
		"completion_tokens", out.EvalCount,
	)
	return out.Response, nil
}

func errorText(body []byte) string {
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
