package bedrock

// ChatRequest is the Anthropic messages body accepted by InvokeModel.
type ChatRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Messages         []Message `json:"messages"`
}

type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatResponse is the Anthropic messages reply.
type ChatResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      *Usage         `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CompletionRequest is the flat body sent through an inference profile.
type CompletionRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// CompletionResponse accepts the text shapes completion models reply with.
type CompletionResponse struct {
	Completion string `json:"completion"`
	OutputText string `json:"outputText"`
	Output     *struct {
		Message struct {
			Content []ContentBlock `json:"content"`
		} `json:"message"`
	} `json:"output"`
}

// Text returns the first non-empty text field.
func (r *CompletionResponse) Text() string {
	switch {
	case r.Completion != "":
		return r.Completion
	case r.OutputText != "":
		return r.OutputText
	case r.Output != nil && len(r.Output.Message.Content) > 0:
		return r.Output.Message.Content[0].Text
	}
	return ""
}
