package ollama

// Request is the body of POST /api/generate.
type Request struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Format  string   `json:"format,omitempty"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// Options carries runtime hints. Temperature is always sent so that 0 is honored.
type Options struct {
	Temperature float64 `json:"temperature"`
	NumThread   int     `json:"num_thread,omitempty"`
	NumGPU      int     `json:"num_gpu"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	RepeatLastN int     `json:"repeat_last_n,omitempty"`
}

// Response is the non-streaming reply of /api/generate.
type Response struct {
	Model           string `json:"model"`
	CreatedAt       string `json:"created_at"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
