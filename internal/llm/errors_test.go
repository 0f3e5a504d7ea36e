package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttling code", &Error{Kind: KindBackend, Code: "ThrottlingException"}, true},
		{"model not ready", &Error{Kind: KindBackend, Code: "ModelNotReadyException"}, true},
		{"status 429", &Error{Kind: KindBackend, StatusCode: 429}, true},
		{"status 503", &Error{Kind: KindBackend, StatusCode: 503}, true},
		{"status 400", &Error{Kind: KindBackend, StatusCode: 400, Message: "bad input"}, false},
		{"access denied", &Error{Kind: KindBackend, Code: "AccessDeniedException", Message: "not authorized"}, false},
		{"net timeout", fmt.Errorf("post: %w", timeoutErr{}), true},
		{"rate limit text", errors.New("Rate limit reached for requests"), true},
		{"connection text", errors.New("dial tcp: connection refused"), true},
		{"too many tokens text", errors.New("Too many tokens, please wait"), true},
		{"plain failure", errors.New("model not found"), false},
		{"parse never retried", ParseError("decode", "timeout in payload", nil), false},
		{"configuration never retried", ConfigurationError("create", "connection string missing"), false},
		{"provisioning never retried", NewError(KindProvisioning, "ensure", "throttled", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ConfigurationError("create backend", "model name is empty"))

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.False(t, errors.Is(err, ErrBackend))
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(context.Canceled))
	assert.Equal(t, "create backend: model name is empty", errors.Unwrap(err).Error())
}

func TestExhaustedKeepsCode(t *testing.T) {
	last := &Error{Kind: KindBackend, Code: "ThrottlingException", Message: "slow down"}
	err := exhausted("invoke bedrock", 5, last)

	assert.Equal(t, KindBackend, err.Kind)
	assert.Equal(t, "ThrottlingException", err.Code)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, "invoke bedrock: max retries exceeded after 5 attempts, last error: slow down", err.Error())
}
