package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playlist-digest/internal/llm"
)

func TestModelID(t *testing.T) {
	id, err := ModelID("claude")
	require.NoError(t, err)
	assert.Equal(t, ClaudeSonnet, id)

	id, err = ModelID("anthropic.claude-3-opus-20240229-v1:0")
	require.NoError(t, err)
	assert.Equal(t, "anthropic.claude-3-opus-20240229-v1:0", id)

	_, err = ModelID("")
	assert.ErrorIs(t, err, llm.ErrConfiguration)
}

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyChat, FamilyOf(ClaudeSonnet))
	assert.Equal(t, FamilyChat, FamilyOf(ClaudeHaiku))
	assert.Equal(t, FamilyCompletion, FamilyOf(NovaLite))
}

func newChatClient(t *testing.T, rt *fakeRuntime, diag *bytes.Buffer, opts ...ClientOption) *Client {
	t.Helper()
	cfg := llm.DefaultModelConfig()
	cfg.Model = "claude"
	base := []ClientOption{WithRuntime(rt), WithLogger(discard()), WithDiagnostics(bufferLogger(diag))}
	c, err := NewClient(context.Background(), cfg, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestChatInvoke(t *testing.T) {
	rt := &fakeRuntime{replies: [][]byte{chatReply(`{"summary": "ok"}`, 10, 5)}}
	var diag bytes.Buffer
	c := newChatClient(t, rt, &diag)

	out, err := c.RawInvoke(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, `{"summary": "ok"}`, out)

	require.Len(t, rt.inputs, 1)
	assert.Equal(t, ClaudeSonnet, aws.ToString(rt.inputs[0].ModelId))

	var req ChatRequest
	require.NoError(t, json.Unmarshal(rt.inputs[0].Body, &req))
	assert.Equal(t, "bedrock-2023-05-31", req.AnthropicVersion)
	assert.Equal(t, 4096, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, []ContentBlock{{Type: "text", Text: "summarize"}}, req.Messages[0].Content)

	assert.Contains(t, diag.String(), "bedrock invocation cost")
}

func TestCostAccumulates(t *testing.T) {
	rt := &fakeRuntime{replies: [][]byte{chatReply("a", 100, 50), chatReply("b", 200, 100)}}
	var diag bytes.Buffer
	c := newChatClient(t, rt, &diag)

	_, err := c.RawInvoke(context.Background(), "one")
	require.NoError(t, err)
	_, err = c.RawInvoke(context.Background(), "two")
	require.NoError(t, err)

	// (0.1*0.003 + 0.05*0.015) + (0.2*0.003 + 0.1*0.015) = 0.00105 + 0.0021
	assert.InDelta(t, 0.00315, c.TotalCost(), 1e-9)
}

func TestUnpricedModelWarnsOnce(t *testing.T) {
	rt := &fakeRuntime{replies: [][]byte{chatReply("a", 100, 50)}}
	var diag bytes.Buffer
	c := newChatClient(t, rt, &diag, WithPrices(map[string]llm.Price{}))

	for i := 0; i < 3; i++ {
		_, err := c.RawInvoke(context.Background(), "p")
		require.NoError(t, err)
	}

	assert.Equal(t, 0.0, c.TotalCost())
	assert.Equal(t, 1, bytes.Count(diag.Bytes(), []byte("no price configured")))
}

func TestChatInvokeMalformedBody(t *testing.T) {
	rt := &fakeRuntime{replies: [][]byte{[]byte(`<html>`), []byte(`{"content": []}`)}}
	var diag bytes.Buffer
	c := newChatClient(t, rt, &diag)

	_, err := c.RawInvoke(context.Background(), "p")
	assert.ErrorIs(t, err, llm.ErrParse)
	assert.False(t, llm.IsRetryable(err))

	_, err = c.RawInvoke(context.Background(), "p")
	assert.ErrorIs(t, err, llm.ErrParse)
}

func TestSDKErrorsKeepCode(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"throttling", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"}, true},
		{"model not ready", &smithy.GenericAPIError{Code: "ModelNotReadyException", Message: "warming"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"}, false},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException", Message: "malformed input request"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &fakeRuntime{err: tt.err}
			var diag bytes.Buffer
			c := newChatClient(t, rt, &diag)

			_, err := c.RawInvoke(context.Background(), "p")
			require.Error(t, err)
			assert.ErrorIs(t, err, llm.ErrBackend)
			assert.Equal(t, tt.retryable, llm.IsRetryable(err))

			var apiErr smithy.APIError
			assert.True(t, errors.As(err, &apiErr))
		})
	}
}

func TestCompletionModelProvisionsRoute(t *testing.T) {
	admin := &fakeAdmin{}
	rt := &fakeRuntime{replies: [][]byte{[]byte(`{"outputText": "{\"category\": \"HPC\"}"}`)}}
	cfg := llm.DefaultModelConfig()
	cfg.Model = "nova"

	c, err := NewClient(context.Background(), cfg,
		WithRuntime(rt), WithAdmin(admin), WithRegion("us-east-1"),
		WithInferenceProfile("digest-nova"), WithLogger(discard()))
	require.NoError(t, err)
	require.NotNil(t, c.Route())

	// a second client finds the profile instead of creating another
	again, err := NewClient(context.Background(), cfg,
		WithRuntime(rt), WithAdmin(admin), WithRegion("us-east-1"),
		WithInferenceProfile("digest-nova"), WithLogger(discard()))
	require.NoError(t, err)
	assert.Equal(t, c.Route().ARN, again.Route().ARN)
	assert.Equal(t, 1, admin.createCount())

	out, err := c.RawInvoke(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, `{"category": "HPC"}`, out)
	assert.Equal(t, c.Route().ARN, aws.ToString(rt.inputs[0].ModelId))

	var req CompletionRequest
	require.NoError(t, json.Unmarshal(rt.inputs[0].Body, &req))
	assert.Equal(t, "classify", req.Prompt)
	assert.Equal(t, 4096, req.MaxTokens)
	assert.Equal(t, 0.0, c.TotalCost())
}

func TestCompletionModelWithoutRouteFails(t *testing.T) {
	admin := &fakeAdmin{listErr: errors.New("AccessDeniedException")}
	rt := &fakeRuntime{replies: [][]byte{[]byte(`{}`)}}
	cfg := llm.DefaultModelConfig()
	cfg.Model = "nova"

	c, err := NewClient(context.Background(), cfg,
		WithRuntime(rt), WithAdmin(admin), WithInferenceProfile("digest-nova"), WithLogger(discard()))
	require.NoError(t, err, "provisioning failures are not fatal")
	assert.Nil(t, c.Route())

	_, err = c.RawInvoke(context.Background(), "p")
	assert.ErrorIs(t, err, llm.ErrConfiguration)
	assert.Empty(t, rt.inputs)
}
