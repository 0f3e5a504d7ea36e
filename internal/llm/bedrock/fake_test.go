package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type fakeRuntime struct {
	mu       sync.Mutex
	inputs   []*bedrockruntime.InvokeModelInput
	replies  [][]byte
	err      error
	position int
}

func (f *fakeRuntime) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	body := f.replies[f.position%len(f.replies)]
	f.position++
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func chatReply(text string, in, out int) []byte {
	b, _ := json.Marshal(ChatResponse{
		Role:    "assistant",
		Content: []ContentBlock{{Type: "text", Text: text}},
		Usage:   &Usage{InputTokens: in, OutputTokens: out},
	})
	return b
}

type fakeProfile struct {
	summary types.InferenceProfileSummary
	tags    []types.Tag
}

// fakeAdmin keeps application inference profiles in memory.
type fakeAdmin struct {
	mu       sync.Mutex
	profiles []*fakeProfile
	creates  int
	pageSize int
	listErr  error
}

func (f *fakeAdmin) add(name, modelARN, tagValue string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("profile-%d", len(f.profiles)+1)
	arn := "arn:aws:bedrock:us-east-1:123456789012:application-inference-profile/" + id
	f.profiles = append(f.profiles, &fakeProfile{
		summary: types.InferenceProfileSummary{
			InferenceProfileId:   aws.String(id),
			InferenceProfileArn:  aws.String(arn),
			InferenceProfileName: aws.String(name),
			Models:               []types.InferenceProfileModel{{ModelArn: aws.String(modelARN)}},
			Status:               types.InferenceProfileStatusActive,
			Type:                 types.InferenceProfileTypeApplication,
		},
		tags: []types.Tag{{Key: aws.String(AppTagKey), Value: aws.String(tagValue)}},
	})
	return arn
}

func (f *fakeAdmin) ListInferenceProfiles(_ context.Context, in *bedrock.ListInferenceProfilesInput, _ ...func(*bedrock.Options)) (*bedrock.ListInferenceProfilesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	start := 0
	if in.NextToken != nil {
		fmt.Sscanf(*in.NextToken, "%d", &start)
	}
	size := f.pageSize
	if size <= 0 {
		size = len(f.profiles)
	}
	end := start + size
	if end > len(f.profiles) {
		end = len(f.profiles)
	}
	out := &bedrock.ListInferenceProfilesOutput{}
	for _, p := range f.profiles[start:end] {
		out.InferenceProfileSummaries = append(out.InferenceProfileSummaries, p.summary)
	}
	if end < len(f.profiles) {
		out.NextToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func (f *fakeAdmin) ListTagsForResource(_ context.Context, in *bedrock.ListTagsForResourceInput, _ ...func(*bedrock.Options)) (*bedrock.ListTagsForResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if aws.ToString(p.summary.InferenceProfileArn) == aws.ToString(in.ResourceARN) {
			return &bedrock.ListTagsForResourceOutput{Tags: p.tags}, nil
		}
	}
	return &bedrock.ListTagsForResourceOutput{}, nil
}

func (f *fakeAdmin) CreateInferenceProfile(_ context.Context, in *bedrock.CreateInferenceProfileInput, _ ...func(*bedrock.Options)) (*bedrock.CreateInferenceProfileOutput, error) {
	source, ok := in.ModelSource.(*types.InferenceProfileModelSourceMemberCopyFrom)
	if !ok {
		return nil, fmt.Errorf("unexpected model source %T", in.ModelSource)
	}
	tag := ""
	for _, t := range in.Tags {
		if aws.ToString(t.Key) == AppTagKey {
			tag = aws.ToString(t.Value)
		}
	}
	arn := f.add(aws.ToString(in.InferenceProfileName), source.Value, tag)

	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	return &bedrock.CreateInferenceProfileOutput{
		InferenceProfileArn: aws.String(arn),
		Status:              types.InferenceProfileStatusActive,
	}, nil
}

func (f *fakeAdmin) DeleteInferenceProfile(_ context.Context, in *bedrock.DeleteInferenceProfileInput, _ ...func(*bedrock.Options)) (*bedrock.DeleteInferenceProfileOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.profiles[:0]
	for _, p := range f.profiles {
		if aws.ToString(p.summary.InferenceProfileId) != aws.ToString(in.InferenceProfileIdentifier) {
			kept = append(kept, p)
		}
	}
	f.profiles = kept
	return &bedrock.DeleteInferenceProfileOutput{}, nil
}

func (f *fakeAdmin) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}
