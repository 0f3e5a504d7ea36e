package bedrock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"

	"playlist-digest/internal/llm"
)

// AppTagKey is the tag key stamped on every profile this application creates.
const AppTagKey = "AppName"

// AdminAPI is the subset of the Bedrock control plane used for inference
// profiles. *bedrock.Client satisfies it.
type AdminAPI interface {
	ListInferenceProfiles(ctx context.Context, params *bedrock.ListInferenceProfilesInput, optFns ...func(*bedrock.Options)) (*bedrock.ListInferenceProfilesOutput, error)
	ListTagsForResource(ctx context.Context, params *bedrock.ListTagsForResourceInput, optFns ...func(*bedrock.Options)) (*bedrock.ListTagsForResourceOutput, error)
	CreateInferenceProfile(ctx context.Context, params *bedrock.CreateInferenceProfileInput, optFns ...func(*bedrock.Options)) (*bedrock.CreateInferenceProfileOutput, error)
	DeleteInferenceProfile(ctx context.Context, params *bedrock.DeleteInferenceProfileInput, optFns ...func(*bedrock.Options)) (*bedrock.DeleteInferenceProfileOutput, error)
}

// InferenceRoute is an application inference profile that routes requests to
// a foundation model.
type InferenceRoute struct {
	ID          string
	ARN         string
	Name        string
	SourceModel string
	Models      []string // every model ARN the profile routes to
	Status      string
	CreatedAt   time.Time
}

// Provisioner looks up and creates application inference profiles.
type Provisioner struct {
	api    AdminAPI
	appTag string
	log    *slog.Logger
}

// NewProvisioner returns a Provisioner that tags what it creates with appTag.
func NewProvisioner(api AdminAPI, appTag string, log *slog.Logger) *Provisioner {
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{api: api, appTag: appTag, log: log}
}

// List returns every application inference profile in the region.
func (p *Provisioner) List(ctx context.Context) ([]InferenceRoute, error) {
	const op = "list inference profiles"

	var routes []InferenceRoute
	var next *string
	for {
		out, err := p.api.ListInferenceProfiles(ctx, &bedrock.ListInferenceProfilesInput{
			TypeEquals: types.InferenceProfileTypeApplication,
			NextToken:  next,
		})
		if err != nil {
			return nil, llm.NewError(llm.KindProvisioning, op, "request failed", err)
		}
		for _, s := range out.InferenceProfileSummaries {
			routes = append(routes, routeFromSummary(s))
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return routes, nil
		}
		next = out.NextToken
	}
}

// Find returns the profile named name, tagged for this application, that
// copies sourceModelARN. It returns nil when there is none.
func (p *Provisioner) Find(ctx context.Context, name, sourceModelARN string) (*InferenceRoute, error) {
	routes, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range routes {
		r := routes[i]
		if r.Name != name || !r.routesTo(sourceModelARN) {
			continue
		}
		tagged, err := p.hasAppTag(ctx, r.ARN)
		if err != nil {
			return nil, err
		}
		if tagged {
			return &r, nil
		}
	}
	return nil, nil
}

// Ensure returns the matching profile, creating it only when Find comes back
// empty. Calling it repeatedly with the same arguments creates at most one
// profile.
func (p *Provisioner) Ensure(ctx context.Context, name, sourceModelARN string) (*InferenceRoute, error) {
	const op = "ensure inference profile"
	if name == "" {
		return nil, llm.NewError(llm.KindProvisioning, op, "profile name is empty", nil)
	}

	existing, err := p.Find(ctx, name, sourceModelARN)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		p.log.Info("using existing inference profile", "name", name, "arn", existing.ARN)
		return existing, nil
	}

	p.log.Info("creating inference profile", "name", name, "source_model", sourceModelARN)
	out, err := p.api.CreateInferenceProfile(ctx, &bedrock.CreateInferenceProfileInput{
		InferenceProfileName: aws.String(name),
		Description:          aws.String(fmt.Sprintf("Inference profile for %s", sourceModelARN)),
		ModelSource:          &types.InferenceProfileModelSourceMemberCopyFrom{Value: sourceModelARN},
		Tags: []types.Tag{{
			Key:   aws.String(AppTagKey),
			Value: aws.String(p.appTag),
		}},
	})
	if err != nil {
		return nil, llm.NewError(llm.KindProvisioning, op, "create failed", err)
	}

	arn := aws.ToString(out.InferenceProfileArn)
	return &InferenceRoute{
		ID:          arn,
		ARN:         arn,
		Name:        name,
		SourceModel: sourceModelARN,
		Models:      []string{sourceModelARN},
		Status:      string(out.Status),
	}, nil
}

// Delete removes every application profile called name that carries this
// application's tag and returns how many were deleted.
func (p *Provisioner) Delete(ctx context.Context, name string) (int, error) {
	const op = "delete inference profile"

	routes, err := p.List(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, r := range routes {
		if r.Name != name {
			continue
		}
		tagged, err := p.hasAppTag(ctx, r.ARN)
		if err != nil {
			return deleted, err
		}
		if !tagged {
			p.log.Info("leaving inference profile owned by another application", "id", r.ID)
			continue
		}
		if _, err := p.api.DeleteInferenceProfile(ctx, &bedrock.DeleteInferenceProfileInput{
			InferenceProfileIdentifier: aws.String(r.ID),
		}); err != nil {
			return deleted, llm.NewError(llm.KindProvisioning, op, fmt.Sprintf("delete %s failed", r.ID), err)
		}
		p.log.Info("deleted inference profile", "id", r.ID)
		deleted++
	}
	return deleted, nil
}

func (p *Provisioner) hasAppTag(ctx context.Context, arn string) (bool, error) {
	out, err := p.api.ListTagsForResource(ctx, &bedrock.ListTagsForResourceInput{ResourceARN: aws.String(arn)})
	if err != nil {
		return false, llm.NewError(llm.KindProvisioning, "list tags", "request failed", err)
	}
	for _, t := range out.Tags {
		if aws.ToString(t.Key) == AppTagKey && aws.ToString(t.Value) == p.appTag {
			return true, nil
		}
	}
	return false, nil
}

func routeFromSummary(s types.InferenceProfileSummary) InferenceRoute {
	r := InferenceRoute{
		ID:     aws.ToString(s.InferenceProfileId),
		ARN:    aws.ToString(s.InferenceProfileArn),
		Name:   aws.ToString(s.InferenceProfileName),
		Status: string(s.Status),
	}
	if s.CreatedAt != nil {
		r.CreatedAt = *s.CreatedAt
	}
	for _, m := range s.Models {
		r.Models = append(r.Models, aws.ToString(m.ModelArn))
	}
	if len(r.Models) > 0 {
		r.SourceModel = r.Models[0]
	}
	return r
}

func (r *InferenceRoute) routesTo(modelARN string) bool {
	for _, m := range r.Models {
		if m == modelARN {
			return true
		}
	}
	return false
}
