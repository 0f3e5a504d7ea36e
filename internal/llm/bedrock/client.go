package bedrock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"playlist-digest/internal/llm"
)

const (
	defaultAnthropicVersion = "bedrock-2023-05-31"
	defaultRegion           = "us-east-1"
	defaultMaxTokens        = 4096
	defaultAppTag           = "playlist-digest"
)

// RuntimeAPI is the data-plane call used for inference. *bedrockruntime.Client
// satisfies it.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client invokes foundation models on Amazon Bedrock. It keeps a cost ledger
// and, for models that need one, the inference profile resolved at creation.
type Client struct {
	runtime   RuntimeAPI
	admin     AdminAPI
	awsConfig *aws.Config

	region           string
	friendly         string
	modelID          string
	family           Family
	temperature      float64
	maxTokens        int
	anthropicVersion string
	profileName      string
	appTag           string

	route *InferenceRoute

	prices   map[string]llm.Price
	ledger   llm.CostLedger
	warnOnce sync.Once

	log  *slog.Logger
	diag *slog.Logger
}

// NewClient resolves cfg.Model and connects to Bedrock. Models that route
// through an inference profile get it looked up or created here; a
// provisioning failure is logged and leaves the client without a route.
func NewClient(ctx context.Context, cfg llm.ModelConfig, options ...ClientOption) (*Client, error) {
	modelID, err := ModelID(cfg.Model)
	if err != nil {
		return nil, err
	}

	c := &Client{
		region:           defaultRegion,
		friendly:         cfg.Model,
		modelID:          modelID,
		family:           FamilyOf(modelID),
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		anthropicVersion: defaultAnthropicVersion,
		appTag:           defaultAppTag,
		prices:           DefaultPrices,
		log:              slog.Default(),
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	for _, option := range options {
		option(c)
	}
	if c.diag == nil {
		c.diag = c.log
	}

	needsAdmin := c.family == FamilyCompletion && c.profileName != ""
	if c.runtime == nil || (needsAdmin && c.admin == nil) {
		if err := c.loadAWSConfig(ctx); err != nil {
			return nil, err
		}
	}
	if c.runtime == nil {
		c.runtime = bedrockruntime.NewFromConfig(*c.awsConfig, func(o *bedrockruntime.Options) {
			o.Retryer = aws.NopRetryer{}
		})
	}
	if needsAdmin && c.admin == nil {
		c.admin = bedrock.NewFromConfig(*c.awsConfig, func(o *bedrock.Options) {
			o.Retryer = aws.NopRetryer{}
		})
	}

	if c.family == FamilyCompletion {
		c.provision(ctx)
	}
	return c, nil
}

func (c *Client) loadAWSConfig(ctx context.Context) error {
	if c.awsConfig != nil {
		if c.awsConfig.Region != "" {
			c.region = c.awsConfig.Region
		}
		return nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.region))
	if err != nil {
		return llm.NewError(llm.KindConfiguration, "load aws config", "failed to load AWS configuration", err)
	}
	c.awsConfig = &cfg
	return nil
}

func (c *Client) provision(ctx context.Context) {
	if c.profileName == "" {
		c.log.Warn("model requires an inference profile but none is configured", "model", c.modelID)
		return
	}
	source := FoundationModelARN(c.region, c.modelID)
	route, err := NewProvisioner(c.admin, c.appTag, c.log).Ensure(ctx, c.profileName, source)
	if err != nil {
		c.log.Error("inference profile provisioning failed, continuing without a route",
			"profile", c.profileName,
			"model", c.modelID,
			"error", err,
		)
		return
	}
	c.route = route
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	return "bedrock:" + c.modelID
}

// ModelID returns the resolved Bedrock model id.
func (c *Client) ModelID() string {
	return c.modelID
}

// Family returns the request family used for the model.
func (c *Client) Family() Family {
	return c.family
}

// Route returns the inference profile in use, or nil.
func (c *Client) Route() *InferenceRoute {
	if c.route == nil {
		return nil
	}
	r := *c.route
	return &r
}

// TotalCost returns the USD spent by this client so far.
func (c *Client) TotalCost() float64 {
	return c.ledger.Total()
}

// NewAdmin connects to the Bedrock control plane in region, for callers that
// manage inference profiles without invoking a model.
func NewAdmin(ctx context.Context, region string) (AdminAPI, error) {
	if region == "" {
		region = defaultRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, llm.NewError(llm.KindConfiguration, "load aws config", "failed to load AWS configuration", err)
	}
	return bedrock.NewFromConfig(cfg), nil
}
