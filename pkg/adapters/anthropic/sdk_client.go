package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/your-org/ai3/pkg/adapters"
)

// SDKClient implements adapters.Provider using the official
// anthropic-sdk-go client instead of hand-rolled JSON. Offered alongside
// Client so callers can pick the officially supported transport; both
// satisfy the same Provider contract.
type SDKClient struct {
	client *sdk.Client
}

func NewSDKClient(apiKey string) *SDKClient {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return &SDKClient{client: &c}
}

func (c *SDKClient) Name() string { return "anthropic" }

func (c *SDKClient) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerateResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return adapters.GenerateResponse{}, adapters.ErrEmptyPrompt
	}
	model := req.Model
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 512
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return adapters.GenerateResponse{}, err
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return adapters.GenerateResponse{
		Text:         text.String(),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
