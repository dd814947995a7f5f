// Package aibedrock recognises page images through the AWS Bedrock
// Converse API.
package aibedrock

import (
	"context"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	ProviderName = "bedrock"
	DefaultModel = "anthropic.claude-sonnet-4-20250514-v1:0"
)

// ConverseAPI is the slice of the Bedrock runtime client the completer uses.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Completer struct {
	client ConverseAPI
}

func NewCompleter(client ConverseAPI) *Completer {
	return &Completer{client: client}
}

// NewFromConfig builds a completer over an AWS config.
func NewFromConfig(cfg aws.Config) *Completer {
	return NewCompleter(bedrockruntime.NewFromConfig(cfg))
}

// New loads the default AWS credential chain for region. Bedrock is only
// offered when a model id is configured, since model access is opt-in per
// account.
func New(ctx context.Context, cfg config.ProviderConfig, region string, opts ...visionocr.Option) (*visionocr.Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, WrapError(err, ErrAWSConfig).WithDetail("region", region)
	}

	model := cfg.Model
	enabled := model != ""
	if model == "" {
		model = DefaultModel
	}
	opts = append([]visionocr.Option{visionocr.WithAvailability(func() bool { return enabled })}, opts...)
	return visionocr.New(ProviderName, model, NewFromConfig(awsCfg), opts...), nil
}

func (c *Completer) Complete(ctx context.Context, req visionocr.Request) (string, error) {
	if len(req.Image.Data) == 0 {
		return "", errorRegistry.New(ErrEmptyImage)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberImage{
					Value: types.ImageBlock{
						Format: imageFormat(req.Image.MimeType),
						Source: &types.ImageSourceMemberBytes{Value: req.Image.Data},
					},
				},
				&types.ContentBlockMemberText{Value: req.Prompt},
			},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(0),
		},
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}

	output, err := c.client.Converse(ctx, input)
	if err != nil {
		return "", ParseBedrockError(err).WithDetail("model", req.Model)
	}
	return replyText(output)
}

func replyText(output *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errorRegistry.New(ErrAPIResponse).
			WithDetail("error", "no message in converse output")
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	if sb.Len() == 0 {
		return "", errorRegistry.New(ErrAPIResponse).
			WithDetail("stop_reason", string(output.StopReason))
	}
	return sb.String(), nil
}

func imageFormat(mimeType string) types.ImageFormat {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return types.ImageFormatJpeg
	case "image/gif":
		return types.ImageFormatGif
	case "image/webp":
		return types.ImageFormatWebp
	default:
		return types.ImageFormatPng
	}
}
