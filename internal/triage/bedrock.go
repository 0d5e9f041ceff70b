package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockConverseAPI is the subset of the Bedrock client used for triage.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClassifier classifies symptoms via the Bedrock Converse API. Used in
// deployments where Gemini is unavailable.
type BedrockClassifier struct {
	client  BedrockConverseAPI
	modelID string
}

// NewBedrockClassifier creates a Bedrock-backed classifier.
func NewBedrockClassifier(client BedrockConverseAPI, modelID string) (*BedrockClassifier, error) {
	if client == nil {
		return nil, errors.New("triage: bedrock client is required")
	}
	if modelID == "" {
		return nil, errors.New("triage: bedrock model id is required")
	}
	return &BedrockClassifier{client: client, modelID: modelID}, nil
}

// Provider identifies this classifier in logs and metrics.
func (c *BedrockClassifier) Provider() string { return "bedrock" }

// Classify sends the fixed triage prompt and returns the raw response text.
func (c *BedrockClassifier) Classify(ctx context.Context, symptoms string) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: classificationSystemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: classificationPrompt(symptoms)},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(512),
			Temperature: aws.Float32(0.0),
		},
	}

	resp, err := c.client.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("triage: bedrock converse: %w", err)
	}

	text := extractConverseText(resp)
	if text == "" {
		return "", errors.New("triage: bedrock returned empty content")
	}
	return text, nil
}

func extractConverseText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return ""
	}
	textBlock, ok := output.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return ""
	}
	return textBlock.Value
}
