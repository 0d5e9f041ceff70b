package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClassifier classifies symptoms using Google's Gemini API.
type GeminiClassifier struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClassifier creates a Gemini-backed classifier.
func NewGeminiClassifier(ctx context.Context, apiKey, modelID string) (*GeminiClassifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("triage: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("triage: failed to create gemini client: %w", err)
	}

	return &GeminiClassifier{
		client:  client,
		modelID: modelID,
	}, nil
}

// Provider identifies this classifier in logs and metrics.
func (c *GeminiClassifier) Provider() string { return "gemini" }

// Classify sends the fixed triage prompt and returns the raw response text.
func (c *GeminiClassifier) Classify(ctx context.Context, symptoms string) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0)
	model.SystemInstruction = genai.NewUserContent(genai.Text(classificationSystemPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(classificationPrompt(symptoms)))
	if err != nil {
		return "", fmt.Errorf("triage: gemini generate: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("triage: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("triage: gemini returned empty content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Close releases the underlying client.
func (c *GeminiClassifier) Close() error {
	return c.client.Close()
}
