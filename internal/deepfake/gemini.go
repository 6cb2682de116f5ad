package deepfake

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiAnalyzer asks a Gemini vision model for a manipulation assessment.
type GeminiAnalyzer struct {
	client *genai.Client
}

// NewGeminiAnalyzer creates a vision analyzer backed by the Gemini API.
func NewGeminiAnalyzer(ctx context.Context, apiKey string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client}, nil
}

// Name implements Analyzer.
func (a *GeminiAnalyzer) Name() string { return MethodVisionLLM }

// Analyze implements Analyzer.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, imageData []byte) (*Assessment, error) {
	const maxRetries = 3

	resized, err := resizeImage(imageData, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: deepfakePrompt},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	for range maxRetries {
		result, err := a.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}

		verdict, err := parseVisionVerdict(content)
		if err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Reply with valid JSON only.", err)}},
				},
			)
			continue
		}
		return verdict.toAssessment(), nil
	}

	return nil, fmt.Errorf("failed to parse verdict after %d attempts: %w", maxRetries, lastError)
}
