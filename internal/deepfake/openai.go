package deepfake

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

//go:embed prompts/deepfake.txt
var deepfakePrompt string

const openAIModel = openai.ChatModelGPT4_1Mini

// visionVerdict is the JSON shape the vision models are asked to return.
type visionVerdict struct {
	IsDeepfake bool     `json:"is_deepfake"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators"`
}

// OpenAIAnalyzer asks a GPT vision model for a manipulation assessment.
type OpenAIAnalyzer struct {
	client *openai.Client
}

// NewOpenAIAnalyzer creates a vision analyzer backed by the OpenAI API.
func NewOpenAIAnalyzer(apiKey string) *OpenAIAnalyzer {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAnalyzer{client: &client}
}

// Name implements Analyzer.
func (a *OpenAIAnalyzer) Name() string { return MethodVisionLLM }

// Analyze implements Analyzer.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, imageData []byte) (*Assessment, error) {
	const maxRetries = 3

	// Resize to cap token cost; detail stays low for the same reason.
	resized, err := resizeImage(imageData, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resized)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(deepfakePrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("Assess this image."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastError error
	for range maxRetries {
		resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openAIModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(300),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}

		content := resp.Choices[0].Message.Content
		verdict, err := parseVisionVerdict(content)
		if err != nil {
			lastError = err
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(fmt.Sprintf("JSON parse error: %v. Reply with valid JSON only.", err)),
						},
					},
				},
			)
			continue
		}
		return verdict.toAssessment(), nil
	}

	return nil, fmt.Errorf("failed to parse verdict after %d attempts: %w", maxRetries, lastError)
}

// parseVisionVerdict validates a model response.
func parseVisionVerdict(content string) (*visionVerdict, error) {
	var verdict visionVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return nil, err
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", verdict.Confidence)
	}
	return &verdict, nil
}

// toAssessment normalizes a model verdict, keeping the fixed threshold
// authoritative over whatever boolean the model chose.
func (v *visionVerdict) toAssessment() *Assessment {
	indicators := v.Indicators
	if indicators == nil {
		indicators = []string{}
	}
	return &Assessment{
		IsDeepfake: v.Confidence >= deepfakeThreshold,
		Confidence: v.Confidence,
		Method:     MethodVisionLLM,
		Indicators: indicators,
	}
}
