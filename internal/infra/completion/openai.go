package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/minhvu-dev/enricher/internal/core/domain"
)

// OpenAIClient implements Client on the OpenAI chat completion API with
// JSON-object responses.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client. An empty model selects GPT-4o-mini.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

const systemPrompt = "You normalize and enrich transcribed speech segments. " +
	"Respond with JSON only, exactly matching the requested schema."

// SendSingle implements Client.
func (c *OpenAIClient) SendSingle(ctx context.Context, text, lang string, opts domain.EnrichOptions) (Fields, error) {
	content, err := c.complete(ctx, singlePrompt(text, lang, opts))
	if err != nil {
		return Fields{}, err
	}

	var fields Fields
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return Fields{}, fmt.Errorf("malformed completion response: %w", err)
	}
	if fields.NormalizedText == "" {
		fields.NormalizedText = text
	}
	return fields, nil
}

// SendBatch implements Client.
func (c *OpenAIClient) SendBatch(ctx context.Context, texts []IndexedText, lang string, opts domain.EnrichOptions) (map[int]Fields, error) {
	content, err := c.complete(ctx, batchPrompt(texts, lang, opts))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []struct {
			Index int `json:"index"`
			Fields
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("malformed batch completion response: %w", err)
	}

	out := make(map[int]Fields, len(parsed.Results))
	for _, r := range parsed.Results {
		out[r.Index] = r.Fields
	}
	return out, nil
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func singlePrompt(text, lang string, opts domain.EnrichOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source language: %s.\n", lang)
	b.WriteString("Normalize the following segment (fix punctuation, casing, obvious mis-transcriptions).\n")
	writeFieldRequests(&b, opts)
	b.WriteString("Return {\"normalizedText\": ..., \"translation\": ..., \"annotations\": [...], \"furigana\": ...} with unused fields omitted.\n\n")
	b.WriteString(text)
	return b.String()
}

func batchPrompt(texts []IndexedText, lang string, opts domain.EnrichOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source language: %s.\n", lang)
	b.WriteString("Normalize each numbered segment independently.\n")
	writeFieldRequests(&b, opts)
	b.WriteString("Return {\"results\": [{\"index\": n, \"normalizedText\": ...}, ...]} covering every index.\n\n")
	for _, t := range texts {
		fmt.Fprintf(&b, "[%d] %s\n", t.Index, t.Text)
	}
	return b.String()
}

func writeFieldRequests(b *strings.Builder, opts domain.EnrichOptions) {
	if opts.TargetLanguage != "" {
		fmt.Fprintf(b, "Translate each segment into %s.\n", opts.TargetLanguage)
	}
	if opts.EnableAnnotations {
		b.WriteString("Add brief usage annotations for notable words.\n")
	}
	if opts.EnableFurigana {
		b.WriteString("Provide furigana readings for kanji.\n")
	}
}
