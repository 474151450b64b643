package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/budgetiq/internal/domain"
	json "github.com/goccy/go-json"
	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for receipt extraction.
const DefaultModelName = "gemini-2.5-flash"

const receiptPrompt = "You are a receipt parser.\n\n" +
	"Task:\n" +
	"- Read the attached receipt.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a single JSON object with these fields:\n" +
	"  - \"total\": number, the amount paid including tax\n" +
	"  - \"date\": string, ISO format \"YYYY-MM-DD\", or \"\" if unreadable\n" +
	"  - \"vendor\": string, the merchant name\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

// GeminiExtractor sends the receipt to Gemini and parses the JSON it returns.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates a GenAI client. Credentials come from the
// environment (GEMINI_API_KEY or Vertex AI settings).
func NewGeminiExtractor(ctx context.Context, model string) (*GeminiExtractor, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

// Extract implements Extractor.
func (g *GeminiExtractor) Extract(ctx context.Context, data []byte, contentType string) (*domain.ExtractedReceipt, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: receiptPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: contentType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Extract: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("Extract: empty response from model")
	}
	return parseModelReceipt(raw)
}

func parseModelReceipt(raw string) (*domain.ExtractedReceipt, error) {
	var out domain.ExtractedReceipt
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("parseModelReceipt: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	if err := Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// cleanModelJSON strips Markdown fences and any text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
