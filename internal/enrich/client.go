// Package enrich is the gateway to the external AI analysis service:
// single-item photo analysis, multi-item receipt extraction, and advisory
// text. The service is an external collaborator — every call is fallible and
// slow, nothing it returns is authoritative until the user confirms it, and
// the catalog never blocks on it.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/auraarchive/aura/internal/catalog"
)

// callTimeout bounds every gateway call; expiry is reported as an ordinary
// gateway failure.
const callTimeout = 30 * time.Second

// Analysis is the structured result of a single-product photo analysis.
type Analysis struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Candidate is one item extracted from a receipt. Candidates are staged for
// explicit per-item acceptance; only confirmed ones become catalog items.
type Candidate struct {
	Name     string           `json:"name"`
	Brand    string           `json:"brand"`
	Category string           `json:"category"`
	Type     catalog.ItemType `json:"type"`
	Notes    string           `json:"notes"`
}

// Client talks to an OpenAI-compatible chat completion API.
type Client struct {
	api   *openai.Client
	model string
}

// New builds a client for the given credentials. baseURL may be empty to use
// the service default; overriding it points the gateway at a compatible
// endpoint (or a test fake).
func New(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// AnalyzeItem identifies a single product from an inline base64 JPEG and
// returns structured fields for the edit form.
func (c *Client) AnalyzeItem(ctx context.Context, imageB64 string, itemType catalog.ItemType) (Analysis, error) {
	prompt := `Analyze this beauty/skincare product. Identify the brand, the product type (e.g., "Serum", "Sunscreen"), and a brief description. ` +
		`Respond with a JSON object with keys "name", "brand", "category", "description".`
	if itemType == catalog.TypeClothing {
		prompt = `Analyze this clothing item. Identify the brand, the specific garment type (e.g., "Oversized Blazer", "Midi Floral Dress"), and a brief description. ` +
			`Respond with a JSON object with keys "name", "brand", "category", "description".`
	}

	content, err := c.complete(ctx, []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + imageB64,
			}},
		},
	}}, true)
	if err != nil {
		return Analysis{}, err
	}

	var a Analysis
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return Analysis{}, fmt.Errorf("decoding analysis response: %w", err)
	}
	return a, nil
}

const receiptPrompt = `Act as a personal shopper. I am providing a receipt. ` +
	`Extract all physical items. If a brand or item name is abbreviated or cryptic, expand it to the likely market name. ` +
	`Categorize each item as "clothing" or "beauty". ` +
	`Respond with a JSON object: {"items": [{"name", "brand", "category", "type", "notes"}, ...]}. ` +
	`If no items can be found, return {"items": []}.`

// ExtractReceiptImage extracts purchase candidates from a receipt photo.
// Zero extracted items is a successful empty result, not an error.
func (c *Client) ExtractReceiptImage(ctx context.Context, imageB64 string) ([]Candidate, error) {
	content, err := c.complete(ctx, []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: receiptPrompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + imageB64,
			}},
		},
	}}, true)
	if err != nil {
		return nil, err
	}
	return parseCandidates(content)
}

// ExtractReceiptText extracts purchase candidates from raw receipt or order
// text (pasted text, or text pulled from a PDF).
func (c *Client) ExtractReceiptText(ctx context.Context, text string) ([]Candidate, error) {
	content, err := c.complete(ctx, []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleUser,
		Content: receiptPrompt + "\n\nRECEIPT TEXT:\n" + text,
	}}, true)
	if err != nil {
		return nil, err
	}
	return parseCandidates(content)
}

// Advice returns a short usage or styling tip for the item: stylist voice
// for clothing, beauty-expert voice for beauty products.
func (c *Client) Advice(ctx context.Context, item catalog.Item) (string, error) {
	prompt := fmt.Sprintf("You are a beauty expert. Give a quick usage tip for %s %s.", item.Brand, item.Name)
	if item.Type == catalog.TypeClothing {
		prompt = fmt.Sprintf("You are a fashion stylist. Give 3 quick styling tips for a %s %s.", item.Brand, item.Name)
	}

	content, err := c.complete(ctx, []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}}, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage, jsonResponse bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if jsonResponse {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("enrichment request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("enrichment service returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// parseCandidates accepts either the requested {"items": [...]} envelope or
// a bare JSON array, since models are not fully reliable about envelopes.
func parseCandidates(content string) ([]Candidate, error) {
	var envelope struct {
		Items []Candidate `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err == nil {
		return normalizeCandidates(envelope.Items), nil
	}

	var bare []Candidate
	if err := json.Unmarshal([]byte(content), &bare); err != nil {
		return nil, fmt.Errorf("decoding extraction response: %w", err)
	}
	return normalizeCandidates(bare), nil
}

func normalizeCandidates(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Name == "" {
			continue
		}
		if c.Type != catalog.TypeBeauty {
			c.Type = catalog.TypeClothing
		}
		out = append(out, c)
	}
	return out
}

// IsAuthError reports whether a gateway failure looks like a rejected or
// expired credential.
func IsAuthError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 401 || reqErr.HTTPStatusCode == 403
	}
	return false
}
