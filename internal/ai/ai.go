package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// ErrEmptyResponse is returned when Gemini answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// Suggester proposes attribute definitions for a book.
type Suggester struct {
	Client *genai.Client
	Model  string
}

// NewSuggester initializes the Gemini client.
func NewSuggester(ctx context.Context, apiKey, model string) (*Suggester, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Suggester{Client: client, Model: model}, nil
}

// Close releases the underlying client.
func (s *Suggester) Close() error {
	return s.Client.Close()
}

// SuggestAttributes asks the model for variation attributes (Format, Language, ...) that
// fit the given book.
func (s *Suggester) SuggestAttributes(ctx context.Context, title, description string) ([]variation.AttributeDraft, error) {
	model := s.Client.GenerativeModel(s.Model)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(`
			You help a bookshop admin set up product variations.
			Reply with a JSON array of objects {"name": string, "values": [string]}.
			Use at most 3 attributes and at most 5 values each. No prose.
		`)},
	}

	res, err := model.GenerateContent(ctx, genai.Text(buildPrompt(title, description)))
	if err != nil {
		return nil, fmt.Errorf("error generating suggestions: %w", err)
	}

	var sb strings.Builder
	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		break
	}
	return ParseSuggestions(sb.String())
}

func buildPrompt(title, description string) string {
	prompt := fmt.Sprintf("Book title: %s", title)
	if description = strings.TrimSpace(description); description != "" {
		prompt += "\nDescription: " + description
	}
	return prompt
}

type suggestion struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// ParseSuggestions turns the model's JSON answer into attribute drafts. Code fences are
// tolerated, blank names and values are dropped.
func ParseSuggestions(text string) ([]variation.AttributeDraft, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var raw []suggestion
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		var wrapped struct {
			Attributes []suggestion `json:"attributes"`
		}
		if err2 := json.Unmarshal([]byte(text), &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode suggestions: %w", err)
		}
		raw = wrapped.Attributes
	}

	out := make([]variation.AttributeDraft, 0, len(raw))
	for _, s := range raw {
		name := strings.TrimSpace(s.Name)
		var values []string
		for _, v := range s.Values {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if name == "" || len(values) == 0 {
			continue
		}
		out = append(out, variation.AttributeDraft{Name: name, RawValues: strings.Join(values, ", ")})
	}
	return out, nil
}
