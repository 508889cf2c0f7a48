package reasoning

import (
	"context"
	"fmt"
	"time"

	"daybook/internal/config"
	"daybook/internal/logging"
	"daybook/internal/types"

	"google.golang.org/genai"
)

const systemInstruction = `You are daybook, a personal planning assistant.
You are given the user's context bundle as JSON: standing facts, recent
sessions (check-ins, reflections, decisions), and retrieved memories.
Ground every answer in that context. When the bundle is marked
memory_degraded, say so before relying on long-term recall. Be direct and
brief; challenge weakly supported assumptions instead of agreeing.`

// GenAIReasoner calls the Gemini API through the official SDK.
type GenAIReasoner struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAI builds a reasoner from config. An API key is required.
func NewGenAI(ctx context.Context, cfg config.ReasoningConfig, timeout time.Duration) (*GenAIReasoner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("reasoning requires an API key (set GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	logging.Get(logging.CategoryReasoning).Info("Reasoning client ready (model=%s)", model)
	return &GenAIReasoner{client: client, model: model, timeout: timeout}, nil
}

// Generate implements Reasoner.
func (r *GenAIReasoner) Generate(ctx context.Context, bundle *types.ContextBundle, prompt string) (string, error) {
	timer := logging.StartTimer(logging.CategoryReasoning, "Generate")
	defer timer.Stop()

	rendered, err := renderBundle(bundle)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	full := prompt
	if rendered != "" {
		full = "Context bundle:\n" + rendered + "\n\n" + prompt
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(full), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("reasoning call failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("reasoning service returned an empty response")
	}
	return text, nil
}
