package compose

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaCondenser shortens over-length excerpts with a local model. Used
// only when the configured content feed yields paragraphs longer than one
// post; truncation remains the fallback when generation fails.
type OllamaCondenser struct {
	client *api.Client
	model  string
}

func NewOllamaCondenser(host, model string) (*OllamaCondenser, error) {
	var client *api.Client
	if host == "" {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client from environment: %w", err)
		}
	} else {
		base, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host: %w", err)
		}
		client = api.NewClient(base, http.DefaultClient)
	}

	return &OllamaCondenser{client: client, model: model}, nil
}

func (o *OllamaCondenser) Condense(ctx context.Context, text string, limit int) (string, error) {
	prompt := fmt.Sprintf(`<|im_start|>system
You are a professional news editor. Rewrite the passage below in at most %d characters, keeping the key nouns intact. Output only the rewritten passage.<|im_end|>
<|im_start|>user
Passage:
"""
%s
"""

Rewritten:<|im_end|>
<|im_start|>assistant`, limit, text)

	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: new(bool),
	}

	var out string
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		if resp.Done {
			out = resp.Response
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}
