package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteGenerator calls the backend's POST /generate endpoint.
type RemoteGenerator struct {
	baseURL string
	client  *http.Client
}

// NewRemoteGenerator targets baseURL. A nil client means http.DefaultClient;
// calls are bounded only by the caller's context.
func NewRemoteGenerator(baseURL string, client *http.Client) *RemoteGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteGenerator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (g *RemoteGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var out struct {
		Completion *string `json:"completion"`
	}
	if err := g.post(ctx, req.Token, map[string]any{"prompt": req.Prompt}, &out); err != nil {
		return "", err
	}
	if out.Completion == nil {
		return "", &Error{Kind: KindMalformed, Err: errors.New("response has no completion")}
	}
	return *out.Completion, nil
}

func (g *RemoteGenerator) Reset(ctx context.Context, token string) error {
	return g.post(ctx, token, map[string]any{"reset": true}, nil)
}

func (g *RemoteGenerator) post(ctx context.Context, token string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(respBody))
		return &Error{
			Kind:   Classify(resp.StatusCode, text),
			Status: resp.StatusCode,
			Body:   text,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: KindMalformed, Status: resp.StatusCode, Err: err}
	}
	return nil
}
