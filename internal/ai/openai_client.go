// Package ai is a local stand-in for the generation endpoint, backed by the
// OpenAI chat completions API.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Vovarama1992/link-chat/internal/chat"
	"github.com/Vovarama1992/link-chat/internal/identity"
)

// historyTurns bounds how many earlier user/agent exchanges go into a prompt.
const historyTurns = 5

// Persona is the character the agent is playing.
type Persona struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultPersona is used when the requested character cannot be detected.
var DefaultPersona = Persona{Name: "Default Hero", Description: "A brave hero ready to help anyone in need."}

// OpenAIClient implements chat.Generator. The first message of a
// conversation picks the persona; later messages are answered in character.
type OpenAIClient struct {
	client *openai.Client
	model  string

	mu       sync.Mutex
	personas map[string]Persona
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		personas: make(map[string]Persona),
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req chat.Request) (string, error) {
	key := conversationKey(req.Token)

	c.mu.Lock()
	persona, ok := c.personas[key]
	c.mu.Unlock()

	if !ok {
		p, err := c.detectPersona(ctx, req.Prompt)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.personas[key] = p
		c.mu.Unlock()
		return p.Name + " speaking", nil
	}

	msgs := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: personaPrompt(persona),
	}}
	msgs = append(msgs, historyMessages(req.History)...)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	return c.complete(ctx, openai.ChatCompletionRequest{Model: c.model, Messages: msgs})
}

// Reset forgets the persona so the next message picks a new one.
func (c *OpenAIClient) Reset(_ context.Context, token string) error {
	c.mu.Lock()
	delete(c.personas, conversationKey(token))
	c.mu.Unlock()
	return nil
}

func (c *OpenAIClient) detectPersona(ctx context.Context, message string) (Persona, error) {
	raw, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: personaDetectorPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Persona{}, err
	}

	var p Persona
	if err := json.Unmarshal([]byte(raw), &p); err != nil || strings.TrimSpace(p.Name) == "" {
		slog.Warn("persona not detected, using default", "component", "ai", "raw", raw)
		return DefaultPersona, nil
	}
	return p, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("openai request failed", "component", "ai", "err", err)
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &chat.Error{Kind: chat.KindMalformed, Err: errors.New("empty choices")}
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("openai response", "component", "ai", "model", c.model, "raw", raw)
	return raw, nil
}

// classify maps client errors onto chat error kinds. Provider status codes
// are reported as plain HTTP errors: a 401 here concerns the API key, not
// the signed-in user.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &chat.Error{Kind: chat.KindHTTP, Status: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &chat.Error{Kind: chat.KindHTTP, Status: reqErr.HTTPStatusCode, Body: reqErr.Error(), Err: err}
	}
	return &chat.Error{Kind: chat.KindNetwork, Err: err}
}

// historyMessages converts the last exchanges of a transcript. The greeting
// and error entries are not part of the conversation.
func historyMessages(history []chat.Message) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	started := false
	for _, m := range history {
		if !m.FromAgent {
			started = true
		}
		if !started || m.IsError {
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.FromAgent {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	if len(out) > 2*historyTurns {
		out = out[len(out)-2*historyTurns:]
	}
	return out
}

// conversationKey identifies the principal behind a token. Tokens rotate on
// refresh, the subject does not.
func conversationKey(token string) string {
	p, _, err := identity.ParsePrincipal(token)
	if err != nil {
		return token
	}
	return p.Subject
}
