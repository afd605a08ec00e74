package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClientTimeout bounds a whole streaming response. Generous because a
// long completion can legitimately take minutes; mid-turn aborts go through
// context cancellation instead.
const httpClientTimeout = 10 * time.Minute

var defaultHTTPClient = &http.Client{
	Timeout: httpClientTimeout,
}

// OllamaProvider speaks Ollama's native NDJSON chat API.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider returns a provider for the given base URL (e.g.
// "http://localhost:11434") and default model.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	return &OllamaProvider{baseURL: baseURL, model: model, client: defaultHTTPClient}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Stream   bool            `json:"stream"`
	Messages []ollamaMessage `json:"messages"`
}

type ollamaChatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Stream issues /api/chat with stream:true and forwards message content
// deltas as they arrive. Each NDJSON line carries one chunk; the line with
// done:true ends the stream.
func (p *OllamaProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		chatReq := ollamaChatRequest{
			Model:    chooseModel(req.Model, p.model),
			Stream:   true,
			Messages: buildOllamaMessages(req),
		}
		body, err := json.Marshal(chatReq)
		if err != nil {
			return fmt.Errorf("ollama: encode request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return &TransportError{Provider: p.Name(), Err: err}
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Provider: p.Name(), Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &TransportError{Provider: p.Name(), Err: fmt.Errorf("status %d: %s", resp.StatusCode, b)}
		}

		scanner := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				// Skip noise lines rather than kill the stream.
				continue
			}
			if chunk.Error != "" {
				return &TransportError{Provider: p.Name(), Err: fmt.Errorf("%s", chunk.Error)}
			}
			if chunk.Message.Content != "" {
				if !emit(ctx, events, Event{Type: EventTextDelta, Text: chunk.Message.Content}) {
					return ctx.Err()
				}
			}
			if chunk.Done {
				break
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Provider: p.Name(), Err: err}
		}

		emit(ctx, events, Event{Type: EventDone})
		return nil
	}), nil
}

// buildOllamaMessages maps the request snapshot onto Ollama roles. The
// system message, when present, leads.
func buildOllamaMessages(req Request) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, ollamaMessage{Role: string(RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		out = append(out, ollamaMessage{Role: string(m.Role), Content: m.Text})
	}
	return out
}

type ollamaTagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ListModels fetches /api/tags.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &TransportError{Provider: p.Name(), Err: err}
	}
	return tags.Models, nil
}

// Ping reports whether the backend answers at all.
func (p *OllamaProvider) Ping(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// chooseModel prefers the per-request model over the provider default.
func chooseModel(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
