package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
)

const anthropicMaxTokens = 4096

// AnthropicProvider adapts the official SDK's streaming API to the Provider
// interface. The SDK reads ANTHROPIC_API_KEY from the environment.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider returns a provider with the given default model.
func NewAnthropicProvider(model string) *AnthropicProvider {
	c := anthropic.NewClient()
	return &AnthropicProvider{client: &c, model: model}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Stream issues one streaming Messages request and forwards text deltas.
func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(chooseModel(req.Model, p.model)),
			MaxTokens: int64(anthropicMaxTokens),
			Messages:  buildAnthropicMessages(req.Messages),
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.System}}
		}

		stream := p.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
					if !emit(ctx, events, Event{Type: EventTextDelta, Text: d.Text}) {
						return ctx.Err()
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Provider: p.Name(), Err: err}
		}

		emit(ctx, events, Event{Type: EventDone})
		return nil
	}), nil
}

// buildAnthropicMessages maps snapshot roles onto the SDK's two-party turn
// structure. Tool results have no first-class role in plain text chats, so
// they travel as user messages; the system message goes through params.
func buildAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		}
	}
	return out
}
