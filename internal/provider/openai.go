package provider

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/klubi/claw/internal/tools"
)

// OpenAI is a Provider for any endpoint speaking the OpenAI chat-completions
// protocol. Requests are never retried.
type OpenAI struct {
	name    string
	baseURL string
	client  openai.Client
	logger  *zap.Logger
}

// NewOpenAI creates a client for cfg. The endpoint comes from cfg.BaseURL
// or, when empty, from the provider table.
func NewOpenAI(cfg Config, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = fallbackProvider
	}
	base := BaseURL(cfg.Provider, cfg.BaseURL)

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(base + "/"),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}

	return &OpenAI{
		name:    name,
		baseURL: base,
		client:  openai.NewClient(opts...),
		logger:  logger,
	}
}

// BaseURL returns the endpoint this client talks to.
func (p *OpenAI) BaseURL() string {
	return p.baseURL
}

// Complete sends the conversation and the tool catalog and returns the
// first choice as an assistant message.
func (p *OpenAI) Complete(ctx context.Context, req Request) (*Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		p.logger.Debug("completion request failed",
			zap.String("provider", p.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, &Error{Provider: p.name, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Provider: p.name, Err: ErrMalformedResponse}
	}

	choice := resp.Choices[0]
	p.logger.Debug("completion received",
		zap.String("provider", p.name),
		zap.String("model", resp.Model),
		zap.String("finishReason", string(choice.FinishReason)),
		zap.Int("toolCalls", len(choice.Message.ToolCalls)),
		zap.Int64("promptTokens", resp.Usage.PromptTokens),
		zap.Int64("completionTokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	out := &Message{
		Role:    RoleAssistant,
		Content: choice.Message.Content,
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toOpenAITools(defs []tools.Definition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, d := range defs {
		fn := shared.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  shared.FunctionParameters(d.Schema()),
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if m.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
