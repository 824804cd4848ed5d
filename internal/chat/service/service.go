// Package service runs the conversational turn: one gateway round trip with
// the tool catalog, sequential dispatch of the requested calls, and the
// follow-up round trip with the tool results.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/chat/tools"
	crmservice "crm_assistant_backend/internal/crm/service"
	"crm_assistant_backend/platform/ai/gateway"
	"crm_assistant_backend/platform/apperr"
	"crm_assistant_backend/platform/logger"

	"google.golang.org/genai"
)

// Gateway is the model client used for chat turns.
type Gateway interface {
	Complete(ctx context.Context, messages []gateway.Message, decls []*genai.FunctionDeclaration) (*gateway.Completion, error)
}

// Service dispatches chat turns.
type Service struct {
	gw       Gateway
	registry *tools.Registry
	crm      *crmservice.Service
	catalog  []*genai.FunctionDeclaration
	log      *logger.Logger
	now      func() time.Time
}

// New creates the chat service. The registry must cover the catalog; NewRegistry
// enforces that at startup.
func New(gw Gateway, registry *tools.Registry, crm *crmservice.Service, log *logger.Logger) *Service {
	return &Service{
		gw:       gw,
		registry: registry,
		crm:      crm,
		catalog:  tools.Catalog(),
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Test helper.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ToolResult pairs one executed call with its serialized output, in dispatch
// order.
type ToolResult struct {
	ToolCallID string          `json:"toolCallId"`
	Name       string          `json:"name"`
	Output     json.RawMessage `json:"output"`
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	Content     string             `json:"content"`
	ToolCalls   []gateway.ToolCall `json:"toolCalls,omitempty"`
	ToolResults []ToolResult       `json:"toolResults,omitempty"`
}

// Run executes one chat turn for the owner. When the model requests tools,
// every call is dispatched in order, audited, and fed back for the follow-up
// answer. A failing call never aborts its siblings.
func (s *Service) Run(ctx context.Context, ownerID uuid.UUID, history []gateway.Message) (TurnResult, error) {
	if len(history) == 0 {
		return TurnResult{}, apperr.Validation("la conversation est vide")
	}

	messages := make([]gateway.Message, 0, len(history)+1)
	messages = append(messages, gateway.Message{Role: "system", Content: systemPrompt(s.now())})
	messages = append(messages, history...)

	completion, err := s.gw.Complete(ctx, messages, s.catalog)
	if err != nil {
		return TurnResult{}, err
	}

	if len(completion.ToolCalls) == 0 {
		return TurnResult{Content: completion.Content}, nil
	}

	messages = append(messages, gateway.Message{
		Role:      "assistant",
		Content:   completion.Content,
		ToolCalls: completion.ToolCalls,
	})

	results := make([]ToolResult, 0, len(completion.ToolCalls))
	for _, call := range completion.ToolCalls {
		args := json.RawMessage(call.Function.Arguments)
		res := s.registry.Dispatch(ctx, ownerID, call.Function.Name, args)
		output := res.JSON()

		s.crm.RecordToolInvocation(ctx, ownerID, call.Function.Name, args, output, res.Success)
		s.log.ToolCall(call.Function.Name, ownerID.String(), res.Success, res.Error)

		results = append(results, ToolResult{
			ToolCallID: call.ID,
			Name:       call.Function.Name,
			Output:     output,
		})
		messages = append(messages, gateway.Message{
			Role:       "tool",
			Content:    string(output),
			ToolCallID: call.ID,
			Name:       call.Function.Name,
		})
	}

	followUp, err := s.gw.Complete(ctx, messages, s.catalog)
	if err != nil {
		// The calls already ran and were audited; their results must reach
		// the caller even without a final answer.
		return TurnResult{ToolCalls: completion.ToolCalls, ToolResults: results}, err
	}

	return TurnResult{
		Content:     followUp.Content,
		ToolCalls:   completion.ToolCalls,
		ToolResults: results,
	}, nil
}
