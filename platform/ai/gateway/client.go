// Package gateway is a thin client for an OpenAI-compatible chat-completions
// endpoint. It converts the tool catalog (genai function declarations) to the
// wire format and returns either plain text or requested tool calls.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Config for the model gateway.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client talks to the chat-completions endpoint.
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates a gateway client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Message is one conversation entry in the request.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction holds the requested function name and raw JSON arguments.
type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Completion is the model's answer for one turn: plain text, tool calls,
// or both.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

type toolDef struct {
	Type     string      `json:"type"`
	Function toolDefFunc `json:"function"`
}

type toolDefFunc struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Role      string     `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

// Complete sends one chat turn and returns the model's response.
func (c *Client) Complete(ctx context.Context, messages []Message, decls []*genai.FunctionDeclaration) (*Completion, error) {
	payload := map[string]interface{}{
		"model":    c.config.Model,
		"messages": messages,
	}
	if tools := convertTools(decls); len(tools) > 0 {
		payload["tools"] = tools
		payload["tool_choice"] = "auto"
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call model gateway: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("gateway error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("gateway error: empty choices")
	}

	choice := result.Choices[0].Message
	return &Completion{
		Content:   strings.TrimSpace(choice.Content),
		ToolCalls: choice.ToolCalls,
	}, nil
}

func convertTools(decls []*genai.FunctionDeclaration) []toolDef {
	var tools []toolDef
	for _, decl := range decls {
		if decl == nil || decl.Name == "" {
			continue
		}
		var params interface{}
		switch {
		case decl.ParametersJsonSchema != nil:
			params = decl.ParametersJsonSchema
		case decl.Parameters != nil:
			params = decl.Parameters
		}
		tools = append(tools, toolDef{
			Type: "function",
			Function: toolDefFunc{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}
