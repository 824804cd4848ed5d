package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/service"
)

// Result is the structured outcome of one tool call, serialized back to the
// model as the tool message. A failed call reports its error here instead of
// aborting the turn.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// JSON serializes the result for the tool message. Marshal failures collapse
// to a generic error payload rather than breaking the turn.
func (r Result) JSON() []byte {
	out, err := json.Marshal(r)
	if err != nil {
		return []byte(`{"success":false,"error":"résultat non sérialisable"}`)
	}
	return out
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Handler executes one tool call for the given owner.
type Handler func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result

// Registry maps tool names to handlers. It is built once at startup and is
// read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds the registry over the CRM service and verifies it covers
// the catalog one-to-one.
func NewRegistry(crm *service.Service) (*Registry, error) {
	r := &Registry{handlers: buildHandlers(crm)}

	for _, decl := range Catalog() {
		if _, ok := r.handlers[decl.Name]; !ok {
			return nil, fmt.Errorf("tool %q declared but has no handler", decl.Name)
		}
	}
	if len(r.handlers) != len(Catalog()) {
		return nil, fmt.Errorf("registry has %d handlers for %d declared tools", len(r.handlers), len(Catalog()))
	}
	return r, nil
}

// Dispatch runs the named tool. Unknown names and handler panics become
// structured failures so sibling calls in the same turn still run.
func (r *Registry) Dispatch(ctx context.Context, ownerID uuid.UUID, name string, args json.RawMessage) (result Result) {
	handler, ok := r.handlers[name]
	if !ok {
		return failure("outil inconnu : %s", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = failure("erreur interne de l'outil %s", name)
		}
	}()
	return handler(ctx, ownerID, args)
}
