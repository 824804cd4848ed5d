package tools

import (
	"context"
	"testing"

	"github.com/google/uuid"

	crmservice "crm_assistant_backend/internal/crm/service"
	"crm_assistant_backend/platform/logger"
)

func TestRegistryCoversCatalog(t *testing.T) {
	crm := crmservice.New(nil, nil, nil, logger.New("development"))
	registry, err := NewRegistry(crm)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	names := make(map[string]bool)
	for _, decl := range Catalog() {
		if decl.Name == "" {
			t.Fatal("catalog contains a declaration without a name")
		}
		if names[decl.Name] {
			t.Fatalf("duplicate tool name %q", decl.Name)
		}
		names[decl.Name] = true
	}
	if len(names) != len(registry.handlers) {
		t.Fatalf("catalog has %d tools, registry has %d handlers", len(names), len(registry.handlers))
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	crm := crmservice.New(nil, nil, nil, logger.New("development"))
	registry, err := NewRegistry(crm)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	res := registry.Dispatch(context.Background(), uuid.New(), "does_not_exist", nil)
	if res.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if res.Error == "" {
		t.Fatal("expected an error message for unknown tool")
	}
}

func TestResultJSONNeverEmpty(t *testing.T) {
	out := Result{Success: false, Error: "boom"}.JSON()
	if len(out) == 0 {
		t.Fatal("expected serialized result")
	}

	// Unserializable payloads degrade to a generic error, not a panic.
	out = Result{Success: true, Data: make(chan int)}.JSON()
	if string(out) != `{"success":false,"error":"résultat non sérialisable"}` {
		t.Fatalf("unexpected fallback payload: %s", out)
	}
}
