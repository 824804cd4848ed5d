package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"crm_assistant_backend/internal/chat/tools"
	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/internal/crm/repository"
	crmservice "crm_assistant_backend/internal/crm/service"
	"crm_assistant_backend/platform/ai/gateway"
	"crm_assistant_backend/platform/apperr"
	"crm_assistant_backend/platform/frdate"
	"crm_assistant_backend/platform/logger"
)

// stubRepo is a minimal in-memory repository. Only the paths exercised by
// these tests hold real data.
type stubRepo struct {
	ests   []repository.Establishment
	audits []repository.AuditRecord
}

var _ repository.Repository = (*stubRepo)(nil)

func (r *stubRepo) GetEstablishment(_ context.Context, _, id uuid.UUID) (repository.Establishment, error) {
	for _, e := range r.ests {
		if e.ID == id {
			return e, nil
		}
	}
	return repository.Establishment{}, apperr.NotFound("établissement introuvable")
}

func (r *stubRepo) ListEstablishments(_ context.Context, _ uuid.UUID) ([]repository.Establishment, error) {
	return r.ests, nil
}

func (r *stubRepo) InsertEstablishment(_ context.Context, est repository.Establishment) (repository.Establishment, error) {
	est.ID = uuid.New()
	r.ests = append(r.ests, est)
	return est, nil
}

func (r *stubRepo) InsertEstablishmentMinimal(_ context.Context, ownerID uuid.UUID, name, canonical, kind string) (repository.Establishment, error) {
	est := repository.Establishment{
		ID: uuid.New(), OwnerID: ownerID, Name: name, CanonicalName: canonical,
		Kind: kind, CommercialStatus: repository.StatusToContact, Extra: bag.New(),
	}
	r.ests = append(r.ests, est)
	return est, nil
}

func (r *stubRepo) UpdateEstablishment(_ context.Context, est repository.Establishment) error {
	for i := range r.ests {
		if r.ests[i].ID == est.ID {
			r.ests[i] = est
			return nil
		}
	}
	return apperr.NotFound("établissement introuvable")
}

func (r *stubRepo) SoftDeleteEstablishment(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (r *stubRepo) RepointRelations(context.Context, uuid.UUID, uuid.UUID) error        { return nil }

func (r *stubRepo) ListAliases(context.Context, uuid.UUID) ([]repository.Alias, error) {
	return nil, nil
}
func (r *stubRepo) InsertAlias(context.Context, uuid.UUID, string) error { return nil }

func (r *stubRepo) ListContacts(context.Context, uuid.UUID) ([]repository.Contact, error) {
	return nil, nil
}
func (r *stubRepo) InsertContact(_ context.Context, c repository.Contact) (repository.Contact, error) {
	c.ID = uuid.New()
	return c, nil
}
func (r *stubRepo) UpdateContact(context.Context, repository.Contact) error { return nil }
func (r *stubRepo) MoveContacts(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *stubRepo) InsertAction(_ context.Context, a repository.Action) (repository.Action, error) {
	a.ID = uuid.New()
	return a, nil
}
func (r *stubRepo) GetAction(context.Context, uuid.UUID, uuid.UUID) (repository.Action, error) {
	return repository.Action{}, apperr.NotFound("action introuvable")
}
func (r *stubRepo) ListActions(context.Context, uuid.UUID, uuid.UUID) ([]repository.Action, error) {
	return nil, nil
}
func (r *stubRepo) ListUpcomingReminders(context.Context, uuid.UUID, time.Time) ([]repository.Action, error) {
	return nil, nil
}

func (r *stubRepo) InsertCompetitiveEntry(_ context.Context, e repository.CompetitiveEntry) (repository.CompetitiveEntry, error) {
	e.ID = uuid.New()
	return e, nil
}
func (r *stubRepo) ListCompetitiveEntries(context.Context, uuid.UUID, uuid.UUID) ([]repository.CompetitiveEntry, error) {
	return nil, nil
}
func (r *stubRepo) ListOwnerCompetitiveEntries(context.Context, uuid.UUID) ([]repository.CompetitiveEntry, error) {
	return nil, nil
}

func (r *stubRepo) ListInternalUsers(context.Context) ([]repository.InternalUser, error) {
	return nil, nil
}
func (r *stubRepo) GetInternalUser(context.Context, uuid.UUID) (repository.InternalUser, error) {
	return repository.InternalUser{}, apperr.NotFound("collaborateur introuvable")
}
func (r *stubRepo) InsertInternalUser(_ context.Context, u repository.InternalUser) (repository.InternalUser, error) {
	u.ID = uuid.New()
	return u, nil
}

func (r *stubRepo) InsertAuditRecord(_ context.Context, rec repository.AuditRecord) error {
	r.audits = append(r.audits, rec)
	return nil
}
func (r *stubRepo) ListAuditRecords(context.Context, uuid.UUID, int) ([]repository.AuditRecord, error) {
	return r.audits, nil
}

// fakeGateway returns scripted completions and records every request.
// When failOn is non-zero, that request number returns an error instead.
type fakeGateway struct {
	completions []*gateway.Completion
	failOn      int
	requests    [][]gateway.Message
}

func (g *fakeGateway) Complete(_ context.Context, messages []gateway.Message, _ []*genai.FunctionDeclaration) (*gateway.Completion, error) {
	g.requests = append(g.requests, messages)
	if g.failOn != 0 && len(g.requests) == g.failOn {
		return nil, errors.New("passerelle injoignable")
	}
	if len(g.completions) == 0 {
		return &gateway.Completion{Content: "ok"}, nil
	}
	next := g.completions[0]
	g.completions = g.completions[1:]
	return next, nil
}

func newChatService(t *testing.T, gw *fakeGateway, repo *stubRepo) *Service {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatal(err)
	}
	log := logger.New("development")
	crm := crmservice.New(repo, frdate.NewParser(loc), nil, log)

	registry, err := tools.NewRegistry(crm)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	svc := New(gw, registry, crm, log)
	svc.WithClock(func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, loc) })
	return svc
}

func userTurn(content string) []gateway.Message {
	return []gateway.Message{{Role: "user", Content: content}}
}

func TestRunPlainAnswer(t *testing.T) {
	gw := &fakeGateway{completions: []*gateway.Completion{{Content: "Bonjour !"}}}
	repo := &stubRepo{}
	svc := newChatService(t, gw, repo)

	result, err := svc.Run(context.Background(), uuid.New(), userTurn("salut"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Content != "Bonjour !" {
		t.Fatalf("content = %q", result.Content)
	}
	if len(result.ToolCalls) != 0 || len(result.ToolResults) != 0 {
		t.Fatal("expected no tool activity for a plain answer")
	}
	if len(gw.requests) != 1 {
		t.Fatalf("expected a single round trip, got %d", len(gw.requests))
	}
	if len(repo.audits) != 0 {
		t.Fatalf("expected no audit records, got %d", len(repo.audits))
	}

	first := gw.requests[0][0]
	if first.Role != "system" || !strings.Contains(first.Content, "lundi 10 mars 2025") {
		t.Fatalf("system prompt missing or undated: %q", first.Content)
	}
}

func TestRunDispatchesAllCallsInOrder(t *testing.T) {
	calls := []gateway.ToolCall{
		{ID: "call-1", Type: "function", Function: gateway.ToolFunction{
			Name:      "create_etablissement",
			Arguments: `{"nom": "Novotel Bron", "ville": "Bron"}`,
		}},
		{ID: "call-2", Type: "function", Function: gateway.ToolFunction{
			Name:      "search_etablissements",
			Arguments: `{}`,
		}},
	}
	gw := &fakeGateway{completions: []*gateway.Completion{
		{ToolCalls: calls},
		{Content: "C'est fait."},
	}}
	repo := &stubRepo{}
	svc := newChatService(t, gw, repo)
	ownerID := uuid.New()

	result, err := svc.Run(context.Background(), ownerID, userTurn("crée le Novotel de Bron"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Content != "C'est fait." {
		t.Fatalf("content = %q", result.Content)
	}
	if len(result.ToolResults) != 2 {
		t.Fatalf("expected 2 tool results, got %d", len(result.ToolResults))
	}
	if result.ToolResults[0].ToolCallID != "call-1" || result.ToolResults[1].ToolCallID != "call-2" {
		t.Fatal("tool results out of dispatch order")
	}

	var first tools.Result
	if err := json.Unmarshal(result.ToolResults[0].Output, &first); err != nil {
		t.Fatalf("unmarshal first output: %v", err)
	}
	if !first.Success {
		t.Fatalf("create_etablissement failed: %s", first.Error)
	}
	if len(repo.ests) != 1 || repo.ests[0].Name != "Novotel Bron" {
		t.Fatalf("establishment not created: %+v", repo.ests)
	}

	if len(repo.audits) != 2 {
		t.Fatalf("expected one audit record per call, got %d", len(repo.audits))
	}
	if repo.audits[0].ToolName != "create_etablissement" || repo.audits[1].ToolName != "search_etablissements" {
		t.Fatal("audit records out of order")
	}

	// The follow-up request must carry the assistant tool calls and one tool
	// message per call.
	if len(gw.requests) != 2 {
		t.Fatalf("expected 2 round trips, got %d", len(gw.requests))
	}
	followUp := gw.requests[1]
	toolMessages := 0
	for _, m := range followUp {
		if m.Role == "tool" {
			toolMessages++
		}
	}
	if toolMessages != 2 {
		t.Fatalf("expected 2 tool messages in the follow-up, got %d", toolMessages)
	}
}

func TestRunCreateEstablishmentStoresExtraAttributes(t *testing.T) {
	calls := []gateway.ToolCall{
		{ID: "call-1", Type: "function", Function: gateway.ToolFunction{
			Name:      "create_etablissement",
			Arguments: `{"nom": "Novotel Bron", "extra": {"siret": "12345678900011", "effectif": 42}}`,
		}},
	}
	gw := &fakeGateway{completions: []*gateway.Completion{
		{ToolCalls: calls},
		{Content: "C'est fait."},
	}}
	repo := &stubRepo{}
	svc := newChatService(t, gw, repo)

	if _, err := svc.Run(context.Background(), uuid.New(), userTurn("crée le Novotel avec son siret")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.ests) != 1 {
		t.Fatalf("expected 1 establishment, got %d", len(repo.ests))
	}

	extra := repo.ests[0].Extra
	if extra["siret"] != "12345678900011" {
		t.Errorf("siret not stored: %v", extra["siret"])
	}
	if extra["effectif"] != 42.0 {
		t.Errorf("effectif not stored: %v", extra["effectif"])
	}
}

func TestRunUnknownToolDoesNotAbortSiblings(t *testing.T) {
	calls := []gateway.ToolCall{
		{ID: "call-1", Type: "function", Function: gateway.ToolFunction{
			Name: "tool_inexistant", Arguments: `{}`,
		}},
		{ID: "call-2", Type: "function", Function: gateway.ToolFunction{
			Name: "search_etablissements", Arguments: `{}`,
		}},
	}
	gw := &fakeGateway{completions: []*gateway.Completion{
		{ToolCalls: calls},
		{Content: "Désolé pour le premier outil."},
	}}
	repo := &stubRepo{}
	svc := newChatService(t, gw, repo)

	result, err := svc.Run(context.Background(), uuid.New(), userTurn("fais un truc"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.ToolResults) != 2 {
		t.Fatalf("expected both calls answered, got %d", len(result.ToolResults))
	}

	var first, second tools.Result
	if err := json.Unmarshal(result.ToolResults[0].Output, &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(result.ToolResults[1].Output, &second); err != nil {
		t.Fatal(err)
	}
	if first.Success {
		t.Fatal("unknown tool should fail")
	}
	if !second.Success {
		t.Fatalf("sibling call should still run: %s", second.Error)
	}

	if len(repo.audits) != 2 || repo.audits[0].Success {
		t.Fatal("expected an audit record marking the unknown tool as failed")
	}
}

func TestRunFollowUpFailureKeepsToolResults(t *testing.T) {
	calls := []gateway.ToolCall{
		{ID: "call-1", Type: "function", Function: gateway.ToolFunction{
			Name: "search_etablissements", Arguments: `{}`,
		}},
	}
	gw := &fakeGateway{completions: []*gateway.Completion{{ToolCalls: calls}}, failOn: 2}
	repo := &stubRepo{}
	svc := newChatService(t, gw, repo)

	result, err := svc.Run(context.Background(), uuid.New(), userTurn("liste les établissements"))
	if err == nil {
		t.Fatal("the follow-up failure must surface as an error")
	}
	if len(result.ToolResults) != 1 || result.ToolResults[0].ToolCallID != "call-1" {
		t.Fatalf("executed results must survive the failure, got %+v", result.ToolResults)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected the requested calls alongside the error, got %d", len(result.ToolCalls))
	}
	if len(repo.audits) != 1 || !repo.audits[0].Success {
		t.Fatalf("the dispatched call should have one successful audit record, got %+v", repo.audits)
	}
}

func TestRunEmptyConversation(t *testing.T) {
	svc := newChatService(t, &fakeGateway{}, &stubRepo{})

	_, err := svc.Run(context.Background(), uuid.New(), nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
