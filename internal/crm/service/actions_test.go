package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/platform/apperr"
)

func TestCreateActionAmbiguousDateBlocks(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()

	_, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "appel",
		DateExpr:          "xyz",
	})
	if err == nil {
		t.Fatal("expected error for ambiguous date")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if !strings.Contains(appErr.Message, "xyz") {
		t.Errorf("error should name the offending expression: %q", appErr.Message)
	}
	if len(repo.actions) != 0 || len(repo.ests) != 0 {
		t.Error("nothing should be created on an ambiguous date")
	}
}

func TestCreateActionCreatesStub(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Le Grand Bistrot",
		Kind:              "appel",
		DateExpr:          "demain",
	})
	if err != nil {
		t.Fatalf("CreateAction: %v", err)
	}
	if !res.EstablishmentStub {
		t.Error("expected a stub establishment")
	}
	if len(repo.ests) != 1 || len(repo.actions) != 1 {
		t.Fatalf("expected exactly 1 establishment and 1 action, got %d/%d", len(repo.ests), len(repo.actions))
	}

	stub := repo.ests[0]
	if stub.Kind != repository.KindProspect || stub.CommercialStatus != repository.StatusToContact {
		t.Errorf("stub kind/status = %q/%q", stub.Kind, stub.CommercialStatus)
	}
	if stub.OwnerID != ownerID || repo.actions[0].OwnerID != ownerID {
		t.Error("stub and action must be attributed to the requesting owner")
	}

	wantOccurs := time.Date(2025, 3, 11, 9, 0, 0, 0, parisLoc)
	if !res.Action.OccursAt.Equal(wantOccurs) {
		t.Errorf("occurs at = %v, want %v", res.Action.OccursAt, wantOccurs)
	}
}

func TestCreateActionReminderCall(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	seedEstablishment(repo, ownerID, "Novotel Bron", "")

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "appel",
		DateExpr:          "demain 14h",
		Comment:           "Rappel pour le contrat",
	})
	if err != nil {
		t.Fatalf("CreateAction: %v", err)
	}

	a := res.Action
	if a.RemindAt == nil {
		t.Fatal("reminder call should have remind_at")
	}
	if !a.RemindAt.Equal(a.OccursAt) {
		t.Errorf("remind_at (%v) must equal occurs_at (%v)", a.RemindAt, a.OccursAt)
	}
	if !strings.HasPrefix(res.Confirmation, "✓ Rappel enregistré") {
		t.Errorf("confirmation = %q", res.Confirmation)
	}
	if !strings.Contains(res.Confirmation, "Novotel Bron") {
		t.Errorf("confirmation should name the establishment: %q", res.Confirmation)
	}
}

func TestCreateActionVisitAutoReminder(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	seedEstablishment(repo, ownerID, "Novotel Bron", "")

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "visite",
		DateExpr:          "demain 14h",
	})
	if err != nil {
		t.Fatalf("CreateAction: %v", err)
	}

	a := res.Action
	if a.RemindAt == nil {
		t.Fatal("a visit should get an automatic reminder")
	}
	if want := a.OccursAt.Add(-time.Hour); !a.RemindAt.Equal(want) {
		t.Errorf("remind_at = %v, want one hour before %v", a.RemindAt, a.OccursAt)
	}
	if !strings.HasPrefix(res.Confirmation, "✓ Visite enregistré") {
		t.Errorf("confirmation = %q", res.Confirmation)
	}
}

func TestCreateActionExplicitReminderExpression(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	seedEstablishment(repo, ownerID, "Novotel Bron", "")

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "autre",
		DateExpr:          "15/03/2026",
		RemindExpr:        "dans 2 jours",
	})
	if err != nil {
		t.Fatalf("CreateAction: %v", err)
	}
	if res.Action.RemindAt == nil {
		t.Fatal("explicit reminder expression should set remind_at")
	}
	want := time.Date(2025, 3, 12, 9, 0, 0, 0, parisLoc)
	if !res.Action.RemindAt.Equal(want) {
		t.Errorf("remind_at = %v, want %v", res.Action.RemindAt, want)
	}
}

func TestCreateActionUnparseableReminderIsIgnored(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	seedEstablishment(repo, ownerID, "Novotel Bron", "")

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "autre",
		DateExpr:          "demain",
		RemindExpr:        "quand tu veux",
	})
	if err != nil {
		t.Fatalf("an unparseable reminder must not fail the action: %v", err)
	}
	if res.Action.RemindAt != nil {
		t.Errorf("remind_at should stay unset, got %v", res.Action.RemindAt)
	}
}

func TestCreateActionCallInvariant(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	seedEstablishment(repo, ownerID, "Novotel Bron", "")

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "appel",
		DateExpr:          "demain",
		RemindExpr:        "dans 3 jours",
	})
	if err != nil {
		t.Fatalf("CreateAction: %v", err)
	}
	a := res.Action
	if a.RemindAt == nil || !a.OccursAt.Equal(*a.RemindAt) {
		t.Errorf("a call with a reminder must hold the same instant twice: occurs=%v remind=%v", a.OccursAt, a.RemindAt)
	}
}

func TestCreateActionRepairRetry(t *testing.T) {
	repo := newFakeRepo()
	repo.failActionInserts = 1
	svc := newTestService(repo)
	ownerID := uuid.New()
	seedEstablishment(repo, ownerID, "Novotel Bron", "")

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "appel",
		DateExpr:          "demain",
	})
	if err != nil {
		t.Fatalf("repair retry should succeed: %v", err)
	}
	if !res.EstablishmentStub {
		t.Error("repair should recreate a minimal stub")
	}
	if len(repo.ests) != 2 {
		t.Errorf("expected original plus stub, got %d establishments", len(repo.ests))
	}
	if len(repo.actions) != 1 {
		t.Fatalf("expected exactly 1 action, got %d", len(repo.actions))
	}
	if repo.actions[0].EstablishmentID != res.Establishment.ID {
		t.Error("action should target the repaired stub")
	}
}

func TestCreateActionSecondFailureIsFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.failActionInserts = 2
	svc := newTestService(repo)
	ownerID := uuid.New()
	seedEstablishment(repo, ownerID, "Novotel Bron", "")

	if _, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "appel",
		DateExpr:          "demain",
	}); err == nil {
		t.Fatal("a second insert failure must surface as an error")
	}
	if len(repo.actions) != 0 {
		t.Errorf("no action should exist, got %d", len(repo.actions))
	}
}

func TestCreateActionResolvesContactAndAssignee(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	est := seedEstablishment(repo, ownerID, "Novotel Bron", "")

	contactID := uuid.New()
	repo.contacts[est.ID] = []repository.Contact{
		{ID: contactID, EstablishmentID: est.ID, LastName: "Dupont", FirstName: "Marie"},
	}
	userID := uuid.New()
	repo.users = []repository.InternalUser{{ID: userID, FirstName: "Karim", LastName: "Benali"}}

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron",
		Kind:              "visite",
		DateExpr:          "vendredi",
		ContactName:       "Marie",
		AssigneeFirstName: "karim",
	})
	if err != nil {
		t.Fatalf("CreateAction: %v", err)
	}
	if res.Action.ContactID == nil || *res.Action.ContactID != contactID {
		t.Error("contact not resolved")
	}
	if res.Action.AssigneeID == nil || *res.Action.AssigneeID != userID {
		t.Error("assignee not resolved")
	}
}

func TestCreateActionAliasVariantRecognized(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	est := seedEstablishment(repo, ownerID, "Novotel Bron", "")

	res, err := svc.CreateAction(context.Background(), ownerID, CreateActionInput{
		EstablishmentName: "Novotel Bron Aéroport",
		Kind:              "appel",
		DateExpr:          "demain",
	})
	if err != nil {
		t.Fatalf("CreateAction: %v", err)
	}
	if res.Establishment.ID != est.ID {
		t.Error("variant should resolve to the existing establishment")
	}
	if len(repo.aliases) != 1 || repo.aliases[0].Alias != "Novotel Bron Aéroport" {
		t.Errorf("variant should be aliased silently, got %+v", repo.aliases)
	}
}

func TestUpcomingReminders(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ownerID := uuid.New()
	est := seedEstablishment(repo, ownerID, "Novotel Bron", "")

	soon := time.Date(2025, 3, 12, 9, 0, 0, 0, parisLoc)
	far := time.Date(2025, 6, 1, 9, 0, 0, 0, parisLoc)
	repo.actions = []repository.Action{
		{ID: uuid.New(), EstablishmentID: est.ID, OwnerID: ownerID, Kind: repository.ActionCall, OccursAt: soon, RemindAt: &soon},
		{ID: uuid.New(), EstablishmentID: est.ID, OwnerID: ownerID, Kind: repository.ActionCall, OccursAt: far, RemindAt: &far},
	}

	reminders, err := svc.UpcomingReminders(context.Background(), ownerID, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("UpcomingReminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Errorf("expected 1 reminder within a week, got %d", len(reminders))
	}
}
