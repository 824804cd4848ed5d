// Package service implements the CRM command-execution logic: fuzzy entity
// resolution, deduplication and merge, establishment and action creation with
// repair retries, and the audit trail.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/events"
	"crm_assistant_backend/platform/frdate"
	"crm_assistant_backend/platform/logger"
	"crm_assistant_backend/platform/textnorm"
)

// RefusalMessage is returned verbatim whenever a request targets the agency's
// own corporate name.
const RefusalMessage = "C'est notre société, je n'enregistre pas d'établissement pour nous."

// Names the assistant must never register as establishments or aliases.
// Compared on normalized form, so accent and case variants are covered.
var excludedNames = []string{"adaptel"}

// Service orchestrates CRM commands issued by the assistant.
type Service struct {
	repo  repository.Repository
	dates *frdate.Parser
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates the CRM service. The bus may be nil in contexts without
// event consumers (tests, one-off tooling).
func New(repo repository.Repository, dates *frdate.Parser, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		dates: dates,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// WithClock overrides the time source. Test helper.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IsExcludedName reports whether the name refers to the agency itself.
func IsExcludedName(name string) bool {
	key := textnorm.Normalize(name)
	if key == "" {
		return false
	}
	for _, excluded := range excludedNames {
		if strings.Contains(key, excluded) {
			return true
		}
	}
	return false
}

// NormalizeKind maps free-text action kinds (French or English) onto the
// closed storage set. Unknown values fall back to "other".
func NormalizeKind(kind string) string {
	switch textnorm.Normalize(kind) {
	case "appel", "call", "tel", "telephone":
		return repository.ActionCall
	case "visite", "visit", "rdv", "rendezvous":
		return repository.ActionVisit
	case "mail", "email", "courriel":
		return repository.ActionMail
	default:
		return repository.ActionOther
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, e)
	}
}

// recordAudit appends an audit record, logging instead of failing the caller
// when the append itself errors.
func (s *Service) recordAudit(ctx context.Context, userID uuid.UUID, kind string, arguments, result []byte, success bool) {
	rec := repository.AuditRecord{
		UserID:    userID,
		ToolName:  kind,
		Arguments: arguments,
		Result:    result,
		Success:   success,
	}
	if err := s.repo.InsertAuditRecord(ctx, rec); err != nil {
		s.log.DatabaseError("insert audit record", err)
	}
}

// RecordToolInvocation appends one audit record for a dispatched tool call.
func (s *Service) RecordToolInvocation(ctx context.Context, userID uuid.UUID, toolName string, arguments, result []byte, success bool) {
	s.recordAudit(ctx, userID, toolName, arguments, result, success)
}

// AuditTrail returns the user's most recent audit records.
func (s *Service) AuditTrail(ctx context.Context, userID uuid.UUID, limit int) ([]repository.AuditRecord, error) {
	return s.repo.ListAuditRecords(ctx, userID, limit)
}
