// Package crm provides the CRM bounded context module.
// It covers establishments, their dedup and alias handling, contacts,
// actions with reminders, and competitive intelligence entries.
package crm

import (
	"crm_assistant_backend/internal/crm/handler"
	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/crm/service"
	"crm_assistant_backend/internal/events"
	apphttp "crm_assistant_backend/internal/http"
	"crm_assistant_backend/platform/frdate"
	"crm_assistant_backend/platform/logger"
	"crm_assistant_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the CRM bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the CRM module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger, dates *frdate.Parser, bus events.Bus) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, dates, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "crm"
}

// Service returns the service layer for external use.
// The chat module drives the same operations through its tool registry.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the CRM routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/establishments", m.handler.ListEstablishments)
	ctx.Protected.POST("/establishments", m.handler.CreateEstablishment)
	ctx.Protected.POST("/establishments/resolve", m.handler.ResolveEstablishment)
	ctx.Protected.POST("/establishments/update", m.handler.UpdateEstablishment)
	ctx.Protected.POST("/establishments/delete", m.handler.DeleteEstablishment)
	ctx.Protected.POST("/establishments/merge", m.handler.MergeEstablishments)
	ctx.Protected.POST("/establishments/aliases", m.handler.AddAlias)

	ctx.Protected.GET("/contacts", m.handler.ListContacts)
	ctx.Protected.POST("/contacts", m.handler.CreateContact)

	ctx.Protected.GET("/actions", m.handler.ListActions)
	ctx.Protected.POST("/actions", m.handler.CreateAction)
	ctx.Protected.GET("/reminders/upcoming", m.handler.UpcomingReminders)

	ctx.Protected.GET("/competitive-entries", m.handler.ListCompetitiveEntries)
	ctx.Protected.POST("/competitive-entries", m.handler.CreateCompetitiveEntry)

	ctx.Protected.GET("/internal-users", m.handler.ListInternalUsers)
	ctx.Protected.GET("/audit", m.handler.AuditTrail)
}

// Ensure Module implements the http.Module interface.
var _ apphttp.Module = (*Module)(nil)
