// Package chat provides the conversational bounded context module: the /chat
// endpoint, the tool registry, and the gateway round trips.
package chat

import (
	"crm_assistant_backend/internal/chat/handler"
	"crm_assistant_backend/internal/chat/service"
	"crm_assistant_backend/internal/chat/tools"
	crmservice "crm_assistant_backend/internal/crm/service"
	apphttp "crm_assistant_backend/internal/http"
	"crm_assistant_backend/platform/logger"
	"crm_assistant_backend/platform/validator"
)

// Module is the chat bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the chat module. It fails when the tool
// registry does not cover the catalog.
func NewModule(gw service.Gateway, crm *crmservice.Service, val *validator.Validator, log *logger.Logger) (*Module, error) {
	registry, err := tools.NewRegistry(crm)
	if err != nil {
		return nil, err
	}

	svc := service.New(gw, registry, crm, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "chat"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the chat routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/chat", m.handler.Chat)
}

// Ensure Module implements the http.Module interface.
var _ apphttp.Module = (*Module)(nil)
