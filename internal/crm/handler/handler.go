// Package handler exposes the CRM operations over HTTP for the web client.
// The conversational layer in internal/chat drives the same service.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crm_assistant_backend/internal/crm/service"
	"crm_assistant_backend/internal/crm/transport"
	"crm_assistant_backend/platform/httpkit"
	"crm_assistant_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the CRM module.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new CRM handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListEstablishments returns the caller's establishments.
// GET /api/v1/establishments
func (h *Handler) ListEstablishments(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	list, err := h.svc.ListEstablishments(c.Request.Context(), identity.UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromEstablishments(list))
}

// CreateEstablishment creates an establishment, running dedup first.
// POST /api/v1/establishments
func (h *Handler) CreateEstablishment(c *gin.Context) {
	var req transport.CreateEstablishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	res, err := h.svc.CreateEstablishment(c.Request.Context(), identity.UserID, req.ToInput())
	if httpkit.HandleError(c, err) {
		return
	}
	if res.Outcome == service.OutcomeCreated {
		httpkit.Created(c, transport.FromCreateResult(res))
		return
	}
	httpkit.OK(c, transport.FromCreateResult(res))
}

// UpdateEstablishment merges non-empty fields into an establishment
// resolved by name.
// POST /api/v1/establishments/update
func (h *Handler) UpdateEstablishment(c *gin.Context) {
	var req transport.UpdateEstablishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	est, err := h.svc.UpdateEstablishment(c.Request.Context(), identity.UserID, service.UpdateEstablishmentInput{
		Name:   req.Name,
		Fields: req.Fields.ToInput(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromEstablishment(est))
}

// DeleteEstablishment soft-deletes an establishment resolved by name.
// POST /api/v1/establishments/delete
func (h *Handler) DeleteEstablishment(c *gin.Context) {
	var req transport.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	est, err := h.svc.DeleteEstablishment(c.Request.Context(), identity.UserID, req.Name)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromEstablishment(est))
}

// ResolveEstablishment ranks establishments against a free-text name.
// POST /api/v1/establishments/resolve
func (h *Handler) ResolveEstablishment(c *gin.Context) {
	var req transport.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	matches, err := h.svc.ResolveEstablishment(c.Request.Context(), identity.UserID, req.Name, req.City)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, matches)
}

// MergeEstablishments folds a duplicate establishment into a master.
// POST /api/v1/establishments/merge
func (h *Handler) MergeEstablishments(c *gin.Context) {
	var req transport.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	res, err := h.svc.Merge(c.Request.Context(), identity.UserID, req.MasterName, req.DuplicateName)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"master":    transport.FromEstablishment(res.Master),
		"duplicate": transport.FromEstablishment(res.Duplicate),
	})
}

// AddAlias registers a name variant for an establishment.
// POST /api/v1/establishments/aliases
func (h *Handler) AddAlias(c *gin.Context) {
	var req transport.AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	err := h.svc.AddAlias(c.Request.Context(), identity.UserID, req.EstablishmentName, req.Alias)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.NoContent(c)
}

// ListContacts returns the contacts of an establishment resolved by name.
// GET /api/v1/contacts?establishment=...
func (h *Handler) ListContacts(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	name := c.Query("establishment")
	if name == "" {
		httpkit.Fail(c, http.StatusBadRequest, "establishment query parameter is required")
		return
	}

	list, err := h.svc.ListContacts(c.Request.Context(), identity.UserID, name)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromContacts(list))
}

// CreateContact attaches a contact to an establishment resolved by name.
// POST /api/v1/contacts
func (h *Handler) CreateContact(c *gin.Context) {
	var req transport.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	contact, err := h.svc.CreateContact(c.Request.Context(), identity.UserID, service.CreateContactInput{
		EstablishmentName: req.EstablishmentName,
		LastName:          req.LastName,
		FirstName:         req.FirstName,
		Role:              req.Role,
		Phone:             req.Phone,
		Email:             req.Email,
		ContactPreference: req.ContactPreference,
		Notes:             req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.FromContact(contact))
}

// ListActions returns the caller's actions, optionally for one establishment.
// GET /api/v1/actions?establishment=...
func (h *Handler) ListActions(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	list, err := h.svc.ListActions(c.Request.Context(), identity.UserID, c.Query("establishment"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromActions(list))
}

// CreateAction creates an action with the full resolve/reminder/retry policy.
// POST /api/v1/actions
func (h *Handler) CreateAction(c *gin.Context) {
	var req transport.CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	res, err := h.svc.CreateAction(c.Request.Context(), identity.UserID, service.CreateActionInput{
		EstablishmentName: req.EstablishmentName,
		City:              req.City,
		Kind:              req.Kind,
		DateExpr:          req.Date,
		ContactName:       req.ContactName,
		AssigneeFirstName: req.Assignee,
		Comment:           req.Comment,
		RemindExpr:        req.RemindAt,
		IsReminder:        req.IsReminder,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.CreateActionResponse{
		Action:            transport.FromAction(res.Action),
		Establishment:     transport.FromEstablishment(res.Establishment),
		EstablishmentStub: res.EstablishmentStub,
		Confirmation:      res.Confirmation,
	})
}

// UpcomingReminders returns the caller's reminders due within a horizon.
// GET /api/v1/reminders/upcoming?days=7
func (h *Handler) UpcomingReminders(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	days := 7
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}

	list, err := h.svc.UpcomingReminders(c.Request.Context(), identity.UserID, time.Duration(days)*24*time.Hour)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromActions(list))
}

// CreateCompetitiveEntry records a competitor's presence.
// POST /api/v1/competitive-entries
func (h *Handler) CreateCompetitiveEntry(c *gin.Context) {
	var req transport.CreateCompetitiveEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	entry, err := h.svc.CreateCompetitiveEntry(c.Request.Context(), identity.UserID, service.CreateCompetitiveEntryInput{
		EstablishmentName:   req.EstablishmentName,
		MainCompetitor:      req.MainCompetitor,
		Positions:           req.Positions,
		Sector:              req.Sector,
		Subsector:           req.Subsector,
		ObservedCoefficient: req.ObservedCoefficient,
		Status:              req.Status,
		Remarks:             req.Remarks,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"id": entry.ID, "establishmentId": entry.EstablishmentID})
}

// ListCompetitiveEntries returns the entries of one establishment.
// GET /api/v1/competitive-entries?establishment=...
func (h *Handler) ListCompetitiveEntries(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	name := c.Query("establishment")
	if name == "" {
		httpkit.Fail(c, http.StatusBadRequest, "establishment query parameter is required")
		return
	}

	list, err := h.svc.ListCompetitiveEntries(c.Request.Context(), identity.UserID, name)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, list)
}

// ListInternalUsers returns the agency staff for assignment pickers.
// GET /api/v1/internal-users
func (h *Handler) ListInternalUsers(c *gin.Context) {
	if identity := httpkit.MustGetIdentity(c); identity == nil {
		return
	}

	users, err := h.svc.ListInternalUsers(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, users)
}

// AuditTrail returns the caller's recent tool invocations.
// GET /api/v1/audit?limit=50
func (h *Handler) AuditTrail(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := h.svc.AuditTrail(c.Request.Context(), identity.UserID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, records)
}
