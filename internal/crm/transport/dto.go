// Package transport defines the request and response shapes of the CRM API.
package transport

import (
	"time"

	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/crm/service"
)

// CreateEstablishmentRequest is the body of POST /establishments.
type CreateEstablishmentRequest struct {
	Name              string         `json:"name" validate:"required"`
	Kind              string         `json:"kind"`
	CommercialStatus  string         `json:"commercialStatus"`
	DisplayName       string         `json:"displayName"`
	Street            string         `json:"street"`
	PostalCode        string         `json:"postalCode"`
	City              string         `json:"city"`
	Sector            string         `json:"sector"`
	Subsector         string         `json:"subsector"`
	Coefficient       *float64       `json:"coefficient"`
	GroupName         string         `json:"groupName"`
	PrimaryCompetitor string         `json:"primaryCompetitor"`
	Notes             string         `json:"notes"`
	Extra             map[string]any `json:"extra"`
}

// ToInput converts the request to the service input.
func (r CreateEstablishmentRequest) ToInput() service.CreateEstablishmentInput {
	return service.CreateEstablishmentInput{
		Name:              r.Name,
		Kind:              r.Kind,
		CommercialStatus:  r.CommercialStatus,
		DisplayName:       r.DisplayName,
		Street:            r.Street,
		PostalCode:        r.PostalCode,
		City:              r.City,
		Sector:            r.Sector,
		Subsector:         r.Subsector,
		Coefficient:       r.Coefficient,
		GroupName:         r.GroupName,
		PrimaryCompetitor: r.PrimaryCompetitor,
		Notes:             r.Notes,
		Extra:             r.Extra,
	}
}

// UpdateEstablishmentRequest is the body of POST /establishments/update.
type UpdateEstablishmentRequest struct {
	Name   string                     `json:"name" validate:"required"`
	Fields CreateEstablishmentRequest `json:"fields"`
}

// ResolveRequest is the body of POST /establishments/resolve.
type ResolveRequest struct {
	Name string `json:"name" validate:"required"`
	City string `json:"city"`
}

// MergeRequest is the body of POST /establishments/merge.
type MergeRequest struct {
	MasterName    string `json:"masterName" validate:"required"`
	DuplicateName string `json:"duplicateName" validate:"required"`
}

// AliasRequest is the body of POST /establishments/aliases.
type AliasRequest struct {
	EstablishmentName string `json:"establishmentName" validate:"required"`
	Alias             string `json:"alias" validate:"required"`
}

// CreateContactRequest is the body of POST /contacts.
type CreateContactRequest struct {
	EstablishmentName string `json:"establishmentName" validate:"required"`
	LastName          string `json:"lastName"`
	FirstName         string `json:"firstName"`
	Role              string `json:"role"`
	Phone             string `json:"phone"`
	Email             string `json:"email" validate:"omitempty,email"`
	ContactPreference string `json:"contactPreference"`
	Notes             string `json:"notes"`
}

// CreateActionRequest is the body of POST /actions.
type CreateActionRequest struct {
	EstablishmentName string `json:"establishmentName" validate:"required"`
	City              string `json:"city"`
	Kind              string `json:"kind" validate:"required"`
	Date              string `json:"date" validate:"required"`
	ContactName       string `json:"contactName"`
	Assignee          string `json:"assignee"`
	Comment           string `json:"comment"`
	RemindAt          string `json:"remindAt"`
	IsReminder        bool   `json:"isReminder"`
}

// CreateCompetitiveEntryRequest is the body of POST /competitive-entries.
type CreateCompetitiveEntryRequest struct {
	EstablishmentName   string   `json:"establishmentName" validate:"required"`
	MainCompetitor      string   `json:"mainCompetitor" validate:"required"`
	Positions           []string `json:"positions"`
	Sector              string   `json:"sector"`
	Subsector           string   `json:"subsector"`
	ObservedCoefficient *float64 `json:"observedCoefficient"`
	Status              string   `json:"status"`
	Remarks             string   `json:"remarks"`
}

// EstablishmentResponse is the wire form of an establishment.
type EstablishmentResponse struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	CanonicalName     string         `json:"canonicalName"`
	DisplayName       string         `json:"displayName,omitempty"`
	Kind              string         `json:"kind"`
	CommercialStatus  string         `json:"commercialStatus"`
	Street            string         `json:"street,omitempty"`
	PostalCode        string         `json:"postalCode,omitempty"`
	City              string         `json:"city,omitempty"`
	Sector            string         `json:"sector,omitempty"`
	Subsector         string         `json:"subsector,omitempty"`
	Coefficient       *float64       `json:"coefficient,omitempty"`
	GroupName         string         `json:"groupName,omitempty"`
	PrimaryCompetitor string         `json:"primaryCompetitor,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
	CreatedAt         string         `json:"createdAt"`
	UpdatedAt         string         `json:"updatedAt"`
}

// FromEstablishment converts a repository model to its wire form.
func FromEstablishment(e repository.Establishment) EstablishmentResponse {
	return EstablishmentResponse{
		ID:                e.ID.String(),
		Name:              e.Name,
		CanonicalName:     e.CanonicalName,
		DisplayName:       e.DisplayName,
		Kind:              e.Kind,
		CommercialStatus:  e.CommercialStatus,
		Street:            e.Street,
		PostalCode:        e.PostalCode,
		City:              e.City,
		Sector:            e.Sector,
		Subsector:         e.Subsector,
		Coefficient:       e.Coefficient,
		GroupName:         e.GroupName,
		PrimaryCompetitor: e.PrimaryCompetitor,
		Notes:             e.Notes,
		Extra:             e.Extra,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         e.UpdatedAt.Format(time.RFC3339),
	}
}

// FromEstablishments converts a list of establishments.
func FromEstablishments(list []repository.Establishment) []EstablishmentResponse {
	out := make([]EstablishmentResponse, 0, len(list))
	for _, e := range list {
		out = append(out, FromEstablishment(e))
	}
	return out
}

// ContactResponse is the wire form of a contact.
type ContactResponse struct {
	ID                string `json:"id"`
	EstablishmentID   string `json:"establishmentId"`
	LastName          string `json:"lastName"`
	FirstName         string `json:"firstName"`
	Role              string `json:"role,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	ContactPreference string `json:"contactPreference,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// FromContact converts a repository model to its wire form.
func FromContact(c repository.Contact) ContactResponse {
	return ContactResponse{
		ID:                c.ID.String(),
		EstablishmentID:   c.EstablishmentID.String(),
		LastName:          c.LastName,
		FirstName:         c.FirstName,
		Role:              c.Role,
		Phone:             c.Phone,
		Email:             c.Email,
		ContactPreference: c.ContactPreference,
		Notes:             c.Notes,
	}
}

// FromContacts converts a list of contacts.
func FromContacts(list []repository.Contact) []ContactResponse {
	out := make([]ContactResponse, 0, len(list))
	for _, c := range list {
		out = append(out, FromContact(c))
	}
	return out
}

// ActionResponse is the wire form of an action.
type ActionResponse struct {
	ID              string  `json:"id"`
	EstablishmentID string  `json:"establishmentId"`
	ContactID       *string `json:"contactId,omitempty"`
	AssigneeID      *string `json:"assigneeId,omitempty"`
	Kind            string  `json:"kind"`
	OccursAt        string  `json:"occursAt"`
	RemindAt        *string `json:"remindAt,omitempty"`
	Comment         string  `json:"comment,omitempty"`
	Outcome         string  `json:"outcome,omitempty"`
}

// FromAction converts a repository model to its wire form.
func FromAction(a repository.Action) ActionResponse {
	resp := ActionResponse{
		ID:              a.ID.String(),
		EstablishmentID: a.EstablishmentID.String(),
		Kind:            a.Kind,
		OccursAt:        a.OccursAt.Format(time.RFC3339),
		Comment:         a.Comment,
		Outcome:         a.Outcome,
	}
	if a.ContactID != nil {
		s := a.ContactID.String()
		resp.ContactID = &s
	}
	if a.AssigneeID != nil {
		s := a.AssigneeID.String()
		resp.AssigneeID = &s
	}
	if a.RemindAt != nil {
		s := a.RemindAt.Format(time.RFC3339)
		resp.RemindAt = &s
	}
	return resp
}

// FromActions converts a list of actions.
func FromActions(list []repository.Action) []ActionResponse {
	out := make([]ActionResponse, 0, len(list))
	for _, a := range list {
		out = append(out, FromAction(a))
	}
	return out
}

// CreateEstablishmentResponse carries the creation outcome: the record for
// created/auto_deduplicated, the candidate list for duplicate_detected.
type CreateEstablishmentResponse struct {
	Outcome       string                 `json:"outcome"`
	Establishment *EstablishmentResponse `json:"establishment,omitempty"`
	Candidates    []service.Match        `json:"candidates,omitempty"`
	Message       string                 `json:"message,omitempty"`
}

// FromCreateResult converts the service result to its wire form.
func FromCreateResult(res service.CreateEstablishmentResult) CreateEstablishmentResponse {
	resp := CreateEstablishmentResponse{
		Outcome:    res.Outcome,
		Candidates: res.Candidates,
		Message:    res.Message,
	}
	if res.Outcome == service.OutcomeCreated || res.Outcome == service.OutcomeAutoDeduplicated {
		e := FromEstablishment(res.Establishment)
		resp.Establishment = &e
	}
	return resp
}

// CreateActionResponse carries the created action and its confirmation line.
type CreateActionResponse struct {
	Action            ActionResponse        `json:"action"`
	Establishment     EstablishmentResponse `json:"establishment"`
	EstablishmentStub bool                  `json:"establishmentStub"`
	Confirmation      string                `json:"confirmation"`
}
