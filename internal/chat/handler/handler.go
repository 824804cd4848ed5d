// Package handler exposes the conversational endpoint.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm_assistant_backend/internal/chat/service"
	"crm_assistant_backend/platform/ai/gateway"
	"crm_assistant_backend/platform/httpkit"
	"crm_assistant_backend/platform/validator"
)

// Handler handles HTTP requests for the chat module.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new chat handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

type chatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages" validate:"required,min=1,dive"`
}

// Chat runs one conversational turn for the authenticated user.
// POST /api/v1/chat
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	history := make([]gateway.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		history = append(history, gateway.Message{Role: m.Role, Content: m.Content})
	}

	result, err := h.svc.Run(c.Request.Context(), identity.UserID, history)
	if err != nil {
		// Tool calls executed before the failure are carried in the error
		// envelope so the caller never loses them.
		if len(result.ToolResults) > 0 {
			httpkit.Error(c, http.StatusBadGateway, "réponse finale indisponible", result)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, result)
}
