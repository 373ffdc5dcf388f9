package api

import (
	"net/http"

	"github.com/garnizeh/clientportal/internal/auth"
	"github.com/garnizeh/clientportal/internal/portal"
	"github.com/garnizeh/clientportal/internal/validate"
	"github.com/garnizeh/clientportal/pkg/models"
)

// PortalHandler serves the authenticated portal endpoints. Every handler
// scopes its CRM reads to the company carried by the caller's token.
type PortalHandler struct {
	svc            *portal.Service
	validator      *validate.Validator
	maxUploadBytes int64
}

func NewPortalHandler(svc *portal.Service, v *validate.Validator, maxUploadBytes int64) *PortalHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &PortalHandler{svc: svc, validator: v, maxUploadBytes: maxUploadBytes}
}

// actor returns the caller's identity. AuthMiddleware guarantees it on
// every route this handler serves.
func actor(r *http.Request) (portal.Actor, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return portal.Actor{}, false
	}
	return portal.Actor{UserID: id.UserID, CompanyID: id.CompanyID, Email: id.Email}, true
}

// withActor adapts a handler that needs the caller's identity.
func withActor(fn func(w http.ResponseWriter, r *http.Request, a portal.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(r)
		if !ok {
			writeUnauthorized(w, "missing authorization header", reasonMissing)
			return
		}
		fn(w, r, a)
	}
}

func (h *PortalHandler) UserProfile(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	p, err := h.svc.UserProfile(r.Context(), a.UserID, a.CompanyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PortalHandler) CompanyProfile(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	c, err := h.svc.CompanyProfile(r.Context(), a.CompanyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *PortalHandler) UpdateCompanyProfile(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	var bp models.BusinessProfile
	if err := decodeJSON(r, h.validator, validate.BusinessProfile, &bp); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.UpdateBusinessProfile(r.Context(), a.CompanyID, bp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PortalHandler) SubmitQuestionnaire(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	var bp models.BusinessProfile
	if err := decodeJSON(r, h.validator, validate.BusinessProfile, &bp); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.SubmitQuestionnaire(r.Context(), a.CompanyID, bp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PortalHandler) SubmitTicket(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	var t models.SupportTicket
	if err := decodeJSON(r, h.validator, validate.SupportTicket, &t); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.SubmitTicket(r.Context(), a, t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Success bool                  `json:"success"`
		Ticket  *models.SupportTicket `json:"ticket"`
		Message string                `json:"message"`
	}{true, created, "Support ticket submitted"})
}

func (h *PortalHandler) DashboardStats(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	stats, err := h.svc.DashboardStats(r.Context(), a.CompanyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *PortalHandler) PostSelectionPipeline(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	p, err := h.svc.PostSelectionPipeline(r.Context(), a.CompanyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
