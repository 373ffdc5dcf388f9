package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/clientportal/internal/portal"
	"github.com/garnizeh/clientportal/internal/validate"
	"github.com/garnizeh/clientportal/pkg/models"
)

func (h *PortalHandler) JobOrders(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	q := r.URL.Query()
	jobs, err := h.svc.JobOrdersForCompany(r.Context(), a.CompanyID, portal.JobOrderFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *PortalHandler) JobOrder(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	job, err := h.svc.JobOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// JobOrderCandidates lists the applications recommended for a job order.
func (h *PortalHandler) JobOrderCandidates(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	q := r.URL.Query()
	cands, err := h.svc.CandidatesForJobOrder(r.Context(), mux.Vars(r)["id"], portal.CandidateFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cands)
}

// Approve and Reject record a decision on the application named in the
// path for the job order named in the path.
func (h *PortalHandler) Approve(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	h.decide(w, r, a, true)
}

func (h *PortalHandler) Reject(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	h.decide(w, r, a, false)
}

func (h *PortalHandler) decide(w http.ResponseWriter, r *http.Request, a portal.Actor, approve bool) {
	var req struct {
		Reason string `json:"reason"`
		Notes  string `json:"notes"`
	}
	if err := decodeJSON(r, h.validator, validate.Decision, &req); err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	res, err := h.svc.Decide(r.Context(), a, vars["id"], vars["jobId"], approve, req.Reason, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PortalHandler) Candidate(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	c, err := h.svc.Candidate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *PortalHandler) CandidateAction(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	var req portal.CandidateAction
	if err := decodeJSON(r, h.validator, validate.CandidateAction, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Act(r.Context(), a, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Scorecard returns the company's scorecard for a candidate, or an empty
// object when none has been saved.
func (h *PortalHandler) Scorecard(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	sc, err := h.svc.Scorecard(r.Context(), mux.Vars(r)["id"], a.CompanyID)
	if errors.Is(err, portal.ErrNotFound) {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *PortalHandler) SaveScorecard(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	var sc models.Scorecard
	if err := decodeJSON(r, h.validator, validate.Scorecard, &sc); err != nil {
		writeError(w, r, err)
		return
	}
	sc.CandidateID = mux.Vars(r)["id"]
	res, err := h.svc.SaveScorecard(r.Context(), a, sc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *PortalHandler) CandidatePipeline(w http.ResponseWriter, r *http.Request, a portal.Actor) {
	p, err := h.svc.CandidatePipeline(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
