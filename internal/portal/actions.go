package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garnizeh/clientportal/internal/mapper"
	"github.com/garnizeh/clientportal/pkg/models"
)

// Candidate action types.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionReserve = "reserve"
)

// CandidateAction is a client decision on an application. JobOrderID is
// optional; when empty the application's own job order association is used.
type CandidateAction struct {
	ActionType    string `json:"actionType"`
	Reason        string `json:"reason,omitempty"`
	Notes         string `json:"notes,omitempty"`
	InterviewDate string `json:"interviewDate,omitempty"`
	JobOrderID    string `json:"jobOrderId,omitempty"`
}

// Act dispatches a candidate action.
func (s *Service) Act(ctx context.Context, actor Actor, applicationID string, a CandidateAction) (*models.ActionResult, error) {
	if applicationID == "" {
		return nil, invalid("candidate_id", "is required")
	}
	switch strings.ToLower(strings.TrimSpace(a.ActionType)) {
	case ActionApprove:
		return s.Decide(ctx, actor, applicationID, a.JobOrderID, true, a.Reason, a.Notes)
	case ActionReject:
		return s.Decide(ctx, actor, applicationID, a.JobOrderID, false, a.Reason, a.Notes)
	case ActionReserve:
		return s.Reserve(ctx, actor, applicationID, a.Reason, a.InterviewDate)
	case "":
		return nil, invalid("actionType", "is required")
	default:
		return nil, invalid("actionType", fmt.Sprintf("unknown action %q", a.ActionType))
	}
}

// Actor identifies who performed an action, for activity records.
type Actor struct {
	UserID    string
	CompanyID string
	Email     string
}

// Decide approves or rejects an application for a job order. The decision
// label is set on the job order edge first and the application's decision
// properties are written only after it succeeds, so an unknown edge leaves
// the application untouched. Workflow enrollment and the activity record are
// best effort and surface as warnings. Repeating a decision that is already
// in place writes nothing unless the properties disagree with the label.
func (s *Service) Decide(ctx context.Context, actor Actor, applicationID, jobOrderID string, approve bool, reason, notes string) (*models.ActionResult, error) {
	if jobOrderID == "" {
		id, err := s.jobOrderOf(ctx, applicationID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("jobOrderId", "is required: the application has no job order")
			}
			return nil, fmt.Errorf("resolve job order: %w", err)
		}
		jobOrderID = id
	}

	label, verb, workflow := s.labels.Rejected.Name, "rejected", s.cfg.Workflows.Reject
	if approve {
		label, verb, workflow = s.labels.Selected.Name, "approved", s.cfg.Workflows.Approve
	}

	outcome, err := s.SetDecisionLabel(ctx, applicationID, jobOrderID, label)
	if err != nil {
		return nil, fmt.Errorf("set decision label: %w", err)
	}
	write := !outcome.AlreadySet
	if outcome.AlreadySet {
		app, err := s.crm.GetObject(ctx, s.types.Applications, applicationID, []string{"application_status"})
		if err != nil {
			return nil, fmt.Errorf("read application: %w", notFound(err))
		}
		write = !strings.EqualFold(app.Properties.Get("application_status"), label)
	}
	if write {
		props := mapper.DecisionProperties(approve, label, reason, notes, s.now())
		if _, err := s.crm.UpdateObject(ctx, s.types.Applications, applicationID, props); err != nil {
			return nil, fmt.Errorf("update application: %w", notFound(err))
		}
	}

	res := &models.ActionResult{
		Success:     true,
		Message:     fmt.Sprintf("Candidate %s", verb),
		CandidateID: applicationID,
		JobOrderID:  jobOrderID,
		Label:       label,
		AlreadySet:  outcome.AlreadySet,
	}
	if outcome.AlreadySet {
		res.Message = fmt.Sprintf("Candidate already %s", verb)
		return res, nil
	}

	if workflow != "" {
		if err := s.crm.EnrollInWorkflow(ctx, workflow, s.types.Applications, applicationID); err != nil {
			s.logger.Warn("workflow enrollment failed",
				slog.String("workflow_id", workflow),
				slog.String("application_id", applicationID),
				slog.String("error", err.Error()))
			res.Warnings = append(res.Warnings, "workflow enrollment failed")
		}
	}
	s.recordActivity(ctx, res, "candidate_"+verb, fmt.Sprintf("Candidate %s by %s", verb, actor.Email), applicationID, notes)
	return res, nil
}

// Reserve holds a candidate, optionally with an interview date.
func (s *Service) Reserve(ctx context.Context, actor Actor, applicationID, reason, interviewDate string) (*models.ActionResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("reason", "is required to reserve a candidate")
	}
	props := mapper.ReserveProperties(reason, interviewDate, s.now())
	if _, err := s.crm.UpdateObject(ctx, s.types.Applications, applicationID, props); err != nil {
		return nil, fmt.Errorf("update application: %w", notFound(err))
	}
	res := &models.ActionResult{
		Success:     true,
		Message:     "Candidate reserved",
		CandidateID: applicationID,
	}
	s.recordActivity(ctx, res, "candidate_reserved", fmt.Sprintf("Candidate reserved by %s", actor.Email), applicationID, reason)
	return res, nil
}

// recordActivity writes an activity record. Failure is reported as a
// warning on res.
func (s *Service) recordActivity(ctx context.Context, res *models.ActionResult, kind, description, relatedID, notes string) {
	if s.types.Activities == "" {
		return
	}
	props := mapper.ActivityProperties(kind, description, relatedID, notes, s.now())
	if _, err := s.crm.CreateObject(ctx, s.types.Activities, props); err != nil {
		s.logger.Warn("activity record failed",
			slog.String("type", kind),
			slog.String("related_object_id", relatedID),
			slog.String("error", err.Error()))
		res.Warnings = append(res.Warnings, "activity record failed")
	}
}
