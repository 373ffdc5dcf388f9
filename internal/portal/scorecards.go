package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garnizeh/clientportal/internal/mapper"
	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

// ScorecardResult reports a scorecard save.
type ScorecardResult struct {
	Success   bool                 `json:"success"`
	Created   bool                 `json:"created"`
	Scorecard models.Scorecard     `json:"scorecard"`
	Decision  *models.ActionResult `json:"decision,omitempty"`
	Warnings  []string             `json:"warnings,omitempty"`
}

func (s *Service) findScorecard(ctx context.Context, candidateID, companyID string) (*crm.Object, error) {
	res, err := s.crm.Search(ctx, s.types.Assessments, crm.SearchRequest{
		FilterGroups: []crm.FilterGroup{{Filters: []crm.Filter{
			{PropertyName: "candidate_id", Operator: "EQ", Value: candidateID},
			{PropertyName: "company_id", Operator: "EQ", Value: companyID},
		}}},
		Properties: mapper.ScorecardFields,
		Sorts:      []crm.Sort{{PropertyName: "assessment_date", Direction: "DESCENDING"}},
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("search scorecards: %w", err)
	}
	if len(res.Results) == 0 {
		return nil, nil
	}
	return &res.Results[0], nil
}

// Scorecard returns the company's scorecard for a candidate.
func (s *Service) Scorecard(ctx context.Context, candidateID, companyID string) (*models.Scorecard, error) {
	o, err := s.findScorecard(ctx, candidateID, companyID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	sc := mapper.ToScorecard(*o)
	return &sc, nil
}

// SaveScorecard creates or replaces the scorecard keyed by (candidate,
// company). A final decision of approve or reject is then applied to the
// candidate; failure of that step is a warning, not an error.
func (s *Service) SaveScorecard(ctx context.Context, actor Actor, sc models.Scorecard) (*ScorecardResult, error) {
	if sc.CandidateID == "" {
		return nil, invalid("candidate_id", "is required")
	}
	sc.CompanyID = actor.CompanyID
	if sc.AssessedBy == "" {
		sc.AssessedBy = actor.Email
	}

	existing, err := s.findScorecard(ctx, sc.CandidateID, sc.CompanyID)
	if err != nil {
		return nil, err
	}
	props := mapper.ScorecardProperties(sc, s.now())

	res := &ScorecardResult{Success: true}
	var saved *crm.Object
	if existing != nil {
		saved, err = s.crm.UpdateObject(ctx, s.types.Assessments, existing.ID, props)
	} else {
		res.Created = true
		saved, err = s.crm.CreateObject(ctx, s.types.Assessments, props)
	}
	if err != nil {
		return nil, fmt.Errorf("save scorecard: %w", err)
	}
	res.Scorecard = sc
	res.Scorecard.ID = saved.ID
	res.Scorecard.AssessmentDate = props["assessment_date"]

	if approve, ok := finalDecision(sc.FinalDecision); ok {
		d, err := s.Decide(ctx, actor, sc.CandidateID, "", approve, "Scorecard decision", sc.AssessmentNotes)
		if err != nil {
			s.logger.Warn("scorecard decision failed",
				slog.String("candidate_id", sc.CandidateID),
				slog.String("error", err.Error()))
			res.Warnings = append(res.Warnings, "final decision could not be applied")
		} else {
			res.Decision = d
			res.Warnings = append(res.Warnings, d.Warnings...)
		}
	}
	return res, nil
}

// finalDecision interprets a scorecard's final_decision value.
func finalDecision(v string) (approve bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "approve", "approved", "select", "selected", "hire":
		return true, true
	case "reject", "rejected", "decline", "declined":
		return false, true
	}
	return false, false
}
