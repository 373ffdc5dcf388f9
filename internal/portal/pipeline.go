package portal

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/clientportal/internal/mapper"
	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

// PostSelectionPipeline summarises the company's selected candidates by
// stage.
func (s *Service) PostSelectionPipeline(ctx context.Context, companyID string) (*models.PostSelectionPipeline, error) {
	records, err := s.crm.SearchAll(ctx, s.types.Candidates, crm.SearchRequest{
		FilterGroups: []crm.FilterGroup{{Filters: []crm.Filter{
			{PropertyName: "company_id", Operator: "EQ", Value: companyID},
			{PropertyName: "lifecycle_stage", Operator: "IN", Values: mapper.PostSelectionStages},
		}}},
		Properties: mapper.PipelineProperties,
		Limit:      maxSearchResults,
	}, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search pipeline candidates: %w", err)
	}

	out := &models.PostSelectionPipeline{Candidates: make([]models.PipelineCandidate, 0, len(records))}
	for _, r := range records {
		mapper.CountStage(&out.Stats, mapper.CandidateStage(r.Properties))
		out.Candidates = append(out.Candidates, mapper.ToPipelineCandidate(r))
	}
	out.TotalCount = len(records)
	return out, nil
}

// CandidatePipeline returns the post-selection checklist of one candidate.
func (s *Service) CandidatePipeline(ctx context.Context, candidateID string) (*models.CandidatePipeline, error) {
	o, err := s.crm.GetObject(ctx, s.types.Candidates, candidateID, mapper.PipelineProperties)
	if err != nil {
		return nil, fmt.Errorf("read candidate: %w", notFound(err))
	}
	p := mapper.ToCandidatePipeline(*o)
	return &p, nil
}

// DashboardStats counts the company's active job orders and, across all of
// its job orders, the recommended candidates, those still without a
// decision and those selected.
func (s *Service) DashboardStats(ctx context.Context, companyID string) (*models.DashboardStats, error) {
	jobs, _, err := s.companyJobOrders(ctx, companyID)
	if err != nil {
		return nil, err
	}

	type counts struct{ available, pending, selected int }
	per := make([]counts, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, j := range jobs {
		g.Go(func() error {
			edges, err := s.crm.Associations(gctx, s.types.JobOrders, j.ID, s.types.Applications)
			if err != nil {
				return fmt.Errorf("job order %s: %w", j.ID, err)
			}
			for _, e := range edges {
				if !e.HasLabel(s.labels.Recommended.Name) {
					continue
				}
				per[i].available++
				switch s.decisionOf(e) {
				case "":
					per[i].pending++
				case s.labels.Selected.Name:
					per[i].selected++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count candidates: %w", err)
	}

	stats := &models.DashboardStats{ActiveJobs: countActive(jobs)}
	for _, c := range per {
		stats.AvailableCandidates += c.available
		stats.PendingReviews += c.pending
		stats.SelectionsMade += c.selected
	}
	return stats, nil
}

// SubmitTicket opens a support ticket for the company.
func (s *Service) SubmitTicket(ctx context.Context, actor Actor, t models.SupportTicket) (*models.SupportTicket, error) {
	if strings.TrimSpace(t.Subject) == "" {
		return nil, invalid("subject", "is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return nil, invalid("description", "is required")
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if t.ContactEmail == "" {
		t.ContactEmail = actor.Email
	}
	rec, err := s.crm.CreateObject(ctx, s.types.Tickets, mapper.TicketProperties(t, actor.CompanyID))
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	t.ID = rec.ID
	return &t, nil
}
