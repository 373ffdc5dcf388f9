package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/internal/mapper"
	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

// Strategies reported by JobOrdersForCompany.
const (
	StrategyAssociations = "associations"
	StrategyNameMatch    = "name_match"
)

// CandidateFilter narrows a candidate list. Empty fields match everything.
type CandidateFilter struct {
	Search string
	Status string
}

func (f CandidateFilter) match(c models.Candidate) bool {
	if f.Status != "" && !strings.EqualFold(f.Status, c.ApplicationStatus) && !strings.EqualFold(f.Status, c.Decision) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(strings.Join(append([]string{c.Name, c.Email, c.Location}, c.Skills...), " "))
		return strings.Contains(hay, q)
	}
	return true
}

// JobOrderFilter narrows a job order list. Empty fields match everything.
type JobOrderFilter struct {
	Search string
	Status string
}

func (f JobOrderFilter) match(j models.JobOrder) bool {
	if f.Status != "" && !strings.EqualFold(f.Status, j.Status) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(j.Title + " " + j.Description + " " + j.Location)
		return strings.Contains(hay, q)
	}
	return true
}

// decisionOf returns the terminal label carried by an edge, if any.
func (s *Service) decisionOf(a crm.Association) string {
	switch {
	case a.HasLabel(s.labels.Selected.Name):
		return s.labels.Selected.Name
	case a.HasLabel(s.labels.Rejected.Name):
		return s.labels.Rejected.Name
	}
	return ""
}

// CandidatesForJobOrder lists the applications on a job order that carry the
// Recommended label, each merged with its contact. Edges whose details
// cannot be fetched are logged and skipped; the order of the CRM's edge list
// is kept.
func (s *Service) CandidatesForJobOrder(ctx context.Context, jobOrderID string, f CandidateFilter) ([]models.Candidate, error) {
	if jobOrderID == "" {
		return nil, invalid("job_order_id", "is required")
	}
	edges, err := s.crm.Associations(ctx, s.types.JobOrders, jobOrderID, s.types.Applications)
	if err != nil {
		return nil, fmt.Errorf("list application edges: %w", notFound(err))
	}

	recommended := make([]crm.Association, 0, len(edges))
	for _, e := range edges {
		if e.HasLabel(s.labels.Recommended.Name) {
			recommended = append(recommended, e)
		}
	}

	slots := make([]*models.Candidate, len(recommended))
	var g errgroup.Group
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, e := range recommended {
		g.Go(func() error {
			c, err := s.resolveCandidate(ctx, string(e.ToObjectID))
			if err != nil {
				s.logger.Warn("skipping candidate edge",
					slog.String("job_order_id", jobOrderID),
					slog.String("application_id", string(e.ToObjectID)),
					slog.String("error", err.Error()))
				return nil
			}
			c.JobOrderID = jobOrderID
			c.Labels = e.Labels()
			c.Decision = s.decisionOf(e)
			slots[i] = c
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.Candidate, 0, len(slots))
	for _, c := range slots {
		if c != nil && f.match(*c) {
			out = append(out, *c)
		}
	}
	s.logger.Debug("candidates resolved",
		slog.String("job_order_id", jobOrderID),
		slog.Int("edges", len(edges)),
		slog.Int("recommended", len(recommended)),
		slog.Int("returned", len(out)))
	return out, nil
}

// resolveCandidate reads an application and overlays its contact. A missing
// or unreadable contact leaves the application fields in place.
func (s *Service) resolveCandidate(ctx context.Context, applicationID string) (*models.Candidate, error) {
	app, err := s.crm.GetObject(ctx, s.types.Applications, applicationID, mapper.ApplicationProperties)
	if err != nil {
		return nil, fmt.Errorf("read application: %w", notFound(err))
	}
	c := mapper.ToCandidate(*app)

	contacts, err := s.crm.Associations(ctx, s.types.Applications, applicationID, crm.ObjectContacts)
	if err != nil {
		s.logger.Warn("contact lookup failed", slog.String("application_id", applicationID), slog.String("error", err.Error()))
		return &c, nil
	}
	if len(contacts) == 0 {
		return &c, nil
	}
	contact, err := s.crm.GetObject(ctx, crm.ObjectContacts, string(contacts[0].ToObjectID), mapper.ContactProperties)
	if err != nil {
		s.logger.Warn("contact read failed", slog.String("application_id", applicationID), slog.String("error", err.Error()))
		return &c, nil
	}
	c = mapper.MergeContact(c, *contact)
	return &c, nil
}

// Candidate returns one application merged with its contact. The job order
// is filled from the application's own association when present.
func (s *Service) Candidate(ctx context.Context, applicationID string) (*models.Candidate, error) {
	c, err := s.resolveCandidate(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if jobID, err := s.jobOrderOf(ctx, applicationID); err == nil {
		c.JobOrderID = jobID
	}
	return c, nil
}

// jobOrderOf returns the job order an application is linked to.
func (s *Service) jobOrderOf(ctx context.Context, applicationID string) (string, error) {
	edges, err := s.crm.Associations(ctx, s.types.Applications, applicationID, s.types.JobOrders)
	if err != nil {
		return "", notFound(err)
	}
	if len(edges) == 0 {
		return "", ErrNotFound
	}
	return string(edges[0].ToObjectID), nil
}

// JobOrdersForCompany lists a company's job orders through its association
// edges. When the company has no edges it falls back to a best-effort match
// of the company name against the job orders' denormalized company name
// property; that fallback can miss or over-include records.
func (s *Service) JobOrdersForCompany(ctx context.Context, companyID string, f JobOrderFilter) ([]models.JobOrder, error) {
	jobs, strategy, err := s.companyJobOrders(ctx, companyID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job orders resolved",
		slog.String("company_id", companyID),
		slog.String("strategy", strategy),
		slog.Int("count", len(jobs)))

	out := make([]models.JobOrder, 0, len(jobs))
	for _, j := range jobs {
		if f.match(j) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *Service) companyJobOrders(ctx context.Context, companyID string) ([]models.JobOrder, string, error) {
	if companyID == "" {
		return nil, "", invalid("company_id", "is required")
	}
	edges, err := s.crm.Associations(ctx, crm.ObjectCompanies, companyID, s.types.JobOrders)
	if err != nil {
		return nil, "", fmt.Errorf("list job order edges: %w", err)
	}

	if len(edges) > 0 {
		ids := make([]string, 0, len(edges))
		for _, e := range edges {
			ids = append(ids, string(e.ToObjectID))
		}
		records, err := s.crm.BatchRead(ctx, s.types.JobOrders, ids, mapper.JobOrderProperties)
		if err != nil {
			return nil, StrategyAssociations, fmt.Errorf("read job orders: %w", err)
		}
		byID := make(map[string]crm.Object, len(records))
		for _, r := range records {
			byID[r.ID] = r
		}
		jobs := make([]models.JobOrder, 0, len(ids))
		for _, id := range ids {
			if r, ok := byID[id]; ok {
				j := mapper.ToJobOrder(r)
				j.CompanyID = companyID
				jobs = append(jobs, j)
			}
		}
		return jobs, StrategyAssociations, nil
	}

	jobs, err := s.jobOrdersByCompanyName(ctx, companyID)
	return jobs, StrategyNameMatch, err
}

func (s *Service) jobOrdersByCompanyName(ctx context.Context, companyID string) ([]models.JobOrder, error) {
	company, err := s.crm.GetObject(ctx, crm.ObjectCompanies, companyID, []string{"name"})
	if err != nil {
		return nil, fmt.Errorf("read company: %w", notFound(err))
	}
	name := company.Properties.Get("name")
	if name == "" {
		return []models.JobOrder{}, nil
	}

	prop := s.cfg.CompanyNameProperty
	req := crm.SearchRequest{
		FilterGroups: []crm.FilterGroup{{Filters: []crm.Filter{{PropertyName: prop, Operator: "CONTAINS_TOKEN", Value: name}}}},
		Properties:   mapper.JobOrderProperties,
		Limit:        maxSearchResults,
	}
	records, err := s.crm.SearchAll(ctx, s.types.JobOrders, req, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search job orders by company name: %w", err)
	}

	want := strings.ToLower(name)
	jobs := make([]models.JobOrder, 0, len(records))
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.Properties[prop]), want) {
			continue
		}
		j := mapper.ToJobOrder(r)
		j.CompanyID = companyID
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// JobOrder returns one job order with its recommended candidate count.
func (s *Service) JobOrder(ctx context.Context, jobOrderID string) (*models.JobOrder, error) {
	o, err := s.crm.GetObject(ctx, s.types.JobOrders, jobOrderID, mapper.JobOrderProperties)
	if err != nil {
		return nil, fmt.Errorf("read job order: %w", notFound(err))
	}
	j := mapper.ToJobOrder(*o)
	if edges, err := s.crm.Associations(ctx, s.types.JobOrders, jobOrderID, s.types.Applications); err == nil {
		j.CandidateCount = countLabel(edges, s.labels.Recommended.Name)
	} else {
		s.logger.Warn("candidate count failed", slog.String("job_order_id", jobOrderID), slog.String("error", err.Error()))
	}
	return &j, nil
}

func countLabel(edges []crm.Association, label string) int {
	n := 0
	for _, e := range edges {
		if e.HasLabel(label) {
			n++
		}
	}
	return n
}

// DecisionOutcome reports what SetDecisionLabel did.
type DecisionOutcome struct {
	Label      string
	AlreadySet bool
	Replaced   string
}

// SetDecisionLabel makes label the only decision label on the edge between
// the job order and the application. A second call with the same label is a
// no-op reported as AlreadySet. Concurrent calls on one edge race at the CRM;
// callers that need ordering must serialize them.
func (s *Service) SetDecisionLabel(ctx context.Context, applicationID, jobOrderID, label string) (*DecisionOutcome, error) {
	target, other, err := s.decisionLabels(label)
	if err != nil {
		return nil, err
	}

	edges, err := s.crm.Associations(ctx, s.types.JobOrders, jobOrderID, s.types.Applications)
	if err != nil {
		return nil, fmt.Errorf("read application edges: %w", notFound(err))
	}
	var edge *crm.Association
	for i := range edges {
		if string(edges[i].ToObjectID) == applicationID {
			edge = &edges[i]
			break
		}
	}
	if edge == nil {
		return nil, ErrNotFound
	}

	out := &DecisionOutcome{Label: target.Name}
	if edge.HasLabel(target.Name) && !edge.HasLabel(other.Name) {
		out.AlreadySet = true
		return out, nil
	}
	if edge.HasLabel(other.Name) {
		out.Replaced = other.Name
	}

	switch s.strategy {
	case config.LabelStrategyArchive:
		err = s.archiveAndAdd(ctx, applicationID, jobOrderID, *edge, target, other)
	default:
		err = s.recreateEdge(ctx, applicationID, jobOrderID, *edge, target, other)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("decision label set",
		slog.String("job_order_id", jobOrderID),
		slog.String("application_id", applicationID),
		slog.String("label", target.Name),
		slog.String("replaced", out.Replaced),
		slog.String("strategy", s.strategy))
	return out, nil
}

// decisionLabels resolves a label name to (target, conflicting) labels.
func (s *Service) decisionLabels(label string) (config.Label, config.Label, error) {
	sel, rej := s.labels.Selected, s.labels.Rejected
	switch {
	case strings.EqualFold(label, sel.Name):
		return sel, rej, nil
	case strings.EqualFold(label, rej.Name):
		return rej, sel, nil
	}
	return config.Label{}, config.Label{}, invalid("label", fmt.Sprintf("must be %q or %q", sel.Name, rej.Name))
}

// recreateEdge deletes the edge and writes it back with every type except
// the decision labels, plus target.
func (s *Service) recreateEdge(ctx context.Context, applicationID, jobOrderID string, edge crm.Association, target, other config.Label) error {
	specs := make([]crm.AssociationSpec, 0, len(edge.AssociationTypes)+1)
	seen := map[crm.AssociationSpec]bool{}
	for _, t := range edge.AssociationTypes {
		if t.Label != "" && (strings.EqualFold(t.Label, target.Name) || strings.EqualFold(t.Label, other.Name)) {
			continue
		}
		spec := crm.AssociationSpec{Category: t.Category, TypeID: t.TypeID}
		if !seen[spec] {
			seen[spec] = true
			specs = append(specs, spec)
		}
	}
	specs = append(specs, crm.AssociationSpec{Category: crm.CategoryUserDefined, TypeID: target.TypeID})

	if err := s.crm.RemoveAssociation(ctx, s.types.JobOrders, jobOrderID, s.types.Applications, applicationID); err != nil {
		return fmt.Errorf("remove edge: %w", err)
	}
	if err := s.crm.Associate(ctx, s.types.JobOrders, jobOrderID, s.types.Applications, applicationID, specs); err != nil {
		s.logger.Error("edge removed but not restored",
			slog.String("job_order_id", jobOrderID),
			slog.String("application_id", applicationID),
			slog.Any("types", specs),
			slog.String("error", err.Error()))
		return fmt.Errorf("restore edge: %w", err)
	}
	return nil
}

// archiveAndAdd removes only the conflicting label and adds target.
func (s *Service) archiveAndAdd(ctx context.Context, applicationID, jobOrderID string, edge crm.Association, target, other config.Label) error {
	var stale []crm.AssociationSpec
	for _, t := range edge.AssociationTypes {
		if t.Label != "" && strings.EqualFold(t.Label, other.Name) {
			stale = append(stale, crm.AssociationSpec{Category: t.Category, TypeID: t.TypeID})
		}
	}
	if len(stale) > 0 {
		if err := s.crm.ArchiveLabels(ctx, s.types.JobOrders, jobOrderID, s.types.Applications, applicationID, stale); err != nil {
			return fmt.Errorf("archive label %s: %w", other.Name, err)
		}
	}
	spec := []crm.AssociationSpec{{Category: crm.CategoryUserDefined, TypeID: target.TypeID}}
	if err := s.crm.Associate(ctx, s.types.JobOrders, jobOrderID, s.types.Applications, applicationID, spec); err != nil {
		return fmt.Errorf("add label %s: %w", target.Name, err)
	}
	return nil
}
