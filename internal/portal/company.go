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

// CompanyProfile reads a company with its derived primary contact and active
// job count. Both derived fields are best effort.
func (s *Service) CompanyProfile(ctx context.Context, companyID string) (*models.Company, error) {
	o, err := s.crm.GetObject(ctx, crm.ObjectCompanies, companyID, mapper.CompanyProperties)
	if err != nil {
		return nil, fmt.Errorf("read company: %w", notFound(err))
	}
	c := mapper.ToCompany(*o)

	contacts, err := s.crm.Search(ctx, crm.ObjectContacts, crm.SearchRequest{
		FilterGroups: []crm.FilterGroup{crm.Eq("associatedcompanyid", companyID)},
		Properties:   mapper.ContactProperties,
		Limit:        1,
	})
	switch {
	case err != nil:
		s.logger.Warn("primary contact lookup failed", slog.String("company_id", companyID), slog.String("error", err.Error()))
	case len(contacts.Results) > 0:
		pc := mapper.ToPrimaryContact(contacts.Results[0])
		c.PrimaryContact = &pc
	}

	if jobs, _, err := s.companyJobOrders(ctx, companyID); err == nil {
		c.ActiveJobsCount = countActive(jobs)
	} else {
		s.logger.Warn("active job count failed", slog.String("company_id", companyID), slog.String("error", err.Error()))
	}
	return &c, nil
}

func countActive(jobs []models.JobOrder) int {
	n := 0
	for _, j := range jobs {
		switch strings.ToLower(j.Status) {
		case "active", "open":
			n++
		}
	}
	return n
}

// UpdateBusinessProfile writes the non-empty business profile fields.
func (s *Service) UpdateBusinessProfile(ctx context.Context, companyID string, bp models.BusinessProfile) (*models.ActionResult, error) {
	props := mapper.BusinessProfileProperties(bp)
	if len(props) == 0 {
		return nil, invalid("", "no business profile fields to update")
	}
	if _, err := s.crm.UpdateObject(ctx, crm.ObjectCompanies, companyID, props); err != nil {
		return nil, fmt.Errorf("update company: %w", notFound(err))
	}
	return &models.ActionResult{Success: true, Message: "Company profile updated"}, nil
}

// SubmitQuestionnaire stores the provision questionnaire on the company.
func (s *Service) SubmitQuestionnaire(ctx context.Context, companyID string, bp models.BusinessProfile) (*models.ActionResult, error) {
	if _, err := s.crm.UpdateObject(ctx, crm.ObjectCompanies, companyID, mapper.QuestionnaireProperties(bp, s.now())); err != nil {
		return nil, fmt.Errorf("update company: %w", notFound(err))
	}
	return &models.ActionResult{Success: true, Message: "Questionnaire answers saved successfully"}, nil
}

// ResolveIdentity maps an allow-listed user to CRM ids. Ids pinned on the
// allow-list entry win; otherwise the contact is found by email and the
// company comes from the contact's company property or association.
func (s *Service) ResolveIdentity(ctx context.Context, u models.AuthorizedUser) (*models.UserProfile, error) {
	p := &models.UserProfile{
		User:    models.UserSummary{ID: u.ContactID, Name: u.Name, Email: u.Email},
		Company: models.CompanySummary{ID: u.CompanyID, Name: u.Company},
	}
	if p.User.ID == "" || p.Company.ID == "" {
		res, err := s.crm.Search(ctx, crm.ObjectContacts, crm.SearchRequest{
			FilterGroups: []crm.FilterGroup{crm.Eq("email", u.Email)},
			Properties:   []string{"firstname", "lastname", "email", "associatedcompanyid"},
			Limit:        1,
		})
		if err != nil {
			return nil, fmt.Errorf("find contact: %w", err)
		}
		if len(res.Results) == 0 {
			return nil, ErrNoCRMIdentity
		}
		contact := res.Results[0]
		if p.User.ID == "" {
			p.User.ID = contact.ID
		}
		if p.User.Name == "" {
			p.User.Name = strings.TrimSpace(contact.Properties.Get("firstname") + " " + contact.Properties.Get("lastname"))
		}
		if p.Company.ID == "" {
			p.Company.ID = contact.Properties.Get("associatedcompanyid")
		}
		if p.Company.ID == "" {
			edges, err := s.crm.Associations(ctx, crm.ObjectContacts, contact.ID, crm.ObjectCompanies)
			if err != nil {
				return nil, fmt.Errorf("find contact company: %w", err)
			}
			if len(edges) > 0 {
				p.Company.ID = string(edges[0].ToObjectID)
			}
		}
		if p.Company.ID == "" {
			return nil, ErrNoCRMIdentity
		}
	}
	if p.Company.Name == "" {
		company, err := s.crm.GetObject(ctx, crm.ObjectCompanies, p.Company.ID, []string{"name"})
		if err != nil {
			return nil, fmt.Errorf("read company: %w", err)
		}
		p.Company.Name = company.Properties.Get("name")
	}
	return p, nil
}

// UserProfile returns the signed-in contact and their company.
func (s *Service) UserProfile(ctx context.Context, contactID, companyID string) (*models.UserProfile, error) {
	contact, err := s.crm.GetObject(ctx, crm.ObjectContacts, contactID, []string{"firstname", "lastname", "email"})
	if err != nil {
		return nil, fmt.Errorf("read contact: %w", notFound(err))
	}
	company, err := s.crm.GetObject(ctx, crm.ObjectCompanies, companyID, []string{"name"})
	if err != nil {
		return nil, fmt.Errorf("read company: %w", notFound(err))
	}
	pc := mapper.ToPrimaryContact(*contact)
	return &models.UserProfile{
		User:    models.UserSummary{ID: contact.ID, Name: pc.Name, Email: pc.Email},
		Company: models.CompanySummary{ID: company.ID, Name: company.Properties.Get("name")},
	}, nil
}
