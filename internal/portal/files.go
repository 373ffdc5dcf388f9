package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/garnizeh/clientportal/internal/mapper"
	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

// Upload is one file of a multipart upload.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// DocumentUpload is a document and its metadata.
type DocumentUpload struct {
	Upload
	Category    string
	Type        string
	Description string
}

// companyFilter selects records of one company, optionally in one category.
func companyFilter(companyID, category string) []crm.FilterGroup {
	filters := []crm.Filter{{PropertyName: "company_id", Operator: "EQ", Value: companyID}}
	if category != "" {
		filters = append(filters, crm.Filter{PropertyName: "category", Operator: "EQ", Value: category})
	}
	return []crm.FilterGroup{{Filters: filters}}
}

// UploadDocument stores a file in the CRM file manager and records it as a
// company document.
func (s *Service) UploadDocument(ctx context.Context, companyID string, u DocumentUpload) (*models.Document, error) {
	name := path.Base(strings.TrimSpace(u.Filename))
	if name == "" || name == "." || name == "/" {
		return nil, invalid("file", "a file name is required")
	}
	folder := strings.TrimRight(s.cfg.FilesFolder, "/") + "/" + companyID
	f, err := s.crm.UploadFile(ctx, folder, name, u.ContentType, u.Content)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	doc := models.Document{
		Name:        name,
		Category:    u.Category,
		Type:        u.Type,
		Description: u.Description,
		FileID:      f.ID,
		FileURL:     f.URL,
	}
	props := mapper.DocumentRecordProperties(doc, companyID, s.now())
	rec, err := s.crm.CreateObject(ctx, s.types.Documents, props)
	if err != nil {
		s.logger.Error("document record failed after upload",
			slog.String("company_id", companyID),
			slog.String("file_id", f.ID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("create document record: %w", err)
	}
	doc.ID = rec.ID
	doc.UploadDate = props["upload_date"]
	return &doc, nil
}

// Documents lists a company's documents, optionally of one category.
func (s *Service) Documents(ctx context.Context, companyID, category string) ([]models.Document, error) {
	records, err := s.crm.SearchAll(ctx, s.types.Documents, crm.SearchRequest{
		FilterGroups: companyFilter(companyID, category),
		Properties:   mapper.DocumentProperties,
		Limit:        maxSearchResults,
	}, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	out := make([]models.Document, 0, len(records))
	for _, r := range records {
		out = append(out, mapper.ToDocument(r))
	}
	return out, nil
}

// Provisions lists a company's provision files, optionally of one category.
func (s *Service) Provisions(ctx context.Context, companyID, category string) ([]models.Provision, error) {
	records, err := s.crm.SearchAll(ctx, s.types.Provisions, crm.SearchRequest{
		FilterGroups: companyFilter(companyID, category),
		Properties:   mapper.ProvisionProperties,
		Limit:        maxSearchResults,
	}, maxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search provisions: %w", err)
	}
	out := make([]models.Provision, 0, len(records))
	for _, r := range records {
		out = append(out, mapper.ToProvision(r))
	}
	return out, nil
}

// UploadProvisions stores a batch of provision files for one category. The
// per-category cap is checked against the existing records before any file
// is written, so an over-cap batch writes nothing. A failure mid-batch
// removes the blob that has no record and reports the error.
func (s *Service) UploadProvisions(ctx context.Context, actor Actor, category string, files []Upload) ([]models.Provision, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, invalid("category", "is required")
	}
	if len(files) == 0 {
		return nil, invalid("files", "at least one file is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("provision storage is not configured")
	}

	existing, err := s.Provisions(ctx, actor.CompanyID, category)
	if err != nil {
		return nil, err
	}
	if len(existing)+len(files) > s.maxProvisions {
		return nil, &CapacityError{Message: fmt.Sprintf(
			"category %q allows at most %d files (%d already uploaded)", category, s.maxProvisions, len(existing))}
	}

	prefix := path.Join(actor.CompanyID, category)
	out := make([]models.Provision, 0, len(files))
	for _, f := range files {
		name := path.Base(strings.TrimSpace(f.Filename))
		loc, err := s.store.Put(ctx, prefix, name, f.ContentType, f.Content)
		if err != nil {
			return out, fmt.Errorf("store %s: %w", name, err)
		}
		p := models.Provision{
			Filename: name,
			Category: category,
			FileSize: f.Size,
			MimeType: f.ContentType,
			Location: loc,
			Status:   "uploaded",
		}
		props := mapper.ProvisionRecordProperties(p, actor.CompanyID, actor.Email, s.now())
		rec, err := s.crm.CreateObject(ctx, s.types.Provisions, props)
		if err != nil {
			if derr := s.store.Delete(ctx, loc); derr != nil {
				s.logger.Warn("orphaned provision blob", slog.String("location", loc), slog.String("error", derr.Error()))
			}
			return out, fmt.Errorf("create provision record: %w", err)
		}
		p.ID = rec.ID
		p.UploadDate = props["upload_date"]
		out = append(out, p)
	}
	return out, nil
}
