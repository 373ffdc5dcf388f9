// Package portal implements the client portal's domain operations on top of
// the CRM: it resolves association edges into domain groupings (candidates
// for a job order, job orders for a company), enforces the single decision
// label per application edge, and composes the record mapper into the
// responses served by the api package.
package portal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/pkg/crm"
)

// CRM is the subset of the CRM gateway the service depends on.
// *crm.Client satisfies it.
type CRM interface {
	GetObject(ctx context.Context, objectType, id string, props []string) (*crm.Object, error)
	BatchRead(ctx context.Context, objectType string, ids []string, props []string) ([]crm.Object, error)
	Search(ctx context.Context, objectType string, req crm.SearchRequest) (*crm.SearchResult, error)
	SearchAll(ctx context.Context, objectType string, req crm.SearchRequest, max int) ([]crm.Object, error)
	CreateObject(ctx context.Context, objectType string, props map[string]string) (*crm.Object, error)
	UpdateObject(ctx context.Context, objectType, id string, props map[string]string) (*crm.Object, error)
	Associations(ctx context.Context, fromType, fromID, toType string) ([]crm.Association, error)
	Associate(ctx context.Context, fromType, fromID, toType, toID string, specs []crm.AssociationSpec) error
	RemoveAssociation(ctx context.Context, fromType, fromID, toType, toID string) error
	ArchiveLabels(ctx context.Context, fromType, fromID, toType, toID string, specs []crm.AssociationSpec) error
	UploadFile(ctx context.Context, folderPath, name, contentType string, content io.Reader) (*crm.File, error)
	EnrollInWorkflow(ctx context.Context, workflowID, objectType, objectID string) error
}

var _ CRM = (*crm.Client)(nil)

// BlobStore persists provision files outside the CRM. Put returns the
// location recorded on the provision record.
type BlobStore interface {
	Put(ctx context.Context, prefix, filename, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// Options configures a Service. CRM is required; everything else has a
// usable default.
type Options struct {
	CRM                      config.CRMConfig
	MaxProvisionsPerCategory int
	Store                    BlobStore
	Logger                   *slog.Logger
	Now                      func() time.Time
}

// Service is safe for concurrent use. It keeps no per-request state.
type Service struct {
	crm      CRM
	types    config.ObjectTypes
	labels   config.Labels
	strategy string
	cfg      config.CRMConfig

	maxProvisions int
	store         BlobStore
	logger        *slog.Logger
	now           func() time.Time
}

// maxSearchResults bounds every unpaged listing.
const maxSearchResults = 100

func New(client CRM, opts Options) *Service {
	s := &Service{
		crm:           client,
		types:         opts.CRM.Objects,
		labels:        opts.CRM.Labels,
		strategy:      opts.CRM.LabelStrategy,
		cfg:           opts.CRM,
		maxProvisions: opts.MaxProvisionsPerCategory,
		store:         opts.Store,
		logger:        opts.Logger,
		now:           opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.strategy == "" {
		s.strategy = config.LabelStrategyRecreate
	}
	if s.maxProvisions <= 0 {
		s.maxProvisions = 5
	}
	if s.cfg.FetchConcurrency <= 0 {
		s.cfg.FetchConcurrency = 8
	}
	if s.cfg.CompanyNameProperty == "" {
		s.cfg.CompanyNameProperty = "company_name"
	}
	return s
}

// notFound turns a CRM 404 on a direct read into ErrNotFound.
func notFound(err error) error {
	if crm.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
