package portal_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/clientportal/internal/config"
	"github.com/garnizeh/clientportal/internal/crmtest"
	"github.com/garnizeh/clientportal/internal/portal"
	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

const (
	jobType = "2-100"
	appType = "2-200"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func crmConfig() config.CRMConfig {
	return config.CRMConfig{
		Objects: config.ObjectTypes{
			JobOrders:    jobType,
			Applications: appType,
			Candidates:   "candidates",
			Documents:    "documents",
			Provisions:   "provisions",
			Assessments:  "assessments",
			Activities:   "activities",
			Tickets:      "tickets",
		},
		Labels: config.Labels{
			Recommended: config.Label{Name: "Recommended", TypeID: 10},
			Selected:    config.Label{Name: "Selected", TypeID: 11},
			Rejected:    config.Label{Name: "Rejected", TypeID: 12},
		},
		Workflows:           config.Workflows{Approve: "wf-approve", Reject: "wf-reject"},
		CompanyNameProperty: "company_name",
		FilesFolder:         "/client-portal",
		FetchConcurrency:    4,
	}
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (m *memStore) Put(ctx context.Context, prefix, filename, contentType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	loc := prefix + "/" + filename
	m.objects[loc] = b
	return loc, nil
}

func (m *memStore) Delete(ctx context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, location)
	m.deleted = append(m.deleted, location)
	return nil
}

type fixture struct {
	fake  *crmtest.Server
	svc   *portal.Service
	store *memStore
}

func newFixture(t *testing.T, mutate ...func(*config.CRMConfig)) *fixture {
	t.Helper()
	fake := crmtest.New(t)
	fake.DefineLabel(10, "Recommended")
	fake.DefineLabel(11, "Selected")
	fake.DefineLabel(12, "Rejected")

	cfg := crmConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	store := &memStore{}
	svc := portal.New(fake.Client(t), portal.Options{
		CRM:    cfg,
		Store:  store,
		Logger: slog.New(slog.DiscardHandler),
		Now:    func() time.Time { return fixedNow },
	})
	return &fixture{fake: fake, svc: svc, store: store}
}

var actor = portal.Actor{UserID: "501", CompanyID: "900", Email: "hr@acme.test"}

// seedJob creates job order 100 with three applications: 301 recommended
// and linked to contact 401, 302 unlabeled, 303 recommended.
func (f *fixture) seedJob() {
	f.fake.AddObject(jobType, "100", crm.Properties{"job_order_title": "Welder", "employment_status": "Active"})
	f.fake.AddObject(appType, "301", crm.Properties{"application_name": "Jane Doe - Welder", "hs_pipeline_stage": "screening"})
	f.fake.AddObject(appType, "302", crm.Properties{"application_name": "Hidden Person - Welder"})
	f.fake.AddObject(appType, "303", crm.Properties{"application_name": "Ravi Kumar - Welder", "application_status": "on hold"})
	f.fake.AddObject(crm.ObjectContacts, "401", crm.Properties{"firstname": "Jane", "lastname": "Doe", "email": "jane@example.com"})

	f.fake.Link(jobType, "100", appType, "301", "Recommended")
	f.fake.Link(jobType, "100", appType, "302")
	f.fake.Link(jobType, "100", appType, "303", "Recommended")
	f.fake.Link(appType, "301", crm.ObjectContacts, "401")
}

func candidateIDs(cs []models.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestCandidatesForJobOrder_OnlyRecommended(t *testing.T) {
	f := newFixture(t)
	f.seedJob()

	got, err := f.svc.CandidatesForJobOrder(context.Background(), "100", portal.CandidateFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"301", "303"}, candidateIDs(got))

	jane := got[0]
	assert.Equal(t, "Jane Doe", jane.Name)
	assert.Equal(t, "jane@example.com", jane.Email)
	assert.Equal(t, "401", jane.ContactID)
	assert.Equal(t, "100", jane.JobOrderID)
	assert.Equal(t, models.StatusActive, jane.ApplicationStatus)
	assert.Empty(t, jane.Decision)

	assert.Equal(t, models.StatusIssues, got[1].ApplicationStatus)
	assert.Empty(t, f.fake.Writes())
}

func TestCandidatesForJobOrder_SingleRecommendedOfThree(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject(appType, "1", nil)
	f.fake.AddObject(appType, "2", nil)
	f.fake.AddObject(appType, "3", nil)
	f.fake.Link(jobType, "7", appType, "1")
	f.fake.Link(jobType, "7", appType, "2", "Recommended")
	f.fake.Link(jobType, "7", appType, "3", "Selected")

	got, err := f.svc.CandidatesForJobOrder(context.Background(), "7", portal.CandidateFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "Applicant 2", got[0].Name)
}

func TestCandidatesForJobOrder_SkipsFailedEdges(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	f.fake.FailOn("GET", "/crm/v3/objects/"+appType+"/301", 500, 0)
	f.fake.FailOn("GET", "/crm/v4/objects/"+appType+"/303/associations/contacts", 503, 0)

	got, err := f.svc.CandidatesForJobOrder(context.Background(), "100", portal.CandidateFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"303"}, candidateIDs(got))
	assert.Equal(t, "Ravi Kumar", got[0].Name)
}

func TestCandidatesForJobOrder_Filters(t *testing.T) {
	f := newFixture(t)
	f.seedJob()

	got, err := f.svc.CandidatesForJobOrder(context.Background(), "100", portal.CandidateFilter{Search: "ravi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"303"}, candidateIDs(got))

	got, err = f.svc.CandidatesForJobOrder(context.Background(), "100", portal.CandidateFilter{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, []string{"301"}, candidateIDs(got))
}

func TestCandidatesForJobOrder_EdgeListFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.FailOn("GET", "/crm/v4/objects/"+jobType+"/100/associations/"+appType, 502, 0)

	_, err := f.svc.CandidatesForJobOrder(context.Background(), "100", portal.CandidateFilter{})
	var ce *crm.Error
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Retryable())
}

func TestSetDecisionLabel_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	ctx := context.Background()

	first, err := f.svc.SetDecisionLabel(ctx, "301", "100", "Selected")
	require.NoError(t, err)
	assert.False(t, first.AlreadySet)
	assert.NotEmpty(t, f.fake.Writes())

	f.fake.Reset()
	second, err := f.svc.SetDecisionLabel(ctx, "301", "100", "selected")
	require.NoError(t, err)
	assert.True(t, second.AlreadySet)
	assert.Empty(t, f.fake.Writes(), "second call must not write")
	assert.Equal(t, []string{"Recommended", "Selected"}, f.fake.Labels(jobType, "100", appType, "301"))
}

func TestSetDecisionLabel_SingleTerminalLabel(t *testing.T) {
	for _, strategy := range []string{config.LabelStrategyRecreate, config.LabelStrategyArchive} {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, func(c *config.CRMConfig) { c.LabelStrategy = strategy })
			f.seedJob()
			ctx := context.Background()

			_, err := f.svc.SetDecisionLabel(ctx, "301", "100", "Selected")
			require.NoError(t, err)
			out, err := f.svc.SetDecisionLabel(ctx, "301", "100", "Rejected")
			require.NoError(t, err)
			assert.Equal(t, "Selected", out.Replaced)

			want := []string{"Recommended", "Rejected"}
			if diff := cmp.Diff(want, f.fake.Labels(jobType, "100", appType, "301")); diff != "" {
				t.Errorf("labels mismatch (-want +got):\n%s", diff)
			}
			// the other edges are untouched
			assert.Equal(t, []string{"Recommended"}, f.fake.Labels(jobType, "100", appType, "303"))
		})
	}
}

func TestSetDecisionLabel_RecreateWritesDeleteThenPut(t *testing.T) {
	f := newFixture(t)
	f.seedJob()

	_, err := f.svc.SetDecisionLabel(context.Background(), "301", "100", "Rejected")
	require.NoError(t, err)

	var methods []string
	for _, w := range f.fake.Writes() {
		methods = append(methods, w.Method)
	}
	assert.Equal(t, []string{"DELETE", "PUT"}, methods)
}

func TestSetDecisionLabel_Errors(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	ctx := context.Background()

	_, err := f.svc.SetDecisionLabel(ctx, "999", "100", "Selected")
	assert.ErrorIs(t, err, portal.ErrNotFound)

	_, err = f.svc.SetDecisionLabel(ctx, "301", "100", "Recommended")
	var ve *portal.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Empty(t, f.fake.Writes())
}

func TestDecide_SideEffectFailuresAreWarnings(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	f.fake.FailOn("POST", "/automation/v3/workflows/wf-approve/enrollments", 500, 0)

	res, err := f.svc.Decide(context.Background(), actor, "301", "100", true, "", "great fit")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Selected", res.Label)
	assert.Equal(t, []string{"workflow enrollment failed"}, res.Warnings)

	app, _ := f.fake.Object(appType, "301")
	assert.Equal(t, "Selected", app.Properties["application_status"])
	assert.Equal(t, "Approved via Client Portal", app.Properties["approval_reason"])
	assert.Equal(t, "2026-05-04T09:30:00Z", app.Properties["approval_date"])

	activities := f.fake.Objects("activities")
	require.Len(t, activities, 1)
	assert.Equal(t, "candidate_approved", activities[0].Properties["type"])
}

func TestDecide_ResolvesJobOrderAndRepeats(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	ctx := context.Background()

	res, err := f.svc.Act(ctx, actor, "303", portal.CandidateAction{ActionType: "reject", Reason: "no visa"})
	require.NoError(t, err)
	assert.Equal(t, "100", res.JobOrderID)
	assert.Empty(t, res.Warnings)

	again, err := f.svc.Act(ctx, actor, "303", portal.CandidateAction{ActionType: "reject"})
	require.NoError(t, err)
	assert.True(t, again.AlreadySet)
	assert.Len(t, f.fake.Objects("activities"), 1, "repeat does not record another activity")
}

func TestDecide_UnknownEdgeLeavesApplicationUntouched(t *testing.T) {
	f := newFixture(t)
	f.seedJob()

	_, err := f.svc.Decide(context.Background(), actor, "301", "555", true, "good", "")
	require.ErrorIs(t, err, portal.ErrNotFound)
	assert.Empty(t, f.fake.Writes())

	app, _ := f.fake.Object(appType, "301")
	assert.Empty(t, app.Properties["application_status"])
	assert.Empty(t, app.Properties["approval_date"])
}

func TestDecide_LabelFailureWritesNoProperties(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	f.fake.FailOn("DELETE", "/crm/v4/objects/2-100/100/associations/2-200/301", 503, 0)

	_, err := f.svc.Decide(context.Background(), actor, "301", "100", true, "good", "")
	require.Error(t, err)

	for _, r := range f.fake.Requests() {
		assert.NotEqual(t, "PATCH", r.Method, "application written after a failed label change")
	}
	app, _ := f.fake.Object(appType, "301")
	assert.Empty(t, app.Properties["application_status"])
}

func TestDecide_RepeatKeepsOriginalDecision(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, actor, "301", "100", true, "strong welder", "")
	require.NoError(t, err)
	f.fake.Reset()

	again, err := f.svc.Decide(ctx, actor, "301", "100", true, "second click", "")
	require.NoError(t, err)
	assert.True(t, again.AlreadySet)
	assert.Empty(t, f.fake.Writes())

	app, _ := f.fake.Object(appType, "301")
	assert.Equal(t, "strong welder", app.Properties["approval_reason"])
}

func TestDecide_RepeatRepairsStaleProperties(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject(jobType, "100", crm.Properties{"job_order_title": "Welder"})
	f.fake.AddObject(appType, "301", crm.Properties{"application_status": "pending"})
	f.fake.Link(jobType, "100", appType, "301", "Selected")

	res, err := f.svc.Decide(context.Background(), actor, "301", "100", true, "", "")
	require.NoError(t, err)
	assert.True(t, res.AlreadySet)

	writes := f.fake.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "PATCH", writes[0].Method)
	app, _ := f.fake.Object(appType, "301")
	assert.Equal(t, "Selected", app.Properties["application_status"])
}

func TestAct_Validation(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject(appType, "55", nil)
	ctx := context.Background()

	_, err := f.svc.Act(ctx, actor, "55", portal.CandidateAction{ActionType: "promote"})
	var ve *portal.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "actionType", ve.Field)

	_, err = f.svc.Act(ctx, actor, "55", portal.CandidateAction{ActionType: "approve"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "jobOrderId", ve.Field)

	_, err = f.svc.Act(ctx, actor, "55", portal.CandidateAction{ActionType: "reserve"})
	require.ErrorAs(t, err, &ve)
}

func TestReserve(t *testing.T) {
	f := newFixture(t)
	f.seedJob()

	res, err := f.svc.Act(context.Background(), actor, "301", portal.CandidateAction{
		ActionType: "reserve", Reason: "second interview", InterviewDate: "2026-06-01",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	app, _ := f.fake.Object(appType, "301")
	assert.Equal(t, "reserved", app.Properties["lifecycle_stage"])
	assert.Equal(t, "2026-06-01", app.Properties["interview_scheduled_date"])
}

func TestJobOrdersForCompany_Associations(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject(jobType, "100", crm.Properties{"job_order_title": "Welder", "employment_status": "Active"})
	f.fake.AddObject(jobType, "101", crm.Properties{"job_order_title": "Nurse", "employment_status": "Closed"})
	f.fake.Link(crm.ObjectCompanies, "900", jobType, "101")
	f.fake.Link(crm.ObjectCompanies, "900", jobType, "100")

	got, err := f.svc.JobOrdersForCompany(context.Background(), "900", portal.JobOrderFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "101", got[0].ID)
	assert.Equal(t, "900", got[0].CompanyID)

	active, err := f.svc.JobOrdersForCompany(context.Background(), "900", portal.JobOrderFilter{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Welder", active[0].Title)
}

func TestJobOrdersForCompany_NameMatchFallback(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject(crm.ObjectCompanies, "900", crm.Properties{"name": "Acme"})
	f.fake.AddObject(jobType, "100", crm.Properties{"job_order_title": "Welder", "company_name": "ACME Pty Ltd"})
	f.fake.AddObject(jobType, "101", crm.Properties{"job_order_title": "Chef", "company_name": "Other Co"})

	got, err := f.svc.JobOrdersForCompany(context.Background(), "900", portal.JobOrderFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100", got[0].ID)
}

func TestJobOrder_CountsRecommended(t *testing.T) {
	f := newFixture(t)
	f.seedJob()

	j, err := f.svc.JobOrder(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 2, j.CandidateCount)

	_, err = f.svc.JobOrder(context.Background(), "404")
	assert.ErrorIs(t, err, portal.ErrNotFound)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	f.fake.Link(crm.ObjectCompanies, "900", jobType, "100")
	_, err := f.svc.SetDecisionLabel(context.Background(), "301", "100", "Selected")
	require.NoError(t, err)

	stats, err := f.svc.DashboardStats(context.Background(), "900")
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{ActiveJobs: 1, AvailableCandidates: 2, PendingReviews: 1, SelectionsMade: 1}, *stats)
}

func TestSaveScorecard_Upsert(t *testing.T) {
	f := newFixture(t)
	f.seedJob()
	ctx := context.Background()

	first, err := f.svc.SaveScorecard(ctx, actor, models.Scorecard{CandidateID: "301", TechnicalSkills: 4, OverallRating: 4})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "hr@acme.test", first.Scorecard.AssessedBy)

	second, err := f.svc.SaveScorecard(ctx, actor, models.Scorecard{CandidateID: "301", OverallRating: 5, FinalDecision: "approve"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Scorecard.ID, second.Scorecard.ID)
	require.NotNil(t, second.Decision)
	assert.Equal(t, "Selected", second.Decision.Label)

	require.Len(t, f.fake.Objects("assessments"), 1)
	sc, err := f.svc.Scorecard(ctx, "301", "900")
	require.NoError(t, err)
	assert.Equal(t, 5, sc.OverallRating)

	_, err = f.svc.Scorecard(ctx, "302", "900")
	assert.ErrorIs(t, err, portal.ErrNotFound)
}

func TestSaveScorecard_DecisionFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject(appType, "77", nil)

	res, err := f.svc.SaveScorecard(context.Background(), actor, models.Scorecard{CandidateID: "77", FinalDecision: "reject"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"final decision could not be applied"}, res.Warnings)
}

func upload(name, body string) portal.Upload {
	return portal.Upload{Filename: name, ContentType: "application/pdf", Size: int64(len(body)), Content: strings.NewReader(body)}
}

func TestUploadProvisions_CapRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.fake.AddObject("provisions", "p"+string(rune('0'+i)), crm.Properties{"company_id": "900", "category": "insurance"})
	}
	f.fake.Reset()

	_, err := f.svc.UploadProvisions(context.Background(), actor, "insurance", []portal.Upload{upload("a.pdf", "a"), upload("b.pdf", "b")})
	var ce *portal.CapacityError
	require.ErrorAs(t, err, &ce)
	assert.Empty(t, f.store.objects)
	assert.Empty(t, f.fake.Writes())

	got, err := f.svc.UploadProvisions(context.Background(), actor, "insurance", []portal.Upload{upload("a.pdf", "a")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "900/insurance/a.pdf", got[0].Location)
	assert.Equal(t, int64(1), got[0].FileSize)
}

func TestUploadProvisions_RecordFailureRemovesBlob(t *testing.T) {
	f := newFixture(t)
	f.fake.FailOn("POST", "/crm/v3/objects/provisions", 500, 1)

	_, err := f.svc.UploadProvisions(context.Background(), actor, "policies", []portal.Upload{upload("x.pdf", "x")})
	require.Error(t, err)
	assert.Equal(t, []string{"900/policies/x.pdf"}, f.store.deleted)
	assert.Empty(t, f.store.objects)
}

func TestUploadDocument(t *testing.T) {
	f := newFixture(t)

	doc, err := f.svc.UploadDocument(context.Background(), "900", portal.DocumentUpload{
		Upload:   portal.Upload{Filename: "../contract.pdf", ContentType: "application/pdf", Content: bytes.NewReader([]byte("%PDF"))},
		Category: "contracts",
	})
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", doc.Name)
	assert.NotEmpty(t, doc.FileID)

	docs, err := f.svc.Documents(context.Background(), "900", "contracts")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
	assert.Equal(t, doc.FileURL, docs[0].FileURL)
}

func TestResolveIdentity(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject(crm.ObjectContacts, "501", crm.Properties{"email": "hr@acme.test", "firstname": "Hana", "lastname": "Reyes"})
	f.fake.AddObject(crm.ObjectCompanies, "900", crm.Properties{"name": "Acme"})
	f.fake.Link(crm.ObjectContacts, "501", crm.ObjectCompanies, "900")

	p, err := f.svc.ResolveIdentity(context.Background(), models.AuthorizedUser{Email: "hr@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, models.UserProfile{
		User:    models.UserSummary{ID: "501", Name: "Hana Reyes", Email: "hr@acme.test"},
		Company: models.CompanySummary{ID: "900", Name: "Acme"},
	}, *p)

	_, err = f.svc.ResolveIdentity(context.Background(), models.AuthorizedUser{Email: "nobody@acme.test"})
	assert.ErrorIs(t, err, portal.ErrNoCRMIdentity)

	pinned, err := f.svc.ResolveIdentity(context.Background(), models.AuthorizedUser{Email: "x@y.z", ContactID: "1", CompanyID: "2", Company: "Pinned"})
	require.NoError(t, err)
	assert.Equal(t, "2", pinned.Company.ID)
}

func TestCompanyProfile(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject(crm.ObjectCompanies, "900", crm.Properties{"name": "Acme", "business_size": "11-50"})
	f.fake.AddObject(crm.ObjectContacts, "501", crm.Properties{"firstname": "Hana", "associatedcompanyid": "900", "jobtitle": "HR"})
	f.fake.AddObject(jobType, "100", crm.Properties{"employment_status": "Active"})
	f.fake.Link(crm.ObjectCompanies, "900", jobType, "100")

	c, err := f.svc.CompanyProfile(context.Background(), "900")
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)
	require.NotNil(t, c.PrimaryContact)
	assert.Equal(t, "HR", c.PrimaryContact.JobTitle)
	assert.Equal(t, 1, c.ActiveJobsCount)

	_, err = f.svc.CompanyProfile(context.Background(), "404")
	assert.True(t, errors.Is(err, portal.ErrNotFound))

	_, err = f.svc.UpdateBusinessProfile(context.Background(), "900", models.BusinessProfile{IndustrySector: "Construction"})
	require.NoError(t, err)
	got, _ := f.fake.Object(crm.ObjectCompanies, "900")
	assert.Equal(t, "Construction", got.Properties["industry_sector"])
	assert.Equal(t, "11-50", got.Properties["business_size"])
}

func TestPipeline(t *testing.T) {
	f := newFixture(t)
	f.fake.AddObject("candidates", "c1", crm.Properties{"company_id": "900", "lifecycle_stage": "selected", "firstname": "A"})
	f.fake.AddObject("candidates", "c2", crm.Properties{"company_id": "900", "lifecycle_stage": "visa_processing", "pipeline_stage": "medical_examination"})
	f.fake.AddObject("candidates", "c3", crm.Properties{"company_id": "901", "lifecycle_stage": "deployed"})

	p, err := f.svc.PostSelectionPipeline(context.Background(), "900")
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalCount)
	assert.Equal(t, models.PipelineStats{Selected: 1, VisaProcessing: 1}, p.Stats)
	assert.Equal(t, "Medical Examination", p.Candidates[1].PipelineStage)

	cp, err := f.svc.CandidatePipeline(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "completed", cp.Steps[2].Status)

	_, err = f.svc.CandidatePipeline(context.Background(), "nope")
	assert.ErrorIs(t, err, portal.ErrNotFound)
}

func TestSubmitTicket(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitTicket(context.Background(), actor, models.SupportTicket{Subject: "Help"})
	var ve *portal.ValidationError
	require.ErrorAs(t, err, &ve)

	tk, err := f.svc.SubmitTicket(context.Background(), actor, models.SupportTicket{Subject: "Help", Description: "login loop"})
	require.NoError(t, err)
	assert.NotEmpty(t, tk.ID)
	rec, _ := f.fake.Object("tickets", tk.ID)
	assert.Equal(t, "MEDIUM", rec.Properties["hs_ticket_priority"])
	assert.Equal(t, "hr@acme.test", rec.Properties["contact_email"])
	assert.Equal(t, "900", rec.Properties["company_id"])
}
