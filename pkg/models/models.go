package models

// Domain models exposed by the portal API. CRM records are mapped into these
// shapes by internal/mapper; AuthorizedUser matches the allow-list table in
// db/migrations.

// AuthorizedUser is one allow-list entry. Login is only possible for active
// entries, independent of whether the email exists in the CRM.
type AuthorizedUser struct {
	Email        string `json:"email" csv:"email"`
	Name         string `json:"name" csv:"name"`
	Company      string `json:"company" csv:"company"`
	CompanyID    string `json:"company_id,omitempty" csv:"company_id"`
	ContactID    string `json:"contact_id,omitempty" csv:"contact_id"`
	PasswordHash string `json:"-" csv:"-"`
	Active       bool   `json:"active" csv:"active"`
	Created      int64  `json:"created" csv:"-"`
	Updated      int64  `json:"updated" csv:"-"`
	LastLogin    int64  `json:"last_login,omitempty" csv:"-"`
}

type PrimaryContact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	JobTitle string `json:"job_title"`
}

// BusinessProfile is the writable questionnaire subset of a company.
type BusinessProfile struct {
	BusinessSize        string `json:"business_size"`
	AnnualTurnover      string `json:"annual_turnover"`
	YearsInBusiness     string `json:"years_in_business"`
	IndustrySector      string `json:"industry_sector"`
	PreviousSponsorship string `json:"previous_sponsorship"`
	AdditionalComments  string `json:"additional_comments"`
}

type Company struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Domain              string          `json:"domain"`
	Industry            string          `json:"industry"`
	Description         string          `json:"description"`
	Website             string          `json:"website"`
	Phone               string          `json:"phone"`
	FoundedYear         string          `json:"founded_year"`
	CompanySize         string          `json:"company_size"`
	AnnualRevenue       string          `json:"annual_revenue"`
	CompanyType         string          `json:"company_type"`
	Address             string          `json:"address"`
	City                string          `json:"city"`
	State               string          `json:"state"`
	Zip                 string          `json:"zip"`
	Country             string          `json:"country"`
	CreatedDate         string          `json:"created_date"`
	LifecycleStage      string          `json:"lifecycle_stage"`
	LastActivityDate    string          `json:"last_activity_date"`
	IsPublic            string          `json:"is_public"`
	CloseDate           string          `json:"close_date"`
	RecentDealAmount    string          `json:"recent_deal_amount"`
	RecentDealCloseDate string          `json:"recent_deal_close_date"`
	TotalPlacements     string          `json:"total_placements"`
	OwnerID             string          `json:"owner_id"`
	RecordSource        string          `json:"record_source"`
	Timezone            string          `json:"timezone"`
	FacebookPage        string          `json:"facebook_company_page"`
	GooglePlusPage      string          `json:"googleplus_page"`
	LinkedInPage        string          `json:"linkedin_company_page"`
	TwitterHandle       string          `json:"twitter_handle"`
	BusinessProfile     BusinessProfile `json:"business_profile"`
	ActiveJobsCount     int             `json:"active_jobs_count"`
	PrimaryContact      *PrimaryContact `json:"primary_contact"`
}

type JobOrder struct {
	ID                    string   `json:"id"`
	CompanyID             string   `json:"company_id,omitempty"`
	CompanyName           string   `json:"company_name,omitempty"`
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	PositionType          string   `json:"position_type"`
	Location              string   `json:"location"`
	Status                string   `json:"status"`
	CreatedDate           string   `json:"created_date"`
	Deadline              string   `json:"deadline"`
	EssentialRequirements []string `json:"essential_requirements"`
	PreferredRequirements []string `json:"preferred_requirements"`
	SalaryRange           string   `json:"salary_range"`
	Benefits              string   `json:"benefits"`
	CandidateCount        int      `json:"candidate_count"`
}

// Application status classes.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusIssues   = "Issues"
)

// Candidate is an application record, merged with its linked contact. ID is
// the application id, never the contact id.
type Candidate struct {
	ID                  string   `json:"id"`
	ContactID           string   `json:"contact_id,omitempty"`
	JobOrderID          string   `json:"job_order_id,omitempty"`
	Name                string   `json:"name"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	Email               string   `json:"email"`
	Phone               string   `json:"phone"`
	Age                 string   `json:"age"`
	Location            string   `json:"location"`
	ProfessionalSummary string   `json:"professional_summary"`
	Skills              []string `json:"skills"`
	Languages           []string `json:"languages"`
	Education           []string `json:"education"`
	WorkExperience      string   `json:"work_experience"`
	PipelineStage       string   `json:"pipeline_stage"`
	ApplicationStatus   string   `json:"application_status"`
	Decision            string   `json:"decision,omitempty"`
	Labels              []string `json:"labels,omitempty"`
	ApplicationDate     string   `json:"application_date"`
}

// Scorecard is a client assessment of a candidate, one per
// (candidate, company).
type Scorecard struct {
	ID                 string `json:"id,omitempty"`
	CandidateID        string `json:"candidate_id"`
	CompanyID          string `json:"company_id"`
	AssessedBy         string `json:"assessed_by"`
	TechnicalSkills    int    `json:"technical_skills"`
	Experience         int    `json:"experience"`
	EnglishProficiency int    `json:"english_proficiency"`
	CulturalFit        int    `json:"cultural_fit"`
	ProblemSolving     int    `json:"problem_solving"`
	Teamwork           int    `json:"teamwork"`
	OverallRating      int    `json:"overall_rating"`
	FinalDecision      string `json:"final_decision"`
	AssessmentNotes    string `json:"assessment_notes"`
	Concerns           string `json:"concerns"`
	AssessmentDate     string `json:"assessment_date"`
}

type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Description string `json:"description"`
	UploadDate  string `json:"upload_date"`
	FileID      string `json:"file_id,omitempty"`
	FileURL     string `json:"file_url"`
}

type Provision struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Category   string `json:"category"`
	UploadDate string `json:"upload_date"`
	FileSize   int64  `json:"file_size"`
	MimeType   string `json:"mime_type"`
	Location   string `json:"location,omitempty"`
	Status     string `json:"status"`
}

type SupportTicket struct {
	ID           string `json:"id,omitempty"`
	Subject      string `json:"subject"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	Category     string `json:"category"`
	ContactEmail string `json:"contact_email,omitempty"`
}
