// Package mapper translates CRM property bags into portal domain shapes and
// back. Every function is pure and total: a missing property yields the zero
// value of its field (empty string, empty list, 0), never an error, and the
// same input always maps to the same output.
package mapper

import (
	"math"
	"strconv"
	"strings"

	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

// Delimiters of list-valued properties.
const (
	listDelims        = ",;"
	requirementDelims = "\n"
)

// Properties requested from the CRM for each object kind.
var (
	CompanyProperties = []string{
		"name", "domain", "industry", "about_us", "description", "website", "phone", "founded_year",
		"numberofemployees", "annualrevenue", "type", "address", "city", "state", "zip", "country",
		"createdate", "lifecyclestage", "hs_lastmodifieddate", "is_public", "closedate",
		"recent_deal_amount", "recent_deal_close_date", "total_placements", "hubspot_owner_id",
		"hs_created_source", "timezone", "facebook_company_page", "googleplus_page",
		"linkedin_company_page", "twitterhandle",
		"business_size", "annual_turnover", "years_in_business", "industry_sector",
		"previous_sponsorship", "additional_comments",
	}
	ContactProperties = []string{
		"firstname", "lastname", "email", "phone", "jobtitle", "associatedcompanyid", "age", "location",
		"professional_summary", "skills", "languages", "education", "work_experience", "lifecycle_stage",
	}
	JobOrderProperties = []string{
		"job_order_title", "title", "role_description", "description", "position_type", "location",
		"employment_status", "status", "hs_createdate", "created_date", "deadline",
		"essential_requirements", "preferred_requirements", "salary_range", "benefits",
		"company_name", "total_applicants",
	}
	ApplicationProperties = []string{
		"application_name", "application_status", "hs_pipeline_stage", "pipeline_stage", "lifecycle_stage",
		"hs_createdate", "firstname", "lastname", "email", "phone", "age", "location",
		"professional_summary", "skills", "languages", "education", "work_experience",
	}
	ScorecardFields = []string{
		"candidate_id", "company_id", "assessed_by", "technical_skills", "experience",
		"english_proficiency", "cultural_fit", "problem_solving", "teamwork", "overall_rating",
		"final_decision", "assessment_notes", "concerns", "assessment_date",
	}
	DocumentProperties  = []string{"name", "category", "type", "description", "upload_date", "file_id", "file_url", "company_id"}
	ProvisionProperties = []string{"filename", "category", "upload_date", "file_size", "mime_type", "file_path", "status", "company_id"}
)

// SplitList splits a delimited property on any rune of delims, trimming
// tokens and dropping empty ones. The result is never nil.
func SplitList(s, delims string) []string {
	out := []string{}
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(delims, r) }) {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// atoi parses an integer property, tolerating decimals ("3.0") and blanks.
// Decimals outside the int32 range are clamped.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		return int(max(min(f, math.MaxInt32), math.MinInt32))
	}
	return 0
}

func fullName(p crm.Properties) string {
	return strings.TrimSpace(p.Get("firstname") + " " + p.Get("lastname"))
}

func ToCompany(o crm.Object) models.Company {
	p := o.Properties
	return models.Company{
		ID:                  o.ID,
		Name:                p.Get("name"),
		Domain:              p.Get("domain"),
		Industry:            p.Get("industry"),
		Description:         p.Get("about_us", "description"),
		Website:             p.Get("website"),
		Phone:               p.Get("phone"),
		FoundedYear:         p.Get("founded_year"),
		CompanySize:         p.Get("numberofemployees"),
		AnnualRevenue:       p.Get("annualrevenue"),
		CompanyType:         p.Get("type"),
		Address:             p.Get("address"),
		City:                p.Get("city"),
		State:               p.Get("state"),
		Zip:                 p.Get("zip"),
		Country:             p.Get("country"),
		CreatedDate:         p.Get("createdate"),
		LifecycleStage:      p.Get("lifecyclestage"),
		LastActivityDate:    p.Get("hs_lastmodifieddate"),
		IsPublic:            p.Get("is_public"),
		CloseDate:           p.Get("closedate"),
		RecentDealAmount:    p.Get("recent_deal_amount"),
		RecentDealCloseDate: p.Get("recent_deal_close_date"),
		TotalPlacements:     p.Get("total_placements"),
		OwnerID:             p.Get("hubspot_owner_id"),
		RecordSource:        p.Get("hs_created_source"),
		Timezone:            p.Get("timezone"),
		FacebookPage:        p.Get("facebook_company_page"),
		GooglePlusPage:      p.Get("googleplus_page"),
		LinkedInPage:        p.Get("linkedin_company_page"),
		TwitterHandle:       p.Get("twitterhandle"),
		BusinessProfile: models.BusinessProfile{
			BusinessSize:        p.Get("business_size"),
			AnnualTurnover:      p.Get("annual_turnover"),
			YearsInBusiness:     p.Get("years_in_business"),
			IndustrySector:      p.Get("industry_sector"),
			PreviousSponsorship: p.Get("previous_sponsorship"),
			AdditionalComments:  p.Get("additional_comments"),
		},
	}
}

func ToPrimaryContact(o crm.Object) models.PrimaryContact {
	return models.PrimaryContact{
		Name:     fullName(o.Properties),
		Email:    o.Properties.Get("email"),
		Phone:    o.Properties.Get("phone"),
		JobTitle: o.Properties.Get("jobtitle"),
	}
}

func ToJobOrder(o crm.Object) models.JobOrder {
	p := o.Properties
	return models.JobOrder{
		ID:                    o.ID,
		CompanyName:           p.Get("company_name"),
		Title:                 p.Get("job_order_title", "title"),
		Description:           p.Get("role_description", "description"),
		PositionType:          p.Get("position_type"),
		Location:              p.Get("location"),
		Status:                p.Get("employment_status", "status"),
		CreatedDate:           p.Get("hs_createdate", "created_date"),
		Deadline:              p.Get("deadline"),
		EssentialRequirements: SplitList(p["essential_requirements"], requirementDelims),
		PreferredRequirements: SplitList(p["preferred_requirements"], requirementDelims),
		SalaryRange:           p.Get("salary_range"),
		Benefits:              p.Get("benefits"),
		CandidateCount:        atoi(p["total_applicants"]),
	}
}

// candidateName derives a display name from an application record: the part
// of application_name before " - ", the whole application_name, the name
// properties, then a placeholder built from the id.
func candidateName(o crm.Object) string {
	if n := o.Properties.Get("application_name"); n != "" {
		if i := strings.Index(n, " - "); i > 0 {
			return strings.TrimSpace(n[:i])
		}
		return n
	}
	if n := fullName(o.Properties); n != "" {
		return n
	}
	return "Applicant " + o.ID
}

// ToCandidate maps an application record. Contact details are usually absent
// here and filled in by MergeContact.
func ToCandidate(o crm.Object) models.Candidate {
	p := o.Properties
	name := candidateName(o)
	first, last := p.Get("firstname"), p.Get("lastname")
	if first == "" && last == "" {
		first, last = splitName(name)
	}
	return models.Candidate{
		ID:                  o.ID,
		Name:                name,
		FirstName:           first,
		LastName:            last,
		Email:               p.Get("email"),
		Phone:               p.Get("phone"),
		Age:                 p.Get("age"),
		Location:            p.Get("location"),
		ProfessionalSummary: p.Get("professional_summary"),
		Skills:              SplitList(p["skills"], listDelims),
		Languages:           SplitList(p["languages"], listDelims),
		Education:           SplitList(p["education"], listDelims),
		WorkExperience:      p.Get("work_experience"),
		PipelineStage:       p.Get("hs_pipeline_stage", "pipeline_stage"),
		ApplicationStatus:   DetermineApplicationStatus(p),
		ApplicationDate:     p.Get("hs_createdate"),
	}
}

// MergeContact overlays a contact record on a candidate. Contact values win
// for name and contact details; profile fields only fill gaps.
func MergeContact(c models.Candidate, contact crm.Object) models.Candidate {
	p := contact.Properties
	c.ContactID = contact.ID

	if n := fullName(p); n != "" {
		c.Name = n
		c.FirstName = p.Get("firstname")
		c.LastName = p.Get("lastname")
	}
	if v := p.Get("email"); v != "" {
		c.Email = v
	}
	if v := p.Get("phone"); v != "" {
		c.Phone = v
	}

	if c.Age == "" {
		c.Age = p.Get("age")
	}
	if c.Location == "" {
		c.Location = p.Get("location")
	}
	if c.ProfessionalSummary == "" {
		c.ProfessionalSummary = p.Get("professional_summary")
	}
	if c.WorkExperience == "" {
		c.WorkExperience = p.Get("work_experience")
	}
	if len(c.Skills) == 0 {
		c.Skills = SplitList(p["skills"], listDelims)
	}
	if len(c.Languages) == 0 {
		c.Languages = SplitList(p["languages"], listDelims)
	}
	if len(c.Education) == 0 {
		c.Education = SplitList(p["education"], listDelims)
	}
	return c
}

func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}

func ToScorecard(o crm.Object) models.Scorecard {
	p := o.Properties
	return models.Scorecard{
		ID:                 o.ID,
		CandidateID:        p.Get("candidate_id"),
		CompanyID:          p.Get("company_id"),
		AssessedBy:         p.Get("assessed_by"),
		TechnicalSkills:    atoi(p["technical_skills"]),
		Experience:         atoi(p["experience"]),
		EnglishProficiency: atoi(p["english_proficiency"]),
		CulturalFit:        atoi(p["cultural_fit"]),
		ProblemSolving:     atoi(p["problem_solving"]),
		Teamwork:           atoi(p["teamwork"]),
		OverallRating:      atoi(p["overall_rating"]),
		FinalDecision:      p.Get("final_decision"),
		AssessmentNotes:    p.Get("assessment_notes"),
		Concerns:           p.Get("concerns"),
		AssessmentDate:     p.Get("assessment_date"),
	}
}

func ToDocument(o crm.Object) models.Document {
	p := o.Properties
	return models.Document{
		ID:          o.ID,
		Name:        p.Get("name"),
		Category:    p.Get("category"),
		Type:        p.Get("type"),
		Description: p.Get("description"),
		UploadDate:  p.Get("upload_date"),
		FileID:      p.Get("file_id"),
		FileURL:     p.Get("file_url"),
	}
}

func ToProvision(o crm.Object) models.Provision {
	p := o.Properties
	size, _ := strconv.ParseInt(strings.TrimSpace(p["file_size"]), 10, 64)
	return models.Provision{
		ID:         o.ID,
		Filename:   p.Get("filename"),
		Category:   p.Get("category"),
		UploadDate: p.Get("upload_date"),
		FileSize:   size,
		MimeType:   p.Get("mime_type"),
		Location:   p.Get("file_path"),
		Status:     p.Get("status"),
	}
}
