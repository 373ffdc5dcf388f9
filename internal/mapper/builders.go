package mapper

import (
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/clientportal/pkg/models"
)

// Builders for CRM writes. Timestamps come from the caller so that the same
// input always produces the same property set.

// PortalActor is recorded as the author of decisions made in the portal.
const PortalActor = "Client Portal"

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DecisionProperties is the application patch for an approve or reject.
// label is the decision label written to the job-order edge.
func DecisionProperties(approve bool, label, reason, notes string, now time.Time) map[string]string {
	if approve {
		if reason == "" {
			reason = "Approved via Client Portal"
		}
		return map[string]string{
			"application_status": label,
			"approval_date":      stamp(now),
			"approved_by":        PortalActor,
			"approval_reason":    reason,
			"approval_notes":     notes,
		}
	}
	if reason == "" {
		reason = "Rejected via Client Portal"
	}
	return map[string]string{
		"application_status": label,
		"rejection_date":     stamp(now),
		"rejected_by":        PortalActor,
		"rejection_reason":   reason,
		"rejection_notes":    notes,
	}
}

func ReserveProperties(reason, interviewDate string, now time.Time) map[string]string {
	props := map[string]string{
		"lifecycle_stage":    "reserved",
		"reservation_reason": reason,
		"last_action_date":   stamp(now),
	}
	if interviewDate != "" {
		props["interview_scheduled_date"] = interviewDate
	}
	return props
}

func businessProfileFields(bp models.BusinessProfile) map[string]string {
	return map[string]string{
		"business_size":        bp.BusinessSize,
		"annual_turnover":      bp.AnnualTurnover,
		"years_in_business":    bp.YearsInBusiness,
		"industry_sector":      bp.IndustrySector,
		"previous_sponsorship": bp.PreviousSponsorship,
		"additional_comments":  bp.AdditionalComments,
	}
}

// BusinessProfileProperties is a partial company patch: only fields with a
// value are written.
func BusinessProfileProperties(bp models.BusinessProfile) map[string]string {
	out := map[string]string{}
	for k, v := range businessProfileFields(bp) {
		if strings.TrimSpace(v) != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// QuestionnaireProperties writes every questionnaire answer, blanks
// included, and marks the questionnaire complete.
func QuestionnaireProperties(bp models.BusinessProfile, now time.Time) map[string]string {
	out := businessProfileFields(bp)
	out["questionnaire_completed_date"] = stamp(now)
	return out
}

func ScorecardProperties(sc models.Scorecard, now time.Time) map[string]string {
	itoa := strconv.Itoa
	return map[string]string{
		"candidate_id":        sc.CandidateID,
		"company_id":          sc.CompanyID,
		"assessed_by":         sc.AssessedBy,
		"technical_skills":    itoa(sc.TechnicalSkills),
		"experience":          itoa(sc.Experience),
		"english_proficiency": itoa(sc.EnglishProficiency),
		"cultural_fit":        itoa(sc.CulturalFit),
		"problem_solving":     itoa(sc.ProblemSolving),
		"teamwork":            itoa(sc.Teamwork),
		"overall_rating":      itoa(sc.OverallRating),
		"final_decision":      sc.FinalDecision,
		"assessment_notes":    sc.AssessmentNotes,
		"concerns":            sc.Concerns,
		"assessment_date":     stamp(now),
	}
}

func ActivityProperties(kind, description, relatedID, notes string, now time.Time) map[string]string {
	return map[string]string{
		"type":              kind,
		"description":       description,
		"related_object_id": relatedID,
		"notes":             notes,
		"timestamp":         stamp(now),
	}
}

func DocumentRecordProperties(d models.Document, companyID string, now time.Time) map[string]string {
	return map[string]string{
		"name":        d.Name,
		"category":    d.Category,
		"type":        d.Type,
		"description": d.Description,
		"file_id":     d.FileID,
		"file_url":    d.FileURL,
		"company_id":  companyID,
		"upload_date": stamp(now),
	}
}

func ProvisionRecordProperties(p models.Provision, companyID, uploadedBy string, now time.Time) map[string]string {
	return map[string]string{
		"filename":    p.Filename,
		"file_path":   p.Location,
		"company_id":  companyID,
		"category":    p.Category,
		"uploaded_by": uploadedBy,
		"file_size":   strconv.FormatInt(p.FileSize, 10),
		"mime_type":   p.MimeType,
		"upload_date": stamp(now),
		"status":      "uploaded",
	}
}

// TicketProperties builds a support ticket in the default ticket pipeline.
func TicketProperties(t models.SupportTicket, companyID string) map[string]string {
	return map[string]string{
		"subject":            t.Subject,
		"content":            t.Description,
		"hs_ticket_priority": strings.ToUpper(strings.TrimSpace(t.Priority)),
		"hs_pipeline":        "0",
		"hs_pipeline_stage":  "1",
		"ticket_category":    t.Category,
		"company_id":         companyID,
		"contact_email":      t.ContactEmail,
	}
}
