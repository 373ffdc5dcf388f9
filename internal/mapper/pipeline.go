package mapper

import (
	"strings"

	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

// PostSelectionStages are the lifecycle stages of a selected candidate, in
// order.
var PostSelectionStages = []string{
	"selected", "letter_of_offer", "visa_processing", "medical_examination",
	"coe_approval", "deployment_prep", "deployed",
}

var PipelineProperties = []string{"firstname", "lastname", "lifecycle_stage", "pipeline_stage", "position_title", "lastmodifieddate", "hs_lastmodifieddate"}

var pipelineSteps = []struct {
	name  string
	after string // completed once the candidate is past this stage
}{
	{"Letter of Offer", "selected"},
	{"Visa Processing", "letter_of_offer"},
	{"Medical Examination", "visa_processing"},
	{"COE Approval", "medical_examination"},
	{"Deployment Prep", "deployment_prep"},
	{"Deployed", "deployment_prep"},
}

func stageIndex(stage string) int {
	for i, s := range PostSelectionStages {
		if s == stage {
			return i
		}
	}
	return -1
}

// CandidateStage is the post-selection stage of a candidate record.
func CandidateStage(p crm.Properties) string {
	return NormalizeStage(p.Get("pipeline_stage", "lifecycle_stage"))
}

// StageTitle renders "visa_processing" as "Visa Processing".
func StageTitle(stage string) string {
	words := strings.Split(stage, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// CountStage adds a stage to the pipeline buckets.
func CountStage(stats *models.PipelineStats, stage string) {
	switch stage {
	case "selected", "letter_of_offer":
		stats.Selected++
	case "visa_processing", "medical_examination":
		stats.VisaProcessing++
	case "coe_approval", "deployment_prep":
		stats.DeploymentReady++
	case "deployed":
		stats.Deployed++
	}
}

func ToPipelineCandidate(o crm.Object) models.PipelineCandidate {
	position := o.Properties.Get("position_title")
	if position == "" {
		position = "Unknown Position"
	}
	return models.PipelineCandidate{
		ID:            o.ID,
		Name:          fullName(o.Properties),
		Position:      position,
		PipelineStage: StageTitle(CandidateStage(o.Properties)),
		LastUpdated:   o.Properties.Get("hs_lastmodifieddate", "lastmodifieddate"),
	}
}

// ToCandidatePipeline builds the step checklist for one candidate. A missing
// stage counts as "selected".
func ToCandidatePipeline(o crm.Object) models.CandidatePipeline {
	stage := CandidateStage(o.Properties)
	if stage == "" {
		stage = "selected"
	}
	current := stageIndex(stage)

	var out models.CandidatePipeline
	out.Candidate.Name = fullName(o.Properties)
	out.Candidate.Position = o.Properties.Get("position_title")
	out.Candidate.CurrentStage = StageTitle(stage)

	out.Steps = make([]models.PipelineStep, 0, len(pipelineSteps))
	for _, s := range pipelineSteps {
		status := "pending"
		if current > stageIndex(s.after) {
			status = "completed"
		}
		out.Steps = append(out.Steps, models.PipelineStep{Step: s.name, Status: status})
	}
	return out
}
