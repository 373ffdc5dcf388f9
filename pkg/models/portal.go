package models

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CompanySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserProfile is the signed-in user and their company.
type UserProfile struct {
	User    UserSummary    `json:"user"`
	Company CompanySummary `json:"company"`
}

// ActionResult reports a candidate mutation. Warnings carry failures of
// non-critical side effects that did not fail the request.
type ActionResult struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	CandidateID string   `json:"candidate_id,omitempty"`
	JobOrderID  string   `json:"job_order_id,omitempty"`
	Label       string   `json:"label,omitempty"`
	AlreadySet  bool     `json:"already_set,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

type DashboardStats struct {
	ActiveJobs          int `json:"active_jobs"`
	AvailableCandidates int `json:"available_candidates"`
	PendingReviews      int `json:"pending_reviews"`
	SelectionsMade      int `json:"selections_made"`
}

type PipelineStats struct {
	Selected        int `json:"selected"`
	VisaProcessing  int `json:"visa_processing"`
	DeploymentReady int `json:"deployment_ready"`
	Deployed        int `json:"deployed"`
}

type PipelineCandidate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Position      string `json:"position"`
	PipelineStage string `json:"pipeline_stage"`
	LastUpdated   string `json:"last_updated"`
}

type PostSelectionPipeline struct {
	Stats      PipelineStats       `json:"stats"`
	Candidates []PipelineCandidate `json:"candidates"`
	TotalCount int                 `json:"total_count"`
}

type PipelineStep struct {
	Step   string `json:"step"`
	Status string `json:"status"`
}

type CandidatePipeline struct {
	Candidate struct {
		Name         string `json:"name"`
		Position     string `json:"position"`
		CurrentStage string `json:"current_stage"`
	} `json:"candidate"`
	Steps []PipelineStep `json:"pipeline_steps"`
}
