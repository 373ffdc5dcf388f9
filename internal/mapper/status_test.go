package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

func TestNormalizeStage(t *testing.T) {
	assert.Equal(t, "on_hold", NormalizeStage(" On Hold "))
	assert.Equal(t, "closed_lost", NormalizeStage("closed-lost"))
	assert.Equal(t, "", NormalizeStage("  "))
}

func TestClassify_Priority(t *testing.T) {
	tests := []struct {
		name       string
		props      crm.Properties
		wantStatus string
		wantSource string
	}{
		{"nothing set", crm.Properties{}, models.StatusActive, "default"},
		{"unknown values only", crm.Properties{"pipeline_stage": "mystery", "application_status": "???"}, models.StatusActive, "default"},
		{"pipeline stage wins", crm.Properties{"hs_pipeline_stage": "withdrawn", "application_status": "active", "lifecycle_stage": "blacklisted"}, models.StatusInactive, "pipeline_stage"},
		{"status when stage unknown", crm.Properties{"pipeline_stage": "mystery", "application_status": "On Hold"}, models.StatusIssues, "application_status"},
		{"lifecycle last", crm.Properties{"lifecycle_stage": "Blacklisted"}, models.StatusIssues, "lifecycle_stage"},
		{"hs property before custom", crm.Properties{"hs_pipeline_stage": "visa issue", "pipeline_stage": "selected"}, models.StatusIssues, "pipeline_stage"},
		{"custom stage when hs blank", crm.Properties{"hs_pipeline_stage": "", "pipeline_stage": "rejected"}, models.StatusInactive, "pipeline_stage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, source := classify(tt.props)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantSource, source)
			assert.Equal(t, status, DetermineApplicationStatus(tt.props))
		})
	}
}

func TestClassify_Matrix(t *testing.T) {
	// One raw value per outcome for each source; "" is unset and the
	// unknown value is in no table.
	type choice struct {
		raw    string
		status string
	}
	sources := []struct {
		name    string
		prop    string
		choices []choice
	}{
		{"pipeline_stage", "hs_pipeline_stage", []choice{
			{"", ""}, {"mystery stage", ""},
			{"Interview", models.StatusActive}, {"On Hold", models.StatusIssues}, {"withdrawn", models.StatusInactive},
		}},
		{"application_status", "application_status", []choice{
			{"", ""}, {"???", ""},
			{"Pending", models.StatusActive}, {"flagged", models.StatusIssues}, {"Rejected", models.StatusInactive},
		}},
		{"lifecycle_stage", "lifecycle_stage", []choice{
			{"", ""}, {"ghost", ""},
			{"candidate", models.StatusActive}, {"Blacklisted", models.StatusIssues}, {"archived", models.StatusInactive},
		}},
	}

	for _, stage := range sources[0].choices {
		for _, status := range sources[1].choices {
			for _, life := range sources[2].choices {
				picked := []choice{stage, status, life}
				props := crm.Properties{}
				wantStatus, wantSource := models.StatusActive, "default"
				decided := false
				for i, c := range picked {
					if c.raw != "" {
						props[sources[i].prop] = c.raw
					}
					if !decided && c.status != "" {
						wantStatus, wantSource, decided = c.status, sources[i].name, true
					}
				}
				name := stage.raw + "|" + status.raw + "|" + life.raw
				t.Run(name, func(t *testing.T) {
					gotStatus, gotSource := classify(props)
					assert.Equal(t, wantStatus, gotStatus)
					assert.Equal(t, wantSource, gotSource)
				})
			}
		}
	}
}
