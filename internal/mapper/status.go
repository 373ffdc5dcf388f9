package mapper

import (
	"strings"

	"github.com/garnizeh/clientportal/pkg/crm"
	"github.com/garnizeh/clientportal/pkg/models"
)

// statusRule classifies one source property. Values missing from the table
// fall through to the next rule.
type statusRule struct {
	source     string
	properties []string
	values     map[string]string
}

// applicationStatusRules is the ordered classification table: pipeline stage
// first, then the explicit status property, then the lifecycle stage.
var applicationStatusRules = []statusRule{
	{
		source:     "pipeline_stage",
		properties: []string{"hs_pipeline_stage", "pipeline_stage"},
		values: map[string]string{
			"new":               models.StatusActive,
			"screening":         models.StatusActive,
			"recommended":       models.StatusActive,
			"shortlisted":       models.StatusActive,
			"interview":         models.StatusActive,
			"offer":             models.StatusActive,
			"selected":          models.StatusActive,
			"on_hold":           models.StatusIssues,
			"documents_missing": models.StatusIssues,
			"visa_issue":        models.StatusIssues,
			"medical_issue":     models.StatusIssues,
			"withdrawn":         models.StatusInactive,
			"rejected":          models.StatusInactive,
			"closed":            models.StatusInactive,
			"closed_lost":       models.StatusInactive,
			"not_suitable":      models.StatusInactive,
		},
	},
	{
		source:     "application_status",
		properties: []string{"application_status"},
		values: map[string]string{
			"active":    models.StatusActive,
			"pending":   models.StatusActive,
			"selected":  models.StatusActive,
			"approved":  models.StatusActive,
			"issues":    models.StatusIssues,
			"flagged":   models.StatusIssues,
			"on_hold":   models.StatusIssues,
			"inactive":  models.StatusInactive,
			"rejected":  models.StatusInactive,
			"withdrawn": models.StatusInactive,
		},
	},
	{
		source:     "lifecycle_stage",
		properties: []string{"lifecycle_stage"},
		values: map[string]string{
			"candidate":   models.StatusActive,
			"active":      models.StatusActive,
			"reserved":    models.StatusActive,
			"blacklisted": models.StatusIssues,
			"issues":      models.StatusIssues,
			"inactive":    models.StatusInactive,
			"archived":    models.StatusInactive,
		},
	},
}

// NormalizeStage lowercases a stage value and joins words with underscores.
func NormalizeStage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' || r == '_' }), "_")
}

// DetermineApplicationStatus classifies an application as Active, Inactive
// or Issues. The first rule whose property holds a known value decides;
// nothing known means Active.
func DetermineApplicationStatus(p crm.Properties) string {
	status, _ := classify(p)
	return status
}

// classify also reports which rule decided, "default" when none did.
func classify(p crm.Properties) (string, string) {
	for _, rule := range applicationStatusRules {
		for _, prop := range rule.properties {
			v := NormalizeStage(p[prop])
			if v == "" {
				continue
			}
			if status, ok := rule.values[v]; ok {
				return status, rule.source
			}
		}
	}
	return models.StatusActive, "default"
}
