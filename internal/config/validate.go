package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would make the server
// unsafe or unable to serve, and fills in defaults for optional zero values.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == defaultJWTSecret && !c.IsDevelopment() {
		errs = append(errs, errors.New("jwt_secret uses the insecure default outside development"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.TokenDuration <= 0 || c.RememberMeDuration <= 0 || c.ResetTokenDuration <= 0 {
		errs = append(errs, errors.New("token durations must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be positive"))
	}
	if c.MaxProvisionsPerCategory <= 0 {
		errs = append(errs, errors.New("max_provisions_per_category must be positive"))
	}
	for i, e := range c.Allowlist {
		if strings.TrimSpace(e.Email) == "" {
			errs = append(errs, fmt.Errorf("allowlist[%d]: email is required", i))
		}
	}

	errs = append(errs, c.CRM.validate(c.IsDevelopment())...)

	switch c.Storage.Driver {
	case "", StorageLocal:
		c.Storage.Driver = StorageLocal
		if c.Storage.Dir == "" {
			c.Storage.Dir = "uploads"
		}
	case StorageGCS:
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage.bucket is required for the gcs driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if c.Mail.SendGridAPIKey != "" && c.Mail.FromEmail == "" {
		errs = append(errs, errors.New("mail.from_email is required when sendgrid is configured"))
	}

	return errors.Join(errs...)
}

func (c *CRMConfig) validate(development bool) []error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("crm.base_url is required"))
	}
	if c.AccessToken == "" && !development {
		errs = append(errs, errors.New("crm.access_token is required outside development"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("crm.timeout must be positive"))
	}
	if c.Objects.JobOrders == "" {
		errs = append(errs, errors.New("crm.objects.job_orders is required"))
	}
	if c.Objects.Applications == "" {
		errs = append(errs, errors.New("crm.objects.applications is required"))
	}
	if c.Labels.Recommended.Name == "" || c.Labels.Selected.Name == "" || c.Labels.Rejected.Name == "" {
		errs = append(errs, errors.New("crm.labels must name recommended, selected and rejected"))
	}
	if strings.EqualFold(c.Labels.Selected.Name, c.Labels.Rejected.Name) {
		errs = append(errs, errors.New("crm.labels.selected and crm.labels.rejected must differ"))
	}

	switch c.LabelStrategy {
	case "":
		c.LabelStrategy = LabelStrategyRecreate
	case LabelStrategyRecreate, LabelStrategyArchive:
	default:
		errs = append(errs, fmt.Errorf("unknown crm.label_strategy %q", c.LabelStrategy))
	}
	if c.Labels.Selected.TypeID == 0 || c.Labels.Rejected.TypeID == 0 {
		if !development {
			errs = append(errs, errors.New("crm.labels.selected and crm.labels.rejected need a type_id"))
		}
	}

	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 8
	}
	if c.Objects.Tickets == "" {
		c.Objects.Tickets = "tickets"
	}

	return errs
}
